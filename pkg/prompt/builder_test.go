package prompt

import (
	"strings"
	"testing"
)

func TestBuildIncludesContextBlocks(t *testing.T) {
	tmpl := Template{ID: "p1", Mode: ModeEnhancer, PromptText: "Fix transcript"}
	ctx := Context{
		ClipboardContext:     "foo",
		CurrentWindowContext: "Active Window: Bar",
	}

	built := Build("hello", tmpl, ctx)

	if !strings.Contains(built.SystemMessage, "<CLIPBOARD_CONTEXT>") {
		t.Fatalf("expected clipboard block in system message: %q", built.SystemMessage)
	}
	if !strings.Contains(built.SystemMessage, "<CURRENT_WINDOW_CONTEXT>") {
		t.Fatalf("expected window block in system message: %q", built.SystemMessage)
	}
	if strings.Contains(built.SystemMessage, "<CURRENTLY_SELECTED_TEXT>") {
		t.Fatalf("did not expect selected-text block: %q", built.SystemMessage)
	}
	if !strings.Contains(built.UserMessage, "<TRANSCRIPT>") {
		t.Fatalf("expected transcript tag in user message: %q", built.UserMessage)
	}
}

func TestBuildOmitsEmptyBlocksAfterTrim(t *testing.T) {
	tmpl := Template{ID: "p1", Mode: ModeAssistant, PromptText: "Be helpful"}
	ctx := Context{ClipboardContext: "   "}

	built := Build("hello", tmpl, ctx)

	if strings.Contains(built.SystemMessage, "<CLIPBOARD_CONTEXT>") {
		t.Fatalf("whitespace-only context should be omitted: %q", built.SystemMessage)
	}
}

func TestBuildEnhancerVsAssistantPreamble(t *testing.T) {
	enhancer := Build("x", Template{Mode: ModeEnhancer, PromptText: "Rewrite"}, Context{})
	assistant := Build("x", Template{Mode: ModeAssistant, PromptText: "Rewrite"}, Context{})

	if !strings.Contains(enhancer.SystemMessage, "TRANSCRIPTION ENHANCER") {
		t.Fatalf("expected enhancer preamble, got %q", enhancer.SystemMessage)
	}
	if strings.Contains(assistant.SystemMessage, "TRANSCRIPTION ENHANCER") {
		t.Fatalf("assistant mode should not use the enhancer preamble, got %q", assistant.SystemMessage)
	}
}

func TestPostProcessStripsReasoningBlocks(t *testing.T) {
	got := PostProcess("<reasoning>no</reasoning>\nHi")
	if got != "Hi" {
		t.Fatalf("got %q", got)
	}
}
