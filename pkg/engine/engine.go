package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Clouder0/voicewin/pkg/config"
	"github.com/Clouder0/voicewin/pkg/insert"
	"github.com/Clouder0/voicewin/pkg/platform"
	"github.com/Clouder0/voicewin/pkg/prompt"
	"github.com/Clouder0/voicewin/pkg/session"
	"github.com/Clouder0/voicewin/pkg/sttbatch"
	"github.com/Clouder0/voicewin/pkg/text"
)

// ErrNoSttBackend is returned when EffectiveConfig.SttProvider names a
// backend Deps.Backends does not have.
var ErrNoSttBackend = errors.New("engine: no stt backend configured for provider")

// Run executes one full dictation session over clip (ignored if
// transcriptOverride is non-empty after trimming): resolve config, transcribe,
// detect a trigger word, optionally enhance, then insert.
func Run(ctx context.Context, deps Deps, clip sttbatch.Clip, ephemeral config.EphemeralOverrides, transcriptOverride string, stageHook StageHook) SessionResult {
	if stageHook == nil {
		stageHook = func(string) {}
	}
	if deps.Logger == nil {
		deps.Logger = session.NoOpLogger{}
	}

	app, err := deps.ContextProvider.ForegroundApp(ctx)
	if err != nil {
		return fail(session.WrapKind(session.KindConfiguration, err))
	}
	snapshot, err := deps.ContextProvider.SnapshotContext(ctx)
	if err != nil {
		return fail(session.WrapKind(session.KindConfiguration, err))
	}

	effective := config.ResolveEffectiveConfig(deps.Defaults, deps.Profiles, app, ephemeral)

	stageHook(StageRecording)
	stageHook(StageTranscribing)

	var raw string
	var transcriptionMs int64
	if strings.TrimSpace(transcriptOverride) != "" {
		raw = transcriptOverride
	} else {
		backend, ok := deps.Backends[effective.SttProvider]
		if !ok {
			return fail(session.WrapKind(session.KindSttFatal, ErrNoSttBackend))
		}
		start := time.Now()
		result, err := backend.Transcribe(ctx, clip, sttbatch.NormalizeRealtimeModel(effective.SttModel), effective.Language)
		transcriptionMs = time.Since(start).Milliseconds()
		if err != nil {
			res := fail(session.WrapKind(session.KindSttFatal, err))
			res.Timings.TranscriptionMs = transcriptionMs
			return res
		}
		raw = result.Text
	}

	finalText := text.FilterTranscription(raw)

	triggerPrompts := make([]text.TriggerPrompt, len(deps.Prompts))
	for i, p := range deps.Prompts {
		triggerPrompts[i] = text.TriggerPrompt{ID: p.ID, TriggerWords: p.TriggerWords}
	}
	detection := text.DetectTrigger(finalText, triggerPrompts)

	promptID := ""
	if effective.PromptID != nil {
		promptID = *effective.PromptID
	}
	if detection.Enable {
		finalText = detection.ProcessedText
		promptID = detection.PromptID
	}

	result := SessionResult{
		RawTranscript: raw,
		FinalText:     finalText,
		PromptID:      promptID,
		Timings:       Timings{TranscriptionMs: transcriptionMs},
	}

	if effective.EnableEnhancement || detection.Enable {
		tmpl, ok := selectPrompt(deps.Prompts, promptID)
		if !ok {
			result.Outcome = OutcomeFailed
			result.Error = session.WrapKind(session.KindConfiguration, session.ErrNoDefaultPrompt).Error()
			return result
		}

		promptCtx := buildPromptContext(effective.Context, snapshot)
		built := prompt.Build(finalText, tmpl, promptCtx)

		stageHook(StageEnhancing)
		start := time.Now()
		enhanced, err := deps.Enhancer.Enhance(ctx, effective.LlmBaseURL, deps.LlmAPIKey, effective.LlmModel, built)
		result.Timings.EnhancementMs = time.Since(start).Milliseconds()
		if err != nil {
			// Non-fatal: keep the unenhanced text and surface the failure as
			// a warning, then proceed to insertion.
			result.Warning = session.WrapKind(session.KindEnhancement, err).Error()
		} else {
			finalText = enhanced
			result.FinalText = finalText
			result.EnhancementApplied = true
		}
	}

	stageHook(StageInserting)
	start := time.Now()
	err = deps.Inserter.Insert(ctx, finalText, insertModeOf(effective.InsertMode))
	result.Timings.InsertMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Error = session.WrapKind(session.KindInsertion, err).Error()
		return result
	}

	result.Outcome = OutcomeDone
	return result
}

func fail(err error) SessionResult {
	return SessionResult{Outcome: OutcomeFailed, Error: err.Error()}
}

// selectPrompt picks the template named by id, or the first configured
// prompt when id is empty or unmatched.
func selectPrompt(prompts []config.PromptTemplate, id string) (prompt.Template, bool) {
	if id != "" {
		for _, p := range prompts {
			if p.ID == id {
				return toPromptTemplate(p), true
			}
		}
	}
	if len(prompts) > 0 {
		return toPromptTemplate(prompts[0]), true
	}
	return prompt.Template{}, false
}

func toPromptTemplate(p config.PromptTemplate) prompt.Template {
	return prompt.Template{ID: p.ID, Mode: prompt.Mode(p.Mode), PromptText: p.PromptText}
}

// buildPromptContext gates each snapshot field behind its toggle.
// prompt.Build independently gates on non-empty-after-trim, so a
// disabled toggle must zero the field before it ever reaches Build.
func buildPromptContext(toggles config.ContextToggles, snap platform.ContextSnapshot) prompt.Context {
	var pc prompt.Context
	if toggles.UseSelectedText {
		pc.CurrentlySelectedText = snap.SelectedText
	}
	if toggles.UseClipboard {
		pc.ClipboardContext = snap.Clipboard
	}
	if toggles.UseWindowContext {
		pc.CurrentWindowContext = snap.WindowContext
	}
	if toggles.UseCustomVocabulary {
		pc.CustomVocabulary = snap.CustomVocabulary
	}
	return pc
}

func insertModeOf(m config.InsertMode) insert.Mode {
	if m == config.InsertModePasteAndEnter {
		return insert.ModePasteAndEnter
	}
	return insert.ModePaste
}
