package text

import (
	"sort"
	"strings"
	"unicode"
)

// TriggerPrompt is the subset of a prompt template trigger detection needs.
type TriggerPrompt struct {
	ID           string
	TriggerWords []string
}

// TriggerResult is the outcome of detecting a trigger word in a transcript.
type TriggerResult struct {
	Enable          bool
	PromptID        string
	ProcessedText   string
	DetectedTrigger string
}

type triggerCandidate struct {
	promptID string
	trigger  string
}

// DetectTrigger matches a trigger word at the start or end of the cleaned
// transcript, longest trigger first, ensures the match isn't a substring of
// a larger word, and strips both the leading and trailing occurrence when
// both exist.
func DetectTrigger(transcript string, prompts []TriggerPrompt) TriggerResult {
	filtered := FilterTranscription(transcript)

	var candidates []triggerCandidate
	for _, p := range prompts {
		for _, raw := range p.TriggerWords {
			trimmed := strings.TrimSpace(raw)
			if trimmed != "" {
				candidates = append(candidates, triggerCandidate{promptID: p.ID, trigger: trimmed})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return len([]rune(candidates[i].trigger)) > len([]rune(candidates[j].trigger))
	})

	for _, c := range candidates {
		if after, ok := stripTrailingTrigger(filtered, c.trigger); ok {
			processed := after
			if both, ok2 := stripLeadingTrigger(after, c.trigger); ok2 {
				processed = both
			}
			return TriggerResult{Enable: true, PromptID: c.promptID, ProcessedText: processed, DetectedTrigger: c.trigger}
		}
	}

	for _, c := range candidates {
		if after, ok := stripLeadingTrigger(filtered, c.trigger); ok {
			processed := after
			if both, ok2 := stripTrailingTrigger(after, c.trigger); ok2 {
				processed = both
			}
			return TriggerResult{Enable: true, PromptID: c.promptID, ProcessedText: processed, DetectedTrigger: c.trigger}
		}
	}

	return TriggerResult{Enable: false, ProcessedText: filtered}
}

func isPunct(r rune) bool {
	switch r {
	case ',', '.', '!', '?', ';', ':':
		return true
	}
	return false
}

func charsEqualIgnoreASCIICase(a, b rune) bool {
	if a < unicode.MaxASCII && b < unicode.MaxASCII {
		return unicode.ToLower(a) == unicode.ToLower(b)
	}
	return a == b
}

// matchPrefixIgnoreCase returns the rune count matched if haystack starts
// with needle (ASCII-case-insensitive), or ok=false.
func matchPrefixIgnoreCase(haystack, needle string) (int, bool) {
	h := []rune(haystack)
	n := []rune(needle)
	if len(n) == 0 || len(n) > len(h) {
		return 0, false
	}
	for i, nc := range n {
		if !charsEqualIgnoreASCIICase(h[i], nc) {
			return 0, false
		}
	}
	return len(n), true
}

func matchSuffixIgnoreCase(haystack, needle string) (int, bool) {
	h := []rune(haystack)
	n := []rune(needle)
	if len(n) == 0 || len(n) > len(h) {
		return 0, false
	}
	for i := 0; i < len(n); i++ {
		hc := h[len(h)-1-i]
		nc := n[len(n)-1-i]
		if !charsEqualIgnoreASCIICase(hc, nc) {
			return 0, false
		}
	}
	return len(h) - len(n), true
}

func capitalizeFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return ""
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func stripLeadingTrigger(text, trigger string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	trigger = strings.TrimSpace(trigger)
	if trimmed == "" || trigger == "" {
		return "", false
	}

	end, ok := matchPrefixIgnoreCase(trimmed, trigger)
	if !ok {
		return "", false
	}

	r := []rune(trimmed)
	if end < len(r) && unicode.IsLetter(r[end]) || end < len(r) && unicode.IsDigit(r[end]) {
		return "", false
	}

	rest := strings.TrimSpace(strings.TrimLeftFunc(string(r[end:]), func(c rune) bool {
		return unicode.IsSpace(c) || isPunct(c)
	}))

	return capitalizeFirst(rest), true
}

func stripTrailingTrigger(text, trigger string) (string, bool) {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return "", false
	}

	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimRightFunc(trimmed, isPunct)

	start, ok := matchSuffixIgnoreCase(trimmed, trigger)
	if !ok {
		return "", false
	}

	r := []rune(trimmed)
	if start > 0 && (unicode.IsLetter(r[start-1]) || unicode.IsDigit(r[start-1])) {
		return "", false
	}

	rest := strings.TrimSpace(strings.TrimRightFunc(string(r[:start]), func(c rune) bool {
		return unicode.IsSpace(c) || isPunct(c)
	}))

	return capitalizeFirst(rest), true
}
