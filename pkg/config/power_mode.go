package config

import "strings"

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matches reports whether this matcher applies to the given foreground
// application identity, comparing normalized (trimmed, lowercased)
// strings as VoiceWin does for case-insensitive matching.
func (m AppMatcher) Matches(app AppIdentity) bool {
	switch m.Kind {
	case MatchExePathEquals:
		return app.ExePath != "" && normalize(app.ExePath) == normalize(m.Value)
	case MatchProcessNameEquals:
		return app.ProcessName != "" && normalize(app.ProcessName) == normalize(m.Value)
	case MatchWindowTitleContains:
		return app.WindowTitle != "" && strings.Contains(normalize(app.WindowTitle), normalize(m.Value))
	default:
		return false
	}
}

// Matches reports whether the profile is enabled and at least one of its
// matchers applies to app.
func (p PowerModeProfile) Matches(app AppIdentity) bool {
	if !p.Enabled {
		return false
	}
	for _, m := range p.Matchers {
		if m.Matches(app) {
			return true
		}
	}
	return false
}

// ResolveEffectiveConfig layers global defaults, the first matching
// power-mode profile (or the profile forced by EphemeralOverrides), and
// ephemeral per-invocation overrides into a single EffectiveConfig.
//
// Selecting a forced prompt id always implies enabling enhancement, since
// choosing a specific prompt from a menu only makes sense if enhancement
// runs.
func ResolveEffectiveConfig(defaults GlobalDefaults, profiles []PowerModeProfile, app AppIdentity, ephemeral EphemeralOverrides) EffectiveConfig {
	matched := findMatchedProfile(profiles, app, ephemeral)

	cfg := EffectiveConfig{
		EnableEnhancement: defaults.EnableEnhancement,
		PromptID:          defaults.PromptID,
		InsertMode:        defaults.InsertMode,
		SttProvider:       defaults.SttProvider,
		SttModel:          defaults.SttModel,
		Language:          defaults.Language,
		LlmBaseURL:        defaults.LlmBaseURL,
		LlmModel:          defaults.LlmModel,
		Context:           defaults.Context,
	}

	if matched != nil {
		id := matched.ID
		cfg.MatchedProfileID = &id
		applyOverrides(&cfg, matched.Overrides)
	}

	if ephemeral.ForcedEnableEnhancement != nil {
		cfg.EnableEnhancement = *ephemeral.ForcedEnableEnhancement
	}
	if ephemeral.ForcedPromptID != nil {
		cfg.PromptID = ephemeral.ForcedPromptID
		cfg.EnableEnhancement = true
	}

	return cfg
}

func findMatchedProfile(profiles []PowerModeProfile, app AppIdentity, ephemeral EphemeralOverrides) *PowerModeProfile {
	if ephemeral.ForcedProfileID != nil {
		for i := range profiles {
			if profiles[i].ID == *ephemeral.ForcedProfileID && profiles[i].Enabled {
				return &profiles[i]
			}
		}
		return nil
	}

	for i := range profiles {
		if profiles[i].Matches(app) {
			return &profiles[i]
		}
	}
	return nil
}

func applyOverrides(cfg *EffectiveConfig, o PowerModeOverrides) {
	if o.EnableEnhancement != nil {
		cfg.EnableEnhancement = *o.EnableEnhancement
	}
	if o.PromptID != nil {
		cfg.PromptID = o.PromptID
	}
	if o.InsertMode != nil {
		cfg.InsertMode = *o.InsertMode
	}
	if o.SttProvider != nil {
		cfg.SttProvider = *o.SttProvider
	}
	if o.SttModel != nil {
		cfg.SttModel = *o.SttModel
	}
	if o.Language != nil {
		cfg.Language = *o.Language
	}
	if o.LlmBaseURL != nil {
		cfg.LlmBaseURL = *o.LlmBaseURL
	}
	if o.LlmModel != nil {
		cfg.LlmModel = *o.LlmModel
	}
	if o.Context != nil {
		cfg.Context = *o.Context
	}
}
