// Package config resolves per-application effective settings from global
// defaults, power-mode profiles, and per-invocation overrides, and persists
// configuration and dictation history to disk as flat JSON files.
package config

// InsertMode controls how a finished transcript reaches the target
// application.
type InsertMode int

const (
	InsertModePaste InsertMode = iota
	InsertModePasteAndEnter
)

// AppIdentity describes the foreground application a dictation session was
// started in, as reported by the platform layer.
type AppIdentity struct {
	ExePath     string
	ProcessName string
	WindowTitle string
}

// WithExePath returns a copy of the identity with ExePath set, so callers can chain construction.
func (a AppIdentity) WithExePath(v string) AppIdentity {
	a.ExePath = v
	return a
}

// WithProcessName returns a copy of the identity with ProcessName set.
func (a AppIdentity) WithProcessName(v string) AppIdentity {
	a.ProcessName = v
	return a
}

// WithWindowTitle returns a copy of the identity with WindowTitle set.
func (a AppIdentity) WithWindowTitle(v string) AppIdentity {
	a.WindowTitle = v
	return a
}

// ContextToggles controls which ambient context blocks PromptBuilder may
// attach to an enhancement request.
type ContextToggles struct {
	UseClipboard        bool
	UseSelectedText     bool
	UseWindowContext    bool
	UseCustomVocabulary bool
	UseOCR              bool
}

// DefaultContextToggles enables clipboard and
// window context and custom vocabulary on, selected-text and OCR off (OCR
// is deferred entirely; the flag exists for forward compatibility only).
func DefaultContextToggles() ContextToggles {
	return ContextToggles{
		UseClipboard:        true,
		UseSelectedText:     false,
		UseWindowContext:    true,
		UseCustomVocabulary: true,
		UseOCR:              false,
	}
}

// PromptTemplate is a persisted enhancement prompt, keyed by a stable id so
// profiles and triggers can reference it.
type PromptTemplate struct {
	ID           string
	Title        string
	Mode         int // prompt.Mode, duplicated here to avoid an import cycle
	PromptText   string
	TriggerWords []string
}

// AppMatcherKind distinguishes the three ways a power-mode profile can be
// bound to a foreground application.
type AppMatcherKind int

const (
	MatchExePathEquals AppMatcherKind = iota
	MatchProcessNameEquals
	MatchWindowTitleContains
)

// AppMatcher is one matching rule within a PowerModeProfile.
type AppMatcher struct {
	Kind  AppMatcherKind
	Value string
}

// PowerModeOverrides are the fields a matched profile may override on top
// of GlobalDefaults. Nil-like "unset" is modeled with pointers so a
// profile can leave a field untouched.
type PowerModeOverrides struct {
	EnableEnhancement *bool
	PromptID          *string
	InsertMode        *InsertMode
	SttProvider       *string
	SttModel          *string
	Language          *string
	LlmBaseURL        *string
	LlmModel          *string
	Context           *ContextToggles
}

// PowerModeProfile binds a set of app matchers to a set of overrides.
type PowerModeProfile struct {
	ID        string
	Name      string
	Enabled   bool
	Matchers  []AppMatcher
	Overrides PowerModeOverrides
}

// GlobalDefaults are the base settings applied when no profile matches.
type GlobalDefaults struct {
	EnableEnhancement bool
	PromptID          *string
	InsertMode        InsertMode
	SttProvider       string
	SttModel          string
	Language          string
	LlmBaseURL        string
	LlmModel          string
	HistoryEnabled    bool
	Context           ContextToggles
}

// EffectiveConfig is the fully resolved configuration for one dictation
// session, after profile and ephemeral overrides have been applied.
type EffectiveConfig struct {
	EnableEnhancement bool
	PromptID          *string
	InsertMode        InsertMode
	SttProvider       string
	SttModel          string
	Language          string
	LlmBaseURL        string
	LlmModel          string
	Context           ContextToggles
	MatchedProfileID  *string
}

// EphemeralOverrides are per-invocation forcing options layered on top of
// profile/global resolution — e.g. the user picked a specific prompt from a
// menu for this one recording.
type EphemeralOverrides struct {
	ForcedProfileID         *string
	ForcedPromptID          *string
	ForcedEnableEnhancement *bool
}

// AppConfig is the persisted, user-editable configuration document.
type AppConfig struct {
	Defaults         GlobalDefaults
	Profiles         []PowerModeProfile
	Prompts          []PromptTemplate
	LlmAPIKeyPresent bool
}
