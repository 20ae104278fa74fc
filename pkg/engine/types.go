// Package engine runs one dictation session end to end: context fetch,
// config resolution, transcription, filtering, trigger detection,
// enhancement, and insertion. It is pure with respect to
// concurrency — SessionController owns cancellation, retries, and
// realtime-vs-batch selection; Run just executes the pipeline once over
// whatever clip/override it is handed.
package engine

import (
	"context"

	"github.com/Clouder0/voicewin/pkg/config"
	"github.com/Clouder0/voicewin/pkg/insert"
	"github.com/Clouder0/voicewin/pkg/platform"
	"github.com/Clouder0/voicewin/pkg/prompt"
	"github.com/Clouder0/voicewin/pkg/session"
	"github.com/Clouder0/voicewin/pkg/sttbatch"
)

// Stage names passed to StageHook as the pipeline advances.
const (
	StageRecording    = "recording"
	StageTranscribing = "transcribing"
	StageEnhancing    = "enhancing"
	StageInserting    = "inserting"
)

// StageHook is called as the pipeline advances, letting the controller
// translate engine stages into its own ControllerState.
type StageHook func(stage string)

// Outcome is the terminal result of a Run call.
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeFailed
)

// Timings records the duration (milliseconds) each billed stage took. A
// transcript override skips transcription entirely, so TranscriptionMs is
// 0 in that case.
type Timings struct {
	TranscriptionMs int64
	EnhancementMs   int64
	InsertMs        int64
}

// SessionResult is returned by Run regardless of outcome; on failure Error
// is set and the fields populated up to the point of failure are still
// included.
type SessionResult struct {
	Outcome Outcome
	Error   string
	// Warning is set when enhancement failed but the session otherwise
	// completed; final text falls back to the unenhanced transcript rather
	// than failing the whole session.
	Warning string

	RawTranscript      string
	FinalText          string
	EnhancementApplied bool
	PromptID           string

	Timings Timings
}

// Enhancer rewrites a built prompt through an LLM. Satisfied by
// *llm.Enhancer; a small interface here lets tests supply a fake instead of
// standing up a real chat-completions endpoint.
type Enhancer interface {
	Enhance(ctx context.Context, baseURL, apiKey, model string, built prompt.Built) (string, error)
}

// Inserter delivers final text to the foreground app. Satisfied by
// *insert.Inserter.
type Inserter interface {
	Insert(ctx context.Context, text string, mode insert.Mode) error
}

// Deps bundles every external collaborator Run needs. Backends is keyed by
// EffectiveConfig.SttProvider ("local" or "cloud"); LlmAPIKey is resolved
// ahead of time by the caller from its SecretsStore, since engine has no
// business talking to a keyring directly.
type Deps struct {
	Defaults config.GlobalDefaults
	Profiles []config.PowerModeProfile
	Prompts  []config.PromptTemplate

	ContextProvider platform.AppContextProvider
	Backends        map[string]sttbatch.Backend
	Enhancer        Enhancer
	LlmAPIKey       string
	Inserter        Inserter
	Logger          session.Logger
}
