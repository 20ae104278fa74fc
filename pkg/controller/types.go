// Package controller implements the top-level dictation state machine: it
// owns microphone capture and STT-mode selection, drives SessionEngine runs,
// and fans status out to the overlay and any other subscriber.
package controller

import "time"

// State is one of the controller's named stages. Self-transitions are not
// named separately; Toggle/Stop/Cancel enforce the allowed edges.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateFinalizing
	StateTranscribing
	StateEnhancing
	StateInserting
	StateSuccess
	StateError
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	case StateTranscribing:
		return "transcribing"
	case StateEnhancing:
		return "enhancing"
	case StateInserting:
		return "inserting"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// stageLabel is the human-facing string shown alongside Stage in the status
// payload.
func (s State) stageLabel() string {
	switch s {
	case StateIdle:
		return "Ready"
	case StateRecording:
		return "Recording..."
	case StateFinalizing:
		return "Finishing transcript..."
	case StateTranscribing:
		return "Transcribing..."
	case StateEnhancing:
		return "Enhancing..."
	case StateInserting:
		return "Inserting..."
	case StateSuccess:
		return "Done"
	case StateError:
		return "Error"
	case StateCancelled:
		return "Cancelled"
	default:
		return ""
	}
}

// MaxRecordingDuration bounds a single recording before the watchdog forces
// a stop.
const MaxRecordingDuration = 120 * time.Second

const (
	busyStatusTTL    = 1 * time.Second
	warningResultTTL = 2500 * time.Millisecond
	errorResultTTL   = 6 * time.Second
	cancelHideDelay  = 1500 * time.Millisecond

	levelEmitInterval  = 50 * time.Millisecond
	levelTimeConstant  = 150 * time.Millisecond
	previewRuneLimit   = 80
	minCapturedSamples = 160
)

// SessionStatusPayload is published on every state change or status-message
// change.
type SessionStatusPayload struct {
	Stage             string
	StageLabel        string
	IsRecording       bool
	ElapsedMs         *int64
	Error             string
	LastTextPreview   string
	LastTextAvailable bool
}

// MicLevel is emitted at ≥50 ms cadence while recording.
type MicLevel struct {
	RMS  float64
	Peak float64
}

// statusMessage is a transient overlay message with its own expiry,
// independent of the controller's State (e.g. the 1 s "busy" notice from an
// ignored Toggle).
type statusMessage struct {
	text      string
	expiresAt time.Time
}

func (m statusMessage) expired(now time.Time) bool {
	return m.text == "" || now.After(m.expiresAt)
}
