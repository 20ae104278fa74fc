// Package sttbatch sends one already-captured clip to a speech-to-text
// backend and returns a finished transcript, covering both the local
// whisper.cpp inference path and the cloud multipart-POST path.
package sttbatch

import (
	"context"
	"errors"
	"strconv"
)

// Transcript is the immutable result of a batch transcription call.
type Transcript struct {
	Text        string
	ProviderTag string
	ModelTag    string
}

// Clip is the audio handed to a backend: mono float32 PCM at SampleRateHz.
type Clip struct {
	SampleRateHz int
	Samples      []float32
}

// Backend transcribes one CapturedClip. Local and cloud implementations
// both satisfy it so SessionEngine can treat provider selection as a tagged
// dispatch rather than unbounded polymorphism.
type Backend interface {
	Transcribe(ctx context.Context, clip Clip, model, language string) (Transcript, error)
	Name() string
}

// StatusError is returned when a cloud backend's HTTP response is not 2xx.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return "stt: non-2xx response (status " + strconv.Itoa(e.Status) + "): " + e.Body
}

// ErrModelNotFound is returned when a local model path does not exist.
var ErrModelNotFound = errors.New("sttbatch: model file not found")

// ErrUnsupportedModelFormat is returned when a local model file's header
// doesn't match a known whisper.cpp model magic.
var ErrUnsupportedModelFormat = errors.New("sttbatch: unsupported model file format")

// NormalizeRealtimeModel maps a "realtime" model selector to its batch
// equivalent, for falling back to batch transcription when a realtime
// session fails. Only one such mapping is currently known; anything else
// passes through unchanged.
func NormalizeRealtimeModel(modelSelector string) string {
	if modelSelector == "scribe_v1_realtime" {
		return "scribe_v1"
	}
	return modelSelector
}
