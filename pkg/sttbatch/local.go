package sttbatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/Clouder0/voicewin/pkg/audio"
)

// ggmlMagic and ggufMagic are the two whisper.cpp-compatible model file
// magics; anything else is rejected before we ever hand the path to the
// bindings, as an invalid-model-file configuration error.
var (
	ggmlMagic = []byte{0x6c, 0x6d, 0x67, 0x67} // 0x67676d6c ("ggml") as a little-endian int32
	ggufMagic = []byte("GGUF")
)

const batchSampleRateHz = 16000

// LocalBackend runs whisper.cpp inference via CGO bindings. The model is
// loaded once and shared across calls; each Transcribe call opens its own
// whisper.cpp context, since contexts (unlike the model) are not
// thread-safe.
type LocalBackend struct {
	mu    sync.Mutex
	model whisperlib.Model
}

// OpenLocalBackend validates modelPath's header and loads it into
// whisper.cpp. Callers must Close the backend when done.
func OpenLocalBackend(modelPath string) (*LocalBackend, error) {
	f, err := os.Open(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	}
	var header [4]byte
	_, err = io.ReadFull(f, header[:])
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModelFormat, modelPath)
	}
	if !bytes.Equal(header[:], ggmlMagic) && !bytes.Equal(header[:], ggufMagic) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModelFormat, modelPath)
	}

	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("sttbatch: load whisper model %q: %w", modelPath, err)
	}
	return &LocalBackend{model: model}, nil
}

// Close releases the whisper.cpp model.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.model != nil {
		return b.model.Close()
	}
	return nil
}

func (b *LocalBackend) Name() string { return "local_whisper" }

// Transcribe resamples clip to 16 kHz if necessary, runs greedy whisper.cpp
// decoding with Go's os.Stdout swapped out (see withSilencedStdout), and
// concatenates segment texts.
//
// CPU-bound inference must not run on a goroutine the caller depends on for
// other async work to make progress; callers invoke this from a dedicated
// worker (see controller.go).
func (b *LocalBackend) Transcribe(ctx context.Context, clip Clip, model, language string) (Transcript, error) {
	samples := clip.Samples
	if clip.SampleRateHz != batchSampleRateHz {
		var err error
		samples, err = audio.ResampleMono(samples, clip.SampleRateHz, batchSampleRateHz)
		if err != nil {
			return Transcript{}, fmt.Errorf("sttbatch: resample: %w", err)
		}
	}

	b.mu.Lock()
	wctx, err := b.model.NewContext()
	b.mu.Unlock()
	if err != nil {
		return Transcript{}, fmt.Errorf("sttbatch: create whisper context: %w", err)
	}

	if language != "" && !strings.EqualFold(language, "auto") {
		if err := wctx.SetLanguage(language); err != nil {
			return Transcript{}, fmt.Errorf("sttbatch: set language %q: %w", language, err)
		}
	} else {
		_ = wctx.SetLanguage("auto")
	}

	if err := withSilencedStdout(func() error {
		return wctx.Process(samples, nil, nil, nil)
	}); err != nil {
		if ctx.Err() != nil {
			return Transcript{}, ctx.Err()
		}
		return Transcript{}, fmt.Errorf("sttbatch: whisper process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return Transcript{
		Text:        strings.TrimSpace(strings.Join(parts, " ")),
		ProviderTag: "local",
		ModelTag:    model,
	}, nil
}

// withSilencedStdout points Go's os.Stdout at /dev/null for the duration of
// fn. Only writes made through os.Stdout are silenced; output the
// whisper.cpp C library writes directly to file descriptor 1 is not
// redirected.
func withSilencedStdout(fn func() error) error {
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return fn()
	}
	defer devNull.Close()

	saved := os.Stdout
	os.Stdout = devNull
	defer func() { os.Stdout = saved }()

	return fn()
}
