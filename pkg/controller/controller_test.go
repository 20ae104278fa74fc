package controller

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Clouder0/voicewin/pkg/audio"
	"github.com/Clouder0/voicewin/pkg/config"
	"github.com/Clouder0/voicewin/pkg/engine"
	"github.com/Clouder0/voicewin/pkg/insert"
	"github.com/Clouder0/voicewin/pkg/platform"
	"github.com/Clouder0/voicewin/pkg/prompt"
	"github.com/Clouder0/voicewin/pkg/sttbatch"
)

// fakeRecorder is an in-process Recorder: Start/Stop just flip a recording
// flag and hand back whatever samples the test preloaded, so controller
// tests never need a real capture device.
type fakeRecorder struct {
	sampleRate int
	samples    []float32
	stopErr    error
	onLevel    audio.LevelFunc
	started    int
	stopped    int
}

func (f *fakeRecorder) Start() { f.started++ }

func (f *fakeRecorder) Stop() ([]float32, error) {
	f.stopped++
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	return f.samples, nil
}

func (f *fakeRecorder) SetLevelCallback(fn audio.LevelFunc) { f.onLevel = fn }

func (f *fakeRecorder) SampleRate() int { return f.sampleRate }

type fakeBackend struct {
	text string
	err  error
}

func (f fakeBackend) Transcribe(ctx context.Context, clip sttbatch.Clip, model, language string) (sttbatch.Transcript, error) {
	if f.err != nil {
		return sttbatch.Transcript{}, f.err
	}
	return sttbatch.Transcript{Text: f.text}, nil
}

func (f fakeBackend) Name() string { return "fake" }

// blockingBackend only returns once release is closed, so a test can hold
// the processing pipeline mid-flight while it exercises a concurrent
// Cancel.
type blockingBackend struct {
	release chan struct{}
	text    string
}

func (b blockingBackend) Transcribe(ctx context.Context, clip sttbatch.Clip, model, language string) (sttbatch.Transcript, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return sttbatch.Transcript{}, ctx.Err()
	}
	return sttbatch.Transcript{Text: b.text}, nil
}

func (b blockingBackend) Name() string { return "blocking-fake" }

type fakeEnhancer struct{}

func (fakeEnhancer) Enhance(ctx context.Context, baseURL, apiKey, model string, built prompt.Built) (string, error) {
	return "", errors.New("enhancer not configured for this test")
}

func samples(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = 0.01
	}
	return out
}

func fastInserter() *insert.Inserter {
	in := insert.New(insert.NewMemoryClipboard(), insert.NoopKeystroker{})
	in.SetSleepForTest(func(time.Duration) {})
	return in
}

func testDeps(t *testing.T, rec *fakeRecorder) Deps {
	t.Helper()
	historyPath := filepath.Join(t.TempDir(), "history.json")
	promptID := "p1"
	return Deps{
		Defaults: config.GlobalDefaults{
			SttProvider: "local",
			InsertMode:  config.InsertModePaste,
			Context:     config.DefaultContextToggles(),
			PromptID:    &promptID,
		},
		Prompts: []config.PromptTemplate{
			{ID: promptID, Mode: 0, PromptText: "Rewrite: {{.Transcript}}"},
		},
		ContextProvider: platform.StaticProvider{App: config.AppIdentity{ProcessName: "test-app"}},
		Backends: map[string]sttbatch.Backend{
			"local": fakeBackend{text: "hello there"},
		},
		Enhancer: fakeEnhancer{},
		Inserter: fastInserter(),
		Recorder: rec,
		History:  config.NewHistoryStore(historyPath),
	}
}

func waitForState(t *testing.T, c *Controller, want State, timeout time.Duration) SessionStatusPayload {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var last SessionStatusPayload
	for time.Now().Before(deadline) {
		last = c.Status()
		if last.Stage == want.String() {
			return last
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, last status = %+v", want, last)
	return last
}

func TestToggleStartsRecordingAndEmitsStatusBeforeReturn(t *testing.T) {
	rec := &fakeRecorder{sampleRate: 16000}
	c := New(testDeps(t, rec))

	status := c.Toggle(context.Background(), config.EphemeralOverrides{})
	if !status.IsRecording {
		t.Fatalf("expected IsRecording=true, got %+v", status)
	}
	if status.Stage != StateRecording.String() {
		t.Errorf("Stage = %q, want %q", status.Stage, StateRecording.String())
	}
	if rec.started != 1 {
		t.Errorf("recorder.Start() called %d times, want 1", rec.started)
	}
}

func TestToggleWhileProcessingIsBusyNoop(t *testing.T) {
	rec := &fakeRecorder{sampleRate: 16000}
	c := New(testDeps(t, rec))
	c.Toggle(context.Background(), config.EphemeralOverrides{})

	c.mu.Lock()
	c.state = StateEnhancing
	c.mu.Unlock()

	status := c.Toggle(context.Background(), config.EphemeralOverrides{})
	if status.Error == "" {
		t.Error("expected a busy status message")
	}
}

func TestStopWithTooFewSamplesFailsWithNoAudio(t *testing.T) {
	rec := &fakeRecorder{sampleRate: 16000, samples: samples(10)}
	c := New(testDeps(t, rec))

	c.Toggle(context.Background(), config.EphemeralOverrides{})
	status := c.Toggle(context.Background(), config.EphemeralOverrides{})

	if status.Stage != StateError.String() {
		t.Fatalf("Stage = %q, want %q", status.Stage, StateError.String())
	}
	if status.Error == "" {
		t.Error("expected an error message describing the missing audio")
	}
}

func TestStopRunsPipelineToSuccess(t *testing.T) {
	rec := &fakeRecorder{sampleRate: 16000, samples: samples(1000)}
	c := New(testDeps(t, rec))

	c.Toggle(context.Background(), config.EphemeralOverrides{})
	stopStatus := c.Toggle(context.Background(), config.EphemeralOverrides{})
	if stopStatus.Stage != StateTranscribing.String() {
		t.Fatalf("Stage right after stop = %q, want %q", stopStatus.Stage, StateTranscribing.String())
	}

	final := waitForState(t, c, StateSuccess, time.Second)
	if !final.LastTextAvailable {
		t.Error("expected LastTextAvailable once the session finished")
	}
}

func TestCancelWhileRecordingGoesToCancelled(t *testing.T) {
	rec := &fakeRecorder{sampleRate: 16000}
	c := New(testDeps(t, rec))
	c.Toggle(context.Background(), config.EphemeralOverrides{})

	status := c.Cancel()
	if status.Stage != StateCancelled.String() {
		t.Fatalf("Stage = %q, want %q", status.Stage, StateCancelled.String())
	}
	if rec.stopped != 1 {
		t.Errorf("recorder.Stop() called %d times, want 1", rec.stopped)
	}
}

func TestCancelWhenIdleIsNoop(t *testing.T) {
	rec := &fakeRecorder{sampleRate: 16000}
	c := New(testDeps(t, rec))

	status := c.Cancel()
	if status.Stage != StateIdle.String() {
		t.Fatalf("Stage = %q, want %q", status.Stage, StateIdle.String())
	}
	if status.Error == "" {
		t.Error("expected a transient not-recording status message")
	}
}

func TestSessionIDMonotonicAcrossToggles(t *testing.T) {
	rec := &fakeRecorder{sampleRate: 16000, samples: samples(1000)}
	c := New(testDeps(t, rec))

	c.Toggle(context.Background(), config.EphemeralOverrides{})
	firstID := c.sessionID
	c.Toggle(context.Background(), config.EphemeralOverrides{})
	waitForState(t, c, StateSuccess, time.Second)

	c.Toggle(context.Background(), config.EphemeralOverrides{})
	secondID := c.sessionID
	if secondID <= firstID {
		t.Errorf("session_id did not strictly increase: first=%d second=%d", firstID, secondID)
	}
}

func TestStaleProcessingResultIsDiscardedAfterCancel(t *testing.T) {
	rec := &fakeRecorder{sampleRate: 16000, samples: samples(1000)}
	deps := testDeps(t, rec)
	release := make(chan struct{})
	deps.Backends["local"] = blockingBackend{release: release, text: "too late"}
	c := New(deps)

	c.Toggle(context.Background(), config.EphemeralOverrides{})
	stopStatus := c.Toggle(context.Background(), config.EphemeralOverrides{}) // -> Transcribing, blocked in the backend call
	if stopStatus.Stage != StateTranscribing.String() {
		t.Fatalf("Stage right after stop = %q, want %q", stopStatus.Stage, StateTranscribing.String())
	}

	status := c.Cancel()
	if status.Stage != StateCancelled.String() {
		t.Fatalf("Stage = %q, want %q", status.Stage, StateCancelled.String())
	}

	// unblock the stale pipeline now that session_id has already advanced;
	// its eventual result must be discarded rather than overwrite Cancelled.
	close(release)
	time.Sleep(100 * time.Millisecond)
	final := c.Status()
	if final.Stage != StateCancelled.String() && final.Stage != StateIdle.String() {
		t.Errorf("a stale background result overwrote Cancelled: stage = %q", final.Stage)
	}
	if final.LastTextAvailable {
		t.Error("a stale background result should not have populated LastText")
	}
}

func TestHistoryEntryWrittenOnSuccess(t *testing.T) {
	rec := &fakeRecorder{sampleRate: 16000, samples: samples(1000)}
	deps := testDeps(t, rec)
	c := New(deps)

	c.Toggle(context.Background(), config.EphemeralOverrides{})
	c.Toggle(context.Background(), config.EphemeralOverrides{})
	waitForState(t, c, StateSuccess, time.Second)

	hist, err := deps.History.Load()
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(hist.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(hist.Entries))
	}
	if hist.Entries[0].Stage != "done" {
		t.Errorf("Entries[0].Stage = %q, want done", hist.Entries[0].Stage)
	}
}

var _ engine.Inserter = (*insert.Inserter)(nil)
