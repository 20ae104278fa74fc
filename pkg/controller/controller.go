package controller

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Clouder0/voicewin/pkg/audio"
	"github.com/Clouder0/voicewin/pkg/config"
	"github.com/Clouder0/voicewin/pkg/engine"
	"github.com/Clouder0/voicewin/pkg/platform"
	"github.com/Clouder0/voicewin/pkg/session"
	"github.com/Clouder0/voicewin/pkg/sttbatch"
	"github.com/Clouder0/voicewin/pkg/sttrealtime"
)

// Recorder is the microphone surface the controller drives. *audio.Recorder
// satisfies it in production; tests supply a fake so the state machine can
// be exercised without a real capture device.
type Recorder interface {
	Start()
	Stop() ([]float32, error)
	SetLevelCallback(audio.LevelFunc)
	SampleRate() int
}

// Deps bundles every collaborator the controller needs beyond what
// SessionEngine already wraps: the microphone, the history log, and the
// realtime-STT wiring.
type Deps struct {
	Defaults config.GlobalDefaults
	Profiles []config.PowerModeProfile
	Prompts  []config.PromptTemplate

	ContextProvider platform.AppContextProvider
	Backends        map[string]sttbatch.Backend
	Enhancer        engine.Enhancer
	LlmAPIKey       string
	Inserter        engine.Inserter
	Logger          session.Logger

	Recorder        Recorder
	History         *config.HistoryStore
	RealtimeOptions sttrealtime.Options
	SttCloudAPIKey  string
}

// Controller is the single top-level dictation state machine. One instance
// owns the microphone and enforces at-most-one in-flight session.
type Controller struct {
	mu sync.Mutex

	state             State
	sessionID         uint64
	startedAt         time.Time
	statusMsg         statusMessage
	lastText          string
	lastTextAvailable bool
	ephemeral         config.EphemeralOverrides
	appIdentity       config.AppIdentity

	cancelRecording  context.CancelFunc
	processingCancel context.CancelFunc
	realtimeHandle   *sttrealtime.Handle

	levels *levelTracker

	deps   Deps
	logger session.Logger

	overlayCh chan SessionStatusPayload
	globalCh  chan SessionStatusPayload
	micCh     chan MicLevel
}

// New builds a Controller in Idle state. The recorder must already be open
// (OpenDefault) before Toggle is first called.
func New(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = session.NoOpLogger{}
	}
	return &Controller{
		deps:      deps,
		logger:    logger,
		overlayCh: make(chan SessionStatusPayload, 8),
		globalCh:  make(chan SessionStatusPayload, 8),
		micCh:     make(chan MicLevel, 16),
	}
}

// OverlayStatus is the status feed dedicated to the UI overlay.
func (c *Controller) OverlayStatus() <-chan SessionStatusPayload { return c.overlayCh }

// GlobalStatus is the status feed any other subscriber (tray icon, log) can
// listen on; pushed alongside OverlayStatus on every change so a late
// subscriber to either never misses the first stage of a running session.
func (c *Controller) GlobalStatus() <-chan SessionStatusPayload { return c.globalCh }

// MicLevels streams throttled RMS/peak levels while recording.
func (c *Controller) MicLevels() <-chan MicLevel { return c.micCh }

// Status returns the current payload without waiting on a channel.
func (c *Controller) Status() SessionStatusPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buildStatus()
}

// Toggle is the hotkey entry point: start recording from a terminal state,
// stop from Recording, or set a transient busy status otherwise.
func (c *Controller) Toggle(ctx context.Context, ephemeral config.EphemeralOverrides) SessionStatusPayload {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case StateIdle, StateSuccess, StateError, StateCancelled:
		return c.start(ctx, ephemeral)
	case StateRecording:
		return c.stop()
	default:
		c.setStatusMessage(session.ErrBusy.Error(), busyStatusTTL)
		return c.Status()
	}
}

// Cancel aborts whatever is in flight.
func (c *Controller) Cancel() SessionStatusPayload {
	c.mu.Lock()
	state := c.state
	handle := c.realtimeHandle
	cancelWatchdog := c.cancelRecording
	procCancel := c.processingCancel
	c.mu.Unlock()

	switch state {
	case StateRecording:
		c.mu.Lock()
		c.sessionID++
		sid := c.sessionID
		c.state = StateCancelled
		c.realtimeHandle = nil
		c.mu.Unlock()

		if handle != nil {
			handle.Shutdown()
		}
		if cancelWatchdog != nil {
			cancelWatchdog()
		}
		c.deps.Recorder.SetLevelCallback(nil)
		_, _ = c.deps.Recorder.Stop()

		c.publish()
		c.scheduleReturnToIdle(sid, cancelHideDelay)
		return c.Status()

	case StateFinalizing, StateTranscribing, StateEnhancing, StateInserting:
		if procCancel != nil {
			procCancel()
		}
		c.mu.Lock()
		c.sessionID++
		sid := c.sessionID
		c.state = StateCancelled
		c.mu.Unlock()

		c.publish()
		c.scheduleReturnToIdle(sid, cancelHideDelay)
		return c.Status()

	default:
		c.setStatusMessage(session.ErrNotRecording.Error(), busyStatusTTL)
		return c.Status()
	}
}

func (c *Controller) start(ctx context.Context, ephemeral config.EphemeralOverrides) SessionStatusPayload {
	c.mu.Lock()
	c.sessionID++
	sid := c.sessionID
	c.state = StateRecording
	c.startedAt = time.Now()
	c.statusMsg = statusMessage{}
	c.lastText = ""
	c.lastTextAvailable = false
	c.ephemeral = ephemeral
	c.mu.Unlock()
	c.publish()

	app, err := c.deps.ContextProvider.ForegroundApp(ctx)
	if err != nil {
		app = config.AppIdentity{}
	}
	c.mu.Lock()
	c.appIdentity = app
	c.mu.Unlock()
	effective := config.ResolveEffectiveConfig(c.deps.Defaults, c.deps.Profiles, app, ephemeral)

	watchdogCtx, cancelWatchdog := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancelRecording = cancelWatchdog
	c.mu.Unlock()

	c.levels = &levelTracker{}
	c.deps.Recorder.Start()

	var handle *sttrealtime.Handle
	if wantsRealtime(effective, c.deps.SttCloudAPIKey) {
		h, openErr := sttrealtime.Open(context.Background(), c.deps.SttCloudAPIKey, c.deps.RealtimeOptions, 0, c.logger)
		if openErr != nil {
			c.logger.Warn("realtime stt startup failed, continuing in batch mode", "err", openErr)
		} else {
			handle = h
		}
	}
	c.mu.Lock()
	c.realtimeHandle = handle
	c.mu.Unlock()

	c.deps.Recorder.SetLevelCallback(c.captureCallback(sid, handle))

	eg, egCtx := errgroup.WithContext(watchdogCtx)
	eg.Go(func() error { return c.watchdog(egCtx, sid) })
	if handle != nil {
		eg.Go(func() error { return c.drainRealtimeEvents(sid, handle) })
	}
	go func() {
		if err := eg.Wait(); err != nil {
			c.logger.Debug("recording session background tasks ended", "session_id", sid, "err", err)
		}
	}()

	return c.Status()
}

func (c *Controller) stop() SessionStatusPayload {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return c.Status()
	}
	sid := c.sessionID
	handle := c.realtimeHandle
	c.realtimeHandle = nil
	ephemeral := c.ephemeral
	cancelWatchdog := c.cancelRecording
	if handle != nil {
		c.state = StateFinalizing
	} else {
		c.state = StateTranscribing
	}
	c.mu.Unlock()
	c.publish()

	if cancelWatchdog != nil {
		cancelWatchdog()
	}
	c.deps.Recorder.SetLevelCallback(nil)
	samples, err := c.deps.Recorder.Stop()

	if err != nil || len(samples) < minCapturedSamples {
		if handle != nil {
			handle.Shutdown()
		}
		c.finishWithError(sid, session.ErrNoAudioCaptured.Error())
		return c.Status()
	}

	clip := sttbatch.Clip{SampleRateHz: c.deps.Recorder.SampleRate(), Samples: samples}

	procCtx, procCancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.processingCancel = procCancel
	c.mu.Unlock()

	go c.processAfterStop(procCtx, sid, handle, clip, ephemeral)
	return c.Status()
}

// processAfterStop runs the realtime finalize (if any) and the SessionEngine
// pipeline, mapping engine stages back onto ControllerState and discarding
// the result if the session went stale (cancelled, or superseded by a new
// recording) while it was in flight.
func (c *Controller) processAfterStop(ctx context.Context, sid uint64, handle *sttrealtime.Handle, clip sttbatch.Clip, ephemeral config.EphemeralOverrides) {
	var transcriptOverride, realtimeWarning string

	if handle != nil {
		finalizeCtx, cancel := context.WithTimeout(ctx, finalizeTimeout(c.deps.RealtimeOptions))
		text, err := handle.Finalize(finalizeCtx)
		cancel()
		handle.Shutdown()
		switch {
		case err == nil && strings.TrimSpace(text) != "":
			transcriptOverride = text
		case err != nil:
			realtimeWarning = err.Error()
			c.logger.Warn("realtime finalize failed, falling back to batch stt", "session_id", sid, "err", err)
		}
	}

	hasOverride := transcriptOverride != ""
	stageHook := func(stage string) {
		if stage == engine.StageRecording {
			return
		}
		c.mu.Lock()
		if c.sessionID != sid {
			c.mu.Unlock()
			return
		}
		c.state = mapEngineStage(stage, hasOverride)
		c.mu.Unlock()
		c.publish()
	}

	result := engine.Run(ctx, c.engineDeps(), clip, ephemeral, transcriptOverride, stageHook)

	c.mu.Lock()
	stale := c.sessionID != sid
	c.mu.Unlock()
	if stale {
		return
	}
	c.finishSession(sid, result, realtimeWarning)
}

func (c *Controller) finishSession(sid uint64, result engine.SessionResult, realtimeWarning string) {
	warning := combineWarnings(realtimeWarning, result.Warning)

	c.mu.Lock()
	if c.sessionID != sid {
		c.mu.Unlock()
		return
	}
	c.lastText = result.FinalText
	c.lastTextAvailable = result.FinalText != ""

	var hideAfter time.Duration
	if result.Outcome == engine.OutcomeDone {
		c.state = StateSuccess
		if warning != "" {
			c.statusMsg = statusMessage{text: warning, expiresAt: time.Now().Add(warningResultTTL)}
			hideAfter = warningResultTTL
		} else {
			c.statusMsg = statusMessage{}
		}
	} else {
		c.state = StateError
		c.statusMsg = statusMessage{text: result.Error, expiresAt: time.Now().Add(errorResultTTL)}
		hideAfter = errorResultTTL
	}
	c.mu.Unlock()
	c.publish()

	c.recordHistory(result)

	if hideAfter > 0 {
		c.scheduleReturnToIdle(sid, hideAfter)
	}
}

func (c *Controller) finishWithError(sid uint64, message string) {
	c.mu.Lock()
	if c.sessionID != sid {
		c.mu.Unlock()
		return
	}
	c.state = StateError
	c.statusMsg = statusMessage{text: message, expiresAt: time.Now().Add(errorResultTTL)}
	c.mu.Unlock()
	c.publish()

	c.recordHistory(engine.SessionResult{Outcome: engine.OutcomeFailed, Error: message})
	c.scheduleReturnToIdle(sid, errorResultTTL)
}

// scheduleReturnToIdle models "hide the overlay" as letting a terminal state
// relax back to Idle once its TTL elapses, provided no new session started
// in the meantime; a real overlay would instead just stop rendering, but the
// controller has no rendered surface of its own.
func (c *Controller) scheduleReturnToIdle(sid uint64, delay time.Duration) {
	time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.sessionID != sid {
			c.mu.Unlock()
			return
		}
		switch c.state {
		case StateSuccess, StateError, StateCancelled:
			c.state = StateIdle
			c.statusMsg = statusMessage{}
		}
		c.mu.Unlock()
		c.publish()
	})
}

func (c *Controller) recordHistory(result engine.SessionResult) {
	if c.deps.History == nil {
		return
	}
	c.mu.Lock()
	app := c.appIdentity
	c.mu.Unlock()

	stage := "done"
	if result.Outcome != engine.OutcomeDone {
		stage = "failed"
	}
	entry := config.HistoryEntry{
		TimestampUnixMs: time.Now().UnixMilli(),
		AppProcessName:  app.ProcessName,
		AppExePath:      app.ExePath,
		AppWindowTitle:  app.WindowTitle,
		Text:            result.FinalText,
		Stage:           stage,
		Error:           result.Error,
	}
	if err := c.deps.History.Append(entry); err != nil {
		c.logger.Warn("failed to append history entry", "err", err)
	}
}

func (c *Controller) captureCallback(sid uint64, handle *sttrealtime.Handle) audio.LevelFunc {
	return func(samples []float32) {
		if lv, ok := c.levels.observe(samples); ok {
			c.emitMicLevel(lv)
		}
		if handle == nil {
			return
		}
		handle.AudioChunk(audio.EncodeS16LE(samples), false, c.deps.Recorder.SampleRate(), "")
		_ = sid // chunks are accepted regardless of session id; the handle is already scoped to this session
	}
}

func (c *Controller) watchdog(ctx context.Context, sid uint64) error {
	timer := time.NewTimer(MaxRecordingDuration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
		c.mu.Lock()
		stale := c.sessionID != sid || c.state != StateRecording
		c.mu.Unlock()
		if stale {
			return nil
		}
		c.logger.Warn("recording exceeded max duration, auto-stopping", "session_id", sid)
		c.stop()
		return nil
	}
}

// drainRealtimeEvents keeps the live-text preview and realtime warnings up
// to date for as long as the handle is open, including through Finalize
// (the handle keeps running its session loop while finalize is pending).
func (c *Controller) drainRealtimeEvents(sid uint64, handle *sttrealtime.Handle) error {
	for ev := range handle.Events() {
		switch ev.Type {
		case sttrealtime.EventLiveText:
			preview := strings.TrimSpace(ev.Committed + " " + ev.Partial)
			c.mu.Lock()
			if c.sessionID == sid {
				c.lastText = preview
				c.lastTextAvailable = preview != ""
			}
			c.mu.Unlock()

		case sttrealtime.EventWarning:
			c.logger.Warn("realtime warning", "session_id", sid, "message", ev.Warning, "dropped_chunks", ev.DroppedChunks)

		case sttrealtime.EventError:
			c.logger.Warn("realtime error", "session_id", sid, "type", ev.ErrorType, "message", ev.Message)
		}
	}
	return nil
}

func (c *Controller) setStatusMessage(text string, ttl time.Duration) {
	c.mu.Lock()
	c.statusMsg = statusMessage{text: text, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) publish() {
	c.mu.Lock()
	p := c.buildStatus()
	c.mu.Unlock()
	trySendStatus(c.overlayCh, p)
	trySendStatus(c.globalCh, p)
}

// buildStatus assumes the caller already holds c.mu, and prunes an expired
// status message before rendering.
func (c *Controller) buildStatus() SessionStatusPayload {
	now := time.Now()
	if c.statusMsg.expired(now) {
		c.statusMsg = statusMessage{}
	}

	p := SessionStatusPayload{
		Stage:             c.state.String(),
		StageLabel:        c.state.stageLabel(),
		IsRecording:       c.state == StateRecording,
		Error:             c.statusMsg.text,
		LastTextPreview:   preview(c.lastText),
		LastTextAvailable: c.lastTextAvailable,
	}
	if c.state == StateRecording && !c.startedAt.IsZero() {
		ms := now.Sub(c.startedAt).Milliseconds()
		p.ElapsedMs = &ms
	}
	return p
}

func (c *Controller) emitMicLevel(lv MicLevel) {
	select {
	case c.micCh <- lv:
	default:
	}
}

func (c *Controller) engineDeps() engine.Deps {
	return engine.Deps{
		Defaults:        c.deps.Defaults,
		Profiles:        c.deps.Profiles,
		Prompts:         c.deps.Prompts,
		ContextProvider: c.deps.ContextProvider,
		Backends:        c.deps.Backends,
		Enhancer:        c.deps.Enhancer,
		LlmAPIKey:       c.deps.LlmAPIKey,
		Inserter:        c.deps.Inserter,
		Logger:          c.logger,
	}
}

func trySendStatus(ch chan SessionStatusPayload, p SessionStatusPayload) {
	select {
	case ch <- p:
		return
	default:
	}
	// channel full: drop the oldest queued status so the freshest one always
	// lands, rather than blocking the publisher on a slow subscriber.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- p:
	default:
	}
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewRuneLimit {
		return s
	}
	return string(r[:previewRuneLimit]) + "..."
}

func combineWarnings(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}

func mapEngineStage(stage string, hasOverride bool) State {
	switch stage {
	case engine.StageTranscribing:
		if hasOverride {
			return StateFinalizing
		}
		return StateTranscribing
	case engine.StageEnhancing:
		return StateEnhancing
	case engine.StageInserting:
		return StateInserting
	default:
		return StateTranscribing
	}
}

func wantsRealtime(effective config.EffectiveConfig, apiKey string) bool {
	return effective.SttProvider == "cloud" && apiKey != "" && strings.HasSuffix(effective.SttModel, "_realtime")
}

func finalizeTimeout(opts sttrealtime.Options) time.Duration {
	return sttrealtime.DefaultFinalizeConfig(opts).Deadline + time.Second
}
