// Package sttrealtime maintains a bounded-lifetime websocket streaming STT
// session: a writer task, a reader task, and a session loop that owns all
// mutable state, connected by bounded channels.
package sttrealtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/Clouder0/voicewin/pkg/session"
)

const (
	ctrlChanCapacity   = 32
	audioChanCapacity  = 256
	eventsChanCapacity = 64
	cmdChanCapacity    = 64

	defaultConnectTimeout = 10 * time.Second
)

// ErrConnectTimeout is returned by Open when the handshake does not
// complete within the connect timeout.
var ErrConnectTimeout = errors.New("sttrealtime: connect timeout")

// errSessionClosed is used to resolve a pending Finalize when the session
// tears down (cancellation or Shutdown) while it was waiting.
var errSessionClosed = errors.New("realtime session closed")

// errInfo is the session's fatal_error slot.
type errInfo struct {
	errType string
	message string
}

func (e *errInfo) asErr() error {
	return fmt.Errorf("realtime error (%s): %s", e.errType, e.message)
}

// Handle is a live realtime STT session. All methods are safe to call
// concurrently; the underlying state lives entirely in the session loop
// goroutine and is reached only through the command channel.
type Handle struct {
	cmdCh    chan any
	ctrlCh   chan []byte
	audioCh  chan []byte
	eventsCh chan Event
	doneCh   chan struct{}
	cancel   context.CancelFunc

	closeOnce sync.Once

	// cmdDrops counts AudioChunk calls dropped because cmdCh itself was
	// saturated, i.e. before the chunk ever reached the session loop's own
	// audioCh try_send. It is incremented from the producer goroutine and
	// folded into the loop's single `dropped` counter every iteration, so
	// dropped_chunks and its Warning thresholds account for drops at either
	// queue, not just the audio channel.
	cmdDrops atomic.Uint64
}

// Open dials the realtime endpoint and starts the writer, reader and
// session-loop tasks. apiKey is sent as the xi-api-key handshake header.
func Open(ctx context.Context, apiKey string, opts Options, connectTimeout time.Duration, logger session.Logger) (*Handle, error) {
	conn, err := dial(ctx, BuildURL(opts), apiKey, connectTimeout)
	if err != nil {
		return nil, err
	}
	return newHandle(ctx, conn, DefaultFinalizeConfig(opts), sampleRateFromFormat(opts.AudioFormat), logger), nil
}

// dial is split out from Open so tests can point it at an httptest server
// URL that BuildURL cannot express.
func dial(ctx context.Context, wsURL, apiKey string, connectTimeout time.Duration) (*websocket.Conn, error) {
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, connectTimeout)
	defer cancelDial()

	conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"xi-api-key": []string{apiKey}},
	})
	if err != nil {
		if dialCtx.Err() == context.DeadlineExceeded {
			return nil, ErrConnectTimeout
		}
		return nil, fmt.Errorf("sttrealtime: dial: %w", err)
	}
	return conn, nil
}

// newHandle wraps an already-established connection and starts its tasks.
func newHandle(ctx context.Context, conn *websocket.Conn, finalizeCfg FinalizeConfig, sampleRate int, logger session.Logger) *Handle {
	if logger == nil {
		logger = session.NoOpLogger{}
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cmdCh:    make(chan any, cmdChanCapacity),
		ctrlCh:   make(chan []byte, ctrlChanCapacity),
		audioCh:  make(chan []byte, audioChanCapacity),
		eventsCh: make(chan Event, eventsChanCapacity),
		doneCh:   make(chan struct{}),
		cancel:   cancel,
	}

	go h.run(sessionCtx, conn, finalizeCfg, sampleRate, logger)
	return h
}

// Events returns the channel of outbound notifications. It is closed when
// the session ends.
func (h *Handle) Events() <-chan Event { return h.eventsCh }

// AudioChunk enqueues one PCM-s16le chunk for encoding and transmission.
// Non-blocking: if the command queue is saturated the chunk is dropped and
// counted in cmdDrops, folded into the same dropped_chunks counter and
// Warning thresholds as an audio-channel drop, since from the caller's
// perspective both mean "this chunk never reached the wire".
func (h *Handle) AudioChunk(pcm []byte, commit bool, sampleRate int, previousText string) {
	select {
	case h.cmdCh <- audioChunkCmd{pcm: pcm, commit: commit, sampleRate: sampleRate, previousText: previousText}:
	default:
		h.cmdDrops.Add(1)
	}
}

// Finalize requests the bounded finalize sequence and blocks until it
// resolves or ctx is cancelled.
func (h *Handle) Finalize(ctx context.Context) (string, error) {
	respondTo := make(chan finalizeResult, 1)
	select {
	case h.cmdCh <- finalizeCmd{respondTo: respondTo}:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-h.doneCh:
		return "", errSessionClosed
	}

	select {
	case res := <-respondTo:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-h.doneCh:
		return "", errSessionClosed
	}
}

// Shutdown tears the session down: the writer drains its queues and sends
// a Close frame before the tasks exit. Safe to call more than once and
// safe to call after the session has already ended on its own.
func (h *Handle) Shutdown() {
	h.closeOnce.Do(func() {
		select {
		case h.cmdCh <- shutdownCmd{}:
		case <-h.doneCh:
		default:
			// cmd queue saturated: fall back to context cancellation, which
			// the session loop also treats as a teardown request.
			h.cancel()
		}
	})
}

// Done is closed once the session loop has exited and Events() will yield
// no further values.
func (h *Handle) Done() <-chan struct{} { return h.doneCh }

func sampleRateFromFormat(f AudioFormat) int {
	switch f {
	case Format8000:
		return 8000
	case Format22050:
		return 22050
	case Format24000:
		return 24000
	case Format44100:
		return 44100
	case Format48000:
		return 48000
	default:
		return 16000
	}
}

func (h *Handle) run(ctx context.Context, conn *websocket.Conn, finalizeCfg FinalizeConfig, sampleRate int, logger session.Logger) {
	defer close(h.doneCh)
	defer close(h.eventsCh)
	defer h.cancel()

	inboundCh := make(chan inboundFrame, eventsChanCapacity)
	readErrCh := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); runWriter(ctx, conn, h.ctrlCh, h.audioCh) }()
	go func() { defer wg.Done(); runReader(ctx, conn, inboundCh, readErrCh) }()
	defer wg.Wait()

	var committed, partial string
	var fatal *errInfo
	var dropped uint64
	var pf *pendingFinalize

	// recordDrop folds n newly observed drops into the single dropped
	// counter and emits a Warning at each threshold, regardless of which
	// queue (cmdCh or audioCh) the chunk was lost at.
	recordDrop := func(n uint64, reason string) {
		for i := uint64(0); i < n; i++ {
			dropped++
			if dropWarnThreshold(dropped) {
				h.emit(Event{Type: EventWarning, DroppedChunks: dropped, Warning: reason})
			}
		}
	}
	syncCmdDrops := func() {
		if n := h.cmdDrops.Swap(0); n > 0 {
			recordDrop(n, "command channel saturated, dropping chunk")
		}
	}

	teardown := func(reason error) {
		if pf != nil {
			text := join(committed, partial)
			if text != "" {
				h.resolveFinalize(pf, text, nil)
			} else {
				h.resolveFinalize(pf, "", reason)
			}
			pf = nil
		}
		closeOutbound(h.ctrlCh, h.audioCh)
	}

	for {
		// ctx.Done() and readErrCh can become ready in the same instant
		// during a Shutdown-triggered teardown (cancel closes ctx while the
		// reader goroutine is also reporting the resulting connection
		// close as a read error); select would pick between them at
		// random, so check ctx first to make the lenient teardown path
		// win the tie instead of the hard-error path.
		if ctx.Err() != nil {
			teardown(errSessionClosed)
			return
		}
		syncCmdDrops()

		var deadlineC, fastPathC, settleC <-chan time.Time
		if pf != nil {
			deadlineC = pf.deadline.C
			if pf.fastPath != nil {
				fastPathC = pf.fastPath.C
			}
			if pf.settle != nil {
				settleC = pf.settle.C
			}
		}

		select {
		case <-ctx.Done():
			teardown(errSessionClosed)
			return

		case err := <-readErrCh:
			fatal = &errInfo{errType: "network_error", message: err.Error()}
			h.emit(Event{Type: EventError, ErrorType: fatal.errType, Message: fatal.message})
			if pf != nil {
				h.resolveFinalize(pf, "", fatal.asErr())
				pf = nil
			}
			closeOutbound(h.ctrlCh, h.audioCh)
			return

		case frame := <-inboundCh:
			switch {
			case frame.MessageType == msgSessionStarted:
				h.emit(Event{Type: EventSessionStarted, SessionID: frame.SessionID})

			case frame.MessageType == msgPartialTranscript:
				partial = frame.Text
				h.emit(Event{Type: EventLiveText, Committed: committed, Partial: partial})
				if pf != nil {
					pf.onUpdate(false)
				}

			case frame.MessageType == msgCommittedTranscript || frame.MessageType == msgCommittedTranscriptWithTimestamps:
				committed = appendCommitted(committed, frame.Text)
				partial = ""
				h.emit(Event{Type: EventLiveText, Committed: committed, Partial: partial})
				if pf != nil {
					pf.onUpdate(true)
				}

			case frame.MessageType == msgPing:
				if !trySend(h.ctrlCh, marshalOrNil(newPongFrame())) {
					fatal = &errInfo{errType: "network_error", message: "ctrl channel saturated responding to ping"}
					h.emit(Event{Type: EventError, ErrorType: fatal.errType, Message: fatal.message})
					if pf != nil {
						h.resolveFinalize(pf, "", fatal.asErr())
						pf = nil
					}
					closeOutbound(h.ctrlCh, h.audioCh)
					return
				}

			case errorFamily[frame.MessageType]:
				fatal = &errInfo{errType: frame.MessageType, message: frame.Message}
				h.emit(Event{Type: EventError, ErrorType: fatal.errType, Message: fatal.message})
				if pf != nil {
					h.resolveFinalize(pf, "", fatal.asErr())
					pf = nil
				}
				// Fatal is sticky but does not tear the loop down: a later
				// Finalize call (the controller's normal Stop-time ordering,
				// since the error can arrive mid-Recording) must still
				// resolve with fatal.asErr() rather than "session closed".
				// The loop keeps serving Finalize/Shutdown until the
				// controller explicitly shuts it down or the connection
				// itself fails.

			default:
				logger.Debug("sttrealtime: ignoring unknown message type", "message_type", frame.MessageType)
			}

		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case audioChunkCmd:
				if c.sampleRate > 0 {
					sampleRate = c.sampleRate
				}
				frame := outboundAudioChunk{
					MessageType:  msgInputAudioChunk,
					AudioBase64:  base64.StdEncoding.EncodeToString(c.pcm),
					Commit:       c.commit,
					SampleRate:   sampleRate,
					PreviousText: c.previousText,
				}
				if !trySend(h.audioCh, marshalOrNil(frame)) {
					recordDrop(1, "audio channel saturated, dropping chunk")
				}

			case finalizeCmd:
				if pf != nil {
					c.respondTo <- finalizeResult{err: errors.New("finalize already in progress")}
					continue
				}
				if fatal != nil {
					c.respondTo <- finalizeResult{err: fatal.asErr()}
					continue
				}
				trySend(h.ctrlCh, marshalOrNil(silenceChunkFrame(sampleRate)))
				pf = newPendingFinalize(c.respondTo, finalizeCfg, partial != "")

			case shutdownCmd:
				teardown(errSessionClosed)
				return
			}

		case <-deadlineC:
			h.resolveFinalize(pf, join(committed, partial), nil)
			pf = nil

		case <-fastPathC:
			pf.fastPath = nil
			if !pf.sawUpdateSincePost && !pf.hadPartialAtOpen {
				if text := join(committed, partial); text != "" {
					h.resolveFinalize(pf, text, nil)
					pf = nil
				}
			}

		case <-settleC:
			h.resolveFinalize(pf, join(committed, partial), nil)
			pf = nil
		}
	}
}

func (h *Handle) resolveFinalize(pf *pendingFinalize, text string, err error) {
	pf.stopTimers()
	select {
	case pf.respondTo <- finalizeResult{text: text, err: err}:
	default:
	}
}

func (h *Handle) emit(ev Event) {
	select {
	case h.eventsCh <- ev:
	default:
	}
}

// appendCommitted joins newText onto committed with a single separating
// space.
func appendCommitted(committed, newText string) string {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return committed
	}
	if committed == "" {
		return newText
	}
	return committed + " " + newText
}

// silenceChunkFrame builds the duration_ms=120 committed silence buffer
// sent to flush a pending finalize.
func silenceChunkFrame(sampleRate int) outboundAudioChunk {
	const durationMs = 120
	samples := sampleRate * durationMs / 1000
	silence := make([]byte, samples*2) // 16-bit mono, already zeroed
	return outboundAudioChunk{
		MessageType: msgInputAudioChunk,
		AudioBase64: base64.StdEncoding.EncodeToString(silence),
		Commit:      true,
		SampleRate:  sampleRate,
	}
}

func marshalOrNil(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func trySend(ch chan []byte, data []byte) bool {
	if data == nil {
		return false
	}
	select {
	case ch <- data:
		return true
	default:
		return false
	}
}

func closeOutbound(ctrlCh, audioCh chan []byte) {
	defer func() { recover() }()
	close(ctrlCh)
	close(audioCh)
}
