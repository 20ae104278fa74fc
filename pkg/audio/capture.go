package audio

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Clouder0/voicewin/pkg/session"
	"github.com/gen2brain/malgo"
)

var (
	// ErrStopTimeout is returned when Stop does not receive the captured
	// buffer within stopTimeout.
	ErrStopTimeout = errors.New("audio: stop timed out")
	// ErrNotStarted reports that the recorder has no open device. No
	// Recorder method in this package returns it.
	ErrNotStarted = errors.New("audio: recorder not started")
	// ErrNoInputDevice is returned when no default capture device exists,
	// or a named device was requested and neither it nor a default device
	// could be found.
	ErrNoInputDevice = errors.New("audio: no input device available")
	// ErrWorkerTimeout is returned when the consumer worker does not
	// signal Ready/Error within workerReadyTimeout of Open.
	ErrWorkerTimeout = errors.New("audio: worker did not become ready in time")
	// ErrBuildStream is returned when the OS audio backend fails to build
	// the capture stream/device.
	ErrBuildStream = errors.New("audio: failed to build capture stream")
	// ErrPlayStream is returned when the OS audio backend fails to start
	// the capture stream after it was built.
	ErrPlayStream = errors.New("audio: failed to start capture stream")
)

const (
	stopTimeout         = 3 * time.Second
	commandPollInterval = 50 * time.Millisecond
	workerReadyTimeout  = 2 * time.Second
)

// LevelFunc receives each raw mono chunk as it arrives, regardless of
// whether a recording is currently in progress, so a caller can drive a
// live microphone-level meter.
type LevelFunc func(samples []float32)

type recorderCmd int

const (
	cmdStart recorderCmd = iota
	cmdStop
	cmdShutdown
	cmdCancel
)

type stopRequest struct {
	reply chan []float32
}

// Recorder owns a single capture device and buffers mono float32 samples
// between Start and Stop calls. A dedicated goroutine owns the malgo
// device and command channel; callers never touch device state directly.
type Recorder struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate int

	cmdCh  chan recorderCmd
	stopCh chan stopRequest
	doneCh chan struct{}

	levelMu sync.RWMutex
	onLevel LevelFunc
}

// OpenDefault opens the host's default capture device at its native sample
// rate and format. Equivalent to Open("", nil).
func OpenDefault() (*Recorder, error) {
	return Open("", nil)
}

// Open opens preferredDeviceName if given and present among the host's
// capture devices, else the default device, at whatever sample rate,
// sample format and channel count the device natively negotiates;
// malgo.DefaultDeviceConfig leaves these unset so miniaudio is free to pick
// them, and Open reads the negotiated values back off the device once it is
// built. Every captured chunk is converted to mono float32 using that real
// format before it reaches the recording buffer or the level callback. Open
// returns only after the consumer worker signals Ready, or fails within
// workerReadyTimeout.
//
// If preferredDeviceName is non-empty but does not match any enumerated
// capture device, Open falls back to the default device and logs a
// warning rather than failing the whole recording.
func Open(preferredDeviceName string, logger session.Logger) (*Recorder, error) {
	if logger == nil {
		logger = session.NoOpLogger{}
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, ErrNoInputDevice
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)

	if preferredDeviceName != "" {
		infos, enumErr := ctx.Devices(malgo.Capture)
		if enumErr != nil {
			ctx.Uninit()
			return nil, ErrNoInputDevice
		}
		found := false
		for _, info := range infos {
			if strings.EqualFold(strings.TrimSpace(info.Name()), strings.TrimSpace(preferredDeviceName)) {
				deviceConfig.Capture.DeviceID = info.ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			logger.Warn("requested capture device not found, falling back to default", "device", preferredDeviceName)
		}
	}

	r := &Recorder{
		ctx:    ctx,
		cmdCh:  make(chan recorderCmd, 8),
		stopCh: make(chan stopRequest, 1),
		doneCh: make(chan struct{}),
	}

	chunkCh := make(chan []float32, 64)

	// captureFormat/captureChannels are filled in below, after InitDevice
	// reports what the device actually negotiated, and before Start lets
	// onData observe them; no synchronization is needed for that handoff
	// since the callback cannot fire until Start is called.
	var captureFormat SampleFormat
	var captureChannels int

	onData := func(_, pInput []byte, _ uint32) {
		if len(pInput) == 0 {
			return
		}
		samples := ToFloat32Mono(pInput, captureFormat, captureChannels)
		select {
		case chunkCh <- samples:
		default:
			// drop the chunk rather than block the audio callback thread.
		}
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onData,
	})
	if err != nil {
		ctx.Uninit()
		return nil, ErrBuildStream
	}
	r.device = device

	captureFormat = malgoFormatToSampleFormat(device.CaptureFormat())
	captureChannels = int(device.CaptureChannels())
	if captureChannels < 1 {
		captureChannels = 1
	}
	r.sampleRate = int(device.SampleRate())
	logger.Info("capture device negotiated native format",
		"sample_rate", r.sampleRate, "format", device.CaptureFormat(), "channels", captureChannels)

	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		return nil, ErrPlayStream
	}

	readyCh := make(chan struct{})
	go r.run(chunkCh, readyCh)

	select {
	case <-readyCh:
		return r, nil
	case <-time.After(workerReadyTimeout):
		device.Uninit()
		ctx.Uninit()
		return nil, ErrWorkerTimeout
	}
}

// malgoFormatToSampleFormat maps a negotiated malgo.FormatType to this
// package's SampleFormat. miniaudio's capture formats are a narrower set
// than SampleFormat's full range (no unsigned 16/32-bit, no float64); an
// unrecognized or malgo.FormatUnknown value falls back to F32, matching
// miniaudio's own behavior of defaulting to floating point when a format
// cannot be determined.
func malgoFormatToSampleFormat(f malgo.FormatType) SampleFormat {
	switch f {
	case malgo.FormatU8:
		return SampleFormatU8
	case malgo.FormatS16:
		return SampleFormatI16
	case malgo.FormatS24:
		return SampleFormatS24
	case malgo.FormatS32:
		return SampleFormatI32
	case malgo.FormatF32:
		return SampleFormatF32
	default:
		return SampleFormatF32
	}
}

// SetLevelCallback installs (or clears, with nil) a callback invoked with
// every captured chunk, recording or not.
func (r *Recorder) SetLevelCallback(fn LevelFunc) {
	r.levelMu.Lock()
	r.onLevel = fn
	r.levelMu.Unlock()
}

// SampleRate returns the device's native capture rate.
func (r *Recorder) SampleRate() int {
	return r.sampleRate
}

// Start begins buffering captured audio. Safe to call repeatedly; each call
// resets the buffer.
func (r *Recorder) Start() {
	r.cmdCh <- cmdStart
}

// Stop stops buffering and returns everything captured since Start.
func (r *Recorder) Stop() ([]float32, error) {
	req := stopRequest{reply: make(chan []float32, 1)}
	select {
	case r.stopCh <- req:
	case <-time.After(stopTimeout):
		return nil, ErrStopTimeout
	}

	select {
	case samples := <-req.reply:
		return samples, nil
	case <-time.After(stopTimeout):
		return nil, ErrStopTimeout
	}
}

// CapturedClip is the accumulated session clip returned by StopCaptured,
// paired with the device's native sample rate.
type CapturedClip struct {
	SampleRateHz int
	Samples      []float32
}

// StopCaptured is Stop plus the device's native sample rate.
func (r *Recorder) StopCaptured() (CapturedClip, error) {
	samples, err := r.Stop()
	if err != nil {
		return CapturedClip{}, err
	}
	return CapturedClip{SampleRateHz: r.sampleRate, Samples: samples}, nil
}

// Cancel discards whatever has been accumulated since Start without
// returning it, and stops buffering. It never fails: a stuck
// worker just means the discard is delivered once it catches up, and the
// next Start resets the buffer anyway.
func (r *Recorder) Cancel() {
	select {
	case r.cmdCh <- cmdCancel:
	default:
	}
}

// Close stops the device and releases the malgo context. The recorder is
// unusable afterwards.
func (r *Recorder) Close() error {
	select {
	case r.cmdCh <- cmdShutdown:
	default:
	}
	<-r.doneCh

	if r.device != nil {
		r.device.Uninit()
	}
	r.ctx.Uninit()
	return nil
}

func (r *Recorder) run(chunkCh <-chan []float32, readyCh chan<- struct{}) {
	defer close(r.doneCh)

	recording := false
	var captured []float32
	close(readyCh)

	for {
		select {
		case cmd := <-r.cmdCh:
			switch cmd {
			case cmdStart:
				recording = true
				captured = captured[:0]
			case cmdCancel:
				recording = false
				captured = nil
			case cmdShutdown:
				return
			}
		case req := <-r.stopCh:
			recording = false
			out := captured
			captured = nil
			req.reply <- out
		case samples := <-chunkCh:
			r.levelMu.RLock()
			cb := r.onLevel
			r.levelMu.RUnlock()
			if cb != nil {
				cb(samples)
			}
			if recording {
				captured = append(captured, samples...)
			}
		case <-time.After(commandPollInterval):
		}
	}
}
