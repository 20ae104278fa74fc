package sttrealtime

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// AudioFormat names one of the PCM sample rates the realtime endpoint
// accepts, encoded as "pcm_<rate>" query values.
type AudioFormat string

const (
	Format8000  AudioFormat = "pcm_8000"
	Format16000 AudioFormat = "pcm_16000"
	Format22050 AudioFormat = "pcm_22050"
	Format24000 AudioFormat = "pcm_24000"
	Format44100 AudioFormat = "pcm_44100"
	Format48000 AudioFormat = "pcm_48000"
)

// CommitStrategy selects whether the server auto-commits on VAD silence or
// waits for an explicit commit=true audio chunk.
type CommitStrategy string

const (
	CommitVAD    CommitStrategy = "vad"
	CommitManual CommitStrategy = "manual"
)

// VADParams configures server-side voice-activity detection, used only
// when CommitStrategy is CommitVAD.
type VADParams struct {
	// SilenceThresholdMs is seconds-of-silence before commit, in
	// milliseconds (formatted as a fractional-seconds string).
	SilenceThresholdMs int
	// ThresholdPerMille is the VAD sensitivity, 0..1000 representing 0..1
	// (formatted as a fractional string, e.g. 500 -> "0.5").
	ThresholdPerMille    int
	MinSpeechDurationMs  int
	MinSilenceDurationMs int
}

// Options configures a realtime session's websocket URL.
type Options struct {
	ModelID        string
	CommitStrategy CommitStrategy
	AudioFormat    AudioFormat
	LanguageCode   string
	VAD            VADParams
}

const defaultHost = "api.elevenlabs.io"

// BuildURL assembles the realtime websocket URL, using integer math to
// format every numeric query parameter so the resulting URL is
// byte-identical across platforms rather than depending on
// strconv.FormatFloat's platform/version-sensitive rounding.
func BuildURL(opts Options) string {
	q := url.Values{}
	q.Set("model_id", opts.ModelID)
	q.Set("commit_strategy", string(opts.CommitStrategy))
	q.Set("audio_format", string(opts.AudioFormat))
	q.Set("include_timestamps", "false")
	q.Set("include_language_detection", "false")
	if strings.TrimSpace(opts.LanguageCode) != "" {
		q.Set("language_code", opts.LanguageCode)
	}

	if opts.CommitStrategy == CommitVAD {
		q.Set("vad_silence_threshold_secs", formatMilliFraction(opts.VAD.SilenceThresholdMs))
		q.Set("vad_threshold", formatMilliFraction(opts.VAD.ThresholdPerMille))
		q.Set("min_speech_duration_ms", strconv.Itoa(opts.VAD.MinSpeechDurationMs))
		q.Set("min_silence_duration_ms", strconv.Itoa(opts.VAD.MinSilenceDurationMs))
	}

	u := url.URL{
		Scheme:   "wss",
		Host:     defaultHost,
		Path:     "/v1/speech-to-text/realtime",
		RawQuery: q.Encode(),
	}
	return u.String()
}

// formatMilliFraction renders value/1000 as a decimal string with trailing
// fractional zeros stripped, using only integer division/modulo — e.g.
// 600 -> "0.6", 400 -> "0.4", 1000 -> "1", 50 -> "0.05".
func formatMilliFraction(value int) string {
	whole := value / 1000
	frac := value % 1000
	if frac == 0 {
		return strconv.Itoa(whole)
	}
	fracStr := fmt.Sprintf("%03d", frac)
	fracStr = strings.TrimRight(fracStr, "0")
	return strconv.Itoa(whole) + "." + fracStr
}
