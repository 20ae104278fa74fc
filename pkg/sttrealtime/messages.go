package sttrealtime

// inboundFrame is the shape of every JSON text frame the server can send.
// Only the fields relevant to the frame's message_type are populated; the
// rest are left zero.
type inboundFrame struct {
	MessageType string `json:"message_type"`
	SessionID   string `json:"session_id,omitempty"`
	Text        string `json:"text,omitempty"`
	Message     string `json:"message,omitempty"`
}

const (
	msgSessionStarted                   = "session_started"
	msgPartialTranscript                = "partial_transcript"
	msgCommittedTranscript              = "committed_transcript"
	msgCommittedTranscriptWithTimestamps = "committed_transcript_with_timestamps"
	msgPing                             = "ping"
	msgPong                             = "pong"
	msgInputAudioChunk                  = "input_audio_chunk"
)

// errorFamily is the enumerated set of fatal inbound message types. Any
// message_type in this set carries an error, not a transcript.
var errorFamily = map[string]bool{
	"auth_error":                   true,
	"quota_exceeded":               true,
	"commit_throttled":             true,
	"unaccepted_terms":             true,
	"rate_limited":                 true,
	"queue_overflow":               true,
	"resource_exhausted":           true,
	"session_time_limit_exceeded":  true,
	"input_error":                  true,
	"chunk_size_exceeded":          true,
	"insufficient_audio_activity":  true,
	"transcriber_error":            true,
	"error":                        true,
}

// outboundAudioChunk is the wire frame for an AudioChunk command.
type outboundAudioChunk struct {
	MessageType  string `json:"message_type"`
	AudioBase64  string `json:"audio_base_64"`
	Commit       bool   `json:"commit"`
	SampleRate   int    `json:"sample_rate"`
	PreviousText string `json:"previous_text,omitempty"`
}

// outboundPong answers a server Ping, forwarded through the priority ctrl
// channel.
type outboundPong struct {
	MessageType string `json:"message_type"`
}

func newPongFrame() outboundPong {
	return outboundPong{MessageType: msgPong}
}
