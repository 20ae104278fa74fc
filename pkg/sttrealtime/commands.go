package sttrealtime

// audioChunkCmd carries one PCM-s16le chunk into the session loop, which
// base64-encodes it and forwards it to the writer task.
type audioChunkCmd struct {
	pcm          []byte
	commit       bool
	sampleRate   int
	previousText string
}

// finalizeCmd requests the finalize state machine; the result is delivered
// on respondTo exactly once.
type finalizeCmd struct {
	respondTo chan finalizeResult
}

type finalizeResult struct {
	text string
	err  error
}

// shutdownCmd asks the session loop to tear the session down: stop
// accepting commands, close the outbound channels so the writer drains and
// sends a Close frame, then exit.
type shutdownCmd struct{}
