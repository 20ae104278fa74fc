package sttrealtime

import (
	"context"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 3 * time.Second

// runWriter multiplexes the priority ctrl channel and the bulkier audio
// channel onto the websocket connection. ctrl is always checked first so
// pongs and the finalize flush chunk are never starved by audio backlog.
// Closing ctrl and audio (the session loop tearing down) drains whatever
// remains before a Close frame is sent. A write that exceeds writeTimeout
// is treated as a dead connection and also ends the task with a Close
// frame.
func runWriter(ctx context.Context, conn *websocket.Conn, ctrlCh, audioCh <-chan []byte) {
	ctrl, audio := ctrlCh, audioCh

	for ctrl != nil || audio != nil {
		select {
		case msg, ok := <-ctrl:
			if !ok {
				ctrl = nil
				continue
			}
			if !writeFrame(ctx, conn, msg) {
				return
			}
			continue
		default:
		}

		select {
		case msg, ok := <-ctrl:
			if !ok {
				ctrl = nil
				continue
			}
			if !writeFrame(ctx, conn, msg) {
				return
			}
		case msg, ok := <-audio:
			if !ok {
				audio = nil
				continue
			}
			if !writeFrame(ctx, conn, msg) {
				return
			}
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

// writeFrame sends msg with a bounded timeout. Returns false if the write
// failed or timed out, in which case the connection has already been
// closed and the writer must exit.
func writeFrame(ctx context.Context, conn *websocket.Conn, msg []byte) bool {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, msg); err != nil {
		conn.Close(websocket.StatusPolicyViolation, "write timeout or failure")
		return false
	}
	return true
}
