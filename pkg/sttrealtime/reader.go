package sttrealtime

import (
	"context"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// runReader pumps inbound JSON text frames off the connection and forwards
// them to the session loop. It exits, reporting the terminal read error,
// the moment the connection is closed from either side — by us (writer
// teardown / Shutdown) or by the server.
func runReader(ctx context.Context, conn *websocket.Conn, out chan<- inboundFrame, readErr chan<- error) {
	for {
		var frame inboundFrame
		err := wsjson.Read(ctx, conn, &frame)
		if err != nil {
			select {
			case readErr <- err:
			case <-ctx.Done():
			}
			return
		}

		select {
		case out <- frame:
		case <-ctx.Done():
			return
		}
	}
}
