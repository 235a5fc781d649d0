package http

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"

	"github.com/bittu292021/chatbox/internal/metrics"
)

var errHeartbeatTimeout = errors.New("heartbeat timeout")

// heartbeat pings the peer every interval. A pong that does not arrive
// within timeout is treated as a dead connection.
type heartbeat struct {
	interval time.Duration
	timeout  time.Duration
}

// run blocks until ctx is done or a ping fails. Ping needs a concurrent
// reader on conn to observe the pong; the read loop provides it.
func (h heartbeat) run(ctx context.Context, conn *websocket.Conn) error {
	if h.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				metrics.HeartbeatTimeouts.Inc()
				return fmt.Errorf("%w: %v", errHeartbeatTimeout, err)
			}
		}
	}
}
