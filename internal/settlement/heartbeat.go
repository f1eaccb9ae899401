package settlement

import (
	"context"
	"time"

	"github.com/arkwallet/client-core/pkg/logging"
)

// heartbeat pings the Server once a second to keep a registration alive.
// Exactly one heartbeat runs at a time: every state transition stops the
// previous one before the next state starts its own (or none, for
// terminal states).
type heartbeat struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startHeartbeat(ctx context.Context, requestID string, ping func(ctx context.Context, requestID string) error, log *logging.Logger) *heartbeat {
	hbCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := ping(hbCtx, requestID); err != nil {
					log.Warn("heartbeat ping failed", "request_id", requestID, "error", err)
				}
			}
		}
	}()

	return &heartbeat{cancel: cancel, done: done}
}

func (h *heartbeat) stop() {
	if h == nil {
		return
	}
	h.cancel()
	<-h.done
}
