package workers

import (
	"chat-relay/contract"
	"chat-relay/observability"
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

const acceptBackoff = 50 * time.Millisecond

// SessionFactory turns an accepted connection into a session ready to Run.
type SessionFactory func(conn net.Conn) contract.Session

// ListenerWorker accepts connections on a bound listener and runs one
// session per connection in its own goroutine.
type ListenerWorker struct {
	listener   net.Listener
	newSession SessionFactory
	log        *slog.Logger
	metrics    *observability.Metrics
	sessions   sync.WaitGroup
}

func NewListenerWorker(listener net.Listener, newSession SessionFactory,
	log *slog.Logger, metrics *observability.Metrics) *ListenerWorker {
	return &ListenerWorker{
		listener:   listener,
		newSession: newSession,
		log:        log.With("address", listener.Addr().String()),
		metrics:    metrics,
	}
}

// Run accepts until ctx is canceled or the listener is closed, then waits
// for the running sessions. Accept errors on a live listener are retried.
func (w *ListenerWorker) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = w.listener.Close() })
	defer stop()
	defer w.sessions.Wait()

	w.log.Info("Accepting connections")
	for {
		conn, err := w.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				w.log.Info("Listener closed, waiting for sessions")
				return nil
			}
			w.metrics.AcceptErrors.Inc()
			w.log.Warn("Accept failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(acceptBackoff):
			}
			continue
		}

		session := w.newSession(conn)
		w.log.Debug("Connection accepted", "remote", conn.RemoteAddr().String(), "session_id", session.ID())
		w.sessions.Add(1)
		go func() {
			defer w.sessions.Done()
			if err := session.Run(ctx); err != nil {
				w.log.Debug("Session ended with error", "session_id", session.ID(), "error", err)
			}
		}()
	}
}
