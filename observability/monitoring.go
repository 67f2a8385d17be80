package observability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// RoomStats is the read-only view of the room exposed by the debug server.
type RoomStats interface {
	Size() int
}

// RoomSnapshot is the /room payload.
type RoomSnapshot struct {
	Participants int    `json:"participants"`
	At           string `json:"at"`
}

// DebugServer exposes Prometheus metrics and a health check over HTTP.
// It runs as a supervised worker.
type DebugServer struct {
	log    *slog.Logger
	server *http.Server
}

func NewDebugServer(log *slog.Logger, address string, gatherer prometheus.Gatherer, room RoomStats) *DebugServer {
	return &DebugServer{
		log: log,
		server: &http.Server{
			Addr:              address,
			Handler:           newRouter(gatherer, room),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func newRouter(gatherer prometheus.Gatherer, room RoomStats) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/room", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RoomSnapshot{
			Participants: room.Size(),
			At:           time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// Handler returns the router, mostly for tests.
func (d *DebugServer) Handler() http.Handler {
	return d.server.Handler
}

func (d *DebugServer) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		d.log.Info("Starting debug server", "address", d.server.Addr)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		d.log.Info("Stopping debug server")
		return d.server.Shutdown(shutdownCtx)
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}
