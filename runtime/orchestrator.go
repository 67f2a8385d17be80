// Package runtime handles room membership, fan-out and the supervised workers around them.
// It orchestrates the server without containing framing rules.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/runtime/workers"
	"chat-relay/session"
	"chat-relay/sink"
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Options are the server tunables, zero values disable the optional workers.
type Options struct {
	Session         session.Config
	StatsInterval   time.Duration
	MetricsAddr     string
	CensoredWords   []string
	CharReplacement rune
}

type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	options    Options
	registry   *prometheus.Registry
	metrics    *observability.Metrics
	room       *Room
	moderator  *moderation.Moderator
	logSink    *sink.LogSink
	supervisor contract.ISupervisor
}

func NewOrchestrator(log *slog.Logger, supervisor *workers.Supervisor, options Options) (*Orchestrator, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	moderator, err := moderation.NewModerator(options.CensoredWords, options.CharReplacement, log)
	if err != nil {
		return nil, fmt.Errorf("moderation setup failed: %w", err)
	}

	room := NewRoom(log, metrics)
	return &Orchestrator{
		log:        log,
		options:    options,
		registry:   registry,
		metrics:    metrics,
		room:       room,
		moderator:  moderator,
		logSink:    sink.NewLogSink(room, log),
		supervisor: supervisor,
	}, nil
}

func (o *Orchestrator) Room() *Room {
	return o.room
}

func (o *Orchestrator) Gatherer() prometheus.Gatherer {
	return o.registry
}

// Serve accepts connections on an already bound listener and blocks until
// ctx is canceled or Stop is called. Sessions are torn down before it returns.
func (o *Orchestrator) Serve(ctx context.Context, listener net.Listener) error {
	// 1. Preparation phase (No Lock)
	listenerWorker := workers.NewListenerWorker(listener, o.newSession, o.log, o.metrics)
	observers, err := o.prepareObservers()
	if err != nil {
		return err
	}

	// Broadcast bodies are only logged when debugging
	if o.log.Enabled(ctx, slog.LevelDebug) {
		if err := o.room.Join(o.logSink); err != nil {
			return err
		}
		defer o.room.Leave(o.logSink)
	}

	// 2. Critical Section (Short Lock)
	o.mu.Lock()
	o.supervisor.Add(listenerWorker)
	o.supervisor.Add(observers...)
	o.mu.Unlock()

	// 3. Execution phase (No Lock)
	o.log.Info("Starting orchestrator and all supervised workers", "address", listener.Addr().String())
	o.supervisor.Run(ctx)
	o.log.Info("Orchestrator stopped")
	return nil
}

// prepareObservers builds the optional stats reporter and debug server.
func (o *Orchestrator) prepareObservers() ([]contract.Worker, error) {
	var res []contract.Worker
	if o.options.StatsInterval > 0 {
		reporter, err := workers.NewStatsReporter(o.log, o.room, o.options.StatsInterval)
		if err != nil {
			return nil, fmt.Errorf("stats reporter setup failed: %w", err)
		}
		res = append(res, reporter)
	}
	if o.options.MetricsAddr != "" {
		res = append(res, observability.NewDebugServer(o.log, o.options.MetricsAddr, o.registry, o.room))
	}
	return res, nil
}

func (o *Orchestrator) newSession(conn net.Conn) contract.Session {
	return session.New(conn, o.room, o.moderator, o.options.Session, o.log, o.metrics)
}

// Stop cancels every worker, Serve returns once all sessions are closed.
func (o *Orchestrator) Stop() {
	o.log.Info("Stopping orchestrator")
	o.supervisor.Stop()
}
