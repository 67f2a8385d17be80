// Package session owns one client connection: an inbound read loop turning
// newline-delimited lines into frames, and a single writer draining the
// outbound queue so transmissions never interleave on the wire.
package session

import (
	"bufio"
	"chat-relay/contract"
	"chat-relay/domain"
	errs "chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/observability"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Spans go to the global tracer provider, a no-op until main installs one.
var tracer = otel.Tracer("chat-relay/session")

// Ensure *Session implements the contract.Session interface at compile time.
var _ contract.Session = (*Session)(nil)

type State int32

const (
	StateNew State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config holds the per-connection tunables. Zero timeouts disable deadlines.
// MaxLineLength bounds the bytes kept from one inbound line, never less than a
// frame body. The rest of the line is read and discarded.
type Config struct {
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxLineLength int
}

// Session is single use: New, Active, Closing, Closed.
// The room is a non-owning back reference, the connection is owned exclusively.
type Session struct {
	id        string
	conn      net.Conn
	reader    *bufio.Reader
	room      contract.IRoom
	moderator *moderation.Moderator
	config    Config
	log       *slog.Logger
	metrics   *observability.Metrics

	state atomic.Int32

	mu     sync.Mutex
	queue  []domain.Frame
	notify chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func New(conn net.Conn, room contract.IRoom, moderator *moderation.Moderator,
	config Config, log *slog.Logger, metrics *observability.Metrics) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		conn:      conn,
		reader:    bufio.NewReader(conn),
		room:      room,
		moderator: moderator,
		config:    config,
		log:       log.With("session_id", id, "remote", conn.RemoteAddr().String()),
		metrics:   metrics,
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

// Run joins the room, serves the connection until the peer leaves, a transport
// error happens on either direction, or ctx is canceled, then tears down.
// A clean end of stream or a cancellation returns nil.
func (s *Session) Run(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "relay.session",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("relay.session_id", s.id),
			attribute.String("relay.remote", s.conn.RemoteAddr().String()),
		))
	defer span.End()

	err := s.run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

func (s *Session) run(ctx context.Context) error {
	if err := s.start(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()

	err := s.readLoop(ctx)
	s.teardown()
	<-writerDone
	s.state.Store(int32(StateClosed))
	s.metrics.ActiveSessions.Dec()

	switch {
	case err == nil, errors.Is(err, io.EOF):
		s.log.Info("Connection closed by peer")
		return nil
	case ctx.Err() != nil:
		s.log.Info("Session stopped", "reason", ctx.Err())
		return nil
	case errors.Is(err, errs.ErrConnection):
		s.log.Warn("Session terminated", "error", err)
		return err
	default:
		s.log.Warn("Read error", "error", err)
		return fmt.Errorf("%w: %v", errs.ErrConnection, err)
	}
}

func (s *Session) start() error {
	if !s.state.CompareAndSwap(int32(StateNew), int32(StateActive)) {
		return errs.ErrSessionStarted
	}
	if err := s.room.Join(s); err != nil {
		s.state.Store(int32(StateClosed))
		_ = s.conn.Close()
		return err
	}
	s.metrics.ActiveSessions.Inc()
	s.log.Info("Session started")
	return nil
}

// Deliver hands an inbound frame to the room, the sender is excluded there.
func (s *Session) Deliver(frame domain.Frame) {
	delivered := s.room.Deliver(s, frame)
	s.log.Debug("Frame delivered", "recipients", delivered)
}

// Write enqueues a frame for transmission and wakes the writer.
// It never blocks on the transport.
func (s *Session) Write(frame domain.Frame) error {
	if s.State() != StateActive {
		s.metrics.FramesDropped.WithLabelValues(observability.ReasonClosed).Inc()
		return errs.ErrSessionClosed
	}
	s.mu.Lock()
	s.queue = append(s.queue, frame)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		if s.config.ReadTimeout > 0 {
			if err := s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
				return err
			}
		}
		line, size, err := s.readLine()
		if err != nil {
			return err
		}
		s.metrics.FramesReceived.Inc()
		s.log.Debug("Received", "bytes", size)

		if s.moderator.Enabled() {
			censored, _ := s.moderator.Censor(string(line))
			line = []byte(censored)
		}
		if size > domain.MaxBodyLength {
			s.log.Warn("Truncating inbound message", "bytes", size, "max", domain.MaxBodyLength)
			s.metrics.FramesTruncated.Inc()
		}
		s.broadcast(ctx, line)
	}
}

func (s *Session) broadcast(ctx context.Context, line []byte) {
	_, span := tracer.Start(ctx, "relay.broadcast",
		trace.WithAttributes(attribute.Int("relay.bytes", len(line))))
	defer span.End()

	s.Deliver(domain.Encode(line))
}

// readLine returns the retained head of one line without its trailing newline,
// and the full line size. A partial line at end of stream is discarded.
func (s *Session) readLine() ([]byte, int, error) {
	retain := max(s.config.MaxLineLength, domain.MaxBodyLength)
	var line []byte
	size := 0
	for {
		chunk, err := s.reader.ReadSlice('\n')
		if err == nil {
			chunk = chunk[:len(chunk)-1]
		}
		size += len(chunk)
		if keep := retain - len(line); keep > 0 {
			line = append(line, chunk[:min(keep, len(chunk))]...)
		}
		switch {
		case err == nil:
			return line, size, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return nil, 0, err
		}
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			s.abandon()
			return
		case <-s.notify:
		}
		for {
			select {
			case <-s.done:
				s.abandon()
				return
			default:
			}
			frame, ok := s.dequeue()
			if !ok {
				break
			}
			if err := s.transmit(frame); err != nil {
				if errors.Is(err, errs.ErrFraming) {
					s.log.Warn("Dropping frame with invalid header", "error", err)
					s.metrics.FramesDropped.WithLabelValues(observability.ReasonFraming).Inc()
					continue
				}
				s.log.Warn("Write error", "error", err)
				s.metrics.FramesDropped.WithLabelValues(observability.ReasonWrite).Inc()
				// Same terminal path as a read failure: the read loop fails next.
				_ = s.conn.Close()
				s.abandon()
				return
			}
		}
	}
}

func (s *Session) dequeue() (domain.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return domain.Frame{}, false
	}
	frame := s.queue[0]
	s.queue[0] = domain.Frame{}
	s.queue = s.queue[1:]
	return frame, true
}

// abandon discards frames still queued when the session goes down.
func (s *Session) abandon() {
	s.mu.Lock()
	pending := len(s.queue)
	s.queue = nil
	s.mu.Unlock()
	if pending > 0 {
		s.log.Debug("Abandoning queued frames", "frames", pending)
		s.metrics.FramesDropped.WithLabelValues(observability.ReasonClosed).Add(float64(pending))
	}
}

// transmit decodes the frame header and writes HEADER || BODY.
func (s *Session) transmit(frame domain.Frame) error {
	wire, err := frame.Bytes()
	if err != nil {
		return err
	}
	if s.config.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrWrite, err)
		}
	}
	n, err := s.conn.Write(wire)
	s.metrics.BytesSent.Add(float64(n))
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrWrite, err)
	}
	s.log.Debug("Frame written", "bytes", n)
	return nil
}

// teardown leaves the room first so no new frame is queued, then stops the writer
// and releases the connection.
func (s *Session) teardown() {
	s.room.Leave(s)
	s.state.Store(int32(StateClosing))
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
