package sink

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"log/slog"
	"sync/atomic"

	"github.com/abadojack/whatlanggo"
)

const LogSinkID = "log-sink"

// Ensure *LogSink implements the contract.Participant interface at compile time.
var _ contract.Participant = (*LogSink)(nil)

// LogSink is a room participant without transport.
// Every broadcast body is logged with its detected language.
type LogSink struct {
	room   contract.IRoom
	log    *slog.Logger
	frames atomic.Int64
}

func NewLogSink(room contract.IRoom, log *slog.Logger) *LogSink {
	return &LogSink{room: room, log: log.With("participant_id", LogSinkID)}
}

func (s *LogSink) ID() string { return LogSinkID }

// Deliver lets the server itself broadcast a notice to every session.
func (s *LogSink) Deliver(frame domain.Frame) {
	s.room.Deliver(s, frame)
}

// Write logs the frame body, it never touches a network.
func (s *LogSink) Write(frame domain.Frame) error {
	body, err := frame.Body()
	if err != nil {
		return err
	}
	s.frames.Add(1)
	info := whatlanggo.Detect(string(body))
	s.log.Info("Broadcast",
		"bytes", len(body),
		"lang", info.Lang.Iso6391(),
		"confidence", info.Confidence,
		"body", string(body))
	return nil
}

// Frames returns how many frames were logged so far.
func (s *LogSink) Frames() int64 {
	return s.frames.Load()
}
