package runtime

import (
	"chat-relay/domain"
	errs "chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/observability"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestRoom() *Room {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewRoom(log, observability.NewMetrics(prometheus.NewRegistry()))
}

func newMockParticipant(ctrl *gomock.Controller) *mocks.MockParticipant {
	participant := mocks.NewMockParticipant(ctrl)
	participant.EXPECT().ID().Return(uuid.NewString()).AnyTimes()
	return participant
}

func TestRoom_Deliver_Fanout_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	room := newTestRoom()
	frame := domain.Encode([]byte("hello"))

	// Given four participants in the room
	sender := newMockParticipant(ctrl)
	req.NoError(room.Join(sender))
	for i := 0; i < 3; i++ {
		participant := newMockParticipant(ctrl)
		participant.EXPECT().Write(frame).Return(nil).Times(1)
		req.NoError(room.Join(participant))
	}

	// Then the sender never receives its own frame
	sender.EXPECT().Write(gomock.Any()).Times(0)

	// When the sender delivers a frame
	delivered := room.Deliver(sender, frame)

	// Then exactly N-1 writes happened
	req.Equal(3, delivered)
}

func TestRoom_Join_Twice_Fails(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	room := newTestRoom()
	participant := newMockParticipant(ctrl)

	// Given a participant already joined
	req.NoError(room.Join(participant))

	// When it joins again
	err := room.Join(participant)

	// Then the join is refused and membership is unchanged
	req.ErrorIs(err, errs.ErrAlreadyJoined)
	req.Equal(1, room.Size())
	req.Equal([]string{participant.ID()}, room.Members())
}

func TestRoom_Leave_Absent_Participant_Is_Noop(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	room := newTestRoom()
	member := newMockParticipant(ctrl)
	stranger := newMockParticipant(ctrl)
	req.NoError(room.Join(member))

	room.Leave(stranger)
	room.Leave(stranger)

	req.Equal(1, room.Size())
}

func TestRoom_Deliver_After_Leave(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	room := newTestRoom()
	frame := domain.Encode([]byte("hi"))

	// Given A, B and C in the room
	a := newMockParticipant(ctrl)
	b := newMockParticipant(ctrl)
	c := newMockParticipant(ctrl)
	for _, p := range []*mocks.MockParticipant{a, b, c} {
		req.NoError(room.Join(p))
	}

	// When A leaves
	room.Leave(a)

	// Then a later delivery from B only reaches C
	a.EXPECT().Write(gomock.Any()).Times(0)
	c.EXPECT().Write(frame).Return(nil).Times(1)
	req.Equal(1, room.Deliver(b, frame))
	req.Equal(2, room.Size())
}

func TestRoom_Deliver_Rejects_Invalid_Frame(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	room := newTestRoom()

	// Given two participants
	sender := newMockParticipant(ctrl)
	receiver := newMockParticipant(ctrl)
	req.NoError(room.Join(sender))
	req.NoError(room.Join(receiver))

	// Then no participant receives anything
	receiver.EXPECT().Write(gomock.Any()).Times(0)

	// When frames with an invalid header are delivered
	req.Equal(0, room.Deliver(sender, domain.NewFrame([]byte("9999body"))))
	req.Equal(0, room.Deliver(sender, domain.NewFrame([]byte("0600"))))
	req.Equal(0, room.Deliver(sender, domain.NewFrame([]byte("ab12"))))
}

func TestRoom_Deliver_Isolates_Failing_Participants(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	room := newTestRoom()
	frame := domain.Encode([]byte("still here"))

	sender := newMockParticipant(ctrl)
	failing := newMockParticipant(ctrl)
	panicking := newMockParticipant(ctrl)
	healthy := newMockParticipant(ctrl)
	for _, p := range []*mocks.MockParticipant{sender, failing, panicking, healthy} {
		req.NoError(room.Join(p))
	}

	// Given one participant failing and one panicking
	failing.EXPECT().Write(frame).Return(errs.ErrSessionClosed).Times(1)
	panicking.EXPECT().Write(frame).DoAndReturn(func(domain.Frame) error {
		panic("boom")
	}).Times(1)
	healthy.EXPECT().Write(frame).Return(nil).Times(1)

	// When a frame is delivered
	delivered := room.Deliver(sender, frame)

	// Then the healthy participant still receives it
	req.Equal(1, delivered)
}

func TestRoom_Deliver_Without_Sender(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	room := newTestRoom()
	frame := domain.Encode([]byte("server notice"))

	participant := newMockParticipant(ctrl)
	participant.EXPECT().Write(frame).Return(nil).Times(1)
	req.NoError(room.Join(participant))

	req.Equal(1, room.Deliver(nil, frame))
}

// closableParticipant counts writes received after it has been closed.
type closableParticipant struct {
	id         string
	closed     atomic.Bool
	writes     atomic.Int64
	violations atomic.Int64
}

func (p *closableParticipant) ID() string { return p.id }

func (p *closableParticipant) Deliver(domain.Frame) {}

func (p *closableParticipant) Write(domain.Frame) error {
	if p.closed.Load() {
		p.violations.Add(1)
		return errs.ErrSessionClosed
	}
	p.writes.Add(1)
	return nil
}

func TestRoom_Concurrent_Join_Leave_Deliver(t *testing.T) {
	req := require.New(t)
	room := newTestRoom()
	frame := domain.Encode([]byte("race"))
	const participants = 50

	sender := &closableParticipant{id: "sender"}
	req.NoError(room.Join(sender))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Given a goroutine delivering frames continuously
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					room.Deliver(sender, frame)
				}
			}
		}()
	}

	// When participants join, then leave and close their transport
	joined := make([]*closableParticipant, participants)
	var churn sync.WaitGroup
	for i := 0; i < participants; i++ {
		churn.Add(1)
		go func(i int) {
			defer churn.Done()
			p := &closableParticipant{id: fmt.Sprintf("p-%d", i)}
			joined[i] = p
			if err := room.Join(p); err != nil {
				t.Error(err)
				return
			}
			room.Leave(p)
			p.closed.Store(true)
		}(i)
	}
	churn.Wait()
	close(stop)
	wg.Wait()

	// Then no write ever reached a participant after Leave returned
	for _, p := range joined {
		req.Zero(p.violations.Load(), "participant %s", p.id)
	}
	req.Equal(1, room.Size())
	req.Zero(sender.writes.Load())
}
