package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	errs "chat-relay/errors"
	"chat-relay/observability"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// Ensure *Room implements the contract.IRoom interface at compile time.
var _ contract.IRoom = (*Room)(nil)

// Room holds the participants currently between Join and Leave
// and fans every delivered frame out to all of them but the sender.
type Room struct {
	mu      sync.RWMutex
	log     *slog.Logger
	metrics *observability.Metrics
	members map[string]contract.Participant
}

func NewRoom(log *slog.Logger, metrics *observability.Metrics) *Room {
	return &Room{
		log:     log,
		metrics: metrics,
		members: make(map[string]contract.Participant),
	}
}

// Join registers a participant. Joining twice with the same ID fails
// and leaves the membership untouched.
func (r *Room) Join(participant contract.Participant) error {
	id := participant.ID()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[id]; ok {
		return fmt.Errorf("%w: %s", errs.ErrAlreadyJoined, id)
	}
	r.members[id] = participant
	r.metrics.RoomMembers.Set(float64(len(r.members)))
	r.log.Debug("Participant joined", "participant_id", id, "members", len(r.members))
	return nil
}

// Leave removes a participant, it is a no-op when absent.
// Once Leave returns, no Deliver call can reach the participant anymore:
// Deliver holds the read lock for the whole fan-out.
func (r *Room) Leave(participant contract.Participant) {
	id := participant.ID()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[id]; !ok {
		return
	}
	delete(r.members, id)
	r.metrics.RoomMembers.Set(float64(len(r.members)))
	r.log.Debug("Participant left", "participant_id", id, "members", len(r.members))
}

// Deliver writes the frame to every member except the sender and returns
// how many writes succeeded. Invalid frames are never forwarded.
// A failing participant doesn't prevent delivery to the others.
func (r *Room) Deliver(sender contract.Participant, frame domain.Frame) int {
	if _, err := frame.Decode(); err != nil {
		r.log.Warn("Dropping invalid frame", "error", err)
		r.metrics.FramesDropped.WithLabelValues(observability.ReasonFraming).Inc()
		return 0
	}
	senderID := ""
	if sender != nil {
		senderID = sender.ID()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for id, participant := range r.members {
		if id == senderID {
			continue
		}
		if err := write(participant, frame); err != nil {
			r.log.Warn("Participant write failed", "participant_id", id, "error", err)
			continue
		}
		delivered++
	}
	r.metrics.FramesDelivered.Add(float64(delivered))
	return delivered
}

// write isolates a participant: a panic is turned into an error.
func write(participant contract.Participant, frame domain.Frame) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", errs.ErrParticipantPanic, rec)
		}
	}()
	return participant.Write(frame)
}

func (r *Room) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Members returns a snapshot of the participant IDs.
func (r *Room) Members() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.members)
}
