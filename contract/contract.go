//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging during supervision, so workers don't need to name themselves.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Participant is anything the Room can fan frames out to.
// The Room only knows participants through this contract, never the transport.
type Participant interface {
	// ID is the connection identity, membership is unique by ID.
	ID() string
	// Deliver hands an inbound frame to the Room for broadcast.
	Deliver(frame domain.Frame)
	// Write queues an outbound frame. It must not block on the transport.
	Write(frame domain.Frame) error
}

// Session is a Participant owning one connection.
// Run blocks until the connection is torn down.
type Session interface {
	Participant
	Run(ctx context.Context) error
}

type IRoom interface {
	Join(participant Participant) error
	Leave(participant Participant)
	Deliver(sender Participant, frame domain.Frame) int
	Size() int
}
