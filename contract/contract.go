//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"collab-lab/domain"
	"collab-lab/domain/event"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
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

// EventSink is the outbound side of one connection.
// Consume must never block the caller: a full sink drops the event.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry owns room to members mappings. Only the coordinator writes to it.
type IRegistry interface {
	CreateRoom() domain.RoomID
	Join(roomID domain.RoomID, memberID domain.MemberID) error
	Leave(roomID domain.RoomID, memberID domain.MemberID)
	MembersOf(roomID domain.RoomID) []domain.MemberID
	Rooms() []domain.RoomSnapshot
	Reap(now time.Time, ttl time.Duration) []domain.RoomID
}

// IExecutor runs untrusted source in an isolated process.
// It never returns an error: every failure is a classified result.
type IExecutor interface {
	Execute(ctx context.Context, req domain.ExecutionRequest) domain.ExecutionResult
}

type ICensor interface {
	Censor(text string) (string, []string)
}

type ICoordinator interface {
	Connect(ctx context.Context, conn domain.ConnectionID, sink EventSink) error
	Dispatch(ctx context.Context, cmd domain.Command) error
	Rooms(ctx context.Context) ([]domain.RoomSnapshot, error)
	Reap(ctx context.Context, ttl time.Duration) error
}
