//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"devmatch/domain"
	"devmatch/domain/event"
	"reflect"
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

// EventSink is the push side of one live connection.
// Consume must never block the caller for long: the dispatcher loop calls it.
type EventSink interface {
	Consume(ctx context.Context, e event.ServerEvent) error
}

// IRegistry is the presence table: who is online and through which connections.
type IRegistry interface {
	Register(identity string, handle domain.Handle, sink EventSink) bool
	Deregister(handle domain.Handle) (string, bool)
	HandlesFor(identity string) []domain.Handle
	SinksFor(identity string) []EventSink
	OnlineIdentities() []string
}

// IDispatcher accepts connection lifecycle events and client commands.
// Every call is handled on the single dispatcher loop, in submission order.
type IDispatcher interface {
	Connect(ctx context.Context, handle domain.Handle, identity string, sink EventSink) error
	Disconnect(ctx context.Context, handle domain.Handle) error
	Dispatch(ctx context.Context, cmd domain.Command) error
}

// IAuthenticator resolves the identity of a connection from the claimed identity
// and the session token. An empty identity means anonymous.
type IAuthenticator interface {
	Authenticate(claimed, token string) (string, error)
}
