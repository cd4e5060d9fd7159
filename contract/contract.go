//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"linguachat/domain"
	"linguachat/domain/event"
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

// EventSink is the write side of a live connection.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the authoritative user -> live connection mapping.
// At most one connection per user is routable at any instant; a later
// Register for the same user supersedes the earlier one.
type IRegistry interface {
	Register(userID string, conn *domain.Connection, sink EventSink)
	Unregister(userID string, connID uuid.UUID) bool
	Lookup(userID string) (EventSink, bool)
	OnlineUsers() []string
	Sinks() []EventSink
	Len() int
}

// IPresenceBroadcaster pushes the current online set to every live connection.
type IPresenceBroadcaster interface {
	Broadcast(ctx context.Context)
}

// ITranslator never fails observably: both methods always return a usable
// string, falling back to the input on any backend failure.
type ITranslator interface {
	Translate(ctx context.Context, text, targetLanguage string) string
	TranslateDocument(ctx context.Context, text, targetLanguage string) string
}

// IRelay moves one message from sender to receiver, including the
// translation and persistence side effects.
type IRelay interface {
	Relay(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
}

type IMessageRepository interface {
	StoreMessage(message domain.Message) error
	GetConversation(userA, userB string, cursor *string) ([]domain.Message, *string, error)
}

type IUserRepository interface {
	GetUser(id string) (domain.User, error)
	UpsertUser(user domain.User) error
	SetLanguage(id, language string) error
	ListUsers(excludeID string) ([]domain.User, error)
}

// IAttachmentStore hosts binary attachments and hands back an opaque
// reference. Image hosting is an external collaborator.
type IAttachmentStore interface {
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
}

// IDocumentExtractor turns an uploaded document into raw text.
// Extraction of rich formats is an external collaborator concern.
type IDocumentExtractor interface {
	Extract(data []byte, mimeType string) (string, error)
}
