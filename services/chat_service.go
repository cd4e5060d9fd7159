//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"log/slog"

	"linguachat/contract"
	"linguachat/domain"
)

// IChatService is the boundary the transports (websocket, HTTP) talk to.
type IChatService interface {
	Connect(ctx context.Context, userID string, sink contract.EventSink) *domain.Connection
	Disconnect(ctx context.Context, conn *domain.Connection)
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	History(userID, otherUserID string, cursor *string) ([]domain.Message, *string, error)
	Sidebar(userID string) ([]domain.User, error)
	SetLanguage(userID, language string) error
}

type ChatService struct {
	log      *slog.Logger
	registry contract.IRegistry
	presence contract.IPresenceBroadcaster
	relay    contract.IRelay
	messages contract.IMessageRepository
	users    contract.IUserRepository
}

func NewChatService(log *slog.Logger, registry contract.IRegistry,
	presence contract.IPresenceBroadcaster, relay contract.IRelay,
	messages contract.IMessageRepository, users contract.IUserRepository) *ChatService {
	return &ChatService{
		log:      log,
		registry: registry,
		presence: presence,
		relay:    relay,
		messages: messages,
		users:    users,
	}
}

// Connect installs the connection in the registry and broadcasts the new
// online set to everyone. A prior connection of the same user becomes
// un-routable (last register wins).
func (s *ChatService) Connect(ctx context.Context, userID string, sink contract.EventSink) *domain.Connection {
	conn := domain.NewConnection(userID)
	s.registry.Register(userID, conn, sink)
	s.log.Info("User connected", "user", userID, "connection", conn.ID)
	s.presence.Broadcast(ctx)
	return conn
}

// Disconnect removes the connection and broadcasts, unless a newer
// connection already superseded this one: a stale disconnect changes
// nothing and nobody is notified.
func (s *ChatService) Disconnect(ctx context.Context, conn *domain.Connection) {
	if !s.registry.Unregister(conn.UserID, conn.ID) {
		s.log.Debug("Stale disconnect ignored", "user", conn.UserID, "connection", conn.ID)
		return
	}
	s.log.Info("User disconnected", "user", conn.UserID, "connection", conn.ID)
	s.presence.Broadcast(ctx)
}

func (s *ChatService) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	return s.relay.Relay(ctx, cmd)
}

func (s *ChatService) History(userID, otherUserID string, cursor *string) ([]domain.Message, *string, error) {
	return s.messages.GetConversation(userID, otherUserID, cursor)
}

func (s *ChatService) Sidebar(userID string) ([]domain.User, error) {
	return s.users.ListUsers(userID)
}

func (s *ChatService) SetLanguage(userID, language string) error {
	return s.users.SetLanguage(userID, language)
}
