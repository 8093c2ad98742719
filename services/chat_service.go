//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"devmatch/contract"
	"devmatch/domain"
	"devmatch/errors"
	"devmatch/repositories"
	"fmt"
	"log/slog"
	"strings"
)

// IChatService is what the transport layer sees of the real-time core.
type IChatService interface {
	Connect(ctx context.Context, claimed, token string, sink contract.EventSink) (domain.Handle, string, error)
	Disconnect(ctx context.Context, handle domain.Handle) error
	Send(ctx context.Context, cmd domain.SendMessageCommand) error
	JoinRoom(ctx context.Context, cmd domain.JoinRoomCommand) error
	Relay(ctx context.Context, cmd domain.RelayCommand) error
	History(ctx context.Context, userID, otherUserID string, cursor *string) ([]domain.Message, *string, error)
}

type ChatService struct {
	log           *slog.Logger
	authenticator contract.IAuthenticator
	dispatcher    contract.IDispatcher
	repository    repositories.IMessageRepository
}

func NewChatService(log *slog.Logger, authenticator contract.IAuthenticator,
	dispatcher contract.IDispatcher, repository repositories.IMessageRepository) *ChatService {
	return &ChatService{
		log:           log,
		authenticator: authenticator,
		dispatcher:    dispatcher,
		repository:    repository,
	}
}

// Connect authenticates a new connection then opens its session.
// It returns the fresh connection handle and the resolved identity, empty when anonymous.
func (s *ChatService) Connect(ctx context.Context, claimed, token string, sink contract.EventSink) (domain.Handle, string, error) {
	identity, err := s.authenticator.Authenticate(claimed, token)
	if err != nil {
		s.log.Info("Connection refused", "claimed", claimed, "error", err)
		return "", "", err
	}
	handle := domain.NewHandle()
	if err := s.dispatcher.Connect(ctx, handle, identity, sink); err != nil {
		return "", "", err
	}
	return handle, identity, nil
}

func (s *ChatService) Disconnect(ctx context.Context, handle domain.Handle) error {
	return s.dispatcher.Disconnect(ctx, handle)
}

// Send hands the message over to the broker. The outcome comes back as an acknowledgment on the connection.
func (s *ChatService) Send(ctx context.Context, cmd domain.SendMessageCommand) error {
	return s.dispatcher.Dispatch(ctx, cmd)
}

func (s *ChatService) JoinRoom(ctx context.Context, cmd domain.JoinRoomCommand) error {
	return s.dispatcher.Dispatch(ctx, cmd)
}

func (s *ChatService) Relay(ctx context.Context, cmd domain.RelayCommand) error {
	return s.dispatcher.Dispatch(ctx, cmd)
}

// History returns the conversation between the authenticated user and another user, oldest first.
func (s *ChatService) History(ctx context.Context, userID, otherUserID string, cursor *string) ([]domain.Message, *string, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(otherUserID) == "" {
		return nil, nil, fmt.Errorf("%w: both identities are required", errors.ErrValidation)
	}
	messages, next, err := s.repository.History(ctx, userID, otherUserID, cursor)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return messages, next, nil
}
