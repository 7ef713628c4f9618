package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/tournament-hub/models"
	"github.com/Dosada05/tournament-hub/repositories"
)

const inboxLimit = 100

type MessageService struct {
	store    repositories.Store
	authz    *Authorizer
	notifier *Dispatcher
	audit    auditor
	logger   *slog.Logger
}

func NewMessageService(store repositories.Store, notifier *Dispatcher, logger *slog.Logger) *MessageService {
	return &MessageService{
		store:    store,
		authz:    NewAuthorizer(store),
		notifier: notifier,
		audit:    auditor{store: store, logger: logger},
		logger:   logger,
	}
}

// SendToAdmin stores a message for the admin team.
func (s *MessageService) SendToAdmin(ctx context.Context, userID int, body string) (*models.Message, error) {
	user, err := s.authz.Member(ctx, userID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	m := &models.Message{FromUserID: user.ID, Kind: models.MessageUserToAdmin, Body: body}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, handleRepositoryError(err, "create message")
	}
	m.FromHandle = user.Handle

	notices := staffNotices(ctx, s.store, s.logger, fmt.Sprintf("New message from %s: %s", user.Handle, body))
	if chat, ok := chatOf(user); ok {
		notices = append(notices, Notice{chat, "Your message has been sent to the admins. You will receive a reply soon."})
	}
	s.notifier.Send(notices...)
	return m, nil
}

// Reply sends an admin message to one user.
func (s *MessageService) Reply(ctx context.Context, actorID, toUserID int, body string) (*models.Message, error) {
	actor, err := s.authz.Staff(ctx, actorID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	to, err := s.store.GetUserByID(ctx, toUserID)
	if err != nil {
		return nil, handleRepositoryError(err, "load recipient")
	}
	m := &models.Message{FromUserID: actor.ID, ToUserID: &to.ID, Kind: models.MessageAdminToUser, Body: body}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, handleRepositoryError(err, "create reply")
	}
	m.FromHandle = actor.Handle

	s.audit.record(ctx, actor, "reply_message", "reply to %s", to.Handle)
	if chat, ok := chatOf(to); ok {
		s.notifier.Send(Notice{chat, "Message from admin: " + body})
	}
	return m, nil
}

// AdminInbox lists user messages, newest first, and marks them read.
func (s *MessageService) AdminInbox(ctx context.Context, actorID int) ([]*models.Message, error) {
	if _, err := s.authz.Staff(ctx, actorID); err != nil {
		return nil, err
	}
	kind := models.MessageUserToAdmin
	msgs, err := s.store.ListMessages(ctx, repositories.ListMessagesFilter{Kind: &kind, Limit: inboxLimit})
	if err != nil {
		return nil, handleRepositoryError(err, "list admin inbox")
	}
	unread := make([]int, 0, len(msgs))
	for _, m := range msgs {
		if !m.Read {
			unread = append(unread, m.ID)
		}
	}
	if err := s.store.MarkMessagesRead(ctx, unread); err != nil {
		s.logger.WarnContext(ctx, "Failed to mark messages read", slog.Any("error", err))
	}
	return msgs, nil
}

// UserThread is everything a user sent or received.
func (s *MessageService) UserThread(ctx context.Context, userID int) ([]*models.Message, error) {
	msgs, err := s.store.ListMessages(ctx, repositories.ListMessagesFilter{Participant: &userID, Limit: inboxLimit})
	if err != nil {
		return nil, handleRepositoryError(err, "list user messages")
	}
	return msgs, nil
}
