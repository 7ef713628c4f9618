package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/tournament-hub/models"
	"github.com/Dosada05/tournament-hub/repositories"
)

var repositoryErrors = []struct {
	repo error
	svc  error
}{
	{repositories.ErrUserNotFound, ErrUserNotFound},
	{repositories.ErrTournamentNotFound, ErrTournamentNotFound},
	{repositories.ErrBracketNotFound, ErrBracketNotFound},
	{repositories.ErrRegistrationNotFound, ErrRegistrationNotFound},
	{repositories.ErrMatchNotFound, ErrMatchNotFound},
	{repositories.ErrBroadcastNotFound, ErrBroadcastNotFound},
	{repositories.ErrBracketFull, ErrBracketFull},
	{repositories.ErrRegistrationDecided, ErrAlreadyDecided},
	{repositories.ErrDuplicateApproved, ErrDuplicateApproved},
	{repositories.ErrRegistrationClosed, ErrRegistrationNotOpen},
	{repositories.ErrStatusConflict, ErrTournamentInvalidStatusTransition},
	{repositories.ErrMatchCompleted, ErrAlreadyCompleted},
	{repositories.ErrMatchHasBye, ErrMatchHasBye},
	{repositories.ErrMatchTournamentFK, ErrInvalidMatch},
	{repositories.ErrBroadcastRecipientFK, ErrUserNotFound},
}

// handleRepositoryError turns a store error into the matching service error.
// Anything unknown is a store fault and keeps its cause for logging.
func handleRepositoryError(err error, op string) error {
	if err == nil {
		return nil
	}
	for _, m := range repositoryErrors {
		if errors.Is(err, m.repo) {
			return m.svc
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func chatOf(u *models.User) (int64, bool) {
	if !u.HasChat() {
		return 0, false
	}
	return *u.ChatID, true
}

// auditor writes the admin trail. A failed write is logged, never returned.
type auditor struct {
	store  repositories.AuditRepository
	logger *slog.Logger
}

func (a auditor) record(ctx context.Context, actor *models.User, action, format string, args ...interface{}) {
	entry := &models.AdminLog{
		Actor:   actor.Handle,
		Action:  action,
		Details: strings.TrimSpace(fmt.Sprintf(format, args...)),
	}
	if err := a.store.RecordAdminAction(ctx, entry); err != nil {
		a.logger.ErrorContext(ctx, "Failed to write admin log",
			slog.String("action", action), slog.String("actor", actor.Handle), slog.Any("error", err))
	}
}

// staffNotices addresses text to every admin and owner with a chat.
func staffNotices(ctx context.Context, users repositories.UserRepository, logger *slog.Logger, text string) []Notice {
	staff, err := users.ListStaff(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Failed to list staff for notification", slog.Any("error", err))
		return nil
	}
	return noticesFor(staff, text)
}

// noticesFor addresses text to every user that has a chat.
func noticesFor(users []*models.User, text string) []Notice {
	notices := make([]Notice, 0, len(users))
	for _, u := range users {
		if chat, ok := chatOf(u); ok {
			notices = append(notices, Notice{chat, text})
		}
	}
	return notices
}
