package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Dosada05/tournament-hub/models"
	"github.com/Dosada05/tournament-hub/repositories"
)

// CredentialVerifier checks the second factor staff accounts log in with.
type CredentialVerifier interface {
	Verify(handle, pin string) error
}

type LoginInput struct {
	Handle string  `json:"handle"`
	Phone  *string `json:"phone,omitempty"`
	ChatID *int64  `json:"chat_id,omitempty"`
	PIN    string  `json:"pin,omitempty"`
}

type UserService struct {
	store    repositories.Store
	authz    *Authorizer
	verifier CredentialVerifier
	notifier *Dispatcher
	audit    auditor
	logger   *slog.Logger
}

func NewUserService(store repositories.Store, verifier CredentialVerifier, notifier *Dispatcher, logger *slog.Logger) *UserService {
	return &UserService{
		store:    store,
		authz:    NewAuthorizer(store),
		verifier: verifier,
		notifier: notifier,
		audit:    auditor{store: store, logger: logger},
		logger:   logger,
	}
}

// Login upserts the user by handle and refreshes its chat id. Banned users
// are refused before anything is written; admins and the owner must also
// pass the credential check.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	handle := models.NormalizeHandle(input.Handle)
	if handle == "" {
		return nil, ErrHandleRequired
	}

	existing, err := s.store.GetUserByHandle(ctx, handle)
	switch {
	case err == nil:
		if existing.Banned {
			return nil, ErrUserBanned
		}
		if existing.Role.IsStaff() {
			if s.verifier == nil || s.verifier.Verify(handle, input.PIN) != nil {
				s.logger.WarnContext(ctx, "Staff login refused", slog.String("handle", handle))
				return nil, ErrInvalidCredentials
			}
		}
	case errors.Is(err, repositories.ErrUserNotFound):
	default:
		return nil, handleRepositoryError(err, "load user")
	}

	user, created, err := s.store.UpsertOnLogin(ctx, models.LoginProfile{Handle: handle, Phone: input.Phone, ChatID: input.ChatID})
	if err != nil {
		return nil, handleRepositoryError(err, "upsert user")
	}
	if created {
		s.logger.InfoContext(ctx, "New user joined", slog.Int("user_id", user.ID), slog.String("handle", user.Handle))
		if chat, ok := chatOf(user); ok {
			s.notifier.Send(Notice{chat, "Welcome " + user.Handle + "! You can now register for tournaments."})
		}
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, userID int) (*models.User, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, handleRepositoryError(err, "load user")
	}
	return u, nil
}

// EnsureOwner seeds the configured owner account.
func (s *UserService) EnsureOwner(ctx context.Context, handle string) (*models.User, error) {
	handle = models.NormalizeHandle(handle)
	if handle == "" {
		return nil, ErrHandleRequired
	}
	u, err := s.store.EnsureOwner(ctx, handle)
	if err != nil {
		return nil, handleRepositoryError(err, "ensure owner")
	}
	return u, nil
}

func (s *UserService) SetBanned(ctx context.Context, actorID, userID int, banned bool) error {
	actor, err := s.authz.Owner(ctx, actorID)
	if err != nil {
		return err
	}
	target, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return handleRepositoryError(err, "load user")
	}
	if target.Role == models.RoleOwner {
		return ErrCannotChangeOwnerRole
	}
	if err := s.store.SetUserBanned(ctx, userID, banned); err != nil {
		return handleRepositoryError(err, "set banned")
	}
	action := "unban_user"
	if banned {
		action = "ban_user"
	}
	s.audit.record(ctx, actor, action, "%s", target.Handle)
	return nil
}

// SetRole grants or revokes admin. The owner role is only ever seeded.
func (s *UserService) SetRole(ctx context.Context, actorID, userID int, role models.UserRole) error {
	actor, err := s.authz.Owner(ctx, actorID)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin && role != models.RoleNone {
		return ErrInvalidRole
	}
	target, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return handleRepositoryError(err, "load user")
	}
	if target.Role == models.RoleOwner {
		return ErrCannotChangeOwnerRole
	}
	if err := s.store.SetUserRole(ctx, userID, role); err != nil {
		return handleRepositoryError(err, "set role")
	}
	s.audit.record(ctx, actor, "set_role", "%s -> %s", target.Handle, role)
	return nil
}

// AdminLogs returns the most recent audit entries.
func (s *UserService) AdminLogs(ctx context.Context, actorID, limit int) ([]*models.AdminLog, error) {
	if _, err := s.authz.Staff(ctx, actorID); err != nil {
		return nil, err
	}
	logs, err := s.store.ListAdminLogs(ctx, limit)
	if err != nil {
		return nil, handleRepositoryError(err, "list admin logs")
	}
	return logs, nil
}
