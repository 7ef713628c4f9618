package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-hub/models"
	"github.com/Dosada05/tournament-hub/repositories"
)

type BroadcastInput struct {
	Target         models.BroadcastTarget `json:"target"`
	SpecificHandle string                 `json:"specific_handle,omitempty"`
	Body           string                 `json:"body"`
}

type BroadcastService struct {
	store    repositories.Store
	authz    *Authorizer
	notifier *Dispatcher
	audit    auditor
	logger   *slog.Logger
	now      func() time.Time
}

func NewBroadcastService(store repositories.Store, notifier *Dispatcher, logger *slog.Logger) *BroadcastService {
	return &BroadcastService{
		store:    store,
		authz:    NewAuthorizer(store),
		notifier: notifier,
		audit:    auditor{store: store, logger: logger},
		logger:   logger,
		now:      time.Now,
	}
}

// Broadcast records one delivery per distinct recipient and returns how many
// were written. Chat notifications follow asynchronously.
func (s *BroadcastService) Broadcast(ctx context.Context, actorID int, input BroadcastInput) (int, error) {
	actor, err := s.authz.Staff(ctx, actorID)
	if err != nil {
		return 0, err
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return 0, ErrEmptyMessage
	}
	if !input.Target.Valid() {
		return 0, fmt.Errorf("%w: unknown target %q", ErrInvalidBroadcast, input.Target)
	}

	recipients, err := s.resolve(ctx, input)
	if err != nil {
		return 0, err
	}

	b := &models.Broadcast{AuthorID: actor.ID, Target: input.Target, Body: body}
	if input.Target == models.TargetSpecific {
		b.TargetUserID = &recipients[0].ID
	}
	ids := make([]int, 0, len(recipients))
	for _, u := range recipients {
		ids = append(ids, u.ID)
	}
	if err := s.store.CreateBroadcast(ctx, b, ids); err != nil {
		return 0, handleRepositoryError(err, "create broadcast")
	}

	s.logger.InfoContext(ctx, "Broadcast recorded",
		slog.Int("broadcast_id", b.ID), slog.String("target", string(b.Target)), slog.Int("recipients", len(ids)))
	s.audit.record(ctx, actor, "broadcast", "broadcast %d to %s: %d recipients", b.ID, b.Target, len(ids))
	s.notifier.Send(noticesFor(recipients, body)...)
	return len(ids), nil
}

// resolve maps a target to distinct users, ordered by id.
func (s *BroadcastService) resolve(ctx context.Context, input BroadcastInput) ([]*models.User, error) {
	var (
		users []*models.User
		err   error
	)
	switch input.Target {
	case models.TargetAll:
		users, err = s.store.ListUsersWithChat(ctx, false)
	case models.TargetKnockout, models.TargetLeague:
		typ := models.TournamentType(input.Target)
		users, err = s.store.ListApprovedUsers(ctx, repositories.ApprovedUsersFilter{TournamentType: &typ})
	case models.TargetSpecific:
		handle := models.NormalizeHandle(input.SpecificHandle)
		if handle == "" {
			return nil, fmt.Errorf("%w: specific target needs a handle", ErrInvalidBroadcast)
		}
		var u *models.User
		if u, err = s.store.GetUserByHandle(ctx, handle); err == nil {
			users = []*models.User{u}
		}
	}
	if err != nil {
		return nil, handleRepositoryError(err, "resolve broadcast recipients")
	}
	return dedupeUsers(users), nil
}

func dedupeUsers(users []*models.User) []*models.User {
	seen := make(map[int]bool, len(users))
	out := users[:0]
	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	return out
}

func (s *BroadcastService) Inbox(ctx context.Context, userID int) ([]*models.UserBroadcast, error) {
	inbox, err := s.store.ListUserBroadcasts(ctx, userID)
	if err != nil {
		return nil, handleRepositoryError(err, "list broadcasts")
	}
	return inbox, nil
}

func (s *BroadcastService) MarkRead(ctx context.Context, userID, broadcastID int) error {
	if err := s.store.MarkBroadcastRead(ctx, userID, broadcastID, s.now().UTC()); err != nil {
		return handleRepositoryError(err, "mark broadcast read")
	}
	return nil
}
