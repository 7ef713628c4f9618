package services

import (
	"context"
	"errors"

	"github.com/Dosada05/tournament-hub/models"
	"github.com/Dosada05/tournament-hub/repositories"
)

// Authorizer resolves an actor id to a current user row and checks its role.
// Roles are read on every call, so a demotion or ban applies immediately.
type Authorizer struct {
	users repositories.UserRepository
}

func NewAuthorizer(users repositories.UserRepository) *Authorizer {
	return &Authorizer{users: users}
}

func (a *Authorizer) load(ctx context.Context, actorID int) (*models.User, error) {
	u, err := a.users.GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrForbidden
		}
		return nil, handleRepositoryError(err, "load actor")
	}
	if u.Banned {
		return nil, ErrUserBanned
	}
	return u, nil
}

// Member returns the actor if it exists and is not banned.
func (a *Authorizer) Member(ctx context.Context, actorID int) (*models.User, error) {
	return a.load(ctx, actorID)
}

// Staff requires role admin or owner.
func (a *Authorizer) Staff(ctx context.Context, actorID int) (*models.User, error) {
	u, err := a.load(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !u.Role.IsStaff() {
		return nil, ErrForbidden
	}
	return u, nil
}

// Owner requires role owner.
func (a *Authorizer) Owner(ctx context.Context, actorID int) (*models.User, error) {
	u, err := a.load(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if u.Role != models.RoleOwner {
		return nil, ErrForbidden
	}
	return u, nil
}
