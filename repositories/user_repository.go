package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Dosada05/tournament-hub/models"
)

const userColumns = "id, handle, phone, chat_id, role, banned, joined_at"

var userColumnsU = []string{"u.id", "u.handle", "u.phone", "u.chat_id", "u.role", "u.banned", "u.joined_at"}

func scanUser(row rowScanner, extra ...interface{}) (*models.User, error) {
	var u models.User
	dest := append([]interface{}{&u.ID, &u.Handle, &u.Phone, &u.ChatID, &u.Role, &u.Banned, &u.JoinedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) UpsertOnLogin(ctx context.Context, profile models.LoginProfile) (*models.User, bool, error) {
	query := `
		INSERT INTO users (handle, phone, chat_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (handle) DO UPDATE SET
			phone = COALESCE(EXCLUDED.phone, users.phone),
			chat_id = COALESCE(EXCLUDED.chat_id, users.chat_id)
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted`

	var created bool
	u, err := scanUser(s.db.QueryRowContext(ctx, query, profile.Handle, profile.Phone, profile.ChatID), &created)
	if err != nil {
		return nil, false, fmt.Errorf("upsert user %s: %w", profile.Handle, err)
	}
	return u, created, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE handle = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, handle))
}

func (s *PostgresStore) EnsureOwner(ctx context.Context, handle string) (*models.User, error) {
	query := `
		INSERT INTO users (handle, role) VALUES ($1, 'owner')
		ON CONFLICT (handle) DO UPDATE SET role = 'owner'
		RETURNING ` + userColumns
	u, err := scanUser(s.db.QueryRowContext(ctx, query, handle))
	if err != nil {
		return nil, fmt.Errorf("ensure owner %s: %w", handle, err)
	}
	return u, nil
}

func (s *PostgresStore) SetUserRole(ctx context.Context, id int, role models.UserRole) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("set role of user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (s *PostgresStore) SetUserBanned(ctx context.Context, id int, banned bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET banned = $1 WHERE id = $2`, banned, id)
	if err != nil {
		return fmt.Errorf("set banned of user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (s *PostgresStore) ListUsersWithChat(ctx context.Context, includeBanned bool) ([]*models.User, error) {
	b := psql.Select(userColumnsU...).From("users u").
		Where(sq.NotEq{"u.chat_id": nil}).
		OrderBy("u.id")
	if !includeBanned {
		b = b.Where(sq.Eq{"u.banned": false})
	}
	return s.listUsers(ctx, b)
}

func (s *PostgresStore) ListStaff(ctx context.Context) ([]*models.User, error) {
	b := psql.Select(userColumnsU...).From("users u").
		Where(sq.Eq{"u.role": []models.UserRole{models.RoleAdmin, models.RoleOwner}}).
		OrderBy("u.id")
	return s.listUsers(ctx, b)
}

func (s *PostgresStore) ListApprovedUsers(ctx context.Context, filter ApprovedUsersFilter) ([]*models.User, error) {
	b := psql.Select(userColumnsU...).Distinct().From("users u").
		Join("registrations r ON r.user_id = u.id").
		Join("tournaments t ON t.id = r.tournament_id").
		Where(sq.Eq{"r.status": models.RegistrationApproved}).
		OrderBy("u.id")
	if filter.TournamentType != nil {
		b = b.Where(sq.Eq{"t.type": *filter.TournamentType})
	}
	if filter.TournamentID != nil {
		b = b.Where(sq.Eq{"t.id": *filter.TournamentID})
	}
	return s.listUsers(ctx, b)
}

func (s *PostgresStore) listUsers(ctx context.Context, b sq.SelectBuilder) ([]*models.User, error) {
	users := make([]*models.User, 0)
	err := queryBuilt(ctx, s.db, b, func(row rowScanner) error {
		u, err := scanUser(row)
		if err != nil {
			return err
		}
		users = append(users, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
