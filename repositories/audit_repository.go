package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/tournament-hub/models"
)

const defaultAuditLimit = 100

func (s *PostgresStore) RecordAdminAction(ctx context.Context, entry *models.AdminLog) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO admin_logs (actor, action, details)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		entry.Actor, entry.Action, entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert admin log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAdminLogs(ctx context.Context, limit int) ([]*models.AdminLog, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, action, details, created_at
		FROM admin_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list admin logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AdminLog, 0)
	for rows.Next() {
		var l models.AdminLog
		if err := rows.Scan(&l.ID, &l.Actor, &l.Action, &l.Details, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
