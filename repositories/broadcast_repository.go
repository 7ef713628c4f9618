package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-hub/models"
)

func (s *PostgresStore) CreateBroadcast(ctx context.Context, b *models.Broadcast, recipientIDs []int) error {
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO broadcasts (author_id, target, target_user_id, body)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at`,
			b.AuthorID, b.Target, b.TargetUserID, b.Body,
		).Scan(&b.ID, &b.CreatedAt)
		if err != nil {
			if pqCode(err) == pqForeignKeyViolation {
				return ErrBroadcastRecipientFK
			}
			return fmt.Errorf("insert broadcast: %w", err)
		}
		if len(recipientIDs) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO user_broadcasts (broadcast_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (broadcast_id, user_id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare delivery insert: %w", err)
		}
		defer stmt.Close()

		for _, userID := range recipientIDs {
			if _, err := stmt.ExecContext(ctx, b.ID, userID); err != nil {
				if pqCode(err) == pqForeignKeyViolation {
					return ErrBroadcastRecipientFK
				}
				return fmt.Errorf("insert delivery for user %d: %w", userID, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) ListUserBroadcasts(ctx context.Context, userID int) ([]*models.UserBroadcast, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ub.broadcast_id, ub.user_id, ub.read_at, b.body, b.target, b.created_at
		FROM user_broadcasts ub
		JOIN broadcasts b ON b.id = ub.broadcast_id
		WHERE ub.user_id = $1
		ORDER BY b.created_at DESC, b.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list broadcasts of user %d: %w", userID, err)
	}
	defer rows.Close()

	inbox := make([]*models.UserBroadcast, 0)
	for rows.Next() {
		var ub models.UserBroadcast
		if err := rows.Scan(&ub.BroadcastID, &ub.UserID, &ub.ReadAt, &ub.Body, &ub.Target, &ub.CreatedAt); err != nil {
			return nil, err
		}
		inbox = append(inbox, &ub)
	}
	return inbox, rows.Err()
}

func (s *PostgresStore) MarkBroadcastRead(ctx context.Context, userID, broadcastID int, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE user_broadcasts
		SET read_at = COALESCE(read_at, $1)
		WHERE broadcast_id = $2 AND user_id = $3`, at, broadcastID, userID)
	if err != nil {
		return fmt.Errorf("mark broadcast %d read: %w", broadcastID, err)
	}
	return checkAffectedRows(result, ErrBroadcastNotFound)
}
