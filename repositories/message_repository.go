package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/Dosada05/tournament-hub/models"
)

func (s *PostgresStore) CreateMessage(ctx context.Context, m *models.Message) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (from_user_id, to_user_id, kind, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, read, sent_at`,
		m.FromUserID, m.ToUserID, m.Kind, m.Body,
	).Scan(&m.ID, &m.Read, &m.SentAt)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return ErrUserNotFound
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, filter ListMessagesFilter) ([]*models.Message, error) {
	b := psql.Select(
		"m.id", "m.from_user_id", "m.to_user_id", "m.kind", "m.body", "m.read", "m.sent_at", "u.handle",
	).From("messages m").
		Join("users u ON u.id = m.from_user_id").
		OrderBy("m.sent_at DESC", "m.id DESC")
	if filter.Kind != nil {
		b = b.Where(sq.Eq{"m.kind": *filter.Kind})
	}
	if filter.Participant != nil {
		b = b.Where(sq.Or{
			sq.Eq{"m.from_user_id": *filter.Participant},
			sq.Eq{"m.to_user_id": *filter.Participant},
		})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}

	messages := make([]*models.Message, 0)
	err := queryBuilt(ctx, s.db, b, func(row rowScanner) error {
		var m models.Message
		if err := row.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Kind, &m.Body, &m.Read, &m.SentAt, &m.FromHandle); err != nil {
			return err
		}
		messages = append(messages, &m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func (s *PostgresStore) MarkMessagesRead(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE messages SET read = TRUE WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}
	return nil
}
