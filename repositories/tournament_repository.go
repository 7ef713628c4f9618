package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Dosada05/tournament-hub/models"
)

var tournamentColumns = []string{"id", "name", "type", "status", "winner_id", "created_at", "completed_at"}

const bracketColumns = "id, tournament_id, amount, max_players, current_registered, active"

func scanTournament(row rowScanner) (*models.Tournament, error) {
	var t models.Tournament
	err := row.Scan(&t.ID, &t.Name, &t.Type, &t.Status, &t.WinnerID, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return &t, nil
}

func scanBracket(row rowScanner) (*models.Bracket, error) {
	var b models.Bracket
	err := row.Scan(&b.ID, &b.TournamentID, &b.Amount, &b.MaxPlayers, &b.CurrentRegistered, &b.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *PostgresStore) CreateTournament(ctx context.Context, t *models.Tournament, brackets []*models.Bracket) error {
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tournaments (name, type, status)
			VALUES ($1, $2, $3)
			RETURNING id, created_at`,
			t.Name, t.Type, t.Status,
		).Scan(&t.ID, &t.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert tournament: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO brackets (tournament_id, amount, max_players, active)
			VALUES ($1, $2, $3, $4)
			RETURNING id, current_registered`)
		if err != nil {
			return fmt.Errorf("prepare bracket insert: %w", err)
		}
		defer stmt.Close()

		for _, b := range brackets {
			b.TournamentID = t.ID
			if err := stmt.QueryRowContext(ctx, b.TournamentID, b.Amount, b.MaxPlayers, b.Active).
				Scan(&b.ID, &b.CurrentRegistered); err != nil {
				return fmt.Errorf("insert bracket (amount %d): %w", b.Amount, err)
			}
		}
		t.Brackets = brackets
		return nil
	})
}

func (s *PostgresStore) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	query, args, err := psql.Select(tournamentColumns...).From("tournaments").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return scanTournament(s.db.QueryRowContext(ctx, query, args...))
}

func (s *PostgresStore) ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	b := psql.Select(tournamentColumns...).From("tournaments")
	if len(filter.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": filter.Statuses})
	}
	if len(filter.ExcludeStatuses) > 0 {
		b = b.Where(sq.NotEq{"status": filter.ExcludeStatuses})
	}
	if filter.ByCompletion {
		b = b.OrderBy("completed_at DESC NULLS LAST", "id DESC")
	} else {
		b = b.OrderBy("created_at DESC", "id DESC")
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}

	tournaments := make([]*models.Tournament, 0)
	err := queryBuilt(ctx, s.db, b, func(row rowScanner) error {
		t, err := scanTournament(row)
		if err != nil {
			return err
		}
		tournaments = append(tournaments, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	return tournaments, nil
}

func (s *PostgresStore) TransitionTournament(ctx context.Context, id int, tr models.TournamentTransition) (*models.Tournament, error) {
	query := `
		UPDATE tournaments
		SET status = $1,
			winner_id = COALESCE($2, winner_id),
			completed_at = COALESCE($3, completed_at)
		WHERE id = $4 AND status = $5
		RETURNING id, name, type, status, winner_id, created_at, completed_at`

	t, err := scanTournament(s.db.QueryRowContext(ctx, query, tr.To, tr.WinnerID, tr.CompletedAt, id, tr.From))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrTournamentNotFound) {
		return nil, fmt.Errorf("transition tournament %d: %w", id, err)
	}
	// Nothing matched: either the row is gone or someone moved it first.
	if _, getErr := s.GetTournament(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStatusConflict
}

func (s *PostgresStore) GetBracket(ctx context.Context, id int) (*models.Bracket, error) {
	query := `SELECT ` + bracketColumns + ` FROM brackets WHERE id = $1`
	return scanBracket(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) ListBrackets(ctx context.Context, tournamentID int) ([]*models.Bracket, error) {
	query := `SELECT ` + bracketColumns + ` FROM brackets WHERE tournament_id = $1 ORDER BY amount, id`
	rows, err := s.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list brackets of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	brackets := make([]*models.Bracket, 0)
	for rows.Next() {
		b, err := scanBracket(rows)
		if err != nil {
			return nil, err
		}
		brackets = append(brackets, b)
	}
	return brackets, rows.Err()
}
