package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-hub/league"
	"github.com/Dosada05/tournament-hub/models"
)

const matchColumns = `m.id, m.tournament_id, m.round, m.player1_id, m.player2_id, m.score1, m.score2,
	m.winner_id, m.status, m.next_match_id, m.next_slot, m.scheduled_at, m.completed_at`

const standingColumns = `ls.id, ls.tournament_id, ls.user_id, ls.played, ls.won, ls.drawn, ls.lost,
	ls.goals_for, ls.goals_against, ls.goal_difference, ls.points`

func scanMatch(row rowScanner, extra ...interface{}) (*models.Match, error) {
	var m models.Match
	dest := append([]interface{}{
		&m.ID, &m.TournamentID, &m.Round, &m.Player1ID, &m.Player2ID, &m.Score1, &m.Score2,
		&m.WinnerID, &m.Status, &m.NextMatchID, &m.NextSlot, &m.ScheduledAt, &m.CompletedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func scanStanding(row rowScanner, extra ...interface{}) (*models.LeagueStanding, error) {
	var ls models.LeagueStanding
	dest := append([]interface{}{
		&ls.ID, &ls.TournamentID, &ls.UserID, &ls.Played, &ls.Won, &ls.Drawn, &ls.Lost,
		&ls.GoalsFor, &ls.GoalsAgainst, &ls.GoalDifference, &ls.Points,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &ls, nil
}

func (s *PostgresStore) CreateMatches(ctx context.Context, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO matches (tournament_id, round, player1_id, player2_id, scheduled_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, status`)
		if err != nil {
			return fmt.Errorf("prepare match insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range matches {
			err := stmt.QueryRowContext(ctx, m.TournamentID, m.Round, m.Player1ID, m.Player2ID, m.ScheduledAt).
				Scan(&m.ID, &m.Status)
			if err != nil {
				if pqCode(err) == pqForeignKeyViolation {
					return ErrMatchTournamentFK
				}
				return fmt.Errorf("insert match (round %d): %w", m.Round, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches m WHERE m.id = $1`
	return scanMatch(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches m WHERE m.tournament_id = $1 ORDER BY m.round, m.id`
	rows, err := s.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list matches of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PostgresStore) SetNextMatch(ctx context.Context, matchID, nextMatchID, slot int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE matches SET next_match_id = $1, next_slot = $2 WHERE id = $3`,
		nextMatchID, slot, matchID)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return ErrMatchNotFound
		}
		return fmt.Errorf("link match %d to %d: %w", matchID, nextMatchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// lockStanding returns the player's row locked for update, creating it first
// when the player has none yet.
func lockStanding(ctx context.Context, tx *sql.Tx, tournamentID, userID int) (*models.LeagueStanding, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO league_standings (tournament_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (tournament_id, user_id) DO NOTHING`, tournamentID, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure standing for user %d: %w", userID, err)
	}
	row := tx.QueryRowContext(ctx, `
		SELECT `+standingColumns+`
		FROM league_standings ls
		WHERE ls.tournament_id = $1 AND ls.user_id = $2
		FOR UPDATE`, tournamentID, userID)
	ls, err := scanStanding(row)
	if err != nil {
		return nil, fmt.Errorf("lock standing for user %d: %w", userID, err)
	}
	return ls, nil
}

func updateStanding(ctx context.Context, tx *sql.Tx, ls *models.LeagueStanding) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE league_standings
		SET played = $1, won = $2, drawn = $3, lost = $4,
			goals_for = $5, goals_against = $6, goal_difference = $7, points = $8
		WHERE id = $9`,
		ls.Played, ls.Won, ls.Drawn, ls.Lost,
		ls.GoalsFor, ls.GoalsAgainst, ls.GoalDifference, ls.Points, ls.ID)
	if err != nil {
		return fmt.Errorf("update standing %d: %w", ls.ID, err)
	}
	return nil
}

func (s *PostgresStore) CompleteMatch(ctx context.Context, id int, res models.MatchResult) (*models.StandingsDelta, error) {
	delta := &models.StandingsDelta{}
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		m, err := scanMatch(tx.QueryRowContext(ctx, `
			SELECT `+matchColumns+`, t.type
			FROM matches m
			JOIN tournaments t ON t.id = m.tournament_id
			WHERE m.id = $1
			FOR UPDATE OF m`, id), &delta.Type)
		if err != nil {
			return err
		}
		if m.Status == models.MatchCompleted {
			return ErrMatchCompleted
		}
		if m.IsBye() {
			return ErrMatchHasBye
		}

		m.Score1, m.Score2 = res.Score1, res.Score2
		m.WinnerID = league.Decide(m, res.Score1, res.Score2)
		m.Status = models.MatchCompleted
		m.CompletedAt = &res.At

		result, err := tx.ExecContext(ctx, `
			UPDATE matches
			SET score1 = $1, score2 = $2, winner_id = $3, status = 'completed', completed_at = $4
			WHERE id = $5 AND status = 'scheduled'`,
			m.Score1, m.Score2, m.WinnerID, res.At, m.ID)
		if err != nil {
			return fmt.Errorf("complete match %d: %w", m.ID, err)
		}
		if err := checkAffectedRows(result, ErrMatchCompleted); err != nil {
			return err
		}

		if delta.Type == models.TournamentLeague {
			// Lock in user id order so two results sharing a player cannot deadlock.
			first, second := *m.Player1ID, *m.Player2ID
			if first > second {
				first, second = second, first
			}
			locked := make(map[int]*models.LeagueStanding, 2)
			for _, userID := range []int{first, second} {
				ls, err := lockStanding(ctx, tx, m.TournamentID, userID)
				if err != nil {
					return err
				}
				locked[userID] = ls
			}
			row1, row2 := locked[*m.Player1ID], locked[*m.Player2ID]
			delta.Changes = league.ApplyMatch(row1, row2, m.Score1, m.Score2)
			if err := updateStanding(ctx, tx, row1); err != nil {
				return err
			}
			if err := updateStanding(ctx, tx, row2); err != nil {
				return err
			}
		}
		delta.Match = *m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return delta, nil
}

func (s *PostgresStore) ListStandings(ctx context.Context, tournamentID int) ([]*models.LeagueStanding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+standingColumns+`, u.handle
		FROM league_standings ls
		JOIN users u ON u.id = ls.user_id
		WHERE ls.tournament_id = $1
		ORDER BY ls.points DESC, ls.goal_difference DESC, ls.goals_for DESC, ls.user_id ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list standings of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	standings := make([]*models.LeagueStanding, 0)
	for rows.Next() {
		var handle string
		ls, err := scanStanding(rows, &handle)
		if err != nil {
			return nil, err
		}
		ls.Handle = handle
		standings = append(standings, ls)
	}
	return standings, rows.Err()
}
