package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Dosada05/tournament-hub/models"
)

var registrationColumns = []string{
	"r.id", "r.user_id", "r.bracket_id", "r.tournament_id", "r.status", "r.proof_key",
	"r.transaction_ref", "r.rejection_reason", "r.decided_by", "r.submitted_at", "r.decided_at", "t.type",
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var r models.Registration
	err := row.Scan(
		&r.ID, &r.UserID, &r.BracketID, &r.TournamentID, &r.Status, &r.ProofKey,
		&r.TransactionRef, &r.RejectionReason, &r.DecidedBy, &r.SubmittedAt, &r.DecidedAt, &r.TournamentType,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return &r, nil
}

func registrationSelect() sq.SelectBuilder {
	return psql.Select(registrationColumns...).
		From("registrations r").
		Join("tournaments t ON t.id = r.tournament_id")
}

func lockUser(ctx context.Context, tx *sql.Tx, userID int) error {
	var id int
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}

func hasApproved(ctx context.Context, exec SQLExecutor, userID, tournamentID, exceptID int) (bool, error) {
	var exists bool
	err := exec.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM registrations
			WHERE user_id = $1 AND tournament_id = $2 AND status = 'approved' AND id <> $3
		)`, userID, tournamentID, exceptID).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		var (
			active bool
			status models.TournamentStatus
		)
		err := tx.QueryRowContext(ctx, `
			SELECT b.tournament_id, b.active, t.status, t.type
			FROM brackets b
			JOIN tournaments t ON t.id = b.tournament_id
			WHERE b.id = $1`, reg.BracketID,
		).Scan(&reg.TournamentID, &active, &status, &reg.TournamentType)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBracketNotFound
		}
		if err != nil {
			return fmt.Errorf("load bracket %d: %w", reg.BracketID, err)
		}
		if !active || status != models.StatusRegistration {
			return ErrRegistrationClosed
		}

		if err := lockUser(ctx, tx, reg.UserID); err != nil {
			return err
		}
		dup, err := hasApproved(ctx, tx, reg.UserID, reg.TournamentID, 0)
		if err != nil {
			return fmt.Errorf("check approved registrations: %w", err)
		}
		if dup {
			return ErrDuplicateApproved
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO registrations (user_id, bracket_id, tournament_id, proof_key, transaction_ref)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, status, submitted_at`,
			reg.UserID, reg.BracketID, reg.TournamentID, reg.ProofKey, reg.TransactionRef,
		).Scan(&reg.ID, &reg.Status, &reg.SubmittedAt)
		if err != nil {
			if pqCode(err) == pqForeignKeyViolation {
				if pqConstraint(err) == "registrations_user_id_fkey" {
					return ErrUserNotFound
				}
				return ErrBracketNotFound
			}
			return fmt.Errorf("insert registration: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetRegistration(ctx context.Context, id int) (*models.Registration, error) {
	query, args, err := registrationSelect().Where(sq.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return scanRegistration(s.db.QueryRowContext(ctx, query, args...))
}

func (s *PostgresStore) ListRegistrations(ctx context.Context, filter ListRegistrationsFilter) ([]*models.Registration, error) {
	b := registrationSelect()
	if filter.UserID != nil {
		b = b.Where(sq.Eq{"r.user_id": *filter.UserID})
	}
	if filter.TournamentID != nil {
		b = b.Where(sq.Eq{"r.tournament_id": *filter.TournamentID})
	}
	if filter.Status != nil {
		b = b.Where(sq.Eq{"r.status": *filter.Status})
	}
	// The pending queue is worked oldest first; everything else newest first.
	if filter.Status != nil && *filter.Status == models.RegistrationPending {
		b = b.OrderBy("r.submitted_at ASC", "r.id ASC")
	} else {
		b = b.OrderBy("r.submitted_at DESC", "r.id DESC")
	}

	regs := make([]*models.Registration, 0)
	err := queryBuilt(ctx, s.db, b, func(row rowScanner) error {
		r, err := scanRegistration(row)
		if err != nil {
			return err
		}
		regs = append(regs, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// lockPendingRegistration locks the registration row and fails if it is
// already decided.
func lockPendingRegistration(ctx context.Context, tx *sql.Tx, id int) (*models.Registration, error) {
	query, args, err := registrationSelect().Where(sq.Eq{"r.id": id}).Suffix("FOR UPDATE OF r").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	reg, err := scanRegistration(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	if reg.Status.Decided() {
		return nil, ErrRegistrationDecided
	}
	return reg, nil
}

func (s *PostgresStore) ApproveRegistration(ctx context.Context, id int, d models.Decision) (*models.Registration, error) {
	var reg *models.Registration
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if reg, err = lockPendingRegistration(ctx, tx, id); err != nil {
			return err
		}
		if err := lockUser(ctx, tx, reg.UserID); err != nil {
			return err
		}
		dup, err := hasApproved(ctx, tx, reg.UserID, reg.TournamentID, reg.ID)
		if err != nil {
			return fmt.Errorf("check approved registrations: %w", err)
		}
		if dup {
			return ErrDuplicateApproved
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE brackets
			SET current_registered = current_registered + 1
			WHERE id = $1 AND current_registered < max_players`, reg.BracketID)
		if err != nil {
			if pqCode(err) == pqCheckViolation {
				return ErrBracketFull
			}
			return fmt.Errorf("reserve slot in bracket %d: %w", reg.BracketID, err)
		}
		if err := checkAffectedRows(result, ErrBracketFull); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE registrations
			SET status = 'approved', decided_by = $1, decided_at = $2
			WHERE id = $3`, d.Actor, d.At, reg.ID)
		if err != nil {
			if pqCode(err) == pqUniqueViolation {
				return ErrDuplicateApproved
			}
			return fmt.Errorf("approve registration %d: %w", reg.ID, err)
		}

		if reg.TournamentType == models.TournamentLeague {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO league_standings (tournament_id, user_id)
				VALUES ($1, $2)
				ON CONFLICT (tournament_id, user_id) DO NOTHING`, reg.TournamentID, reg.UserID)
			if err != nil {
				return fmt.Errorf("create standing row: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reg.Status = models.RegistrationApproved
	reg.DecidedBy = &d.Actor
	reg.DecidedAt = &d.At
	return reg, nil
}

func (s *PostgresStore) RejectRegistration(ctx context.Context, id int, d models.Decision) (*models.Registration, error) {
	var reg *models.Registration
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if reg, err = lockPendingRegistration(ctx, tx, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE registrations
			SET status = 'rejected', rejection_reason = $1, decided_by = $2, decided_at = $3
			WHERE id = $4`, d.Reason, d.Actor, d.At, reg.ID)
		if err != nil {
			return fmt.Errorf("reject registration %d: %w", reg.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reg.Status = models.RegistrationRejected
	reg.RejectionReason = &d.Reason
	reg.DecidedBy = &d.Actor
	reg.DecidedAt = &d.At
	return reg, nil
}
