package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-hub/models"
)

var registrationRowColumns = []string{
	"id", "user_id", "bracket_id", "tournament_id", "status", "proof_key",
	"transaction_ref", "rejection_reason", "decided_by", "submitted_at", "decided_at", "type",
}

var matchRowColumns = []string{
	"id", "tournament_id", "round", "player1_id", "player2_id", "score1", "score2",
	"winner_id", "status", "next_match_id", "next_slot", "scheduled_at", "completed_at", "type",
}

var standingRowColumns = []string{
	"id", "tournament_id", "user_id", "played", "won", "drawn", "lost",
	"goals_for", "goals_against", "goal_difference", "points",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func expectPendingRegistration(mock sqlmock.Sqlmock, tournamentType models.TournamentType) {
	rows := sqlmock.NewRows(registrationRowColumns).
		AddRow(7, 3, 2, 1, "pending", "proofs/a.png", nil, nil, nil, time.Now(), nil, string(tournamentType))
	mock.ExpectQuery(`SELECT .+ FROM registrations r JOIN tournaments t ON t.id = r.tournament_id WHERE r.id = \$1 FOR UPDATE OF r`).
		WithArgs(7).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(3, 1, 7).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
}

func TestPostgresStore_ApproveRegistration_BracketFull(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	expectPendingRegistration(mock, models.TournamentKnockout)
	mock.ExpectExec(`UPDATE brackets\s+SET current_registered = current_registered \+ 1\s+WHERE id = \$1 AND current_registered < max_players`).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.ApproveRegistration(context.Background(), 7, models.Decision{Actor: "@admin", At: time.Now()})
	assert.ErrorIs(t, err, ErrBracketFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ApproveRegistration_LeagueCreatesStanding(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	expectPendingRegistration(mock, models.TournamentLeague)
	mock.ExpectExec(`UPDATE brackets`).WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE registrations\s+SET status = 'approved'`).
		WithArgs("@admin", at, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO league_standings .+ ON CONFLICT \(tournament_id, user_id\) DO NOTHING`).
		WithArgs(1, 3).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	reg, err := store.ApproveRegistration(context.Background(), 7, models.Decision{Actor: "@admin", At: at})
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationApproved, reg.Status)
	assert.Equal(t, models.TournamentLeague, reg.TournamentType)
	require.NotNil(t, reg.DecidedBy)
	assert.Equal(t, "@admin", *reg.DecidedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ApproveRegistration_AlreadyDecided(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM registrations r`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(registrationRowColumns).
			AddRow(7, 3, 2, 1, "approved", "proofs/a.png", nil, nil, "@admin", time.Now(), time.Now(), "league"))
	mock.ExpectRollback()

	_, err := store.ApproveRegistration(context.Background(), 7, models.Decision{Actor: "@admin", At: time.Now()})
	assert.ErrorIs(t, err, ErrRegistrationDecided)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteMatch_League(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM matches m\s+JOIN tournaments t ON t.id = m.tournament_id\s+WHERE m.id = \$1\s+FOR UPDATE OF m`).
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows(matchRowColumns).
			AddRow(11, 1, 1, 5, 4, 0, 0, nil, "scheduled", nil, nil, nil, nil, "league"))
	mock.ExpectExec(`UPDATE matches\s+SET score1 = \$1`).
		WithArgs(3, 1, 5, at, 11).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Rows are locked lowest user id first.
	for _, userID := range []int{4, 5} {
		mock.ExpectExec(`INSERT INTO league_standings`).WithArgs(1, userID).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM league_standings ls\s+WHERE ls.tournament_id = \$1 AND ls.user_id = \$2\s+FOR UPDATE`).
			WithArgs(1, userID).
			WillReturnRows(sqlmock.NewRows(standingRowColumns).AddRow(100+userID, 1, userID, 0, 0, 0, 0, 0, 0, 0, 0))
	}
	mock.ExpectExec(`UPDATE league_standings`).
		WithArgs(1, 1, 0, 0, 3, 1, 2, 3, 105).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE league_standings`).
		WithArgs(1, 0, 0, 1, 1, 3, -2, 0, 104).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	delta, err := store.CompleteMatch(context.Background(), 11, models.MatchResult{Score1: 3, Score2: 1, At: at})
	require.NoError(t, err)
	require.NotNil(t, delta.Match.WinnerID)
	assert.Equal(t, 5, *delta.Match.WinnerID)
	require.Len(t, delta.Changes, 2)
	assert.Equal(t, 5, delta.Changes[0].After.UserID)
	assert.Equal(t, 3, delta.Changes[0].After.Points)
	assert.Equal(t, -2, delta.Changes[1].After.GoalDifference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteMatch_AlreadyCompleted(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM matches m`).
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows(matchRowColumns).
			AddRow(11, 1, 1, 5, 4, 2, 2, nil, "completed", nil, nil, nil, time.Now(), "league"))
	mock.ExpectRollback()

	_, err := store.CompleteMatch(context.Background(), 11, models.MatchResult{Score1: 1, Score2: 0, At: time.Now()})
	assert.ErrorIs(t, err, ErrMatchCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TransitionTournament_Conflict(t *testing.T) {
	store, mock := newMockStore(t)
	tournamentColumnsRow := []string{"id", "name", "type", "status", "winner_id", "created_at", "completed_at"}

	mock.ExpectQuery(`UPDATE tournaments`).
		WithArgs(models.StatusActive, nil, nil, 1, models.StatusRegistration).
		WillReturnRows(sqlmock.NewRows(tournamentColumnsRow))
	mock.ExpectQuery(`SELECT .+ FROM tournaments WHERE id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(tournamentColumnsRow).
			AddRow(1, "Cup", "league", "active", nil, time.Now(), nil))

	_, err := store.TransitionTournament(context.Background(), 1, models.TournamentTransition{
		From: models.StatusRegistration, To: models.StatusActive,
	})
	assert.ErrorIs(t, err, ErrStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
