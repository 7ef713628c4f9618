package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-hub/models"
)

// leagueWithPlayers returns an active league with n approved players.
func (e *testEnv) leagueWithPlayers(n int) (*models.Tournament, []*models.User) {
	e.t.Helper()
	tour := e.openTournament(models.TournamentLeague, n)
	players := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		players = append(players, e.enrol(fmt.Sprintf("@league%d", i), int64(500+i), tour.Brackets[0].ID))
	}
	e.activate(tour.ID)
	return tour, players
}

func TestEnterResult_LeagueWinUpdatesBothRows(t *testing.T) {
	env := newTestEnv(t)
	tour, players := env.leagueWithPlayers(2)
	a, b := players[0], players[1]

	m, err := env.matches.CreateMatch(env.ctx, env.admin.ID, CreateMatchInput{
		TournamentID: tour.ID, Round: 1, Player1ID: &a.ID, Player2ID: &b.ID,
	})
	require.NoError(t, err)

	delta, err := env.matches.EnterResult(env.ctx, env.admin.ID, MatchResultInput{MatchID: m.ID, Score1: 3, Score2: 1})
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, delta.Match.Status)
	require.NotNil(t, delta.Match.WinnerID)
	assert.Equal(t, a.ID, *delta.Match.WinnerID)
	require.Len(t, delta.Changes, 2)

	table, err := env.matches.Standings(env.ctx, tour.ID)
	require.NoError(t, err)
	require.Len(t, table, 2)

	first, second := table[0], table[1]
	assert.Equal(t, a.ID, first.UserID)
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, [7]int{1, 1, 0, 0, 3, 1, 2}, [7]int{first.Played, first.Won, first.Drawn, first.Lost, first.GoalsFor, first.GoalsAgainst, first.GoalDifference})
	assert.Equal(t, 3, first.Points)
	assert.Equal(t, b.ID, second.UserID)
	assert.Equal(t, [7]int{1, 0, 0, 1, 1, 3, -2}, [7]int{second.Played, second.Won, second.Drawn, second.Lost, second.GoalsFor, second.GoalsAgainst, second.GoalDifference})
	assert.Equal(t, 0, second.Points)

	env.flush()
	assert.True(t, env.sentTo(500, "3 - 1"))
	assert.True(t, env.sentTo(501, "3 - 1"))
	assert.Contains(t, env.live.events, fmt.Sprintf("%d:standings_updated", tour.ID))
}

func TestEnterResult_Draw(t *testing.T) {
	env := newTestEnv(t)
	tour, players := env.leagueWithPlayers(2)

	m, err := env.matches.CreateMatch(env.ctx, env.admin.ID, CreateMatchInput{
		TournamentID: tour.ID, Round: 1, Player1ID: &players[0].ID, Player2ID: &players[1].ID,
	})
	require.NoError(t, err)
	delta, err := env.matches.EnterResult(env.ctx, env.owner.ID, MatchResultInput{MatchID: m.ID, Score1: 2, Score2: 2})
	require.NoError(t, err)
	assert.Nil(t, delta.Match.WinnerID)

	table, err := env.matches.Standings(env.ctx, tour.ID)
	require.NoError(t, err)
	for _, row := range table {
		assert.Equal(t, 1, row.Drawn)
		assert.Equal(t, 1, row.Points)
	}
}

func TestEnterResult_ExactlyOnceUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	tour, players := env.leagueWithPlayers(2)
	m, err := env.matches.CreateMatch(env.ctx, env.admin.ID, CreateMatchInput{
		TournamentID: tour.ID, Round: 1, Player1ID: &players[0].ID, Player2ID: &players[1].ID,
	})
	require.NoError(t, err)

	const attempts = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.matches.EnterResult(env.ctx, env.admin.ID, MatchResultInput{MatchID: m.ID, Score1: 1, Score2: 0})
			if err != nil {
				assert.ErrorIs(t, err, ErrAlreadyCompleted)
				return
			}
			mu.Lock()
			wins++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	table, err := env.matches.Standings(env.ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, table[0].Played)
	assert.Equal(t, 3, table[0].Points)
}

func TestEnterResult_Rejections(t *testing.T) {
	env := newTestEnv(t)
	tour, players := env.leagueWithPlayers(2)
	m, err := env.matches.CreateMatch(env.ctx, env.admin.ID, CreateMatchInput{
		TournamentID: tour.ID, Round: 1, Player1ID: &players[0].ID, Player2ID: &players[1].ID,
	})
	require.NoError(t, err)

	_, err = env.matches.EnterResult(env.ctx, env.admin.ID, MatchResultInput{MatchID: m.ID, Score1: -1, Score2: 0})
	assert.ErrorIs(t, err, ErrNegativeScore)
	_, err = env.matches.EnterResult(env.ctx, players[0].ID, MatchResultInput{MatchID: m.ID, Score1: 1, Score2: 0})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.matches.EnterResult(env.ctx, env.admin.ID, MatchResultInput{MatchID: 999, Score1: 1, Score2: 0})
	assert.ErrorIs(t, err, ErrMatchNotFound)

	bye, err := env.matches.CreateMatch(env.ctx, env.admin.ID, CreateMatchInput{
		TournamentID: tour.ID, Round: 2, Player1ID: &players[0].ID,
	})
	require.NoError(t, err)
	_, err = env.matches.EnterResult(env.ctx, env.admin.ID, MatchResultInput{MatchID: bye.ID, Score1: 1, Score2: 0})
	assert.ErrorIs(t, err, ErrMatchHasBye)

	table, err := env.matches.Standings(env.ctx, tour.ID)
	require.NoError(t, err)
	for _, row := range table {
		assert.Zero(t, row.Played)
	}
}

func TestEnterResult_KnockoutLeavesNoStandings(t *testing.T) {
	env := newTestEnv(t)
	tour := env.openTournament(models.TournamentKnockout, 4)
	a := env.enrol("@a", 10, tour.Brackets[0].ID)
	b := env.enrol("@b", 20, tour.Brackets[0].ID)
	env.activate(tour.ID)

	m, err := env.matches.CreateMatch(env.ctx, env.admin.ID, CreateMatchInput{
		TournamentID: tour.ID, Round: 1, Player1ID: &a.ID, Player2ID: &b.ID,
	})
	require.NoError(t, err)
	delta, err := env.matches.EnterResult(env.ctx, env.admin.ID, MatchResultInput{MatchID: m.ID, Score1: 0, Score2: 2})
	require.NoError(t, err)
	assert.Equal(t, models.TournamentKnockout, delta.Type)
	assert.Empty(t, delta.Changes)
	assert.Equal(t, b.ID, *delta.Match.WinnerID)

	_, err = env.matches.Standings(env.ctx, tour.ID)
	assert.ErrorIs(t, err, ErrNotLeague)
}

func TestCreateMatchAndLink(t *testing.T) {
	env := newTestEnv(t)
	tour := env.openTournament(models.TournamentKnockout, 4)
	a := env.enrol("@a", 10, tour.Brackets[0].ID)
	b := env.enrol("@b", 20, tour.Brackets[0].ID)
	outsider := env.player("@x", 30)

	_, err := env.matches.CreateMatch(env.ctx, env.admin.ID, CreateMatchInput{TournamentID: tour.ID, Round: 0, Player1ID: &a.ID})
	assert.ErrorIs(t, err, ErrInvalidMatch)
	_, err = env.matches.CreateMatch(env.ctx, env.admin.ID, CreateMatchInput{TournamentID: tour.ID, Round: 1, Player1ID: &a.ID, Player2ID: &a.ID})
	assert.ErrorIs(t, err, ErrInvalidMatch)
	_, err = env.matches.CreateMatch(env.ctx, env.admin.ID, CreateMatchInput{TournamentID: tour.ID, Round: 1, Player1ID: &a.ID, Player2ID: &outsider.ID})
	assert.ErrorIs(t, err, ErrPlayerNotRegistered)

	semi, err := env.matches.CreateMatch(env.ctx, env.admin.ID, CreateMatchInput{TournamentID: tour.ID, Round: 1, Player1ID: &a.ID, Player2ID: &b.ID})
	require.NoError(t, err)
	final, err := env.matches.CreateMatch(env.ctx, env.admin.ID, CreateMatchInput{TournamentID: tour.ID, Round: 2, Player1ID: &a.ID})
	require.NoError(t, err)

	err = env.matches.LinkNextMatch(env.ctx, env.admin.ID, LinkMatchInput{MatchID: semi.ID, NextMatchID: final.ID, Slot: 3})
	assert.ErrorIs(t, err, ErrInvalidMatch)
	err = env.matches.LinkNextMatch(env.ctx, env.admin.ID, LinkMatchInput{MatchID: final.ID, NextMatchID: semi.ID, Slot: 1})
	assert.ErrorIs(t, err, ErrInvalidMatch)
	require.NoError(t, env.matches.LinkNextMatch(env.ctx, env.admin.ID, LinkMatchInput{MatchID: semi.ID, NextMatchID: final.ID, Slot: 2}))

	matches, err := env.matches.ListMatches(env.ctx, tour.ID)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, semi.ID, matches[0].ID)
	require.NotNil(t, matches[0].NextMatchID)
	assert.Equal(t, final.ID, *matches[0].NextMatchID)
	assert.Equal(t, 2, *matches[0].NextSlot)
}

func TestGenerateLeagueFixtures(t *testing.T) {
	env := newTestEnv(t)
	tour, players := env.leagueWithPlayers(4)

	fixtures, err := env.matches.GenerateLeagueFixtures(env.ctx, env.admin.ID, tour.ID, 2)
	require.NoError(t, err)
	assert.Len(t, fixtures, 12)

	pairs := map[[2]int]int{}
	for _, m := range fixtures {
		require.False(t, m.IsBye())
		lo, hi := *m.Player1ID, *m.Player2ID
		if lo > hi {
			lo, hi = hi, lo
		}
		pairs[[2]int{lo, hi}]++
	}
	assert.Len(t, pairs, 6)
	for pair, n := range pairs {
		assert.Equal(t, 2, n, "pair %v", pair)
	}

	_, err = env.matches.GenerateLeagueFixtures(env.ctx, env.admin.ID, tour.ID, 1)
	assert.ErrorIs(t, err, ErrFixturesExist)

	env.flush()
	for i := range players {
		assert.True(t, env.sentTo(int64(500+i), "Fixtures for"))
	}
}

func TestGenerateLeagueFixtures_Rejections(t *testing.T) {
	env := newTestEnv(t)
	knockout := env.openTournament(models.TournamentKnockout, 4)
	_, err := env.matches.GenerateLeagueFixtures(env.ctx, env.admin.ID, knockout.ID, 1)
	assert.ErrorIs(t, err, ErrNotLeague)

	open := env.openTournament(models.TournamentLeague, 4)
	_, err = env.matches.GenerateLeagueFixtures(env.ctx, env.admin.ID, open.ID, 1)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)

	lonely, _ := env.leagueWithPlayers(1)
	_, err = env.matches.GenerateLeagueFixtures(env.ctx, env.admin.ID, lonely.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidMatch)
}
