package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-hub/models"
)

func TestCreateTournament(t *testing.T) {
	env := newTestEnv(t)

	tour, err := env.tournaments.Create(env.ctx, env.owner.ID, CreateTournamentInput{Name: "  Weekend Cup ", Type: models.TournamentKnockout})
	require.NoError(t, err)
	assert.Equal(t, "Weekend Cup", tour.Name)
	assert.Equal(t, models.StatusNotStarted, tour.Status)
	require.Len(t, tour.Brackets, 3)
	assert.Equal(t, 30, tour.Brackets[0].Amount)
	assert.Equal(t, 16, tour.Brackets[0].MaxPlayers)
	assert.Equal(t, 64, tour.Brackets[2].MaxPlayers)

	custom, err := env.tournaments.Create(env.ctx, env.owner.ID, CreateTournamentInput{
		Name: "Night League", Type: models.TournamentLeague,
		Brackets: []BracketInput{{Amount: 20, MaxPlayers: 6}, {Amount: 40, MaxPlayers: 6, Inactive: true}},
	})
	require.NoError(t, err)
	require.Len(t, custom.Brackets, 2)
	assert.True(t, custom.Brackets[0].Active)
	assert.False(t, custom.Brackets[1].Active)
}

func TestCreateTournament_Rejections(t *testing.T) {
	env := newTestEnv(t)
	cases := map[string]struct {
		actor int
		input CreateTournamentInput
		want  error
	}{
		"admin is not owner": {env.admin.ID, CreateTournamentInput{Name: "x", Type: models.TournamentLeague}, ErrForbidden},
		"blank name":         {env.owner.ID, CreateTournamentInput{Name: "  ", Type: models.TournamentLeague}, ErrInvalidTournament},
		"unknown type":       {env.owner.ID, CreateTournamentInput{Name: "x", Type: "swiss"}, ErrInvalidTournament},
		"zero capacity": {env.owner.ID, CreateTournamentInput{
			Name: "x", Type: models.TournamentLeague, Brackets: []BracketInput{{Amount: 30, MaxPlayers: 0}},
		}, ErrInvalidTournament},
		"negative amount": {env.owner.ID, CreateTournamentInput{
			Name: "x", Type: models.TournamentLeague, Brackets: []BracketInput{{Amount: -1, MaxPlayers: 4}},
		}, ErrInvalidTournament},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.tournaments.Create(env.ctx, tc.actor, tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTournamentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	early := env.player("@early", 77)

	tour, err := env.tournaments.Create(env.ctx, env.owner.ID, CreateTournamentInput{
		Name: "Cup", Type: models.TournamentKnockout, Brackets: []BracketInput{{Amount: 30, MaxPlayers: 4}},
	})
	require.NoError(t, err)

	_, err = env.tournaments.Complete(env.ctx, env.owner.ID, tour.ID, nil)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)

	_, err = env.tournaments.Start(env.ctx, env.admin.ID, tour.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	opened, err := env.tournaments.Start(env.ctx, env.owner.ID, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistration, opened.Status)

	a := env.enrol("@a", 10, tour.Brackets[0].ID)
	env.activate(tour.ID)

	_, err = env.tournaments.Start(env.ctx, env.owner.ID, tour.ID)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)

	_, err = env.tournaments.Complete(env.ctx, env.owner.ID, tour.ID, &early.ID)
	assert.ErrorIs(t, err, ErrWinnerNotParticipant)

	done, err := env.tournaments.Complete(env.ctx, env.owner.ID, tour.ID, &a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.Winner)
	assert.Equal(t, "@a", done.Winner.Handle)

	_, err = env.tournaments.Complete(env.ctx, env.owner.ID, tour.ID, &a.ID)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)

	env.flush()
	assert.True(t, env.sentTo(77, "open for registration"))
	assert.True(t, env.sentTo(10, "has started"))
	assert.True(t, env.sentTo(10, "winner: @a"))
	assert.True(t, env.sentTo(77, "has started"), "start reaches every user with a chat")
	assert.Equal(t, []string{
		itoaEvent(tour.ID, "status_changed"),
		itoaEvent(tour.ID, "bracket_updated"),
		itoaEvent(tour.ID, "status_changed"),
		itoaEvent(tour.ID, "status_changed"),
	}, env.live.events)
}

func TestStart_UnknownTournament(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.tournaments.Start(env.ctx, env.owner.ID, 404)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestComplete_LeagueDefaultsToTableLeader(t *testing.T) {
	env := newTestEnv(t)
	tour, players := env.leagueWithPlayers(3)
	fixtures, err := env.matches.GenerateLeagueFixtures(env.ctx, env.admin.ID, tour.ID, 1)
	require.NoError(t, err)

	// players[2] wins every game it plays.
	for _, m := range fixtures {
		s1, s2 := 1, 1
		switch players[2].ID {
		case *m.Player1ID:
			s1, s2 = 2, 0
		case *m.Player2ID:
			s1, s2 = 0, 2
		}
		_, err := env.matches.EnterResult(env.ctx, env.admin.ID, MatchResultInput{MatchID: m.ID, Score1: s1, Score2: s2})
		require.NoError(t, err)
	}

	done, err := env.tournaments.Complete(env.ctx, env.owner.ID, tour.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, done.WinnerID)
	assert.Equal(t, players[2].ID, *done.WinnerID)

	details, err := env.tournaments.Get(env.ctx, tour.ID)
	require.NoError(t, err)
	assert.Len(t, details.Matches, 3)
	require.Len(t, details.Standings, 3)
	assert.Equal(t, players[2].ID, details.Standings[0].UserID)
	assert.Equal(t, 6, details.Standings[0].Points)
	require.NotNil(t, details.Winner)
	assert.Equal(t, players[2].Handle, details.Winner.Handle)
	assert.Len(t, details.Brackets, 1)
}

func TestListAndHistory(t *testing.T) {
	env := newTestEnv(t)
	first := env.openTournament(models.TournamentKnockout, 2)
	env.enrol("@a", 10, first.Brackets[0].ID)
	env.activate(first.ID)
	second := env.openTournament(models.TournamentKnockout, 2)
	env.activate(second.ID)
	pending, err := env.tournaments.Create(env.ctx, env.owner.ID, CreateTournamentInput{Name: "Soon", Type: models.TournamentLeague})
	require.NoError(t, err)

	a, err := env.store.GetUserByHandle(env.ctx, "@a")
	require.NoError(t, err)
	_, err = env.tournaments.Complete(env.ctx, env.owner.ID, first.ID, &a.ID)
	require.NoError(t, err)
	_, err = env.tournaments.Complete(env.ctx, env.owner.ID, second.ID, nil)
	require.NoError(t, err)

	live, err := env.tournaments.List(env.ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, pending.ID, live[0].ID)
	assert.Len(t, live[0].Brackets, 3)

	history, err := env.tournaments.History(env.ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
	assert.Nil(t, history[0].WinnerID)
}

func TestComplete_KnockoutNeedsWinner(t *testing.T) {
	env := newTestEnv(t)
	tour := env.openTournament(models.TournamentKnockout, 4)
	a := env.enrol("@a", 10, tour.Brackets[0].ID)
	env.activate(tour.ID)

	_, err := env.tournaments.Complete(env.ctx, env.owner.ID, tour.ID, nil)
	assert.ErrorIs(t, err, ErrWinnerRequired)
	assert.ErrorIs(t, err, ErrInvalidInput)

	still, err := env.store.GetTournament(env.ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, still.Status)
	assert.Nil(t, still.CompletedAt)

	done, err := env.tournaments.Complete(env.ctx, env.owner.ID, tour.ID, &a.ID)
	require.NoError(t, err)
	require.NotNil(t, done.WinnerID)
	assert.Equal(t, a.ID, *done.WinnerID)
}

func TestStart_ActivationNotifiesBystanders(t *testing.T) {
	env := newTestEnv(t)
	tour := env.openTournament(models.TournamentKnockout, 4)
	env.enrol("@a", 10, tour.Brackets[0].ID)
	env.player("@bystander", 78)
	banned := env.player("@banned", 79)
	require.NoError(t, env.users.SetBanned(env.ctx, env.owner.ID, banned.ID, true))

	_, err := env.tournaments.Start(env.ctx, env.owner.ID, tour.ID)
	require.NoError(t, err)

	env.flush()
	assert.True(t, env.sentTo(10, "has started"))
	assert.True(t, env.sentTo(78, "has started"))
	assert.False(t, env.sentTo(79, "has started"))
}

func itoaEvent(id int, event string) string {
	return fmt.Sprintf("%d:%s", id, event)
}
