package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-hub/models"
)

func TestBroadcast_LeagueTargetsApprovedPlayersOnce(t *testing.T) {
	env := newTestEnv(t)
	league := env.openTournament(models.TournamentLeague, 5, 5)
	for i := 0; i < 5; i++ {
		env.enrol(fmt.Sprintf("@l%d", i), int64(100+i), league.Brackets[i%2].ID)
	}
	// A player in two leagues still gets one delivery.
	other := env.openTournament(models.TournamentLeague, 5)
	repeat, err := env.store.GetUserByHandle(env.ctx, "@l0")
	require.NoError(t, err)
	reg := env.submit(repeat.ID, other.Brackets[0].ID)
	_, err = env.regs.Approve(env.ctx, env.admin.ID, reg.ID)
	require.NoError(t, err)

	knockout := env.openTournament(models.TournamentKnockout, 4)
	env.enrol("@k", 200, knockout.Brackets[0].ID)

	n, err := env.broadcasts.Broadcast(env.ctx, env.admin.ID, BroadcastInput{Target: models.TargetLeague, Body: " Matchday moved "})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	env.flush()
	for i := 0; i < 5; i++ {
		inbox, err := env.broadcasts.Inbox(env.ctx, userIDByHandle(t, env, fmt.Sprintf("@l%d", i)))
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		assert.Equal(t, "Matchday moved", inbox[0].Body)
		assert.True(t, env.sentTo(int64(100+i), "Matchday moved"))
	}
	assert.False(t, env.sentTo(200, "Matchday moved"))
}

func TestBroadcast_AllSkipsBanned(t *testing.T) {
	env := newTestEnv(t)
	env.player("@a", 10)
	banned := env.player("@b", 20)
	require.NoError(t, env.users.SetBanned(env.ctx, env.owner.ID, banned.ID, true))

	n, err := env.broadcasts.Broadcast(env.ctx, env.owner.ID, BroadcastInput{Target: models.TargetAll, Body: "hello"})
	require.NoError(t, err)
	// owner, admin and @a
	assert.Equal(t, 3, n)

	env.flush()
	assert.True(t, env.sentTo(10, "hello"))
	assert.False(t, env.sentTo(20, "hello"))
}

func TestBroadcast_SpecificAndMarkRead(t *testing.T) {
	env := newTestEnv(t)
	u := env.player("@target", 10)

	n, err := env.broadcasts.Broadcast(env.ctx, env.admin.ID, BroadcastInput{Target: models.TargetSpecific, SpecificHandle: "target", Body: "just you"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	inbox, err := env.broadcasts.Inbox(env.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Nil(t, inbox[0].ReadAt)

	require.NoError(t, env.broadcasts.MarkRead(env.ctx, u.ID, inbox[0].BroadcastID))
	inbox, err = env.broadcasts.Inbox(env.ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, inbox[0].ReadAt)

	err = env.broadcasts.MarkRead(env.ctx, env.admin.ID, inbox[0].BroadcastID)
	assert.ErrorIs(t, err, ErrBroadcastNotFound)
}

func TestBroadcast_Rejections(t *testing.T) {
	env := newTestEnv(t)
	u := env.player("@u", 10)

	_, err := env.broadcasts.Broadcast(env.ctx, u.ID, BroadcastInput{Target: models.TargetAll, Body: "hi"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.broadcasts.Broadcast(env.ctx, env.admin.ID, BroadcastInput{Target: models.TargetAll, Body: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = env.broadcasts.Broadcast(env.ctx, env.admin.ID, BroadcastInput{Target: "friends", Body: "hi"})
	assert.ErrorIs(t, err, ErrInvalidBroadcast)
	_, err = env.broadcasts.Broadcast(env.ctx, env.admin.ID, BroadcastInput{Target: models.TargetSpecific, Body: "hi"})
	assert.ErrorIs(t, err, ErrInvalidBroadcast)
	_, err = env.broadcasts.Broadcast(env.ctx, env.admin.ID, BroadcastInput{Target: models.TargetSpecific, SpecificHandle: "@ghost", Body: "hi"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func userIDByHandle(t *testing.T, env *testEnv, handle string) int {
	t.Helper()
	u, err := env.store.GetUserByHandle(env.ctx, handle)
	require.NoError(t, err)
	return u.ID
}
