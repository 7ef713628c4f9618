package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-hub/models"
	"github.com/Dosada05/tournament-hub/repositories"
	"github.com/Dosada05/tournament-hub/storage"
)

var testProof = base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notice
	fail map[int64]bool
}

func (n *recordingNotifier) Notify(_ context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[chatID] {
		return errors.New("gateway down")
	}
	n.sent = append(n.sent, Notice{ChatID: chatID, Text: text})
	return nil
}

func (n *recordingNotifier) textsFor(chatID int64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		if s.ChatID == chatID {
			out = append(out, s.Text)
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(tournamentID int, event string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, fmt.Sprintf("%d:%s", tournamentID, event))
}

type testEnv struct {
	t           *testing.T
	ctx         context.Context
	store       *repositories.MemoryStore
	notifier    *recordingNotifier
	live        *recordingPublisher
	dispatcher  *Dispatcher
	users       *UserService
	tournaments *TournamentService
	regs        *RegistrationService
	matches     *MatchService
	broadcasts  *BroadcastService
	messages    *MessageService
	owner       *models.User
	admin       *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repositories.NewMemoryStore()
	notifier := &recordingNotifier{fail: map[int64]bool{}}
	live := &recordingPublisher{}
	dispatcher := NewDispatcher(notifier, logger, time.Second)
	uploader, err := storage.NewLocalUploader(t.TempDir())
	require.NoError(t, err)

	matches := NewMatchService(store, dispatcher, live, logger)
	env := &testEnv{
		t:           t,
		ctx:         context.Background(),
		store:       store,
		notifier:    notifier,
		live:        live,
		dispatcher:  dispatcher,
		users:       NewUserService(store, nil, dispatcher, logger),
		tournaments: NewTournamentService(store, matches, dispatcher, live, logger, nil),
		regs:        NewRegistrationService(store, uploader, dispatcher, live, logger),
		matches:     matches,
		broadcasts:  NewBroadcastService(store, dispatcher, logger),
		messages:    NewMessageService(store, dispatcher, logger),
	}

	_, err = store.EnsureOwner(env.ctx, "@owner")
	require.NoError(t, err)
	env.owner = env.player("@owner", 1)
	env.admin = env.player("@admin", 2)
	require.NoError(t, store.SetUserRole(env.ctx, env.admin.ID, models.RoleAdmin))
	env.admin.Role = models.RoleAdmin
	return env
}

// player logs a user in through the store with the given chat id.
func (e *testEnv) player(handle string, chat int64) *models.User {
	e.t.Helper()
	u, _, err := e.store.UpsertOnLogin(e.ctx, models.LoginProfile{Handle: handle, ChatID: &chat})
	require.NoError(e.t, err)
	return u
}

// flush waits for every queued notification.
func (e *testEnv) flush() {
	e.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(e.t, e.dispatcher.Wait(ctx))
}

// openTournament creates a tournament with the given capacities and opens registration.
func (e *testEnv) openTournament(typ models.TournamentType, capacities ...int) *models.Tournament {
	e.t.Helper()
	brackets := make([]BracketInput, 0, len(capacities))
	for i, c := range capacities {
		brackets = append(brackets, BracketInput{Amount: 30 * (i + 1), MaxPlayers: c})
	}
	tour, err := e.tournaments.Create(e.ctx, e.owner.ID, CreateTournamentInput{Name: "Cup", Type: typ, Brackets: brackets})
	require.NoError(e.t, err)
	_, err = e.tournaments.Start(e.ctx, e.owner.ID, tour.ID)
	require.NoError(e.t, err)
	return tour
}

func (e *testEnv) submit(userID, bracketID int) *models.Registration {
	e.t.Helper()
	reg, err := e.regs.Submit(e.ctx, SubmitRegistrationInput{UserID: userID, BracketID: bracketID, Proof: testProof})
	require.NoError(e.t, err)
	return reg
}

// enrol submits and approves, returning the player.
func (e *testEnv) enrol(handle string, chat int64, bracketID int) *models.User {
	e.t.Helper()
	u := e.player(handle, chat)
	reg := e.submit(u.ID, bracketID)
	_, err := e.regs.Approve(e.ctx, e.admin.ID, reg.ID)
	require.NoError(e.t, err)
	return u
}

func (e *testEnv) activate(tournamentID int) {
	e.t.Helper()
	t, err := e.tournaments.Start(e.ctx, e.owner.ID, tournamentID)
	require.NoError(e.t, err)
	require.Equal(e.t, models.StatusActive, t.Status)
}

// sentTo reports whether chat received a notice containing substr.
func (e *testEnv) sentTo(chat int64, substr string) bool {
	for _, text := range e.notifier.textsFor(chat) {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}
