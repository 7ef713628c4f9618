package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tournament-hub/models"
)

type standingKey struct{ tournamentID, userID int }

type deliveryKey struct{ broadcastID, userID int }

// MemoryStore is an in-process Store. One mutex covers every operation, so
// each call is a single critical section with the same all-or-nothing
// behaviour as a PostgresStore transaction. Returned values are copies.
type MemoryStore struct {
	mu  sync.Mutex
	now func() time.Time

	nextID map[string]int

	users         map[int]*models.User
	tournaments   map[int]*models.Tournament
	brackets      map[int]*models.Bracket
	registrations map[int]*models.Registration
	matches       map[int]*models.Match
	standings     map[standingKey]*models.LeagueStanding
	broadcasts    map[int]*models.Broadcast
	deliveries    map[deliveryKey]*models.UserBroadcast
	messages      map[int]*models.Message
	adminLogs     []*models.AdminLog
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:           func() time.Time { return time.Now().UTC() },
		nextID:        make(map[string]int),
		users:         make(map[int]*models.User),
		tournaments:   make(map[int]*models.Tournament),
		brackets:      make(map[int]*models.Bracket),
		registrations: make(map[int]*models.Registration),
		matches:       make(map[int]*models.Match),
		standings:     make(map[standingKey]*models.LeagueStanding),
		broadcasts:    make(map[int]*models.Broadcast),
		deliveries:    make(map[deliveryKey]*models.UserBroadcast),
		messages:      make(map[int]*models.Message),
	}
}

func (s *MemoryStore) id(table string) int {
	s.nextID[table]++
	return s.nextID[table]
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

// Users

func (s *MemoryStore) UpsertOnLogin(_ context.Context, profile models.LoginProfile) (*models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u := s.userByHandle(profile.Handle); u != nil {
		if profile.Phone != nil {
			u.Phone = profile.Phone
		}
		if profile.ChatID != nil {
			u.ChatID = profile.ChatID
		}
		return copyUser(u), false, nil
	}
	u := &models.User{
		ID:       s.id("users"),
		Handle:   profile.Handle,
		Phone:    profile.Phone,
		ChatID:   profile.ChatID,
		Role:     models.RoleNone,
		JoinedAt: s.now(),
	}
	s.users[u.ID] = u
	return copyUser(u), true, nil
}

func (s *MemoryStore) userByHandle(handle string) *models.User {
	for _, u := range s.users {
		if u.Handle == handle {
			return u
		}
	}
	return nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) GetUserByHandle(_ context.Context, handle string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByHandle(handle)
	if u == nil {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) EnsureOwner(_ context.Context, handle string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByHandle(handle)
	if u == nil {
		u = &models.User{ID: s.id("users"), Handle: handle, JoinedAt: s.now()}
		s.users[u.ID] = u
	}
	u.Role = models.RoleOwner
	return copyUser(u), nil
}

func (s *MemoryStore) SetUserRole(_ context.Context, id int, role models.UserRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (s *MemoryStore) SetUserBanned(_ context.Context, id int, banned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Banned = banned
	return nil
}

func (s *MemoryStore) usersWhere(keep func(*models.User) bool) []*models.User {
	users := make([]*models.User, 0)
	for _, u := range s.users {
		if keep(u) {
			users = append(users, copyUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (s *MemoryStore) ListUsersWithChat(_ context.Context, includeBanned bool) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usersWhere(func(u *models.User) bool {
		return u.ChatID != nil && (includeBanned || !u.Banned)
	}), nil
}

func (s *MemoryStore) ListStaff(_ context.Context) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usersWhere(func(u *models.User) bool { return u.Role.IsStaff() }), nil
}

func (s *MemoryStore) ListApprovedUsers(_ context.Context, filter ApprovedUsersFilter) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	approved := make(map[int]bool)
	for _, r := range s.registrations {
		if r.Status != models.RegistrationApproved {
			continue
		}
		t := s.tournaments[r.TournamentID]
		if filter.TournamentType != nil && t.Type != *filter.TournamentType {
			continue
		}
		if filter.TournamentID != nil && t.ID != *filter.TournamentID {
			continue
		}
		approved[r.UserID] = true
	}
	return s.usersWhere(func(u *models.User) bool { return approved[u.ID] }), nil
}

// Tournaments and brackets

func copyTournament(t *models.Tournament) *models.Tournament {
	c := *t
	c.Brackets = nil
	return &c
}

func copyBracket(b *models.Bracket) *models.Bracket {
	c := *b
	return &c
}

func (s *MemoryStore) CreateTournament(_ context.Context, t *models.Tournament, brackets []*models.Bracket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = s.id("tournaments")
	t.CreatedAt = s.now()
	s.tournaments[t.ID] = copyTournament(t)
	for _, b := range brackets {
		b.ID = s.id("brackets")
		b.TournamentID = t.ID
		b.CurrentRegistered = 0
		s.brackets[b.ID] = copyBracket(b)
	}
	t.Brackets = brackets
	return nil
}

func (s *MemoryStore) GetTournament(_ context.Context, id int) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return copyTournament(t), nil
}

func containsStatus(list []models.TournamentStatus, st models.TournamentStatus) bool {
	for _, v := range list {
		if v == st {
			return true
		}
	}
	return false
}

func (s *MemoryStore) ListTournaments(_ context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Tournament, 0)
	for _, t := range s.tournaments {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if containsStatus(filter.ExcludeStatuses, t.Status) {
			continue
		}
		out = append(out, copyTournament(t))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if filter.ByCompletion {
			switch {
			case a.CompletedAt == nil && b.CompletedAt != nil:
				return false
			case a.CompletedAt != nil && b.CompletedAt == nil:
				return true
			case a.CompletedAt != nil && !a.CompletedAt.Equal(*b.CompletedAt):
				return a.CompletedAt.After(*b.CompletedAt)
			}
		} else if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) TransitionTournament(_ context.Context, id int, tr models.TournamentTransition) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	if t.Status != tr.From {
		return nil, ErrStatusConflict
	}
	t.Status = tr.To
	if tr.WinnerID != nil {
		t.WinnerID = tr.WinnerID
	}
	if tr.CompletedAt != nil {
		t.CompletedAt = tr.CompletedAt
	}
	return copyTournament(t), nil
}

func (s *MemoryStore) GetBracket(_ context.Context, id int) (*models.Bracket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.brackets[id]
	if !ok {
		return nil, ErrBracketNotFound
	}
	return copyBracket(b), nil
}

func (s *MemoryStore) ListBrackets(_ context.Context, tournamentID int) ([]*models.Bracket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Bracket, 0)
	for _, b := range s.brackets {
		if b.TournamentID == tournamentID {
			out = append(out, copyBracket(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount < out[j].Amount
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
