package repositories

import (
	"context"
	"sort"
	"time"

	"github.com/Dosada05/tournament-hub/league"
	"github.com/Dosada05/tournament-hub/models"
)

// Registrations

func (s *MemoryStore) copyRegistration(r *models.Registration) *models.Registration {
	c := *r
	if t, ok := s.tournaments[r.TournamentID]; ok {
		c.TournamentType = t.Type
	}
	return &c
}

func (s *MemoryStore) hasApproved(userID, tournamentID, exceptID int) bool {
	for _, r := range s.registrations {
		if r.ID != exceptID && r.UserID == userID && r.TournamentID == tournamentID &&
			r.Status == models.RegistrationApproved {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateRegistration(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.brackets[reg.BracketID]
	if !ok {
		return ErrBracketNotFound
	}
	t := s.tournaments[b.TournamentID]
	if !b.Active || t.Status != models.StatusRegistration {
		return ErrRegistrationClosed
	}
	if _, ok := s.users[reg.UserID]; !ok {
		return ErrUserNotFound
	}
	if s.hasApproved(reg.UserID, t.ID, 0) {
		return ErrDuplicateApproved
	}

	reg.ID = s.id("registrations")
	reg.TournamentID = t.ID
	reg.TournamentType = t.Type
	reg.Status = models.RegistrationPending
	reg.SubmittedAt = s.now()
	stored := *reg
	s.registrations[reg.ID] = &stored
	return nil
}

func (s *MemoryStore) GetRegistration(_ context.Context, id int) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	return s.copyRegistration(r), nil
}

func (s *MemoryStore) ListRegistrations(_ context.Context, filter ListRegistrationsFilter) ([]*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Registration, 0)
	for _, r := range s.registrations {
		if filter.UserID != nil && r.UserID != *filter.UserID {
			continue
		}
		if filter.TournamentID != nil && r.TournamentID != *filter.TournamentID {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		out = append(out, s.copyRegistration(r))
	}
	oldestFirst := filter.Status != nil && *filter.Status == models.RegistrationPending
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt) == oldestFirst
		}
		return (a.ID < b.ID) == oldestFirst
	})
	return out, nil
}

func (s *MemoryStore) pendingRegistration(id int) (*models.Registration, error) {
	r, ok := s.registrations[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	if r.Status.Decided() {
		return nil, ErrRegistrationDecided
	}
	return r, nil
}

func (s *MemoryStore) ApproveRegistration(_ context.Context, id int, d models.Decision) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.pendingRegistration(id)
	if err != nil {
		return nil, err
	}
	if s.hasApproved(r.UserID, r.TournamentID, r.ID) {
		return nil, ErrDuplicateApproved
	}
	b, ok := s.brackets[r.BracketID]
	if !ok {
		return nil, ErrBracketNotFound
	}
	if !b.HasCapacity() {
		return nil, ErrBracketFull
	}

	b.CurrentRegistered++
	actor, at := d.Actor, d.At
	r.Status = models.RegistrationApproved
	r.DecidedBy = &actor
	r.DecidedAt = &at

	if t := s.tournaments[r.TournamentID]; t.Type == models.TournamentLeague {
		s.standingRow(t.ID, r.UserID)
	}
	return s.copyRegistration(r), nil
}

func (s *MemoryStore) RejectRegistration(_ context.Context, id int, d models.Decision) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.pendingRegistration(id)
	if err != nil {
		return nil, err
	}
	actor, reason, at := d.Actor, d.Reason, d.At
	r.Status = models.RegistrationRejected
	r.RejectionReason = &reason
	r.DecidedBy = &actor
	r.DecidedAt = &at
	return s.copyRegistration(r), nil
}

// Matches and standings

func copyMatch(m *models.Match) *models.Match {
	c := *m
	return &c
}

// standingRow returns the live row, creating an empty one if needed.
func (s *MemoryStore) standingRow(tournamentID, userID int) *models.LeagueStanding {
	key := standingKey{tournamentID, userID}
	row, ok := s.standings[key]
	if !ok {
		row = &models.LeagueStanding{ID: s.id("league_standings"), TournamentID: tournamentID, UserID: userID}
		s.standings[key] = row
	}
	return row
}

func (s *MemoryStore) CreateMatches(_ context.Context, matches []*models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range matches {
		if _, ok := s.tournaments[m.TournamentID]; !ok {
			return ErrMatchTournamentFK
		}
		for _, p := range []*int{m.Player1ID, m.Player2ID} {
			if p == nil {
				continue
			}
			if _, ok := s.users[*p]; !ok {
				return ErrMatchTournamentFK
			}
		}
	}
	for _, m := range matches {
		m.ID = s.id("matches")
		m.Status = models.MatchScheduled
		s.matches[m.ID] = copyMatch(m)
	}
	return nil
}

func (s *MemoryStore) GetMatch(_ context.Context, id int) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return copyMatch(m), nil
}

func (s *MemoryStore) ListMatches(_ context.Context, tournamentID int) ([]*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Match, 0)
	for _, m := range s.matches {
		if m.TournamentID == tournamentID {
			out = append(out, copyMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) SetNextMatch(_ context.Context, matchID, nextMatchID, slot int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok {
		return ErrMatchNotFound
	}
	if _, ok := s.matches[nextMatchID]; !ok {
		return ErrMatchNotFound
	}
	next, nextSlot := nextMatchID, slot
	m.NextMatchID = &next
	m.NextSlot = &nextSlot
	return nil
}

func (s *MemoryStore) CompleteMatch(_ context.Context, id int, res models.MatchResult) (*models.StandingsDelta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if m.Status == models.MatchCompleted {
		return nil, ErrMatchCompleted
	}
	if m.IsBye() {
		return nil, ErrMatchHasBye
	}

	t := s.tournaments[m.TournamentID]
	delta := &models.StandingsDelta{Type: t.Type}
	if t.Type == models.TournamentLeague {
		row1 := s.standingRow(t.ID, *m.Player1ID)
		row2 := s.standingRow(t.ID, *m.Player2ID)
		delta.Changes = league.ApplyMatch(row1, row2, res.Score1, res.Score2)
	}

	at := res.At
	m.Score1, m.Score2 = res.Score1, res.Score2
	m.WinnerID = league.Decide(m, res.Score1, res.Score2)
	m.Status = models.MatchCompleted
	m.CompletedAt = &at
	delta.Match = *m
	return delta, nil
}

func (s *MemoryStore) ListStandings(_ context.Context, tournamentID int) ([]*models.LeagueStanding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.LeagueStanding, 0)
	for key, row := range s.standings {
		if key.tournamentID != tournamentID {
			continue
		}
		c := *row
		if u, ok := s.users[row.UserID]; ok {
			c.Handle = u.Handle
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Points != b.Points:
			return a.Points > b.Points
		case a.GoalDifference != b.GoalDifference:
			return a.GoalDifference > b.GoalDifference
		case a.GoalsFor != b.GoalsFor:
			return a.GoalsFor > b.GoalsFor
		default:
			return a.UserID < b.UserID
		}
	})
	return out, nil
}

// Broadcasts

func (s *MemoryStore) CreateBroadcast(_ context.Context, b *models.Broadcast, recipientIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[b.AuthorID]; !ok {
		return ErrBroadcastRecipientFK
	}
	for _, userID := range recipientIDs {
		if _, ok := s.users[userID]; !ok {
			return ErrBroadcastRecipientFK
		}
	}

	b.ID = s.id("broadcasts")
	b.CreatedAt = s.now()
	stored := *b
	s.broadcasts[b.ID] = &stored
	for _, userID := range recipientIDs {
		key := deliveryKey{b.ID, userID}
		if _, dup := s.deliveries[key]; !dup {
			s.deliveries[key] = &models.UserBroadcast{BroadcastID: b.ID, UserID: userID}
		}
	}
	return nil
}

func (s *MemoryStore) ListUserBroadcasts(_ context.Context, userID int) ([]*models.UserBroadcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.UserBroadcast, 0)
	for key, d := range s.deliveries {
		if key.userID != userID {
			continue
		}
		b := s.broadcasts[key.broadcastID]
		c := *d
		c.Body, c.Target, c.CreatedAt = b.Body, b.Target, b.CreatedAt
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].BroadcastID > out[j].BroadcastID
	})
	return out, nil
}

func (s *MemoryStore) MarkBroadcastRead(_ context.Context, userID, broadcastID int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deliveries[deliveryKey{broadcastID, userID}]
	if !ok {
		return ErrBroadcastNotFound
	}
	if d.ReadAt == nil {
		d.ReadAt = &at
	}
	return nil
}

// Messages

func (s *MemoryStore) CreateMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[m.FromUserID]; !ok {
		return ErrUserNotFound
	}
	if m.ToUserID != nil {
		if _, ok := s.users[*m.ToUserID]; !ok {
			return ErrUserNotFound
		}
	}
	m.ID = s.id("messages")
	m.Read = false
	m.SentAt = s.now()
	stored := *m
	s.messages[m.ID] = &stored
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, filter ListMessagesFilter) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Message, 0)
	for _, m := range s.messages {
		if filter.Kind != nil && m.Kind != *filter.Kind {
			continue
		}
		if p := filter.Participant; p != nil &&
			m.FromUserID != *p && (m.ToUserID == nil || *m.ToUserID != *p) {
			continue
		}
		c := *m
		if u, ok := s.users[m.FromUserID]; ok {
			c.FromHandle = u.Handle
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].SentAt.After(out[j].SentAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkMessagesRead(_ context.Context, ids []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			m.Read = true
		}
	}
	return nil
}

// Audit

func (s *MemoryStore) RecordAdminAction(_ context.Context, entry *models.AdminLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.id("admin_logs")
	entry.CreatedAt = s.now()
	stored := *entry
	s.adminLogs = append(s.adminLogs, &stored)
	return nil
}

func (s *MemoryStore) ListAdminLogs(_ context.Context, limit int) ([]*models.AdminLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	out := make([]*models.AdminLog, 0, limit)
	for i := len(s.adminLogs) - 1; i >= 0 && len(out) < limit; i-- {
		c := *s.adminLogs[i]
		out = append(out, &c)
	}
	return out, nil
}
