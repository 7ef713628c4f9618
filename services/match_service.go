package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-hub/league"
	"github.com/Dosada05/tournament-hub/models"
	"github.com/Dosada05/tournament-hub/repositories"
)

type MatchResultInput struct {
	MatchID int `json:"-"`
	Score1  int `json:"score1"`
	Score2  int `json:"score2"`
}

type CreateMatchInput struct {
	TournamentID int        `json:"tournament_id"`
	Round        int        `json:"round"`
	Player1ID    *int       `json:"player1_id,omitempty"`
	Player2ID    *int       `json:"player2_id,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
}

type LinkMatchInput struct {
	MatchID     int `json:"-"`
	NextMatchID int `json:"next_match_id"`
	Slot        int `json:"slot"`
}

type MatchService struct {
	store    repositories.Store
	authz    *Authorizer
	notifier *Dispatcher
	live     LivePublisher
	audit    auditor
	logger   *slog.Logger
	now      func() time.Time
}

func NewMatchService(store repositories.Store, notifier *Dispatcher, live LivePublisher, logger *slog.Logger) *MatchService {
	return &MatchService{
		store:    store,
		authz:    NewAuthorizer(store),
		notifier: notifier,
		live:     orNoop(live),
		audit:    auditor{store: store, logger: logger},
		logger:   logger,
		now:      time.Now,
	}
}

// EnterResult completes a match. For leagues both players' standings move
// in the same unit of work; a second call for the same match fails with
// ErrAlreadyCompleted and changes nothing.
func (s *MatchService) EnterResult(ctx context.Context, actorID int, input MatchResultInput) (*models.StandingsDelta, error) {
	actor, err := s.authz.Staff(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if input.Score1 < 0 || input.Score2 < 0 {
		return nil, ErrNegativeScore
	}

	delta, err := s.store.CompleteMatch(ctx, input.MatchID, models.MatchResult{
		Score1: input.Score1,
		Score2: input.Score2,
		At:     s.now().UTC(),
	})
	if err != nil {
		return nil, handleRepositoryError(err, "complete match")
	}
	m := delta.Match

	s.logger.InfoContext(ctx, "Match result recorded",
		slog.Int("match_id", m.ID), slog.Int("score1", m.Score1), slog.Int("score2", m.Score2))
	s.audit.record(ctx, actor, "enter_result", "match %d: %d - %d", m.ID, m.Score1, m.Score2)
	s.notifyResult(ctx, &m)

	if delta.Type == models.TournamentLeague {
		if table, err := s.Standings(ctx, m.TournamentID); err == nil {
			s.live.Publish(m.TournamentID, "standings_updated", table)
		}
	} else {
		s.live.Publish(m.TournamentID, "match_completed", m)
	}
	return delta, nil
}

func (s *MatchService) notifyResult(ctx context.Context, m *models.Match) {
	p1, err1 := s.store.GetUserByID(ctx, *m.Player1ID)
	p2, err2 := s.store.GetUserByID(ctx, *m.Player2ID)
	if err := errors.Join(err1, err2); err != nil {
		s.logger.WarnContext(ctx, "Failed to load players for result notification", slog.Int("match_id", m.ID), slog.Any("error", err))
		return
	}
	winner := "draw"
	if m.WinnerID != nil {
		winner = p1.Handle
		if *m.WinnerID == p2.ID {
			winner = p2.Handle
		}
	}
	text := fmt.Sprintf("Match result: %s %d - %d %s. Winner: %s.", p1.Handle, m.Score1, m.Score2, p2.Handle, winner)
	s.notifier.Send(noticesFor([]*models.User{p1, p2}, text)...)
}

// Standings returns the ranked league table.
func (s *MatchService) Standings(ctx context.Context, tournamentID int) ([]*models.LeagueStanding, error) {
	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "load tournament")
	}
	if t.Type != models.TournamentLeague {
		return nil, ErrNotLeague
	}
	rows, err := s.store.ListStandings(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "list standings")
	}
	matches, err := s.store.ListMatches(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "list matches")
	}
	return league.Rank(rows, matches), nil
}

func (s *MatchService) ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	if _, err := s.store.GetTournament(ctx, tournamentID); err != nil {
		return nil, handleRepositoryError(err, "load tournament")
	}
	matches, err := s.store.ListMatches(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "list matches")
	}
	return matches, nil
}

// CreateMatch schedules one match. A nil player is a bye.
func (s *MatchService) CreateMatch(ctx context.Context, actorID int, input CreateMatchInput) (*models.Match, error) {
	actor, err := s.authz.Staff(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if input.Round < 1 {
		return nil, fmt.Errorf("%w: round must be at least 1", ErrInvalidMatch)
	}
	if input.Player1ID == nil && input.Player2ID == nil {
		return nil, fmt.Errorf("%w: at least one player is required", ErrInvalidMatch)
	}
	if input.Player1ID != nil && input.Player2ID != nil && *input.Player1ID == *input.Player2ID {
		return nil, fmt.Errorf("%w: a player cannot meet themselves", ErrInvalidMatch)
	}

	t, err := s.store.GetTournament(ctx, input.TournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "load tournament")
	}
	if t.Status == models.StatusCompleted {
		return nil, ErrTournamentInvalidStatusTransition
	}
	approved, err := s.approvedSet(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range []*int{input.Player1ID, input.Player2ID} {
		if p != nil && !approved[*p] {
			return nil, ErrPlayerNotRegistered
		}
	}

	m := &models.Match{
		TournamentID: t.ID,
		Round:        input.Round,
		Player1ID:    input.Player1ID,
		Player2ID:    input.Player2ID,
		ScheduledAt:  input.ScheduledAt,
	}
	if err := s.store.CreateMatches(ctx, []*models.Match{m}); err != nil {
		return nil, handleRepositoryError(err, "create match")
	}
	s.audit.record(ctx, actor, "create_match", "match %d in tournament %d round %d", m.ID, t.ID, m.Round)
	return m, nil
}

// LinkNextMatch records where the winner of a knockout match goes. Nothing
// moves players automatically; the link is for display and manual pairing.
func (s *MatchService) LinkNextMatch(ctx context.Context, actorID int, input LinkMatchInput) error {
	actor, err := s.authz.Staff(ctx, actorID)
	if err != nil {
		return err
	}
	if input.Slot != 1 && input.Slot != 2 {
		return fmt.Errorf("%w: slot must be 1 or 2", ErrInvalidMatch)
	}
	m, err := s.store.GetMatch(ctx, input.MatchID)
	if err != nil {
		return handleRepositoryError(err, "load match")
	}
	next, err := s.store.GetMatch(ctx, input.NextMatchID)
	if err != nil {
		return handleRepositoryError(err, "load next match")
	}
	if next.TournamentID != m.TournamentID || next.Round <= m.Round {
		return fmt.Errorf("%w: next match must be a later round of the same tournament", ErrInvalidMatch)
	}
	if err := s.store.SetNextMatch(ctx, m.ID, next.ID, input.Slot); err != nil {
		return handleRepositoryError(err, "link match")
	}
	s.audit.record(ctx, actor, "link_match", "match %d -> match %d slot %d", m.ID, next.ID, input.Slot)
	return nil
}

// GenerateLeagueFixtures schedules a full round robin between the approved
// players of an active league that has no matches yet.
func (s *MatchService) GenerateLeagueFixtures(ctx context.Context, actorID, tournamentID, legs int) ([]*models.Match, error) {
	actor, err := s.authz.Staff(ctx, actorID)
	if err != nil {
		return nil, err
	}
	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "load tournament")
	}
	if t.Type != models.TournamentLeague {
		return nil, ErrNotLeague
	}
	if t.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: fixtures are generated once the league is active", ErrTournamentInvalidStatusTransition)
	}
	existing, err := s.store.ListMatches(ctx, t.ID)
	if err != nil {
		return nil, handleRepositoryError(err, "list matches")
	}
	if len(existing) > 0 {
		return nil, ErrFixturesExist
	}

	players, err := s.store.ListApprovedUsers(ctx, repositories.ApprovedUsersFilter{TournamentID: &t.ID})
	if err != nil {
		return nil, handleRepositoryError(err, "list players")
	}
	if legs != 2 {
		legs = 1
	}
	ids := make([]int, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	fixtures, err := league.RoundRobin(ids, legs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMatch, err)
	}

	matches := make([]*models.Match, 0, len(fixtures))
	for _, f := range fixtures {
		p1, p2 := f.Player1, f.Player2
		matches = append(matches, &models.Match{TournamentID: t.ID, Round: f.Round, Player1ID: &p1, Player2ID: &p2})
	}
	if err := s.store.CreateMatches(ctx, matches); err != nil {
		return nil, handleRepositoryError(err, "create fixtures")
	}

	s.logger.InfoContext(ctx, "League fixtures generated", slog.Int("tournament_id", t.ID), slog.Int("matches", len(matches)))
	s.audit.record(ctx, actor, "generate_fixtures", "tournament %d: %d matches, %d leg(s)", t.ID, len(matches), legs)
	s.notifier.Send(noticesFor(players, fmt.Sprintf("Fixtures for %s are out. Check your matches in the app.", t.Name))...)
	s.live.Publish(t.ID, "fixtures_generated", matches)
	return matches, nil
}

func (s *MatchService) approvedSet(ctx context.Context, tournamentID int) (map[int]bool, error) {
	users, err := s.store.ListApprovedUsers(ctx, repositories.ApprovedUsersFilter{TournamentID: &tournamentID})
	if err != nil {
		return nil, handleRepositoryError(err, "list approved players")
	}
	set := make(map[int]bool, len(users))
	for _, u := range users {
		set[u.ID] = true
	}
	return set, nil
}
