package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tournament-hub/models"
	"github.com/Dosada05/tournament-hub/repositories"
)

const historyLimit = 20

type BracketInput struct {
	Amount     int  `json:"amount"`
	MaxPlayers int  `json:"max_players"`
	Inactive   bool `json:"inactive,omitempty"`
}

type CreateTournamentInput struct {
	Name     string                `json:"name"`
	Type     models.TournamentType `json:"type"`
	Brackets []BracketInput        `json:"brackets"`
}

// DefaultBrackets are the tiers a tournament gets when none are given.
var DefaultBrackets = map[models.TournamentType][]BracketInput{
	models.TournamentKnockout: {
		{Amount: 30, MaxPlayers: 16},
		{Amount: 50, MaxPlayers: 32},
		{Amount: 100, MaxPlayers: 64},
	},
	models.TournamentLeague: {
		{Amount: 30, MaxPlayers: 15},
		{Amount: 50, MaxPlayers: 15},
		{Amount: 100, MaxPlayers: 15},
	},
}

// TournamentDetails is a tournament with what a viewer needs next to it.
type TournamentDetails struct {
	*models.Tournament
	Standings []*models.LeagueStanding `json:"standings,omitempty"`
	Matches   []*models.Match          `json:"matches"`
}

type TournamentService struct {
	store    repositories.Store
	authz    *Authorizer
	matches  *MatchService
	notifier *Dispatcher
	live     LivePublisher
	audit    auditor
	logger   *slog.Logger
	defaults map[models.TournamentType][]BracketInput
	now      func() time.Time
}

func NewTournamentService(
	store repositories.Store,
	matches *MatchService,
	notifier *Dispatcher,
	live LivePublisher,
	logger *slog.Logger,
	defaults map[models.TournamentType][]BracketInput,
) *TournamentService {
	if defaults == nil {
		defaults = DefaultBrackets
	}
	return &TournamentService{
		store:    store,
		authz:    NewAuthorizer(store),
		matches:  matches,
		notifier: notifier,
		live:     orNoop(live),
		audit:    auditor{store: store, logger: logger},
		logger:   logger,
		defaults: defaults,
		now:      time.Now,
	}
}

func validateBrackets(brackets []BracketInput) error {
	if len(brackets) == 0 {
		return fmt.Errorf("%w: at least one bracket is required", ErrInvalidTournament)
	}
	for i, b := range brackets {
		if b.MaxPlayers <= 0 {
			return fmt.Errorf("%w: bracket %d max_players must be positive", ErrInvalidTournament, i+1)
		}
		if b.Amount < 0 {
			return fmt.Errorf("%w: bracket %d amount cannot be negative", ErrInvalidTournament, i+1)
		}
	}
	return nil
}

func (s *TournamentService) Create(ctx context.Context, actorID int, input CreateTournamentInput) (*models.Tournament, error) {
	actor, err := s.authz.Owner(ctx, actorID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTournament)
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: type must be knockout or league", ErrInvalidTournament)
	}
	tiers := input.Brackets
	if len(tiers) == 0 {
		tiers = s.defaults[input.Type]
	}
	if err := validateBrackets(tiers); err != nil {
		return nil, err
	}

	t := &models.Tournament{Name: name, Type: input.Type, Status: models.StatusNotStarted}
	brackets := make([]*models.Bracket, 0, len(tiers))
	for _, b := range tiers {
		brackets = append(brackets, &models.Bracket{Amount: b.Amount, MaxPlayers: b.MaxPlayers, Active: !b.Inactive})
	}
	if err := s.store.CreateTournament(ctx, t, brackets); err != nil {
		return nil, handleRepositoryError(err, "create tournament")
	}

	s.logger.InfoContext(ctx, "Tournament created", slog.Int("tournament_id", t.ID), slog.String("type", string(t.Type)))
	s.audit.record(ctx, actor, "create_tournament", "created %s tournament %q (%d brackets)", t.Type, t.Name, len(brackets))
	return t, nil
}

// Start moves not_started to registration, or registration to active.
func (s *TournamentService) Start(ctx context.Context, actorID, tournamentID int) (*models.Tournament, error) {
	actor, err := s.authz.Owner(ctx, actorID)
	if err != nil {
		return nil, err
	}
	current, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "load tournament")
	}
	if current.Status != models.StatusNotStarted && current.Status != models.StatusRegistration {
		return nil, ErrTournamentInvalidStatusTransition
	}
	next, _ := current.Status.Next()

	t, err := s.store.TransitionTournament(ctx, tournamentID, models.TournamentTransition{From: current.Status, To: next})
	if err != nil {
		return nil, handleRepositoryError(err, "start tournament")
	}

	s.logger.InfoContext(ctx, "Tournament advanced", slog.Int("tournament_id", t.ID), slog.String("status", string(t.Status)))
	s.audit.record(ctx, actor, "start_tournament", "tournament %d: %s -> %s", t.ID, current.Status, t.Status)

	text := fmt.Sprintf("%s has started. Good luck!", t.Name)
	if t.Status == models.StatusRegistration {
		text = fmt.Sprintf("%s (%s) is now open for registration. Register now in the app.", t.Name, t.Type)
	}
	recipients, err := s.store.ListUsersWithChat(ctx, false)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to resolve start notification recipients", slog.Int("tournament_id", t.ID), slog.Any("error", err))
	} else {
		s.notifier.Send(noticesFor(recipients, text)...)
	}
	s.live.Publish(t.ID, "status_changed", t)
	return t, nil
}

// Complete closes an active tournament. For a league a nil winner means the
// current table leader. A knockout with players must name its winner.
func (s *TournamentService) Complete(ctx context.Context, actorID, tournamentID int, winnerID *int) (*models.Tournament, error) {
	actor, err := s.authz.Owner(ctx, actorID)
	if err != nil {
		return nil, err
	}
	current, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "load tournament")
	}
	if current.Status != models.StatusActive {
		return nil, ErrTournamentInvalidStatusTransition
	}

	participants, err := s.store.ListApprovedUsers(ctx, repositories.ApprovedUsersFilter{TournamentID: &current.ID})
	if err != nil {
		return nil, handleRepositoryError(err, "list participants")
	}
	if winnerID == nil && current.Type == models.TournamentLeague {
		table, err := s.matches.Standings(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		if len(table) > 0 {
			winnerID = &table[0].UserID
		}
	}
	if winnerID == nil && current.Type == models.TournamentKnockout && len(participants) > 0 {
		return nil, ErrWinnerRequired
	}
	var winner *models.User
	if winnerID != nil {
		for _, p := range participants {
			if p.ID == *winnerID {
				winner = p
			}
		}
		if winner == nil {
			return nil, ErrWinnerNotParticipant
		}
	}

	completedAt := s.now().UTC()
	t, err := s.store.TransitionTournament(ctx, current.ID, models.TournamentTransition{
		From:        models.StatusActive,
		To:          models.StatusCompleted,
		WinnerID:    winnerID,
		CompletedAt: &completedAt,
	})
	if err != nil {
		return nil, handleRepositoryError(err, "complete tournament")
	}
	t.Winner = winner

	winnerText := "no winner recorded"
	if winner != nil {
		winnerText = "winner: " + winner.Handle
	}
	s.logger.InfoContext(ctx, "Tournament completed", slog.Int("tournament_id", t.ID))
	s.audit.record(ctx, actor, "complete_tournament", "tournament %d completed, %s", t.ID, winnerText)
	s.notifier.Send(noticesFor(participants, fmt.Sprintf("%s is over, %s. Thanks for playing!", t.Name, winnerText))...)
	s.live.Publish(t.ID, "status_changed", t)
	return t, nil
}

// Get loads a tournament with its brackets, matches and, for leagues, the
// ranked table.
func (s *TournamentService) Get(ctx context.Context, tournamentID int) (*TournamentDetails, error) {
	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, "load tournament")
	}
	details := &TournamentDetails{Tournament: t}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		brackets, err := s.store.ListBrackets(gCtx, t.ID)
		if err != nil {
			return handleRepositoryError(err, "list brackets")
		}
		t.Brackets = brackets
		return nil
	})
	g.Go(func() error {
		matches, err := s.store.ListMatches(gCtx, t.ID)
		if err != nil {
			return handleRepositoryError(err, "list matches")
		}
		details.Matches = matches
		return nil
	})
	if t.Type == models.TournamentLeague {
		g.Go(func() error {
			table, err := s.matches.Standings(gCtx, t.ID)
			if err != nil {
				return err
			}
			details.Standings = table
			return nil
		})
	}
	if t.WinnerID != nil {
		g.Go(func() error {
			w, err := s.store.GetUserByID(gCtx, *t.WinnerID)
			if err != nil {
				s.logger.WarnContext(gCtx, "Failed to load tournament winner", slog.Int("tournament_id", t.ID), slog.Any("error", err))
				return nil
			}
			t.Winner = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return details, nil
}

// List returns tournaments that are not completed, newest first, with brackets.
func (s *TournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	tournaments, err := s.store.ListTournaments(ctx, repositories.ListTournamentsFilter{
		ExcludeStatuses: []models.TournamentStatus{models.StatusCompleted},
	})
	if err != nil {
		return nil, handleRepositoryError(err, "list tournaments")
	}
	for _, t := range tournaments {
		brackets, err := s.store.ListBrackets(ctx, t.ID)
		if err != nil {
			return nil, handleRepositoryError(err, "list brackets")
		}
		t.Brackets = brackets
	}
	return tournaments, nil
}

// History returns the most recently completed tournaments.
func (s *TournamentService) History(ctx context.Context) ([]*models.Tournament, error) {
	tournaments, err := s.store.ListTournaments(ctx, repositories.ListTournamentsFilter{
		Statuses:     []models.TournamentStatus{models.StatusCompleted},
		ByCompletion: true,
		Limit:        historyLimit,
	})
	if err != nil {
		return nil, handleRepositoryError(err, "list tournament history")
	}
	for _, t := range tournaments {
		if t.WinnerID == nil {
			continue
		}
		if w, err := s.store.GetUserByID(ctx, *t.WinnerID); err == nil {
			t.Winner = w
		}
	}
	return tournaments, nil
}
