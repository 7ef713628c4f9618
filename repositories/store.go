package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dosada05/tournament-hub/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrBracketNotFound      = errors.New("bracket not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrBroadcastNotFound    = errors.New("broadcast not found for user")

	ErrBracketFull          = errors.New("bracket is full")
	ErrRegistrationDecided  = errors.New("registration already decided")
	ErrDuplicateApproved    = errors.New("user already has an approved registration in this tournament")
	ErrRegistrationClosed   = errors.New("tournament is not accepting registrations")
	ErrStatusConflict       = errors.New("tournament status changed concurrently")
	ErrMatchCompleted       = errors.New("match already completed")
	ErrMatchHasBye          = errors.New("match has an empty slot")
	ErrMatchTournamentFK    = errors.New("match references an unknown tournament or player")
	ErrBroadcastRecipientFK = errors.New("broadcast references an unknown user")
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type UserRepository interface {
	// UpsertOnLogin creates the user on first login and reports whether it did.
	UpsertOnLogin(ctx context.Context, profile models.LoginProfile) (*models.User, bool, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByHandle(ctx context.Context, handle string) (*models.User, error)
	EnsureOwner(ctx context.Context, handle string) (*models.User, error)
	SetUserRole(ctx context.Context, id int, role models.UserRole) error
	SetUserBanned(ctx context.Context, id int, banned bool) error
	ListUsersWithChat(ctx context.Context, includeBanned bool) ([]*models.User, error)
	ListStaff(ctx context.Context) ([]*models.User, error)
	ListApprovedUsers(ctx context.Context, filter ApprovedUsersFilter) ([]*models.User, error)
}

type TournamentRepository interface {
	CreateTournament(ctx context.Context, t *models.Tournament, brackets []*models.Bracket) error
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error)
	// TransitionTournament moves the status only if it still equals tr.From.
	TransitionTournament(ctx context.Context, id int, tr models.TournamentTransition) (*models.Tournament, error)
	GetBracket(ctx context.Context, id int) (*models.Bracket, error)
	ListBrackets(ctx context.Context, tournamentID int) ([]*models.Bracket, error)
}

type RegistrationRepository interface {
	CreateRegistration(ctx context.Context, reg *models.Registration) error
	GetRegistration(ctx context.Context, id int) (*models.Registration, error)
	ListRegistrations(ctx context.Context, filter ListRegistrationsFilter) ([]*models.Registration, error)
	// ApproveRegistration reserves a bracket slot and approves in one unit.
	ApproveRegistration(ctx context.Context, id int, d models.Decision) (*models.Registration, error)
	RejectRegistration(ctx context.Context, id int, d models.Decision) (*models.Registration, error)
}

type MatchRepository interface {
	CreateMatches(ctx context.Context, matches []*models.Match) error
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error)
	SetNextMatch(ctx context.Context, matchID, nextMatchID, slot int) error
	// CompleteMatch records the result and, for leagues, both standings rows.
	// It succeeds at most once per match.
	CompleteMatch(ctx context.Context, id int, res models.MatchResult) (*models.StandingsDelta, error)
	ListStandings(ctx context.Context, tournamentID int) ([]*models.LeagueStanding, error)
}

type BroadcastRepository interface {
	CreateBroadcast(ctx context.Context, b *models.Broadcast, recipientIDs []int) error
	ListUserBroadcasts(ctx context.Context, userID int) ([]*models.UserBroadcast, error)
	MarkBroadcastRead(ctx context.Context, userID, broadcastID int, at time.Time) error
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, filter ListMessagesFilter) ([]*models.Message, error)
	MarkMessagesRead(ctx context.Context, ids []int) error
}

type AuditRepository interface {
	RecordAdminAction(ctx context.Context, entry *models.AdminLog) error
	ListAdminLogs(ctx context.Context, limit int) ([]*models.AdminLog, error)
}

// Store is everything the services persist through.
type Store interface {
	UserRepository
	TournamentRepository
	RegistrationRepository
	MatchRepository
	BroadcastRepository
	MessageRepository
	AuditRepository
}

type ApprovedUsersFilter struct {
	TournamentType *models.TournamentType
	TournamentID   *int
}

type ListTournamentsFilter struct {
	Statuses        []models.TournamentStatus
	ExcludeStatuses []models.TournamentStatus
	// ByCompletion orders by completed_at instead of created_at, newest first either way.
	ByCompletion bool
	Limit        int
}

type ListRegistrationsFilter struct {
	UserID       *int
	TournamentID *int
	Status       *models.RegistrationStatus
}

type ListMessagesFilter struct {
	Kind *models.MessageKind
	// Participant matches messages sent by or addressed to the user.
	Participant *int
	Limit       int
}
