package models

import (
	"encoding/json"
	"time"
)

type TournamentType string

const (
	TournamentKnockout TournamentType = "knockout"
	TournamentLeague   TournamentType = "league"
)

func (t TournamentType) Valid() bool {
	return t == TournamentKnockout || t == TournamentLeague
}

// TournamentStatus mirrors the tournaments.status column.
type TournamentStatus string

const (
	StatusNotStarted   TournamentStatus = "not_started"
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
)

var nextTournamentStatus = map[TournamentStatus]TournamentStatus{
	StatusNotStarted:   StatusRegistration,
	StatusRegistration: StatusActive,
	StatusActive:       StatusCompleted,
}

// Next returns the only status a tournament may move to from s.
func (s TournamentStatus) Next() (TournamentStatus, bool) {
	next, ok := nextTournamentStatus[s]
	return next, ok
}

type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Type        TournamentType   `json:"type" db:"type"`
	Status      TournamentStatus `json:"status" db:"status"`
	WinnerID    *int             `json:"winner_id,omitempty" db:"winner_id"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" db:"completed_at"`

	Brackets []*Bracket `json:"brackets,omitempty" db:"-"`
	Winner   *User      `json:"winner,omitempty" db:"-"`
}

// TournamentTransition is a compare-and-set on the status column.
type TournamentTransition struct {
	From        TournamentStatus
	To          TournamentStatus
	WinnerID    *int
	CompletedAt *time.Time
}

type Bracket struct {
	ID                int  `json:"id" db:"id"`
	TournamentID      int  `json:"tournament_id" db:"tournament_id"`
	Amount            int  `json:"amount" db:"amount"`
	MaxPlayers        int  `json:"max_players" db:"max_players"`
	CurrentRegistered int  `json:"current_registered" db:"current_registered"`
	Active            bool `json:"active" db:"active"`
}

func (b *Bracket) HasCapacity() bool {
	return b.CurrentRegistered < b.MaxPlayers
}

func (b *Bracket) Remaining() int {
	if b.CurrentRegistered >= b.MaxPlayers {
		return 0
	}
	return b.MaxPlayers - b.CurrentRegistered
}

// MarshalJSON adds the number of free slots so clients need not derive it.
func (b Bracket) MarshalJSON() ([]byte, error) {
	type bracket Bracket
	return json.Marshal(struct {
		bracket
		Remaining int `json:"remaining"`
	}{bracket(b), b.Remaining()})
}
