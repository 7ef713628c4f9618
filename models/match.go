package models

import "time"

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchCompleted MatchStatus = "completed"
)

type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Round        int         `json:"round" db:"round"`
	Player1ID    *int        `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID    *int        `json:"player2_id,omitempty" db:"player2_id"`
	Score1       int         `json:"score1" db:"score1"`
	Score2       int         `json:"score2" db:"score2"`
	WinnerID     *int        `json:"winner_id,omitempty" db:"winner_id"`
	Status       MatchStatus `json:"status" db:"status"`
	NextMatchID  *int        `json:"next_match_id,omitempty" db:"next_match_id"`
	NextSlot     *int        `json:"next_slot,omitempty" db:"next_slot"`
	ScheduledAt  *time.Time  `json:"scheduled_at,omitempty" db:"scheduled_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}

// IsBye is true when at least one slot is empty.
func (m *Match) IsBye() bool {
	return m.Player1ID == nil || m.Player2ID == nil
}

type MatchResult struct {
	Score1 int
	Score2 int
	At     time.Time
}
