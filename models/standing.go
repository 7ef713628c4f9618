package models

type LeagueStanding struct {
	ID             int `json:"id" db:"id"`
	TournamentID   int `json:"tournament_id" db:"tournament_id"`
	UserID         int `json:"user_id" db:"user_id"`
	Played         int `json:"played" db:"played"`
	Won            int `json:"won" db:"won"`
	Drawn          int `json:"drawn" db:"drawn"`
	Lost           int `json:"lost" db:"lost"`
	GoalsFor       int `json:"goals_for" db:"goals_for"`
	GoalsAgainst   int `json:"goals_against" db:"goals_against"`
	GoalDifference int `json:"goal_difference" db:"goal_difference"`
	Points         int `json:"points" db:"points"`

	Position int    `json:"position,omitempty" db:"-"`
	Handle   string `json:"handle,omitempty" db:"-"`
}

// StandingChange is one player's row before and after a result.
type StandingChange struct {
	Before LeagueStanding `json:"before"`
	After  LeagueStanding `json:"after"`
}

// StandingsDelta is what completing a match did.
type StandingsDelta struct {
	Match   Match            `json:"match"`
	Type    TournamentType   `json:"tournament_type"`
	Changes []StandingChange `json:"changes"`
}
