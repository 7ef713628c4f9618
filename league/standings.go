// Package league holds the standings arithmetic, the ranking order and the
// round-robin fixture generator. Everything here is pure; the stores call it
// inside their own transactions.
package league

import "github.com/Dosada05/tournament-hub/models"

const (
	PointsWin  = 3
	PointsDraw = 1
	PointsLoss = 0
)

type Outcome int

const (
	Loss Outcome = iota
	Draw
	Win
)

// OutcomeOf compares own and opponent score strictly.
func OutcomeOf(own, opponent int) Outcome {
	switch {
	case own > opponent:
		return Win
	case own == opponent:
		return Draw
	default:
		return Loss
	}
}

// Decide returns the winner of the match for the given scores, nil on a draw.
func Decide(m *models.Match, score1, score2 int) *int {
	switch OutcomeOf(score1, score2) {
	case Win:
		return m.Player1ID
	case Loss:
		return m.Player2ID
	default:
		return nil
	}
}

// Apply adds one played match to row. goal_difference is always re-derived
// from the running totals.
func Apply(row *models.LeagueStanding, goalsFor, goalsAgainst int) {
	row.Played++
	row.GoalsFor += goalsFor
	row.GoalsAgainst += goalsAgainst
	row.GoalDifference = row.GoalsFor - row.GoalsAgainst

	switch OutcomeOf(goalsFor, goalsAgainst) {
	case Win:
		row.Won++
		row.Points += PointsWin
	case Draw:
		row.Drawn++
		row.Points += PointsDraw
	default:
		row.Lost++
		row.Points += PointsLoss
	}
}

// ApplyMatch updates both players' rows for a completed match and returns the
// before/after pairs in player1, player2 order.
func ApplyMatch(row1, row2 *models.LeagueStanding, score1, score2 int) []models.StandingChange {
	before1, before2 := *row1, *row2
	Apply(row1, score1, score2)
	Apply(row2, score2, score1)
	return []models.StandingChange{
		{Before: before1, After: *row1},
		{Before: before2, After: *row2},
	}
}

// Consistent checks the derived-field invariants of a row.
func Consistent(row *models.LeagueStanding) bool {
	return row.GoalDifference == row.GoalsFor-row.GoalsAgainst &&
		row.Points == PointsWin*row.Won+PointsDraw*row.Drawn &&
		row.Played == row.Won+row.Drawn+row.Lost
}
