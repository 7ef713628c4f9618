package league

import (
	"sort"

	"github.com/Dosada05/tournament-hub/models"
)

type rankKey struct {
	points, goalDifference, goalsFor int
}

func keyOf(r *models.LeagueStanding) rankKey {
	return rankKey{r.Points, r.GoalDifference, r.GoalsFor}
}

// Rank orders rows by points, goal difference and goals for (all descending).
// Rows still level are split by a head-to-head mini table built from the
// completed matches played among them, and finally by user id ascending, so
// the order is total and does not change between calls. Positions are set on
// the returned copies.
func Rank(rows []*models.LeagueStanding, matches []*models.Match) []*models.LeagueStanding {
	ranked := make([]*models.LeagueStanding, len(rows))
	for i, r := range rows {
		cp := *r
		ranked[i] = &cp
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := keyOf(ranked[i]), keyOf(ranked[j])
		if a.points != b.points {
			return a.points > b.points
		}
		if a.goalDifference != b.goalDifference {
			return a.goalDifference > b.goalDifference
		}
		if a.goalsFor != b.goalsFor {
			return a.goalsFor > b.goalsFor
		}
		return ranked[i].UserID < ranked[j].UserID
	})

	for start := 0; start < len(ranked); {
		end := start + 1
		for end < len(ranked) && keyOf(ranked[end]) == keyOf(ranked[start]) {
			end++
		}
		if end-start > 1 {
			breakTie(ranked[start:end], matches)
		}
		start = end
	}

	for i := range ranked {
		ranked[i].Position = i + 1
	}
	return ranked
}

type miniRow struct {
	points, goalDifference int
}

// headToHead builds the mini table of the given users from completed matches
// where both players belong to the group.
func headToHead(userIDs []int, matches []*models.Match) map[int]miniRow {
	in := make(map[int]bool, len(userIDs))
	table := make(map[int]miniRow, len(userIDs))
	for _, id := range userIDs {
		in[id] = true
		table[id] = miniRow{}
	}
	for _, m := range matches {
		if m.Status != models.MatchCompleted || m.IsBye() {
			continue
		}
		p1, p2 := *m.Player1ID, *m.Player2ID
		if !in[p1] || !in[p2] {
			continue
		}
		r1, r2 := table[p1], table[p2]
		r1.goalDifference += m.Score1 - m.Score2
		r2.goalDifference += m.Score2 - m.Score1
		switch OutcomeOf(m.Score1, m.Score2) {
		case Win:
			r1.points += PointsWin
		case Loss:
			r2.points += PointsWin
		default:
			r1.points += PointsDraw
			r2.points += PointsDraw
		}
		table[p1], table[p2] = r1, r2
	}
	return table
}

func breakTie(group []*models.LeagueStanding, matches []*models.Match) {
	ids := make([]int, len(group))
	for i, r := range group {
		ids[i] = r.UserID
	}
	table := headToHead(ids, matches)
	sort.SliceStable(group, func(i, j int) bool {
		a, b := table[group[i].UserID], table[group[j].UserID]
		if a.points != b.points {
			return a.points > b.points
		}
		if a.goalDifference != b.goalDifference {
			return a.goalDifference > b.goalDifference
		}
		return group[i].UserID < group[j].UserID
	})
}
