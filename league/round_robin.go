package league

import (
	"errors"
	"fmt"
	"sort"
)

var ErrNotEnoughPlayers = errors.New("round robin needs at least two players")

// Fixture is one generated pairing.
type Fixture struct {
	Round   int
	Player1 int
	Player2 int
}

// RoundRobin pairs every player with every other player once per leg using the
// circle method. With an odd number of players one player rests each round.
// The second leg repeats the first with sides swapped and rounds continued.
func RoundRobin(players []int, legs int) ([]Fixture, error) {
	if len(players) < 2 {
		return nil, fmt.Errorf("%w (found %d)", ErrNotEnoughPlayers, len(players))
	}
	if legs < 1 || legs > 2 {
		legs = 1
	}

	ring := make([]int, len(players))
	copy(ring, players)
	sort.Ints(ring)
	const rest = 0
	if len(ring)%2 == 1 {
		ring = append(ring, rest)
	}

	n := len(ring)
	roundsPerLeg := n - 1
	fixtures := make([]Fixture, 0, legs*roundsPerLeg*n/2)

	for round := 0; round < roundsPerLeg; round++ {
		for i := 0; i < n/2; i++ {
			a, b := ring[i], ring[n-1-i]
			if a == rest || b == rest {
				continue
			}
			// alternate sides so nobody is always player1
			if round%2 == 1 {
				a, b = b, a
			}
			fixtures = append(fixtures, Fixture{Round: round + 1, Player1: a, Player2: b})
		}
		// keep ring[0] fixed, rotate the rest clockwise
		last := ring[n-1]
		copy(ring[2:], ring[1:n-1])
		ring[1] = last
	}

	if legs == 2 {
		first := len(fixtures)
		for _, f := range fixtures[:first] {
			fixtures = append(fixtures, Fixture{
				Round:   f.Round + roundsPerLeg,
				Player1: f.Player2,
				Player2: f.Player1,
			})
		}
	}
	return fixtures, nil
}
