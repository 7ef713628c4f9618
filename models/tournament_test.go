package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBracketJSONIncludesRemaining(t *testing.T) {
	tests := []struct {
		name      string
		bracket   Bracket
		remaining float64
	}{
		{"empty", Bracket{ID: 1, MaxPlayers: 16}, 16},
		{"partly filled", Bracket{ID: 2, MaxPlayers: 16, CurrentRegistered: 5}, 11},
		{"full", Bracket{ID: 3, MaxPlayers: 1, CurrentRegistered: 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(&Tournament{Brackets: []*Bracket{&tt.bracket}})
			require.NoError(t, err)

			var out struct {
				Brackets []map[string]interface{} `json:"brackets"`
			}
			require.NoError(t, json.Unmarshal(raw, &out))
			require.Len(t, out.Brackets, 1)
			assert.Equal(t, tt.remaining, out.Brackets[0]["remaining"])
			assert.Equal(t, float64(tt.bracket.ID), out.Brackets[0]["id"])
			assert.Equal(t, float64(tt.bracket.MaxPlayers), out.Brackets[0]["max_players"])
		})
	}
}
