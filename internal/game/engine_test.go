package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordclash/backend/internal/models"
)

const (
	playerA uint = 1
	playerB uint = 2
)

func twoPlayers() []uint { return []uint{playerA, playerB} }

func rng() *rand.Rand { return rand.New(rand.NewSource(42)) }

func uintPtr(v uint) *uint { return &v }

func TestNewState(t *testing.T) {
	st := NewState(twoPlayers(), 3)
	assert.Equal(t, 1, st.CurrentRound)
	assert.Equal(t, 2, st.MaxWins)
	assert.Equal(t, 3, st.MaxDraws)
	assert.Equal(t, playerA, st.FirstPlayerID)
	assert.Equal(t, map[uint]int{playerA: 0, playerB: 0}, st.Scores)
	assert.False(t, st.IsMatchOver)
}

func TestAdvanceRoundNonTerminal(t *testing.T) {
	solutions := []string{"apple", "stone", "river"}
	st := NewState(twoPlayers(), 3)

	out, err := AdvanceRound(st, 3, twoPlayers(), solutions, uintPtr(playerA), rng())
	require.NoError(t, err)

	assert.False(t, out.Completed)
	assert.Equal(t, 2, out.State.CurrentRound)
	assert.Equal(t, 1, out.State.Scores[playerA])
	assert.Equal(t, 0, out.State.Scores[playerB])
	assert.Equal(t, "stone", out.NextSolution)
	// Loser of the previous round moves first.
	assert.Equal(t, playerB, out.State.FirstPlayerID)
	// Winner earns a reveal inside the board.
	require.NotNil(t, out.State.RoundBonus)
	assert.Equal(t, playerA, out.State.RoundBonus.PlayerID)
	assert.GreaterOrEqual(t, out.State.RoundBonus.Position, 0)
	assert.Less(t, out.State.RoundBonus.Position, len("apple"))
	assert.Equal(t, string("apple"[out.State.RoundBonus.Position]), out.State.RoundBonus.Letter)
}

// Best-of-3: two straight wins end the match after round 2 with the round
// counter left at 2.
func TestAdvanceRoundTerminatesAtMaxWins(t *testing.T) {
	solutions := []string{"apple", "stone", "river"}
	st := NewState(twoPlayers(), 3)

	out, err := AdvanceRound(st, 3, twoPlayers(), solutions, uintPtr(playerA), rng())
	require.NoError(t, err)
	require.False(t, out.Completed)

	out, err = AdvanceRound(out.State, 3, twoPlayers(), solutions, uintPtr(playerA), rng())
	require.NoError(t, err)

	assert.True(t, out.Completed)
	assert.True(t, out.State.IsMatchOver)
	require.NotNil(t, out.State.MatchWinnerID)
	assert.Equal(t, playerA, *out.State.MatchWinnerID)
	assert.Equal(t, 2, out.State.CurrentRound)
	assert.Nil(t, out.State.RoundBonus)
}

func TestAdvanceRoundTermination(t *testing.T) {
	solutions := []string{"apple", "stone", "river"}

	cases := []struct {
		name       string
		state      models.MatchState
		prevWinner *uint
		wantOver   bool
		wantWinner *uint
	}{
		{
			name: "draw cap ends match as mutual tie",
			state: models.MatchState{
				CurrentRound: 2, MaxWins: 2, MaxDraws: 3, Draws: 2,
				Scores:        map[uint]int{playerA: 0, playerB: 0},
				FirstPlayerID: playerA,
			},
			prevWinner: nil,
			wantOver:   true,
			wantWinner: nil,
		},
		{
			name: "exhaustion with unequal scores crowns the higher",
			state: models.MatchState{
				CurrentRound: 3, MaxWins: 2, MaxDraws: 3, Draws: 1,
				Scores:        map[uint]int{playerA: 1, playerB: 0},
				FirstPlayerID: playerB,
			},
			prevWinner: nil,
			wantOver:   true,
			wantWinner: uintPtr(playerA),
		},
		{
			name: "exhaustion with equal scores has no winner",
			state: models.MatchState{
				CurrentRound: 3, MaxWins: 2, MaxDraws: 3, Draws: 1,
				Scores:        map[uint]int{playerA: 1, playerB: 0},
				FirstPlayerID: playerB,
			},
			prevWinner: uintPtr(playerB), // evens the scores on the last round
			wantOver:   true,
			wantWinner: nil,
		},
		{
			name: "mid-match round just advances",
			state: models.MatchState{
				CurrentRound: 2, MaxWins: 2, MaxDraws: 3, Draws: 1,
				Scores:        map[uint]int{playerA: 0, playerB: 0},
				FirstPlayerID: playerA,
			},
			prevWinner: nil,
			wantOver:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := AdvanceRound(tc.state, 3, twoPlayers(), solutions, tc.prevWinner, rng())
			require.NoError(t, err)
			assert.Equal(t, tc.wantOver, out.Completed)
			if tc.wantOver {
				if tc.wantWinner == nil {
					assert.Nil(t, out.State.MatchWinnerID)
				} else {
					require.NotNil(t, out.State.MatchWinnerID)
					assert.Equal(t, *tc.wantWinner, *out.State.MatchWinnerID)
				}
			}
		})
	}
}

func TestAdvanceRoundDrawAlternatesOpener(t *testing.T) {
	solutions := []string{"apple", "stone", "river"}
	st := NewState(twoPlayers(), 3)

	out, err := AdvanceRound(st, 3, twoPlayers(), solutions, nil, rng())
	require.NoError(t, err)
	assert.Equal(t, playerB, out.State.FirstPlayerID)
	assert.Nil(t, out.State.RoundBonus)
	assert.Equal(t, 1, out.State.Draws)
}

func TestAdvanceRoundOnCompletedMatch(t *testing.T) {
	st := NewState(twoPlayers(), 3)
	st.IsMatchOver = true

	_, err := AdvanceRound(st, 3, twoPlayers(), []string{"apple", "stone", "river"}, nil, rng())
	assert.ErrorIs(t, err, ErrMatchOver)
}

func TestPickSolutions(t *testing.T) {
	pool := DefaultWords(5)
	require.NotEmpty(t, pool)

	picked, err := PickSolutions(pool, 3, rng())
	require.NoError(t, err)
	assert.Len(t, picked, 3)
	seen := map[string]bool{}
	for _, w := range picked {
		assert.Len(t, w, 5)
		assert.False(t, seen[w], "solutions must be unique")
		seen[w] = true
	}

	_, err = PickSolutions([]string{"apple", "apple"}, 2, rng())
	assert.ErrorIs(t, err, ErrNotEnoughWords)
}
