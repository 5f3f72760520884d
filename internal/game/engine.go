package game

import (
	"errors"
	"math/rand"

	"wordclash/backend/internal/models"
)

var ErrMatchOver = errors.New("match already completed")
var ErrBadRound = errors.New("round out of range")

// NewState seeds the per-round sub-machine for a fresh match.
// maxWins is a best-of threshold (ceil(rounds/2)); maxDraws caps how many
// drawn rounds a match can absorb before ending in a mutual tie.
func NewState(players []uint, rounds int) models.MatchState {
	scores := make(map[uint]int, len(players))
	for _, p := range players {
		scores[p] = 0
	}
	var first uint
	if len(players) > 0 {
		first = players[0]
	}
	return models.MatchState{
		CurrentRound:  1,
		Scores:        scores,
		MaxWins:       (rounds + 1) / 2,
		MaxDraws:      rounds,
		FirstPlayerID: first,
	}
}

// Outcome is the result of applying a finished round to the match state.
type Outcome struct {
	State models.MatchState
	// Completed is true when the applied round terminated the match. The
	// round counter is left where it was in that case.
	Completed    bool
	NextSolution string
}

// AdvanceRound applies the result of the just-finished round: credits the
// winner (or a draw), evaluates termination, and otherwise steps to the next
// pre-generated solution. The loser of the previous round moves first in the
// next one; drawn rounds alternate the opener. The previous round's winner is
// granted a single-letter reveal at a uniformly random board position.
func AdvanceRound(st models.MatchState, rounds int, players []uint, solutions []string, prevWinnerID *uint, rng *rand.Rand) (Outcome, error) {
	if st.IsMatchOver {
		return Outcome{}, ErrMatchOver
	}
	if st.CurrentRound < 1 || st.CurrentRound > len(solutions) {
		return Outcome{}, ErrBadRound
	}

	next := st
	next.Scores = make(map[uint]int, len(st.Scores))
	for id, s := range st.Scores {
		next.Scores[id] = s
	}

	if prevWinnerID != nil {
		next.Scores[*prevWinnerID]++
	} else {
		next.Draws++
	}

	if winner, over := terminal(next, rounds, prevWinnerID); over {
		next.IsMatchOver = true
		next.MatchWinnerID = winner
		next.RoundBonus = nil
		return Outcome{State: next, Completed: true}, nil
	}

	prevSolution := solutions[next.CurrentRound-1]
	next.CurrentRound++
	next.FirstPlayerID = opener(next.FirstPlayerID, players, prevWinnerID)
	next.RoundBonus = nil
	if prevWinnerID != nil && len(prevSolution) > 0 {
		pos := rng.Intn(len(prevSolution))
		next.RoundBonus = &models.RoundBonus{
			PlayerID: *prevWinnerID,
			Position: pos,
			Letter:   string(prevSolution[pos]),
		}
	}

	return Outcome{State: next, NextSolution: solutions[next.CurrentRound-1]}, nil
}

// terminal evaluates the three ways a match ends: a score reaching maxWins,
// the draw cap, and round exhaustion with a high-score tie-break.
func terminal(st models.MatchState, rounds int, prevWinnerID *uint) (*uint, bool) {
	if prevWinnerID != nil && st.Scores[*prevWinnerID] >= st.MaxWins {
		return prevWinnerID, true
	}
	if st.Draws >= st.MaxDraws {
		return nil, true
	}
	if st.CurrentRound+1 > rounds {
		return TopScorer(st.Scores), true
	}
	return nil, false
}

// TopScorer returns the unique highest scorer, or nil on a tie. The hard-stop
// close uses it to settle an in-progress match the same way exhaustion does.
func TopScorer(scores map[uint]int) *uint {
	var best *uint
	bestScore := -1
	tied := false
	for id, s := range scores {
		switch {
		case s > bestScore:
			v := id
			best, bestScore, tied = &v, s, false
		case s == bestScore:
			tied = true
		}
	}
	if tied || best == nil {
		return nil
	}
	return best
}

// opener picks who moves first next round: the loser of the previous round,
// or the alternate player after a draw.
func opener(current uint, players []uint, prevWinnerID *uint) uint {
	if prevWinnerID != nil {
		for _, p := range players {
			if p != *prevWinnerID {
				return p
			}
		}
		return *prevWinnerID // solo match
	}
	for _, p := range players {
		if p != current {
			return p
		}
	}
	return current
}
