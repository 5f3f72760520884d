package match

import (
	"time"

	"wordclash/backend/internal/models"
)

// SnapshotView is the document state pushed to subscribed clients after every
// mutation, and returned by the read endpoints. Clients drive their whole UI
// off it; guess scoring happens client-side against Solution, which is why
// the solution rides along once play has started.
type SnapshotView struct {
	ID            string                 `json:"id"`
	CreatorID     uint                   `json:"creator_id"`
	Visibility    models.MatchVisibility `json:"visibility"`
	WordLength    int                    `json:"word_length"`
	Rounds        int                    `json:"rounds"`
	Solo          bool                   `json:"solo"`
	Status        models.MatchStatus     `json:"status"`
	Players       []uint                 `json:"players"`
	ActivePlayers []uint                 `json:"active_players"`
	Solution      string                 `json:"solution,omitempty"`
	Guesses       []string               `json:"guesses,omitempty"`
	State         models.MatchState      `json:"match_state"`

	LobbyClosesAt      *time.Time     `json:"lobby_closes_at,omitempty"`
	InactivityClosesAt *time.Time     `json:"inactivity_closes_at,omitempty"`
	MatchHardStopAt    *time.Time     `json:"match_hard_stop_at,omitempty"`
	TurnDeadline       *time.Time     `json:"turn_deadline,omitempty"`
	PlayerTimers       map[uint]int64 `json:"player_timers,omitempty"`

	EndVotes    []uint     `json:"end_votes,omitempty"`
	WinnerID    *uint      `json:"winner_id,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot builds the client-facing view of a match document. The solution
// is withheld while the lobby is still waiting.
func Snapshot(m *models.Match) SnapshotView {
	v := SnapshotView{
		ID:            m.ID,
		CreatorID:     m.CreatorID,
		Visibility:    m.Visibility,
		WordLength:    m.WordLength,
		Rounds:        m.Rounds,
		Solo:          m.Solo,
		Status:        m.Status,
		Players:       m.Players,
		ActivePlayers: m.ActivePlayers,
		Guesses:       m.Guesses,
		State:         m.State,

		LobbyClosesAt:      m.LobbyClosesAt,
		InactivityClosesAt: m.InactivityClosesAt,
		MatchHardStopAt:    m.MatchHardStopAt,
		TurnDeadline:       m.TurnDeadline,
		PlayerTimers:       m.PlayerTimers,

		EndVotes:    m.EndVotes,
		WinnerID:    m.WinnerID,
		CompletedAt: m.CompletedAt,
	}
	if m.Status != models.MatchWaiting {
		v.Solution = m.Solution
	}
	return v
}
