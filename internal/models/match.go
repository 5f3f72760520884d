package models

import "time"

// MatchStatus tracks the lifecycle of a match document. Transitions are
// monotonic: waiting -> in_progress -> completed.
type MatchStatus string

const (
	MatchWaiting    MatchStatus = "waiting"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
)

// MatchVisibility controls who may join a match.
type MatchVisibility string

const (
	VisibilityPublic  MatchVisibility = "public"
	VisibilityPrivate MatchVisibility = "private"
)

// RoundBonus is a single-letter reveal granted to the previous round's winner
// at a uniformly random board position.
type RoundBonus struct {
	PlayerID uint   `json:"player_id"`
	Position int    `json:"position"`
	Letter   string `json:"letter"`
}

// MatchState is the per-round sub-machine embedded in a match document.
// It is serialized as a single JSON column so every mutation of it rides in
// one transactional write.
type MatchState struct {
	CurrentRound  int          `json:"current_round"`
	Scores        map[uint]int `json:"scores"`
	Draws         int          `json:"draws"`
	MaxWins       int          `json:"max_wins"`
	MaxDraws      int          `json:"max_draws"`
	IsMatchOver   bool         `json:"is_match_over"`
	MatchWinnerID *uint        `json:"match_winner_id"`
	RoundBonus    *RoundBonus  `json:"round_bonus,omitempty"`
	FirstPlayerID uint         `json:"first_player_id"`
}

// Match is one lobby/game session document. Completed matches are never
// physically deleted; they feed history and the leaderboard.
type Match struct {
	ID         string          `gorm:"primaryKey;size:12"`
	CreatorID  uint            `gorm:"not null;index"`
	Visibility MatchVisibility `gorm:"size:20;not null;default:'public'"`

	// PasscodeHash is the only durable form of a private match's passcode.
	// Passcode itself is echoed back once at creation for the creator's
	// convenience and must not be treated as a secret at rest.
	PasscodeHash string `gorm:"size:255"`
	Passcode     string `gorm:"size:64"`

	WordLength int `gorm:"not null;default:5"`
	Rounds     int `gorm:"not null;default:3"`
	Solo       bool

	Players       []uint     `gorm:"serializer:json"`
	ActivePlayers []uint     `gorm:"serializer:json"`
	Status        MatchStatus `gorm:"size:20;not null;index"`

	Solutions []string   `gorm:"serializer:json"`
	Solution  string     `gorm:"size:16"`
	Guesses   []string   `gorm:"serializer:json"`
	State     MatchState `gorm:"serializer:json"`

	// Advisory deadlines, all absolute timestamps. The sweeper is the
	// authoritative enforcer; clients may observe and act sooner.
	LobbyClosesAt      *time.Time
	InactivityClosesAt *time.Time
	MatchHardStopAt    *time.Time
	TurnDeadline       *time.Time
	PlayerTimers       map[uint]int64 `gorm:"serializer:json"` // remaining millis per player (chess-clock mode)

	EndVotes    []uint `gorm:"serializer:json"`
	WinnerID    *uint
	CompletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPlayer reports roster membership.
func (m *Match) HasPlayer(userID uint) bool {
	for _, id := range m.Players {
		if id == userID {
			return true
		}
	}
	return false
}

// IsActive reports whether userID is currently connected to the match.
func (m *Match) IsActive(userID uint) bool {
	for _, id := range m.ActivePlayers {
		if id == userID {
			return true
		}
	}
	return false
}

// Opponent returns the other roster member, if any.
func (m *Match) Opponent(userID uint) *uint {
	for _, id := range m.Players {
		if id != userID {
			other := id
			return &other
		}
	}
	return nil
}
