package match

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"wordclash/backend/internal/game"
	"wordclash/backend/internal/hub"
	"wordclash/backend/internal/models"
	"wordclash/backend/pkg/realtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMatchCompleted   = errors.New("match already completed")
	ErrMatchFull        = errors.New("match is full")
	ErrNotPlayer        = errors.New("not a player in this match")
	ErrPasscodeRequired = errors.New("passcode required for private match")
	ErrBadPasscode      = errors.New("incorrect passcode")
	// ErrRoundAlreadyAdvanced is the benign race-guard outcome: another
	// client committed the same round transition first.
	ErrRoundAlreadyAdvanced = errors.New("round already advanced")
)

const matchIDAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"
const matchIDLength = 6

// Settings are the creator-chosen knobs for a new match.
type Settings struct {
	WordLength int
	Rounds     int
	Visibility models.MatchVisibility
	Passcode   string
	Solo       bool
	TimedTurns bool
}

// Timers holds the advisory deadline windows, sourced from config.
type Timers struct {
	LobbyGrace  time.Duration
	WaitingIdle time.Duration
	HardStop    time.Duration
	Turn        time.Duration
}

// WordPool supplies solution candidates for a word length. The default pool
// prefers the admin-managed database list and falls back to the embedded one.
type WordPool func(length int) []string

// Service owns the lobby/match lifecycle: presence, round progression,
// scoring, and deadline bookkeeping. Every mutation runs as one transaction
// over the whole document and ends with a snapshot broadcast to the match
// channel.
type Service struct {
	store  Store
	hub    *hub.Hub
	timers Timers
	words  WordPool

	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
}

func NewService(store Store, h *hub.Hub, timers Timers, words WordPool) *Service {
	return &Service{
		store:  store,
		hub:    h,
		timers: timers,
		words:  words,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// Channel is the fan-out address carrying a match's snapshots.
func Channel(matchID string) string { return "match:" + matchID }

// Create allocates a short shareable id, pre-generates one solution per
// round, and seeds the timers. Private matches require a non-empty passcode;
// only its bcrypt hash is durable.
func (s *Service) Create(creatorID uint, settings Settings) (*models.Match, error) {
	if settings.WordLength == 0 {
		settings.WordLength = 5
	}
	if settings.Rounds == 0 {
		settings.Rounds = 3
	}
	if settings.Visibility == "" {
		settings.Visibility = models.VisibilityPublic
	}
	if settings.Visibility == models.VisibilityPrivate && settings.Passcode == "" {
		return nil, ErrPasscodeRequired
	}

	pool := s.words(settings.WordLength)
	s.rngMu.Lock()
	solutions, err := game.PickSolutions(pool, settings.Rounds, s.rng)
	s.rngMu.Unlock()
	if err != nil {
		return nil, err
	}

	now := s.now()
	players := []uint{creatorID}
	m := &models.Match{
		CreatorID:  creatorID,
		Visibility: settings.Visibility,
		WordLength: settings.WordLength,
		Rounds:     settings.Rounds,
		Solo:       settings.Solo,
		Players:    players,
		Solutions:  solutions,
		Solution:   solutions[0],
		State:      game.NewState(players, settings.Rounds),
	}

	if settings.Passcode != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(settings.Passcode), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		m.PasscodeHash = string(hash)
		m.Passcode = settings.Passcode
	}

	if settings.TimedTurns {
		bank := s.timers.Turn.Milliseconds() * int64(settings.Rounds)
		m.PlayerTimers = map[uint]int64{creatorID: bank}
	}

	if settings.Solo {
		m.Status = models.MatchInProgress
		m.ActivePlayers = []uint{creatorID}
		s.armPlayTimers(m, now)
	} else {
		m.Status = models.MatchWaiting
		closes := now.Add(s.timers.WaitingIdle)
		m.InactivityClosesAt = &closes
	}

	// The short id space is small on purpose; retry collisions, but only
	// collisions. Any other insert failure surfaces immediately.
	for attempt := 0; attempt < 5; attempt++ {
		m.ID = s.newMatchID()
		err = s.store.Create(m)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, ErrDuplicateID) {
			return nil, err
		}
	}
	return nil, err
}

// Get returns the match document, lazily applying any expired deadline so a
// reader never observes a match that should already be closed.
func (s *Service) Get(id string) (*models.Match, error) {
	m, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if s.deadlinePassed(m, s.now()) {
		return s.CloseExpired(id)
	}
	return m, nil
}

// RecordEntry marks userID present. While the match is waiting with a free
// seat it also appends them to the roster, and flips the match to
// in_progress once both roster members are connected.
func (s *Service) RecordEntry(id string, userID uint, passcode string) (*models.Match, error) {
	now := s.now()
	m, err := s.store.Update(id, func(m *models.Match) error {
		s.applyExpiry(m, now)
		if m.Status == models.MatchCompleted {
			return ErrMatchCompleted
		}

		if !m.HasPlayer(userID) {
			if m.Status != models.MatchWaiting || len(m.Players) >= 2 {
				return ErrMatchFull
			}
			if m.Visibility == models.VisibilityPrivate {
				if passcode == "" {
					return ErrPasscodeRequired
				}
				if bcrypt.CompareHashAndPassword([]byte(m.PasscodeHash), []byte(passcode)) != nil {
					return ErrBadPasscode
				}
			}
			m.Players = append(m.Players, userID)
			if m.State.Scores == nil {
				m.State.Scores = map[uint]int{}
			}
			m.State.Scores[userID] = 0
			if m.PlayerTimers != nil {
				m.PlayerTimers[userID] = s.timers.Turn.Milliseconds() * int64(m.Rounds)
			}
		}

		if !m.IsActive(userID) {
			m.ActivePlayers = append(m.ActivePlayers, userID)
		}
		// Someone is here again; disarm the abandonment grace timer.
		m.LobbyClosesAt = nil

		if m.Status == models.MatchWaiting && len(m.Players) == 2 && len(m.ActivePlayers) == 2 {
			m.Status = models.MatchInProgress
			m.InactivityClosesAt = nil
			s.armPlayTimers(m, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(m)
	return m, nil
}

// RecordLeave marks userID disconnected. Emptying the active set arms the
// lobby grace deadline; if nobody returns before it, the sweeper closes the
// match.
func (s *Service) RecordLeave(id string, userID uint) (*models.Match, error) {
	now := s.now()
	m, err := s.store.Update(id, func(m *models.Match) error {
		if m.Status == models.MatchCompleted {
			return nil
		}
		active := m.ActivePlayers[:0]
		for _, p := range m.ActivePlayers {
			if p != userID {
				active = append(active, p)
			}
		}
		m.ActivePlayers = active
		if len(m.ActivePlayers) == 0 {
			closes := now.Add(s.timers.LobbyGrace)
			m.LobbyClosesAt = &closes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(m)
	return m, nil
}

// AdvanceRound commits the previous round's result behind the
// expectedRound race-guard: if another client already advanced, the call
// degrades to ErrRoundAlreadyAdvanced and leaves state untouched.
func (s *Service) AdvanceRound(id string, callerID uint, prevWinnerID *uint, expectedRound int) (*models.Match, error) {
	now := s.now()
	m, err := s.store.Update(id, func(m *models.Match) error {
		if !m.HasPlayer(callerID) {
			return ErrNotPlayer
		}
		if m.Status == models.MatchCompleted || m.State.IsMatchOver {
			return ErrMatchCompleted
		}
		if m.State.CurrentRound != expectedRound {
			return ErrRoundAlreadyAdvanced
		}

		s.rngMu.Lock()
		out, err := game.AdvanceRound(m.State, m.Rounds, m.Players, m.Solutions, prevWinnerID, s.rng)
		s.rngMu.Unlock()
		if err != nil {
			return err
		}

		m.State = out.State
		if out.Completed {
			s.complete(m, out.State.MatchWinnerID, now)
			return nil
		}

		m.Solution = out.NextSolution
		m.Guesses = nil
		s.armTurnDeadline(m, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(m)
	return m, nil
}

// ToggleEndVote flips the caller's end-by-agreement vote. When every
// currently active player has voted, the match completes as a mutual tie.
func (s *Service) ToggleEndVote(id string, userID uint) (*models.Match, error) {
	now := s.now()
	m, err := s.store.Update(id, func(m *models.Match) error {
		if !m.HasPlayer(userID) {
			return ErrNotPlayer
		}
		if m.Status == models.MatchCompleted {
			return ErrMatchCompleted
		}

		found := false
		votes := m.EndVotes[:0]
		for _, v := range m.EndVotes {
			if v == userID {
				found = true
				continue
			}
			votes = append(votes, v)
		}
		if !found {
			votes = append(votes, userID)
		}
		m.EndVotes = votes

		if len(m.ActivePlayers) > 0 && s.allActiveVoted(m) {
			s.complete(m, nil, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(m)
	return m, nil
}

// Surrender unconditionally completes the match with the other player as
// winner.
func (s *Service) Surrender(id string, userID uint) (*models.Match, error) {
	now := s.now()
	m, err := s.store.Update(id, func(m *models.Match) error {
		if !m.HasPlayer(userID) {
			return ErrNotPlayer
		}
		if m.Status == models.MatchCompleted {
			return ErrMatchCompleted
		}
		s.complete(m, m.Opponent(userID), now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(m)
	return m, nil
}

// CloseExpired applies whichever advisory deadline has passed. The close is
// status-guarded, so concurrent observers converge on one transition.
func (s *Service) CloseExpired(id string) (*models.Match, error) {
	now := s.now()
	m, err := s.store.Update(id, func(m *models.Match) error {
		s.applyExpiry(m, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(m)
	return m, nil
}

// SweepExpired closes every match whose deadline has passed. Called
// periodically by the scheduler as the authoritative enforcement; client
// observations remain a responsiveness optimization.
func (s *Service) SweepExpired(limit int) int {
	ids, err := s.store.ExpiredIDs(s.now(), limit)
	if err != nil {
		logrus.WithError(err).Error("sweep: listing expired matches failed")
		return 0
	}
	closed := 0
	for _, id := range ids {
		if _, err := s.CloseExpired(id); err != nil {
			logrus.WithError(err).WithField("match_id", id).Warn("sweep: close failed")
			continue
		}
		closed++
	}
	return closed
}

func (s *Service) applyExpiry(m *models.Match, now time.Time) {
	if m.Status == models.MatchCompleted || !s.deadlinePassed(m, now) {
		return
	}
	switch m.Status {
	case models.MatchWaiting:
		s.complete(m, nil, now)
	case models.MatchInProgress:
		if m.MatchHardStopAt != nil && !now.Before(*m.MatchHardStopAt) {
			// Hard ceiling reached mid-play: settle like exhaustion.
			s.complete(m, game.TopScorer(m.State.Scores), now)
		} else {
			// Abandoned: grace deadline with nobody connected.
			s.complete(m, nil, now)
		}
	}
}

func (s *Service) deadlinePassed(m *models.Match, now time.Time) bool {
	if m.Status == models.MatchCompleted {
		return false
	}
	if m.InactivityClosesAt != nil && !now.Before(*m.InactivityClosesAt) {
		return true
	}
	if m.LobbyClosesAt != nil && !now.Before(*m.LobbyClosesAt) && len(m.ActivePlayers) == 0 {
		return true
	}
	if m.MatchHardStopAt != nil && !now.Before(*m.MatchHardStopAt) {
		return true
	}
	return false
}

func (s *Service) complete(m *models.Match, winnerID *uint, now time.Time) {
	m.Status = models.MatchCompleted
	m.State.IsMatchOver = true
	m.State.MatchWinnerID = winnerID
	m.WinnerID = winnerID
	completedAt := now
	m.CompletedAt = &completedAt
	m.TurnDeadline = nil
	m.LobbyClosesAt = nil
	m.InactivityClosesAt = nil
	m.MatchHardStopAt = nil
}

// armPlayTimers runs once, when the match flips to in_progress. The hard
// stop is an absolute ceiling on the whole match and never moves afterwards.
func (s *Service) armPlayTimers(m *models.Match, now time.Time) {
	hardStop := now.Add(s.timers.HardStop)
	m.MatchHardStopAt = &hardStop
	s.armTurnDeadline(m, now)
}

func (s *Service) armTurnDeadline(m *models.Match, now time.Time) {
	turn := now.Add(s.timers.Turn)
	m.TurnDeadline = &turn
}

func (s *Service) allActiveVoted(m *models.Match) bool {
	voted := make(map[uint]bool, len(m.EndVotes))
	for _, v := range m.EndVotes {
		voted[v] = true
	}
	for _, p := range m.ActivePlayers {
		if !voted[p] {
			return false
		}
	}
	return true
}

func (s *Service) broadcast(m *models.Match) {
	if s.hub == nil || m == nil {
		return
	}
	s.hub.Broadcast(Channel(m.ID), realtime.NewMatchSnapshot(Channel(m.ID), Snapshot(m)))
}

func (s *Service) newMatchID() string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	b := make([]byte, matchIDLength)
	for i := range b {
		b[i] = matchIDAlphabet[s.rng.Intn(len(matchIDAlphabet))]
	}
	return string(b)
}
