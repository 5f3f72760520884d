package match

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordclash/backend/internal/game"
	"wordclash/backend/internal/models"
)

// memoryStore mimics the transactional contract of the gorm store: Update
// applies fn to a private copy and commits only on success.
type memoryStore struct {
	mu         sync.Mutex
	matches    map[string]*models.Match
	createErrs []error
	creates    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{matches: make(map[string]*models.Match)}
}

func deepCopy(m *models.Match) *models.Match {
	raw, _ := json.Marshal(m)
	var cp models.Match
	_ = json.Unmarshal(raw, &cp)
	return &cp
}

func (s *memoryStore) Create(m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return err
		}
	}
	s.matches[m.ID] = deepCopy(m)
	return nil
}

func (s *memoryStore) Get(id string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(m), nil
}

func (s *memoryStore) Update(id string, fn func(*models.Match) error) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := deepCopy(m)
	if err := fn(cp); err != nil {
		return nil, err
	}
	s.matches[id] = cp
	return deepCopy(cp), nil
}

func (s *memoryStore) ExpiredIDs(now time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, m := range s.matches {
		if m.Status == models.MatchCompleted {
			continue
		}
		expired := (m.InactivityClosesAt != nil && !now.Before(*m.InactivityClosesAt)) ||
			(m.LobbyClosesAt != nil && !now.Before(*m.LobbyClosesAt)) ||
			(m.MatchHardStopAt != nil && !now.Before(*m.MatchHardStopAt))
		if expired && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

const (
	alice uint = 1
	bob   uint = 2
	carol uint = 3
)

func newTestService(t *testing.T) (*Service, *memoryStore, *time.Time) {
	t.Helper()
	store := newMemoryStore()
	timers := Timers{
		LobbyGrace:  5 * time.Minute,
		WaitingIdle: 30 * time.Minute,
		HardStop:    2 * time.Hour,
		Turn:        90 * time.Second,
	}
	svc := NewService(store, nil, timers, game.DefaultWords)
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, store, &now
}

func createJoined(t *testing.T, svc *Service) *models.Match {
	t.Helper()
	m, err := svc.Create(alice, Settings{WordLength: 5, Rounds: 3})
	require.NoError(t, err)
	_, err = svc.RecordEntry(m.ID, alice, "")
	require.NoError(t, err)
	m, err = svc.RecordEntry(m.ID, bob, "")
	require.NoError(t, err)
	return m
}

func TestCreateMultiplayerWaiting(t *testing.T) {
	svc, _, _ := newTestService(t)

	m, err := svc.Create(alice, Settings{WordLength: 5, Rounds: 3})
	require.NoError(t, err)

	assert.Len(t, m.ID, matchIDLength)
	assert.Equal(t, models.MatchWaiting, m.Status)
	assert.Equal(t, []uint{alice}, m.Players)
	assert.Len(t, m.Solutions, 3)
	assert.Equal(t, m.Solutions[0], m.Solution)
	assert.Equal(t, 2, m.State.MaxWins)
	assert.Equal(t, 3, m.State.MaxDraws)
	require.NotNil(t, m.InactivityClosesAt)
	assert.Nil(t, m.MatchHardStopAt)
}

func TestCreateRetriesOnlyIDCollisions(t *testing.T) {
	svc, store, _ := newTestService(t)

	store.createErrs = []error{ErrDuplicateID, ErrDuplicateID}
	m, err := svc.Create(alice, Settings{})
	require.NoError(t, err)
	assert.Len(t, m.ID, matchIDLength)
	assert.Equal(t, 3, store.creates)

	store.creates = 0
	store.createErrs = []error{errors.New("connection refused")}
	_, err = svc.Create(alice, Settings{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, store.creates, "a failing insert is not retried with fresh ids")
}

func TestCreateSoloStartsImmediately(t *testing.T) {
	svc, _, _ := newTestService(t)

	m, err := svc.Create(alice, Settings{Solo: true})
	require.NoError(t, err)
	assert.Equal(t, models.MatchInProgress, m.Status)
	assert.Equal(t, []uint{alice}, m.ActivePlayers)
	assert.NotNil(t, m.MatchHardStopAt)
	assert.NotNil(t, m.TurnDeadline)
}

func TestCreatePrivateRequiresPasscode(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(alice, Settings{Visibility: models.VisibilityPrivate})
	assert.ErrorIs(t, err, ErrPasscodeRequired)

	m, err := svc.Create(alice, Settings{Visibility: models.VisibilityPrivate, Passcode: "open sesame"})
	require.NoError(t, err)
	assert.NotEmpty(t, m.PasscodeHash)
	assert.NotEqual(t, "open sesame", m.PasscodeHash)
}

func TestRecordEntryStartsMatchWhenBothPresent(t *testing.T) {
	svc, _, _ := newTestService(t)

	m, err := svc.Create(alice, Settings{})
	require.NoError(t, err)

	m, err = svc.RecordEntry(m.ID, alice, "")
	require.NoError(t, err)
	assert.Equal(t, models.MatchWaiting, m.Status)

	m, err = svc.RecordEntry(m.ID, bob, "")
	require.NoError(t, err)
	assert.Equal(t, models.MatchInProgress, m.Status)
	assert.ElementsMatch(t, []uint{alice, bob}, m.Players)
	assert.ElementsMatch(t, []uint{alice, bob}, m.ActivePlayers)
	assert.Nil(t, m.InactivityClosesAt)
	assert.NotNil(t, m.MatchHardStopAt)
	assert.Contains(t, m.State.Scores, bob)
}

func TestRecordEntryThirdPlayerRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	m := createJoined(t, svc)

	_, err := svc.RecordEntry(m.ID, carol, "")
	assert.ErrorIs(t, err, ErrMatchFull)
}

func TestRecordEntryPrivatePasscode(t *testing.T) {
	svc, _, _ := newTestService(t)

	m, err := svc.Create(alice, Settings{Visibility: models.VisibilityPrivate, Passcode: "hunter2"})
	require.NoError(t, err)

	_, err = svc.RecordEntry(m.ID, bob, "")
	assert.ErrorIs(t, err, ErrPasscodeRequired)

	_, err = svc.RecordEntry(m.ID, bob, "wrong")
	assert.ErrorIs(t, err, ErrBadPasscode)

	joined, err := svc.RecordEntry(m.ID, bob, "hunter2")
	require.NoError(t, err)
	assert.True(t, joined.HasPlayer(bob))
}

func TestAdvanceRoundRaceGuard(t *testing.T) {
	svc, _, _ := newTestService(t)
	m := createJoined(t, svc)

	winner := alice
	first, err := svc.AdvanceRound(m.ID, alice, &winner, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, first.State.CurrentRound)

	// The losing concurrent caller degrades to a benign no-op.
	_, err = svc.AdvanceRound(m.ID, bob, &winner, 1)
	assert.ErrorIs(t, err, ErrRoundAlreadyAdvanced)

	after, err := svc.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.State.CurrentRound)
	assert.Equal(t, 1, after.State.Scores[alice])
}

func TestAdvanceRoundKeepsHardStopFixed(t *testing.T) {
	svc, _, now := newTestService(t)
	m := createJoined(t, svc)

	require.NotNil(t, m.MatchHardStopAt)
	ceiling := *m.MatchHardStopAt

	*now = now.Add(30 * time.Minute)
	winner := alice
	after, err := svc.AdvanceRound(m.ID, alice, &winner, 1)
	require.NoError(t, err)

	// The ceiling was fixed when play started; only the turn clock re-arms.
	assert.True(t, after.MatchHardStopAt.Equal(ceiling))
	require.NotNil(t, after.TurnDeadline)
	assert.True(t, after.TurnDeadline.Equal(now.Add(90*time.Second)))
}

// Best-of-3: player A wins rounds 1 and 2, so the match completes after
// round 2 with A as winner.
func TestTwoStraightWinsCompleteMatch(t *testing.T) {
	svc, _, _ := newTestService(t)
	m := createJoined(t, svc)

	winner := alice
	m2, err := svc.AdvanceRound(m.ID, alice, &winner, 1)
	require.NoError(t, err)
	assert.NotEqual(t, m.Solution, m2.Solution, "round 2 uses the next pre-generated solution")

	final, err := svc.AdvanceRound(m.ID, bob, &winner, 2)
	require.NoError(t, err)

	assert.Equal(t, models.MatchCompleted, final.Status)
	assert.True(t, final.State.IsMatchOver)
	assert.Equal(t, 2, final.State.CurrentRound)
	require.NotNil(t, final.WinnerID)
	assert.Equal(t, alice, *final.WinnerID)
	require.NotNil(t, final.CompletedAt)

	// Terminal state is frozen.
	_, err = svc.AdvanceRound(m.ID, alice, &winner, 2)
	assert.ErrorIs(t, err, ErrMatchCompleted)
}

func TestRecordLeaveArmsLobbyGrace(t *testing.T) {
	svc, _, now := newTestService(t)
	m := createJoined(t, svc)

	_, err := svc.RecordLeave(m.ID, alice)
	require.NoError(t, err)
	left, err := svc.RecordLeave(m.ID, bob)
	require.NoError(t, err)

	assert.Empty(t, left.ActivePlayers)
	require.NotNil(t, left.LobbyClosesAt)

	// Nobody comes back before the grace deadline: any observer's read
	// applies the close.
	*now = now.Add(6 * time.Minute)
	closed, err := svc.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, closed.Status)
	assert.Nil(t, closed.WinnerID)
}

func TestReconnectDisarmsLobbyGrace(t *testing.T) {
	svc, _, _ := newTestService(t)
	m := createJoined(t, svc)

	_, err := svc.RecordLeave(m.ID, alice)
	require.NoError(t, err)
	_, err = svc.RecordLeave(m.ID, bob)
	require.NoError(t, err)

	back, err := svc.RecordEntry(m.ID, alice, "")
	require.NoError(t, err)
	assert.Nil(t, back.LobbyClosesAt)
}

func TestEndVoteUnanimityCompletesAsTie(t *testing.T) {
	svc, _, _ := newTestService(t)
	m := createJoined(t, svc)

	voted, err := svc.ToggleEndVote(m.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice}, voted.EndVotes)
	assert.Equal(t, models.MatchInProgress, voted.Status)

	// Toggling off removes the vote.
	voted, err = svc.ToggleEndVote(m.ID, alice)
	require.NoError(t, err)
	assert.Empty(t, voted.EndVotes)

	_, err = svc.ToggleEndVote(m.ID, alice)
	require.NoError(t, err)
	final, err := svc.ToggleEndVote(m.ID, bob)
	require.NoError(t, err)

	assert.Equal(t, models.MatchCompleted, final.Status)
	assert.Nil(t, final.WinnerID)
}

func TestSurrenderAwardsOpponent(t *testing.T) {
	svc, _, _ := newTestService(t)
	m := createJoined(t, svc)

	final, err := svc.Surrender(m.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, final.Status)
	require.NotNil(t, final.WinnerID)
	assert.Equal(t, bob, *final.WinnerID)
}

func TestSweepClosesIdleWaitingLobby(t *testing.T) {
	svc, _, now := newTestService(t)

	m, err := svc.Create(alice, Settings{})
	require.NoError(t, err)

	*now = now.Add(31 * time.Minute)
	closed := svc.SweepExpired(10)
	assert.Equal(t, 1, closed)

	after, err := svc.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, after.Status)
}

func TestSweepHardStopSettlesByScore(t *testing.T) {
	svc, store, now := newTestService(t)
	m := createJoined(t, svc)

	winner := alice
	_, err := svc.AdvanceRound(m.ID, alice, &winner, 1)
	require.NoError(t, err)

	*now = now.Add(3 * time.Hour)
	svc.SweepExpired(10)

	after, err := store.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, after.Status)
	require.NotNil(t, after.WinnerID)
	assert.Equal(t, alice, *after.WinnerID)
}
