package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"wordclash/backend/internal/hub"
	"wordclash/backend/internal/models"
	"wordclash/backend/pkg/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store used to exercise the coordinator without a
// database.
type memStore struct {
	mu          sync.Mutex
	rooms       map[string]*models.ChatRoom
	members     map[string]*models.ChatMembership
	messages    map[uint]*models.ChatMessage
	nextID      uint
	ensureCalls int
}

func newMemStore() *memStore {
	return &memStore{
		rooms:    map[string]*models.ChatRoom{},
		members:  map[string]*models.ChatMembership{},
		messages: map[uint]*models.ChatMessage{},
	}
}

func memberKey(roomID string, userID uint) string {
	return fmt.Sprintf("%s|%d", roomID, userID)
}

func (s *memStore) GetRoom(id string) (*models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	cp := *room
	return &cp, nil
}

func (s *memStore) EnsureRoom(room *models.ChatRoom, memberships []models.ChatMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureCalls++
	if _, ok := s.rooms[room.ID]; !ok {
		cp := *room
		s.rooms[room.ID] = &cp
	}
	for _, m := range memberships {
		key := memberKey(m.RoomID, m.UserID)
		if _, ok := s.members[key]; !ok {
			cp := m
			s.members[key] = &cp
		}
	}
	return nil
}

func (s *memStore) EnsureMembership(m *models.ChatMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey(m.RoomID, m.UserID)
	if _, ok := s.members[key]; !ok {
		cp := *m
		s.members[key] = &cp
	}
	return nil
}

func (s *memStore) GetMembership(roomID string, userID uint) (*models.ChatMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey(roomID, userID)]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) AppendMessage(msg *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg.ID = s.nextID
	cp := *msg
	s.messages[msg.ID] = &cp
	if room, ok := s.rooms[msg.RoomID]; ok {
		at := msg.SentAt
		room.LastMessageAt = &at
		if room.ReadReceipts == nil {
			room.ReadReceipts = map[uint]time.Time{}
		}
		room.ReadReceipts[msg.SenderID] = at
	}
	if m, ok := s.members[memberKey(msg.RoomID, msg.SenderID)]; ok {
		at := msg.SentAt
		m.LastReadAt = &at
	}
	return nil
}

func (s *memStore) MarkRead(roomID string, userID uint, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey(roomID, userID)]
	if !ok {
		return false, nil
	}
	if m.LastReadAt != nil && !m.LastReadAt.Before(at) {
		return false, nil
	}
	cp := at
	m.LastReadAt = &cp
	if room, ok := s.rooms[roomID]; ok {
		if room.ReadReceipts == nil {
			room.ReadReceipts = map[uint]time.Time{}
		}
		room.ReadReceipts[userID] = at
	}
	return true, nil
}

func (s *memStore) UpdateMessage(id uint, fn func(*models.ChatMessage) error) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	cp := *msg
	if cp.Reactions != nil {
		cp.Reactions = map[uint]string{}
		for k, v := range msg.Reactions {
			cp.Reactions[k] = v
		}
	}
	if err := fn(&cp); err != nil {
		return nil, err
	}
	s.messages[id] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) ListMessages(roomID string, limit int) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range s.messages {
		if m.RoomID == roomID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) UpgradeSharedMemberships(a, b uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	shared := map[string]bool{}
	for _, m := range s.members {
		if m.UserID == b {
			shared[m.RoomID] = true
		}
	}
	for _, m := range s.members {
		if (m.UserID == a || m.UserID == b) && shared[m.RoomID] {
			m.Temporary = false
		}
	}
	return nil
}

type fakeMatches struct {
	matches map[string]*models.Match
}

func (f *fakeMatches) Get(id string) (*models.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return nil, errors.New("match not found")
	}
	return m, nil
}

type fakeUsers struct {
	guests  map[uint]bool
	friends map[[2]uint]bool
}

func (f *fakeUsers) IsGuest(userID uint) (bool, error) {
	return f.guests[userID], nil
}

func (f *fakeUsers) AreFriends(a, b uint) (bool, error) {
	if a > b {
		a, b = b, a
	}
	return f.friends[[2]uint{a, b}], nil
}

func newTestCoordinator(matches map[string]*models.Match) (*Coordinator, *memStore, *fakeUsers, *hub.Hub) {
	store := newMemStore()
	users := &fakeUsers{guests: map[uint]bool{}, friends: map[[2]uint]bool{}}
	h := hub.NewHub()
	c := NewCoordinator(store, &fakeMatches{matches: matches}, users, h)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	return c, store, users, h
}

func drain(t *testing.T, client hub.Client) realtime.ServerEvent {
	t.Helper()
	select {
	case payload := <-client:
		var ev realtime.ServerEvent
		require.NoError(t, json.Unmarshal(payload, &ev))
		return ev
	default:
		t.Fatal("expected a broadcast frame")
		return realtime.ServerEvent{}
	}
}

func TestResolveFriendRoomSymmetric(t *testing.T) {
	c, _, users, _ := newTestCoordinator(nil)
	users.friends[[2]uint{1, 2}] = true

	id1, err := c.ResolveRoom(1, Context{Scope: models.ScopeFriend, FriendID: 2})
	require.NoError(t, err)
	id2, err := c.ResolveRoom(2, Context{Scope: models.ScopeFriend, FriendID: 1})
	require.NoError(t, err)

	assert.Equal(t, "friend:1-2", id1)
	assert.Equal(t, id1, id2)
}

func TestResolveFriendRoomRequiresFriendship(t *testing.T) {
	c, _, _, _ := newTestCoordinator(nil)

	_, err := c.ResolveRoom(1, Context{Scope: models.ScopeFriend, FriendID: 2})
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestResolveRoomCachesPerUser(t *testing.T) {
	c, store, users, _ := newTestCoordinator(nil)
	users.friends[[2]uint{1, 2}] = true

	for i := 0; i < 5; i++ {
		_, err := c.ResolveRoom(1, Context{Scope: models.ScopeFriend, FriendID: 2})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.ensureCalls)
}

func TestResolveMatchRoomGating(t *testing.T) {
	matches := map[string]*models.Match{
		"abc123": {ID: "abc123", Status: models.MatchWaiting, Players: []uint{1, 2}},
		"def456": {ID: "def456", Status: models.MatchInProgress, Players: []uint{1, 2}},
		"ghi789": {ID: "ghi789", Status: models.MatchCompleted, Players: []uint{1, 2}},
	}
	c, _, _, _ := newTestCoordinator(matches)

	// Lobby chat is available from the waiting phase on.
	id, err := c.ResolveRoom(1, Context{Scope: models.ScopeLobby, MatchID: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "lobby:abc123", id)

	// Game chat needs play to have started.
	_, err = c.ResolveRoom(1, Context{Scope: models.ScopeGame, MatchID: "abc123"})
	assert.ErrorIs(t, err, ErrWaitingForPlayers)

	id, err = c.ResolveRoom(1, Context{Scope: models.ScopeGame, MatchID: "def456"})
	require.NoError(t, err)
	assert.Equal(t, "game:def456", id)

	// Neither survives completion.
	_, err = c.ResolveRoom(1, Context{Scope: models.ScopeLobby, MatchID: "ghi789"})
	assert.ErrorIs(t, err, ErrRoomClosed)
	_, err = c.ResolveRoom(1, Context{Scope: models.ScopeGame, MatchID: "ghi789"})
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestResolveMatchRoomNeedsBothPlayers(t *testing.T) {
	matches := map[string]*models.Match{
		"abc123": {ID: "abc123", Status: models.MatchWaiting, Players: []uint{1}},
	}
	c, store, _, _ := newTestCoordinator(matches)

	// The creator alone in the lobby does not get a room yet.
	_, err := c.ResolveRoom(1, Context{Scope: models.ScopeLobby, MatchID: "abc123"})
	assert.ErrorIs(t, err, ErrWaitingForPlayers)
	_, err = store.GetRoom("lobby:abc123")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestResolveMatchRoomRejectsOutsiders(t *testing.T) {
	matches := map[string]*models.Match{
		"abc123": {ID: "abc123", Status: models.MatchInProgress, Players: []uint{1, 2}},
	}
	c, _, _, _ := newTestCoordinator(matches)

	_, err := c.ResolveRoom(9, Context{Scope: models.ScopeLobby, MatchID: "abc123"})
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestSendMessageBroadcastsAndStampsReceipt(t *testing.T) {
	c, store, users, h := newTestCoordinator(nil)
	users.friends[[2]uint{1, 2}] = true
	roomID, err := c.ResolveRoom(1, Context{Scope: models.ScopeFriend, FriendID: 2})
	require.NoError(t, err)

	client := make(hub.Client, 4)
	h.Subscribe(Channel(roomID), client)

	msg, err := c.SendMessage(roomID, 1, "  hello  ", "client-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text)
	assert.NotZero(t, msg.ID)

	ev := drain(t, client)
	assert.Equal(t, realtime.EventChatMessage, ev.Type)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "hello", ev.Message.Text)
	assert.Equal(t, "client-1", ev.Message.ClientMessageID)

	// Sending implies reading up to the send instant.
	m, err := store.GetMembership(roomID, 1)
	require.NoError(t, err)
	require.NotNil(t, m.LastReadAt)
	assert.Equal(t, msg.SentAt, *m.LastReadAt)
}

func TestSendMessageValidation(t *testing.T) {
	c, _, users, _ := newTestCoordinator(nil)
	users.friends[[2]uint{1, 2}] = true
	roomID, err := c.ResolveRoom(1, Context{Scope: models.ScopeFriend, FriendID: 2})
	require.NoError(t, err)

	_, err = c.SendMessage(roomID, 1, "   ", "", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	long := make([]byte, MaxMessageRunes+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = c.SendMessage(roomID, 1, string(long), "", nil)
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = c.SendMessage(roomID, 9, "hi", "", nil)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestGuestsMayPostOnlyInTemporaryRooms(t *testing.T) {
	matches := map[string]*models.Match{
		"abc123": {ID: "abc123", Status: models.MatchInProgress, Players: []uint{1, 7}},
	}
	c, store, users, _ := newTestCoordinator(matches)
	users.guests[7] = true
	users.friends[[2]uint{1, 2}] = true

	gameRoom, err := c.ResolveRoom(7, Context{Scope: models.ScopeGame, MatchID: "abc123"})
	require.NoError(t, err)
	_, err = c.SendMessage(gameRoom, 7, "gg", "", nil)
	assert.NoError(t, err)

	friendRoom, err := c.ResolveRoom(1, Context{Scope: models.ScopeFriend, FriendID: 2})
	require.NoError(t, err)
	// Force a membership to isolate the guest gate from the member gate.
	require.NoError(t, store.EnsureMembership(&models.ChatMembership{RoomID: friendRoom, UserID: 7}))
	_, err = c.SendMessage(friendRoom, 7, "hi", "", nil)
	assert.ErrorIs(t, err, ErrGuestNotAllowed)
}

func TestSendMessageRejectsClosedRoom(t *testing.T) {
	m := &models.Match{ID: "abc123", Status: models.MatchInProgress, Players: []uint{1, 2}}
	c, _, _, _ := newTestCoordinator(map[string]*models.Match{"abc123": m})

	roomID, err := c.ResolveRoom(1, Context{Scope: models.ScopeGame, MatchID: "abc123"})
	require.NoError(t, err)

	m.Status = models.MatchCompleted
	_, err = c.SendMessage(roomID, 1, "too late", "", nil)
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestMarkReadIsMonotonic(t *testing.T) {
	c, _, users, h := newTestCoordinator(nil)
	users.friends[[2]uint{1, 2}] = true
	roomID, err := c.ResolveRoom(1, Context{Scope: models.ScopeFriend, FriendID: 2})
	require.NoError(t, err)

	client := make(hub.Client, 4)
	h.Subscribe(Channel(roomID), client)

	later := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	require.NoError(t, c.MarkRead(roomID, 2, later))
	ev := drain(t, client)
	assert.Equal(t, realtime.EventChatRead, ev.Type)
	require.NotNil(t, ev.Read)
	assert.Equal(t, uint(2), ev.Read.UserID)

	// An older cursor neither regresses state nor rebroadcasts.
	require.NoError(t, c.MarkRead(roomID, 2, later.Add(-time.Minute)))
	select {
	case <-client:
		t.Fatal("stale read cursor must not broadcast")
	default:
	}
}

func TestToggleReactionSetReplaceRemove(t *testing.T) {
	c, _, users, _ := newTestCoordinator(nil)
	users.friends[[2]uint{1, 2}] = true
	roomID, err := c.ResolveRoom(1, Context{Scope: models.ScopeFriend, FriendID: 2})
	require.NoError(t, err)

	msg, err := c.SendMessage(roomID, 1, "react to me", "", nil)
	require.NoError(t, err)

	out, err := c.ToggleReaction(roomID, msg.ID, 2, "👍")
	require.NoError(t, err)
	assert.Equal(t, "👍", out.Reactions[2])

	// A different emoji replaces the previous one.
	out, err = c.ToggleReaction(roomID, msg.ID, 2, "🔥")
	require.NoError(t, err)
	assert.Equal(t, "🔥", out.Reactions[2])
	assert.Len(t, out.Reactions, 1)

	// The same emoji again removes it.
	out, err = c.ToggleReaction(roomID, msg.ID, 2, "🔥")
	require.NoError(t, err)
	_, ok := out.Reactions[2]
	assert.False(t, ok)
}

func TestOnBefriendedUpgradesSharedMemberships(t *testing.T) {
	matches := map[string]*models.Match{
		"abc123": {ID: "abc123", Status: models.MatchInProgress, Players: []uint{1, 2}},
	}
	c, store, _, _ := newTestCoordinator(matches)

	roomID, err := c.ResolveRoom(1, Context{Scope: models.ScopeGame, MatchID: "abc123"})
	require.NoError(t, err)

	before, err := store.GetMembership(roomID, 1)
	require.NoError(t, err)
	assert.True(t, before.Temporary)

	c.OnBefriended(1, 2)

	for _, uid := range []uint{1, 2} {
		m, err := store.GetMembership(roomID, uid)
		require.NoError(t, err)
		assert.False(t, m.Temporary, "user %d membership should be persistent", uid)
	}
}

func TestRelayTypingRequiresMembership(t *testing.T) {
	c, _, users, h := newTestCoordinator(nil)
	users.friends[[2]uint{1, 2}] = true
	roomID, err := c.ResolveRoom(1, Context{Scope: models.ScopeFriend, FriendID: 2})
	require.NoError(t, err)

	client := make(hub.Client, 4)
	h.Subscribe(Channel(roomID), client)

	require.NoError(t, c.RelayTyping(roomID, 1, true))
	ev := drain(t, client)
	assert.Equal(t, realtime.EventChatTyping, ev.Type)
	require.NotNil(t, ev.Typing)
	assert.True(t, ev.Typing.IsTyping)

	assert.ErrorIs(t, c.RelayTyping(roomID, 9, true), ErrNotMember)
}
