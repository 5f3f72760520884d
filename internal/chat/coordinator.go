package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"wordclash/backend/internal/hub"
	"wordclash/backend/internal/models"
	"wordclash/backend/pkg/realtime"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotMember         = errors.New("not_member")
	ErrGuestNotAllowed   = errors.New("guest_not_allowed")
	ErrRoomClosed        = errors.New("room_closed")
	ErrWaitingForPlayers = errors.New("waiting_for_players")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrMessageTooLong    = errors.New("message is too long")
)

// MaxMessageRunes caps a single chat message.
const MaxMessageRunes = 2000

const (
	roomCacheSize = 1024
	roomCacheTTL  = 10 * time.Minute
)

// MatchReader is the slice of the match service the coordinator needs to
// gate temporary rooms on match state.
type MatchReader interface {
	Get(id string) (*models.Match, error)
}

// UserDirectory answers identity questions about chat participants.
type UserDirectory interface {
	IsGuest(userID uint) (bool, error)
	AreFriends(a, b uint) (bool, error)
}

// Context names a conversation a user wants a room for.
type Context struct {
	Scope    string // models.ScopeFriend, ScopeLobby, ScopeGame
	FriendID uint   // the other party, friend scope only
	MatchID  string // lobby and game scopes only
}

// RoomID derives the deterministic room id for a context. Friend rooms order
// the pair so both sides resolve to the same id.
func (c Context) RoomID(userID uint) string {
	switch c.Scope {
	case models.ScopeFriend:
		lo, hi := userID, c.FriendID
		if lo > hi {
			lo, hi = hi, lo
		}
		return fmt.Sprintf("%s:%d-%d", models.ScopeFriend, lo, hi)
	case models.ScopeLobby:
		return models.ScopeLobby + ":" + c.MatchID
	default:
		return models.ScopeGame + ":" + c.MatchID
	}
}

// Channel is the pub/sub channel a room's events are published on.
func Channel(roomID string) string {
	return "chat:" + roomID
}

// Coordinator resolves conversation contexts to rooms and mediates all chat
// writes. Resolution results are cached per (user, room) so repeated opens
// of the same conversation skip the database; concurrent resolutions of the
// same key are coalesced into a single lookup.
type Coordinator struct {
	store   Store
	matches MatchReader
	users   UserDirectory
	hub     *hub.Hub
	cache   *lru.LRU[string, string]
	group   singleflight.Group
	now     func() time.Time
}

func NewCoordinator(store Store, matches MatchReader, users UserDirectory, h *hub.Hub) *Coordinator {
	return &Coordinator{
		store:   store,
		matches: matches,
		users:   users,
		hub:     h,
		cache:   lru.NewLRU[string, string](roomCacheSize, nil, roomCacheTTL),
		now:     time.Now,
	}
}

// ResolveRoom returns the room id for ctx, creating the room and its
// memberships on first use.
func (c *Coordinator) ResolveRoom(userID uint, ctx Context) (string, error) {
	roomID := ctx.RoomID(userID)
	key := fmt.Sprintf("%d|%s", userID, roomID)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if err := c.ensureRoom(userID, ctx, roomID); err != nil {
			return "", err
		}
		return roomID, nil
	})
	if err != nil {
		return "", err
	}
	id := v.(string)
	c.cache.Add(key, id)
	return id, nil
}

func (c *Coordinator) ensureRoom(userID uint, ctx Context, roomID string) error {
	if ctx.Scope == models.ScopeFriend {
		return c.ensureFriendRoom(userID, ctx.FriendID, roomID)
	}
	return c.ensureMatchRoom(userID, ctx, roomID)
}

func (c *Coordinator) ensureFriendRoom(userID, friendID uint, roomID string) error {
	ok, err := c.users.AreFriends(userID, friendID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	now := c.now()
	room := &models.ChatRoom{
		ID:        roomID,
		Type:      models.RoomPersistent,
		Scope:     models.ScopeFriend,
		MemberIDs: []uint{userID, friendID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	memberships := []models.ChatMembership{
		{RoomID: roomID, UserID: userID, Temporary: false, JoinedAt: now},
		{RoomID: roomID, UserID: friendID, Temporary: false, JoinedAt: now},
	}
	return c.store.EnsureRoom(room, memberships)
}

func (c *Coordinator) ensureMatchRoom(userID uint, ctx Context, roomID string) error {
	m, err := c.matches.Get(ctx.MatchID)
	if err != nil {
		return err
	}
	switch ctx.Scope {
	case models.ScopeLobby:
		// Lobby chat stays open for the whole match.
		if m.Status == models.MatchCompleted {
			return ErrRoomClosed
		}
	case models.ScopeGame:
		// Game chat only exists while play is underway.
		if m.Status == models.MatchCompleted {
			return ErrRoomClosed
		}
		if m.Status == models.MatchWaiting {
			return ErrWaitingForPlayers
		}
	}
	// Match chat needs both seats filled before anyone may open it, the
	// creator included.
	if len(m.Players) < 2 {
		return ErrWaitingForPlayers
	}
	now := c.now()
	room := &models.ChatRoom{
		ID:           roomID,
		Type:         models.RoomTemporary,
		Scope:        ctx.Scope,
		MemberIDs:    m.Players,
		GuestAllowed: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	memberships := make([]models.ChatMembership, 0, len(m.Players))
	for _, pid := range m.Players {
		memberships = append(memberships, models.ChatMembership{
			RoomID: roomID, UserID: pid, Temporary: true, JoinedAt: now,
		})
	}
	if err := c.store.EnsureRoom(room, memberships); err != nil {
		return err
	}
	if !m.HasPlayer(userID) {
		return ErrNotMember
	}
	// A player who joined after the room was first created still needs a
	// membership row.
	return c.store.EnsureMembership(&models.ChatMembership{
		RoomID: roomID, UserID: userID, Temporary: true, JoinedAt: now,
	})
}

// CanAccess reports whether userID may subscribe to roomID.
func (c *Coordinator) CanAccess(roomID string, userID uint) error {
	_, err := c.store.GetMembership(roomID, userID)
	if errors.Is(err, ErrMembershipNotFound) {
		return ErrNotMember
	}
	return err
}

// SendMessage validates, persists, and fans out one message.
func (c *Coordinator) SendMessage(roomID string, senderID uint, text, clientMessageID string, replyToID *uint) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		return nil, ErrMessageTooLong
	}
	room, err := c.store.GetRoom(roomID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	if _, err := c.store.GetMembership(roomID, senderID); err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	guest, err := c.users.IsGuest(senderID)
	if err != nil {
		return nil, err
	}
	if guest && room.Type == models.RoomPersistent {
		return nil, ErrGuestNotAllowed
	}
	if err := c.checkOpen(room); err != nil {
		return nil, err
	}
	msg := &models.ChatMessage{
		RoomID:          roomID,
		SenderID:        senderID,
		Text:            text,
		SentAt:          c.now(),
		ClientMessageID: clientMessageID,
		ReplyToID:       replyToID,
	}
	if err := c.store.AppendMessage(msg); err != nil {
		return nil, err
	}
	c.hub.Broadcast(Channel(roomID), realtime.NewChatMessage(roomID, MessageView(msg)))
	return msg, nil
}

// checkOpen rejects writes to temporary rooms whose match has moved past the
// room's scope.
func (c *Coordinator) checkOpen(room *models.ChatRoom) error {
	if room.Type != models.RoomTemporary {
		return nil
	}
	matchID := room.ID[strings.IndexByte(room.ID, ':')+1:]
	m, err := c.matches.Get(matchID)
	if err != nil {
		return ErrRoomClosed
	}
	if m.Status == models.MatchCompleted {
		return ErrRoomClosed
	}
	if room.Scope == models.ScopeGame && m.Status == models.MatchWaiting {
		return ErrWaitingForPlayers
	}
	return nil
}

// MarkRead advances the caller's read cursor. Stale cursors are ignored and
// not rebroadcast.
func (c *Coordinator) MarkRead(roomID string, userID uint, at time.Time) error {
	if _, err := c.store.GetMembership(roomID, userID); err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return ErrNotMember
		}
		return err
	}
	updated, err := c.store.MarkRead(roomID, userID, at)
	if err != nil {
		return err
	}
	if updated {
		c.hub.Broadcast(Channel(roomID), realtime.NewChatRead(roomID, userID, at))
	}
	return nil
}

// ToggleReaction sets the caller's reaction on a message, replacing any
// previous one; reacting with the same emoji again removes it.
func (c *Coordinator) ToggleReaction(roomID string, messageID, userID uint, emoji string) (*models.ChatMessage, error) {
	if _, err := c.store.GetMembership(roomID, userID); err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	msg, err := c.store.UpdateMessage(messageID, func(m *models.ChatMessage) error {
		if m.RoomID != roomID {
			return ErrMessageNotFound
		}
		if m.Reactions == nil {
			m.Reactions = map[uint]string{}
		}
		if m.Reactions[userID] == emoji {
			delete(m.Reactions, userID)
		} else {
			m.Reactions[userID] = emoji
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.hub.Broadcast(Channel(roomID), realtime.NewChatMessage(roomID, MessageView(msg)))
	return msg, nil
}

// RelayTyping fans a typing indicator out to the room without persisting it.
func (c *Coordinator) RelayTyping(roomID string, userID uint, isTyping bool) error {
	if _, err := c.store.GetMembership(roomID, userID); err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return ErrNotMember
		}
		return err
	}
	c.hub.Broadcast(Channel(roomID), realtime.NewChatTyping(roomID, userID, isTyping))
	return nil
}

// History returns the newest messages of a room the caller belongs to.
func (c *Coordinator) History(roomID string, userID uint, limit int) ([]models.ChatMessage, error) {
	if _, err := c.store.GetMembership(roomID, userID); err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return c.store.ListMessages(roomID, limit)
}

// OnBefriended upgrades the pair's temporary memberships so their shared
// lobby and game history survives match completion.
func (c *Coordinator) OnBefriended(a, b uint) {
	if err := c.store.UpgradeSharedMemberships(a, b); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_a": a, "user_b": b,
		}).Warn("failed to upgrade shared chat memberships")
	}
}

// MessageView maps a stored message to its wire shape.
func MessageView(m *models.ChatMessage) realtime.MessageView {
	return realtime.MessageView{
		ID:              m.ID,
		RoomID:          m.RoomID,
		SenderID:        m.SenderID,
		Text:            m.Text,
		SentAt:          m.SentAt,
		ClientMessageID: m.ClientMessageID,
		ReplyToID:       m.ReplyToID,
		Reactions:       m.Reactions,
	}
}
