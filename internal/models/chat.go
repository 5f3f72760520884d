package models

import (
	"time"

	"gorm.io/gorm"
)

// ChatRoomType distinguishes rooms that live forever from rooms scoped to a
// match's lifetime.
type ChatRoomType string

const (
	// RoomPersistent rooms are keyed to a friendship and live indefinitely.
	RoomPersistent ChatRoomType = "persistent"
	// RoomTemporary rooms are keyed to a lobby or game and lose relevance
	// once the match completes.
	RoomTemporary ChatRoomType = "temporary"
)

// Chat room scopes. The room ID is derived deterministically from the scope
// and its referent: friend:<lo>-<hi>, lobby:<matchID>, game:<matchID>.
const (
	ScopeFriend = "friend"
	ScopeLobby  = "lobby"
	ScopeGame   = "game"
)

// ChatRoom is one conversation context.
type ChatRoom struct {
	ID            string       `gorm:"primaryKey;size:64"`
	Type          ChatRoomType `gorm:"size:20;not null"`
	Scope         string       `gorm:"size:20;not null;index"`
	MemberIDs     []uint       `gorm:"serializer:json"`
	GuestAllowed  bool         `gorm:"not null;default:false"`
	LastMessageAt *time.Time
	// ReadReceipts mirrors each membership's LastReadAt for cheap snapshot
	// reads; per-membership rows remain the monotonic authority.
	ReadReceipts map[uint]time.Time `gorm:"serializer:json"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasMember reports room membership.
func (r *ChatRoom) HasMember(userID uint) bool {
	for _, id := range r.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ChatMembership is the per-(room, user) record. Temporary memberships are
// upgraded to persistent if the same users later befriend.
type ChatMembership struct {
	RoomID     string `gorm:"primaryKey;size:64"`
	UserID     uint   `gorm:"primaryKey"`
	Temporary  bool   `gorm:"not null;default:true"`
	JoinedAt   time.Time
	LastReadAt *time.Time
}

// ChatMessage is immutable once written, except for its reaction map.
type ChatMessage struct {
	gorm.Model
	RoomID          string `gorm:"size:64;not null;index"`
	SenderID        uint   `gorm:"not null"`
	Text            string `gorm:"not null"`
	SentAt          time.Time
	ClientMessageID string          `gorm:"size:64;index"`
	ReplyToID       *uint
	Reactions       map[uint]string `gorm:"serializer:json"` // userID -> emoji, one per user
}
