package realtime

import "time"

// EventType tags every frame crossing the realtime connection.
type EventType string

const (
	// client -> server
	EventChatSubscribe   EventType = "chat:subscribe"
	EventChatUnsubscribe EventType = "chat:unsubscribe"
	EventMatchEnter      EventType = "match:enter"
	EventMatchLeave      EventType = "match:leave"

	// server -> client
	EventChatMessage   EventType = "chat:message"
	EventChatRead      EventType = "chat:read"
	EventChatError     EventType = "chat:error"
	EventMatchSnapshot EventType = "match:snapshot"

	// bidirectional, relayed live and never persisted
	EventChatTyping EventType = "chat:typing"
)

// ClientEvent is a frame sent by a client over the shared connection.
type ClientEvent struct {
	Type     EventType `json:"type"`
	RoomID   string    `json:"room_id,omitempty"`
	MatchID  string    `json:"match_id,omitempty"`
	UserID   uint      `json:"user_id,omitempty"`
	IsTyping bool      `json:"is_typing,omitempty"`
	Passcode string    `json:"passcode,omitempty"`
}

// MessageView is the wire shape of a chat message.
type MessageView struct {
	ID              uint            `json:"id"`
	RoomID          string          `json:"room_id"`
	SenderID        uint            `json:"sender_id"`
	Text            string          `json:"text"`
	SentAt          time.Time       `json:"sent_at"`
	ClientMessageID string          `json:"client_message_id,omitempty"`
	ReplyToID       *uint           `json:"reply_to_id,omitempty"`
	Reactions       map[uint]string `json:"reactions,omitempty"`
}

// ReadReceipt announces a member's advanced read cursor.
type ReadReceipt struct {
	UserID     uint      `json:"user_id"`
	LastReadAt time.Time `json:"last_read_at"`
}

// TypingState is a live typing indicator; the server only relays it.
type TypingState struct {
	UserID   uint `json:"user_id"`
	IsTyping bool `json:"is_typing"`
}

// ServerEvent is a frame pushed to clients. Exactly one variant field is set,
// selected by Type.
type ServerEvent struct {
	Type    EventType    `json:"type"`
	RoomID  string       `json:"room_id,omitempty"`
	Message *MessageView `json:"message,omitempty"`
	Read    *ReadReceipt `json:"read,omitempty"`
	Typing  *TypingState `json:"typing,omitempty"`
	Error   string       `json:"error,omitempty"`
	Match   interface{}  `json:"match,omitempty"`
}

func NewChatMessage(roomID string, msg MessageView) ServerEvent {
	return ServerEvent{Type: EventChatMessage, RoomID: roomID, Message: &msg}
}

func NewChatRead(roomID string, userID uint, at time.Time) ServerEvent {
	return ServerEvent{Type: EventChatRead, RoomID: roomID, Read: &ReadReceipt{UserID: userID, LastReadAt: at}}
}

func NewChatTyping(roomID string, userID uint, isTyping bool) ServerEvent {
	return ServerEvent{Type: EventChatTyping, RoomID: roomID, Typing: &TypingState{UserID: userID, IsTyping: isTyping}}
}

func NewChatError(roomID, code string) ServerEvent {
	return ServerEvent{Type: EventChatError, RoomID: roomID, Error: code}
}

func NewMatchSnapshot(channel string, snapshot interface{}) ServerEvent {
	return ServerEvent{Type: EventMatchSnapshot, RoomID: channel, Match: snapshot}
}
