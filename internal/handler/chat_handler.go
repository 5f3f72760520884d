package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"
	"wordclash/backend/internal/chat"
	"wordclash/backend/internal/models"
	"wordclash/backend/pkg/realtime"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type OpenRoomInput struct {
	Scope    string `json:"scope" binding:"required,oneof=friend lobby game" example:"friend"`
	FriendID uint   `json:"friend_id" example:"2"`
	MatchID  string `json:"match_id" example:"k3v9qx"`
}

type SendMessageInput struct {
	Text            string `json:"text" binding:"required" example:"good luck!"`
	ClientMessageID string `json:"client_message_id" example:"c7f0d1"`
	ReplyToID       *uint  `json:"reply_to_id"`
}

type MarkReadInput struct {
	LastSeenAt time.Time `json:"last_seen_at" binding:"required"`
}

type ReactionInput struct {
	Emoji string `json:"emoji" binding:"required" example:"🔥"`
}

// endregion

// region --- Chat Handlers ---

// OpenRoom godoc
// @Summary      Open a chat room
// @Description  Resolves a conversation context (friend, lobby, or game) to its room, creating it on first use.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body OpenRoomInput true "Conversation context"
// @Success      200  {object}  map[string]string "{"room_id": "friend:1-2"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Not a member"
// @Failure      409  {object}  ErrorResponse "Waiting for players"
// @Failure      410  {object}  ErrorResponse "Room closed"
// @Router       /chat/rooms [post]
func OpenRoom(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input OpenRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Scope == models.ScopeFriend && input.FriendID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "friend_id is required for friend rooms"})
		return
	}
	if input.Scope != models.ScopeFriend && input.MatchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "match_id is required for lobby and game rooms"})
		return
	}

	roomID, err := Chats.ResolveRoom(userID.(uint), chat.Context{
		Scope:    input.Scope,
		FriendID: input.FriendID,
		MatchID:  input.MatchID,
	})
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room_id": roomID})
}

// SendMessage godoc
// @Summary      Send a chat message
// @Description  Persists a message and fans it out to room subscribers. The client message id is echoed back so optimistic copies can be reconciled.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path string           true "Room ID"
// @Param        input body SendMessageInput true "Message"
// @Success      201  {object}  realtime.MessageView
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Not a member / guest not allowed"
// @Failure      410  {object}  ErrorResponse "Room closed"
// @Router       /chat/rooms/{id}/messages [post]
func SendMessage(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := Chats.SendMessage(c.Param("id"), userID.(uint), input.Text, input.ClientMessageID, input.ReplyToID)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusCreated, chat.MessageView(msg))
}

// GetMessages godoc
// @Summary      Get room history
// @Description  Returns the newest messages of a room the caller belongs to.
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string true  "Room ID"
// @Param        limit query int    false "Messages to return" default(50)
// @Success      200  {array}   realtime.MessageView
// @Failure      403  {object}  ErrorResponse "Not a member"
// @Router       /chat/rooms/{id}/messages [get]
func GetMessages(c *gin.Context) {
	userID, _ := c.Get("userID")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	msgs, err := Chats.History(c.Param("id"), userID.(uint), limit)
	if err != nil {
		respondChatError(c, err)
		return
	}

	views := make([]realtime.MessageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, chat.MessageView(&msgs[i]))
	}
	c.JSON(http.StatusOK, views)
}

// MarkRead godoc
// @Summary      Advance the read cursor
// @Description  Records how far the caller has read. Cursors only move forward; stale values are ignored.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path string        true "Room ID"
// @Param        input body MarkReadInput true "Read cursor"
// @Success      200  {object}  map[string]string "{"message": "Read cursor updated"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Not a member"
// @Router       /chat/rooms/{id}/read [post]
func MarkRead(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input MarkReadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := Chats.MarkRead(c.Param("id"), userID.(uint), input.LastSeenAt); err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Read cursor updated"})
}

// ToggleReaction godoc
// @Summary      Toggle a message reaction
// @Description  Sets the caller's reaction on a message, one per user; repeating the same emoji removes it.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id        path string        true "Room ID"
// @Param        messageID path int           true "Message ID"
// @Param        input     body ReactionInput true "Reaction"
// @Success      200  {object}  realtime.MessageView
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Not a member"
// @Failure      404  {object}  ErrorResponse "Message not found"
// @Router       /chat/rooms/{id}/messages/{messageID}/reactions [post]
func ToggleReaction(c *gin.Context) {
	userID, _ := c.Get("userID")

	messageID, err := strconv.ParseUint(c.Param("messageID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	var input ReactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := Chats.ToggleReaction(c.Param("id"), uint(messageID), userID.(uint), input.Emoji)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, chat.MessageView(msg))
}

// endregion

// respondChatError maps chat coordinator sentinels onto HTTP statuses.
func respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrNotMember):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this room"})
	case errors.Is(err, chat.ErrGuestNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": "Guests cannot post in persistent rooms"})
	case errors.Is(err, chat.ErrRoomClosed):
		c.JSON(http.StatusGone, gin.H{"error": "Room is closed"})
	case errors.Is(err, chat.ErrWaitingForPlayers):
		c.JSON(http.StatusConflict, gin.H{"error": "Waiting for players"})
	case errors.Is(err, chat.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is empty"})
	case errors.Is(err, chat.ErrMessageTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is too long"})
	case errors.Is(err, chat.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
