package ws

import (
	"net/http"

	"wordclash/backend/internal/chat"
	"wordclash/backend/internal/hub"
	"wordclash/backend/internal/match"
	"wordclash/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the SPA origin; token auth is the gate.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades authenticated clients onto the shared realtime connection.
type Handler struct {
	hub     *hub.Hub
	chats   *chat.Coordinator
	matches *match.Service
}

func NewHandler(h *hub.Hub, chats *chat.Coordinator, matches *match.Service) *Handler {
	return &Handler{hub: h, chats: chats, matches: matches}
}

// Serve handles GET /ws?token=<jwt>. Browsers cannot set headers on websocket
// upgrades, so the token rides the query string.
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}
	userID, err := jwt.ParseUserID(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	cn := &connection{
		conn:    conn,
		client:  make(hub.Client, sendBuffer),
		userID:  userID,
		hub:     h.hub,
		chats:   h.chats,
		matches: h.matches,
		entered: map[string]bool{},
	}

	go cn.writePump()
	go cn.readPump()
}
