package ws

import (
	"encoding/json"
	"errors"
	"time"

	"wordclash/backend/internal/chat"
	"wordclash/backend/internal/hub"
	"wordclash/backend/internal/match"
	"wordclash/backend/pkg/realtime"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameBytes = 8 * 1024
	sendBuffer    = 64
)

// connection binds one websocket to its hub client and tracks which matches
// the user has entered through it, so presence can be released on disconnect.
type connection struct {
	conn   *websocket.Conn
	client hub.Client
	userID uint

	hub     *hub.Hub
	chats   *chat.Coordinator
	matches *match.Service

	entered map[string]bool
}

// readPump consumes client frames until the connection dies, then releases
// every piece of state the connection held.
func (c *connection) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(maxFrameBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).WithField("userID", c.userID).Debug("websocket closed unexpectedly")
			}
			return
		}
		var ev realtime.ClientEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			c.hub.Send(c.client, realtime.NewChatError("", "bad_frame"))
			continue
		}
		c.dispatch(ev)
	}
}

// writePump drains the hub client channel onto the socket and keeps the
// connection alive with pings.
func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.client:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub dropped us.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) dispatch(ev realtime.ClientEvent) {
	switch ev.Type {
	case realtime.EventChatSubscribe:
		if err := c.chats.CanAccess(ev.RoomID, c.userID); err != nil {
			c.hub.Send(c.client, realtime.NewChatError(ev.RoomID, errorCode(err)))
			return
		}
		c.hub.Subscribe(chat.Channel(ev.RoomID), c.client)

	case realtime.EventChatUnsubscribe:
		c.hub.Unsubscribe(chat.Channel(ev.RoomID), c.client)

	case realtime.EventChatTyping:
		if err := c.chats.RelayTyping(ev.RoomID, c.userID, ev.IsTyping); err != nil {
			c.hub.Send(c.client, realtime.NewChatError(ev.RoomID, errorCode(err)))
		}

	case realtime.EventMatchEnter:
		m, err := c.matches.RecordEntry(ev.MatchID, c.userID, ev.Passcode)
		if err != nil {
			c.hub.Send(c.client, realtime.NewChatError(ev.MatchID, errorCode(err)))
			return
		}
		channel := match.Channel(ev.MatchID)
		c.hub.Subscribe(channel, c.client)
		c.entered[ev.MatchID] = true
		c.hub.Send(c.client, realtime.NewMatchSnapshot(channel, match.Snapshot(m)))

	case realtime.EventMatchLeave:
		c.hub.Unsubscribe(match.Channel(ev.MatchID), c.client)
		delete(c.entered, ev.MatchID)
		if _, err := c.matches.RecordLeave(ev.MatchID, c.userID); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"matchID": ev.MatchID, "userID": c.userID,
			}).Debug("leave on departed match")
		}

	default:
		c.hub.Send(c.client, realtime.NewChatError("", "unknown_event"))
	}
}

// teardown releases presence in every entered match and detaches from the
// hub. Runs exactly once, from the read pump.
func (c *connection) teardown() {
	c.conn.Close()
	for matchID := range c.entered {
		if _, err := c.matches.RecordLeave(matchID, c.userID); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"matchID": matchID, "userID": c.userID,
			}).Debug("presence release on disconnect")
		}
	}
	c.hub.Drop(c.client)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, chat.ErrNotMember):
		return "not_member"
	case errors.Is(err, chat.ErrGuestNotAllowed):
		return "guest_not_allowed"
	case errors.Is(err, chat.ErrRoomClosed):
		return "room_closed"
	case errors.Is(err, chat.ErrWaitingForPlayers):
		return "waiting_for_players"
	case errors.Is(err, match.ErrMatchCompleted):
		return "match_completed"
	case errors.Is(err, match.ErrMatchFull):
		return "match_full"
	case errors.Is(err, match.ErrBadPasscode), errors.Is(err, match.ErrPasscodeRequired):
		return "bad_passcode"
	case errors.Is(err, match.ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}
