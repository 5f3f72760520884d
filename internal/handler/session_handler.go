package handler

import (
	"errors"
	"net/http"
	"wordclash/backend/internal/sessionlock"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type ClaimSessionInput struct {
	SessionID   string `json:"session_id" binding:"required" example:"7f3b2a90"`
	DeviceLabel string `json:"device_label" example:"Chrome on macOS"`
	Origin      string `json:"origin" example:"https://wordclash.gg"`
}

type HeartbeatInput struct {
	SessionID string `json:"session_id" binding:"required" example:"7f3b2a90"`
}

// ClaimSessionResponse reports whether the session holds the account lock.
// When blocked, the current holder's metadata is included for display.
type ClaimSessionResponse struct {
	Granted  bool   `json:"granted"`
	Disabled bool   `json:"disabled"`
	HeldBy   string `json:"held_by,omitempty"`
	Origin   string `json:"origin,omitempty"`
}

// endregion

// region --- Session Lock Handlers ---

// ClaimSession godoc
// @Summary      Claim the active session lock
// @Description  Grants this session exclusive occupancy of the account, or reports the current holder if it is still active.
// @Tags         session
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body ClaimSessionInput true "Session identity"
// @Success      200  {object}  ClaimSessionResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /session/claim [post]
func ClaimSession(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input ClaimSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := Locks.Claim(userID.(uint), input.SessionID, sessionlock.Metadata{
		DeviceLabel: input.DeviceLabel,
		Origin:      input.Origin,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to claim session"})
		return
	}

	resp := ClaimSessionResponse{Granted: result.Granted, Disabled: result.Disabled}
	if !result.Granted && result.Lock != nil {
		resp.HeldBy = result.Lock.DeviceLabel
		resp.Origin = result.Lock.Origin
	}
	c.JSON(http.StatusOK, resp)
}

// HeartbeatSession godoc
// @Summary      Heartbeat the session lock
// @Description  Refreshes the holder's last-seen timestamp. A 409 means another session has taken the lock over.
// @Tags         session
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body HeartbeatInput true "Session identity"
// @Success      200  {object}  map[string]string "{"message": "ok"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Lock superseded"
// @Router       /session/heartbeat [post]
func HeartbeatSession(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input HeartbeatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := Locks.Heartbeat(userID.(uint), input.SessionID); err != nil {
		if errors.Is(err, sessionlock.ErrSuperseded) || errors.Is(err, sessionlock.ErrNotFound) {
			c.JSON(http.StatusConflict, gin.H{"error": "Session lock superseded"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to heartbeat session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// ReleaseSession godoc
// @Summary      Release the session lock
// @Description  Releases the lock if this session still holds it. Releasing a lock you no longer hold is a no-op.
// @Tags         session
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body HeartbeatInput true "Session identity"
// @Success      200  {object}  map[string]string "{"message": "ok"}"
// @Failure      400  {object}  ErrorResponse
// @Router       /session/release [post]
func ReleaseSession(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input HeartbeatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := Locks.Release(userID.(uint), input.SessionID); err != nil && !errors.Is(err, sessionlock.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to release session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// endregion
