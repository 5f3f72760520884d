package handler

import (
	"errors"
	"net/http"
	"strconv"
	"wordclash/backend/internal/database"
	"wordclash/backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetRelations godoc
// @Summary      Get user relations
// @Description  Fetches the viewer's relations (friends or pending requests) filtered by status and direction.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        status    query     string  false  "Filter by status (pending, accepted)"
// @Param        direction query     string  false  "Filter by direction (incoming, outgoing)"
// @Success      200       {array}   PublicUserResponse
// @Failure      400       {object}  ErrorResponse
// @Failure      401       {object}  ErrorResponse
// @Router         /users/me/relations [get]
func GetRelations(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	statusFilter := c.Query("status")
	directionFilter := c.Query("direction")

	var relations []models.UserRelation
	query := database.DB

	switch directionFilter {
	case "incoming":
		query = query.Where("to_user_id = ?", viewerID)
	case "outgoing":
		query = query.Where("from_user_id = ?", viewerID)
	default:
		query = query.Where("from_user_id = ? OR to_user_id = ?", viewerID, viewerID)
	}

	if statusFilter != "" {
		query = query.Where("status = ?", statusFilter)
	}

	if err := query.Preload("FromUser").Preload("ToUser").Find(&relations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch relations"})
		return
	}

	var userResponses []PublicUserResponse
	for _, r := range relations {
		var targetUser models.User
		if r.FromUserID == viewerID.(uint) {
			targetUser = r.ToUser
		} else {
			targetUser = r.FromUser
		}
		if targetUser.ID == 0 {
			continue
		}
		userResponses = append(userResponses, buildPublicUserResponse(targetUser, viewerID.(uint)))
	}

	c.JSON(http.StatusOK, userResponses)
}

// SendRequest godoc
// @Summary      Send friend request
// @Description  Sends a friend request to another registered user. Guest accounts cannot befriend.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      201  {object}  map[string]string "{"message": "Request sent successfully"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Guest accounts cannot befriend"
// @Failure      404  {object}  ErrorResponse "Target user not found"
// @Failure      409  {object}  ErrorResponse "Relation already exists"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/request [post]
func SendRequest(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	targetUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}

	if viewerID.(uint) == uint(targetUserID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot send request to yourself"})
		return
	}

	var viewer, target models.User
	if err := database.DB.First(&viewer, viewerID.(uint)).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}
	if err := database.DB.First(&target, uint(targetUserID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Target user not found"})
		return
	}
	if viewer.Guest || target.Guest {
		c.JSON(http.StatusForbidden, gin.H{"error": "Guest accounts cannot befriend"})
		return
	}

	var existingRelation models.UserRelation
	err = database.DB.Where(
		"(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
		viewerID, targetUserID, targetUserID, viewerID,
	).First(&existingRelation).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusConflict, gin.H{"error": "Relation already exists or another error occurred"})
		return
	}

	newRelation := models.UserRelation{
		FromUserID: viewerID.(uint),
		ToUserID:   uint(targetUserID),
		Status:     models.StatusPending,
	}
	if err := database.DB.Create(&newRelation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create relation"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Request sent successfully"})
}

// AcceptRequest godoc
// @Summary      Accept friend request
// @Description  Accepts a pending friend request. Any chat history the pair shares from past matches becomes persistent.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  map[string]string "{"message": "Request accepted"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Request not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/accept [post]
func AcceptRequest(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	requestingUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid requesting user ID"})
		return
	}

	var request models.UserRelation
	err = database.DB.Where("from_user_id = ? AND to_user_id = ? AND status = ?", requestingUserID, viewerID, models.StatusPending).First(&request).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pending request not found"})
		return
	}

	if err := database.DB.Model(&request).Update("status", models.StatusAccepted).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept request"})
		return
	}

	// Match chat the pair shared while unacquainted survives now that they
	// are friends.
	if Chats != nil {
		Chats.OnBefriended(viewerID.(uint), uint(requestingUserID))
	}

	c.JSON(http.StatusOK, gin.H{"message": "Request accepted"})
}

// DeclineRequest godoc
// @Summary      Decline friend request
// @Description  Declines a pending friend request from another user.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  map[string]string "{"message": "Request declined"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Request not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/decline [post]
func DeclineRequest(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	requestingUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid requesting user ID"})
		return
	}

	result := database.DB.Where("from_user_id = ? AND to_user_id = ? AND status = ?", requestingUserID, viewerID, models.StatusPending).Delete(&models.UserRelation{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decline request"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pending request not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Request declined"})
}

// RemoveRelation godoc
// @Summary      Remove relation
// @Description  Cancels a sent request or removes a friend.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      200  {object}  map[string]string "{"message": "Relation removed"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Relation not found"
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id}/remove [post]
func RemoveRelation(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	targetUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}

	result := database.DB.Where(
		"(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
		viewerID, targetUserID, targetUserID, viewerID,
	).Delete(&models.UserRelation{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove relation"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Relation not found to remove"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Relation removed"})
}
