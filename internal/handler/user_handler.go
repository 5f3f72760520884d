package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"wordclash/backend/internal/database"
	"wordclash/backend/internal/models"
	"wordclash/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	Nickname string `json:"nickname" binding:"required" example:"wordsmith"`
	Email    string `json:"email" binding:"required,email" example:"test@example.com"`
	Password string `json:"password" binding:"required,min=8" example:"password123"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Login    string `json:"login" binding:"required" example:"wordsmith"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// PublicUserResponse defines the structure for a user's public profile.
type PublicUserResponse struct {
	ID           uint                     `json:"id" example:"1"`
	Nickname     string                   `json:"nickname" example:"wordsmith"`
	Guest        bool                     `json:"guest"`
	FriendsCount int64                    `json:"friends_count"`
	RelationToMe *models.FriendshipStatus `json:"relation_to_me,omitempty"`
	MeToRelation *models.FriendshipStatus `json:"me_to_relation,omitempty"`
}

// PrivateUserResponse defines the structure for the authenticated user's own profile.
type PrivateUserResponse struct {
	ID           uint   `json:"id" example:"1"`
	Nickname     string `json:"nickname" example:"wordsmith"`
	Email        string `json:"email" example:"test@example.com"`
	Guest        bool   `json:"guest"`
	FriendsCount int64  `json:"friends_count"`
	PendingCount int64  `json:"pending_count"`
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// PaginatedUserResponse defines the structure for a paginated list of users.
type PaginatedUserResponse struct {
	Data []PublicUserResponse `json:"data"`
	Meta PaginationMeta       `json:"meta"`
}

// endregion

// region --- Auth Handlers ---

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates a new user and returns an authentication token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  map[string]string "{"token": "..."}"
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existingUser models.User
	if err := database.DB.Where("nickname = ? OR email = ?", input.Nickname, input.Email).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Nickname or email already exists"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Nickname:     input.Nickname,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
	}
	if err := database.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with nickname/email and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  map[string]string "{"token": "..."}"
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      404  {object}  ErrorResponse "User not found"
// @Failure      500  {object}  ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := database.DB.Where("(nickname = ? OR email = ?) AND guest = false", input.Login, input.Login).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// CreateGuest godoc
// @Summary      Create a guest account
// @Description  Mints a throwaway guest account so a visitor can join a match without registering.
// @Tags         auth
// @Produce      json
// @Success      201  {object}  map[string]string "{"token": "...", "nickname": "..."}"
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/guest [post]
func CreateGuest(c *gin.Context) {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	user := models.User{
		Nickname: "guest-" + suffix,
		Guest:    true,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create guest"})
		return
	}

	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "nickname": user.Nickname})
}

// endregion

// region --- User Handlers ---

// SearchUsers godoc
// @Summary      Search for users
// @Description  Searches registered users by nickname with pagination. Guest accounts are excluded.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        q     query     string  false  "Search query for nickname"
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(10)
// @Success      200   {object}  PaginatedUserResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /users [get]
func SearchUsers(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	searchQuery := c.Query("q")

	page, limit := PageParams(c)
	offset := (page - 1) * limit

	var users []models.User
	var totalItems int64

	query := database.DB.Model(&models.User{}).Where("guest = false AND id <> ?", viewerID.(uint))
	if searchQuery != "" {
		query = query.Where("nickname ILIKE ?", "%"+searchQuery+"%")
	}

	if err := query.Count(&totalItems).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
		return
	}

	if err := query.Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	userResponses := make([]PublicUserResponse, 0, len(users))
	for _, user := range users {
		userResponses = append(userResponses, buildPublicUserResponse(user, viewerID.(uint)))
	}

	c.JSON(http.StatusOK, PaginatedUserResponse{
		Data: userResponses,
		Meta: PaginationMeta{
			TotalItems:  totalItems,
			TotalPages:  (int(totalItems) + limit - 1) / limit,
			CurrentPage: page,
			PageSize:    limit,
		},
	})
}

// GetUserByID godoc
// @Summary      Get user by ID
// @Description  Retrieves the public profile for a specific user by their ID, including relationship data.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  PublicUserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [get]
func GetUserByID(c *gin.Context) {
	viewerID, _ := c.Get("userID")
	targetUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if viewerID.(uint) == uint(targetUserID) {
		GetMe(c)
		return
	}

	var targetUser models.User
	if err := database.DB.First(&targetUser, uint(targetUserID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, buildPublicUserResponse(targetUser, viewerID.(uint)))
}

// GetMe godoc
// @Summary      Get current user's info
// @Description  Retrieves the private profile for the currently authenticated user.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/me [get]
func GetMe(c *gin.Context) {
	viewerID, _ := c.Get("userID")

	var user models.User
	if err := database.DB.First(&user, viewerID.(uint)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, buildPrivateUserResponse(user))
}

// endregion

// region --- Helpers ---

func buildPublicUserResponse(targetUser models.User, viewerID uint) PublicUserResponse {
	var friendsCount int64
	database.DB.Model(&models.UserRelation{}).
		Where("(from_user_id = ? OR to_user_id = ?) AND status = ?", targetUser.ID, targetUser.ID, models.StatusAccepted).
		Count(&friendsCount)

	var relationToMe, meToRelation models.UserRelation
	var relationToMeStatus, meToRelationStatus *models.FriendshipStatus

	err := database.DB.Where("from_user_id = ? AND to_user_id = ?", targetUser.ID, viewerID).First(&relationToMe).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		relationToMeStatus = &relationToMe.Status
	}

	err = database.DB.Where("from_user_id = ? AND to_user_id = ?", viewerID, targetUser.ID).First(&meToRelation).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		meToRelationStatus = &meToRelation.Status
	}

	return PublicUserResponse{
		ID:           targetUser.ID,
		Nickname:     targetUser.Nickname,
		Guest:        targetUser.Guest,
		FriendsCount: friendsCount,
		RelationToMe: relationToMeStatus,
		MeToRelation: meToRelationStatus,
	}
}

func buildPrivateUserResponse(user models.User) PrivateUserResponse {
	var friendsCount, pendingCount int64
	database.DB.Model(&models.UserRelation{}).
		Where("(from_user_id = ? OR to_user_id = ?) AND status = ?", user.ID, user.ID, models.StatusAccepted).
		Count(&friendsCount)
	database.DB.Model(&models.UserRelation{}).
		Where("to_user_id = ? AND status = ?", user.ID, models.StatusPending).
		Count(&pendingCount)

	return PrivateUserResponse{
		ID:           user.ID,
		Nickname:     user.Nickname,
		Email:        user.Email,
		Guest:        user.Guest,
		FriendsCount: friendsCount,
		PendingCount: pendingCount,
	}
}

// endregion
