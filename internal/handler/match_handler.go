package handler

import (
	"errors"
	"net/http"
	"strconv"
	"wordclash/backend/internal/database"
	"wordclash/backend/internal/match"
	"wordclash/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type CreateMatchInput struct {
	WordLength int    `json:"word_length" binding:"omitempty,oneof=4 5 6" example:"5"`
	Rounds     int    `json:"rounds" binding:"omitempty,min=1,max=9" example:"3"`
	Visibility string `json:"visibility" binding:"omitempty,oneof=public private" example:"public"`
	Passcode   string `json:"passcode" example:"hunter2"`
	Solo       bool   `json:"solo"`
	TimedTurns bool   `json:"timed_turns"`
}

type JoinMatchInput struct {
	Passcode string `json:"passcode"`
}

type AdvanceRoundInput struct {
	// ExpectedCurrentRound guards against double submission: a stale value
	// means another client already advanced this round.
	ExpectedCurrentRound int   `json:"expected_current_round" binding:"required,min=1"`
	WinnerID             *uint `json:"winner_id"`
}

type LeaderboardEntry struct {
	UserID   uint   `json:"user_id"`
	Nickname string `json:"nickname"`
	Wins     int64  `json:"wins"`
}

// endregion

// region --- Match Handlers ---

// CreateMatch godoc
// @Summary      Create a match
// @Description  Creates a new match lobby and returns its snapshot. The plaintext passcode is echoed once here and never again.
// @Tags         matches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body CreateMatchInput true "Match settings"
// @Success      201  {object}  match.SnapshotView
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /matches [post]
func CreateMatch(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input CreateMatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Visibility == string(models.VisibilityPrivate) && input.Passcode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Private matches require a passcode"})
		return
	}

	m, err := Matches.Create(userID.(uint), match.Settings{
		WordLength: input.WordLength,
		Rounds:     input.Rounds,
		Visibility: models.MatchVisibility(input.Visibility),
		Passcode:   input.Passcode,
		Solo:       input.Solo,
		TimedTurns: input.TimedTurns,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create match"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"match": match.Snapshot(m), "passcode": input.Passcode})
}

// GetMatch godoc
// @Summary      Get a match snapshot
// @Description  Returns the current state of a match. Expired lobbies are settled on read.
// @Tags         matches
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Match ID"
// @Success      200 {object} match.SnapshotView
// @Failure      404 {object} ErrorResponse "Match not found"
// @Router       /matches/{id} [get]
func GetMatch(c *gin.Context) {
	m, err := Matches.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
		return
	}
	c.JSON(http.StatusOK, match.Snapshot(m))
}

// JoinMatch godoc
// @Summary      Join a match
// @Description  Registers presence in a match, joining the roster while the lobby is waiting. Starts play once both players are present.
// @Tags         matches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path string          true  "Match ID"
// @Param        input body JoinMatchInput  false "Passcode for private matches"
// @Success      200 {object} match.SnapshotView
// @Failure      401 {object} ErrorResponse "Bad passcode"
// @Failure      404 {object} ErrorResponse "Match not found"
// @Failure      409 {object} ErrorResponse "Match full"
// @Failure      410 {object} ErrorResponse "Match completed"
// @Router       /matches/{id}/join [post]
func JoinMatch(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input JoinMatchInput
	_ = c.ShouldBindJSON(&input)

	m, err := Matches.RecordEntry(c.Param("id"), userID.(uint), input.Passcode)
	if err != nil {
		respondMatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, match.Snapshot(m))
}

// LeaveMatch godoc
// @Summary      Leave a match
// @Description  Drops presence. An empty lobby gets a grace deadline before it is closed.
// @Tags         matches
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Match ID"
// @Success      200 {object} match.SnapshotView
// @Failure      404 {object} ErrorResponse "Match not found"
// @Router       /matches/{id}/leave [post]
func LeaveMatch(c *gin.Context) {
	userID, _ := c.Get("userID")

	m, err := Matches.RecordLeave(c.Param("id"), userID.(uint))
	if err != nil {
		respondMatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, match.Snapshot(m))
}

// AdvanceRound godoc
// @Summary      Commit a round result
// @Description  Records the round winner and advances the match. Concurrent submissions of the same round are reported as a benign 409.
// @Tags         matches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path string            true "Match ID"
// @Param        input body AdvanceRoundInput true "Round result"
// @Success      200 {object} match.SnapshotView
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse "Not a player"
// @Failure      404 {object} ErrorResponse "Match not found"
// @Failure      409 {object} ErrorResponse "Round already advanced"
// @Failure      410 {object} ErrorResponse "Match completed"
// @Router       /matches/{id}/rounds [post]
func AdvanceRound(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input AdvanceRoundInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := Matches.AdvanceRound(c.Param("id"), userID.(uint), input.WinnerID, input.ExpectedCurrentRound)
	if err != nil {
		respondMatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, match.Snapshot(m))
}

// ToggleEndVote godoc
// @Summary      Toggle an end-match vote
// @Description  Toggles the caller's vote to end the match early. Unanimous active players end it as a mutual tie.
// @Tags         matches
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Match ID"
// @Success      200 {object} match.SnapshotView
// @Failure      403 {object} ErrorResponse "Not a player"
// @Failure      404 {object} ErrorResponse "Match not found"
// @Failure      410 {object} ErrorResponse "Match completed"
// @Router       /matches/{id}/end-vote [post]
func ToggleEndVote(c *gin.Context) {
	userID, _ := c.Get("userID")

	m, err := Matches.ToggleEndVote(c.Param("id"), userID.(uint))
	if err != nil {
		respondMatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, match.Snapshot(m))
}

// Surrender godoc
// @Summary      Surrender a match
// @Description  Concedes the match; the opponent wins immediately.
// @Tags         matches
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Match ID"
// @Success      200 {object} match.SnapshotView
// @Failure      403 {object} ErrorResponse "Not a player"
// @Failure      404 {object} ErrorResponse "Match not found"
// @Failure      410 {object} ErrorResponse "Match completed"
// @Router       /matches/{id}/surrender [post]
func Surrender(c *gin.Context) {
	userID, _ := c.Get("userID")

	m, err := Matches.Surrender(c.Param("id"), userID.(uint))
	if err != nil {
		respondMatchError(c, err)
		return
	}
	c.JSON(http.StatusOK, match.Snapshot(m))
}

// endregion

// region --- History & Leaderboard ---

// GetMatchHistory godoc
// @Summary      Get the caller's match history
// @Description  Returns the caller's completed matches, newest first, paginated.
// @Tags         matches
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(10)
// @Success      200 {object} PaginatedResponse[match.SnapshotView]
// @Failure      401 {object} ErrorResponse
// @Router       /matches [get]
func GetMatchHistory(c *gin.Context) {
	userID, _ := c.Get("userID")
	page, limit := PageParams(c)

	query := database.DB.Model(&models.Match{}).
		Where("status = ?", models.MatchCompleted).
		Where("players::jsonb @> ?", strconv.FormatUint(uint64(userID.(uint)), 10)).
		Order("completed_at DESC")

	result, err := Paginate[models.Match](query, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch match history"})
		return
	}

	views := make([]match.SnapshotView, 0, len(result.Data))
	for i := range result.Data {
		views = append(views, match.Snapshot(&result.Data[i]))
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(views, result.Meta.TotalItems, page, limit))
}

// GetLeaderboard godoc
// @Summary      Get the win leaderboard
// @Description  Ranks registered users by completed-match wins.
// @Tags         matches
// @Produce      json
// @Param        limit query int false "Entries to return" default(10)
// @Success      200 {array} LeaderboardEntry
// @Router       /leaderboard [get]
func GetLeaderboard(c *gin.Context) {
	_, limit := PageParams(c)

	var entries []LeaderboardEntry
	err := database.DB.Model(&models.Match{}).
		Select("matches.winner_id AS user_id, users.nickname AS nickname, COUNT(*) AS wins").
		Joins("JOIN users ON users.id = matches.winner_id").
		Where("matches.status = ? AND matches.winner_id IS NOT NULL", models.MatchCompleted).
		Group("matches.winner_id, users.nickname").
		Order("wins DESC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build leaderboard"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// endregion

// respondMatchError maps match service sentinels onto HTTP statuses.
func respondMatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, match.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
	case errors.Is(err, match.ErrNotPlayer):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a player in this match"})
	case errors.Is(err, match.ErrMatchFull):
		c.JSON(http.StatusConflict, gin.H{"error": "Match is full"})
	case errors.Is(err, match.ErrMatchCompleted):
		c.JSON(http.StatusGone, gin.H{"error": "Match already completed"})
	case errors.Is(err, match.ErrRoundAlreadyAdvanced):
		c.JSON(http.StatusConflict, gin.H{"error": "Round already advanced"})
	case errors.Is(err, match.ErrPasscodeRequired), errors.Is(err, match.ErrBadPasscode):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid passcode"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
