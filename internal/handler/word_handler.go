package handler

import (
	"net/http"
	"strconv"
	"strings"
	"wordclash/backend/internal/database"
	"wordclash/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type WordInput struct {
	Text string `json:"text" binding:"required,min=4,max=8,alpha" example:"crane"`
}

type WordResponse struct {
	ID     uint   `json:"id"`
	Text   string `json:"text"`
	Length int    `json:"length"`
}

func newWordResponse(word models.Word) WordResponse {
	return WordResponse{
		ID:     word.ID,
		Text:   word.Text,
		Length: word.Length,
	}
}

// CreateWord godoc
// @Summary      Add a solution word
// @Description  Adds a word to the curated solution list.
// @Tags         admin-words
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body WordInput true "Word Info"
// @Success      201  {object}  WordResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Admin access required"
// @Failure      409  {object}  ErrorResponse "Word already exists"
// @Router       /admin/words [post]
func CreateWord(c *gin.Context) {
	var input WordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text := strings.ToLower(strings.TrimSpace(input.Text))
	word := models.Word{Text: text, Length: len(text)}
	if err := database.DB.Create(&word).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Word already exists or another error occurred"})
		return
	}

	c.JSON(http.StatusCreated, newWordResponse(word))
}

// GetWords godoc
// @Summary      List solution words
// @Description  Retrieves the curated solution list, optionally filtered by length.
// @Tags         admin-words
// @Produce      json
// @Security     BearerAuth
// @Param        length query int false "Filter by word length"
// @Success      200  {array}   WordResponse
// @Failure      403  {object}  ErrorResponse "Admin access required"
// @Router       /admin/words [get]
func GetWords(c *gin.Context) {
	query := database.DB
	if lengthStr := c.Query("length"); lengthStr != "" {
		length, err := strconv.Atoi(lengthStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid length"})
			return
		}
		query = query.Where("length = ?", length)
	}

	var words []models.Word
	query.Order("text ASC").Find(&words)

	var response []WordResponse
	for _, word := range words {
		response = append(response, newWordResponse(word))
	}
	c.JSON(http.StatusOK, response)
}

// DeleteWord godoc
// @Summary      Remove a solution word
// @Description  Removes a word from the curated solution list. Matches already created keep their solutions.
// @Tags         admin-words
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Word ID"
// @Success      200  {object}  map[string]string "{"message": "Word deleted"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Admin access required"
// @Failure      404  {object}  ErrorResponse "Word not found"
// @Router       /admin/words/{id} [delete]
func DeleteWord(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	result := database.DB.Delete(&models.Word{}, id)
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Word not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Word deleted"})
}
