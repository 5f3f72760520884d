package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"wordclash/backend/internal/auth"
	"wordclash/backend/internal/chat"
	"wordclash/backend/internal/config"
	"wordclash/backend/internal/database"
	"wordclash/backend/internal/game"
	"wordclash/backend/internal/handler"
	"wordclash/backend/internal/hub"
	"wordclash/backend/internal/match"
	"wordclash/backend/internal/middleware"
	"wordclash/backend/internal/models"
	"wordclash/backend/internal/sessionlock"
	"wordclash/backend/internal/sweeper"
	"wordclash/backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	// Swagger imports
	_ "wordclash/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           WordClash API
// @version         1.0
// @description     This is the API for the WordClash match service.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.AppConfig

	// Connect to the database
	database.Connect(cfg.DatabaseURL)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	realtimeHub := hub.NewHub()

	matchService := match.NewService(
		match.NewGormStore(database.DB),
		realtimeHub,
		match.Timers{
			LobbyGrace:  time.Duration(cfg.LobbyGraceMinutes) * time.Minute,
			WaitingIdle: time.Duration(cfg.WaitingIdleMinutes) * time.Minute,
			HardStop:    time.Duration(cfg.MatchHardStopMinutes) * time.Minute,
			Turn:        time.Duration(cfg.TurnSeconds) * time.Second,
		},
		databaseWordPool,
	)

	chatCoordinator := chat.NewCoordinator(
		chat.NewGormStore(database.DB),
		matchService,
		userDirectory{},
		realtimeHub,
	)

	lockService := sessionlock.NewService(
		sessionlock.NewGormStore(database.DB),
		cfg.ActiveGrace(),
		cfg.StaleAfter(),
		cfg.LocksDisabled,
	)

	handler.Matches = matchService
	handler.Chats = chatCoordinator
	handler.Locks = lockService

	matchSweeper, err := sweeper.New(matchService)
	if err != nil {
		log.Fatalf("Failed to create sweeper: %v", err)
	}
	if err := matchSweeper.Start(); err != nil {
		log.Fatalf("Failed to start sweeper: %v", err)
	}
	defer matchSweeper.Stop()

	wsHandler := ws.NewHandler(realtimeHub, chatCoordinator, matchService)

	router := gin.Default()
	router.Use(middleware.RateLimit(rdb, cfg.RateLimitMax, time.Duration(cfg.RateLimitWindow)*time.Second))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// The single durable realtime connection per client.
	router.GET("/ws", wsHandler.Serve)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", handler.RegisterUser)
			authRoutes.POST("/login", handler.LoginUser)
			authRoutes.POST("/guest", handler.CreateGuest)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("", handler.SearchUsers) // Must be before /:id
			userRoutes.GET("/me", handler.GetMe)
			userRoutes.GET("/me/relations", handler.GetRelations)
			userRoutes.GET("/:id", handler.GetUserByID)

			// Friendship routes
			userRoutes.POST("/:id/request", handler.SendRequest)
			userRoutes.POST("/:id/accept", handler.AcceptRequest)
			userRoutes.POST("/:id/decline", handler.DeclineRequest)
			userRoutes.POST("/:id/remove", handler.RemoveRelation)
		}

		// Session lock routes (protected)
		sessionRoutes := apiV1.Group("/session")
		sessionRoutes.Use(auth.AuthMiddleware())
		{
			sessionRoutes.POST("/claim", handler.ClaimSession)
			sessionRoutes.POST("/heartbeat", handler.HeartbeatSession)
			sessionRoutes.POST("/release", handler.ReleaseSession)
		}

		// Match routes (protected)
		matchRoutes := apiV1.Group("/matches")
		matchRoutes.Use(auth.AuthMiddleware())
		{
			matchRoutes.POST("", handler.CreateMatch)
			matchRoutes.GET("", handler.GetMatchHistory)
			matchRoutes.GET("/:id", handler.GetMatch)
			matchRoutes.POST("/:id/join", handler.JoinMatch)
			matchRoutes.POST("/:id/leave", handler.LeaveMatch)
			matchRoutes.POST("/:id/rounds", handler.AdvanceRound)
			matchRoutes.POST("/:id/end-vote", handler.ToggleEndVote)
			matchRoutes.POST("/:id/surrender", handler.Surrender)
		}

		// Leaderboard is public; identity is optional.
		apiV1.GET("/leaderboard", auth.OptionalAuthMiddleware(), handler.GetLeaderboard)

		// Chat routes (protected)
		chatRoutes := apiV1.Group("/chat")
		chatRoutes.Use(auth.AuthMiddleware())
		{
			chatRoutes.POST("/rooms", handler.OpenRoom)
			chatRoutes.GET("/rooms/:id/messages", handler.GetMessages)
			chatRoutes.POST("/rooms/:id/messages", handler.SendMessage)
			chatRoutes.POST("/rooms/:id/read", handler.MarkRead)
			chatRoutes.POST("/rooms/:id/messages/:messageID/reactions", handler.ToggleReaction)
		}

		// Admin routes (protected by auth and admin check)
		adminRoutes := apiV1.Group("/admin")
		adminRoutes.Use(auth.AuthMiddleware(), auth.AdminMiddleware())
		{
			words := adminRoutes.Group("/words")
			{
				words.POST("", handler.CreateWord)
				words.GET("", handler.GetWords)
				words.DELETE("/:id", handler.DeleteWord)
			}
		}
	}

	fmt.Println("Server is running on :" + cfg.ServerPort)
	fmt.Println("Swagger UI is available at http://localhost:" + cfg.ServerPort + "/swagger/index.html")
	log.Fatal(router.Run(":" + cfg.ServerPort))
}

// databaseWordPool prefers the admin-curated word list and falls back to the
// embedded defaults when a length has too few entries.
func databaseWordPool(length int) []string {
	var words []models.Word
	if err := database.DB.Where("length = ?", length).Find(&words).Error; err != nil {
		logrus.WithError(err).Warn("word list query failed, using embedded defaults")
		return game.DefaultWords(length)
	}
	if len(words) < 8 {
		return game.DefaultWords(length)
	}
	pool := make([]string, 0, len(words))
	for _, w := range words {
		pool = append(pool, w.Text)
	}
	return pool
}

// userDirectory answers the chat coordinator's identity questions straight
// from the users and relations tables.
type userDirectory struct{}

func (userDirectory) IsGuest(userID uint) (bool, error) {
	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return false, err
	}
	return user.Guest, nil
}

func (userDirectory) AreFriends(a, b uint) (bool, error) {
	var count int64
	err := database.DB.Model(&models.UserRelation{}).
		Where("status = ?", models.StatusAccepted).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}
