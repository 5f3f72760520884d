package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	ServerPort  string `mapstructure:"SERVER_PORT"`
	AppEnv      string `mapstructure:"APP_ENV"`

	// Session lock windows, in milliseconds. A lock is active while the
	// holder was seen within ActiveGraceMS and stale past StaleMS.
	LockActiveGraceMS int64 `mapstructure:"LOCK_ACTIVE_GRACE_MS"`
	LockStaleMS       int64 `mapstructure:"LOCK_STALE_MS"`
	LockHeartbeatMS   int64 `mapstructure:"LOCK_HEARTBEAT_MS"`
	// LocksDisabled turns the single-session restriction off entirely.
	LocksDisabled bool `mapstructure:"LOCKS_DISABLED"`

	// Match timers, in minutes.
	LobbyGraceMinutes    int `mapstructure:"LOBBY_GRACE_MINUTES"`
	WaitingIdleMinutes   int `mapstructure:"WAITING_IDLE_MINUTES"`
	MatchHardStopMinutes int `mapstructure:"MATCH_HARD_STOP_MINUTES"`
	TurnSeconds          int `mapstructure:"TURN_SECONDS"`

	RateLimitMax    int `mapstructure:"RATE_LIMIT_MAX"`
	RateLimitWindow int `mapstructure:"RATE_LIMIT_WINDOW_SECONDS"`
}

var AppConfig *Config

// LoadConfig loads the configuration from a .env file and environment variables.
func LoadConfig() {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOCK_ACTIVE_GRACE_MS", int64(45_000))
	viper.SetDefault("LOCK_STALE_MS", int64(120_000))
	viper.SetDefault("LOCK_HEARTBEAT_MS", int64(15_000))
	viper.SetDefault("LOBBY_GRACE_MINUTES", 5)
	viper.SetDefault("WAITING_IDLE_MINUTES", 30)
	viper.SetDefault("MATCH_HARD_STOP_MINUTES", 120)
	viper.SetDefault("TURN_SECONDS", 90)
	viper.SetDefault("RATE_LIMIT_MAX", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("Warning: .env file not found, loading from environment variables")
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
}

// ActiveGrace returns the lock active window as a duration.
func (c *Config) ActiveGrace() time.Duration {
	return time.Duration(c.LockActiveGraceMS) * time.Millisecond
}

// StaleAfter returns the lock staleness window as a duration.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.LockStaleMS) * time.Millisecond
}
