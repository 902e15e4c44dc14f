// Package config loads all settings from the environment. Policy
// numbers (energy, pet, rank, anti-cheat) live here as one explicit
// struct handed to the engine at construction; nothing reads the
// environment after startup.
package config

import (
	"time"

	"quest_webapp/internal/domain"
	"quest_webapp/internal/logger"
	"quest_webapp/internal/progression"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppPort       string `envconfig:"APP_PORT" default:"8080"`
	DatabaseURL   string `envconfig:"DATABASE_URL" required:"true"`
	BotToken      string `envconfig:"BOT_TOKEN" required:"true"`
	JWTSecret     string `envconfig:"JWT_SECRET" required:"true"`
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON       bool   `envconfig:"LOG_JSON" default:"false"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// transport-level limits (per IP / per route)
	APIRateLimit   int `envconfig:"API_RATE_LIMIT" default:"30"`
	APIRateWindow  int `envconfig:"API_RATE_WINDOW_SECONDS" default:"60"`
	AuthRateLimit  int `envconfig:"AUTH_RATE_LIMIT" default:"5"`
	AuthRateWindow int `envconfig:"AUTH_RATE_WINDOW_SECONDS" default:"60"`

	// auth policy
	AuthMaxAgeSeconds int `envconfig:"AUTH_MAX_AGE_SECONDS" default:"300"`

	// energy policy
	MaxEnergy          int `envconfig:"MAX_ENERGY" default:"10"`
	EnergyRegenMinutes int `envconfig:"ENERGY_REGEN_MINUTES" default:"30"`
	GameEnergyCost     int `envconfig:"GAME_ENERGY_COST" default:"1"`

	// level curves
	XPPerLevel   int64 `envconfig:"XP_PER_LEVEL" default:"100"`
	MaxUserLevel int   `envconfig:"MAX_USER_LEVEL" default:"50"`
	MaxPetLevel  int   `envconfig:"MAX_PET_LEVEL" default:"20"`

	// pet policy
	FeedCost          int64 `envconfig:"FEED_COST" default:"20"`
	XPPerFeed         int64 `envconfig:"XP_PER_FEED" default:"10"`
	MaxDailySpend     int64 `envconfig:"MAX_DAILY_SPEND" default:"600"`
	YieldPerHour      int64 `envconfig:"YIELD_PER_HOUR" default:"50"`
	LevelUpYieldBonus int64 `envconfig:"LEVELUP_YIELD_BONUS" default:"25"`
	MaxClaimHours     int   `envconfig:"MAX_CLAIM_HOURS" default:"12"`
	MinClaimAmount    int64 `envconfig:"MIN_CLAIM_AMOUNT" default:"100"`
	ClaimCooldownMin  int   `envconfig:"CLAIM_COOLDOWN_MINUTES" default:"60"`

	// anti-cheat
	FeedsPerMinute     int   `envconfig:"FEEDS_PER_MINUTE" default:"10"`
	GamesPerMinute     int   `envconfig:"GAMES_PER_MINUTE" default:"5"`
	MaxPointsPerSecond int64 `envconfig:"MAX_POINTS_PER_SECOND" default:"10"`
}

// Load reads .env if present, then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		logger.Fatal("config load failed", "error", err)
	}
	return &cfg
}

func (c *Config) AuthMaxAge() time.Duration {
	return time.Duration(c.AuthMaxAgeSeconds) * time.Second
}

func (c *Config) EnergyPolicy() progression.EnergyPolicy {
	return progression.EnergyPolicy{
		MaxEnergy:     c.MaxEnergy,
		RegenInterval: time.Duration(c.EnergyRegenMinutes) * time.Minute,
	}
}

func (c *Config) UserLevels() progression.LevelPolicy {
	return progression.LevelPolicy{XPPerLevel: c.XPPerLevel, MaxLevel: c.MaxUserLevel}
}

func (c *Config) PetPolicy() progression.PetPolicy {
	return progression.PetPolicy{
		FeedCost:          c.FeedCost,
		XPPerFeed:         c.XPPerFeed,
		MaxDailySpend:     c.MaxDailySpend,
		YieldPerHour:      c.YieldPerHour,
		LevelUpYieldBonus: c.LevelUpYieldBonus,
		MaxClaimHours:     c.MaxClaimHours,
		MinClaimAmount:    c.MinClaimAmount,
		ClaimCooldown:     time.Duration(c.ClaimCooldownMin) * time.Minute,
		Levels:            progression.LevelPolicy{XPPerLevel: c.XPPerLevel, MaxLevel: c.MaxPetLevel},
	}
}

func (c *Config) RateLimits() progression.RateLimits {
	return progression.RateLimits{
		Window: time.Minute,
		MaxPerKind: map[progression.ActionKind]int{
			progression.ActionFeed: c.FeedsPerMinute,
			progression.ActionGame: c.GamesPerMinute,
		},
	}
}

// RankTable is static for now; the threshold list is policy the same
// way the numeric knobs are, just not worth encoding in env vars.
func (c *Config) RankTable() []domain.RankThreshold {
	return domain.DefaultRankTable()
}
