package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StageProd = "prod"
	StageDev  = "dev"
)

type Config struct {
	Stage          string
	Port           int
	WsPort         int
	DatabaseURL    string
	MaxSessions    int
	TurnPolicy     string
	FrameRate      float64
	FrameBurst     int
	MaxFrameSize   int
	FinishedLinger time.Duration
}

func defaults() Config {
	return Config{
		Stage:          StageDev,
		Port:           5555,
		WsPort:         9191,
		MaxSessions:    1,
		TurnPolicy:     "chain",
		FrameRate:      20,
		FrameBurst:     40,
		MaxFrameSize:   4096,
		FinishedLinger: time.Minute * 2,
	}
}

// Load reads .env outside of prod and then the environment. A missing
// .env file is not an error.
func Load() (Config, error) {
	if os.Getenv("STAGE") != StageProd {
		if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load .env: %w", err)
		}
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := defaults()

	if stage := os.Getenv("STAGE"); stage != "" {
		if stage != StageDev && stage != StageProd {
			return Config{}, fmt.Errorf("stage must be either dev or prod, got %q", stage)
		}
		cfg.Stage = stage
	}

	var err error
	if cfg.Port, err = intEnv("PORT", cfg.Port); err != nil {
		return Config{}, err
	}
	if cfg.WsPort, err = intEnv("WS_PORT", cfg.WsPort); err != nil {
		return Config{}, err
	}
	if cfg.MaxSessions, err = intEnv("MAX_SESSIONS", cfg.MaxSessions); err != nil {
		return Config{}, err
	}
	if cfg.FrameBurst, err = intEnv("FRAME_BURST", cfg.FrameBurst); err != nil {
		return Config{}, err
	}
	if cfg.MaxFrameSize, err = intEnv("MAX_FRAME_SIZE", cfg.MaxFrameSize); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("FRAME_RATE"); v != "" {
		if cfg.FrameRate, err = strconv.ParseFloat(v, 64); err != nil {
			return Config{}, fmt.Errorf("FRAME_RATE: %w", err)
		}
	}
	if v := os.Getenv("FINISHED_LINGER"); v != "" {
		if cfg.FinishedLinger, err = time.ParseDuration(v); err != nil {
			return Config{}, fmt.Errorf("FINISHED_LINGER: %w", err)
		}
	}
	if v := os.Getenv("TURN_POLICY"); v != "" {
		cfg.TurnPolicy = v
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if cfg.Port <= 0 {
		return Config{}, fmt.Errorf("PORT must be positive, got %d", cfg.Port)
	}
	if cfg.WsPort < 0 {
		return Config{}, fmt.Errorf("WS_PORT must not be negative, got %d", cfg.WsPort)
	}
	if cfg.MaxSessions < 1 {
		return Config{}, fmt.Errorf("MAX_SESSIONS must be at least 1, got %d", cfg.MaxSessions)
	}

	if cfg.DatabaseURL == "" {
		log.Println("DATABASE_URL not set; analytics disabled")
	}
	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
