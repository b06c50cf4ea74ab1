// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Timezone database for hosts without zoneinfo.
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	HTTPAddr         string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64
	Timezone         string
	HomePageSize     int
	FeedPageSize     int
	SettleDelay      time.Duration
	SessionTTL       time.Duration
	ImportInterval   time.Duration
	SendRate         float64
	HTTPRate         float64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		HTTPAddr:         os.Getenv("HTTP_ADDR"),
		DatabasePath:     getenv("DATABASE_PATH", "./data/events.db"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		Timezone:         getenv("TIMEZONE", "Asia/Baku"),
	}
	if cfg.TelegramBotToken == "" && cfg.HTTPAddr == "" {
		return nil, errors.New("at least one of TELEGRAM_BOT_TOKEN or HTTP_ADDR is required")
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	var err error
	if cfg.AllowedUsers, err = parseUsers(os.Getenv("ALLOWED_USERS")); err != nil {
		return nil, err
	}
	if cfg.HomePageSize, err = positiveInt("HOME_PAGE_SIZE", 20); err != nil {
		return nil, err
	}
	if cfg.FeedPageSize, err = positiveInt("FEED_PAGE_SIZE", 15); err != nil {
		return nil, err
	}
	if cfg.SettleDelay, err = duration("SETTLE_DELAY", 300*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = duration("SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ImportInterval, err = duration("IMPORT_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SendRate, err = positiveFloat("SEND_RATE", 20); err != nil {
		return nil, err
	}
	if cfg.HTTPRate, err = positiveFloat("HTTP_RATE", 10); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location returns the timezone that defines calendar days.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	return slices.Contains(c.AllowedUsers, userID)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseUsers(raw string) ([]int64, error) {
	var users []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		uid, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
		}
		users = append(users, uid)
	}
	return users, nil
}

func positiveInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return n, nil
}

func positiveFloat(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number", key, raw)
	}
	return f, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative duration", key, raw)
	}
	return d, nil
}
