package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secret shared with the identity service
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Economy
	if _, err := time.LoadLocation(c.Economy.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("ECONOMY_TIMEZONE %q is not a known location", c.Economy.Timezone))
	}
	if c.Economy.FreeChatsPerDay < 0 {
		errs = append(errs, "ECONOMY_FREE_CHATS_PER_DAY must not be negative")
	}
	if c.Economy.FreeUploadsPerDay < 0 {
		errs = append(errs, "ECONOMY_FREE_UPLOADS_PER_DAY must not be negative")
	}
	if c.Economy.ChatCost < 0 || c.Economy.UploadCost < 0 {
		errs = append(errs, "ECONOMY_CHAT_COST and ECONOMY_UPLOAD_COST must not be negative")
	}
	if c.Economy.DueCardsLimit < 1 {
		errs = append(errs, "ECONOMY_DUE_CARDS_LIMIT must be positive")
	}

	// NATS: warn only
	if c.NATS.URL == "" {
		slog.Warn("NATS_URL is empty, economy events will not be published")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
