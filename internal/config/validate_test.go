package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "impify",
			Password: "secret", Name: "impify", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		NATS:  NATSConfig{URL: "nats://localhost:4222"},
		JWT: JWTConfig{
			AccessSecret: "access-secret-that-is-at-least-32-chars!",
			Issuer:       "impify",
		},
		RateLimit: RateLimitConfig{MaxRequests: 120, Window: time.Minute},
		Economy: EconomyConfig{
			Timezone:           "Asia/Kolkata",
			FreeChatsPerDay:    10,
			FreeUploadsPerDay:  5,
			ChatCost:           3,
			UploadCost:         3,
			DueCardsLimit:      20,
			SubscriptionLength: 720 * time.Hour,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_JWTAccessSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_ACCESS_SECRET") {
		t.Fatalf("expected JWT_ACCESS_SECRET error, got: %v", err)
	}
}

func TestValidate_DBPasswordRequired(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected DB_PASSWORD error, got: %v", err)
	}
}

func TestValidate_InvalidPorts(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.DB.Port = 99999
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected port validation errors")
	}
	if !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("expected SERVER_PORT error in: %v", err)
	}
	if !strings.Contains(err.Error(), "DB_PORT") {
		t.Errorf("expected DB_PORT error in: %v", err)
	}
}

func TestValidate_UnknownTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Economy.Timezone = "Mars/Olympus_Mons"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "ECONOMY_TIMEZONE") {
		t.Fatalf("expected ECONOMY_TIMEZONE error, got: %v", err)
	}
}

func TestValidate_NegativeLimits(t *testing.T) {
	cfg := validConfig()
	cfg.Economy.FreeChatsPerDay = -1
	cfg.Economy.ChatCost = -3
	cfg.Economy.DueCardsLimit = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected economy validation errors")
	}
	for _, substr := range []string{"ECONOMY_FREE_CHATS_PER_DAY", "ECONOMY_CHAT_COST", "ECONOMY_DUE_CARDS_LIMIT"} {
		if !strings.Contains(err.Error(), substr) {
			t.Errorf("expected %q in error: %v", substr, err)
		}
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Port: 0},
		DB:      DBConfig{Port: 5432},
		Redis:   RedisConfig{Port: 6379},
		Economy: EconomyConfig{Timezone: "Asia/Kolkata", DueCardsLimit: 20},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}
	errStr := err.Error()
	for _, substr := range []string{"JWT_ACCESS_SECRET", "DB_PASSWORD", "SERVER_PORT"} {
		if !strings.Contains(errStr, substr) {
			t.Errorf("expected %q in error: %s", substr, errStr)
		}
	}
}
