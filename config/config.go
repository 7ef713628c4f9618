package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Dosada05/tournament-hub/storage"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	StoreDriver        string
	DatabaseURL        string
	JWTSecretKey       string
	ServerPort         int
	LogLevel           slog.Level
	OwnerHandle        string
	AdminCredentials   string
	TelegramToken      string
	NotifyTimeout      time.Duration
	CORSAllowedOrigins []string
	R2                 storage.R2Config
	ProofDir           string
}

// Load reads configuration from the environment, after loading a .env file
// if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StoreDriver:      strings.ToLower(getenv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecretKey:     os.Getenv("JWT_SECRET_KEY"),
		OwnerHandle:      strings.TrimSpace(os.Getenv("OWNER_HANDLE")),
		AdminCredentials: os.Getenv("ADMIN_CREDENTIALS"),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		ProofDir:         getenv("PROOF_DIR", "./proofs"),
		R2: storage.R2Config{
			AccountID:       os.Getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      os.Getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		},
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, cfg.StoreDriver)
	}

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}
	if cfg.OwnerHandle == "" {
		return nil, fmt.Errorf("OWNER_HANDLE environment variable is not set")
	}

	port, err := strconv.Atoi(getenv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
	}

	cfg.NotifyTimeout, err = time.ParseDuration(getenv("NOTIFY_TIMEOUT", "10s"))
	if err != nil || cfg.NotifyTimeout <= 0 {
		return nil, fmt.Errorf("invalid NOTIFY_TIMEOUT environment variable %q", os.Getenv("NOTIFY_TIMEOUT"))
	}

	for _, origin := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if cfg.R2.AccountID != "" && !cfg.R2.Enabled() {
		return nil, fmt.Errorf("R2_ACCOUNT_ID is set but R2 credentials or bucket are incomplete")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
