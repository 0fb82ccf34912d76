package config

import (
	"fmt"
	"strings"
	"time"
)

// Settings is the typed view of the environment used to wire the service.
type Settings struct {
	Port            string
	DatabaseDSN     string
	ReadReplicaDSN  string
	JWTSecret       string
	TokenTTL        time.Duration
	HODEmails       []string
	RedisAddr       string
	RedisPassword   string
	DraftTTL        time.Duration
	ResendAPIKey    string
	ResendFrom      string
	AcceptedOrigins []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	LogLevel        string
}

// Load builds Settings from an environment map produced by New, optionally overlaid
// with values fetched from SSM.
func Load(env map[string]string) (Settings, error) {
	s := Settings{
		Port:            GetString(env, "PORT", "8080"),
		DatabaseDSN:     databaseDSN(env),
		ReadReplicaDSN:  GetString(env, "DB_READ_REPLICA_DSN", ""),
		JWTSecret:       GetString(env, "JWT_SECRET", ""),
		TokenTTL:        time.Duration(GetInt(env, "TOKEN_TTL_HOURS", 24)) * time.Hour,
		HODEmails:       lower(GetList(env, "HOD_EMAILS")),
		RedisAddr:       GetString(env, "REDIS_ADDR", ""),
		RedisPassword:   GetString(env, "REDIS_PASSWORD", ""),
		DraftTTL:        time.Duration(GetInt(env, "DRAFT_TTL_HOURS", 72)) * time.Hour,
		ResendAPIKey:    GetString(env, "RESEND_API_KEY", ""),
		ResendFrom:      GetString(env, "RESEND_FROM_EMAIL", ""),
		AcceptedOrigins: GetList(env, "ACCEPTED_ORIGINS"),
		ReadTimeout:     time.Duration(GetInt(env, "READ_TIMEOUT_SECONDS", 180)) * time.Second,
		WriteTimeout:    time.Duration(GetInt(env, "WRITE_TIMEOUT_SECONDS", 180)) * time.Second,
		IdleTimeout:     time.Duration(GetInt(env, "IDLE_TIMEOUT_SECONDS", 180)) * time.Second,
		LogLevel:        GetString(env, "LOG_LEVEL", "info"),
	}

	if s.JWTSecret == "" {
		return s, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if s.DatabaseDSN == "" {
		return s, fmt.Errorf("DATABASE_URL or DB_HOST/DB_USER/DB_NAME must be set")
	}
	return s, nil
}

func databaseDSN(env map[string]string) string {
	if dsn := GetString(env, "DATABASE_URL", ""); dsn != "" {
		return dsn
	}
	host := GetString(env, "DB_HOST", "")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host,
		GetString(env, "DB_USER", ""),
		GetString(env, "DB_PASSWORD", ""),
		GetString(env, "DB_NAME", ""),
		GetString(env, "DB_PORT", "5432"),
		GetString(env, "DB_SSLMODE", "require"),
	)
}

func lower(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToLower(v)
	}
	return values
}
