package app

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Issuer         string // issuer claim for session proofs
	DatabaseFile   string // path to SQLite database file (default: ./auth.db)
	PepperFile     string // path to password pepper file (default: ./pepper)
	SigningKeyFile string // optional: PKCS8 Ed25519 PEM; ephemeral key when unset

	SessionTTL           time.Duration // full session proof lifetime (default: 1h)
	ElevationTTL         time.Duration // elevation token lifetime (default: 5m)
	CodeTTL              time.Duration // verification code lifetime (default: 10m)
	CodeCooldown         time.Duration // re-issue cooldown (default: 2m)
	LockoutThreshold     int           // failures before lockout (default: 5)
	HashPoolSize         int           // concurrent password hashes (default: 4)
	HousekeepingInterval time.Duration // reaper interval (default: 1h)

	Env                 string // dev, staging, prod (default: dev)
	LogLevel            string // debug, info, warn, error (default: info)
	LogFormat           string // json, text (default: json)
	Port                int    // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration
}

// LoadConfig reads configuration from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables win over it.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "studyroom-auth"),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		SigningKeyFile: os.Getenv("AUTH_SIGNING_KEY_FILE"),

		SessionTTL:           getEnvDurationOrDefault("AUTH_SESSION_TTL", 0),
		ElevationTTL:         getEnvDurationOrDefault("AUTH_ELEVATION_TTL", 0),
		CodeTTL:              getEnvDurationOrDefault("AUTH_CODE_TTL", 0),
		CodeCooldown:         getEnvDurationOrDefault("AUTH_CODE_COOLDOWN", 0),
		LockoutThreshold:     getEnvIntOrDefault("AUTH_LOCKOUT_THRESHOLD", 0),
		HashPoolSize:         getEnvIntOrDefault("AUTH_HASH_POOL_SIZE", 0),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
