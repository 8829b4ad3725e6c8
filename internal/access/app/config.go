package app

import (
	"os"
	"strconv"
	"time"

	httpapi "github.com/hiredeck/hiredeck/internal/access/http"
	"github.com/hiredeck/hiredeck/pkg/jwtx"
)

type Config struct {
	SessionSecret string // Required: HMAC secret for session tokens (min 32 bytes)
	Issuer        string // Optional: issuer claim for tokens (default: hiredeck-access)

	DatabaseFile string // Optional: path to SQLite database file (default: ./access.db)
	PepperFile   string // Optional: path to pepper file for password hashing (default: ./pepper)
	RedisAddr    string // Optional: Redis address for a shared rate-limit store; empty means in-memory

	SessionTTL    time.Duration // Optional: session lifetime (default: 8h)
	RememberMeTTL time.Duration // Optional: remember-me lifetime (default: 30 days)

	LoginLimit        int           // Optional: login attempts per window per ip+email (default: 10)
	LoginWindow       time.Duration // Optional: login rate-limit window (default: 5m)
	AcceptLimit       int           // Optional: invite-accept attempts per window per ip (default: 10)
	AcceptWindow      time.Duration // Optional: invite-accept window (default: 5m)
	RateLimitFailOpen bool          // Optional: allow requests when the limit store is down (default: false)

	TrustProxy bool // Optional: trust forwarding headers for client IP (default: false)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		SessionSecret: os.Getenv("ACCESS_SESSION_SECRET"),
		Issuer:        getEnvOrDefault("ACCESS_ISSUER", "hiredeck-access"),
		DatabaseFile:  getEnvOrDefault("ACCESS_DATABASE_FILE", "access.db"),
		PepperFile:    getEnvOrDefault("ACCESS_PEPPER_FILE", "pepper"),
		RedisAddr:     os.Getenv("ACCESS_REDIS_ADDR"),

		SessionTTL:    getEnvDurationOrDefault("ACCESS_SESSION_TTL", jwtx.DefaultSessionTTL),
		RememberMeTTL: getEnvDurationOrDefault("ACCESS_REMEMBER_ME_TTL", jwtx.RememberMeTTL),

		LoginLimit:        getEnvIntOrDefault("ACCESS_LOGIN_LIMIT", 10),
		LoginWindow:       getEnvDurationOrDefault("ACCESS_LOGIN_WINDOW", 5*time.Minute),
		AcceptLimit:       getEnvIntOrDefault("ACCESS_ACCEPT_LIMIT", 10),
		AcceptWindow:      getEnvDurationOrDefault("ACCESS_ACCEPT_WINDOW", 5*time.Minute),
		RateLimitFailOpen: getEnvBool("ACCESS_RATE_LIMIT_FAIL_OPEN"),

		TrustProxy: getEnvBool("ACCESS_TRUST_PROXY"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

// RateLimits maps the config knobs onto the router's budget type.
func (c Config) RateLimits() httpapi.RateLimits {
	return httpapi.RateLimits{
		LoginLimit:   c.LoginLimit,
		LoginWindow:  c.LoginWindow,
		AcceptLimit:  c.AcceptLimit,
		AcceptWindow: c.AcceptWindow,
	}
}

// SecureCookies reports whether session cookies should carry the Secure
// attribute. Only local development goes without it.
func (c Config) SecureCookies() bool { return c.Env != "dev" }

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

func getEnvBool(key string) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && value
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
