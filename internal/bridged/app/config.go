package app

import (
	"os"
	"strconv"
	"time"

	"github.com/rockfridrich/villa-sub000/pkg/httpx"
)

type Config struct {
	AppID      string        // Required: application id forwarded to the embedded page
	Network    string        // Villa deployment (base, base-sepolia) (default: base)
	HostOrigin string        // Required: the one origin allowed to start sessions
	Scopes     []string      // Optional: consent scopes requested on sign-in
	SessionTTL time.Duration // Optional: session timeout (default: 5m)
	TicketTTL  time.Duration // Optional: ticket lifetime (default: 10m)
	Issuer     string        // Optional: issuer claim for tickets (default: villa-bridged)

	KeyStorageMode string // Optional: ticket key storage (ephemeral, persistent) (default: ephemeral)
	TicketKeyFile  string // Optional: path to the encrypted ticket key (persistent mode) (default: ./ticket.key)
	MasterKeyPath  string // Optional: path to master encryption key file (for persistent keys)
	DatabaseFile   string // Optional: path to SQLite database file (default: ./bridged.db)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	AuditRetention       time.Duration // How long resolved session records are kept (default: 30 days)
}

func LoadConfig() Config {
	cfg := Config{
		AppID:      os.Getenv("VILLA_APP_ID"),
		Network:    getEnvOrDefault("VILLA_NETWORK", "base"),
		HostOrigin: os.Getenv("VILLA_HOST_ORIGIN"),
		Scopes:     httpx.ParseCommaDelimitedFields(os.Getenv("VILLA_SCOPES")),
		SessionTTL: getEnvDurationOrDefault("VILLA_SESSION_TTL", 5*time.Minute),
		TicketTTL:  getEnvDurationOrDefault("VILLA_TICKET_TTL", 10*time.Minute),
		Issuer:     getEnvOrDefault("VILLA_ISSUER", "villa-bridged"),

		KeyStorageMode: getEnvOrDefault("VILLA_KEY_STORAGE_MODE", "ephemeral"),
		TicketKeyFile:  getEnvOrDefault("VILLA_TICKET_KEY_FILE", "ticket.key"),
		MasterKeyPath:  os.Getenv("VILLA_MASTER_KEY_PATH"),
		DatabaseFile:   getEnvOrDefault("VILLA_DATABASE_FILE", "bridged.db"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		AuditRetention:       getEnvDurationOrDefault("VILLA_AUDIT_RETENTION", 30*24*time.Hour),
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

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
