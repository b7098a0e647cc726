package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	StoreDriver   string        // Optional: credential and audit backend, file, sqlite or postgres (default: file)
	UsersFile     string        // Optional: credential store for the file driver (default: ./users.json)
	AuditFile     string        // Optional: audit log for the file driver (default: ./audit_log.jsonl)
	DatabaseFile  string        // Optional: SQLite database for the sqlite driver (default: ./custodian.db)
	DatabaseURL   string        // Required for the postgres driver: connection URL
	ResourceDir   string        // Optional: directory holding the customer files (default: .)
	WatchUsers    bool          // Optional: reload the users file when it changes (default: true)
	LoginAttempts int           // Optional: login attempts per identifier per LoginWindow, 0 disables throttling (default: 5)
	LoginWindow   time.Duration // Optional: throttling window (default: 1m)
	Env           string        // Environment (dev, staging, prod) (default: prod)
	LogLevel      string        // Log level (debug, info, warn, error) (default: warn)
	LogFormat     string        // Log format (json, text) (default: text)
}

// LoadConfig reads the configuration from the environment. With ENV=dev a
// .env file in the working directory is loaded first.
func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	return Config{
		StoreDriver:   getEnvOrDefault("CUSTODIAN_STORE_DRIVER", DriverFile),
		UsersFile:     getEnvOrDefault("CUSTODIAN_USERS_FILE", "users.json"),
		AuditFile:     getEnvOrDefault("CUSTODIAN_AUDIT_FILE", "audit_log.jsonl"),
		DatabaseFile:  getEnvOrDefault("CUSTODIAN_DATABASE_FILE", "custodian.db"),
		DatabaseURL:   os.Getenv("CUSTODIAN_DATABASE_URL"),
		ResourceDir:   getEnvOrDefault("CUSTODIAN_RESOURCE_DIR", "."),
		WatchUsers:    getEnvBoolOrDefault("CUSTODIAN_WATCH_USERS", true),
		LoginAttempts: getEnvIntOrDefault("CUSTODIAN_LOGIN_ATTEMPTS", 5),
		LoginWindow:   getEnvDurationOrDefault("CUSTODIAN_LOGIN_WINDOW", time.Minute),
		Env:           getEnvOrDefault("ENV", "prod"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat:     getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

// Validate rejects configurations New cannot start from.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverFile:
		if c.UsersFile == "" || c.AuditFile == "" {
			return fmt.Errorf("file driver needs both a users file and an audit file")
		}
	case DriverSQLite:
		if c.DatabaseFile == "" {
			return fmt.Errorf("sqlite driver needs a database file")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("postgres driver needs CUSTODIAN_DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown store driver %q (want %s, %s or %s)", c.StoreDriver, DriverFile, DriverSQLite, DriverPostgres)
	}
	return nil
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}
