package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	LocalStoreFile   = "file"
	LocalStoreSQLite = "sqlite"

	RemoteDriverFirestore = "firestore"
	RemoteDriverMongo     = "mongo"
)

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Local persisted store
	LocalStore   string
	DataDir      string
	SQLiteDBPath string
	StorageKey   string

	// Remote document store
	RemoteDriver  string
	RemoteTimeout time.Duration

	FirebaseAPIKey          string
	FirebaseProjectID       string
	FirebaseDatabase        string
	FirebaseCredentialsFile string
	FirestoreEmulatorHost   string

	MongoURI      string
	MongoDatabase string

	// AMQP record events; an empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		LocalStore:   getEnv("LOCAL_STORE", LocalStoreFile),
		DataDir:      getEnv("DATA_DIR", "data"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/billease.db"),
		StorageKey:   getEnv("STORAGE_KEY", "billease:demo:v1"),

		RemoteDriver:  getEnv("REMOTE_DRIVER", RemoteDriverFirestore),
		RemoteTimeout: getEnvDuration("REMOTE_TIMEOUT", 10*time.Second),

		FirebaseAPIKey:          getEnv("FIREBASE_API_KEY", ""),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseDatabase:        getEnv("FIREBASE_DATABASE", "(default)"),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		FirestoreEmulatorHost:   getEnv("FIRESTORE_EMULATOR_HOST", ""),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "billease"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "record_events"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	validFormats := []string{"text", "json", "tint"}
	if !slices.Contains(validFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if c.StorageKey == "" {
		errors = append(errors, "storage key cannot be empty")
	}

	switch c.LocalStore {
	case LocalStoreFile:
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using the file local store")
		}
	case LocalStoreSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using the sqlite local store")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid local store '%s': must be one of [%s %s]", c.LocalStore, LocalStoreFile, LocalStoreSQLite))
	}

	switch c.RemoteDriver {
	case RemoteDriverFirestore:
		if c.FirebaseCredentialsFile != "" {
			if _, err := os.Stat(c.FirebaseCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Firebase credentials file does not exist: %s", c.FirebaseCredentialsFile))
			}
		}
	case RemoteDriverMongo:
		if c.MongoURI != "" {
			if u, err := url.Parse(c.MongoURI); err != nil {
				errors = append(errors, fmt.Sprintf("invalid MongoDB URI: %v", err))
			} else if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
				errors = append(errors, fmt.Sprintf("invalid MongoDB URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", u.Scheme))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid remote driver '%s': must be one of [%s %s]", c.RemoteDriver, RemoteDriverFirestore, RemoteDriverMongo))
	}

	if c.RemoteTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid remote timeout %v: must not be negative", c.RemoteTimeout))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
