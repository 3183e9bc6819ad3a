package backend

import (
	"fmt"
	"time"

	"billease/internal/config"
	"billease/internal/firestore"
	"billease/internal/mongodb"
	"billease/internal/store"
)

// Config holds configuration for backend creation
type Config struct {
	Local        LocalKind
	DataDir      string
	SQLiteDBPath string
	StorageKey   string

	Driver    RemoteDriver
	Firestore firestore.Config
	Mongo     mongodb.Config
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Local:        LocalKind(appConfig.LocalStore),
		DataDir:      appConfig.DataDir,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		StorageKey:   appConfig.StorageKey,

		Driver: RemoteDriver(appConfig.RemoteDriver),
		Firestore: firestore.Config{
			ProjectID:       appConfig.FirebaseProjectID,
			Database:        appConfig.FirebaseDatabase,
			APIKey:          appConfig.FirebaseAPIKey,
			CredentialsFile: appConfig.FirebaseCredentialsFile,
			EmulatorHost:    appConfig.FirestoreEmulatorHost,
		},
		Mongo: mongodb.Config{
			URI:            appConfig.MongoURI,
			Database:       appConfig.MongoDatabase,
			ConnectTimeout: connectTimeout(appConfig.RemoteTimeout),
		},
	}
	return cfg, cfg.Validate()
}

func connectTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Local.IsValid() {
		return fmt.Errorf("invalid local store: %s", c.Local)
	}
	if !c.Driver.IsValid() {
		return fmt.Errorf("invalid remote driver: %s", c.Driver)
	}
	switch c.Local {
	case LocalSQLite:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for the sqlite local store")
		}
	case LocalFile:
		// DataDir defaults to "data" if empty
	}
	return nil
}

// RemoteCredentials returns the access key and project identifier of the
// selected driver.
func (c Config) RemoteCredentials() (accessKey, projectID string) {
	switch c.Driver {
	case MongoDriver:
		return c.Mongo.URI, c.Mongo.Database
	default:
		return c.Firestore.APIKey, c.Firestore.ProjectID
	}
}

// IsRemoteAvailable reports whether cloud mode can be used. Both values must
// be present.
func IsRemoteAvailable(accessKey, projectID string) bool {
	return accessKey != "" && projectID != ""
}

// SelectMode derives the process mode from the configuration.
func (c Config) SelectMode() store.Mode {
	if IsRemoteAvailable(c.RemoteCredentials()) {
		return store.ModeCloud
	}
	return store.ModeLocal
}
