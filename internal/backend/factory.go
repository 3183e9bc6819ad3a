package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"billease/internal/firestore"
	"billease/internal/log"
	"billease/internal/mongodb"
	"billease/internal/storage"
	"billease/internal/store"
	"billease/internal/store/local"
	"billease/internal/store/remote"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend builds the local store, and in cloud mode the remote store
// with its connection handle, and returns the dispatcher over them.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var cleanups []CleanupFunc

	localStore, closeLocal, err := f.createLocalStore(config)
	if err != nil {
		return nil, err
	}
	if closeLocal != nil {
		cleanups = append(cleanups, closeLocal)
	}

	mode := config.SelectMode()
	var remoteStore store.Store
	if mode == store.ModeCloud {
		conn := f.createRemoteConn(config)
		remoteStore = remote.New(conn, f.logger)
		cleanups = append(cleanups, func() error { return conn.Close(context.Background()) })
	}

	dispatcher, err := store.NewDispatcher(mode, localStore, remoteStore)
	if err != nil {
		_ = runCleanups(cleanups)
		return nil, err
	}

	f.logger.InfoContext(ctx, "Initialized record store",
		log.FieldMode, mode,
		"local_store", config.Local,
		"remote_driver", remoteDriverLabel(mode, config.Driver))

	return &Result{
		Store:   dispatcher,
		Mode:    mode,
		Cleanup: func() error { return runCleanups(cleanups) },
	}, nil
}

func (f *DefaultFactory) createLocalStore(config Config) (*local.Store, CleanupFunc, error) {
	switch config.Local {
	case LocalSQLite:
		blob, err := storage.NewSQLiteBlob(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite blob store: %w", err)
		}
		f.logger.Info("Initialized SQLite local store", "db_path", config.SQLiteDBPath)
		return local.New(blob, config.StorageKey, f.logger), blob.Close, nil
	default:
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "data"
		}
		blob, err := local.NewFileBlob(dataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize file blob store: %w", err)
		}
		f.logger.Info("Initialized file local store", "data_directory", dataDir)
		return local.New(blob, config.StorageKey, f.logger), nil, nil
	}
}

// createRemoteConn does not contact the backend; the first operation dials.
func (f *DefaultFactory) createRemoteConn(config Config) *remote.Conn {
	switch config.Driver {
	case MongoDriver:
		driverLogger := f.logger.With(log.FieldComponent, log.ComponentMongoDB)
		return remote.NewConn(MongoDriver.String(), mongodb.Dialer(config.Mongo, driverLogger), f.logger)
	default:
		fsConfig := config.Firestore
		fsConfig.Logger = f.logger.With(log.FieldComponent, log.ComponentFirestore)
		return remote.NewConn(FirestoreDriver.String(), firestore.Dialer(fsConfig), f.logger)
	}
}

func remoteDriverLabel(mode store.Mode, driver RemoteDriver) string {
	if mode != store.ModeCloud {
		return "none"
	}
	return driver.String()
}

func runCleanups(cleanups []CleanupFunc) error {
	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
