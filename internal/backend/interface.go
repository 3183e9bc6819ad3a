package backend

import (
	"context"

	"billease/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the record store chosen for this process. Mode is decided
// once by the factory and never re-evaluated.
type Result struct {
	Store   store.Store
	Mode    store.Mode
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// LocalKind selects the persister behind the local store.
type LocalKind string

const (
	LocalFile   LocalKind = "file"
	LocalSQLite LocalKind = "sqlite"
)

func (k LocalKind) IsValid() bool {
	switch k {
	case LocalFile, LocalSQLite:
		return true
	default:
		return false
	}
}

// RemoteDriver selects the document store used in cloud mode.
type RemoteDriver string

const (
	FirestoreDriver RemoteDriver = "firestore"
	MongoDriver     RemoteDriver = "mongo"
)

func (d RemoteDriver) IsValid() bool {
	switch d {
	case FirestoreDriver, MongoDriver:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer
func (d RemoteDriver) String() string {
	return string(d)
}
