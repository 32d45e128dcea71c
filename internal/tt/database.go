package tt

import (
	"context"
	"time"

	"tt-go/internal/model"
)

// Database is the local replica store.
//
// Update runs fn inside a single read-write transaction: every change fn makes
// is committed together when fn returns nil and rolled back entirely when it
// returns an error. View runs fn in a read-only transaction and observes
// either the state before or after any concurrent Update, never a partial one.
type Database interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error

	// Sync operation tracking

	// CreateSyncOperation records the start of a CLI operation and gives it an
	// auto-increment id.
	CreateSyncOperation(operation string, parameters string) (*SyncOperation, error)

	// FinishSyncOperation stamps the end of an operation with its status.
	FinishSyncOperation(id int64, status string) error

	// ListSyncOperations returns the most recent operations, newest first.
	ListSyncOperations(limit int) ([]*SyncOperation, error)

	// MaxSyncOperationID returns the highest operation id, or 0 if none.
	MaxSyncOperationID() (int64, error)

	// CheckMigrations verifies the schema is up to date.
	CheckMigrations() error

	// BackupTo writes a consistent copy of the store to destPath.
	BackupTo(destPath string) error

	Close() error
}

// Tx is the view of the store inside one transaction. Relation lookups made
// through Exists see every write made earlier in the same transaction.
type Tx interface {
	model.Refs

	// User returns the signed-in user, or nil if none has been stored yet.
	User() (*model.User, error)
	PutUser(u *model.User) error

	// Preferences returns the preferences record, or nil if none exists.
	Preferences() (*model.Preferences, error)
	PutPreferences(p *model.Preferences) error

	Workspaces() Collection[*model.Workspace]
	Tags() Collection[*model.Tag]
	Clients() Collection[*model.Client]
	Projects() Collection[*model.Project]
	Tasks() TaskCollection
	TimeEntries() TimeEntryCollection

	// Checkpoints returns the stored since checkpoint of every collection.
	Checkpoints() (model.Checkpoints, error)
	SetSince(kind model.Kind, at time.Time) error
}

// Collection is the storage of one entity collection, keyed by id.
type Collection[E any] interface {
	// Find returns the entity with the given id. found is false if absent.
	Find(id int64) (entity E, found bool, err error)

	// Put inserts or replaces the entity.
	Put(entity E) error

	// Delete removes the entity. Deleting an absent id is not an error.
	Delete(id int64) error

	// All returns every stored entity ordered by id.
	All() ([]E, error)

	// Pending returns the entities with SyncStatus SyncNeeded ordered by id.
	Pending() ([]E, error)

	// NextTemporaryID returns a negative id not used by any stored entity.
	NextTemporaryID() (int64, error)
}

type TaskCollection interface {
	Collection[*model.Task]

	// ByProject returns the tasks of a project.
	ByProject(projectID int64) ([]*model.Task, error)
}

type TimeEntryCollection interface {
	Collection[*model.TimeEntry]

	// Running returns every entry without a duration, ordered by start.
	Running() ([]*model.TimeEntry, error)
}

// SyncOperation is the record of one CLI operation against the store.
type SyncOperation struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt *time.Time
	Operation  string
	Parameters string
	Status     string
}
