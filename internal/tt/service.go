package tt

import (
	"context"
	"errors"
	"fmt"

	"tt-go/internal/model"
)

var (
	// ErrNilPullResult is returned when there is no pull result to process.
	ErrNilPullResult = errors.New("nil pull result")

	// ErrNotFound is returned when a local edit targets a missing entity.
	ErrNotFound = errors.New("not found")

	// ErrNoRunningTimeEntry is returned when stopping without a running timer.
	ErrNoRunningTimeEntry = errors.New("no running time entry")
)

// TTService is the sync core the CLI drives: it reconciles pull results
// into the local replica, applies local edits and exposes what is pending
// for push.
type TTService struct {
	database  Database
	vault     Vault
	encryptor Encryptor
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewTTService creates a TTService. vault and encryptor may be nil when
// replica snapshots are not used.
func NewTTService(database Database, vault Vault, encryptor Encryptor, logger Logger, clock Clock, idgen IDGenerator) *TTService {
	return &TTService{
		database:  database,
		vault:     vault,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// Checkpoints returns the since checkpoints stored in the replica.
func (s *TTService) Checkpoints(ctx context.Context) (model.Checkpoints, error) {
	var checkpoints model.Checkpoints
	err := s.database.View(ctx, func(tx Tx) error {
		var err error
		checkpoints, err = tx.Checkpoints()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading checkpoints: %w", err)
	}
	return checkpoints, nil
}

// CurrentRunningTimeEntry returns the running time entry, or nil.
func (s *TTService) CurrentRunningTimeEntry(ctx context.Context) (*model.TimeEntry, error) {
	var running *model.TimeEntry
	err := s.database.View(ctx, func(tx Tx) error {
		var err error
		running, err = currentRunning(tx.TimeEntries())
		return err
	})
	if err != nil {
		return nil, err
	}
	return running, nil
}

// GetHistory returns the most recent operations, newest first.
func (s *TTService) GetHistory(limit int) ([]*SyncOperation, error) {
	ops, err := s.database.ListSyncOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync operations: %w", err)
	}
	return ops, nil
}
