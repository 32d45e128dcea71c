package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"tt-go/internal/config"
	"tt-go/internal/database"
	"tt-go/internal/encryption"
	"tt-go/internal/model"
	"tt-go/internal/push"
	"tt-go/internal/tt"
	"tt-go/internal/vault"
)

// TTApp is the application layer between the CLI and TTService.
// It constructs all dependencies from config, exposes the sync operations the
// CLI needs and manages the replica lifecycle on Close.
type TTApp struct {
	cfg       *config.Config
	db        tt.Database
	vault     tt.Vault
	encryptor tt.Encryptor
	service   *tt.TTService
	logger    *slog.Logger
	op        *Operation
	logFile   *os.File
}

// NewTTApp creates a fully wired TTApp from the given config.
// operation identifies the CLI command being run (e.g. "ApplyPull", "Start").
// The caller must call Close when done.
func NewTTApp(ctx context.Context, cfg *config.Config, operation string) (*TTApp, error) {
	var v tt.Vault
	if len(cfg.Vaults) > 0 {
		var err error
		v, err = vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
		if err != nil {
			return nil, fmt.Errorf("creating vault: %w", err)
		}
	} else if cfg.Sync.BackupReplica {
		return nil, fmt.Errorf("sync.backup_replica is set but no vaults are configured")
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, cfg.LogLevel, runID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := tt.NewTTService(db, v, enc, &slogAdapter{l: logger}, tt.RealClock{}, tt.UUIDGenerator{})

	// A replica uploaded by a later run means this one is stale: applying
	// pulls to it would fork the history.
	remoteVersion, err := svc.RemoteReplicaVersion(ctx, cfg.HostID)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("checking remote replica version: %w", err)
	}
	localMax, err := db.MaxSyncOperationID()
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("checking local replica version: %w", err)
	}
	if remoteVersion > localMax {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("local replica is behind remote (local=%d, remote=%d): restore from vault or re-initialize", localMax, remoteVersion)
	}

	return &TTApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		encryptor: enc,
		service:   svc,
		logger:    logger,
		op:        NewOperation(operation, ""),
		logFile:   logFile,
	}, nil
}

// persistOperation saves the operation to the database, giving it an
// auto-increment ID. Only mutating commands call it.
func (a *TTApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateSyncOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting sync operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// fail marks the operation as failed when err is non-nil.
func (a *TTApp) fail(err error) error {
	if err != nil {
		a.op.Status = "error"
	}
	return err
}

// ApplyPull reads a JSON pull result from path and reconciles it into the
// replica against the stored checkpoints.
func (a *TTApp) ApplyPull(ctx context.Context, path string) (*tt.SyncResult, error) {
	if err := a.persistOperation(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, a.fail(fmt.Errorf("opening pull result: %w", err))
	}
	defer f.Close()

	pull, err := model.DecodePullResult(f)
	if err != nil {
		return nil, a.fail(err)
	}

	checkpoints, err := a.service.Checkpoints(ctx)
	if err != nil {
		return nil, a.fail(err)
	}

	result, err := a.service.ProcessPullResult(ctx, pull, checkpoints)
	if err != nil {
		return nil, a.fail(err)
	}
	return result, nil
}

// PendingPushActions returns the actions the next push must send.
func (a *TTApp) PendingPushActions(ctx context.Context) (*push.Batch, error) {
	return a.service.PendingPushActions(ctx)
}

// Start starts a new timer, stopping the running one.
func (a *TTApp) Start(ctx context.Context, params tt.StartParams) (*model.TimeEntry, error) {
	if err := a.persistOperation(params.Description); err != nil {
		return nil, err
	}
	te, err := a.service.StartTimeEntry(ctx, params)
	return te, a.fail(err)
}

// Stop stops the running timer.
func (a *TTApp) Stop(ctx context.Context) (*model.TimeEntry, error) {
	if err := a.persistOperation(""); err != nil {
		return nil, err
	}
	te, err := a.service.StopTimeEntry(ctx)
	return te, a.fail(err)
}

// Delete marks a time entry for deletion.
func (a *TTApp) Delete(ctx context.Context, id int64) error {
	if err := a.persistOperation(fmt.Sprint(id)); err != nil {
		return err
	}
	return a.fail(a.service.DeleteTimeEntry(ctx, id))
}

// Running returns the running time entry, or nil.
func (a *TTApp) Running(ctx context.Context) (*model.TimeEntry, error) {
	return a.service.CurrentRunningTimeEntry(ctx)
}

// RecordSyncError stores a push rejection on the local entity.
func (a *TTApp) RecordSyncError(ctx context.Context, kind model.Kind, id int64, message string) error {
	if err := a.persistOperation(fmt.Sprintf("%s %d", kind, id)); err != nil {
		return err
	}
	return a.fail(a.service.RecordSyncError(ctx, kind, id, message))
}

// History returns the most recent operations.
func (a *TTApp) History(limit int) ([]*tt.SyncOperation, error) {
	return a.service.GetHistory(limit)
}

// Close finalizes the operation and closes all resources. A persisted,
// successful operation uploads a replica snapshot when sync.backup_replica is
// set.
func (a *TTApp) Close(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.op.Persisted() {
		if err := a.db.FinishSyncOperation(a.op.ID, a.op.Status); err != nil {
			keep(fmt.Errorf("finishing sync operation: %w", err))
		}
		if a.cfg.Sync.BackupReplica && a.op.Status == "success" {
			keep(a.service.BackupReplica(ctx, a.cfg.HostID, a.op.ID))
		}
	}

	if err := a.db.Close(); err != nil {
		keep(fmt.Errorf("closing database: %w", err))
	}
	if firstErr != nil {
		a.logger.Error("closing app", "operation", a.op.Operation, "error", firstErr)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// RestoreReplica replaces the local sqlite replica with the host's snapshot
// from the first configured vault and returns the restored version.
func RestoreReplica(ctx context.Context, cfg *config.Config, passphrase string) (int64, error) {
	if cfg.Database.Type != "sqlite" {
		return 0, fmt.Errorf("replica restore requires a sqlite database, got %q", cfg.Database.Type)
	}
	if len(cfg.Vaults) == 0 {
		return 0, fmt.Errorf("no vaults configured")
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
	if err != nil {
		return 0, fmt.Errorf("creating vault: %w", err)
	}
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return 0, fmt.Errorf("creating encryptor: %w", err)
	}
	decryptCtx, err := enc.Unlock(passphrase)
	if err != nil {
		return 0, fmt.Errorf("unlocking private key: %w", err)
	}

	if err := os.MkdirAll(cfg.Database.DataDir, 0700); err != nil {
		return 0, fmt.Errorf("creating data_dir: %w", err)
	}

	logger, logFile, err := newLogger(cfg.LogDir, cfg.LogLevel, "restore")
	if err != nil {
		return 0, fmt.Errorf("creating logger: %w", err)
	}
	defer logFile.Close()

	svc := tt.NewTTService(nil, v, enc, &slogAdapter{l: logger}, tt.RealClock{}, tt.UUIDGenerator{})
	return svc.RestoreReplica(ctx, cfg.HostID, database.ReplicaPath(cfg.Database, cfg.HostID), decryptCtx)
}
