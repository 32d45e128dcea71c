package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tt-go/internal/database/migrations"
	"tt-go/internal/tt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements tt.Database on top of SQLite.
type SQLiteDatabase struct {
	db    *sql.DB
	clock tt.Clock
	path  string
}

// NewSQLiteDatabase opens a SQLite database. path can be a file path or
// ":memory:". A nil clock means the real clock.
func NewSQLiteDatabase(path string, clock tt.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteDatabaseFromDB(db, path, clock), nil
}

// NewSQLiteDatabaseFromDB wraps an already configured connection.
func NewSQLiteDatabaseFromDB(db *sql.DB, path string, clock tt.Clock) *SQLiteDatabase {
	if clock == nil {
		clock = tt.RealClock{}
	}
	return &SQLiteDatabase{db: db, clock: clock, path: path}
}

// OpenConnection opens and configures a SQLite connection pool.
func OpenConnection(path string) (*sql.DB, error) {
	memory := path == ":memory:"

	params := []string{"_foreign_keys=on", "_busy_timeout=5000"}
	if !memory {
		params = append(params, "_journal_mode=WAL")
	}
	db, err := sql.Open("sqlite3", path+"?"+strings.Join(params, "&"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Update runs fn in a read-write transaction, committing only if fn succeeds.
func (s *SQLiteDatabase) Update(ctx context.Context, fn func(tx tt.Tx) error) error {
	return s.withTx(ctx, nil, fn)
}

// View runs fn in a read-only transaction.
func (s *SQLiteDatabase) View(ctx context.Context, fn func(tx tt.Tx) error) error {
	return s.withTx(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (s *SQLiteDatabase) withTx(ctx context.Context, opts *sql.TxOptions, fn func(tx tt.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Sync operation tracking

func (s *SQLiteDatabase) CreateSyncOperation(operation string, parameters string) (*tt.SyncOperation, error) {
	startedAt := s.clock.Now().UTC()
	res, err := s.db.Exec(
		"INSERT INTO sync_operations (started_at, operation, parameters) VALUES (?, ?, ?)",
		startedAt, operation, parameters,
	)
	if err != nil {
		return nil, fmt.Errorf("creating sync operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading sync operation id: %w", err)
	}
	return &tt.SyncOperation{
		ID:         id,
		StartedAt:  startedAt,
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
	}, nil
}

func (s *SQLiteDatabase) FinishSyncOperation(id int64, status string) error {
	_, err := s.db.Exec(
		"UPDATE sync_operations SET finished_at = ?, status = ? WHERE id = ?",
		s.clock.Now().UTC(), status, id,
	)
	if err != nil {
		return fmt.Errorf("finishing sync operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListSyncOperations(limit int) ([]*tt.SyncOperation, error) {
	rows, err := s.db.Query(
		"SELECT id, started_at, finished_at, operation, parameters, status FROM sync_operations ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sync operations: %w", err)
	}
	defer rows.Close()

	ops := []*tt.SyncOperation{}
	for rows.Next() {
		var (
			op         tt.SyncOperation
			finishedAt sql.NullTime
		)
		if err := rows.Scan(&op.ID, &op.StartedAt, &finishedAt, &op.Operation, &op.Parameters, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning sync operation: %w", err)
		}
		op.FinishedAt = timePtr(finishedAt)
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sync operations: %w", err)
	}
	return ops, nil
}

func (s *SQLiteDatabase) MaxSyncOperationID() (int64, error) {
	var id int64
	if err := s.db.QueryRow("SELECT COALESCE(MAX(id), 0) FROM sync_operations").Scan(&id); err != nil {
		return 0, fmt.Errorf("getting max sync operation ID: %w", err)
	}
	return id, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate applies pending schema migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

var _ tt.Database = (*SQLiteDatabase)(nil)
