package database

import (
	"fmt"
	"os"
	"path/filepath"

	"tt-go/internal/config"
	"tt-go/internal/tt"
)

// NewDatabaseFromConfig opens the replica store described by cfg and brings
// its schema up to date.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, hostID string) (tt.Database, error) {
	var path string
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		path = ReplicaPath(cfg, hostID)
	case "memory":
		path = ":memory:"
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}

	db, err := NewSQLiteDatabase(path, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, nil
}

// ReplicaPath returns the file the sqlite replica of a host lives in.
func ReplicaPath(cfg config.DatabaseConfig, hostID string) string {
	return filepath.Join(cfg.DataDir, hostID+".db")
}
