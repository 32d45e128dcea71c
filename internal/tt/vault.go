package tt

import (
	"context"
	"io"
)

// Vault stores encrypted snapshots of the local replica, one per host.
// Operations stream through io.Reader/io.Writer so a snapshot is never held
// in memory twice.
type Vault interface {
	// PutReplica stores the replica snapshot for a host. size is the number
	// of bytes that will be read from r. version is stored alongside the
	// snapshot; it is the id of the sync operation that produced it.
	PutReplica(ctx context.Context, hostID string, r io.Reader, size int64, version int64) error

	// GetReplica writes the host's replica snapshot to w.
	GetReplica(ctx context.Context, hostID string, w io.Writer) error

	// GetReplicaVersion returns the version of the host's snapshot, or 0 if
	// none has been stored.
	GetReplicaVersion(ctx context.Context, hostID string) (int64, error)

	// ValidateSetup verifies that the vault is accessible.
	ValidateSetup(ctx context.Context) error
}
