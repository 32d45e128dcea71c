package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"tt-go/internal/tt"
)

// MemoryVault keeps replica snapshots in memory. It is safe for concurrent
// use and backs the "memory" vault type and tests.
type MemoryVault struct {
	name     string
	replicas map[string][]byte // hostID -> snapshot
	versions map[string]int64  // hostID -> version
	mu       sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:     name,
		replicas: make(map[string][]byte),
		versions: make(map[string]int64),
	}
}

// PutReplica stores the snapshot for a host, replacing any earlier one.
func (m *MemoryVault) PutReplica(_ context.Context, hostID string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read replica: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.replicas[hostID] = data
	m.versions[hostID] = version
	return nil
}

func (m *MemoryVault) GetReplica(_ context.Context, hostID string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.replicas[hostID]
	if !ok {
		return fmt.Errorf("replica not found for host: %s", hostID)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write replica: %w", err)
	}
	return nil
}

// GetReplicaVersion returns 0 if nothing has been stored for the host.
func (m *MemoryVault) GetReplicaVersion(_ context.Context, hostID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.versions[hostID], nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(context.Context) error {
	return nil
}

var _ tt.Vault = (*MemoryVault)(nil)
