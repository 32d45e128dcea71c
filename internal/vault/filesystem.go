package vault

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tt-go/internal/tt"
)

// FileSystemVault stores replica snapshots as files:
//
//	<root>/
//	  replicas/
//	    <hostID>.db.age   (encrypted snapshot)
//	    <hostID>.version  (id of the operation that produced it)
type FileSystemVault struct {
	name        string
	root        string
	replicasDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	replicasDir := filepath.Join(root, "replicas")
	if err := os.MkdirAll(replicasDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create replicas directory: %w", err)
	}

	return &FileSystemVault{
		name:        name,
		root:        root,
		replicasDir: replicasDir,
	}, nil
}

func (v *FileSystemVault) replicaPath(hostID string) string {
	return filepath.Join(v.replicasDir, hostID+".db.age")
}

func (v *FileSystemVault) versionPath(hostID string) string {
	return filepath.Join(v.replicasDir, hostID+".version")
}

// PutReplica stores the snapshot first and the version marker second, so a
// version never points at a snapshot that was not written.
func (v *FileSystemVault) PutReplica(ctx context.Context, hostID string, r io.Reader, size int64, version int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeFile(v.replicaPath(hostID), r, size); err != nil {
		return err
	}

	versionData := strconv.FormatInt(version, 10)
	if err := writeFile(v.versionPath(hostID), strings.NewReader(versionData), int64(len(versionData))); err != nil {
		return fmt.Errorf("writing version: %w", err)
	}
	return nil
}

// GetReplica writes the host's snapshot to w.
func (v *FileSystemVault) GetReplica(ctx context.Context, hostID string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(v.replicaPath(hostID))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("replica not found for host: %s", hostID)
		}
		return fmt.Errorf("failed to open replica: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read replica: %w", err)
	}
	return nil
}

// GetReplicaVersion returns 0 if no version file exists.
func (v *FileSystemVault) GetReplicaVersion(_ context.Context, hostID string) (int64, error) {
	data, err := os.ReadFile(v.versionPath(hostID))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup(context.Context) error {
	for _, dir := range []string{v.root, v.replicasDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeFile writes r to destPath through a temp file and a rename.
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ tt.Vault = (*FileSystemVault)(nil)
