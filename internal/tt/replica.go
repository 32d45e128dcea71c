package tt

import (
	"bytes"
	"context"
	"fmt"
	"os"
)

// BackupReplica snapshots the local store, encrypts the snapshot and uploads
// it to the vault under the given version.
func (s *TTService) BackupReplica(ctx context.Context, hostID string, version int64) error {
	if s.vault == nil || s.encryptor == nil {
		return fmt.Errorf("replica backup requires a vault and an encryptor")
	}

	tmpFile, err := os.CreateTemp("", "tt-replica-*.db")
	if err != nil {
		return fmt.Errorf("creating temp file for replica: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	if err := s.database.BackupTo(tmpPath); err != nil {
		return fmt.Errorf("snapshotting replica: %w", err)
	}

	plain, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("opening replica snapshot: %w", err)
	}
	defer plain.Close()

	var sealed bytes.Buffer
	if err := s.encryptor.Encrypt(plain, &sealed); err != nil {
		return fmt.Errorf("encrypting replica: %w", err)
	}

	size := int64(sealed.Len())
	if err := s.vault.PutReplica(ctx, hostID, &sealed, size, version); err != nil {
		return fmt.Errorf("uploading replica: %w", err)
	}

	s.logger.Info("replica uploaded", "host", hostID, "version", version, "size", size)
	return nil
}

// RestoreReplica downloads the host's replica snapshot, decrypts it and
// writes it to destPath. It returns the version of the restored snapshot.
func (s *TTService) RestoreReplica(ctx context.Context, hostID string, destPath string, decryptCtx DecryptionContext) (int64, error) {
	if s.vault == nil {
		return 0, fmt.Errorf("replica restore requires a vault")
	}
	if decryptCtx == nil {
		return 0, fmt.Errorf("replica is encrypted but no decryption context was provided")
	}

	version, err := s.vault.GetReplicaVersion(ctx, hostID)
	if err != nil {
		return 0, fmt.Errorf("checking replica version: %w", err)
	}
	if version == 0 {
		return 0, fmt.Errorf("no replica stored for host %s", hostID)
	}

	var sealed bytes.Buffer
	if err := s.vault.GetReplica(ctx, hostID, &sealed); err != nil {
		return 0, fmt.Errorf("downloading replica: %w", err)
	}

	tmpPath := destPath + ".tmp"
	out, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("creating restore file: %w", err)
	}
	if err := decryptCtx.Decrypt(&sealed, out); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("decrypting replica: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing restore file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("moving restored replica into place: %w", err)
	}

	s.logger.Info("replica restored", "host", hostID, "version", version, "path", destPath)
	return version, nil
}

// RemoteReplicaVersion returns the version of the host's snapshot in the
// vault, or 0 if there is none.
func (s *TTService) RemoteReplicaVersion(ctx context.Context, hostID string) (int64, error) {
	if s.vault == nil {
		return 0, nil
	}
	version, err := s.vault.GetReplicaVersion(ctx, hostID)
	if err != nil {
		return 0, fmt.Errorf("checking replica version: %w", err)
	}
	return version, nil
}
