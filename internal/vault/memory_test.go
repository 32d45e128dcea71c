package vault

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestMemoryVault_PutAndGetReplica(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	tests := []struct {
		name    string
		hostID  string
		content string
		version int64
	}{
		{name: "store and retrieve replica", hostID: "host-a", content: "sqlite bytes", version: 1},
		{name: "store empty replica", hostID: "host-b", content: "", version: 2},
		{name: "store large replica", hostID: "host-c", content: strings.Repeat("x", 10000), version: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vault.PutReplica(context.Background(), tt.hostID, strings.NewReader(tt.content), int64(len(tt.content)), tt.version)
			if err != nil {
				t.Fatalf("PutReplica() error = %v", err)
			}

			var buf bytes.Buffer
			if err := vault.GetReplica(context.Background(), tt.hostID, &buf); err != nil {
				t.Fatalf("GetReplica() unexpected error: %v", err)
			}
			if got := buf.String(); got != tt.content {
				t.Errorf("GetReplica() = %q, want %q", got, tt.content)
			}

			version, err := vault.GetReplicaVersion(context.Background(), tt.hostID)
			if err != nil || version != tt.version {
				t.Errorf("GetReplicaVersion() = %d, %v; want %d", version, err, tt.version)
			}
		})
	}
}

func TestMemoryVault_PutReplicaReplaces(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	for i, content := range []string{"first", "second"} {
		if err := vault.PutReplica(context.Background(), "host", strings.NewReader(content), int64(len(content)), int64(i+1)); err != nil {
			t.Fatalf("PutReplica() iteration %d error: %v", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := vault.GetReplica(context.Background(), "host", &buf); err != nil {
		t.Fatalf("GetReplica() error: %v", err)
	}
	if got := buf.String(); got != "second" {
		t.Errorf("GetReplica() = %q, want %q", got, "second")
	}
	if version, _ := vault.GetReplicaVersion(context.Background(), "host"); version != 2 {
		t.Errorf("GetReplicaVersion() = %d, want 2", version)
	}
}

func TestMemoryVault_Missing(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	var buf bytes.Buffer
	if err := vault.GetReplica(context.Background(), "nonexistent-host", &buf); err == nil {
		t.Error("GetReplica() expected error for nonexistent host, got nil")
	}

	version, err := vault.GetReplicaVersion(context.Background(), "nonexistent-host")
	if err != nil || version != 0 {
		t.Errorf("GetReplicaVersion() = %d, %v; want 0, nil", version, err)
	}
}

func TestMemoryVault_PutReplicaSizeMismatch(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	content := "test"
	if err := vault.PutReplica(context.Background(), "host", strings.NewReader(content), int64(len(content)+10), 1); err == nil {
		t.Error("PutReplica() expected error for size mismatch, got nil")
	}
	if version, _ := vault.GetReplicaVersion(context.Background(), "host"); version != 0 {
		t.Errorf("GetReplicaVersion() = %d after failed put, want 0", version)
	}
}

func TestMemoryVault_ValidateSetup(t *testing.T) {
	if err := NewMemoryVault("test-vault").ValidateSetup(context.Background()); err != nil {
		t.Errorf("ValidateSetup() unexpected error: %v", err)
	}
}
