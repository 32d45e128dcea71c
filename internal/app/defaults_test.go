package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("TT_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("TT_HOME", "/custom/tt")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/config.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/config.toml")
		}
		if defaults["base_dir"] != "/custom/tt" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/custom/tt")
		}
		if defaults["log_dir"] != "/custom/tt/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/custom/tt/log")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("TT_CONFIG_PATH", "")
		t.Setenv("TT_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "tt.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "tt")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}

		wantLog := filepath.Join(wantBase, "log")
		if defaults["log_dir"] != wantLog {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], wantLog)
		}
	})
	t.Run("TT_HOME alone moves data but not config", func(t *testing.T) {
		t.Setenv("TT_CONFIG_PATH", "")
		t.Setenv("TT_HOME", "/srv/tt")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()
		if want := filepath.Join(homeDir, ".config", "tt.toml"); defaults["config_path"] != want {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], want)
		}
		if defaults["log_dir"] != "/srv/tt/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/srv/tt/log")
		}
	})
}
