package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tt-go/internal/app"
	"tt-go/internal/config"
	"tt-go/internal/encryption"
	"tt-go/internal/model"
	"tt-go/internal/tt"
	"tt-go/internal/vault"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a TTApp. The caller must defer app.Close(ctx).
// operation identifies the CLI command being run (e.g. "ApplyPull", "Start").
func newApp(ctx context.Context, operation string) (*app.TTApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewTTApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// readPassphrase prompts on the terminal without echoing input.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func parseKind(s string) (model.Kind, error) {
	for _, k := range model.Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

func printTimeEntry(te *model.TimeEntry) {
	state := "running"
	if te.Duration != nil {
		state = (time.Duration(*te.Duration) * time.Second).String()
	}
	fmt.Printf("#%d  %s  %-10s  %s\n", te.ID, te.Start.Local().Format("2006-01-02 15:04:05"), state, te.Description)
}

var rootCmd = &cobra.Command{
	Use:          "tt",
	Short:        "Offline-first time tracking",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and encryption keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		passphrase, err := readPassphrase("Passphrase for the replica key: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return err
		}
		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:  %s\n", cfg.HostID)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Database: %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:    %s (%s)\n", v.Name, v.Type)
		}
		fmt.Printf("Backup replica after sync: %t\n", cfg.Sync.BackupReplica)
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage vault",
}

var configVaultCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured vaults are reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if len(cfg.Vaults) == 0 {
			return fmt.Errorf("no vaults configured")
		}
		for _, vc := range cfg.Vaults {
			v, err := vault.NewVaultFromConfig(cmd.Context(), vc)
			if err != nil {
				return fmt.Errorf("vault %s: %w", vc.Name, err)
			}
			if err := v.ValidateSetup(cmd.Context()); err != nil {
				return fmt.Errorf("vault %s: %w", vc.Name, err)
			}
			fmt.Printf("Vault %s OK\n", vc.Name)
		}
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Exchange changes with the server",
}

var syncApplyCmd = &cobra.Command{
	Use:   "apply FILE",
	Short: "Reconcile a pull result into the local replica",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ApplyPull")
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		result, err := a.ApplyPull(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("applying pull: %w", err)
		}

		for _, kind := range model.Kinds {
			s := result.Stats[kind]
			if s.Total() == 0 {
				continue
			}
			fmt.Printf("%-12s  +%d ~%d -%d  skipped %d\n", kind, s.Created, s.Updated, s.Deleted, s.Skipped)
		}
		for _, id := range result.Stopped {
			fmt.Printf("Stopped time entry #%d\n", id)
		}
		if result.Running != nil {
			fmt.Printf("Running: #%d\n", *result.Running)
		}
		return nil
	},
}

var syncPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Print the actions the next push must send as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "PendingPushActions")
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		batch, err := a.PendingPushActions(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	},
}

var syncErrorCmd = &cobra.Command{
	Use:   "error KIND ID MESSAGE",
	Short: "Record a push rejection on a local entity",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[1], err)
		}

		a, err := newApp(cmd.Context(), "RecordSyncError")
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		return a.RecordSyncError(cmd.Context(), kind, id, strings.Join(args[2:], " "))
	},
}

// timer commands
var startCmd = &cobra.Command{
	Use:   "start DESCRIPTION",
	Short: "Start a timer, stopping the running one",
	RunE: func(cmd *cobra.Command, args []string) error {
		workspace, _ := cmd.Flags().GetInt64("workspace")
		project, _ := cmd.Flags().GetInt64("project")
		task, _ := cmd.Flags().GetInt64("task")
		billable, _ := cmd.Flags().GetBool("billable")
		tags, _ := cmd.Flags().GetInt64Slice("tag")

		params := tt.StartParams{
			WorkspaceID: workspace,
			Description: strings.Join(args, " "),
			Billable:    billable,
			TagIDs:      tags,
		}
		if project != 0 {
			params.ProjectID = &project
		}
		if task != 0 {
			params.TaskID = &task
		}

		a, err := newApp(cmd.Context(), "Start")
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		te, err := a.Start(cmd.Context(), params)
		if err != nil {
			return err
		}
		printTimeEntry(te)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Stop")
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		te, err := a.Stop(cmd.Context())
		if err != nil {
			return err
		}
		printTimeEntry(te)
		return nil
	},
}

var runningCmd = &cobra.Command{
	Use:   "running",
	Short: "Show the running timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Running")
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		te, err := a.Running(cmd.Context())
		if err != nil {
			return err
		}
		if te == nil {
			fmt.Println("No timer running.")
			return nil
		}
		printTimeEntry(te)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a time entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}

		a, err := newApp(cmd.Context(), "Delete")
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		return a.Delete(cmd.Context(), id)
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "GetHistory")
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-18s  %s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

// replica command
var replicaCmd = &cobra.Command{
	Use:   "replica",
	Short: "Manage the encrypted replica snapshot",
}

var replicaRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local replica with the snapshot from the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}

		version, err := app.RestoreReplica(cmd.Context(), cfg, passphrase)
		if err != nil {
			return fmt.Errorf("restoring replica: %w", err)
		}

		fmt.Printf("Restored replica version %d\n", version)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configVaultCmd)
	configVaultCmd.AddCommand(configVaultCheckCmd)

	// sync subcommands
	syncCmd.AddCommand(syncApplyCmd)
	syncCmd.AddCommand(syncPendingCmd)
	syncCmd.AddCommand(syncErrorCmd)

	replicaCmd.AddCommand(replicaRestoreCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().Int64P("workspace", "w", 0, "Workspace id (default: the user's default workspace)")
	startCmd.Flags().Int64P("project", "p", 0, "Project id")
	startCmd.Flags().Int64P("task", "t", 0, "Task id")
	startCmd.Flags().BoolP("billable", "b", false, "Mark the entry billable")
	startCmd.Flags().Int64Slice("tag", nil, "Tag ids")
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(runningCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(replicaCmd)
}
