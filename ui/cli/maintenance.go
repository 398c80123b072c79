// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarveshkapre/secretive-x/internal/config"
	"github.com/sarveshkapre/secretive-x/internal/core"
	"github.com/sarveshkapre/secretive-x/internal/i18n"
)

// initCmd creates the key directory, the manifest parent and a config file.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize config and directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		result, err := appCore.InitWorkspace(force)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(result)
		}
		fmt.Printf("Config: %s\n", result.ConfigPath)
		fmt.Printf("Keys:   %s\n", result.KeyDir)
		fmt.Printf("Store:  %s\n", result.ManifestPath)
		return nil
	},
}

// infoCmd shows the effective paths and configuration.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show current config paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appCore.Config()

		configPath := usedConfigFile
		if configPath == "" {
			p, err := config.GetConfigPath(false)
			if err != nil {
				return err
			}
			configPath = p
		}

		if jsonOutput {
			return printJSON(map[string]any{
				"config_path":      configPath,
				"config_loaded":    usedConfigFile != "",
				"key_dir":          cfg.KeyDir,
				"manifest_path":    cfg.ManifestPath,
				"default_provider": cfg.DefaultProvider,
				"language":         cfg.Language,
				"database_type":    cfg.Database.Type,
			})
		}
		fmt.Printf("Config: %s\n", configPath)
		fmt.Printf("Keys:   %s\n", cfg.KeyDir)
		fmt.Printf("Store:  %s\n", cfg.ManifestPath)
		return nil
	},
}

// exportCmd writes the inventory as JSON or CSV.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the inventory as JSON or CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		if format != core.FormatJSON && format != core.FormatCSV {
			return usagef("unknown export format %q (known: %s, %s)", format, core.FormatJSON, core.FormatCSV)
		}

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("could not create file: %w", err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}

		if err := appCore.Export(w, format); err != nil {
			return err
		}
		if output != "" {
			fmt.Println(i18n.T("export.cli_success", output))
		}
		return nil
	},
}

// backupCmd writes a zstd-compressed snapshot of the manifest.
var backupCmd = &cobra.Command{
	Use:   "backup [file]",
	Short: "Write a compressed backup of the manifest",
	Args:  maxArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile := fmt.Sprintf("secretive-x-backup-%s.json.zst", time.Now().Format("2006-01-02"))
		if len(args) > 0 {
			outputFile = args[0]
		}
		if !strings.HasSuffix(outputFile, ".zst") {
			outputFile += ".zst"
		}

		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("could not create file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if err := appCore.Backup(f); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]string{"file": outputFile})
		}
		fmt.Println(i18n.T("backup.cli_success", outputFile))
		return nil
	},
}

// restoreCmd loads manifest records back from a backup file.
var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore manifest records from a backup",
	Long: `Merge the records from a backup file into the manifest. Existing records
win over the backup. With --full the manifest is replaced wholesale by
the backup contents instead.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")
		yes, _ := cmd.Flags().GetBool("yes")

		if full && !yes {
			answer := promptForConfirmation(i18n.T("restore.cli_confirm_full"))
			if !confirmed(answer) {
				fmt.Println(i18n.T("common.cli_canceled"))
				return nil
			}
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("could not open backup file: %w", err)
		}
		defer func() { _ = f.Close() }()

		count, err := appCore.Restore(f, full)
		if err != nil {
			return err
		}

		mode := "merge"
		if full {
			mode = "replace"
		}
		if jsonOutput {
			return printJSON(map[string]any{"restored": count, "mode": mode})
		}
		fmt.Println(i18n.T("restore.cli_success", count))
		return nil
	},
}

// auditLogCmd shows the recorded mutations, newest first.
var auditLogCmd = &cobra.Command{
	Use:   "audit-log",
	Short: "Show the audit log of inventory mutations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		entries, err := appCore.AuditLog(limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Println(i18n.T("audit_log.cli_empty"))
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Timestamp, e.Username, e.Action, e.Details})
		}
		fmt.Println(renderTable([]string{"Time", "User", "Action", "Details"}, rows))
		return nil
	},
}

// registerMaintenanceCommands registers the workspace and data subcommands.
func registerMaintenanceCommands(root *cobra.Command) {
	root.AddCommand(initCmd, infoCmd, exportCmd, backupCmd, restoreCmd, auditLogCmd)

	if initCmd.Flags().Lookup("force") == nil {
		initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	}
	if exportCmd.Flags().Lookup("format") == nil {
		exportCmd.Flags().String("format", core.FormatJSON, `Export format ("json" or "csv")`)
		exportCmd.Flags().String("output", "", "Write to a file instead of stdout")
	}
	if restoreCmd.Flags().Lookup("full") == nil {
		restoreCmd.Flags().Bool("full", false, "Replace the manifest instead of merging")
		restoreCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	}
	if auditLogCmd.Flags().Lookup("limit") == nil {
		auditLogCmd.Flags().Int("limit", 0, "Show at most this many entries (0 means all)")
	}
}
