// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sarveshkapre/secretive-x/internal/drift"
	"github.com/sarveshkapre/secretive-x/internal/i18n"
	"github.com/sarveshkapre/secretive-x/internal/model"
)

// scanCmd compares the manifest against the key directory.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Compare the manifest against the key directory",
	Long: `Report every divergence between the manifest and the key directory:
records whose files are gone, records whose paths escape the key
directory, and on-disk key pairs nothing tracks. Scanning never changes
anything; use import and prune to remediate.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := appCore.Scan()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(report)
		}
		renderDriftReport(report)
		return nil
	},
}

// importCmd adopts untracked key pairs into the manifest.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Track untracked key pairs found in the key directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, result, err := appCore.Reconcile(drift.Options{ImportUntracked: true})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{"report": report, "result": result})
		}
		for _, name := range result.Imported {
			fmt.Println(i18n.T("import.cli_imported", name))
		}
		for _, stem := range sortedKeys(result.Skipped) {
			fmt.Println(i18n.T("import.cli_skipped", stem, result.Skipped[stem]))
		}
		if len(result.Imported) == 0 && len(result.Skipped) == 0 {
			fmt.Println(i18n.T("import.cli_nothing"))
		}
		return nil
	},
}

// pruneCmd drops manifest records for missing or untrusted keys.
var pruneCmd = &cobra.Command{
	Use:   "prune --missing|--invalid-paths",
	Short: "Remove manifest records for missing or untrusted keys",
	Long: `Drop manifest records whose files are gone (--missing) or whose paths
violate the key directory boundary (--invalid-paths). Pruning only edits
the manifest; it never deletes files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pruneMissing, _ := cmd.Flags().GetBool("missing")
		pruneInvalid, _ := cmd.Flags().GetBool("invalid-paths")
		yes, _ := cmd.Flags().GetBool("yes")

		if !pruneMissing && !pruneInvalid {
			return usagef("%s", i18n.T("prune.cli_select"))
		}

		// Scan first so the confirmation can name a count.
		report, err := appCore.Scan()
		if err != nil {
			return err
		}
		count := 0
		if pruneMissing {
			count += len(report.Missing)
		}
		if pruneInvalid {
			count += len(report.InvalidPath)
		}
		if count == 0 {
			if jsonOutput {
				return printJSON(map[string]any{"report": report, "result": model.NewReconcileResult()})
			}
			fmt.Println(i18n.T("prune.cli_nothing"))
			return nil
		}

		if !yes {
			answer := promptForConfirmation(i18n.T("prune.cli_confirm", count))
			if !confirmed(answer) {
				fmt.Println(i18n.T("common.cli_canceled"))
				return nil
			}
		}

		report, result, err := appCore.Reconcile(drift.Options{
			PruneMissing: pruneMissing,
			PruneInvalid: pruneInvalid,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{"report": report, "result": result})
		}
		for _, name := range result.PrunedMissing {
			fmt.Println(i18n.T("prune.cli_pruned_missing", name))
		}
		for _, name := range result.PrunedInvalid {
			fmt.Println(i18n.T("prune.cli_pruned_invalid", name))
		}
		if !result.Changed() {
			fmt.Println(i18n.T("prune.cli_nothing"))
		}
		return nil
	},
}

// residentImportCmd pulls resident keys off the hardware token.
var residentImportCmd = &cobra.Command{
	Use:   "resident-import",
	Short: "Download resident keys from the hardware token and track them",
	Long: `Ask ssh-keygen to download every resident key from the attached token
into the key directory, then track the new pairs in the manifest. The
token will prompt for its PIN and a touch.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, result, err := appCore.ResidentImport(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]any{"report": report, "result": result})
		}
		for _, name := range result.Imported {
			fmt.Println(i18n.T("resident_import.cli_imported", name))
		}
		for _, stem := range sortedKeys(result.Skipped) {
			fmt.Println(i18n.T("import.cli_skipped", stem, result.Skipped[stem]))
		}
		if len(result.Imported) == 0 {
			fmt.Println(i18n.T("resident_import.cli_nothing"))
		}
		return nil
	},
}

// renderDriftReport prints a scan report section by section, with the
// scanner's reason next to each entry when it recorded one.
func renderDriftReport(report *model.DriftReport) {
	if report.Clean() {
		fmt.Println(i18n.T("scan.cli_clean"))
		return
	}
	section := func(headerID string, names []string) {
		if len(names) == 0 {
			return
		}
		fmt.Println(i18n.T(headerID))
		for _, name := range names {
			if detail := report.Details[name]; detail != "" {
				fmt.Printf("  %s (%s)\n", name, detail)
			} else {
				fmt.Printf("  %s\n", name)
			}
		}
	}
	section("scan.cli_missing", report.Missing)
	section("scan.cli_invalid", report.InvalidPath)
	section("scan.cli_untracked", report.Untracked)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// registerReconcileCommands registers the drift workflow subcommands.
func registerReconcileCommands(root *cobra.Command) {
	root.AddCommand(scanCmd, importCmd, pruneCmd, residentImportCmd)

	if pruneCmd.Flags().Lookup("missing") == nil {
		pruneCmd.Flags().Bool("missing", false, "Prune records whose key files are gone")
		pruneCmd.Flags().Bool("invalid-paths", false, "Prune records whose paths leave the key directory")
		pruneCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	}
}
