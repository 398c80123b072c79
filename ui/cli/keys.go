// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sarveshkapre/secretive-x/internal/core"
	"github.com/sarveshkapre/secretive-x/internal/model"
	"github.com/sarveshkapre/secretive-x/internal/sshkey"
	"github.com/sarveshkapre/secretive-x/internal/sshtool"
)

// createCmd generates a new key pair and tracks it in the manifest.
var createCmd = &cobra.Command{
	Use:   "create --name NAME",
	Short: "Create a new key using the selected provider",
	Long: `Generate a key pair through ssh-keygen and add it to the manifest.
The default provider is fido2 (ed25519-sk, hardware-backed); use
--provider software for a plain ed25519 key. Software keys prompt for a
passphrase unless one is given with --passphrase or explicitly skipped
with --no-passphrase.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		provider, _ := cmd.Flags().GetString("provider")
		comment, _ := cmd.Flags().GetString("comment")
		resident, _ := cmd.Flags().GetBool("resident")
		application, _ := cmd.Flags().GetString("application")
		passphraseFlag, _ := cmd.Flags().GetString("passphrase")
		noPassphrase, _ := cmd.Flags().GetBool("no-passphrase")
		rounds, _ := cmd.Flags().GetInt("rounds")

		if err := core.ValidateKeyName(name); err != nil {
			return usagef("%s", err.Error())
		}
		if err := core.ValidateProvider(provider); err != nil {
			return usagef("%s", err.Error())
		}

		// Passphrases only apply to software keys; the hardware token has
		// its own PIN handling through ssh-keygen.
		passphrase := ""
		if provider == model.ProviderSoftware {
			passSet := cmd.Flags().Changed("passphrase")
			switch {
			case passSet && noPassphrase:
				return usagef("Use either --passphrase or --no-passphrase, not both.")
			case passSet:
				passphrase = passphraseFlag
			case noPassphrase:
				// Explicit opt-out.
			case term.IsTerminal(int(os.Stdin.Fd())):
				fmt.Print("Passphrase: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Println()
				if err != nil {
					return fmt.Errorf("could not read passphrase: %w", err)
				}
				passphrase = string(raw)
			}
		}

		if !cmd.Flags().Changed("comment") {
			comment = fmt.Sprintf("%s@secretive-x", name)
		}

		record, err := appCore.Create(cmd.Context(), core.CreateRequest{
			Name:        name,
			Provider:    provider,
			Comment:     comment,
			Passphrase:  passphrase,
			Resident:    resident,
			Application: application,
			Rounds:      rounds,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(record)
		}
		fmt.Printf("Created %s (%s)\n", record.Name, record.Provider)
		return nil
	},
}

// listCmd lists all tracked keys.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := appCore.List()
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(records)
		}
		if len(records) == 0 {
			fmt.Println("No keys found.")
			return nil
		}

		rows := make([][]string, 0, len(records))
		for _, record := range records {
			resident := "no"
			if record.Resident() {
				resident = "yes"
			}
			rows = append(rows, []string{
				record.Name,
				record.Provider,
				record.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
				resident,
				record.PrivatePath,
			})
		}
		fmt.Println(renderTable([]string{"Name", "Provider", "Created", "Resident", "Key Path"}, rows))
		return nil
	},
}

// pubkeyCmd prints the public key for a named key.
var pubkeyCmd = &cobra.Command{
	Use:   "pubkey <name>",
	Short: "Print the public key for a named key",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		copyToClipboard, _ := cmd.Flags().GetBool("copy")
		showFingerprint, _ := cmd.Flags().GetBool("fingerprint")

		key, err := appCore.PublicKey(args[0])
		if err != nil {
			return err
		}

		if showFingerprint {
			fp, err := sshkey.Fingerprint(key)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]string{"name": args[0], "fingerprint": fp})
			}
			fmt.Println(fp)
			return nil
		}

		if copyToClipboard {
			if err := clipboard.WriteAll(key); err != nil {
				return fmt.Errorf("could not copy to clipboard: %w", err)
			}
			fmt.Println("Public key copied to clipboard.")
			return nil
		}

		if jsonOutput {
			return printJSON(map[string]string{"name": args[0], "public_key": key})
		}
		fmt.Println(key)
		return nil
	},
}

// deleteCmd deletes local key files and removes the record from the manifest.
var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete local key files and remove from manifest",
	Long: `Remove the key pair files and the manifest record. For resident FIDO2
keys this only removes the local handle; the key itself stays on the
device until removed with the vendor tool.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		name := args[0]

		// Look the record up first so the confirmation names a real key.
		if _, err := appCore.Get(name); err != nil {
			return err
		}

		if !yes {
			answer := promptForConfirmation(fmt.Sprintf("Delete key '%s'? [y/N] ", name))
			if !confirmed(answer) {
				fmt.Println("Canceled")
				return nil
			}
		}

		record, err := appCore.Delete(name)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(map[string]any{"deleted": record.Name, "resident": record.Resident()})
		}
		if record.Provider == model.ProviderFIDO2 && record.Resident() {
			fmt.Println("Local handle removed. Resident key may remain on device.")
		}
		fmt.Printf("Deleted %s\n", record.Name)
		return nil
	},
}

// sshConfigCmd emits an SSH config snippet for a key.
var sshConfigCmd = &cobra.Command{
	Use:   "ssh-config <name>",
	Short: "Emit an SSH config snippet for a key",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")

		snippet, err := appCore.SSHConfigSnippet(args[0], host)
		if err != nil {
			return err
		}

		if jsonOutput {
			if host == "" {
				host = args[0]
			}
			return printJSON(map[string]string{"name": args[0], "host": host, "snippet": snippet})
		}
		fmt.Print(snippet)
		return nil
	},
}

// registerKeyCommands registers the key lifecycle subcommands.
func registerKeyCommands(root *cobra.Command) {
	root.AddCommand(createCmd, listCmd, pubkeyCmd, deleteCmd, sshConfigCmd)

	// Setup flags only if not already defined; NewRootCmd may be called
	// multiple times in tests and pflag panics on duplicate definitions.
	if createCmd.Flags().Lookup("name") == nil {
		createCmd.Flags().String("name", "", "Key name, used as filename")
		createCmd.Flags().String("provider", model.ProviderFIDO2, `Key provider ("fido2" or "software")`)
		createCmd.Flags().String("comment", "", "Key comment (default NAME@secretive-x)")
		createCmd.Flags().Bool("resident", false, "Store key on device")
		createCmd.Flags().String("application", "", "FIDO2 application id (ssh: prefix)")
		createCmd.Flags().String("passphrase", "", "Passphrase for software keys")
		createCmd.Flags().Bool("no-passphrase", false, "Create the software key without a passphrase")
		createCmd.Flags().Int("rounds", sshtool.DefaultRounds, "KDF rounds for software keys")
	}

	if pubkeyCmd.Flags().Lookup("copy") == nil {
		pubkeyCmd.Flags().Bool("copy", false, "Copy the public key to the clipboard")
		pubkeyCmd.Flags().Bool("fingerprint", false, "Print the SHA256 fingerprint instead of the key")
	}

	if deleteCmd.Flags().Lookup("yes") == nil {
		deleteCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	}

	if sshConfigCmd.Flags().Lookup("host") == nil {
		sshConfigCmd.Flags().String("host", "", "Host pattern for the snippet (default: the key name)")
	}
}
