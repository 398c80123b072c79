// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface (CLI) for secretive-x using
// the Cobra library. It defines the root command, the shared service
// wiring, the exit code mapping and the main entry point for execution.

package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"runtime/debug"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sarveshkapre/secretive-x/buildvars"
	"github.com/sarveshkapre/secretive-x/internal/audit"
	"github.com/sarveshkapre/secretive-x/internal/config"
	"github.com/sarveshkapre/secretive-x/internal/core"
	"github.com/sarveshkapre/secretive-x/internal/i18n"
	"github.com/sarveshkapre/secretive-x/internal/logging"
	"github.com/sarveshkapre/secretive-x/internal/manifest"
	"github.com/sarveshkapre/secretive-x/internal/policy"
	"github.com/sarveshkapre/secretive-x/internal/sshtool"
)

var version = buildvars.VersionOrDefault("dev") // overridden by the linker in release builds
var gitCommit = "dev"                           // set at build time with the short commit SHA
var buildDate = ""                              // set at build time (RFC3339)

var cfgFile string
var jsonOutput bool
var debugMode bool

var appConfig config.Config
var appCore *core.Core
var auditStore audit.Store
var usedConfigFile string

// newSSHTool builds the ssh-keygen wrapper the commands run against. It is
// a package-level variable so tests can swap in a fake implementation that
// never shells out.
var newSSHTool = func() sshtool.Tool { return sshtool.NewKeygen() }

// setupDefaultServices loads the configuration and wires the orchestrator
// every command delegates to. It runs as the root PersistentPreRunE, so all
// subcommands see the same services.
func setupDefaultServices(cmd *cobra.Command, args []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	defaults, err := configDefaults()
	if err != nil {
		return err
	}

	appConfig, usedConfigFile, err = config.LoadConfig[config.Config](cmd, defaults, optionalConfigPath)
	// A "file not found" error is expected on first run. Anything else in
	// the config file is fatal; running on half-parsed paths is worse than
	// refusing to start.
	if err != nil && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return fmt.Errorf("error loading config: %w", err)
	}

	if err := appConfig.Normalize(); err != nil {
		return err
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	i18n.Init(appConfig.Language)
	logging.SetDebug(debugMode)

	if auditStore != nil {
		_ = auditStore.Close()
	}
	auditStore, err = audit.NewStore(appConfig.Database.Type, appConfig.Database.Dsn)
	if err != nil {
		return fmt.Errorf("could not open audit log: %w", err)
	}

	appCore, err = core.New(appConfig, manifest.NewStore(appConfig.ManifestPath), newSSHTool(), auditStore)
	if err != nil {
		return err
	}

	logging.Debugf("services ready (config=%q keys=%q store=%q)", usedConfigFile, appConfig.KeyDir, appConfig.ManifestPath)
	return nil
}

// configDefaults registers every config key with viper so environment
// overrides like SECRETIVE_X_KEY_DIR reach Unmarshal.
func configDefaults() (map[string]any, error) {
	def, err := config.Default()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"key_dir":                  def.KeyDir,
		"manifest_path":            def.ManifestPath,
		"default_provider":         def.DefaultProvider,
		"language":                 def.Language,
		"policy.allowed_providers": []string{},
		"policy.name_pattern":      "",
		"database.type":            def.Database.Type,
		"database.dsn":             def.Database.Dsn,
	}, nil
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if cmd.Flags().Changed("config") {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return nil, fmt.Errorf("could not read --config flag: %w", err)
		}

		if path == "" {
			return nil, nil
		}

		// Make sure the user-provided file exists to avoid silently falling
		// back to the search path.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
		}
		return &path, nil
	}
	return nil, nil
}

// Execute runs the CLI entrypoint. The main package calls this function;
// it never returns.
func Execute() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command line and maps the outcome to a process exit
// code: 0 on success, 2 when the user asked for something the inventory
// refuses, 1 for everything that went wrong on the system side.
func run(args []string) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	if auditStore != nil {
		if cerr := auditStore.Close(); cerr != nil {
			logging.Debugf("audit store close: %v", cerr)
		}
		auditStore = nil
	}

	if err == nil {
		return 0
	}
	var quiet *exitError
	if errors.As(err, &quiet) {
		return quiet.code
	}
	printError(err)
	return exitCodeFor(err)
}

// usageError marks a refusal caused by the request itself: bad names,
// conflicting flags, unknown providers. These exit with code 2.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// exitError carries a bare exit code for commands whose output is already
// on screen, like doctor. run prints nothing for it.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// exitCodeFor classifies an error from a command. User errors, things the
// caller can fix by changing the request or the policy, exit with 2.
// System errors exit with 1.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var usage *usageError
	var polErr *policy.Error
	var cfgErr *config.Error
	switch {
	case errors.As(err, &usage),
		errors.As(err, &polErr),
		errors.As(err, &cfgErr),
		errors.Is(err, core.ErrKeyExists),
		errors.Is(err, core.ErrKeyNotFound),
		errors.Is(err, core.ErrNothingSelected):
		return 2
	}
	return 1
}

// printError renders a command error. Humans get a line on stderr; with
// --json the same message also lands as a JSON document on stdout so
// scripted callers always have one well-formed document to parse.
func printError(err error) {
	msg := errorMessage(err)
	if jsonOutput {
		if data, merr := json.Marshal(map[string]string{"error": msg}); merr == nil {
			fmt.Println(string(data))
		}
	}
	fmt.Fprintln(os.Stderr, msg)
}

// errorMessage keeps the short, well-known forms for lookup failures.
func errorMessage(err error) string {
	if errors.Is(err, core.ErrKeyNotFound) {
		return "Key not found."
	}
	return err.Error()
}

// printJSON renders any value as an indented JSON document on stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

var tableHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var tableCellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderTable lays out rows under bold headers. Column widths follow the
// content; the caller only supplies strings.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.Render()
}

// promptForConfirmation displays a prompt and reads a line from stdin.
func promptForConfirmation(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	return strings.TrimSpace(strings.ToLower(answer))
}

// confirmed reports whether the answer to a [y/N] prompt was a yes.
func confirmed(answer string) bool {
	return answer == "y" || answer == "yes"
}

// exactArgs works like cobra.ExactArgs but classifies the mistake as a
// usage error so it exits with code 2.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usagef("%s", err.Error())
		}
		return nil
	}
}

// maxArgs is the usage-error variant of cobra.MaximumNArgs.
func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(n)(cmd, args); err != nil {
			return usagef("%s", err.Error())
		}
		return nil
	}
}

// NewRootCmd creates and configures a new root cobra command. This function
// is used to create the main application command as well as fresh instances
// for isolated testing.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secretive-x",
		Short: "secretive-x is a local-first inventory for hardware-backed SSH keys.",
		Long: `secretive-x keeps a manifest of SSH keys and the key files themselves in
agreement. Keys are generated through the local ssh-keygen, preferring
FIDO2 hardware-backed types, and every tracked path must stay inside the
configured key directory. The scan, import and prune commands reconcile
the manifest with what is actually on disk.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Bare invocation and help only print text; they must not
			// require a loadable config.
			if cmd == cmd.Root() || cmd.Name() == "help" {
				return nil
			}
			return setupDefaultServices(cmd, args)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	v, c, d := resolveBuildVersion(nil)
	compositeVersion := v
	if c != "" && c != "dev" {
		compositeVersion = compositeVersion + " (" + c + ")"
	}
	if d != "" {
		compositeVersion = compositeVersion + " built: " + d
	}
	cmd.Version = compositeVersion

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON on stdout")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().String("language", "en", `CLI language ("en", "de")`)

	// Flag parse errors are the caller's mistake, not the system's.
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usagef("%s", err.Error())
	})

	registerKeyCommands(cmd)
	registerReconcileCommands(cmd)
	registerMaintenanceCommands(cmd)
	registerDoctorCommand(cmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		// The version command must work without config or services.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			resolvedVersion, resolvedCommit, resolvedDate := resolveBuildVersion(nil)
			if jsonOutput {
				return printJSON(map[string]string{
					"version": resolvedVersion,
					"commit":  resolvedCommit,
					"built":   resolvedDate,
				})
			}
			fmt.Printf("version: %s\n", resolvedVersion)
			fmt.Printf("commit: %s\n", resolvedCommit)
			if resolvedDate != "" {
				fmt.Printf("built: %s\n", resolvedDate)
			}
			return nil
		},
	}
	cmd.AddCommand(versionCmd)

	return cmd
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If `info` is nil, it reads build info from
// the runtime. This helper is separated to make unit testing straightforward.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := version
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	var ok bool
	if info == nil {
		if infoLocal, found := debug.ReadBuildInfo(); found {
			info = infoLocal
			ok = true
		}
	} else {
		ok = true
	}

	if ok && info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// If Main doesn't carry the version (some build paths), try to find
		// this module in the dependencies and use that version.
		if (resolvedVersion == "dev" || resolvedVersion == "(devel)") && info.Deps != nil {
			for _, dep := range info.Deps {
				if dep.Path == "github.com/sarveshkapre/secretive-x" && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}

		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	// As a last resort, if no version was discovered but a commit was
	// provided via ldflags, show that to aid support.
	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}

	return resolvedVersion, resolvedCommit, resolvedDate
}
