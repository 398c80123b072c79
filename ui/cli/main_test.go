// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sarveshkapre/secretive-x/internal/logging"
	"github.com/sarveshkapre/secretive-x/internal/sshtool"
	"github.com/sarveshkapre/secretive-x/internal/testutil"
)

// cliTestEnv holds the isolated workspace a CLI test runs against.
type cliTestEnv struct {
	keyDir       string
	manifestPath string
	tool         *testutil.FakeTool
}

// setupTestWorkspace points every configuration source at a temp directory
// and swaps the ssh-keygen wrapper for an in-memory fake. Tests never touch
// the real user config, key directory or a hardware token.
func setupTestWorkspace(t *testing.T) *cliTestEnv {
	t.Helper()

	tmp := t.TempDir()
	keyDir := filepath.Join(tmp, "keys")
	if err := os.MkdirAll(keyDir, 0o700); err != nil {
		t.Fatalf("Failed to create key dir: %v", err)
	}
	manifestPath := filepath.Join(tmp, "keys.json")

	// Keep config discovery away from the host system.
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("AppData", filepath.Join(tmp, "appdata"))

	t.Setenv("SECRETIVE_X_KEY_DIR", keyDir)
	t.Setenv("SECRETIVE_X_MANIFEST_PATH", manifestPath)
	t.Setenv("SECRETIVE_X_DATABASE_TYPE", "none")
	t.Setenv("SECRETIVE_X_LANGUAGE", "en")

	tool := &testutil.FakeTool{}
	oldNewTool := newSSHTool
	newSSHTool = func() sshtool.Tool { return tool }
	t.Cleanup(func() { newSSHTool = oldNewTool })

	return &cliTestEnv{keyDir: keyDir, manifestPath: manifestPath, tool: tool}
}

// resetCommandState returns every flag on the package-level subcommands to
// its default value. The cobra commands are singletons, so a flag parsed by
// an earlier run() call would otherwise still be set when the next test
// parses its own arguments — unlike real invocations, which always start
// from a fresh process.
func resetCommandState(t *testing.T) {
	t.Helper()
	for _, c := range []*cobra.Command{
		createCmd, listCmd, pubkeyCmd, deleteCmd, sshConfigCmd,
		scanCmd, importCmd, pruneCmd, residentImportCmd,
		initCmd, infoCmd, exportCmd, backupCmd, restoreCmd, auditLogCmd,
		doctorCmd,
	} {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			if !f.Changed {
				return
			}
			if err := f.Value.Set(f.DefValue); err != nil {
				t.Fatalf("Failed to reset flag --%s: %v", f.Name, err)
			}
			f.Changed = false
		})
	}
}

// executeCommand runs the CLI with the given arguments and captures combined
// stdout and stderr plus the exit code. It can optionally take an *os.File
// to mock stdin for interactive commands.
func executeCommand(t *testing.T, stdin io.Reader, args ...string) (string, int) {
	t.Helper()

	resetCommandState(t)

	oldOut := os.Stdout
	oldErr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	os.Stderr = w
	logging.L.SetOutput(w)
	defer logging.L.SetOutput(os.Stderr)
	defer func() {
		os.Stdout = oldOut
		os.Stderr = oldErr
	}()

	if stdin != nil {
		oldIn := os.Stdin
		os.Stdin = stdin.(*os.File)
		defer func() { os.Stdin = oldIn }()
	}

	code := run(args)

	w.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("Failed to read command output: %v", err)
	}
	return buf.String(), code
}

// stdinFile returns an *os.File whose contents mock interactive input.
func stdinFile(t *testing.T, content string) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatalf("Failed to create stdin file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("Failed to write stdin file: %v", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Failed to rewind stdin file: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestHelpDoesNotCrash(t *testing.T) {
	setupTestWorkspace(t)

	output, code := executeCommand(t, nil)
	if code != 0 {
		t.Errorf("Expected exit code 0, got %d", code)
	}
	for _, name := range []string{"create", "list", "scan", "doctor"} {
		if !strings.Contains(output, name) {
			t.Errorf("Expected help to mention %q, got:\n%s", name, output)
		}
	}
}

func TestUnknownCommandFails(t *testing.T) {
	setupTestWorkspace(t)

	output, code := executeCommand(t, nil, "frobnicate")
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(output, "unknown command") {
		t.Errorf("Expected an unknown command error, got:\n%s", output)
	}
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	setupTestWorkspace(t)

	output, code := executeCommand(t, nil, "list", "--bogus")
	if code != 2 {
		t.Errorf("Expected exit code 2, got %d", code)
	}
	if !strings.Contains(output, "unknown flag") {
		t.Errorf("Expected an unknown flag error, got:\n%s", output)
	}
}

func TestVersionCommand(t *testing.T) {
	output, code := executeCommand(t, nil, "version")
	if code != 0 {
		t.Errorf("Expected exit code 0, got %d", code)
	}
	if !strings.Contains(output, "version:") {
		t.Errorf("Expected a version line, got:\n%s", output)
	}
	if !strings.Contains(output, "commit:") {
		t.Errorf("Expected a commit line, got:\n%s", output)
	}
}

func TestVersionCommandJSON(t *testing.T) {
	output, code := executeCommand(t, nil, "version", "--json")
	if code != 0 {
		t.Errorf("Expected exit code 0, got %d", code)
	}
	if !strings.Contains(output, `"version"`) {
		t.Errorf("Expected JSON version output, got:\n%s", output)
	}
}

func TestErrorsReportedAsJSON(t *testing.T) {
	setupTestWorkspace(t)

	output, code := executeCommand(t, nil, "pubkey", "ghost", "--json")
	if code != 2 {
		t.Errorf("Expected exit code 2, got %d", code)
	}
	if !strings.Contains(output, `{"error":"Key not found."}`) {
		t.Errorf("Expected a JSON error document, got:\n%s", output)
	}
}

func TestConfigFlagRejectsMissingFile(t *testing.T) {
	setupTestWorkspace(t)

	output, code := executeCommand(t, nil, "list", "--config", "/nonexistent/secretive-x.yaml")
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(output, "not found or is not accessible") {
		t.Errorf("Expected a config file error, got:\n%s", output)
	}
}
