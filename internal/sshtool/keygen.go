// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package sshtool

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Keygen runs the real ssh-keygen binary. Stdin and stdout are inherited so
// the tool's own prompts (passphrase confirmation, FIDO2 PIN, touch) work
// exactly as they do on a plain shell; stderr is mirrored and captured for
// error reporting. No timeout is imposed: killing ssh-keygen mid-prompt can
// leave a hardware token waiting for a touch that will never register.
type Keygen struct {
	// Binary overrides the ssh-keygen executable name. Empty means PATH lookup.
	Binary string

	// SSHBinary overrides the ssh executable used for the version probe.
	SSHBinary string
}

// NewKeygen returns a tool that uses the binaries found on PATH.
func NewKeygen() *Keygen {
	return &Keygen{}
}

func (k *Keygen) binary() string {
	if k.Binary != "" {
		return k.Binary
	}
	return "ssh-keygen"
}

func (k *Keygen) sshBinary() string {
	if k.SSHBinary != "" {
		return k.SSHBinary
	}
	return "ssh"
}

// Check locates the ssh-keygen binary and returns its path.
func (k *Keygen) Check() (string, error) {
	path, err := exec.LookPath(k.binary())
	if err != nil {
		return "", ErrNotFound
	}
	return path, nil
}

// Version reports the installed OpenSSH version. ssh-keygen has no version
// flag, so this probes `ssh -V`, which prints its banner on stderr.
func (k *Keygen) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, k.sshBinary(), "-V")
	out, err := cmd.CombinedOutput()
	banner := strings.TrimSpace(string(out))
	if line, _, found := strings.Cut(banner, "\n"); found {
		banner = strings.TrimSpace(line)
	}
	if err != nil && banner == "" {
		return "", err
	}
	return banner, nil
}

// Generate runs ssh-keygen with the arguments from BuildArgs.
func (k *Keygen) Generate(ctx context.Context, req Request) error {
	return k.run(ctx, "", BuildArgs(req)...)
}

// DownloadResident runs `ssh-keygen -K` inside dir, which writes one file
// pair per resident key on the token. The returned names are whatever new
// regular files appeared, sorted.
func (k *Keygen) DownloadResident(ctx context.Context, dir string) ([]string, error) {
	before, err := snapshot(dir)
	if err != nil {
		return nil, err
	}
	if err := k.run(ctx, dir, "-K"); err != nil {
		return nil, err
	}
	after, err := snapshot(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for name := range after {
		if !before[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (k *Keygen) run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, k.binary(), args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	var stderr bytes.Buffer
	cmd.Stderr = io.MultiWriter(os.Stderr, &stderr)

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExecError{ExitCode: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func snapshot(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names[entry.Name()] = true
		}
	}
	return names, nil
}
