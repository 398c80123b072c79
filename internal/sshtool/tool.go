// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

// package sshtool wraps the external ssh-keygen binary behind a narrow
// interface. The orchestrator never builds key material itself; it asks the
// tool and inspects the filesystem afterwards. Tests substitute a fake, no
// test ever invokes the real binary.
package sshtool // import "github.com/sarveshkapre/secretive-x/internal/sshtool"

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sarveshkapre/secretive-x/internal/model"
)

// DefaultRounds is the KDF rounds applied to software keys when the request
// does not say otherwise.
const DefaultRounds = 64

// ErrNotFound means the ssh-keygen binary is not on PATH. Operations check
// for it up front so no half-done generation ever happens.
var ErrNotFound = errors.New("ssh-keygen not found in PATH")

// ExecError carries the tool's own diagnostics when it exits non-zero. The
// stderr text is passed through verbatim; ssh-keygen's messages are the most
// useful thing we can show.
type ExecError struct {
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ssh-keygen exited with status %d", e.ExitCode)
	}
	return fmt.Sprintf("ssh-keygen exited with status %d: %s", e.ExitCode, e.Stderr)
}

// Request describes one key pair to generate.
type Request struct {
	Name        string
	Provider    string
	Comment     string
	KeyDir      string
	Passphrase  string
	Resident    bool
	Application string
	Rounds      int
}

// Tool is the surface the orchestrator needs from ssh-keygen.
type Tool interface {
	// Check locates the binary. It is called before any mutating operation.
	Check() (string, error)

	// Version probes the installed OpenSSH version for diagnostics.
	Version(ctx context.Context) (string, error)

	// Generate produces the key pair described by the request. Prompts from
	// the tool (passphrase confirmation, PIN, touch) reach the user directly.
	Generate(ctx context.Context, req Request) error

	// DownloadResident asks the token for its resident keys and writes them
	// into dir. It returns the names of the files that appeared.
	DownloadResident(ctx context.Context, dir string) ([]string, error)
}

// BuildArgs translates a request into ssh-keygen arguments. Pure function;
// the exec layer adds nothing else, so this is the complete command line.
func BuildArgs(req Request) []string {
	var args []string
	switch req.Provider {
	case model.ProviderFIDO2:
		args = append(args, "-t", "ed25519-sk")
		if req.Resident {
			args = append(args, "-O", "resident")
		}
		if req.Application != "" {
			app := req.Application
			if !strings.HasPrefix(app, "ssh:") {
				app = "ssh:" + app
			}
			args = append(args, "-O", "application="+app)
		}
	default:
		rounds := req.Rounds
		if rounds <= 0 {
			rounds = DefaultRounds
		}
		args = append(args, "-t", "ed25519", "-a", strconv.Itoa(rounds), "-N", req.Passphrase)
	}
	if req.Comment != "" {
		args = append(args, "-C", req.Comment)
	}
	return append(args, "-f", filepath.Join(req.KeyDir, req.Name))
}
