// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core orchestrates the key inventory operations the UI layers call.
// Every operation loads the manifest fresh, applies its sequence, persists at
// most once and records an audit entry on success. Key material never passes
// through this package as anything but file paths.
package core // import "github.com/sarveshkapre/secretive-x/internal/core"

import (
	"time"

	"github.com/sarveshkapre/secretive-x/internal/audit"
	"github.com/sarveshkapre/secretive-x/internal/config"
	"github.com/sarveshkapre/secretive-x/internal/logging"
	"github.com/sarveshkapre/secretive-x/internal/manifest"
	"github.com/sarveshkapre/secretive-x/internal/policy"
	"github.com/sarveshkapre/secretive-x/internal/sshtool"
)

// Core wires the engine together: effective configuration, manifest store,
// the external ssh-keygen collaborator, the audit trail and the compiled
// creation policy.
type Core struct {
	cfg    config.Config
	store  *manifest.Store
	tool   sshtool.Tool
	audit  audit.Store
	policy policy.Policy

	// now is the clock for created_at stamps; tests pin it.
	now func() time.Time
}

// New builds a Core from a normalized, validated configuration. The policy
// is compiled once here; Validate has already vetted the pattern, so a
// failure means the config was never validated.
func New(cfg config.Config, store *manifest.Store, tool sshtool.Tool, auditStore audit.Store) (*Core, error) {
	pol, err := cfg.CompilePolicy()
	if err != nil {
		return nil, err
	}
	return &Core{
		cfg:    cfg,
		store:  store,
		tool:   tool,
		audit:  auditStore,
		policy: pol,
		now:    time.Now,
	}, nil
}

// Config returns the effective configuration the core was built with.
func (c *Core) Config() config.Config { return c.cfg }

// ManifestPath returns the path of the manifest file in use.
func (c *Core) ManifestPath() string { return c.store.Path() }

// logAction records an audit entry. The audit trail is best-effort: a write
// failure is logged and swallowed so it never undoes a completed operation.
func (c *Core) logAction(action, details string) {
	if c.audit == nil {
		return
	}
	if err := c.audit.LogAction(action, details); err != nil {
		logging.Warnf("audit log write failed: %v", err)
	}
}
