// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sarveshkapre/secretive-x/internal/model"
	"github.com/sarveshkapre/secretive-x/internal/sshtool"
	"github.com/sarveshkapre/secretive-x/internal/trust"
)

// CreateRequest describes one key pair to create. The provider and comment
// arrive already resolved; passphrase handling (prompting, --no-passphrase)
// is the caller's job.
type CreateRequest struct {
	Name        string
	Provider    string
	Comment     string
	Passphrase  string
	Resident    bool
	Application string
	Rounds      int
}

// Create generates a key pair via the external tool and tracks it in the
// manifest. Nothing is persisted if any step fails, so a tool failure never
// leaves an orphan record behind.
func (c *Core) Create(ctx context.Context, req CreateRequest) (model.KeyRecord, error) {
	var zero model.KeyRecord

	if err := ValidateKeyName(req.Name); err != nil {
		return zero, err
	}
	if err := ValidateProvider(req.Provider); err != nil {
		return zero, err
	}
	if err := c.policy.Validate(req.Name, req.Provider); err != nil {
		return zero, err
	}

	m, err := c.store.Load()
	if err != nil {
		return zero, err
	}
	if m.Has(req.Name) {
		return zero, fmt.Errorf("key %q is already tracked: %w", req.Name, ErrKeyExists)
	}

	privPath := filepath.Join(c.cfg.KeyDir, req.Name)
	pubPath := privPath + ".pub"
	for _, p := range []string{privPath, pubPath} {
		if _, err := os.Lstat(p); err == nil {
			return zero, fmt.Errorf("key files already exist for %q: %w", req.Name, ErrKeyExists)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return zero, fmt.Errorf("checking %s: %w", p, err)
		}
	}

	if _, err := c.tool.Check(); err != nil {
		return zero, err
	}
	if err := os.MkdirAll(c.cfg.KeyDir, 0o700); err != nil {
		return zero, fmt.Errorf("creating key directory %s: %w", c.cfg.KeyDir, err)
	}

	if err := c.tool.Generate(ctx, sshtool.Request{
		Name:        req.Name,
		Provider:    req.Provider,
		Comment:     req.Comment,
		KeyDir:      c.cfg.KeyDir,
		Passphrase:  req.Passphrase,
		Resident:    req.Resident,
		Application: req.Application,
		Rounds:      req.Rounds,
	}); err != nil {
		return zero, err
	}

	// The tool exited zero; make sure it actually left a pair behind before
	// anything is recorded.
	for _, p := range []string{privPath, pubPath} {
		if _, err := os.Lstat(p); err != nil {
			return zero, fmt.Errorf("ssh-keygen reported success but %s was not created: %w", p, err)
		}
	}

	rec := model.KeyRecord{
		Name:        req.Name,
		Provider:    req.Provider,
		PrivatePath: privPath,
		PublicPath:  pubPath,
		CreatedAt:   c.now().UTC().Truncate(time.Second),
		Metadata:    map[string]string{},
	}
	if req.Comment != "" {
		rec.Metadata[model.MetaComment] = req.Comment
	}
	if req.Resident {
		rec.Metadata[model.MetaResident] = "true"
	}
	if req.Application != "" {
		rec.Metadata[model.MetaApplication] = req.Application
	}

	m.Upsert(rec)
	if err := c.store.Save(m); err != nil {
		return zero, err
	}

	c.logAction("create_key", fmt.Sprintf("name=%s provider=%s", req.Name, req.Provider))
	return rec, nil
}

// Delete removes a tracked key pair: both files (tolerating already-absent
// ones) and the manifest record. Paths are trust-checked first; a violation
// refuses the whole operation and leaves manifest and disk untouched. The
// removed record is returned so callers can warn about resident keys.
func (c *Core) Delete(name string) (model.KeyRecord, error) {
	var zero model.KeyRecord

	m, err := c.store.Load()
	if err != nil {
		return zero, err
	}
	rec, ok := m.Get(name)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}

	privPath, err := trust.CheckPath(rec.PrivatePath, c.cfg.KeyDir)
	if err != nil {
		return zero, fmt.Errorf("refusing to delete %q: %w", name, err)
	}
	pubPath, err := trust.CheckPath(rec.PublicPath, c.cfg.KeyDir)
	if err != nil {
		return zero, fmt.Errorf("refusing to delete %q: %w", name, err)
	}

	for _, p := range []string{privPath, pubPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return zero, fmt.Errorf("removing %s: %w", p, err)
		}
	}

	m.Remove(name)
	if err := c.store.Save(m); err != nil {
		return zero, err
	}

	c.logAction("delete_key", fmt.Sprintf("name=%s provider=%s", rec.Name, rec.Provider))
	return rec, nil
}

// PublicKey returns the public key line of a tracked key. The path is
// trust-checked before the file is read.
func (c *Core) PublicKey(name string) (string, error) {
	m, err := c.store.Load()
	if err != nil {
		return "", err
	}
	rec, ok := m.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}

	pubPath, err := trust.CheckPath(rec.PublicPath, c.cfg.KeyDir)
	if err != nil {
		return "", fmt.Errorf("refusing to read public key of %q: %w", name, err)
	}
	data, err := os.ReadFile(pubPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", pubPath, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// List returns all tracked records in lexical name order.
func (c *Core) List() ([]model.KeyRecord, error) {
	m, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	return m.Records(), nil
}

// Get returns a single tracked record.
func (c *Core) Get(name string) (model.KeyRecord, error) {
	m, err := c.store.Load()
	if err != nil {
		return model.KeyRecord{}, err
	}
	rec, ok := m.Get(name)
	if !ok {
		return model.KeyRecord{}, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}
	return rec, nil
}

// SSHConfigSnippet renders an ssh_config Host block for a tracked key. The
// private path is trust-checked so the snippet never points outside the key
// directory. An empty host defaults to the key name.
func (c *Core) SSHConfigSnippet(name, host string) (string, error) {
	m, err := c.store.Load()
	if err != nil {
		return "", err
	}
	rec, ok := m.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}

	privPath, err := trust.CheckPath(rec.PrivatePath, c.cfg.KeyDir)
	if err != nil {
		return "", fmt.Errorf("refusing to reference %q: %w", name, err)
	}
	if host == "" {
		host = rec.Name
	}
	return fmt.Sprintf("Host %s\n  IdentityFile %s\n  IdentitiesOnly yes\n", host, privPath), nil
}
