// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/sarveshkapre/secretive-x/internal/config"
	"github.com/sarveshkapre/secretive-x/internal/manifest"
	"github.com/sarveshkapre/secretive-x/internal/model"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Export writes the tracked records to w, either as a JSON array or as CSV
// with a header row. Read-only.
func (c *Core) Export(w io.Writer, format string) error {
	records, err := c.List()
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"name", "provider", "private_path", "public_path", "created_at", "resident", "comment"}); err != nil {
			return err
		}
		for _, rec := range records {
			resident := "no"
			if rec.Resident() {
				resident = "yes"
			}
			row := []string{
				rec.Name,
				rec.Provider,
				rec.PrivatePath,
				rec.PublicPath,
				rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
				resident,
				rec.Comment(),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unknown export format %q (known: %s, %s)", format, FormatJSON, FormatCSV)
	}
}

// Backup streams the manifest document as zstd-compressed JSON to w. The
// payload is the canonical manifest encoding, so a backup of a clean
// workspace restores byte-identically.
func (c *Core) Backup(w io.Writer) error {
	m, err := c.store.Load()
	if err != nil {
		return err
	}
	data, err := manifest.Encode(m)
	if err != nil {
		return err
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("could not write backup stream: %w", err)
	}
	return zw.Close()
}

// Restore reads a zstd-compressed manifest backup from r and applies it.
// The whole document is decoded and validated before anything is persisted.
// With replace set the backup wins wholesale; otherwise only names absent
// from the current manifest are merged in. Returns the number of records
// the manifest gained.
func (c *Core) Restore(r io.Reader, replace bool) (int, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return 0, fmt.Errorf("could not read backup stream: %w", err)
	}
	incoming, err := manifest.Decode(data)
	if err != nil {
		return 0, err
	}

	if replace {
		if err := c.store.Save(incoming); err != nil {
			return 0, err
		}
		c.logAction("restore", fmt.Sprintf("mode=replace keys=%d", len(incoming.Keys)))
		return len(incoming.Keys), nil
	}

	current, err := c.store.Load()
	if err != nil {
		return 0, err
	}
	added := 0
	for _, name := range incoming.Names() {
		if current.Has(name) {
			continue
		}
		rec, _ := incoming.Get(name)
		current.Upsert(rec)
		added++
	}
	if added > 0 {
		if err := c.store.Save(current); err != nil {
			return 0, err
		}
	}
	c.logAction("restore", fmt.Sprintf("mode=merge added=%d", added))
	return added, nil
}

// InitResult reports what workspace initialization did.
type InitResult struct {
	KeyDir        string `json:"key_dir"`
	ManifestPath  string `json:"manifest_path"`
	ConfigPath    string `json:"config_path"`
	ConfigWritten bool   `json:"config_written"`
}

// InitWorkspace creates the key directory and the manifest parent, and
// writes the effective configuration to the user config path. An existing
// config file is left alone unless force is set.
func (c *Core) InitWorkspace(force bool) (InitResult, error) {
	res := InitResult{
		KeyDir:       c.cfg.KeyDir,
		ManifestPath: c.store.Path(),
	}

	if err := os.MkdirAll(c.cfg.KeyDir, 0o700); err != nil {
		return res, fmt.Errorf("creating key directory %s: %w", c.cfg.KeyDir, err)
	}
	if err := os.MkdirAll(filepath.Dir(c.store.Path()), 0o700); err != nil {
		return res, fmt.Errorf("creating manifest directory %s: %w", filepath.Dir(c.store.Path()), err)
	}

	path, err := config.GetConfigPath(false)
	if err != nil {
		return res, err
	}
	res.ConfigPath = path

	if _, err := os.Stat(path); err == nil && !force {
		c.logAction("init", "config=kept")
		return res, nil
	}
	if err := config.WriteConfigFile(&c.cfg, false); err != nil {
		return res, err
	}
	res.ConfigWritten = true

	c.logAction("init", "config=written")
	return res, nil
}

// AuditLog returns stored audit entries, newest first. A positive limit
// truncates the result.
func (c *Core) AuditLog(limit int) ([]model.AuditLogEntry, error) {
	if c.audit == nil {
		return []model.AuditLogEntry{}, nil
	}
	entries, err := c.audit.AllEntries()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
