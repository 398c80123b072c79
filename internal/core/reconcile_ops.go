// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"
	"os"

	"github.com/sarveshkapre/secretive-x/internal/drift"
	"github.com/sarveshkapre/secretive-x/internal/model"
)

// Scan reports every divergence between the manifest and the key directory.
// Read-only: it never mutates the manifest or the disk.
func (c *Core) Scan() (*model.DriftReport, error) {
	m, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	return drift.NewScanner(c.cfg.KeyDir).Scan(m)
}

// Reconcile runs a fresh scan and applies the selected remediations. The
// manifest is persisted once, and only when something actually changed. At
// least one remediation must be selected.
func (c *Core) Reconcile(opts drift.Options) (*model.DriftReport, *model.ReconcileResult, error) {
	if !opts.ImportUntracked && !opts.PruneMissing && !opts.PruneInvalid {
		return nil, nil, ErrNothingSelected
	}

	m, err := c.store.Load()
	if err != nil {
		return nil, nil, err
	}

	rec := &drift.Reconciler{
		KeyDir:           c.cfg.KeyDir,
		FallbackProvider: c.cfg.DefaultProvider,
		Now:              c.now,
	}
	next, report, result, err := rec.Apply(m, opts)
	if err != nil {
		return nil, nil, err
	}

	if result.Changed() {
		if err := c.store.Save(next); err != nil {
			return nil, nil, err
		}
		c.logAction("reconcile", fmt.Sprintf("imported=%d pruned_missing=%d pruned_invalid=%d",
			len(result.Imported), len(result.PrunedMissing), len(result.PrunedInvalid)))
	}
	return report, result, nil
}

// ResidentImport asks the hardware token for its resident keys, downloads
// them into the key directory and imports whatever pairs appeared. Pairs the
// token rewrote for already-tracked names simply stay tracked.
func (c *Core) ResidentImport(ctx context.Context) (*model.DriftReport, *model.ReconcileResult, error) {
	if _, err := c.tool.Check(); err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(c.cfg.KeyDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating key directory %s: %w", c.cfg.KeyDir, err)
	}

	files, err := c.tool.DownloadResident(ctx, c.cfg.KeyDir)
	if err != nil {
		return nil, nil, err
	}

	m, err := c.store.Load()
	if err != nil {
		return nil, nil, err
	}
	rec := &drift.Reconciler{
		KeyDir:           c.cfg.KeyDir,
		FallbackProvider: model.ProviderFIDO2,
		Now:              c.now,
	}
	next, report, result, err := rec.Apply(m, drift.Options{ImportUntracked: true})
	if err != nil {
		return nil, nil, err
	}

	// Everything ssh-keygen -K hands out is a resident key handle.
	for _, name := range result.Imported {
		if r, ok := next.Get(name); ok {
			r.Metadata[model.MetaResident] = "true"
			next.Upsert(r)
		}
	}

	if result.Changed() {
		if err := c.store.Save(next); err != nil {
			return nil, nil, err
		}
	}
	c.logAction("resident_import", fmt.Sprintf("files=%d imported=%d", len(files), len(result.Imported)))
	return report, result, nil
}
