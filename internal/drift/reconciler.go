// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package drift

import (
	"bufio"
	"os"
	"path/filepath"
	"time"

	"github.com/sarveshkapre/secretive-x/internal/model"
	"github.com/sarveshkapre/secretive-x/internal/sshkey"
)

// Options selects which remediations a reconcile run applies. Every action
// is opt-in; the zero value changes nothing.
type Options struct {
	// ImportUntracked adds a record for every untracked on-disk pair.
	ImportUntracked bool

	// PruneMissing removes records whose files are gone. Records only;
	// reconciliation never deletes files.
	PruneMissing bool

	// PruneInvalid removes records whose paths violate the trust boundary.
	PruneInvalid bool
}

// Reconciler turns drift into manifest mutations. It always works from a
// fresh scan and mutates a clone, so an error leaves the caller's manifest
// untouched and nothing is persisted halfway.
type Reconciler struct {
	KeyDir string

	// FallbackProvider tags imported pairs whose public key file cannot be
	// read or does not carry a recognized algorithm marker.
	FallbackProvider string

	// Now is the clock for created_at stamps. Nil means time.Now.
	Now func() time.Time
}

// Apply scans, applies the selected remediations to a copy of m and returns
// the updated copy together with the report the decisions were based on. The
// caller persists the returned manifest exactly once.
func (r *Reconciler) Apply(m *model.Manifest, opts Options) (*model.Manifest, *model.DriftReport, *model.ReconcileResult, error) {
	scanner := NewScanner(r.KeyDir)
	report, err := scanner.Scan(m)
	if err != nil {
		return nil, nil, nil, err
	}

	next := m.Clone()
	result := model.NewReconcileResult()

	if opts.ImportUntracked {
		for _, stem := range report.Untracked {
			if err := model.ValidateKeyName(stem); err != nil {
				result.Skipped[stem] = err.Error()
				continue
			}
			if next.Has(stem) {
				result.Skipped[stem] = "a record with this name already exists"
				continue
			}
			next.Upsert(r.importRecord(stem))
			result.Imported = append(result.Imported, stem)
		}
	}
	if opts.PruneMissing {
		for _, name := range report.Missing {
			next.Remove(name)
			result.PrunedMissing = append(result.PrunedMissing, name)
		}
	}
	if opts.PruneInvalid {
		for _, name := range report.InvalidPath {
			next.Remove(name)
			result.PrunedInvalid = append(result.PrunedInvalid, name)
		}
	}

	return next, report, result, nil
}

// importRecord builds the record for an untracked pair. Provider and comment
// come from the public key line when it parses; otherwise the configured
// fallback provider is used and no comment is stored.
func (r *Reconciler) importRecord(stem string) model.KeyRecord {
	rec := model.KeyRecord{
		Name:        stem,
		Provider:    r.FallbackProvider,
		PrivatePath: filepath.Join(r.KeyDir, stem),
		PublicPath:  filepath.Join(r.KeyDir, stem+".pub"),
		CreatedAt:   r.now().UTC().Truncate(time.Second),
		Metadata:    map[string]string{},
	}

	line, err := firstLine(rec.PublicPath)
	if err != nil {
		return rec
	}
	provider, comment := sshkey.InferProvider(line)
	if provider != "" {
		rec.Provider = provider
	}
	if comment != "" {
		rec.Metadata[model.MetaComment] = comment
	}
	return rec
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	if s.Scan() {
		return s.Text(), nil
	}
	return "", s.Err()
}
