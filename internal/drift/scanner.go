// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

// package drift compares the manifest against the key directory. The scanner
// produces a read-only report of the differences; the reconciler applies
// explicitly requested remediations to an in-memory manifest copy.
package drift // import "github.com/sarveshkapre/secretive-x/internal/drift"

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sarveshkapre/secretive-x/internal/model"
	"github.com/sarveshkapre/secretive-x/internal/trust"
)

// Error reports an I/O failure encountered while scanning. A scan is
// all-or-nothing; when it cannot inspect a path it returns this error and no
// partial report.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("drift scan failed at %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Scanner computes drift between a manifest and the key directory.
type Scanner struct {
	KeyDir string
}

// NewScanner returns a scanner rooted at keyDir.
func NewScanner(keyDir string) *Scanner {
	return &Scanner{KeyDir: keyDir}
}

// Scan classifies every manifest record and every on-disk key pair. Records
// whose paths break the trust boundary land in InvalidPath, records whose
// files are gone land in Missing (a trust violation wins when both apply),
// and on-disk pairs no trusted record points at land in Untracked. The same
// inputs always produce the same report; neither manifest nor disk is
// mutated.
func (s *Scanner) Scan(m *model.Manifest) (*model.DriftReport, error) {
	report := model.NewDriftReport()

	// Private paths of records that passed the boundary check. Pairs these
	// point at are tracked; everything else in the directory is not.
	claimed := make(map[string]bool)

	for _, name := range m.Names() {
		rec := m.Keys[name]

		privPath, violation, err := s.checkPath(rec.PrivatePath)
		if err != nil {
			return nil, err
		}
		var pubPath string
		if violation == nil {
			pubPath, violation, err = s.checkPath(rec.PublicPath)
			if err != nil {
				return nil, err
			}
		}
		if violation != nil {
			report.InvalidPath = append(report.InvalidPath, name)
			report.Details[name] = violation.Error()
			continue
		}

		claimed[privPath] = true

		missing := false
		for _, p := range []string{privPath, pubPath} {
			if _, err := os.Stat(p); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					missing = true
					continue
				}
				return nil, &Error{Path: p, Err: err}
			}
		}
		if missing {
			report.Missing = append(report.Missing, name)
		}
	}

	stems, err := s.pairs()
	if err != nil {
		return nil, err
	}
	for _, stem := range stems {
		if !claimed[filepath.Join(s.KeyDir, stem)] {
			report.Untracked = append(report.Untracked, stem)
		}
	}

	return report, nil
}

// checkPath runs the boundary check on one manifest path. It distinguishes a
// trust violation, which classifies the record, from an inspection failure,
// which aborts the scan.
func (s *Scanner) checkPath(path string) (string, *trust.Error, error) {
	resolved, err := trust.CheckPath(path, s.KeyDir)
	if err == nil {
		return resolved, nil, nil
	}
	var terr *trust.Error
	if errors.As(err, &terr) {
		return "", terr, nil
	}
	return "", nil, &Error{Path: trust.Resolve(path, s.KeyDir), Err: err}
}

// pairs enumerates on-disk key pairs: regular files stem and stem.pub
// directly inside the key directory. Dotfiles are skipped, which also keeps
// the store's temp files out of scans. A key directory that does not exist
// yet simply has no pairs.
func (s *Scanner) pairs() ([]string, error) {
	entries, err := os.ReadDir(s.KeyDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &Error{Path: s.KeyDir, Err: err}
	}

	regular := make(map[string]bool, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !entry.Type().IsRegular() {
			continue
		}
		regular[name] = true
	}

	var stems []string
	for name := range regular {
		stem, ok := strings.CutSuffix(name, ".pub")
		if !ok || stem == "" {
			continue
		}
		if regular[stem] {
			stems = append(stems, stem)
		}
	}
	sort.Strings(stems)
	return stems, nil
}
