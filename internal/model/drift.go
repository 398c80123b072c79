// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package model

// DriftReport classifies every divergence between the manifest and the key
// directory. All slices are lexically sorted and never nil, so scanning the
// same state twice yields byte-identical JSON.
type DriftReport struct {
	// Missing holds names of records whose private or public file is gone.
	Missing []string `json:"missing"`

	// InvalidPath holds names of records whose paths violate the key
	// directory boundary. Boundary violations win over missing files.
	InvalidPath []string `json:"invalid_path"`

	// Untracked holds on-disk pair stems that no trusted record references.
	Untracked []string `json:"untracked"`

	// Details maps an entry from the lists above to a human-readable reason.
	Details map[string]string `json:"details,omitempty"`
}

// NewDriftReport returns an empty report with all lists allocated.
func NewDriftReport() *DriftReport {
	return &DriftReport{
		Missing:     []string{},
		InvalidPath: []string{},
		Untracked:   []string{},
		Details:     map[string]string{},
	}
}

// Clean reports whether the scan found no drift at all.
func (r *DriftReport) Clean() bool {
	return len(r.Missing) == 0 && len(r.InvalidPath) == 0 && len(r.Untracked) == 0
}

// ReconcileResult lists the manifest mutations a reconcile run applied.
type ReconcileResult struct {
	Imported      []string `json:"imported"`
	PrunedMissing []string `json:"pruned_missing"`
	PrunedInvalid []string `json:"pruned_invalid"`

	// Skipped maps an untracked pair stem to the reason it was not imported
	// (invalid stem name, or a record with that name already exists).
	Skipped map[string]string `json:"skipped,omitempty"`
}

// NewReconcileResult returns an empty result with all lists allocated.
func NewReconcileResult() *ReconcileResult {
	return &ReconcileResult{
		Imported:      []string{},
		PrunedMissing: []string{},
		PrunedInvalid: []string{},
		Skipped:       map[string]string{},
	}
}

// Empty reports whether the run changed nothing and skipped nothing.
func (r *ReconcileResult) Empty() bool {
	return len(r.Imported) == 0 && len(r.PrunedMissing) == 0 &&
		len(r.PrunedInvalid) == 0 && len(r.Skipped) == 0
}

// Changed reports whether the run mutated the manifest.
func (r *ReconcileResult) Changed() bool {
	return len(r.Imported) > 0 || len(r.PrunedMissing) > 0 || len(r.PrunedInvalid) > 0
}
