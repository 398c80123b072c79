// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core data structures for secretive-x: key
// records, the manifest document, drift reports and reconcile results.
package model // import "github.com/sarveshkapre/secretive-x/internal/model"

import (
	"sort"
	"time"
)

// ManifestVersion is the only manifest document version this build reads and writes.
const ManifestVersion = 1

// Provider tags known to the CLI. The engine treats providers as opaque
// strings; these constants only matter for flag defaults and inference.
const (
	ProviderFIDO2    = "fido2"
	ProviderSoftware = "software"
)

// KnownProviders lists the provider tags the CLI understands.
var KnownProviders = []string{ProviderFIDO2, ProviderSoftware}

// Well-known metadata keys. Metadata is opaque to the engine and round-trips
// verbatim; only the CLI reads and writes these entries.
const (
	MetaComment     = "comment"
	MetaResident    = "resident"
	MetaApplication = "application"
)

// KeyRecord describes one tracked key pair.
type KeyRecord struct {
	Name        string            `json:"name"`
	Provider    string            `json:"provider"`
	PrivatePath string            `json:"private_path"`
	PublicPath  string            `json:"public_path"`
	CreatedAt   time.Time         `json:"created_at"`
	Metadata    map[string]string `json:"metadata"`
}

// Clone returns a deep copy of the record.
func (r KeyRecord) Clone() KeyRecord {
	out := r
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Resident reports whether the record's metadata marks it as a resident
// (on-token) key.
func (r KeyRecord) Resident() bool {
	return r.Metadata[MetaResident] == "true"
}

// Comment returns the stored comment, or the empty string.
func (r KeyRecord) Comment() string {
	return r.Metadata[MetaComment]
}

// Manifest is the in-memory form of the manifest document. Keys is never nil
// on a manifest obtained from NewManifest or the store. Iteration must go
// through Names so output stays deterministic.
type Manifest struct {
	Version int                  `json:"version"`
	Keys    map[string]KeyRecord `json:"keys"`
}

// NewManifest returns an empty manifest at the current document version.
func NewManifest() *Manifest {
	return &Manifest{Version: ManifestVersion, Keys: map[string]KeyRecord{}}
}

// Names returns all record names in lexical order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Keys))
	for name := range m.Keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get looks up a record by name.
func (m *Manifest) Get(name string) (KeyRecord, bool) {
	r, ok := m.Keys[name]
	return r, ok
}

// Has reports whether a record with the given name exists.
func (m *Manifest) Has(name string) bool {
	_, ok := m.Keys[name]
	return ok
}

// Upsert inserts or replaces a record under its own name.
func (m *Manifest) Upsert(r KeyRecord) {
	m.Keys[r.Name] = r
}

// Remove deletes a record by name and reports whether it was present.
func (m *Manifest) Remove(name string) bool {
	if _, ok := m.Keys[name]; !ok {
		return false
	}
	delete(m.Keys, name)
	return true
}

// Clone returns a deep copy. The reconciler mutates a clone so a failed run
// never leaves a half-updated manifest behind.
func (m *Manifest) Clone() *Manifest {
	out := &Manifest{Version: m.Version, Keys: make(map[string]KeyRecord, len(m.Keys))}
	for name, rec := range m.Keys {
		out.Keys[name] = rec.Clone()
	}
	return out
}

// Records returns all records in lexical name order.
func (m *Manifest) Records() []KeyRecord {
	out := make([]KeyRecord, 0, len(m.Keys))
	for _, name := range m.Names() {
		out = append(out, m.Keys[name])
	}
	return out
}
