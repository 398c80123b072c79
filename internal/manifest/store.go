// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

// package manifest persists the key inventory document. The manifest file is
// the source of truth: loads validate the full schema and refuse partially
// valid documents, saves go through a temp file and a rename so readers see
// the old document or the new one, never a torn write.
package manifest // import "github.com/sarveshkapre/secretive-x/internal/manifest"

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sarveshkapre/secretive-x/internal/model"
)

// Store reads and writes the manifest at a fixed path. Single-writer
// discipline is assumed; there is no cross-process locking.
type Store struct {
	path string
}

// NewStore returns a store bound to the given manifest path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the manifest file path.
func (s *Store) Path() string { return s.path }

// Load reads and validates the manifest. A missing file yields an empty
// manifest; anything else that is not a fully valid document fails with a
// *manifest.Error naming the failure class and the offending entry.
func (s *Store) Load() (*model.Manifest, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewManifest(), nil
		}
		return nil, &Error{Kind: KindRead, Path: s.path, Err: err}
	}
	return decode(s.path, data)
}

// Save atomically persists the manifest: marshal, write a temp file next to
// the target at 0600, then rename over it. The parent directory is created
// at 0700 if needed.
func (s *Store) Save(m *model.Manifest) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return &Error{Kind: KindWrite, Path: s.path, Err: err}
	}

	data, err := Encode(m)
	if err != nil {
		return &Error{Kind: KindWrite, Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".keys-*.tmp")
	if err != nil {
		return &Error{Kind: KindWrite, Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func(cause error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &Error{Kind: KindWrite, Path: s.path, Err: cause}
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &Error{Kind: KindWrite, Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &Error{Kind: KindWrite, Path: s.path, Err: err}
	}
	return nil
}

// Encode renders the canonical document bytes: two-space indent, lexically
// ordered keys, trailing newline. Records with nil metadata are normalized
// to an empty object so load→save round-trips are byte-stable.
func Encode(m *model.Manifest) ([]byte, error) {
	doc := m.Clone()
	doc.Version = model.ManifestVersion
	for name, rec := range doc.Keys {
		if rec.Metadata == nil {
			rec.Metadata = map[string]string{}
			doc.Keys[name] = rec
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Decode validates raw document bytes without touching the filesystem.
// Restore uses it to vet a backup before anything is persisted.
func Decode(data []byte) (*model.Manifest, error) {
	return decode("(stream)", data)
}

// recordShape mirrors model.KeyRecord with pointer fields so missing keys
// are distinguishable from zero values.
type recordShape struct {
	Name        *string           `json:"name"`
	Provider    *string           `json:"provider"`
	PrivatePath *string           `json:"private_path"`
	PublicPath  *string           `json:"public_path"`
	CreatedAt   *time.Time        `json:"created_at"`
	Metadata    map[string]string `json:"metadata"`
}

func decode(path string, data []byte) (*model.Manifest, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &Error{Kind: KindRoot, Path: path, Msg: "document root is not an object"}
		}
		return nil, &Error{Kind: KindParse, Path: path, Err: err}
	}
	if root == nil {
		return nil, &Error{Kind: KindRoot, Path: path, Msg: "document root is not an object"}
	}

	rawVersion, ok := root["version"]
	if !ok {
		return nil, &Error{Kind: KindVersion, Path: path, Msg: "missing version field"}
	}
	var version int
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return nil, &Error{Kind: KindVersion, Path: path, Msg: "version is not an integer"}
	}
	if version != model.ManifestVersion {
		return nil, &Error{Kind: KindVersion, Path: path, Msg: fmt.Sprintf("unsupported manifest version %d (want %d)", version, model.ManifestVersion)}
	}

	m := model.NewManifest()
	rawKeys, ok := root["keys"]
	if !ok {
		return m, nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(rawKeys, &entries); err != nil || entries == nil {
		// Unmarshal leaves the map nil for a literal null.
		return nil, &Error{Kind: KindKeys, Path: path, Msg: "keys field is not an object"}
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rec, err := decodeRecord(path, name, entries[name])
		if err != nil {
			return nil, err
		}
		m.Keys[name] = rec
	}
	return m, nil
}

func decodeRecord(path, name string, raw json.RawMessage) (model.KeyRecord, error) {
	var zero model.KeyRecord

	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return zero, &Error{Kind: KindRecord, Path: path, Entry: name, Msg: "entry is not an object"}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var rs recordShape
	if err := dec.Decode(&rs); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "" {
			return zero, &Error{Kind: KindRecord, Path: path, Entry: name, Msg: "entry is not an object"}
		}
		return zero, &Error{Kind: KindRecord, Path: path, Entry: name, Err: err}
	}

	required := []struct {
		field string
		ok    bool
	}{
		{"name", rs.Name != nil},
		{"provider", rs.Provider != nil},
		{"private_path", rs.PrivatePath != nil},
		{"public_path", rs.PublicPath != nil},
		{"created_at", rs.CreatedAt != nil},
	}
	for _, req := range required {
		if !req.ok {
			return zero, &Error{Kind: KindRecord, Path: path, Entry: name, Msg: fmt.Sprintf("missing required field %q", req.field)}
		}
	}
	if *rs.Name != name {
		return zero, &Error{Kind: KindRecord, Path: path, Entry: name, Msg: fmt.Sprintf("record name %q does not match its manifest key", *rs.Name)}
	}

	metadata := rs.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return model.KeyRecord{
		Name:        *rs.Name,
		Provider:    *rs.Provider,
		PrivatePath: *rs.PrivatePath,
		PublicPath:  *rs.PublicPath,
		CreatedAt:   *rs.CreatedAt,
		Metadata:    metadata,
	}, nil
}
