// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"testing"
	"time"
)

func TestManifestNamesSorted(t *testing.T) {
	m := NewManifest()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		m.Upsert(KeyRecord{Name: name, Provider: ProviderSoftware})
	}

	got := m.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d names, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected name %q at index %d, got %q", want[i], i, got[i])
		}
	}
}

func TestManifestUpsertRemove(t *testing.T) {
	m := NewManifest()
	rec := KeyRecord{Name: "alice", Provider: ProviderFIDO2, CreatedAt: time.Now().UTC()}
	m.Upsert(rec)

	if !m.Has("alice") {
		t.Fatal("Expected manifest to contain 'alice' after upsert")
	}
	got, ok := m.Get("alice")
	if !ok || got.Provider != ProviderFIDO2 {
		t.Errorf("Expected provider %q, got %q (ok=%v)", ProviderFIDO2, got.Provider, ok)
	}

	if !m.Remove("alice") {
		t.Error("Expected Remove to report true for an existing record")
	}
	if m.Remove("alice") {
		t.Error("Expected Remove to report false for a missing record")
	}
	if m.Has("alice") {
		t.Error("Expected 'alice' to be gone after removal")
	}
}

func TestManifestCloneIsIndependent(t *testing.T) {
	m := NewManifest()
	m.Upsert(KeyRecord{
		Name:     "alice",
		Provider: ProviderSoftware,
		Metadata: map[string]string{MetaComment: "alice@secretive-x"},
	})

	c := m.Clone()
	c.Remove("alice")
	rec := m.Keys["alice"]
	rec.Metadata[MetaComment] = "tampered"

	if !m.Has("alice") {
		t.Error("Expected original manifest to keep 'alice' after clone mutation")
	}
	if got := c.Keys["alice"].Metadata[MetaComment]; got == "tampered" {
		t.Error("Expected clone metadata to be independent of the original")
	}
}

func TestKeyRecordHelpers(t *testing.T) {
	tests := []struct {
		name         string
		metadata     map[string]string
		wantResident bool
		wantComment  string
	}{
		{"nil metadata", nil, false, ""},
		{"resident true", map[string]string{MetaResident: "true"}, true, ""},
		{"resident false", map[string]string{MetaResident: "false"}, false, ""},
		{"comment set", map[string]string{MetaComment: "work laptop"}, false, "work laptop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := KeyRecord{Name: "k", Metadata: tt.metadata}
			if got := r.Resident(); got != tt.wantResident {
				t.Errorf("Expected Resident()=%v, got %v", tt.wantResident, got)
			}
			if got := r.Comment(); got != tt.wantComment {
				t.Errorf("Expected Comment()=%q, got %q", tt.wantComment, got)
			}
		})
	}
}

func TestDriftReportClean(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DriftReport)
		want   bool
	}{
		{"empty", func(r *DriftReport) {}, true},
		{"missing entry", func(r *DriftReport) { r.Missing = append(r.Missing, "a") }, false},
		{"invalid entry", func(r *DriftReport) { r.InvalidPath = append(r.InvalidPath, "b") }, false},
		{"untracked entry", func(r *DriftReport) { r.Untracked = append(r.Untracked, "c") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewDriftReport()
			tt.mutate(r)
			if got := r.Clean(); got != tt.want {
				t.Errorf("Expected Clean()=%v, got %v", tt.want, got)
			}
		})
	}
}

func TestReconcileResultFlags(t *testing.T) {
	r := NewReconcileResult()
	if !r.Empty() || r.Changed() {
		t.Fatalf("Expected fresh result to be empty and unchanged")
	}

	r.Skipped["stray"] = "name already tracked"
	if r.Empty() {
		t.Error("Expected result with skips to not be Empty")
	}
	if r.Changed() {
		t.Error("Expected skips alone to leave Changed false")
	}

	r.Imported = append(r.Imported, "stray2")
	if !r.Changed() {
		t.Error("Expected imports to mark the result as changed")
	}
}
