// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/sarveshkapre/secretive-x/internal/model"
)

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("Failed to create zstd writer: %v", err)
	}
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("Failed to compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zstd writer: %v", err)
	}
	return buf.Bytes()
}

func TestExportJSON(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreate(t, "deploy", model.ProviderSoftware)

	var buf bytes.Buffer
	if err := env.core.Export(&buf, FormatJSON); err != nil {
		t.Fatalf("Export() returned error: %v", err)
	}

	var records []model.KeyRecord
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("Export produced invalid JSON: %v", err)
	}
	if len(records) != 1 || records[0].Name != "deploy" {
		t.Errorf("Unexpected export payload: %+v", records)
	}
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreate(t, "deploy", model.ProviderSoftware)
	env.mustCreate(t, "yubi", model.ProviderFIDO2)

	var buf bytes.Buffer
	if err := env.core.Export(&buf, FormatCSV); err != nil {
		t.Fatalf("Export() returned error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Export produced invalid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected a header and 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "name" || rows[1][0] != "deploy" || rows[2][0] != "yubi" {
		t.Errorf("Unexpected CSV rows: %v", rows)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	env := newTestEnv(t)

	err := env.core.Export(&bytes.Buffer{}, "xml")
	if err == nil || !strings.Contains(err.Error(), "unknown export format") {
		t.Fatalf("Expected an unknown format error, got %v", err)
	}
}

func TestBackupRestoreMerge(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreate(t, "deploy", model.ProviderSoftware)
	env.mustCreate(t, "yubi", model.ProviderFIDO2)

	var backup bytes.Buffer
	if err := env.core.Backup(&backup); err != nil {
		t.Fatalf("Backup() returned error: %v", err)
	}

	// Simulate a new machine that already tracks one of the two keys.
	other := newTestEnv(t)
	other.mustCreate(t, "deploy", model.ProviderSoftware)

	added, err := other.core.Restore(bytes.NewReader(backup.Bytes()), false)
	if err != nil {
		t.Fatalf("Restore() returned error: %v", err)
	}
	if added != 1 {
		t.Errorf("Expected 1 merged record, got %d", added)
	}

	m := other.loadManifest(t)
	if !m.Has("deploy") || !m.Has("yubi") {
		t.Errorf("Expected both records after the merge, got %v", m.Names())
	}
	// The pre-existing record wins over the backup's copy.
	rec, _ := m.Get("deploy")
	if rec.PrivatePath != filepath.Join(other.keyDir, "deploy") {
		t.Errorf("Expected the local record to survive the merge, got %q", rec.PrivatePath)
	}
}

func TestRestoreReplace(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreate(t, "deploy", model.ProviderSoftware)

	var backup bytes.Buffer
	if err := env.core.Backup(&backup); err != nil {
		t.Fatalf("Backup() returned error: %v", err)
	}

	other := newTestEnv(t)
	other.mustCreate(t, "doomed", model.ProviderSoftware)

	n, err := other.core.Restore(bytes.NewReader(backup.Bytes()), true)
	if err != nil {
		t.Fatalf("Restore() returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 restored record, got %d", n)
	}

	m := other.loadManifest(t)
	if m.Has("doomed") {
		t.Error("Expected a full restore to drop records not in the backup")
	}
	if !m.Has("deploy") {
		t.Error("Expected the backup's record to be present")
	}
}

func TestRestoreRejectsCorruptStream(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreate(t, "deploy", model.ProviderSoftware)

	_, err := env.core.Restore(strings.NewReader("this is not zstd"), true)
	if err == nil {
		t.Fatal("Expected Restore to fail on a corrupt stream")
	}
	if !env.loadManifest(t).Has("deploy") {
		t.Error("Expected the manifest to be untouched after a failed restore")
	}
}

func TestRestoreValidatesDocumentBeforePersisting(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreate(t, "deploy", model.ProviderSoftware)

	bogus := compress(t, []byte(`{"version": 99, "keys": {}}`))
	_, err := env.core.Restore(bytes.NewReader(bogus), true)
	if err == nil || !strings.Contains(err.Error(), "version") {
		t.Fatalf("Expected a version error, got %v", err)
	}
	if !env.loadManifest(t).Has("deploy") {
		t.Error("Expected the manifest to be untouched after a rejected restore")
	}
}

func TestInitWorkspace(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("AppData", configHome)

	env := newTestEnv(t)
	keyDir := filepath.Join(t.TempDir(), "fresh-keys")
	env.core.cfg.KeyDir = keyDir

	res, err := env.core.InitWorkspace(false)
	if err != nil {
		t.Fatalf("InitWorkspace() returned error: %v", err)
	}
	if !res.ConfigWritten {
		t.Error("Expected a config file to be written on first init")
	}
	if info, err := os.Stat(keyDir); err != nil || !info.IsDir() {
		t.Errorf("Expected the key directory to exist: %v", err)
	}
	if _, err := os.Stat(res.ConfigPath); err != nil {
		t.Errorf("Expected the config file to exist: %v", err)
	}

	// A second init must not clobber the existing config.
	res, err = env.core.InitWorkspace(false)
	if err != nil {
		t.Fatalf("InitWorkspace() returned error: %v", err)
	}
	if res.ConfigWritten {
		t.Error("Expected the existing config to be kept")
	}

	res, err = env.core.InitWorkspace(true)
	if err != nil {
		t.Fatalf("InitWorkspace(force) returned error: %v", err)
	}
	if !res.ConfigWritten {
		t.Error("Expected force to rewrite the config")
	}
}

func TestAuditLogLimit(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreate(t, "one", model.ProviderSoftware)
	env.mustCreate(t, "two", model.ProviderSoftware)
	env.mustCreate(t, "three", model.ProviderSoftware)

	entries, err := env.core.AuditLog(0)
	if err != nil {
		t.Fatalf("AuditLog() returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	// Newest first.
	if !strings.Contains(entries[0].Details, "name=three") {
		t.Errorf("Expected the newest entry first, got %+v", entries[0])
	}

	entries, err = env.core.AuditLog(2)
	if err != nil {
		t.Fatalf("AuditLog() returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected the limit to apply, got %d entries", len(entries))
	}
}
