// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sarveshkapre/secretive-x/internal/drift"
	"github.com/sarveshkapre/secretive-x/internal/model"
	"github.com/sarveshkapre/secretive-x/internal/sshtool"
	"github.com/sarveshkapre/secretive-x/internal/testutil"
)

func TestScanCleanWorkspace(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreate(t, "deploy", model.ProviderSoftware)

	report, err := env.core.Scan()
	if err != nil {
		t.Fatalf("Scan() returned error: %v", err)
	}
	if !report.Clean() {
		t.Errorf("Expected a clean report, got %+v", report)
	}
}

// A tracked private key vanishes out-of-band: the scan pinpoints it, pruning
// removes only its record, and the workspace is clean again.
func TestMissingKeyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreate(t, "gone", model.ProviderSoftware)
	keeper := env.mustCreate(t, "keeper", model.ProviderSoftware)

	if err := os.Remove(filepath.Join(env.keyDir, "gone")); err != nil {
		t.Fatalf("Failed to remove private file: %v", err)
	}

	report, err := env.core.Scan()
	if err != nil {
		t.Fatalf("Scan() returned error: %v", err)
	}
	if !reflect.DeepEqual(report.Missing, []string{"gone"}) {
		t.Errorf("Expected missing [gone], got %v", report.Missing)
	}
	if len(report.InvalidPath) != 0 || len(report.Untracked) != 0 {
		t.Errorf("Expected no other drift, got %+v", report)
	}

	_, result, err := env.core.Reconcile(drift.Options{PruneMissing: true})
	if err != nil {
		t.Fatalf("Reconcile() returned error: %v", err)
	}
	if !reflect.DeepEqual(result.PrunedMissing, []string{"gone"}) {
		t.Errorf("Expected pruned_missing [gone], got %v", result.PrunedMissing)
	}

	m := env.loadManifest(t)
	if m.Has("gone") {
		t.Error("Expected the missing record to be pruned")
	}
	if !m.Has("keeper") {
		t.Error("Expected the healthy record to survive")
	}
	for _, p := range []string{keeper.PrivatePath, keeper.PublicPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Expected %s to be untouched: %v", p, err)
		}
	}

	report, err = env.core.Scan()
	if err != nil {
		t.Fatalf("Scan() returned error: %v", err)
	}
	if !report.Clean() {
		t.Errorf("Expected a clean report after pruning, got %+v", report)
	}
}

// A foreign pair appears in the key directory: the scan reports its stem,
// importing adopts it with the provider inferred from the public key, and
// the workspace is clean again.
func TestUntrackedPairLifecycle(t *testing.T) {
	env := newTestEnv(t)
	testutil.WriteKeyPair(t, env.keyDir, "bob", testutil.PublicKeyLine(model.ProviderFIDO2, "bob@laptop"))

	report, err := env.core.Scan()
	if err != nil {
		t.Fatalf("Scan() returned error: %v", err)
	}
	if !reflect.DeepEqual(report.Untracked, []string{"bob"}) {
		t.Errorf("Expected untracked [bob], got %v", report.Untracked)
	}

	_, result, err := env.core.Reconcile(drift.Options{ImportUntracked: true})
	if err != nil {
		t.Fatalf("Reconcile() returned error: %v", err)
	}
	if !reflect.DeepEqual(result.Imported, []string{"bob"}) {
		t.Errorf("Expected imported [bob], got %v", result.Imported)
	}

	m := env.loadManifest(t)
	rec, ok := m.Get("bob")
	if !ok {
		t.Fatal("Expected an imported record for bob")
	}
	if rec.Provider != model.ProviderFIDO2 {
		t.Errorf("Expected inferred provider fido2, got %q", rec.Provider)
	}
	if rec.Comment() != "bob@laptop" {
		t.Errorf("Expected the comment from the public key, got %q", rec.Comment())
	}

	report, err = env.core.Scan()
	if err != nil {
		t.Fatalf("Scan() returned error: %v", err)
	}
	if !report.Clean() {
		t.Errorf("Expected a clean report after import, got %+v", report)
	}
	if got := env.audit.Actions(); len(got) != 1 || got[0] != "reconcile" {
		t.Errorf("Expected a reconcile audit entry, got %v", got)
	}
}

// A manifest record escapes the key directory: the scan flags it and pruning
// drops the record without ever touching the pointed-to file.
func TestInvalidPathLifecycle(t *testing.T) {
	env := newTestEnv(t)

	outside := filepath.Join(t.TempDir(), "passwd")
	if err := os.WriteFile(outside, []byte("root:x:0:0\n"), 0o644); err != nil {
		t.Fatalf("Failed to write outside file: %v", err)
	}

	m, _ := env.core.store.Load()
	m.Upsert(model.KeyRecord{
		Name:        "evil",
		Provider:    model.ProviderSoftware,
		PrivatePath: outside,
		PublicPath:  outside + ".pub",
		CreatedAt:   testNow,
		Metadata:    map[string]string{},
	})
	if err := env.core.store.Save(m); err != nil {
		t.Fatalf("Failed to seed manifest: %v", err)
	}

	report, err := env.core.Scan()
	if err != nil {
		t.Fatalf("Scan() returned error: %v", err)
	}
	if !reflect.DeepEqual(report.InvalidPath, []string{"evil"}) {
		t.Errorf("Expected invalid_path [evil], got %v", report.InvalidPath)
	}
	if report.Details["evil"] == "" {
		t.Error("Expected a reason detail for the invalid record")
	}

	_, result, err := env.core.Reconcile(drift.Options{PruneInvalid: true})
	if err != nil {
		t.Fatalf("Reconcile() returned error: %v", err)
	}
	if !reflect.DeepEqual(result.PrunedInvalid, []string{"evil"}) {
		t.Errorf("Expected pruned_invalid [evil], got %v", result.PrunedInvalid)
	}
	if env.loadManifest(t).Has("evil") {
		t.Error("Expected the invalid record to be pruned")
	}
	if _, err := os.Stat(outside); err != nil {
		t.Errorf("Expected the outside file to be untouched: %v", err)
	}
}

func TestReconcileRequiresSelection(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.core.Reconcile(drift.Options{})
	if !errors.Is(err, ErrNothingSelected) {
		t.Fatalf("Expected ErrNothingSelected, got %v", err)
	}
}

func TestReconcileCleanWorkspaceChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.mustCreate(t, "deploy", model.ProviderSoftware)

	report, result, err := env.core.Reconcile(drift.Options{ImportUntracked: true, PruneMissing: true, PruneInvalid: true})
	if err != nil {
		t.Fatalf("Reconcile() returned error: %v", err)
	}
	if !report.Clean() || !result.Empty() {
		t.Errorf("Expected a no-op run, got report %+v result %+v", report, result)
	}

	// create_key only; a no-op reconcile writes no audit entry.
	if got := env.audit.Actions(); !reflect.DeepEqual(got, []string{"create_key"}) {
		t.Errorf("Unexpected audit trail %v", got)
	}
}

func TestResidentImport(t *testing.T) {
	env := newTestEnv(t)
	env.tool.ResidentPairs = map[string]string{
		"id_ed25519_sk_rk_yubi": testutil.PublicKeyLine(model.ProviderFIDO2, "yubi@token"),
	}

	_, result, err := env.core.ResidentImport(context.Background())
	if err != nil {
		t.Fatalf("ResidentImport() returned error: %v", err)
	}
	if !reflect.DeepEqual(result.Imported, []string{"id_ed25519_sk_rk_yubi"}) {
		t.Errorf("Expected one imported pair, got %+v", result)
	}
	if len(env.tool.Downloads) != 1 || env.tool.Downloads[0] != env.keyDir {
		t.Errorf("Expected a download into the key directory, got %v", env.tool.Downloads)
	}

	rec, ok := env.loadManifest(t).Get("id_ed25519_sk_rk_yubi")
	if !ok {
		t.Fatal("Expected the downloaded pair to be tracked")
	}
	if rec.Provider != model.ProviderFIDO2 {
		t.Errorf("Expected provider fido2, got %q", rec.Provider)
	}
	if !rec.Resident() {
		t.Error("Expected the imported record to be marked resident")
	}
	if got := env.audit.Actions(); len(got) != 1 || got[0] != "resident_import" {
		t.Errorf("Expected a resident_import audit entry, got %v", got)
	}
}

func TestResidentImportMissingTool(t *testing.T) {
	env := newTestEnv(t)
	env.tool.CheckErr = sshtool.ErrNotFound

	_, _, err := env.core.ResidentImport(context.Background())
	if !errors.Is(err, sshtool.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if len(env.tool.Downloads) != 0 {
		t.Error("Expected no download attempt without the tool")
	}
}

func TestResidentImportDeviceFailure(t *testing.T) {
	env := newTestEnv(t)
	env.tool.DownloadErr = &sshtool.ExecError{ExitCode: 1, Stderr: "No FIDO authenticator found"}

	_, _, err := env.core.ResidentImport(context.Background())
	var execErr *sshtool.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Expected ExecError, got %v", err)
	}
	if len(env.loadManifest(t).Keys) != 0 {
		t.Error("Expected nothing tracked after a failed download")
	}
}
