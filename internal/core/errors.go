// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import "errors"

// Sentinel errors for the conditions callers branch on. The CLI maps these
// (and policy refusals) to usage-level exit codes; everything else is a
// system failure.
var (
	// ErrKeyExists means a create would collide with a tracked record or
	// with key files already on disk.
	ErrKeyExists = errors.New("key already exists")

	// ErrKeyNotFound means the named record is not in the manifest.
	ErrKeyNotFound = errors.New("key not found")

	// ErrNothingSelected means a reconcile run was requested with no
	// remediation selected.
	ErrNothingSelected = errors.New("no reconcile action selected")
)
