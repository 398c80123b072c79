// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package manifest

import (
	"fmt"
	"strings"
)

// ErrorKind names the failure class of a manifest load or save.
type ErrorKind string

const (
	// KindRead covers I/O failures reading the manifest file.
	KindRead ErrorKind = "read"
	// KindParse covers unparseable JSON.
	KindParse ErrorKind = "parse"
	// KindRoot covers documents whose root is not a JSON object.
	KindRoot ErrorKind = "root"
	// KindVersion covers missing or unsupported document versions.
	KindVersion ErrorKind = "version"
	// KindKeys covers a "keys" field that is not an object.
	KindKeys ErrorKind = "keys"
	// KindRecord covers malformed individual records (non-object entries,
	// missing or wrong-typed fields, name mismatches).
	KindRecord ErrorKind = "record"
	// KindWrite covers failures persisting the document.
	KindWrite ErrorKind = "write"
)

// Error is the manifest failure type. One malformed record fails the whole
// load; there is no partial recovery, so Entry always names the offender.
type Error struct {
	Kind  ErrorKind
	Path  string // manifest file path
	Entry string // offending record name, when applicable
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "manifest %s", e.Path)
	if e.Entry != "" {
		fmt.Fprintf(&b, ": record %q", e.Entry)
	}
	if e.Msg != "" {
		fmt.Fprintf(&b, ": %s", e.Msg)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }
