// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

// package trust enforces the key directory boundary. Every operation that
// reads or removes key material must prove the target path lies strictly
// inside the configured key directory before touching the filesystem.
package trust // import "github.com/sarveshkapre/secretive-x/internal/trust"

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Violation reasons carried by Error.
const (
	ReasonOutside = "outside"    // not a strict descendant of the key directory
	ReasonKeyDir  = "is-key-dir" // the path is the key directory itself
	ReasonSymlink = "symlink"    // a path component inside the boundary is a symlink
)

// Error reports a path that failed the key directory boundary check.
type Error struct {
	Path   string
	KeyDir string
	Reason string
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonKeyDir:
		return fmt.Sprintf("path %q is the key directory itself, not a key file", e.Path)
	case ReasonSymlink:
		return fmt.Sprintf("path %q routes through a symlink inside key directory %q; refusing to follow it", e.Path, e.KeyDir)
	default:
		return fmt.Sprintf("path %q escapes key directory %q", e.Path, e.KeyDir)
	}
}

// Resolve normalizes a manifest path against the key directory. Relative
// paths are interpreted relative to keyDir; absolute paths are cleaned.
// Purely lexical, no filesystem access.
func Resolve(path, keyDir string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(keyDir, path)
}

// IsInsideKeyDir reports whether path is a strict descendant of keyDir after
// lexical normalization. It is a pure function: no filesystem access and no
// symlink dereferencing, so the name an operation will use is exactly what
// gets validated. The key directory itself is not inside.
func IsInsideKeyDir(path, keyDir string) bool {
	if path == "" || keyDir == "" {
		return false
	}
	kd := filepath.Clean(keyDir)
	rel, err := filepath.Rel(kd, Resolve(path, kd))
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// CheckPath is the operational boundary check: the lexical containment test
// plus an lstat walk from the key directory down to the target, refusing any
// component that is a symlink. The final segment is inspected with Lstat and
// never dereferenced; a path whose tail does not exist yet still passes, the
// name itself is what matters. On success it returns the resolved absolute
// path the caller should operate on.
func CheckPath(path, keyDir string) (string, error) {
	kd := filepath.Clean(keyDir)
	if path == "" {
		return "", &Error{Path: path, KeyDir: kd, Reason: ReasonOutside}
	}
	p := Resolve(path, kd)
	if p == kd {
		return "", &Error{Path: path, KeyDir: kd, Reason: ReasonKeyDir}
	}
	if !IsInsideKeyDir(p, kd) {
		return "", &Error{Path: path, KeyDir: kd, Reason: ReasonOutside}
	}

	rel, err := filepath.Rel(kd, p)
	if err != nil {
		return "", &Error{Path: path, KeyDir: kd, Reason: ReasonOutside}
	}
	cur := kd
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		fi, err := os.Lstat(cur)
		if err != nil {
			if os.IsNotExist(err) {
				// Nothing below a missing component can exist either.
				break
			}
			return "", fmt.Errorf("checking %s: %w", cur, err)
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return "", &Error{Path: path, KeyDir: kd, Reason: ReasonSymlink}
		}
	}
	return p, nil
}
