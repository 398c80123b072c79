package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Key names become file stems inside the key directory, so the charset is
// deliberately narrow: no separators, no leading dot, at most 64 runes.
var nameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateKeyName checks a candidate record name. It performs pure,
// deterministic validation and returns a non-nil error when input is invalid.
func ValidateKeyName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("key name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("key name %q must not contain path separators", name)
	}
	if !nameRE.MatchString(name) {
		return fmt.Errorf("key name %q must start with a letter or digit and may only contain letters, digits, '.', '_' and '-' (max 64 characters)", name)
	}
	return nil
}
