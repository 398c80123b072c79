package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sarveshkapre/secretive-x/internal/model"
)

// ValidateKeyName checks a candidate key name against the base name rule.
// It performs pure, deterministic validation and returns a non-nil error
// when input is invalid.
func ValidateKeyName(name string) error {
	return model.ValidateKeyName(name)
}

// ValidateProvider rejects provider tags the engine does not know. The
// creation policy may restrict further; this is the floor.
func ValidateProvider(provider string) error {
	if slices.Contains(model.KnownProviders, provider) {
		return nil
	}
	return fmt.Errorf("unknown provider %q (known: %s)", provider, strings.Join(model.KnownProviders, ", "))
}
