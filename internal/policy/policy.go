// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

// package policy gates key creation on the configured creation policy. The
// engine is pure: it sees only the proposed name and provider, never the
// filesystem or the manifest.
package policy // import "github.com/sarveshkapre/secretive-x/internal/policy"

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Rejection reasons carried by Error.
const (
	ReasonProviderNotAllowed = "provider-not-allowed"
	ReasonNameRejected       = "name-rejected"
)

// Error reports a policy refusal. It names the offending value and the
// constraint so the caller can fix the request or the policy.
type Error struct {
	Reason     string
	Name       string
	Provider   string
	Constraint string
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonProviderNotAllowed:
		return fmt.Sprintf("provider %q is not allowed by policy (allowed: %s)", e.Provider, e.Constraint)
	default:
		return fmt.Sprintf("name %q does not match the policy name pattern %s", e.Name, e.Constraint)
	}
}

// Policy is the compiled creation policy. The zero value allows everything.
type Policy struct {
	// AllowedProviders restricts provider tags; empty means no restriction.
	AllowedProviders []string
	// NamePattern must match the entire proposed name; nil means no restriction.
	NamePattern *regexp.Regexp
}

// Compile builds a Policy from raw configuration values. The name pattern is
// compiled with full-match semantics, so "corp-.*" cannot accidentally match
// a substring.
func Compile(allowedProviders []string, namePattern string) (Policy, error) {
	p := Policy{AllowedProviders: slices.Clone(allowedProviders)}
	if namePattern != "" {
		re, err := regexp.Compile(`\A(?:` + namePattern + `)\z`)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid name_pattern regex %q: %w", namePattern, err)
		}
		p.NamePattern = re
	}
	return p, nil
}

// Validate checks a proposed key creation. The provider restriction is
// evaluated before the name pattern, so a request failing both reports the
// provider first.
func (p Policy) Validate(name, provider string) error {
	if len(p.AllowedProviders) > 0 && !slices.Contains(p.AllowedProviders, provider) {
		return &Error{
			Reason:     ReasonProviderNotAllowed,
			Name:       name,
			Provider:   provider,
			Constraint: strings.Join(p.AllowedProviders, ", "),
		}
	}
	if p.NamePattern != nil && !p.NamePattern.MatchString(name) {
		return &Error{
			Reason:     ReasonNameRejected,
			Name:       name,
			Constraint: p.NamePattern.String(),
		}
	}
	return nil
}
