package sshkey

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/sarveshkapre/secretive-x/internal/model"
)

// Parse splits a raw public key string (like the first line of a .pub file)
// into its three core components: algorithm, key data, and comment.
// It correctly handles leading options in the line (e.g., from="...",command="...").
func Parse(rawKey string) (algorithm, keyData, comment string, err error) {
	fields := strings.Fields(rawKey)
	if len(fields) == 0 {
		err = fmt.Errorf("empty line")
		return
	}

	keyStartIndex := -1
	for i, field := range fields {
		if strings.HasPrefix(field, "ssh-") || strings.HasPrefix(field, "ecdsa-") || strings.HasPrefix(field, "sk-") {
			keyStartIndex = i
			break
		}
	}

	if keyStartIndex == -1 {
		err = fmt.Errorf("no valid SSH key type found in line")
		return
	}

	if len(fields) < keyStartIndex+2 {
		err = fmt.Errorf("invalid public key format: missing key data after algorithm")
		return
	}

	algorithm = fields[keyStartIndex]
	keyData = fields[keyStartIndex+1]
	if len(fields) > keyStartIndex+2 {
		comment = strings.Join(fields[keyStartIndex+2:], " ")
	}

	return
}

// ProviderForAlgorithm maps a public key algorithm to a provider tag.
// Security-key algorithms (sk-*) are hardware-backed; plain algorithms are
// software keys. Unknown algorithms map to the empty string so callers can
// apply their configured fallback.
func ProviderForAlgorithm(algorithm string) string {
	switch {
	case strings.HasPrefix(algorithm, "sk-"):
		return model.ProviderFIDO2
	case strings.HasPrefix(algorithm, "ssh-"), strings.HasPrefix(algorithm, "ecdsa-"):
		return model.ProviderSoftware
	default:
		return ""
	}
}

// InferProvider parses a public key line and returns the provider tag for
// its algorithm plus the trailing comment. The provider is empty when the
// line is unparseable or the algorithm is unknown.
func InferProvider(rawKey string) (provider, comment string) {
	algorithm, _, comment, err := Parse(rawKey)
	if err != nil {
		return "", ""
	}
	return ProviderForAlgorithm(algorithm), comment
}

// Fingerprint returns the SHA256 fingerprint of an authorized_keys-style
// public key line, in the same form ssh-keygen -lf prints.
func Fingerprint(rawKey string) (string, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(rawKey))
	if err != nil {
		return "", fmt.Errorf("parse public key: %w", err)
	}
	return ssh.FingerprintSHA256(pub), nil
}
