// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for secretive-x using
// Cobra. It wires configuration and default services, and provides commands
// that delegate to the deterministic `core` orchestrator. CLI code should
// remain thin: it parses flags, resolves prompts, renders output and maps
// errors to exit codes, while `core` owns every decision that touches the
// manifest or the key directory.
package cli
