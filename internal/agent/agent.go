// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

// package agent probes the local ssh-agent. The inventory never loads keys
// into an agent itself; doctor reports whether one is reachable and how many
// identities it currently holds, which is the first thing to check when a
// generated key "does not work".
package agent // import "github.com/sarveshkapre/secretive-x/internal/agent"

// Status describes the locally reachable ssh-agent.
type Status struct {
	Available bool   `json:"available"`
	Transport string `json:"transport,omitempty"`
	KeyCount  int    `json:"key_count"`
}

// Detect probes for a running ssh-agent. A missing agent is a normal
// condition, not an error; the zero status means none was found.
func Detect() Status {
	client, transport := connectAgent()
	if client == nil {
		return Status{}
	}
	status := Status{Available: true, Transport: transport}
	if keys, err := client.List(); err == nil {
		status.KeyCount = len(keys)
	}
	return status
}
