//go:build !windows
// +build !windows

// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

// Unix-specific implementation for locating the SSH agent.

package agent

import (
	"net"
	"os"

	"golang.org/x/crypto/ssh/agent"
)

// connectAgent attempts to connect to a running SSH agent on Unix-like
// systems. It checks the SSH_AUTH_SOCK environment variable for the socket
// path and returns an agent client if a connection is successful.
func connectAgent() (agent.Agent, string) {
	if sshAgentSocket := os.Getenv("SSH_AUTH_SOCK"); sshAgentSocket != "" {
		if conn, err := net.Dial("unix", sshAgentSocket); err == nil {
			return agent.NewClient(conn), "unix socket"
		}
	}
	return nil, ""
}
