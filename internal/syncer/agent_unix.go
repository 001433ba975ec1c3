// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build !windows

package syncer

import (
	"net"
	"os"

	"golang.org/x/crypto/ssh/agent"

	"github.com/TheKiteEatingTree/pointguard/internal/logging"
)

// getSSHAgent connects to the agent at SSH_AUTH_SOCK, or returns nil when no
// agent is reachable.
func getSSHAgent() agent.Agent {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		logging.Debugf("syncer: could not connect to ssh agent: %v", err)
		return nil
	}
	return agent.NewClient(conn)
}
