// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build windows

package syncer

import (
	"os"

	"github.com/Microsoft/go-winio"
	"github.com/davidmz/go-pageant"
	"golang.org/x/crypto/ssh/agent"

	"github.com/TheKiteEatingTree/pointguard/internal/logging"
)

const openSSHAgentPipe = `\\.\pipe\openssh-ssh-agent`

// getSSHAgent tries Pageant first, then the Windows OpenSSH agent named
// pipe. Returns nil when neither is available.
func getSSHAgent() agent.Agent {
	if pageant.Available() {
		return pageant.New()
	}

	pipe := os.Getenv("SSH_AUTH_SOCK")
	if pipe == "" {
		pipe = openSSHAgentPipe
	}
	conn, err := winio.DialPipe(pipe, nil)
	if err != nil {
		logging.Debugf("syncer: could not connect to openssh agent pipe: %v", err)
		return nil
	}
	return agent.NewClient(conn)
}
