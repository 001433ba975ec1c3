// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

// sync.go holds the SFTP mirroring subcommands and the host key pinning
// workflow.

package cli

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/TheKiteEatingTree/pointguard/internal/audit"
	"github.com/TheKiteEatingTree/pointguard/internal/db"
	"github.com/TheKiteEatingTree/pointguard/internal/i18n"
	"github.com/TheKiteEatingTree/pointguard/internal/syncer"
)

// remotePath returns the store path on the sync target.
func remotePath() string {
	if appConfig.Sync.Path != "" {
		return appConfig.Sync.Path
	}
	return "pointguard-store"
}

// syncCmd groups the push and pull subcommands.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the store to or from a remote host over SFTP",
	Long: `Mirrors the encrypted store to a remote host over SFTP. Only the
encrypted entries and the .gpg-id file are transferred; plaintext never
leaves the machine. The remote's host key must be pinned first with
'pointguard trust-host'.`,
}

func dialSyncRemote(cmd *cobra.Command) (*syncer.Remote, error) {
	if appConfig.Sync.Remote == "" {
		return nil, fmt.Errorf("%s", i18n.T("sync.no_remote"))
	}
	identity, _ := cmd.Flags().GetString("identity")
	remote, err := syncer.Dial(appConfig.Sync.Remote, identity)
	if err != nil {
		return nil, fmt.Errorf("%s", i18n.T("sync.error_connect", err))
	}
	return remote, nil
}

// syncPushCmd represents the 'sync push' command.
var syncPushCmd = &cobra.Command{
	Use:     "push",
	Short:   "Upload local entries to the sync remote",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, err := dialSyncRemote(cmd)
		if err != nil {
			return err
		}
		defer remote.Close()

		deleteExtraneous, _ := cmd.Flags().GetBool("delete")
		stats, err := remote.Push(passwordStore(), remotePath(), deleteExtraneous)
		if err != nil {
			return err
		}
		audit.Record("SYNC_PUSH", fmt.Sprintf("%d transferred, %d deleted", stats.Transferred, stats.Deleted))
		fmt.Println(i18n.T("sync.push_success", stats.Transferred, stats.Skipped, stats.Deleted))
		return nil
	},
}

// syncPullCmd represents the 'sync pull' command.
var syncPullCmd = &cobra.Command{
	Use:     "pull",
	Short:   "Download entries from the sync remote",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, err := dialSyncRemote(cmd)
		if err != nil {
			return err
		}
		defer remote.Close()

		deleteExtraneous, _ := cmd.Flags().GetBool("delete")
		stats, err := remote.Pull(passwordStore(), remotePath(), deleteExtraneous)
		if err != nil {
			return err
		}
		audit.Record("SYNC_PULL", fmt.Sprintf("%d transferred, %d deleted", stats.Transferred, stats.Deleted))
		fmt.Println(i18n.T("sync.pull_success", stats.Transferred, stats.Skipped, stats.Deleted))
		return nil
	},
}

// stripPort reduces host[:port] to the bare hostname, which is how keys are
// pinned and looked up.
func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// trustHostCmd represents the 'trust-host' command. It fetches a host's
// public SSH key, shows the fingerprint, and pins the key after
// confirmation. This is a required step before the sync commands can talk to
// a new host.
var trustHostCmd = &cobra.Command{
	Use:     "trust-host <host[:port]>",
	Short:   "Pin a sync host's public SSH key",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host := args[0]
		canonicalHost := syncer.CanonicalizeHostPort(host)

		fmt.Println(i18n.T("trust_host.fetching", canonicalHost))
		key, err := syncer.GetRemoteHostKey(host)
		if err != nil {
			return fmt.Errorf("%s", i18n.T("trust_host.error_get_key", err))
		}

		fmt.Println(i18n.T("trust_host.fingerprint", canonicalHost, ssh.FingerprintSHA256(key)))
		if !confirmed(promptForConfirmation(i18n.T("trust_host.confirm"))) {
			fmt.Println(i18n.T("trust_host.aborted"))
			return nil
		}

		if err := db.AddKnownHostKey(stripPort(host), string(ssh.MarshalAuthorizedKey(key))); err != nil {
			return fmt.Errorf("%s", i18n.T("trust_host.error_save", err))
		}
		fmt.Println(i18n.T("trust_host.success", stripPort(host)))
		return nil
	},
}
