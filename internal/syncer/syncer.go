// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package syncer mirrors the password store to and from a remote host over
// SFTP. Only ciphertext ever crosses the wire; remote host keys are pinned
// in the audit database's known_hosts table.
package syncer

import (
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/TheKiteEatingTree/pointguard/internal/db"
	"github.com/TheKiteEatingTree/pointguard/internal/logging"
	"github.com/TheKiteEatingTree/pointguard/internal/store"
)

// Remote is an SFTP connection to the sync target.
type Remote struct {
	client *ssh.Client
	sftp   *sftp.Client
}

// Stats summarizes a push or pull.
type Stats struct {
	Transferred int
	Skipped     int
	Deleted     int
}

// CanonicalizeHostPort appends the default SSH port when host carries none.
func CanonicalizeHostPort(host string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		return net.JoinHostPort(host, "22")
	}
	return host
}

// SplitRemote parses "user@host[:port]" into its parts.
func SplitRemote(remote string) (user, host string, err error) {
	if !strings.Contains(remote, "@") {
		return "", "", fmt.Errorf("sync remote must be user@host[:port], got %q", remote)
	}
	parts := strings.SplitN(remote, "@", 2)
	if parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("sync remote must be user@host[:port], got %q", remote)
	}
	return parts[0], parts[1], nil
}

// hostKeyCallback verifies the presented key against the pinned key in the
// audit database.
func hostKeyCallback(hostname string, remote net.Addr, key ssh.PublicKey) error {
	host, _, err := net.SplitHostPort(hostname)
	if err != nil {
		// No port present, use the original string.
		host = hostname
	}

	presentedKey := string(ssh.MarshalAuthorizedKey(key))

	knownKey, err := db.GetKnownHostKey(host)
	if err != nil {
		return fmt.Errorf("failed to query known_hosts database: %w", err)
	}
	if knownKey == "" {
		return fmt.Errorf("unknown host key for %s. run 'pointguard trust-host' to add it", host)
	}
	if knownKey != presentedKey {
		return fmt.Errorf("!!! HOST KEY MISMATCH FOR %s !!!\nRemote key presented: %s\nThis could be a man-in-the-middle attack", host, presentedKey)
	}
	return nil
}

// Dial opens an SFTP connection to remote ("user@host[:port]"). When
// identityFile is set, that private key is tried first; the SSH agent is the
// fallback.
func Dial(remote, identityFile string) (*Remote, error) {
	user, host, err := SplitRemote(remote)
	if err != nil {
		return nil, err
	}
	addr := CanonicalizeHostPort(host)

	var finalErr error

	// --- Attempt 1: explicit identity file ---
	if identityFile != "" {
		keyData, err := os.ReadFile(identityFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read identity file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("unable to parse private key: %w", err)
		}

		config := &ssh.ClientConfig{
			User:            user,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeyCallback,
			Timeout:         10 * time.Second,
		}
		client, err := ssh.Dial("tcp", addr, config)
		if err == nil {
			return newRemote(client)
		}
		// Non-auth failures (host key mismatch, refused) should fail fast.
		if !strings.Contains(err.Error(), "unable to authenticate") {
			return nil, fmt.Errorf("connection with identity file failed: %w", err)
		}
		finalErr = err
	}

	// --- Attempt 2: SSH agent ---
	agentClient := getSSHAgent()
	if agentClient == nil {
		if finalErr != nil {
			return nil, fmt.Errorf("identity file authentication failed, and no SSH agent available for fallback: %w", finalErr)
		}
		return nil, fmt.Errorf("no authentication method available (no identity file provided and no ssh agent found)")
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         10 * time.Second,
	}
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("connection with ssh agent failed: %w", err)
	}
	return newRemote(client)
}

func newRemote(client *ssh.Client) (*Remote, error) {
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}
	return &Remote{client: client, sftp: sftpClient}, nil
}

// Close closes the underlying SSH and SFTP clients.
func (r *Remote) Close() {
	if r.sftp != nil {
		r.sftp.Close()
	}
	if r.client != nil {
		r.client.Close()
	}
}

// syncable reports whether a store-relative path should be mirrored. Only
// encrypted entries and the .gpg-id file travel; everything else (the audit
// database in particular) stays local.
func syncable(rel string) bool {
	if rel == store.GpgIDFile {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	return strings.HasSuffix(rel, store.Extension)
}

// Push mirrors the local store to remotePath. With deleteExtraneous, remote
// entries absent locally are removed.
func (r *Remote) Push(st *store.Store, remotePath string, deleteExtraneous bool) (Stats, error) {
	var stats Stats

	if err := r.sftp.MkdirAll(remotePath); err != nil {
		return stats, fmt.Errorf("failed to create remote store directory: %w", err)
	}
	if err := r.sftp.Chmod(remotePath, 0700); err != nil {
		return stats, fmt.Errorf("failed to chmod remote store directory: %w", err)
	}

	local, err := localFiles(st)
	if err != nil {
		return stats, err
	}

	for rel, data := range local {
		target := path.Join(remotePath, rel)
		if same, _ := r.remoteMatches(target, data); same {
			stats.Skipped++
			continue
		}
		if err := r.upload(remotePath, target, data); err != nil {
			return stats, fmt.Errorf("failed to upload %s: %w", rel, err)
		}
		stats.Transferred++
	}

	if deleteExtraneous {
		remote, err := r.remoteFiles(remotePath)
		if err != nil {
			return stats, err
		}
		for rel := range remote {
			if _, ok := local[rel]; ok {
				continue
			}
			if err := r.sftp.Remove(path.Join(remotePath, rel)); err != nil {
				return stats, fmt.Errorf("failed to delete remote %s: %w", rel, err)
			}
			stats.Deleted++
		}
	}

	return stats, nil
}

// Pull mirrors remotePath into the local store. With deleteExtraneous, local
// entries absent on the remote are removed.
func (r *Remote) Pull(st *store.Store, remotePath string, deleteExtraneous bool) (Stats, error) {
	var stats Stats

	remote, err := r.remoteFiles(remotePath)
	if err != nil {
		return stats, err
	}

	if err := os.MkdirAll(st.Dir, 0700); err != nil {
		return stats, fmt.Errorf("failed to create store directory: %w", err)
	}

	for rel, data := range remote {
		localPath := filepath.Join(st.Dir, filepath.FromSlash(rel))
		if existing, err := os.ReadFile(localPath); err == nil && string(existing) == string(data) {
			stats.Skipped++
			continue
		}
		if err := os.MkdirAll(filepath.Dir(localPath), 0700); err != nil {
			return stats, err
		}
		if err := writeFileAtomic(localPath, data); err != nil {
			return stats, fmt.Errorf("failed to write %s: %w", rel, err)
		}
		stats.Transferred++
	}

	if deleteExtraneous {
		local, err := localFiles(st)
		if err != nil {
			return stats, err
		}
		for rel := range local {
			if _, ok := remote[rel]; ok {
				continue
			}
			if rel == store.GpgIDFile {
				continue
			}
			name := strings.TrimSuffix(rel, store.Extension)
			if err := st.Remove(name, false); err != nil {
				return stats, err
			}
			stats.Deleted++
		}
	}

	return stats, nil
}

// localFiles returns all syncable files of the store keyed by slash-relative
// path.
func localFiles(st *store.Store) (map[string][]byte, error) {
	out := map[string][]byte{}

	entries, err := st.List()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		data, err := st.ReadCiphertext(e.Name)
		if err != nil {
			return nil, err
		}
		out[e.Name+store.Extension] = data
	}

	if data, err := os.ReadFile(filepath.Join(st.Dir, store.GpgIDFile)); err == nil {
		out[store.GpgIDFile] = data
	}
	return out, nil
}

// remoteFiles walks remotePath and returns syncable files keyed by
// slash-relative path.
func (r *Remote) remoteFiles(remotePath string) (map[string][]byte, error) {
	out := map[string][]byte{}

	walker := r.sftp.Walk(remotePath)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			logging.Debugf("syncer: skipping unreadable remote path: %v", err)
			continue
		}
		if walker.Stat().IsDir() {
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(walker.Path(), remotePath), "/")
		if !syncable(rel) {
			continue
		}
		f, err := r.sftp.Open(walker.Path())
		if err != nil {
			return nil, fmt.Errorf("failed to open remote file %s: %w", rel, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read remote file %s: %w", rel, err)
		}
		out[rel] = data
	}
	return out, nil
}

// remoteMatches reports whether the remote file already holds data.
func (r *Remote) remoteMatches(target string, data []byte) (bool, error) {
	f, err := r.sftp.Open(target)
	if err != nil {
		return false, err
	}
	defer f.Close()
	existing, err := io.ReadAll(f)
	if err != nil {
		return false, err
	}
	return string(existing) == string(data), nil
}

// parentDirs returns the directories between root (exclusive) and target's
// file name, shallowest first.
func parentDirs(root, target string) []string {
	var dirs []string
	for dir := path.Dir(target); dir != root && dir != "." && dir != "/"; dir = path.Dir(dir) {
		dirs = append([]string{dir}, dirs...)
	}
	return dirs
}

// ensureDirs creates target's missing parent directories below root, each
// with mode 0700.
func (r *Remote) ensureDirs(root, target string) error {
	for _, dir := range parentDirs(root, target) {
		if _, err := r.sftp.Stat(dir); err == nil {
			continue
		}
		if err := r.sftp.Mkdir(dir); err != nil {
			return fmt.Errorf("failed to create remote directory %s: %w", dir, err)
		}
		if err := r.sftp.Chmod(dir, 0700); err != nil {
			return fmt.Errorf("failed to chmod remote directory %s: %w", dir, err)
		}
	}
	return nil
}

// upload writes data to target atomically: temp file in the target's
// directory, chmod 0600, rename into place.
func (r *Remote) upload(root, target string, data []byte) error {
	dir := path.Dir(target)
	if err := r.ensureDirs(root, target); err != nil {
		return err
	}

	tmpPath := path.Join(dir, fmt.Sprintf(".pointguard.%d.tmp", time.Now().UnixNano()))
	f, err := r.sftp.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file on remote: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = r.sftp.Remove(tmpPath)
		return fmt.Errorf("failed to write to temporary file on remote: %w", err)
	}
	f.Close()

	if err := r.sftp.Chmod(tmpPath, 0600); err != nil {
		_ = r.sftp.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temporary file: %w", err)
	}
	if err := r.sftp.Rename(tmpPath, target); err != nil {
		_ = r.sftp.Remove(tmpPath)
		return fmt.Errorf("failed to atomically rename remote file: %w", err)
	}
	return nil
}

func writeFileAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".pointguard.tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// GetRemoteHostKey connects to a host just to retrieve its public key.
func GetRemoteHostKey(host string) (ssh.PublicKey, error) {
	keyChan := make(chan ssh.PublicKey, 1)

	config := &ssh.ClientConfig{
		// No authentication needed, just start the handshake.
		User: "pointguard-probe",
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			keyChan <- key
			// Return a specific error to gracefully stop the handshake.
			return fmt.Errorf("pointguard: successfully retrieved host key")
		},
		Timeout: 5 * time.Second,
	}

	addr := CanonicalizeHostPort(host)

	// ssh.Dial is expected to fail with our specific error.
	_, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		if strings.Contains(err.Error(), "pointguard: successfully retrieved host key") {
			return <-keyChan, nil
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", host, err)
	}

	return nil, fmt.Errorf("ssh.Dial succeeded unexpectedly, could not retrieve key")
}
