// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package clip copies passwords to the system clipboard and clears them
// again after a delay. The clipboard contents found before the copy are kept
// in the in-memory snapshot mailbox and restored on clear when nothing else
// has overwritten the clipboard in the meantime. Clearing runs in a detached
// helper process so it survives the command (or the TUI) exiting.
package clip

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/TheKiteEatingTree/pointguard/internal/state"
)

// Seams for tests; no real clipboard or child process is available there.
var (
	readClipboard  = clipboard.ReadAll
	writeClipboard = clipboard.WriteAll
	execCommand    = exec.Command
)

// FirstLine returns the first line of a secret body, without the trailing
// newline. The first line of an entry is the password by convention.
func FirstLine(b []byte) string {
	s := string(b)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, "\r")
}

// Copy snapshots the current clipboard contents and then places text on the
// clipboard.
func Copy(text string) error {
	if prev, err := readClipboard(); err == nil {
		state.ClipboardSnapshot.Set([]byte(prev))
	} else {
		state.ClipboardSnapshot.Set(nil)
	}
	return writeClipboard(text)
}

// CopyFromReader copies the first line read from r to the clipboard and
// returns what was copied. This is the helper process protocol: the parent
// hands the secret over on stdin.
func CopyFromReader(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	password := FirstLine(data)
	if err := Copy(password); err != nil {
		return "", err
	}
	return password, nil
}

// SpawnClearHelper starts a detached copy of the running binary in helper
// mode: the child reads the password from stdin, copies it, and clears the
// clipboard again after d. The caller returns immediately and may exit; the
// clear is owned by the child.
func SpawnClearHelper(password string, d time.Duration) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("could not locate own binary: %w", err)
	}
	child := execCommand(self, "clip", "--seconds", strconv.Itoa(int(d/time.Second)))
	child.Stdin = strings.NewReader(password)
	child.Stdout = nil
	child.Stderr = nil
	if err := child.Start(); err != nil {
		return fmt.Errorf("could not start clipboard helper: %w", err)
	}
	// The child outlives us on purpose. Release it so it is not tied to our
	// process group.
	return child.Process.Release()
}

// ClearAfter blocks for d and then clears the clipboard, provided it still
// holds copied. If another process changed the clipboard meanwhile, it is
// left alone. The pre-copy contents are restored when a snapshot exists.
func ClearAfter(d time.Duration, copied string) error {
	time.Sleep(d)
	return clearIfOurs(copied)
}

func clearIfOurs(copied string) error {
	defer state.ClipboardSnapshot.Clear()

	current, err := readClipboard()
	if err != nil {
		return err
	}
	if current != copied {
		return nil
	}
	restore := ""
	if prev, ok := state.ClipboardSnapshot.Get(); ok && prev != nil {
		restore = string(prev)
	}
	return writeClipboard(restore)
}
