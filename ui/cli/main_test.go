// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

//nolint:errcheck
package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/TheKiteEatingTree/pointguard/internal/audit"
	"github.com/TheKiteEatingTree/pointguard/internal/db"
	"github.com/TheKiteEatingTree/pointguard/internal/gpg"
	"github.com/TheKiteEatingTree/pointguard/internal/i18n"
	"github.com/TheKiteEatingTree/pointguard/internal/testutil"
)

// setupTestStore points the CLI at a fresh store directory with a fake
// cipher, so no gpg binary is needed. The audit database is the sqlite file
// inside the store directory, as in production.
func setupTestStore(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("POINTGUARD_STORE_DIR", dir)
	t.Setenv("POINTGUARD_LANGUAGE", "en")
	// Keep the first-run config write-back out of the real user config dir.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	db.ResetForTests()
	prevCipher := newCipher
	newCipher = func() gpg.Cipher { return &testutil.FakeCipher{} }
	t.Cleanup(func() {
		newCipher = prevCipher
		if db.IsInitialized() {
			_ = db.Default().Close()
		}
		db.ResetForTests()
	})

	i18n.Init("en")
	return dir
}

// executeCommand runs a cobra command with the given arguments and captures
// its output. It can optionally take an `*os.File` to mock stdin for
// interactive commands.
func executeCommand(t *testing.T, stdin *os.File, args ...string) string {
	t.Helper()

	out, err := executeCommandErr(t, stdin, args...)
	if err != nil {
		t.Fatalf("command execution failed: %v", err)
	}
	return out
}

// executeCommandErr is executeCommand for tests that expect a failure.
func executeCommandErr(t *testing.T, stdin *os.File, args ...string) (string, error) {
	t.Helper()

	// Redirect stdout and stderr to a pipe so we capture log output too.
	oldOut := os.Stdout
	oldErr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stdout = w
	os.Stderr = w
	log.SetOutput(w)
	defer log.SetOutput(os.Stderr)
	defer func() {
		os.Stdout = oldOut
		os.Stderr = oldErr
	}()

	if stdin != nil {
		oldIn := os.Stdin
		os.Stdin = stdin
		defer func() {
			os.Stdin = oldIn
		}()
	}

	// Create a new root command for each test to ensure isolation. The
	// subcommands are package-level vars, so flag values set by a previous
	// execution must be reset to their defaults as in a fresh process.
	root := NewRootCmd()
	resetFlags(root)
	root.SetArgs(args)
	root.SilenceUsage = true
	execErr := root.Execute()

	w.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read command output: %v", err)
	}
	return buf.String(), execErr
}

// resetFlags restores every changed flag in the command tree to its default.
func resetFlags(c *cobra.Command) {
	for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
		fs.Visit(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// stdinFrom returns an *os.File that yields the given input.
func stdinFrom(t *testing.T, input string) *os.File {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		_, _ = io.WriteString(w, input)
		w.Close()
	}()
	t.Cleanup(func() { r.Close() })
	return r
}

func TestInitCmd(t *testing.T) {
	dir := setupTestStore(t)

	out := executeCommand(t, nil, "init", "alice@example.com")
	if !strings.Contains(out, "alice@example.com") {
		t.Errorf("init output = %q", out)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".gpg-id"))
	if err != nil || strings.TrimSpace(string(data)) != "alice@example.com" {
		t.Fatalf(".gpg-id = %q, %v", data, err)
	}

	// A second init must refuse.
	if _, err := executeCommandErr(t, nil, "init", "bob@example.com"); err == nil {
		t.Error("second init succeeded; want error")
	}
}

func TestInsertAndShow(t *testing.T) {
	setupTestStore(t)
	executeCommand(t, nil, "init", "alice@example.com")

	executeCommand(t, stdinFrom(t, "hunter2\n"), "insert", "work/mail")

	out := executeCommand(t, nil, "show", "work/mail")
	if !strings.Contains(out, "hunter2") {
		t.Errorf("show output = %q", out)
	}
}

func TestInsertRefusesDuplicate(t *testing.T) {
	setupTestStore(t)
	executeCommand(t, nil, "init", "alice@example.com")
	executeCommand(t, stdinFrom(t, "first\n"), "insert", "work/mail")

	if _, err := executeCommandErr(t, stdinFrom(t, "second\n"), "insert", "work/mail"); err == nil {
		t.Fatal("duplicate insert succeeded; want error")
	}

	// With --force the entry is replaced.
	executeCommand(t, stdinFrom(t, "second\n"), "insert", "--force", "work/mail")
	out := executeCommand(t, nil, "show", "work/mail")
	if !strings.Contains(out, "second") {
		t.Errorf("show after forced insert = %q", out)
	}
}

func TestShowRendersTreeForFolders(t *testing.T) {
	setupTestStore(t)
	executeCommand(t, nil, "init", "alice@example.com")
	executeCommand(t, stdinFrom(t, "a\n"), "insert", "work/mail")
	executeCommand(t, stdinFrom(t, "b\n"), "insert", "work/vpn")

	out := executeCommand(t, nil, "show")
	if !strings.Contains(out, "Point Guard Password Store") {
		t.Errorf("bare show did not render the store tree: %q", out)
	}
	for _, want := range []string{"work", "mail", "vpn"} {
		if !strings.Contains(out, want) {
			t.Errorf("tree missing %q: %q", want, out)
		}
	}

	sub := executeCommand(t, nil, "show", "work")
	if strings.Contains(sub, "Point Guard Password Store") {
		t.Errorf("folder show rendered the root label: %q", sub)
	}
}

func TestShowUnknownEntryFails(t *testing.T) {
	setupTestStore(t)
	executeCommand(t, nil, "init", "alice@example.com")

	if _, err := executeCommandErr(t, nil, "show", "no/such/entry"); err == nil {
		t.Fatal("show of missing entry succeeded; want error")
	}
}

func TestGenerateCmd(t *testing.T) {
	setupTestStore(t)
	executeCommand(t, nil, "init", "alice@example.com")

	out := executeCommand(t, nil, "generate", "work/token", "12")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	password := lines[len(lines)-1]
	if len(password) != 12 {
		t.Errorf("generated password %q has length %d, want 12", password, len(password))
	}

	shown := executeCommand(t, nil, "show", "work/token")
	if !strings.Contains(shown, password) {
		t.Errorf("stored password does not match generated one: %q vs %q", shown, password)
	}
}

func TestGenerateInPlaceKeepsMetadata(t *testing.T) {
	setupTestStore(t)
	executeCommand(t, nil, "init", "alice@example.com")
	executeCommand(t, stdinFrom(t, "oldpass\nuser: alice\n"), "insert", "--multiline", "work/mail")

	executeCommand(t, nil, "generate", "--in-place", "work/mail", "16")

	out := executeCommand(t, nil, "show", "work/mail")
	if strings.Contains(out, "oldpass") {
		t.Errorf("old password survived --in-place: %q", out)
	}
	if !strings.Contains(out, "user: alice") {
		t.Errorf("metadata lines lost by --in-place: %q", out)
	}
}

func TestFindCmd(t *testing.T) {
	setupTestStore(t)
	executeCommand(t, nil, "init", "alice@example.com")
	executeCommand(t, stdinFrom(t, "a\n"), "insert", "work/mail")
	executeCommand(t, stdinFrom(t, "b\n"), "insert", "personal/bank")

	out := executeCommand(t, nil, "find", "mail")
	if !strings.Contains(out, "work/mail") || strings.Contains(out, "personal/bank") {
		t.Errorf("find output = %q", out)
	}

	none := executeCommand(t, nil, "find", "zzz")
	if !strings.Contains(none, "zzz") {
		t.Errorf("find with no matches = %q", none)
	}
}

func TestRmCmd(t *testing.T) {
	dir := setupTestStore(t)
	executeCommand(t, nil, "init", "alice@example.com")
	executeCommand(t, stdinFrom(t, "a\n"), "insert", "work/mail")

	executeCommand(t, nil, "rm", "--force", "work/mail")
	if _, err := os.Stat(filepath.Join(dir, "work", "mail.gpg")); !os.IsNotExist(err) {
		t.Fatal("entry still on disk after rm")
	}

	// Declining the prompt leaves the entry alone.
	executeCommand(t, stdinFrom(t, "b\n"), "insert", "work/vpn")
	out := executeCommand(t, stdinFrom(t, "n\n"), "rm", "work/vpn")
	if !strings.Contains(out, "aborted") && !strings.Contains(out, "Removal") {
		t.Errorf("rm decline output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "work", "vpn.gpg")); err != nil {
		t.Fatal("entry vanished although removal was declined")
	}
}

func TestMvAndCpCmd(t *testing.T) {
	setupTestStore(t)
	executeCommand(t, nil, "init", "alice@example.com")
	executeCommand(t, stdinFrom(t, "a\n"), "insert", "work/mail")

	executeCommand(t, nil, "mv", "work/mail", "archive/mail")
	out := executeCommand(t, nil, "show", "archive/mail")
	if !strings.Contains(out, "a") {
		t.Errorf("moved entry content = %q", out)
	}
	if _, err := executeCommandErr(t, nil, "show", "work/mail"); err == nil {
		t.Error("old name still resolves after mv")
	}

	executeCommand(t, nil, "cp", "archive/mail", "work/mail")
	for _, name := range []string{"archive/mail", "work/mail"} {
		if !strings.Contains(executeCommand(t, nil, "show", name), "a") {
			t.Errorf("entry %s missing after cp", name)
		}
	}
}

func TestAuditCmdRecordsOperations(t *testing.T) {
	setupTestStore(t)
	executeCommand(t, nil, "init", "alice@example.com")
	executeCommand(t, stdinFrom(t, "a\n"), "insert", "work/mail")
	executeCommand(t, nil, "show", "work/mail")

	out := executeCommand(t, nil, "audit")
	for _, want := range []string{"INIT", "INSERT", "SHOW"} {
		if !strings.Contains(out, want) {
			t.Errorf("audit output missing %q:\n%s", want, out)
		}
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	setupTestStore(t)
	executeCommand(t, nil, "init", "alice@example.com")
	executeCommand(t, stdinFrom(t, "hunter2\n"), "insert", "work/mail")

	backupFile := filepath.Join(t.TempDir(), "backup.json.zst")
	executeCommand(t, nil, "backup", backupFile)
	if _, err := os.Stat(backupFile); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}

	// Restore into a brand-new store directory.
	restoreDir := t.TempDir()
	t.Setenv("POINTGUARD_STORE_DIR", restoreDir)

	executeCommand(t, nil, "restore", backupFile)
	out := executeCommand(t, nil, "show", "work/mail")
	if !strings.Contains(out, "hunter2") {
		t.Errorf("restored entry = %q", out)
	}
	ids, err := os.ReadFile(filepath.Join(restoreDir, ".gpg-id"))
	if err != nil || !strings.Contains(string(ids), "alice@example.com") {
		t.Errorf("restored .gpg-id = %q, %v", ids, err)
	}
}

func TestVersionCmd(t *testing.T) {
	setupTestStore(t)
	out := executeCommand(t, nil, "version")
	if !strings.Contains(out, "version:") || !strings.Contains(out, "commit:") {
		t.Errorf("version output = %q", out)
	}
}

func TestAuditWriterInjection(t *testing.T) {
	setupTestStore(t)

	fake := &testutil.FakeAuditWriter{}
	prev := audit.SetWriter(fake)
	t.Cleanup(func() { audit.SetWriter(prev) })

	executeCommand(t, nil, "init", "alice@example.com")
	if len(fake.Actions) != 1 || fake.Actions[0] != "INIT" {
		t.Fatalf("recorded actions = %v", fake.Actions)
	}
}

func TestResolveBuildVersionFallsBackToCommit(t *testing.T) {
	oldVersion, oldCommit := version, gitCommit
	t.Cleanup(func() { version, gitCommit = oldVersion, oldCommit })

	version = "dev"
	gitCommit = "abc1234"
	v, c, _ := resolveBuildVersion(nil)
	_ = c
	if v != "abc1234" && !strings.HasPrefix(v, "v") {
		t.Errorf("resolved version = %q, want commit fallback or module version", v)
	}
}
