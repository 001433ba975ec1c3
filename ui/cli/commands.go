// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

// commands.go holds the store-facing subcommands: init, show, find, insert,
// generate, edit, rm, mv, cp and the hidden clipboard helper process.

package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TheKiteEatingTree/pointguard/internal/audit"
	"github.com/TheKiteEatingTree/pointguard/internal/clip"
	"github.com/TheKiteEatingTree/pointguard/internal/i18n"
	"github.com/TheKiteEatingTree/pointguard/internal/model"
	"github.com/TheKiteEatingTree/pointguard/internal/pwgen"
	"github.com/TheKiteEatingTree/pointguard/internal/store"
	"github.com/TheKiteEatingTree/pointguard/util/slicest"
)

func clipDuration() time.Duration {
	return time.Duration(appConfig.ClipTime) * time.Second
}

// initCmd represents the 'init' command. It creates the store directory and
// writes the .gpg-id file naming the GPG recipients.
var initCmd = &cobra.Command{
	Use:     "init <gpg-id>...",
	Short:   "Initialize the password store for one or more GPG ids",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st := passwordStore()
		if _, err := st.GpgIDs(); err == nil {
			return fmt.Errorf("%s", i18n.T("init.already_exists", st.Dir))
		}
		if err := st.Init(args); err != nil {
			return fmt.Errorf("%s", i18n.T("init.error", err))
		}
		audit.Record("INIT", strings.Join(args, ", "))
		fmt.Println(i18n.T("init.success", strings.Join(args, ", ")))
		return nil
	},
}

// showCmd represents the 'show' command. For a folder (or no argument) it
// prints the store as a tree; for an entry it decrypts and prints it, or
// copies the first line to the clipboard with --clip.
var showCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show an entry or list a folder of the store",
	Long: `Decrypts and prints the named entry. When the name refers to a folder
(or is omitted), the folder is rendered as a tree instead. An entry wins
over a folder of the same name; append a trailing slash to force the
folder.

With --clip only the first line of the entry is copied to the clipboard
and the clipboard is cleared again after clip_time seconds.`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		toClip, _ := cmd.Flags().GetBool("clip")

		st := passwordStore()
		kind, _, err := st.Resolve(query)
		if err != nil {
			return fmt.Errorf("%s", i18n.T("show.error_not_found", query))
		}

		if kind == store.KindDir {
			out, err := st.Tree(query)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		}

		name := strings.TrimSuffix(query, "/")
		ciphertext, err := st.ReadCiphertext(name)
		if err != nil {
			return fmt.Errorf("%s", i18n.T("show.error_not_found", name))
		}
		plaintext, err := newCipher().Decrypt(cmd.Context(), ciphertext)
		if err != nil {
			return fmt.Errorf("%s", i18n.T("show.error_decrypt", name, err))
		}

		if toClip {
			if err := clip.SpawnClearHelper(clip.FirstLine(plaintext), clipDuration()); err != nil {
				return err
			}
			audit.Record("SHOW_CLIP", name)
			fmt.Println(i18n.T("show.clip_success", name, appConfig.ClipTime))
			return nil
		}

		audit.Record("SHOW", name)
		fmt.Print(string(plaintext))
		if len(plaintext) > 0 && plaintext[len(plaintext)-1] != '\n' {
			fmt.Println()
		}
		return nil
	},
}

// clipDaemonCmd represents the 'clip' command. With a name it decrypts the
// entry and copies the first line, like 'show --clip'. Without a name it is
// the helper process protocol: the password arrives on stdin, this process
// owns the clipboard and clears it again after the delay.
var clipDaemonCmd = &cobra.Command{
	Use:     "clip [name]",
	Short:   "Copy an entry's password to the clipboard",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			name := args[0]
			ciphertext, err := passwordStore().ReadCiphertext(name)
			if err != nil {
				return fmt.Errorf("%s", i18n.T("show.error_not_found", name))
			}
			plaintext, err := newCipher().Decrypt(cmd.Context(), ciphertext)
			if err != nil {
				return fmt.Errorf("%s", i18n.T("show.error_decrypt", name, err))
			}
			if err := clip.SpawnClearHelper(clip.FirstLine(plaintext), clipDuration()); err != nil {
				return err
			}
			audit.Record("SHOW_CLIP", name)
			fmt.Println(i18n.T("show.clip_success", name, appConfig.ClipTime))
			return nil
		}

		seconds, _ := cmd.Flags().GetInt("seconds")
		if seconds <= 0 {
			seconds = appConfig.ClipTime
		}
		password, err := clip.CopyFromReader(os.Stdin)
		if err != nil {
			return err
		}
		return clip.ClearAfter(time.Duration(seconds)*time.Second, password)
	},
}

func init() {
	clipDaemonCmd.Flags().Int("seconds", 0, "Seconds until the clipboard is cleared")
}

// findCmd represents the 'find' command. It lists entries whose names match
// the search term.
var findCmd = &cobra.Command{
	Use:     "find <term>",
	Short:   "List entries whose names contain the search term",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := passwordStore().Find(args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println(i18n.T("find.no_results", args[0]))
			return nil
		}
		for _, name := range slicest.Map(entries, model.Entry.String) {
			fmt.Println(name)
		}
		return nil
	},
}

// readSecret reads the new secret for an entry, either interactively with a
// hidden double prompt, as one line from a pipe, or as a multi-line body
// until EOF with --multiline.
func readSecret(name string, multiline bool) ([]byte, error) {
	if multiline {
		return io.ReadAll(os.Stdin)
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		return []byte(strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")), nil
	}

	fmt.Print(i18n.T("insert.prompt", name))
	first, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return nil, err
	}
	fmt.Print(i18n.T("insert.prompt_retype", name))
	second, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(first, second) {
		return nil, errors.New(i18n.T("insert.error_mismatch"))
	}
	return first, nil
}

// encryptAndStore encrypts plaintext for the store's configured recipients
// and writes the entry.
func encryptAndStore(cmd *cobra.Command, st *store.Store, name string, plaintext []byte, force bool) error {
	ids, err := st.GpgIDs()
	if err != nil {
		return err
	}
	ciphertext, err := newCipher().Encrypt(cmd.Context(), plaintext, ids)
	if err != nil {
		return err
	}
	return st.InsertCiphertext(name, ciphertext, force)
}

// insertCmd represents the 'insert' command.
var insertCmd = &cobra.Command{
	Use:     "insert <name>",
	Short:   "Insert a new entry into the store",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		force, _ := cmd.Flags().GetBool("force")
		multiline, _ := cmd.Flags().GetBool("multiline")

		st := passwordStore()
		if !force && st.Exists(name) {
			return fmt.Errorf("%s", i18n.T("insert.error_exists", name))
		}

		secret, err := readSecret(name, multiline)
		if err != nil {
			return err
		}
		if len(secret) == 0 || secret[len(secret)-1] != '\n' {
			secret = append(secret, '\n')
		}
		if err := encryptAndStore(cmd, st, name, secret, force); err != nil {
			if errors.Is(err, store.ErrExists) {
				return fmt.Errorf("%s", i18n.T("insert.error_exists", name))
			}
			return err
		}
		audit.Record("INSERT", name)
		fmt.Println(i18n.T("insert.success", name))
		return nil
	},
}

// generateCmd represents the 'generate' command.
var generateCmd = &cobra.Command{
	Use:     "generate <name> [length]",
	Short:   "Generate a new password and store it",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		force, _ := cmd.Flags().GetBool("force")
		noSymbols, _ := cmd.Flags().GetBool("no-symbols")
		toClip, _ := cmd.Flags().GetBool("clip")

		length := appConfig.GeneratedLength
		if len(args) == 2 {
			parsed, err := strconv.Atoi(args[1])
			if err != nil || parsed < 1 {
				return fmt.Errorf("%s", i18n.T("generate.error_length", args[1]))
			}
			length = parsed
		}

		password, err := pwgen.Generate(pwgen.Options{Length: length, NoSymbols: noSymbols})
		if err != nil {
			return err
		}

		st := passwordStore()
		body := []byte(password + "\n")
		inPlace, _ := cmd.Flags().GetBool("in-place")
		if inPlace {
			// Keep everything after the first line of the existing entry.
			ciphertext, err := st.ReadCiphertext(name)
			if err != nil {
				return fmt.Errorf("%s", i18n.T("show.error_not_found", name))
			}
			plaintext, err := newCipher().Decrypt(cmd.Context(), ciphertext)
			if err != nil {
				return fmt.Errorf("%s", i18n.T("show.error_decrypt", name, err))
			}
			if i := bytes.IndexByte(plaintext, '\n'); i >= 0 {
				body = append(body, plaintext[i+1:]...)
			}
			force = true
		}
		if err := encryptAndStore(cmd, st, name, body, force); err != nil {
			if errors.Is(err, store.ErrExists) {
				return fmt.Errorf("%s", i18n.T("insert.error_exists", name))
			}
			return err
		}
		audit.Record("GENERATE", name)

		if toClip {
			if err := clip.SpawnClearHelper(password, clipDuration()); err != nil {
				return err
			}
			fmt.Println(i18n.T("show.clip_success", name, appConfig.ClipTime))
			return nil
		}
		fmt.Println(i18n.T("generate.success", name))
		fmt.Println(password)
		return nil
	},
}

// resolveEditor picks the editor command: config first, then the usual
// environment variables, then vi.
func resolveEditor() []string {
	for _, candidate := range []string{appConfig.Editor, os.Getenv("EDITOR"), os.Getenv("VISUAL")} {
		if candidate != "" {
			return strings.Fields(candidate)
		}
	}
	return []string{"vi"}
}

// editCmd represents the 'edit' command. The decrypted entry is placed in a
// private temporary file, handed to the editor, and re-encrypted when it
// changed. Missing entries are created.
var editCmd = &cobra.Command{
	Use:     "edit <name>",
	Short:   "Edit an entry with your editor",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		st := passwordStore()

		var before []byte
		existing := st.Exists(name)
		if existing {
			ciphertext, err := st.ReadCiphertext(name)
			if err != nil {
				return err
			}
			before, err = newCipher().Decrypt(cmd.Context(), ciphertext)
			if err != nil {
				return fmt.Errorf("%s", i18n.T("show.error_decrypt", name, err))
			}
		}

		tmpDir, err := os.MkdirTemp("", "pointguard-edit-")
		if err != nil {
			return err
		}
		tmpFile := filepath.Join(tmpDir, filepath.Base(name)+".txt")
		defer func() {
			// Overwrite the plaintext before unlinking it.
			if info, err := os.Stat(tmpFile); err == nil {
				_ = os.WriteFile(tmpFile, make([]byte, info.Size()), 0600)
			}
			_ = os.RemoveAll(tmpDir)
		}()

		if err := os.WriteFile(tmpFile, before, 0600); err != nil {
			return err
		}

		editor := resolveEditor()
		editorCmd := exec.CommandContext(cmd.Context(), editor[0], append(editor[1:], tmpFile)...)
		editorCmd.Stdin = os.Stdin
		editorCmd.Stdout = os.Stdout
		editorCmd.Stderr = os.Stderr
		if err := editorCmd.Run(); err != nil {
			return fmt.Errorf("editor failed: %w", err)
		}

		after, err := os.ReadFile(tmpFile)
		if err != nil {
			return err
		}
		if existing && bytes.Equal(before, after) {
			fmt.Println(i18n.T("edit.unchanged", name))
			return nil
		}
		if err := encryptAndStore(cmd, st, name, after, true); err != nil {
			return err
		}
		audit.Record("EDIT", name)
		fmt.Println(i18n.T("edit.success", name))
		return nil
	},
}

// rmCmd represents the 'rm' command.
var rmCmd = &cobra.Command{
	Use:     "rm <name>",
	Short:   "Remove an entry (or a folder with -r) from the store",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		force, _ := cmd.Flags().GetBool("force")
		recursive, _ := cmd.Flags().GetBool("recursive")

		if !force {
			if !confirmed(promptForConfirmation(i18n.T("rm.confirm", name))) {
				fmt.Println(i18n.T("rm.aborted"))
				return nil
			}
		}

		if err := passwordStore().Remove(name, recursive); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%s", i18n.T("show.error_not_found", name))
			}
			return err
		}
		audit.Record("RM", name)
		fmt.Println(i18n.T("rm.success", name))
		return nil
	},
}

// mvCmd represents the 'mv' command.
var mvCmd = &cobra.Command{
	Use:     "mv <old-name> <new-name>",
	Short:   "Rename an entry or folder",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := passwordStore().Move(args[0], args[1]); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%s", i18n.T("show.error_not_found", args[0]))
			}
			return err
		}
		audit.Record("MV", args[0]+" -> "+args[1])
		fmt.Println(i18n.T("mv.success", args[0], args[1]))
		return nil
	},
}

// cpCmd represents the 'cp' command.
var cpCmd = &cobra.Command{
	Use:     "cp <old-name> <new-name>",
	Short:   "Copy an entry or folder",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := passwordStore().Copy(args[0], args[1]); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%s", i18n.T("show.error_not_found", args[0]))
			}
			return err
		}
		audit.Record("CP", args[0]+" -> "+args[1])
		fmt.Println(i18n.T("cp.success", args[0], args[1]))
		return nil
	},
}
