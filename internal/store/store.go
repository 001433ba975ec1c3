// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package store implements the on-disk password store: a directory tree of
// .gpg files rooted at a configurable directory. All functions operate on
// ciphertext; encryption and decryption live in the gpg package.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TheKiteEatingTree/pointguard/internal/model"
	"github.com/TheKiteEatingTree/pointguard/util/slicest"
)

// Extension is the filename suffix for encrypted entries.
const Extension = ".gpg"

// GpgIDFile is the file at the store root naming the GPG recipients.
const GpgIDFile = ".gpg-id"

// AuditDBFile is the sqlite audit database inside the store directory. The
// dot prefix keeps it out of listings and syncs.
const AuditDBFile = ".audit.db"

var (
	// ErrNotFound is returned when an entry or folder is not in the store.
	ErrNotFound = errors.New("not in the password store")
	// ErrExists is returned when an insert would overwrite an existing entry.
	ErrExists = errors.New("entry already exists")
	// ErrNotInitialized is returned when the store has no .gpg-id file.
	ErrNotInitialized = errors.New("password store is not initialized")
)

// Store is a password store rooted at Dir.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir. The directory is not created; Init does
// that.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// validateName rejects names that would escape the store directory.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty entry name")
	}
	if filepath.IsAbs(name) {
		return fmt.Errorf("entry name must be relative: %s", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return fmt.Errorf("entry name may not contain '..': %s", name)
		}
	}
	return nil
}

// isHidden reports whether a path component is hidden (starts with a dot).
// Hidden entries are never listed or walked.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// FilePath returns the ciphertext path for an entry name.
func (s *Store) FilePath(name string) string {
	return filepath.Join(s.Dir, filepath.FromSlash(name)+Extension)
}

// DirPath returns the directory path for a folder name. An empty name means
// the store root.
func (s *Store) DirPath(name string) string {
	if name == "" {
		return s.Dir
	}
	return filepath.Join(s.Dir, filepath.FromSlash(name))
}

// Kind describes what a query resolved to.
type Kind int

const (
	// KindFile means the query names an encrypted entry.
	KindFile Kind = iota
	// KindDir means the query names a folder (or the store root).
	KindDir
)

// Resolve maps a query to an entry file or a folder. A file wins over a
// directory of the same name unless the query carries a trailing slash.
func (s *Store) Resolve(query string) (Kind, string, error) {
	if query == "" {
		if info, err := os.Stat(s.Dir); err == nil && info.IsDir() {
			return KindDir, s.Dir, nil
		}
		return 0, "", fmt.Errorf("%w: %s", ErrNotFound, s.Dir)
	}

	wantDir := strings.HasSuffix(query, "/")
	name := strings.TrimSuffix(query, "/")
	if err := validateName(name); err != nil {
		return 0, "", err
	}

	if !wantDir {
		if info, err := os.Stat(s.FilePath(name)); err == nil && !info.IsDir() {
			return KindFile, s.FilePath(name), nil
		}
	}
	if info, err := os.Stat(s.DirPath(name)); err == nil && info.IsDir() {
		return KindDir, s.DirPath(name), nil
	}
	return 0, "", fmt.Errorf("%w: %s", ErrNotFound, query)
}

// Exists reports whether an entry file exists for name.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.FilePath(name))
	return err == nil && !info.IsDir()
}

// List walks the store and returns all entries sorted by name. Hidden files
// and directories are skipped.
func (s *Store) List() ([]model.Entry, error) {
	return s.ListDir("")
}

// ListDir walks the subtree under folder and returns its entries sorted by
// store-relative name.
func (s *Store) ListDir(folder string) ([]model.Entry, error) {
	root := s.DirPath(folder)
	var entries []model.Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, matching the original walker.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), Extension) {
			return nil
		}
		rel, rerr := filepath.Rel(s.Dir, path)
		if rerr != nil {
			return rerr
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), Extension)
		if name == "" {
			return fmt.Errorf("found a file with no name: %s", path)
		}
		entries = append(entries, model.Entry{Name: name})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Find returns all entries whose name contains term, case-insensitively.
func (s *Store) Find(term string) ([]model.Entry, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(term)
	return slicest.Filter(all, func(e model.Entry) bool {
		return strings.Contains(strings.ToLower(e.Name), term)
	}), nil
}

// ReadCiphertext returns the encrypted contents of an entry.
func (s *Store) ReadCiphertext(name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.FilePath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return data, nil
}

// InsertCiphertext writes an encrypted entry atomically (temp file + rename,
// mode 0600). Without force it refuses to overwrite an existing entry.
func (s *Store) InsertCiphertext(name string, ciphertext []byte, force bool) error {
	if err := validateName(name); err != nil {
		return err
	}
	target := s.FilePath(name)
	if !force {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, name)
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		return fmt.Errorf("failed to create entry directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(ciphertext); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write entry: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to chmod entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move entry into place: %w", err)
	}
	return nil
}

// Remove deletes an entry, or a whole folder when recursive is set, and
// prunes any parent directories left empty.
func (s *Store) Remove(name string, recursive bool) error {
	if err := validateName(name); err != nil {
		return err
	}
	if s.Exists(name) {
		if err := os.Remove(s.FilePath(name)); err != nil {
			return err
		}
		s.pruneEmptyDirs(filepath.Dir(s.FilePath(name)))
		return nil
	}
	dir := s.DirPath(name)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		if !recursive {
			return fmt.Errorf("%s is a folder; use recursive removal", name)
		}
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
		s.pruneEmptyDirs(filepath.Dir(dir))
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Move renames an entry or folder within the store.
func (s *Store) Move(oldName, newName string) error {
	return s.transfer(oldName, newName, true)
}

// Copy duplicates an entry or folder within the store.
func (s *Store) Copy(oldName, newName string) error {
	return s.transfer(oldName, newName, false)
}

func (s *Store) transfer(oldName, newName string, move bool) error {
	if err := validateName(oldName); err != nil {
		return err
	}
	if err := validateName(newName); err != nil {
		return err
	}

	var src, dst string
	switch {
	case s.Exists(oldName):
		src, dst = s.FilePath(oldName), s.FilePath(newName)
	default:
		info, err := os.Stat(s.DirPath(oldName))
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrNotFound, oldName)
		}
		src, dst = s.DirPath(oldName), s.DirPath(newName)
	}

	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, newName)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return err
	}
	if move {
		if err := os.Rename(src, dst); err != nil {
			return err
		}
		s.pruneEmptyDirs(filepath.Dir(src))
		return nil
	}
	return copyTree(src, dst)
}

// copyTree copies a file or directory tree preserving entry permissions.
func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, data, info.Mode().Perm())
	}
	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return err
	}
	children, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := copyTree(filepath.Join(src, c.Name()), filepath.Join(dst, c.Name())); err != nil {
			return err
		}
	}
	return nil
}

// pruneEmptyDirs removes empty directories from dir up to the store root.
func (s *Store) pruneEmptyDirs(dir string) {
	root, err := filepath.Abs(s.Dir)
	if err != nil {
		return
	}
	for {
		abs, err := filepath.Abs(dir)
		if err != nil || abs == root || !strings.HasPrefix(abs, root) {
			return
		}
		children, err := os.ReadDir(abs)
		if err != nil || len(children) > 0 {
			return
		}
		if err := os.Remove(abs); err != nil {
			return
		}
		dir = filepath.Dir(abs)
	}
}

// GpgIDs returns the recipients recorded in the store's .gpg-id file.
func (s *Store) GpgIDs() ([]string, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, GpgIDFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			ids = append(ids, line)
		}
	}
	if len(ids) == 0 {
		return nil, ErrNotInitialized
	}
	return ids, nil
}

// Init creates the store directory and records the GPG recipients.
func (s *Store) Init(gpgIDs []string) error {
	if len(gpgIDs) == 0 {
		return fmt.Errorf("at least one GPG id is required")
	}
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	content := strings.Join(gpgIDs, "\n") + "\n"
	return os.WriteFile(filepath.Join(s.Dir, GpgIDFile), []byte(content), 0600)
}
