// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newTestStore builds an initialized store with a few entries.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	if err := s.Init([]string{"test@example.com"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	for _, name := range []string{"top", "work/mail", "work/vpn", "personal/bank/main"} {
		if err := s.InsertCiphertext(name, []byte("ct:"+name), false); err != nil {
			t.Fatalf("InsertCiphertext(%s) failed: %v", name, err)
		}
	}
	return s
}

func TestResolveFileWinsOverDir(t *testing.T) {
	s := newTestStore(t)
	// "work" is only a folder; "top" is only a file.
	if kind, _, err := s.Resolve("work"); err != nil || kind != KindDir {
		t.Fatalf("Resolve(work) = %v, %v; want KindDir", kind, err)
	}
	if kind, _, err := s.Resolve("top"); err != nil || kind != KindFile {
		t.Fatalf("Resolve(top) = %v, %v; want KindFile", kind, err)
	}

	// Create an entry shadowing a folder name. The file must win, and the
	// trailing slash must force the folder.
	if err := s.InsertCiphertext("work", []byte("shadow"), false); err != nil {
		t.Fatalf("InsertCiphertext(work) failed: %v", err)
	}
	if kind, _, err := s.Resolve("work"); err != nil || kind != KindFile {
		t.Fatalf("Resolve(work) with shadowing file = %v, %v; want KindFile", kind, err)
	}
	if kind, _, err := s.Resolve("work/"); err != nil || kind != KindDir {
		t.Fatalf("Resolve(work/) = %v, %v; want KindDir", kind, err)
	}
}

func TestResolveEmptyQueryIsStoreRoot(t *testing.T) {
	s := newTestStore(t)
	kind, path, err := s.Resolve("")
	if err != nil || kind != KindDir || path != s.Dir {
		t.Fatalf("Resolve(\"\") = %v, %q, %v; want store root", kind, path, err)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	for _, q := range []string{"../outside", "a/../../b", "/abs"} {
		if _, _, err := s.Resolve(q); err == nil {
			t.Errorf("Resolve(%q) succeeded; want error", q)
		}
	}
}

func TestListSkipsHiddenFiles(t *testing.T) {
	s := newTestStore(t)
	// Hidden file and hidden directory must not show up.
	if err := os.WriteFile(filepath.Join(s.Dir, ".hidden.gpg"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(s.Dir, ".git"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, ".git", "secret.gpg"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"personal/bank/main", "top", "work/mail", "work/vpn"}
	if len(entries) != len(want) {
		t.Fatalf("List returned %d entries, want %d: %v", len(entries), len(want), entries)
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Errorf("entries[%d] = %q, want %q", i, entries[i].Name, name)
		}
	}
}

func TestFindIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.Find("MAIL")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "work/mail" {
		t.Fatalf("Find(MAIL) = %v, want [work/mail]", entries)
	}
}

func TestInsertRefusesOverwriteWithoutForce(t *testing.T) {
	s := newTestStore(t)
	err := s.InsertCiphertext("top", []byte("new"), false)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("InsertCiphertext without force = %v, want ErrExists", err)
	}
	if err := s.InsertCiphertext("top", []byte("new"), true); err != nil {
		t.Fatalf("InsertCiphertext with force failed: %v", err)
	}
	data, err := s.ReadCiphertext("top")
	if err != nil || string(data) != "new" {
		t.Fatalf("ReadCiphertext after overwrite = %q, %v", data, err)
	}
}

func TestRemovePrunesEmptyParents(t *testing.T) {
	s := newTestStore(t)
	if err := s.Remove("personal/bank/main", false); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir, "personal")); !os.IsNotExist(err) {
		t.Fatalf("personal/ was not pruned: %v", err)
	}
	// The store root itself must survive.
	if _, err := os.Stat(s.Dir); err != nil {
		t.Fatalf("store root vanished: %v", err)
	}
}

func TestRemoveFolderNeedsRecursive(t *testing.T) {
	s := newTestStore(t)
	if err := s.Remove("work", false); err == nil {
		t.Fatal("Remove(work) without recursive succeeded; want error")
	}
	if err := s.Remove("work", true); err != nil {
		t.Fatalf("Remove(work, recursive) failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir, "work")); !os.IsNotExist(err) {
		t.Fatal("work/ still exists after recursive removal")
	}
}

func TestMoveEntry(t *testing.T) {
	s := newTestStore(t)
	if err := s.Move("work/mail", "archive/mail"); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if s.Exists("work/mail") {
		t.Error("old entry still exists after move")
	}
	data, err := s.ReadCiphertext("archive/mail")
	if err != nil || string(data) != "ct:work/mail" {
		t.Fatalf("moved entry = %q, %v", data, err)
	}
}

func TestMoveRefusesExistingTarget(t *testing.T) {
	s := newTestStore(t)
	if err := s.Move("work/mail", "top"); !errors.Is(err, ErrExists) {
		t.Fatalf("Move onto existing entry = %v, want ErrExists", err)
	}
}

func TestCopyFolder(t *testing.T) {
	s := newTestStore(t)
	if err := s.Copy("work", "work-backup"); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	for _, name := range []string{"work/mail", "work-backup/mail", "work-backup/vpn"} {
		if !s.Exists(name) {
			t.Errorf("entry %s missing after copy", name)
		}
	}
}

func TestGpgIDs(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.GpgIDs(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("GpgIDs on fresh dir = %v, want ErrNotInitialized", err)
	}
	if err := s.Init([]string{"alice@example.com", "bob@example.com"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	ids, err := s.GpgIDs()
	if err != nil {
		t.Fatalf("GpgIDs failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alice@example.com" || ids[1] != "bob@example.com" {
		t.Fatalf("GpgIDs = %v", ids)
	}
}

func TestTreeRendering(t *testing.T) {
	s := newTestStore(t)
	out, err := s.Tree("")
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	if !strings.HasPrefix(out, DefaultTreeLabel) {
		t.Errorf("tree does not start with the store label:\n%s", out)
	}
	for _, want := range []string{"work", "mail", "vpn", "top", "bank"} {
		if !strings.Contains(out, want) {
			t.Errorf("tree output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, ".gpg-id") || strings.Contains(out, ".gpg\n") {
		t.Errorf("tree leaks hidden files or extensions:\n%s", out)
	}

	sub, err := s.Tree("work")
	if err != nil {
		t.Fatalf("Tree(work) failed: %v", err)
	}
	if !strings.HasPrefix(sub, "work") {
		t.Errorf("subtree label = %q, want to start with work", sub)
	}
	if strings.Contains(sub, "top") {
		t.Errorf("subtree contains entries outside the folder:\n%s", sub)
	}
}
