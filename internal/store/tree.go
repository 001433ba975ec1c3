// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

package store

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"
)

// DefaultTreeLabel is the root label used when the whole store is rendered.
const DefaultTreeLabel = "Point Guard Password Store"

// Tree renders the folder identified by query as a text tree. When query is
// empty the whole store is rendered under DefaultTreeLabel; otherwise the
// query itself becomes the root label.
func (s *Store) Tree(query string) (string, error) {
	kind, path, err := s.Resolve(query)
	if err != nil {
		return "", err
	}
	if kind != KindDir {
		// A lone file still renders as a single-node tree.
		name := strings.TrimSuffix(query, "/")
		return tree.Root(name).String() + "\n", nil
	}

	label := strings.TrimSuffix(query, "/")
	if label == "" {
		label = DefaultTreeLabel
	}
	root := tree.Root(label)
	if err := s.addBranch(root, path); err != nil {
		return "", err
	}
	return root.String() + "\n", nil
}

// addBranch appends the children of dir to t. Entries are shown without the
// .gpg extension; hidden names are skipped. os.ReadDir returns names sorted,
// which keeps the rendered tree stable.
func (s *Store) addBranch(t *tree.Tree, dir string) error {
	children, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, c := range children {
		if isHidden(c.Name()) {
			continue
		}
		if c.IsDir() {
			sub := tree.Root(c.Name())
			if err := s.addBranch(sub, dir+string(os.PathSeparator)+c.Name()); err != nil {
				return err
			}
			t.Child(sub)
			continue
		}
		if strings.HasSuffix(c.Name(), Extension) {
			t.Child(strings.TrimSuffix(c.Name(), Extension))
		}
	}
	return nil
}
