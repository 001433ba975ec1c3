// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

package pwgen

import (
	"strings"
	"testing"
)

func TestGenerateLength(t *testing.T) {
	for _, length := range []int{1, 8, DefaultLength, 64} {
		got, err := Generate(Options{Length: length})
		if err != nil {
			t.Fatalf("Generate(%d) failed: %v", length, err)
		}
		if len(got) != length {
			t.Errorf("Generate(%d) returned %d characters", length, len(got))
		}
	}
}

func TestGenerateDefaultsLength(t *testing.T) {
	got, err := Generate(Options{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(got) != DefaultLength {
		t.Errorf("Generate with zero length returned %d characters, want %d", len(got), DefaultLength)
	}
}

func TestGenerateNoSymbols(t *testing.T) {
	got, err := Generate(Options{Length: 256, NoSymbols: true})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for _, r := range got {
		if strings.ContainsRune(symbols, r) {
			t.Fatalf("no-symbols password contains %q", r)
		}
	}
}

func TestGenerateIsNotConstant(t *testing.T) {
	a, err := Generate(Options{Length: 32})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(Options{Length: 32})
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two generated passwords are identical")
	}
}
