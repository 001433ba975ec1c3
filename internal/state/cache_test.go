// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

package state

import (
	"bytes"
	"testing"
)

func TestSnapshotMailboxRoundTrip(t *testing.T) {
	m := &snapshotMailbox{}

	if _, ok := m.Get(); ok {
		t.Fatal("empty mailbox reported a value")
	}

	original := []byte("previous clipboard")
	m.Set(original)

	// Mutating the caller's slice must not reach the stored copy.
	original[0] = 'X'
	got, ok := m.Get()
	if !ok || !bytes.Equal(got, []byte("previous clipboard")) {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	m.Clear()
	if _, ok := m.Get(); ok {
		t.Fatal("mailbox still set after Clear")
	}
}

func TestSnapshotMailboxNilValue(t *testing.T) {
	m := &snapshotMailbox{}
	m.Set(nil)
	got, ok := m.Get()
	if !ok || got != nil {
		t.Fatalf("Get after Set(nil) = %v, %v; want nil, true", got, ok)
	}
}
