// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package state provides a secure, in-memory cache for transient application
// state, such as the clipboard contents saved before a timed copy, that needs
// to be shared between different parts of the application without ever
// touching disk.
package state

import "sync"

// ClipboardSnapshot is a simple, concurrency-safe, in-memory "mailbox" for
// the clipboard contents that were present before Point Guard copied a
// password. It uses a byte slice instead of a string so the data can be
// explicitly zeroed out after use.
var ClipboardSnapshot = &snapshotMailbox{}

type snapshotMailbox struct {
	value []byte
	set   bool
	mu    sync.RWMutex
}

// Set stores a copy of the snapshot. It overwrites any existing value.
func (s *snapshotMailbox) Set(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.set = true
	if data == nil {
		s.value = nil
		return
	}
	// Store a copy so the caller's original slice isn't held by the cache.
	s.value = make([]byte, len(data))
	copy(s.value, data)
}

// Get retrieves a copy of the snapshot and whether one was stored.
// The caller is responsible for zeroing out the returned byte slice after use.
// This method is safe for concurrent use by multiple goroutines.
func (s *snapshotMailbox) Get() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.set {
		return nil, false
	}
	if s.value == nil {
		return nil, true
	}
	out := make([]byte, len(s.value))
	copy(out, s.value)
	return out, true
}

// Clear securely wipes the snapshot from memory.
func (s *snapshotMailbox) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.value {
		s.value[i] = 0
	}
	s.value = nil
	s.set = false
}
