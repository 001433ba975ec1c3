// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

package testutil

import (
	"context"
	"fmt"
	"strings"
)

// FakeCipher is a reversible stand-in for the GPG binary used by tests. It
// wraps plaintext in a marker instead of encrypting.
type FakeCipher struct {
	Recipients []string
}

func (f *FakeCipher) Encrypt(ctx context.Context, plaintext []byte, recipients []string) ([]byte, error) {
	f.Recipients = recipients
	return []byte("FAKE[" + string(plaintext) + "]"), nil
}

func (f *FakeCipher) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	s := string(ciphertext)
	if !strings.HasPrefix(s, "FAKE[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("not fake ciphertext: %q", s)
	}
	return []byte(strings.TrimSuffix(strings.TrimPrefix(s, "FAKE["), "]")), nil
}

// FakeAuditWriter records audit actions in memory.
type FakeAuditWriter struct {
	Actions []string
	Details []string
}

func (f *FakeAuditWriter) Record(action, details string) {
	f.Actions = append(f.Actions, action)
	f.Details = append(f.Details, details)
}