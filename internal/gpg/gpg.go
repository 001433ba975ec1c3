// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package gpg wraps the system GnuPG binary for encrypting and decrypting
// store entries. Point Guard deliberately keeps key management inside the
// user's existing GPG keyring rather than reimplementing OpenPGP.
package gpg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Cipher encrypts and decrypts store entries. The concrete implementation
// shells out to gpg; tests inject a fake.
type Cipher interface {
	Encrypt(ctx context.Context, plaintext []byte, recipients []string) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// GPG is a Cipher backed by the gpg executable.
type GPG struct {
	// Binary is the gpg executable to run. When empty, FindBinary picks one.
	Binary string
}

// New returns a GPG cipher using the given binary, falling back to
// auto-detection when binary is empty.
func New(binary string) *GPG {
	if binary == "" {
		binary = FindBinary()
	}
	return &GPG{Binary: binary}
}

// FindBinary locates the gpg executable, preferring gpg2 over gpg.
func FindBinary() string {
	for _, name := range []string{"gpg2", "gpg"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	// Let exec surface the real error at invocation time.
	return "gpg"
}

// Encrypt encrypts plaintext for the given recipients and returns the
// ciphertext.
func (g *GPG) Encrypt(ctx context.Context, plaintext []byte, recipients []string) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("gpg: no recipients; is the store initialized?")
	}
	args := []string{"--quiet", "--yes", "--batch", "--encrypt"}
	for _, r := range recipients {
		args = append(args, "-r", r)
	}
	return g.run(ctx, plaintext, args...)
}

// Decrypt decrypts ciphertext and returns the plaintext.
func (g *GPG) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return g.run(ctx, ciphertext, "--quiet", "--decrypt")
}

// run invokes gpg with stdin wired to input and returns stdout. Stderr is
// folded into the error on failure because gpg writes its diagnostics there.
func (g *GPG) run(ctx context.Context, input []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, g.Binary, args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("gpg %s failed: %s: %w", args[len(args)-1], detail, err)
		}
		return nil, fmt.Errorf("gpg %s failed: %w", args[len(args)-1], err)
	}
	return stdout.Bytes(), nil
}
