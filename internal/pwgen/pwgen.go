// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package pwgen generates random passwords for the generate command. It
// draws from crypto/rand; password characters never come from a seedable
// source.
package pwgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	symbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// DefaultLength is used when neither the config nor the command line sets a
// length.
const DefaultLength = 25

// Options controls password generation.
type Options struct {
	Length    int
	NoSymbols bool
}

// Generate returns a random password. With NoSymbols the alphabet is
// restricted to letters and digits.
func Generate(opts Options) (string, error) {
	length := opts.Length
	if length <= 0 {
		length = DefaultLength
	}
	alphabet := letters + digits
	if !opts.NoSymbols {
		alphabet += symbols
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
