// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptoki.
//
// go-cryptoki is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package password holds PINs and key-file passwords in memory that can be
// zeroed once they have been used.
package password

import (
	"crypto/subtle"
	"errors"
	"os"
)

var (
	// ErrEmptyPassword is returned when an empty password is provided.
	ErrEmptyPassword = errors.New("password cannot be empty")

	// ErrPasswordZeroed is returned when the password has been zeroed.
	ErrPasswordZeroed = errors.New("password has been zeroed")
)

// Secret is a password or PIN held as bytes.
type Secret struct {
	value []byte
}

// New copies b into a Secret.
func New(b []byte) (*Secret, error) {
	if len(b) == 0 {
		return nil, ErrEmptyPassword
	}
	v := make([]byte, len(b))
	copy(v, b)
	return &Secret{value: v}, nil
}

// FromString returns a Secret holding s.
func FromString(s string) (*Secret, error) {
	return New([]byte(s))
}

// Resolve returns the secret given on the command line, else the one in the
// environment variable env. It returns nil and no error when neither is set.
func Resolve(value, env string) (*Secret, error) {
	if value == "" && env != "" {
		value = os.Getenv(env)
	}
	if value == "" {
		return nil, nil
	}
	return FromString(value)
}

// Bytes returns a copy of the secret, or nil once it has been cleared. A
// nil Secret yields nil.
func (s *Secret) Bytes() []byte {
	if s == nil || s.value == nil {
		return nil
	}
	out := make([]byte, len(s.value))
	copy(out, s.value)
	return out
}

// String returns the secret as a string.
func (s *Secret) String() (string, error) {
	if s == nil || s.value == nil {
		return "", ErrPasswordZeroed
	}
	return string(s.value), nil
}

// Clear zeroes the secret. It is safe to call more than once and on nil.
func (s *Secret) Clear() {
	if s == nil || s.value == nil {
		return
	}
	clear(s.value)
	s.value = nil
}

// Equal compares two secrets in constant time.
func Equal(a, b *Secret) (bool, error) {
	ab, bb := a.Bytes(), b.Bytes()
	defer clear(ab)
	defer clear(bb)
	if ab == nil || bb == nil {
		return false, ErrPasswordZeroed
	}
	return subtle.ConstantTimeCompare(ab, bb) == 1, nil
}
