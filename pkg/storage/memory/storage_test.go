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

package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeremyhahn/go-cryptoki/pkg/storage"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage/storagetest"
)

func TestBackend(t *testing.T) {
	storagetest.RunBackendTests(t, func(t *testing.T) storage.Backend {
		return New()
	})
}

func TestClosed(t *testing.T) {
	s := New()
	assert.NoError(t, s.Put("k", []byte("v"), nil))
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())

	_, err := s.Get("k")
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.ErrorIs(t, s.Put("k", nil, nil), storage.ErrClosed)
	assert.ErrorIs(t, s.Delete("k"), storage.ErrClosed)
	_, err = s.List("")
	assert.ErrorIs(t, err, storage.ErrClosed)
	_, err = s.Exists("k")
	assert.ErrorIs(t, err, storage.ErrClosed)
}

func TestRejectsUnsafeKey(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Put("../x", []byte("v"), nil), storage.ErrInvalidKey)
}
