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

// Package storagetest holds the behavior every storage.Backend must share.
package storagetest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoki/pkg/storage"
)

// RunBackendTests exercises a backend created fresh by newBackend for each
// subtest.
func RunBackendTests(t *testing.T, newBackend func(t *testing.T) storage.Backend) {
	t.Run("PutGet", func(t *testing.T) {
		b := newBackend(t)
		values := map[string][]byte{
			storage.ObjectPath(1): {0x00, 0x01, 0xff},
			storage.TokenInfoKey:  []byte("info"),
			"empty":               {},
		}
		for k, v := range values {
			require.NoError(t, b.Put(k, v, nil))
		}
		for k, v := range values {
			got, err := b.Get(k)
			require.NoError(t, err, k)
			assert.Equal(t, len(v), len(got), k)
			if len(v) > 0 {
				assert.Equal(t, v, got, k)
			}
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Put("k", []byte("one"), nil))
		require.NoError(t, b.Put("k", []byte("two"), storage.DefaultOptions()))

		got, err := b.Get("k")
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), got)
	})

	t.Run("GetMissing", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Get(storage.ObjectPath(404))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Put("k", []byte("v"), nil))
		require.NoError(t, b.Delete("k"))

		exists, err := b.Exists("k")
		require.NoError(t, err)
		assert.False(t, exists)
		assert.ErrorIs(t, b.Delete("k"), storage.ErrNotFound)
	})

	t.Run("ListPrefix", func(t *testing.T) {
		b := newBackend(t)
		for _, h := range []uint64{3, 1, 2} {
			require.NoError(t, b.Put(storage.ObjectPath(h), []byte{byte(h)}, nil))
		}
		require.NoError(t, b.Put(storage.TokenInfoKey, []byte("info"), nil))

		keys, err := b.List(storage.ObjectPrefix)
		require.NoError(t, err)
		assert.Equal(t, []string{storage.ObjectPath(1), storage.ObjectPath(2), storage.ObjectPath(3)}, keys)

		all, err := b.List("")
		require.NoError(t, err)
		assert.Len(t, all, 4)

		handles, err := storage.ListObjects(b)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 3}, handles)
	})

	t.Run("DefensiveCopy", func(t *testing.T) {
		b := newBackend(t)
		value := []byte("original")
		require.NoError(t, b.Put("k", value, nil))
		value[0] = 'X'

		got, err := b.Get("k")
		require.NoError(t, err)
		assert.Equal(t, []byte("original"), got)

		got[0] = 'Y'
		again, err := b.Get("k")
		require.NoError(t, err)
		assert.Equal(t, []byte("original"), again)
	})

	t.Run("Concurrent", func(t *testing.T) {
		b := newBackend(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("objects/%016x", i)
				assert.NoError(t, b.Put(key, []byte{byte(i)}, nil))
				_, err := b.Get(key)
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		keys, err := b.List(storage.ObjectPrefix)
		require.NoError(t, err)
		assert.Len(t, keys, 8)
	})
}
