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

package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoki/pkg/storage"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage/storagetest"
)

func TestBackend(t *testing.T) {
	storagetest.RunBackendTests(t, func(t *testing.T) storage.Backend {
		b, err := New(t.TempDir())
		require.NoError(t, err)
		return b
	})
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	b, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, b.Put(storage.ObjectPath(7), []byte("record"), nil))

	reopened, err := New(dir)
	require.NoError(t, err)
	got, err := reopened.Get(storage.ObjectPath(7))
	require.NoError(t, err)
	assert.Equal(t, []byte("record"), got)
}

func TestPermissions(t *testing.T) {
	dir := t.TempDir()
	b, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, b.Put("default", []byte("x"), nil))
	require.NoError(t, b.Put("custom", []byte("x"), &storage.Options{Permissions: 0640}))

	info, err := os.Stat(filepath.Join(dir, "default"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	info, err = os.Stat(filepath.Join(dir, "custom"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
}

func TestRejectsUnsafeKeys(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../outside", "/abs", "objects/../../x", "obj.tmp"} {
		assert.ErrorIs(t, b.Put(key, []byte("x"), nil), storage.ErrInvalidKey, key)
		_, err := b.Get(key)
		assert.ErrorIs(t, err, storage.ErrInvalidKey, key)
	}
}

func TestListSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	b, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, b.Put(storage.ObjectPath(1), []byte("x"), nil))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "objects", "0000000000000002.tmp"), []byte("torn"), 0600))

	keys, err := b.List(storage.ObjectPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{storage.ObjectPath(1)}, keys)
}
