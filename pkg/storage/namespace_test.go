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

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, 0600, int(opts.Permissions), "Default permissions should be 0600")
	assert.NotNil(t, opts.Metadata)

	opts.Metadata["k"] = "v"
	assert.Empty(t, DefaultOptions().Metadata, "Metadata should not be shared between instances")
}

func TestObjectPath(t *testing.T) {
	assert.Equal(t, "objects/0000000000000001", ObjectPath(1))
	assert.Equal(t, "objects/00000000deadbeef", ObjectPath(0xdeadbeef))

	h, err := ParseObjectPath(ObjectPath(0x80000001))
	require.NoError(t, err)
	assert.Equal(t, uint64(0x80000001), h)

	for _, bad := range []string{"objects/", "token/info", "objects/xyz"} {
		_, err := ParseObjectPath(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

// listBackend is a Backend stub that only lists keys.
type listBackend struct {
	Backend
	keys []string
}

func (b listBackend) List(prefix string) ([]string, error) {
	return b.keys, nil
}

func TestListObjects(t *testing.T) {
	b := listBackend{keys: []string{ObjectPath(9), ObjectPath(2), "objects/junk"}}

	handles, err := ListObjects(b)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 9}, handles)
}

func TestValidateKey(t *testing.T) {
	valid := []string{"objects/01", "token/info", "a..b/c"}
	for _, k := range valid {
		assert.NoError(t, ValidateKey(k), k)
	}

	invalid := []string{"", "/etc/passwd", "../escape", "objects/../../x", "nul\x00byte"}
	for _, k := range invalid {
		assert.ErrorIs(t, ValidateKey(k), ErrInvalidKey, k)
	}
}
