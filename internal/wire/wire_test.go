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

package wire

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferReaderRoundTrip(t *testing.T) {
	b := NewBuffer(nil)
	b.AddByte(0x7f)
	b.AddBool(true)
	b.AddUint32(0xdeadbeef)
	b.AddUint64(0x0102030405060708)
	b.AddByteArray([]byte("hello"))
	b.AddOptionalByteArray(nil)
	b.AddOptionalByteArray([]byte{})
	b.AddUint64Array([]uint64{1, 2, 0x80000000})

	r := NewReader(b.Bytes())
	assert.Equal(t, byte(0x7f), r.Byte())
	assert.True(t, r.Bool())
	assert.Equal(t, uint32(0xdeadbeef), r.Uint32())
	assert.Equal(t, uint64(0x0102030405060708), r.Uint64())
	assert.Equal(t, []byte("hello"), r.ByteArray())
	assert.Nil(t, r.OptionalByteArray())
	empty := r.OptionalByteArray()
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
	assert.Equal(t, []uint64{1, 2, 0x80000000}, r.Uint64Array())
	require.NoError(t, r.Finish())
}

func TestBigEndianLayout(t *testing.T) {
	b := NewBuffer(nil)
	b.AddUint32(1)
	b.AddByteArray([]byte{0xaa})
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 1, 0xaa}, b.Bytes())
}

func TestReaderShortInput(t *testing.T) {
	r := NewReader([]byte{0, 0, 0, 9, 1, 2})
	assert.Nil(t, r.ByteArray())
	assert.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)

	// The first error sticks.
	assert.Zero(t, r.Uint64())
	assert.ErrorIs(t, r.Finish(), io.ErrUnexpectedEOF)

	r = NewReader([]byte{0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 1})
	assert.Nil(t, r.Uint64Array())
	assert.Error(t, r.Err())
}

func TestReaderTrailingData(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_ = r.Byte()
	assert.ErrorIs(t, r.Finish(), ErrTrailingData)
}
