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

// Package wire implements the length-prefixed binary framing used for
// values that have no flat PKCS#11 layout: nested attribute templates,
// serialized mechanism parameters and persisted token object records.
//
// All integers are big-endian. A byte array is a uint32 length followed by
// the bytes. An optional byte array is preceded by a presence byte so nil and
// empty survive a round trip.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var byteOrder = binary.BigEndian

// ErrTrailingData is returned when a reader finishes with unread bytes.
var ErrTrailingData = errors.New("wire: trailing data")

// Buffer accumulates encoded values.
type Buffer struct {
	b []byte
}

// NewBuffer returns a buffer that appends to b.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{b: b}
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}

// Len returns the number of encoded bytes.
func (b *Buffer) Len() int {
	return len(b.b)
}

// Bytes returns the encoded bytes.
func (b *Buffer) Bytes() []byte {
	return b.b
}

func (b *Buffer) AddByte(by byte) {
	b.b = append(b.b, by)
}

func (b *Buffer) AddBool(v bool) {
	if v {
		b.AddByte(1)
		return
	}
	b.AddByte(0)
}

func (b *Buffer) AddUint32(n uint32) {
	var buff [4]byte
	byteOrder.PutUint32(buff[:], n)
	b.b = append(b.b, buff[:]...)
}

func (b *Buffer) AddUint64(n uint64) {
	var buff [8]byte
	byteOrder.PutUint64(buff[:], n)
	b.b = append(b.b, buff[:]...)
}

func (b *Buffer) AddByteArray(a []byte) {
	b.AddUint32(uint32(len(a)))
	b.b = append(b.b, a...)
}

// AddOptionalByteArray encodes a with a presence byte so a nil slice decodes
// back to nil.
func (b *Buffer) AddOptionalByteArray(a []byte) {
	if a == nil {
		b.AddByte(0)
		return
	}
	b.AddByte(1)
	b.AddByteArray(a)
}

func (b *Buffer) AddUint64Array(a []uint64) {
	b.AddUint32(uint32(len(a)))
	for _, n := range a {
		b.AddUint64(n)
	}
}

// Reader decodes values written by Buffer. The first failure sticks: later
// reads return zero values and Err reports the original error.
type Reader struct {
	b   []byte
	err error
}

// NewReader returns a reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.b)
}

// Err returns the first decoding error.
func (r *Reader) Err() error {
	return r.err
}

// Finish returns the first decoding error, or ErrTrailingData when bytes
// remain unread.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if len(r.b) != 0 {
		return fmt.Errorf("%w: %d bytes", ErrTrailingData, len(r.b))
	}
	return nil
}

func (r *Reader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("wire: reading %s: %w", what, io.ErrUnexpectedEOF)
	}
}

func (r *Reader) Byte() byte {
	if r.err != nil {
		return 0
	}
	if len(r.b) == 0 {
		r.fail("byte")
		return 0
	}
	by := r.b[0]
	r.b = r.b[1:]
	return by
}

func (r *Reader) Bool() bool {
	return r.Byte() != 0
}

func (r *Reader) Uint32() uint32 {
	if r.err != nil {
		return 0
	}
	if len(r.b) < 4 {
		r.fail("uint32")
		return 0
	}
	n := byteOrder.Uint32(r.b[:4])
	r.b = r.b[4:]
	return n
}

func (r *Reader) Uint64() uint64 {
	if r.err != nil {
		return 0
	}
	if len(r.b) < 8 {
		r.fail("uint64")
		return 0
	}
	n := byteOrder.Uint64(r.b[:8])
	r.b = r.b[8:]
	return n
}

// ByteArray returns a copy of the next length-prefixed byte array. An empty
// array decodes as a non-nil empty slice.
func (r *Reader) ByteArray() []byte {
	n := r.Uint32()
	if r.err != nil {
		return nil
	}
	if uint64(len(r.b)) < uint64(n) {
		r.fail("byte array")
		return nil
	}
	a := make([]byte, n)
	copy(a, r.b[:n])
	r.b = r.b[n:]
	return a
}

func (r *Reader) OptionalByteArray() []byte {
	if !r.Bool() {
		return nil
	}
	return r.ByteArray()
}

func (r *Reader) Uint64Array() []uint64 {
	n := r.Uint32()
	if r.err != nil {
		return nil
	}
	if uint64(len(r.b)) < uint64(n)*8 {
		r.fail("uint64 array")
		return nil
	}
	a := make([]uint64, n)
	for i := range a {
		a[i] = r.Uint64()
	}
	return a
}
