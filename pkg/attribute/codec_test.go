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

package attribute

import (
	"encoding/binary"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
)

func roundTrip(t *testing.T, v *Value) *Value {
	t.Helper()
	b, err := Encode(v)
	require.NoError(t, err)
	out, err := Decode(v.Code(), b)
	require.NoError(t, err)
	return out
}

func TestRoundTripPerKind(t *testing.T) {
	nested := NewTemplate()
	require.NoError(t, nested.Set(ck.CKA_CLASS, ck.CKO_SECRET_KEY))
	require.NoError(t, nested.Set(ck.CKA_EXTRACTABLE, false))

	tests := []struct {
		name string
		code uint64
		in   any
	}{
		{"bool true", ck.CKA_TOKEN, true},
		{"bool false", ck.CKA_SENSITIVE, false},
		{"ulong", ck.CKA_VALUE_LEN, uint64(32)},
		{"ulong max", ck.CKA_MODULUS_BITS, ^uint64(0)},
		{"bytes", ck.CKA_ID, []byte{0xde, 0xad, 0xbe, 0xef}},
		{"empty bytes", ck.CKA_ID, []byte{}},
		{"string", ck.CKA_LABEL, "signing key"},
		{"empty string", ck.CKA_LABEL, ""},
		{"min date", ck.CKA_START_DATE, NewDate(1, time.January, 1)},
		{"max date", ck.CKA_END_DATE, NewDate(9999, time.December, 31)},
		{"empty date", ck.CKA_END_DATE, Date{}},
		{"mechanism", ck.CKA_KEY_GEN_MECHANISM, uint64(ck.CKM_AES_KEY_GEN)},
		{"mechanism list", ck.CKA_ALLOWED_MECHANISMS, []uint64{ck.CKM_AES_GCM, ck.CKM_AES_CBC_PAD}},
		{"empty mechanism list", ck.CKA_ALLOWED_MECHANISMS, []uint64{}},
		{"nested template", ck.CKA_WRAP_TEMPLATE, nested},
		{"empty nested template", ck.CKA_UNWRAP_TEMPLATE, NewTemplate()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewWith(tt.code, tt.in)
			require.NoError(t, err)
			assert.True(t, v.Present())
			assert.True(t, v.StateKnown())

			out := roundTrip(t, v)
			assert.True(t, v.Equal(out), "got %s, want %s", out.Format(), v.Format())
		})
	}
}

func TestAbsentValueRoundTrip(t *testing.T) {
	for _, code := range []uint64{ck.CKA_TOKEN, ck.CKA_VALUE_LEN, ck.CKA_ID, ck.CKA_LABEL,
		ck.CKA_START_DATE, ck.CKA_KEY_GEN_MECHANISM, ck.CKA_ALLOWED_MECHANISMS, ck.CKA_WRAP_TEMPLATE} {
		v, err := New(code)
		require.NoError(t, err)
		assert.False(t, v.Present())

		b, err := Encode(v)
		require.NoError(t, err)
		assert.Nil(t, b)

		out, err := Decode(code, nil)
		require.NoError(t, err)
		assert.False(t, out.Present())
		assert.True(t, out.StateKnown())
		assert.True(t, v.Equal(out))
	}
}

func TestUlongWireLayout(t *testing.T) {
	v, err := NewWith(ck.CKA_CLASS, ck.CKO_PRIVATE_KEY)
	require.NoError(t, err)
	b, err := Encode(v)
	require.NoError(t, err)
	require.Len(t, b, 8)
	assert.Equal(t, uint64(ck.CKO_PRIVATE_KEY), binary.NativeEndian.Uint64(b))

	// 32-bit CK_ULONG slots are accepted.
	short := make([]byte, 4)
	binary.NativeEndian.PutUint32(short, 7)
	out, err := Decode(ck.CKA_VALUE_LEN, short)
	require.NoError(t, err)
	n, err := out.Uint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)

	_, err = Decode(ck.CKA_VALUE_LEN, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestUint32Narrowing(t *testing.T) {
	v, err := NewWith(ck.CKA_VALUE_LEN, uint64(0xffffffff))
	require.NoError(t, err)
	n, err := v.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xffffffff), n)

	require.NoError(t, v.SetUint64(1<<32))
	_, err = v.Uint32()
	assert.ErrorIs(t, err, ErrValueOverflow)
}

func TestDateWireLayout(t *testing.T) {
	v, err := NewWith(ck.CKA_START_DATE, NewDate(2024, time.March, 7))
	require.NoError(t, err)
	b, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, []byte("20240307"), b)

	out, err := Decode(ck.CKA_START_DATE, []byte("00010101"))
	require.NoError(t, err)
	d, err := out.Date()
	require.NoError(t, err)
	assert.Equal(t, NewDate(1, time.January, 1), d)
	assert.Equal(t, time.January, d.Time().Month())

	for _, bad := range []string{"2024130a", "20241301", "20240100", "20240132", "2024011"} {
		_, err := Decode(ck.CKA_START_DATE, []byte(bad))
		assert.ErrorIs(t, err, ErrInvalidValue, bad)
	}

	_, err = NewWith(ck.CKA_END_DATE, NewDate(10000, time.January, 1))
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestDateFromTime(t *testing.T) {
	v, err := NewWith(ck.CKA_END_DATE, time.Date(2030, time.June, 9, 23, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	b, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, "20300609", string(b))
}

func TestUnsignedBigInt(t *testing.T) {
	// 0x80 has its top bit set: two's complement would need a leading zero
	// byte, the unsigned encoding must not carry it.
	n := new(big.Int).SetBytes([]byte{0x80, 0x00, 0x01})
	v, err := NewWith(ck.CKA_MODULUS, n)
	require.NoError(t, err)
	b, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x00, 0x01}, b)

	out, err := Decode(ck.CKA_MODULUS, b)
	require.NoError(t, err)
	got, err := out.BigInt()
	require.NoError(t, err)
	assert.Equal(t, 1, got.Sign())
	assert.Equal(t, 0, n.Cmp(got))

	// Read as two's complement the same bytes are negative.
	signed, err := out.SignedBigInt()
	require.NoError(t, err)
	assert.Equal(t, -1, signed.Sign())

	zero, err := NewWith(ck.CKA_PUBLIC_EXPONENT, big.NewInt(0))
	require.NoError(t, err)
	zb, err := Encode(zero)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, zb)

	_, err = NewWith(ck.CKA_MODULUS, big.NewInt(-5))
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestSignedBigInt(t *testing.T) {
	tests := []struct {
		n    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x00, 0x80}},
		{-1, []byte{0xff}},
		{-128, []byte{0x80}},
		{-129, []byte{0xff, 0x7f}},
		{-256, []byte{0xff, 0x00}},
		{-32768, []byte{0x80, 0x00}},
	}
	for _, tt := range tests {
		v, err := New(ck.CKA_VALUE)
		require.NoError(t, err)
		require.NoError(t, v.SetSignedBigInt(big.NewInt(tt.n)))
		b, err := v.Bytes()
		require.NoError(t, err)
		assert.Equal(t, tt.want, b, "encoding %d", tt.n)

		got, err := v.SignedBigInt()
		require.NoError(t, err)
		assert.Equal(t, tt.n, got.Int64())
	}
}

func TestClassifyAndUnknownTypes(t *testing.T) {
	kind, err := Classify(ck.CKA_EC_PARAMS)
	require.NoError(t, err)
	assert.Equal(t, symbol.KindBytes, kind)

	_, err = New(0x7ff00000)
	assert.ErrorIs(t, err, ErrUnknownAttributeType)

	_, err = Decode(0x7ff00000, []byte{1})
	assert.ErrorIs(t, err, ErrUnknownAttributeType)
}

func TestWrongInputType(t *testing.T) {
	_, err := NewWith(ck.CKA_TOKEN, "yes")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = NewWith(ck.CKA_VALUE_LEN, -1)
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = NewWith(ck.CKA_WRAP_TEMPLATE, []byte{1})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestAccessorKindMismatch(t *testing.T) {
	v, err := NewWith(ck.CKA_LABEL, "x")
	require.NoError(t, err)

	_, err = v.Bool()
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.ErrorIs(t, v.SetUint64(1), ErrKindMismatch)

	s, err := v.Text()
	require.NoError(t, err)
	assert.Equal(t, "x", s)
}

func TestFromRawStatus(t *testing.T) {
	v, err := FromRaw(Raw{Type: ck.CKA_VALUE, Status: StatusSensitive})
	require.NoError(t, err)
	assert.True(t, v.StateKnown())
	assert.True(t, v.Present())
	assert.True(t, v.Sensitive())
	_, err = v.Bytes()
	assert.ErrorIs(t, err, ErrSensitive)

	v, err = FromRaw(Raw{Type: ck.CKA_MODULUS, Status: StatusTypeInvalid})
	require.NoError(t, err)
	assert.True(t, v.StateKnown())
	assert.False(t, v.Present())
	_, err = v.Bytes()
	assert.ErrorIs(t, err, ErrNotPresent)

	v, err = FromRaw(Raw{Type: ck.CKA_LABEL, Status: StatusUnavailable})
	require.NoError(t, err)
	assert.False(t, v.StateKnown())
	_, err = v.Text()
	assert.ErrorIs(t, err, ErrNotPresent)

	v, err = FromRaw(Raw{Type: ck.CKA_ID, Value: nil, Status: StatusOK})
	require.NoError(t, err)
	assert.True(t, v.Present())
	id, err := v.Bytes()
	require.NoError(t, err)
	assert.Empty(t, id)

	raw, err := v.Raw()
	require.NoError(t, err)
	assert.Equal(t, StatusOK, raw.Status)
}

func TestFromRawWithoutStorage(t *testing.T) {
	tests := []struct {
		name    string
		code    uint64
		present bool
		check   func(t *testing.T, v *Value)
	}{
		{"bool", ck.CKA_TOKEN, false, func(t *testing.T, v *Value) {
			_, err := v.Bool()
			assert.ErrorIs(t, err, ErrNotPresent)
		}},
		{"ulong", ck.CKA_VALUE_LEN, false, func(t *testing.T, v *Value) {
			_, err := v.Uint64()
			assert.ErrorIs(t, err, ErrNotPresent)
		}},
		{"mechanism", ck.CKA_KEY_GEN_MECHANISM, false, func(t *testing.T, v *Value) {
			_, err := v.Mechanism()
			assert.ErrorIs(t, err, ErrNotPresent)
		}},
		{"bytes", ck.CKA_ID, true, func(t *testing.T, v *Value) {
			b, err := v.Bytes()
			require.NoError(t, err)
			assert.Empty(t, b)
		}},
		{"string", ck.CKA_LABEL, true, func(t *testing.T, v *Value) {
			s, err := v.Text()
			require.NoError(t, err)
			assert.Empty(t, s)
		}},
		{"date", ck.CKA_START_DATE, true, func(t *testing.T, v *Value) {
			d, err := v.Date()
			require.NoError(t, err)
			assert.True(t, d.IsZero())
		}},
		{"mechanism array", ck.CKA_ALLOWED_MECHANISMS, true, func(t *testing.T, v *Value) {
			m, err := v.Mechanisms()
			require.NoError(t, err)
			assert.Empty(t, m)
		}},
		{"attribute array", ck.CKA_WRAP_TEMPLATE, true, func(t *testing.T, v *Value) {
			tmpl, err := v.Template()
			require.NoError(t, err)
			assert.Equal(t, 0, tmpl.Len())
		}},
	}
	for _, tt := range tests {
		for _, storage := range [][]byte{nil, {}} {
			name := tt.name + "/nil"
			if storage != nil {
				name = tt.name + "/empty"
			}
			t.Run(name, func(t *testing.T) {
				v, err := FromRaw(Raw{Type: tt.code, Value: storage, Status: StatusOK})
				require.NoError(t, err)
				assert.True(t, v.StateKnown())
				assert.Equal(t, tt.present, v.Present())
				tt.check(t, v)
			})
		}
	}
}

func TestFetchedTemplateWithEmptyFixedSlot(t *testing.T) {
	raws := []Raw{
		{Type: ck.CKA_LABEL, Value: []byte("key"), Status: StatusOK},
		{Type: ck.CKA_TOKEN, Status: StatusOK},
	}
	tmpl := NewTemplate()
	for _, r := range raws {
		v, err := FromRaw(r)
		require.NoError(t, err)
		tmpl.Put(v)
	}
	label, err := tmpl.Label()
	require.NoError(t, err)
	assert.Equal(t, "key", label)
	_, err = tmpl.Bool(ck.CKA_TOKEN)
	assert.ErrorIs(t, err, ErrNotPresent)
}

func TestNestedTemplateKeepsFlags(t *testing.T) {
	inner := NewTemplate()
	sensitive, err := FromRaw(Raw{Type: ck.CKA_VALUE, Status: StatusSensitive})
	require.NoError(t, err)
	inner.Put(sensitive)
	require.NoError(t, inner.Set(ck.CKA_LABEL, "inner"))

	v, err := NewWith(ck.CKA_UNWRAP_TEMPLATE, inner)
	require.NoError(t, err)
	out := roundTrip(t, v)

	got, err := out.Template()
	require.NoError(t, err)
	value, err := got.Get(ck.CKA_VALUE)
	require.NoError(t, err)
	assert.True(t, value.Sensitive())
	label, err := got.Label()
	require.NoError(t, err)
	assert.Equal(t, "inner", label)
}
