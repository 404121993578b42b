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
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
)

func TestTemplateSetReplacesInPlace(t *testing.T) {
	tmpl := NewTemplate()
	require.NoError(t, tmpl.Set(ck.CKA_CLASS, ck.CKO_SECRET_KEY))
	require.NoError(t, tmpl.Set(ck.CKA_LABEL, "first"))
	require.NoError(t, tmpl.Set(ck.CKA_TOKEN, true))

	require.NoError(t, tmpl.Set(ck.CKA_LABEL, "second"))

	assert.Equal(t, 3, tmpl.Len())
	assert.Equal(t, []uint64{ck.CKA_CLASS, ck.CKA_LABEL, ck.CKA_TOKEN}, tmpl.Codes())
	label, err := tmpl.Label()
	require.NoError(t, err)
	assert.Equal(t, "second", label)
}

func TestTemplateSetFailureLeavesSlot(t *testing.T) {
	tmpl := NewTemplate()
	require.NoError(t, tmpl.Set(ck.CKA_VALUE_LEN, 16))

	err := tmpl.Set(ck.CKA_VALUE_LEN, "sixteen")
	assert.ErrorIs(t, err, ErrInvalidValue)

	n, err := tmpl.ValueLen()
	require.NoError(t, err)
	assert.Equal(t, uint64(16), n)
}

func TestTemplateGetNotFound(t *testing.T) {
	tmpl := NewTemplate()
	_, err := tmpl.Get(ck.CKA_ID)
	assert.ErrorIs(t, err, ErrAttributeNotFound)
	assert.Contains(t, err.Error(), "CKA_ID")

	// A fetched attribute the object lacks is a slot, not an absence.
	missing, err := FromRaw(Raw{Type: ck.CKA_ID, Status: StatusTypeInvalid})
	require.NoError(t, err)
	tmpl.Put(missing)
	v, err := tmpl.Get(ck.CKA_ID)
	require.NoError(t, err)
	assert.False(t, v.Present())
}

func TestTemplateDelete(t *testing.T) {
	tmpl := NewTemplate()
	require.NoError(t, tmpl.Set(ck.CKA_CLASS, ck.CKO_DATA))
	require.NoError(t, tmpl.Set(ck.CKA_LABEL, "l"))
	require.NoError(t, tmpl.Set(ck.CKA_VALUE, []byte("v")))

	tmpl.Delete(ck.CKA_LABEL)
	assert.Equal(t, []uint64{ck.CKA_CLASS, ck.CKA_VALUE}, tmpl.Codes())
	value, err := tmpl.Bytes(ck.CKA_VALUE)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
	assert.False(t, tmpl.Has(ck.CKA_LABEL))
}

func TestTemplateRawSkipsAbsentValues(t *testing.T) {
	tmpl := NewTemplate()
	require.NoError(t, tmpl.Set(ck.CKA_TOKEN, false))
	absent, err := New(ck.CKA_ID)
	require.NoError(t, err)
	tmpl.Put(absent)

	raws, err := tmpl.Raw()
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, uint64(ck.CKA_TOKEN), raws[0].Type)
	assert.Equal(t, []byte{0}, raws[0].Value)

	back, err := FromRawTemplate(raws)
	require.NoError(t, err)
	b, err := back.Bool(ck.CKA_TOKEN)
	require.NoError(t, err)
	assert.False(t, b)
}

func TestTemplateMatches(t *testing.T) {
	obj, err := NewSecretKey(ck.CKK_AES).Label("k1").ID([]byte{1}).Build()
	require.NoError(t, err)

	filter, err := NewObject(ck.CKO_SECRET_KEY).Label("k1").Build()
	require.NoError(t, err)
	assert.True(t, obj.Matches(filter))

	filter, err = NewObject(ck.CKO_SECRET_KEY).Label("k2").Build()
	require.NoError(t, err)
	assert.False(t, obj.Matches(filter))

	filter, err = NewBuilder().Sign(true).Build()
	require.NoError(t, err)
	assert.False(t, obj.Matches(filter))

	assert.True(t, obj.Matches(NewTemplate()))
}

func TestSecretKeyBuilder(t *testing.T) {
	tmpl, err := NewSecretKey(ck.CKK_AES).
		Token(false).
		Encrypt(true).
		Decrypt(true).
		ValueLen(16).
		Build()
	require.NoError(t, err)

	class, err := tmpl.Class()
	require.NoError(t, err)
	assert.Equal(t, uint64(ck.CKO_SECRET_KEY), class)
	keyType, err := tmpl.KeyType()
	require.NoError(t, err)
	assert.Equal(t, uint64(ck.CKK_AES), keyType)
	n, err := tmpl.ValueLen()
	require.NoError(t, err)
	assert.Equal(t, uint64(16), n)
	enc, err := tmpl.Bool(ck.CKA_ENCRYPT)
	require.NoError(t, err)
	assert.True(t, enc)
}

func TestBuilderValidityDates(t *testing.T) {
	start := NewDate(2026, time.January, 1)
	end := NewDate(2027, time.December, 31)
	tmpl, err := NewSecretKey(ck.CKK_GENERIC_SECRET).
		Modifiable(false).
		StartDate(start).
		EndDate(end).
		Build()
	require.NoError(t, err)

	modifiable, err := tmpl.Bool(ck.CKA_MODIFIABLE)
	require.NoError(t, err)
	assert.False(t, modifiable)

	v, err := tmpl.Get(ck.CKA_START_DATE)
	require.NoError(t, err)
	got, err := v.Date()
	require.NoError(t, err)
	assert.Equal(t, start, got)

	v, err = tmpl.Get(ck.CKA_END_DATE)
	require.NoError(t, err)
	got, err = v.Date()
	require.NoError(t, err)
	assert.Equal(t, "2027-12-31", got.String())
}

func TestBuilderFirstErrorSticks(t *testing.T) {
	b := NewBuilder().
		SetName("CKA_LABEL", "ok").
		SetName("CKA_NOPE", true).
		Set(ck.CKA_TOKEN, "not a bool")

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorContains(t, err, "CKA_NOPE")

	// SetName resolves deprecated aliases.
	tmpl, err := NewBuilder().SetName("CKA_ECDSA_PARAMS", []byte{0x06, 0x01}).Build()
	require.NoError(t, err)
	params, err := tmpl.ECParams()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x06, 0x01}, params)
}

func TestBuilderBuildReturnsCopy(t *testing.T) {
	b := NewBuilder().Label("a")
	first, err := b.Build()
	require.NoError(t, err)
	b.Label("b")
	second, err := b.Build()
	require.NoError(t, err)

	l1, _ := first.Label()
	l2, _ := second.Label()
	assert.Equal(t, "a", l1)
	assert.Equal(t, "b", l2)
}

func TestKeyPairBuilderScopesAttributes(t *testing.T) {
	kp, err := NewKeyPair(ck.CKK_RSA).
		Token(true).
		ID([]byte("pair-1")).
		Sign(true).
		Verify(true).
		ModulusBits(2048).
		PublicExponent(big.NewInt(65537)).
		Build()
	require.NoError(t, err)

	for _, half := range []*Template{kp.Public, kp.Private} {
		tok, err := half.Bool(ck.CKA_TOKEN)
		require.NoError(t, err)
		assert.True(t, tok)
		id, err := half.ID()
		require.NoError(t, err)
		assert.Equal(t, []byte("pair-1"), id)
	}

	assert.True(t, kp.Private.Has(ck.CKA_SIGN))
	assert.False(t, kp.Public.Has(ck.CKA_SIGN))
	assert.True(t, kp.Public.Has(ck.CKA_VERIFY))
	assert.False(t, kp.Private.Has(ck.CKA_VERIFY))
	assert.False(t, kp.Private.Has(ck.CKA_MODULUS_BITS))

	e, err := kp.Public.PublicExponent()
	require.NoError(t, err)
	assert.Equal(t, int64(65537), e.Int64())

	class, err := kp.Private.Class()
	require.NoError(t, err)
	assert.Equal(t, uint64(ck.CKO_PRIVATE_KEY), class)
}

func TestTemplateString(t *testing.T) {
	tmpl, err := NewSecretKey(ck.CKK_AES).Label("k").Build()
	require.NoError(t, err)
	assert.Equal(t, `{CKA_CLASS=CKO_SECRET_KEY (0x00000004), CKA_KEY_TYPE=CKK_AES (0x0000001f), CKA_LABEL="k"}`, tmpl.String())
}
