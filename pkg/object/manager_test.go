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

package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// attrSession answers attribute reads from a fixed table the way a token
// without per-attribute status reporting does: a bulk read fails as a
// whole when any attribute is sensitive or missing.
type attrSession struct {
	token.Session

	values    map[uint64][]byte
	sensitive map[uint64]bool
	reads     [][]uint64
	found     []token.ObjectHandle
	wrapped   []byte
	generated []attribute.Raw
}

func (s *attrSession) GetAttributeValue(_ token.ObjectHandle, types []uint64) ([]attribute.Raw, error) {
	s.reads = append(s.reads, types)
	out := make([]attribute.Raw, 0, len(types))
	for _, typ := range types {
		if s.sensitive[typ] {
			return nil, token.NewError("C_GetAttributeValue", ck.CKR_ATTRIBUTE_SENSITIVE)
		}
		v, ok := s.values[typ]
		if !ok {
			return nil, token.NewError("C_GetAttributeValue", ck.CKR_ATTRIBUTE_TYPE_INVALID)
		}
		out = append(out, attribute.Raw{Type: typ, Value: v})
	}
	return out, nil
}

func (s *attrSession) FindObjects([]attribute.Raw, int) ([]token.ObjectHandle, error) {
	return s.found, nil
}

func (s *attrSession) WrapKey(_ *mechanism.Mechanism, _, _ token.ObjectHandle, dst []byte) (int, error) {
	if dst == nil {
		return len(s.wrapped), nil
	}
	if len(dst) < len(s.wrapped) {
		return len(s.wrapped), token.NewError("C_WrapKey", ck.CKR_BUFFER_TOO_SMALL)
	}
	return copy(dst, s.wrapped), nil
}

func (s *attrSession) GenerateKey(_ *mechanism.Mechanism, raw []attribute.Raw) (token.ObjectHandle, error) {
	s.generated = raw
	return 42, nil
}

func newManager(s *attrSession) *Manager {
	return NewManager(s, WithLogger(logging.Discard()))
}

func ulong(n uint64) []byte {
	v, _ := attribute.NewWith(ck.CKA_VALUE_LEN, n)
	b, _ := attribute.Encode(v)
	return b
}

func TestFetchBulk(t *testing.T) {
	s := &attrSession{values: map[uint64][]byte{
		ck.CKA_LABEL:     []byte("aes key"),
		ck.CKA_VALUE_LEN: ulong(32),
	}}
	m := newManager(s)

	tmpl, err := m.Fetch(1, ck.CKA_LABEL, ck.CKA_VALUE_LEN)
	require.NoError(t, err)
	assert.Len(t, s.reads, 1)

	label, err := tmpl.Label()
	require.NoError(t, err)
	assert.Equal(t, "aes key", label)
	n, err := tmpl.ValueLen()
	require.NoError(t, err)
	assert.Equal(t, uint64(32), n)
}

func TestFetchFallsBackPerAttribute(t *testing.T) {
	s := &attrSession{
		values:    map[uint64][]byte{ck.CKA_LABEL: []byte("secret")},
		sensitive: map[uint64]bool{ck.CKA_VALUE: true},
	}
	m := newManager(s)

	tmpl, err := m.Fetch(1, ck.CKA_LABEL, ck.CKA_VALUE, ck.CKA_MODULUS)
	require.NoError(t, err)
	assert.Len(t, s.reads, 4)
	assert.Equal(t, []uint64{ck.CKA_LABEL, ck.CKA_VALUE, ck.CKA_MODULUS}, tmpl.Codes())

	label, err := tmpl.Get(ck.CKA_LABEL)
	require.NoError(t, err)
	assert.True(t, label.Present())
	assert.False(t, label.Sensitive())

	value, err := tmpl.Get(ck.CKA_VALUE)
	require.NoError(t, err)
	assert.True(t, value.StateKnown())
	assert.True(t, value.Present())
	assert.True(t, value.Sensitive())
	_, err = value.Bytes()
	assert.ErrorIs(t, err, attribute.ErrSensitive)

	modulus, err := tmpl.Get(ck.CKA_MODULUS)
	require.NoError(t, err)
	assert.True(t, modulus.StateKnown())
	assert.False(t, modulus.Present())
}

func TestFetchRejectsUnknownAttribute(t *testing.T) {
	s := &attrSession{}
	m := newManager(s)

	_, err := m.Fetch(1, ck.CKA_LABEL, 0x7fff0001)
	assert.ErrorIs(t, err, attribute.ErrUnknownAttributeType)
	assert.Empty(t, s.reads)
}

func TestFindOne(t *testing.T) {
	s := &attrSession{}
	m := newManager(s)
	filter, err := attribute.NewObject(ck.CKO_SECRET_KEY).Label("k").Build()
	require.NoError(t, err)

	_, err = m.FindOne(filter)
	assert.ErrorIs(t, err, ErrNotFound)

	s.found = []token.ObjectHandle{3}
	h, err := m.FindOne(filter)
	require.NoError(t, err)
	assert.Equal(t, token.ObjectHandle(3), h)

	s.found = []token.ObjectHandle{3, 4}
	_, err = m.FindOne(filter)
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestWrapProbesThenFills(t *testing.T) {
	s := &attrSession{wrapped: []byte("0123456789abcdef01234567")}
	m := newManager(s)

	out, err := m.Wrap(mechanism.New(ck.CKM_AES_KEY_WRAP), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, s.wrapped, out)
}

func TestGenerateKeyValidatesMechanism(t *testing.T) {
	s := &attrSession{}
	m := newManager(s)
	tmpl, err := attribute.NewSecretKey(ck.CKK_AES).ValueLen(32).Build()
	require.NoError(t, err)

	_, err = m.GenerateKey(mechanism.New(ck.CKM_AES_GCM), tmpl)
	assert.ErrorIs(t, err, mechanism.ErrParamMismatch)
	assert.Nil(t, s.generated)

	h, err := m.GenerateKey(mechanism.New(ck.CKM_AES_KEY_GEN), tmpl)
	require.NoError(t, err)
	assert.Equal(t, token.ObjectHandle(42), h)
	assert.Len(t, s.generated, 3)

	_, err = m.GenerateKey(mechanism.New(ck.CKM_AES_KEY_GEN), nil)
	assert.ErrorIs(t, err, ErrNilTemplate)
}
