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

package mechanism

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoki/internal/wire"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
)

func TestNewAndName(t *testing.T) {
	m := New(ck.CKM_SHA256_HMAC)
	assert.Equal(t, "CKM_SHA256_HMAC", m.Name())
	assert.Equal(t, "CKM_SHA256_HMAC", m.String())
	assert.Nil(t, m.Params)
	assert.Equal(t, symbol.FamilyNone, m.Family())

	m = New(ck.CKM_AES_CBC_PAD, IV(make([]byte, 16)))
	assert.Equal(t, "CKM_AES_CBC_PAD(bytes)", m.String())

	vendor := New(0x80001234)
	assert.Equal(t, "0x80001234", vendor.Name())
}

func TestValidate(t *testing.T) {
	r := symbol.Default()

	tests := []struct {
		name    string
		mech    *Mechanism
		wantErr bool
	}{
		{"no params expected", New(ck.CKM_SHA256), false},
		{"iv for cbc", New(ck.CKM_AES_CBC_PAD, IV(make([]byte, 16))), false},
		{"aead for gcm", New(ck.CKM_AES_GCM, NewAEADParams(make([]byte, 12), nil, 128)), false},
		{"oaep", New(ck.CKM_RSA_PKCS_OAEP, NewOAEPParams(ck.CKM_SHA256, ck.CKG_MGF1_SHA256, nil)), false},
		{"pss", New(ck.CKM_SHA256_RSA_PKCS_PSS, NewPSSParams(ck.CKM_SHA256, ck.CKG_MGF1_SHA256, 32)), false},
		{"ecdh", New(ck.CKM_ECDH1_DERIVE, NewECDHParams(ck.CKD_NULL, nil, []byte{4})), false},
		{"hkdf", New(ck.CKM_HKDF_DERIVE, &HKDFParams{Extract: true, Expand: true, PRF: ck.CKM_SHA256}), false},
		{"extra wraps matching family", New(ck.CKM_ECDSA, &ExtraParams{ECOrderBits: 256}), false},
		{"opaque family is not checked", New(ck.CKM_AES_CTR, IV([]byte{1})), false},
		{"vendor mechanism is not checked", New(0x80000001, IV([]byte{1})), false},
		{"missing iv", New(ck.CKM_AES_CBC_PAD), true},
		{"params where none expected", New(ck.CKM_SHA256_HMAC, IV([]byte{1})), true},
		{"wrong family", New(ck.CKM_AES_GCM, IV(make([]byte, 12))), true},
		{"pss on oaep", New(ck.CKM_RSA_PKCS_OAEP, NewPSSParams(ck.CKM_SHA256, ck.CKG_MGF1_SHA256, 32)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mech.Validate(r)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrParamMismatch)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateMessage(t *testing.T) {
	r := symbol.Default()
	gcm := New(ck.CKM_AES_GCM)

	assert.NoError(t, gcm.ValidateMessage(r, NewMessageParams(make([]byte, 12), 128)))
	assert.ErrorIs(t, gcm.ValidateMessage(r, nil), ErrParamMismatch)
	assert.ErrorIs(t, gcm.ValidateMessage(r, NewAEADParams(nil, nil, 128)), ErrParamMismatch)

	hmac := New(ck.CKM_SHA256_HMAC)
	assert.NoError(t, hmac.ValidateMessage(r, nil))
	assert.ErrorIs(t, hmac.ValidateMessage(r, IV([]byte{1})), ErrParamMismatch)
}

func TestValidateMessageInit(t *testing.T) {
	r := symbol.Default()

	assert.NoError(t, New(ck.CKM_AES_GCM).ValidateMessageInit(r))
	assert.ErrorIs(t, New(ck.CKM_AES_GCM, NewAEADParams(make([]byte, 12), nil, 128)).ValidateMessageInit(r), ErrParamMismatch)
	assert.NoError(t, New(0x80001234, IV([]byte{1})).ValidateMessageInit(r))
}

func TestInnerStripsExtra(t *testing.T) {
	inner := IV([]byte{9})
	m := New(ck.CKM_ECDSA_SHA256, &ExtraParams{Inner: inner, ECOrderBits: 521})
	assert.Equal(t, 521, m.ECOrderBits())

	stripped := m.Inner()
	assert.Equal(t, m.Type, stripped.Type)
	assert.Equal(t, inner, stripped.Params)
	assert.Equal(t, 0, stripped.ECOrderBits())

	plain := New(ck.CKM_ECDSA)
	assert.Same(t, plain, plain.Inner())
}

func TestAEADDataLen(t *testing.T) {
	p := NewAEADParams([]byte{1, 2, 3}, []byte("aad"), 128)
	fresh := p.WithDataLen(64)
	assert.Equal(t, uint64(0), p.DataLen(), "WithDataLen must not touch the receiver")
	assert.Equal(t, uint64(64), fresh.DataLen())
	assert.Equal(t, p.Nonce(), fresh.Nonce())
	assert.Equal(t, p.AAD(), fresh.AAD())

	p.SetDataLen(32)
	assert.Equal(t, uint64(32), p.DataLen())
}

func TestAEADParamsCopyInputs(t *testing.T) {
	nonce := []byte{1, 2, 3}
	p := NewAEADParams(nonce, nil, 96)
	nonce[0] = 0xff
	assert.Equal(t, []byte{1, 2, 3}, p.Nonce())
}

func TestMessageParamsTag(t *testing.T) {
	p := NewMessageParams([]byte{1}, 128)
	assert.Nil(t, p.Tag())
	p.SetTag([]byte{0xaa, 0xbb})
	assert.Equal(t, []byte{0xaa, 0xbb}, p.Tag())

	d := NewMessageParamsWithTag([]byte{1}, make([]byte, 16))
	assert.Equal(t, 128, d.TagBits())
}

func TestWireLayouts(t *testing.T) {
	b, err := IV([]byte{1, 2}).MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)

	b, err = NewPSSParams(ck.CKM_SHA256, ck.CKG_MGF1_SHA256, 32).MarshalBinary()
	require.NoError(t, err)
	r := wire.NewReader(b)
	assert.Equal(t, uint64(ck.CKM_SHA256), r.Uint64())
	assert.Equal(t, uint64(ck.CKG_MGF1_SHA256), r.Uint64())
	assert.Equal(t, uint64(32), r.Uint64())
	require.NoError(t, r.Finish())

	b, err = NewAEADParams([]byte{7}, nil, 128).WithDataLen(5).MarshalBinary()
	require.NoError(t, err)
	r = wire.NewReader(b)
	assert.Equal(t, []byte{7}, r.OptionalByteArray())
	assert.Nil(t, r.OptionalByteArray())
	assert.Equal(t, uint32(128), r.Uint32())
	assert.Equal(t, uint64(5), r.Uint64())
	require.NoError(t, r.Finish())

	_, err = NewAEADParams(nil, nil, 100).MarshalBinary()
	assert.ErrorIs(t, err, ErrParamMismatch)

	b, err = NewOAEPParams(ck.CKM_SHA_1, ck.CKG_MGF1_SHA1, []byte("label")).MarshalBinary()
	require.NoError(t, err)
	r = wire.NewReader(b)
	r.Uint64()
	r.Uint64()
	assert.Equal(t, []byte("label"), r.OptionalByteArray())
	require.NoError(t, r.Finish())

	extra := &ExtraParams{Inner: IV([]byte{3})}
	b, err = extra.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, b)
}
