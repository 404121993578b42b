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

package operation

import (
	"errors"

	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// Sign signs data with key in a single step and returns the signature.
func (e *Engine) Sign(m *mechanism.Mechanism, key token.ObjectHandle, data []byte) ([]byte, error) {
	if err := e.Init(KindSign, m, key); err != nil {
		return nil, err
	}
	return e.singleAlloc(data)
}

// Verify checks signature over data with key in a single step.
func (e *Engine) Verify(m *mechanism.Mechanism, key token.ObjectHandle, data, signature []byte) error {
	if err := e.Init(KindVerify, m, key); err != nil {
		return err
	}
	return e.VerifySingle(data, signature)
}

// Encrypt encrypts data with key in a single step. AEAD parameters are
// copied with the data length set.
func (e *Engine) Encrypt(m *mechanism.Mechanism, key token.ObjectHandle, data []byte) ([]byte, error) {
	if err := e.Init(KindEncrypt, withDataLen(m, len(data)), key); err != nil {
		return nil, err
	}
	return e.singleAlloc(data)
}

// Decrypt decrypts data with key in a single step.
func (e *Engine) Decrypt(m *mechanism.Mechanism, key token.ObjectHandle, data []byte) ([]byte, error) {
	n := len(data)
	if p := aeadParams(m); p != nil {
		n = max(0, n-p.TagBits()/8)
	}
	if err := e.Init(KindDecrypt, withDataLen(m, n), key); err != nil {
		return nil, err
	}
	return e.singleAlloc(data)
}

// Digest hashes data in a single step.
func (e *Engine) Digest(m *mechanism.Mechanism, data []byte) ([]byte, error) {
	if err := e.Init(KindDigest, m, 0); err != nil {
		return nil, err
	}
	return e.singleAlloc(data)
}

// EncryptMessage encrypts one complete message inside an active message
// encryption. The token stores the tag in params.
func (e *Engine) EncryptMessage(params mechanism.Params, aad, plaintext []byte) ([]byte, error) {
	return e.oneMessage(params, aad, plaintext)
}

// DecryptMessage decrypts one complete message inside an active message
// decryption.
func (e *Engine) DecryptMessage(params mechanism.Params, aad, ciphertext []byte) ([]byte, error) {
	return e.oneMessage(params, aad, ciphertext)
}

// SignMessage signs one complete message inside an active message signing.
func (e *Engine) SignMessage(params mechanism.Params, data []byte) ([]byte, error) {
	return e.oneMessage(params, nil, data)
}

// VerifyMessage verifies one complete message inside an active message
// verification.
func (e *Engine) VerifyMessage(params mechanism.Params, data, signature []byte) error {
	if err := e.MessageBegin(params, nil); err != nil {
		return err
	}
	return e.MessageVerifyEnd(params, data, signature)
}

func (e *Engine) oneMessage(params mechanism.Params, aad, data []byte) ([]byte, error) {
	if err := e.MessageBegin(params, aad); err != nil {
		return nil, err
	}
	n, err := e.MessageEndSize(params, data)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	n, err = e.MessageEnd(params, data, out)
	var small *BufferTooSmallError
	if errors.As(err, &small) {
		out = make([]byte, small.Required)
		n, err = e.MessageEnd(params, data, out)
	}
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// singleAlloc probes the output size and fills a buffer of that size. A
// token that under-reports the size gets one retry with the size it asks
// for.
func (e *Engine) singleAlloc(data []byte) ([]byte, error) {
	n, err := e.SingleSize(data)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	n, err = e.Single(data, out)
	var small *BufferTooSmallError
	if errors.As(err, &small) {
		out = make([]byte, small.Required)
		n, err = e.Single(data, out)
	}
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

func aeadParams(m *mechanism.Mechanism) *mechanism.AEADParams {
	if m == nil {
		return nil
	}
	p, _ := m.Inner().Params.(*mechanism.AEADParams)
	return p
}

func withDataLen(m *mechanism.Mechanism, n int) *mechanism.Mechanism {
	p := aeadParams(m)
	if p == nil {
		return m
	}
	fresh := p.WithDataLen(uint64(n))
	if extra, ok := m.Params.(*mechanism.ExtraParams); ok {
		return mechanism.New(m.Type, &mechanism.ExtraParams{Inner: fresh, ECOrderBits: extra.ECOrderBits})
	}
	return mechanism.New(m.Type, fresh)
}
