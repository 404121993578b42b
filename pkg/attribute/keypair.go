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
	"errors"
	"math/big"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
)

// KeyPairTemplate holds the public and private halves passed to a key pair
// generation call.
type KeyPairTemplate struct {
	Public  *Template
	Private *Template
}

// KeyPairBuilder builds both halves of a key pair template. Setters for
// attributes shared by the pair apply to both halves; capability setters only
// touch the half that can use them.
type KeyPairBuilder struct {
	public  *Builder
	private *Builder
}

// NewKeyPair returns a key pair builder for keyType.
func NewKeyPair(keyType uint64) *KeyPairBuilder {
	return &KeyPairBuilder{
		public:  NewPublicKey(keyType),
		private: NewPrivateKey(keyType),
	}
}

// PublicHalf returns the builder of the public key template.
func (k *KeyPairBuilder) PublicHalf() *Builder { return k.public }

// PrivateHalf returns the builder of the private key template.
func (k *KeyPairBuilder) PrivateHalf() *Builder { return k.private }

func (k *KeyPairBuilder) both(code uint64, x any) *KeyPairBuilder {
	k.public.Set(code, x)
	k.private.Set(code, x)
	return k
}

// Token sets CKA_TOKEN on both halves.
func (k *KeyPairBuilder) Token(v bool) *KeyPairBuilder { return k.both(ck.CKA_TOKEN, v) }

// ID sets CKA_ID on both halves so they can be found as a pair.
func (k *KeyPairBuilder) ID(id []byte) *KeyPairBuilder { return k.both(ck.CKA_ID, id) }

// Label sets CKA_LABEL on both halves.
func (k *KeyPairBuilder) Label(label string) *KeyPairBuilder { return k.both(ck.CKA_LABEL, label) }

// Derive sets CKA_DERIVE on both halves.
func (k *KeyPairBuilder) Derive(v bool) *KeyPairBuilder { return k.both(ck.CKA_DERIVE, v) }

// Private sets CKA_PRIVATE on the private key.
func (k *KeyPairBuilder) Private(v bool) *KeyPairBuilder {
	k.private.Private(v)
	return k
}

// Sign sets CKA_SIGN on the private key.
func (k *KeyPairBuilder) Sign(v bool) *KeyPairBuilder {
	k.private.Sign(v)
	return k
}

// Decrypt sets CKA_DECRYPT on the private key.
func (k *KeyPairBuilder) Decrypt(v bool) *KeyPairBuilder {
	k.private.Decrypt(v)
	return k
}

// Unwrap sets CKA_UNWRAP on the private key.
func (k *KeyPairBuilder) Unwrap(v bool) *KeyPairBuilder {
	k.private.Unwrap(v)
	return k
}

// Sensitive sets CKA_SENSITIVE on the private key.
func (k *KeyPairBuilder) Sensitive(v bool) *KeyPairBuilder {
	k.private.Sensitive(v)
	return k
}

// Extractable sets CKA_EXTRACTABLE on the private key.
func (k *KeyPairBuilder) Extractable(v bool) *KeyPairBuilder {
	k.private.Extractable(v)
	return k
}

// Verify sets CKA_VERIFY on the public key.
func (k *KeyPairBuilder) Verify(v bool) *KeyPairBuilder {
	k.public.Verify(v)
	return k
}

// Encrypt sets CKA_ENCRYPT on the public key.
func (k *KeyPairBuilder) Encrypt(v bool) *KeyPairBuilder {
	k.public.Encrypt(v)
	return k
}

// Wrap sets CKA_WRAP on the public key.
func (k *KeyPairBuilder) Wrap(v bool) *KeyPairBuilder {
	k.public.Wrap(v)
	return k
}

// ModulusBits sets CKA_MODULUS_BITS on the public key.
func (k *KeyPairBuilder) ModulusBits(n uint64) *KeyPairBuilder {
	k.public.ModulusBits(n)
	return k
}

// PublicExponent sets CKA_PUBLIC_EXPONENT on the public key.
func (k *KeyPairBuilder) PublicExponent(e *big.Int) *KeyPairBuilder {
	k.public.PublicExponent(e)
	return k
}

// ECParams sets the DER curve parameters on the public key.
func (k *KeyPairBuilder) ECParams(der []byte) *KeyPairBuilder {
	k.public.ECParams(der)
	return k
}

// Build returns both templates.
func (k *KeyPairBuilder) Build() (*KeyPairTemplate, error) {
	pub, pubErr := k.public.Build()
	priv, privErr := k.private.Build()
	if err := errors.Join(pubErr, privErr); err != nil {
		return nil, err
	}
	return &KeyPairTemplate{Public: pub, Private: priv}, nil
}
