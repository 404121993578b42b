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
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
)

// Builder assembles a Template with chained setters. The first failing setter
// is remembered and returned by Build; later setters are ignored.
//
//	tmpl, err := attribute.NewSecretKey(ck.CKK_AES).
//		Token(false).
//		Encrypt(true).
//		Decrypt(true).
//		ValueLen(16).
//		Build()
type Builder struct {
	t   *Template
	err error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{t: NewTemplate()}
}

// NewObject returns a builder seeded with CKA_CLASS.
func NewObject(class uint64) *Builder {
	return NewBuilder().Set(ck.CKA_CLASS, class)
}

// NewSecretKey returns a builder for a secret key of keyType.
func NewSecretKey(keyType uint64) *Builder {
	return NewObject(ck.CKO_SECRET_KEY).KeyType(keyType)
}

// NewPublicKey returns a builder for a public key of keyType.
func NewPublicKey(keyType uint64) *Builder {
	return NewObject(ck.CKO_PUBLIC_KEY).KeyType(keyType)
}

// NewPrivateKey returns a builder for a private key of keyType.
func NewPrivateKey(keyType uint64) *Builder {
	return NewObject(ck.CKO_PRIVATE_KEY).KeyType(keyType)
}

// Set stores x for code. See NewWith for the accepted Go types.
func (b *Builder) Set(code uint64, x any) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.t.Set(code, x); err != nil {
		b.err = err
	}
	return b
}

// SetName stores x for the attribute registered as name, e.g. "CKA_LABEL".
func (b *Builder) SetName(name string, x any) *Builder {
	if b.err != nil {
		return b
	}
	code, err := symbol.Code(symbol.Attribute, name)
	if err != nil {
		b.err = err
		return b
	}
	return b.Set(code, x)
}

// Err returns the first error recorded by a setter.
func (b *Builder) Err() error {
	return b.err
}

// Build returns a copy of the accumulated template. The builder stays usable.
func (b *Builder) Build() (*Template, error) {
	if b.err != nil {
		return nil, fmt.Errorf("attribute: building template: %w", b.err)
	}
	return b.t.Clone(), nil
}

func (b *Builder) Class(class uint64) *Builder     { return b.Set(ck.CKA_CLASS, class) }
func (b *Builder) KeyType(keyType uint64) *Builder { return b.Set(ck.CKA_KEY_TYPE, keyType) }
func (b *Builder) Token(v bool) *Builder           { return b.Set(ck.CKA_TOKEN, v) }
func (b *Builder) Private(v bool) *Builder         { return b.Set(ck.CKA_PRIVATE, v) }
func (b *Builder) Modifiable(v bool) *Builder      { return b.Set(ck.CKA_MODIFIABLE, v) }
func (b *Builder) Label(label string) *Builder     { return b.Set(ck.CKA_LABEL, label) }
func (b *Builder) ID(id []byte) *Builder           { return b.Set(ck.CKA_ID, id) }
func (b *Builder) Sensitive(v bool) *Builder       { return b.Set(ck.CKA_SENSITIVE, v) }
func (b *Builder) Extractable(v bool) *Builder     { return b.Set(ck.CKA_EXTRACTABLE, v) }
func (b *Builder) Encrypt(v bool) *Builder         { return b.Set(ck.CKA_ENCRYPT, v) }
func (b *Builder) Decrypt(v bool) *Builder         { return b.Set(ck.CKA_DECRYPT, v) }
func (b *Builder) Sign(v bool) *Builder            { return b.Set(ck.CKA_SIGN, v) }
func (b *Builder) Verify(v bool) *Builder          { return b.Set(ck.CKA_VERIFY, v) }
func (b *Builder) Wrap(v bool) *Builder            { return b.Set(ck.CKA_WRAP, v) }
func (b *Builder) Unwrap(v bool) *Builder          { return b.Set(ck.CKA_UNWRAP, v) }
func (b *Builder) Derive(v bool) *Builder          { return b.Set(ck.CKA_DERIVE, v) }
func (b *Builder) ValueLen(n uint64) *Builder      { return b.Set(ck.CKA_VALUE_LEN, n) }
func (b *Builder) ModulusBits(n uint64) *Builder   { return b.Set(ck.CKA_MODULUS_BITS, n) }
func (b *Builder) ECParams(der []byte) *Builder    { return b.Set(ck.CKA_EC_PARAMS, der) }
func (b *Builder) Value(v []byte) *Builder         { return b.Set(ck.CKA_VALUE, v) }
func (b *Builder) StartDate(d Date) *Builder       { return b.Set(ck.CKA_START_DATE, d) }
func (b *Builder) EndDate(d Date) *Builder         { return b.Set(ck.CKA_END_DATE, d) }

// PublicExponent sets CKA_PUBLIC_EXPONENT from an unsigned integer.
func (b *Builder) PublicExponent(e *big.Int) *Builder {
	return b.Set(ck.CKA_PUBLIC_EXPONENT, e)
}

// AllowedMechanisms restricts the mechanisms usable with the object.
func (b *Builder) AllowedMechanisms(mechs ...uint64) *Builder {
	return b.Set(ck.CKA_ALLOWED_MECHANISMS, mechs)
}

// WrapTemplate sets the template a key must match to be wrapped by this key.
func (b *Builder) WrapTemplate(t *Template) *Builder {
	return b.Set(ck.CKA_WRAP_TEMPLATE, t)
}

// UnwrapTemplate sets the template applied to keys unwrapped with this key.
func (b *Builder) UnwrapTemplate(t *Template) *Builder {
	return b.Set(ck.CKA_UNWRAP_TEMPLATE, t)
}
