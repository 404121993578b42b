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

// Package encoding moves key material between its file encodings (PEM,
// PKCS#8, PKIX) and the attribute templates that describe it as PKCS#11
// objects.
package encoding

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
)

var curveOIDs = []struct {
	curve elliptic.Curve
	oid   asn1.ObjectIdentifier
}{
	{elliptic.P224(), asn1.ObjectIdentifier{1, 3, 132, 0, 33}},
	{elliptic.P256(), asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}},
	{elliptic.P384(), asn1.ObjectIdentifier{1, 3, 132, 0, 34}},
	{elliptic.P521(), asn1.ObjectIdentifier{1, 3, 132, 0, 35}},
}

// ECParams returns the CKA_EC_PARAMS value of a named curve.
func ECParams(curve elliptic.Curve) ([]byte, error) {
	for _, c := range curveOIDs {
		if c.curve == curve {
			return asn1.Marshal(c.oid)
		}
	}
	return nil, ErrUnsupportedCurve
}

// CurveOf resolves a CKA_EC_PARAMS value.
func CurveOf(params []byte) (elliptic.Curve, error) {
	var oid asn1.ObjectIdentifier
	rest, err := asn1.Unmarshal(params, &oid)
	if err != nil || len(rest) > 0 {
		return nil, fmt.Errorf("%w: EC parameters are not a named curve", ErrInvalidData)
	}
	for _, c := range curveOIDs {
		if c.oid.Equal(oid) {
			return c.curve, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurve, oid)
}

// KeyOptions are the object attributes an imported key pair receives.
type KeyOptions struct {
	Label       string
	ID          []byte
	Token       bool
	Private     bool
	Sensitive   bool
	Extractable bool
}

// KeyPairTemplates returns the templates that create privateKey and its
// public half as PKCS#11 objects. RSA (two primes) and ECDSA keys on the
// NIST curves are supported.
func KeyPairTemplates(privateKey crypto.PrivateKey, opts KeyOptions) (*attribute.KeyPairTemplate, error) {
	var kp *attribute.KeyPairBuilder
	switch key := privateKey.(type) {
	case *rsa.PrivateKey:
		if len(key.Primes) != 2 {
			return nil, fmt.Errorf("%w: %d-prime RSA", ErrUnsupportedKey, len(key.Primes))
		}
		key.Precompute()
		e := big.NewInt(int64(key.E))
		kp = attribute.NewKeyPair(ck.CKK_RSA).Encrypt(true).Decrypt(true)
		kp.PublicHalf().Set(ck.CKA_MODULUS, key.N).PublicExponent(e)
		kp.PrivateHalf().
			Set(ck.CKA_MODULUS, key.N).
			PublicExponent(e).
			Set(ck.CKA_PRIVATE_EXPONENT, key.D).
			Set(ck.CKA_PRIME_1, key.Primes[0]).
			Set(ck.CKA_PRIME_2, key.Primes[1]).
			Set(ck.CKA_EXPONENT_1, key.Precomputed.Dp).
			Set(ck.CKA_EXPONENT_2, key.Precomputed.Dq).
			Set(ck.CKA_COEFFICIENT, key.Precomputed.Qinv)
	case *ecdsa.PrivateKey:
		params, err := ECParams(key.Curve)
		if err != nil {
			return nil, err
		}
		point, err := key.PublicKey.Bytes()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		scalar, err := key.Bytes()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		ecPoint, err := asn1.Marshal(point)
		if err != nil {
			return nil, err
		}
		kp = attribute.NewKeyPair(ck.CKK_EC).ECParams(params).Derive(true)
		kp.PublicHalf().Set(ck.CKA_EC_POINT, ecPoint)
		kp.PrivateHalf().ECParams(params).Value(scalar)
	case nil:
		return nil, ErrInvalidPrivateKey
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, privateKey)
	}

	kp.Token(opts.Token).
		Private(opts.Private).
		Label(opts.Label).
		Sensitive(opts.Sensitive).
		Extractable(opts.Extractable).
		Sign(true).
		Verify(true)
	if opts.ID != nil {
		kp.ID(opts.ID)
	}
	return kp.Build()
}

// PublicKey rebuilds the public key described by the attributes of an RSA
// or EC public key object.
func PublicKey(t *attribute.Template) (crypto.PublicKey, error) {
	kt, err := t.KeyType()
	if err != nil {
		return nil, fmt.Errorf("%w: no key type", ErrInvalidPublicKey)
	}
	switch kt {
	case ck.CKK_RSA:
		n, err := t.Modulus()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		e, err := t.PublicExponent()
		if err != nil || !e.IsInt64() {
			return nil, fmt.Errorf("%w: bad public exponent", ErrInvalidPublicKey)
		}
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
	case ck.CKK_EC:
		params, err := t.ECParams()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		curve, err := CurveOf(params)
		if err != nil {
			return nil, err
		}
		raw, err := t.ECPoint()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		// CKA_EC_POINT is a DER OCTET STRING; some tokens store the bare point.
		var point []byte
		if rest, err := asn1.Unmarshal(raw, &point); err != nil || len(rest) > 0 {
			point = raw
		}
		pub, err := ecdsa.ParseUncompressedPublicKey(curve, point)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		return pub, nil
	}
	return nil, fmt.Errorf("%w: key type 0x%x", ErrUnsupportedKey, kt)
}
