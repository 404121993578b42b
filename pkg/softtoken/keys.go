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

package softtoken

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/asn1"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
)

var (
	oidP224 = asn1.ObjectIdentifier{1, 3, 132, 0, 33}
	oidP256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}
	oidP384 = asn1.ObjectIdentifier{1, 3, 132, 0, 34}
	oidP521 = asn1.ObjectIdentifier{1, 3, 132, 0, 35}
)

// secretKeyTypes lists the key types whose material is CKA_VALUE.
var secretKeyTypes = map[uint64]bool{
	ck.CKK_GENERIC_SECRET: true,
	ck.CKK_AES:            true,
	ck.CKK_CHACHA20:       true,
	ck.CKK_HKDF:           true,
	ck.CKK_SHA_1_HMAC:     true,
	ck.CKK_SHA224_HMAC:    true,
	ck.CKK_SHA256_HMAC:    true,
	ck.CKK_SHA384_HMAC:    true,
	ck.CKK_SHA512_HMAC:    true,
}

// secretValue returns the key bytes of a secret key of one of the given
// types; no types accepts any secret key.
func secretValue(o *object, types ...uint64) ([]byte, error) {
	if o.class() != ck.CKO_SECRET_KEY {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	kt := o.keyType()
	if len(types) > 0 {
		ok := false
		for _, want := range types {
			ok = ok || kt == want
		}
		if !ok {
			return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
		}
	}
	value := o.bytes(ck.CKA_VALUE)
	if len(value) == 0 {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	return value, nil
}

func bigAttr(o *object, code uint64) *big.Int {
	v, err := o.attrs.Get(code)
	if err != nil {
		return nil
	}
	n, err := v.BigInt()
	if err != nil {
		return nil
	}
	return n
}

func rsaPublicKey(o *object) (*rsa.PublicKey, error) {
	if o.keyType() != ck.CKK_RSA {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	n, e := bigAttr(o, ck.CKA_MODULUS), bigAttr(o, ck.CKA_PUBLIC_EXPONENT)
	if n == nil || e == nil || !e.IsInt64() {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func rsaPrivateKey(o *object) (*rsa.PrivateKey, error) {
	if o.class() != ck.CKO_PRIVATE_KEY {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	pub, err := rsaPublicKey(o)
	if err != nil {
		return nil, err
	}
	d := bigAttr(o, ck.CKA_PRIVATE_EXPONENT)
	p, q := bigAttr(o, ck.CKA_PRIME_1), bigAttr(o, ck.CKA_PRIME_2)
	if d == nil || p == nil || q == nil {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	priv := &rsa.PrivateKey{PublicKey: *pub, D: d, Primes: []*big.Int{p, q}}
	if err := priv.Validate(); err != nil {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	priv.Precompute()
	return priv, nil
}

// rsaPrivateAttrs returns the attribute values that describe priv.
func rsaPrivateAttrs(priv *rsa.PrivateKey) map[uint64]*big.Int {
	return map[uint64]*big.Int{
		ck.CKA_MODULUS:          priv.N,
		ck.CKA_PUBLIC_EXPONENT:  big.NewInt(int64(priv.E)),
		ck.CKA_PRIVATE_EXPONENT: priv.D,
		ck.CKA_PRIME_1:          priv.Primes[0],
		ck.CKA_PRIME_2:          priv.Primes[1],
		ck.CKA_EXPONENT_1:       priv.Precomputed.Dp,
		ck.CKA_EXPONENT_2:       priv.Precomputed.Dq,
		ck.CKA_COEFFICIENT:      priv.Precomputed.Qinv,
	}
}

func ecCurve(o *object) (elliptic.Curve, error) {
	if o.keyType() != ck.CKK_EC {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	curve, err := curveFromParams(o.bytes(ck.CKA_EC_PARAMS))
	if err != nil {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	return curve, nil
}

func ecPrivateKey(o *object) (*ecdsa.PrivateKey, error) {
	if o.class() != ck.CKO_PRIVATE_KEY {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	curve, err := ecCurve(o)
	if err != nil {
		return nil, err
	}
	priv, err := ecdsa.ParseRawPrivateKey(curve, o.bytes(ck.CKA_VALUE))
	if err != nil {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	return priv, nil
}

func ecPublicKey(o *object) (*ecdsa.PublicKey, error) {
	if o.class() != ck.CKO_PUBLIC_KEY {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	curve, err := ecCurve(o)
	if err != nil {
		return nil, err
	}
	pub, err := ecdsa.ParseUncompressedPublicKey(curve, decodeECPoint(o.bytes(ck.CKA_EC_POINT)))
	if err != nil {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	return pub, nil
}

// curveFromParams resolves a DER-encoded named curve OID.
func curveFromParams(der []byte) (elliptic.Curve, error) {
	var oid asn1.ObjectIdentifier
	in := cryptobyte.String(der)
	if !in.ReadASN1ObjectIdentifier(&oid) || !in.Empty() {
		return nil, ckr(ck.CKR_DOMAIN_PARAMS_INVALID)
	}
	switch {
	case oid.Equal(oidP224):
		return elliptic.P224(), nil
	case oid.Equal(oidP256):
		return elliptic.P256(), nil
	case oid.Equal(oidP384):
		return elliptic.P384(), nil
	case oid.Equal(oidP521):
		return elliptic.P521(), nil
	}
	return nil, ckr(ck.CKR_CURVE_NOT_SUPPORTED)
}

// CurveParams returns the CKA_EC_PARAMS value for a named curve: the DER
// encoding of its OID.
func CurveParams(curve elliptic.Curve) ([]byte, error) {
	var oid asn1.ObjectIdentifier
	switch curve {
	case elliptic.P224():
		oid = oidP224
	case elliptic.P256():
		oid = oidP256
	case elliptic.P384():
		oid = oidP384
	case elliptic.P521():
		oid = oidP521
	default:
		return nil, ckr(ck.CKR_CURVE_NOT_SUPPORTED)
	}
	var b cryptobyte.Builder
	b.AddASN1ObjectIdentifier(oid)
	return b.Bytes()
}

// encodeECPoint wraps an uncompressed point in a DER OCTET STRING, the
// CKA_EC_POINT encoding.
func encodeECPoint(point []byte) []byte {
	var b cryptobyte.Builder
	b.AddASN1OctetString(point)
	return b.BytesOrPanic()
}

// decodeECPoint accepts a DER OCTET STRING or a bare uncompressed point.
func decodeECPoint(b []byte) []byte {
	in := cryptobyte.String(b)
	var point cryptobyte.String
	if in.ReadASN1(&point, cbasn1.OCTET_STRING) && in.Empty() {
		return point
	}
	return b
}

func orderBytes(curve elliptic.Curve) int {
	return (curve.Params().BitSize + 7) / 8
}
