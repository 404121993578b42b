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
	"crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"

	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

const rsaPublicExponent = 65537

// requireUlong returns a ulong attribute the caller must supply.
func requireUlong(attrs *attribute.Template, code uint64) (uint64, error) {
	if !attrs.Has(code) {
		return 0, ckr(ck.CKR_TEMPLATE_INCOMPLETE)
	}
	v, err := attrs.Ulong(code)
	if err != nil {
		return 0, ckr(ck.CKR_ATTRIBUTE_VALUE_INVALID)
	}
	return v, nil
}

// pin sets code to want unless the caller supplied it; a different caller
// value is inconsistent with the mechanism.
func pin(attrs *attribute.Template, code, want uint64) error {
	if attrs.Has(code) {
		got, err := attrs.Ulong(code)
		if err != nil || got != want {
			return ckr(ck.CKR_TEMPLATE_INCONSISTENT)
		}
		return nil
	}
	return attrs.Set(code, want)
}

// secretKeyType resolves the key type of a new secret key. allowed lists
// the types the producing mechanism can create; the first is the default.
func secretKeyType(attrs *attribute.Template, allowed ...uint64) (uint64, error) {
	if !attrs.Has(ck.CKA_KEY_TYPE) {
		if err := attrs.Set(ck.CKA_KEY_TYPE, allowed[0]); err != nil {
			return 0, ckr(ck.CKR_GENERAL_ERROR)
		}
		return allowed[0], nil
	}
	kt, err := attrs.KeyType()
	if err != nil {
		return 0, ckr(ck.CKR_ATTRIBUTE_VALUE_INVALID)
	}
	for _, a := range allowed {
		if kt == a {
			return kt, nil
		}
	}
	return 0, ckr(ck.CKR_TEMPLATE_INCONSISTENT)
}

func anySecretType(preferred uint64) []uint64 {
	types := []uint64{preferred}
	for kt := range secretKeyTypes {
		if kt != preferred {
			types = append(types, kt)
		}
	}
	return types
}

func checkSecretLen(keyType uint64, n int) error {
	switch keyType {
	case ck.CKK_AES:
		if n != 16 && n != 24 && n != 32 {
			return ckr(ck.CKR_KEY_SIZE_RANGE)
		}
	case ck.CKK_CHACHA20:
		if n != 32 {
			return ckr(ck.CKR_KEY_SIZE_RANGE)
		}
	default:
		if n < 1 || n > 512 {
			return ckr(ck.CKR_KEY_SIZE_RANGE)
		}
	}
	return nil
}

// storeSecret completes a secret key template with its value and stores it.
func (s *Session) storeSecret(attrs *attribute.Template, value []byte, mech uint64, local bool) (token.ObjectHandle, error) {
	for _, set := range []struct {
		code uint64
		x    any
	}{
		{ck.CKA_VALUE, value},
		{ck.CKA_VALUE_LEN, uint64(len(value))},
		{ck.CKA_LOCAL, local},
		{ck.CKA_KEY_GEN_MECHANISM, mech},
	} {
		if err := attrs.Set(set.code, set.x); err != nil {
			return 0, ckr(ck.CKR_GENERAL_ERROR)
		}
	}
	if err := applyDefaults(attrs); err != nil {
		return 0, err
	}
	return s.tok.addObject(s, attrs)
}

// GenerateKey generates an AES, ChaCha20 or generic secret key.
func (s *Session) GenerateKey(m *mechanism.Mechanism, template []attribute.Raw) (token.ObjectHandle, error) {
	const call = "C_GenerateKey"
	if err := s.open(); err != nil {
		return 0, s.done(call, err)
	}
	if m == nil {
		return 0, s.done(call, ckr(ck.CKR_ARGUMENTS_BAD))
	}
	if !mechanisms[m.Type].Has(ck.CKF_GENERATE) {
		return 0, s.done(call, ckr(ck.CKR_MECHANISM_INVALID))
	}
	if m.Params != nil {
		return 0, s.done(call, ckr(ck.CKR_MECHANISM_PARAM_INVALID))
	}
	attrs, err := newObjectTemplate(template)
	if err != nil {
		return 0, s.done(call, err)
	}
	if err := pin(attrs, ck.CKA_CLASS, ck.CKO_SECRET_KEY); err != nil {
		return 0, s.done(call, err)
	}
	if attrs.Has(ck.CKA_VALUE) {
		return 0, s.done(call, ckr(ck.CKR_TEMPLATE_INCONSISTENT))
	}

	var kt uint64
	switch m.Type {
	case ck.CKM_AES_KEY_GEN:
		kt, err = secretKeyType(attrs, ck.CKK_AES)
	case ck.CKM_CHACHA20_KEY_GEN:
		kt, err = secretKeyType(attrs, ck.CKK_CHACHA20)
		if err == nil && !attrs.Has(ck.CKA_VALUE_LEN) {
			err = attrs.Set(ck.CKA_VALUE_LEN, uint64(32))
		}
	default:
		kt, err = secretKeyType(attrs, anySecretType(ck.CKK_GENERIC_SECRET)...)
	}
	if err != nil {
		return 0, s.done(call, err)
	}
	n, err := requireUlong(attrs, ck.CKA_VALUE_LEN)
	if err != nil {
		return 0, s.done(call, err)
	}
	if err := checkSecretLen(kt, int(n)); err != nil {
		return 0, s.done(call, err)
	}
	value := make([]byte, n)
	if _, err := rand.Read(value); err != nil {
		return 0, s.done(call, ckr(ck.CKR_FUNCTION_FAILED))
	}
	h, err := s.storeSecret(attrs, value, m.Type, true)
	if err == nil {
		s.logger.Debug("generated secret key", "handle", uint64(h), "mechanism", m.Name(), "bytes", n)
	}
	return h, s.done(call, err)
}

// GenerateKeyPair generates an RSA or EC key pair.
func (s *Session) GenerateKeyPair(m *mechanism.Mechanism, public, private []attribute.Raw) (token.ObjectHandle, token.ObjectHandle, error) {
	const call = "C_GenerateKeyPair"
	fail := func(err error) (token.ObjectHandle, token.ObjectHandle, error) {
		return 0, 0, s.done(call, err)
	}
	if err := s.open(); err != nil {
		return fail(err)
	}
	if m == nil {
		return fail(ckr(ck.CKR_ARGUMENTS_BAD))
	}
	if m.Params != nil {
		return fail(ckr(ck.CKR_MECHANISM_PARAM_INVALID))
	}
	pub, err := newObjectTemplate(public)
	if err != nil {
		return fail(err)
	}
	priv, err := newObjectTemplate(private)
	if err != nil {
		return fail(err)
	}
	if err := pin(pub, ck.CKA_CLASS, ck.CKO_PUBLIC_KEY); err != nil {
		return fail(err)
	}
	if err := pin(priv, ck.CKA_CLASS, ck.CKO_PRIVATE_KEY); err != nil {
		return fail(err)
	}

	switch m.Type {
	case ck.CKM_RSA_PKCS_KEY_PAIR_GEN:
		err = generateRSA(pub, priv)
	case ck.CKM_EC_KEY_PAIR_GEN:
		err = generateEC(pub, priv)
	default:
		err = ckr(ck.CKR_MECHANISM_INVALID)
	}
	if err != nil {
		return fail(err)
	}
	for _, attrs := range []*attribute.Template{pub, priv} {
		_ = attrs.Set(ck.CKA_LOCAL, true)
		_ = attrs.Set(ck.CKA_KEY_GEN_MECHANISM, m.Type)
		if err := applyDefaults(attrs); err != nil {
			return fail(err)
		}
	}
	ph, kh, err := s.tok.addKeyPair(s, pub, priv)
	if err != nil {
		return fail(err)
	}
	s.logger.Debug("generated key pair", "public", uint64(ph), "private", uint64(kh), "mechanism", m.Name())
	return ph, kh, s.done(call, nil)
}

func generateRSA(pub, priv *attribute.Template) error {
	for _, attrs := range []*attribute.Template{pub, priv} {
		if err := pin(attrs, ck.CKA_KEY_TYPE, ck.CKK_RSA); err != nil {
			return err
		}
	}
	bits, err := requireUlong(pub, ck.CKA_MODULUS_BITS)
	if err != nil {
		return err
	}
	info := mechanisms[ck.CKM_RSA_PKCS_KEY_PAIR_GEN]
	if bits < info.MinKeySize || bits > info.MaxKeySize {
		return ckr(ck.CKR_KEY_SIZE_RANGE)
	}
	if v, err := pub.Get(ck.CKA_PUBLIC_EXPONENT); err == nil {
		e, err := v.BigInt()
		if err != nil || e.Cmp(big.NewInt(rsaPublicExponent)) != 0 {
			return ckr(ck.CKR_TEMPLATE_INCONSISTENT)
		}
	}
	key, err := rsa.GenerateKey(rand.Reader, int(bits))
	if err != nil {
		return ckr(ck.CKR_FUNCTION_FAILED)
	}
	_ = pub.Set(ck.CKA_MODULUS, key.N)
	_ = pub.Set(ck.CKA_PUBLIC_EXPONENT, big.NewInt(int64(key.E)))
	for code, n := range rsaPrivateAttrs(key) {
		_ = priv.Set(code, n)
	}
	return nil
}

func generateEC(pub, priv *attribute.Template) error {
	for _, attrs := range []*attribute.Template{pub, priv} {
		if err := pin(attrs, ck.CKA_KEY_TYPE, ck.CKK_EC); err != nil {
			return err
		}
	}
	if !pub.Has(ck.CKA_EC_PARAMS) {
		return ckr(ck.CKR_TEMPLATE_INCOMPLETE)
	}
	params, err := pub.ECParams()
	if err != nil {
		return ckr(ck.CKR_ATTRIBUTE_VALUE_INVALID)
	}
	curve, err := curveFromParams(params)
	if err != nil {
		return err
	}
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return ckr(ck.CKR_FUNCTION_FAILED)
	}
	scalar, err := key.Bytes()
	if err != nil {
		return ckr(ck.CKR_FUNCTION_FAILED)
	}
	point, err := key.PublicKey.Bytes()
	if err != nil {
		return ckr(ck.CKR_FUNCTION_FAILED)
	}
	_ = pub.Set(ck.CKA_EC_POINT, encodeECPoint(point))
	_ = priv.Set(ck.CKA_EC_PARAMS, params)
	_ = priv.Set(ck.CKA_VALUE, scalar)
	return nil
}

// WrapKey encrypts the value of secret key key under wrappingKey.
func (s *Session) WrapKey(m *mechanism.Mechanism, wrappingKey, key token.ObjectHandle, dst []byte) (int, error) {
	const call = "C_WrapKey"
	if err := s.open(); err != nil {
		return s.doneN(call, 0, err)
	}
	if m == nil {
		return s.doneN(call, 0, ckr(ck.CKR_ARGUMENTS_BAD))
	}
	if !mechanisms[m.Type].Has(ck.CKF_WRAP) {
		return s.doneN(call, 0, ckr(ck.CKR_MECHANISM_INVALID))
	}
	wrapper, err := s.key(wrappingKey, ck.CKA_WRAP)
	if err != nil {
		return s.doneN(call, 0, remap(err, ck.CKR_KEY_HANDLE_INVALID, ck.CKR_WRAPPING_KEY_HANDLE_INVALID))
	}
	target, err := s.tok.lookup(key, ck.CKR_KEY_HANDLE_INVALID)
	if err != nil {
		return s.doneN(call, 0, err)
	}
	if target.class() != ck.CKO_SECRET_KEY {
		return s.doneN(call, 0, ckr(ck.CKR_KEY_NOT_WRAPPABLE))
	}
	if !target.flag(ck.CKA_EXTRACTABLE) {
		return s.doneN(call, 0, ckr(ck.CKR_KEY_UNEXTRACTABLE))
	}
	c, err := newCipherOp(m, wrapper, true)
	if err != nil {
		return s.doneN(call, 0, remap(err, ck.CKR_KEY_TYPE_INCONSISTENT, ck.CKR_WRAPPING_KEY_TYPE_INCONSISTENT))
	}
	out, err := singleShot(c, target.bytes(ck.CKA_VALUE))
	if err != nil {
		return s.doneN(call, 0, remap(err, ck.CKR_DATA_LEN_RANGE, ck.CKR_KEY_SIZE_RANGE))
	}
	n, err := fill(out, dst)
	return s.doneN(call, n, err)
}

// UnwrapKey decrypts wrapped and stores the result as a new secret key.
func (s *Session) UnwrapKey(m *mechanism.Mechanism, unwrappingKey token.ObjectHandle, wrapped []byte, template []attribute.Raw) (token.ObjectHandle, error) {
	const call = "C_UnwrapKey"
	if err := s.open(); err != nil {
		return 0, s.done(call, err)
	}
	if m == nil {
		return 0, s.done(call, ckr(ck.CKR_ARGUMENTS_BAD))
	}
	if !mechanisms[m.Type].Has(ck.CKF_UNWRAP) {
		return 0, s.done(call, ckr(ck.CKR_MECHANISM_INVALID))
	}
	unwrapper, err := s.key(unwrappingKey, ck.CKA_UNWRAP)
	if err != nil {
		return 0, s.done(call, remap(err, ck.CKR_KEY_HANDLE_INVALID, ck.CKR_UNWRAPPING_KEY_HANDLE_INVALID))
	}
	attrs, err := newObjectTemplate(template)
	if err != nil {
		return 0, s.done(call, err)
	}
	if err := pin(attrs, ck.CKA_CLASS, ck.CKO_SECRET_KEY); err != nil {
		return 0, s.done(call, err)
	}
	if !attrs.Has(ck.CKA_KEY_TYPE) || attrs.Has(ck.CKA_VALUE) {
		return 0, s.done(call, ckr(ck.CKR_TEMPLATE_INCOMPLETE))
	}
	kt, _ := attrs.KeyType()
	c, err := newCipherOp(m, unwrapper, false)
	if err != nil {
		return 0, s.done(call, remap(err, ck.CKR_KEY_TYPE_INCONSISTENT, ck.CKR_UNWRAPPING_KEY_TYPE_INCONSISTENT))
	}
	value, err := singleShot(c, wrapped)
	if err != nil {
		err = remap(err, ck.CKR_ENCRYPTED_DATA_INVALID, ck.CKR_WRAPPED_KEY_INVALID)
		return 0, s.done(call, remap(err, ck.CKR_ENCRYPTED_DATA_LEN_RANGE, ck.CKR_WRAPPED_KEY_LEN_RANGE))
	}
	if err := checkSecretLen(kt, len(value)); err != nil {
		return 0, s.done(call, ckr(ck.CKR_WRAPPED_KEY_INVALID))
	}
	if n, err := attrs.ValueLen(); err == nil && n != uint64(len(value)) {
		return 0, s.done(call, ckr(ck.CKR_TEMPLATE_INCONSISTENT))
	}
	h, err := s.storeSecret(attrs, value, ck.CK_UNAVAILABLE_INFORMATION, false)
	return h, s.done(call, err)
}

// DeriveKey derives a secret key from baseKey with HKDF, ECDH or
// concatenation.
func (s *Session) DeriveKey(m *mechanism.Mechanism, baseKey token.ObjectHandle, template []attribute.Raw) (token.ObjectHandle, error) {
	const call = "C_DeriveKey"
	if err := s.open(); err != nil {
		return 0, s.done(call, err)
	}
	if m == nil {
		return 0, s.done(call, ckr(ck.CKR_ARGUMENTS_BAD))
	}
	if !mechanisms[m.Type].Has(ck.CKF_DERIVE) {
		return 0, s.done(call, ckr(ck.CKR_MECHANISM_INVALID))
	}
	base, err := s.key(baseKey, ck.CKA_DERIVE)
	if err != nil {
		return 0, s.done(call, err)
	}
	attrs, err := newObjectTemplate(template)
	if err != nil {
		return 0, s.done(call, err)
	}
	if err := pin(attrs, ck.CKA_CLASS, ck.CKO_SECRET_KEY); err != nil {
		return 0, s.done(call, err)
	}
	kt, err := secretKeyType(attrs, anySecretType(ck.CKK_GENERIC_SECRET)...)
	if err != nil {
		return 0, s.done(call, err)
	}
	length := -1
	if attrs.Has(ck.CKA_VALUE_LEN) {
		n, err := attrs.ValueLen()
		if err != nil {
			return 0, s.done(call, ckr(ck.CKR_ATTRIBUTE_VALUE_INVALID))
		}
		length = int(n)
	} else if kt == ck.CKK_AES {
		return 0, s.done(call, ckr(ck.CKR_TEMPLATE_INCOMPLETE))
	}

	var value []byte
	switch m.Type {
	case ck.CKM_HKDF_DERIVE:
		value, err = s.deriveHKDF(m, base, length)
	case ck.CKM_ECDH1_DERIVE:
		value, err = deriveECDH(m, base, length)
	case ck.CKM_CONCATENATE_BASE_AND_DATA, ck.CKM_CONCATENATE_DATA_AND_BASE:
		value, err = deriveConcat(m, base, length)
	default:
		err = ckr(ck.CKR_MECHANISM_INVALID)
	}
	if err != nil {
		return 0, s.done(call, err)
	}
	if err := checkSecretLen(kt, len(value)); err != nil {
		return 0, s.done(call, err)
	}
	h, err := s.storeSecret(attrs, value, m.Type, false)
	return h, s.done(call, err)
}

// truncate applies the requested key length to derived material.
func truncate(material []byte, length int) ([]byte, error) {
	if length < 0 {
		return material, nil
	}
	if length > len(material) {
		return nil, ckr(ck.CKR_TEMPLATE_INCONSISTENT)
	}
	return material[:length], nil
}

func (s *Session) deriveHKDF(m *mechanism.Mechanism, base *object, length int) ([]byte, error) {
	params, ok := m.Params.(*mechanism.HKDFParams)
	if !ok || (!params.Extract && !params.Expand) {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	alg, ok := digests[params.PRF]
	if !ok {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	secret, err := secretValue(base)
	if err != nil {
		return nil, err
	}
	var salt []byte
	switch params.SaltType {
	case ck.CKF_HKDF_SALT_NULL:
	case ck.CKF_HKDF_SALT_DATA:
		salt = params.Salt
	case ck.CKF_HKDF_SALT_KEY:
		o, err := s.tok.lookup(token.ObjectHandle(params.SaltKey), ck.CKR_MECHANISM_PARAM_INVALID)
		if err != nil {
			return nil, err
		}
		if salt, err = secretValue(o); err != nil {
			return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
		}
	default:
		if params.Extract {
			return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
		}
	}

	if !params.Expand {
		return truncate(hkdf.Extract(alg.new, secret, salt), length)
	}
	if length < 0 {
		length = alg.id.Size()
	}
	var r io.Reader
	if params.Extract {
		r = hkdf.New(alg.new, secret, salt, params.Info)
	} else {
		r = hkdf.Expand(alg.new, secret, params.Info)
	}
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, ckr(ck.CKR_KEY_SIZE_RANGE)
	}
	return out, nil
}

func deriveECDH(m *mechanism.Mechanism, base *object, length int) ([]byte, error) {
	params, ok := m.Params.(*mechanism.ECDHParams)
	if !ok {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	priv, err := ecPrivateKey(base)
	if err != nil {
		return nil, err
	}
	own, err := priv.ECDH()
	if err != nil {
		return nil, ckr(ck.CKR_KEY_TYPE_INCONSISTENT)
	}
	peer, err := own.Curve().NewPublicKey(decodeECPoint(params.PublicData))
	if err != nil {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	z, err := own.ECDH(peer)
	if err != nil {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	if params.KDF == ck.CKD_NULL {
		if len(params.SharedData) > 0 {
			return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
		}
		return truncate(z, length)
	}
	d, ok := kdfDigest[params.KDF]
	if !ok {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	if length < 0 {
		length = len(z)
	}
	return x963KDF(digests[d], z, params.SharedData, length), nil
}

// x963KDF is the ANSI X9.63 key derivation function used by the CKD_*_KDF
// ECDH variants.
func x963KDF(alg hashAlg, z, shared []byte, length int) []byte {
	out := make([]byte, 0, length+alg.id.Size())
	var counter [4]byte
	for i := uint32(1); len(out) < length; i++ {
		binary.BigEndian.PutUint32(counter[:], i)
		h := alg.new()
		h.Write(z)
		h.Write(counter[:])
		h.Write(shared)
		out = h.Sum(out)
	}
	return out[:length]
}

func deriveConcat(m *mechanism.Mechanism, base *object, length int) ([]byte, error) {
	data, ok := m.Params.(mechanism.Bytes)
	if !ok {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	value, err := secretValue(base)
	if err != nil {
		return nil, err
	}
	var material []byte
	if m.Type == ck.CKM_CONCATENATE_BASE_AND_DATA {
		material = append(append(material, value...), data...)
	} else {
		material = append(append(material, data...), value...)
	}
	return truncate(material, length)
}

// remap replaces a token error code with the code a different C function
// reports for the same condition.
func remap(err error, from, to uint64) error {
	if token.IsCode(err, from) {
		return ckr(to)
	}
	return err
}
