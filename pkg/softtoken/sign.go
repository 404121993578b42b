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
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"hash"
	"math/big"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// signer accumulates input for a sign or verify operation. Hashing
// mechanisms feed h; raw mechanisms collect the input in data.
type signer struct {
	h    hash.Hash
	data []byte
	size int

	sign   func(input []byte) ([]byte, error)
	verify func(input, signature []byte) error
}

func (g *signer) update(part []byte) {
	if g.h != nil {
		g.h.Write(part)
		return
	}
	g.data = append(g.data, part...)
}

func (g *signer) input() []byte {
	if g.h != nil {
		return g.h.Sum(nil)
	}
	return g.data
}

// newSigner prepares mechanism m over key o. forVerify selects the public
// half of asymmetric mechanisms.
func newSigner(m *mechanism.Mechanism, o *object, forVerify bool) (*signer, error) {
	if _, ok := mechanisms[m.Type]; !ok {
		return nil, ckr(ck.CKR_MECHANISM_INVALID)
	}
	if digest, ok := hmacDigest[m.Type]; ok {
		return newHMACSigner(m, o, digests[digest])
	}
	switch {
	case m.Type == ck.CKM_RSA_PKCS, hashedSign[m.Type] != 0 && !isECDSA(m.Type) && !isPSS(m.Type):
		return newPKCS1Signer(m, o, forVerify)
	case isPSS(m.Type):
		return newPSSSigner(m, o, forVerify)
	case isECDSA(m.Type):
		return newECDSASigner(m, o, forVerify)
	}
	return nil, ckr(ck.CKR_MECHANISM_INVALID)
}

func newHMACSigner(m *mechanism.Mechanism, o *object, alg hashAlg) (*signer, error) {
	if m.Params != nil {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	key, err := secretValue(o)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(alg.new, key)
	return &signer{
		h:    mac,
		size: mac.Size(),
		sign: func(sum []byte) ([]byte, error) { return sum, nil },
		verify: func(sum, signature []byte) error {
			if len(signature) != len(sum) {
				return ckr(ck.CKR_SIGNATURE_LEN_RANGE)
			}
			if !hmac.Equal(sum, signature) {
				return ckr(ck.CKR_SIGNATURE_INVALID)
			}
			return nil
		},
	}, nil
}

// digestFor returns the hash a hash-then-sign mechanism applies, or a zero
// hashAlg for raw mechanisms.
func digestFor(mech uint64) hashAlg {
	if d, ok := hashedSign[mech]; ok {
		return digests[d]
	}
	return hashAlg{}
}

func newPKCS1Signer(m *mechanism.Mechanism, o *object, forVerify bool) (*signer, error) {
	if m.Params != nil {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	alg := digestFor(m.Type)
	g := &signer{}
	if alg.new != nil {
		g.h = alg.new()
	}
	if forVerify {
		pub, err := rsaPublicKey(o)
		if err != nil {
			return nil, err
		}
		g.size = pub.Size()
		g.verify = func(input, signature []byte) error {
			if len(signature) != pub.Size() {
				return ckr(ck.CKR_SIGNATURE_LEN_RANGE)
			}
			if rsa.VerifyPKCS1v15(pub, alg.id, input, signature) != nil {
				return ckr(ck.CKR_SIGNATURE_INVALID)
			}
			return nil
		}
		return g, nil
	}
	priv, err := rsaPrivateKey(o)
	if err != nil {
		return nil, err
	}
	g.size = priv.Size()
	g.sign = func(input []byte) ([]byte, error) {
		sig, err := rsa.SignPKCS1v15(nil, priv, alg.id, input)
		if err != nil {
			return nil, ckr(ck.CKR_DATA_LEN_RANGE)
		}
		return sig, nil
	}
	return g, nil
}

func newPSSSigner(m *mechanism.Mechanism, o *object, forVerify bool) (*signer, error) {
	params, ok := m.Params.(*mechanism.PSSParams)
	if !ok {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	alg, ok := digests[params.Hash]
	// A zero salt length cannot be expressed through crypto/rsa, which
	// reads zero as "as large as possible".
	if !ok || mgfDigest[params.MGF] != params.Hash || params.SaltLen == 0 {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	g := &signer{}
	if want, hashed := hashedSign[m.Type]; hashed {
		if want != params.Hash {
			return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
		}
		g.h = alg.new()
	}
	opts := &rsa.PSSOptions{SaltLength: int(params.SaltLen), Hash: alg.id}
	checkDigest := func(input []byte) error {
		if len(input) != alg.id.Size() {
			return ckr(ck.CKR_DATA_LEN_RANGE)
		}
		return nil
	}

	if forVerify {
		pub, err := rsaPublicKey(o)
		if err != nil {
			return nil, err
		}
		g.size = pub.Size()
		g.verify = func(input, signature []byte) error {
			if err := checkDigest(input); err != nil {
				return err
			}
			if len(signature) != pub.Size() {
				return ckr(ck.CKR_SIGNATURE_LEN_RANGE)
			}
			if rsa.VerifyPSS(pub, alg.id, input, signature, opts) != nil {
				return ckr(ck.CKR_SIGNATURE_INVALID)
			}
			return nil
		}
		return g, nil
	}
	priv, err := rsaPrivateKey(o)
	if err != nil {
		return nil, err
	}
	g.size = priv.Size()
	g.sign = func(input []byte) ([]byte, error) {
		if err := checkDigest(input); err != nil {
			return nil, err
		}
		sig, err := rsa.SignPSS(rand.Reader, priv, alg.id, input, opts)
		if err != nil {
			return nil, ckr(ck.CKR_FUNCTION_FAILED)
		}
		return sig, nil
	}
	return g, nil
}

// newECDSASigner produces raw r||s signatures, each half left-padded to the
// byte length of the curve order.
func newECDSASigner(m *mechanism.Mechanism, o *object, forVerify bool) (*signer, error) {
	if m.Params != nil {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	g := &signer{}
	if alg := digestFor(m.Type); alg.new != nil {
		g.h = alg.new()
	}

	if forVerify {
		pub, err := ecPublicKey(o)
		if err != nil {
			return nil, err
		}
		size := orderBytes(pub.Curve)
		g.size = 2 * size
		g.verify = func(input, signature []byte) error {
			if len(signature) != 2*size {
				return ckr(ck.CKR_SIGNATURE_LEN_RANGE)
			}
			r := new(big.Int).SetBytes(signature[:size])
			s := new(big.Int).SetBytes(signature[size:])
			if !ecdsa.Verify(pub, input, r, s) {
				return ckr(ck.CKR_SIGNATURE_INVALID)
			}
			return nil
		}
		return g, nil
	}
	priv, err := ecPrivateKey(o)
	if err != nil {
		return nil, err
	}
	size := orderBytes(priv.Curve)
	g.size = 2 * size
	g.sign = func(input []byte) ([]byte, error) {
		r, s, err := ecdsa.Sign(rand.Reader, priv, input)
		if err != nil {
			return nil, ckr(ck.CKR_FUNCTION_FAILED)
		}
		sig := make([]byte, 2*size)
		r.FillBytes(sig[:size])
		s.FillBytes(sig[size:])
		return sig, nil
	}
	return g, nil
}

func (s *Session) signInit(call string, kind opKind, m *mechanism.Mechanism, key token.ObjectHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == nil {
		return s.done(call, ckr(ck.CKR_ARGUMENTS_BAD))
	}
	if err := s.open(); err != nil {
		return s.done(call, err)
	}
	if s.op != nil {
		return s.done(call, ckr(ck.CKR_OPERATION_ACTIVE))
	}
	usage := uint64(ck.CKA_SIGN)
	if kind == opVerify {
		usage = ck.CKA_VERIFY
	}
	o, err := s.key(key, usage)
	if err != nil {
		return s.done(call, err)
	}
	g, err := newSigner(m, o, kind == opVerify)
	if err != nil {
		return s.done(call, err)
	}
	return s.done(call, s.start(&activeOp{kind: kind, mech: m.Type, sig: g}))
}

// SignInit starts a signature operation.
func (s *Session) SignInit(m *mechanism.Mechanism, key token.ObjectHandle) error {
	return s.signInit("C_SignInit", opSign, m, key)
}

// Sign signs data in one step.
func (s *Session) Sign(data, dst []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(opSign)
	if err != nil {
		return s.doneN("C_Sign", 0, err)
	}
	if op.updated {
		s.end(ckr(ck.CKR_OPERATION_ACTIVE))
		return s.doneN("C_Sign", 0, ckr(ck.CKR_OPERATION_ACTIVE))
	}
	if probe, err := sized(op.sig.size, dst); probe {
		return s.doneN("C_Sign", op.sig.size, err)
	}
	op.sig.update(data)
	n, err := s.finishSign(op, dst)
	return s.doneN("C_Sign", n, err)
}

func (s *Session) SignUpdate(part []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(opSign)
	if err != nil {
		return s.done("C_SignUpdate", err)
	}
	op.updated = true
	op.sig.update(part)
	return s.done("C_SignUpdate", nil)
}

func (s *Session) SignFinal(dst []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(opSign)
	if err != nil {
		return s.doneN("C_SignFinal", 0, err)
	}
	if probe, err := sized(op.sig.size, dst); probe {
		return s.doneN("C_SignFinal", op.sig.size, err)
	}
	n, err := s.finishSign(op, dst)
	return s.doneN("C_SignFinal", n, err)
}

func (s *Session) finishSign(op *activeOp, dst []byte) (int, error) {
	sig, err := op.sig.sign(op.sig.input())
	s.end(err)
	if err != nil {
		return 0, err
	}
	return copy(dst, sig), nil
}

// VerifyInit starts a verification operation.
func (s *Session) VerifyInit(m *mechanism.Mechanism, key token.ObjectHandle) error {
	return s.signInit("C_VerifyInit", opVerify, m, key)
}

func (s *Session) Verify(data, signature []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(opVerify)
	if err != nil {
		return s.done("C_Verify", err)
	}
	s.end(nil)
	if op.updated {
		return s.done("C_Verify", ckr(ck.CKR_OPERATION_ACTIVE))
	}
	op.sig.update(data)
	return s.done("C_Verify", op.sig.verify(op.sig.input(), signature))
}

func (s *Session) VerifyUpdate(part []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(opVerify)
	if err != nil {
		return s.done("C_VerifyUpdate", err)
	}
	op.updated = true
	op.sig.update(part)
	return s.done("C_VerifyUpdate", nil)
}

func (s *Session) VerifyFinal(signature []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(opVerify)
	if err != nil {
		return s.done("C_VerifyFinal", err)
	}
	s.end(nil)
	return s.done("C_VerifyFinal", op.sig.verify(op.sig.input(), signature))
}
