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
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// cipherOp is the state of an encryption or decryption. Steps run on a
// clone so a probe or a short buffer leaves the operation untouched.
type cipherOp interface {
	update(part []byte) ([]byte, error)
	final() ([]byte, error)
	clone() cipherOp
}

// cbcOp implements AES-CBC with and without PKCS#7 padding. Decryption with
// padding withholds the last full block until final.
type cbcOp struct {
	block   cipher.Block
	iv      []byte
	buf     []byte
	pad     bool
	encrypt bool
}

func (c *cbcOp) clone() cipherOp {
	cp := *c
	cp.iv = bytes.Clone(c.iv)
	cp.buf = bytes.Clone(c.buf)
	return &cp
}

func (c *cbcOp) processable(total int) int {
	n := total - total%aes.BlockSize
	if c.pad && !c.encrypt && n == total && n > 0 {
		n -= aes.BlockSize
	}
	return n
}

func (c *cbcOp) crypt(in []byte) []byte {
	out := make([]byte, len(in))
	if len(in) == 0 {
		return out
	}
	if c.encrypt {
		cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, in)
		c.iv = bytes.Clone(out[len(out)-aes.BlockSize:])
	} else {
		cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, in)
		c.iv = bytes.Clone(in[len(in)-aes.BlockSize:])
	}
	return out
}

func (c *cbcOp) update(part []byte) ([]byte, error) {
	all := append(c.buf, part...)
	n := c.processable(len(all))
	out := c.crypt(all[:n])
	c.buf = bytes.Clone(all[n:])
	return out, nil
}

func (c *cbcOp) final() ([]byte, error) {
	switch {
	case c.encrypt && c.pad:
		padLen := aes.BlockSize - len(c.buf)
		block := append(bytes.Clone(c.buf), bytes.Repeat([]byte{byte(padLen)}, padLen)...)
		return c.crypt(block), nil
	case c.encrypt:
		if len(c.buf) != 0 {
			return nil, ckr(ck.CKR_DATA_LEN_RANGE)
		}
		return []byte{}, nil
	case c.pad:
		if len(c.buf) != aes.BlockSize {
			return nil, ckr(ck.CKR_ENCRYPTED_DATA_LEN_RANGE)
		}
		plain := c.crypt(c.buf)
		padLen := int(plain[len(plain)-1])
		if padLen == 0 || padLen > aes.BlockSize {
			return nil, ckr(ck.CKR_ENCRYPTED_DATA_INVALID)
		}
		for _, b := range plain[len(plain)-padLen:] {
			if int(b) != padLen {
				return nil, ckr(ck.CKR_ENCRYPTED_DATA_INVALID)
			}
		}
		return plain[:len(plain)-padLen], nil
	default:
		if len(c.buf) != 0 {
			return nil, ckr(ck.CKR_ENCRYPTED_DATA_LEN_RANGE)
		}
		return []byte{}, nil
	}
}

// aeadOp buffers the whole input; AEAD output is only defined once the
// input is complete. Ciphertext carries the tag at its end.
type aeadOp struct {
	aead    cipher.AEAD
	nonce   []byte
	aad     []byte
	buf     []byte
	encrypt bool
}

func (a *aeadOp) clone() cipherOp {
	cp := *a
	cp.buf = bytes.Clone(a.buf)
	return &cp
}

func (a *aeadOp) update(part []byte) ([]byte, error) {
	a.buf = append(a.buf, part...)
	return []byte{}, nil
}

func (a *aeadOp) final() ([]byte, error) {
	if a.encrypt {
		return a.aead.Seal(nil, a.nonce, a.buf, a.aad), nil
	}
	if len(a.buf) < a.aead.Overhead() {
		return nil, ckr(ck.CKR_ENCRYPTED_DATA_LEN_RANGE)
	}
	plain, err := a.aead.Open(nil, a.nonce, a.buf, a.aad)
	if err != nil {
		return nil, ckr(ck.CKR_ENCRYPTED_DATA_INVALID)
	}
	return plain, nil
}

// rsaOp implements RSA PKCS#1 v1.5 and OAEP encryption. RSA is single-part,
// so update only collects input.
type rsaOp struct {
	pub   *rsa.PublicKey
	priv  *rsa.PrivateKey
	oaep  *hashAlg
	label []byte
	buf   []byte
}

func (r *rsaOp) clone() cipherOp {
	cp := *r
	cp.buf = bytes.Clone(r.buf)
	return &cp
}

func (r *rsaOp) update(part []byte) ([]byte, error) {
	r.buf = append(r.buf, part...)
	return []byte{}, nil
}

func (r *rsaOp) final() ([]byte, error) {
	var out []byte
	var err error
	switch {
	case r.priv == nil && r.oaep != nil:
		out, err = rsa.EncryptOAEP(r.oaep.new(), rand.Reader, r.pub, r.buf, r.label)
	case r.priv == nil:
		out, err = rsa.EncryptPKCS1v15(rand.Reader, r.pub, r.buf)
	case r.oaep != nil:
		out, err = rsa.DecryptOAEP(r.oaep.new(), nil, r.priv, r.buf, r.label)
	default:
		out, err = rsa.DecryptPKCS1v15(nil, r.priv, r.buf)
	}
	if err != nil {
		if r.priv == nil {
			return nil, ckr(ck.CKR_DATA_LEN_RANGE)
		}
		if len(r.buf) != r.priv.Size() {
			return nil, ckr(ck.CKR_ENCRYPTED_DATA_LEN_RANGE)
		}
		return nil, ckr(ck.CKR_ENCRYPTED_DATA_INVALID)
	}
	return out, nil
}

// newCipherOp prepares mechanism m over key o for encryption or
// decryption. Wrapping reuses it with the same mechanisms.
func newCipherOp(m *mechanism.Mechanism, o *object, encrypt bool) (cipherOp, error) {
	switch m.Type {
	case ck.CKM_AES_CBC, ck.CKM_AES_CBC_PAD:
		iv, ok := m.Params.(mechanism.Bytes)
		if !ok || len(iv) != aes.BlockSize {
			return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
		}
		block, err := aesBlock(o)
		if err != nil {
			return nil, err
		}
		return &cbcOp{block: block, iv: bytes.Clone(iv), pad: m.Type == ck.CKM_AES_CBC_PAD, encrypt: encrypt}, nil

	case ck.CKM_AES_GCM, ck.CKM_CHACHA20_POLY1305:
		params, ok := m.Params.(*mechanism.AEADParams)
		if !ok {
			return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
		}
		aead, err := newAEAD(m.Type, o, params.Nonce(), params.TagBits())
		if err != nil {
			return nil, err
		}
		return &aeadOp{aead: aead, nonce: params.Nonce(), aad: params.AAD(), encrypt: encrypt}, nil

	case ck.CKM_RSA_PKCS, ck.CKM_RSA_PKCS_OAEP:
		op := &rsaOp{}
		if m.Type == ck.CKM_RSA_PKCS_OAEP {
			params, ok := m.Params.(*mechanism.OAEPParams)
			if !ok {
				return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
			}
			alg, ok := digests[params.Hash]
			if !ok || mgfDigest[params.MGF] != params.Hash {
				return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
			}
			op.oaep = &alg
			op.label = params.Source
		} else if m.Params != nil {
			return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
		}
		var err error
		if encrypt {
			op.pub, err = rsaPublicKey(o)
		} else {
			op.priv, err = rsaPrivateKey(o)
		}
		if err != nil {
			return nil, err
		}
		return op, nil
	}
	return nil, ckr(ck.CKR_MECHANISM_INVALID)
}

func aesBlock(o *object) (cipher.Block, error) {
	key, err := secretValue(o, ck.CKK_AES)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ckr(ck.CKR_KEY_SIZE_RANGE)
	}
	return block, nil
}

// newAEAD builds the AEAD for one nonce and tag length. crypto/cipher
// supports a non-standard nonce size only with the full 16-byte tag.
func newAEAD(mech uint64, o *object, nonce []byte, tagBits int) (cipher.AEAD, error) {
	if tagBits%8 != 0 {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	tagLen := tagBits / 8
	if mech == ck.CKM_CHACHA20_POLY1305 {
		key, err := secretValue(o, ck.CKK_CHACHA20, ck.CKK_GENERIC_SECRET)
		if err != nil {
			return nil, err
		}
		if tagLen != chacha20poly1305.Overhead {
			return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
		}
		var aead cipher.AEAD
		switch len(nonce) {
		case chacha20poly1305.NonceSize:
			aead, err = chacha20poly1305.New(key)
		case chacha20poly1305.NonceSizeX:
			aead, err = chacha20poly1305.NewX(key)
		default:
			return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
		}
		if err != nil {
			return nil, ckr(ck.CKR_KEY_SIZE_RANGE)
		}
		return aead, nil
	}

	block, err := aesBlock(o)
	if err != nil {
		return nil, err
	}
	var aead cipher.AEAD
	switch {
	case len(nonce) == 12 && tagLen >= 12 && tagLen <= 16:
		aead, err = cipher.NewGCMWithTagSize(block, tagLen)
	case len(nonce) > 0 && tagLen == 16:
		aead, err = cipher.NewGCMWithNonceSize(block, len(nonce))
	default:
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	if err != nil {
		return nil, ckr(ck.CKR_MECHANISM_PARAM_INVALID)
	}
	return aead, nil
}

func cipherCalls(kind opKind) (init, single, update, final string) {
	if kind == opEncrypt {
		return "C_EncryptInit", "C_Encrypt", "C_EncryptUpdate", "C_EncryptFinal"
	}
	return "C_DecryptInit", "C_Decrypt", "C_DecryptUpdate", "C_DecryptFinal"
}

func (s *Session) cipherInit(kind opKind, m *mechanism.Mechanism, key token.ObjectHandle) error {
	call, _, _, _ := cipherCalls(kind)
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
	usage := uint64(ck.CKA_ENCRYPT)
	if kind == opDecrypt {
		usage = ck.CKA_DECRYPT
	}
	o, err := s.key(key, usage)
	if err != nil {
		return s.done(call, err)
	}
	c, err := newCipherOp(m, o, kind == opEncrypt)
	if err != nil {
		return s.done(call, err)
	}
	return s.done(call, s.start(&activeOp{kind: kind, mech: m.Type, cipher: c}))
}

// cipherSingle processes data in one step.
func (s *Session) cipherSingle(kind opKind, data, dst []byte) (int, error) {
	_, call, _, _ := cipherCalls(kind)
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(kind)
	if err != nil {
		return s.doneN(call, 0, err)
	}
	if op.updated {
		s.end(nil)
		return s.doneN(call, 0, ckr(ck.CKR_OPERATION_ACTIVE))
	}
	out, err := singleShot(op.cipher, data)
	if err != nil {
		s.end(err)
		return s.doneN(call, 0, err)
	}
	n, err := fill(out, dst)
	if dst != nil && err == nil {
		s.end(nil)
	}
	return s.doneN(call, n, err)
}

// singleShot runs update and final on a clone of c.
func singleShot(c cipherOp, data []byte) ([]byte, error) {
	c = c.clone()
	head, err := c.update(data)
	if err != nil {
		return nil, err
	}
	tail, err := c.final()
	if err != nil {
		return nil, err
	}
	return append(head, tail...), nil
}

func (s *Session) cipherUpdate(kind opKind, part, dst []byte) (int, error) {
	_, _, call, _ := cipherCalls(kind)
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(kind)
	if err != nil {
		return s.doneN(call, 0, err)
	}
	next := op.cipher.clone()
	out, err := next.update(part)
	if err != nil {
		s.end(err)
		return s.doneN(call, 0, err)
	}
	n, err := fill(out, dst)
	if dst != nil && err == nil {
		op.cipher = next
		op.updated = true
	}
	return s.doneN(call, n, err)
}

func (s *Session) cipherFinal(kind opKind, dst []byte) (int, error) {
	_, _, _, call := cipherCalls(kind)
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(kind)
	if err != nil {
		return s.doneN(call, 0, err)
	}
	out, err := op.cipher.clone().final()
	if err != nil {
		s.end(err)
		return s.doneN(call, 0, err)
	}
	n, err := fill(out, dst)
	if dst != nil && err == nil {
		s.end(nil)
	}
	return s.doneN(call, n, err)
}

// EncryptInit starts an encryption operation.
func (s *Session) EncryptInit(m *mechanism.Mechanism, key token.ObjectHandle) error {
	return s.cipherInit(opEncrypt, m, key)
}

func (s *Session) Encrypt(data, dst []byte) (int, error) {
	return s.cipherSingle(opEncrypt, data, dst)
}

func (s *Session) EncryptUpdate(part, dst []byte) (int, error) {
	return s.cipherUpdate(opEncrypt, part, dst)
}

func (s *Session) EncryptFinal(dst []byte) (int, error) {
	return s.cipherFinal(opEncrypt, dst)
}

// DecryptInit starts a decryption operation.
func (s *Session) DecryptInit(m *mechanism.Mechanism, key token.ObjectHandle) error {
	return s.cipherInit(opDecrypt, m, key)
}

func (s *Session) Decrypt(data, dst []byte) (int, error) {
	return s.cipherSingle(opDecrypt, data, dst)
}

func (s *Session) DecryptUpdate(part, dst []byte) (int, error) {
	return s.cipherUpdate(opDecrypt, part, dst)
}

func (s *Session) DecryptFinal(dst []byte) (int, error) {
	return s.cipherFinal(opDecrypt, dst)
}
