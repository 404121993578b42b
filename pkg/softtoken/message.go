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
	"crypto/cipher"
	"crypto/hmac"
	"hash"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// messageOp is a PKCS#11 3.0 message-based operation. The key is bound at
// init; each message brings its own nonce and tag.
type messageOp struct {
	mech uint64
	key  *object
	cur  *message
}

// message is the one message in progress.
type message struct {
	params *mechanism.MessageParams
	aead   cipher.AEAD
	nonce  []byte
	aad    []byte
	buf    []byte
	mac    hash.Hash
}

var messageCalls = map[opKind][4]string{
	opMessageEncrypt: {"C_MessageEncryptInit", "C_EncryptMessageBegin", "C_EncryptMessageNext", "C_MessageEncryptFinal"},
	opMessageDecrypt: {"C_MessageDecryptInit", "C_DecryptMessageBegin", "C_DecryptMessageNext", "C_MessageDecryptFinal"},
	opMessageSign:    {"C_MessageSignInit", "C_SignMessageBegin", "C_SignMessageNext", "C_MessageSignFinal"},
	opMessageVerify:  {"C_MessageVerifyInit", "C_VerifyMessageBegin", "C_VerifyMessageNext", "C_MessageVerifyFinal"},
}

func (s *Session) messageInit(kind opKind, m *mechanism.Mechanism, key token.ObjectHandle) error {
	call := messageCalls[kind][0]
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

	var usage, flag uint64
	switch kind {
	case opMessageEncrypt:
		usage, flag = ck.CKA_ENCRYPT, ck.CKF_MESSAGE_ENCRYPT
	case opMessageDecrypt:
		usage, flag = ck.CKA_DECRYPT, ck.CKF_MESSAGE_DECRYPT
	case opMessageSign:
		usage, flag = ck.CKA_SIGN, ck.CKF_MESSAGE_SIGN
	case opMessageVerify:
		usage, flag = ck.CKA_VERIFY, ck.CKF_MESSAGE_VERIFY
	}
	if !mechanisms[m.Type].Has(flag) {
		return s.done(call, ckr(ck.CKR_MECHANISM_INVALID))
	}
	if m.Params != nil {
		return s.done(call, ckr(ck.CKR_MECHANISM_PARAM_INVALID))
	}
	o, err := s.key(key, usage)
	if err != nil {
		return s.done(call, err)
	}
	// Fail at init rather than on the first message when the key cannot
	// serve the mechanism.
	switch m.Type {
	case ck.CKM_CHACHA20_POLY1305:
		_, err = secretValue(o, ck.CKK_CHACHA20, ck.CKK_GENERIC_SECRET)
	case ck.CKM_AES_GCM:
		_, err = aesBlock(o)
	default:
		_, err = secretValue(o)
	}
	if err != nil {
		return s.done(call, err)
	}
	op := &activeOp{kind: kind, mech: m.Type, msg: &messageOp{mech: m.Type, key: o}}
	return s.done(call, s.start(op))
}

func (s *Session) messageBegin(kind opKind, params mechanism.Params, aad []byte) error {
	call := messageCalls[kind][1]
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(kind)
	if err != nil {
		return s.done(call, err)
	}
	if op.msg.cur != nil {
		return s.done(call, ckr(ck.CKR_OPERATION_ACTIVE))
	}

	msg := &message{aad: aad}
	switch kind {
	case opMessageEncrypt, opMessageDecrypt:
		mp, ok := params.(*mechanism.MessageParams)
		if !ok {
			return s.done(call, ckr(ck.CKR_MECHANISM_PARAM_INVALID))
		}
		if kind == opMessageDecrypt && len(mp.Tag())*8 != mp.TagBits() {
			return s.done(call, ckr(ck.CKR_MECHANISM_PARAM_INVALID))
		}
		msg.params = mp
		msg.nonce = mp.Nonce()
		msg.aead, err = newAEAD(op.msg.mech, op.msg.key, msg.nonce, mp.TagBits())
		if err != nil {
			return s.done(call, err)
		}
	default:
		if params != nil {
			return s.done(call, ckr(ck.CKR_MECHANISM_PARAM_INVALID))
		}
		key, err := secretValue(op.msg.key)
		if err != nil {
			return s.done(call, err)
		}
		msg.mac = hmac.New(digests[hmacDigest[op.msg.mech]].new, key)
	}
	op.msg.cur = msg
	return s.done(call, nil)
}

// cipherMessageNext feeds part of the current message. Output appears
// only with the final part.
func (s *Session) cipherMessageNext(kind opKind, params mechanism.Params, part, dst []byte, end bool) (int, error) {
	call := messageCalls[kind][2]
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(kind)
	if err != nil {
		return s.doneN(call, 0, err)
	}
	msg := op.msg.cur
	if msg == nil {
		return s.doneN(call, 0, ckr(ck.CKR_OPERATION_NOT_INITIALIZED))
	}
	if !end {
		if dst != nil {
			msg.buf = append(msg.buf, part...)
		}
		return s.doneN(call, 0, nil)
	}

	input := append(append([]byte(nil), msg.buf...), part...)
	var out, tag []byte
	if kind == opMessageEncrypt {
		sealed := msg.aead.Seal(nil, msg.nonce, input, msg.aad)
		split := len(sealed) - msg.aead.Overhead()
		out, tag = sealed[:split], sealed[split:]
	} else {
		out, err = msg.aead.Open(nil, msg.nonce, append(input, msg.params.Tag()...), msg.aad)
		if err != nil {
			op.msg.cur = nil
			return s.doneN(call, 0, ckr(ck.CKR_ENCRYPTED_DATA_INVALID))
		}
	}
	n, err := fill(out, dst)
	if dst == nil || err != nil {
		return s.doneN(call, n, err)
	}
	if tag != nil {
		target := msg.params
		if mp, ok := params.(*mechanism.MessageParams); ok {
			target = mp
		}
		target.SetTag(tag)
	}
	op.msg.cur = nil
	return s.doneN(call, n, nil)
}

func (s *Session) messageFinal(kind opKind) error {
	call := messageCalls[kind][3]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.active(kind); err != nil {
		return s.done(call, err)
	}
	s.end(nil)
	return s.done(call, nil)
}

func (s *Session) MessageEncryptInit(m *mechanism.Mechanism, key token.ObjectHandle) error {
	return s.messageInit(opMessageEncrypt, m, key)
}

func (s *Session) EncryptMessageBegin(params mechanism.Params, aad []byte) error {
	return s.messageBegin(opMessageEncrypt, params, aad)
}

// EncryptMessageNext stores the tag of the finished message in params.
func (s *Session) EncryptMessageNext(params mechanism.Params, part, dst []byte, end bool) (int, error) {
	return s.cipherMessageNext(opMessageEncrypt, params, part, dst, end)
}

func (s *Session) MessageEncryptFinal() error {
	return s.messageFinal(opMessageEncrypt)
}

func (s *Session) MessageDecryptInit(m *mechanism.Mechanism, key token.ObjectHandle) error {
	return s.messageInit(opMessageDecrypt, m, key)
}

func (s *Session) DecryptMessageBegin(params mechanism.Params, aad []byte) error {
	return s.messageBegin(opMessageDecrypt, params, aad)
}

func (s *Session) DecryptMessageNext(params mechanism.Params, part, dst []byte, end bool) (int, error) {
	return s.cipherMessageNext(opMessageDecrypt, params, part, dst, end)
}

func (s *Session) MessageDecryptFinal() error {
	return s.messageFinal(opMessageDecrypt)
}

func (s *Session) MessageSignInit(m *mechanism.Mechanism, key token.ObjectHandle) error {
	return s.messageInit(opMessageSign, m, key)
}

func (s *Session) SignMessageBegin(params mechanism.Params) error {
	return s.messageBegin(opMessageSign, params, nil)
}

// SignMessageNext absorbs part; with end set it writes the signature.
func (s *Session) SignMessageNext(params mechanism.Params, part, dst []byte, end bool) (int, error) {
	const call = "C_SignMessageNext"
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(opMessageSign)
	if err != nil {
		return s.doneN(call, 0, err)
	}
	msg := op.msg.cur
	if msg == nil {
		return s.doneN(call, 0, ckr(ck.CKR_OPERATION_NOT_INITIALIZED))
	}
	if !end {
		msg.mac.Write(part)
		return s.doneN(call, 0, nil)
	}
	size := msg.mac.Size()
	if probe, err := sized(size, dst); probe {
		return s.doneN(call, size, err)
	}
	msg.mac.Write(part)
	op.msg.cur = nil
	return s.doneN(call, copy(dst, msg.mac.Sum(nil)), nil)
}

func (s *Session) MessageSignFinal() error {
	return s.messageFinal(opMessageSign)
}

func (s *Session) MessageVerifyInit(m *mechanism.Mechanism, key token.ObjectHandle) error {
	return s.messageInit(opMessageVerify, m, key)
}

func (s *Session) VerifyMessageBegin(params mechanism.Params) error {
	return s.messageBegin(opMessageVerify, params, nil)
}

func (s *Session) VerifyMessageNext(params mechanism.Params, part, signature []byte, end bool) error {
	const call = "C_VerifyMessageNext"
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(opMessageVerify)
	if err != nil {
		return s.done(call, err)
	}
	msg := op.msg.cur
	if msg == nil {
		return s.done(call, ckr(ck.CKR_OPERATION_NOT_INITIALIZED))
	}
	msg.mac.Write(part)
	if !end {
		return s.done(call, nil)
	}
	op.msg.cur = nil
	sum := msg.mac.Sum(nil)
	if len(signature) != len(sum) {
		return s.done(call, ckr(ck.CKR_SIGNATURE_LEN_RANGE))
	}
	if !hmac.Equal(sum, signature) {
		return s.done(call, ckr(ck.CKR_SIGNATURE_INVALID))
	}
	return s.done(call, nil)
}

func (s *Session) MessageVerifyFinal() error {
	return s.messageFinal(opMessageVerify)
}
