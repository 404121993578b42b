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

package softtoken_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/operation"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage/memory"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

func TestMessageAESGCM(t *testing.T) {
	s := openUser(t, newToken(t, memory.New()))
	key := secretKey(t, s, ck.CKK_AES, sequence(32))
	m := mechanism.New(ck.CKM_AES_GCM)

	enc := newEngine(s)
	require.NoError(t, enc.MessageInit(operation.KindMessageEncrypt, m, key))
	type sealed struct {
		nonce, aad, ciphertext, tag []byte
	}
	var messages []sealed
	for i, text := range []string{"first message", "second, longer message"} {
		nonce := bytes.Repeat([]byte{byte(i + 1)}, 12)
		aad := []byte{byte(i)}
		params := mechanism.NewMessageParams(nonce, 128)
		ciphertext, err := enc.EncryptMessage(params, aad, []byte(text))
		require.NoError(t, err)
		assert.Len(t, ciphertext, len(text))
		require.Len(t, params.Tag(), 16)
		messages = append(messages, sealed{nonce, aad, ciphertext, params.Tag()})
	}
	require.NoError(t, enc.MessagesFinal())

	dec := newEngine(s)
	require.NoError(t, dec.MessageInit(operation.KindMessageDecrypt, m, key))
	for i, msg := range messages {
		params := mechanism.NewMessageParamsWithTag(msg.nonce, msg.tag)
		plaintext, err := dec.DecryptMessage(params, msg.aad, msg.ciphertext)
		require.NoError(t, err)
		assert.Equal(t, []string{"first message", "second, longer message"}[i], string(plaintext))
	}

	// A bad tag fails the message, not the operation.
	bad := bytes.Clone(messages[0].tag)
	bad[0] ^= 1
	_, err := dec.DecryptMessage(mechanism.NewMessageParamsWithTag(messages[0].nonce, bad), messages[0].aad, messages[0].ciphertext)
	assert.True(t, token.IsCode(err, ck.CKR_ENCRYPTED_DATA_INVALID))
	plaintext, err := dec.DecryptMessage(
		mechanism.NewMessageParamsWithTag(messages[1].nonce, messages[1].tag), messages[1].aad, messages[1].ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "second, longer message", string(plaintext))
	require.NoError(t, dec.MessagesFinal())
}

func TestMessageChaCha20Poly1305(t *testing.T) {
	s := openUser(t, newToken(t, memory.New()))
	value := sequence(32)
	key := secretKey(t, s, ck.CKK_CHACHA20, value)
	nonce := sequence(12)
	aad := []byte("aad")
	plaintext := sequence(300)

	e := newEngine(s)
	require.NoError(t, e.MessageInit(operation.KindMessageEncrypt, mechanism.New(ck.CKM_CHACHA20_POLY1305), key))
	params := mechanism.NewMessageParams(nonce, 128)
	require.NoError(t, e.MessageBegin(params, aad))
	for off := 0; off < 200; off += 50 {
		n, err := e.MessageContinue(params, plaintext[off:off+50], nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	n, err := e.MessageEndSize(params, plaintext[200:])
	require.NoError(t, err)
	assert.Equal(t, len(plaintext), n)
	ciphertext := make([]byte, n)
	n, err = e.MessageEnd(params, plaintext[200:], ciphertext)
	require.NoError(t, err)
	require.NoError(t, e.MessagesFinal())

	aead, err := chacha20poly1305.New(value)
	require.NoError(t, err)
	want := aead.Seal(nil, nonce, plaintext, aad)
	assert.Equal(t, want, append(ciphertext[:n], params.Tag()...))
}

func TestMessageEndProbeKeepsMessage(t *testing.T) {
	s := openUser(t, newToken(t, memory.New()))
	key := secretKey(t, s, ck.CKK_AES, sequence(16))
	require.NoError(t, s.MessageEncryptInit(mechanism.New(ck.CKM_AES_GCM), key))
	params := mechanism.NewMessageParams(sequence(12), 128)
	require.NoError(t, s.EncryptMessageBegin(params, nil))

	n, err := s.EncryptMessageNext(params, []byte("payload"), nil, true)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	n, err = s.EncryptMessageNext(params, []byte("payload"), make([]byte, 3), true)
	assert.ErrorIs(t, err, token.ErrBufferTooSmall)
	assert.Equal(t, 7, n)
	assert.Empty(t, params.Tag())

	out := make([]byte, 7)
	_, err = s.EncryptMessageNext(params, []byte("payload"), out, true)
	require.NoError(t, err)
	assert.Len(t, params.Tag(), 16)

	// The message is finished, so another part has nothing to attach to.
	_, err = s.EncryptMessageNext(params, []byte("more"), out, true)
	assert.ErrorIs(t, err, token.ErrOperationNotInitialized)
	require.NoError(t, s.MessageEncryptFinal())
}

func TestMessageHMAC(t *testing.T) {
	s := openUser(t, newToken(t, memory.New()))
	value := sequence(32)
	key := secretKey(t, s, ck.CKK_GENERIC_SECRET, value)
	m := mechanism.New(ck.CKM_SHA256_HMAC)

	signer := newEngine(s)
	require.NoError(t, signer.MessageInit(operation.KindMessageSign, m, key))
	var sigs [][]byte
	for _, text := range []string{"one", "two"} {
		sig, err := signer.SignMessage(nil, []byte(text))
		require.NoError(t, err)
		mac := hmac.New(sha256.New, value)
		mac.Write([]byte(text))
		assert.Equal(t, mac.Sum(nil), sig)
		sigs = append(sigs, sig)
	}
	require.NoError(t, signer.MessagesFinal())

	verifier := newEngine(s)
	require.NoError(t, verifier.MessageInit(operation.KindMessageVerify, m, key))
	require.NoError(t, verifier.VerifyMessage(nil, []byte("one"), sigs[0]))
	err := verifier.VerifyMessage(nil, []byte("one"), sigs[1])
	assert.ErrorIs(t, err, operation.ErrSignatureInvalid)

	// Streamed parts sign the same bytes as a single message.
	require.NoError(t, verifier.MessageBegin(nil, nil))
	_, err = verifier.MessageContinue(nil, []byte("t"), nil)
	require.NoError(t, err)
	require.NoError(t, verifier.MessageVerifyEnd(nil, []byte("wo"), sigs[1]))
	require.NoError(t, verifier.MessagesFinal())
}

func TestMessageInitChecks(t *testing.T) {
	s := openUser(t, newToken(t, memory.New()))
	aesKey := secretKey(t, s, ck.CKK_AES, sequence(16))

	err := s.MessageEncryptInit(mechanism.New(ck.CKM_AES_CBC), aesKey)
	assert.True(t, token.IsCode(err, ck.CKR_MECHANISM_INVALID))

	err = s.MessageEncryptInit(mechanism.New(ck.CKM_CHACHA20_POLY1305), aesKey)
	assert.True(t, token.IsCode(err, ck.CKR_KEY_TYPE_INCONSISTENT))

	require.NoError(t, s.MessageEncryptInit(mechanism.New(ck.CKM_AES_GCM), aesKey))
	err = s.EncryptMessageBegin(nil, nil)
	assert.True(t, token.IsCode(err, ck.CKR_MECHANISM_PARAM_INVALID))
	err = s.SignInit(mechanism.New(ck.CKM_SHA256_HMAC), aesKey)
	assert.ErrorIs(t, err, token.ErrOperationActive)
}
