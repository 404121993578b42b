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

// Package token defines the interfaces go-cryptoki consumes from a PKCS#11
// token, and the error type for failures the token reports.
//
// The interfaces mirror the C API closely so that an adapter over a real
// PKCS#11 library is thin. Output-producing calls take a destination slice
// and follow the PKCS#11 length convention:
//
//   - dst == nil: return the required output length and change nothing
//   - len(dst) too small: return the required length with an *Error whose
//     code is CKR_BUFFER_TOO_SMALL and change nothing
//   - otherwise: perform the step, write the output and return its length
//
// Any other failure terminates the active operation on the token side, as
// PKCS#11 requires.
package token

import (
	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
)

// ObjectHandle identifies an object within a session's token.
type ObjectHandle uint64

// SessionHandle identifies an open session.
type SessionHandle uint64

// MechanismInfo is CK_MECHANISM_INFO.
type MechanismInfo struct {
	MinKeySize uint64
	MaxKeySize uint64
	Flags      uint64
}

// Has reports whether all bits of flag are set.
func (i MechanismInfo) Has(flag uint64) bool {
	return i.Flags&flag == flag
}

// SlotInfo describes a slot and the token in it.
type SlotInfo struct {
	ID          uint64
	Description string
	TokenLabel  string
	Model       string
	Serial      string
}

// Provider is a loaded PKCS#11 module.
type Provider interface {
	// Slots lists slots that hold a token.
	Slots() ([]SlotInfo, error)

	// Mechanisms lists the mechanisms a slot's token supports.
	Mechanisms(slot uint64) ([]uint64, error)

	// MechanismInfo returns the capabilities of one mechanism.
	MechanismInfo(slot uint64, mech uint64) (MechanismInfo, error)

	// OpenSession opens a serial session, read-write when readWrite is set.
	OpenSession(slot uint64, readWrite bool) (Session, error)

	// Close finalizes the module. Sessions must be closed first.
	Close() error
}

// Session is one open session. A session supports at most one active
// cryptographic operation and must not be used from two goroutines at once.
type Session interface {
	Handle() SessionHandle
	Login(userType uint64, pin string) error
	Logout() error
	Close() error

	ObjectManager
	KeyManager
	Signer
	Verifier
	Encrypter
	Decrypter
	Digester
	MessageEncrypter
	MessageDecrypter
	MessageSigner
	MessageVerifier
}

// ObjectManager covers object creation, search and attribute access.
type ObjectManager interface {
	CreateObject(template []attribute.Raw) (ObjectHandle, error)
	DestroyObject(obj ObjectHandle) error

	// FindObjects returns at most max handles matching template. An empty
	// template matches every object visible to the session.
	FindObjects(template []attribute.Raw, max int) ([]ObjectHandle, error)

	// GetAttributeValue reads the requested attributes. The returned slice
	// has one entry per requested type, in request order, with Status set
	// for attributes the token did not return. The error is an *Error with
	// CKR_ATTRIBUTE_SENSITIVE or CKR_ATTRIBUTE_TYPE_INVALID when any entry
	// is not StatusOK; the slice is still valid in that case.
	GetAttributeValue(obj ObjectHandle, types []uint64) ([]attribute.Raw, error)
}

// KeyManager covers key generation, wrapping and derivation.
type KeyManager interface {
	GenerateKey(m *mechanism.Mechanism, template []attribute.Raw) (ObjectHandle, error)
	GenerateKeyPair(m *mechanism.Mechanism, public, private []attribute.Raw) (ObjectHandle, ObjectHandle, error)
	WrapKey(m *mechanism.Mechanism, wrappingKey, key ObjectHandle, dst []byte) (int, error)
	UnwrapKey(m *mechanism.Mechanism, unwrappingKey ObjectHandle, wrapped []byte, template []attribute.Raw) (ObjectHandle, error)
	DeriveKey(m *mechanism.Mechanism, baseKey ObjectHandle, template []attribute.Raw) (ObjectHandle, error)
}

// Signer produces signatures and MACs, single-part or multi-part.
type Signer interface {
	SignInit(m *mechanism.Mechanism, key ObjectHandle) error
	Sign(data, dst []byte) (int, error)
	SignUpdate(part []byte) error
	SignFinal(dst []byte) (int, error)
}

// Verifier reports a mismatch as an *Error with CKR_SIGNATURE_INVALID.
type Verifier interface {
	VerifyInit(m *mechanism.Mechanism, key ObjectHandle) error
	Verify(data, signature []byte) error
	VerifyUpdate(part []byte) error
	VerifyFinal(signature []byte) error
}

// Encrypter encrypts single-part or multi-part data.
type Encrypter interface {
	EncryptInit(m *mechanism.Mechanism, key ObjectHandle) error
	Encrypt(data, dst []byte) (int, error)
	EncryptUpdate(part, dst []byte) (int, error)
	EncryptFinal(dst []byte) (int, error)
}

// Decrypter reverses Encrypter.
type Decrypter interface {
	DecryptInit(m *mechanism.Mechanism, key ObjectHandle) error
	Decrypt(data, dst []byte) (int, error)
	DecryptUpdate(part, dst []byte) (int, error)
	DecryptFinal(dst []byte) (int, error)
}

// Digester hashes single-part or multi-part data.
type Digester interface {
	DigestInit(m *mechanism.Mechanism) error
	Digest(data, dst []byte) (int, error)
	DigestUpdate(part []byte) error
	DigestFinal(dst []byte) (int, error)
}

// MessageEncrypter is the PKCS#11 3.0 message-based encryption API. Each
// message is framed by EncryptMessageBegin and a final EncryptMessageNext
// call with end set.
type MessageEncrypter interface {
	MessageEncryptInit(m *mechanism.Mechanism, key ObjectHandle) error
	EncryptMessageBegin(params mechanism.Params, aad []byte) error
	EncryptMessageNext(params mechanism.Params, part, dst []byte, end bool) (int, error)
	MessageEncryptFinal() error
}

// MessageDecrypter is the message-based counterpart of Decrypter.
type MessageDecrypter interface {
	MessageDecryptInit(m *mechanism.Mechanism, key ObjectHandle) error
	DecryptMessageBegin(params mechanism.Params, aad []byte) error
	DecryptMessageNext(params mechanism.Params, part, dst []byte, end bool) (int, error)
	MessageDecryptFinal() error
}

// MessageSigner signs a sequence of messages under one key.
type MessageSigner interface {
	MessageSignInit(m *mechanism.Mechanism, key ObjectHandle) error
	SignMessageBegin(params mechanism.Params) error
	SignMessageNext(params mechanism.Params, part, dst []byte, end bool) (int, error)
	MessageSignFinal() error
}

// MessageVerifier checks the signature on the final SignMessageNext-style
// call; signature is ignored unless end is set.
type MessageVerifier interface {
	MessageVerifyInit(m *mechanism.Mechanism, key ObjectHandle) error
	VerifyMessageBegin(params mechanism.Params) error
	VerifyMessageNext(params mechanism.Params, part, signature []byte, end bool) error
	MessageVerifyFinal() error
}
