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

//go:build pkcs11

package pkcs11

import (
	"github.com/miekg/pkcs11"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

func (s *Session) SignInit(m *mechanism.Mechanism, key token.ObjectHandle) error {
	return s.init("C_SignInit", m, func(mech []*pkcs11.Mechanism) error {
		return s.mod.SignInit(s.handle, mech, pkcs11.ObjectHandle(key))
	})
}

func (s *Session) Sign(data, dst []byte) (int, error) {
	return s.emit("C_Sign", data, dst, func() ([]byte, error) {
		return s.mod.Sign(s.handle, data)
	})
}

func (s *Session) SignUpdate(part []byte) error {
	return s.step("C_SignUpdate", s.mod.SignUpdate(s.handle, part))
}

func (s *Session) SignFinal(dst []byte) (int, error) {
	return s.emit("C_SignFinal", nil, dst, func() ([]byte, error) {
		return s.mod.SignFinal(s.handle)
	})
}

func (s *Session) VerifyInit(m *mechanism.Mechanism, key token.ObjectHandle) error {
	return s.init("C_VerifyInit", m, func(mech []*pkcs11.Mechanism) error {
		return s.mod.VerifyInit(s.handle, mech, pkcs11.ObjectHandle(key))
	})
}

func (s *Session) Verify(data, signature []byte) error {
	return s.step("C_Verify", s.mod.Verify(s.handle, data, signature))
}

func (s *Session) VerifyUpdate(part []byte) error {
	return s.step("C_VerifyUpdate", s.mod.VerifyUpdate(s.handle, part))
}

func (s *Session) VerifyFinal(signature []byte) error {
	return s.step("C_VerifyFinal", s.mod.VerifyFinal(s.handle, signature))
}

func (s *Session) EncryptInit(m *mechanism.Mechanism, key token.ObjectHandle) error {
	return s.init("C_EncryptInit", m, func(mech []*pkcs11.Mechanism) error {
		return s.mod.EncryptInit(s.handle, mech, pkcs11.ObjectHandle(key))
	})
}

func (s *Session) Encrypt(data, dst []byte) (int, error) {
	return s.emit("C_Encrypt", data, dst, func() ([]byte, error) {
		return s.mod.Encrypt(s.handle, data)
	})
}

func (s *Session) EncryptUpdate(part, dst []byte) (int, error) {
	return s.emit("C_EncryptUpdate", part, dst, func() ([]byte, error) {
		return s.mod.EncryptUpdate(s.handle, part)
	})
}

func (s *Session) EncryptFinal(dst []byte) (int, error) {
	return s.emit("C_EncryptFinal", nil, dst, func() ([]byte, error) {
		return s.mod.EncryptFinal(s.handle)
	})
}

func (s *Session) DecryptInit(m *mechanism.Mechanism, key token.ObjectHandle) error {
	return s.init("C_DecryptInit", m, func(mech []*pkcs11.Mechanism) error {
		return s.mod.DecryptInit(s.handle, mech, pkcs11.ObjectHandle(key))
	})
}

func (s *Session) Decrypt(data, dst []byte) (int, error) {
	return s.emit("C_Decrypt", data, dst, func() ([]byte, error) {
		return s.mod.Decrypt(s.handle, data)
	})
}

func (s *Session) DecryptUpdate(part, dst []byte) (int, error) {
	return s.emit("C_DecryptUpdate", part, dst, func() ([]byte, error) {
		return s.mod.DecryptUpdate(s.handle, part)
	})
}

func (s *Session) DecryptFinal(dst []byte) (int, error) {
	return s.emit("C_DecryptFinal", nil, dst, func() ([]byte, error) {
		return s.mod.DecryptFinal(s.handle)
	})
}

func (s *Session) DigestInit(m *mechanism.Mechanism) error {
	return s.init("C_DigestInit", m, func(mech []*pkcs11.Mechanism) error {
		return s.mod.DigestInit(s.handle, mech)
	})
}

func (s *Session) Digest(data, dst []byte) (int, error) {
	return s.emit("C_Digest", data, dst, func() ([]byte, error) {
		return s.mod.Digest(s.handle, data)
	})
}

func (s *Session) DigestUpdate(part []byte) error {
	return s.step("C_DigestUpdate", s.mod.DigestUpdate(s.handle, part))
}

func (s *Session) DigestFinal(dst []byte) (int, error) {
	return s.emit("C_DigestFinal", nil, dst, func() ([]byte, error) {
		return s.mod.DigestFinal(s.handle)
	})
}

// The binding predates the PKCS#11 3.0 message API.

func unsupported(call string) error {
	return token.NewError(call, ck.CKR_FUNCTION_NOT_SUPPORTED)
}

func (s *Session) MessageEncryptInit(*mechanism.Mechanism, token.ObjectHandle) error {
	return s.done("C_MessageEncryptInit", unsupported("C_MessageEncryptInit"))
}

func (s *Session) EncryptMessageBegin(mechanism.Params, []byte) error {
	return s.done("C_EncryptMessageBegin", unsupported("C_EncryptMessageBegin"))
}

func (s *Session) EncryptMessageNext(mechanism.Params, []byte, []byte, bool) (int, error) {
	return 0, s.done("C_EncryptMessageNext", unsupported("C_EncryptMessageNext"))
}

func (s *Session) MessageEncryptFinal() error {
	return s.done("C_MessageEncryptFinal", unsupported("C_MessageEncryptFinal"))
}

func (s *Session) MessageDecryptInit(*mechanism.Mechanism, token.ObjectHandle) error {
	return s.done("C_MessageDecryptInit", unsupported("C_MessageDecryptInit"))
}

func (s *Session) DecryptMessageBegin(mechanism.Params, []byte) error {
	return s.done("C_DecryptMessageBegin", unsupported("C_DecryptMessageBegin"))
}

func (s *Session) DecryptMessageNext(mechanism.Params, []byte, []byte, bool) (int, error) {
	return 0, s.done("C_DecryptMessageNext", unsupported("C_DecryptMessageNext"))
}

func (s *Session) MessageDecryptFinal() error {
	return s.done("C_MessageDecryptFinal", unsupported("C_MessageDecryptFinal"))
}

func (s *Session) MessageSignInit(*mechanism.Mechanism, token.ObjectHandle) error {
	return s.done("C_MessageSignInit", unsupported("C_MessageSignInit"))
}

func (s *Session) SignMessageBegin(mechanism.Params) error {
	return s.done("C_SignMessageBegin", unsupported("C_SignMessageBegin"))
}

func (s *Session) SignMessageNext(mechanism.Params, []byte, []byte, bool) (int, error) {
	return 0, s.done("C_SignMessageNext", unsupported("C_SignMessageNext"))
}

func (s *Session) MessageSignFinal() error {
	return s.done("C_MessageSignFinal", unsupported("C_MessageSignFinal"))
}

func (s *Session) MessageVerifyInit(*mechanism.Mechanism, token.ObjectHandle) error {
	return s.done("C_MessageVerifyInit", unsupported("C_MessageVerifyInit"))
}

func (s *Session) VerifyMessageBegin(mechanism.Params) error {
	return s.done("C_VerifyMessageBegin", unsupported("C_VerifyMessageBegin"))
}

func (s *Session) VerifyMessageNext(mechanism.Params, []byte, []byte, bool) error {
	return s.done("C_VerifyMessageNext", unsupported("C_VerifyMessageNext"))
}

func (s *Session) MessageVerifyFinal() error {
	return s.done("C_MessageVerifyFinal", unsupported("C_MessageVerifyFinal"))
}
