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

package operation

import (
	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// fakeSession records token calls. Output-producing calls return the bytes
// configured in outputs with PKCS#11 length semantics; any call returns the
// error configured in errs.
type fakeSession struct {
	calls   []string
	errs    map[string]error
	outputs map[string][]byte
	mechs   []*mechanism.Mechanism
	params  []mechanism.Params
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		errs:    make(map[string]error),
		outputs: make(map[string][]byte),
	}
}

func (f *fakeSession) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeSession) plain(call string) error {
	f.calls = append(f.calls, call)
	return f.errs[call]
}

func (f *fakeSession) init(call string, m *mechanism.Mechanism) error {
	f.mechs = append(f.mechs, m)
	return f.plain(call)
}

func (f *fakeSession) produce(call string, dst []byte) (int, error) {
	if err := f.plain(call); err != nil {
		return 0, err
	}
	out := f.outputs[call]
	if dst == nil {
		return len(out), nil
	}
	if len(dst) < len(out) {
		return len(out), token.NewError(call, ck.CKR_BUFFER_TOO_SMALL)
	}
	return copy(dst, out), nil
}

func (f *fakeSession) Handle() token.SessionHandle {
	return 1
}

func (f *fakeSession) Login(uint64, string) error {
	return f.plain("C_Login")
}

func (f *fakeSession) Logout() error {
	return f.plain("C_Logout")
}

func (f *fakeSession) Close() error {
	return f.plain("C_CloseSession")
}

func (f *fakeSession) DestroyObject(token.ObjectHandle) error {
	return f.plain("C_DestroyObject")
}

func (f *fakeSession) CreateObject([]attribute.Raw) (token.ObjectHandle, error) {
	return 1, f.plain("C_CreateObject")
}

func (f *fakeSession) FindObjects([]attribute.Raw, int) ([]token.ObjectHandle, error) {
	return nil, f.plain("C_FindObjects")
}

func (f *fakeSession) GetAttributeValue(token.ObjectHandle, []uint64) ([]attribute.Raw, error) {
	return nil, f.plain("C_GetAttributeValue")
}

func (f *fakeSession) GenerateKey(*mechanism.Mechanism, []attribute.Raw) (token.ObjectHandle, error) {
	return 1, f.plain("C_GenerateKey")
}

func (f *fakeSession) GenerateKeyPair(*mechanism.Mechanism, []attribute.Raw, []attribute.Raw) (token.ObjectHandle, token.ObjectHandle, error) {
	return 1, 2, f.plain("C_GenerateKeyPair")
}

func (f *fakeSession) WrapKey(_ *mechanism.Mechanism, _, _ token.ObjectHandle, dst []byte) (int, error) {
	return f.produce("C_WrapKey", dst)
}

func (f *fakeSession) UnwrapKey(*mechanism.Mechanism, token.ObjectHandle, []byte, []attribute.Raw) (token.ObjectHandle, error) {
	return 1, f.plain("C_UnwrapKey")
}

func (f *fakeSession) DeriveKey(*mechanism.Mechanism, token.ObjectHandle, []attribute.Raw) (token.ObjectHandle, error) {
	return 1, f.plain("C_DeriveKey")
}

func (f *fakeSession) SignInit(m *mechanism.Mechanism, _ token.ObjectHandle) error {
	return f.init("C_SignInit", m)
}

func (f *fakeSession) Sign(_, dst []byte) (int, error) {
	return f.produce("C_Sign", dst)
}

func (f *fakeSession) SignUpdate([]byte) error {
	return f.plain("C_SignUpdate")
}

func (f *fakeSession) SignFinal(dst []byte) (int, error) {
	return f.produce("C_SignFinal", dst)
}

func (f *fakeSession) VerifyInit(m *mechanism.Mechanism, _ token.ObjectHandle) error {
	return f.init("C_VerifyInit", m)
}

func (f *fakeSession) Verify(_, _ []byte) error {
	return f.plain("C_Verify")
}

func (f *fakeSession) VerifyUpdate([]byte) error {
	return f.plain("C_VerifyUpdate")
}

func (f *fakeSession) VerifyFinal([]byte) error {
	return f.plain("C_VerifyFinal")
}

func (f *fakeSession) EncryptInit(m *mechanism.Mechanism, _ token.ObjectHandle) error {
	return f.init("C_EncryptInit", m)
}

func (f *fakeSession) Encrypt(_, dst []byte) (int, error) {
	return f.produce("C_Encrypt", dst)
}

func (f *fakeSession) EncryptUpdate(_, dst []byte) (int, error) {
	return f.produce("C_EncryptUpdate", dst)
}

func (f *fakeSession) EncryptFinal(dst []byte) (int, error) {
	return f.produce("C_EncryptFinal", dst)
}

func (f *fakeSession) DecryptInit(m *mechanism.Mechanism, _ token.ObjectHandle) error {
	return f.init("C_DecryptInit", m)
}

func (f *fakeSession) Decrypt(_, dst []byte) (int, error) {
	return f.produce("C_Decrypt", dst)
}

func (f *fakeSession) DecryptUpdate(_, dst []byte) (int, error) {
	return f.produce("C_DecryptUpdate", dst)
}

func (f *fakeSession) DecryptFinal(dst []byte) (int, error) {
	return f.produce("C_DecryptFinal", dst)
}

func (f *fakeSession) DigestInit(m *mechanism.Mechanism) error {
	return f.init("C_DigestInit", m)
}

func (f *fakeSession) Digest(_, dst []byte) (int, error) {
	return f.produce("C_Digest", dst)
}

func (f *fakeSession) DigestUpdate([]byte) error {
	return f.plain("C_DigestUpdate")
}

func (f *fakeSession) DigestFinal(dst []byte) (int, error) {
	return f.produce("C_DigestFinal", dst)
}

func (f *fakeSession) MessageEncryptInit(m *mechanism.Mechanism, _ token.ObjectHandle) error {
	return f.init("C_MessageEncryptInit", m)
}

func (f *fakeSession) EncryptMessageBegin(p mechanism.Params, _ []byte) error {
	f.params = append(f.params, p)
	return f.plain("C_EncryptMessageBegin")
}

func (f *fakeSession) EncryptMessageNext(_ mechanism.Params, _, dst []byte, end bool) (int, error) {
	if end {
		return f.produce("C_EncryptMessageNext/end", dst)
	}
	return f.produce("C_EncryptMessageNext", dst)
}

func (f *fakeSession) MessageEncryptFinal() error {
	return f.plain("C_MessageEncryptFinal")
}

func (f *fakeSession) MessageDecryptInit(m *mechanism.Mechanism, _ token.ObjectHandle) error {
	return f.init("C_MessageDecryptInit", m)
}

func (f *fakeSession) DecryptMessageBegin(p mechanism.Params, _ []byte) error {
	f.params = append(f.params, p)
	return f.plain("C_DecryptMessageBegin")
}

func (f *fakeSession) DecryptMessageNext(_ mechanism.Params, _, dst []byte, end bool) (int, error) {
	if end {
		return f.produce("C_DecryptMessageNext/end", dst)
	}
	return f.produce("C_DecryptMessageNext", dst)
}

func (f *fakeSession) MessageDecryptFinal() error {
	return f.plain("C_MessageDecryptFinal")
}

func (f *fakeSession) MessageSignInit(m *mechanism.Mechanism, _ token.ObjectHandle) error {
	return f.init("C_MessageSignInit", m)
}

func (f *fakeSession) SignMessageBegin(mechanism.Params) error {
	return f.plain("C_SignMessageBegin")
}

func (f *fakeSession) SignMessageNext(_ mechanism.Params, _, dst []byte, end bool) (int, error) {
	if end {
		return f.produce("C_SignMessageNext/end", dst)
	}
	return 0, f.plain("C_SignMessageNext")
}

func (f *fakeSession) MessageSignFinal() error {
	return f.plain("C_MessageSignFinal")
}

func (f *fakeSession) MessageVerifyInit(m *mechanism.Mechanism, _ token.ObjectHandle) error {
	return f.init("C_MessageVerifyInit", m)
}

func (f *fakeSession) VerifyMessageBegin(mechanism.Params) error {
	return f.plain("C_VerifyMessageBegin")
}

func (f *fakeSession) VerifyMessageNext(_ mechanism.Params, _, _ []byte, end bool) error {
	if end {
		return f.plain("C_VerifyMessageNext/end")
	}
	return f.plain("C_VerifyMessageNext")
}

func (f *fakeSession) MessageVerifyFinal() error {
	return f.plain("C_MessageVerifyFinal")
}

var _ token.Session = (*fakeSession)(nil)
