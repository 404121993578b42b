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
	"bytes"
	"fmt"

	"github.com/miekg/pkcs11"

	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// findBatch is the number of handles requested per C_FindObjects call.
const findBatch = 64

// pending is output the token produced for a probe and the caller has not
// collected yet.
type pending struct {
	call string
	in   []byte
	out  []byte
}

// Session is an open session on a PKCS#11 library. It is not safe for
// concurrent use.
type Session struct {
	mod     module
	handle  pkcs11.SessionHandle
	logger  *logging.Logger
	pending *pending

	// free releases the C parameters of the active operation.
	free func()
}

var _ token.Session = (*Session)(nil)

func (s *Session) Handle() token.SessionHandle {
	return token.SessionHandle(s.handle)
}

func (s *Session) Login(userType uint64, pin string) error {
	return s.done("C_Login", s.mod.Login(s.handle, uint(userType), pin))
}

func (s *Session) Logout() error {
	return s.done("C_Logout", s.mod.Logout(s.handle))
}

func (s *Session) Close() error {
	s.reset()
	return s.done("C_CloseSession", s.mod.CloseSession(s.handle))
}

func (s *Session) CreateObject(template []attribute.Raw) (token.ObjectHandle, error) {
	h, err := s.mod.CreateObject(s.handle, toAttributes(template))
	return token.ObjectHandle(h), s.done("C_CreateObject", err)
}

func (s *Session) DestroyObject(obj token.ObjectHandle) error {
	return s.done("C_DestroyObject", s.mod.DestroyObject(s.handle, pkcs11.ObjectHandle(obj)))
}

// FindObjects runs a complete C_FindObjectsInit/C_FindObjects/
// C_FindObjectsFinal search. max <= 0 returns every match.
func (s *Session) FindObjects(template []attribute.Raw, max int) ([]token.ObjectHandle, error) {
	if err := s.mod.FindObjectsInit(s.handle, toAttributes(template)); err != nil {
		return nil, s.done("C_FindObjectsInit", err)
	}
	var found []token.ObjectHandle
	for max <= 0 || len(found) < max {
		n := findBatch
		if max > 0 {
			n = min(n, max-len(found))
		}
		hs, _, err := s.mod.FindObjects(s.handle, n)
		if err != nil {
			s.logger.MaybeError(convert("C_FindObjectsFinal", s.mod.FindObjectsFinal(s.handle)))
			return nil, s.done("C_FindObjects", err)
		}
		for _, h := range hs {
			found = append(found, token.ObjectHandle(h))
		}
		if len(hs) < n {
			break
		}
	}
	return found, s.done("C_FindObjectsFinal", s.mod.FindObjectsFinal(s.handle))
}

// GetAttributeValue reads types from obj. The binding fails the whole
// template when one attribute is sensitive or missing, so on those codes
// each attribute is read on its own to fill in per-entry status.
func (s *Session) GetAttributeValue(obj token.ObjectHandle, types []uint64) ([]attribute.Raw, error) {
	const call = "C_GetAttributeValue"
	oh := pkcs11.ObjectHandle(obj)
	template := make([]*pkcs11.Attribute, len(types))
	for i, t := range types {
		template[i] = pkcs11.NewAttribute(uint(t), nil)
	}
	attrs, err := s.mod.GetAttributeValue(s.handle, oh, template)
	if err == nil {
		out := make([]attribute.Raw, len(types))
		for i, t := range types {
			out[i] = attribute.Raw{Type: t}
			if i < len(attrs) {
				out[i].Value = attrs[i].Value
			}
		}
		return out, s.done(call, nil)
	}
	err = convert(call, err)
	if !token.IsCode(err, ck.CKR_ATTRIBUTE_SENSITIVE) && !token.IsCode(err, ck.CKR_ATTRIBUTE_TYPE_INVALID) {
		return nil, s.done(call, err)
	}

	out := make([]attribute.Raw, len(types))
	var code uint64
	for i, t := range types {
		out[i] = attribute.Raw{Type: t}
		one, err := s.mod.GetAttributeValue(s.handle, oh, []*pkcs11.Attribute{pkcs11.NewAttribute(uint(t), nil)})
		err = convert(call, err)
		switch {
		case err == nil && len(one) == 1:
			out[i].Value = one[0].Value
		case token.IsCode(err, ck.CKR_ATTRIBUTE_SENSITIVE):
			out[i].Status = attribute.StatusSensitive
			code = ck.CKR_ATTRIBUTE_SENSITIVE
		case token.IsCode(err, ck.CKR_ATTRIBUTE_TYPE_INVALID):
			out[i].Status = attribute.StatusTypeInvalid
			if code == 0 {
				code = ck.CKR_ATTRIBUTE_TYPE_INVALID
			}
		case err != nil:
			return nil, s.done(call, err)
		default:
			out[i].Status = attribute.StatusUnavailable
			if code == 0 {
				code = ck.CKR_ATTRIBUTE_TYPE_INVALID
			}
		}
	}
	if code == 0 {
		return out, s.done(call, nil)
	}
	return out, s.done(call, token.NewError(call, code))
}

func (s *Session) GenerateKey(m *mechanism.Mechanism, template []attribute.Raw) (token.ObjectHandle, error) {
	var h pkcs11.ObjectHandle
	err := s.withMechanism(m, func(mech []*pkcs11.Mechanism) (err error) {
		h, err = s.mod.GenerateKey(s.handle, mech, toAttributes(template))
		return err
	})
	return token.ObjectHandle(h), s.done("C_GenerateKey", err)
}

func (s *Session) GenerateKeyPair(m *mechanism.Mechanism, public, private []attribute.Raw) (token.ObjectHandle, token.ObjectHandle, error) {
	var pub, priv pkcs11.ObjectHandle
	err := s.withMechanism(m, func(mech []*pkcs11.Mechanism) (err error) {
		pub, priv, err = s.mod.GenerateKeyPair(s.handle, mech, toAttributes(public), toAttributes(private))
		return err
	})
	return token.ObjectHandle(pub), token.ObjectHandle(priv), s.done("C_GenerateKeyPair", err)
}

// WrapKey follows the probe convention: the probe wraps the key and holds
// the result until the fill call.
func (s *Session) WrapKey(m *mechanism.Mechanism, wrappingKey, key token.ObjectHandle, dst []byte) (int, error) {
	in := fmt.Appendf(nil, "%d/%d/%s", wrappingKey, key, m)
	return s.emit("C_WrapKey", in, dst, func() (out []byte, err error) {
		err = s.withMechanism(m, func(mech []*pkcs11.Mechanism) (err error) {
			out, err = s.mod.WrapKey(s.handle, mech, pkcs11.ObjectHandle(wrappingKey), pkcs11.ObjectHandle(key))
			return err
		})
		return out, err
	})
}

func (s *Session) UnwrapKey(m *mechanism.Mechanism, unwrappingKey token.ObjectHandle, wrapped []byte, template []attribute.Raw) (token.ObjectHandle, error) {
	var h pkcs11.ObjectHandle
	err := s.withMechanism(m, func(mech []*pkcs11.Mechanism) (err error) {
		h, err = s.mod.UnwrapKey(s.handle, mech, pkcs11.ObjectHandle(unwrappingKey), wrapped, toAttributes(template))
		return err
	})
	return token.ObjectHandle(h), s.done("C_UnwrapKey", err)
}

func (s *Session) DeriveKey(m *mechanism.Mechanism, baseKey token.ObjectHandle, template []attribute.Raw) (token.ObjectHandle, error) {
	var h pkcs11.ObjectHandle
	err := s.withMechanism(m, func(mech []*pkcs11.Mechanism) (err error) {
		h, err = s.mod.DeriveKey(s.handle, mech, pkcs11.ObjectHandle(baseKey), toAttributes(template))
		return err
	})
	return token.ObjectHandle(h), s.done("C_DeriveKey", err)
}

// withMechanism converts m, runs fn and releases the parameters.
func (s *Session) withMechanism(m *mechanism.Mechanism, fn func([]*pkcs11.Mechanism) error) error {
	mech, free, err := toMechanism(m)
	if err != nil {
		return err
	}
	defer free()
	return fn([]*pkcs11.Mechanism{mech})
}

// init starts an operation. The parameters stay allocated until the next
// operation starts or the session closes.
func (s *Session) init(call string, m *mechanism.Mechanism, start func([]*pkcs11.Mechanism) error) error {
	s.reset()
	mech, free, err := toMechanism(m)
	if err != nil {
		return s.done(call, err)
	}
	s.free = free
	return s.done(call, start([]*pkcs11.Mechanism{mech}))
}

// step runs a call that produces no output.
func (s *Session) step(call string, err error) error {
	s.pending = nil
	return s.done(call, err)
}

// emit delivers the output of run following the probe convention. run is
// invoked once per probe/fill pair.
func (s *Session) emit(call string, in, dst []byte, run func() ([]byte, error)) (int, error) {
	p := s.pending
	if p != nil && (p.call != call || !bytes.Equal(p.in, in)) {
		s.pending = nil
		return 0, s.done(call, fmt.Errorf("%w: %s after a probe of %s", ErrPendingOutput, call, p.call))
	}
	if p == nil {
		out, err := run()
		if err != nil {
			return 0, s.done(call, err)
		}
		p = &pending{call: call, in: bytes.Clone(in), out: out}
		s.pending = p
	}
	n := len(p.out)
	if dst == nil {
		return n, s.done(call, nil)
	}
	if len(dst) < n {
		return n, s.done(call, token.NewError(call, ck.CKR_BUFFER_TOO_SMALL))
	}
	copy(dst, p.out)
	s.pending = nil
	return n, s.done(call, nil)
}

// reset drops held output and frees the previous operation's parameters.
func (s *Session) reset() {
	s.pending = nil
	if s.free != nil {
		s.free()
		s.free = nil
	}
}

func (s *Session) done(call string, err error) error {
	err = convert(call, err)
	metrics.RecordTokenCall(call, err)
	if err != nil && !token.IsCode(err, ck.CKR_BUFFER_TOO_SMALL) {
		s.logger.Debug("token call failed", "call", call, "error", err.Error())
	}
	return err
}
