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
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

type opKind int

const (
	opNone opKind = iota
	opSign
	opVerify
	opEncrypt
	opDecrypt
	opDigest
	opMessageEncrypt
	opMessageDecrypt
	opMessageSign
	opMessageVerify
)

// activeOp is the single cryptographic operation a session may run.
type activeOp struct {
	kind    opKind
	mech    uint64
	updated bool

	sig    *signer
	cipher cipherOp
	digest *digester
	msg    *messageOp
}

// Session is a session on the software token.
type Session struct {
	tok       *Token
	handle    token.SessionHandle
	readWrite bool
	logger    *logging.Logger

	mu     sync.Mutex
	op     *activeOp
	closed atomic.Bool
}

var _ token.Session = (*Session)(nil)

// Handle returns the session handle.
func (s *Session) Handle() token.SessionHandle {
	return s.handle
}

// done names the C function on token errors created inside the package and
// records the call.
func (s *Session) done(call string, err error) error {
	var te *token.Error
	if errors.As(err, &te) && te.Op == "" {
		err = token.NewError(call, te.Code)
	}
	metrics.RecordTokenCall(call, err)
	if err != nil && !token.IsCode(err, ck.CKR_BUFFER_TOO_SMALL) {
		s.logger.Debug("token call failed", "session", uint64(s.handle), "call", call, "error", err.Error())
	}
	return err
}

func (s *Session) doneN(call string, n int, err error) (int, error) {
	return n, s.done(call, err)
}

func (s *Session) open() error {
	if s.closed.Load() {
		return ckr(ck.CKR_SESSION_CLOSED)
	}
	return nil
}

func (s *Session) Login(userType uint64, pin string) error {
	if err := s.open(); err != nil {
		return s.done("C_Login", err)
	}
	return s.done("C_Login", s.tok.login(s, userType, pin))
}

func (s *Session) Logout() error {
	if err := s.open(); err != nil {
		return s.done("C_Logout", err)
	}
	return s.done("C_Logout", s.tok.logout())
}

// Close closes the session and destroys its session objects.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed.CompareAndSwap(false, true) {
		return s.done("C_CloseSession", ckr(ck.CKR_SESSION_CLOSED))
	}
	s.op = nil
	return s.done("C_CloseSession", s.tok.closeSession(s.handle))
}

func (s *Session) CreateObject(template []attribute.Raw) (token.ObjectHandle, error) {
	if err := s.open(); err != nil {
		return 0, s.done("C_CreateObject", err)
	}
	attrs, err := newObjectTemplate(template)
	if err == nil {
		err = applyDefaults(attrs)
	}
	if err != nil {
		return 0, s.done("C_CreateObject", err)
	}
	h, err := s.tok.addObject(s, attrs)
	return h, s.done("C_CreateObject", err)
}

func (s *Session) DestroyObject(obj token.ObjectHandle) error {
	if err := s.open(); err != nil {
		return s.done("C_DestroyObject", err)
	}
	return s.done("C_DestroyObject", s.tok.destroyObject(s, obj))
}

func (s *Session) FindObjects(template []attribute.Raw, max int) ([]token.ObjectHandle, error) {
	if err := s.open(); err != nil {
		return nil, s.done("C_FindObjects", err)
	}
	filter, err := decodeTemplate(template)
	if err != nil {
		return nil, s.done("C_FindObjectsInit", err)
	}
	return s.tok.findObjects(filter, max), s.done("C_FindObjects", nil)
}

// GetAttributeValue reads attributes of obj. Sensitive and missing
// attributes are reported per slot; CKR_ATTRIBUTE_SENSITIVE takes
// precedence over CKR_ATTRIBUTE_TYPE_INVALID in the returned error.
func (s *Session) GetAttributeValue(obj token.ObjectHandle, types []uint64) ([]attribute.Raw, error) {
	if err := s.open(); err != nil {
		return nil, s.done("C_GetAttributeValue", err)
	}
	o, err := s.tok.lookup(obj, ck.CKR_OBJECT_HANDLE_INVALID)
	if err != nil {
		return nil, s.done("C_GetAttributeValue", err)
	}
	out := make([]attribute.Raw, len(types))
	var code uint64
	for i, t := range types {
		out[i] = o.read(t)
		switch out[i].Status {
		case attribute.StatusSensitive:
			code = ck.CKR_ATTRIBUTE_SENSITIVE
		case attribute.StatusTypeInvalid, attribute.StatusUnavailable:
			if code == 0 {
				code = ck.CKR_ATTRIBUTE_TYPE_INVALID
			}
		}
	}
	if code != 0 {
		return out, s.done("C_GetAttributeValue", ckr(code))
	}
	return out, s.done("C_GetAttributeValue", nil)
}

// key returns a key object that allows usage, the CKA_ flag the operation
// needs.
func (s *Session) key(h token.ObjectHandle, usage uint64) (*object, error) {
	o, err := s.tok.lookup(h, ck.CKR_KEY_HANDLE_INVALID)
	if err != nil {
		return nil, err
	}
	switch o.class() {
	case ck.CKO_SECRET_KEY, ck.CKO_PRIVATE_KEY, ck.CKO_PUBLIC_KEY:
	default:
		return nil, ckr(ck.CKR_KEY_HANDLE_INVALID)
	}
	if usage != 0 && !o.flag(usage) {
		return nil, ckr(ck.CKR_KEY_FUNCTION_NOT_PERMITTED)
	}
	return o, nil
}

// start installs op as the active operation.
func (s *Session) start(op *activeOp) error {
	if err := s.open(); err != nil {
		return err
	}
	if s.op != nil {
		return ckr(ck.CKR_OPERATION_ACTIVE)
	}
	s.op = op
	return nil
}

// active returns the running operation of kind k.
func (s *Session) active(k opKind) (*activeOp, error) {
	if err := s.open(); err != nil {
		return nil, err
	}
	if s.op == nil || s.op.kind != k {
		return nil, ckr(ck.CKR_OPERATION_NOT_INITIALIZED)
	}
	return s.op, nil
}

// end terminates the active operation unless err is a buffer-too-small
// report.
func (s *Session) end(err error) {
	if err != nil && token.IsCode(err, ck.CKR_BUFFER_TOO_SMALL) {
		return
	}
	s.op = nil
}

// fill applies the length convention to out: probe when dst is nil, report
// a short dst, copy otherwise.
func fill(out, dst []byte) (int, error) {
	if dst == nil {
		return len(out), nil
	}
	if len(dst) < len(out) {
		return len(out), ckr(ck.CKR_BUFFER_TOO_SMALL)
	}
	return copy(dst, out), nil
}

// sized applies the length convention when only the size of the output is
// known before it is produced.
func sized(n int, dst []byte) (probe bool, err error) {
	if dst == nil {
		return true, nil
	}
	if len(dst) < n {
		return true, ckr(ck.CKR_BUFFER_TOO_SMALL)
	}
	return false, nil
}
