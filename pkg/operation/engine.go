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

// Package operation drives the stateful cryptographic operations of one
// token session.
//
// An Engine runs at most one operation at a time. Streaming operations go
// through Init, any number of Update calls and Final, or Init and a single
// Single call. Message-based operations (PKCS#11 3.0) go through
// MessageInit, then per message MessageBegin, MessageContinue and
// MessageEnd, and finally MessagesFinal.
//
// Output-producing steps come in pairs: a Size call reports the destination
// length the step needs and a fill call performs it. A fill call given a
// short destination returns a *BufferTooSmallError, consumes no input and
// leaves the engine where it was. Any other token failure ends the
// operation.
package operation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// Observer is notified when operations start and finish. errorType is empty
// for operations that finished successfully.
type Observer interface {
	OperationStarted(id, kind, mechanism string)
	OperationFinished(id, kind, mechanism, errorType string, duration time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default logs at info level to stderr.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver sets an observer for operation start and finish events.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithRegistry sets the symbol registry used to validate mechanisms.
func WithRegistry(r *symbol.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// Engine is the operation state machine for one session.
//
// The mutex keeps the state consistent, but an engine is meant to be driven
// by one goroutine; use one session per goroutine for parallel work.
type Engine struct {
	mu       sync.Mutex
	session  token.Session
	registry *symbol.Registry
	logger   *logging.Logger
	observer Observer

	state   State
	kind    Kind
	mech    *mechanism.Mechanism
	id      string
	started time.Time
}

// New returns an idle engine over session.
func New(session token.Session, opts ...Option) *Engine {
	e := &Engine{session: session}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = symbol.Default()
	}
	if e.logger == nil {
		e.logger = logging.DefaultLogger()
	}
	return e
}

// Session returns the session the engine drives.
func (e *Engine) Session() token.Session {
	return e.session
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Kind returns the kind of the active operation, or KindNone.
func (e *Engine) Kind() Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kind
}

// OperationID returns the id of the active operation, or "".
func (e *Engine) OperationID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

// Init starts a streaming operation. key is ignored for KindDigest.
func (e *Engine) Init(kind Kind, m *mechanism.Mechanism, key token.ObjectHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return fmt.Errorf("%w: %s is %s", ErrConcurrentOperationNotAllowed, e.kind, e.state)
	}
	if kind < KindSign || kind > KindDigest {
		return fmt.Errorf("%w: %s cannot be started with Init", ErrInvalidOperationState, kind)
	}
	if m == nil {
		return fmt.Errorf("%w: nil mechanism", ErrMechanismParamMismatch)
	}
	if err := m.Validate(e.registry); err != nil {
		return err
	}

	inner := freshParams(m.Inner())
	var err error
	switch kind {
	case KindSign:
		err = e.session.SignInit(inner, key)
	case KindVerify:
		err = e.session.VerifyInit(inner, key)
	case KindEncrypt:
		err = e.session.EncryptInit(inner, key)
	case KindDecrypt:
		err = e.session.DecryptInit(inner, key)
	case KindDigest:
		err = e.session.DigestInit(inner)
	}
	if err != nil {
		e.logger.Error(err, "kind", kind.String(), "mechanism", m.Name())
		return err
	}
	e.begin(kind, StateInitialized, m)
	return nil
}

// UpdateSize returns the output length Update would produce for in.
// Operations without update output report zero.
func (e *Engine) UpdateSize(in []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStreaming(StateInitialized, StateUpdating); err != nil {
		return 0, err
	}
	var n int
	var err error
	switch e.kind {
	case KindEncrypt:
		n, err = e.session.EncryptUpdate(in, nil)
	case KindDecrypt:
		n, err = e.session.DecryptUpdate(in, nil)
	default:
		return 0, nil
	}
	if err != nil {
		return 0, e.terminate(err)
	}
	return n, nil
}

// Update feeds in to the operation and writes any output to dst.
func (e *Engine) Update(in, dst []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStreaming(StateInitialized, StateUpdating); err != nil {
		return 0, err
	}
	dst = fillable(dst)
	var n int
	var err error
	switch e.kind {
	case KindSign:
		err = e.session.SignUpdate(in)
	case KindVerify:
		err = e.session.VerifyUpdate(in)
	case KindDigest:
		err = e.session.DigestUpdate(in)
	case KindEncrypt:
		n, err = e.session.EncryptUpdate(in, dst)
	case KindDecrypt:
		n, err = e.session.DecryptUpdate(in, dst)
	}
	if err != nil {
		return e.fillFailed(n, err)
	}
	e.state = StateUpdating
	return n, nil
}

// FinalSize returns the output length Final would produce.
func (e *Engine) FinalSize() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStreaming(StateInitialized, StateUpdating); err != nil {
		return 0, err
	}
	if e.kind == KindVerify {
		return 0, fmt.Errorf("%w: use VerifyFinal to finish a verification", ErrInvalidOperationState)
	}
	n, err := e.final(nil)
	if err != nil {
		return 0, e.terminate(err)
	}
	return e.signatureSize(n), nil
}

// Final finishes the operation and writes the remaining output to dst.
func (e *Engine) Final(dst []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStreaming(StateInitialized, StateUpdating); err != nil {
		return 0, err
	}
	if e.kind == KindVerify {
		return 0, fmt.Errorf("%w: use VerifyFinal to finish a verification", ErrInvalidOperationState)
	}
	if e.normalizes() {
		return e.normalizedFill(dst, e.final)
	}
	n, err := e.final(fillable(dst))
	if err != nil {
		return e.fillFailed(n, err)
	}
	e.finish(nil)
	return n, nil
}

// VerifyFinal finishes a streaming verification against signature. The
// operation ends whether or not the signature matches.
func (e *Engine) VerifyFinal(signature []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStreaming(StateInitialized, StateUpdating); err != nil {
		return err
	}
	if e.kind != KindVerify {
		return fmt.Errorf("%w: VerifyFinal on a %s operation", ErrInvalidOperationState, e.kind)
	}
	if err := e.session.VerifyFinal(signature); err != nil {
		return e.terminate(err)
	}
	e.finish(nil)
	return nil
}

// SingleSize returns the output length Single would produce for data.
func (e *Engine) SingleSize(data []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireSingle(); err != nil {
		return 0, err
	}
	n, err := e.single(data, nil)
	if err != nil {
		return 0, e.terminate(err)
	}
	return e.signatureSize(n), nil
}

// Single runs the whole operation over data in one step. It is only valid
// right after Init.
func (e *Engine) Single(data, dst []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireSingle(); err != nil {
		return 0, err
	}
	if e.normalizes() {
		return e.normalizedFill(dst, func(out []byte) (int, error) {
			return e.single(data, out)
		})
	}
	n, err := e.single(data, fillable(dst))
	if err != nil {
		return e.fillFailed(n, err)
	}
	e.finish(nil)
	return n, nil
}

// VerifySingle verifies signature over data in one step. It is only valid
// right after Init.
func (e *Engine) VerifySingle(data, signature []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle {
		return ErrOperationNotInitialized
	}
	if e.state != StateInitialized || e.kind != KindVerify {
		return fmt.Errorf("%w: VerifySingle on a %s operation in state %s", ErrInvalidOperationState, e.kind, e.state)
	}
	if err := e.session.Verify(data, signature); err != nil {
		return e.terminate(err)
	}
	e.finish(nil)
	return nil
}

func (e *Engine) final(dst []byte) (int, error) {
	switch e.kind {
	case KindSign:
		return e.session.SignFinal(dst)
	case KindEncrypt:
		return e.session.EncryptFinal(dst)
	case KindDecrypt:
		return e.session.DecryptFinal(dst)
	case KindDigest:
		return e.session.DigestFinal(dst)
	}
	return 0, fmt.Errorf("%w: no final output for %s", ErrInvalidOperationState, e.kind)
}

func (e *Engine) single(data, dst []byte) (int, error) {
	switch e.kind {
	case KindSign:
		return e.session.Sign(data, dst)
	case KindEncrypt:
		return e.session.Encrypt(data, dst)
	case KindDecrypt:
		return e.session.Decrypt(data, dst)
	case KindDigest:
		return e.session.Digest(data, dst)
	}
	return 0, fmt.Errorf("%w: use VerifySingle for %s", ErrInvalidOperationState, e.kind)
}

// requireStreaming checks that a streaming operation is active in one of
// the given states.
func (e *Engine) requireStreaming(states ...State) error {
	if e.state == StateIdle {
		return ErrOperationNotInitialized
	}
	if e.kind.IsMessage() {
		return fmt.Errorf("%w: %s operation is active", ErrInvalidOperationState, e.kind)
	}
	for _, s := range states {
		if e.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s operation is %s", ErrInvalidOperationState, e.kind, e.state)
}

func (e *Engine) requireSingle() error {
	if e.state == StateIdle {
		return ErrOperationNotInitialized
	}
	if e.state != StateInitialized || e.kind.IsMessage() {
		return fmt.Errorf("%w: single-part %s after %s", ErrInvalidOperationState, e.kind, e.state)
	}
	if e.kind == KindVerify {
		return fmt.Errorf("%w: use VerifySingle for %s", ErrInvalidOperationState, e.kind)
	}
	return nil
}

// begin records a successfully initialized operation.
func (e *Engine) begin(kind Kind, state State, m *mechanism.Mechanism) {
	e.state = state
	e.kind = kind
	e.mech = m
	e.id = uuid.NewString()
	e.started = time.Now()
	e.logger.Debug("operation started",
		"operation_id", e.id, "kind", kind.String(), "mechanism", m.Name())
	if e.observer != nil {
		e.observer.OperationStarted(e.id, kind.String(), m.Name())
	}
}

// finish returns the engine to Idle and reports the outcome.
func (e *Engine) finish(err error) {
	if e.observer != nil {
		e.observer.OperationFinished(e.id, e.kind.String(), e.mech.Name(), errorType(err), time.Since(e.started))
	}
	e.logger.Debug("operation finished",
		"operation_id", e.id, "kind", e.kind.String(), "mechanism", e.mech.Name())
	e.state = StateIdle
	e.kind = KindNone
	e.mech = nil
	e.id = ""
}

// terminate ends the active operation after a token failure.
func (e *Engine) terminate(err error) error {
	e.logFailure(err)
	e.finish(err)
	return err
}

// logFailure logs err against the active operation. A rejected signature
// or a short buffer is an answer, not a fault, and is logged at debug.
func (e *Engine) logFailure(err error) {
	args := []any{"operation_id", e.id, "kind", e.kind.String(), "mechanism", e.mech.Name()}
	if errors.Is(err, ErrSignatureInvalid) || errors.Is(err, ErrBufferTooSmall) {
		e.logger.Debug("operation rejected", append(args, "error", err)...)
		return
	}
	e.logger.Error(err, args...)
}

// fillFailed converts a buffer-too-small report into a
// *BufferTooSmallError and terminates on anything else.
func (e *Engine) fillFailed(required int, err error) (int, error) {
	if errors.Is(err, token.ErrBufferTooSmall) {
		return 0, &BufferTooSmallError{Required: required}
	}
	return 0, e.terminate(err)
}

// fillable turns a nil destination into an empty one so the token performs
// the step instead of treating the call as a length query.
func fillable(dst []byte) []byte {
	if dst == nil {
		return []byte{}
	}
	return dst
}

// freshParams gives the token its own copy of AEAD parameters.
func freshParams(m *mechanism.Mechanism) *mechanism.Mechanism {
	if p, ok := m.Params.(*mechanism.AEADParams); ok {
		return &mechanism.Mechanism{Type: m.Type, Params: p.WithDataLen(p.DataLen())}
	}
	return m
}

func errorType(err error) string {
	if err == nil {
		return ""
	}
	var te *token.Error
	if errors.As(err, &te) {
		return te.Name()
	}
	return "error"
}
