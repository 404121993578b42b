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
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// MessageInit starts a message-based operation. Parameters are supplied per
// message, so m normally carries none.
func (e *Engine) MessageInit(kind Kind, m *mechanism.Mechanism, key token.ObjectHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return fmt.Errorf("%w: %s is %s", ErrConcurrentOperationNotAllowed, e.kind, e.state)
	}
	if !kind.IsMessage() {
		return fmt.Errorf("%w: %s cannot be started with MessageInit", ErrInvalidOperationState, kind)
	}
	if m == nil {
		return fmt.Errorf("%w: nil mechanism", ErrMechanismParamMismatch)
	}
	if err := m.ValidateMessageInit(e.registry); err != nil {
		return err
	}

	inner := m.Inner()
	var err error
	switch kind {
	case KindMessageEncrypt:
		err = e.session.MessageEncryptInit(inner, key)
	case KindMessageDecrypt:
		err = e.session.MessageDecryptInit(inner, key)
	case KindMessageSign:
		err = e.session.MessageSignInit(inner, key)
	case KindMessageVerify:
		err = e.session.MessageVerifyInit(inner, key)
	}
	if err != nil {
		e.logger.Error(err, "kind", kind.String(), "mechanism", m.Name())
		return err
	}
	e.begin(kind, StateMessageReady, m)
	return nil
}

// MessageBegin starts one message. aad is only accepted for message
// encryption and decryption.
func (e *Engine) MessageBegin(params mechanism.Params, aad []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireMessage(StateMessageReady); err != nil {
		return err
	}
	if err := e.mech.ValidateMessage(e.registry, params); err != nil {
		return err
	}
	var err error
	switch e.kind {
	case KindMessageEncrypt:
		err = e.session.EncryptMessageBegin(params, aad)
	case KindMessageDecrypt:
		err = e.session.DecryptMessageBegin(params, aad)
	case KindMessageSign, KindMessageVerify:
		if len(aad) > 0 {
			return fmt.Errorf("%w: %s", ErrAssociatedData, e.kind)
		}
		if e.kind == KindMessageSign {
			err = e.session.SignMessageBegin(params)
		} else {
			err = e.session.VerifyMessageBegin(params)
		}
	}
	if err != nil {
		return e.abortMessage(err)
	}
	e.state = StateMessagePart
	return nil
}

// MessageContinueSize returns the output length MessageContinue would
// produce for in.
func (e *Engine) MessageContinueSize(params mechanism.Params, in []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireMessage(StateMessagePart); err != nil {
		return 0, err
	}
	var n int
	var err error
	switch e.kind {
	case KindMessageEncrypt:
		n, err = e.session.EncryptMessageNext(params, in, nil, false)
	case KindMessageDecrypt:
		n, err = e.session.DecryptMessageNext(params, in, nil, false)
	default:
		return 0, nil
	}
	if err != nil {
		return 0, e.abortMessage(err)
	}
	return n, nil
}

// MessageContinue feeds a non-final part of the current message.
func (e *Engine) MessageContinue(params mechanism.Params, in, dst []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireMessage(StateMessagePart); err != nil {
		return 0, err
	}
	var n int
	var err error
	switch e.kind {
	case KindMessageEncrypt:
		n, err = e.session.EncryptMessageNext(params, in, fillable(dst), false)
	case KindMessageDecrypt:
		n, err = e.session.DecryptMessageNext(params, in, fillable(dst), false)
	case KindMessageSign:
		_, err = e.session.SignMessageNext(params, in, nil, false)
	case KindMessageVerify:
		err = e.session.VerifyMessageNext(params, in, nil, false)
	}
	if err != nil {
		return e.messageFillFailed(n, err)
	}
	return n, nil
}

// MessageEndSize returns the output length MessageEnd would produce for
// tail.
func (e *Engine) MessageEndSize(params mechanism.Params, tail []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireMessage(StateMessagePart); err != nil {
		return 0, err
	}
	n, err := e.messageNext(params, tail, nil)
	if err != nil {
		return 0, e.abortMessage(err)
	}
	return n, nil
}

// MessageEnd feeds the final part of the current message and writes the
// remaining output, or the signature for message signing, to dst.
func (e *Engine) MessageEnd(params mechanism.Params, tail, dst []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireMessage(StateMessagePart); err != nil {
		return 0, err
	}
	n, err := e.messageNext(params, tail, fillable(dst))
	if err != nil {
		return e.messageFillFailed(n, err)
	}
	e.state = StateMessageReady
	return n, nil
}

// MessageVerifyEnd feeds the final part of the current message and checks
// signature. The message ends whether or not the signature matches.
func (e *Engine) MessageVerifyEnd(params mechanism.Params, tail, signature []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireMessage(StateMessagePart); err != nil {
		return err
	}
	if e.kind != KindMessageVerify {
		return fmt.Errorf("%w: MessageVerifyEnd on a %s operation", ErrInvalidOperationState, e.kind)
	}
	if err := e.session.VerifyMessageNext(params, tail, signature, true); err != nil {
		return e.abortMessage(err)
	}
	e.state = StateMessageReady
	return nil
}

// MessagesFinal ends the message-based operation. It fails while a message
// is in progress.
func (e *Engine) MessagesFinal() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireMessage(StateMessageReady); err != nil {
		return err
	}
	var err error
	switch e.kind {
	case KindMessageEncrypt:
		err = e.session.MessageEncryptFinal()
	case KindMessageDecrypt:
		err = e.session.MessageDecryptFinal()
	case KindMessageSign:
		err = e.session.MessageSignFinal()
	case KindMessageVerify:
		err = e.session.MessageVerifyFinal()
	}
	if err != nil {
		return e.terminate(err)
	}
	e.finish(nil)
	return nil
}

func (e *Engine) messageNext(params mechanism.Params, part, dst []byte) (int, error) {
	switch e.kind {
	case KindMessageEncrypt:
		return e.session.EncryptMessageNext(params, part, dst, true)
	case KindMessageDecrypt:
		return e.session.DecryptMessageNext(params, part, dst, true)
	case KindMessageSign:
		return e.session.SignMessageNext(params, part, dst, true)
	}
	return 0, fmt.Errorf("%w: use MessageVerifyEnd for %s", ErrInvalidOperationState, e.kind)
}

func (e *Engine) requireMessage(state State) error {
	if e.state == StateIdle {
		return ErrOperationNotInitialized
	}
	if !e.kind.IsMessage() {
		return fmt.Errorf("%w: %s operation is not message-based", ErrInvalidOperationState, e.kind)
	}
	if e.state != state {
		if e.state == StateMessagePart {
			return fmt.Errorf("%w: a message is already in progress", ErrInvalidOperationState)
		}
		return fmt.Errorf("%w: no message in progress", ErrInvalidOperationState)
	}
	return nil
}

// abortMessage drops the current message after a token failure. The
// message-based operation stays usable for the next message.
func (e *Engine) abortMessage(err error) error {
	if errors.Is(err, ErrInvalidOperationState) {
		return err
	}
	e.logFailure(err)
	e.state = StateMessageReady
	return err
}

func (e *Engine) messageFillFailed(required int, err error) (int, error) {
	if errors.Is(err, token.ErrBufferTooSmall) {
		return 0, &BufferTooSmallError{Required: required}
	}
	return 0, e.abortMessage(err)
}
