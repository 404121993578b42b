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

package token

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
)

var (
	// ErrBufferTooSmall matches a CKR_BUFFER_TOO_SMALL token error.
	ErrBufferTooSmall = errors.New("token: buffer too small")

	// ErrSignatureInvalid matches CKR_SIGNATURE_INVALID and
	// CKR_SIGNATURE_LEN_RANGE token errors.
	ErrSignatureInvalid = errors.New("token: signature invalid")

	// ErrMechanismParamMismatch matches CKR_MECHANISM_PARAM_INVALID and
	// CKR_MECHANISM_INVALID token errors. Such errors also match
	// mechanism.ErrParamMismatch, so callers can test one sentinel for both
	// local and token-side rejection.
	ErrMechanismParamMismatch = errors.New("token: mechanism or parameters rejected")

	// ErrOperationActive matches CKR_OPERATION_ACTIVE.
	ErrOperationActive = errors.New("token: operation active")

	// ErrOperationNotInitialized matches CKR_OPERATION_NOT_INITIALIZED.
	ErrOperationNotInitialized = errors.New("token: operation not initialized")

	// ErrUserAlreadyLoggedIn matches CKR_USER_ALREADY_LOGGED_IN.
	ErrUserAlreadyLoggedIn = errors.New("token: user already logged in")
)

// Error is a failure reported by a token: a CK_RV other than CKR_OK.
type Error struct {
	// Code is the CK_RV.
	Code uint64

	// Op is the C function that failed, e.g. "C_SignInit".
	Op string
}

// NewError returns an *Error for code reported by op.
func NewError(op string, code uint64) *Error {
	return &Error{Code: code, Op: op}
}

// Name returns the registered CKR_ name of the code.
func (e *Error) Name() string {
	name, err := symbol.Name(symbol.ReturnCode, e.Code)
	if err != nil {
		return fmt.Sprintf("CKR_0x%08x", e.Code)
	}
	return name
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("pkcs11: %s", symbol.Format(symbol.ReturnCode, e.Code))
	}
	return fmt.Sprintf("pkcs11: %s: %s", e.Op, symbol.Format(symbol.ReturnCode, e.Code))
}

// Is maps return codes with a dedicated meaning onto the package sentinels,
// and matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrBufferTooSmall:
		return e.Code == ck.CKR_BUFFER_TOO_SMALL
	case ErrSignatureInvalid:
		return e.Code == ck.CKR_SIGNATURE_INVALID || e.Code == ck.CKR_SIGNATURE_LEN_RANGE
	case ErrMechanismParamMismatch, mechanism.ErrParamMismatch:
		return e.Code == ck.CKR_MECHANISM_PARAM_INVALID || e.Code == ck.CKR_MECHANISM_INVALID
	case ErrOperationActive:
		return e.Code == ck.CKR_OPERATION_ACTIVE
	case ErrOperationNotInitialized:
		return e.Code == ck.CKR_OPERATION_NOT_INITIALIZED
	case ErrUserAlreadyLoggedIn:
		return e.Code == ck.CKR_USER_ALREADY_LOGGED_IN
	}
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// Code returns the CK_RV carried by err, if err wraps an *Error.
func Code(err error) (uint64, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// IsCode reports whether err wraps an *Error with the given code.
func IsCode(err error, code uint64) bool {
	c, ok := Code(err)
	return ok && c == code
}
