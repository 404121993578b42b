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

var (
	// ErrOperationNotInitialized is returned by operation calls made while
	// no operation is active.
	ErrOperationNotInitialized = errors.New("operation: not initialized")

	// ErrConcurrentOperationNotAllowed is returned when an operation is
	// started while another is active on the same session.
	ErrConcurrentOperationNotAllowed = errors.New("operation: another operation is active on this session")

	// ErrInvalidOperationState is returned for a step that does not fit the
	// active operation's kind or state.
	ErrInvalidOperationState = errors.New("operation: invalid operation state")

	// ErrAssociatedData is returned when associated data is passed to a
	// message signature operation.
	ErrAssociatedData = errors.New("operation: associated data is not accepted by this operation")

	// ErrBufferTooSmall matches every *BufferTooSmallError.
	ErrBufferTooSmall = token.ErrBufferTooSmall

	// ErrSignatureInvalid is returned when verification fails.
	ErrSignatureInvalid = token.ErrSignatureInvalid

	// ErrMechanismParamMismatch is returned when mechanism parameters do
	// not match the family the mechanism declares.
	ErrMechanismParamMismatch = mechanism.ErrParamMismatch
)

// BufferTooSmallError reports the destination length a fill call needs.
// The input was not consumed and the operation state is unchanged.
type BufferTooSmallError struct {
	Required int
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("operation: buffer too small, %d bytes required", e.Required)
}

// Is matches ErrBufferTooSmall.
func (e *BufferTooSmallError) Is(target error) bool {
	return target == ErrBufferTooSmall
}
