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

package attribute

import (
	"errors"

	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
)

var (
	// ErrUnknownAttributeType is returned when an attribute type code is not
	// in the classification table.
	ErrUnknownAttributeType = symbol.ErrUnknownAttributeType

	// ErrUnsupportedAttributeKind is returned when the classification table
	// maps a code to a kind the codec cannot marshal. It indicates an
	// inconsistent symbol table.
	ErrUnsupportedAttributeKind = errors.New("attribute: unsupported attribute kind")

	// ErrAttributeNotFound is returned by Template.Get for a code that was
	// never set or fetched.
	ErrAttributeNotFound = errors.New("attribute: attribute not found")

	// ErrKindMismatch is returned when a typed accessor or setter does not
	// match the value's kind.
	ErrKindMismatch = errors.New("attribute: kind mismatch")

	// ErrInvalidValue is returned for input or wire data that cannot
	// represent a value of the attribute's kind.
	ErrInvalidValue = errors.New("attribute: invalid value")

	// ErrValueOverflow is returned by narrowing accessors when the value does
	// not fit.
	ErrValueOverflow = errors.New("attribute: value overflow")

	// ErrNotPresent is returned by accessors of a value the object does not
	// have, or whose state is unknown.
	ErrNotPresent = errors.New("attribute: value not present")

	// ErrSensitive is returned by accessors of a value the token refused to
	// reveal.
	ErrSensitive = errors.New("attribute: value is sensitive")
)
