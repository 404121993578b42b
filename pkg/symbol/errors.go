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

package symbol

import "errors"

var (
	// ErrUnknownSymbol is returned when a code or name is not registered in
	// the requested category.
	ErrUnknownSymbol = errors.New("symbol: unknown symbol")

	// ErrUnknownCategory is returned for a category the table does not define.
	ErrUnknownCategory = errors.New("symbol: unknown category")

	// ErrUnknownAttributeType is returned when an attribute type code has no
	// entry in the classification table.
	ErrUnknownAttributeType = errors.New("symbol: unknown attribute type")

	// ErrInvalidTable is returned when the symbol table is inconsistent.
	ErrInvalidTable = errors.New("symbol: invalid symbol table")
)
