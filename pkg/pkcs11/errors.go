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

package pkcs11

import "errors"

var (
	// ErrLoadLibrary is returned when the shared library cannot be loaded.
	ErrLoadLibrary = errors.New("pkcs11: cannot load library")

	// ErrPendingOutput is returned by a fill call that does not match the
	// probe before it.
	ErrPendingOutput = errors.New("pkcs11: fill call does not match the pending probe")

	// ErrUnsupportedParams is returned for mechanism parameters the binding
	// cannot marshal. It matches mechanism.ErrParamMismatch as well.
	ErrUnsupportedParams = errors.New("pkcs11: mechanism parameters not supported by the binding")

	// ErrKeyNotFound is returned by FindSigner when no key pair matches.
	ErrKeyNotFound = errors.New("pkcs11: key pair not found")
)
