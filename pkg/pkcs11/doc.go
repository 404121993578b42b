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

// Package pkcs11 adapts a PKCS#11 shared library, loaded through
// github.com/miekg/pkcs11, to the token.Provider and token.Session
// interfaces.
//
// The underlying binding allocates output buffers itself, so it cannot
// answer a length probe without running the step. The adapter runs the step
// on the probe, holds the output, and hands it over on the following fill
// call with the same input:
//
//	n, _ := s.Sign(data, nil)   // runs C_Sign, returns len(signature)
//	sig := make([]byte, n)
//	s.Sign(data, sig)           // copies the held signature
//
// A fill call that does not repeat the probed input fails with
// ErrPendingOutput, since the token has already consumed the probed data.
//
// Message-based operations (PKCS#11 3.0) are not exposed by the binding and
// report CKR_FUNCTION_NOT_SUPPORTED.
//
// Build with -tags pkcs11; the package needs cgo.
package pkcs11
