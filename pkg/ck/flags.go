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

package ck

// Mechanism info flags (CK_MECHANISM_INFO.flags).
const (
	CKF_HW                = 0x00000001
	CKF_MESSAGE_ENCRYPT   = 0x00000002
	CKF_MESSAGE_DECRYPT   = 0x00000004
	CKF_MESSAGE_SIGN      = 0x00000008
	CKF_MESSAGE_VERIFY    = 0x00000010
	CKF_MULTI_MESSAGE     = 0x00000020
	CKF_FIND_OBJECTS      = 0x00000040
	CKF_ENCRYPT           = 0x00000100
	CKF_DECRYPT           = 0x00000200
	CKF_DIGEST            = 0x00000400
	CKF_SIGN              = 0x00000800
	CKF_SIGN_RECOVER      = 0x00001000
	CKF_VERIFY            = 0x00002000
	CKF_VERIFY_RECOVER    = 0x00004000
	CKF_GENERATE          = 0x00008000
	CKF_GENERATE_KEY_PAIR = 0x00010000
	CKF_WRAP              = 0x00020000
	CKF_UNWRAP            = 0x00040000
	CKF_DERIVE            = 0x00080000
)

// Session flags.
const (
	CKF_RW_SESSION     = 0x00000002
	CKF_SERIAL_SESSION = 0x00000004
)

// Message flags passed to the *MessageNext calls.
const (
	CKF_END_OF_MESSAGE = 0x00000001
)

// OAEP encoding parameter source.
const (
	CKZ_DATA_SPECIFIED = 0x00000001
)

// HKDF salt types.
const (
	CKF_HKDF_SALT_NULL = 0x00000001
	CKF_HKDF_SALT_DATA = 0x00000002
	CKF_HKDF_SALT_KEY  = 0x00000004
)

// CK_UNAVAILABLE_INFORMATION is the ulValueLen a token reports for an
// attribute it cannot return.
const CK_UNAVAILABLE_INFORMATION = ^uint64(0)

// CK_INVALID_HANDLE is never a valid session or object handle.
const CK_INVALID_HANDLE = 0
