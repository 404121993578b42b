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

// Package ck holds the PKCS#11 numeric constants used throughout go-cryptoki.
//
// The CKA_, CKM_, CKK_, CKO_, CKC_, CKH_, CKG_, CKD_, CKU_ and CKR_ constants
// are generated from the same symbol table the symbol registry embeds, so a
// constant and its registered name can never drift apart. Flag values that are
// not symbolic codes (mechanism info flags, session flags) live in flags.go.
package ck

//go:generate go run gen.go
