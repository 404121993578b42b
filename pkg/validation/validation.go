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

// Package validation checks operator input before it reaches a token.
// Labels and PINs travel to the library as raw bytes, so control
// characters and invalid UTF-8 are rejected here rather than stored.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxLabelLen bounds CKA_LABEL values accepted from the command line.
	MaxLabelLen = 255

	// MaxTokenLabelLen is the size of the label field of CK_TOKEN_INFO.
	MaxTokenLabelLen = 32

	// MaxPINLen bounds user and SO PINs.
	MaxPINLen = 255

	maxLogLen = 1000
)

func checkText(what, s string, maxLen int) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	if len(s) > maxLen {
		return fmt.Errorf("%s too long (max %d bytes)", what, maxLen)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s is not valid UTF-8", what)
	}
	for _, r := range s {
		if r < 32 || r == 127 {
			return fmt.Errorf("%s contains control characters", what)
		}
	}
	return nil
}

// ValidateLabel validates an object label.
func ValidateLabel(label string) error {
	return checkText("label", label, MaxLabelLen)
}

// ValidateTokenLabel validates the label of a token. An empty label is
// allowed and means "any token".
func ValidateTokenLabel(label string) error {
	if label == "" {
		return nil
	}
	return checkText("token label", label, MaxTokenLabelLen)
}

// ValidatePIN validates a PIN. An empty PIN is allowed and means no login.
func ValidatePIN(pin string) error {
	if pin == "" {
		return nil
	}
	return checkText("PIN", pin, MaxPINLen)
}

// SanitizeForLog sanitizes a string for safe logging (prevents log injection).
func SanitizeForLog(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)

	// Limit length to prevent log flooding
	if len(s) > maxLogLen {
		s = s[:maxLogLen] + "...[truncated]"
	}

	return s
}
