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

package validation

import (
	"strings"
	"testing"
)

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		wantErr bool
	}{
		// Valid labels
		{"simple", "signing-key", false},
		{"spaces", "my signing key", false},
		{"punctuation", "key/2025#1", false},
		{"unicode", "ключ", false},
		{"max length", strings.Repeat("a", MaxLabelLen), false},

		// Invalid labels
		{"empty string", "", true},
		{"too long", strings.Repeat("a", MaxLabelLen+1), true},
		{"null byte", "key\x00", true},
		{"newline", "key\n", true},
		{"tab", "key\tname", true},
		{"del character", "key\x7fname", true},
		{"invalid utf8", "key\xff", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLabel(tt.label)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLabel(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTokenLabel(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		wantErr bool
	}{
		{"empty means any", "", false},
		{"softhsm label", "hsm", false},
		{"max length", strings.Repeat("t", MaxTokenLabelLen), false},
		{"too long", strings.Repeat("t", MaxTokenLabelLen+1), true},
		{"control character", "hsm\r", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTokenLabel(tt.label)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTokenLabel(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePIN(t *testing.T) {
	tests := []struct {
		name    string
		pin     string
		wantErr bool
	}{
		{"empty means no login", "", false},
		{"digits", "1234", false},
		{"passphrase", "correct horse battery staple", false},
		{"trailing newline", "1234\n", true},
		{"null byte", "12\x0034", true},
		{"too long", strings.Repeat("9", MaxPINLen+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePIN(tt.pin)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePIN(%q) error = %v, wantErr %v", tt.pin, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean", "signing-key", "signing-key"},
		{"newline injection", "key\nlevel=ERROR msg=forged", "keylevel=ERROR msg=forged"},
		{"null and del", "a\x00b\x7fc", "abc"},
		{"truncated", strings.Repeat("x", maxLogLen+5), strings.Repeat("x", maxLogLen) + "...[truncated]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForLog(tt.input); got != tt.want {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
