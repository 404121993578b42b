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

import "fmt"

// ValueKind classifies the wire representation of an attribute value.
type ValueKind uint8

const (
	// KindInvalid is the zero value and never classifies a registered attribute.
	KindInvalid ValueKind = iota
	KindBool
	KindUlong
	KindBytes
	KindString
	KindDate
	KindMechanism
	KindMechanismArray
	KindAttributeArray
)

var valueKindNames = map[ValueKind]string{
	KindBool:           "bool",
	KindUlong:          "ulong",
	KindBytes:          "bytes",
	KindString:         "string",
	KindDate:           "date",
	KindMechanism:      "mechanism",
	KindMechanismArray: "mechanism-array",
	KindAttributeArray: "attribute-array",
}

// String returns the table spelling of the kind.
func (k ValueKind) String() string {
	if s, ok := valueKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseValueKind returns the ValueKind spelled s in the symbol table.
func ParseValueKind(s string) (ValueKind, error) {
	for k, name := range valueKindNames {
		if name == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("%w: unknown value kind %q", ErrInvalidTable, s)
}

// ParamFamily is the parameter family a mechanism declares.
type ParamFamily uint8

const (
	// FamilyNone means the mechanism takes no parameters.
	FamilyNone ParamFamily = iota
	// FamilyOpaque means the parameter layout is not modelled and is not
	// validated locally.
	FamilyOpaque
	FamilyBytes
	FamilyAEAD
	FamilyAEADMessage
	FamilyOAEP
	FamilyPSS
	FamilyECDH
	FamilyHKDF
)

var paramFamilyNames = map[ParamFamily]string{
	FamilyNone:        "none",
	FamilyOpaque:      "opaque",
	FamilyBytes:       "bytes",
	FamilyAEAD:        "aead",
	FamilyAEADMessage: "aead-message",
	FamilyOAEP:        "oaep",
	FamilyPSS:         "pss",
	FamilyECDH:        "ecdh",
	FamilyHKDF:        "hkdf",
}

func (f ParamFamily) String() string {
	if s, ok := paramFamilyNames[f]; ok {
		return s
	}
	return fmt.Sprintf("family(%d)", uint8(f))
}

// ParseParamFamily returns the ParamFamily spelled s in the symbol table.
func ParseParamFamily(s string) (ParamFamily, error) {
	if s == "" {
		return FamilyNone, nil
	}
	for f, name := range paramFamilyNames {
		if name == s {
			return f, nil
		}
	}
	return FamilyNone, fmt.Errorf("%w: unknown parameter family %q", ErrInvalidTable, s)
}
