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
	"bytes"
	"fmt"
	"math"
	"math/big"
	"slices"
	"strings"

	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
)

// Value is a typed attribute value. Its kind is fixed by the attribute type
// code through the symbol registry; only the payload field matching the kind
// is meaningful.
//
// Present reports whether the object actually has the attribute, which is
// different from holding a zero value. Sensitive reports that the attribute
// exists but the token will not reveal it. Both flags are meaningless when
// StateKnown is false, which happens when the token could not say.
//
// A Value starts empty from New and changes only through its typed setters
// (which mark it present) or by being decoded from a token response.
type Value struct {
	code       uint64
	kind       symbol.ValueKind
	present    bool
	sensitive  bool
	stateKnown bool

	b     bool
	n     uint64
	data  []byte
	date  Date
	mechs []uint64
	tmpl  *Template
}

// Code returns the attribute type code.
func (v *Value) Code() uint64 { return v.code }

// Kind returns the value kind.
func (v *Value) Kind() symbol.ValueKind { return v.kind }

// Present reports whether the object has the attribute.
func (v *Value) Present() bool { return v.present }

// Sensitive reports whether the attribute exists but cannot be read.
func (v *Value) Sensitive() bool { return v.sensitive }

// StateKnown reports whether Present and Sensitive are meaningful.
func (v *Value) StateKnown() bool { return v.stateKnown }

// Name returns the registered name of the attribute type.
func (v *Value) Name() string {
	name, err := symbol.Name(symbol.Attribute, v.code)
	if err != nil {
		return fmt.Sprintf("0x%08x", v.code)
	}
	return name
}

func (v *Value) readable(kind symbol.ValueKind) error {
	if v.kind != kind {
		return fmt.Errorf("%w: %s is %s, not %s", ErrKindMismatch, v.Name(), v.kind, kind)
	}
	if !v.stateKnown {
		return fmt.Errorf("%w: %s state unknown", ErrNotPresent, v.Name())
	}
	if v.sensitive {
		return fmt.Errorf("%w: %s", ErrSensitive, v.Name())
	}
	if !v.present {
		return fmt.Errorf("%w: %s", ErrNotPresent, v.Name())
	}
	return nil
}

// Bool returns the value of a boolean attribute.
func (v *Value) Bool() (bool, error) {
	if err := v.readable(symbol.KindBool); err != nil {
		return false, err
	}
	return v.b, nil
}

// Uint64 returns the value of a CK_ULONG attribute.
func (v *Value) Uint64() (uint64, error) {
	if err := v.readable(symbol.KindUlong); err != nil {
		return 0, err
	}
	return v.n, nil
}

// Uint32 returns a CK_ULONG attribute narrowed to 32 bits. It fails with
// ErrValueOverflow instead of truncating.
func (v *Value) Uint32() (uint32, error) {
	n, err := v.Uint64()
	if err != nil {
		return 0, err
	}
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s value %d exceeds 32 bits", ErrValueOverflow, v.Name(), n)
	}
	return uint32(n), nil
}

// Bytes returns a copy of a byte array attribute.
func (v *Value) Bytes() ([]byte, error) {
	if err := v.readable(symbol.KindBytes); err != nil {
		return nil, err
	}
	return bytes.Clone(v.data), nil
}

// BigInt interprets a byte array attribute as an unsigned big-endian integer.
func (v *Value) BigInt() (*big.Int, error) {
	if err := v.readable(symbol.KindBytes); err != nil {
		return nil, err
	}
	return unsignedInt(v.data), nil
}

// SignedBigInt interprets a byte array attribute as a two's-complement
// big-endian integer.
func (v *Value) SignedBigInt() (*big.Int, error) {
	if err := v.readable(symbol.KindBytes); err != nil {
		return nil, err
	}
	return signedInt(v.data), nil
}

// Text returns the value of a character-string attribute.
func (v *Value) Text() (string, error) {
	if err := v.readable(symbol.KindString); err != nil {
		return "", err
	}
	return string(v.data), nil
}

// Date returns the value of a CK_DATE attribute. A present empty date is
// returned as the zero Date.
func (v *Value) Date() (Date, error) {
	if err := v.readable(symbol.KindDate); err != nil {
		return Date{}, err
	}
	return v.date, nil
}

// Mechanism returns the value of a mechanism-type attribute.
func (v *Value) Mechanism() (uint64, error) {
	if err := v.readable(symbol.KindMechanism); err != nil {
		return 0, err
	}
	return v.n, nil
}

// Mechanisms returns a copy of a mechanism-array attribute.
func (v *Value) Mechanisms() ([]uint64, error) {
	if err := v.readable(symbol.KindMechanismArray); err != nil {
		return nil, err
	}
	return slices.Clone(v.mechs), nil
}

// Template returns a copy of a nested attribute-array attribute.
func (v *Value) Template() (*Template, error) {
	if err := v.readable(symbol.KindAttributeArray); err != nil {
		return nil, err
	}
	return v.tmpl.Clone(), nil
}

func (v *Value) markSet() {
	v.present = true
	v.sensitive = false
	v.stateKnown = true
}

func (v *Value) expect(kind symbol.ValueKind) error {
	if v.kind != kind {
		return fmt.Errorf("%w: %s is %s, not %s", ErrKindMismatch, v.Name(), v.kind, kind)
	}
	return nil
}

// SetBool stores a boolean value.
func (v *Value) SetBool(b bool) error {
	if err := v.expect(symbol.KindBool); err != nil {
		return err
	}
	v.b = b
	v.markSet()
	return nil
}

// SetUint64 stores a CK_ULONG value.
func (v *Value) SetUint64(n uint64) error {
	if err := v.expect(symbol.KindUlong); err != nil {
		return err
	}
	v.n = n
	v.markSet()
	return nil
}

// SetBytes stores a copy of b.
func (v *Value) SetBytes(b []byte) error {
	if err := v.expect(symbol.KindBytes); err != nil {
		return err
	}
	if b == nil {
		b = []byte{}
	}
	v.data = bytes.Clone(b)
	v.markSet()
	return nil
}

// SetBigInt stores n as its minimal unsigned big-endian encoding. Negative
// values are rejected.
func (v *Value) SetBigInt(n *big.Int) error {
	if err := v.expect(symbol.KindBytes); err != nil {
		return err
	}
	b, err := unsignedBytes(n)
	if err != nil {
		return fmt.Errorf("%s: %w", v.Name(), err)
	}
	v.data = b
	v.markSet()
	return nil
}

// SetSignedBigInt stores n as its minimal two's-complement encoding.
func (v *Value) SetSignedBigInt(n *big.Int) error {
	if err := v.expect(symbol.KindBytes); err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("%w: %s: nil big integer", ErrInvalidValue, v.Name())
	}
	v.data = signedBytes(n)
	v.markSet()
	return nil
}

// SetText stores a character string.
func (v *Value) SetText(s string) error {
	if err := v.expect(symbol.KindString); err != nil {
		return err
	}
	v.data = []byte(s)
	v.markSet()
	return nil
}

// SetDate stores d after checking its range.
func (v *Value) SetDate(d Date) error {
	if err := v.expect(symbol.KindDate); err != nil {
		return err
	}
	if !d.IsZero() {
		if err := d.validate(); err != nil {
			return fmt.Errorf("%s: %w", v.Name(), err)
		}
	}
	v.date = d
	v.markSet()
	return nil
}

// SetMechanism stores a mechanism type.
func (v *Value) SetMechanism(mech uint64) error {
	if err := v.expect(symbol.KindMechanism); err != nil {
		return err
	}
	v.n = mech
	v.markSet()
	return nil
}

// SetMechanisms stores a copy of mechs.
func (v *Value) SetMechanisms(mechs []uint64) error {
	if err := v.expect(symbol.KindMechanismArray); err != nil {
		return err
	}
	if mechs == nil {
		mechs = []uint64{}
	}
	v.mechs = slices.Clone(mechs)
	v.markSet()
	return nil
}

// SetTemplate stores a copy of t.
func (v *Value) SetTemplate(t *Template) error {
	if err := v.expect(symbol.KindAttributeArray); err != nil {
		return err
	}
	if t == nil {
		t = NewTemplate()
	}
	v.tmpl = t.Clone()
	v.markSet()
	return nil
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	c := *v
	c.data = bytes.Clone(v.data)
	c.mechs = slices.Clone(v.mechs)
	if v.tmpl != nil {
		c.tmpl = v.tmpl.Clone()
	}
	return &c
}

// Equal reports whether v and o carry the same code, flags and payload.
func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.code != o.code || v.kind != o.kind || v.stateKnown != o.stateKnown {
		return false
	}
	if !v.stateKnown {
		return true
	}
	if v.present != o.present || v.sensitive != o.sensitive {
		return false
	}
	if !v.present || v.sensitive {
		return true
	}
	switch v.kind {
	case symbol.KindBool:
		return v.b == o.b
	case symbol.KindUlong, symbol.KindMechanism:
		return v.n == o.n
	case symbol.KindBytes, symbol.KindString:
		return bytes.Equal(v.data, o.data)
	case symbol.KindDate:
		return v.date == o.date
	case symbol.KindMechanismArray:
		return slices.Equal(v.mechs, o.mechs)
	case symbol.KindAttributeArray:
		return v.tmpl.Equal(o.tmpl)
	}
	return false
}

// Format renders the value for diagnostics. Sensitive byte arrays are never
// printed.
func (v *Value) Format() string {
	var sb strings.Builder
	sb.WriteString(v.Name())
	sb.WriteByte('=')
	switch {
	case !v.stateKnown:
		sb.WriteString("<unknown>")
	case v.sensitive:
		sb.WriteString("<sensitive>")
	case !v.present:
		sb.WriteString("<absent>")
	default:
		sb.WriteString(v.formatPayload())
	}
	return sb.String()
}

func (v *Value) formatPayload() string {
	switch v.kind {
	case symbol.KindBool:
		return fmt.Sprintf("%t", v.b)
	case symbol.KindUlong:
		return v.formatUlong()
	case symbol.KindMechanism:
		return symbol.Format(symbol.Mechanism, v.n)
	case symbol.KindBytes:
		return fmt.Sprintf("%x", v.data)
	case symbol.KindString:
		return fmt.Sprintf("%q", v.data)
	case symbol.KindDate:
		return v.date.String()
	case symbol.KindMechanismArray:
		names := make([]string, len(v.mechs))
		for i, m := range v.mechs {
			names[i] = symbol.Format(symbol.Mechanism, m)
		}
		return "[" + strings.Join(names, ", ") + "]"
	case symbol.KindAttributeArray:
		return v.tmpl.String()
	}
	return "?"
}

// formatUlong names the well-known enumerated CK_ULONG attributes.
func (v *Value) formatUlong() string {
	var cat symbol.Category
	switch v.Name() {
	case "CKA_CLASS":
		cat = symbol.ObjectClass
	case "CKA_KEY_TYPE":
		cat = symbol.KeyType
	case "CKA_CERTIFICATE_TYPE":
		cat = symbol.CertificateType
	case "CKA_HW_FEATURE_TYPE":
		cat = symbol.HWFeatureType
	default:
		return fmt.Sprintf("%d", v.n)
	}
	return symbol.Format(cat, v.n)
}
