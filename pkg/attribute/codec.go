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

// Package attribute implements typed PKCS#11 attribute values and templates.
//
// Every attribute type code is classified by the symbol registry into one
// ValueKind, and the kind alone decides how a value is marshalled to and from
// the untyped byte slot a token exchanges:
//
//	bool             one byte, zero is false
//	ulong            CK_ULONG in native byte order (8 bytes, 4 accepted on decode)
//	bytes, string    copied verbatim
//	date             eight ASCII digits YYYYMMDD, empty for "no date"
//	mechanism        CK_MECHANISM_TYPE, same layout as ulong
//	mechanism-array  consecutive CK_MECHANISM_TYPE values
//	attribute-array  nested template, framed with internal/wire
//
// A nil slot always decodes to a value that is not present.
package attribute

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	"github.com/jeremyhahn/go-cryptoki/internal/wire"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
)

var nativeOrder = binary.NativeEndian

// Status is the per-attribute outcome a token reports when attributes are
// read back.
type Status uint8

const (
	// StatusOK means the value slot holds the attribute value.
	StatusOK Status = iota
	// StatusSensitive means the attribute exists but may not be revealed.
	StatusSensitive
	// StatusTypeInvalid means the object does not have the attribute.
	StatusTypeInvalid
	// StatusUnavailable means the token returned no usable information.
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSensitive:
		return "sensitive"
	case StatusTypeInvalid:
		return "type-invalid"
	case StatusUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Raw is the untyped attribute slot exchanged with a token.
type Raw struct {
	Type   uint64
	Value  []byte
	Status Status
}

// Classify returns the value kind of an attribute type code.
func Classify(code uint64) (symbol.ValueKind, error) {
	return symbol.Kind(code)
}

// New returns an empty value for code. The value is not present and its state
// is known.
func New(code uint64) (*Value, error) {
	kind, err := Classify(code)
	if err != nil {
		return nil, err
	}
	switch kind {
	case symbol.KindBool, symbol.KindUlong, symbol.KindBytes, symbol.KindString,
		symbol.KindDate, symbol.KindMechanism, symbol.KindMechanismArray,
		symbol.KindAttributeArray:
	default:
		return nil, fmt.Errorf("%w: %s classified as %s",
			ErrUnsupportedAttributeKind, symbol.Format(symbol.Attribute, code), kind)
	}
	return &Value{code: code, kind: kind, stateKnown: true}, nil
}

// NewWith returns a present value for code holding x. The accepted Go types
// depend on the kind:
//
//	bool             bool
//	ulong            any integer type, negative values rejected
//	bytes            []byte, string, *big.Int (minimal unsigned encoding)
//	string           string, []byte
//	date             Date, time.Time
//	mechanism        any integer type
//	mechanism-array  []uint64, []uint
//	attribute-array  *Template
func NewWith(code uint64, x any) (*Value, error) {
	v, err := New(code)
	if err != nil {
		return nil, err
	}
	if err := v.Set(x); err != nil {
		return nil, err
	}
	return v, nil
}

// Set stores x according to the value's kind and marks the value present.
func (v *Value) Set(x any) error {
	switch v.kind {
	case symbol.KindBool:
		b, ok := x.(bool)
		if !ok {
			return v.badInput(x)
		}
		return v.SetBool(b)
	case symbol.KindUlong:
		n, err := toUint64(x)
		if err != nil {
			return fmt.Errorf("%s: %w", v.Name(), err)
		}
		return v.SetUint64(n)
	case symbol.KindBytes:
		switch t := x.(type) {
		case []byte:
			return v.SetBytes(t)
		case string:
			return v.SetBytes([]byte(t))
		case *big.Int:
			return v.SetBigInt(t)
		}
		return v.badInput(x)
	case symbol.KindString:
		switch t := x.(type) {
		case string:
			return v.SetText(t)
		case []byte:
			return v.SetText(string(t))
		}
		return v.badInput(x)
	case symbol.KindDate:
		switch t := x.(type) {
		case Date:
			return v.SetDate(t)
		case time.Time:
			return v.SetDate(DateOf(t))
		}
		return v.badInput(x)
	case symbol.KindMechanism:
		n, err := toUint64(x)
		if err != nil {
			return fmt.Errorf("%s: %w", v.Name(), err)
		}
		return v.SetMechanism(n)
	case symbol.KindMechanismArray:
		switch t := x.(type) {
		case []uint64:
			return v.SetMechanisms(t)
		case []uint:
			mechs := make([]uint64, len(t))
			for i, m := range t {
				mechs[i] = uint64(m)
			}
			return v.SetMechanisms(mechs)
		}
		return v.badInput(x)
	case symbol.KindAttributeArray:
		t, ok := x.(*Template)
		if !ok {
			return v.badInput(x)
		}
		return v.SetTemplate(t)
	}
	return fmt.Errorf("%w: %s classified as %s", ErrUnsupportedAttributeKind, v.Name(), v.kind)
}

func (v *Value) badInput(x any) error {
	return fmt.Errorf("%w: %s (%s) cannot hold %T", ErrInvalidValue, v.Name(), v.kind, x)
}

func toUint64(x any) (uint64, error) {
	var n int64
	switch t := x.(type) {
	case uint64:
		return t, nil
	case uint:
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case uintptr:
		return uint64(t), nil
	case int:
		n = int64(t)
	case int64:
		n = t
	case int32:
		n = int64(t)
	case int16:
		n = int64(t)
	case int8:
		n = int64(t)
	default:
		return 0, fmt.Errorf("%w: %T is not an integer", ErrInvalidValue, x)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative value %d", ErrInvalidValue, n)
	}
	return uint64(n), nil
}

// Encode returns the wire form of v. A value that is not present, sensitive
// or of unknown state encodes as nil.
func Encode(v *Value) ([]byte, error) {
	if !v.stateKnown || !v.present || v.sensitive {
		return nil, nil
	}
	switch v.kind {
	case symbol.KindBool:
		if v.b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case symbol.KindUlong, symbol.KindMechanism:
		b := make([]byte, 8)
		nativeOrder.PutUint64(b, v.n)
		return b, nil
	case symbol.KindBytes, symbol.KindString:
		out := make([]byte, len(v.data))
		copy(out, v.data)
		return out, nil
	case symbol.KindDate:
		return encodeDate(v.date)
	case symbol.KindMechanismArray:
		b := make([]byte, 8*len(v.mechs))
		for i, m := range v.mechs {
			nativeOrder.PutUint64(b[i*8:], m)
		}
		return b, nil
	case symbol.KindAttributeArray:
		return encodeTemplate(v.tmpl)
	}
	return nil, fmt.Errorf("%w: %s classified as %s", ErrUnsupportedAttributeKind, v.Name(), v.kind)
}

// Decode returns the typed value of code held in the wire slot b. A nil slot
// decodes to a value that is not present.
func Decode(code uint64, b []byte) (*Value, error) {
	v, err := New(code)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return v, nil
	}
	switch v.kind {
	case symbol.KindBool:
		if len(b) != 1 {
			return nil, v.badLength(len(b))
		}
		v.b = b[0] != 0
	case symbol.KindUlong, symbol.KindMechanism:
		switch len(b) {
		case 8:
			v.n = nativeOrder.Uint64(b)
		case 4:
			v.n = uint64(nativeOrder.Uint32(b))
		default:
			return nil, v.badLength(len(b))
		}
	case symbol.KindBytes, symbol.KindString:
		v.data = make([]byte, len(b))
		copy(v.data, b)
	case symbol.KindDate:
		d, err := decodeDate(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.Name(), err)
		}
		v.date = d
	case symbol.KindMechanismArray:
		if len(b)%8 != 0 {
			return nil, v.badLength(len(b))
		}
		v.mechs = make([]uint64, len(b)/8)
		for i := range v.mechs {
			v.mechs[i] = nativeOrder.Uint64(b[i*8:])
		}
	case symbol.KindAttributeArray:
		t, err := decodeTemplate(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.Name(), err)
		}
		v.tmpl = t
	default:
		return nil, fmt.Errorf("%w: %s classified as %s", ErrUnsupportedAttributeKind, v.Name(), v.kind)
	}
	v.present = true
	return v, nil
}

// fixedWidth reports whether kind has a fixed wire size, so that a slot
// without storage carries no value at all.
func fixedWidth(kind symbol.ValueKind) bool {
	switch kind {
	case symbol.KindBool, symbol.KindUlong, symbol.KindMechanism:
		return true
	}
	return false
}

func (v *Value) badLength(n int) error {
	return fmt.Errorf("%w: %s (%s) cannot be %d bytes", ErrInvalidValue, v.Name(), v.kind, n)
}

// Raw returns the wire slot for v.
func (v *Value) Raw() (Raw, error) {
	r := Raw{Type: v.code}
	switch {
	case !v.stateKnown:
		r.Status = StatusUnavailable
	case v.sensitive:
		r.Status = StatusSensitive
	case !v.present:
		r.Status = StatusTypeInvalid
	default:
		b, err := Encode(v)
		if err != nil {
			return Raw{}, err
		}
		r.Value = b
	}
	return r, nil
}

// FromRaw decodes a slot returned by a token, carrying over the presence and
// sensitivity the token reported.
func FromRaw(r Raw) (*Value, error) {
	switch r.Status {
	case StatusOK:
		if len(r.Value) == 0 {
			kind, err := Classify(r.Type)
			if err != nil {
				return nil, err
			}
			if fixedWidth(kind) {
				// No storage for a bool or ulong slot: not present.
				return Decode(r.Type, nil)
			}
			// Variable-length kinds are present with an empty value.
			r.Value = []byte{}
		}
		return Decode(r.Type, r.Value)
	case StatusSensitive:
		v, err := New(r.Type)
		if err != nil {
			return nil, err
		}
		v.present = true
		v.sensitive = true
		return v, nil
	case StatusTypeInvalid:
		return New(r.Type)
	case StatusUnavailable:
		v, err := New(r.Type)
		if err != nil {
			return nil, err
		}
		v.stateKnown = false
		return v, nil
	}
	return nil, fmt.Errorf("%w: unknown status %d for %s",
		ErrInvalidValue, r.Status, symbol.Format(symbol.Attribute, r.Type))
}

func encodeTemplate(t *Template) ([]byte, error) {
	b := wire.NewBuffer(nil)
	if t == nil {
		b.AddUint32(0)
		return b.Bytes(), nil
	}
	b.AddUint32(uint32(t.Len()))
	for _, v := range t.values {
		r, err := v.Raw()
		if err != nil {
			return nil, err
		}
		b.AddUint64(r.Type)
		b.AddByte(byte(r.Status))
		b.AddOptionalByteArray(r.Value)
	}
	return b.Bytes(), nil
}

func decodeTemplate(data []byte) (*Template, error) {
	if len(data) == 0 {
		return NewTemplate(), nil
	}
	r := wire.NewReader(data)
	n := r.Uint32()
	t := NewTemplate()
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		raw := Raw{
			Type:   r.Uint64(),
			Status: Status(r.Byte()),
		}
		raw.Value = r.OptionalByteArray()
		if r.Err() != nil {
			break
		}
		v, err := FromRaw(raw)
		if err != nil {
			return nil, err
		}
		t.Put(v)
	}
	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("%w: nested template: %v", ErrInvalidValue, err)
	}
	return t, nil
}
