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
	"fmt"
	"math/big"
	"strings"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
)

// Template is an ordered set of attribute values keyed by attribute type.
// Each type appears at most once: setting a type that is already present
// updates its slot in place and keeps its position.
//
// A Template describes an object to create, a search filter, or the
// attributes read back from a live object. It is not safe for concurrent
// mutation.
type Template struct {
	values []*Value
	index  map[uint64]int
}

// NewTemplate returns an empty template.
func NewTemplate() *Template {
	return &Template{index: make(map[uint64]int)}
}

// Set inserts or replaces the value of code with x. See NewWith for the
// accepted Go types.
func (t *Template) Set(code uint64, x any) error {
	if i, ok := t.index[code]; ok {
		// Update a copy so a failed conversion leaves the slot untouched.
		v := t.values[i].Clone()
		if err := v.Set(x); err != nil {
			return err
		}
		t.values[i] = v
		return nil
	}
	v, err := NewWith(code, x)
	if err != nil {
		return err
	}
	t.Put(v)
	return nil
}

// Put inserts or replaces the slot for v.Code(). The template keeps v itself,
// not a copy.
func (t *Template) Put(v *Value) {
	if i, ok := t.index[v.code]; ok {
		t.values[i] = v
		return
	}
	t.index[v.code] = len(t.values)
	t.values = append(t.values, v)
}

// Get returns the value for code. It fails with ErrAttributeNotFound when
// code was never set or fetched; a fetched attribute the object does not have
// is returned as a value that is not present.
func (t *Template) Get(code uint64) (*Value, error) {
	i, ok := t.index[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAttributeNotFound, symbol.Format(symbol.Attribute, code))
	}
	return t.values[i], nil
}

// Has reports whether code has a slot in the template.
func (t *Template) Has(code uint64) bool {
	_, ok := t.index[code]
	return ok
}

// Delete removes the slot for code, if any.
func (t *Template) Delete(code uint64) {
	i, ok := t.index[code]
	if !ok {
		return
	}
	t.values = append(t.values[:i], t.values[i+1:]...)
	delete(t.index, code)
	for j := i; j < len(t.values); j++ {
		t.index[t.values[j].code] = j
	}
}

// Len returns the number of slots.
func (t *Template) Len() int {
	if t == nil {
		return 0
	}
	return len(t.values)
}

// Codes returns the attribute type codes in insertion order.
func (t *Template) Codes() []uint64 {
	codes := make([]uint64, len(t.values))
	for i, v := range t.values {
		codes[i] = v.code
	}
	return codes
}

// Values returns the slots in insertion order.
func (t *Template) Values() []*Value {
	return append([]*Value(nil), t.values...)
}

// Clone returns a deep copy of t.
func (t *Template) Clone() *Template {
	c := NewTemplate()
	if t == nil {
		return c
	}
	for _, v := range t.values {
		c.Put(v.Clone())
	}
	return c
}

// Merge copies every slot of o into t, replacing slots t already has.
func (t *Template) Merge(o *Template) {
	if o == nil {
		return
	}
	for _, v := range o.values {
		t.Put(v.Clone())
	}
}

// Equal reports whether t and o hold equal values in the same order.
func (t *Template) Equal(o *Template) bool {
	if t.Len() != o.Len() {
		return false
	}
	for i := 0; i < t.Len(); i++ {
		if !t.values[i].Equal(o.values[i]) {
			return false
		}
	}
	return true
}

// Raw returns the wire slots of every present value, in order.
func (t *Template) Raw() ([]Raw, error) {
	out := make([]Raw, 0, len(t.values))
	for _, v := range t.values {
		if !v.stateKnown || !v.present || v.sensitive {
			continue
		}
		r, err := v.Raw()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// FromRawTemplate decodes slots returned by a token into a template.
func FromRawTemplate(raws []Raw) (*Template, error) {
	t := NewTemplate()
	for _, r := range raws {
		v, err := FromRaw(r)
		if err != nil {
			return nil, err
		}
		t.Put(v)
	}
	return t, nil
}

// Matches reports whether every present value in filter is present and equal
// in t. An empty filter matches every template.
func (t *Template) Matches(filter *Template) bool {
	if filter == nil {
		return true
	}
	for _, want := range filter.values {
		if !want.stateKnown || !want.present {
			continue
		}
		got, err := t.Get(want.code)
		if err != nil || !got.Equal(want) {
			return false
		}
	}
	return true
}

// String renders the template for diagnostics.
func (t *Template) String() string {
	if t == nil {
		return "{}"
	}
	parts := make([]string, len(t.values))
	for i, v := range t.values {
		parts[i] = v.Format()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Bool returns a boolean attribute.
func (t *Template) Bool(code uint64) (bool, error) {
	v, err := t.Get(code)
	if err != nil {
		return false, err
	}
	return v.Bool()
}

// Ulong returns a CK_ULONG attribute.
func (t *Template) Ulong(code uint64) (uint64, error) {
	v, err := t.Get(code)
	if err != nil {
		return 0, err
	}
	return v.Uint64()
}

// Bytes returns a byte array attribute.
func (t *Template) Bytes(code uint64) ([]byte, error) {
	v, err := t.Get(code)
	if err != nil {
		return nil, err
	}
	return v.Bytes()
}

func (t *Template) bigInt(code uint64) (*big.Int, error) {
	v, err := t.Get(code)
	if err != nil {
		return nil, err
	}
	return v.BigInt()
}

func (t *Template) Class() (uint64, error)    { return t.Ulong(ck.CKA_CLASS) }
func (t *Template) KeyType() (uint64, error)  { return t.Ulong(ck.CKA_KEY_TYPE) }
func (t *Template) ValueLen() (uint64, error) { return t.Ulong(ck.CKA_VALUE_LEN) }
func (t *Template) ID() ([]byte, error)       { return t.Bytes(ck.CKA_ID) }
func (t *Template) ECParams() ([]byte, error) { return t.Bytes(ck.CKA_EC_PARAMS) }
func (t *Template) ECPoint() ([]byte, error)  { return t.Bytes(ck.CKA_EC_POINT) }

// Label returns CKA_LABEL.
func (t *Template) Label() (string, error) {
	v, err := t.Get(ck.CKA_LABEL)
	if err != nil {
		return "", err
	}
	return v.Text()
}

// Modulus returns CKA_MODULUS as an unsigned integer.
func (t *Template) Modulus() (*big.Int, error) {
	return t.bigInt(ck.CKA_MODULUS)
}

// PublicExponent returns CKA_PUBLIC_EXPONENT as an unsigned integer.
func (t *Template) PublicExponent() (*big.Int, error) {
	return t.bigInt(ck.CKA_PUBLIC_EXPONENT)
}
