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

// Package symbol maps PKCS#11 symbolic names to their numeric codes.
//
// The registry is an immutable lookup table built once from the versioned
// symbol table embedded in this package (symbols.yaml). Each category
// (attribute types, mechanisms, key types, object classes, return codes and
// so on) maps a numeric code to exactly one canonical name. A name may also be
// registered as a deprecated alias of an existing code, in which case Code
// resolves the alias to the canonical code and Name always answers with the
// canonical name.
//
// The attribute category doubles as the codec's classification table: every
// canonical attribute entry names the ValueKind used to marshal its value.
// Mechanism entries optionally declare the ParamFamily their parameters
// belong to.
//
// Use Default for the process-wide registry. Load builds a registry from an
// arbitrary table and reports inconsistencies as errors instead of panicking.
package symbol

import (
	"fmt"
	"sort"
)

// Category is a namespace of symbolic codes.
type Category string

const (
	Attribute       Category = "attribute"
	Mechanism       Category = "mechanism"
	KeyType         Category = "key-type"
	ObjectClass     Category = "object-class"
	CertificateType Category = "certificate-type"
	HWFeatureType   Category = "hw-feature-type"
	MGF             Category = "mgf"
	KDF             Category = "kdf"
	UserType        Category = "user-type"
	ReturnCode      Category = "return-code"
)

// Categories lists every category a table must define, in display order.
var Categories = []Category{
	Attribute,
	Mechanism,
	KeyType,
	ObjectClass,
	CertificateType,
	HWFeatureType,
	MGF,
	KDF,
	UserType,
	ReturnCode,
}

// Symbol is one registered code with its canonical name and aliases.
type Symbol struct {
	Category Category
	Code     uint64
	Name     string
	Aliases  []string

	// Kind is set for attribute symbols only.
	Kind ValueKind

	// Params is set for mechanism symbols only.
	Params ParamFamily
}

type table struct {
	byCode map[uint64]*Symbol
	byName map[string]*Symbol
	order  []*Symbol
}

// Registry is an immutable symbol table. It is safe for concurrent use.
type Registry struct {
	version    string
	categories map[Category]*table
}

// Version returns the version string of the table the registry was built from.
func (r *Registry) Version() string {
	return r.version
}

func (r *Registry) table(cat Category) (*table, error) {
	t, ok := r.categories[cat]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	return t, nil
}

// Lookup returns the symbol registered for code in cat.
func (r *Registry) Lookup(cat Category, code uint64) (Symbol, error) {
	t, err := r.table(cat)
	if err != nil {
		return Symbol{}, err
	}
	s, ok := t.byCode[code]
	if !ok {
		return Symbol{}, fmt.Errorf("%w: %s 0x%08x", ErrUnknownSymbol, cat, code)
	}
	return *s, nil
}

// Name returns the canonical name registered for code in cat. It never
// synthesizes a name for an unregistered code.
func (r *Registry) Name(cat Category, code uint64) (string, error) {
	s, err := r.Lookup(cat, code)
	if err != nil {
		return "", err
	}
	return s.Name, nil
}

// Code returns the code registered for name in cat. Deprecated aliases
// resolve to the code of their canonical name.
func (r *Registry) Code(cat Category, name string) (uint64, error) {
	t, err := r.table(cat)
	if err != nil {
		return 0, err
	}
	s, ok := t.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s %q", ErrUnknownSymbol, cat, name)
	}
	return s.Code, nil
}

// Aliases returns the deprecated aliases registered for code in cat.
func (r *Registry) Aliases(cat Category, code uint64) []string {
	s, err := r.Lookup(cat, code)
	if err != nil {
		return nil
	}
	return append([]string(nil), s.Aliases...)
}

// Symbols returns every canonical symbol of cat ordered by code.
func (r *Registry) Symbols(cat Category) []Symbol {
	t, err := r.table(cat)
	if err != nil {
		return nil
	}
	out := make([]Symbol, 0, len(t.order))
	for _, s := range t.order {
		out = append(out, *s)
	}
	return out
}

// Names returns the canonical names of cat ordered by code.
func (r *Registry) Names(cat Category) []string {
	syms := r.Symbols(cat)
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = s.Name
	}
	return out
}

// Kind classifies an attribute type code.
func (r *Registry) Kind(code uint64) (ValueKind, error) {
	s, ok := r.categories[Attribute].byCode[code]
	if !ok {
		return KindInvalid, fmt.Errorf("%w: 0x%08x", ErrUnknownAttributeType, code)
	}
	return s.Kind, nil
}

// ParamFamily returns the parameter family declared by a mechanism. The
// second return value is false when the mechanism is not registered.
func (r *Registry) ParamFamily(mech uint64) (ParamFamily, bool) {
	s, ok := r.categories[Mechanism].byCode[mech]
	if !ok {
		return FamilyNone, false
	}
	return s.Params, true
}

// Format renders code for diagnostics as "NAME (0x0000xxxx)". Unregistered
// codes render as "0x0000xxxx (unregistered)".
func (r *Registry) Format(cat Category, code uint64) string {
	if name, err := r.Name(cat, code); err == nil {
		return fmt.Sprintf("%s (0x%08x)", name, code)
	}
	return fmt.Sprintf("0x%08x (unregistered)", code)
}

func newTable(entries []*Symbol) *table {
	t := &table{
		byCode: make(map[uint64]*Symbol, len(entries)),
		byName: make(map[string]*Symbol, len(entries)),
		order:  entries,
	}
	sort.Slice(t.order, func(i, j int) bool { return t.order[i].Code < t.order[j].Code })
	return t
}
