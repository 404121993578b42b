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

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type document struct {
	Version    string                `yaml:"version"`
	Categories map[string][]rawEntry `yaml:"categories"`
}

type rawEntry struct {
	Name       string `yaml:"name"`
	Code       uint64 `yaml:"code"`
	Deprecated bool   `yaml:"deprecated"`
	Kind       string `yaml:"kind"`
	Params     string `yaml:"params"`
}

// Load builds a registry from a YAML symbol table. The table must define
// every category in Categories. Load fails when:
//   - a code is registered twice with different canonical names
//   - a name is registered twice in one category
//   - a deprecated alias has no canonical entry with the same code
//   - an attribute names a value kind the codec does not know
//   - a mechanism names an unknown parameter family
func Load(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if doc.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrInvalidTable)
	}

	known := make(map[Category]bool, len(Categories))
	for _, cat := range Categories {
		known[cat] = true
	}
	for name := range doc.Categories {
		if !known[Category(name)] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
		}
	}

	r := &Registry{
		version:    doc.Version,
		categories: make(map[Category]*table, len(Categories)),
	}
	for _, cat := range Categories {
		entries, ok := doc.Categories[string(cat)]
		if !ok {
			return nil, fmt.Errorf("%w: category %q missing", ErrInvalidTable, cat)
		}
		t, err := buildCategory(cat, entries)
		if err != nil {
			return nil, err
		}
		r.categories[cat] = t
	}
	return r, nil
}

func buildCategory(cat Category, entries []rawEntry) (*table, error) {
	var canonical []*Symbol
	byCode := make(map[uint64]*Symbol)
	names := make(map[string]bool)

	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("%w: %s 0x%08x has no name", ErrInvalidTable, cat, e.Code)
		}
		if names[e.Name] {
			return nil, fmt.Errorf("%w: %s name %s registered twice", ErrInvalidTable, cat, e.Name)
		}
		names[e.Name] = true
		if e.Deprecated {
			continue
		}
		if prev, ok := byCode[e.Code]; ok {
			return nil, fmt.Errorf("%w: %s 0x%08x registered as both %s and %s",
				ErrInvalidTable, cat, e.Code, prev.Name, e.Name)
		}
		s := &Symbol{Category: cat, Code: e.Code, Name: e.Name}
		switch cat {
		case Attribute:
			kind, err := ParseValueKind(e.Kind)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Name, err)
			}
			s.Kind = kind
		case Mechanism:
			family, err := ParseParamFamily(e.Params)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Name, err)
			}
			s.Params = family
		}
		byCode[e.Code] = s
		canonical = append(canonical, s)
	}

	t := newTable(canonical)
	for _, s := range canonical {
		t.byCode[s.Code] = s
		t.byName[s.Name] = s
	}
	for _, e := range entries {
		if !e.Deprecated {
			continue
		}
		s, ok := byCode[e.Code]
		if !ok {
			return nil, fmt.Errorf("%w: %s alias %s has no canonical entry for 0x%08x",
				ErrInvalidTable, cat, e.Name, e.Code)
		}
		s.Aliases = append(s.Aliases, e.Name)
		t.byName[e.Name] = s
	}
	return t, nil
}
