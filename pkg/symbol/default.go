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
	_ "embed"
	"fmt"
	"sync"
)

//go:embed symbols.yaml
var embeddedTable []byte

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry built from the embedded table.
// An inconsistent embedded table is a build defect and panics on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := Load(embeddedTable)
		if err != nil {
			panic(fmt.Sprintf("symbol: embedded table: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Name looks up a canonical name in the default registry.
func Name(cat Category, code uint64) (string, error) {
	return Default().Name(cat, code)
}

// Code looks up a code in the default registry.
func Code(cat Category, name string) (uint64, error) {
	return Default().Code(cat, name)
}

// Kind classifies an attribute type code using the default registry.
func Kind(code uint64) (ValueKind, error) {
	return Default().Kind(code)
}

// Format renders code for diagnostics using the default registry.
func Format(cat Category, code uint64) string {
	return Default().Format(cat, code)
}
