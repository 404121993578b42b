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

//go:build ignore

// gen.go writes zz_generated.go from the embedded symbol table.
package main

import (
	"bytes"
	"fmt"
	"go/format"
	"log"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

var header = `// Copyright (c) 2025 Jeremy Hahn
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
`

var tmpl = template.Must(template.New("zz_generated.go").Parse(header + `
// Code generated by gen.go from pkg/symbol/symbols.yaml; DO NOT EDIT.

package ck
{{ range . }}
// {{ .Title }}
const (
{{ range .Canonical }}{{ .Name }} = {{ printf "0x%08x" .Code }}
{{ end }})
{{ if .Aliases }}
// Deprecated aliases of {{ .Lower }}
const (
{{ range .Aliases }}{{ .Name }} = {{ .Target }}
{{ end }})
{{ end }}{{ end }}`))

var order = []struct {
	category string
	title    string
}{
	{"attribute", "Attribute types (CKA_*)."},
	{"mechanism", "Mechanism types (CKM_*)."},
	{"key-type", "Key types (CKK_*)."},
	{"object-class", "Object classes (CKO_*)."},
	{"certificate-type", "Certificate types (CKC_*)."},
	{"hw-feature-type", "Hardware feature types (CKH_*)."},
	{"mgf", "Mask generation functions (CKG_*)."},
	{"kdf", "Key derivation functions (CKD_*)."},
	{"user-type", "User types (CKU_*)."},
	{"return-code", "Return values (CKR_*)."},
}

type entry struct {
	Name       string `yaml:"name"`
	Code       uint64 `yaml:"code"`
	Deprecated bool   `yaml:"deprecated"`
}

type alias struct {
	Name   string
	Target string
}

type section struct {
	Title     string
	Lower     string
	Canonical []entry
	Aliases   []alias
}

func main() {
	data, err := os.ReadFile("../symbol/symbols.yaml")
	if err != nil {
		log.Fatalf("reading symbol table: %v", err)
	}
	var table struct {
		Categories map[string][]entry `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &table); err != nil {
		log.Fatalf("parsing symbol table: %v", err)
	}

	var sections []section
	for _, o := range order {
		entries, ok := table.Categories[o.category]
		if !ok {
			log.Fatalf("symbol table has no %q category", o.category)
		}
		s := section{
			Title: o.title,
			Lower: strings.ToLower(o.title[:1]) + o.title[1:],
		}
		canonical := make(map[uint64]string)
		for _, e := range entries {
			if !e.Deprecated {
				s.Canonical = append(s.Canonical, e)
				canonical[e.Code] = e.Name
			}
		}
		for _, e := range entries {
			if !e.Deprecated {
				continue
			}
			target, ok := canonical[e.Code]
			if !ok {
				log.Fatalf("%s: alias %s has no canonical entry", o.category, e.Name)
			}
			s.Aliases = append(s.Aliases, alias{Name: e.Name, Target: target})
		}
		sections = append(sections, s)
	}

	b := &bytes.Buffer{}
	if err := tmpl.Execute(b, sections); err != nil {
		log.Fatalf("executing template: %v", err)
	}
	out, err := format.Source(b.Bytes())
	if err != nil {
		log.Fatalf("formatting source: %v", err)
	}
	if err := os.WriteFile("zz_generated.go", out, 0644); err != nil {
		log.Fatalf("writing file: %v", err)
	}
	fmt.Println("wrote zz_generated.go")
}
