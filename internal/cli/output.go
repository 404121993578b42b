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

package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// ObjectInfo is one row of an object listing.
type ObjectInfo struct {
	Handle  uint64 `json:"handle"`
	Class   string `json:"class"`
	KeyType string `json:"key_type,omitempty"`
	Label   string `json:"label,omitempty"`
	ID      string `json:"id,omitempty"`
	Token   bool   `json:"token"`
	Private bool   `json:"private"`
}

// MechanismRow describes one mechanism a slot supports.
type MechanismRow struct {
	Name       string   `json:"name"`
	Code       uint64   `json:"code"`
	MinKeySize uint64   `json:"min_key_size"`
	MaxKeySize uint64   `json:"max_key_size"`
	Flags      []string `json:"flags"`
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]any{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]any{
			"status": "error",
			"error":  err.Error(),
		})
	default:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	}
}

// PrintBytes prints a named binary result, hex encoded.
func (p *Printer) PrintBytes(name string, data []byte) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]any{
			name: hex.EncodeToString(data),
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, hex.EncodeToString(data))
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSymbol prints one registry entry.
func (p *Printer) PrintSymbol(s symbol.Symbol) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(symbolJSON(s))
	case OutputFormatText:
		fmt.Fprintf(p.writer, "%s = 0x%08X\n", s.Name, s.Code)
		if len(s.Aliases) > 0 {
			fmt.Fprintf(p.writer, "  aliases: %s\n", strings.Join(s.Aliases, ", "))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSymbolList prints every entry of a category.
func (p *Printer) PrintSymbolList(cat symbol.Category, symbols []symbol.Symbol) error {
	switch p.format {
	case OutputFormatJSON:
		list := make([]map[string]any, len(symbols))
		for i, s := range symbols {
			list[i] = symbolJSON(s)
		}
		return p.printJSON(map[string]any{
			"category": string(cat),
			"symbols":  list,
		})
	case OutputFormatText:
		for _, s := range symbols {
			fmt.Fprintf(p.writer, "0x%08X  %s\n", s.Code, s.Name)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

func symbolJSON(s symbol.Symbol) map[string]any {
	m := map[string]any{
		"category": string(s.Category),
		"name":     s.Name,
		"code":     s.Code,
	}
	if len(s.Aliases) > 0 {
		m["aliases"] = s.Aliases
	}
	switch s.Category {
	case symbol.Attribute:
		m["kind"] = s.Kind.String()
	case symbol.Mechanism:
		m["params"] = s.Params.String()
	}
	return m
}

// PrintMechanisms prints the mechanisms of a slot.
func (p *Printer) PrintMechanisms(slot uint64, rows []MechanismRow) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]any{
			"slot":       slot,
			"mechanisms": rows,
		})
	case OutputFormatText:
		if len(rows) == 0 {
			fmt.Fprintln(p.writer, "No mechanisms found")
			return nil
		}
		fmt.Fprintf(p.writer, "%-32s %-14s %s\n", "MECHANISM", "KEY SIZE", "FLAGS")
		fmt.Fprintln(p.writer, strings.Repeat("-", 72))
		for _, r := range rows {
			fmt.Fprintf(p.writer, "%-32s %-14s %s\n", r.Name,
				fmt.Sprintf("%d-%d", r.MinKeySize, r.MaxKeySize), strings.Join(r.Flags, ","))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintObjectList prints a list of objects
func (p *Printer) PrintObjectList(objects []ObjectInfo) error {
	switch p.format {
	case OutputFormatJSON:
		if objects == nil {
			objects = []ObjectInfo{}
		}
		return p.printJSON(map[string]any{
			"objects": objects,
		})
	case OutputFormatText:
		if len(objects) == 0 {
			fmt.Fprintln(p.writer, "No objects found")
			return nil
		}
		fmt.Fprintf(p.writer, "%-8s %-18s %-20s %-24s %s\n", "HANDLE", "CLASS", "KEY TYPE", "LABEL", "ID")
		fmt.Fprintln(p.writer, strings.Repeat("-", 90))
		for _, o := range objects {
			fmt.Fprintf(p.writer, "%-8d %-18s %-20s %-24s %s\n", o.Handle, o.Class, o.KeyType, o.Label, o.ID)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintAttributes prints the formatted attributes of one object.
func (p *Printer) PrintAttributes(handle uint64, attrs []string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]any{
			"handle":     handle,
			"attributes": attrs,
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Object %d:\n", handle)
		for _, a := range attrs {
			fmt.Fprintf(p.writer, "  %s\n", a)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintMap prints a flat result as JSON or aligned key/value lines.
func (p *Printer) PrintMap(title string, keys []string, values map[string]any) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(values)
	case OutputFormatText:
		if title != "" {
			fmt.Fprintln(p.writer, title)
		}
		width := 0
		for _, k := range keys {
			width = max(width, len(k))
		}
		for _, k := range keys {
			fmt.Fprintf(p.writer, "  %-*s %v\n", width+1, k+":", values[k])
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// printJSON prints data as JSON
func (p *Printer) printJSON(data any) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
