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
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
)

func parseCategory(s string) (symbol.Category, error) {
	for _, c := range symbol.Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	names := make([]string, len(symbol.Categories))
	for i, c := range symbol.Categories {
		names[i] = string(c)
	}
	return "", fmt.Errorf("unknown category %q (one of %s)", s, strings.Join(names, ", "))
}

func newSymbolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "Resolve PKCS#11 symbolic names and codes",
		Long: `Query the embedded PKCS#11 symbol table. Categories: attribute,
mechanism, key-type, object-class, certificate-type, hw-feature-type, mgf,
kdf, user-type and return-code.`,
	}

	lookupCmd := &cobra.Command{
		Use:   "lookup <category> <code>",
		Short: "Print the name registered for a numeric code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := parseCategory(args[0])
			if err != nil {
				return err
			}
			code, err := strconv.ParseUint(args[1], 0, 64)
			if err != nil {
				return fmt.Errorf("invalid code %q: %w", args[1], err)
			}
			s, err := symbol.Default().Lookup(cat, code)
			if err != nil {
				return err
			}
			return a.printer.PrintSymbol(s)
		},
	}

	nameCmd := &cobra.Command{
		Use:   "name <category> <name>",
		Short: "Print the code registered for a name or alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := parseCategory(args[0])
			if err != nil {
				return err
			}
			r := symbol.Default()
			code, err := r.Code(cat, args[1])
			if err != nil {
				return err
			}
			s, err := r.Lookup(cat, code)
			if err != nil {
				return err
			}
			return a.printer.PrintSymbol(s)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <category>",
		Short: "List every symbol of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := parseCategory(args[0])
			if err != nil {
				return err
			}
			return a.printer.PrintSymbolList(cat, symbol.Default().Symbols(cat))
		},
	}

	cmd.AddCommand(lookupCmd, nameCmd, listCmd)
	return cmd
}
