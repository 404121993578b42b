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

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage p11ctl configuration",
	}

	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write the effective configuration to a new file",
		Long: `Write the configuration p11ctl would run with (defaults, then any
--config file, environment and flags) to path as YAML. An existing file
is never overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.config.Write(args[0]); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			return a.printer.PrintSuccess(fmt.Sprintf("Wrote configuration to %s", args[0]))
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if OutputFormat(a.globals.OutputFormat) == OutputFormatJSON {
				return a.printer.printJSON(a.config)
			}
			data, err := yaml.Marshal(a.config)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
