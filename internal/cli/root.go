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
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-cryptoki/internal/config"
	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/validation"
)

// app is the state shared by one command tree.
type app struct {
	globals *Config
	viper   *viper.Viper
	config  *config.Config
	logger  *logging.Logger
	printer *Printer
}

// flagKeys binds persistent flags to configuration keys.
var flagKeys = map[string]string{
	"token":       "token.type",
	"library":     "token.library",
	"slot":        "token.slot",
	"token-label": "token.token_label",
	"pin":         "token.pin",
	"user-type":   "token.user_type",
	"soft-store":  "soft.store",
	"soft-path":   "soft.path",
}

// NewRootCommand builds the p11ctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{
		globals: NewConfig(),
		viper:   config.New(),
	}

	root := &cobra.Command{
		Use:   "p11ctl",
		Short: "p11ctl - PKCS#11 token tool",
		Long: `p11ctl drives a PKCS#11 token through go-cryptoki: it resolves
symbolic names, lists mechanisms and objects, generates and imports keys,
runs single-part cryptographic operations and benchmarks a session pool.

Tokens:
  - soft:   the built-in software token (memory, file or sqlite store)
  - pkcs11: a vendor PKCS#11 library (requires a build with -tags pkcs11)`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.logger.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.globals.ConfigFile, "config", "", "config file (YAML)")
	flags.StringVarP(&a.globals.OutputFormat, "output", "o", string(OutputFormatText), "output format (text, json)")
	flags.BoolVarP(&a.globals.Verbose, "verbose", "v", false, "debug logging")
	flags.String("token", config.TokenSoft, "token type (soft, pkcs11)")
	flags.String("library", "", "PKCS#11 library path; implies --token pkcs11")
	flags.Uint64("slot", 0, "slot ID")
	flags.String("token-label", "", "use the slot holding the token with this label")
	flags.String("pin", "", "user PIN")
	flags.String("user-type", "user", "login as user or so")
	flags.String("soft-store", config.StoreMemory, "software token store (memory, file, sqlite)")
	flags.String("soft-path", "", "software token store path")
	for name, key := range flagKeys {
		_ = a.viper.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(
		newVersionCmd(a),
		newConfigCmd(a),
		newSymbolsCmd(a),
		newMechanismsCmd(a),
		newObjectsCmd(a),
		newKeygenCmd(a),
		newDigestCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newEncryptCmd(a),
		newDecryptCmd(a),
		newImportCmd(a),
		newSignerCmd(a),
		newBenchCmd(a),
	)
	return root
}

// setup loads configuration and the logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	switch OutputFormat(a.globals.OutputFormat) {
	case OutputFormatText, OutputFormatJSON:
	default:
		return fmt.Errorf("unknown output format: %s", a.globals.OutputFormat)
	}
	a.printer = NewPrinter(a.globals.OutputFormat, cmd.OutOrStdout())

	if cmd.Flags().Changed("library") && !cmd.Flags().Changed("token") {
		a.viper.Set("token.type", config.TokenPKCS11)
	}
	cfg, err := config.Load(a.viper, a.globals.ConfigFile)
	if err != nil {
		return err
	}
	for _, pin := range []string{cfg.Token.PIN, cfg.Soft.PIN, cfg.Soft.SOPIN} {
		if err := validation.ValidatePIN(pin); err != nil {
			return fmt.Errorf("%w: %v", config.ErrInvalid, err)
		}
	}
	if err := validation.ValidateTokenLabel(cfg.Token.TokenLabel); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	if a.globals.Verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.config, a.logger = cfg, logger
	a.logger.Debug("configuration loaded",
		"token", cfg.Token.Type, "slot", cfg.Token.Slot, "store", cfg.Soft.Store)
	return nil
}

// Execute runs the root command and reports a failure on stderr.
func Execute() error {
	root := NewRootCommand()
	err := root.Execute()
	if err != nil {
		format, _ := root.PersistentFlags().GetString("output")
		_ = NewPrinter(format, os.Stderr).PrintError(err) // best-effort
	}
	return err
}
