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

	"github.com/jeremyhahn/go-cryptoki/internal/password"
	"github.com/jeremyhahn/go-cryptoki/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoki/pkg/session"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
	"github.com/jeremyhahn/go-cryptoki/pkg/validation"
)

// passwordEnv names the environment variable read when --password is not
// given.
const passwordEnv = "CRYPTOKI_IMPORT_PASSWORD"

func newImportCmd(a *app) *cobra.Command {
	var (
		keys         keygenFlags
		passwordFlag string
	)
	cmd := &cobra.Command{
		Use:   "import <key.pem>",
		Short: "Import a private key file as a token key pair",
		Long: `Import an RSA or EC private key as a private key object and its
public key object. PKCS#8 (optionally encrypted), PKCS#1 and SEC 1 PEM files
are accepted. The password of an encrypted file is taken from --password or
` + passwordEnv + `.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// #nosec G304 - path is chosen by the operator
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			id, err := keys.check()
			if err != nil {
				return err
			}
			secret, err := password.Resolve(passwordFlag, passwordEnv)
			if err != nil {
				return err
			}
			key, err := encoding.DecodePrivateKeyPEM(data, secret.Bytes())
			secret.Clear()
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			kp, err := encoding.KeyPairTemplates(key, encoding.KeyOptions{
				Label:       keys.label,
				ID:          id,
				Token:       !keys.ephemeral,
				Private:     a.loginPIN() != "",
				Sensitive:   true,
				Extractable: keys.extractable,
			})
			if err != nil {
				return err
			}

			var pub, priv token.ObjectHandle
			err = a.withSession(cmd.Context(), func(l *session.Lease) error {
				if priv, err = l.Objects().Create(kp.Private); err != nil {
					return err
				}
				if pub, err = l.Objects().Create(kp.Public); err != nil {
					_ = l.Objects().Destroy(priv)
					return err
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to import key: %w", err)
			}
			a.logger.Debug("imported key pair", "label", validation.SanitizeForLog(keys.label), "type", fmt.Sprintf("%T", key))
			return a.printer.PrintMap("Imported key pair",
				[]string{"label", "public", "private"},
				map[string]any{"label": keys.label, "public": uint64(pub), "private": uint64(priv)})
		},
	}
	keys.register(cmd)
	cmd.Flags().StringVar(&passwordFlag, "password", "", "password of an encrypted PKCS#8 file")
	return cmd
}
