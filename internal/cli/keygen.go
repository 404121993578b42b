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
	"crypto/elliptic"
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/session"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
	"github.com/jeremyhahn/go-cryptoki/pkg/validation"
)

// keygenFlags are shared by every keygen subcommand.
type keygenFlags struct {
	label       string
	id          string
	ephemeral   bool
	extractable bool
}

func (f *keygenFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.label, "label", "", "CKA_LABEL of the new key (required)")
	cmd.Flags().StringVar(&f.id, "id", "", "hex CKA_ID of the new key")
	cmd.Flags().BoolVar(&f.ephemeral, "session", false, "create a session object instead of a token object")
	cmd.Flags().BoolVar(&f.extractable, "extractable", false, "allow the key to be wrapped")
	_ = cmd.MarkFlagRequired("label")
}

// check validates the label and decodes the ID.
func (f *keygenFlags) check() ([]byte, error) {
	if err := validation.ValidateLabel(f.label); err != nil {
		return nil, err
	}
	return parseHex("id", f.id)
}

func (f *keygenFlags) secret(keyType uint64, private bool) (*attribute.Builder, error) {
	id, err := f.check()
	if err != nil {
		return nil, err
	}
	b := attribute.NewSecretKey(keyType).
		Token(!f.ephemeral).
		Private(private).
		Label(f.label).
		Sensitive(true).
		Extractable(f.extractable)
	if id != nil {
		b.ID(id)
	}
	return b, nil
}

func (f *keygenFlags) pair(keyType uint64, private bool) (*attribute.KeyPairBuilder, error) {
	id, err := f.check()
	if err != nil {
		return nil, err
	}
	b := attribute.NewKeyPair(keyType).
		Token(!f.ephemeral).
		Private(private).
		Label(f.label).
		Sensitive(true).
		Extractable(f.extractable).
		Sign(true).
		Verify(true)
	if id != nil {
		b.ID(id)
	}
	return b, nil
}

var curves = map[string]elliptic.Curve{
	"P-224": elliptic.P224(),
	"P-256": elliptic.P256(),
	"P-384": elliptic.P384(),
	"P-521": elliptic.P521(),
}

func parseCurve(name string) (elliptic.Curve, error) {
	c, ok := curves[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported curve %q (P-224, P-256, P-384, P-521)", name)
	}
	return c, nil
}

func newKeygenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate keys on the token",
		Long: `Generate secret keys and key pairs on the token. Keys are token
objects unless --session is given, private when the session logs in, and
sensitive. Non-extractable unless --extractable is given.`,
	}

	var (
		aesFlags keygenFlags
		aesBits  int
	)
	aesCmd := &cobra.Command{
		Use:   "aes",
		Short: "Generate an AES key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if aesBits != 128 && aesBits != 192 && aesBits != 256 {
				return fmt.Errorf("invalid AES key size %d", aesBits)
			}
			b, err := aesFlags.secret(ck.CKK_AES, a.loginPIN() != "")
			if err != nil {
				return err
			}
			b.ValueLen(uint64(aesBits / 8)).Encrypt(true).Decrypt(true).Wrap(true).Unwrap(true)
			return a.generateSecret(cmd, ck.CKM_AES_KEY_GEN, b, fmt.Sprintf("AES-%d", aesBits))
		},
	}
	aesFlags.register(aesCmd)
	aesCmd.Flags().IntVar(&aesBits, "bits", 256, "key size (128, 192, 256)")

	var (
		genericFlags keygenFlags
		genericBytes int
	)
	genericCmd := &cobra.Command{
		Use:   "generic",
		Short: "Generate a generic secret key for HMAC and derivation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if genericBytes < 1 {
				return fmt.Errorf("invalid key length %d", genericBytes)
			}
			b, err := genericFlags.secret(ck.CKK_GENERIC_SECRET, a.loginPIN() != "")
			if err != nil {
				return err
			}
			b.ValueLen(uint64(genericBytes)).Sign(true).Verify(true).Derive(true)
			return a.generateSecret(cmd, ck.CKM_GENERIC_SECRET_KEY_GEN, b,
				fmt.Sprintf("%d-byte generic secret", genericBytes))
		},
	}
	genericFlags.register(genericCmd)
	genericCmd.Flags().IntVar(&genericBytes, "bytes", 32, "key length in bytes")

	var (
		rsaFlags keygenFlags
		rsaBits  int
	)
	rsaCmd := &cobra.Command{
		Use:   "rsa",
		Short: "Generate an RSA key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rsaBits < 1024 {
				return fmt.Errorf("invalid RSA key size %d", rsaBits)
			}
			b, err := rsaFlags.pair(ck.CKK_RSA, a.loginPIN() != "")
			if err != nil {
				return err
			}
			b.ModulusBits(uint64(rsaBits)).
				PublicExponent(big.NewInt(65537)).
				Encrypt(true).
				Decrypt(true)
			return a.generatePair(cmd, ck.CKM_RSA_PKCS_KEY_PAIR_GEN, b, fmt.Sprintf("RSA-%d", rsaBits))
		},
	}
	rsaFlags.register(rsaCmd)
	rsaCmd.Flags().IntVar(&rsaBits, "bits", 2048, "modulus size")

	var (
		ecFlags keygenFlags
		ecCurve string
	)
	ecCmd := &cobra.Command{
		Use:   "ec",
		Short: "Generate an EC key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			curve, err := parseCurve(ecCurve)
			if err != nil {
				return err
			}
			params, err := encoding.ECParams(curve)
			if err != nil {
				return err
			}
			b, err := ecFlags.pair(ck.CKK_EC, a.loginPIN() != "")
			if err != nil {
				return err
			}
			b.ECParams(params).Derive(true)
			return a.generatePair(cmd, ck.CKM_EC_KEY_PAIR_GEN, b, "EC "+curve.Params().Name)
		},
	}
	ecFlags.register(ecCmd)
	ecCmd.Flags().StringVar(&ecCurve, "curve", "P-256", "named curve")

	cmd.AddCommand(aesCmd, genericCmd, rsaCmd, ecCmd)
	return cmd
}

func (a *app) generateSecret(cmd *cobra.Command, mech uint64, b *attribute.Builder, what string) error {
	t, err := b.Build()
	if err != nil {
		return err
	}
	var h token.ObjectHandle
	err = a.withSession(cmd.Context(), func(l *session.Lease) error {
		h, err = l.Objects().GenerateKey(mechanism.New(mech), t)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	label, _ := t.Label()
	return a.printer.PrintMap(fmt.Sprintf("Generated %s key", what),
		[]string{"label", "handle"},
		map[string]any{"label": label, "handle": uint64(h)})
}

func (a *app) generatePair(cmd *cobra.Command, mech uint64, b *attribute.KeyPairBuilder, what string) error {
	kp, err := b.Build()
	if err != nil {
		return err
	}
	var pub, priv token.ObjectHandle
	err = a.withSession(cmd.Context(), func(l *session.Lease) error {
		pub, priv, err = l.Objects().GenerateKeyPair(mechanism.New(mech), kp)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to generate key pair: %w", err)
	}
	label, _ := kp.Public.Label()
	return a.printer.PrintMap(fmt.Sprintf("Generated %s key pair", what),
		[]string{"label", "public", "private"},
		map[string]any{"label": label, "public": uint64(pub), "private": uint64(priv)})
}
