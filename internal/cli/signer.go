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
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoki/internal/config"
	"github.com/jeremyhahn/go-cryptoki/pkg/encoding"
)

// signerSet is the crypto.Signer view of a PKCS#11 library.
type signerSet interface {
	FindSigner(id, label []byte) (crypto.Signer, error)
	GenerateRSA(id, label []byte, bits int) (crypto.Signer, error)
	GenerateECDSA(id, label []byte, curve elliptic.Curve) (crypto.Signer, error)
	Close() error
}

// withSigners opens the configured library as a signer set.
func (a *app) withSigners(fn func(signerSet) error) error {
	if a.config.Token.Type != config.TokenPKCS11 {
		return fmt.Errorf("signer requires a pkcs11 token (--library)")
	}
	signers, err := openSigners(a.config, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = signers.Close() }()
	return fn(signers)
}

func (a *app) printPublic(cmd *cobra.Command, s crypto.Signer) error {
	pemData, err := encoding.EncodePublicKeyPEM(s.Public())
	if err != nil {
		return err
	}
	if OutputFormat(a.globals.OutputFormat) == OutputFormatJSON {
		return a.printer.printJSON(map[string]any{"public_key": string(pemData)})
	}
	_, err = cmd.OutOrStdout().Write(pemData)
	return err
}

// selector is the id and label pair crypto11 looks keys up by.
type selector struct {
	id    string
	label string
}

func (s *selector) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.label, "label", "", "CKA_LABEL of the key pair")
	cmd.Flags().StringVar(&s.id, "id", "", "hex CKA_ID of the key pair")
}

func (s *selector) values() (id, label []byte, err error) {
	if s.label == "" && s.id == "" {
		return nil, nil, fmt.Errorf("--label or --id is required")
	}
	id, err = parseHex("id", s.id)
	if err != nil {
		return nil, nil, err
	}
	if s.label != "" {
		label = []byte(s.label)
	}
	return id, label, nil
}

func newSignerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signer",
		Short: "Use token key pairs as Go crypto.Signers",
		Long: `Create and use key pairs through crypto11, the crypto.Signer view
of a PKCS#11 library. Requires --library and a build with -tags pkcs11.`,
	}

	var (
		gen   selector
		kind  string
		bits  int
		curve string
	)
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a key pair and print its public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, label, err := gen.values()
			if err != nil {
				return err
			}
			return a.withSigners(func(set signerSet) error {
				var s crypto.Signer
				switch kind {
				case "rsa":
					s, err = set.GenerateRSA(id, label, bits)
				case "ec":
					c, cerr := parseCurve(curve)
					if cerr != nil {
						return cerr
					}
					s, err = set.GenerateECDSA(id, label, c)
				default:
					return fmt.Errorf("unknown key type %q (rsa, ec)", kind)
				}
				if err != nil {
					return fmt.Errorf("failed to generate key pair: %w", err)
				}
				return a.printPublic(cmd, s)
			})
		},
	}
	gen.register(generateCmd)
	generateCmd.Flags().StringVar(&kind, "type", "ec", "key type (rsa, ec)")
	generateCmd.Flags().IntVar(&bits, "bits", 2048, "RSA modulus size")
	generateCmd.Flags().StringVar(&curve, "curve", "P-256", "EC named curve")

	var pub selector
	publicCmd := &cobra.Command{
		Use:   "public",
		Short: "Print the public key of a key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, label, err := pub.values()
			if err != nil {
				return err
			}
			return a.withSigners(func(set signerSet) error {
				s, err := set.FindSigner(id, label)
				if err != nil {
					return err
				}
				return a.printPublic(cmd, s)
			})
		},
	}
	pub.register(publicCmd)

	var (
		sel selector
		io  ioFlags
	)
	signCmd := &cobra.Command{
		Use:   "sign",
		Short: "Hash data with SHA-256 and sign it",
		Long: `Hash the input with SHA-256 and sign the digest: PKCS#1 v1.5 for
RSA keys, ASN.1 DER ECDSA signatures for EC keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, label, err := sel.values()
			if err != nil {
				return err
			}
			data, err := io.read(cmd)
			if err != nil {
				return err
			}
			sum := sha256.Sum256(data)

			var sig []byte
			err = a.withSigners(func(set signerSet) error {
				s, err := set.FindSigner(id, label)
				if err != nil {
					return err
				}
				switch s.Public().(type) {
				case *rsa.PublicKey, *ecdsa.PublicKey:
				default:
					return fmt.Errorf("unsupported key type %T", s.Public())
				}
				sig, err = s.Sign(rand.Reader, sum[:], crypto.SHA256)
				return err
			})
			if err != nil {
				return fmt.Errorf("sign failed: %w", err)
			}
			return a.emit(&io, "signature", sig)
		},
	}
	sel.register(signCmd)
	io.register(signCmd)

	cmd.AddCommand(generateCmd, publicCmd, signCmd)
	return cmd
}
