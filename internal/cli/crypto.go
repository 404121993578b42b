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
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/session"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
)

const (
	gcmNonceSize = 12
	aesBlockSize = 16
)

// emit writes result to --out or prints it hex encoded under name.
func (a *app) emit(io *ioFlags, name string, result []byte) error {
	written, err := io.write(result)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", io.out, err)
	}
	if written {
		return a.printer.PrintSuccess(fmt.Sprintf("Wrote %d-byte %s to %s", len(result), name, io.out))
	}
	return a.printer.PrintBytes(name, result)
}

func newDigestCmd(a *app) *cobra.Command {
	var (
		mech mechanismFlags
		io   ioFlags
	)
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Hash data on the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mech.build()
			if err != nil {
				return err
			}
			data, err := io.read(cmd)
			if err != nil {
				return err
			}
			var digest []byte
			err = a.withSession(cmd.Context(), func(l *session.Lease) error {
				digest, err = l.Engine().Digest(m, data)
				return err
			})
			if err != nil {
				return fmt.Errorf("digest failed: %w", err)
			}
			return a.emit(&io, "digest", digest)
		},
	}
	mech.register(cmd, "CKM_SHA256")
	io.register(cmd)
	return cmd
}

func newSignCmd(a *app) *cobra.Command {
	var (
		mech mechanismFlags
		key  keyFlags
		io   ioFlags
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign or MAC data with a token key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mech.build()
			if err != nil {
				return err
			}
			data, err := io.read(cmd)
			if err != nil {
				return err
			}
			var sig []byte
			err = a.withSession(cmd.Context(), func(l *session.Lease) error {
				h, err := key.find(l.Objects(), ck.CKA_SIGN)
				if err != nil {
					return err
				}
				sig, err = l.Engine().Sign(m, h, data)
				return err
			})
			if err != nil {
				return fmt.Errorf("sign failed: %w", err)
			}
			return a.emit(&io, "signature", sig)
		},
	}
	mech.register(cmd, "CKM_SHA256_HMAC")
	key.register(cmd)
	io.register(cmd)
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var (
		mech    mechanismFlags
		key     keyFlags
		io      ioFlags
		sigHex  string
		sigFile string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signature or MAC with a token key",
		Long: `Verify a signature given in hex with --signature or raw in
--signature-file. An invalid signature fails the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mech.build()
			if err != nil {
				return err
			}
			var sig []byte
			switch {
			case sigHex != "":
				if sig, err = hex.DecodeString(sigHex); err != nil {
					return fmt.Errorf("--signature: %w", err)
				}
			case sigFile != "":
				// #nosec G304 - path is chosen by the operator
				if sig, err = os.ReadFile(sigFile); err != nil {
					return err
				}
			default:
				return fmt.Errorf("a signature is required (--signature or --signature-file)")
			}
			data, err := io.read(cmd)
			if err != nil {
				return err
			}
			err = a.withSession(cmd.Context(), func(l *session.Lease) error {
				h, err := key.find(l.Objects(), ck.CKA_VERIFY)
				if err != nil {
					return err
				}
				return l.Engine().Verify(m, h, data, sig)
			})
			if err != nil {
				return fmt.Errorf("verify failed: %w", err)
			}
			return a.printer.PrintSuccess("Signature valid")
		},
	}
	mech.register(cmd, "CKM_SHA256_HMAC")
	key.register(cmd)
	io.register(cmd)
	cmd.Flags().StringVar(&sigHex, "signature", "", "hex signature")
	cmd.Flags().StringVar(&sigFile, "signature-file", "", "file holding the raw signature")
	return cmd
}

// fillIV generates the IV or nonce an encryption needs when none is given
// and returns the flag it filled, if any.
func (f *mechanismFlags) fillIV() (string, error) {
	code, err := resolveName(symbol.Mechanism, "CKM_", f.name)
	if err != nil {
		return "", err
	}
	family, _ := symbol.Default().ParamFamily(code)
	var (
		target *string
		name   string
		size   int
	)
	switch {
	case family == symbol.FamilyAEAD && f.nonce == "":
		target, name, size = &f.nonce, "nonce", gcmNonceSize
	case family == symbol.FamilyBytes && f.iv == "":
		target, name, size = &f.iv, "iv", aesBlockSize
	default:
		return "", nil
	}
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	*target = hex.EncodeToString(b)
	return name, nil
}

func newEncryptCmd(a *app) *cobra.Command {
	var (
		mech mechanismFlags
		key  keyFlags
		io   ioFlags
	)
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt data with a token key",
		Long: `Encrypt data with a token key. A random IV or nonce is generated
and printed when the mechanism needs one and none is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			generated, err := mech.fillIV()
			if err != nil {
				return err
			}
			m, err := mech.build()
			if err != nil {
				return err
			}
			data, err := io.read(cmd)
			if err != nil {
				return err
			}
			var ct []byte
			err = a.withSession(cmd.Context(), func(l *session.Lease) error {
				h, err := key.find(l.Objects(), ck.CKA_ENCRYPT)
				if err != nil {
					return err
				}
				ct, err = l.Engine().Encrypt(m, h, data)
				return err
			})
			if err != nil {
				return fmt.Errorf("encrypt failed: %w", err)
			}
			if generated == "" {
				return a.emit(&io, "ciphertext", ct)
			}
			value := mech.iv
			if generated == "nonce" {
				value = mech.nonce
			}
			if _, err := io.write(ct); err != nil {
				return fmt.Errorf("failed to write %s: %w", io.out, err)
			}
			keys := []string{generated}
			result := map[string]any{generated: value}
			if io.out == "" {
				keys = append(keys, "ciphertext")
				result["ciphertext"] = hex.EncodeToString(ct)
			}
			return a.printer.PrintMap("", keys, result)
		},
	}
	mech.register(cmd, "CKM_AES_GCM")
	key.register(cmd)
	io.register(cmd)
	return cmd
}

func newDecryptCmd(a *app) *cobra.Command {
	var (
		mech mechanismFlags
		key  keyFlags
		io   ioFlags
	)
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt data with a token key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mech.build()
			if err != nil {
				return err
			}
			data, err := io.read(cmd)
			if err != nil {
				return err
			}
			var pt []byte
			err = a.withSession(cmd.Context(), func(l *session.Lease) error {
				h, err := key.find(l.Objects(), ck.CKA_DECRYPT)
				if err != nil {
					return err
				}
				pt, err = l.Engine().Decrypt(m, h, data)
				return err
			})
			if err != nil {
				return fmt.Errorf("decrypt failed: %w", err)
			}
			return a.emit(&io, "plaintext", pt)
		},
	}
	mech.register(cmd, "CKM_AES_GCM")
	key.register(cmd)
	io.register(cmd)
	return cmd
}
