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
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/encoding"
	"github.com/jeremyhahn/go-cryptoki/pkg/object"
	"github.com/jeremyhahn/go-cryptoki/pkg/session"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// listAttributes are read for every row of an object listing.
var listAttributes = []uint64{
	ck.CKA_CLASS,
	ck.CKA_KEY_TYPE,
	ck.CKA_LABEL,
	ck.CKA_ID,
	ck.CKA_TOKEN,
	ck.CKA_PRIVATE,
}

// showAttributes are read by "objects show"; those an object lacks are
// skipped.
var showAttributes = []uint64{
	ck.CKA_CLASS,
	ck.CKA_KEY_TYPE,
	ck.CKA_LABEL,
	ck.CKA_ID,
	ck.CKA_UNIQUE_ID,
	ck.CKA_TOKEN,
	ck.CKA_PRIVATE,
	ck.CKA_MODIFIABLE,
	ck.CKA_COPYABLE,
	ck.CKA_DESTROYABLE,
	ck.CKA_LOCAL,
	ck.CKA_KEY_GEN_MECHANISM,
	ck.CKA_SENSITIVE,
	ck.CKA_ALWAYS_SENSITIVE,
	ck.CKA_EXTRACTABLE,
	ck.CKA_NEVER_EXTRACTABLE,
	ck.CKA_ENCRYPT,
	ck.CKA_DECRYPT,
	ck.CKA_SIGN,
	ck.CKA_VERIFY,
	ck.CKA_WRAP,
	ck.CKA_UNWRAP,
	ck.CKA_DERIVE,
	ck.CKA_VALUE_LEN,
	ck.CKA_MODULUS_BITS,
	ck.CKA_MODULUS,
	ck.CKA_PUBLIC_EXPONENT,
	ck.CKA_EC_PARAMS,
	ck.CKA_EC_POINT,
	ck.CKA_ALLOWED_MECHANISMS,
}

func describeObject(objects *object.Manager, h token.ObjectHandle) (ObjectInfo, error) {
	t, err := objects.Fetch(h, listAttributes...)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to read object %d: %w", h, err)
	}
	info := ObjectInfo{Handle: uint64(h)}
	if class, err := t.Class(); err == nil {
		info.Class = displayName(symbol.ObjectClass, class)
	}
	if kt, err := t.KeyType(); err == nil {
		info.KeyType = displayName(symbol.KeyType, kt)
	}
	if label, err := t.Label(); err == nil {
		info.Label = label
	}
	if id, err := t.ID(); err == nil {
		info.ID = hex.EncodeToString(id)
	}
	info.Token, _ = t.Bool(ck.CKA_TOKEN)
	info.Private, _ = t.Bool(ck.CKA_PRIVATE)
	return info, nil
}

// objectTarget resolves a handle argument or the key selector flags.
func objectTarget(objects *object.Manager, args []string, keys *keyFlags) (token.ObjectHandle, error) {
	if len(args) == 1 {
		if keys.set() {
			return 0, fmt.Errorf("give a handle or --key/--key-id, not both")
		}
		h, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid handle %q: %w", args[0], err)
		}
		return token.ObjectHandle(h), nil
	}
	return keys.find(objects)
}

// exportTarget resolves the public key to export; a label or ID selects the
// object that can verify.
func exportTarget(objects *object.Manager, args []string, keys *keyFlags) (token.ObjectHandle, error) {
	if len(args) == 0 && keys.set() {
		return keys.find(objects, ck.CKA_VERIFY)
	}
	return objectTarget(objects, args, keys)
}

func newObjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "objects",
		Short: "List, inspect and delete token objects",
	}

	var (
		class string
		label string
		limit int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List objects visible to the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := attribute.NewBuilder()
			if class != "" {
				code, err := resolveName(symbol.ObjectClass, "CKO_", class)
				if err != nil {
					return err
				}
				b.Class(code)
			}
			if label != "" {
				b.Label(label)
			}
			filter, err := b.Build()
			if err != nil {
				return err
			}
			var list []ObjectInfo
			err = a.withSession(cmd.Context(), func(l *session.Lease) error {
				handles, err := l.Objects().Find(filter, limit)
				if err != nil {
					return fmt.Errorf("failed to find objects: %w", err)
				}
				for _, h := range handles {
					info, err := describeObject(l.Objects(), h)
					if err != nil {
						return err
					}
					list = append(list, info)
				}
				return nil
			})
			if err != nil {
				return err
			}
			return a.printer.PrintObjectList(list)
		},
	}
	listCmd.Flags().StringVar(&class, "class", "", "only objects of this class, e.g. CKO_SECRET_KEY")
	listCmd.Flags().StringVar(&label, "label", "", "only objects with this label")
	listCmd.Flags().IntVar(&limit, "max", 0, "stop after this many objects (0 for all)")

	var showKeys keyFlags
	showCmd := &cobra.Command{
		Use:   "show [handle]",
		Short: "Print the attributes of one object",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				handle token.ObjectHandle
				attrs  []string
			)
			err := a.withSession(cmd.Context(), func(l *session.Lease) error {
				h, err := objectTarget(l.Objects(), args, &showKeys)
				if err != nil {
					return err
				}
				t, err := l.Objects().Fetch(h, showAttributes...)
				if err != nil {
					return fmt.Errorf("failed to read object %d: %w", h, err)
				}
				for _, v := range t.Values() {
					if v.Present() || v.Sensitive() {
						attrs = append(attrs, v.Format())
					}
				}
				handle = h
				return nil
			})
			if err != nil {
				return err
			}
			return a.printer.PrintAttributes(uint64(handle), attrs)
		},
	}
	showKeys.register(showCmd)

	var deleteKeys keyFlags
	deleteCmd := &cobra.Command{
		Use:   "delete [handle]",
		Short: "Destroy one object",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var handle token.ObjectHandle
			err := a.withSession(cmd.Context(), func(l *session.Lease) error {
				h, err := objectTarget(l.Objects(), args, &deleteKeys)
				if err != nil {
					return err
				}
				handle = h
				return l.Objects().Destroy(h)
			})
			if err != nil {
				return fmt.Errorf("failed to delete object: %w", err)
			}
			return a.printer.PrintSuccess(fmt.Sprintf("Deleted object %d", handle))
		},
	}
	deleteKeys.register(deleteCmd)

	var exportKeys keyFlags
	exportCmd := &cobra.Command{
		Use:   "export [handle]",
		Short: "Print an RSA or EC public key object as PEM",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pemData []byte
			err := a.withSession(cmd.Context(), func(l *session.Lease) error {
				h, err := exportTarget(l.Objects(), args, &exportKeys)
				if err != nil {
					return err
				}
				t, err := l.Objects().Fetch(h, ck.CKA_KEY_TYPE, ck.CKA_MODULUS,
					ck.CKA_PUBLIC_EXPONENT, ck.CKA_EC_PARAMS, ck.CKA_EC_POINT)
				if err != nil {
					return err
				}
				pub, err := encoding.PublicKey(t)
				if err != nil {
					return err
				}
				pemData, err = encoding.EncodePublicKeyPEM(pub)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to export public key: %w", err)
			}
			if OutputFormat(a.globals.OutputFormat) == OutputFormatJSON {
				return a.printer.printJSON(map[string]any{"public_key": string(pemData)})
			}
			_, err = cmd.OutOrStdout().Write(pemData)
			return err
		},
	}
	exportKeys.register(exportCmd)

	cmd.AddCommand(listCmd, showCmd, deleteCmd, exportCmd)
	return cmd
}
