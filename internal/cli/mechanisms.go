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

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

var mechanismFlagNames = []struct {
	flag uint64
	name string
}{
	{ck.CKF_HW, "hw"},
	{ck.CKF_ENCRYPT, "encrypt"},
	{ck.CKF_DECRYPT, "decrypt"},
	{ck.CKF_DIGEST, "digest"},
	{ck.CKF_SIGN, "sign"},
	{ck.CKF_SIGN_RECOVER, "sign-recover"},
	{ck.CKF_VERIFY, "verify"},
	{ck.CKF_VERIFY_RECOVER, "verify-recover"},
	{ck.CKF_GENERATE, "generate"},
	{ck.CKF_GENERATE_KEY_PAIR, "generate-key-pair"},
	{ck.CKF_WRAP, "wrap"},
	{ck.CKF_UNWRAP, "unwrap"},
	{ck.CKF_DERIVE, "derive"},
	{ck.CKF_MESSAGE_ENCRYPT, "message-encrypt"},
	{ck.CKF_MESSAGE_DECRYPT, "message-decrypt"},
	{ck.CKF_MESSAGE_SIGN, "message-sign"},
	{ck.CKF_MESSAGE_VERIFY, "message-verify"},
	{ck.CKF_MULTI_MESSAGE, "multi-message"},
}

func mechanismFlagList(info token.MechanismInfo) []string {
	var out []string
	for _, f := range mechanismFlagNames {
		if info.Has(f.flag) {
			out = append(out, f.name)
		}
	}
	return out
}

func newMechanismsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mechanisms",
		Short: "List the mechanisms the token supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openToken()
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			mechs, err := conn.provider.Mechanisms(conn.slot)
			if err != nil {
				return fmt.Errorf("failed to list mechanisms: %w", err)
			}
			rows := make([]MechanismRow, 0, len(mechs))
			for _, m := range mechs {
				info, err := conn.provider.MechanismInfo(conn.slot, m)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", symbol.Format(symbol.Mechanism, m), err)
				}
				rows = append(rows, MechanismRow{
					Name:       displayName(symbol.Mechanism, m),
					Code:       m,
					MinKeySize: info.MinKeySize,
					MaxKeySize: info.MaxKeySize,
					Flags:      mechanismFlagList(info),
				})
			}
			return a.printer.PrintMechanisms(conn.slot, rows)
		},
	}
}
