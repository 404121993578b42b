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
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/object"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// resolveName looks up name in cat, accepting it with or without the
// category prefix (e.g. "SHA256" for CKM_SHA256) or as a number.
func resolveName(cat symbol.Category, prefix, name string) (uint64, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if code, err := symbol.Code(cat, upper); err == nil {
		return code, nil
	}
	if !strings.HasPrefix(upper, prefix) {
		if code, err := symbol.Code(cat, prefix+upper); err == nil {
			return code, nil
		}
	}
	if code, err := strconv.ParseUint(name, 0, 64); err == nil {
		return code, nil
	}
	return 0, fmt.Errorf("unknown %s %q", cat, name)
}

// displayName is the registered name of code, or its hex form.
func displayName(cat symbol.Category, code uint64) string {
	if name, err := symbol.Name(cat, code); err == nil {
		return name
	}
	return fmt.Sprintf("0x%08x", code)
}

// parseHex decodes an optional hex flag value.
func parseHex(flag, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return b, nil
}

// ioFlags selects the input of a data command: --data, a file, or stdin.
type ioFlags struct {
	in    string
	data  string
	isHex bool
	out   string
}

func (f *ioFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.in, "in", "-", "input file, - for stdin")
	cmd.Flags().StringVar(&f.data, "data", "", "input given inline (overrides --in)")
	cmd.Flags().BoolVar(&f.isHex, "hex", false, "input is hex encoded")
	cmd.Flags().StringVar(&f.out, "out", "", "write the raw result to this file")
}

func (f *ioFlags) read(cmd *cobra.Command) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case f.data != "":
		data = []byte(f.data)
	case f.in == "" || f.in == "-":
		data, err = io.ReadAll(cmd.InOrStdin())
	default:
		// #nosec G304 - path is chosen by the operator
		data, err = os.ReadFile(f.in)
	}
	if err != nil || !f.isHex {
		return data, err
	}
	return hex.DecodeString(strings.TrimSpace(string(data)))
}

// write stores result in --out when given and reports whether it did.
func (f *ioFlags) write(result []byte) (bool, error) {
	if f.out == "" {
		return false, nil
	}
	return true, os.WriteFile(f.out, result, 0o600)
}

// keyFlags selects a key by label or hex ID.
type keyFlags struct {
	label string
	id    string
}

func (f *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.label, "key", "", "label of the key to use")
	cmd.Flags().StringVar(&f.id, "key-id", "", "hex CKA_ID of the key to use")
}

func (f *keyFlags) set() bool {
	return f.label != "" || f.id != ""
}

// find returns the single object matching the selector that allows every
// usage, a boolean attribute such as CKA_SIGN.
func (f *keyFlags) find(objects *object.Manager, usages ...uint64) (token.ObjectHandle, error) {
	if !f.set() {
		return 0, fmt.Errorf("a key is required (--key or --key-id)")
	}
	b := attribute.NewBuilder()
	for _, u := range usages {
		b.Set(u, true)
	}
	if f.label != "" {
		b.Label(f.label)
	}
	if f.id != "" {
		id, err := parseHex("key-id", f.id)
		if err != nil {
			return 0, err
		}
		b.ID(id)
	}
	filter, err := b.Build()
	if err != nil {
		return 0, err
	}
	return objects.FindOne(filter)
}

// mechanismFlags collects a mechanism name and the parameters its family
// may need.
type mechanismFlags struct {
	name    string
	iv      string
	nonce   string
	aad     string
	tagBits int
	hash    string
	mgf     string
	saltLen uint64
	source  string
}

func (f *mechanismFlags) register(cmd *cobra.Command, def string) {
	flags := cmd.Flags()
	flags.StringVarP(&f.name, "mechanism", "m", def, "mechanism name, e.g. CKM_SHA256_HMAC")
	flags.StringVar(&f.iv, "iv", "", "hex IV for CBC mechanisms")
	flags.StringVar(&f.nonce, "nonce", "", "hex nonce for AEAD mechanisms")
	flags.StringVar(&f.aad, "aad", "", "hex additional authenticated data")
	flags.IntVar(&f.tagBits, "tag-bits", 128, "AEAD tag length in bits")
	flags.StringVar(&f.hash, "hash", "CKM_SHA256", "hash for OAEP and PSS")
	flags.StringVar(&f.mgf, "mgf", "CKG_MGF1_SHA256", "mask generation function for OAEP and PSS")
	flags.Uint64Var(&f.saltLen, "salt-len", 32, "PSS salt length")
	flags.StringVar(&f.source, "oaep-label", "", "hex OAEP encoding parameter")
}

// build resolves the mechanism and attaches the parameters of its family.
func (f *mechanismFlags) build() (*mechanism.Mechanism, error) {
	code, err := resolveName(symbol.Mechanism, "CKM_", f.name)
	if err != nil {
		return nil, err
	}
	family, _ := symbol.Default().ParamFamily(code)
	switch family {
	case symbol.FamilyNone, symbol.FamilyOpaque:
		return mechanism.New(code), nil
	case symbol.FamilyBytes:
		iv, err := parseHex("iv", f.iv)
		if err != nil {
			return nil, err
		}
		return mechanism.New(code, mechanism.IV(iv)), nil
	case symbol.FamilyAEAD:
		nonce, err := parseHex("nonce", f.nonce)
		if err != nil {
			return nil, err
		}
		aad, err := parseHex("aad", f.aad)
		if err != nil {
			return nil, err
		}
		return mechanism.New(code, mechanism.NewAEADParams(nonce, aad, f.tagBits)), nil
	case symbol.FamilyOAEP, symbol.FamilyPSS:
		hash, err := resolveName(symbol.Mechanism, "CKM_", f.hash)
		if err != nil {
			return nil, err
		}
		mgf, err := resolveName(symbol.MGF, "CKG_", f.mgf)
		if err != nil {
			return nil, err
		}
		if family == symbol.FamilyPSS {
			return mechanism.New(code, mechanism.NewPSSParams(hash, mgf, f.saltLen)), nil
		}
		source, err := parseHex("oaep-label", f.source)
		if err != nil {
			return nil, err
		}
		return mechanism.New(code, mechanism.NewOAEPParams(hash, mgf, source)), nil
	}
	return nil, fmt.Errorf("%s takes %s parameters, which p11ctl cannot build",
		symbol.Format(symbol.Mechanism, code), family)
}
