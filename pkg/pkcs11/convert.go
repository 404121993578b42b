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

//go:build pkcs11

package pkcs11

import (
	"fmt"

	"github.com/miekg/pkcs11"

	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
)

// paramsError wraps ErrUnsupportedParams so it also matches
// mechanism.ErrParamMismatch.
type paramsError struct {
	mech string
	kind string
}

func (e *paramsError) Error() string {
	return fmt.Sprintf("%s: %s parameters for %s", ErrUnsupportedParams, e.kind, e.mech)
}

func (e *paramsError) Is(target error) bool {
	return target == ErrUnsupportedParams || target == mechanism.ErrParamMismatch
}

// toMechanism converts m for the binding. free releases C memory the
// parameters hold and must be called once the token no longer needs them.
func toMechanism(m *mechanism.Mechanism) (mech *pkcs11.Mechanism, free func(), err error) {
	free = func() {}
	if m == nil {
		return nil, free, fmt.Errorf("%w: nil mechanism", mechanism.ErrParamMismatch)
	}
	code := uint(m.Type)
	params := m.Params
	if extra, ok := params.(*mechanism.ExtraParams); ok {
		params = extra.Inner
	}
	switch p := params.(type) {
	case nil:
		return pkcs11.NewMechanism(code, nil), free, nil
	case mechanism.Bytes:
		return pkcs11.NewMechanism(code, []byte(p)), free, nil
	case *mechanism.AEADParams:
		if m.Type != ck.CKM_AES_GCM {
			break
		}
		gcm := pkcs11.NewGCMParams(p.Nonce(), p.AAD(), p.TagBits())
		return pkcs11.NewMechanism(code, gcm), gcm.Free, nil
	case *mechanism.OAEPParams:
		oaep := pkcs11.NewOAEPParams(uint(p.Hash), uint(p.MGF), pkcs11.CKZ_DATA_SPECIFIED, p.Source)
		return pkcs11.NewMechanism(code, oaep), free, nil
	case *mechanism.PSSParams:
		return pkcs11.NewMechanism(code, pkcs11.NewPSSParams(uint(p.Hash), uint(p.MGF), uint(p.SaltLen))), free, nil
	case *mechanism.ECDHParams:
		ecdh := pkcs11.NewECDH1DeriveParams(uint(p.KDF), p.SharedData, p.PublicData)
		return pkcs11.NewMechanism(code, ecdh), free, nil
	}
	return nil, free, &paramsError{mech: m.Name(), kind: params.Family().String()}
}

func toAttributes(raw []attribute.Raw) []*pkcs11.Attribute {
	attrs := make([]*pkcs11.Attribute, len(raw))
	for i, r := range raw {
		attrs[i] = &pkcs11.Attribute{Type: uint(r.Type), Value: r.Value}
	}
	return attrs
}
