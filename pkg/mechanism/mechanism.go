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

// Package mechanism describes PKCS#11 mechanisms and their parameters.
//
// A Mechanism pairs a mechanism code with an optional parameter payload.
// Payloads form a closed set, one type per parameter family, and each knows
// its own wire layout. Constructing a Mechanism never checks that the payload
// suits the code; Validate does that against the families declared in the
// symbol registry, and the operation engine calls it at init time.
package mechanism

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
)

// ErrParamMismatch is returned when a parameter payload does not belong to
// the family the mechanism declares.
var ErrParamMismatch = errors.New("mechanism: parameter mismatch")

// Mechanism is a mechanism code with optional parameters.
type Mechanism struct {
	Type   uint64
	Params Params
}

// New returns a mechanism for code. At most one parameter payload may be
// given; nil means no parameters.
func New(code uint64, params ...Params) *Mechanism {
	m := &Mechanism{Type: code}
	if len(params) > 0 {
		m.Params = params[0]
	}
	return m
}

// Name returns the registered mechanism name, or the hex code for vendor
// mechanisms.
func (m *Mechanism) Name() string {
	name, err := symbol.Name(symbol.Mechanism, m.Type)
	if err != nil {
		return fmt.Sprintf("0x%08x", m.Type)
	}
	return name
}

func (m *Mechanism) String() string {
	if m.Params == nil {
		return m.Name()
	}
	return fmt.Sprintf("%s(%s)", m.Name(), m.Params.Family())
}

// Family returns the family of the supplied parameters, looking through
// ExtraParams. A mechanism without parameters reports FamilyNone.
func (m *Mechanism) Family() symbol.ParamFamily {
	if m.Params == nil {
		return symbol.FamilyNone
	}
	return m.Params.Family()
}

// Inner returns the mechanism the token should see: ExtraParams are replaced
// by the parameters they wrap.
func (m *Mechanism) Inner() *Mechanism {
	extra, ok := m.Params.(*ExtraParams)
	if !ok {
		return m
	}
	return &Mechanism{Type: m.Type, Params: extra.Inner}
}

// ECOrderBits returns the EC order bit length hint carried by ExtraParams,
// or zero.
func (m *Mechanism) ECOrderBits() int {
	if extra, ok := m.Params.(*ExtraParams); ok {
		return extra.ECOrderBits
	}
	return 0
}

// Validate checks the supplied parameters against the family r declares for
// the mechanism. Unregistered and opaque mechanisms are left to the token.
func (m *Mechanism) Validate(r *symbol.Registry) error {
	declared, ok := r.ParamFamily(m.Type)
	if !ok || declared == symbol.FamilyOpaque {
		return nil
	}
	if got := m.Family(); got != declared {
		return fmt.Errorf("%w: %s takes %s parameters, got %s",
			ErrParamMismatch, r.Format(symbol.Mechanism, m.Type), declared, got)
	}
	return nil
}

// ValidateMessage checks the parameters of one message in a message-based
// operation. AEAD mechanisms take per-message AEAD message parameters; other
// registered mechanisms take none.
func (m *Mechanism) ValidateMessage(r *symbol.Registry, params Params) error {
	declared, ok := r.ParamFamily(m.Type)
	if !ok || declared == symbol.FamilyOpaque {
		return nil
	}
	want := symbol.FamilyNone
	if declared == symbol.FamilyAEAD {
		want = symbol.FamilyAEADMessage
	}
	got := symbol.FamilyNone
	if params != nil {
		got = params.Family()
	}
	if got != want {
		return fmt.Errorf("%w: messages of %s take %s parameters, got %s",
			ErrParamMismatch, r.Format(symbol.Mechanism, m.Type), want, got)
	}
	return nil
}

// ValidateMessageInit checks a mechanism used to start a message-based
// operation. Parameters travel with each message, so registered mechanisms
// take none at init.
func (m *Mechanism) ValidateMessageInit(r *symbol.Registry) error {
	declared, ok := r.ParamFamily(m.Type)
	if !ok || declared == symbol.FamilyOpaque {
		return nil
	}
	if got := m.Family(); got != symbol.FamilyNone {
		return fmt.Errorf("%w: %s takes no parameters at message init, got %s",
			ErrParamMismatch, r.Format(symbol.Mechanism, m.Type), got)
	}
	return nil
}
