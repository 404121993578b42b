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
	"errors"
	"strings"
	"sync"

	"github.com/miekg/pkcs11"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// Provider is an initialized PKCS#11 library.
type Provider struct {
	mod    module
	logger *logging.Logger

	mu     sync.Mutex
	closed bool
}

var _ token.Provider = (*Provider)(nil)

func newProvider(mod module, logger *logging.Logger) (*Provider, error) {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	if err := mod.Initialize(); err != nil {
		if !errors.Is(err, pkcs11.Error(pkcs11.CKR_CRYPTOKI_ALREADY_INITIALIZED)) {
			return nil, convert("C_Initialize", err)
		}
		logger.Debug("pkcs11 library already initialized")
	}
	return &Provider{mod: mod, logger: logger}, nil
}

// Slots lists the slots holding a token.
func (p *Provider) Slots() ([]token.SlotInfo, error) {
	ids, err := p.mod.GetSlotList(true)
	if err != nil {
		return nil, p.done("C_GetSlotList", err)
	}
	slots := make([]token.SlotInfo, 0, len(ids))
	for _, id := range ids {
		si, err := p.mod.GetSlotInfo(id)
		if err != nil {
			return nil, p.done("C_GetSlotInfo", err)
		}
		ti, err := p.mod.GetTokenInfo(id)
		if err != nil {
			return nil, p.done("C_GetTokenInfo", err)
		}
		slots = append(slots, token.SlotInfo{
			ID:          uint64(id),
			Description: trim(si.SlotDescription),
			TokenLabel:  trim(ti.Label),
			Model:       trim(ti.Model),
			Serial:      trim(ti.SerialNumber),
		})
	}
	return slots, p.done("C_GetSlotList", nil)
}

// Mechanisms lists the mechanism codes a slot's token supports.
func (p *Provider) Mechanisms(slot uint64) ([]uint64, error) {
	list, err := p.mod.GetMechanismList(uint(slot))
	if err != nil {
		return nil, p.done("C_GetMechanismList", err)
	}
	codes := make([]uint64, len(list))
	for i, m := range list {
		codes[i] = uint64(m.Mechanism)
	}
	return codes, p.done("C_GetMechanismList", nil)
}

func (p *Provider) MechanismInfo(slot uint64, mech uint64) (token.MechanismInfo, error) {
	info, err := p.mod.GetMechanismInfo(uint(slot), []*pkcs11.Mechanism{pkcs11.NewMechanism(uint(mech), nil)})
	if err != nil {
		return token.MechanismInfo{}, p.done("C_GetMechanismInfo", err)
	}
	return token.MechanismInfo{
		MinKeySize: uint64(info.MinKeySize),
		MaxKeySize: uint64(info.MaxKeySize),
		Flags:      uint64(info.Flags),
	}, p.done("C_GetMechanismInfo", nil)
}

// OpenSession opens a serial session on slot.
func (p *Provider) OpenSession(slot uint64, readWrite bool) (token.Session, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, token.NewError("C_OpenSession", ck.CKR_CRYPTOKI_NOT_INITIALIZED)
	}
	flags := uint(pkcs11.CKF_SERIAL_SESSION)
	if readWrite {
		flags |= pkcs11.CKF_RW_SESSION
	}
	h, err := p.mod.OpenSession(uint(slot), flags)
	if err != nil {
		return nil, p.done("C_OpenSession", err)
	}
	p.logger.Debug("session opened", "slot", slot, "handle", uint(h), "rw", readWrite)
	return &Session{
		mod:    p.mod,
		handle: h,
		logger: p.logger.With("session", uint(h)),
	}, p.done("C_OpenSession", nil)
}

// Close finalizes the library and unloads it.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.mod.Finalize()
	p.mod.Destroy()
	return p.done("C_Finalize", err)
}

func (p *Provider) done(call string, err error) error {
	err = convert(call, err)
	metrics.RecordTokenCall(call, err)
	if err != nil {
		p.logger.Debug("token call failed", "call", call, "error", err.Error())
	}
	return err
}

// convert turns a return value reported by the binding into a *token.Error
// for call. Other errors pass through.
func convert(call string, err error) error {
	var rv pkcs11.Error
	if errors.As(err, &rv) {
		return token.NewError(call, uint64(rv))
	}
	return err
}

// trim strips the blank padding of fixed-width token strings.
func trim(s string) string {
	return strings.TrimRight(s, " \x00")
}
