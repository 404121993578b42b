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

package cli

import (
	"github.com/jeremyhahn/go-cryptoki/internal/config"
	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/pkcs11"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

func openLibrary(library string, logger *logging.Logger) (token.Provider, error) {
	p, err := pkcs11.Open(&pkcs11.Config{Library: library, Logger: logger})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func openSigners(cfg *config.Config, logger *logging.Logger) (signerSet, error) {
	sc := &pkcs11.SignerConfig{
		Library:    cfg.Token.Library,
		TokenLabel: cfg.Token.TokenLabel,
		PIN:        cfg.Token.PIN,
		Logger:     logger,
	}
	if sc.TokenLabel == "" {
		slot := int(cfg.Token.Slot)
		sc.Slot = &slot
	}
	s, err := pkcs11.OpenSigners(sc)
	if err != nil {
		return nil, err
	}
	return s, nil
}
