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

//go:build !pkcs11

package cli

import (
	"errors"

	"github.com/jeremyhahn/go-cryptoki/internal/config"
	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

var errNoPKCS11 = errors.New("p11ctl was built without PKCS#11 library support (rebuild with -tags pkcs11)")

func openLibrary(string, *logging.Logger) (token.Provider, error) {
	return nil, errNoPKCS11
}

func openSigners(*config.Config, *logging.Logger) (signerSet, error) {
	return nil, errNoPKCS11
}
