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

package softtoken

import (
	"fmt"

	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage"
)

const (
	// DefaultLabel is the token label used when none is configured.
	DefaultLabel = "go-cryptoki"

	// SlotID is the only slot the software token exposes.
	SlotID uint64 = 0

	maxLabelLen = 32
)

// Config contains configuration for the software token.
type Config struct {
	// Storage persists token objects and the token record. Session
	// objects never reach it.
	Storage storage.Backend

	// Label is applied when the storage holds no token record yet.
	Label string

	// PIN and SOPIN initialize the user and security officer PINs of a new
	// token. They are ignored when the storage already holds a token.
	PIN   string
	SOPIN string

	// Logger defaults to logging.DefaultLogger().
	Logger *logging.Logger
}

// Validate checks if the Config is valid.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.Storage == nil {
		return fmt.Errorf("Storage is required")
	}
	if len(c.Label) > maxLabelLen {
		return fmt.Errorf("label exceeds %d bytes", maxLabelLen)
	}
	return nil
}
