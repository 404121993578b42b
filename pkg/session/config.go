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

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
)

var (
	// ErrPoolClosed is returned by Acquire after Close.
	ErrPoolClosed = errors.New("session: pool closed")

	// ErrPoolTimeout is returned when no session became available before
	// the acquire timeout or the context deadline.
	ErrPoolTimeout = errors.New("session: timed out waiting for a session")

	// ErrInvalidConfig is returned by NewPool for an unusable Config.
	ErrInvalidConfig = errors.New("session: invalid pool config")
)

const (
	// UserTypeUser logs pooled sessions in as the normal user.
	UserTypeUser = "user"

	// UserTypeSO logs pooled sessions in as the security officer.
	UserTypeSO = "so"
)

// Config describes the sessions a Pool keeps.
type Config struct {
	// Slot is the slot every session is opened on.
	Slot uint64

	// Size bounds the number of open sessions. Defaults to 4.
	Size int

	// ReadWrite opens read-write sessions.
	ReadWrite bool

	// PIN logs each new session in when set.
	PIN string

	// UserType is UserTypeUser (the default) or UserTypeSO.
	UserType string

	// AcquireTimeout bounds the wait in Acquire. Zero waits until the
	// context is done.
	AcquireTimeout time.Duration

	// RatePerSecond limits acquisitions per slot when positive.
	RatePerSecond float64
	Burst         int
}

// Validate applies defaults and checks the config.
func (c *Config) Validate() error {
	if c.Size == 0 {
		c.Size = 4
	}
	if c.UserType == "" {
		c.UserType = UserTypeUser
	}
	switch {
	case c.Size < 0:
		return fmt.Errorf("%w: size %d", ErrInvalidConfig, c.Size)
	case c.UserType != UserTypeUser && c.UserType != UserTypeSO:
		return fmt.Errorf("%w: user type %q", ErrInvalidConfig, c.UserType)
	case c.UserType == UserTypeSO && c.PIN != "" && !c.ReadWrite:
		return fmt.Errorf("%w: security officer sessions must be read-write", ErrInvalidConfig)
	case c.AcquireTimeout < 0 || c.RatePerSecond < 0 || c.Burst < 0:
		return fmt.Errorf("%w: negative timeout or rate", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) ckUserType() uint64 {
	if c.UserType == UserTypeSO {
		return ck.CKU_SO
	}
	return ck.CKU_USER
}
