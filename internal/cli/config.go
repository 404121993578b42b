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
	"context"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-cryptoki/internal/config"
	"github.com/jeremyhahn/go-cryptoki/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoki/pkg/operation"
	"github.com/jeremyhahn/go-cryptoki/pkg/session"
	"github.com/jeremyhahn/go-cryptoki/pkg/softtoken"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage/file"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage/memory"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage/sqlite"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the configuration file
	ConfigFile string

	// OutputFormat controls output formatting (text, json)
	OutputFormat string

	// Verbose enables debug logging
	Verbose bool
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		OutputFormat: string(OutputFormatText),
	}
}

// tokenConn is an opened token provider and the slot p11ctl works in.
type tokenConn struct {
	provider token.Provider
	slot     uint64
	closers  []func() error
}

// Close releases the provider, then its storage.
func (c *tokenConn) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}

// openToken opens the token selected by the loaded configuration.
func (a *app) openToken() (*tokenConn, error) {
	switch a.config.Token.Type {
	case config.TokenSoft:
		return a.openSoftToken()
	case config.TokenPKCS11:
		provider, err := openLibrary(a.config.Token.Library, a.logger)
		if err != nil {
			return nil, err
		}
		conn := &tokenConn{provider: provider, closers: []func() error{provider.Close}}
		conn.slot, err = resolveSlot(provider, a.config.Token.Slot, a.config.Token.TokenLabel)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
	return nil, fmt.Errorf("unknown token type: %s", a.config.Token.Type)
}

func (a *app) openSoftToken() (*tokenConn, error) {
	soft := a.config.Soft

	var store storage.Backend
	switch soft.Store {
	case config.StoreMemory:
		store = memory.New()
	case config.StoreFile:
		fs, err := file.New(soft.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		store = fs
	case config.StoreSQLite:
		db, err := sqlite.New(soft.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		store = db
	default:
		return nil, fmt.Errorf("unknown soft token store: %s", soft.Store)
	}

	tok, err := softtoken.New(&softtoken.Config{
		Storage: store,
		Label:   soft.Label,
		PIN:     soft.PIN,
		SOPIN:   soft.SOPIN,
		Logger:  a.logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &tokenConn{
		provider: tok,
		slot:     softtoken.SlotID,
		closers:  []func() error{store.Close, tok.Close},
	}, nil
}

// resolveSlot returns the slot holding the token labelled label, or slot
// when no label is given.
func resolveSlot(provider token.Provider, slot uint64, label string) (uint64, error) {
	if label == "" {
		return slot, nil
	}
	slots, err := provider.Slots()
	if err != nil {
		return 0, fmt.Errorf("failed to list slots: %w", err)
	}
	for _, s := range slots {
		if s.TokenLabel == label {
			return s.ID, nil
		}
	}
	return 0, fmt.Errorf("no token labelled %q", label)
}

// loginPIN is the PIN sessions log in with. A software token falls back to
// the PIN it was initialized with.
func (a *app) loginPIN() string {
	if a.config.Token.PIN != "" {
		return a.config.Token.PIN
	}
	if a.config.Token.Type == config.TokenSoft {
		return a.config.Soft.PIN
	}
	return ""
}

func (a *app) poolConfig(slot uint64, size int) session.Config {
	return session.Config{
		Slot:           slot,
		Size:           size,
		ReadWrite:      true,
		PIN:            a.loginPIN(),
		UserType:       a.config.Token.UserType,
		AcquireTimeout: a.config.Pool.AcquireTimeout,
		RatePerSecond:  a.config.Pool.RatePerSecond,
		Burst:          a.config.Pool.Burst,
	}
}

func (a *app) newPool(conn *tokenConn, size int) (*session.Pool, error) {
	return session.NewPool(conn.provider, a.poolConfig(conn.slot, size),
		session.WithLogger(a.logger),
		session.WithEngineOptions(operation.WithObserver(metrics.Observer{})))
}

// withSession opens the token, leases one logged-in session and runs fn.
func (a *app) withSession(ctx context.Context, fn func(*session.Lease) error) error {
	conn, err := a.openToken()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	pool, err := a.newPool(conn, 1)
	if err != nil {
		return err
	}
	defer func() { _ = pool.Close() }()

	return pool.Do(ctx, fn)
}
