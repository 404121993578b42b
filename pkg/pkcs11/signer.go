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
	"crypto"
	"crypto/elliptic"
	"errors"
	"fmt"
	"sync"

	"github.com/ThalesGroup/crypto11"

	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
)

// SignerConfig selects the token a Signers context opens. Exactly one of
// TokenLabel and Slot must be set.
type SignerConfig struct {
	Library    string
	TokenLabel string
	Slot       *int
	PIN        string

	Logger *logging.Logger
}

func (c *SignerConfig) cacheKey() string {
	if c.Slot != nil {
		return fmt.Sprintf("%s#slot=%d", c.Library, *c.Slot)
	}
	return c.Library + "#label=" + c.TokenLabel
}

// contextRef counts the Signers sharing one crypto11 context; the library
// refuses a second C_Initialize from the same process.
type contextRef struct {
	ctx      *crypto11.Context
	refCount int
}

var (
	contextCache   = make(map[string]*contextRef)
	contextCacheMu sync.Mutex
)

// Signers hands out crypto.Signer values for key pairs on one token.
type Signers struct {
	key    string
	ctx    *crypto11.Context
	logger *logging.Logger
	once   sync.Once
}

// OpenSigners configures crypto11 for the token, reusing a context another
// Signers already holds for it.
func OpenSigners(config *SignerConfig) (*Signers, error) {
	if config == nil || config.Library == "" {
		return nil, fmt.Errorf("%w: no library path", ErrLoadLibrary)
	}
	if (config.TokenLabel == "") == (config.Slot == nil) {
		return nil, errors.New("pkcs11: set exactly one of token label and slot")
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	key := config.cacheKey()

	contextCacheMu.Lock()
	defer contextCacheMu.Unlock()
	if ref, ok := contextCache[key]; ok {
		ref.refCount++
		return &Signers{key: key, ctx: ref.ctx, logger: logger}, nil
	}
	ctx, err := crypto11.Configure(&crypto11.Config{
		Path:       config.Library,
		TokenLabel: config.TokenLabel,
		SlotNumber: config.Slot,
		Pin:        config.PIN,
	})
	if err != nil {
		return nil, fmt.Errorf("pkcs11: configure signer context: %w", err)
	}
	contextCache[key] = &contextRef{ctx: ctx, refCount: 1}
	logger.Debug("signer context opened", "library", config.Library)
	return &Signers{key: key, ctx: ctx, logger: logger}, nil
}

// FindSigner returns the key pair with the given CKA_ID and CKA_LABEL.
// Either may be nil, but not both.
func (s *Signers) FindSigner(id, label []byte) (crypto.Signer, error) {
	signer, err := s.ctx.FindKeyPair(id, label)
	if err != nil {
		return nil, fmt.Errorf("pkcs11: find key pair: %w", err)
	}
	if signer == nil {
		return nil, fmt.Errorf("%w: id %x label %q", ErrKeyNotFound, id, label)
	}
	return signer, nil
}

// GenerateRSA creates an RSA key pair of the given size on the token.
func (s *Signers) GenerateRSA(id, label []byte, bits int) (crypto.Signer, error) {
	signer, err := s.ctx.GenerateRSAKeyPairWithLabel(id, label, bits)
	if err != nil {
		return nil, fmt.Errorf("pkcs11: generate RSA-%d key pair: %w", bits, err)
	}
	s.logger.Debug("RSA key pair generated", "id", fmt.Sprintf("%x", id), "bits", bits)
	return signer, nil
}

// GenerateECDSA creates an EC key pair on curve.
func (s *Signers) GenerateECDSA(id, label []byte, curve elliptic.Curve) (crypto.Signer, error) {
	signer, err := s.ctx.GenerateECDSAKeyPairWithLabel(id, label, curve)
	if err != nil {
		return nil, fmt.Errorf("pkcs11: generate %s key pair: %w", curve.Params().Name, err)
	}
	s.logger.Debug("EC key pair generated", "id", fmt.Sprintf("%x", id), "curve", curve.Params().Name)
	return signer, nil
}

// Close releases the context once the last Signers for the token closes.
func (s *Signers) Close() error {
	var err error
	s.once.Do(func() {
		contextCacheMu.Lock()
		defer contextCacheMu.Unlock()
		ref, ok := contextCache[s.key]
		if !ok {
			return
		}
		if ref.refCount--; ref.refCount > 0 {
			return
		}
		delete(contextCache, s.key)
		err = ref.ctx.Close()
	})
	return err
}
