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

// Package softtoken is an in-process PKCS#11 token. It implements
// token.Provider and token.Session on the Go standard library's crypto
// packages and golang.org/x/crypto, with token objects persisted through a
// storage.Backend.
//
// The token exposes a single slot. It is used as the default token of
// p11ctl and as the token behind the package tests of the layers above it,
// so it follows the PKCS#11 rules those layers rely on: one active
// operation per session, exact output length probing, login before private
// objects become visible.
package softtoken

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/jeremyhahn/go-cryptoki/internal/wire"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

const (
	recordVersion = 1

	saltSize = 16

	// Argon2id parameters for PIN hashes.
	pinTime    = 1
	pinMemory  = 16 * 1024
	pinThreads = 1
	pinKeyLen  = 32

	noUser = ^uint64(0)
)

// Token is the software token and the module that hosts it.
type Token struct {
	mu     sync.RWMutex
	store  storage.Backend
	logger *logging.Logger
	info   tokenInfo

	objects    map[token.ObjectHandle]*object
	nextObject uint64

	sessions    map[token.SessionHandle]*Session
	nextSession uint64

	user   uint64
	closed bool
}

var _ token.Provider = (*Token)(nil)

type tokenInfo struct {
	label   string
	serial  string
	salt    []byte
	userPIN []byte
	soPIN   []byte
}

// New opens the token held in config.Storage, initializing a new token
// record when the storage has none.
func New(config *Config) (*Token, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("softtoken: invalid config: %w", err)
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	t := &Token{
		store:       config.Storage,
		logger:      logger.With("component", "softtoken"),
		objects:     make(map[token.ObjectHandle]*object),
		nextObject:  1,
		sessions:    make(map[token.SessionHandle]*Session),
		nextSession: 1,
		user:        noUser,
	}
	if err := t.loadInfo(config); err != nil {
		return nil, err
	}
	if err := t.loadObjects(); err != nil {
		return nil, err
	}
	t.logger.Debugf("opened token %q with %d persistent objects", t.info.label, len(t.objects))
	return t, nil
}

func (t *Token) loadInfo(config *Config) error {
	data, err := t.store.Get(storage.TokenInfoKey)
	if err == nil {
		info, err := unmarshalInfo(data)
		if err != nil {
			return fmt.Errorf("softtoken: token record: %w", err)
		}
		t.info = info
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("softtoken: read token record: %w", err)
	}

	label := config.Label
	if label == "" {
		label = DefaultLabel
	}
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("softtoken: generate salt: %w", err)
	}
	info := tokenInfo{
		label:  label,
		serial: strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		salt:   salt,
	}
	if config.PIN != "" {
		info.userPIN = hashPIN(config.PIN, salt)
	}
	if config.SOPIN != "" {
		info.soPIN = hashPIN(config.SOPIN, salt)
	}
	if err := t.store.Put(storage.TokenInfoKey, marshalInfo(info), storage.DefaultOptions()); err != nil {
		return fmt.Errorf("softtoken: write token record: %w", err)
	}
	t.info = info
	t.logger.Infof("initialized token %q (serial %s)", info.label, info.serial)
	return nil
}

func (t *Token) loadObjects() error {
	handles, err := storage.ListObjects(t.store)
	if err != nil {
		return fmt.Errorf("softtoken: list objects: %w", err)
	}
	for _, h := range handles {
		data, err := t.store.Get(storage.ObjectPath(h))
		if err != nil {
			return fmt.Errorf("softtoken: read object %d: %w", h, err)
		}
		attrs, err := unmarshalObject(data)
		if err != nil {
			return fmt.Errorf("softtoken: object %d: %w", h, err)
		}
		t.objects[token.ObjectHandle(h)] = &object{handle: token.ObjectHandle(h), attrs: attrs}
		t.nextObject = max(t.nextObject, h+1)
	}
	return nil
}

// Label returns the token label.
func (t *Token) Label() string {
	return t.info.label
}

// Slots returns the single software slot.
func (t *Token) Slots() ([]token.SlotInfo, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return nil, token.NewError("C_GetSlotList", ck.CKR_CRYPTOKI_NOT_INITIALIZED)
	}
	return []token.SlotInfo{{
		ID:          SlotID,
		Description: "go-cryptoki software slot",
		TokenLabel:  t.info.label,
		Model:       "softtoken",
		Serial:      t.info.serial,
	}}, nil
}

// Mechanisms lists the supported mechanisms in code order.
func (t *Token) Mechanisms(slot uint64) ([]uint64, error) {
	if slot != SlotID {
		return nil, token.NewError("C_GetMechanismList", ck.CKR_SLOT_ID_INVALID)
	}
	codes := make([]uint64, 0, len(mechanisms))
	for code := range mechanisms {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes, nil
}

func (t *Token) MechanismInfo(slot uint64, mech uint64) (token.MechanismInfo, error) {
	if slot != SlotID {
		return token.MechanismInfo{}, token.NewError("C_GetMechanismInfo", ck.CKR_SLOT_ID_INVALID)
	}
	info, ok := mechanisms[mech]
	if !ok {
		return token.MechanismInfo{}, token.NewError("C_GetMechanismInfo", ck.CKR_MECHANISM_INVALID)
	}
	return info, nil
}

// OpenSession opens a session on the software slot.
func (t *Token) OpenSession(slot uint64, readWrite bool) (token.Session, error) {
	if slot != SlotID {
		return nil, token.NewError("C_OpenSession", ck.CKR_SLOT_ID_INVALID)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, token.NewError("C_OpenSession", ck.CKR_CRYPTOKI_NOT_INITIALIZED)
	}
	if !readWrite && t.user == ck.CKU_SO {
		return nil, token.NewError("C_OpenSession", ck.CKR_SESSION_READ_WRITE_SO_EXISTS)
	}
	s := &Session{
		tok:       t,
		handle:    token.SessionHandle(t.nextSession),
		readWrite: readWrite,
		logger:    t.logger,
	}
	t.nextSession++
	t.sessions[s.handle] = s
	return s, nil
}

// Close closes every open session. The storage backend stays open; it
// belongs to the caller.
func (t *Token) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	for h := range t.sessions {
		t.dropSessionLocked(h)
	}
	t.closed = true
	t.user = noUser
	return nil
}

func (t *Token) login(s *Session, userType uint64, pin string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var want []byte
	switch userType {
	case ck.CKU_USER:
		want = t.info.userPIN
	case ck.CKU_SO:
		want = t.info.soPIN
		for _, other := range t.sessions {
			if !other.readWrite {
				return ckr(ck.CKR_SESSION_READ_ONLY_EXISTS)
			}
		}
	default:
		return ckr(ck.CKR_USER_TYPE_INVALID)
	}
	switch {
	case t.user == userType:
		return ckr(ck.CKR_USER_ALREADY_LOGGED_IN)
	case t.user != noUser:
		return ckr(ck.CKR_USER_ANOTHER_ALREADY_LOGGED_IN)
	case want == nil:
		return ckr(ck.CKR_USER_PIN_NOT_INITIALIZED)
	}
	if subtle.ConstantTimeCompare(hashPIN(pin, t.info.salt), want) != 1 {
		t.logger.Warn("login failed", "session", uint64(s.handle), "user_type", userType)
		return ckr(ck.CKR_PIN_INCORRECT)
	}
	t.user = userType
	return nil
}

func (t *Token) logout() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.user == noUser {
		return ckr(ck.CKR_USER_NOT_LOGGED_IN)
	}
	t.user = noUser
	return nil
}

func (t *Token) userLoggedIn() bool {
	return t.user == ck.CKU_USER
}

func (t *Token) closeSession(h token.SessionHandle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[h]; !ok {
		return ckr(ck.CKR_SESSION_HANDLE_INVALID)
	}
	t.dropSessionLocked(h)
	if len(t.sessions) == 0 {
		t.user = noUser
	}
	return nil
}

// dropSessionLocked forgets the session and destroys its session objects.
func (t *Token) dropSessionLocked(h token.SessionHandle) {
	if s, ok := t.sessions[h]; ok {
		s.closed.Store(true)
	}
	delete(t.sessions, h)
	for oh, o := range t.objects {
		if o.session == h {
			delete(t.objects, oh)
		}
	}
}

func hashPIN(pin string, salt []byte) []byte {
	return argon2.IDKey([]byte(pin), salt, pinTime, pinMemory, pinThreads, pinKeyLen)
}

func marshalInfo(info tokenInfo) []byte {
	b := wire.NewBuffer(nil)
	b.AddByte(recordVersion)
	b.AddByteArray([]byte(info.label))
	b.AddByteArray([]byte(info.serial))
	b.AddByteArray(info.salt)
	b.AddOptionalByteArray(info.userPIN)
	b.AddOptionalByteArray(info.soPIN)
	return b.Bytes()
}

func unmarshalInfo(data []byte) (tokenInfo, error) {
	r := wire.NewReader(data)
	if v := r.Byte(); r.Err() == nil && v != recordVersion {
		return tokenInfo{}, fmt.Errorf("%w: record version %d", storage.ErrInvalidData, v)
	}
	info := tokenInfo{
		label:  string(r.ByteArray()),
		serial: string(r.ByteArray()),
		salt:   r.ByteArray(),
	}
	info.userPIN = r.OptionalByteArray()
	info.soPIN = r.OptionalByteArray()
	if err := r.Finish(); err != nil {
		return tokenInfo{}, fmt.Errorf("%w: %v", storage.ErrInvalidData, err)
	}
	return info, nil
}

// ckr returns a token error without the C function name; Session fills it
// in when the error leaves the package.
func ckr(code uint64) *token.Error {
	return &token.Error{Code: code}
}
