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

// Package object is the typed layer over a session's object calls: it
// converts templates to and from token attribute slots and validates
// mechanisms before key management calls reach the token.
package object

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

var (
	// ErrNotFound is returned by FindOne when nothing matches.
	ErrNotFound = errors.New("object: no matching object")

	// ErrAmbiguous is returned by FindOne when more than one object matches.
	ErrAmbiguous = errors.New("object: more than one matching object")

	// ErrNilTemplate is returned when a required template is missing.
	ErrNilTemplate = errors.New("object: nil template")
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithRegistry sets the registry used to validate mechanisms.
func WithRegistry(r *symbol.Registry) Option {
	return func(m *Manager) { m.registry = r }
}

// Manager manages the objects visible to one session.
type Manager struct {
	session  token.Session
	registry *symbol.Registry
	logger   *logging.Logger
}

// NewManager returns a manager over session.
func NewManager(session token.Session, opts ...Option) *Manager {
	m := &Manager{session: session}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = symbol.Default()
	}
	if m.logger == nil {
		m.logger = logging.DefaultLogger()
	}
	return m
}

// Create creates an object from t.
func (m *Manager) Create(t *attribute.Template) (token.ObjectHandle, error) {
	raw, err := rawOf(t)
	if err != nil {
		return 0, err
	}
	h, err := m.session.CreateObject(raw)
	if err != nil {
		return 0, err
	}
	m.logger.Debug("object created", "handle", uint64(h))
	return h, nil
}

// Find returns up to max objects matching filter. A nil or empty filter
// matches every object; max <= 0 means no limit.
func (m *Manager) Find(filter *attribute.Template, max int) ([]token.ObjectHandle, error) {
	var raw []attribute.Raw
	if filter != nil {
		var err error
		if raw, err = filter.Raw(); err != nil {
			return nil, err
		}
	}
	return m.session.FindObjects(raw, max)
}

// FindOne returns the single object matching filter.
func (m *Manager) FindOne(filter *attribute.Template) (token.ObjectHandle, error) {
	handles, err := m.Find(filter, 2)
	if err != nil {
		return 0, err
	}
	switch len(handles) {
	case 0:
		return 0, fmt.Errorf("%w: %s", ErrNotFound, filter)
	case 1:
		return handles[0], nil
	}
	return 0, fmt.Errorf("%w: %s", ErrAmbiguous, filter)
}

// Fetch reads the given attributes of obj. Attributes the token refuses to
// reveal come back present and sensitive; attributes the object lacks come
// back not present. Other token failures are returned as is.
func (m *Manager) Fetch(obj token.ObjectHandle, codes ...uint64) (*attribute.Template, error) {
	for _, code := range codes {
		if _, err := attribute.Classify(code); err != nil {
			return nil, err
		}
	}
	if len(codes) == 0 {
		return attribute.NewTemplate(), nil
	}

	raws, err := m.session.GetAttributeValue(obj, codes)
	if err == nil {
		return attribute.FromRawTemplate(raws)
	}
	if !partial(err) {
		return nil, err
	}

	m.logger.Debug("bulk attribute read incomplete, reading one at a time",
		"handle", uint64(obj), "error", err.Error())
	raws = make([]attribute.Raw, 0, len(codes))
	for _, code := range codes {
		r, err := m.fetchOne(obj, code)
		if err != nil {
			return nil, err
		}
		raws = append(raws, r)
	}
	return attribute.FromRawTemplate(raws)
}

// FetchValue reads a single attribute of obj.
func (m *Manager) FetchValue(obj token.ObjectHandle, code uint64) (*attribute.Value, error) {
	t, err := m.Fetch(obj, code)
	if err != nil {
		return nil, err
	}
	return t.Get(code)
}

func (m *Manager) fetchOne(obj token.ObjectHandle, code uint64) (attribute.Raw, error) {
	raws, err := m.session.GetAttributeValue(obj, []uint64{code})
	switch {
	case err == nil && len(raws) == 1:
		return raws[0], nil
	case err == nil:
		return attribute.Raw{Type: code, Status: attribute.StatusUnavailable}, nil
	case token.IsCode(err, ck.CKR_ATTRIBUTE_SENSITIVE):
		return attribute.Raw{Type: code, Status: attribute.StatusSensitive}, nil
	case token.IsCode(err, ck.CKR_ATTRIBUTE_TYPE_INVALID):
		return attribute.Raw{Type: code, Status: attribute.StatusTypeInvalid}, nil
	}
	return attribute.Raw{}, err
}

func partial(err error) bool {
	return token.IsCode(err, ck.CKR_ATTRIBUTE_SENSITIVE) || token.IsCode(err, ck.CKR_ATTRIBUTE_TYPE_INVALID)
}

// Destroy destroys obj.
func (m *Manager) Destroy(obj token.ObjectHandle) error {
	return m.session.DestroyObject(obj)
}

// GenerateKey generates a secret key.
func (m *Manager) GenerateKey(mech *mechanism.Mechanism, t *attribute.Template) (token.ObjectHandle, error) {
	if err := m.validate(mech); err != nil {
		return 0, err
	}
	raw, err := rawOf(t)
	if err != nil {
		return 0, err
	}
	h, err := m.session.GenerateKey(mech.Inner(), raw)
	if err != nil {
		return 0, err
	}
	m.logger.Debug("key generated", "mechanism", mech.Name(), "handle", uint64(h))
	return h, nil
}

// GenerateKeyPair generates a key pair and returns the public and private
// key handles.
func (m *Manager) GenerateKeyPair(mech *mechanism.Mechanism, kp *attribute.KeyPairTemplate) (token.ObjectHandle, token.ObjectHandle, error) {
	if err := m.validate(mech); err != nil {
		return 0, 0, err
	}
	if kp == nil {
		return 0, 0, ErrNilTemplate
	}
	pub, err := rawOf(kp.Public)
	if err != nil {
		return 0, 0, err
	}
	priv, err := rawOf(kp.Private)
	if err != nil {
		return 0, 0, err
	}
	hPub, hPriv, err := m.session.GenerateKeyPair(mech.Inner(), pub, priv)
	if err != nil {
		return 0, 0, err
	}
	m.logger.Debug("key pair generated", "mechanism", mech.Name(),
		"public", uint64(hPub), "private", uint64(hPriv))
	return hPub, hPriv, nil
}

// Wrap wraps key with wrappingKey and returns the wrapped bytes.
func (m *Manager) Wrap(mech *mechanism.Mechanism, wrappingKey, key token.ObjectHandle) ([]byte, error) {
	if err := m.validate(mech); err != nil {
		return nil, err
	}
	inner := mech.Inner()
	n, err := m.session.WrapKey(inner, wrappingKey, key, nil)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	n, err = m.session.WrapKey(inner, wrappingKey, key, out)
	if errors.Is(err, token.ErrBufferTooSmall) {
		out = make([]byte, n)
		n, err = m.session.WrapKey(inner, wrappingKey, key, out)
	}
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// Unwrap unwraps wrapped with unwrappingKey into a new object described by t.
func (m *Manager) Unwrap(mech *mechanism.Mechanism, unwrappingKey token.ObjectHandle, wrapped []byte, t *attribute.Template) (token.ObjectHandle, error) {
	if err := m.validate(mech); err != nil {
		return 0, err
	}
	raw, err := rawOf(t)
	if err != nil {
		return 0, err
	}
	return m.session.UnwrapKey(mech.Inner(), unwrappingKey, wrapped, raw)
}

// Derive derives a new key from baseKey.
func (m *Manager) Derive(mech *mechanism.Mechanism, baseKey token.ObjectHandle, t *attribute.Template) (token.ObjectHandle, error) {
	if err := m.validate(mech); err != nil {
		return 0, err
	}
	raw, err := rawOf(t)
	if err != nil {
		return 0, err
	}
	return m.session.DeriveKey(mech.Inner(), baseKey, raw)
}

func (m *Manager) validate(mech *mechanism.Mechanism) error {
	if mech == nil {
		return fmt.Errorf("%w: nil mechanism", mechanism.ErrParamMismatch)
	}
	return mech.Validate(m.registry)
}

func rawOf(t *attribute.Template) ([]attribute.Raw, error) {
	if t == nil {
		return nil, ErrNilTemplate
	}
	return t.Raw()
}
