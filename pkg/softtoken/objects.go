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
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-cryptoki/internal/wire"
	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// object is a stored PKCS#11 object. Token objects have a zero session.
type object struct {
	handle  token.ObjectHandle
	attrs   *attribute.Template
	session token.SessionHandle
}

// secretAttrs are never revealed for sensitive or unextractable keys.
var secretAttrs = map[uint64]bool{
	ck.CKA_VALUE:            true,
	ck.CKA_PRIVATE_EXPONENT: true,
	ck.CKA_PRIME_1:          true,
	ck.CKA_PRIME_2:          true,
	ck.CKA_EXPONENT_1:       true,
	ck.CKA_EXPONENT_2:       true,
	ck.CKA_COEFFICIENT:      true,
}

// readOnlyAfterCreate may not be supplied by a caller.
var readOnlyAfterCreate = []uint64{
	ck.CKA_UNIQUE_ID,
	ck.CKA_LOCAL,
	ck.CKA_ALWAYS_SENSITIVE,
	ck.CKA_NEVER_EXTRACTABLE,
	ck.CKA_KEY_GEN_MECHANISM,
}

func (o *object) flag(code uint64) bool {
	v, err := o.attrs.Bool(code)
	return err == nil && v
}

func (o *object) ulong(code uint64) uint64 {
	v, err := o.attrs.Ulong(code)
	if err != nil {
		return ck.CK_UNAVAILABLE_INFORMATION
	}
	return v
}

func (o *object) bytes(code uint64) []byte {
	v, err := o.attrs.Bytes(code)
	if err != nil {
		return nil
	}
	return v
}

func (o *object) class() uint64   { return o.ulong(ck.CKA_CLASS) }
func (o *object) keyType() uint64 { return o.ulong(ck.CKA_KEY_TYPE) }
func (o *object) isToken() bool   { return o.flag(ck.CKA_TOKEN) }
func (o *object) isPrivate() bool { return o.flag(ck.CKA_PRIVATE) }

// hidden reports whether attribute code must be reported as sensitive.
func (o *object) hidden(code uint64) bool {
	if !secretAttrs[code] {
		return false
	}
	switch o.class() {
	case ck.CKO_SECRET_KEY, ck.CKO_PRIVATE_KEY:
	default:
		return false
	}
	return o.flag(ck.CKA_SENSITIVE) || !o.flag(ck.CKA_EXTRACTABLE)
}

// read returns the slot for one attribute as GetAttributeValue reports it.
func (o *object) read(code uint64) attribute.Raw {
	if o.hidden(code) {
		return attribute.Raw{Type: code, Status: attribute.StatusSensitive}
	}
	v, err := o.attrs.Get(code)
	if err != nil || !v.Present() {
		return attribute.Raw{Type: code, Status: attribute.StatusTypeInvalid}
	}
	raw, err := v.Raw()
	if err != nil {
		return attribute.Raw{Type: code, Status: attribute.StatusUnavailable}
	}
	return raw
}

// applyDefaults fills in the attributes a caller may omit. Key usage flags
// default to the roles the key class can play.
func applyDefaults(attrs *attribute.Template) error {
	class, err := attrs.Class()
	if err != nil {
		return ckr(ck.CKR_TEMPLATE_INCOMPLETE)
	}
	set := func(code uint64, x any) {
		if !attrs.Has(code) {
			_ = attrs.Set(code, x)
		}
	}
	set(ck.CKA_TOKEN, false)
	set(ck.CKA_PRIVATE, false)
	set(ck.CKA_MODIFIABLE, true)
	set(ck.CKA_DESTROYABLE, true)
	set(ck.CKA_LABEL, "")
	_ = attrs.Set(ck.CKA_UNIQUE_ID, uuid.NewString())

	switch class {
	case ck.CKO_SECRET_KEY, ck.CKO_PRIVATE_KEY, ck.CKO_PUBLIC_KEY:
		if !attrs.Has(ck.CKA_KEY_TYPE) {
			return ckr(ck.CKR_TEMPLATE_INCOMPLETE)
		}
		set(ck.CKA_ID, []byte{})
		set(ck.CKA_DERIVE, false)
		set(ck.CKA_LOCAL, false)
	}
	switch class {
	case ck.CKO_SECRET_KEY:
		for _, code := range []uint64{ck.CKA_ENCRYPT, ck.CKA_DECRYPT, ck.CKA_SIGN, ck.CKA_VERIFY, ck.CKA_WRAP, ck.CKA_UNWRAP} {
			set(code, true)
		}
		set(ck.CKA_SENSITIVE, false)
		set(ck.CKA_EXTRACTABLE, true)
	case ck.CKO_PRIVATE_KEY:
		for _, code := range []uint64{ck.CKA_DECRYPT, ck.CKA_SIGN, ck.CKA_UNWRAP} {
			set(code, true)
		}
		set(ck.CKA_SENSITIVE, false)
		set(ck.CKA_EXTRACTABLE, true)
	case ck.CKO_PUBLIC_KEY:
		for _, code := range []uint64{ck.CKA_ENCRYPT, ck.CKA_VERIFY, ck.CKA_WRAP} {
			set(code, true)
		}
	}
	if class == ck.CKO_SECRET_KEY || class == ck.CKO_PRIVATE_KEY {
		sensitive, _ := attrs.Bool(ck.CKA_SENSITIVE)
		extractable, _ := attrs.Bool(ck.CKA_EXTRACTABLE)
		_ = attrs.Set(ck.CKA_ALWAYS_SENSITIVE, sensitive)
		_ = attrs.Set(ck.CKA_NEVER_EXTRACTABLE, !extractable)
	}
	return nil
}

// decodeTemplate turns a caller template into attributes, mapping codec
// failures to the return codes a token reports.
func decodeTemplate(raws []attribute.Raw) (*attribute.Template, error) {
	attrs := attribute.NewTemplate()
	for _, r := range raws {
		v, err := attribute.FromRaw(r)
		switch {
		case errors.Is(err, symbol.ErrUnknownAttributeType):
			return nil, ckr(ck.CKR_ATTRIBUTE_TYPE_INVALID)
		case err != nil:
			return nil, ckr(ck.CKR_ATTRIBUTE_VALUE_INVALID)
		}
		attrs.Put(v)
	}
	return attrs, nil
}

// newObjectTemplate decodes a creation template and rejects attributes only
// the token may set.
func newObjectTemplate(raws []attribute.Raw) (*attribute.Template, error) {
	attrs, err := decodeTemplate(raws)
	if err != nil {
		return nil, err
	}
	for _, code := range readOnlyAfterCreate {
		if attrs.Has(code) {
			return nil, ckr(ck.CKR_ATTRIBUTE_READ_ONLY)
		}
	}
	return attrs, nil
}

// addObject stores a new object created by s. The caller has applied
// defaults.
func (t *Token) addObject(s *Session, attrs *attribute.Template) (token.ObjectHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	o := &object{attrs: attrs}
	if err := t.checkCreateLocked(s, o); err != nil {
		return 0, err
	}
	o.handle = token.ObjectHandle(t.nextObject)
	t.nextObject++
	if !o.isToken() {
		o.session = s.handle
	} else if err := t.persistLocked(o); err != nil {
		return 0, err
	}
	t.objects[o.handle] = o
	return o.handle, nil
}

// addKeyPair stores both halves or neither.
func (t *Token) addKeyPair(s *Session, public, private *attribute.Template) (token.ObjectHandle, token.ObjectHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	objs := []*object{{attrs: public}, {attrs: private}}
	for _, o := range objs {
		if err := t.checkCreateLocked(s, o); err != nil {
			return 0, 0, err
		}
	}
	for _, o := range objs {
		o.handle = token.ObjectHandle(t.nextObject)
		t.nextObject++
		if !o.isToken() {
			o.session = s.handle
			continue
		}
		if err := t.persistLocked(o); err != nil {
			for _, done := range objs {
				if done.isToken() && done.handle != 0 && done.handle != o.handle {
					_ = t.store.Delete(storage.ObjectPath(uint64(done.handle)))
				}
			}
			return 0, 0, err
		}
	}
	for _, o := range objs {
		t.objects[o.handle] = o
	}
	return objs[0].handle, objs[1].handle, nil
}

func (t *Token) checkCreateLocked(s *Session, o *object) error {
	if t.closed {
		return ckr(ck.CKR_CRYPTOKI_NOT_INITIALIZED)
	}
	if o.isToken() && !s.readWrite {
		return ckr(ck.CKR_SESSION_READ_ONLY)
	}
	if o.isPrivate() && !t.userLoggedIn() {
		return ckr(ck.CKR_USER_NOT_LOGGED_IN)
	}
	return nil
}

func (t *Token) persistLocked(o *object) error {
	data, err := marshalObject(o.attrs)
	if err != nil {
		t.logger.Error(err, "object", uint64(o.handle))
		return ckr(ck.CKR_GENERAL_ERROR)
	}
	if err := t.store.Put(storage.ObjectPath(uint64(o.handle)), data, storage.DefaultOptions()); err != nil {
		t.logger.Error(fmt.Errorf("persist object %d: %w", o.handle, err))
		return ckr(ck.CKR_DEVICE_ERROR)
	}
	return nil
}

// lookup returns a visible object by handle, or a token error with the
// given code.
func (t *Token) lookup(h token.ObjectHandle, invalid uint64) (*object, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	o, ok := t.objects[h]
	if !ok || (o.isPrivate() && !t.userLoggedIn()) {
		return nil, ckr(invalid)
	}
	return o, nil
}

func (t *Token) destroyObject(s *Session, h token.ObjectHandle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.objects[h]
	if !ok || (o.isPrivate() && !t.userLoggedIn()) {
		return ckr(ck.CKR_OBJECT_HANDLE_INVALID)
	}
	if o.isToken() && !s.readWrite {
		return ckr(ck.CKR_SESSION_READ_ONLY)
	}
	if v, err := o.attrs.Bool(ck.CKA_DESTROYABLE); err == nil && !v {
		return ckr(ck.CKR_ACTION_PROHIBITED)
	}
	if o.isToken() {
		if err := t.store.Delete(storage.ObjectPath(uint64(h))); err != nil && !errors.Is(err, storage.ErrNotFound) {
			t.logger.Error(fmt.Errorf("delete object %d: %w", h, err))
			return ckr(ck.CKR_DEVICE_ERROR)
		}
	}
	delete(t.objects, h)
	return nil
}

func (t *Token) findObjects(filter *attribute.Template, limit int) []token.ObjectHandle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	handles := make([]token.ObjectHandle, 0)
	for h, o := range t.objects {
		if o.isPrivate() && !t.userLoggedIn() {
			continue
		}
		if o.attrs.Matches(filter) {
			handles = append(handles, h)
		}
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	if limit > 0 && len(handles) > limit {
		handles = handles[:limit]
	}
	return handles
}

// marshalObject encodes the present attributes of an object record.
func marshalObject(attrs *attribute.Template) ([]byte, error) {
	raws, err := attrs.Raw()
	if err != nil {
		return nil, err
	}
	b := wire.NewBuffer(nil)
	b.AddByte(recordVersion)
	b.AddUint32(uint32(len(raws)))
	for _, r := range raws {
		b.AddUint64(r.Type)
		b.AddByteArray(r.Value)
	}
	return b.Bytes(), nil
}

func unmarshalObject(data []byte) (*attribute.Template, error) {
	r := wire.NewReader(data)
	if v := r.Byte(); r.Err() == nil && v != recordVersion {
		return nil, fmt.Errorf("%w: record version %d", storage.ErrInvalidData, v)
	}
	n := r.Uint32()
	raws := make([]attribute.Raw, 0, n)
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		raws = append(raws, attribute.Raw{Type: r.Uint64(), Value: r.ByteArray()})
	}
	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidData, err)
	}
	attrs, err := attribute.FromRawTemplate(raws)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidData, err)
	}
	return attrs, nil
}
