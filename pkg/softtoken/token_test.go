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

package softtoken_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/object"
	"github.com/jeremyhahn/go-cryptoki/pkg/softtoken"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage/file"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage/memory"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

const (
	userPIN = "1234"
	soPIN   = "5678"
)

func newToken(t *testing.T, store storage.Backend) *softtoken.Token {
	t.Helper()
	tok, err := softtoken.New(&softtoken.Config{
		Storage: store,
		Label:   "test",
		PIN:     userPIN,
		SOPIN:   soPIN,
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tok.Close() })
	return tok
}

// openUser returns a read-write session logged in as the normal user.
func openUser(t *testing.T, tok *softtoken.Token) token.Session {
	t.Helper()
	s, err := tok.OpenSession(softtoken.SlotID, true)
	require.NoError(t, err)
	require.NoError(t, s.Login(ck.CKU_USER, userPIN))
	return s
}

func newManager(s token.Session) *object.Manager {
	return object.NewManager(s, object.WithLogger(logging.Discard()))
}

func TestConfigValidate(t *testing.T) {
	_, err := softtoken.New(nil)
	assert.Error(t, err)

	_, err = softtoken.New(&softtoken.Config{})
	assert.Error(t, err)

	_, err = softtoken.New(&softtoken.Config{
		Storage: memory.New(),
		Label:   "a label that is much longer than thirty-two bytes",
	})
	assert.Error(t, err)
}

func TestSlotsAndMechanisms(t *testing.T) {
	tok := newToken(t, memory.New())

	slots, err := tok.Slots()
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, softtoken.SlotID, slots[0].ID)
	assert.Equal(t, "test", slots[0].TokenLabel)
	assert.NotEmpty(t, slots[0].Serial)

	mechs, err := tok.Mechanisms(softtoken.SlotID)
	require.NoError(t, err)
	assert.Contains(t, mechs, uint64(ck.CKM_AES_GCM))
	assert.Contains(t, mechs, uint64(ck.CKM_SHA256_HMAC))
	assert.IsIncreasing(t, mechs)

	info, err := tok.MechanismInfo(softtoken.SlotID, ck.CKM_AES_GCM)
	require.NoError(t, err)
	assert.True(t, info.Has(ck.CKF_ENCRYPT|ck.CKF_MESSAGE_ENCRYPT))

	_, err = tok.MechanismInfo(softtoken.SlotID, ck.CKM_VENDOR_DEFINED)
	assert.True(t, token.IsCode(err, ck.CKR_MECHANISM_INVALID))

	_, err = tok.Mechanisms(7)
	assert.True(t, token.IsCode(err, ck.CKR_SLOT_ID_INVALID))
}

func TestLogin(t *testing.T) {
	tok := newToken(t, memory.New())
	s, err := tok.OpenSession(softtoken.SlotID, true)
	require.NoError(t, err)

	err = s.Login(ck.CKU_USER, "wrong")
	assert.True(t, token.IsCode(err, ck.CKR_PIN_INCORRECT))

	require.NoError(t, s.Login(ck.CKU_USER, userPIN))
	assert.ErrorIs(t, s.Login(ck.CKU_USER, userPIN), token.ErrUserAlreadyLoggedIn)
	err = s.Login(ck.CKU_SO, soPIN)
	assert.True(t, token.IsCode(err, ck.CKR_USER_ANOTHER_ALREADY_LOGGED_IN))

	require.NoError(t, s.Logout())
	err = s.Logout()
	assert.True(t, token.IsCode(err, ck.CKR_USER_NOT_LOGGED_IN))

	err = s.Login(42, userPIN)
	assert.True(t, token.IsCode(err, ck.CKR_USER_TYPE_INVALID))
}

func TestSOLoginRequiresReadWriteSessions(t *testing.T) {
	tok := newToken(t, memory.New())
	ro, err := tok.OpenSession(softtoken.SlotID, false)
	require.NoError(t, err)
	rw, err := tok.OpenSession(softtoken.SlotID, true)
	require.NoError(t, err)

	err = rw.Login(ck.CKU_SO, soPIN)
	assert.True(t, token.IsCode(err, ck.CKR_SESSION_READ_ONLY_EXISTS))

	require.NoError(t, ro.Close())
	require.NoError(t, rw.Login(ck.CKU_SO, soPIN))

	_, err = tok.OpenSession(softtoken.SlotID, false)
	assert.True(t, token.IsCode(err, ck.CKR_SESSION_READ_WRITE_SO_EXISTS))
}

func TestClosedSession(t *testing.T) {
	tok := newToken(t, memory.New())
	s, err := tok.OpenSession(softtoken.SlotID, true)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.FindObjects(nil, 0)
	assert.True(t, token.IsCode(err, ck.CKR_SESSION_CLOSED))
	assert.True(t, token.IsCode(s.Close(), ck.CKR_SESSION_CLOSED))
}

func TestTokenClose(t *testing.T) {
	tok := newToken(t, memory.New())
	s, err := tok.OpenSession(softtoken.SlotID, true)
	require.NoError(t, err)

	require.NoError(t, tok.Close())
	require.NoError(t, tok.Close())

	_, err = s.FindObjects(nil, 0)
	assert.Error(t, err)
	_, err = tok.OpenSession(softtoken.SlotID, true)
	assert.True(t, token.IsCode(err, ck.CKR_CRYPTOKI_NOT_INITIALIZED))
}

func TestCreateFindDestroy(t *testing.T) {
	tok := newToken(t, memory.New())
	mgr := newManager(openUser(t, tok))

	tmpl, err := attribute.NewObject(ck.CKO_DATA).Label("note").Set(ck.CKA_VALUE, []byte("hello")).Build()
	require.NoError(t, err)
	h, err := mgr.Create(tmpl)
	require.NoError(t, err)

	filter, err := attribute.NewBuilder().Label("note").Build()
	require.NoError(t, err)
	found, err := mgr.FindOne(filter)
	require.NoError(t, err)
	assert.Equal(t, h, found)

	got, err := mgr.Fetch(h, ck.CKA_VALUE, ck.CKA_TOKEN, ck.CKA_UNIQUE_ID)
	require.NoError(t, err)
	value, err := got.Bytes(ck.CKA_VALUE)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), value)
	onToken, err := got.Bool(ck.CKA_TOKEN)
	require.NoError(t, err)
	assert.False(t, onToken)

	require.NoError(t, mgr.Destroy(h))
	_, err = mgr.FindOne(filter)
	assert.ErrorIs(t, err, object.ErrNotFound)
	assert.True(t, token.IsCode(mgr.Destroy(h), ck.CKR_OBJECT_HANDLE_INVALID))
}

func TestCreateRejectsTokenSetAttributes(t *testing.T) {
	tok := newToken(t, memory.New())
	mgr := newManager(openUser(t, tok))

	tmpl, err := attribute.NewObject(ck.CKO_DATA).Set(ck.CKA_UNIQUE_ID, "mine").Build()
	require.NoError(t, err)
	_, err = mgr.Create(tmpl)
	assert.True(t, token.IsCode(err, ck.CKR_ATTRIBUTE_READ_ONLY))

	incomplete, err := attribute.NewBuilder().Label("no class").Build()
	require.NoError(t, err)
	_, err = mgr.Create(incomplete)
	assert.True(t, token.IsCode(err, ck.CKR_TEMPLATE_INCOMPLETE))
}

func TestReadOnlySessionCannotCreateTokenObjects(t *testing.T) {
	tok := newToken(t, memory.New())
	s, err := tok.OpenSession(softtoken.SlotID, false)
	require.NoError(t, err)

	tmpl, err := attribute.NewObject(ck.CKO_DATA).Token(true).Build()
	require.NoError(t, err)
	_, err = newManager(s).Create(tmpl)
	assert.True(t, token.IsCode(err, ck.CKR_SESSION_READ_ONLY))
}

func TestPrivateObjectsNeedLogin(t *testing.T) {
	tok := newToken(t, memory.New())
	user := openUser(t, tok)

	tmpl, err := attribute.NewObject(ck.CKO_DATA).Private(true).Label("secret").Build()
	require.NoError(t, err)
	h, err := newManager(user).Create(tmpl)
	require.NoError(t, err)

	require.NoError(t, user.Logout())
	found, err := user.FindObjects(nil, 0)
	require.NoError(t, err)
	assert.NotContains(t, found, h)

	_, err = user.GetAttributeValue(h, []uint64{ck.CKA_LABEL})
	assert.True(t, token.IsCode(err, ck.CKR_OBJECT_HANDLE_INVALID))

	_, err = newManager(user).Create(tmpl)
	assert.True(t, token.IsCode(err, ck.CKR_USER_NOT_LOGGED_IN))
}

func TestSensitiveAttributes(t *testing.T) {
	tok := newToken(t, memory.New())
	s := openUser(t, tok)

	tmpl, err := attribute.NewSecretKey(ck.CKK_AES).
		Sensitive(true).
		Value(make([]byte, 16)).
		Build()
	require.NoError(t, err)
	h, err := newManager(s).Create(tmpl)
	require.NoError(t, err)

	raws, err := s.GetAttributeValue(h, []uint64{ck.CKA_CLASS, ck.CKA_VALUE, ck.CKA_MODULUS})
	assert.True(t, token.IsCode(err, ck.CKR_ATTRIBUTE_SENSITIVE))
	require.Len(t, raws, 3)
	assert.Equal(t, attribute.StatusOK, raws[0].Status)
	assert.Equal(t, attribute.StatusSensitive, raws[1].Status)
	assert.Equal(t, attribute.StatusTypeInvalid, raws[2].Status)

	got, err := newManager(s).Fetch(h, ck.CKA_VALUE, ck.CKA_ALWAYS_SENSITIVE)
	require.NoError(t, err)
	v, err := got.Get(ck.CKA_VALUE)
	require.NoError(t, err)
	assert.True(t, v.Sensitive())
	always, err := got.Bool(ck.CKA_ALWAYS_SENSITIVE)
	require.NoError(t, err)
	assert.True(t, always)
}

func TestSessionObjectsDieWithSession(t *testing.T) {
	tok := newToken(t, memory.New())
	s := openUser(t, tok)
	other, err := tok.OpenSession(softtoken.SlotID, true)
	require.NoError(t, err)

	tmpl, err := attribute.NewObject(ck.CKO_DATA).Label("temp").Build()
	require.NoError(t, err)
	h, err := newManager(s).Create(tmpl)
	require.NoError(t, err)

	found, err := other.FindObjects(nil, 0)
	require.NoError(t, err)
	assert.Contains(t, found, h)

	require.NoError(t, s.Close())
	found, err = other.FindObjects(nil, 0)
	require.NoError(t, err)
	assert.NotContains(t, found, h)
}

func TestFindObjectsLimit(t *testing.T) {
	tok := newToken(t, memory.New())
	mgr := newManager(openUser(t, tok))
	for range 5 {
		tmpl, err := attribute.NewObject(ck.CKO_DATA).Label("many").Build()
		require.NoError(t, err)
		_, err = mgr.Create(tmpl)
		require.NoError(t, err)
	}
	filter, err := attribute.NewBuilder().Label("many").Build()
	require.NoError(t, err)

	all, err := mgr.Find(filter, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	some, err := mgr.Find(filter, 2)
	require.NoError(t, err)
	assert.Equal(t, all[:2], some)

	_, err = mgr.FindOne(filter)
	assert.ErrorIs(t, err, object.ErrAmbiguous)
}

func TestTokenObjectsPersist(t *testing.T) {
	for name, open := range map[string]func(t *testing.T) storage.Backend{
		"memory": func(*testing.T) storage.Backend { return memory.New() },
		"file": func(t *testing.T) storage.Backend {
			store, err := file.New(t.TempDir())
			require.NoError(t, err)
			return store
		},
	} {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			tok := newToken(t, store)
			s := openUser(t, tok)

			persistent, err := attribute.NewSecretKey(ck.CKK_GENERIC_SECRET).
				Token(true).Label("kept").Value([]byte("0123456789abcdef")).Build()
			require.NoError(t, err)
			kept, err := newManager(s).Create(persistent)
			require.NoError(t, err)

			transient, err := attribute.NewObject(ck.CKO_DATA).Label("dropped").Build()
			require.NoError(t, err)
			_, err = newManager(s).Create(transient)
			require.NoError(t, err)
			require.NoError(t, tok.Close())

			// A different PIN is ignored once the token record exists.
			reopened, err := softtoken.New(&softtoken.Config{
				Storage: store,
				PIN:     "ignored",
				Logger:  logging.Discard(),
			})
			require.NoError(t, err)
			t.Cleanup(func() { _ = reopened.Close() })
			assert.Equal(t, "test", reopened.Label())

			s2 := openUser(t, reopened)
			found, err := s2.FindObjects(nil, 0)
			require.NoError(t, err)
			assert.Equal(t, []token.ObjectHandle{kept}, found)

			got, err := newManager(s2).Fetch(kept, ck.CKA_LABEL, ck.CKA_VALUE)
			require.NoError(t, err)
			label, err := got.Get(ck.CKA_LABEL)
			require.NoError(t, err)
			text, err := label.Text()
			require.NoError(t, err)
			assert.Equal(t, "kept", text)

			// New handles continue after the stored ones.
			h, err := newManager(s2).Create(transient)
			require.NoError(t, err)
			assert.Greater(t, h, kept)

			require.NoError(t, newManager(s2).Destroy(kept))
			exists, err := store.Exists(storage.ObjectPath(uint64(kept)))
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestCorruptStorage(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Put(storage.TokenInfoKey, []byte{9, 9, 9}, nil))
	_, err := softtoken.New(&softtoken.Config{Storage: store, Logger: logging.Discard()})
	assert.ErrorContains(t, err, "token record")

	store = memory.New()
	newToken(t, store)
	require.NoError(t, store.Put(storage.ObjectPath(3), []byte("garbage"), nil))
	_, err = softtoken.New(&softtoken.Config{Storage: store, Logger: logging.Discard()})
	assert.ErrorContains(t, err, "object 3")
}
