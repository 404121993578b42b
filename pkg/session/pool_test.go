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

package session_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/correlation"
	"github.com/jeremyhahn/go-cryptoki/pkg/health"
	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/operation"
	"github.com/jeremyhahn/go-cryptoki/pkg/session"
	"github.com/jeremyhahn/go-cryptoki/pkg/softtoken"
	"github.com/jeremyhahn/go-cryptoki/pkg/storage/memory"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

const userPIN = "1234"

func newToken(t *testing.T) *softtoken.Token {
	t.Helper()
	tok, err := softtoken.New(&softtoken.Config{
		Storage: memory.New(),
		Label:   "pool",
		PIN:     userPIN,
		SOPIN:   "5678",
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tok.Close() })
	return tok
}

func newPool(t *testing.T, tok token.Provider, config session.Config) *session.Pool {
	t.Helper()
	config.Slot = softtoken.SlotID
	p, err := session.NewPool(tok, config, session.WithLogger(logging.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestConfigValidate(t *testing.T) {
	c := session.Config{}
	require.NoError(t, c.Validate())
	assert.Equal(t, 4, c.Size)
	assert.Equal(t, session.UserTypeUser, c.UserType)

	for name, c := range map[string]session.Config{
		"negative size": {Size: -1},
		"unknown user":  {UserType: "admin"},
		"read-only so":  {UserType: session.UserTypeSO, PIN: "5678"},
		"negative rate": {RatePerSecond: -1},
		"negative wait": {AcquireTimeout: -time.Second},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, c.Validate(), session.ErrInvalidConfig)
		})
	}

	_, err := session.NewPool(nil, session.Config{})
	assert.ErrorIs(t, err, session.ErrInvalidConfig)
}

func TestAcquireReusesSessions(t *testing.T) {
	p := newPool(t, newToken(t), session.Config{Size: 2})

	l1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	handle := l1.Session().Handle()
	l1.Release()
	l1.Release()

	l2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer l2.Release()
	assert.Equal(t, handle, l2.Session().Handle())
	assert.Equal(t, session.Stats{Size: 2, Open: 1, Idle: 0, InUse: 1}, p.Stats())
}

func TestAcquireTimeout(t *testing.T) {
	p := newPool(t, newToken(t), session.Config{Size: 1, AcquireTimeout: 20 * time.Millisecond})

	held, err := p.Acquire(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, session.ErrPoolTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	held.Release()
	l, err := p.Acquire(context.Background())
	require.NoError(t, err)
	l.Release()
}

func TestAcquireHonorsContext(t *testing.T) {
	p := newPool(t, newToken(t), session.Config{Size: 1})
	held, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, session.ErrPoolTimeout)

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClosedPool(t *testing.T) {
	p := newPool(t, newToken(t), session.Config{Size: 1})
	held, err := p.Acquire(context.Background())
	require.NoError(t, err)

	waiting := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background())
		waiting <- err
	}()

	require.NoError(t, p.Close())
	select {
	case err := <-waiting:
		assert.ErrorIs(t, err, session.ErrPoolClosed)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after Close")
	}

	held.Release()
	assert.Equal(t, 0, p.Stats().Open)

	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, session.ErrPoolClosed)
	assert.NoError(t, p.Close())
}

func TestDoReleasesOnPanic(t *testing.T) {
	p := newPool(t, newToken(t), session.Config{Size: 1, AcquireTimeout: 50 * time.Millisecond})

	assert.Panics(t, func() {
		_ = p.Do(context.Background(), func(*session.Lease) error { panic("boom") })
	})
	assert.Equal(t, 0, p.Stats().InUse)

	want := errors.New("failed")
	err := p.Do(context.Background(), func(*session.Lease) error { return want })
	assert.ErrorIs(t, err, want)
	assert.Equal(t, 1, p.Stats().Idle)
}

func TestUnfinishedOperationDiscardsSession(t *testing.T) {
	p := newPool(t, newToken(t), session.Config{Size: 1, ReadWrite: true, PIN: userPIN})

	l, err := p.Acquire(context.Background())
	require.NoError(t, err)
	first := l.Session().Handle()
	require.NoError(t, l.Engine().Init(operation.KindDigest, mechanism.New(ck.CKM_SHA256), 0))
	_, err = l.Engine().Update([]byte("partial"), nil)
	require.NoError(t, err)
	l.Release()

	assert.Equal(t, session.Stats{Size: 1}, p.Stats())

	l, err = p.Acquire(context.Background())
	require.NoError(t, err)
	defer l.Release()
	assert.NotEqual(t, first, l.Session().Handle())
	assert.Equal(t, operation.StateIdle, l.Engine().State())
}

func TestLoginAllowsPrivateObjects(t *testing.T) {
	tok := newToken(t)
	p := newPool(t, tok, session.Config{Size: 2, ReadWrite: true, PIN: userPIN})

	tmpl, err := attribute.NewSecretKey(ck.CKK_GENERIC_SECRET).
		Token(true).Private(true).Value(make([]byte, 32)).Build()
	require.NoError(t, err)

	// Two live leases means two logins; the second sees the user already
	// logged in and must still succeed.
	l1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	l2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	_, err = l1.Objects().Create(tmpl)
	require.NoError(t, err)
	filter, err := attribute.NewObject(ck.CKO_SECRET_KEY).Token(true).Build()
	require.NoError(t, err)
	_, err = l2.Objects().FindOne(filter)
	require.NoError(t, err)
	l1.Release()
	l2.Release()

	anon := newPool(t, newToken(t), session.Config{Size: 1, ReadWrite: true})
	err = anon.Do(context.Background(), func(l *session.Lease) error {
		_, err := l.Objects().Create(tmpl)
		return err
	})
	assert.Error(t, err)
}

func TestRateLimit(t *testing.T) {
	p := newPool(t, newToken(t), session.Config{
		Size:           4,
		AcquireTimeout: 20 * time.Millisecond,
		RatePerSecond:  1,
		Burst:          1,
	})

	require.NoError(t, p.Do(context.Background(), func(*session.Lease) error { return nil }))
	err := p.Do(context.Background(), func(*session.Lease) error { return nil })
	assert.ErrorIs(t, err, session.ErrPoolTimeout)
}

func TestConcurrentLeases(t *testing.T) {
	tok := newToken(t)
	p := newPool(t, tok, session.Config{Size: 3, ReadWrite: true, PIN: userPIN})

	key := make([]byte, 32)
	var handle token.ObjectHandle
	require.NoError(t, p.Do(context.Background(), func(l *session.Lease) error {
		tmpl, err := attribute.NewSecretKey(ck.CKK_GENERIC_SECRET).
			Token(true).Sign(true).Verify(true).Value(key).Build()
		if err != nil {
			return err
		}
		handle, err = l.Objects().Create(tmpl)
		return err
	}))

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("message"))
	want := mac.Sum(nil)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := correlation.WithCorrelationID(context.Background(), correlation.NewID())
			errs <- p.Do(ctx, func(l *session.Lease) error {
				sig, err := l.Engine().Sign(mechanism.New(ck.CKM_SHA256_HMAC), handle, []byte("message"))
				if err != nil {
					return err
				}
				if !hmac.Equal(sig, want) {
					return errors.New("wrong mac")
				}
				return nil
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	st := p.Stats()
	assert.Equal(t, 0, st.InUse)
	assert.LessOrEqual(t, st.Open, 3)
}

func TestHealthCheck(t *testing.T) {
	p := newPool(t, newToken(t), session.Config{Size: 1, AcquireTimeout: 10 * time.Millisecond})
	check := p.HealthCheck()

	assert.Equal(t, health.StatusHealthy, check(context.Background()).Status)

	held, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, health.StatusDegraded, check(context.Background()).Status)
	held.Release()

	require.NoError(t, p.Close())
	result := check(context.Background())
	assert.Equal(t, health.StatusUnhealthy, result.Status)
	assert.NotEmpty(t, result.Error)
}
