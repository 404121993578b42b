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

// Package session keeps a bounded pool of logged-in sessions on one slot.
//
// A session supports a single active operation, so concurrent callers each
// lease their own session together with an operation engine and an object
// manager bound to it:
//
//	err := pool.Do(ctx, func(l *session.Lease) error {
//		sig, err := l.Engine().Sign(mech, key, data)
//		...
//	})
//
// A lease returned while its engine is still mid-operation has its session
// closed instead of reused; the pool opens a replacement on demand.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jeremyhahn/go-cryptoki/pkg/correlation"
	"github.com/jeremyhahn/go-cryptoki/pkg/health"
	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
	"github.com/jeremyhahn/go-cryptoki/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoki/pkg/object"
	"github.com/jeremyhahn/go-cryptoki/pkg/operation"
	"github.com/jeremyhahn/go-cryptoki/pkg/ratelimit"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used by the pool and its leases.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// WithLimiter shares a rate limiter between pools. It replaces the limiter
// built from Config.RatePerSecond and is not stopped by Close.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(p *Pool) { p.limiter = l }
}

// WithEngineOptions sets options applied to every lease's engine.
func WithEngineOptions(opts ...operation.Option) Option {
	return func(p *Pool) { p.engineOpts = opts }
}

// Stats is a snapshot of pool occupancy.
type Stats struct {
	Size  int
	Open  int
	Idle  int
	InUse int
}

// Pool is a bounded set of sessions on one slot.
type Pool struct {
	provider   token.Provider
	config     Config
	logger     *logging.Logger
	limiter    *ratelimit.Limiter
	ownLimiter bool
	engineOpts []operation.Option
	limitKey   string

	// permits holds one entry per leased session.
	permits chan struct{}
	done    chan struct{}

	mu     sync.Mutex
	idle   []token.Session
	open   int
	inUse  int
	closed bool
}

// NewPool returns a pool of sessions on config.Slot. Sessions are opened
// lazily by Acquire.
func NewPool(provider token.Provider, config Config, opts ...Option) (*Pool, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	p := &Pool{
		provider: provider,
		config:   config,
		limitKey: fmt.Sprintf("slot-%d", config.Slot),
		permits:  make(chan struct{}, config.Size),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.DefaultLogger()
	}
	if p.limiter == nil && config.RatePerSecond > 0 {
		p.limiter = ratelimit.New(&ratelimit.Config{
			Enabled:       true,
			RatePerSecond: config.RatePerSecond,
			Burst:         config.Burst,
		})
		p.ownLimiter = true
	}
	p.report()
	return p, nil
}

// Acquire leases a session, waiting until one is free, the acquire timeout
// passes (ErrPoolTimeout) or the pool is closed (ErrPoolClosed). A
// correlation ID in ctx is attached to the lease's log lines.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}
	if p.config.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.AcquireTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := p.limiter.Wait(ctx, p.limitKey); err != nil {
		return nil, p.waitFailed(ctx, fmt.Errorf("rate limit: %w", err))
	}
	select {
	case p.permits <- struct{}{}:
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, p.waitFailed(ctx, ctx.Err())
	}
	metrics.ObservePoolWait(time.Since(start))

	s, err := p.take()
	if err != nil {
		<-p.permits
		return nil, err
	}

	logger := p.logger.With(correlation.LogArgs(ctx)...)
	engineOpts := append([]operation.Option{operation.WithLogger(logger)}, p.engineOpts...)
	return &Lease{
		pool:    p,
		session: s,
		engine:  operation.New(s, engineOpts...),
		objects: object.NewManager(s, object.WithLogger(logger)),
	}, nil
}

// Do runs fn with a leased session and releases it on every exit path,
// including a panic in fn.
func (p *Pool) Do(ctx context.Context, fn func(*Lease) error) error {
	lease, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()
	return fn(lease)
}

// Stats returns the current occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Size: p.config.Size, Open: p.open, Idle: len(p.idle), InUse: p.inUse}
}

// HealthCheck returns a readiness check that leases and returns a session.
// A pool whose sessions are all busy reports degraded.
func (p *Pool) HealthCheck() health.CheckFunc {
	return func(ctx context.Context) health.CheckResult {
		result := health.CheckResult{Name: "session_pool"}
		lease, err := p.Acquire(ctx)
		switch {
		case err == nil:
			lease.Release()
			st := p.Stats()
			result.Status = health.StatusHealthy
			result.Message = fmt.Sprintf("%d of %d sessions open", st.Open, st.Size)
		case errors.Is(err, ErrPoolTimeout):
			result.Status = health.StatusDegraded
			result.Message = "all sessions busy"
		default:
			result.Status = health.StatusUnhealthy
			result.Error = err.Error()
		}
		return result
	}
}

// Close closes idle sessions and stops handing out new ones. Leased
// sessions are closed when they are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	idle := p.idle
	p.idle = nil
	p.open -= len(idle)
	p.report()
	p.mu.Unlock()

	if p.ownLimiter {
		p.limiter.Stop()
	}
	var errs []error
	for _, s := range idle {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.logger.Debug("session pool closed", "slot", p.config.Slot, "sessions", len(idle))
	return errors.Join(errs...)
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) waitFailed(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrPoolTimeout, err)
}

// take returns an idle session or opens a new one. The caller holds a
// permit.
func (p *Pool) take() (token.Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		s := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.inUse++
		p.report()
		p.mu.Unlock()
		return s, nil
	}
	p.open++
	p.inUse++
	p.mu.Unlock()

	s, err := p.openSession()
	if err != nil {
		p.mu.Lock()
		p.open--
		p.inUse--
		p.report()
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Lock()
	p.report()
	p.mu.Unlock()
	return s, nil
}

func (p *Pool) openSession() (token.Session, error) {
	s, err := p.provider.OpenSession(p.config.Slot, p.config.ReadWrite)
	if err != nil {
		return nil, fmt.Errorf("session: open on slot %d: %w", p.config.Slot, err)
	}
	if p.config.PIN != "" {
		// Login state is shared by all sessions of an application, so
		// only the first session actually logs in.
		err := s.Login(p.config.ckUserType(), p.config.PIN)
		if err != nil && !errors.Is(err, token.ErrUserAlreadyLoggedIn) {
			p.logger.MaybeError(s.Close())
			return nil, fmt.Errorf("session: login on slot %d: %w", p.config.Slot, err)
		}
	}
	p.logger.Debug("session opened", "slot", p.config.Slot, "handle", uint64(s.Handle()))
	return s, nil
}

// put returns a leased session. A session whose engine is not idle is
// closed, since the token may still hold its operation.
func (p *Pool) put(s token.Session, reusable bool) {
	p.mu.Lock()
	p.inUse--
	keep := reusable && !p.closed
	if keep {
		p.idle = append(p.idle, s)
	} else {
		p.open--
	}
	p.report()
	p.mu.Unlock()

	if !keep {
		if !reusable {
			p.logger.Debug("discarding session with an unfinished operation", "handle", uint64(s.Handle()))
		}
		p.logger.MaybeError(s.Close())
	}
	<-p.permits
}

// report publishes occupancy gauges. The caller holds mu.
func (p *Pool) report() {
	metrics.SetPoolSessions(metrics.StateIdle, len(p.idle))
	metrics.SetPoolSessions(metrics.StateInUse, p.inUse)
}
