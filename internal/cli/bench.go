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
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoki/pkg/attribute"
	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/correlation"
	"github.com/jeremyhahn/go-cryptoki/pkg/health"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
	"github.com/jeremyhahn/go-cryptoki/pkg/metrics"
	"github.com/jeremyhahn/go-cryptoki/pkg/ratelimit"
	"github.com/jeremyhahn/go-cryptoki/pkg/session"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

const (
	benchHMAC   = "hmac"
	benchDigest = "digest"
)

type benchFlags struct {
	mode        string
	concurrency int
	duration    time.Duration
	iterations  int64
	size        int
	poolSize    int
	serve       bool
}

// benchResult counts completed and failed operations.
type benchResult struct {
	ops    atomic.Int64
	errors atomic.Int64
}

func newBenchCmd(a *app) *cobra.Command {
	var f benchFlags
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark concurrent operations over a session pool",
		Long: `Run HMAC or digest operations from several goroutines sharing one
session pool and report the throughput.

With --serve (or metrics.enabled) the Prometheus metrics and health probes
are exposed on metrics.address while the benchmark runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBench(cmd.Context(), &f)
		},
	}
	cmd.Flags().StringVar(&f.mode, "mode", benchHMAC, "operation to run (hmac, digest)")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "c", 4, "number of workers")
	cmd.Flags().DurationVarP(&f.duration, "duration", "d", 5*time.Second, "run time; ignored when --iterations is set")
	cmd.Flags().Int64VarP(&f.iterations, "iterations", "n", 0, "total operations to run")
	cmd.Flags().IntVar(&f.size, "size", 1024, "input size in bytes")
	cmd.Flags().IntVar(&f.poolSize, "pool-size", 0, "sessions in the pool (default pool.size)")
	cmd.Flags().BoolVar(&f.serve, "serve", false, "expose /metrics and health probes")
	return cmd
}

func (a *app) runBench(ctx context.Context, f *benchFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if f.concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	if f.size < 0 {
		return fmt.Errorf("--size must not be negative")
	}
	size := a.config.Pool.Size
	if f.poolSize > 0 {
		size = f.poolSize
	}

	conn, err := a.openToken()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	pool, err := a.newPool(conn, size)
	if err != nil {
		return err
	}
	defer func() { _ = pool.Close() }()

	if f.serve || a.config.Metrics.Enabled {
		metrics.Enable()
		stop := a.serveMetrics(ctx, pool)
		defer stop()
	}

	op, cleanup, err := a.benchOperation(ctx, pool, f.mode)
	if err != nil {
		return err
	}
	defer cleanup()

	data := make([]byte, f.size)
	if _, err := rand.Read(data); err != nil {
		return err
	}

	runCtx := ctx
	if f.iterations <= 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, f.duration)
		defer cancel()
	}

	a.logger.Info("benchmark started",
		"mode", f.mode, "concurrency", f.concurrency, "pool_size", size)

	var (
		result    benchResult
		remaining atomic.Int64
		wg        sync.WaitGroup
	)
	remaining.Store(f.iterations)
	start := time.Now()
	for range f.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for runCtx.Err() == nil {
				if f.iterations > 0 && remaining.Add(-1) < 0 {
					return
				}
				err := pool.Do(runCtx, func(l *session.Lease) error {
					return op(l, data)
				})
				switch {
				case err == nil:
					result.ops.Add(1)
				case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
					return
				default:
					result.errors.Add(1)
					a.logger.Debug("benchmark operation failed", "error", err)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	stats := pool.Stats()
	ops := result.ops.Load()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(ops) / elapsed.Seconds()
	}
	a.logger.Info("benchmark finished", "ops", ops, "errors", result.errors.Load(), "elapsed", elapsed)

	return a.printer.PrintMap("Benchmark", []string{
		"mode", "concurrency", "pool_size", "sessions_open", "operations", "errors", "elapsed", "ops_per_sec",
	}, map[string]any{
		"mode":          f.mode,
		"concurrency":   f.concurrency,
		"pool_size":     size,
		"sessions_open": stats.Open,
		"operations":    ops,
		"errors":        result.errors.Load(),
		"elapsed":       elapsed.Round(time.Millisecond).String(),
		"ops_per_sec":   fmt.Sprintf("%.1f", rate),
	})
}

// benchOperation prepares the work one iteration does. HMAC mode creates a
// throwaway generic secret key, which cleanup destroys.
func (a *app) benchOperation(ctx context.Context, pool *session.Pool, mode string) (func(*session.Lease, []byte) error, func(), error) {
	switch mode {
	case benchDigest:
		m := mechanism.New(ck.CKM_SHA256)
		return func(l *session.Lease, data []byte) error {
			_, err := l.Engine().Digest(m, data)
			return err
		}, func() {}, nil

	case benchHMAC:
		tmpl, err := attribute.NewSecretKey(ck.CKK_GENERIC_SECRET).
			Label("p11ctl-bench-" + uuid.NewString()).
			Token(true).
			Private(a.loginPIN() != "").
			Sign(true).
			Verify(true).
			ValueLen(32).
			Build()
		if err != nil {
			return nil, nil, err
		}
		var key token.ObjectHandle
		err = pool.Do(ctx, func(l *session.Lease) error {
			key, err = l.Objects().GenerateKey(mechanism.New(ck.CKM_GENERIC_SECRET_KEY_GEN), tmpl)
			return err
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create benchmark key: %w", err)
		}
		cleanup := func() {
			err := pool.Do(context.Background(), func(l *session.Lease) error {
				return l.Objects().Destroy(key)
			})
			if err != nil {
				a.logger.Warn("failed to destroy benchmark key", "handle", key, "error", err)
			}
		}
		m := mechanism.New(ck.CKM_SHA256_HMAC)
		return func(l *session.Lease, data []byte) error {
			_, err := l.Engine().Sign(m, key, data)
			return err
		}, cleanup, nil
	}
	return nil, nil, fmt.Errorf("unknown benchmark mode %q (hmac, digest)", mode)
}

// serveMetrics exposes /metrics and the health probes until stop is called.
func (a *app) serveMetrics(ctx context.Context, pool *session.Pool) func() {
	collector := metrics.StartResourceCollector(ctx, time.Second)

	checker := health.NewChecker(2 * time.Second)
	checker.RegisterCheck("session_pool", pool.HealthCheck())
	checker.MarkStarted()

	limiter := ratelimit.New(&ratelimit.Config{
		Enabled:       true,
		RatePerSecond: 20,
		Burst:         40,
	})

	r := chi.NewRouter()
	r.Use(correlation.Middleware)
	r.Use(metrics.HTTPMiddleware)
	r.Use(ratelimit.Middleware(limiter))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/healthz", checker.LiveHandler())
	r.Get("/readyz", checker.ReadyHandler())

	srv := &http.Server{
		Addr:              a.config.Metrics.Address,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("metrics listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(fmt.Errorf("metrics server failed: %w", err), "address", srv.Addr)
		}
	}()

	return func() {
		checker.MarkNotStarted()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		limiter.Stop()
		collector.Stop()
	}
}
