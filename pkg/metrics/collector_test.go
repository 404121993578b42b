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

package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewResourceCollector(t *testing.T) {
	collector := NewResourceCollector(context.Background(), time.Second)
	defer collector.Stop()

	if collector.interval != time.Second {
		t.Errorf("Expected interval %v, got %v", time.Second, collector.interval)
	}
	if collector.started.IsZero() {
		t.Error("Expected started time to be set")
	}
}

func TestResourceCollectorCollect(t *testing.T) {
	Enable()
	Goroutines.Set(0)
	MemoryAllocBytes.Set(0)
	Uptime.Set(0)

	collector := NewResourceCollector(context.Background(), time.Second)
	defer collector.Stop()
	collector.collect()

	if got := testutil.ToFloat64(Goroutines); got < 1 {
		t.Errorf("Expected at least one goroutine, got %v", got)
	}
	if got := testutil.ToFloat64(MemoryAllocBytes); got <= 0 {
		t.Errorf("Expected allocated bytes, got %v", got)
	}
}

func TestResourceCollectorContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	collector := NewResourceCollector(ctx, time.Second)

	done := make(chan struct{})
	go func() {
		collector.Start()
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Collector did not stop after context cancellation")
	}
}

func TestCollectOnce(t *testing.T) {
	Enable()
	Goroutines.Set(0)

	CollectOnce()

	if got := testutil.ToFloat64(Goroutines); got < 1 {
		t.Errorf("Expected goroutines to be collected, got %v", got)
	}
}
