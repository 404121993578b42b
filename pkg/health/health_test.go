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

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthy(context.Context) CheckResult { return CheckResult{Status: StatusHealthy} }

func TestLive(t *testing.T) {
	c := NewChecker(0)
	result := c.Live(context.Background())
	assert.Equal(t, "liveness", result.Name)
	assert.Equal(t, StatusHealthy, result.Status)
}

func TestReadyBeforeStart(t *testing.T) {
	c := NewChecker(0)
	c.RegisterCheck("pool", healthy)

	results := c.Ready(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, "startup", results[0].Name)
	assert.False(t, c.IsHealthy(context.Background()))

	c.MarkStarted()
	assert.True(t, c.IsHealthy(context.Background()))

	c.MarkNotStarted()
	assert.False(t, c.IsHealthy(context.Background()))
}

func TestReadyRunsChecksInOrder(t *testing.T) {
	c := NewChecker(0)
	c.MarkStarted()
	c.RegisterCheck("token", healthy)
	c.RegisterCheck("pool", func(context.Context) CheckResult {
		return CheckResult{Status: StatusDegraded, Message: "2 of 4 sessions broken"}
	})
	c.RegisterCheck("ignored", nil)

	results := c.Ready(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, "pool", results[0].Name)
	assert.Equal(t, "token", results[1].Name)
	assert.Equal(t, StatusDegraded, AggregateStatus(results))

	c.UnregisterCheck("pool")
	assert.True(t, c.IsHealthy(context.Background()))
}

func TestReadyWithoutChecks(t *testing.T) {
	c := NewChecker(0)
	c.MarkStarted()
	results := c.Ready(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, "default", results[0].Name)
	assert.Equal(t, StatusHealthy, results[0].Status)
}

func TestCheckTimeout(t *testing.T) {
	c := NewChecker(10 * time.Millisecond)
	c.MarkStarted()
	c.RegisterCheck("slow", func(ctx context.Context) CheckResult {
		<-ctx.Done()
		return CheckResult{Status: StatusUnhealthy, Error: ctx.Err().Error()}
	})

	results := c.Ready(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, StatusUnhealthy, results[0].Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), results[0].Error)
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]CheckResult, len(tt.statuses))
			for i, s := range tt.statuses {
				results[i].Status = s
			}
			assert.Equal(t, tt.want, AggregateStatus(results))
		})
	}
}

func TestHandlers(t *testing.T) {
	c := NewChecker(0)
	c.RegisterCheck("pool", func(context.Context) CheckResult {
		return CheckResult{Status: StatusUnhealthy, Error: "no sessions"}
	})

	rec := httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	c.MarkStarted()
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status Status        `json:"status"`
		Checks []CheckResult `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, StatusUnhealthy, body.Status)
	require.Len(t, body.Checks, 1)
	assert.Equal(t, "no sessions", body.Checks[0].Error)
}
