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
	"strings"
	"time"
)

// Observer adapts the package-level recorders to the operation engine's
// observer hooks.
type Observer struct{}

// OperationStarted increments the active operation gauge.
func (Observer) OperationStarted(id, kind, mechanism string) {
	IncrementActiveOperations(kind)
}

// OperationFinished records the outcome of an operation. errorType is empty
// on success.
func (Observer) OperationFinished(id, kind, mechanism, errorType string, duration time.Duration) {
	DecrementActiveOperations(kind)
	status := StatusSuccess
	if errorType != "" {
		status = StatusError
		RecordError(kind, strings.ToLower(errorType))
	}
	RecordOperation(kind, mechanism, status, duration)
}
