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

package session

import (
	"sync/atomic"

	"github.com/jeremyhahn/go-cryptoki/pkg/object"
	"github.com/jeremyhahn/go-cryptoki/pkg/operation"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

// Lease is exclusive use of one pooled session. It must not be used after
// Release.
type Lease struct {
	pool     *Pool
	session  token.Session
	engine   *operation.Engine
	objects  *object.Manager
	released atomic.Bool
}

// Session returns the leased session.
func (l *Lease) Session() token.Session { return l.session }

// Engine returns the operation engine bound to the session.
func (l *Lease) Engine() *operation.Engine { return l.engine }

// Objects returns the object manager bound to the session.
func (l *Lease) Objects() *object.Manager { return l.objects }

// Release returns the session to the pool. Releasing twice is a no-op.
func (l *Lease) Release() {
	if !l.released.CompareAndSwap(false, true) {
		return
	}
	l.pool.put(l.session, l.engine.State() == operation.StateIdle)
}
