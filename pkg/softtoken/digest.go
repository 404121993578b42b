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
	"hash"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/mechanism"
)

type digester struct {
	h hash.Hash
}

// DigestInit starts a message digest.
func (s *Session) DigestInit(m *mechanism.Mechanism) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == nil {
		return s.done("C_DigestInit", ckr(ck.CKR_ARGUMENTS_BAD))
	}
	alg, ok := digests[m.Type]
	if !ok {
		return s.done("C_DigestInit", ckr(ck.CKR_MECHANISM_INVALID))
	}
	if m.Params != nil {
		return s.done("C_DigestInit", ckr(ck.CKR_MECHANISM_PARAM_INVALID))
	}
	op := &activeOp{kind: opDigest, mech: m.Type, digest: &digester{h: alg.new()}}
	return s.done("C_DigestInit", s.start(op))
}

func (s *Session) Digest(data, dst []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(opDigest)
	if err != nil {
		return s.doneN("C_Digest", 0, err)
	}
	if op.updated {
		s.end(nil)
		return s.doneN("C_Digest", 0, ckr(ck.CKR_OPERATION_ACTIVE))
	}
	size := op.digest.h.Size()
	if probe, err := sized(size, dst); probe {
		return s.doneN("C_Digest", size, err)
	}
	op.digest.h.Write(data)
	s.end(nil)
	return s.doneN("C_Digest", copy(dst, op.digest.h.Sum(nil)), nil)
}

func (s *Session) DigestUpdate(part []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(opDigest)
	if err != nil {
		return s.done("C_DigestUpdate", err)
	}
	op.updated = true
	op.digest.h.Write(part)
	return s.done("C_DigestUpdate", nil)
}

func (s *Session) DigestFinal(dst []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, err := s.active(opDigest)
	if err != nil {
		return s.doneN("C_DigestFinal", 0, err)
	}
	size := op.digest.h.Size()
	if probe, err := sized(size, dst); probe {
		return s.doneN("C_DigestFinal", size, err)
	}
	s.end(nil)
	return s.doneN("C_DigestFinal", copy(dst, op.digest.h.Sum(nil)), nil)
}
