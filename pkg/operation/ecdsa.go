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

package operation

import (
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

func (e *Engine) normalizes() bool {
	return e.kind == KindSign && e.mech != nil && e.mech.ECOrderBits() > 0
}

func (e *Engine) signatureSize(n int) int {
	if !e.normalizes() {
		return n
	}
	return max(n, 2*orderBytes(e.mech.ECOrderBits()))
}

// normalizedFill runs a signature-producing step into a scratch buffer and
// writes the fixed-width r||s form to dst.
func (e *Engine) normalizedFill(dst []byte, call func([]byte) (int, error)) (int, error) {
	n, err := call(nil)
	if err != nil {
		return 0, e.terminate(err)
	}
	size := orderBytes(e.mech.ECOrderBits())
	if required := max(n, 2*size); len(dst) < required {
		return 0, &BufferTooSmallError{Required: required}
	}
	raw := make([]byte, n)
	n, err = call(raw)
	if err != nil {
		return e.fillFailed(n, err)
	}
	sig := NormalizeECDSA(raw[:n], e.mech.ECOrderBits())
	e.finish(nil)
	return copy(dst, sig), nil
}

func orderBytes(bits int) int {
	return (bits + 7) / 8
}

// NormalizeECDSA returns sig as r||s with each half left-padded to the byte
// length of a curve order of orderBits. It accepts short raw signatures and
// DER-encoded ones; anything it cannot interpret is returned unchanged.
func NormalizeECDSA(sig []byte, orderBits int) []byte {
	size := orderBytes(orderBits)
	if size == 0 || len(sig) == 2*size {
		return sig
	}

	var r, s []byte
	if dr, ds, ok := parseDERSignature(sig); ok {
		r, s = dr, ds
	} else if len(sig)%2 == 0 && len(sig) < 2*size {
		r, s = sig[:len(sig)/2], sig[len(sig)/2:]
	} else {
		return sig
	}
	r, s = trimZeros(r), trimZeros(s)
	if len(r) > size || len(s) > size {
		return sig
	}

	out := make([]byte, 2*size)
	copy(out[size-len(r):size], r)
	copy(out[2*size-len(s):], s)
	return out
}

func parseDERSignature(sig []byte) (r, s []byte, ok bool) {
	var inner cryptobyte.String
	input := cryptobyte.String(sig)
	rInt, sInt := new(big.Int), new(big.Int)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() ||
		!inner.ReadASN1Integer(rInt) || !inner.ReadASN1Integer(sInt) || !inner.Empty() {
		return nil, nil, false
	}
	if rInt.Sign() <= 0 || sInt.Sign() <= 0 {
		return nil, nil, false
	}
	return rInt.Bytes(), sInt.Bytes(), true
}

func trimZeros(b []byte) []byte {
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	return b
}
