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

package attribute

import (
	"fmt"
	"math/big"
)

// unsignedBytes returns the minimal unsigned big-endian encoding of n. Zero
// encodes as a single zero byte.
func unsignedBytes(n *big.Int) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: nil big integer", ErrInvalidValue)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative big integer", ErrInvalidValue)
	}
	b := n.Bytes()
	if len(b) == 0 {
		return []byte{0}, nil
	}
	return b, nil
}

// signedBytes returns the minimal two's-complement big-endian encoding of n.
func signedBytes(n *big.Int) []byte {
	switch n.Sign() {
	case 0:
		return []byte{0}
	case 1:
		b := n.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}
	// Negative: 2^(8k) + n for the smallest k that keeps the sign bit set.
	size := (n.BitLen() + 8) / 8
	mod := new(big.Int).Lsh(big.NewInt(1), uint(size*8))
	b := new(big.Int).Add(mod, n).Bytes()
	for len(b) < size {
		b = append([]byte{0xff}, b...)
	}
	if len(b) > 1 && b[0] == 0xff && b[1]&0x80 != 0 {
		b = b[1:]
	}
	return b
}

func unsignedInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

func signedInt(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return n
}
