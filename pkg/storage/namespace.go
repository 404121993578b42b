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

package storage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// ObjectPrefix is the key prefix of persisted token objects.
	ObjectPrefix = "objects/"

	// TokenInfoKey holds the persisted token description and PIN hashes.
	TokenInfoKey = "token/info"
)

// ObjectPath returns the storage key of the token object with handle.
// The path follows the convention: objects/{handle as 16 hex digits}
func ObjectPath(handle uint64) string {
	return fmt.Sprintf("%s%016x", ObjectPrefix, handle)
}

// ParseObjectPath returns the handle encoded in an object key.
func ParseObjectPath(key string) (uint64, error) {
	hex, ok := strings.CutPrefix(key, ObjectPrefix)
	if !ok || hex == "" {
		return 0, fmt.Errorf("%w: %q is not an object key", ErrInvalidKey, key)
	}
	h, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an object key", ErrInvalidKey, key)
	}
	return h, nil
}

// ListObjects returns the handles of all persisted objects in ascending
// order. Keys under the object prefix that do not parse are skipped.
func ListObjects(backend Backend) ([]uint64, error) {
	keys, err := backend.List(ObjectPrefix)
	if err != nil {
		return nil, err
	}

	handles := make([]uint64, 0, len(keys))
	for _, k := range keys {
		h, err := ParseObjectPath(k)
		if err != nil {
			continue
		}
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles, nil
}

// ValidateKey rejects empty keys, keys with NUL bytes and keys that try to
// escape a directory hierarchy.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.Contains(key, "\x00") {
		return fmt.Errorf("%w: key contains null byte", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: key cannot be an absolute path", ErrInvalidKey)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("%w: key contains path traversal", ErrInvalidKey)
		}
	}
	return nil
}
