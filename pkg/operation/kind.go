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

// Kind is the kind of cryptographic operation an engine runs.
type Kind int

const (
	KindNone Kind = iota
	KindSign
	KindVerify
	KindEncrypt
	KindDecrypt
	KindDigest
	KindMessageEncrypt
	KindMessageDecrypt
	KindMessageSign
	KindMessageVerify
)

var kindNames = [...]string{
	KindNone:           "none",
	KindSign:           "sign",
	KindVerify:         "verify",
	KindEncrypt:        "encrypt",
	KindDecrypt:        "decrypt",
	KindDigest:         "digest",
	KindMessageEncrypt: "message_encrypt",
	KindMessageDecrypt: "message_decrypt",
	KindMessageSign:    "message_sign",
	KindMessageVerify:  "message_verify",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsMessage reports whether k is a message-based kind.
func (k Kind) IsMessage() bool {
	return k >= KindMessageEncrypt && k <= KindMessageVerify
}

// State is the lifecycle state of an engine.
type State int

const (
	StateIdle State = iota
	StateInitialized
	StateUpdating
	StateMessageReady
	StateMessagePart
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitialized:
		return "initialized"
	case StateUpdating:
		return "updating"
	case StateMessageReady:
		return "message_ready"
	case StateMessagePart:
		return "message_part"
	}
	return "unknown"
}
