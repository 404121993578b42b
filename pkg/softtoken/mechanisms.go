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
	"crypto"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/sha3"

	"github.com/jeremyhahn/go-cryptoki/pkg/ck"
	"github.com/jeremyhahn/go-cryptoki/pkg/token"
)

const (
	flagsCipher  = ck.CKF_ENCRYPT | ck.CKF_DECRYPT
	flagsSign    = ck.CKF_SIGN | ck.CKF_VERIFY
	flagsWrap    = ck.CKF_WRAP | ck.CKF_UNWRAP
	flagsMessage = ck.CKF_MESSAGE_ENCRYPT | ck.CKF_MESSAGE_DECRYPT | ck.CKF_MULTI_MESSAGE
	flagsMsgSign = ck.CKF_MESSAGE_SIGN | ck.CKF_MESSAGE_VERIFY | ck.CKF_MULTI_MESSAGE
)

// mechanisms is the token's CKM_* capability table. Key sizes are in bytes
// for secret keys and in bits for RSA and EC keys.
var mechanisms = map[uint64]token.MechanismInfo{
	ck.CKM_AES_KEY_GEN:               {MinKeySize: 16, MaxKeySize: 32, Flags: ck.CKF_GENERATE},
	ck.CKM_GENERIC_SECRET_KEY_GEN:    {MinKeySize: 1, MaxKeySize: 512, Flags: ck.CKF_GENERATE},
	ck.CKM_CHACHA20_KEY_GEN:          {MinKeySize: 32, MaxKeySize: 32, Flags: ck.CKF_GENERATE},
	ck.CKM_RSA_PKCS_KEY_PAIR_GEN:     {MinKeySize: 1024, MaxKeySize: 4096, Flags: ck.CKF_GENERATE_KEY_PAIR},
	ck.CKM_EC_KEY_PAIR_GEN:           {MinKeySize: 256, MaxKeySize: 521, Flags: ck.CKF_GENERATE_KEY_PAIR},
	ck.CKM_AES_CBC:                   {MinKeySize: 16, MaxKeySize: 32, Flags: flagsCipher},
	ck.CKM_AES_CBC_PAD:               {MinKeySize: 16, MaxKeySize: 32, Flags: flagsCipher | flagsWrap},
	ck.CKM_AES_GCM:                   {MinKeySize: 16, MaxKeySize: 32, Flags: flagsCipher | flagsWrap | flagsMessage},
	ck.CKM_CHACHA20_POLY1305:         {MinKeySize: 32, MaxKeySize: 32, Flags: flagsCipher | flagsMessage},
	ck.CKM_RSA_PKCS:                  {MinKeySize: 1024, MaxKeySize: 4096, Flags: flagsCipher | flagsSign},
	ck.CKM_RSA_PKCS_OAEP:             {MinKeySize: 1024, MaxKeySize: 4096, Flags: flagsCipher | flagsWrap},
	ck.CKM_RSA_PKCS_PSS:              {MinKeySize: 1024, MaxKeySize: 4096, Flags: flagsSign},
	ck.CKM_SHA1_RSA_PKCS:             {MinKeySize: 1024, MaxKeySize: 4096, Flags: flagsSign},
	ck.CKM_SHA224_RSA_PKCS:           {MinKeySize: 1024, MaxKeySize: 4096, Flags: flagsSign},
	ck.CKM_SHA256_RSA_PKCS:           {MinKeySize: 1024, MaxKeySize: 4096, Flags: flagsSign},
	ck.CKM_SHA384_RSA_PKCS:           {MinKeySize: 1024, MaxKeySize: 4096, Flags: flagsSign},
	ck.CKM_SHA512_RSA_PKCS:           {MinKeySize: 1024, MaxKeySize: 4096, Flags: flagsSign},
	ck.CKM_SHA1_RSA_PKCS_PSS:         {MinKeySize: 1024, MaxKeySize: 4096, Flags: flagsSign},
	ck.CKM_SHA224_RSA_PKCS_PSS:       {MinKeySize: 1024, MaxKeySize: 4096, Flags: flagsSign},
	ck.CKM_SHA256_RSA_PKCS_PSS:       {MinKeySize: 1024, MaxKeySize: 4096, Flags: flagsSign},
	ck.CKM_SHA384_RSA_PKCS_PSS:       {MinKeySize: 1024, MaxKeySize: 4096, Flags: flagsSign},
	ck.CKM_SHA512_RSA_PKCS_PSS:       {MinKeySize: 1024, MaxKeySize: 4096, Flags: flagsSign},
	ck.CKM_ECDSA:                     {MinKeySize: 256, MaxKeySize: 521, Flags: flagsSign},
	ck.CKM_ECDSA_SHA1:                {MinKeySize: 256, MaxKeySize: 521, Flags: flagsSign},
	ck.CKM_ECDSA_SHA224:              {MinKeySize: 256, MaxKeySize: 521, Flags: flagsSign},
	ck.CKM_ECDSA_SHA256:              {MinKeySize: 256, MaxKeySize: 521, Flags: flagsSign},
	ck.CKM_ECDSA_SHA384:              {MinKeySize: 256, MaxKeySize: 521, Flags: flagsSign},
	ck.CKM_ECDSA_SHA512:              {MinKeySize: 256, MaxKeySize: 521, Flags: flagsSign},
	ck.CKM_SHA_1_HMAC:                {MinKeySize: 1, MaxKeySize: 512, Flags: flagsSign | flagsMsgSign},
	ck.CKM_SHA224_HMAC:               {MinKeySize: 1, MaxKeySize: 512, Flags: flagsSign | flagsMsgSign},
	ck.CKM_SHA256_HMAC:               {MinKeySize: 1, MaxKeySize: 512, Flags: flagsSign | flagsMsgSign},
	ck.CKM_SHA384_HMAC:               {MinKeySize: 1, MaxKeySize: 512, Flags: flagsSign | flagsMsgSign},
	ck.CKM_SHA512_HMAC:               {MinKeySize: 1, MaxKeySize: 512, Flags: flagsSign | flagsMsgSign},
	ck.CKM_SHA_1:                     {Flags: ck.CKF_DIGEST},
	ck.CKM_SHA224:                    {Flags: ck.CKF_DIGEST},
	ck.CKM_SHA256:                    {Flags: ck.CKF_DIGEST},
	ck.CKM_SHA384:                    {Flags: ck.CKF_DIGEST},
	ck.CKM_SHA512:                    {Flags: ck.CKF_DIGEST},
	ck.CKM_SHA3_224:                  {Flags: ck.CKF_DIGEST},
	ck.CKM_SHA3_256:                  {Flags: ck.CKF_DIGEST},
	ck.CKM_SHA3_384:                  {Flags: ck.CKF_DIGEST},
	ck.CKM_SHA3_512:                  {Flags: ck.CKF_DIGEST},
	ck.CKM_HKDF_DERIVE:               {MinKeySize: 1, MaxKeySize: 512, Flags: ck.CKF_DERIVE},
	ck.CKM_ECDH1_DERIVE:              {MinKeySize: 256, MaxKeySize: 521, Flags: ck.CKF_DERIVE},
	ck.CKM_CONCATENATE_BASE_AND_DATA: {MinKeySize: 1, MaxKeySize: 512, Flags: ck.CKF_DERIVE},
	ck.CKM_CONCATENATE_DATA_AND_BASE: {MinKeySize: 1, MaxKeySize: 512, Flags: ck.CKF_DERIVE},
}

// hashAlg pairs a digest mechanism with its Go implementation.
type hashAlg struct {
	id  crypto.Hash
	new func() hash.Hash
}

var digests = map[uint64]hashAlg{
	ck.CKM_SHA_1:    {crypto.SHA1, sha1.New},
	ck.CKM_SHA224:   {crypto.SHA224, sha256.New224},
	ck.CKM_SHA256:   {crypto.SHA256, sha256.New},
	ck.CKM_SHA384:   {crypto.SHA384, sha512.New384},
	ck.CKM_SHA512:   {crypto.SHA512, sha512.New},
	ck.CKM_SHA3_224: {crypto.SHA3_224, sha3.New224},
	ck.CKM_SHA3_256: {crypto.SHA3_256, sha3.New256},
	ck.CKM_SHA3_384: {crypto.SHA3_384, sha3.New384},
	ck.CKM_SHA3_512: {crypto.SHA3_512, sha3.New512},
}

// hmacDigest maps HMAC mechanisms to their digest mechanism.
var hmacDigest = map[uint64]uint64{
	ck.CKM_SHA_1_HMAC:  ck.CKM_SHA_1,
	ck.CKM_SHA224_HMAC: ck.CKM_SHA224,
	ck.CKM_SHA256_HMAC: ck.CKM_SHA256,
	ck.CKM_SHA384_HMAC: ck.CKM_SHA384,
	ck.CKM_SHA512_HMAC: ck.CKM_SHA512,
}

// hashedSign maps hash-then-sign mechanisms to their digest mechanism.
var hashedSign = map[uint64]uint64{
	ck.CKM_SHA1_RSA_PKCS:       ck.CKM_SHA_1,
	ck.CKM_SHA224_RSA_PKCS:     ck.CKM_SHA224,
	ck.CKM_SHA256_RSA_PKCS:     ck.CKM_SHA256,
	ck.CKM_SHA384_RSA_PKCS:     ck.CKM_SHA384,
	ck.CKM_SHA512_RSA_PKCS:     ck.CKM_SHA512,
	ck.CKM_SHA1_RSA_PKCS_PSS:   ck.CKM_SHA_1,
	ck.CKM_SHA224_RSA_PKCS_PSS: ck.CKM_SHA224,
	ck.CKM_SHA256_RSA_PKCS_PSS: ck.CKM_SHA256,
	ck.CKM_SHA384_RSA_PKCS_PSS: ck.CKM_SHA384,
	ck.CKM_SHA512_RSA_PKCS_PSS: ck.CKM_SHA512,
	ck.CKM_ECDSA_SHA1:          ck.CKM_SHA_1,
	ck.CKM_ECDSA_SHA224:        ck.CKM_SHA224,
	ck.CKM_ECDSA_SHA256:        ck.CKM_SHA256,
	ck.CKM_ECDSA_SHA384:        ck.CKM_SHA384,
	ck.CKM_ECDSA_SHA512:        ck.CKM_SHA512,
}

// mgfDigest maps MGF1 generators to their digest mechanism.
var mgfDigest = map[uint64]uint64{
	ck.CKG_MGF1_SHA1:   ck.CKM_SHA_1,
	ck.CKG_MGF1_SHA224: ck.CKM_SHA224,
	ck.CKG_MGF1_SHA256: ck.CKM_SHA256,
	ck.CKG_MGF1_SHA384: ck.CKM_SHA384,
	ck.CKG_MGF1_SHA512: ck.CKM_SHA512,
}

// kdfDigest maps ECDH key derivation functions to their digest mechanism.
var kdfDigest = map[uint64]uint64{
	ck.CKD_SHA1_KDF:   ck.CKM_SHA_1,
	ck.CKD_SHA224_KDF: ck.CKM_SHA224,
	ck.CKD_SHA256_KDF: ck.CKM_SHA256,
	ck.CKD_SHA384_KDF: ck.CKM_SHA384,
	ck.CKD_SHA512_KDF: ck.CKM_SHA512,
}

func isPSS(mech uint64) bool {
	switch mech {
	case ck.CKM_RSA_PKCS_PSS, ck.CKM_SHA1_RSA_PKCS_PSS, ck.CKM_SHA224_RSA_PKCS_PSS,
		ck.CKM_SHA256_RSA_PKCS_PSS, ck.CKM_SHA384_RSA_PKCS_PSS, ck.CKM_SHA512_RSA_PKCS_PSS:
		return true
	}
	return false
}

func isECDSA(mech uint64) bool {
	switch mech {
	case ck.CKM_ECDSA, ck.CKM_ECDSA_SHA1, ck.CKM_ECDSA_SHA224, ck.CKM_ECDSA_SHA256,
		ck.CKM_ECDSA_SHA384, ck.CKM_ECDSA_SHA512:
		return true
	}
	return false
}
