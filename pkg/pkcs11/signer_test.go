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

//go:build pkcs11

package pkcs11

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoki/pkg/logging"
)

func TestOpenSignersValidation(t *testing.T) {
	_, err := OpenSigners(nil)
	assert.ErrorIs(t, err, ErrLoadLibrary)

	slot := 0
	_, err = OpenSigners(&SignerConfig{Library: "/nonexistent.so", TokenLabel: "a", Slot: &slot})
	assert.Error(t, err)

	_, err = OpenSigners(&SignerConfig{Library: "/nonexistent.so"})
	assert.Error(t, err)
}

// TestSignersSoftHSM needs an initialized SoftHSM token labelled
// CRYPTOKI_TEST_TOKEN in the library named by CRYPTOKI_TEST_LIBRARY.
func TestSignersSoftHSM(t *testing.T) {
	library := os.Getenv("CRYPTOKI_TEST_LIBRARY")
	label := os.Getenv("CRYPTOKI_TEST_TOKEN")
	if library == "" || label == "" || os.Getenv("SOFTHSM2_CONF") == "" {
		t.Skip("CRYPTOKI_TEST_LIBRARY, CRYPTOKI_TEST_TOKEN and SOFTHSM2_CONF must be set")
	}

	config := &SignerConfig{
		Library:    library,
		TokenLabel: label,
		PIN:        os.Getenv("CRYPTOKI_TEST_PIN"),
		Logger:     logging.Discard(),
	}
	signers, err := OpenSigners(config)
	require.NoError(t, err)
	shared, err := OpenSigners(config)
	require.NoError(t, err)
	require.NoError(t, shared.Close())
	defer signers.Close()

	id := []byte("signer-test")
	signer, err := signers.GenerateECDSA(id, id, elliptic.P256())
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("message"))
	sig, err := signer.Sign(rand.Reader, digest[:], crypto.SHA256)
	require.NoError(t, err)
	pub, ok := signer.Public().(*ecdsa.PublicKey)
	require.True(t, ok)
	assert.True(t, ecdsa.VerifyASN1(pub, digest[:], sig))

	found, err := signers.FindSigner(id, nil)
	require.NoError(t, err)
	assert.True(t, pub.Equal(found.Public()))

	_, err = signers.FindSigner([]byte("missing"), nil)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
