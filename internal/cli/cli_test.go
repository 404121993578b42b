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

package cli

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoki/internal/config"
	"github.com/jeremyhahn/go-cryptoki/internal/testutil"
	"github.com/jeremyhahn/go-cryptoki/pkg/encoding"
)

// softTokenConfig writes a config for a file-backed software token with a
// user PIN and returns its path.
func softTokenConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Soft.Store = config.StoreFile
	cfg.Soft.Path = filepath.Join(dir, "token")
	cfg.Soft.Label = "cli-test"
	cfg.Soft.PIN = "1234"
	cfg.Logging.Level = "error"
	path := filepath.Join(dir, "p11ctl.yaml")
	require.NoError(t, cfg.Write(path))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

func decodeJSON(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m), out)
	return m
}

func TestVersion(t *testing.T) {
	m := decodeJSON(t, mustRun(t, "version", "-o", "json"))
	assert.Equal(t, Version, m["version"])
	assert.NotEmpty(t, m["symbols"])
	assert.NotEmpty(t, m["go_version"])
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := run(t, "", "version", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestSymbols(t *testing.T) {
	out := mustRun(t, "symbols", "name", "mechanism", "CKM_SHA256")
	assert.Equal(t, "CKM_SHA256 = 0x00000250\n", out)

	m := decodeJSON(t, mustRun(t, "symbols", "lookup", "mechanism", "0x250", "-o", "json"))
	assert.Equal(t, "CKM_SHA256", m["name"])
	assert.Equal(t, "mechanism", m["category"])

	out = mustRun(t, "symbols", "list", "object-class")
	assert.Contains(t, out, "CKO_SECRET_KEY")

	_, err := run(t, "", "symbols", "lookup", "colour", "1")
	assert.ErrorContains(t, err, "unknown category")

	_, err = run(t, "", "symbols", "lookup", "mechanism", "banana")
	assert.ErrorContains(t, err, "invalid code")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p11ctl.yaml")
	out := mustRun(t, "config", "init", path)
	assert.Contains(t, out, path)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = run(t, "", "config", "init", path)
	assert.Error(t, err, "an existing file is not overwritten")
}

func TestConfigShow(t *testing.T) {
	cfgPath := softTokenConfig(t)
	out := mustRun(t, "--config", cfgPath, "config", "show")
	assert.Contains(t, out, "store: file")
	assert.Contains(t, out, "label: cli-test")

	m := decodeJSON(t, mustRun(t, "--config", cfgPath, "--soft-store", "sqlite", "config", "show", "-o", "json"))
	soft, ok := m["Soft"].(map[string]any)
	require.True(t, ok, "soft section missing: %v", m)
	assert.Equal(t, config.StoreSQLite, soft["Store"], "flags override the file")
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, "", "objects", "list", "--soft-store", "file")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestDigest(t *testing.T) {
	out := mustRun(t, "digest", "--data", "abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad\n", out)

	out, err := run(t, "abc", "digest", "-m", "SHA256")
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad\n", out)

	_, err = run(t, "", "digest", "-m", "CKM_NOPE", "--data", "abc")
	assert.ErrorContains(t, err, "unknown mechanism")
}

func TestMechanisms(t *testing.T) {
	m := decodeJSON(t, mustRun(t, "mechanisms", "-o", "json"))
	rows, ok := m["mechanisms"].([]any)
	require.True(t, ok)
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.(map[string]any)["name"].(string))
	}
	assert.Contains(t, names, "CKM_AES_GCM")
	assert.Contains(t, names, "CKM_SHA256_HMAC")
}

func TestKeygenAndObjects(t *testing.T) {
	cfg := softTokenConfig(t)

	m := decodeJSON(t, mustRun(t, "--config", cfg, "keygen", "aes", "--label", "wrap-key", "--id", "0102", "-o", "json"))
	assert.Equal(t, "wrap-key", m["label"])

	_, err := run(t, "", "--config", cfg, "keygen", "aes", "--bits", "100", "--label", "bad")
	assert.ErrorContains(t, err, "invalid AES key size")

	_, err = run(t, "", "--config", cfg, "keygen", "aes")
	assert.Error(t, err, "--label is required")

	var list struct {
		Objects []ObjectInfo `json:"objects"`
	}
	out := mustRun(t, "--config", cfg, "objects", "list", "-o", "json")
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Objects, 1)
	obj := list.Objects[0]
	assert.Equal(t, "wrap-key", obj.Label)
	assert.Equal(t, "CKO_SECRET_KEY", obj.Class)
	assert.Equal(t, "CKK_AES", obj.KeyType)
	assert.Equal(t, "0102", obj.ID)
	assert.True(t, obj.Token)
	assert.True(t, obj.Private)

	out = mustRun(t, "--config", cfg, "objects", "show", "--key", "wrap-key")
	assert.Contains(t, out, "CKA_LABEL")
	assert.Contains(t, out, "CKA_VALUE_LEN")
	assert.NotContains(t, out, "CKA_MODULUS")

	mustRun(t, "--config", cfg, "objects", "delete", "--key", "wrap-key")
	out = mustRun(t, "--config", cfg, "objects", "list")
	assert.Contains(t, out, "No objects found")
}

func TestSignVerify(t *testing.T) {
	cfg := softTokenConfig(t)
	mustRun(t, "--config", cfg, "keygen", "generic", "--label", "mac")

	m := decodeJSON(t, mustRun(t, "--config", cfg, "sign", "--key", "mac", "--data", "hello", "-o", "json"))
	sig, ok := m["signature"].(string)
	require.True(t, ok)
	assert.Len(t, sig, 64)

	out := mustRun(t, "--config", cfg, "verify", "--key", "mac", "--data", "hello", "--signature", sig)
	assert.Equal(t, "Signature valid\n", out)

	_, err := run(t, "", "--config", cfg, "verify", "--key", "mac", "--data", "hullo", "--signature", sig)
	assert.ErrorContains(t, err, "verify failed")

	_, err = run(t, "", "--config", cfg, "verify", "--key", "mac", "--data", "hello")
	assert.ErrorContains(t, err, "a signature is required")

	_, err = run(t, "", "--config", cfg, "sign", "--key", "missing", "--data", "hello")
	assert.ErrorContains(t, err, "sign failed")
}

func TestSignWithECKey(t *testing.T) {
	cfg := softTokenConfig(t)
	m := decodeJSON(t, mustRun(t, "--config", cfg, "keygen", "ec", "--label", "ec-key", "-o", "json"))
	assert.NotZero(t, m["public"])
	assert.NotZero(t, m["private"])

	sigFile := filepath.Join(t.TempDir(), "sig.bin")
	out := mustRun(t, "--config", cfg, "sign", "-m", "ECDSA_SHA256", "--key", "ec-key",
		"--data", "payload", "--out", sigFile)
	assert.Contains(t, out, sigFile)

	raw, err := os.ReadFile(sigFile)
	require.NoError(t, err)
	assert.Len(t, raw, 64)

	mustRun(t, "--config", cfg, "verify", "-m", "ECDSA_SHA256", "--key", "ec-key",
		"--data", "payload", "--signature-file", sigFile)

	pemOut := mustRun(t, "--config", cfg, "objects", "export", "--key", "ec-key")
	pub, err := encoding.DecodePublicKeyPEM([]byte(pemOut))
	require.NoError(t, err)
	ecPub, ok := pub.(*ecdsa.PublicKey)
	require.True(t, ok)
	assert.Equal(t, elliptic.P256(), ecPub.Curve)
}

func TestEncryptDecrypt(t *testing.T) {
	cfg := softTokenConfig(t)
	mustRun(t, "--config", cfg, "keygen", "aes", "--label", "data-key")

	m := decodeJSON(t, mustRun(t, "--config", cfg, "encrypt", "--key", "data-key", "--data", "attack at dawn", "-o", "json"))
	nonce, ok := m["nonce"].(string)
	require.True(t, ok)
	assert.Len(t, nonce, 24)
	ct, ok := m["ciphertext"].(string)
	require.True(t, ok)

	m = decodeJSON(t, mustRun(t, "--config", cfg, "decrypt", "--key", "data-key",
		"--nonce", nonce, "--data", ct, "--hex", "-o", "json"))
	assert.Equal(t, "61747461636b206174206461776e", m["plaintext"])

	_, err := run(t, "", "--config", cfg, "decrypt", "--key", "data-key",
		"--nonce", strings.Repeat("00", 12), "--data", ct, "--hex")
	assert.ErrorContains(t, err, "decrypt failed")
}

func TestImport(t *testing.T) {
	cfg := softTokenConfig(t)
	key := testutil.ECDSAKey(t)
	keyFile := testutil.WriteKeyFile(t, key, "secret")

	_, err := run(t, "", "--config", cfg, "import", keyFile, "--label", "imported")
	assert.Error(t, err, "encrypted file without a password")

	m := decodeJSON(t, mustRun(t, "--config", cfg, "import", keyFile,
		"--label", "imported", "--password", "secret", "-o", "json"))
	assert.Equal(t, "imported", m["label"])

	pemOut := mustRun(t, "--config", cfg, "objects", "export", "--key", "imported")
	pub, err := encoding.DecodePublicKeyPEM([]byte(pemOut))
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))
}

func TestImportRSAFromEnvPassword(t *testing.T) {
	cfg := softTokenConfig(t)
	key := testutil.RSAKey(t, 2048)
	keyFile := testutil.WriteKeyFile(t, key, "from-env")
	t.Setenv(passwordEnv, "from-env")

	mustRun(t, "--config", cfg, "import", keyFile, "--label", "rsa-imported", "--id", "aa")

	m := decodeJSON(t, mustRun(t, "--config", cfg, "sign", "-m", "SHA256_RSA_PKCS",
		"--key-id", "aa", "--data", "payload", "-o", "json"))
	sig, ok := m["signature"].(string)
	require.True(t, ok)
	assert.Len(t, sig, 512)

	mustRun(t, "--config", cfg, "verify", "-m", "SHA256_RSA_PKCS",
		"--key-id", "aa", "--data", "payload", "--signature", sig)
}

func TestLabelValidation(t *testing.T) {
	cfg := softTokenConfig(t)
	_, err := run(t, "", "--config", cfg, "keygen", "aes", "--label", "bad\nlabel")
	assert.ErrorContains(t, err, "control characters")

	_, err = run(t, "", "--pin", "1234\n", "objects", "list")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestSignerRequiresLibrary(t *testing.T) {
	_, err := run(t, "", "signer", "public", "--label", "k")
	assert.ErrorContains(t, err, "requires a pkcs11 token")

	_, err = run(t, "", "signer", "sign", "--data", "x")
	assert.Error(t, err)
}

func TestBenchDigest(t *testing.T) {
	m := decodeJSON(t, mustRun(t, "bench", "--mode", "digest", "-n", "20", "-c", "3", "--pool-size", "2", "-o", "json"))
	assert.EqualValues(t, 20, m["operations"])
	assert.EqualValues(t, 0, m["errors"])
	assert.EqualValues(t, 2, m["pool_size"])
}

func TestBenchHMAC(t *testing.T) {
	cfg := softTokenConfig(t)
	m := decodeJSON(t, mustRun(t, "--config", cfg, "bench", "-n", "10", "-c", "2", "-o", "json"))
	assert.EqualValues(t, 10, m["operations"])

	out := mustRun(t, "--config", cfg, "objects", "list")
	assert.Contains(t, out, "No objects found", "the benchmark key is destroyed")

	_, err := run(t, "", "bench", "--mode", "rsa", "-n", "1")
	assert.ErrorContains(t, err, "unknown benchmark mode")
}
