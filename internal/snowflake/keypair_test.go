package snowflake

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sf "github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestKey(t *testing.T, pkcs1 bool) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	if !pkcs1 {
		der, err := x509.MarshalPKCS8PrivateKey(key)
		require.NoError(t, err)
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	}
	path := filepath.Join(t.TempDir(), "rsa_key.p8")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path, key
}

func TestLoadPrivateKey(t *testing.T) {
	for _, pkcs1 := range []bool{false, true} {
		path, want := writeTestKey(t, pkcs1)
		got, err := LoadPrivateKey(path)
		require.NoError(t, err)
		assert.True(t, want.Equal(got))
	}

	_, err := ParsePrivateKey([]byte("not pem"))
	assert.Error(t, err)

	_, err = ParsePrivateKey(pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: []byte{1}}))
	assert.ErrorContains(t, err, "encrypted")
}

func TestFingerprint(t *testing.T) {
	_, key := writeTestKey(t, false)
	fp, err := Fingerprint(key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fp, "SHA256:"))
	assert.Len(t, strings.TrimPrefix(fp, "SHA256:"), 44)

	again, err := Fingerprint(key)
	require.NoError(t, err)
	assert.Equal(t, fp, again)
}

func TestDriverConfig(t *testing.T) {
	path, _ := writeTestKey(t, false)

	cfg, err := driverConfig(Config{Account: "acme-xy123", User: "SVC", PrivateKeyPath: path, Warehouse: "SEARCH_WH"})
	require.NoError(t, err)
	assert.Equal(t, sf.AuthTypeJwt, cfg.Authenticator)
	assert.NotNil(t, cfg.PrivateKey)
	assert.Equal(t, "SEARCH_WH", cfg.Warehouse)

	cfg, err = driverConfig(Config{Account: "acme", User: "SVC", Token: "pat-secret"})
	require.NoError(t, err)
	assert.Equal(t, "pat-secret", cfg.Password)

	_, err = driverConfig(Config{Account: "acme", User: "SVC"})
	assert.Error(t, err)

	_, err = driverConfig(Config{User: "SVC", Password: "x"})
	assert.Error(t, err)
}
