package security

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T) (privatePEM, publicPEM []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})

	return privatePEM, publicPEM
}

func TestJWTManager_GenerateAndVerify(t *testing.T) {
	privatePEM, publicPEM := testKeys(t)

	manager, err := NewJWTManager(privatePEM, publicPEM, time.Minute, "catalog")
	require.NoError(t, err)

	token, err := manager.Generate("indexer", []string{"catalog:indexer"})
	require.NoError(t, err)

	verifier, err := NewJWTVerifier(publicPEM, "catalog")
	require.NoError(t, err)

	principal, err := verifier.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "indexer", principal.Subject)
	assert.True(t, principal.HasRole("catalog:indexer"))
	assert.False(t, principal.HasRole("catalog:sync"))
}

func TestJWTManager_Expired(t *testing.T) {
	privatePEM, publicPEM := testKeys(t)

	manager, err := NewJWTManager(privatePEM, publicPEM, -time.Minute, "catalog")
	require.NoError(t, err)

	token, err := manager.Generate("svc", nil)
	require.NoError(t, err)

	_, err = manager.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_RejectsForeignIssuerAndKey(t *testing.T) {
	privatePEM, publicPEM := testKeys(t)
	_, otherPublicPEM := testKeys(t)

	manager, err := NewJWTManager(privatePEM, publicPEM, time.Minute, "someone-else")
	require.NoError(t, err)
	token, err := manager.Generate("svc", []string{"admin"})
	require.NoError(t, err)

	verifier, err := NewJWTVerifier(publicPEM, "catalog")
	require.NoError(t, err)
	_, err = verifier.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewJWTVerifier(otherPublicPEM, "")
	require.NoError(t, err)
	_, err = foreign.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = verifier.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_CannotSign(t *testing.T) {
	_, publicPEM := testKeys(t)
	verifier, err := NewJWTVerifier(publicPEM, "")
	require.NoError(t, err)

	_, err = verifier.Generate("svc", nil)
	assert.ErrorIs(t, err, ErrSigningKeyless)
}
