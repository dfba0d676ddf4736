package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/logger"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const (
	testIssuer   = "https://keycloak.local/realms/market"
	testClientID = "catalog-sync"
)

type stubVerifier map[string]*interfaces.Principal

func (s stubVerifier) VerifyToken(_ context.Context, token string) (*interfaces.Principal, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return nil, errors.New("unknown token")
}

func TestAuthMiddlewareAndRequireRole(t *testing.T) {
	log := logger.NewFromZap(zaptest.NewLogger(t), zap.NewAtomicLevel())
	verifier := stubVerifier{
		"sync-token":    {Subject: "crud", Roles: []string{"catalog:sync"}},
		"indexer-token": {Subject: "indexer", Roles: []string{"catalog:indexer"}},
		"admin-token":   {Subject: "ops", Roles: []string{"admin"}},
	}

	handler := AuthMiddleware(verifier, log)(RequireRole("catalog:sync")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(p.Subject))
	})))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "no header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "missing role", header: "Bearer indexer-token", status: http.StatusForbidden},
		{name: "role granted", header: "Bearer sync-token", status: http.StatusOK},
		{name: "admin allowed", header: "Bearer admin-token", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func signKeycloakToken(t *testing.T, key *rsa.PrivateKey, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":                testIssuer,
		"aud":                testClientID,
		"sub":                "0b6f-svc",
		"preferred_username": "service-account-indexer",
		"exp":                expiresAt.Unix(),
		"iat":                time.Now().Unix(),
		"realm_access":       map[string]any{"roles": []string{"offline_access"}},
		"resource_access": map[string]any{
			testClientID: map[string]any{"roles": []string{"catalog:indexer"}},
		},
	})

	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func newTestKeycloak(t *testing.T) (*KeycloakClient, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	verifier := oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: testClientID})

	return NewKeycloakClientWithVerifier(verifier, testClientID), key
}

func TestKeycloakClient_VerifyToken(t *testing.T) {
	client, key := newTestKeycloak(t)
	token := signKeycloakToken(t, key, time.Now().Add(time.Minute))

	principal, err := client.VerifyToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "service-account-indexer", principal.Subject)
	assert.ElementsMatch(t, []string{"offline_access", "catalog:indexer"}, principal.Roles)
	assert.True(t, principal.HasRole("catalog:indexer"))

	// повторная проверка обслуживается из кэша
	cached, err := client.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "0b6f-svc", cached.UserID)
}

func TestKeycloakClient_RejectsExpiredAndForeignTokens(t *testing.T) {
	client, key := newTestKeycloak(t)

	_, err := client.VerifyToken(context.Background(), signKeycloakToken(t, key, time.Now().Add(-time.Minute)))
	assert.Error(t, err)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, err = client.VerifyToken(context.Background(), signKeycloakToken(t, otherKey, time.Now().Add(time.Minute)))
	assert.Error(t, err)
}
