package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/patrickmn/go-cache"
)

// KeycloakConfig конфигурация для Keycloak
type KeycloakConfig struct {
	ServerURL string
	Realm     string
	ClientID  string
	// SkipClientIDCheck отключает проверку aud: токены client credentials выпускаются на "account"
	SkipClientIDCheck bool
}

// KeycloakClaims представляет собой структуру claims из токена Keycloak
type KeycloakClaims struct {
	UserID      string `json:"sub"`
	Username    string `json:"preferred_username"`
	Email       string `json:"email"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
}

// KeycloakClient проверяет токены, выпущенные Keycloak
type KeycloakClient struct {
	verifier   *oidc.IDTokenVerifier
	tokenCache *cache.Cache
	clientID   string
}

// NewKeycloakClient создает новый клиент Keycloak, загружая метаданные провайдера
func NewKeycloakClient(ctx context.Context, cfg KeycloakConfig) (*KeycloakClient, error) {
	providerURL := fmt.Sprintf("%s/realms/%s", cfg.ServerURL, cfg.Realm)

	provider, err := oidc.NewProvider(ctx, providerURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания OIDC провайдера: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID:          cfg.ClientID,
		SkipClientIDCheck: cfg.SkipClientIDCheck,
	})

	return NewKeycloakClientWithVerifier(verifier, cfg.ClientID), nil
}

// NewKeycloakClientWithVerifier создает клиент поверх готового верификатора
func NewKeycloakClientWithVerifier(verifier *oidc.IDTokenVerifier, clientID string) *KeycloakClient {
	return &KeycloakClient{
		verifier:   verifier,
		tokenCache: cache.New(5*time.Minute, 10*time.Minute),
		clientID:   clientID,
	}
}

// ValidateToken проверяет JWT токен и возвращает claims
func (k *KeycloakClient) ValidateToken(ctx context.Context, tokenString string) (*KeycloakClaims, error) {
	if cachedClaims, found := k.tokenCache.Get(tokenString); found {
		return cachedClaims.(*KeycloakClaims), nil
	}

	idToken, err := k.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("ошибка верификации токена: %w", err)
	}

	var claims KeycloakClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("ошибка извлечения claims: %w", err)
	}

	expiresIn := time.Until(idToken.Expiry)
	if expiresIn > 0 {
		k.tokenCache.Set(tokenString, &claims, expiresIn)
	}

	return &claims, nil
}

// Roles объединяет роли realm и роли клиента
func (k *KeycloakClient) Roles(claims *KeycloakClaims) []string {
	roles := append([]string{}, claims.RealmAccess.Roles...)
	if clientRoles, exists := claims.ResourceAccess[k.clientID]; exists {
		roles = append(roles, clientRoles.Roles...)
	}
	return roles
}

// VerifyToken реализует interfaces.AuthPort
func (k *KeycloakClient) VerifyToken(ctx context.Context, token string) (*interfaces.Principal, error) {
	claims, err := k.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	subject := claims.Username
	if subject == "" {
		subject = claims.UserID
	}

	return &interfaces.Principal{Subject: subject, Roles: k.Roles(claims)}, nil
}

var _ interfaces.AuthPort = (*KeycloakClient)(nil)
