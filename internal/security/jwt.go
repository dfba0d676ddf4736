package security

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrSigningKeyless = errors.New("private key is not configured")
)

// JWTManager выпускает и проверяет RS256-токены сервисных клиентов
type JWTManager struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiration time.Duration
	issuer     string
}

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

func NewJWTManager(privateKeyPEM, publicKeyPEM []byte, expiration time.Duration, issuer string) (*JWTManager, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	m, err := NewJWTVerifier(publicKeyPEM, issuer)
	if err != nil {
		return nil, err
	}

	m.privateKey = privateKey
	m.expiration = expiration
	return m, nil
}

// NewJWTVerifier создает менеджер только для проверки токенов
func NewJWTVerifier(publicKeyPEM []byte, issuer string) (*JWTManager, error) {
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	return &JWTManager{
		publicKey: publicKey,
		issuer:    issuer,
	}, nil
}

func (m *JWTManager) Generate(subject string, roles []string) (string, error) {
	if m.privateKey == nil {
		return "", ErrSigningKeyless
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   subject,
		},
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(m.privateKey)
}

func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.publicKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// VerifyToken реализует interfaces.AuthPort
func (m *JWTManager) VerifyToken(_ context.Context, token string) (*interfaces.Principal, error) {
	claims, err := m.Validate(token)
	if err != nil {
		return nil, err
	}

	return &interfaces.Principal{Subject: claims.Subject, Roles: claims.Roles}, nil
}

var _ interfaces.AuthPort = (*JWTManager)(nil)
