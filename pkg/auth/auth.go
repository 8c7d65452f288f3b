// Package auth provides credential sources for the apigate client
package auth

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/apigate-dev/apigate/pkg/config"
)

// TokenSource supplies the bearer credential attached to outgoing
// requests. Implementations must be safe for concurrent use.
type TokenSource interface {
	// Token returns the current credential. The gateway sends it as
	// "Authorization: Bearer <token>".
	Token() (string, error)
}

// StaticTokenSource returns a fixed credential, such as an API key.
type StaticTokenSource struct {
	token string
}

// NewStaticTokenSource creates a token source that always returns token.
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

// Token returns the configured credential.
func (s *StaticTokenSource) Token() (string, error) {
	if s.token == "" {
		return "", fmt.Errorf("static token source has no token")
	}
	return s.token, nil
}

// Claims represents the JWT claims minted by JWTTokenSource
type Claims struct {
	jwt.RegisteredClaims
}

// JWTTokenSource mints short-lived HS256 tokens from a shared secret and
// caches them until close to expiry. This is the usual arrangement for
// service-to-service APIs that accept self-signed JWTs.
type JWTTokenSource struct {
	cfg config.JWTConfig
	key []byte

	mu      sync.Mutex
	current string
	expires time.Time
}

// renewMargin is how long before expiry a cached token is re-minted.
const renewMargin = 30 * time.Second

// NewJWTTokenSource creates a JWT token source from configuration.
func NewJWTTokenSource(cfg config.JWTConfig) (*JWTTokenSource, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("JWT secret key is required")
	}
	if cfg.ExpiryDuration <= 0 {
		return nil, fmt.Errorf("invalid JWT expiry duration: %s", cfg.ExpiryDuration)
	}

	return &JWTTokenSource{
		cfg: cfg,
		key: []byte(cfg.SecretKey),
	}, nil
}

// Token returns a valid signed token, minting a new one when the cached
// token is absent or within the renewal margin of its expiry.
func (s *JWTTokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != "" && time.Now().Add(renewMargin).Before(s.expires) {
		return s.current, nil
	}

	token, expires, err := s.mint()
	if err != nil {
		return "", err
	}

	s.current = token
	s.expires = expires
	return token, nil
}

// mint signs a fresh token
func (s *JWTTokenSource) mint() (string, time.Time, error) {
	now := time.Now()
	expirationTime := now.Add(s.cfg.ExpiryDuration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   s.cfg.Subject,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expirationTime, nil
}

// ParseToken validates a token minted by this source and returns its
// claims. Exposed so callers can verify what the gateway will send.
func (s *JWTTokenSource) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// FromConfig builds a TokenSource from auth configuration. It returns
// nil when cfg.Type is "none" or empty.
func FromConfig(cfg config.AuthConfig) (TokenSource, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "none":
		return nil, nil
	case "bearer":
		if cfg.Token == "" {
			return nil, fmt.Errorf("auth token is required for bearer auth")
		}
		return NewStaticTokenSource(cfg.Token), nil
	case "jwt":
		return NewJWTTokenSource(cfg.JWT)
	default:
		return nil, fmt.Errorf("unsupported auth type: %s", cfg.Type)
	}
}
