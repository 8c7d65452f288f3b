package auth

import (
	"testing"
	"time"

	"github.com/apigate-dev/apigate/pkg/config"
)

func TestStaticTokenSource(t *testing.T) {
	source := NewStaticTokenSource("api-key-123")

	token, err := source.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "api-key-123" {
		t.Errorf("Expected token 'api-key-123', got %s", token)
	}
}

func TestStaticTokenSourceEmpty(t *testing.T) {
	source := NewStaticTokenSource("")

	if _, err := source.Token(); err == nil {
		t.Error("Expected error for empty static token")
	}
}

func TestJWTTokenSourceMint(t *testing.T) {
	cfg := config.JWTConfig{
		SecretKey:      "test-secret",
		Issuer:         "apigate-test",
		Subject:        "service-a",
		Audience:       "api.example.com",
		ExpiryDuration: time.Hour,
	}

	source, err := NewJWTTokenSource(cfg)
	if err != nil {
		t.Fatalf("NewJWTTokenSource failed: %v", err)
	}

	token, err := source.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token == "" {
		t.Fatal("Expected non-empty token")
	}

	claims, err := source.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}

	if claims.Issuer != "apigate-test" {
		t.Errorf("Expected issuer 'apigate-test', got %s", claims.Issuer)
	}
	if claims.Subject != "service-a" {
		t.Errorf("Expected subject 'service-a', got %s", claims.Subject)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "api.example.com" {
		t.Errorf("Unexpected audience: %v", claims.Audience)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(time.Now()) {
		t.Error("Expected token to expire in the future")
	}
}

func TestJWTTokenSourceCaching(t *testing.T) {
	cfg := config.JWTConfig{
		SecretKey:      "test-secret",
		ExpiryDuration: time.Hour,
	}

	source, err := NewJWTTokenSource(cfg)
	if err != nil {
		t.Fatalf("NewJWTTokenSource failed: %v", err)
	}

	first, err := source.Token()
	if err != nil {
		t.Fatalf("First Token failed: %v", err)
	}
	second, err := source.Token()
	if err != nil {
		t.Fatalf("Second Token failed: %v", err)
	}

	if first != second {
		t.Error("Expected cached token to be reused within its lifetime")
	}
}

func TestJWTTokenSourceRemintsNearExpiry(t *testing.T) {
	// An expiry shorter than the renewal margin forces a fresh mint on
	// every call.
	cfg := config.JWTConfig{
		SecretKey:      "test-secret",
		ExpiryDuration: time.Second,
	}

	source, err := NewJWTTokenSource(cfg)
	if err != nil {
		t.Fatalf("NewJWTTokenSource failed: %v", err)
	}

	if _, err := source.Token(); err != nil {
		t.Fatalf("First Token failed: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	token, err := source.Token()
	if err != nil {
		t.Fatalf("Second Token failed: %v", err)
	}
	if _, err := source.ParseToken(token); err != nil {
		t.Errorf("Re-minted token should be valid: %v", err)
	}
}

func TestJWTTokenSourceValidation(t *testing.T) {
	if _, err := NewJWTTokenSource(config.JWTConfig{ExpiryDuration: time.Hour}); err == nil {
		t.Error("Expected error for missing secret key")
	}

	if _, err := NewJWTTokenSource(config.JWTConfig{SecretKey: "s"}); err == nil {
		t.Error("Expected error for zero expiry duration")
	}
}

func TestParseTokenRejectsWrongKey(t *testing.T) {
	cfg := config.JWTConfig{SecretKey: "key-one", ExpiryDuration: time.Hour}
	source, err := NewJWTTokenSource(cfg)
	if err != nil {
		t.Fatalf("NewJWTTokenSource failed: %v", err)
	}

	token, err := source.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	other, err := NewJWTTokenSource(config.JWTConfig{SecretKey: "key-two", ExpiryDuration: time.Hour})
	if err != nil {
		t.Fatalf("NewJWTTokenSource failed: %v", err)
	}

	if _, err := other.ParseToken(token); err == nil {
		t.Error("Expected parse failure with a different key")
	}
}

func TestFromConfig(t *testing.T) {
	source, err := FromConfig(config.AuthConfig{Type: "none"})
	if err != nil {
		t.Fatalf("FromConfig(none) failed: %v", err)
	}
	if source != nil {
		t.Error("Expected nil token source for auth type 'none'")
	}

	source, err = FromConfig(config.AuthConfig{Type: "bearer", Token: "abc"})
	if err != nil {
		t.Fatalf("FromConfig(bearer) failed: %v", err)
	}
	if token, _ := source.Token(); token != "abc" {
		t.Errorf("Expected bearer token 'abc', got %s", token)
	}

	if _, err := FromConfig(config.AuthConfig{Type: "bearer"}); err == nil {
		t.Error("Expected error for bearer auth without token")
	}

	source, err = FromConfig(config.AuthConfig{
		Type: "jwt",
		JWT:  config.JWTConfig{SecretKey: "s", ExpiryDuration: time.Hour},
	})
	if err != nil {
		t.Fatalf("FromConfig(jwt) failed: %v", err)
	}
	if _, ok := source.(*JWTTokenSource); !ok {
		t.Errorf("Expected JWTTokenSource, got %T", source)
	}

	if _, err := FromConfig(config.AuthConfig{Type: "basic"}); err == nil {
		t.Error("Expected error for unsupported auth type")
	}
}
