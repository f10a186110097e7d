package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signWithExpiry(secret, userID string, expiresAt time.Time) (string, error) {
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func TestJWT(t *testing.T) {
	const secret = "test-secret"

	t.Run("SignAndParseToken", func(t *testing.T) {
		userID := "u-123"
		token, err := SignToken(secret, userID)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		claims, err := ParseToken(secret, token)
		if err != nil {
			t.Fatalf("failed to parse token: %v", err)
		}

		if claims.UserID != userID {
			t.Errorf("expected userID %q, got %q", userID, claims.UserID)
		}
	})

	t.Run("MissingSecret", func(t *testing.T) {
		if _, err := SignToken("", "u-123"); err == nil {
			t.Error("expected error when secret is empty")
		}
		if _, err := ParseToken("", "some-token"); err == nil {
			t.Error("expected error when secret is empty")
		}
	})

	t.Run("InvalidToken", func(t *testing.T) {
		if _, err := ParseToken(secret, "invalid-token-string"); err == nil {
			t.Error("expected error for invalid token")
		}
	})

	t.Run("WrongSecretRejected", func(t *testing.T) {
		token, err := SignToken(secret, "u-123")
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		if _, err := ParseToken("a-different-secret", token); err == nil {
			t.Error("expected error when parsing with the wrong secret")
		}
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		// Build an already-expired token directly rather than waiting out
		// the 12h TTL.
		expired, err := signWithExpiry(secret, "u-123", time.Now().Add(-time.Minute))
		if err != nil {
			t.Fatalf("failed to build expired token: %v", err)
		}
		if _, err := ParseToken(secret, expired); err == nil {
			t.Error("expected error for expired token")
		}
	})
}
