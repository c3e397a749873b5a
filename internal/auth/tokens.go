package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	verifyEmailTokenTTL   = 48 * time.Hour
	resetPasswordTokenTTL = 1 * time.Hour
)

// creates a signed single-purpose token for email verification or
// password reset links
func GenerateActionToken(userID, purpose string) (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", fmt.Errorf("JWT_SECRET not set")
	}

	ttl := verifyEmailTokenTTL
	if purpose == PurposeResetPassword {
		ttl = resetPasswordTokenTTL
	}

	claims := ActionClaims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// validates an action token and checks it was issued for the expected
// purpose
func ParseActionToken(tokenString, expectedPurpose string) (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", fmt.Errorf("JWT_SECRET not set")
	}

	token, err := jwt.ParseWithClaims(tokenString, &ActionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return []byte(secret), nil
	})

	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*ActionClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	if claims.Purpose != expectedPurpose {
		return "", fmt.Errorf("token issued for %q, expected %q", claims.Purpose, expectedPurpose)
	}

	return claims.UserID, nil
}
