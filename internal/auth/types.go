package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// represents session JWT claims
type Claims struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// represents single-purpose action token claims (email verification,
// password reset)
type ActionClaims struct {
	UserID  string `json:"user_id"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// action token purposes
const (
	PurposeVerifyEmail   = "verify_email"
	PurposeResetPassword = "reset_password"
)
