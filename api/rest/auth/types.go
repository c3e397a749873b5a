package auth

import (
	"codeberg.org/nexusdigital/identity/nexus/backend"
	"codeberg.org/nexusdigital/identity/nexus/profiles"
	"codeberg.org/nexusdigital/identity/nexus/session"
)

// RegisterRequest creates a new email/password account
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,max=32"`
	RememberMe  bool   `json:"remember_me"`
}

// LoginRequest signs in with email and password
type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// AuthResponse returned after a successful sign-in or registration
type AuthResponse struct {
	Session session.Snapshot `json:"session"`
	Token   string           `json:"token,omitempty"`
}

// SessionResponse wraps the session snapshot
type SessionResponse struct {
	Session session.Snapshot `json:"session"`
}

// UserResponse wraps identity and extended profile data
type UserResponse struct {
	User    *backend.Identity `json:"user"`
	Profile *profiles.Profile `json:"profile,omitempty"`
}

// MessageResponse for simple success messages
type MessageResponse struct {
	Message string `json:"message"`
}

// UpdateProfileRequest for updating display name, phone, and photo
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=100"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=32"`
	PhotoURL    *string `json:"photo_url" binding:"omitempty,max=500"`
}

// UpdateEmailRequest changes the account email
type UpdateEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UpdatePasswordRequest changes the account password
type UpdatePasswordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// ResetPasswordRequest starts a password reset
type ResetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ConfirmResetRequest completes a password reset from a mailed token
type ConfirmResetRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// ReauthenticateRequest re-asserts control of the account
type ReauthenticateRequest struct {
	Password string `json:"password" binding:"required"`
}

// ClaimUsernameRequest claims a username for the profile
type ClaimUsernameRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30,alphanum"`
}

// AvailabilityResponse reports whether a username is free
type AvailabilityResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// ActivityResponse lists recorded logins
type ActivityResponse struct {
	LastLogin *profiles.LoginEvent  `json:"last_login,omitempty"`
	History   []profiles.LoginEvent `json:"history"`
}
