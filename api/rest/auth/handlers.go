package auth

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"

	"codeberg.org/nexusdigital/identity/internal/auth"
	"codeberg.org/nexusdigital/identity/internal/errors"
	"codeberg.org/nexusdigital/identity/internal/guard"
	"codeberg.org/nexusdigital/identity/internal/logger"
	"codeberg.org/nexusdigital/identity/nexus/backend"
	"codeberg.org/nexusdigital/identity/nexus/session"
)

// where the browser lands after a completed social sign-in
const postLoginPath = "/"

func meta(c *gin.Context) session.RequestMeta {
	return session.RequestMeta{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}

var statusCodes = map[int]string{
	http.StatusBadRequest:          errors.CodeBadRequest,
	http.StatusUnauthorized:        errors.CodeUnauthorized,
	http.StatusNotFound:            errors.CodeNotFound,
	http.StatusConflict:            errors.CodeConflict,
	http.StatusInternalServerError: errors.CodeServerError,
}

// translates the session's accumulated errors into one HTTP failure
func respondSessionError(c *gin.Context, sess *session.Context, status int) {
	errs := sess.Errors()
	message := "something went wrong, please try again"
	if len(errs) > 0 {
		message = errs[0]
	}

	code, ok := statusCodes[status]
	if !ok {
		code = errors.CodeBadRequest
	}

	c.JSON(status, errors.ErrorResponse{
		Error:   code,
		Message: message,
	})
	c.Abort()
}

func authResponse(sess *session.Context) AuthResponse {
	resp := AuthResponse{Session: sess.Snapshot()}

	if id := sess.Current(); id != nil {
		token, err := auth.GenerateJWT(id.ID, id.Email, id.EmailVerified)
		if err != nil {
			logger.ErrorErr(err, "failed to generate token", "user_id", id.ID)
		} else {
			resp.Token = token
		}
	}

	return resp
}

// RegisterHandler godoc
// @Summary Register
// @Description Create an email/password account and sign it in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/auth/register [post]
func RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		sess := guard.FromContext(c)

		if !sess.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName, req.PhoneNumber, req.RememberMe, meta(c)) {
			status := http.StatusBadRequest
			if sess.LastErrorKind() == errors.KindDuplicateEmail {
				status = http.StatusConflict
			}
			respondSessionError(c, sess, status)
			return
		}

		c.JSON(http.StatusCreated, authResponse(sess))
	}
}

// LoginHandler godoc
// @Summary Login
// @Description Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/login [post]
func LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		sess := guard.FromContext(c)

		if !sess.Login(c.Request.Context(), req.Email, req.Password, req.RememberMe, meta(c)) {
			respondSessionError(c, sess, http.StatusUnauthorized)
			return
		}

		c.JSON(http.StatusOK, authResponse(sess))
	}
}

// LogoutHandler godoc
// @Summary Logout
// @Description Sign out and clear the session
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /api/v1/auth/logout [post]
func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := guard.FromContext(c)

		if !sess.Logout(c.Request.Context()) {
			respondSessionError(c, sess, http.StatusInternalServerError)
			return
		}

		if err := gothic.Logout(c.Writer, c.Request); err != nil {
			logger.ErrorErr(err, "failed to clear gothic session")
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
	}
}

// BeginAuthHandler godoc
// @Summary Start social sign-in
// @Description Begin the OAuth flow with the named provider
// @Tags auth
// @Param provider path string true "OAuth provider" Enums(google, facebook, github, apple)
// @Success 302 {string} string "Redirect to OAuth provider"
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/auth/{provider} [get]
func BeginAuthHandler(providers []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := c.Param("provider")

		if !slices.Contains(providers, provider) {
			errors.BadRequest(c, "invalid provider", nil)
			return
		}

		// set provider in query for gothic
		q := c.Request.URL.Query()
		q.Add("provider", provider)
		c.Request.URL.RawQuery = q.Encode()

		gothic.BeginAuthHandler(c.Writer, c.Request)
	}
}

// CallbackHandler godoc
// @Summary Social sign-in callback
// @Description OAuth provider callback; signs the asserted identity in
// @Tags auth
// @Produce json
// @Param provider path string true "OAuth provider" Enums(google, facebook, github, apple)
// @Success 302 {string} string "Redirect after sign-in"
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/auth/{provider}/callback [get]
func CallbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := c.Param("provider")

		q := c.Request.URL.Query()
		q.Add("provider", provider)
		c.Request.URL.RawQuery = q.Encode()

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			errors.InternalError(c, "authentication failed", err)
			return
		}

		sess := guard.FromContext(c)

		social := backend.SocialIdentity{
			Provider:      gothUser.Provider,
			ProviderID:    gothUser.UserID,
			Email:         gothUser.Email,
			Name:          gothUser.Name,
			AvatarURL:     gothUser.AvatarURL,
			EmailVerified: gothUser.Email != "",
		}

		if !sess.SocialLogin(c.Request.Context(), social, meta(c)) {
			respondSessionError(c, sess, http.StatusInternalServerError)
			return
		}

		c.Redirect(http.StatusFound, postLoginPath)
	}
}

// GetSessionHandler godoc
// @Summary Session state
// @Description Current session snapshot: state, identity, errors, backend mode
// @Tags auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /api/v1/auth/session [get]
func GetSessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := guard.FromContext(c)
		c.JSON(http.StatusOK, SessionResponse{Session: sess.Snapshot()})
	}
}

// GetCurrentUserHandler godoc
// @Summary Get current user
// @Description Signed-in identity with its extended profile
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/me [get]
func GetCurrentUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := guard.FromContext(c)

		id := sess.Current()
		if id == nil {
			errors.Unauthorized(c, "")
			return
		}

		profile, err := sess.Profile(c.Request.Context())
		if err != nil && errors.KindOf(err) != errors.KindNotFound {
			errors.InternalError(c, "failed to load profile", err)
			return
		}

		c.JSON(http.StatusOK, UserResponse{User: id, Profile: profile})
	}
}

// UpdateProfileHandler godoc
// @Summary Update profile
// @Description Update the signed-in identity's display name and photo
// @Tags auth
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Profile update"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/me [put]
func UpdateProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		sess := guard.FromContext(c)

		upd := backend.ProfileUpdate{
			DisplayName: req.DisplayName,
			PhoneNumber: req.PhoneNumber,
			PhotoURL:    req.PhotoURL,
		}
		if !sess.UpdateUserProfile(c.Request.Context(), upd) {
			respondSessionError(c, sess, http.StatusBadRequest)
			return
		}

		c.JSON(http.StatusOK, UserResponse{User: sess.Current()})
	}
}

// UpdateEmailHandler godoc
// @Summary Update email
// @Description Change the account email; the new address starts unverified
// @Tags auth
// @Accept json
// @Produce json
// @Param request body UpdateEmailRequest true "New email"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/auth/me/email [put]
func UpdateEmailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		sess := guard.FromContext(c)

		if !sess.UpdateUserEmail(c.Request.Context(), req.Email) {
			respondSessionError(c, sess, http.StatusConflict)
			return
		}

		c.JSON(http.StatusOK, UserResponse{User: sess.Current()})
	}
}

// UpdatePasswordHandler godoc
// @Summary Update password
// @Description Change the account password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body UpdatePasswordRequest true "New password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/auth/me/password [put]
func UpdatePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdatePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		sess := guard.FromContext(c)

		if !sess.UpdateUserPassword(c.Request.Context(), req.Password) {
			respondSessionError(c, sess, http.StatusBadRequest)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
	}
}

// ResetPasswordHandler godoc
// @Summary Request password reset
// @Description Mail a password reset link to the given address
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/auth/password-reset [post]
func ResetPasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		sess := guard.FromContext(c)

		if !sess.ResetPassword(c.Request.Context(), req.Email) {
			respondSessionError(c, sess, http.StatusNotFound)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "password reset email sent"})
	}
}

// ConfirmResetHandler godoc
// @Summary Complete password reset
// @Description Set a new password using the token from the reset mail
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ConfirmResetRequest true "Token and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/auth/password-reset/confirm [post]
func ConfirmResetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmResetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		userID, err := auth.ParseActionToken(req.Token, auth.PurposeResetPassword)
		if err != nil {
			errors.BadRequest(c, "invalid or expired reset token", err)
			return
		}

		sess := guard.FromContext(c)

		if !sess.ConfirmPasswordReset(c.Request.Context(), userID, req.Password) {
			respondSessionError(c, sess, http.StatusBadRequest)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
	}
}

// ResendVerificationHandler godoc
// @Summary Resend verification mail
// @Description Send the email verification link again
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/verify/resend [post]
func ResendVerificationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := guard.FromContext(c)

		if !sess.VerifyEmail(c.Request.Context()) {
			respondSessionError(c, sess, http.StatusUnauthorized)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "verification email sent"})
	}
}

// VerifyEmailHandler godoc
// @Summary Complete email verification
// @Description Mark the email verified using the token from the mail
// @Tags auth
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/auth/verify [get]
func VerifyEmailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			errors.BadRequest(c, "missing verification token", nil)
			return
		}

		userID, err := auth.ParseActionToken(token, auth.PurposeVerifyEmail)
		if err != nil {
			errors.BadRequest(c, "invalid or expired verification token", err)
			return
		}

		sess := guard.FromContext(c)

		if !sess.ConfirmEmail(c.Request.Context(), userID) {
			respondSessionError(c, sess, http.StatusBadRequest)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "email verified"})
	}
}

// ReauthenticateHandler godoc
// @Summary Reauthenticate
// @Description Re-assert control of the signed-in account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ReauthenticateRequest true "Current password"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/reauthenticate [post]
func ReauthenticateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReauthenticateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		sess := guard.FromContext(c)

		if !sess.Reauthenticate(c.Request.Context(), req.Password) {
			errors.Unauthorized(c, "no user is currently signed in")
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "reauthenticated"})
	}
}

// CheckUsernameHandler godoc
// @Summary Check username availability
// @Description Report whether the username is free to claim
// @Tags auth
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} AvailabilityResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/auth/username/{username} [get]
func CheckUsernameHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.Param("username")

		sess := guard.FromContext(c)

		available, err := sess.CheckUsername(c.Request.Context(), username)
		if err != nil {
			errors.InternalError(c, "failed to check username", err)
			return
		}

		c.JSON(http.StatusOK, AvailabilityResponse{
			Username:  username,
			Available: available,
		})
	}
}

// ClaimUsernameHandler godoc
// @Summary Claim username
// @Description Claim a free username for the signed-in account's profile
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ClaimUsernameRequest true "Username"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/auth/me/username [put]
func ClaimUsernameHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ClaimUsernameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		sess := guard.FromContext(c)

		if !sess.ClaimUsername(c.Request.Context(), req.Username) {
			respondSessionError(c, sess, http.StatusConflict)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "username claimed"})
	}
}

// LoginActivityHandler godoc
// @Summary Login activity
// @Description Recorded login history for the signed-in account
// @Tags auth
// @Produce json
// @Success 200 {object} ActivityResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/me/activity [get]
func LoginActivityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := guard.FromContext(c)

		history, err := sess.LoginActivity(c.Request.Context())
		if err != nil {
			if errors.KindOf(err) == errors.KindNoActiveSession {
				errors.Unauthorized(c, "")
				return
			}
			errors.InternalError(c, "failed to load login activity", err)
			return
		}

		resp := ActivityResponse{History: history}
		if profile, err := sess.Profile(c.Request.Context()); err == nil {
			resp.LastLogin = profile.LastLogin
		}

		c.JSON(http.StatusOK, resp)
	}
}

// TokenUserHandler godoc
// @Summary Token identity
// @Description Identity asserted by a bearer token, for cookieless clients
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/token/me [get]
// @Security BearerAuth
func TokenUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		id := &backend.Identity{
			ID:            userID,
			Email:         c.GetString("user_email"),
			EmailVerified: c.GetBool("email_verified"),
		}

		c.JSON(http.StatusOK, UserResponse{User: id})
	}
}
