package auth

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/nexusdigital/identity/internal/auth"
)

// registers all authentication routes. providers lists the social
// providers with configured credentials; rateLimit guards the
// credential-accepting endpoints.
func RegisterRoutes(router *gin.RouterGroup, providers []string, rateLimit gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", rateLimit, RegisterHandler())
		authGroup.POST("/login", rateLimit, LoginHandler())
		authGroup.POST("/logout", LogoutHandler())

		authGroup.GET("/session", GetSessionHandler())
		authGroup.GET("/me", GetCurrentUserHandler())
		authGroup.PUT("/me", UpdateProfileHandler())
		authGroup.PUT("/me/email", UpdateEmailHandler())
		authGroup.PUT("/me/password", UpdatePasswordHandler())
		authGroup.PUT("/me/username", ClaimUsernameHandler())
		authGroup.GET("/me/activity", LoginActivityHandler())

		authGroup.POST("/password-reset", rateLimit, ResetPasswordHandler())
		authGroup.POST("/password-reset/confirm", rateLimit, ConfirmResetHandler())
		authGroup.POST("/verify/resend", ResendVerificationHandler())
		authGroup.GET("/verify", VerifyEmailHandler())
		authGroup.POST("/reauthenticate", rateLimit, ReauthenticateHandler())

		authGroup.GET("/username/:username", CheckUsernameHandler())

		authGroup.GET("/token/me", auth.AuthMiddleware(), TokenUserHandler())

		authGroup.GET("/:provider", BeginAuthHandler(providers))
		authGroup.GET("/:provider/callback", CallbackHandler())
	}
}
