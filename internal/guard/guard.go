package guard

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/nexusdigital/identity/internal/logger"
	"codeberg.org/nexusdigital/identity/nexus/session"
)

const (
	// CookieName carries the client's session identifier.
	CookieName = "nexus_session"

	cookieMaxAge = int(30 * 24 * time.Hour / time.Second)

	contextKey = "nexus_session_context"

	// LoginPath is where unauthenticated clients are sent.
	LoginPath = "/login"
	// VerifyPath is where unverified clients are sent.
	VerifyPath = "/email-verification"
)

// Attach resolves (or creates) the client's session context and stores
// it on the request context. Every route group that touches session
// state mounts this first.
func Attach(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sid, err := c.Cookie(CookieName); err == nil {
			if sess, ok := manager.GetSession(sid); ok {
				c.Set(contextKey, sess)
				c.Next()
				return
			}
		}

		sid, sess, err := manager.CreateSession()
		if err != nil {
			logger.ErrorErr(err, "failed to create session")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		secure := c.Request.TLS != nil
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, sid, cookieMaxAge, "/", "", secure, true)

		c.Set(contextKey, sess)
		c.Next()
	}
}

// FromContext returns the session context attached to the request.
func FromContext(c *gin.Context) *session.Context {
	if v, ok := c.Get(contextKey); ok {
		if sess, ok := v.(*session.Context); ok {
			return sess
		}
	}
	return nil
}

// Protect gates a route on an authenticated session. A still-loading
// session is told to retry; an anonymous one is redirected to the
// login page with the original destination preserved.
func Protect() gin.HandlerFunc {
	return protect(false)
}

// ProtectVerified additionally requires a verified email address,
// redirecting unverified sessions to the verification page.
func ProtectVerified() gin.HandlerFunc {
	return protect(true)
}

func protect(requireVerified bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := FromContext(c)
		if sess == nil {
			redirectToLogin(c)
			return
		}

		switch sess.State() {
		case session.StateLoading:
			// resolution is in flight; the client should retry rather
			// than be bounced to the login page
			c.Header("Retry-After", "1")
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return

		case session.StateAnonymous:
			redirectToLogin(c)
			return
		}

		if requireVerified {
			if id := sess.Current(); id != nil && !id.EmailVerified {
				c.Redirect(http.StatusFound, VerifyPath)
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

func redirectToLogin(c *gin.Context) {
	target := LoginPath
	if next := c.Request.URL.RequestURI(); next != "" && next != "/" {
		target += "?next=" + url.QueryEscape(next)
	}

	c.Redirect(http.StatusFound, target)
	c.Abort()
}
