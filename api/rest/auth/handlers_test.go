package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/nexusdigital/identity/api/rest/auth"
	internalauth "codeberg.org/nexusdigital/identity/internal/auth"
	"codeberg.org/nexusdigital/identity/internal/guard"
	"codeberg.org/nexusdigital/identity/internal/ratelimit"
	"codeberg.org/nexusdigital/identity/nexus/backend"
	"codeberg.org/nexusdigital/identity/nexus/credstore"
	"codeberg.org/nexusdigital/identity/nexus/geoip"
	"codeberg.org/nexusdigital/identity/nexus/session"
)

type client struct {
	router *gin.Engine
	sid    string
}

func newClient(t *testing.T) *client {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-key-for-testing")
	gin.SetMode(gin.TestMode)

	store, err := credstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(store.Close)

	manager := session.NewManager(nil, nil, store, backend.NewLatch(), geoip.New("http://127.0.0.1:1"), time.Hour)
	t.Cleanup(manager.Close)

	rateLimit, err := ratelimit.Middleware("100-S", "")
	require.NoError(t, err)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.Use(guard.Attach(manager))
	auth.RegisterRoutes(v1, nil, rateLimit)

	return &client{router: router}
}

// performs a request, carrying the session cookie across calls
func (c *client) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.sid != "" {
		req.AddCookie(&http.Cookie{Name: guard.CookieName, Value: c.sid})
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == guard.CookieName {
			c.sid = cookie.Value
		}
	}

	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRegister_CreatesSessionAndToken(t *testing.T) {
	c := newClient(t)

	w := c.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","password":"correct horse","remember_me":true}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, c.sid, "a session cookie is issued")

	body := decode(t, w)
	sess := body["session"].(map[string]any)
	assert.Equal(t, "authenticated", sess["state"])
	assert.Equal(t, "fallback", sess["mode"])
	assert.NotEmpty(t, body["token"])
}

func TestRegister_AppliesDisplayNameAndPhone(t *testing.T) {
	c := newClient(t)

	w := c.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","password":"correct horse","display_name":"Ada Lovelace","phone_number":"+15551234567"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = c.do(t, http.MethodGet, "/api/v1/auth/me", "")
	require.Equal(t, http.StatusOK, w.Code)

	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "Ada Lovelace", user["display_name"])
	assert.Equal(t, "+15551234567", user["phone_number"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	c := newClient(t)

	w := c.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	other := &client{router: c.router}
	w = other.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","password":"another password"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email address is already in use", decode(t, w)["message"])
}

func TestRegister_ValidationFailure(t *testing.T) {
	c := newClient(t)

	w := c.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"not-an-email","password":"correct horse"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decode(t, w)["error"])
}

func TestLogin_WrongPassword(t *testing.T) {
	c := newClient(t)

	w := c.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = c.do(t, http.MethodPost, "/api/v1/auth/logout", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"ada@example.com","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid email or password", decode(t, w)["message"])
}

func TestSession_AnonymousByDefault(t *testing.T) {
	c := newClient(t)

	w := c.do(t, http.MethodGet, "/api/v1/auth/session", "")

	require.Equal(t, http.StatusOK, w.Code)
	sess := decode(t, w)["session"].(map[string]any)
	assert.Equal(t, "anonymous", sess["state"])
}

func TestMe_RequiresSession(t *testing.T) {
	c := newClient(t)

	w := c.do(t, http.MethodGet, "/api/v1/auth/me", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_ReturnsIdentityAndProfile(t *testing.T) {
	c := newClient(t)

	w := c.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = c.do(t, http.MethodGet, "/api/v1/auth/me", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	user := body["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
}

func TestUsernameFlow(t *testing.T) {
	c := newClient(t)

	w := c.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = c.do(t, http.MethodGet, "/api/v1/auth/username/ada123", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["available"])

	w = c.do(t, http.MethodPut, "/api/v1/auth/me/username", `{"username":"ada123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(t, http.MethodGet, "/api/v1/auth/username/ada123", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["available"])
}

func TestPasswordResetFlow(t *testing.T) {
	c := newClient(t)

	w := c.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","password":"old password"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Session session.Snapshot `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	userID := created.Session.Identity.ID

	w = c.do(t, http.MethodPost, "/api/v1/auth/logout", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(t, http.MethodPost, "/api/v1/auth/password-reset", `{"email":"ada@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	// the mailed link carries a signed single-purpose token
	token, err := internalauth.GenerateActionToken(userID, internalauth.PurposeResetPassword)
	require.NoError(t, err)

	w = c.do(t, http.MethodPost, "/api/v1/auth/password-reset/confirm",
		`{"token":"`+token+`","password":"new password!"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = c.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"ada@example.com","password":"new password!"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBeginAuth_UnknownProvider(t *testing.T) {
	c := newClient(t)

	w := c.do(t, http.MethodGet, "/api/v1/auth/twitter", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTokenMe_BearerAuth(t *testing.T) {
	c := newClient(t)

	w := c.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	token := decode(t, w)["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/token/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
}
