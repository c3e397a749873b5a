package websocket

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithOrigin(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ws/session", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestCheckOrigin_DevelopmentAllowsAll(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	assert.True(t, CheckOrigin(requestWithOrigin("https://evil.example")))
	assert.True(t, CheckOrigin(requestWithOrigin("")))
}

func TestCheckOrigin_ProductionRequiresAllowList(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ALLOWED_ORIGINS", "https://nexusdigital.example, https://www.nexusdigital.example")

	assert.True(t, CheckOrigin(requestWithOrigin("https://nexusdigital.example")))
	assert.True(t, CheckOrigin(requestWithOrigin("https://www.nexusdigital.example")))
	assert.False(t, CheckOrigin(requestWithOrigin("https://evil.example")))
	assert.False(t, CheckOrigin(requestWithOrigin("")))
}

func TestCheckOrigin_ProductionUnconfigured(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ALLOWED_ORIGINS", "")

	assert.False(t, CheckOrigin(requestWithOrigin("https://nexusdigital.example")))
}

func TestGenerateClientID_Unique(t *testing.T) {
	a, err := GenerateClientID()
	require.NoError(t, err)

	b, err := GenerateClientID()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
