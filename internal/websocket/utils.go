package websocket

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"os"
	"slices"
	"strings"

	"codeberg.org/nexusdigital/identity/internal/logger"
)

// returns a new random client ID
func GenerateClientID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// validates the websocket origin header. Development allows anything;
// production requires a match against ALLOWED_ORIGINS.
func CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	env := os.Getenv("ENVIRONMENT")
	if env != "production" {
		return true
	}

	if origin == "" {
		logger.Warn("websocket connection with no origin header")
		return false
	}

	allowedOrigins := getAllowedOrigins()

	if len(allowedOrigins) == 0 {
		logger.Warn("websocket origin rejected - ALLOWED_ORIGINS not configured",
			"origin", origin,
		)
		return false
	}

	if slices.Contains(allowedOrigins, origin) {
		return true
	}

	logger.Warn("websocket origin rejected", "origin", origin)
	return false
}

func getAllowedOrigins() []string {
	raw := os.Getenv("ALLOWED_ORIGINS")
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}

	return origins
}
