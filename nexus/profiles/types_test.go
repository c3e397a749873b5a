package profiles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginEvent_Equal(t *testing.T) {
	base := LoginEvent{
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Device:    "Windows",
		Browser:   "Chrome 120.0",
		IP:        "203.0.113.7",
		Location:  "Berlin, Berlin, Germany",
	}

	assert.True(t, base.Equal(base))

	// the same instant in another zone is still the same login
	shifted := base
	shifted.Timestamp = base.Timestamp.In(time.FixedZone("CET", 3600))
	assert.True(t, base.Equal(shifted))

	changed := base
	changed.IP = "198.51.100.9"
	assert.False(t, base.Equal(changed))

	later := base
	later.Timestamp = base.Timestamp.Add(time.Second)
	assert.False(t, base.Equal(later))
}
