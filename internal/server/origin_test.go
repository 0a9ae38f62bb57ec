package server

import (
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeOrigins(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelError)

	normalized, allowAll := normalizeOrigins([]string{" HTTP://Example.COM ", "", "not a url", "*", "https://b.example:8443"}, log)

	assert.True(t, allowAll)
	assert.Equal(t, []string{"http://example.com", "https://b.example:8443"}, normalized)
}

func TestOriginPolicy_Allows(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelError)
	strict := newOriginPolicy([]string{"http://localhost:5173"}, log)
	open := newOriginPolicy([]string{"*"}, log)
	none := newOriginPolicy(nil, log)

	tests := []struct {
		name   string
		policy *originPolicy
		origin string
		want   bool
	}{
		{"listed origin", strict, "http://localhost:5173", true},
		{"listed origin with different case", strict, "http://LOCALHOST:5173", true},
		{"other port", strict, "http://localhost:5174", false},
		{"missing origin", strict, "", false},
		{"garbage origin", strict, "::::", false},
		{"wildcard", open, "http://anywhere.example", true},
		{"wildcard without origin", open, "", true},
		{"empty allow-list", none, "http://localhost:5173", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, tt.policy.checkOrigin(r))
		})
	}
}
