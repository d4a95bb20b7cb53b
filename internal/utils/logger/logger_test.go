package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVs_RedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"scan_id", "abc", "api_key", "k-123", "Authorization", "Bearer x", "dangling"})

	assert.Equal(t, []interface{}{"scan_id", "abc", "api_key", "[REDACTED]", "Authorization", "[REDACTED]", "dangling"}, out)
}

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"prod", "dev", ""} {
		l, err := New(mode)
		assert.NoError(t, err)
		assert.NotNil(t, l.With("service", "test"))
	}
}
