package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected string
	}{
		{"empty", "", ""},
		{"short token fully masked", "abc123", "******"},
		{"long token keeps edges", "fcm-token-0123456789", "fcm-to...6789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskToken(tt.token))
		})
	}
}

func TestNamed_ReturnsUsableLogger(t *testing.T) {
	l := Named("test")
	assert.NotNil(t, l)
	l.Debug("logger smoke test")
}
