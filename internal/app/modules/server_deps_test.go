package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"travelguide.io/guestbook/internal/config"
)

func TestNewJWTConfig(t *testing.T) {
	cfg := NewJWTConfig(config.SecurityConfig{
		JWTSigningKey:       "current-key-1234567890123456789012",
		JWTVerificationKeys: []string{" old-key ", "", "  "},
		JWTIssuer:           "guestbook-idp",
	})

	assert.Equal(t, []byte("current-key-1234567890123456789012"), cfg.SigningKey)
	assert.Equal(t, [][]byte{[]byte("old-key")}, cfg.VerificationKeys)
	assert.Equal(t, "guestbook-idp", cfg.Issuer)
}
