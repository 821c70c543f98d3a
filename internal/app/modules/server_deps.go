package modules

import (
	"strings"

	"travelguide.io/guestbook/internal/api/handlers"
	"travelguide.io/guestbook/internal/api/middleware"
	"travelguide.io/guestbook/internal/config"
)

// NewServerDeps builds base server deps then lets each module contribute its wiring.
func NewServerDeps(infra *Infrastructure, mods []Module) handlers.ServerDeps {
	checks := make(map[string]handlers.HealthCheck)
	for name, check := range infra.HealthChecks() {
		checks[name] = check
	}

	deps := handlers.ServerDeps{Checks: checks}
	for _, mod := range mods {
		if mod == nil {
			continue
		}
		mod.ContributeServerDeps(&deps)
	}
	return deps
}

// NewJWTConfig builds the token verifier from security settings.
func NewJWTConfig(cfg config.SecurityConfig) middleware.JWTConfig {
	verificationKeys := make([][]byte, 0, len(cfg.JWTVerificationKeys))
	for _, key := range cfg.JWTVerificationKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		verificationKeys = append(verificationKeys, []byte(key))
	}
	return middleware.JWTConfig{
		SigningKey:       []byte(cfg.JWTSigningKey),
		VerificationKeys: verificationKeys,
		Issuer:           cfg.JWTIssuer,
	}
}
