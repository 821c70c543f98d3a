package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"travelguide.io/guestbook/internal/domain"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
)

// ErrJWTSigningKeyMissing is returned when no verification key is configured.
var ErrJWTSigningKeyMissing = errors.New("jwt signing key is not configured")

// JWTClaims are the claims issued by the identity provider.
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Identity converts the claims into the authenticated principal.
func (c *JWTClaims) Identity() domain.Identity {
	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	return domain.Identity{
		ID:          id,
		DisplayName: c.Username,
		Roles:       c.Roles,
		Permissions: c.Permissions,
	}
}

// JWTConfig holds token verification settings.
// VerificationKeys are accepted in addition to SigningKey during key rotation.
type JWTConfig struct {
	SigningKey       []byte
	VerificationKeys [][]byte
	Issuer           string
	ExpiresIn        time.Duration
}

// GenerateToken creates a signed HS256 token. The identity provider issues
// production tokens; this one serves local development and tests.
func GenerateToken(cfg JWTConfig, userID, username string, roles, permissions []string) (string, time.Time, error) {
	if len(cfg.SigningKey) == 0 {
		return "", time.Time{}, ErrJWTSigningKeyMissing
	}
	now := time.Now()
	expiresAt := now.Add(cfg.ExpiresIn)

	claims := JWTClaims{
		UserID:      userID,
		Username:    username,
		Roles:       roles,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(cfg.SigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateToken verifies the signature against the signing key and then each
// verification key, and checks expiry and issuer.
func (cfg JWTConfig) ValidateToken(tokenString string) (*JWTClaims, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("%w: %w", jwt.ErrTokenUnverifiable, ErrJWTSigningKeyMissing)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	keys := append([][]byte{cfg.SigningKey}, cfg.VerificationKeys...)
	var lastErr error
	for _, key := range keys {
		if len(key) == 0 {
			continue
		}
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}, opts...)
		if err == nil && token.Valid {
			return claims, nil
		}
		lastErr = err
		// Only a signature mismatch is worth retrying with the next key.
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}
	return nil, lastErr
}

// JWTAuth validates Bearer tokens and stores the identity in the request context.
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := cfg.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			abortUnauthorized(c, msg)
			return
		}

		identity := claims.Identity()
		if identity.ID == "" {
			abortUnauthorized(c, "invalid token claims")
			return
		}
		SetIdentity(c, identity)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":       apperrors.CodeUnauthorized,
		"message":    message,
		"request_id": GetRequestID(c.Request.Context()),
	})
}
