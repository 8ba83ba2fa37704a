package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/internal/utils"
)

var (
	// ErrMissingToken is returned when a request carries no credentials.
	ErrMissingToken = errors.New("authorization token missing")
	// ErrInvalidToken is returned when a token fails verification.
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the caller resolved from a verified token.
type Identity struct {
	UserID realtime.UserID
	Role   string
}

// TokenVerifier resolves a raw token into an identity. It is shared by the
// REST middleware and the websocket upgrade.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// JWTVerifier verifies HMAC-signed JWTs.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier constructs a verifier for tokens signed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses the token and extracts the user id and role claims.
func (v *JWTVerifier) Verify(tokenString string) (Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Identity{}, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	userID, ok := extractUserIDFromClaims(claims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}

	return Identity{UserID: userID, Role: extractUserRoleFromClaims(claims)}, nil
}

// JWTProtected returns a middleware that validates bearer tokens and stores the
// caller in fiber locals.
func JWTProtected(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := BearerToken(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		bindIdentity(c, identity)
		return c.Next()
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c *fiber.Ctx) (string, error) {
	authorization := c.Get("Authorization")
	if authorization == "" {
		return "", ErrMissingToken
	}

	const bearer = "Bearer "
	if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization header")
	}

	token := strings.TrimSpace(authorization[len(bearer):])
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

func bindIdentity(c *fiber.Ctx, identity Identity) {
	c.Locals("user_id", uint(identity.UserID))
	if identity.Role != "" {
		c.Locals("user_role", identity.Role)
	}
}

// CurrentUserID returns the authenticated caller stored by JWTProtected.
func CurrentUserID(c *fiber.Ctx) (realtime.UserID, bool) {
	userID, err := realtime.NormalizeUserID(c.Locals("user_id"))
	if err != nil {
		return 0, false
	}
	return userID, true
}

func extractUserIDFromClaims(claims jwt.MapClaims) (realtime.UserID, bool) {
	keys := []string{"sub", "user_id", "id"}
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized, err := realtime.NormalizeUserID(value); err == nil {
				return normalized, true
			}
		}
	}

	return 0, false
}

func extractUserRoleFromClaims(claims jwt.MapClaims) string {
	candidates := []string{"role", "roles"}
	for _, key := range candidates {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				role := strings.ToLower(strings.TrimSpace(str))
				if role != "" {
					return role
				}
			}
		}
	}
	return ""
}
