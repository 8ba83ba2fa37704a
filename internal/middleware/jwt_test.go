package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/konekt-api/internal/realtime"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestJWTVerifierNormalisesSubject(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)

	for _, subject := range []interface{}{"42", float64(42)} {
		identity, err := verifier.Verify(signToken(t, jwt.MapClaims{"sub": subject, "role": "Admin"}))
		require.NoError(t, err)
		require.Equal(t, realtime.UserID(42), identity.UserID)
		require.Equal(t, "admin", identity.Role)
	}

	identity, err := verifier.Verify(signToken(t, jwt.MapClaims{"user_id": 7, "roles": []string{"member"}}))
	require.NoError(t, err)
	require.Equal(t, realtime.UserID(7), identity.UserID)
	require.Equal(t, "member", identity.Role)
}

func TestJWTVerifierRejectsInvalidTokens(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)

	_, err := verifier.Verify("")
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = verifier.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := signToken(t, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(-time.Hour).Unix()})
	_, err = verifier.Verify(expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = verifier.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = verifier.Verify(signToken(t, jwt.MapClaims{"sub": "0"}))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTProtectedBindsCaller(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected(NewJWTVerifier(testSecret)))
	app.Get("/me", func(c *fiber.Ctx) error {
		userID, ok := CurrentUserID(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"user_id": userID})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"sub": "9"}))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]uint
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, uint(9), body["user_id"])

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSocketAuthRejectsBeforeUpgrade(t *testing.T) {
	reached := false
	app := fiber.New()
	app.Use("/ws", SocketAuth(NewJWTVerifier(testSecret)))
	app.Get("/ws", func(c *fiber.Ctx) error {
		reached = true
		return c.SendStatus(fiber.StatusOK)
	})

	plain := httptest.NewRequest(http.MethodGet, "/ws", nil)
	resp, err := app.Test(plain)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

	upgrade := httptest.NewRequest(http.MethodGet, "/ws?token=bogus", nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	resp, err = app.Test(upgrade)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.False(t, reached)

	valid := httptest.NewRequest(http.MethodGet, "/ws?token="+signToken(t, jwt.MapClaims{"sub": "3"}), nil)
	valid.Header.Set("Connection", "Upgrade")
	valid.Header.Set("Upgrade", "websocket")
	resp, err = app.Test(valid)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, reached)
}
