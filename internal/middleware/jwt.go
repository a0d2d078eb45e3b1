package middleware // reusable HTTP middleware for the API surface

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the caller's DID and role into the request
// context.  Tokens are minted by the external identity service; this
// engine only verifies them.  The subject claim carries the caller's
// DID, so handlers read the authenticated identity via
// `c.Get("caller_did")` and the role via `c.Get("role")`.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// HS256 only; any other signing method is rejected.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			sub, _ := claims["sub"].(string)
			if sub == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token has no subject"})
			}

			c.Set("caller_did", sub)
			c.Set("role", claims["role"])
			return next(c)
		}
	}
}
