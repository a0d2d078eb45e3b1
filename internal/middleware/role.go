package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole enforces that the authenticated caller carries one of
// the given roles (the values stored in the JWT's "role" claim, e.g.
// ORGANIZER for the event-management surface).  It assumes JWTAuth has
// already stored the role in the context; missing or disallowed roles
// get a 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
