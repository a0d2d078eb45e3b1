package handler // HTTP handlers for the issuance engine API

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mintgate/ticket-engine/internal/repository"
	"github.com/mintgate/ticket-engine/internal/service"
)

// callerDID extracts the authenticated caller's DID placed in the
// context by the JWT middleware.
func callerDID(c echo.Context) (string, error) {
	if did, ok := c.Get("caller_did").(string); ok && did != "" {
		return did, nil
	}
	return "", errors.New("no caller identity in context")
}

// respondError maps service and repository errors onto HTTP responses.
// Handlers call it for any error they do not handle specially.
func respondError(c echo.Context, err error) error {
	var rv *service.RuleViolations
	switch {
	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrTierNotFound),
		errors.Is(err, repository.ErrTicketNotFound),
		errors.Is(err, repository.ErrIdentityNotFound),
		errors.Is(err, repository.ErrNotQueued):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden),
		errors.Is(err, service.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrInvalidSignature):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid signature"})
	case errors.Is(err, repository.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "tier is sold out"})
	case errors.Is(err, service.ErrNotTransferable),
		errors.Is(err, service.ErrEventNotOnSale):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.As(err, &rv):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":      "tier update rejected",
			"violations": rv.Violations,
		})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
