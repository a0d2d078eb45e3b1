package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mintgate/ticket-engine/internal/service"
)

// HoldHandler exposes hold placement and release on a tier.
type HoldHandler struct {
	Holds *service.HoldService
}

// NewHoldHandler constructs a HoldHandler.
func NewHoldHandler(holds *service.HoldService) *HoldHandler {
	if holds == nil {
		panic("nil hold service passed to NewHoldHandler")
	}
	return &HoldHandler{Holds: holds}
}

// CreateHold handles POST /v1/tiers/:id/hold.  It reserves one unit of
// the tier for the caller.  A repeat request returns the caller's
// existing hold with 200 instead of reserving again; a sold-out tier
// yields 409 and the caller can join the wait list.
func (h *HoldHandler) CreateHold(c echo.Context) error {
	did, err := callerDID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tierID := c.Param("id")
	if tierID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tier id"})
	}
	hold, err := h.Holds.CreateHold(c.Request().Context(), tierID, did)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyHeld) {
			return c.JSON(http.StatusOK, echo.Map{
				"hold_id":    hold.ID,
				"tier_id":    hold.TierID,
				"expires_at": hold.HeldUntil.Format(time.RFC3339),
				"existing":   true,
			})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"hold_id":    hold.ID,
		"tier_id":    hold.TierID,
		"expires_at": hold.HeldUntil.Format(time.RFC3339),
	})
}

// ReleaseHold handles DELETE /v1/tiers/:id/hold.  It releases the
// caller's active hold on the tier; 404 when there is none.
func (h *HoldHandler) ReleaseHold(c echo.Context) error {
	did, err := callerDID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tierID := c.Param("id")
	if tierID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tier id"})
	}
	if err := h.Holds.ReleaseForTier(c.Request().Context(), tierID, did); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
