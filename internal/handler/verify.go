package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mintgate/ticket-engine/internal/service"
)

// VerifyHandler exposes public ticket verification and gate check-in.
// Neither endpoint requires authentication: verification is how anyone
// checks a proof page, and scanners authenticate at the network layer.
type VerifyHandler struct {
	Verify *service.VerifyService
}

// NewVerifyHandler constructs a VerifyHandler.
func NewVerifyHandler(verify *service.VerifyService) *VerifyHandler {
	if verify == nil {
		panic("nil verify service passed to NewVerifyHandler")
	}
	return &VerifyHandler{Verify: verify}
}

// Show handles GET /v1/tickets/:id/verify.  Query parameters: owner
// (the claimed current owner DID, required) and sig (optional; the
// stored issuance signature is used when absent).  The response is
// always 200 with a valid flag and, when invalid, a reason.
func (h *VerifyHandler) Show(c echo.Context) error {
	ticketID := c.Param("id")
	if ticketID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	owner := c.QueryParam("owner")
	if owner == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "owner is required"})
	}
	result, err := h.Verify.Verify(c.Request().Context(), ticketID, owner, c.QueryParam("sig"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// CheckIn handles POST /v1/tickets/:id/checkin.  A valid ticket is
// marked used exactly once; a second scan reports it as already used.
func (h *VerifyHandler) CheckIn(c echo.Context) error {
	ticketID := c.Param("id")
	if ticketID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var body struct {
		Owner string `json:"owner"`
		Sig   string `json:"sig"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Owner == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "owner is required"})
	}
	result, err := h.Verify.CheckIn(c.Request().Context(), ticketID, body.Owner, body.Sig)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
