package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mintgate/ticket-engine/internal/service"
)

// TransferHandler exposes ownership transfer and the chain of custody.
type TransferHandler struct {
	Transfers *service.TransferService
}

// NewTransferHandler constructs a TransferHandler.
func NewTransferHandler(transfers *service.TransferService) *TransferHandler {
	if transfers == nil {
		panic("nil transfer service passed to NewTransferHandler")
	}
	return &TransferHandler{Transfers: transfers}
}

// Transfer handles POST /v1/tickets/:id/transfer.  The caller must be
// the ticket's current owner and must supply their signature over the
// transfer payload; the timestamp in the body is the one that was
// signed.
func (h *TransferHandler) Transfer(c echo.Context) error {
	did, err := callerDID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID := c.Param("id")
	if ticketID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var body struct {
		ToDID         string `json:"to_did"`
		TransferredAt string `json:"transferred_at"`
		Signature     string `json:"signature"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ToDID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to_did is required"})
	}
	at, err := time.Parse(time.RFC3339, body.TransferredAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "transferred_at must be RFC3339"})
	}
	transfer, err := h.Transfers.Transfer(c.Request().Context(), ticketID, did, body.ToDID, at, body.Signature)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"ticket_id":      transfer.TicketID,
		"from_did":       transfer.FromDID,
		"to_did":         transfer.ToDID,
		"transferred_at": transfer.TransferredAt.Format(time.RFC3339),
	})
}

// Custody handles GET /v1/tickets/:id/transfers.  It returns the
// transfer history oldest first plus the derived current owner.
func (h *TransferHandler) Custody(c echo.Context) error {
	ticketID := c.Param("id")
	if ticketID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	chain, owner, err := h.Transfers.ChainOfCustody(c.Request().Context(), ticketID)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]echo.Map, 0, len(chain))
	for _, tr := range chain {
		items = append(items, echo.Map{
			"from_did":       tr.FromDID,
			"to_did":         tr.ToDID,
			"transferred_at": tr.TransferredAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ticket_id": ticketID,
		"owner_did": owner,
		"transfers": items,
	})
}
