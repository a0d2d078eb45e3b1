package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mintgate/ticket-engine/internal/service"
)

// PaymentWebhookHandler receives payment confirmations from the
// external payment collaborator.  Delivery is at least once, so the
// mint behind it is idempotent on the payment reference.
type PaymentWebhookHandler struct {
	Issuance *service.IssuanceService
}

// NewPaymentWebhookHandler constructs a PaymentWebhookHandler.
func NewPaymentWebhookHandler(issuance *service.IssuanceService) *PaymentWebhookHandler {
	if issuance == nil {
		panic("nil issuance service passed to NewPaymentWebhookHandler")
	}
	return &PaymentWebhookHandler{Issuance: issuance}
}

// Confirm handles POST /v1/webhooks/payment.  It mints the paid
// tickets and responds 200 with their ids.  A replayed reference
// returns the tickets the first delivery minted, so retrying senders
// always converge on the same response.
func (h *PaymentWebhookHandler) Confirm(c echo.Context) error {
	var body struct {
		PaymentRef   string `json:"payment_ref"`
		TierID       string `json:"tier_id"`
		Quantity     uint32 `json:"quantity"`
		AmountCents  uint32 `json:"amount_cents"`
		Currency     string `json:"currency"`
		PayerContact string `json:"payer_contact"`
		PayerDID     string `json:"payer_did"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.PaymentRef == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_ref is required"})
	}
	if body.TierID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tier_id is required"})
	}
	if body.Quantity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be positive"})
	}
	if body.PayerDID == "" && body.PayerContact == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payer_did or payer_contact is required"})
	}

	tickets, err := h.Issuance.Mint(c.Request().Context(), service.MintRequest{
		PaymentRef:   body.PaymentRef,
		TierID:       body.TierID,
		Quantity:     body.Quantity,
		AmountCents:  body.AmountCents,
		Currency:     body.Currency,
		PayerContact: body.PayerContact,
		PayerDID:     body.PayerDID,
	})
	if err != nil {
		return respondError(c, err)
	}

	ids := make([]string, len(tickets))
	for i, tk := range tickets {
		ids[i] = tk.ID
	}
	var owner string
	if len(tickets) > 0 && tickets[0].OwnerDID != nil {
		owner = *tickets[0].OwnerDID
	}
	return c.JSON(http.StatusOK, echo.Map{
		"payment_ref": body.PaymentRef,
		"ticket_ids":  ids,
		"owner_did":   owner,
	})
}
