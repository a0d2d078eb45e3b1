package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/service"
)

// OrganizerHandler groups the event-management surface: creating
// events and tiers, lifecycle transitions, rule-checked tier updates
// and direct grant mints.  Role enforcement happens in middleware;
// creator checks happen in the services.
type OrganizerHandler struct {
	Events   *service.EventService
	Issuance *service.IssuanceService
}

// NewOrganizerHandler constructs an OrganizerHandler.
func NewOrganizerHandler(events *service.EventService, issuance *service.IssuanceService) *OrganizerHandler {
	if events == nil || issuance == nil {
		panic("nil service passed to NewOrganizerHandler")
	}
	return &OrganizerHandler{Events: events, Issuance: issuance}
}

// CreateEvent handles POST /v1/events.  The body carries the event
// name and the hex public key of the event keypair; the private half
// stays with the organizer's custodian.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	did, err := callerDID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Name      string `json:"name"`
		PublicKey string `json:"public_key"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	event, err := h.Events.CreateEvent(c.Request().Context(), did, body.Name, body.PublicKey)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"event_id": event.ID,
		"did":      event.DID,
		"status":   event.Status,
	})
}

// Publish handles POST /v1/events/:id/publish, the common DRAFT to
// PUBLISHED transition.
func (h *OrganizerHandler) Publish(c echo.Context) error {
	return h.transition(c, model.EventPublished)
}

// Transition handles POST /v1/events/:id/transition with a target
// status in the body, for cancellation and completion.
func (h *OrganizerHandler) Transition(c echo.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	to := model.EventStatus(body.Status)
	switch to {
	case model.EventPublished, model.EventCancelled, model.EventCompleted:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	return h.transition(c, to)
}

func (h *OrganizerHandler) transition(c echo.Context, to model.EventStatus) error {
	did, err := callerDID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID := c.Param("id")
	if eventID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	event, err := h.Events.TransitionEvent(c.Request().Context(), eventID, did, to)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event_id": event.ID,
		"status":   event.Status,
	})
}

// CreateTier handles POST /v1/events/:id/tiers.  Capacity may be
// omitted for an unbounded tier.
func (h *OrganizerHandler) CreateTier(c echo.Context) error {
	did, err := callerDID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID := c.Param("id")
	if eventID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		Name       string   `json:"name"`
		PriceCents uint32   `json:"price_cents"`
		Currency   string   `json:"currency"`
		Capacity   *uint32  `json:"capacity"`
		Perks      []string `json:"perks"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	tier, err := h.Events.CreateTier(c.Request().Context(), did, eventID, body.Name, body.Currency, body.PriceCents, body.Capacity, body.Perks)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"tier_id":  tier.ID,
		"event_id": tier.EventID,
	})
}

// UpdateTier handles PATCH /v1/tiers/:id.  Only present fields are
// proposed; validation is all-or-nothing and a rejection lists every
// broken rule.
func (h *OrganizerHandler) UpdateTier(c echo.Context) error {
	did, err := callerDID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tierID := c.Param("id")
	if tierID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tier id"})
	}
	var body model.TierUpdate
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	tier, err := h.Events.UpdateTier(c.Request().Context(), did, tierID, body)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"tier_id":     tier.ID,
		"name":        tier.Name,
		"price_cents": tier.PriceCents,
		"capacity":    tier.Capacity,
		"perks":       tier.Perks,
	})
}

// Grant handles POST /v1/tiers/:id/grant: a direct mint to an identity
// without a payment, for comps and artist allocations.  Only the event
// creator may grant.
func (h *OrganizerHandler) Grant(c echo.Context) error {
	did, err := callerDID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tierID := c.Param("id")
	if tierID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tier id"})
	}
	var body struct {
		ToDID    string `json:"to_did"`
		Quantity uint32 `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ToDID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to_did is required"})
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	tickets, err := h.Issuance.Grant(c.Request().Context(), did, tierID, body.ToDID, body.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	ids := make([]string, len(tickets))
	for i, tk := range tickets {
		ids[i] = tk.ID
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"ticket_ids": ids,
		"owner_did":  body.ToDID,
	})
}
