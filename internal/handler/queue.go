package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mintgate/ticket-engine/internal/service"
)

// QueueHandler exposes the per-tier wait list.
type QueueHandler struct {
	Queue *service.QueueService
}

// NewQueueHandler constructs a QueueHandler.
func NewQueueHandler(queue *service.QueueService) *QueueHandler {
	if queue == nil {
		panic("nil queue service passed to NewQueueHandler")
	}
	return &QueueHandler{Queue: queue}
}

// Join handles POST /v1/tiers/:id/queue.  It appends the caller to the
// tier's wait list and returns the assigned position.  Joining twice
// returns the existing entry with 200.
func (h *QueueHandler) Join(c echo.Context) error {
	did, err := callerDID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tierID := c.Param("id")
	if tierID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tier id"})
	}
	entry, err := h.Queue.Join(c.Request().Context(), tierID, did)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyQueued) {
			return c.JSON(http.StatusOK, echo.Map{
				"position": entry.Position,
				"existing": true,
			})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"position": entry.Position})
}

// Position handles GET /v1/tiers/:id/queue.  It reports the caller's
// durable position and the number of waiting entries ahead.
func (h *QueueHandler) Position(c echo.Context) error {
	did, err := callerDID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tierID := c.Param("id")
	if tierID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tier id"})
	}
	rank, err := h.Queue.Position(c.Request().Context(), tierID, did)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rank)
}

// Leave handles DELETE /v1/tiers/:id/queue.  The caller's waiting
// entry is removed and its position retired.
func (h *QueueHandler) Leave(c echo.Context) error {
	did, err := callerDID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tierID := c.Param("id")
	if tierID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tier id"})
	}
	if err := h.Queue.Leave(c.Request().Context(), tierID, did); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
