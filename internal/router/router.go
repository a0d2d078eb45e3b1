package router // route registration for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mintgate/ticket-engine/internal/config"
	"github.com/mintgate/ticket-engine/internal/handler"
	"github.com/mintgate/ticket-engine/internal/middleware"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Holds     *handler.HoldHandler
	Queue     *handler.QueueHandler
	Payments  *handler.PaymentWebhookHandler
	Transfers *handler.TransferHandler
	Verify    *handler.VerifyHandler
	Organizer *handler.OrganizerHandler
}

// RegisterRoutes wires the full API surface.
//
// Public:       health, metrics, verification, chain of custody and
//               the payment webhook (the payment collaborator signs
//               requests at the transport layer, not with a JWT).
// Attendee:     holds, wait list, transfers; any authenticated role.
// Organizer:    event and tier management plus grant mints, restricted
//               to the ORGANIZER role.
func RegisterRoutes(e *echo.Echo, h Handlers, cfg *config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Verification is public and read-heavy: proof pages poll it, so
	// the GET side sits behind the short-TTL Redis response cache.
	verify := e.Group("/v1/tickets")
	verify.GET("/:id/verify", h.Verify.Show, middleware.NewRedisCache(cfg.Cache, rdb))
	verify.POST("/:id/checkin", h.Verify.CheckIn)
	verify.GET("/:id/transfers", h.Transfers.Custody)

	e.POST("/v1/webhooks/payment", h.Payments.Confirm)

	// Authenticated surface.  Rate limiting keys on caller DID once
	// the JWT middleware has run.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(cfg.JWTSecret))
	auth.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb))
	auth.Use(middleware.RequireRole("ORGANIZER", "ATTENDEE"))

	auth.POST("/tiers/:id/hold", h.Holds.CreateHold)
	auth.DELETE("/tiers/:id/hold", h.Holds.ReleaseHold)
	auth.POST("/tiers/:id/queue", h.Queue.Join)
	auth.GET("/tiers/:id/queue", h.Queue.Position)
	auth.DELETE("/tiers/:id/queue", h.Queue.Leave)
	auth.POST("/tickets/:id/transfer", h.Transfers.Transfer)

	org := e.Group("/v1")
	org.Use(middleware.JWTAuth(cfg.JWTSecret))
	org.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb))
	org.Use(middleware.RequireRole("ORGANIZER"))

	org.POST("/events", h.Organizer.CreateEvent)
	org.POST("/events/:id/publish", h.Organizer.Publish)
	org.POST("/events/:id/transition", h.Organizer.Transition)
	org.POST("/events/:id/tiers", h.Organizer.CreateTier)
	org.PATCH("/tiers/:id", h.Organizer.UpdateTier)
	org.POST("/tiers/:id/grant", h.Organizer.Grant)
}
