// Package monitoring exposes Prometheus counters for the issuance
// engine.  Metrics are registered with promauto on the default
// registry; the server mounts promhttp on /metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	holdsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_holds_created_total",
		Help: "Holds successfully placed, per tier.",
	}, []string{"tier"})

	holdsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticket_holds_released_total",
		Help: "Holds released before conversion or expiry.",
	})

	capacityRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_capacity_rejections_total",
		Help: "Reservation attempts rejected by the capacity ledger, per tier and operation.",
	}, []string{"tier", "operation"})

	queueJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_queue_joins_total",
		Help: "Waiting-queue joins, per tier.",
	}, []string{"tier"})

	ticketsMinted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickets_minted_total",
		Help: "Tickets minted, per tier.",
	}, []string{"tier"})

	transfers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticket_transfers_total",
		Help: "Ownership transfers recorded.",
	})

	verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_verifications_total",
		Help: "Verification attempts by outcome.",
	}, []string{"outcome"})

	checkins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_checkins_total",
		Help: "Check-in attempts by outcome.",
	}, []string{"outcome"})
)

func outcome(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}

// HoldCreated records a successful hold on the given tier.
func HoldCreated(tierID string) { holdsCreated.WithLabelValues(tierID).Inc() }

// HoldReleased records a voluntary hold release.
func HoldReleased() { holdsReleased.Inc() }

// CapacityRejected records a capacity-ledger rejection.  operation is
// "hold" or "mint".
func CapacityRejected(tierID, operation string) {
	capacityRejections.WithLabelValues(tierID, operation).Inc()
}

// QueueJoined records a waiting-queue join on the given tier.
func QueueJoined(tierID string) { queueJoins.WithLabelValues(tierID).Inc() }

// TicketsMinted records qty tickets minted on the given tier.
func TicketsMinted(tierID string, qty uint32) {
	ticketsMinted.WithLabelValues(tierID).Add(float64(qty))
}

// TicketTransferred records one recorded ownership transfer.
func TicketTransferred() { transfers.Inc() }

// TicketVerified records a verification attempt.
func TicketVerified(valid bool) { verifications.WithLabelValues(outcome(valid)).Inc() }

// TicketCheckedIn records a check-in attempt.
func TicketCheckedIn(valid bool) { checkins.WithLabelValues(outcome(valid)).Inc() }
