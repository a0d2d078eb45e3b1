// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketIssuedEvent is published once per successful mint.  It carries
// enough information for downstream consumers (notification, logging,
// analytics) to act without querying the primary database.
type TicketIssuedEvent struct {
	TicketIDs   []string `json:"ticket_ids"`
	EventID     string   `json:"event_id"`
	EventDID    string   `json:"event_did"`
	EventName   string   `json:"event_name"`
	TierID      string   `json:"tier_id"`
	TierName    string   `json:"tier_name"`
	OwnerDID    string   `json:"owner_did"`
	PaymentRef  string   `json:"payment_ref"`
	PriceCents  uint32   `json:"price_cents"`
	Currency    string   `json:"currency"`
	IssuedAt    string   `json:"issued_at"`
}
