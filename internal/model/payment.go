package model

import "time"

// Payment records one external payment confirmation consumed by the
// issuance engine.  Ref is the provider's unique payment reference and
// doubles as the mint idempotency key: the payment collaborator
// delivers confirmations at least once, and a second insert with the
// same Ref must be recognised as a duplicate rather than mint again.
type Payment struct {
	Ref         string    // payments.ref (unique)
	TierID      string    // payments.tier_id
	PayerDID    string    // payments.payer_did
	Quantity    uint32    // payments.quantity
	AmountCents uint32    // payments.amount_cents
	Currency    string    // payments.currency
	ReceivedAt  time.Time // payments.received_at
}
