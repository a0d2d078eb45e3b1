package model

import "time"

// Tier is a named ticket category inside an event (e.g. "Virtual",
// "VIP") with its own price and optional capacity.  The Sold and Held
// counters together form the capacity ledger for the tier: the
// invariant Sold + Held <= *Capacity must hold at every instant when a
// capacity is set.  Both counters are mutated exclusively through the
// atomic conditional updates in the repository layer, never by
// read-modify-write in application code.
//
// Fields:
//  ID         – primary key identifier (UUID).
//  EventID    – owning event.
//  Name       – tier label shown to buyers.
//  PriceCents – price in minor currency units.
//  Currency   – ISO 4217 currency code.
//  Capacity   – maximum units ever sellable; nil means unbounded.
//  Sold       – units converted into valid tickets.  Monotonically
//               non-decreasing; cancellations flip ticket status but
//               never decrement this counter.
//  Held       – units currently reserved by unexpired holds.
//  Perks      – ordered list of perk descriptions.  Append-only: an
//               update may add perks but never remove or reorder the
//               existing prefix.
type Tier struct {
	ID         string    // tiers.id
	EventID    string    // tiers.event_id
	Name       string    // tiers.name
	PriceCents uint32    // tiers.price_cents
	Currency   string    // tiers.currency
	Capacity   *uint32   // tiers.capacity (nullable)
	Sold       uint32    // tiers.sold
	Held       uint32    // tiers.held
	Perks      []string  // tiers.perks (JSON array)
	CreatedAt  time.Time // tiers.created_at
	UpdatedAt  time.Time // tiers.updated_at
}

// Remaining returns how many units can still be reserved or sold, or
// (0, false) when the tier is unbounded.
func (t Tier) Remaining() (uint32, bool) {
	if t.Capacity == nil {
		return 0, false
	}
	committed := t.Sold + t.Held
	if committed >= *t.Capacity {
		return 0, true
	}
	return *t.Capacity - committed, true
}

// TierUpdate carries the proposed new values for the mutable tier
// fields.  A nil pointer means "leave unchanged".  Whether the update
// is admissible is decided by service.ValidateTierUpdate, which
// compares proposed against current state and rejects the whole update
// when any single rule is violated.
type TierUpdate struct {
	Name       *string  `json:"name"`
	PriceCents *uint32  `json:"price_cents"`
	Capacity   *uint32  `json:"capacity"`
	Perks      []string `json:"perks"`
}
