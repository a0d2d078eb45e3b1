package model

import "time"

// TicketStatus enumerates the states a ticket row can be in.  HELD
// rows are reservations of capacity, not tickets: they carry no owner
// and no signature and are never verifiable.  A VALID ticket becomes
// USED exactly once at check-in; USED is terminal for entry purposes.
// CANCELLED tickets stay in the table but fail verification.  Transfer
// is not a status; it is a historical fact recorded in the transfers
// table while the ticket itself stays VALID.
type TicketStatus string

const (
	TicketHeld      TicketStatus = "HELD"
	TicketValid     TicketStatus = "VALID"
	TicketUsed      TicketStatus = "USED"
	TicketCancelled TicketStatus = "CANCELLED"
)

// Ticket is a single unit of a tier.  While HELD it only records who
// reserved it and until when.  Once minted it carries the immutable
// original owner, the issuance timestamp and the Ed25519 signature the
// event's custodian produced over the canonical proof payload.
//
// OwnerDID is a denormalized cache of the current owner.  The source
// of truth is the transfer log: CurrentOwner below derives the owner
// from OriginalOwnerDID plus the ordered transfers, and the cache is
// refreshed in the same transaction as every transfer insert.
//
// Fields:
//  ID               – primary key identifier (UUID).
//  TierID           – owning tier.
//  EventID          – owning event (denormalized for verification).
//  Status           – see TicketStatus.
//  OwnerDID         – cached current owner; nil while HELD.
//  OriginalOwnerDID – owner at issuance; immutable once set.
//  HeldBy           – reserving identity; only set while HELD.
//  HeldUntil        – absolute hold expiry (UTC); only set while HELD.
//  IssuedAt         – mint timestamp; part of the signed payload.
//  Signature        – hex Ed25519 signature over the proof payload.
//  PaymentRef       – external payment reference that minted this
//                     ticket; the idempotency key of the mint.
//  Attribution      – percentage splits of proceeds, must sum to 100.
type Ticket struct {
	ID               string              // tickets.id
	TierID           string              // tickets.tier_id
	EventID          string              // tickets.event_id
	Status           TicketStatus        // tickets.status
	OwnerDID         *string             // tickets.owner_did (nullable cache)
	OriginalOwnerDID *string             // tickets.original_owner_did
	HeldBy           *string             // tickets.held_by (nullable)
	HeldUntil        *time.Time          // tickets.held_until (nullable)
	IssuedAt         *time.Time          // tickets.issued_at (nullable)
	Signature        *string             // tickets.signature (nullable, hex)
	PaymentRef       *string             // tickets.payment_ref (nullable)
	Attribution      AttributionManifest // tickets.attribution (JSON)
	CreatedAt        time.Time           // tickets.created_at
	UpdatedAt        time.Time           // tickets.updated_at
}

// CurrentOwner derives the ticket's present owner from its immutable
// chain of custody: the `to` side of the most recent transfer, or the
// original owner when the ticket has never been transferred.  The
// transfers slice must be ordered oldest first, which is how the
// repository returns it.  Returns "" for holds, which have no owner.
func CurrentOwner(t Ticket, transfers []Transfer) string {
	if len(transfers) > 0 {
		return transfers[len(transfers)-1].ToDID
	}
	if t.OriginalOwnerDID != nil {
		return *t.OriginalOwnerDID
	}
	return ""
}

// HoldExpired reports whether a HELD row's reservation has lapsed at
// the supplied instant.  Non-hold rows never expire.
func (t Ticket) HoldExpired(now time.Time) bool {
	return t.Status == TicketHeld && t.HeldUntil != nil && !t.HeldUntil.After(now)
}
