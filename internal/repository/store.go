package repository

import (
	"context"
	"time"

	"github.com/mintgate/ticket-engine/internal/model"
)

// Store is the single entry point for engine state mutation.  Every
// engine operation executes as one atomic unit inside WithinTx: the
// callback either commits in full or leaves no trace.  Multiple engine
// instances may share one store; correctness depends entirely on the
// store's transaction isolation and the conditional updates below, not
// on in-process locking.
type Store interface {
	// WithinTx runs fn inside a transaction.  fn returning an error
	// rolls the transaction back and propagates the error unchanged.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside a transaction.  Reads
// performed outside the mutating transaction are advisory only; the
// authoritative check always happens inside the atomic write.
type Tx interface {
	// --- capacity ledger -------------------------------------------------
	//
	// The per-tier sold/held counters are the engine's single shared
	// mutable resource.  All mutation funnels through these three
	// calls; each is a single conditional update, never a
	// read-then-write pair.

	// ReserveCapacity increments the tier's held count by n, but only
	// if sold + held + n stays within capacity.  Unbounded tiers
	// always succeed.  Returns ErrCapacityExceeded without mutating
	// anything when the units are not available.
	ReserveCapacity(ctx context.Context, tierID string, n uint32) error
	// CommitSale converts n previously reserved units into sold
	// units: held -= n, sold += n in one atomic step.  It cannot
	// exceed capacity because the units were already reserved.
	CommitSale(ctx context.Context, tierID string, n uint32) error
	// ReleaseCapacity gives back n reserved-but-unsold units.
	ReleaseCapacity(ctx context.Context, tierID string, n uint32) error

	// --- events and tiers ------------------------------------------------

	InsertEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
	UpdateEventStatus(ctx context.Context, eventID string, status model.EventStatus) error
	InsertTier(ctx context.Context, t *model.Tier) error
	GetTier(ctx context.Context, tierID string) (model.Tier, error)
	// UpdateTier persists name, price, capacity and perks.  Rule
	// validation (append-only perks, price decreases only, capacity
	// never below committed units) happens in the service layer
	// before this is called.
	UpdateTier(ctx context.Context, t model.Tier) error

	// --- holds -----------------------------------------------------------

	// SweepExpiredHolds deletes every hold for the tier whose
	// held_until has passed and returns how many were removed so the
	// caller can release their capacity.  Expiry is lazy: this runs
	// inside the transaction of the next contended request, not on a
	// timer, so an expired hold may linger until the tier is next
	// touched.
	SweepExpiredHolds(ctx context.Context, tierID string, now time.Time) (uint32, error)
	// ActiveHold returns the caller's unexpired hold on the tier, or
	// ErrTicketNotFound when there is none.
	ActiveHold(ctx context.Context, tierID, did string, now time.Time) (model.Ticket, error)
	InsertHold(ctx context.Context, t *model.Ticket) error
	// DeleteHold removes a hold row owned by did.  Returns
	// ErrTicketNotFound when no such hold exists or it belongs to
	// someone else.
	DeleteHold(ctx context.Context, ticketID, did string) (model.Ticket, error)

	// --- tickets ---------------------------------------------------------

	InsertTicket(ctx context.Context, t *model.Ticket) error
	GetTicket(ctx context.Context, ticketID string) (model.Ticket, error)
	// TicketsByPaymentRef returns the tickets a previous mint created
	// for the reference, in creation order.
	TicketsByPaymentRef(ctx context.Context, ref string) ([]model.Ticket, error)
	// MarkTicketUsed transitions a VALID ticket to USED.  Returns
	// ErrTicketNotFound when the row is missing or not VALID, so the
	// transition fires exactly once.
	MarkTicketUsed(ctx context.Context, ticketID string, now time.Time) error
	// SetOwnerCache refreshes the denormalized owner column.  The
	// transfer log remains the source of truth; this cache is only
	// ever written in the same transaction as a transfer insert.
	SetOwnerCache(ctx context.Context, ticketID, ownerDID string, now time.Time) error

	// --- payments --------------------------------------------------------

	// InsertPayment records a consumed payment confirmation.  Returns
	// ErrDuplicatePayment when the reference was already consumed.
	InsertPayment(ctx context.Context, p model.Payment) error

	// --- queue -----------------------------------------------------------

	// WaitingEntry returns the identity's WAITING entry for the tier,
	// or ErrNotQueued.
	WaitingEntry(ctx context.Context, tierID, did string) (model.QueueEntry, error)
	// EnqueueWaiting appends the identity to the tier's wait list,
	// atomically allocating position = max position ever assigned for
	// the tier + 1.  Positions are never reused or renumbered.
	EnqueueWaiting(ctx context.Context, tierID, did string, now time.Time) (model.QueueEntry, error)
	// CountWaitingAhead returns how many WAITING entries for the tier
	// have a smaller position.
	CountWaitingAhead(ctx context.Context, tierID string, position uint64) (uint64, error)
	// DeleteWaiting removes the identity's WAITING entry.  Returns
	// ErrNotQueued when there is none.  Positions of the remaining
	// entries are untouched.
	DeleteWaiting(ctx context.Context, tierID, did string) error
	// MarkQueuePurchased flips the identity's WAITING entry to
	// PURCHASED if one exists; silently a no-op otherwise.
	MarkQueuePurchased(ctx context.Context, tierID, did string) error

	// --- transfers -------------------------------------------------------

	// TransfersForTicket returns the ticket's transfer chain ordered
	// oldest first.
	TransfersForTicket(ctx context.Context, ticketID string) ([]model.Transfer, error)
	InsertTransfer(ctx context.Context, tr *model.Transfer) error

	// --- identities ------------------------------------------------------

	GetIdentity(ctx context.Context, did string) (model.Identity, error)
	IdentityByContact(ctx context.Context, contact string) (model.Identity, error)
	UpsertIdentity(ctx context.Context, id model.Identity) error
}
