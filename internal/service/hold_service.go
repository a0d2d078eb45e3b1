package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/monitoring"
	"github.com/mintgate/ticket-engine/internal/repository"
)

// DefaultHoldTTL is how long a hold reserves capacity when no TTL is
// configured.
const DefaultHoldTTL = 72 * time.Hour

// HoldService creates and releases time-boxed reservations against
// the capacity ledger.  Expired holds are swept lazily: the sweep runs
// inside the transaction of the next request that touches the tier, so
// a stale hold can linger while a tier is quiet but can never block a
// contended reservation.
type HoldService struct {
	store repository.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewHoldService constructs a HoldService.  A non-positive ttl falls
// back to DefaultHoldTTL.
func NewHoldService(store repository.Store, ttl time.Duration) *HoldService {
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	return &HoldService{store: store, ttl: ttl, now: time.Now}
}

// CreateHold reserves one unit of the tier for the identity.  At most
// one active hold per (tier, identity): a second request returns the
// existing hold with ErrAlreadyHeld and reserves nothing.  When the
// tier is sold out the caller gets repository.ErrCapacityExceeded and
// can join the wait list instead.
func (s *HoldService) CreateHold(ctx context.Context, tierID, did string) (model.Ticket, error) {
	var hold model.Ticket
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		now := s.now().UTC()
		tier, err := tx.GetTier(ctx, tierID)
		if err != nil {
			return err
		}
		event, err := tx.GetEvent(ctx, tier.EventID)
		if err != nil {
			return err
		}
		if event.Status != model.EventPublished {
			return ErrEventNotOnSale
		}
		// Reclaim lapsed holds before judging capacity so they never
		// block a live request.
		swept, err := tx.SweepExpiredHolds(ctx, tierID, now)
		if err != nil {
			return err
		}
		if err := tx.ReleaseCapacity(ctx, tierID, swept); err != nil {
			return err
		}
		if existing, err := tx.ActiveHold(ctx, tierID, did, now); err == nil {
			hold = existing
			return ErrAlreadyHeld
		} else if !errors.Is(err, repository.ErrTicketNotFound) {
			return err
		}
		if err := tx.ReserveCapacity(ctx, tierID, 1); err != nil {
			return err
		}
		until := now.Add(s.ttl)
		hold = model.Ticket{
			ID:        uuid.NewString(),
			TierID:    tier.ID,
			EventID:   tier.EventID,
			Status:    model.TicketHeld,
			HeldBy:    &did,
			HeldUntil: &until,
		}
		return tx.InsertHold(ctx, &hold)
	})
	switch {
	case err == nil:
		monitoring.HoldCreated(tierID)
	case errors.Is(err, repository.ErrCapacityExceeded):
		monitoring.CapacityRejected(tierID, "hold")
	case errors.Is(err, ErrAlreadyHeld):
		// Existing hold is returned alongside the sentinel.
	default:
		return model.Ticket{}, fmt.Errorf("creating hold on tier %s: %w", tierID, err)
	}
	return hold, err
}

// ReleaseHold gives a reservation back.  Only the holder may release;
// a missing hold and someone else's hold are both ErrTicketNotFound.
func (s *HoldService) ReleaseHold(ctx context.Context, ticketID, did string) error {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		hold, err := tx.DeleteHold(ctx, ticketID, did)
		if err != nil {
			return err
		}
		return tx.ReleaseCapacity(ctx, hold.TierID, 1)
	})
	if err == nil {
		monitoring.HoldReleased()
	}
	return err
}

// ReleaseForTier releases the identity's active hold on the tier, for
// callers that know the tier but not the hold's ticket id.
func (s *HoldService) ReleaseForTier(ctx context.Context, tierID, did string) error {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		hold, err := tx.ActiveHold(ctx, tierID, did, s.now().UTC())
		if err != nil {
			return err
		}
		if _, err := tx.DeleteHold(ctx, hold.ID, did); err != nil {
			return err
		}
		return tx.ReleaseCapacity(ctx, tierID, 1)
	})
	if err == nil {
		monitoring.HoldReleased()
	}
	return err
}
