package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/monitoring"
	"github.com/mintgate/ticket-engine/internal/repository"
)

// QueueService manages the per-tier wait list.  It only orders and
// reports: promotion of waiting identities into holds when capacity
// frees up is a product policy this engine exposes data for but does
// not drive.
type QueueService struct {
	store repository.Store
	now   func() time.Time
}

// NewQueueService constructs a QueueService.
func NewQueueService(store repository.Store) *QueueService {
	return &QueueService{store: store, now: time.Now}
}

// Rank is a caller-facing view of a wait-list place: the durable join
// position plus how many WAITING entries sit in front of it.
type Rank struct {
	Position   uint64 `json:"position"`
	AheadCount uint64 `json:"ahead_count"`
}

// Join appends the identity to the tier's wait list.  The assigned
// position is one greater than the maximum ever assigned for the tier,
// allocated atomically, so concurrent joins always receive distinct,
// strictly increasing positions.  Joining twice returns the existing
// entry with ErrAlreadyQueued.
func (s *QueueService) Join(ctx context.Context, tierID, did string) (model.QueueEntry, error) {
	var entry model.QueueEntry
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
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
		if existing, err := tx.WaitingEntry(ctx, tierID, did); err == nil {
			entry = existing
			return ErrAlreadyQueued
		} else if !errors.Is(err, repository.ErrNotQueued) {
			return err
		}
		entry, err = tx.EnqueueWaiting(ctx, tierID, did, s.now())
		return err
	})
	if err == nil {
		monitoring.QueueJoined(tierID)
	} else if !errors.Is(err, ErrAlreadyQueued) {
		return model.QueueEntry{}, fmt.Errorf("joining queue for tier %s: %w", tierID, err)
	}
	return entry, err
}

// Position reports the identity's durable position and how many
// waiting entries are ahead of it.  Departed entries leave no gap in
// the ahead count but positions themselves are never renumbered.
func (s *QueueService) Position(ctx context.Context, tierID, did string) (Rank, error) {
	var rank Rank
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		entry, err := tx.WaitingEntry(ctx, tierID, did)
		if err != nil {
			return err
		}
		ahead, err := tx.CountWaitingAhead(ctx, tierID, entry.Position)
		if err != nil {
			return err
		}
		rank = Rank{Position: entry.Position, AheadCount: ahead}
		return nil
	})
	return rank, err
}

// Leave removes the identity's WAITING entry.  Its position is
// retired, never handed to a later joiner.
func (s *QueueService) Leave(ctx context.Context, tierID, did string) error {
	return s.store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.DeleteWaiting(ctx, tierID, did)
	})
}
