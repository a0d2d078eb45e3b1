package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mintgate/ticket-engine/internal/model"
)

// EnqueueWaiting appends an identity to the tier's wait list.  The
// INSERT ... SELECT computes max(position)+1 and writes the new row in
// a single statement, so concurrent joins each get a distinct,
// strictly increasing position.  Positions count every entry ever
// created for the tier, including departed ones; they are never
// recycled, which is what keeps reported order stable when earlier
// entries leave.
func (t *sqlTx) EnqueueWaiting(ctx context.Context, tierID, did string, now time.Time) (model.QueueEntry, error) {
	const q = `INSERT INTO queue_entries (tier_id, did, position, status, joined_at)
	           SELECT ?, ?, COALESCE(MAX(position), 0) + 1, ?, ?
	           FROM queue_entries WHERE tier_id = ?`
	res, err := t.tx.ExecContext(ctx, q, tierID, did, model.QueueWaiting, now.UTC(), tierID)
	if err != nil {
		return model.QueueEntry{}, fmt.Errorf("enqueueing %s on tier %s: %w", did, tierID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.QueueEntry{}, err
	}
	entry := model.QueueEntry{
		ID:       uint64(id),
		TierID:   tierID,
		DID:      did,
		Status:   model.QueueWaiting,
		JoinedAt: now.UTC(),
	}
	// Read back the allocated position.
	const sel = `SELECT position FROM queue_entries WHERE id = ?`
	if err := t.tx.QueryRowContext(ctx, sel, id).Scan(&entry.Position); err != nil {
		return model.QueueEntry{}, fmt.Errorf("reading back queue position: %w", err)
	}
	return entry, nil
}

// WaitingEntry returns the identity's WAITING entry for the tier.
func (t *sqlTx) WaitingEntry(ctx context.Context, tierID, did string) (model.QueueEntry, error) {
	const q = `SELECT id, tier_id, did, position, status, joined_at, notified_at
	           FROM queue_entries WHERE tier_id = ? AND did = ? AND status = ?`
	var e model.QueueEntry
	err := t.tx.QueryRowContext(ctx, q, tierID, did, model.QueueWaiting).Scan(
		&e.ID, &e.TierID, &e.DID, &e.Position, &e.Status, &e.JoinedAt, &e.NotifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.QueueEntry{}, ErrNotQueued
	}
	if err != nil {
		return model.QueueEntry{}, fmt.Errorf("loading queue entry for %s on tier %s: %w", did, tierID, err)
	}
	return e, nil
}

// CountWaitingAhead ranks only WAITING entries; departed or purchased
// entries ahead of the caller no longer count against them.
func (t *sqlTx) CountWaitingAhead(ctx context.Context, tierID string, position uint64) (uint64, error) {
	const q = `SELECT COUNT(*) FROM queue_entries
	           WHERE tier_id = ? AND status = ? AND position < ?`
	var n uint64
	if err := t.tx.QueryRowContext(ctx, q, tierID, model.QueueWaiting, position).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting queue ahead on tier %s: %w", tierID, err)
	}
	return n, nil
}

// DeleteWaiting retires the identity's WAITING entry by flipping it to
// EXPIRED.  The row stays behind as a tombstone: a physical DELETE
// would let max(position)+1 hand the departed position to the next
// joiner, and positions are never reused.  Remaining positions are
// untouched: no renumbering, ever.
func (t *sqlTx) DeleteWaiting(ctx context.Context, tierID, did string) error {
	const q = `UPDATE queue_entries SET status = ? WHERE tier_id = ? AND did = ? AND status = ?`
	res, err := t.tx.ExecContext(ctx, q, model.QueueExpired, tierID, did, model.QueueWaiting)
	if err != nil {
		return fmt.Errorf("removing %s from tier %s queue: %w", did, tierID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotQueued
	}
	return nil
}

// MarkQueuePurchased flips a WAITING entry to PURCHASED after a
// successful mint.  A payer who never queued is not an error.
func (t *sqlTx) MarkQueuePurchased(ctx context.Context, tierID, did string) error {
	const q = `UPDATE queue_entries SET status = ? WHERE tier_id = ? AND did = ? AND status = ?`
	if _, err := t.tx.ExecContext(ctx, q, model.QueuePurchased, tierID, did, model.QueueWaiting); err != nil {
		return fmt.Errorf("marking queue entry purchased: %w", err)
	}
	return nil
}
