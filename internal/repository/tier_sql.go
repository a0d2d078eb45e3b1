package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mintgate/ticket-engine/internal/model"
)

// ReserveCapacity implements the core no-oversell guard.  The read of
// the current committed count and the increment happen in one
// conditional UPDATE: the row only changes when sold + held + n still
// fits under capacity, so concurrent callers can never jointly reserve
// more than the cap.  Unbounded tiers (capacity NULL) always match.
func (t *sqlTx) ReserveCapacity(ctx context.Context, tierID string, n uint32) error {
	const q = `UPDATE tiers
	           SET held = held + ?, updated_at = ?
	           WHERE id = ? AND (capacity IS NULL OR sold + held + ? <= capacity)`
	res, err := t.tx.ExecContext(ctx, q, n, time.Now().UTC(), tierID, n)
	if err != nil {
		return fmt.Errorf("reserving %d units on tier %s: %w", n, tierID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the tier does not exist or the units are gone.
		var one int
		err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM tiers WHERE id = ?`, tierID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTierNotFound
		}
		if err != nil {
			return fmt.Errorf("checking tier %s: %w", tierID, err)
		}
		return ErrCapacityExceeded
	}
	return nil
}

// CommitSale moves n units from held to sold in one step.  The guard
// on held prevents the counters from drifting if a caller ever tries
// to commit units it never reserved.
func (t *sqlTx) CommitSale(ctx context.Context, tierID string, n uint32) error {
	const q = `UPDATE tiers
	           SET held = held - ?, sold = sold + ?, updated_at = ?
	           WHERE id = ? AND held >= ?`
	res, err := t.tx.ExecContext(ctx, q, n, n, time.Now().UTC(), tierID, n)
	if err != nil {
		return fmt.Errorf("committing sale of %d units on tier %s: %w", n, tierID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("commit sale on tier %s: %d units were not reserved", tierID, n)
	}
	return nil
}

// ReleaseCapacity gives back n reserved-but-unsold units.
func (t *sqlTx) ReleaseCapacity(ctx context.Context, tierID string, n uint32) error {
	if n == 0 {
		return nil
	}
	const q = `UPDATE tiers
	           SET held = held - ?, updated_at = ?
	           WHERE id = ? AND held >= ?`
	res, err := t.tx.ExecContext(ctx, q, n, time.Now().UTC(), tierID, n)
	if err != nil {
		return fmt.Errorf("releasing %d units on tier %s: %w", n, tierID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("release on tier %s: %d units were not reserved", tierID, n)
	}
	return nil
}

// InsertTier creates a tier row.  Perks are stored as a JSON array.
func (t *sqlTx) InsertTier(ctx context.Context, tier *model.Tier) error {
	perks, err := json.Marshal(tier.Perks)
	if err != nil {
		return fmt.Errorf("encoding perks: %w", err)
	}
	now := time.Now().UTC()
	tier.CreatedAt = now
	tier.UpdatedAt = now
	const q = `INSERT INTO tiers (id, event_id, name, price_cents, currency, capacity, sold, held, perks, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = t.tx.ExecContext(ctx, q,
		tier.ID, tier.EventID, tier.Name, tier.PriceCents, tier.Currency,
		tier.Capacity, tier.Sold, tier.Held, string(perks), now, now)
	if err != nil {
		return fmt.Errorf("inserting tier %s: %w", tier.ID, err)
	}
	return nil
}

// GetTier loads one tier by id.
func (t *sqlTx) GetTier(ctx context.Context, tierID string) (model.Tier, error) {
	const q = `SELECT id, event_id, name, price_cents, currency, capacity, sold, held, perks, created_at, updated_at
	           FROM tiers WHERE id = ?`
	var (
		tier  model.Tier
		perks string
	)
	err := t.tx.QueryRowContext(ctx, q, tierID).Scan(
		&tier.ID, &tier.EventID, &tier.Name, &tier.PriceCents, &tier.Currency,
		&tier.Capacity, &tier.Sold, &tier.Held, &perks, &tier.CreatedAt, &tier.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tier{}, ErrTierNotFound
	}
	if err != nil {
		return model.Tier{}, fmt.Errorf("loading tier %s: %w", tierID, err)
	}
	if err := json.Unmarshal([]byte(perks), &tier.Perks); err != nil {
		return model.Tier{}, fmt.Errorf("decoding perks for tier %s: %w", tierID, err)
	}
	return tier, nil
}

// UpdateTier persists the mutable tier fields.  Counters are excluded
// on purpose: sold/held only move through the capacity ledger calls.
func (t *sqlTx) UpdateTier(ctx context.Context, tier model.Tier) error {
	perks, err := json.Marshal(tier.Perks)
	if err != nil {
		return fmt.Errorf("encoding perks: %w", err)
	}
	const q = `UPDATE tiers SET name = ?, price_cents = ?, capacity = ?, perks = ?, updated_at = ? WHERE id = ?`
	res, err := t.tx.ExecContext(ctx, q, tier.Name, tier.PriceCents, tier.Capacity, string(perks), time.Now().UTC(), tier.ID)
	if err != nil {
		return fmt.Errorf("updating tier %s: %w", tier.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTierNotFound
	}
	return nil
}
