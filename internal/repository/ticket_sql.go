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

const ticketColumns = `id, tier_id, event_id, status, owner_did, original_owner_did,
	held_by, held_until, issued_at, signature, payment_ref, attribution, created_at, updated_at`

// scanTicket reads one ticket row.  Attribution is stored as JSON;
// hold rows carry an empty manifest.
func scanTicket(row interface{ Scan(...any) error }) (model.Ticket, error) {
	var (
		tk          model.Ticket
		attribution sql.NullString
	)
	err := row.Scan(
		&tk.ID, &tk.TierID, &tk.EventID, &tk.Status, &tk.OwnerDID, &tk.OriginalOwnerDID,
		&tk.HeldBy, &tk.HeldUntil, &tk.IssuedAt, &tk.Signature, &tk.PaymentRef,
		&attribution, &tk.CreatedAt, &tk.UpdatedAt)
	if err != nil {
		return model.Ticket{}, err
	}
	if attribution.Valid && attribution.String != "" {
		if err := json.Unmarshal([]byte(attribution.String), &tk.Attribution); err != nil {
			return model.Ticket{}, fmt.Errorf("decoding attribution for ticket %s: %w", tk.ID, err)
		}
	}
	return tk, nil
}

// insertTicketRow is shared by InsertHold and InsertTicket; the two
// differ only in which nullable columns are populated.
func (t *sqlTx) insertTicketRow(ctx context.Context, tk *model.Ticket) error {
	var attribution *string
	if len(tk.Attribution.Splits) > 0 {
		raw, err := json.Marshal(tk.Attribution)
		if err != nil {
			return fmt.Errorf("encoding attribution: %w", err)
		}
		s := string(raw)
		attribution = &s
	}
	now := time.Now().UTC()
	tk.CreatedAt = now
	tk.UpdatedAt = now
	const q = `INSERT INTO tickets (` + ticketColumns + `)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, q,
		tk.ID, tk.TierID, tk.EventID, tk.Status, tk.OwnerDID, tk.OriginalOwnerDID,
		tk.HeldBy, tk.HeldUntil, tk.IssuedAt, tk.Signature, tk.PaymentRef,
		attribution, now, now)
	if err != nil {
		return fmt.Errorf("inserting ticket %s: %w", tk.ID, err)
	}
	return nil
}

// InsertTicket creates a minted (VALID) ticket row.
func (t *sqlTx) InsertTicket(ctx context.Context, tk *model.Ticket) error {
	return t.insertTicketRow(ctx, tk)
}

// GetTicket loads one ticket (or hold) by id.
func (t *sqlTx) GetTicket(ctx context.Context, ticketID string) (model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	tk, err := scanTicket(t.tx.QueryRowContext(ctx, q, ticketID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, ErrTicketNotFound
	}
	if err != nil {
		return model.Ticket{}, fmt.Errorf("loading ticket %s: %w", ticketID, err)
	}
	return tk, nil
}

// TicketsByPaymentRef returns the tickets a prior mint created for the
// payment reference, in insertion order, for the idempotent replay
// path.  Ordering by seq keeps replayed webhook responses identical to
// the first response; created_at only has second precision and ids are
// random, so neither orders reliably.
func (t *sqlTx) TicketsByPaymentRef(ctx context.Context, ref string) ([]model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE payment_ref = ? ORDER BY seq`
	rows, err := t.tx.QueryContext(ctx, q, ref)
	if err != nil {
		return nil, fmt.Errorf("loading tickets for payment %s: %w", ref, err)
	}
	defer rows.Close()
	var tickets []model.Ticket
	for rows.Next() {
		tk, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// MarkTicketUsed performs the one-shot VALID -> USED transition.  The
// status guard in the WHERE clause is what makes check-in fire exactly
// once under concurrent scans.
func (t *sqlTx) MarkTicketUsed(ctx context.Context, ticketID string, now time.Time) error {
	const q = `UPDATE tickets SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := t.tx.ExecContext(ctx, q, model.TicketUsed, now.UTC(), ticketID, model.TicketValid)
	if err != nil {
		return fmt.Errorf("marking ticket %s used: %w", ticketID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// SetOwnerCache refreshes the denormalized current-owner column.
func (t *sqlTx) SetOwnerCache(ctx context.Context, ticketID, ownerDID string, now time.Time) error {
	const q = `UPDATE tickets SET owner_did = ?, updated_at = ? WHERE id = ?`
	res, err := t.tx.ExecContext(ctx, q, ownerDID, now.UTC(), ticketID)
	if err != nil {
		return fmt.Errorf("caching owner for ticket %s: %w", ticketID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// --- holds ---------------------------------------------------------------

// SweepExpiredHolds lazily reclaims lapsed holds for a tier.  Called
// inside the transaction of any contended request so stale holds never
// block capacity; see the Store doc for the staleness bound.
func (t *sqlTx) SweepExpiredHolds(ctx context.Context, tierID string, now time.Time) (uint32, error) {
	const q = `DELETE FROM tickets WHERE tier_id = ? AND status = ? AND held_until <= ?`
	res, err := t.tx.ExecContext(ctx, q, tierID, model.TicketHeld, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("sweeping holds for tier %s: %w", tierID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return uint32(affected), nil
}

// ActiveHold returns did's unexpired hold on the tier, if any.
func (t *sqlTx) ActiveHold(ctx context.Context, tierID, did string, now time.Time) (model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets
	           WHERE tier_id = ? AND status = ? AND held_by = ? AND held_until > ?`
	tk, err := scanTicket(t.tx.QueryRowContext(ctx, q, tierID, model.TicketHeld, did, now.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, ErrTicketNotFound
	}
	if err != nil {
		return model.Ticket{}, fmt.Errorf("loading hold for %s on tier %s: %w", did, tierID, err)
	}
	return tk, nil
}

// InsertHold creates a HELD ticket row.
func (t *sqlTx) InsertHold(ctx context.Context, tk *model.Ticket) error {
	return t.insertTicketRow(ctx, tk)
}

// DeleteHold removes a hold owned by did and returns it.  Missing row
// and foreign owner are indistinguishable on purpose.
func (t *sqlTx) DeleteHold(ctx context.Context, ticketID, did string) (model.Ticket, error) {
	const sel = `SELECT ` + ticketColumns + ` FROM tickets
	             WHERE id = ? AND status = ? AND held_by = ?`
	tk, err := scanTicket(t.tx.QueryRowContext(ctx, sel, ticketID, model.TicketHeld, did))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, ErrTicketNotFound
	}
	if err != nil {
		return model.Ticket{}, fmt.Errorf("loading hold %s: %w", ticketID, err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, ticketID); err != nil {
		return model.Ticket{}, fmt.Errorf("deleting hold %s: %w", ticketID, err)
	}
	return tk, nil
}
