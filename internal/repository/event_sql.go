package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mintgate/ticket-engine/internal/model"
)

// InsertEvent creates an event row.  The public key is stored as hex;
// the private half never reaches this service.
func (t *sqlTx) InsertEvent(ctx context.Context, e *model.Event) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	const q = `INSERT INTO events (id, did, creator_did, name, public_key, status, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, q, e.ID, e.DID, e.CreatorDID, e.Name, e.PublicKey, e.Status, now, now)
	if err != nil {
		return fmt.Errorf("inserting event %s: %w", e.ID, err)
	}
	return nil
}

// GetEvent loads one event by id.
func (t *sqlTx) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	const q = `SELECT id, did, creator_did, name, public_key, status, created_at, updated_at
	           FROM events WHERE id = ?`
	var e model.Event
	err := t.tx.QueryRowContext(ctx, q, eventID).Scan(
		&e.ID, &e.DID, &e.CreatorDID, &e.Name, &e.PublicKey, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrEventNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("loading event %s: %w", eventID, err)
	}
	return e, nil
}

// UpdateEventStatus moves the event to a new lifecycle state.  Legal
// transitions are enforced by the service layer.
func (t *sqlTx) UpdateEventStatus(ctx context.Context, eventID string, status model.EventStatus) error {
	const q = `UPDATE events SET status = ?, updated_at = ? WHERE id = ?`
	res, err := t.tx.ExecContext(ctx, q, status, time.Now().UTC(), eventID)
	if err != nil {
		return fmt.Errorf("updating event %s status: %w", eventID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	return nil
}
