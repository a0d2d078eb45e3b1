package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mintgate/ticket-engine/internal/model"
)

// GetIdentity loads one identity by DID.
func (t *sqlTx) GetIdentity(ctx context.Context, did string) (model.Identity, error) {
	const q = `SELECT did, public_key, display_name, contact, created_at FROM identities WHERE did = ?`
	var id model.Identity
	err := t.tx.QueryRowContext(ctx, q, did).Scan(&id.DID, &id.PublicKey, &id.DisplayName, &id.Contact, &id.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Identity{}, ErrIdentityNotFound
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("loading identity %s: %w", did, err)
	}
	return id, nil
}

// IdentityByContact resolves a payer's contact detail (normally an
// email) to a known identity.
func (t *sqlTx) IdentityByContact(ctx context.Context, contact string) (model.Identity, error) {
	const q = `SELECT did, public_key, display_name, contact, created_at
	           FROM identities WHERE contact = ? ORDER BY created_at LIMIT 1`
	var id model.Identity
	err := t.tx.QueryRowContext(ctx, q, contact).Scan(&id.DID, &id.PublicKey, &id.DisplayName, &id.Contact, &id.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Identity{}, ErrIdentityNotFound
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("resolving identity by contact: %w", err)
	}
	return id, nil
}

// UpsertIdentity inserts or refreshes the local mirror of an identity.
// The external identity service owns the data; this table is a cache
// plus the home of fallback identities minted on its failure.
func (t *sqlTx) UpsertIdentity(ctx context.Context, id model.Identity) error {
	const q = `INSERT INTO identities (did, public_key, display_name, contact, created_at)
	           VALUES (?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	             public_key = COALESCE(VALUES(public_key), public_key),
	             display_name = COALESCE(VALUES(display_name), display_name),
	             contact = COALESCE(VALUES(contact), contact)`
	_, err := t.tx.ExecContext(ctx, q, id.DID, id.PublicKey, id.DisplayName, id.Contact, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting identity %s: %w", id.DID, err)
	}
	return nil
}
