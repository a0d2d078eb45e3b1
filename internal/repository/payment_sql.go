package repository

import (
	"context"
	"fmt"

	"github.com/mintgate/ticket-engine/internal/model"
)

// InsertPayment records a consumed payment confirmation.  The unique
// index on ref is the idempotency guard: two concurrent mints for the
// same reference race on this insert, exactly one wins, and the loser
// sees ErrDuplicatePayment instead of minting a second ticket set.
func (t *sqlTx) InsertPayment(ctx context.Context, p model.Payment) error {
	const q = `INSERT INTO payments (ref, tier_id, payer_did, quantity, amount_cents, currency, received_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, q, p.Ref, p.TierID, p.PayerDID, p.Quantity, p.AmountCents, p.Currency, p.ReceivedAt.UTC())
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("inserting payment %s: %w", p.Ref, err)
	}
	return nil
}
