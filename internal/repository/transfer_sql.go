package repository

import (
	"context"
	"fmt"

	"github.com/mintgate/ticket-engine/internal/model"
)

// TransfersForTicket returns the ticket's chain of custody, oldest
// first.  The auto-increment id is the tiebreaker for transfers that
// share a timestamp.
func (t *sqlTx) TransfersForTicket(ctx context.Context, ticketID string) ([]model.Transfer, error) {
	const q = `SELECT id, ticket_id, from_did, to_did, signature, transferred_at
	           FROM transfers WHERE ticket_id = ? ORDER BY id`
	rows, err := t.tx.QueryContext(ctx, q, ticketID)
	if err != nil {
		return nil, fmt.Errorf("loading transfers for ticket %s: %w", ticketID, err)
	}
	defer rows.Close()
	var transfers []model.Transfer
	for rows.Next() {
		var tr model.Transfer
		if err := rows.Scan(&tr.ID, &tr.TicketID, &tr.FromDID, &tr.ToDID, &tr.Signature, &tr.TransferredAt); err != nil {
			return nil, err
		}
		transfers = append(transfers, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transfers, nil
}

// InsertTransfer appends one immutable custody record.  There is no
// update or delete counterpart by design.
func (t *sqlTx) InsertTransfer(ctx context.Context, tr *model.Transfer) error {
	const q = `INSERT INTO transfers (ticket_id, from_did, to_did, signature, transferred_at)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, tr.TicketID, tr.FromDID, tr.ToDID, tr.Signature, tr.TransferredAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting transfer for ticket %s: %w", tr.TicketID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	tr.ID = uint64(id)
	return nil
}
