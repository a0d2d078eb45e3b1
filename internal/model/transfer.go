package model

import "time"

// Transfer is one immutable link in a ticket's chain of custody.  It
// records that FromDID handed the ticket to ToDID at TransferredAt and
// proves consent with FromDID's Ed25519 signature over the canonical
// transfer payload.  Rows are append-only; together with the ticket's
// OriginalOwnerDID the ordered sequence reconstructs the full history
// of legitimate holders.
//
// Fields:
//  ID            – primary key identifier.
//  TicketID      – ticket changing hands.
//  FromDID       – owner at the time of transfer.
//  ToDID         – recipient; becomes the current owner.
//  Signature     – hex Ed25519 signature by FromDID's key.
//  TransferredAt – consent timestamp (UTC); part of the signed bytes.
type Transfer struct {
	ID            uint64    // transfers.id
	TicketID      string    // transfers.ticket_id
	FromDID       string    // transfers.from_did
	ToDID         string    // transfers.to_did
	Signature     string    // transfers.signature (hex)
	TransferredAt time.Time // transfers.transferred_at
}
