// Package signing pins the canonical byte layouts that ticket and
// transfer signatures cover, and defines the key custody boundary.
// The encodings here are the basis of all verification, including
// scanned proofs, so they are versioned and must never change
// silently; a new layout gets a new version prefix.
package signing

import (
	"strings"
	"time"
)

// Payload version prefixes.  Verification rejects anything it does not
// recognise, so bumping a version is an explicit migration.
const (
	ticketPayloadV1   = "ticket.v1"
	transferPayloadV1 = "transfer.v1"
)

// fieldSep joins payload fields.  DIDs, UUIDs and RFC 3339 timestamps
// cannot contain '|', so the encoding is unambiguous.
const fieldSep = "|"

// TicketPayload returns the canonical bytes an event custodian signs
// when a ticket is minted: the ticket id, the issuing event's DID, the
// owner at issuance and the issuance instant, in that fixed order.
// The timestamp is encoded as RFC 3339 in UTC so the same wall-clock
// instant always produces identical bytes.
func TicketPayload(ticketID, eventDID, ownerDID string, issuedAt time.Time) []byte {
	return []byte(strings.Join([]string{
		ticketPayloadV1,
		ticketID,
		eventDID,
		ownerDID,
		issuedAt.UTC().Format(time.RFC3339),
	}, fieldSep))
}

// TransferPayload returns the canonical bytes a current owner signs to
// consent to handing a ticket over.
func TransferPayload(ticketID, fromDID, toDID string, at time.Time) []byte {
	return []byte(strings.Join([]string{
		transferPayloadV1,
		ticketID,
		fromDID,
		toDID,
		at.UTC().Format(time.RFC3339),
	}, fieldSep))
}
