package service

import (
	"context"
	"errors"
	"time"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/monitoring"
	"github.com/mintgate/ticket-engine/internal/repository"
	"github.com/mintgate/ticket-engine/internal/signing"
)

// Invalid reasons reported by verification.  They are part of the API
// surface: proof pages and gate scanners display them.
const (
	ReasonUnknownTicket     = "unknown ticket"
	ReasonNotIssued         = "not an issued ticket"
	ReasonCancelled         = "ticket cancelled"
	ReasonSignatureMismatch = "signature mismatch"
	ReasonOwnerMismatch     = "owner mismatch"
	ReasonAlreadyUsed       = "ticket already used"
)

// VerifyResult is the outcome of a verification or check-in attempt.
// Reason is empty when Valid.
type VerifyResult struct {
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason,omitempty"`
	TicketID string `json:"ticket_id"`
	OwnerDID string `json:"owner_did,omitempty"`
}

// VerifyService validates tickets against their issuing event's public
// key, for public proof pages and gate scanning alike.
type VerifyService struct {
	store repository.Store
	now   func() time.Time
}

// NewVerifyService constructs a VerifyService.
func NewVerifyService(store repository.Store) *VerifyService {
	return &VerifyService{store: store, now: time.Now}
}

// Verify recomputes the canonical proof payload and checks the
// supplied (or stored) signature against the event's public key, that
// the ticket is VALID or USED, and that claimedOwner matches the
// derived current owner.  Holds are never verifiable: they carry no
// signature.  A bad ticket yields Valid=false with a reason, not an
// error; errors are reserved for store failures.
func (s *VerifyService) Verify(ctx context.Context, ticketID, claimedOwner, sigHex string) (VerifyResult, error) {
	var result VerifyResult
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		result, _, err = s.inspect(ctx, tx, ticketID, claimedOwner, sigHex)
		return err
	})
	if err != nil {
		return VerifyResult{}, err
	}
	monitoring.TicketVerified(result.Valid)
	return result, nil
}

// CheckIn verifies the ticket and, when valid, transitions it to USED.
// The transition fires exactly once: a second scan reports the ticket
// as already used.  Check-in is terminal for entry purposes but does
// not prevent future transfer of the USED ticket's history.
func (s *VerifyService) CheckIn(ctx context.Context, ticketID, claimedOwner, sigHex string) (VerifyResult, error) {
	var result VerifyResult
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		res, ticket, err := s.inspect(ctx, tx, ticketID, claimedOwner, sigHex)
		if err != nil {
			return err
		}
		result = res
		if !result.Valid {
			return nil
		}
		if ticket.Status == model.TicketUsed {
			result.Valid = false
			result.Reason = ReasonAlreadyUsed
			return nil
		}
		return tx.MarkTicketUsed(ctx, ticketID, s.now())
	})
	if err != nil {
		return VerifyResult{}, err
	}
	monitoring.TicketCheckedIn(result.Valid)
	return result, nil
}

// inspect runs the shared verification checks and also returns the
// loaded ticket so CheckIn can reason about its status.
func (s *VerifyService) inspect(ctx context.Context, tx repository.Tx, ticketID, claimedOwner, sigHex string) (VerifyResult, model.Ticket, error) {
	invalid := func(reason string) VerifyResult {
		return VerifyResult{Valid: false, Reason: reason, TicketID: ticketID}
	}
	ticket, err := tx.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return invalid(ReasonUnknownTicket), model.Ticket{}, nil
		}
		return VerifyResult{}, model.Ticket{}, err
	}
	switch ticket.Status {
	case model.TicketHeld:
		// A hold misrepresented as a ticket has no signature and
		// never verifies.
		return invalid(ReasonNotIssued), ticket, nil
	case model.TicketCancelled:
		return invalid(ReasonCancelled), ticket, nil
	}
	if ticket.OriginalOwnerDID == nil || ticket.IssuedAt == nil || ticket.Signature == nil {
		return invalid(ReasonNotIssued), ticket, nil
	}
	event, err := tx.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return VerifyResult{}, model.Ticket{}, err
	}
	sig := sigHex
	if sig == "" {
		sig = *ticket.Signature
	}
	payload := signing.TicketPayload(ticket.ID, event.DID, *ticket.OriginalOwnerDID, *ticket.IssuedAt)
	if !signing.Verify(event.PublicKey, payload, sig) {
		return invalid(ReasonSignatureMismatch), ticket, nil
	}
	chain, err := tx.TransfersForTicket(ctx, ticketID)
	if err != nil {
		return VerifyResult{}, model.Ticket{}, err
	}
	owner := model.CurrentOwner(ticket, chain)
	if claimedOwner != owner {
		return invalid(ReasonOwnerMismatch), ticket, nil
	}
	return VerifyResult{Valid: true, TicketID: ticketID, OwnerDID: owner}, ticket, nil
}
