package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/monitoring"
	"github.com/mintgate/ticket-engine/internal/repository"
	"github.com/mintgate/ticket-engine/internal/signing"
)

// TransferService re-assigns ticket ownership.  Every transfer
// requires consent proof: an Ed25519 signature from the current
// derived owner over the canonical transfer payload.  Authorization
// failures never mutate state.  Transfers change custody only; the
// sold counter is untouched.
type TransferService struct {
	store repository.Store
	now   func() time.Time
}

// NewTransferService constructs a TransferService.
func NewTransferService(store repository.Store) *TransferService {
	return &TransferService{store: store, now: time.Now}
}

// Transfer appends one custody record after verifying that fromDID is
// the ticket's current owner and that sigHex is fromDID's signature
// over {ticket, from, to, at}.  The denormalized owner cache on the
// ticket row is refreshed in the same transaction; the transfer log
// stays the source of truth.
func (s *TransferService) Transfer(ctx context.Context, ticketID, fromDID, toDID string, at time.Time, sigHex string) (model.Transfer, error) {
	if toDID == "" {
		return model.Transfer{}, fmt.Errorf("transfer recipient is required")
	}
	if toDID == fromDID {
		return model.Transfer{}, fmt.Errorf("cannot transfer a ticket to its current owner")
	}
	var transfer model.Transfer
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		ticket, err := tx.GetTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		// Holds are reservations, not tickets; used and cancelled
		// tickets stay with their last owner.
		if ticket.Status != model.TicketValid {
			return ErrNotTransferable
		}
		chain, err := tx.TransfersForTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if model.CurrentOwner(ticket, chain) != fromDID {
			return ErrNotOwner
		}
		owner, err := tx.GetIdentity(ctx, fromDID)
		if err != nil {
			if errors.Is(err, repository.ErrIdentityNotFound) {
				return ErrInvalidSignature
			}
			return err
		}
		// Fallback identities have no key and can never consent.
		if !owner.CanSign() {
			return ErrInvalidSignature
		}
		payload := signing.TransferPayload(ticketID, fromDID, toDID, at)
		if !signing.Verify(*owner.PublicKey, payload, sigHex) {
			return ErrInvalidSignature
		}
		transfer = model.Transfer{
			TicketID:      ticketID,
			FromDID:       fromDID,
			ToDID:         toDID,
			Signature:     sigHex,
			TransferredAt: at.UTC(),
		}
		if err := tx.InsertTransfer(ctx, &transfer); err != nil {
			return err
		}
		return tx.SetOwnerCache(ctx, ticketID, toDID, s.now())
	})
	if err != nil {
		return model.Transfer{}, err
	}
	monitoring.TicketTransferred()
	return transfer, nil
}

// ChainOfCustody returns the ticket's transfer history oldest first,
// together with the derived current owner.
func (s *TransferService) ChainOfCustody(ctx context.Context, ticketID string) ([]model.Transfer, string, error) {
	var (
		chain []model.Transfer
		owner string
	)
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		ticket, err := tx.GetTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		chain, err = tx.TransfersForTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		owner = model.CurrentOwner(ticket, chain)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return chain, owner, nil
}
