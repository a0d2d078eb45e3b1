package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/monitoring"
	"github.com/mintgate/ticket-engine/internal/queue"
	"github.com/mintgate/ticket-engine/internal/repository"
	"github.com/mintgate/ticket-engine/internal/signing"
)

// Registrar is the external identity-registration collaborator: it
// turns a payer's contact detail into a registered identity with a
// signing key.  The engine trusts its results as-is.
type Registrar interface {
	Register(ctx context.Context, contact string) (model.Identity, error)
}

// Notifier receives the "ticket issued" fact after a successful mint.
// Turning it into an email is someone else's job.
type Notifier interface {
	PublishTicketIssued(ctx context.Context, evt queue.TicketIssuedEvent) error
}

// IssuanceService converts confirmed payments (or direct organizer
// grants) into signed tickets.  A mint is idempotent on the payment
// reference: the payment collaborator delivers confirmations at least
// once, and replaying a reference returns the previously minted
// tickets without touching the sold counter again.  Ticket creation
// and the sold-count commit happen in one store transaction, so a
// partial outcome is never observable.
type IssuanceService struct {
	store     repository.Store
	custodian signing.Custodian
	registrar Registrar
	notifier  Notifier
	now       func() time.Time
}

// NewIssuanceService constructs an IssuanceService.  registrar and
// notifier may be nil: without a registrar every unknown contact gets
// a fallback identity, and without a notifier issuance facts are
// simply not emitted.
func NewIssuanceService(store repository.Store, custodian signing.Custodian, registrar Registrar, notifier Notifier) *IssuanceService {
	return &IssuanceService{
		store:     store,
		custodian: custodian,
		registrar: registrar,
		notifier:  notifier,
		now:       time.Now,
	}
}

// MintRequest carries one payment confirmation.  Either PayerDID or
// PayerContact identifies the buyer; when only the contact is present
// the owner identity is resolved through the registrar.
type MintRequest struct {
	PaymentRef   string
	TierID       string
	Quantity     uint32
	AmountCents  uint32
	Currency     string
	PayerContact string
	PayerDID     string

	// GrantorDID is set only for organizer grants and must match the
	// event creator.
	GrantorDID string
}

// Mint processes an external payment confirmation.
func (s *IssuanceService) Mint(ctx context.Context, req MintRequest) ([]model.Ticket, error) {
	return s.mint(ctx, req, false)
}

// Grant mints quantity tickets directly to an identity without a
// payment, for organizer comps.  Only the event creator may grant.
// Draft events may be granted into; paid sales require a published
// event.
func (s *IssuanceService) Grant(ctx context.Context, callerDID, tierID, toDID string, quantity uint32) ([]model.Ticket, error) {
	return s.mint(ctx, MintRequest{
		PaymentRef: "grant_" + uuid.NewString(),
		TierID:     tierID,
		Quantity:   quantity,
		PayerDID:   toDID,
		GrantorDID: callerDID,
	}, true)
}

func (s *IssuanceService) mint(ctx context.Context, req MintRequest, direct bool) ([]model.Ticket, error) {
	if req.Quantity == 0 {
		return nil, fmt.Errorf("mint quantity must be positive")
	}
	if req.PaymentRef == "" {
		return nil, fmt.Errorf("payment reference is required")
	}

	ownerDID, err := s.resolveOwner(ctx, req)
	if err != nil {
		return nil, err
	}

	// Load tier and event up front: the custodian signs outside the
	// mint transaction (pure computation plus an external call), and
	// the signed payload needs the event DID.  The authoritative
	// capacity check still happens inside the transaction below.
	var (
		tier  model.Tier
		event model.Event
	)
	if err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		tier, err = tx.GetTier(ctx, req.TierID)
		if err != nil {
			return err
		}
		event, err = tx.GetEvent(ctx, tier.EventID)
		return err
	}); err != nil {
		return nil, err
	}
	if direct {
		if event.CreatorDID != req.GrantorDID {
			return nil, repository.ErrForbidden
		}
		if !event.CanIssue() {
			return nil, ErrEventNotOnSale
		}
	} else if event.Status != model.EventPublished {
		return nil, ErrEventNotOnSale
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	manifest := model.SoleAttribution(event.CreatorDID)
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("building attribution manifest: %w", err)
	}
	tickets := make([]model.Ticket, 0, req.Quantity)
	for i := uint32(0); i < req.Quantity; i++ {
		ticketID := uuid.NewString()
		payload := signing.TicketPayload(ticketID, event.DID, ownerDID, issuedAt)
		sig, err := s.custodian.Sign(ctx, event.ID, payload)
		if err != nil {
			return nil, fmt.Errorf("signing ticket %s: %w", ticketID, err)
		}
		owner := ownerDID
		at := issuedAt
		ref := req.PaymentRef
		tickets = append(tickets, model.Ticket{
			ID:               ticketID,
			TierID:           tier.ID,
			EventID:          event.ID,
			Status:           model.TicketValid,
			OwnerDID:         &owner,
			OriginalOwnerDID: &owner,
			IssuedAt:         &at,
			Signature:        &sig,
			PaymentRef:       &ref,
			Attribution:      manifest,
		})
	}

	duplicate := false
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := tx.InsertPayment(ctx, model.Payment{
			Ref:         req.PaymentRef,
			TierID:      req.TierID,
			PayerDID:    ownerDID,
			Quantity:    req.Quantity,
			AmountCents: req.AmountCents,
			Currency:    req.Currency,
			ReceivedAt:  issuedAt,
		}); err != nil {
			if errors.Is(err, repository.ErrDuplicatePayment) {
				// Retried webhook: hand back what the first
				// delivery minted and change nothing.
				duplicate = true
				tickets, err = tx.TicketsByPaymentRef(ctx, req.PaymentRef)
				return err
			}
			return err
		}

		now := s.now().UTC()
		swept, err := tx.SweepExpiredHolds(ctx, req.TierID, now)
		if err != nil {
			return err
		}
		if err := tx.ReleaseCapacity(ctx, req.TierID, swept); err != nil {
			return err
		}

		// A buyer converting their hold already owns one reserved
		// unit; only the remainder needs fresh reservation.
		need := req.Quantity
		if hold, err := tx.ActiveHold(ctx, req.TierID, ownerDID, now); err == nil {
			if _, err := tx.DeleteHold(ctx, hold.ID, ownerDID); err != nil {
				return err
			}
			need--
		} else if !errors.Is(err, repository.ErrTicketNotFound) {
			return err
		}
		if need > 0 {
			if err := tx.ReserveCapacity(ctx, req.TierID, need); err != nil {
				return err
			}
		}
		if err := tx.CommitSale(ctx, req.TierID, req.Quantity); err != nil {
			return err
		}

		for i := range tickets {
			if err := tx.InsertTicket(ctx, &tickets[i]); err != nil {
				return err
			}
		}
		return tx.MarkQueuePurchased(ctx, req.TierID, ownerDID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrCapacityExceeded) {
			monitoring.CapacityRejected(req.TierID, "mint")
		}
		return nil, fmt.Errorf("minting for payment %s: %w", req.PaymentRef, err)
	}
	if duplicate {
		return tickets, nil
	}

	monitoring.TicketsMinted(tier.ID, req.Quantity)
	if s.notifier != nil {
		ids := make([]string, len(tickets))
		for i, tk := range tickets {
			ids[i] = tk.ID
		}
		evt := queue.TicketIssuedEvent{
			TicketIDs:  ids,
			EventID:    event.ID,
			EventDID:   event.DID,
			EventName:  event.Name,
			TierID:     tier.ID,
			TierName:   tier.Name,
			OwnerDID:   ownerDID,
			PaymentRef: req.PaymentRef,
			PriceCents: tier.PriceCents,
			Currency:   tier.Currency,
			IssuedAt:   issuedAt.Format(time.RFC3339),
		}
		if err := s.notifier.PublishTicketIssued(ctx, evt); err != nil {
			// Notification is a side effect; the mint already
			// committed and must not fail because of it.
			log.Printf("issuance: publishing ticket issued event failed: %v", err)
		}
	}
	return tickets, nil
}

// resolveOwner turns the mint request into an owner DID.  Known DIDs
// pass through; contacts resolve through the local identity mirror,
// then the registrar.  When the registrar fails the engine degrades to
// a deterministic fallback identity derived from the contact: it can
// receive tickets but has no signing key, so it can never produce a
// verifiable transfer.
func (s *IssuanceService) resolveOwner(ctx context.Context, req MintRequest) (string, error) {
	if req.PayerDID != "" {
		return req.PayerDID, nil
	}
	if req.PayerContact == "" {
		return "", fmt.Errorf("payment %s has neither payer did nor contact", req.PaymentRef)
	}

	var known model.Identity
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		known, err = tx.IdentityByContact(ctx, req.PayerContact)
		return err
	})
	if err == nil {
		return known.DID, nil
	}
	if !errors.Is(err, repository.ErrIdentityNotFound) {
		return "", err
	}

	identity, regErr := s.register(ctx, req.PayerContact)
	if regErr != nil {
		log.Printf("issuance: identity registration failed for payment %s, using fallback: %v", req.PaymentRef, regErr)
		contact := req.PayerContact
		identity = model.Identity{
			DID:     FallbackDID(contact),
			Contact: &contact,
		}
	}
	if err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.UpsertIdentity(ctx, identity)
	}); err != nil {
		return "", err
	}
	return identity.DID, nil
}

func (s *IssuanceService) register(ctx context.Context, contact string) (model.Identity, error) {
	if s.registrar == nil {
		return model.Identity{}, fmt.Errorf("no identity registrar configured")
	}
	return s.registrar.Register(ctx, contact)
}

// FallbackDID derives the deterministic placeholder identity for a
// contact detail.  The same contact always maps to the same DID, so a
// later retry (or a later successful registration against the same
// contact) finds the earlier tickets.
func FallbackDID(contact string) string {
	sum := sha256.Sum256([]byte(contact))
	return "did:mintgate:fallback:" + hex.EncodeToString(sum[:])
}
