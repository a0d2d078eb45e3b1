package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/queue"
	"github.com/mintgate/ticket-engine/internal/repository"
	"github.com/mintgate/ticket-engine/internal/service"
	"github.com/mintgate/ticket-engine/internal/signing"
)

// recordingNotifier captures published issuance events.
type recordingNotifier struct {
	events []queue.TicketIssuedEvent
}

func (r *recordingNotifier) PublishTicketIssued(_ context.Context, evt queue.TicketIssuedEvent) error {
	r.events = append(r.events, evt)
	return nil
}

func TestMintIssuesSignedTickets(t *testing.T) {
	f := newFixture(t, uint32ptr(10))
	notifier := &recordingNotifier{}
	issuance := service.NewIssuanceService(f.store, f.custodian, nil, notifier)
	alice := "did:mintgate:user:alice"

	tickets, err := issuance.Mint(context.Background(), service.MintRequest{
		PaymentRef:  "pay_001",
		TierID:      f.tier.ID,
		Quantity:    2,
		AmountCents: 10000,
		Currency:    "USD",
		PayerDID:    alice,
	})
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	for _, tk := range tickets {
		assert.Equal(t, model.TicketValid, tk.Status)
		require.NotNil(t, tk.OriginalOwnerDID)
		assert.Equal(t, alice, *tk.OriginalOwnerDID)
		require.NotNil(t, tk.Signature)
		require.NotNil(t, tk.IssuedAt)

		payload := signing.TicketPayload(tk.ID, f.event.DID, alice, *tk.IssuedAt)
		assert.True(t, signing.Verify(f.event.PublicKey, payload, *tk.Signature),
			"ticket signature must verify against the event public key")

		require.Len(t, tk.Attribution.Splits, 1)
		assert.Equal(t, organizerDID, tk.Attribution.Splits[0].DID)
		assert.Equal(t, uint32(100), tk.Attribution.Splits[0].Percent)
	}

	tier := f.loadTier(t)
	assert.Equal(t, uint32(2), tier.Sold)
	assert.Equal(t, uint32(0), tier.Held)

	require.Len(t, notifier.events, 1)
	assert.Len(t, notifier.events[0].TicketIDs, 2)
	assert.Equal(t, "pay_001", notifier.events[0].PaymentRef)
}

// A replayed webhook returns the tickets the first delivery minted and
// leaves the sold counter untouched.
func TestMintIdempotentOnPaymentRef(t *testing.T) {
	f := newFixture(t, uint32ptr(10))
	notifier := &recordingNotifier{}
	issuance := service.NewIssuanceService(f.store, f.custodian, nil, notifier)

	req := service.MintRequest{
		PaymentRef: "pay_replayed",
		TierID:     f.tier.ID,
		Quantity:   2,
		PayerDID:   "did:mintgate:user:alice",
	}
	first, err := issuance.Mint(context.Background(), req)
	require.NoError(t, err)

	second, err := issuance.Mint(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "replay returns the same tickets in the same order")
	}

	assert.Equal(t, uint32(2), f.loadTier(t).Sold)
	assert.Len(t, notifier.events, 1, "replay must not re-publish the issuance event")
}

/// A buyer converting their hold needs no additional capacity: the mint
// consumes the reserved unit.
func TestMintConvertsExistingHold(t *testing.T) {
	f := newFixture(t, uint32ptr(1))
	holds := service.NewHoldService(f.store, time.Hour)
	issuance := service.NewIssuanceService(f.store, f.custodian, nil, nil)
	alice := "did:mintgate:user:alice"

	_, err := holds.CreateHold(context.Background(), f.tier.ID, alice)
	require.NoError(t, err)

	tickets, err := issuance.Mint(context.Background(), service.MintRequest{
		PaymentRef: "pay_hold",
		TierID:     f.tier.ID,
		Quantity:   1,
		PayerDID:   alice,
	})
	require.NoError(t, err)
	require.Len(t, tickets, 1)

	tier := f.loadTier(t)
	assert.Equal(t, uint32(1), tier.Sold)
	assert.Equal(t, uint32(0), tier.Held)
}

func TestMintRejectsWhenSoldOut(t *testing.T) {
	f := newFixture(t, uint32ptr(1))
	issuance := service.NewIssuanceService(f.store, f.custodian, nil, nil)

	_, err := issuance.Mint(context.Background(), service.MintRequest{
		PaymentRef: "pay_big",
		TierID:     f.tier.ID,
		Quantity:   2,
		PayerDID:   "did:mintgate:user:alice",
	})
	assert.ErrorIs(t, err, repository.ErrCapacityExceeded)

	// The failed mint left nothing behind: no tickets, no payment, so
	// a corrected retry under the same reference succeeds.
	tier := f.loadTier(t)
	assert.Equal(t, uint32(0), tier.Sold)
	assert.Equal(t, uint32(0), tier.Held)

	tickets, err := issuance.Mint(context.Background(), service.MintRequest{
		PaymentRef: "pay_big",
		TierID:     f.tier.ID,
		Quantity:   1,
		PayerDID:   "did:mintgate:user:alice",
	})
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

// With no registrar configured, an unknown contact degrades to a
// deterministic fallback identity that can hold tickets but has no
// signing key.
func TestMintFallbackIdentity(t *testing.T) {
	f := newFixture(t, nil)
	issuance := service.NewIssuanceService(f.store, f.custodian, nil, nil)
	contact := "alice@example.com"

	tickets, err := issuance.Mint(context.Background(), service.MintRequest{
		PaymentRef:   "pay_contact",
		TierID:       f.tier.ID,
		Quantity:     1,
		PayerContact: contact,
	})
	require.NoError(t, err)
	require.Len(t, tickets, 1)

	want := service.FallbackDID(contact)
	assert.Equal(t, want, *tickets[0].OriginalOwnerDID)

	var identity model.Identity
	require.NoError(t, f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		var err error
		identity, err = tx.GetIdentity(context.Background(), want)
		return err
	}))
	assert.False(t, identity.CanSign())

	// A second payment from the same contact lands on the same DID.
	more, err := issuance.Mint(context.Background(), service.MintRequest{
		PaymentRef:   "pay_contact_2",
		TierID:       f.tier.ID,
		Quantity:     1,
		PayerContact: contact,
	})
	require.NoError(t, err)
	assert.Equal(t, want, *more[0].OriginalOwnerDID)
}

func TestGrantOnlyByEventCreator(t *testing.T) {
	f := newFixture(t, uint32ptr(5))
	issuance := service.NewIssuanceService(f.store, f.custodian, nil, nil)

	_, err := issuance.Grant(context.Background(), "did:mintgate:user:mallory", f.tier.ID, "did:mintgate:user:vip", 1)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.Equal(t, uint32(0), f.loadTier(t).Sold)

	tickets, err := issuance.Grant(context.Background(), organizerDID, f.tier.ID, "did:mintgate:user:vip", 2)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
	assert.Equal(t, uint32(2), f.loadTier(t).Sold)
}

// Grants work against draft events so organizers can seed comps before
// going on sale; paid mints do not.
func TestGrantIntoDraftEvent(t *testing.T) {
	f := newFixture(t, uint32ptr(5))
	require.NoError(t, f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		return tx.UpdateEventStatus(context.Background(), f.event.ID, model.EventDraft)
	}))
	issuance := service.NewIssuanceService(f.store, f.custodian, nil, nil)

	_, err := issuance.Grant(context.Background(), organizerDID, f.tier.ID, "did:mintgate:user:vip", 1)
	assert.NoError(t, err)

	_, err = issuance.Mint(context.Background(), service.MintRequest{
		PaymentRef: "pay_draft",
		TierID:     f.tier.ID,
		Quantity:   1,
		PayerDID:   "did:mintgate:user:alice",
	})
	assert.ErrorIs(t, err, service.ErrEventNotOnSale)
}

func TestMintMarksQueueEntryPurchased(t *testing.T) {
	f := newFixture(t, uint32ptr(5))
	waitlist := service.NewQueueService(f.store)
	issuance := service.NewIssuanceService(f.store, f.custodian, nil, nil)
	alice := "did:mintgate:user:alice"

	_, err := waitlist.Join(context.Background(), f.tier.ID, alice)
	require.NoError(t, err)

	_, err = issuance.Mint(context.Background(), service.MintRequest{
		PaymentRef: "pay_queued",
		TierID:     f.tier.ID,
		Quantity:   1,
		PayerDID:   alice,
	})
	require.NoError(t, err)

	_, err = waitlist.Position(context.Background(), f.tier.ID, alice)
	assert.True(t, errors.Is(err, repository.ErrNotQueued))
}

func TestMintValidatesRequest(t *testing.T) {
	f := newFixture(t, nil)
	issuance := service.NewIssuanceService(f.store, f.custodian, nil, nil)

	_, err := issuance.Mint(context.Background(), service.MintRequest{
		PaymentRef: "pay_zero", TierID: f.tier.ID, Quantity: 0, PayerDID: "did:x",
	})
	assert.Error(t, err)

	_, err = issuance.Mint(context.Background(), service.MintRequest{
		TierID: f.tier.ID, Quantity: 1, PayerDID: "did:x",
	})
	assert.Error(t, err)
}
