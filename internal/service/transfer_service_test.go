package service_test

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/service"
	"github.com/mintgate/ticket-engine/internal/signing"
)

// mintTo issues one ticket to did and returns it.
func mintTo(t *testing.T, f *fixture, ref, did string) model.Ticket {
	t.Helper()
	issuance := service.NewIssuanceService(f.store, f.custodian, nil, nil)
	tickets, err := issuance.Mint(context.Background(), service.MintRequest{
		PaymentRef: ref,
		TierID:     f.tier.ID,
		Quantity:   1,
		PayerDID:   did,
	})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	return tickets[0]
}

func signTransfer(priv ed25519.PrivateKey, ticketID, from, to string, at time.Time) string {
	return hex.EncodeToString(ed25519.Sign(priv, signing.TransferPayload(ticketID, from, to, at)))
}

// Ownership follows the chain of custody: after alice -> bob, only bob
// can transfer on, and alice's signature no longer authorizes anything.
func TestTransferChainOfCustody(t *testing.T) {
	f := newFixture(t, nil)
	transfers := service.NewTransferService(f.store)
	ctx := context.Background()

	alice := "did:mintgate:user:alice"
	bob := "did:mintgate:user:bob"
	carol := "did:mintgate:user:carol"
	alicePriv := f.registerIdentity(t, alice)
	bobPriv := f.registerIdentity(t, bob)

	ticket := mintTo(t, f, "pay_chain", alice)
	at := time.Now().UTC().Truncate(time.Second)

	_, err := transfers.Transfer(ctx, ticket.ID, alice, bob, at, signTransfer(alicePriv, ticket.ID, alice, bob, at))
	require.NoError(t, err)

	chain, owner, err := transfers.ChainOfCustody(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)
	require.Len(t, chain, 1)

	// Alice is no longer the owner; her valid signature over a second
	// transfer does not help.
	at2 := at.Add(time.Minute)
	_, err = transfers.Transfer(ctx, ticket.ID, alice, carol, at2, signTransfer(alicePriv, ticket.ID, alice, carol, at2))
	assert.ErrorIs(t, err, service.ErrNotOwner)

	_, err = transfers.Transfer(ctx, ticket.ID, bob, carol, at2, signTransfer(bobPriv, ticket.ID, bob, carol, at2))
	require.NoError(t, err)

	chain, owner, err = transfers.ChainOfCustody(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, carol, owner)
	assert.Len(t, chain, 2)
	assert.Equal(t, alice, chain[0].FromDID)
	assert.Equal(t, bob, chain[1].FromDID)
}

func TestTransferRejectsBadSignature(t *testing.T) {
	f := newFixture(t, nil)
	transfers := service.NewTransferService(f.store)
	ctx := context.Background()

	alice := "did:mintgate:user:alice"
	bob := "did:mintgate:user:bob"
	f.registerIdentity(t, alice)
	mallory := f.registerIdentity(t, "did:mintgate:user:mallory")

	ticket := mintTo(t, f, "pay_badsig", alice)
	at := time.Now().UTC()

	// Signature from the wrong key.
	_, err := transfers.Transfer(ctx, ticket.ID, alice, bob, at, signTransfer(mallory, ticket.ID, alice, bob, at))
	assert.ErrorIs(t, err, service.ErrInvalidSignature)

	// Garbage hex.
	_, err = transfers.Transfer(ctx, ticket.ID, alice, bob, at, "zz")
	assert.ErrorIs(t, err, service.ErrInvalidSignature)

	chain, owner, err := transfers.ChainOfCustody(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, owner, "failed authorization must not change ownership")
	assert.Empty(t, chain)
}

// Fallback identities have no signing key, so tickets minted to them
// can never leave by transfer.
func TestTransferFallbackOwnerCannotConsent(t *testing.T) {
	f := newFixture(t, nil)
	issuance := service.NewIssuanceService(f.store, f.custodian, nil, nil)
	transfers := service.NewTransferService(f.store)
	ctx := context.Background()

	tickets, err := issuance.Mint(ctx, service.MintRequest{
		PaymentRef:   "pay_fallback",
		TierID:       f.tier.ID,
		Quantity:     1,
		PayerContact: "ghost@example.com",
	})
	require.NoError(t, err)
	owner := *tickets[0].OriginalOwnerDID

	at := time.Now().UTC()
	_, err = transfers.Transfer(ctx, tickets[0].ID, owner, "did:mintgate:user:bob", at, "00")
	assert.ErrorIs(t, err, service.ErrInvalidSignature)
}

func TestTransferOnlyValidTickets(t *testing.T) {
	f := newFixture(t, nil)
	holds := service.NewHoldService(f.store, time.Hour)
	transfers := service.NewTransferService(f.store)
	verify := service.NewVerifyService(f.store)
	ctx := context.Background()

	alice := "did:mintgate:user:alice"
	bob := "did:mintgate:user:bob"
	alicePriv := f.registerIdentity(t, alice)

	// A hold is a reservation, not a ticket.
	hold, err := holds.CreateHold(ctx, f.tier.ID, alice)
	require.NoError(t, err)
	at := time.Now().UTC()
	_, err = transfers.Transfer(ctx, hold.ID, alice, bob, at, signTransfer(alicePriv, hold.ID, alice, bob, at))
	assert.ErrorIs(t, err, service.ErrNotTransferable)

	// A used ticket stays with its last owner.
	ticket := mintTo(t, f, "pay_used", alice)
	res, err := verify.CheckIn(ctx, ticket.ID, alice, "")
	require.NoError(t, err)
	require.True(t, res.Valid)

	_, err = transfers.Transfer(ctx, ticket.ID, alice, bob, at, signTransfer(alicePriv, ticket.ID, alice, bob, at))
	assert.ErrorIs(t, err, service.ErrNotTransferable)
}

func TestTransferValidatesRecipient(t *testing.T) {
	f := newFixture(t, nil)
	transfers := service.NewTransferService(f.store)
	alice := "did:mintgate:user:alice"
	f.registerIdentity(t, alice)
	ticket := mintTo(t, f, "pay_rcpt", alice)

	_, err := transfers.Transfer(context.Background(), ticket.ID, alice, "", time.Now(), "00")
	assert.Error(t, err)
	_, err = transfers.Transfer(context.Background(), ticket.ID, alice, alice, time.Now(), "00")
	assert.Error(t, err)
}
