package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/repository"
	"github.com/mintgate/ticket-engine/internal/service"
)

func TestVerifyValidTicket(t *testing.T) {
	f := newFixture(t, nil)
	verify := service.NewVerifyService(f.store)
	alice := "did:mintgate:user:alice"
	ticket := mintTo(t, f, "pay_verify", alice)

	// With the stored signature.
	res, err := verify.Verify(context.Background(), ticket.ID, alice, "")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Reason)
	assert.Equal(t, alice, res.OwnerDID)

	// With the signature presented explicitly, as a scanned proof
	// would carry it.
	res, err = verify.Verify(context.Background(), ticket.ID, alice, *ticket.Signature)
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestVerifyFailureReasons(t *testing.T) {
	f := newFixture(t, nil)
	holds := service.NewHoldService(f.store, time.Hour)
	verify := service.NewVerifyService(f.store)
	ctx := context.Background()
	alice := "did:mintgate:user:alice"

	ticket := mintTo(t, f, "pay_reasons", alice)

	t.Run("unknown ticket", func(t *testing.T) {
		res, err := verify.Verify(ctx, "no-such-ticket", alice, "")
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Equal(t, service.ReasonUnknownTicket, res.Reason)
	})

	t.Run("hold is not a ticket", func(t *testing.T) {
		hold, err := holds.CreateHold(ctx, f.tier.ID, "did:mintgate:user:holder")
		require.NoError(t, err)
		res, err := verify.Verify(ctx, hold.ID, "did:mintgate:user:holder", "")
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Equal(t, service.ReasonNotIssued, res.Reason)
	})

	t.Run("owner mismatch", func(t *testing.T) {
		res, err := verify.Verify(ctx, ticket.ID, "did:mintgate:user:impostor", "")
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Equal(t, service.ReasonOwnerMismatch, res.Reason)
	})

	t.Run("tampered signature", func(t *testing.T) {
		res, err := verify.Verify(ctx, ticket.ID, alice, "deadbeef")
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Equal(t, service.ReasonSignatureMismatch, res.Reason)
	})
}

// After a transfer the proof only verifies for the new owner: the
// original owner's claim fails even though the issuance signature
// still names them.
func TestVerifyTracksCurrentOwner(t *testing.T) {
	f := newFixture(t, nil)
	verify := service.NewVerifyService(f.store)
	transfers := service.NewTransferService(f.store)
	ctx := context.Background()

	alice := "did:mintgate:user:alice"
	bob := "did:mintgate:user:bob"
	alicePriv := f.registerIdentity(t, alice)
	ticket := mintTo(t, f, "pay_track", alice)

	at := time.Now().UTC().Truncate(time.Second)
	_, err := transfers.Transfer(ctx, ticket.ID, alice, bob, at, signTransfer(alicePriv, ticket.ID, alice, bob, at))
	require.NoError(t, err)

	res, err := verify.Verify(ctx, ticket.ID, bob, "")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, bob, res.OwnerDID)

	res, err = verify.Verify(ctx, ticket.ID, alice, "")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, service.ReasonOwnerMismatch, res.Reason)
}

// Check-in flips VALID to USED exactly once; the second scan is
// rejected as already used and the status stays USED.
func TestCheckInFiresOnce(t *testing.T) {
	f := newFixture(t, nil)
	verify := service.NewVerifyService(f.store)
	ctx := context.Background()
	alice := "did:mintgate:user:alice"
	ticket := mintTo(t, f, "pay_gate", alice)

	res, err := verify.CheckIn(ctx, ticket.ID, alice, "")
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = verify.CheckIn(ctx, ticket.ID, alice, "")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, service.ReasonAlreadyUsed, res.Reason)

	// A used ticket still verifies as a historical record for its
	// owner via Verify, but never re-admits.
	vres, err := verify.Verify(ctx, ticket.ID, alice, "")
	require.NoError(t, err)
	assert.True(t, vres.Valid)
}

func TestCheckInRejectsInvalidTicket(t *testing.T) {
	f := newFixture(t, nil)
	verify := service.NewVerifyService(f.store)
	ctx := context.Background()
	alice := "did:mintgate:user:alice"
	ticket := mintTo(t, f, "pay_gate2", alice)

	// Wrong owner claim: no state change, ticket stays VALID.
	res, err := verify.CheckIn(ctx, ticket.ID, "did:mintgate:user:impostor", "")
	require.NoError(t, err)
	assert.False(t, res.Valid)

	res, err = verify.CheckIn(ctx, ticket.ID, alice, "")
	require.NoError(t, err)
	assert.True(t, res.Valid, "failed scan must not consume the ticket")

	var stored model.Ticket
	require.NoError(t, f.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		stored, err = tx.GetTicket(ctx, ticket.ID)
		return err
	}))
	assert.Equal(t, model.TicketUsed, stored.Status)
}
