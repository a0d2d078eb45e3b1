package service_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/repository"
	"github.com/mintgate/ticket-engine/internal/signing"
)

const organizerDID = "did:mintgate:user:organizer"

// fixture wires a memory store and an in-process custodian around one
// published event with a single tier.
type fixture struct {
	store     *repository.MemoryStore
	custodian *signing.LocalCustodian
	event     model.Event
	tier      model.Tier
}

// newFixture seeds a published event and one tier with the given
// capacity (nil = unbounded).  The event keypair lives in the local
// custodian under the event id, so minted tickets verify against
// event.PublicKey.
func newFixture(t *testing.T, capacity *uint32) *fixture {
	t.Helper()
	f := &fixture{
		store:     repository.NewMemoryStore(),
		custodian: signing.NewLocalCustodian(),
	}

	eventID := uuid.NewString()
	pub, err := f.custodian.Generate(eventID)
	require.NoError(t, err)

	f.event = model.Event{
		ID:         eventID,
		DID:        "did:mintgate:event:" + eventID,
		CreatorDID: organizerDID,
		Name:       "Launch Party",
		PublicKey:  pub,
		Status:     model.EventPublished,
	}
	f.tier = model.Tier{
		ID:         uuid.NewString(),
		EventID:    eventID,
		Name:       "General Admission",
		PriceCents: 5000,
		Currency:   "USD",
		Capacity:   capacity,
		Perks:      []string{"entry"},
	}

	err = f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		if err := tx.InsertEvent(context.Background(), &f.event); err != nil {
			return err
		}
		return tx.InsertTier(context.Background(), &f.tier)
	})
	require.NoError(t, err)
	return f
}

// loadTier re-reads the fixture tier so tests can assert on the
// capacity ledger counters.
func (f *fixture) loadTier(t *testing.T) model.Tier {
	t.Helper()
	var tier model.Tier
	err := f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		var err error
		tier, err = tx.GetTier(context.Background(), f.tier.ID)
		return err
	})
	require.NoError(t, err)
	return tier
}

// registerIdentity stores an identity with a fresh Ed25519 keypair and
// returns the private key for producing consent signatures.
func (f *fixture) registerIdentity(t *testing.T, did string) ed25519.PrivateKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hexPub := signing.EncodePublicKey(pub)
	err = f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		return tx.UpsertIdentity(context.Background(), model.Identity{DID: did, PublicKey: &hexPub})
	})
	require.NoError(t, err)
	return priv
}

// insertExpiredHold plants a lapsed hold for did directly in the
// store, with its capacity still reserved, the way a real hold looks
// after its TTL has passed but before any sweep.
func (f *fixture) insertExpiredHold(t *testing.T, did string) string {
	t.Helper()
	past := time.Now().UTC().Add(-time.Minute)
	hold := model.Ticket{
		ID:        uuid.NewString(),
		TierID:    f.tier.ID,
		EventID:   f.event.ID,
		Status:    model.TicketHeld,
		HeldBy:    &did,
		HeldUntil: &past,
	}
	err := f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		if err := tx.ReserveCapacity(context.Background(), f.tier.ID, 1); err != nil {
			return err
		}
		return tx.InsertHold(context.Background(), &hold)
	})
	require.NoError(t, err)
	return hold.ID
}

func uint32ptr(v uint32) *uint32 { return &v }
