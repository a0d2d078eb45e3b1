package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/repository"
)

func seedTier(t *testing.T, store *repository.MemoryStore, capacity *uint32) model.Tier {
	t.Helper()
	event := model.Event{ID: "ev", DID: "did:mintgate:event:ev", CreatorDID: "did:c", Name: "E", Status: model.EventPublished}
	tier := model.Tier{ID: "tier", EventID: "ev", Name: "GA", PriceCents: 100, Currency: "USD", Capacity: capacity, Perks: []string{}}
	err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
		if err := tx.InsertEvent(context.Background(), &event); err != nil {
			return err
		}
		return tx.InsertTier(context.Background(), &tier)
	})
	require.NoError(t, err)
	return tier
}

// A failed transaction must leave no trace, even when some mutations
// succeeded before the error.
func TestWithinTxRollsBackOnError(t *testing.T) {
	store := repository.NewMemoryStore()
	cap := uint32(10)
	tier := seedTier(t, store, &cap)
	boom := errors.New("boom")

	err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
		if err := tx.ReserveCapacity(context.Background(), tier.ID, 5); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, store.WithinTx(context.Background(), func(tx repository.Tx) error {
		got, err := tx.GetTier(context.Background(), tier.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, uint32(0), got.Held, "reservation inside a failed tx must not stick")
		return nil
	}))
}

// The ledger admits at most capacity units no matter how many
// transactions contend for them.
func TestReserveCapacityNeverOversells(t *testing.T) {
	store := repository.NewMemoryStore()
	cap := uint32(10)
	tier := seedTier(t, store, &cap)

	const attempts = 50
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.WithinTx(context.Background(), func(tx repository.Tx) error {
				return tx.ReserveCapacity(context.Background(), tier.ID, 1)
			})
		}(i)
	}
	wg.Wait()

	var granted int
	for _, err := range errs {
		if err == nil {
			granted++
		} else {
			assert.ErrorIs(t, err, repository.ErrCapacityExceeded)
		}
	}
	assert.Equal(t, int(cap), granted)

	require.NoError(t, store.WithinTx(context.Background(), func(tx repository.Tx) error {
		got, err := tx.GetTier(context.Background(), tier.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, cap, got.Held)
		return nil
	}))
}

func TestInsertPaymentEnforcesUniqueRef(t *testing.T) {
	store := repository.NewMemoryStore()
	p := model.Payment{Ref: "pay_1", TierID: "tier", PayerDID: "did:a", Quantity: 1}

	require.NoError(t, store.WithinTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertPayment(context.Background(), p)
	}))
	err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertPayment(context.Background(), p)
	})
	assert.ErrorIs(t, err, repository.ErrDuplicatePayment)
}

func TestQueuePositionsMonotonicPerTier(t *testing.T) {
	store := repository.NewMemoryStore()
	tier := seedTier(t, store, nil)
	ctx := context.Background()

	var positions []uint64
	require.NoError(t, store.WithinTx(ctx, func(tx repository.Tx) error {
		for _, did := range []string{"did:a", "did:b", "did:c"} {
			e, err := tx.EnqueueWaiting(ctx, tier.ID, did, time.Now().UTC())
			if err != nil {
				return err
			}
			positions = append(positions, e.Position)
		}
		return nil
	}))
	assert.Equal(t, []uint64{1, 2, 3}, positions)

	// Departure retires the position; the next joiner extends the
	// sequence instead of filling the gap.
	require.NoError(t, store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.DeleteWaiting(ctx, tier.ID, "did:c")
	}))
	require.NoError(t, store.WithinTx(ctx, func(tx repository.Tx) error {
		e, err := tx.EnqueueWaiting(ctx, tier.ID, "did:d", time.Now().UTC())
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(4), e.Position)
		return nil
	}))
}

func TestUpsertIdentityMergesFields(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	contact := "a@example.com"
	key := "00ff"

	require.NoError(t, store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.UpsertIdentity(ctx, model.Identity{DID: "did:a", Contact: &contact})
	}))
	// A later registration for the same DID adds the key without
	// erasing the contact.
	require.NoError(t, store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.UpsertIdentity(ctx, model.Identity{DID: "did:a", PublicKey: &key})
	}))

	require.NoError(t, store.WithinTx(ctx, func(tx repository.Tx) error {
		id, err := tx.GetIdentity(ctx, "did:a")
		if err != nil {
			return err
		}
		require.NotNil(t, id.Contact)
		assert.Equal(t, contact, *id.Contact)
		require.NotNil(t, id.PublicKey)
		assert.Equal(t, key, *id.PublicKey)

		byContact, err := tx.IdentityByContact(ctx, contact)
		if err != nil {
			return err
		}
		assert.Equal(t, "did:a", byContact.DID)
		return nil
	}))
}
