package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/repository"
	"github.com/mintgate/ticket-engine/internal/service"
)

func TestCreateEventValidatesPublicKey(t *testing.T) {
	f := newFixture(t, nil)
	events := service.NewEventService(f.store)

	_, err := events.CreateEvent(context.Background(), organizerDID, "Bad Key Fest", "not-hex")
	assert.Error(t, err)

	created, err := events.CreateEvent(context.Background(), organizerDID, "Good Fest", f.event.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, model.EventDraft, created.Status)
	assert.Equal(t, "did:mintgate:event:"+created.ID, created.DID)
}

func TestEventLifecycleTransitions(t *testing.T) {
	f := newFixture(t, nil)
	events := service.NewEventService(f.store)
	ctx := context.Background()

	created, err := events.CreateEvent(ctx, organizerDID, "Lifecycle", f.event.PublicKey)
	require.NoError(t, err)

	// Only the creator may transition.
	_, err = events.TransitionEvent(ctx, created.ID, "did:mintgate:user:mallory", model.EventPublished)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	published, err := events.TransitionEvent(ctx, created.ID, organizerDID, model.EventPublished)
	require.NoError(t, err)
	assert.Equal(t, model.EventPublished, published.Status)

	// Published cannot go back to draft, and completed is terminal.
	_, err = events.TransitionEvent(ctx, created.ID, organizerDID, model.EventDraft)
	assert.Error(t, err)

	completed, err := events.TransitionEvent(ctx, created.ID, organizerDID, model.EventCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.EventCompleted, completed.Status)

	_, err = events.TransitionEvent(ctx, created.ID, organizerDID, model.EventCancelled)
	assert.Error(t, err)
}

func TestCreateTierOnlyByCreator(t *testing.T) {
	f := newFixture(t, nil)
	events := service.NewEventService(f.store)

	_, err := events.CreateTier(context.Background(), "did:mintgate:user:mallory", f.event.ID, "VIP", "USD", 10000, nil, nil)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	tier, err := events.CreateTier(context.Background(), organizerDID, f.event.ID, "VIP", "USD", 10000, uint32ptr(50), []string{"backstage"})
	require.NoError(t, err)
	assert.Equal(t, f.event.ID, tier.EventID)

	_, err = events.CreateTier(context.Background(), organizerDID, f.event.ID, "VIP", "dollars", 10000, nil, nil)
	assert.Error(t, err, "currency must be a 3-letter code")
}

func TestValidateTierUpdateRules(t *testing.T) {
	cur := model.Tier{
		ID:         "tier",
		Name:       "GA",
		PriceCents: 5000,
		Capacity:   uint32ptr(100),
		Sold:       30,
		Held:       10,
		Perks:      []string{"entry", "poster"},
	}

	t.Run("valid update applies everything", func(t *testing.T) {
		next, err := service.ValidateTierUpdate(cur, model.TierUpdate{
			PriceCents: uint32ptr(4000),
			Capacity:   uint32ptr(40),
			Perks:      []string{"entry", "poster", "sticker"},
		})
		require.NoError(t, err)
		assert.Equal(t, uint32(4000), next.PriceCents)
		assert.Equal(t, uint32(40), *next.Capacity)
		assert.Equal(t, []string{"entry", "poster", "sticker"}, next.Perks)
	})

	t.Run("price may not increase", func(t *testing.T) {
		_, err := service.ValidateTierUpdate(cur, model.TierUpdate{PriceCents: uint32ptr(6000)})
		var rv *service.RuleViolations
		require.ErrorAs(t, err, &rv)
		assert.Len(t, rv.Violations, 1)
	})

	t.Run("capacity may not drop below committed", func(t *testing.T) {
		_, err := service.ValidateTierUpdate(cur, model.TierUpdate{Capacity: uint32ptr(39)})
		var rv *service.RuleViolations
		require.ErrorAs(t, err, &rv)
	})

	t.Run("perks are append-only", func(t *testing.T) {
		_, err := service.ValidateTierUpdate(cur, model.TierUpdate{Perks: []string{"entry"}})
		var rv *service.RuleViolations
		require.ErrorAs(t, err, &rv)

		_, err = service.ValidateTierUpdate(cur, model.TierUpdate{Perks: []string{"poster", "entry"}})
		require.ErrorAs(t, err, &rv, "reordering the existing prefix is a removal")
	})

	t.Run("all violations are reported together", func(t *testing.T) {
		_, err := service.ValidateTierUpdate(cur, model.TierUpdate{
			PriceCents: uint32ptr(9000),
			Capacity:   uint32ptr(5),
			Perks:      []string{"entry"},
		})
		var rv *service.RuleViolations
		require.ErrorAs(t, err, &rv)
		assert.Len(t, rv.Violations, 3)
	})
}

func TestUpdateTierAllOrNothing(t *testing.T) {
	f := newFixture(t, uint32ptr(100))
	events := service.NewEventService(f.store)
	ctx := context.Background()

	// Price increase rejects the whole update, including the
	// otherwise-legal perk addition.
	_, err := events.UpdateTier(ctx, organizerDID, f.tier.ID, model.TierUpdate{
		PriceCents: uint32ptr(9999),
		Perks:      []string{"entry", "sticker"},
	})
	var rv *service.RuleViolations
	require.ErrorAs(t, err, &rv)

	unchanged := f.loadTier(t)
	assert.Equal(t, f.tier.PriceCents, unchanged.PriceCents)
	assert.Equal(t, []string{"entry"}, unchanged.Perks)

	_, err = events.UpdateTier(ctx, "did:mintgate:user:mallory", f.tier.ID, model.TierUpdate{
		PriceCents: uint32ptr(1000),
	})
	assert.ErrorIs(t, err, repository.ErrForbidden)

	updated, err := events.UpdateTier(ctx, organizerDID, f.tier.ID, model.TierUpdate{
		PriceCents: uint32ptr(1000),
		Perks:      []string{"entry", "sticker"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), updated.PriceCents)
	assert.Equal(t, []string{"entry", "sticker"}, updated.Perks)
}
