package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mintgate/ticket-engine/internal/model"
)

func strptr(s string) *string { return &s }

func TestCurrentOwnerFollowsTransferChain(t *testing.T) {
	ticket := model.Ticket{
		ID:               "tkt",
		Status:           model.TicketValid,
		OriginalOwnerDID: strptr("did:alice"),
	}

	assert.Equal(t, "did:alice", model.CurrentOwner(ticket, nil))

	chain := []model.Transfer{
		{TicketID: "tkt", FromDID: "did:alice", ToDID: "did:bob"},
		{TicketID: "tkt", FromDID: "did:bob", ToDID: "did:carol"},
	}
	assert.Equal(t, "did:carol", model.CurrentOwner(ticket, chain))

	// Holds have no owner at all.
	hold := model.Ticket{ID: "h", Status: model.TicketHeld}
	assert.Equal(t, "", model.CurrentOwner(hold, nil))
}

func TestHoldExpired(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	expired := model.Ticket{Status: model.TicketHeld, HeldUntil: &past}
	live := model.Ticket{Status: model.TicketHeld, HeldUntil: &future}
	minted := model.Ticket{Status: model.TicketValid, IssuedAt: &past}

	assert.True(t, expired.HoldExpired(now))
	assert.False(t, live.HoldExpired(now))
	assert.False(t, minted.HoldExpired(now), "only holds expire")

	// Expiry boundary is inclusive.
	boundary := model.Ticket{Status: model.TicketHeld, HeldUntil: &now}
	assert.True(t, boundary.HoldExpired(now))
}

func TestAttributionManifestValidate(t *testing.T) {
	assert.NoError(t, model.SoleAttribution("did:creator").Validate())

	assert.Error(t, model.AttributionManifest{}.Validate(), "empty manifest")

	short := model.AttributionManifest{Splits: []model.AttributionSplit{
		{DID: "did:a", Percent: 60},
		{DID: "did:b", Percent: 30},
	}}
	assert.Error(t, short.Validate(), "splits must sum to 100")

	anon := model.AttributionManifest{Splits: []model.AttributionSplit{
		{DID: "", Percent: 100},
	}}
	assert.Error(t, anon.Validate(), "every split names an identity")

	full := model.AttributionManifest{Splits: []model.AttributionSplit{
		{DID: "did:artist", Percent: 70},
		{DID: "did:venue", Percent: 30},
	}}
	assert.NoError(t, full.Validate())
}

func TestTierRemaining(t *testing.T) {
	cap := uint32(10)
	bounded := model.Tier{Capacity: &cap, Sold: 6, Held: 3}
	left, ok := bounded.Remaining()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), left)

	soldOut := model.Tier{Capacity: &cap, Sold: 10}
	left, ok = soldOut.Remaining()
	assert.True(t, ok)
	assert.Equal(t, uint32(0), left)

	_, ok = model.Tier{Sold: 1000}.Remaining()
	assert.False(t, ok, "unbounded tier has no remaining count")
}
