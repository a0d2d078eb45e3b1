package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mintgate/ticket-engine/internal/model"
)

// MemoryStore is an in-memory Store with the same semantics as
// SQLStore: every WithinTx call is atomic and isolated.  Transactions
// run one at a time under a single mutex against a deep copy of the
// state; the copy replaces the live state only when the callback
// succeeds, so a failed transaction leaves no trace.  Used by the
// service tests and selectable with STORE_DRIVER=memory for local
// development without a database.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	events      map[string]model.Event
	tiers       map[string]model.Tier
	tickets     map[string]model.Ticket
	ticketOrder []string // insertion order, for stable replay results
	payments    map[string]model.Payment
	entries     map[uint64]model.QueueEntry
	nextEntryID uint64
	transfers   map[string][]model.Transfer
	nextXferID  uint64
	identities  map[string]model.Identity
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		events:      make(map[string]model.Event),
		tiers:       make(map[string]model.Tier),
		tickets:     make(map[string]model.Ticket),
		payments:    make(map[string]model.Payment),
		entries:     make(map[uint64]model.QueueEntry),
		nextEntryID: 1,
		transfers:   make(map[string][]model.Transfer),
		nextXferID:  1,
		identities:  make(map[string]model.Identity),
	}}
}

// WithinTx implements Store.
func (s *MemoryStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := s.state.clone()
	if err := fn(&memTx{st: staged}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (m *memoryState) clone() *memoryState {
	c := &memoryState{
		events:      make(map[string]model.Event, len(m.events)),
		tiers:       make(map[string]model.Tier, len(m.tiers)),
		tickets:     make(map[string]model.Ticket, len(m.tickets)),
		ticketOrder: append([]string(nil), m.ticketOrder...),
		payments:    make(map[string]model.Payment, len(m.payments)),
		entries:     make(map[uint64]model.QueueEntry, len(m.entries)),
		nextEntryID: m.nextEntryID,
		transfers:   make(map[string][]model.Transfer, len(m.transfers)),
		nextXferID:  m.nextXferID,
		identities:  make(map[string]model.Identity, len(m.identities)),
	}
	for k, v := range m.events {
		c.events[k] = v
	}
	for k, v := range m.tiers {
		v.Perks = append([]string(nil), v.Perks...)
		if v.Capacity != nil {
			cap := *v.Capacity
			v.Capacity = &cap
		}
		c.tiers[k] = v
	}
	for k, v := range m.tickets {
		v.Attribution.Splits = append([]model.AttributionSplit(nil), v.Attribution.Splits...)
		c.tickets[k] = v
	}
	for k, v := range m.payments {
		c.payments[k] = v
	}
	for k, v := range m.entries {
		c.entries[k] = v
	}
	for k, v := range m.transfers {
		c.transfers[k] = append([]model.Transfer(nil), v...)
	}
	for k, v := range m.identities {
		c.identities[k] = v
	}
	return c
}

// memTx implements Tx against a staged state copy.
type memTx struct {
	st *memoryState
}

// --- capacity ledger -----------------------------------------------------

func (t *memTx) ReserveCapacity(_ context.Context, tierID string, n uint32) error {
	tier, ok := t.st.tiers[tierID]
	if !ok {
		return ErrTierNotFound
	}
	if tier.Capacity != nil && tier.Sold+tier.Held+n > *tier.Capacity {
		return ErrCapacityExceeded
	}
	tier.Held += n
	tier.UpdatedAt = time.Now().UTC()
	t.st.tiers[tierID] = tier
	return nil
}

func (t *memTx) CommitSale(_ context.Context, tierID string, n uint32) error {
	tier, ok := t.st.tiers[tierID]
	if !ok {
		return ErrTierNotFound
	}
	if tier.Held < n {
		return ErrCapacityExceeded
	}
	tier.Held -= n
	tier.Sold += n
	tier.UpdatedAt = time.Now().UTC()
	t.st.tiers[tierID] = tier
	return nil
}

func (t *memTx) ReleaseCapacity(_ context.Context, tierID string, n uint32) error {
	if n == 0 {
		return nil
	}
	tier, ok := t.st.tiers[tierID]
	if !ok {
		return ErrTierNotFound
	}
	if tier.Held < n {
		return ErrCapacityExceeded
	}
	tier.Held -= n
	tier.UpdatedAt = time.Now().UTC()
	t.st.tiers[tierID] = tier
	return nil
}

// --- events and tiers ----------------------------------------------------

func (t *memTx) InsertEvent(_ context.Context, e *model.Event) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	t.st.events[e.ID] = *e
	return nil
}

func (t *memTx) GetEvent(_ context.Context, eventID string) (model.Event, error) {
	e, ok := t.st.events[eventID]
	if !ok {
		return model.Event{}, ErrEventNotFound
	}
	return e, nil
}

func (t *memTx) UpdateEventStatus(_ context.Context, eventID string, status model.EventStatus) error {
	e, ok := t.st.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	e.Status = status
	e.UpdatedAt = time.Now().UTC()
	t.st.events[eventID] = e
	return nil
}

func (t *memTx) InsertTier(_ context.Context, tier *model.Tier) error {
	now := time.Now().UTC()
	tier.CreatedAt = now
	tier.UpdatedAt = now
	t.st.tiers[tier.ID] = *tier
	return nil
}

func (t *memTx) GetTier(_ context.Context, tierID string) (model.Tier, error) {
	tier, ok := t.st.tiers[tierID]
	if !ok {
		return model.Tier{}, ErrTierNotFound
	}
	return tier, nil
}

func (t *memTx) UpdateTier(_ context.Context, tier model.Tier) error {
	cur, ok := t.st.tiers[tier.ID]
	if !ok {
		return ErrTierNotFound
	}
	cur.Name = tier.Name
	cur.PriceCents = tier.PriceCents
	cur.Capacity = tier.Capacity
	cur.Perks = append([]string(nil), tier.Perks...)
	cur.UpdatedAt = time.Now().UTC()
	t.st.tiers[tier.ID] = cur
	return nil
}

// --- holds ---------------------------------------------------------------

func (t *memTx) SweepExpiredHolds(_ context.Context, tierID string, now time.Time) (uint32, error) {
	var swept uint32
	for id, tk := range t.st.tickets {
		if tk.TierID == tierID && tk.HoldExpired(now) {
			delete(t.st.tickets, id)
			swept++
		}
	}
	return swept, nil
}

func (t *memTx) ActiveHold(_ context.Context, tierID, did string, now time.Time) (model.Ticket, error) {
	for _, tk := range t.st.tickets {
		if tk.TierID == tierID && tk.Status == model.TicketHeld &&
			tk.HeldBy != nil && *tk.HeldBy == did &&
			tk.HeldUntil != nil && tk.HeldUntil.After(now) {
			return tk, nil
		}
	}
	return model.Ticket{}, ErrTicketNotFound
}

func (t *memTx) InsertHold(_ context.Context, tk *model.Ticket) error {
	return t.InsertTicket(nil, tk)
}

func (t *memTx) DeleteHold(_ context.Context, ticketID, did string) (model.Ticket, error) {
	tk, ok := t.st.tickets[ticketID]
	if !ok || tk.Status != model.TicketHeld || tk.HeldBy == nil || *tk.HeldBy != did {
		return model.Ticket{}, ErrTicketNotFound
	}
	delete(t.st.tickets, ticketID)
	return tk, nil
}

// --- tickets -------------------------------------------------------------

func (t *memTx) InsertTicket(_ context.Context, tk *model.Ticket) error {
	now := time.Now().UTC()
	tk.CreatedAt = now
	tk.UpdatedAt = now
	t.st.tickets[tk.ID] = *tk
	t.st.ticketOrder = append(t.st.ticketOrder, tk.ID)
	return nil
}

func (t *memTx) GetTicket(_ context.Context, ticketID string) (model.Ticket, error) {
	tk, ok := t.st.tickets[ticketID]
	if !ok {
		return model.Ticket{}, ErrTicketNotFound
	}
	return tk, nil
}

func (t *memTx) TicketsByPaymentRef(_ context.Context, ref string) ([]model.Ticket, error) {
	var tickets []model.Ticket
	for _, id := range t.st.ticketOrder {
		tk, ok := t.st.tickets[id]
		if ok && tk.PaymentRef != nil && *tk.PaymentRef == ref {
			tickets = append(tickets, tk)
		}
	}
	return tickets, nil
}

func (t *memTx) MarkTicketUsed(_ context.Context, ticketID string, now time.Time) error {
	tk, ok := t.st.tickets[ticketID]
	if !ok || tk.Status != model.TicketValid {
		return ErrTicketNotFound
	}
	tk.Status = model.TicketUsed
	tk.UpdatedAt = now.UTC()
	t.st.tickets[ticketID] = tk
	return nil
}

func (t *memTx) SetOwnerCache(_ context.Context, ticketID, ownerDID string, now time.Time) error {
	tk, ok := t.st.tickets[ticketID]
	if !ok {
		return ErrTicketNotFound
	}
	tk.OwnerDID = &ownerDID
	tk.UpdatedAt = now.UTC()
	t.st.tickets[ticketID] = tk
	return nil
}

// --- payments ------------------------------------------------------------

func (t *memTx) InsertPayment(_ context.Context, p model.Payment) error {
	if _, exists := t.st.payments[p.Ref]; exists {
		return ErrDuplicatePayment
	}
	t.st.payments[p.Ref] = p
	return nil
}

// --- queue ---------------------------------------------------------------

func (t *memTx) EnqueueWaiting(_ context.Context, tierID, did string, now time.Time) (model.QueueEntry, error) {
	var max uint64
	for _, e := range t.st.entries {
		if e.TierID == tierID && e.Position > max {
			max = e.Position
		}
	}
	entry := model.QueueEntry{
		ID:       t.st.nextEntryID,
		TierID:   tierID,
		DID:      did,
		Position: max + 1,
		Status:   model.QueueWaiting,
		JoinedAt: now.UTC(),
	}
	t.st.nextEntryID++
	t.st.entries[entry.ID] = entry
	return entry, nil
}

func (t *memTx) WaitingEntry(_ context.Context, tierID, did string) (model.QueueEntry, error) {
	for _, e := range t.st.entries {
		if e.TierID == tierID && e.DID == did && e.Status == model.QueueWaiting {
			return e, nil
		}
	}
	return model.QueueEntry{}, ErrNotQueued
}

func (t *memTx) CountWaitingAhead(_ context.Context, tierID string, position uint64) (uint64, error) {
	var n uint64
	for _, e := range t.st.entries {
		if e.TierID == tierID && e.Status == model.QueueWaiting && e.Position < position {
			n++
		}
	}
	return n, nil
}

// DeleteWaiting retires the entry to EXPIRED rather than removing it,
// so its position stays visible to the max-position scan in
// EnqueueWaiting and is never handed out again.
func (t *memTx) DeleteWaiting(_ context.Context, tierID, did string) error {
	for id, e := range t.st.entries {
		if e.TierID == tierID && e.DID == did && e.Status == model.QueueWaiting {
			e.Status = model.QueueExpired
			t.st.entries[id] = e
			return nil
		}
	}
	return ErrNotQueued
}

func (t *memTx) MarkQueuePurchased(_ context.Context, tierID, did string) error {
	for id, e := range t.st.entries {
		if e.TierID == tierID && e.DID == did && e.Status == model.QueueWaiting {
			e.Status = model.QueuePurchased
			t.st.entries[id] = e
		}
	}
	return nil
}

// --- transfers -----------------------------------------------------------

func (t *memTx) TransfersForTicket(_ context.Context, ticketID string) ([]model.Transfer, error) {
	chain := append([]model.Transfer(nil), t.st.transfers[ticketID]...)
	sort.Slice(chain, func(i, j int) bool { return chain[i].ID < chain[j].ID })
	return chain, nil
}

func (t *memTx) InsertTransfer(_ context.Context, tr *model.Transfer) error {
	tr.ID = t.st.nextXferID
	t.st.nextXferID++
	t.st.transfers[tr.TicketID] = append(t.st.transfers[tr.TicketID], *tr)
	return nil
}

// --- identities ----------------------------------------------------------

func (t *memTx) GetIdentity(_ context.Context, did string) (model.Identity, error) {
	id, ok := t.st.identities[did]
	if !ok {
		return model.Identity{}, ErrIdentityNotFound
	}
	return id, nil
}

func (t *memTx) IdentityByContact(_ context.Context, contact string) (model.Identity, error) {
	var (
		best  model.Identity
		found bool
	)
	for _, id := range t.st.identities {
		if id.Contact != nil && *id.Contact == contact {
			if !found || id.CreatedAt.Before(best.CreatedAt) {
				best = id
				found = true
			}
		}
	}
	if !found {
		return model.Identity{}, ErrIdentityNotFound
	}
	return best, nil
}

func (t *memTx) UpsertIdentity(_ context.Context, id model.Identity) error {
	cur, exists := t.st.identities[id.DID]
	if !exists {
		id.CreatedAt = time.Now().UTC()
		t.st.identities[id.DID] = id
		return nil
	}
	if id.PublicKey != nil {
		cur.PublicKey = id.PublicKey
	}
	if id.DisplayName != nil {
		cur.DisplayName = id.DisplayName
	}
	if id.Contact != nil {
		cur.Contact = id.Contact
	}
	t.st.identities[id.DID] = cur
	return nil
}
