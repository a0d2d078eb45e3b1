package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/repository"
	"github.com/mintgate/ticket-engine/internal/signing"
)

// EventService covers the organizer surface: creating events and
// tiers, lifecycle transitions, and the rule-checked tier updates.
type EventService struct {
	store repository.Store
	now   func() time.Time
}

// NewEventService constructs an EventService.
func NewEventService(store repository.Store) *EventService {
	return &EventService{store: store, now: time.Now}
}

// CreateEvent registers a new draft event.  The creator supplies the
// hex public key of the event keypair; the private half stays with the
// creator's custodian and never reaches this service.
func (s *EventService) CreateEvent(ctx context.Context, creatorDID, name, publicKeyHex string) (model.Event, error) {
	if name == "" {
		return model.Event{}, fmt.Errorf("event name is required")
	}
	if _, err := signing.ParsePublicKey(publicKeyHex); err != nil {
		return model.Event{}, fmt.Errorf("event public key: %w", err)
	}
	id := uuid.NewString()
	event := model.Event{
		ID:         id,
		DID:        "did:mintgate:event:" + id,
		CreatorDID: creatorDID,
		Name:       name,
		PublicKey:  publicKeyHex,
		Status:     model.EventDraft,
	}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.InsertEvent(ctx, &event)
	})
	if err != nil {
		return model.Event{}, err
	}
	return event, nil
}

// legal lifecycle transitions; everything else is rejected.
var eventTransitions = map[model.EventStatus][]model.EventStatus{
	model.EventDraft:     {model.EventPublished, model.EventCancelled},
	model.EventPublished: {model.EventCancelled, model.EventCompleted},
}

// TransitionEvent moves an event to a new lifecycle state.  Only the
// creator may do this.
func (s *EventService) TransitionEvent(ctx context.Context, eventID, callerDID string, to model.EventStatus) (model.Event, error) {
	var event model.Event
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		event, err = tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event.CreatorDID != callerDID {
			return repository.ErrForbidden
		}
		allowed := false
		for _, next := range eventTransitions[event.Status] {
			if next == to {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("event %s cannot move from %s to %s", eventID, event.Status, to)
		}
		if err := tx.UpdateEventStatus(ctx, eventID, to); err != nil {
			return err
		}
		event.Status = to
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return event, nil
}

// CreateTier adds a ticket tier to the caller's event.  A nil
// capacity means unbounded.
func (s *EventService) CreateTier(ctx context.Context, callerDID, eventID, name, currency string, priceCents uint32, capacity *uint32, perks []string) (model.Tier, error) {
	if name == "" {
		return model.Tier{}, fmt.Errorf("tier name is required")
	}
	if len(currency) != 3 {
		return model.Tier{}, fmt.Errorf("currency must be a 3-letter code, got %q", currency)
	}
	tier := model.Tier{
		ID:         uuid.NewString(),
		EventID:    eventID,
		Name:       name,
		PriceCents: priceCents,
		Currency:   currency,
		Capacity:   capacity,
		Perks:      perks,
	}
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		event, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event.CreatorDID != callerDID {
			return repository.ErrForbidden
		}
		return tx.InsertTier(ctx, &tier)
	})
	if err != nil {
		return model.Tier{}, err
	}
	return tier, nil
}

// UpdateTier applies a rule-checked update to a tier.  The rules are
// validated against current state and the whole update is rejected
// with the full violations list when any single field breaks one.
func (s *EventService) UpdateTier(ctx context.Context, callerDID, tierID string, upd model.TierUpdate) (model.Tier, error) {
	var tier model.Tier
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.GetTier(ctx, tierID)
		if err != nil {
			return err
		}
		event, err := tx.GetEvent(ctx, cur.EventID)
		if err != nil {
			return err
		}
		if event.CreatorDID != callerDID {
			return repository.ErrForbidden
		}
		next, err := ValidateTierUpdate(cur, upd)
		if err != nil {
			return err
		}
		if err := tx.UpdateTier(ctx, next); err != nil {
			return err
		}
		tier = next
		return nil
	})
	if err != nil {
		return model.Tier{}, err
	}
	return tier, nil
}

// ValidateTierUpdate compares the proposed values against current
// state and either returns the resulting tier or a RuleViolations
// error naming every broken rule:
//
//   - price may only decrease, never increase
//   - capacity may never drop below the units already committed
//     (sold plus active holds)
//   - perks are append-only: the existing list must survive as a
//     prefix, in order
func ValidateTierUpdate(cur model.Tier, upd model.TierUpdate) (model.Tier, error) {
	next := cur
	var violations []string

	if upd.Name != nil {
		if *upd.Name == "" {
			violations = append(violations, "name cannot be empty")
		} else {
			next.Name = *upd.Name
		}
	}
	if upd.PriceCents != nil {
		if *upd.PriceCents > cur.PriceCents {
			violations = append(violations, fmt.Sprintf("price may only decrease (current %d, proposed %d)", cur.PriceCents, *upd.PriceCents))
		} else {
			next.PriceCents = *upd.PriceCents
		}
	}
	if upd.Capacity != nil {
		committed := cur.Sold + cur.Held
		if *upd.Capacity < committed {
			violations = append(violations, fmt.Sprintf("capacity may not drop below committed units (%d sold + %d held, proposed %d)", cur.Sold, cur.Held, *upd.Capacity))
		} else {
			cap := *upd.Capacity
			next.Capacity = &cap
		}
	}
	if upd.Perks != nil {
		if len(upd.Perks) < len(cur.Perks) {
			violations = append(violations, "perks may only be added, not removed")
		} else {
			for i, p := range cur.Perks {
				if upd.Perks[i] != p {
					violations = append(violations, fmt.Sprintf("perk %d may not be changed (current %q, proposed %q)", i, p, upd.Perks[i]))
				}
			}
			next.Perks = append([]string(nil), upd.Perks...)
		}
	}

	if len(violations) > 0 {
		return model.Tier{}, &RuleViolations{Violations: violations}
	}
	return next, nil
}
