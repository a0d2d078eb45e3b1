package model

import "time"

// EventStatus enumerates the lifecycle states of an event.  An event
// starts in DRAFT, becomes PUBLISHED when tickets may be sold, and ends
// as either CANCELLED or COMPLETED.
type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventCancelled EventStatus = "CANCELLED"
	EventCompleted EventStatus = "COMPLETED"
)

// Event is an organizer-created happening that owns ticket tiers and a
// dedicated signing keypair.  The public key stored here is the root of
// trust for every ticket the event issues; the private half never
// touches this service and stays with the key custodian.
//
// Fields:
//  ID         – primary key identifier (UUID).
//  DID        – stable decentralized identifier of the event itself.
//  CreatorDID – identity of the organizer who created the event.
//  Name       – human readable title.
//  PublicKey  – hex-encoded Ed25519 public key used to verify ticket
//               signatures.
//  Status     – lifecycle state, see EventStatus.
//  CreatedAt  – creation timestamp (UTC).
//  UpdatedAt  – last modification timestamp (UTC).
type Event struct {
	ID         string      // events.id
	DID        string      // events.did
	CreatorDID string      // events.creator_did
	Name       string      // events.name
	PublicKey  string      // events.public_key (hex)
	Status     EventStatus // events.status
	CreatedAt  time.Time   // events.created_at
	UpdatedAt  time.Time   // events.updated_at
}

// CanIssue reports whether the event is in a state that permits ticket
// issuance.  Only published events sell tickets; draft events may still
// receive direct organizer grants for testing a tier before launch.
func (e Event) CanIssue() bool {
	return e.Status == EventPublished || e.Status == EventDraft
}
