package model

import "time"

// QueueStatus enumerates the states of a wait-list entry.
type QueueStatus string

const (
	QueueWaiting   QueueStatus = "WAITING"
	QueueNotified  QueueStatus = "NOTIFIED"
	QueuePurchased QueueStatus = "PURCHASED"
	QueueExpired   QueueStatus = "EXPIRED"
)

// QueueEntry is one identity's place in a tier's wait list.  Position
// is assigned once at join time from a per-tier monotonic counter and
// is never reused or renumbered, even after earlier entries leave:
// ascending position is the durable ordering key.  Rank
// reporting counts only WAITING entries with a smaller position.
//
// Fields:
//  ID         – primary key identifier.
//  TierID     – tier being waited on.
//  DID        – waiting identity.
//  Position   – monotonic join position, never recycled.
//  Status     – see QueueStatus.
//  JoinedAt   – when the entry was created (UTC).
//  NotifiedAt – when the identity was told capacity freed up, if ever.
type QueueEntry struct {
	ID         uint64      // queue_entries.id
	TierID     string      // queue_entries.tier_id
	DID        string      // queue_entries.did
	Position   uint64      // queue_entries.position
	Status     QueueStatus // queue_entries.status
	JoinedAt   time.Time   // queue_entries.joined_at
	NotifiedAt *time.Time  // queue_entries.notified_at (nullable)
}
