// Package repository defines the transactional storage boundary of the
// engine and its sentinel errors. The sentinels let the service and
// handler layers distinguish failure classes with errors.Is without
// inspecting driver-specific errors: capacity violations are retryable
// by the caller, duplicates are idempotent-safe, not-found conditions
// are terminal without new input.
package repository

import "errors"

// ErrCapacityExceeded is returned by ReserveCapacity when granting the
// requested units would push sold + held past the tier's capacity.
// The tier state is left untouched; callers may retry or join the
// wait list instead. Never silently oversell.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrDuplicatePayment is returned by InsertPayment when the payment
// reference has been consumed before. The issuance engine treats this
// as "already minted" and returns the previously created tickets.
var ErrDuplicatePayment = errors.New("duplicate payment reference")

// ErrEventNotFound is returned when no event exists for the given id.
var ErrEventNotFound = errors.New("event not found")

// ErrTierNotFound is returned when no tier exists for the given id.
var ErrTierNotFound = errors.New("tier not found")

// ErrTicketNotFound is returned when no ticket (or hold) exists for
// the given id, or when a hold operation names a row the caller does
// not hold. The two cases are deliberately indistinguishable so the
// API does not leak other callers' reservations.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrIdentityNotFound is returned when the identity registry has no
// record for the given DID or contact detail.
var ErrIdentityNotFound = errors.New("identity not found")

// ErrNotQueued is returned by queue lookups and removals when the
// identity has no WAITING entry for the tier.
var ErrNotQueued = errors.New("not queued")

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else, such as editing another organizer's
// event. Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")
