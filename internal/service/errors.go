// Package service implements the engine components on top of the
// repository.Store transactional boundary: hold management, the wait
// list, issuance, transfers, verification and organizer operations.
// Handlers stay thin; every rule lives here and executes inside a
// single store transaction.
package service

import (
	"errors"
	"strings"
)

// ErrAlreadyHeld is returned when an identity requests a hold on a
// tier it already has an unexpired hold on.  The existing hold is
// returned alongside so callers can surface it instead of erroring
// destructively.
var ErrAlreadyHeld = errors.New("already holding this tier")

// ErrAlreadyQueued is returned when an identity joins a wait list it
// is already waiting on.  The existing entry is returned alongside.
var ErrAlreadyQueued = errors.New("already queued for this tier")

// ErrNotOwner is returned when a transfer names a from-identity that
// is not the ticket's current derived owner.  State is never mutated.
var ErrNotOwner = errors.New("not the current ticket owner")

// ErrInvalidSignature is returned when a consent signature fails to
// verify, or when the signing identity has no registered key (fallback
// identities can receive tickets but can never sign).  Fails closed.
var ErrInvalidSignature = errors.New("invalid signature")

// ErrNotTransferable is returned when the ticket is not in a
// transferable state: holds are not tickets, and used or cancelled
// tickets stay with their last owner.
var ErrNotTransferable = errors.New("ticket not transferable")

// ErrEventNotOnSale is returned when a hold, queue join or paid mint
// targets a tier whose event is not published.
var ErrEventNotOnSale = errors.New("event not on sale")

// RuleViolations reports every append-only rule an attempted tier
// update breaks.  The update is all-or-nothing: one violation rejects
// the whole update and the full list is reported back.
type RuleViolations struct {
	Violations []string
}

func (e *RuleViolations) Error() string {
	return "tier update rejected: " + strings.Join(e.Violations, "; ")
}
