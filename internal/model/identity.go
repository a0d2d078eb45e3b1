package model

import "time"

// Identity is the engine's local mirror of a person known to the
// external identity service.  PublicKey is the hex Ed25519 key used to
// verify transfer consent signatures; it is nil for fallback
// identities minted from a contact detail when the external service
// was unreachable.  Such identities can receive tickets but can never
// produce a verifiable transfer.
type Identity struct {
	DID         string    // identities.did
	PublicKey   *string   // identities.public_key (hex, nullable)
	DisplayName *string   // identities.display_name (nullable)
	Contact     *string   // identities.contact (nullable)
	CreatedAt   time.Time // identities.created_at
}

// CanSign reports whether the identity has a registered signing key.
func (i Identity) CanSign() bool {
	return i.PublicKey != nil && *i.PublicKey != ""
}
