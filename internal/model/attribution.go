package model

import "fmt"

// AttributionSplit assigns a percentage of a ticket's proceeds to one
// identity.  Percent is an integer share of 100.
type AttributionSplit struct {
	DID     string `json:"did"`
	Percent uint32 `json:"percent"`
}

// AttributionManifest records how a ticket's proceeds are divided.
// The splits of a manifest must sum to exactly 100; a manifest that
// does not is rejected at mint time.
type AttributionManifest struct {
	Splits []AttributionSplit `json:"splits"`
}

// Validate checks the sum-to-100 rule and that every split names an
// identity.  Formatting of the manifest for display is out of scope.
func (m AttributionManifest) Validate() error {
	if len(m.Splits) == 0 {
		return fmt.Errorf("attribution manifest has no splits")
	}
	var total uint32
	for i, s := range m.Splits {
		if s.DID == "" {
			return fmt.Errorf("attribution split %d has empty did", i)
		}
		total += s.Percent
	}
	if total != 100 {
		return fmt.Errorf("attribution splits sum to %d, want 100", total)
	}
	return nil
}

// SoleAttribution builds the default manifest assigning all proceeds
// to a single identity, normally the event creator.
func SoleAttribution(did string) AttributionManifest {
	return AttributionManifest{Splits: []AttributionSplit{{DID: did, Percent: 100}}}
}
