/*
area.go - Effective cultivated area

PURPOSE:
  A producer's effective area is what eligibility tiers and area-based
  multipliers are measured against:

      effective = owned + leased-in - leased-out

  The formula is a pure function; Recalculate is the projection that reads
  the current property and lease rows for a reference year and overwrites
  the (person, year) snapshot. Running it twice with unchanged data yields
  an identical snapshot - it is a repeatable projection, not a ledger.

NEGATIVE RESULTS:
  A negative effective area is legal (a pure intermediary can cede more than
  they own) and is NOT floored to zero. Only negative INPUTS are rejected.
*/
package engine

import (
	"context"
	"fmt"
)

// =============================================================================
// FORMULA
// =============================================================================

// ComputeEffectiveArea applies owned + leasedIn - leasedOut. All inputs must
// be non-negative and share a unit; the caller owns unit consistency.
func ComputeEffectiveArea(owned, leasedIn, leasedOut Quantity) (Quantity, error) {
	if owned.IsNegative() {
		return Quantity{}, &InvalidInputError{Field: "owned_area", Reason: "must be non-negative"}
	}
	if leasedIn.IsNegative() {
		return Quantity{}, &InvalidInputError{Field: "leased_in_area", Reason: "must be non-negative"}
	}
	if leasedOut.IsNegative() {
		return Quantity{}, &InvalidInputError{Field: "leased_out_area", Reason: "must be non-negative"}
	}
	return owned.Add(leasedIn).Sub(leasedOut), nil
}

// =============================================================================
// RECALCULATION - Projection over property/lease rows
// =============================================================================

// AreaCalculator derives effective-area snapshots from registry state.
//
// Concurrent recalculation for the same (person, year) must be serialized by
// the caller; the snapshot write is a plain overwrite.
type AreaCalculator struct {
	Properties PropertyStore
	Leases     LeaseStore
	Snapshots  AreaSnapshotStore
}

// Recalculate rebuilds and persists the (person, year) snapshot:
//
//	owned      = sum of total area over properties the person owns
//	leased-in  = sum of received area over leases where the person is tenant
//	leased-out = sum of ceded area over leases on the person's properties
//
// Mixed area units across a person's holdings are rejected rather than
// silently summed.
func (c *AreaCalculator) Recalculate(ctx context.Context, personID PersonID, year int) (*EffectiveAreaSnapshot, error) {
	properties, err := c.Properties.PropertiesByOwner(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("loading properties for %s: %w", personID, err)
	}

	unit := UnitAlqueire
	if len(properties) > 0 {
		unit = properties[0].TotalArea.Unit
	}

	owned := NewQuantity(0, unit)
	for _, p := range properties {
		if p.TotalArea.Unit != unit {
			return nil, &InvalidInputError{Field: "total_area", Reason: "mixed area units across owned properties"}
		}
		owned = owned.Add(p.TotalArea)
	}

	leasesIn, err := c.Leases.LeasesByTenant(ctx, personID, year)
	if err != nil {
		return nil, fmt.Errorf("loading leases for tenant %s: %w", personID, err)
	}
	leasedIn := NewQuantity(0, unit)
	for _, l := range leasesIn {
		leasedIn = leasedIn.Add(Quantity{Value: l.AreaReceived.Value, Unit: unit})
	}

	leasedOut := NewQuantity(0, unit)
	for _, p := range properties {
		leasesOut, err := c.Leases.LeasesByProperty(ctx, p.ID, year)
		if err != nil {
			return nil, fmt.Errorf("loading leases for property %s: %w", p.ID, err)
		}
		for _, l := range leasesOut {
			leasedOut = leasedOut.Add(Quantity{Value: l.AreaCeded.Value, Unit: unit})
		}
	}

	effective, err := ComputeEffectiveArea(owned, leasedIn, leasedOut)
	if err != nil {
		return nil, err
	}

	snap := EffectiveAreaSnapshot{
		ID:            fmt.Sprintf("%s-%d", personID, year),
		PersonID:      personID,
		Year:          year,
		OwnedArea:     owned,
		LeasedInArea:  leasedIn,
		LeasedOutArea: leasedOut,
		EffectiveArea: effective,
	}

	if c.Snapshots != nil {
		if err := c.Snapshots.SaveEffectiveArea(ctx, snap); err != nil {
			return nil, fmt.Errorf("saving snapshot: %w", err)
		}
	}
	return &snap, nil
}
