/*
apportion.go - Proportional limit apportionment across tenants

PURPOSE:
  When a benefit limit derives from land area and the requester is a tenant
  rather than the landowner, the landowner's property-level entitlement is
  split among the tenants in proportion to leased share:

      contributedLimit = (leasedArea / propertyTotalArea) * ownerFullLimit

  Summed across all tenants of a property, the apportioned limits can never
  exceed what the landowner alone would have received - the split conserves
  the total.

  This is a pure read/compute: it never mutates Lease or Property records.

EDGE CASES:
  Zero total area with leases, or leased areas summing above the total,
  abort with InconsistentAreaDataError instead of dividing by zero or
  handing a tenant more than 100% of a property.
*/
package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// BREAKDOWN TYPES
// =============================================================================

// LeaseShare is one lease's slice of a property's entitlement.
type LeaseShare struct {
	LeaseID          LeaseID
	TenantID         PersonID
	LeasedArea       Quantity
	PercentOfProperty decimal.Decimal
	ContributedLimit decimal.Decimal
}

// PropertyShare is the tenant-facing contribution of a single property.
type PropertyShare struct {
	PropertyID       PropertyID
	OwnerID          PersonID
	TotalArea        Quantity
	OwnerFullLimit   decimal.Decimal
	LeasedArea       Quantity
	PercentOfProperty decimal.Decimal
	ContributedLimit decimal.Decimal
}

// TenantApportionment aggregates a tenant's apportioned limit across every
// property they lease from.
type TenantApportionment struct {
	TenantID   PersonID
	Year       int
	Properties []PropertyShare

	// Total is the tenant's ceiling: sum of ContributedLimit.
	Total decimal.Decimal

	// PercentTotal is the tenant's weighted share of the combined owner
	// entitlements (Total / sum of OwnerFullLimit * 100).
	PercentTotal decimal.Decimal
}

// =============================================================================
// APPORTIONER
// =============================================================================

type Apportioner struct {
	Properties PropertyStore
	Leases     LeaseStore
}

// ApportionProperty splits a property's full entitlement across its leases.
// The shares come back in lease order; their sum is (leasedTotal/total) of
// ownerFullLimit.
func ApportionProperty(property Property, leases []Lease, ownerFullLimit decimal.Decimal) ([]LeaseShare, error) {
	if len(leases) == 0 {
		return nil, nil
	}

	total := property.TotalArea.Value
	leasedTotal := decimal.Zero
	for _, l := range leases {
		leasedTotal = leasedTotal.Add(l.AreaReceived.Value)
	}

	if total.IsZero() {
		return nil, &InconsistentAreaDataError{
			PropertyID: property.ID,
			TotalArea:  property.TotalArea,
			LeasedArea: Quantity{Value: leasedTotal, Unit: property.TotalArea.Unit},
			Reason:     "property has zero total area but active leases",
		}
	}
	if leasedTotal.GreaterThan(total) {
		return nil, &InconsistentAreaDataError{
			PropertyID: property.ID,
			TotalArea:  property.TotalArea,
			LeasedArea: Quantity{Value: leasedTotal, Unit: property.TotalArea.Unit},
			Reason:     "leased area exceeds property total area",
		}
	}

	shares := make([]LeaseShare, 0, len(leases))
	for _, l := range leases {
		fraction := l.AreaReceived.Value.Div(total)
		shares = append(shares, LeaseShare{
			LeaseID:          l.ID,
			TenantID:         l.TenantID,
			LeasedArea:       l.AreaReceived,
			PercentOfProperty: fraction.Mul(hundred),
			ContributedLimit: fraction.Mul(ownerFullLimit),
		})
	}
	return shares, nil
}

// ForTenant aggregates the apportioned limit for one tenant across all
// properties they lease in the reference year. ownerLimitFor maps a property
// to the landowner's full entitlement under the applicable rule (typically
// rate-per-area times total area, already capped by the rule's ceiling).
func (a *Apportioner) ForTenant(
	ctx context.Context,
	tenantID PersonID,
	year int,
	ownerLimitFor func(Property) decimal.Decimal,
) (*TenantApportionment, error) {
	leases, err := a.Leases.LeasesByTenant(ctx, tenantID, year)
	if err != nil {
		return nil, fmt.Errorf("loading leases for tenant %s: %w", tenantID, err)
	}

	result := &TenantApportionment{TenantID: tenantID, Year: year, Total: decimal.Zero, PercentTotal: decimal.Zero}
	ownerLimitSum := decimal.Zero

	for _, lease := range leases {
		property, err := a.Properties.Property(ctx, lease.PropertyID)
		if err != nil {
			return nil, err
		}
		if property == nil {
			return nil, fmt.Errorf("lease %s: %w", lease.ID, ErrPropertyNotFound)
		}

		// All leases on the property participate so over-leasing is caught
		// even when only this tenant is being evaluated.
		siblings, err := a.Leases.LeasesByProperty(ctx, property.ID, year)
		if err != nil {
			return nil, err
		}

		ownerLimit := ownerLimitFor(*property)
		shares, err := ApportionProperty(*property, siblings, ownerLimit)
		if err != nil {
			return nil, err
		}

		for _, share := range shares {
			if share.LeaseID != lease.ID {
				continue
			}
			result.Properties = append(result.Properties, PropertyShare{
				PropertyID:       property.ID,
				OwnerID:          property.OwnerID,
				TotalArea:        property.TotalArea,
				OwnerFullLimit:   ownerLimit,
				LeasedArea:       share.LeasedArea,
				PercentOfProperty: share.PercentOfProperty,
				ContributedLimit: share.ContributedLimit,
			})
			result.Total = result.Total.Add(share.ContributedLimit)
			ownerLimitSum = ownerLimitSum.Add(ownerLimit)
		}
	}

	if ownerLimitSum.IsPositive() {
		result.PercentTotal = result.Total.Div(ownerLimitSum).Mul(hundred)
	}
	return result, nil
}
