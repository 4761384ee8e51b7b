/*
calculator.go - Benefit value computation for a single rule

PURPOSE:
  Given an applicable rule and the producer's attributes, derive the maximum
  claimable quantity and the monetary value of the benefit:

    1. Multiplier:  max = factor * attribute (e.g. 150 kg per alqueire of
       effective area), or the factor itself for a fixed base.
    2. Ceiling:     max is clamped by the rule's absolute cap (e.g. 450 kg
       regardless of area).
    3. Request:     granted = min(requested, max); with no requested
       quantity the producer claims the maximum.
    4. Value:       granted * unit rate (R$/kg, R$/hour, ...).

  Period caps and tenant apportionment are the evaluator's business; the
  apportioned ceiling arrives here as an override for the multiplier result.

EXAMPLE (grain/oats, 5 alqueires):
  min(5 * 150, 450) = 450 kg -> 450 * R$0.80 = R$360.00
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// CalculationResult is the outcome of evaluating a request. A non-matching
// rule or an exhausted quota is a normal result, not an error.
type CalculationResult struct {
	RuleID  RuleID
	Matched bool
	Allowed bool

	// Quantity granted and its monetary value. Zero when not matched or not
	// allowed.
	Quantity Quantity
	Value    decimal.Decimal

	Message  string
	Warnings []string

	// NextEligible is set when a period cap is exhausted.
	NextEligible *Date

	Details CalculationDetails
}

// CalculationDetails is the breakdown the UI renders alongside the value.
type CalculationDetails struct {
	UnitValue         decimal.Decimal
	RequestedQuantity *Quantity
	MaxClaimable      *Quantity
	PriorConsumption  *Quantity
	RemainingQuota    *Quantity
	Window            *Window
	Apportionment     *TenantApportionment
}

func notApplicable(message string) *CalculationResult {
	return &CalculationResult{
		Matched: false,
		Allowed: false,
		Value:   decimal.Zero,
		Message: message,
	}
}

// =============================================================================
// CLAIMABLE QUANTITY
// =============================================================================

// maxClaimable derives the quantity cap for a rule. capOverride, when
// non-nil, replaces the multiplier result (the tenant-apportioned ceiling);
// the absolute ceiling still applies on top. A nil return means the rule
// imposes no quantity bound.
func maxClaimable(rule Rule, attrs *Attributes, capOverride *decimal.Decimal) (*Quantity, error) {
	if rule.Limit == nil {
		return nil, nil
	}

	var max *decimal.Decimal

	switch {
	case capOverride != nil:
		v := *capOverride
		max = &v
	case rule.Limit.Multiplier != nil:
		m := rule.Limit.Multiplier
		if m.Base == BaseFixed {
			v := m.Factor
			max = &v
		} else {
			base, ok := attrs.Number(m.attributeKey())
			if !ok {
				return nil, &MissingAttributeError{RuleID: rule.ID, Attribute: m.attributeKey()}
			}
			if base.IsNegative() {
				// Intermediaries can have negative effective area; they can
				// claim nothing on an area-scaled benefit.
				base = decimal.Zero
			}
			v := m.Factor.Mul(base)
			max = &v
		}
	}

	if rule.Limit.Ceiling.IsPositive() {
		if max == nil || max.GreaterThan(rule.Limit.Ceiling) {
			v := rule.Limit.Ceiling
			max = &v
		}
	}

	if max == nil {
		return nil, nil
	}
	q := Quantity{Value: *max, Unit: rule.Unit}
	return &q, nil
}

// computeRule grants a quantity and value for a matched monetary rule,
// before any period cap is applied.
func computeRule(rule Rule, attrs *Attributes, requested *Quantity, capOverride *decimal.Decimal) (*CalculationResult, error) {
	max, err := maxClaimable(rule, attrs, capOverride)
	if err != nil {
		return nil, err
	}

	var granted Quantity
	switch {
	case requested != nil && max != nil:
		granted = requested.Min(*max)
	case requested != nil:
		granted = *requested
	case max != nil:
		granted = *max
	default:
		return nil, &InvalidInputError{
			Field:  "requested_quantity",
			Reason: "is required when the rule has no quantity limit",
		}
	}
	if granted.IsNegative() {
		return nil, &InvalidInputError{Field: "requested_quantity", Reason: "must be non-negative"}
	}
	granted.Unit = rule.Unit

	result := &CalculationResult{
		RuleID:   rule.ID,
		Matched:  true,
		Allowed:  true,
		Quantity: granted,
		Value:    granted.Value.Mul(rule.UnitValue),
		Details: CalculationDetails{
			UnitValue:         rule.UnitValue,
			RequestedQuantity: requested,
			MaxClaimable:      max,
		},
	}
	if requested != nil && max != nil && requested.GreaterThan(*max) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("requested %s exceeds the claimable maximum of %s", requested, max))
	}
	return result, nil
}
