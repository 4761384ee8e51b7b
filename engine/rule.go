/*
rule.go - Program and rule definitions

PURPOSE:
  A Program is a benefit program tied to a municipal law; it owns a set of
  Rules. Each Rule pairs a condition (when does this tier of the law apply)
  with a benefit value (a per-unit rate) and an optional Limit describing
  how much can be claimed: a quantity multiplier over a base attribute, an
  absolute ceiling, and a period-bound cap.

RULE KINDS:
  Monetary rule:     UnitValue > 0. At most one applies per request.
  Eligibility gate:  UnitValue == 0. ALL gates must pass before any monetary
                     rule is considered (e.g. "family income must be >= 80%
                     agricultural").

EXAMPLE (grain/oats seed law):
  Rule{
      Condition: Between(AttrEffectiveArea, 0, 6),   // up to 6 alqueires
      UnitValue: 0.80,                               // R$ per kg
      Unit:      UnitKilogram,
      Limit: &Limit{
          Kind:       LimitArea,
          Ceiling:    450,                            // kg, absolute
          Multiplier: &Multiplier{Factor: 150, Base: BaseArea}, // kg/alqueire
          PerPeriod:  &PeriodCap{Period: PeriodAnnual, Quantity: 450},
      },
  }
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// PROGRAM
// =============================================================================

type ProgramType string

const (
	ProgramSubsidy    ProgramType = "subsidio"
	ProgramMaterial   ProgramType = "material"
	ProgramService    ProgramType = "servico"
	ProgramCredit     ProgramType = "credito"
	ProgramAssistance ProgramType = "assistencia"
)

type Program struct {
	ID           ProgramID
	Name         string
	LawReference string
	Type         ProgramType
	Active       bool
}

func (p Program) Validate() error {
	if p.Name == "" {
		return &InvalidInputError{Field: "program.name", Reason: "is required"}
	}
	switch p.Type {
	case ProgramSubsidy, ProgramMaterial, ProgramService, ProgramCredit, ProgramAssistance:
		return nil
	default:
		return &InvalidInputError{Field: "program.type", Reason: "unknown type " + string(p.Type)}
	}
}

// =============================================================================
// LIMIT - How much of the benefit can be claimed
// =============================================================================

type LimitKind string

const (
	LimitQuantity LimitKind = "quantidade"
	LimitValue    LimitKind = "valor"
	LimitPercent  LimitKind = "percentual"
	LimitArea     LimitKind = "area"
)

// MultiplierBase names the producer attribute a quantity multiplier scales on.
type MultiplierBase string

const (
	BaseArea   MultiplierBase = "area"
	BaseIncome MultiplierBase = "renda"
	BaseFixed  MultiplierBase = "fixo"
)

// Multiplier derives the maximum claimable quantity from a base attribute,
// e.g. 150 kg per alqueire of effective area. BaseFixed ignores attributes
// and yields Factor directly.
type Multiplier struct {
	Factor decimal.Decimal
	Base   MultiplierBase
}

func (m Multiplier) attributeKey() AttributeKey {
	switch m.Base {
	case BaseIncome:
		return AttrIncomeShare
	default:
		return AttrEffectiveArea
	}
}

// PeriodCap bounds consumption inside a period window.
type PeriodCap struct {
	Period   PeriodKind
	Quantity decimal.Decimal
}

type Limit struct {
	Kind LimitKind

	// Ceiling is the absolute cap on claimable quantity, regardless of what
	// the multiplier yields. Zero means no ceiling.
	Ceiling decimal.Decimal

	Multiplier *Multiplier
	PerPeriod  *PeriodCap
}

func (l Limit) Validate() error {
	switch l.Kind {
	case LimitQuantity, LimitValue, LimitPercent, LimitArea:
	default:
		return &InvalidInputError{Field: "limit.kind", Reason: "unknown kind " + string(l.Kind)}
	}
	if l.Ceiling.IsNegative() {
		return &InvalidInputError{Field: "limit.ceiling", Reason: "must be non-negative"}
	}
	if l.Multiplier != nil {
		if !l.Multiplier.Factor.IsPositive() {
			return &InvalidInputError{Field: "limit.multiplier.factor", Reason: "must be positive"}
		}
		switch l.Multiplier.Base {
		case BaseArea, BaseIncome, BaseFixed:
		default:
			return &InvalidInputError{Field: "limit.multiplier.base", Reason: "unknown base " + string(l.Multiplier.Base)}
		}
	}
	if l.PerPeriod != nil {
		if !knownPeriodKind(l.PerPeriod.Period) {
			return &InvalidInputError{Field: "limit.per_period.period", Reason: "unknown period " + string(l.PerPeriod.Period)}
		}
		if !l.PerPeriod.Quantity.IsPositive() {
			return &InvalidInputError{Field: "limit.per_period.quantity", Reason: "must be positive"}
		}
	}
	return nil
}

// =============================================================================
// RULE
// =============================================================================

type Rule struct {
	ID          RuleID
	ProgramID   ProgramID
	Description string

	Condition Condition

	// UnitValue is the monetary rate per Unit (R$/kg, R$/hour...). Zero marks
	// an eligibility-only gate.
	UnitValue decimal.Decimal
	Unit      Unit

	Limit *Limit
}

// IsGate reports whether the rule is an eligibility-only gate.
func (r Rule) IsGate() bool { return r.UnitValue.IsZero() }

// AreaLimited reports whether the rule's ceiling derives from land area,
// which is what triggers proportional apportionment for tenants.
func (r Rule) AreaLimited() bool {
	return r.Limit != nil && r.Limit.Kind == LimitArea
}

func (r Rule) Validate() error {
	if r.UnitValue.IsNegative() {
		return &InvalidInputError{Field: "rule.unit_value", Reason: "must be non-negative"}
	}
	if !r.IsGate() && r.Unit == "" {
		return &InvalidInputError{Field: "rule.unit", Reason: "is required for monetary rules"}
	}
	if err := r.Condition.Validate(); err != nil {
		return err
	}
	if r.Limit != nil {
		if err := r.Limit.Validate(); err != nil {
			return err
		}
	}
	return nil
}
