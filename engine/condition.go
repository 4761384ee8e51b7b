/*
condition.go - Rule condition variants and matching

PURPOSE:
  A rule's applicability condition is a closed set of variants, one per
  operator the municipal laws use. Conditions are validated when a rule is
  constructed (factory boundary), never at evaluation time, so an "undefined
  field" can only ever be a configuration error, not a runtime surprise.

OPERATORS:
  menor_que   attribute <  value            (strict)
  maior_que   attribute >  value            (strict)
  igual_a     |attribute - value| <= 1e-9
  entre       min <= attribute <= max       (inclusive both ends)
  contem      attribute contains text       (case-insensitive)
  nao_contem  negation of contem

BOUNDARY SEMANTICS:
  menor_que and maior_que are both strict, so a value exactly at the
  threshold matches neither side of a two-tier schedule. Law schedules that
  mean "up to X" inclusive are configured as entre [0, X]; see
  programs/ for the grain/oats example.
*/
package engine

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONDITION - Closed variant set
// =============================================================================

type ConditionOp string

const (
	OpLessThan    ConditionOp = "menor_que"
	OpGreaterThan ConditionOp = "maior_que"
	OpEqual       ConditionOp = "igual_a"
	OpBetween     ConditionOp = "entre"
	OpContains    ConditionOp = "contem"
	OpNotContains ConditionOp = "nao_contem"
)

// equalityEpsilon is the tolerance for igual_a on decimal attributes.
var equalityEpsilon = decimal.New(1, -9)

// Condition is a single rule condition. Use the constructors; a
// zero Condition fails Validate.
type Condition struct {
	Op        ConditionOp
	Attribute AttributeKey

	// Threshold for menor_que / maior_que / igual_a.
	Value decimal.Decimal

	// Bounds for entre.
	Min decimal.Decimal
	Max decimal.Decimal

	// Needle for contem / nao_contem.
	Text string

	// Unit is informational (e.g. "alqueire", "%"); the engine compares raw
	// numbers and leaves unit consistency to the configuration boundary.
	Unit string
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

func LessThan(attr AttributeKey, value decimal.Decimal) Condition {
	return Condition{Op: OpLessThan, Attribute: attr, Value: value}
}

func GreaterThan(attr AttributeKey, value decimal.Decimal) Condition {
	return Condition{Op: OpGreaterThan, Attribute: attr, Value: value}
}

func EqualTo(attr AttributeKey, value decimal.Decimal) Condition {
	return Condition{Op: OpEqual, Attribute: attr, Value: value}
}

func Between(attr AttributeKey, min, max decimal.Decimal) Condition {
	return Condition{Op: OpBetween, Attribute: attr, Min: min, Max: max}
}

func Contains(attr AttributeKey, text string) Condition {
	return Condition{Op: OpContains, Attribute: attr, Text: text}
}

func NotContains(attr AttributeKey, text string) Condition {
	return Condition{Op: OpNotContains, Attribute: attr, Text: text}
}

// =============================================================================
// VALIDATION - Construction-time, not evaluation-time
// =============================================================================

func (c Condition) Validate() error {
	if c.Attribute == "" {
		return &InvalidInputError{Field: "condition.attribute", Reason: "is required"}
	}
	switch c.Op {
	case OpLessThan, OpGreaterThan, OpEqual:
		return nil
	case OpBetween:
		if !c.Min.LessThan(c.Max) {
			return &InvalidInputError{Field: "condition.entre", Reason: "requires min < max"}
		}
		return nil
	case OpContains, OpNotContains:
		if c.Text == "" {
			return &InvalidInputError{Field: "condition.text", Reason: "is required for contem/nao_contem"}
		}
		return nil
	default:
		return &InvalidInputError{Field: "condition.op", Reason: "unknown operator " + string(c.Op)}
	}
}

// =============================================================================
// MATCHING - Pure function of (condition, attributes)
// =============================================================================

// MatchesFor evaluates the condition against the producer attributes on
// behalf of the given rule (the rule ID only decorates error context).
// A missing attribute is an error, never a silent false.
func (c Condition) MatchesFor(ruleID RuleID, attrs *Attributes) (bool, error) {
	switch c.Op {
	case OpContains, OpNotContains:
		s, ok := attrs.String(c.Attribute)
		if !ok {
			return false, &MissingAttributeError{RuleID: ruleID, Attribute: c.Attribute}
		}
		found := strings.Contains(strings.ToLower(s), strings.ToLower(c.Text))
		if c.Op == OpNotContains {
			return !found, nil
		}
		return found, nil
	}

	v, ok := attrs.Number(c.Attribute)
	if !ok {
		return false, &MissingAttributeError{RuleID: ruleID, Attribute: c.Attribute}
	}

	switch c.Op {
	case OpLessThan:
		return v.LessThan(c.Value), nil
	case OpGreaterThan:
		return v.GreaterThan(c.Value), nil
	case OpEqual:
		return v.Sub(c.Value).Abs().LessThanOrEqual(equalityEpsilon), nil
	case OpBetween:
		return c.Min.LessThanOrEqual(v) && v.LessThanOrEqual(c.Max), nil
	default:
		return false, &InvalidInputError{Field: "condition.op", Reason: "unknown operator " + string(c.Op)}
	}
}

// Matches evaluates the condition without rule context.
func (c Condition) Matches(attrs *Attributes) (bool, error) {
	return c.MatchesFor("", attrs)
}
