/*
Package factory provides JSON to Go program conversion.

PURPOSE:
  Converts JSON program definitions into engine.Program and engine.Rule
  objects. This enables benefit configuration without code changes - the
  agriculture department can define a new law's tier schedule in JSON, and
  the factory creates validated Go structs.

WHY JSON?
  - Non-developers can transcribe a municipal law into a program
  - Easy integration with an admin UI
  - Version control for program definitions
  - Database storage of program configs

JSON SCHEMA:
  {
    "id": "sementes",
    "name": "Subsídio de Sementes",
    "law_reference": "Lei Municipal 1.842/2019",
    "type": "subsidio",
    "active": true,
    "rules": [
      {
        "id": "sementes-ate-6-alq",
        "description": "up to 6 alqueires",
        "condition": {"op": "entre", "attribute": "area_efetiva", "min": 0, "max": 6, "unit": "alqueire"},
        "unit_value": 0.80,
        "unit": "kg",
        "limit": {
          "kind": "area",
          "ceiling": 450,
          "multiplier": {"factor": 150, "base": "area"},
          "per_period": {"period": "anual", "quantity": 450}
        }
      }
    ]
  }

KEY FEATURES:
  - Validates everything at construction time: unknown operators, inverted
    entre bounds and negative rates are rejected before a rule ever reaches
    the evaluator
  - Round-trips: ToJSON(FromJSON(x)) preserves the definition

USAGE:
  f := factory.NewProgramFactory()
  program, rules, err := f.ParseProgram(jsonString)

SEE ALSO:
  - engine/rule.go: Program/Rule/Limit definitions
  - programs/programs.go: Go-based preset configurations
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/ruralis/benefit-engine/engine"
	"github.com/shopspring/decimal"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ProgramJSON is the JSON representation of a benefit program.
type ProgramJSON struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	LawReference string     `json:"law_reference,omitempty"`
	Type         string     `json:"type"`
	Active       bool       `json:"active"`
	Rules        []RuleJSON `json:"rules"`
}

// RuleJSON represents one tier or gate of a program.
type RuleJSON struct {
	ID          string        `json:"id"`
	Description string        `json:"description,omitempty"`
	Condition   ConditionJSON `json:"condition"`
	UnitValue   float64       `json:"unit_value,omitempty"` // zero marks an eligibility gate
	Unit        string        `json:"unit,omitempty"`
	Limit       *LimitJSON    `json:"limit,omitempty"`
}

// ConditionJSON represents a rule condition.
type ConditionJSON struct {
	Op        string   `json:"op"` // menor_que, maior_que, igual_a, entre, contem, nao_contem
	Attribute string   `json:"attribute"`
	Value     *float64 `json:"value,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Text      string   `json:"text,omitempty"`
	Unit      string   `json:"unit,omitempty"`
}

// LimitJSON represents a claim limit.
type LimitJSON struct {
	Kind       string          `json:"kind"` // quantidade, valor, percentual, area
	Ceiling    *float64        `json:"ceiling,omitempty"`
	Multiplier *MultiplierJSON `json:"multiplier,omitempty"`
	PerPeriod  *PeriodCapJSON  `json:"per_period,omitempty"`
}

// MultiplierJSON represents a quantity multiplier.
type MultiplierJSON struct {
	Factor float64 `json:"factor"`
	Base   string  `json:"base"` // area, renda, fixo
}

// PeriodCapJSON represents a period-bound consumption cap.
type PeriodCapJSON struct {
	Period   string  `json:"period"` // anual, bienal, mensal
	Quantity float64 `json:"quantity"`
}

// =============================================================================
// PROGRAM FACTORY
// =============================================================================

// ProgramFactory converts JSON programs to validated Go structs.
type ProgramFactory struct{}

func NewProgramFactory() *ProgramFactory {
	return &ProgramFactory{}
}

// ParseProgram parses a JSON string into a Program and its Rules.
func (f *ProgramFactory) ParseProgram(jsonStr string) (*engine.Program, []engine.Rule, error) {
	var pj ProgramJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, nil, fmt.Errorf("failed to parse program JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts ProgramJSON into a validated Program and Rules. Every
// condition, limit and rate is checked here so the evaluator never sees a
// malformed configuration.
func (f *ProgramFactory) FromJSON(pj ProgramJSON) (*engine.Program, []engine.Rule, error) {
	program := &engine.Program{
		ID:           engine.ProgramID(pj.ID),
		Name:         pj.Name,
		LawReference: pj.LawReference,
		Type:         engine.ProgramType(pj.Type),
		Active:       pj.Active,
	}
	if err := program.Validate(); err != nil {
		return nil, nil, fmt.Errorf("program %s: %w", pj.ID, err)
	}

	rules := make([]engine.Rule, 0, len(pj.Rules))
	for _, rj := range pj.Rules {
		rule, err := parseRule(program.ID, rj)
		if err != nil {
			return nil, nil, fmt.Errorf("program %s, rule %s: %w", pj.ID, rj.ID, err)
		}
		rules = append(rules, rule)
	}
	return program, rules, nil
}

// ToJSON converts a Program and its Rules back to the JSON schema.
func (f *ProgramFactory) ToJSON(program engine.Program, rules []engine.Rule) ProgramJSON {
	pj := ProgramJSON{
		ID:           string(program.ID),
		Name:         program.Name,
		LawReference: program.LawReference,
		Type:         string(program.Type),
		Active:       program.Active,
	}
	for _, r := range rules {
		pj.Rules = append(pj.Rules, ruleToJSON(r))
	}
	return pj
}

// RuleFromJSON converts a single RuleJSON into a validated Rule. Used by the
// SQLite store, which persists rule configurations in this schema.
func RuleFromJSON(programID engine.ProgramID, rj RuleJSON) (engine.Rule, error) {
	return parseRule(programID, rj)
}

// RuleToJSON converts a Rule back to its JSON schema form.
func RuleToJSON(r engine.Rule) RuleJSON {
	return ruleToJSON(r)
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseRule(programID engine.ProgramID, rj RuleJSON) (engine.Rule, error) {
	condition, err := parseCondition(rj.Condition)
	if err != nil {
		return engine.Rule{}, err
	}

	rule := engine.Rule{
		ID:          engine.RuleID(rj.ID),
		ProgramID:   programID,
		Description: rj.Description,
		Condition:   condition,
		UnitValue:   decimal.NewFromFloat(rj.UnitValue),
		Unit:        engine.Unit(rj.Unit),
	}

	if rj.Limit != nil {
		limit, err := parseLimit(*rj.Limit)
		if err != nil {
			return engine.Rule{}, err
		}
		rule.Limit = limit
	}

	if err := rule.Validate(); err != nil {
		return engine.Rule{}, err
	}
	return rule, nil
}

func parseCondition(cj ConditionJSON) (engine.Condition, error) {
	attr := engine.AttributeKey(cj.Attribute)

	var c engine.Condition
	switch engine.ConditionOp(cj.Op) {
	case engine.OpLessThan:
		c = engine.LessThan(attr, floatOrZero(cj.Value))
	case engine.OpGreaterThan:
		c = engine.GreaterThan(attr, floatOrZero(cj.Value))
	case engine.OpEqual:
		c = engine.EqualTo(attr, floatOrZero(cj.Value))
	case engine.OpBetween:
		c = engine.Between(attr, floatOrZero(cj.Min), floatOrZero(cj.Max))
	case engine.OpContains:
		c = engine.Contains(attr, cj.Text)
	case engine.OpNotContains:
		c = engine.NotContains(attr, cj.Text)
	default:
		return engine.Condition{}, &engine.InvalidInputError{
			Field:  "condition.op",
			Reason: "unknown operator " + cj.Op,
		}
	}
	c.Unit = cj.Unit

	if err := c.Validate(); err != nil {
		return engine.Condition{}, err
	}
	return c, nil
}

func parseLimit(lj LimitJSON) (*engine.Limit, error) {
	limit := &engine.Limit{
		Kind:    engine.LimitKind(lj.Kind),
		Ceiling: floatOrZero(lj.Ceiling),
	}
	if lj.Multiplier != nil {
		limit.Multiplier = &engine.Multiplier{
			Factor: decimal.NewFromFloat(lj.Multiplier.Factor),
			Base:   engine.MultiplierBase(lj.Multiplier.Base),
		}
	}
	if lj.PerPeriod != nil {
		limit.PerPeriod = &engine.PeriodCap{
			Period:   engine.PeriodKind(lj.PerPeriod.Period),
			Quantity: decimal.NewFromFloat(lj.PerPeriod.Quantity),
		}
	}
	if err := limit.Validate(); err != nil {
		return nil, err
	}
	return limit, nil
}

func floatOrZero(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*f)
}

func ruleToJSON(r engine.Rule) RuleJSON {
	rj := RuleJSON{
		ID:          string(r.ID),
		Description: r.Description,
		Condition:   conditionToJSON(r.Condition),
		Unit:        string(r.Unit),
	}
	rj.UnitValue, _ = r.UnitValue.Float64()

	if r.Limit != nil {
		lj := &LimitJSON{Kind: string(r.Limit.Kind)}
		if r.Limit.Ceiling.IsPositive() {
			v, _ := r.Limit.Ceiling.Float64()
			lj.Ceiling = &v
		}
		if r.Limit.Multiplier != nil {
			factor, _ := r.Limit.Multiplier.Factor.Float64()
			lj.Multiplier = &MultiplierJSON{Factor: factor, Base: string(r.Limit.Multiplier.Base)}
		}
		if r.Limit.PerPeriod != nil {
			qty, _ := r.Limit.PerPeriod.Quantity.Float64()
			lj.PerPeriod = &PeriodCapJSON{Period: string(r.Limit.PerPeriod.Period), Quantity: qty}
		}
		rj.Limit = lj
	}
	return rj
}

func conditionToJSON(c engine.Condition) ConditionJSON {
	cj := ConditionJSON{
		Op:        string(c.Op),
		Attribute: string(c.Attribute),
		Unit:      c.Unit,
		Text:      c.Text,
	}
	switch c.Op {
	case engine.OpLessThan, engine.OpGreaterThan, engine.OpEqual:
		v, _ := c.Value.Float64()
		cj.Value = &v
	case engine.OpBetween:
		min, _ := c.Min.Float64()
		max, _ := c.Max.Float64()
		cj.Min = &min
		cj.Max = &max
	}
	return cj
}
