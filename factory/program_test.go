package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralis/benefit-engine/engine"
	"github.com/ruralis/benefit-engine/factory"
)

const seedProgramJSON = `{
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
		},
		{
			"id": "sementes-renda",
			"description": "income gate",
			"condition": {"op": "entre", "attribute": "renda_agricola", "min": 80, "max": 100}
		}
	]
}`

func TestParseProgram_BuildsValidatedRules(t *testing.T) {
	// GIVEN: A JSON transcription of the seed law
	// WHEN: Parsing
	// THEN: Program and rules come back fully typed; the zero-rate rule is a gate

	f := factory.NewProgramFactory()
	program, rules, err := f.ParseProgram(seedProgramJSON)
	require.NoError(t, err)

	assert.Equal(t, engine.ProgramID("sementes"), program.ID)
	assert.Equal(t, engine.ProgramSubsidy, program.Type)
	assert.True(t, program.Active)
	require.Len(t, rules, 2)

	tier := rules[0]
	assert.Equal(t, engine.OpBetween, tier.Condition.Op)
	assert.Equal(t, engine.AttrEffectiveArea, tier.Condition.Attribute)
	assert.False(t, tier.IsGate())
	assert.Equal(t, engine.UnitKilogram, tier.Unit)
	require.NotNil(t, tier.Limit)
	assert.True(t, tier.Limit.Ceiling.Equal(engine.MustParseDecimal("450")))
	require.NotNil(t, tier.Limit.Multiplier)
	assert.Equal(t, engine.BaseArea, tier.Limit.Multiplier.Base)
	require.NotNil(t, tier.Limit.PerPeriod)
	assert.Equal(t, engine.PeriodAnnual, tier.Limit.PerPeriod.Period)

	gate := rules[1]
	assert.True(t, gate.IsGate())
	assert.Nil(t, gate.Limit)
}

func TestToJSON_RoundTripsTheDefinition(t *testing.T) {
	// GIVEN: A parsed program
	// WHEN: Converting back to JSON schema and parsing again
	// THEN: The second parse yields the same rules

	f := factory.NewProgramFactory()
	program, rules, err := f.ParseProgram(seedProgramJSON)
	require.NoError(t, err)

	pj := f.ToJSON(*program, rules)
	program2, rules2, err := f.FromJSON(pj)
	require.NoError(t, err)

	assert.Equal(t, program.ID, program2.ID)
	require.Len(t, rules2, len(rules))
	for i := range rules {
		assert.Equal(t, rules[i].ID, rules2[i].ID)
		assert.Equal(t, rules[i].Condition.Op, rules2[i].Condition.Op)
		assert.True(t, rules[i].UnitValue.Equal(rules2[i].UnitValue))
	}
}

func TestRuleFromJSON_SingleRuleHelper(t *testing.T) {
	rj := factory.RuleJSON{
		ID:        "r-1",
		Condition: factory.ConditionJSON{Op: "maior_que", Attribute: "area_efetiva", Value: floatPtr(0)},
		UnitValue: 1.20,
		Unit:      "kg",
	}
	rule, err := factory.RuleFromJSON("prog-1", rj)
	require.NoError(t, err)
	assert.Equal(t, engine.ProgramID("prog-1"), rule.ProgramID)
	assert.Equal(t, engine.OpGreaterThan, rule.Condition.Op)

	back := factory.RuleToJSON(rule)
	assert.Equal(t, rj.ID, back.ID)
	assert.Equal(t, rj.Condition.Op, back.Condition.Op)
}

// =============================================================================
// REJECTION TESTS - Malformed configurations never reach the evaluator
// =============================================================================

func TestFromJSON_RejectsMalformedConfigurations(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{
			"unknown operator",
			`{"id":"p","name":"P","type":"subsidio","active":true,"rules":[
				{"id":"r","condition":{"op":"parecido_com","attribute":"area_efetiva","value":5},"unit_value":1,"unit":"kg"}]}`,
		},
		{
			"inverted entre bounds",
			`{"id":"p","name":"P","type":"subsidio","active":true,"rules":[
				{"id":"r","condition":{"op":"entre","attribute":"area_efetiva","min":6,"max":0},"unit_value":1,"unit":"kg"}]}`,
		},
		{
			"negative rate",
			`{"id":"p","name":"P","type":"subsidio","active":true,"rules":[
				{"id":"r","condition":{"op":"maior_que","attribute":"area_efetiva","value":0},"unit_value":-1,"unit":"kg"}]}`,
		},
		{
			"monetary rule without unit",
			`{"id":"p","name":"P","type":"subsidio","active":true,"rules":[
				{"id":"r","condition":{"op":"maior_que","attribute":"area_efetiva","value":0},"unit_value":1}]}`,
		},
		{
			"unknown program type",
			`{"id":"p","name":"P","type":"sorteio","active":true,"rules":[]}`,
		},
		{
			"unknown period kind",
			`{"id":"p","name":"P","type":"subsidio","active":true,"rules":[
				{"id":"r","condition":{"op":"maior_que","attribute":"area_efetiva","value":0},"unit_value":1,"unit":"kg",
				 "limit":{"kind":"area","per_period":{"period":"semestral","quantity":10}}}]}`,
		},
	}

	f := factory.NewProgramFactory()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.ParseProgram(tc.json)
			assert.Error(t, err)
		})
	}
}

func floatPtr(v float64) *float64 { return &v }
