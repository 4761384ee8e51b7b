/*
programs.go - Pre-built benefit program configurations

PURPOSE:
  Provides ready-to-use program configurations mirroring the municipal
  incentive laws most small rural municipalities carry. These are
  convenience constructors that set up Program + Rules with the tier
  schedules, multipliers, ceilings and period caps already wired.

AVAILABLE PROGRAMS:
  GrainSeedProgram:         Grain/oats seed subsidy, kg per alqueire with an
                            absolute cap, annual quota
  OrganicFertilizerProgram: Fertilizer distribution on a biennial quota
  TractorHoursProgram:      Subsidized machine hours with a monthly cap
  CalcareoProgram:          Soil correction lime, per-area with income gate

TIER BOUNDARIES:
  The seed law reads "up to 6 alqueires" inclusive, so the small-producer
  tier is configured as entre [0, 6] and the large tier as maior_que 6;
  a producer at exactly 6 alqueires lands in the first tier only.

CUSTOMIZATION:
  These are starting points. Real municipalities adjust the rates and caps
  per budget year; factory/ creates fully custom programs from JSON.

EXAMPLE:
  cfg := programs.GrainSeedProgram("seed-2026")
  store.SaveProgram(ctx, cfg.Program, cfg.Rules)

SEE ALSO:
  - factory/program.go: JSON-based program creation
  - engine/rule.go: Program/Rule/Limit definitions
*/
package programs

import (
	"github.com/ruralis/benefit-engine/engine"
	"github.com/shopspring/decimal"
)

// ProgramConfig pairs a program with its rule set, ready for seeding.
type ProgramConfig struct {
	Program engine.Program
	Rules   []engine.Rule
}

func dec(s string) decimal.Decimal { return engine.MustParseDecimal(s) }

// =============================================================================
// COMMON MUNICIPAL PROGRAMS
// =============================================================================

// GrainSeedProgram returns the grain/oats seed subsidy: 150 kg of seed per
// alqueire of effective area up to 450 kg, at R$0.80/kg, once per year.
// Producers above 6 alqueires receive the flat maximum.
func GrainSeedProgram(id engine.ProgramID) ProgramConfig {
	annualCap := &engine.PeriodCap{Period: engine.PeriodAnnual, Quantity: dec("450")}
	return ProgramConfig{
		Program: engine.Program{
			ID:           id,
			Name:         "Subsídio de Sementes de Grãos e Aveia",
			LawReference: "Lei Municipal 1.842/2019",
			Type:         engine.ProgramSubsidy,
			Active:       true,
		},
		Rules: []engine.Rule{
			{
				ID:          engine.RuleID(string(id) + "-ate-6-alq"),
				ProgramID:   id,
				Description: "producers up to 6 alqueires: 150 kg per alqueire, capped at 450 kg",
				Condition:   engine.Between(engine.AttrEffectiveArea, dec("0"), dec("6")),
				UnitValue:   dec("0.80"),
				Unit:        engine.UnitKilogram,
				Limit: &engine.Limit{
					Kind:       engine.LimitArea,
					Ceiling:    dec("450"),
					Multiplier: &engine.Multiplier{Factor: dec("150"), Base: engine.BaseArea},
					PerPeriod:  annualCap,
				},
			},
			{
				ID:          engine.RuleID(string(id) + "-acima-6-alq"),
				ProgramID:   id,
				Description: "producers above 6 alqueires: flat 450 kg maximum",
				Condition:   engine.GreaterThan(engine.AttrEffectiveArea, dec("6")),
				UnitValue:   dec("0.80"),
				Unit:        engine.UnitKilogram,
				Limit: &engine.Limit{
					Kind:       engine.LimitQuantity,
					Ceiling:    dec("450"),
					Multiplier: &engine.Multiplier{Factor: dec("450"), Base: engine.BaseFixed},
					PerPeriod:  annualCap,
				},
			},
		},
	}
}

// OrganicFertilizerProgram returns the fertilizer distribution program:
// 100 kg per alqueire up to 1000 kg, free of charge to the producer
// (R$1.20/kg borne by the municipality), once every two years. The biennial
// window is anchored at the producer's first granted request.
func OrganicFertilizerProgram(id engine.ProgramID) ProgramConfig {
	return ProgramConfig{
		Program: engine.Program{
			ID:           id,
			Name:         "Distribuição de Adubo Orgânico",
			LawReference: "Lei Municipal 2.017/2021",
			Type:         engine.ProgramMaterial,
			Active:       true,
		},
		Rules: []engine.Rule{
			{
				ID:          engine.RuleID(string(id) + "-padrao"),
				ProgramID:   id,
				Description: "100 kg of organic fertilizer per alqueire, biennial",
				Condition:   engine.GreaterThan(engine.AttrEffectiveArea, dec("0")),
				UnitValue:   dec("1.20"),
				Unit:        engine.UnitKilogram,
				Limit: &engine.Limit{
					Kind:       engine.LimitArea,
					Ceiling:    dec("1000"),
					Multiplier: &engine.Multiplier{Factor: dec("100"), Base: engine.BaseArea},
					PerPeriod:  &engine.PeriodCap{Period: engine.PeriodBiennial, Quantity: dec("1000")},
				},
			},
		},
	}
}

// TractorHoursProgram returns the subsidized machine-hours program: 2 hours
// per alqueire, at most 10 hours per month, valued at R$45 per hour.
func TractorHoursProgram(id engine.ProgramID) ProgramConfig {
	return ProgramConfig{
		Program: engine.Program{
			ID:           id,
			Name:         "Horas-Máquina Subsidiadas",
			LawReference: "Lei Municipal 1.955/2020",
			Type:         engine.ProgramService,
			Active:       true,
		},
		Rules: []engine.Rule{
			{
				ID:          engine.RuleID(string(id) + "-padrao"),
				ProgramID:   id,
				Description: "2 machine hours per alqueire, 10 hours per month",
				Condition:   engine.GreaterThan(engine.AttrEffectiveArea, dec("0")),
				UnitValue:   dec("45.00"),
				Unit:        engine.UnitHour,
				Limit: &engine.Limit{
					Kind:       engine.LimitArea,
					Ceiling:    dec("10"),
					Multiplier: &engine.Multiplier{Factor: dec("2"), Base: engine.BaseArea},
					PerPeriod:  &engine.PeriodCap{Period: engine.PeriodMonthly, Quantity: dec("10")},
				},
			},
		},
	}
}

// CalcareoProgram returns the soil correction lime program. It carries an
// eligibility gate: at least 80% of family income must come from agriculture
// (configured as entre [80, 100] so exactly 80% qualifies).
func CalcareoProgram(id engine.ProgramID) ProgramConfig {
	return ProgramConfig{
		Program: engine.Program{
			ID:           id,
			Name:         "Programa de Calcário",
			LawReference: "Lei Municipal 2.104/2022",
			Type:         engine.ProgramMaterial,
			Active:       true,
		},
		Rules: []engine.Rule{
			{
				ID:          engine.RuleID(string(id) + "-renda"),
				ProgramID:   id,
				Description: "family income at least 80% agricultural",
				Condition:   engine.Between(engine.AttrIncomeShare, dec("80"), dec("100")),
				// UnitValue zero: eligibility gate only.
			},
			{
				ID:          engine.RuleID(string(id) + "-padrao"),
				ProgramID:   id,
				Description: "500 kg of lime per alqueire, capped at 3 tons per year",
				Condition:   engine.GreaterThan(engine.AttrEffectiveArea, dec("0")),
				UnitValue:   dec("0.35"),
				Unit:        engine.UnitKilogram,
				Limit: &engine.Limit{
					Kind:       engine.LimitArea,
					Ceiling:    dec("3000"),
					Multiplier: &engine.Multiplier{Factor: dec("500"), Base: engine.BaseArea},
					PerPeriod:  &engine.PeriodCap{Period: engine.PeriodAnnual, Quantity: dec("3000")},
				},
			},
		},
	}
}

// DefaultCatalog returns every preset program under conventional IDs, used by
// the demo scenario seeding.
func DefaultCatalog() []ProgramConfig {
	return []ProgramConfig{
		GrainSeedProgram("sementes"),
		OrganicFertilizerProgram("adubo"),
		TractorHoursProgram("horas-maquina"),
		CalcareoProgram("calcario"),
	}
}
