package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruralis/benefit-engine/engine"
	"github.com/ruralis/benefit-engine/engine/store"
	"github.com/ruralis/benefit-engine/programs"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return engine.MustParseDecimal(s) }

func alq(v float64) engine.Quantity { return engine.NewQuantity(v, engine.UnitAlqueire) }

func kg(v float64) engine.Quantity { return engine.NewQuantity(v, engine.UnitKilogram) }

func date(year int, month time.Month, day int) engine.Date {
	return engine.NewDate(year, month, day)
}

// newRegistry seeds a transactional memory registry with one active producer
// owning a single rural property of the given size.
func newRegistry(t *testing.T, personID engine.PersonID, ownedAlq float64) *store.TxMemory {
	t.Helper()
	ctx := context.Background()
	reg := store.NewTxMemory()

	if err := reg.SavePerson(ctx, engine.Person{
		ID: personID, Name: "Produtor Teste", Entity: engine.EntityIndividual, Active: true,
	}); err != nil {
		t.Fatalf("SavePerson: %v", err)
	}
	if ownedAlq > 0 {
		if err := reg.SaveProperty(ctx, engine.Property{
			ID:        engine.PropertyID(string(personID) + "-prop"),
			OwnerID:   personID,
			Name:      "Sítio Teste",
			TotalArea: alq(ownedAlq),
			Tenure:    engine.TenureOwned,
			Rural:     true,
		}); err != nil {
			t.Fatalf("SaveProperty: %v", err)
		}
	}
	return reg
}

func seedProgram(t *testing.T, reg *store.TxMemory, cfg programs.ProgramConfig) {
	t.Helper()
	if err := reg.SaveProgram(context.Background(), cfg.Program, cfg.Rules); err != nil {
		t.Fatalf("SaveProgram %s: %v", cfg.Program.ID, err)
	}
}

func approvedRequest(id string, personID engine.PersonID, programID engine.ProgramID, qty engine.Quantity, at engine.Date) *engine.BenefitRequest {
	return &engine.BenefitRequest{
		ID:              engine.RequestID(id),
		PersonID:        personID,
		ProgramID:       programID,
		GrantedQuantity: &qty,
		Status:          engine.StatusApproved,
		EffectiveAt:     at,
	}
}

// =============================================================================
// TIER SCHEDULE TESTS - Grain/oats seed subsidy
// =============================================================================

func TestEvaluate_SeedSubsidy_SmallProducerCappedAtCeiling(t *testing.T) {
	// GIVEN: Producer with 5 alqueires effective area
	// WHEN: Evaluating the seed subsidy (150 kg/alq, ceiling 450 kg, R$0.80/kg)
	// THEN: min(5*150, 450) = 450 kg, worth R$360.00

	reg := newRegistry(t, "prod-1", 5)
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	evaluator := engine.NewEvaluator(reg)

	result, err := evaluator.Evaluate(context.Background(), engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "sementes",
		EvaluationDate: date(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if !result.Matched || !result.Allowed {
		t.Fatalf("expected granted result, got matched=%v allowed=%v (%s)", result.Matched, result.Allowed, result.Message)
	}
	if result.RuleID != "sementes-ate-6-alq" {
		t.Errorf("expected small-producer tier, got rule %s", result.RuleID)
	}
	if !result.Quantity.Value.Equal(dec("450")) {
		t.Errorf("expected 450 kg, got %s", result.Quantity)
	}
	if !result.Value.Equal(dec("360")) {
		t.Errorf("expected R$360, got %s", result.Value)
	}
}

func TestEvaluate_SeedSubsidy_ExactlySixAlqueiresLandsInFirstTier(t *testing.T) {
	// GIVEN: Producer with exactly 6 alqueires
	// WHEN: Evaluating the seed subsidy
	// THEN: The inclusive entre [0,6] tier applies, not the maior_que 6 tier

	reg := newRegistry(t, "prod-6", 6)
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	evaluator := engine.NewEvaluator(reg)

	result, err := evaluator.Evaluate(context.Background(), engine.EvaluationInput{
		PersonID:       "prod-6",
		ProgramID:      "sementes",
		EvaluationDate: date(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.RuleID != "sementes-ate-6-alq" {
		t.Errorf("expected first tier at the boundary, got rule %s", result.RuleID)
	}
}

func TestEvaluate_SeedSubsidy_LargeProducerGetsFlatMaximum(t *testing.T) {
	// GIVEN: Producer with 20 alqueires
	// WHEN: Evaluating the seed subsidy
	// THEN: The maior_que 6 tier grants the flat 450 kg

	reg := newRegistry(t, "prod-20", 20)
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	evaluator := engine.NewEvaluator(reg)

	result, err := evaluator.Evaluate(context.Background(), engine.EvaluationInput{
		PersonID:       "prod-20",
		ProgramID:      "sementes",
		EvaluationDate: date(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.RuleID != "sementes-acima-6-alq" {
		t.Errorf("expected large-producer tier, got rule %s", result.RuleID)
	}
	if !result.Quantity.Value.Equal(dec("450")) {
		t.Errorf("expected flat 450 kg, got %s", result.Quantity)
	}
}

func TestEvaluate_RequestedQuantityBelowMaximumIsHonored(t *testing.T) {
	// GIVEN: Producer entitled to 450 kg
	// WHEN: Requesting only 100 kg
	// THEN: 100 kg is granted at R$0.80/kg = R$80

	reg := newRegistry(t, "prod-1", 5)
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	evaluator := engine.NewEvaluator(reg)

	requested := dec("100")
	result, err := evaluator.Evaluate(context.Background(), engine.EvaluationInput{
		PersonID:          "prod-1",
		ProgramID:         "sementes",
		RequestedQuantity: &requested,
		EvaluationDate:    date(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.Quantity.Value.Equal(dec("100")) {
		t.Errorf("expected 100 kg, got %s", result.Quantity)
	}
	if !result.Value.Equal(dec("80")) {
		t.Errorf("expected R$80, got %s", result.Value)
	}
}

// =============================================================================
// ELIGIBILITY TESTS
// =============================================================================

func TestEvaluate_InactiveProducerIsNotApplicable(t *testing.T) {
	// GIVEN: An inactive producer registration
	// WHEN: Evaluating any program
	// THEN: Not applicable, no error

	ctx := context.Background()
	reg := store.NewTxMemory()
	if err := reg.SavePerson(ctx, engine.Person{
		ID: "prod-x", Name: "Inativo", Entity: engine.EntityIndividual, Active: false,
	}); err != nil {
		t.Fatalf("SavePerson: %v", err)
	}
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	evaluator := engine.NewEvaluator(reg)

	result, err := evaluator.Evaluate(ctx, engine.EvaluationInput{
		PersonID:       "prod-x",
		ProgramID:      "sementes",
		EvaluationDate: date(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Matched || result.Allowed {
		t.Errorf("expected not applicable, got %+v", result)
	}
}

func TestEvaluate_UnknownPersonIsAnError(t *testing.T) {
	// GIVEN: No such producer
	// WHEN: Evaluating
	// THEN: ErrPersonNotFound

	reg := store.NewTxMemory()
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	evaluator := engine.NewEvaluator(reg)

	_, err := evaluator.Evaluate(context.Background(), engine.EvaluationInput{
		PersonID:       "ghost",
		ProgramID:      "sementes",
		EvaluationDate: date(2025, time.June, 1),
	})
	if !engine.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestEvaluate_IncomeGateBlocksBelowThreshold(t *testing.T) {
	// GIVEN: The lime program requires >= 80% agricultural income
	// WHEN: A producer with 70% income share applies
	// THEN: Not applicable; at exactly 80% the gate passes

	reg := newRegistry(t, "prod-1", 4)
	seedProgram(t, reg, programs.CalcareoProgram("calcario"))
	evaluator := engine.NewEvaluator(reg)

	attrs := engine.NewAttributes()
	attrs.SetNumber(engine.AttrIncomeShare, dec("70"))

	result, err := evaluator.Evaluate(context.Background(), engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "calcario",
		EvaluationDate: date(2025, time.June, 1),
		Attributes:     attrs,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Matched {
		t.Errorf("expected gate to block at 70%%, got %+v", result)
	}

	attrs = engine.NewAttributes()
	attrs.SetNumber(engine.AttrIncomeShare, dec("80"))
	result, err = evaluator.Evaluate(context.Background(), engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "calcario",
		EvaluationDate: date(2025, time.June, 1),
		Attributes:     attrs,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.Matched || !result.Allowed {
		t.Errorf("expected gate to pass at exactly 80%%, got %s", result.Message)
	}
	// 4 alq * 500 kg = 2000 kg, under the 3000 kg ceiling
	if !result.Quantity.Value.Equal(dec("2000")) {
		t.Errorf("expected 2000 kg of lime, got %s", result.Quantity)
	}
}

func TestEvaluate_GateRequiresAttributeToBePresent(t *testing.T) {
	// GIVEN: The lime program's income gate
	// WHEN: Evaluating without the income attribute
	// THEN: MissingAttributeError, not a silent false

	reg := newRegistry(t, "prod-1", 4)
	seedProgram(t, reg, programs.CalcareoProgram("calcario"))
	evaluator := engine.NewEvaluator(reg)

	_, err := evaluator.Evaluate(context.Background(), engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "calcario",
		EvaluationDate: date(2025, time.June, 1),
	})
	var missing *engine.MissingAttributeError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingAttributeError, got %v", err)
	}
	if missing.Attribute != engine.AttrIncomeShare {
		t.Errorf("expected missing %s, got %s", engine.AttrIncomeShare, missing.Attribute)
	}
}

// =============================================================================
// PERIOD QUOTA TESTS
// =============================================================================

func TestEvaluate_AnnualQuotaExhaustedReportsNextEligible(t *testing.T) {
	// GIVEN: Producer already granted the full 450 kg this year
	// WHEN: Evaluating again in the same year
	// THEN: Not allowed, next eligible January 1st of next year

	ctx := context.Background()
	reg := newRegistry(t, "prod-1", 5)
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	if err := reg.SaveRequest(ctx, approvedRequest("req-1", "prod-1", "sementes", kg(450), date(2025, time.March, 1))); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}
	evaluator := engine.NewEvaluator(reg)

	result, err := evaluator.Evaluate(ctx, engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "sementes",
		EvaluationDate: date(2025, time.August, 1),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Allowed {
		t.Fatalf("expected exhausted quota, got allowed (%s)", result.Message)
	}
	if !result.Quantity.IsZero() {
		t.Errorf("expected zero quantity, got %s", result.Quantity)
	}
	if result.NextEligible == nil {
		t.Fatal("expected NextEligible to be set")
	}
	if got := result.NextEligible.String(); got != "2026-01-01" {
		t.Errorf("expected next eligible 2026-01-01, got %s", got)
	}
}

func TestEvaluate_PartialConsumptionClampsTheGrant(t *testing.T) {
	// GIVEN: 300 of 450 kg already consumed this year
	// WHEN: Evaluating for the maximum
	// THEN: Grant clamped to the remaining 150 kg with a warning

	ctx := context.Background()
	reg := newRegistry(t, "prod-1", 5)
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	if err := reg.SaveRequest(ctx, approvedRequest("req-1", "prod-1", "sementes", kg(300), date(2025, time.March, 1))); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}
	evaluator := engine.NewEvaluator(reg)

	result, err := evaluator.Evaluate(ctx, engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "sementes",
		EvaluationDate: date(2025, time.August, 1),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected partial grant, got %s", result.Message)
	}
	if !result.Quantity.Value.Equal(dec("150")) {
		t.Errorf("expected 150 kg remaining, got %s", result.Quantity)
	}
	if !result.Value.Equal(dec("120")) {
		t.Errorf("expected R$120, got %s", result.Value)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a clamping warning")
	}
}

func TestEvaluate_QuotaResetsInTheNextYear(t *testing.T) {
	// GIVEN: Quota fully consumed in 2025
	// WHEN: Evaluating in 2026
	// THEN: Fresh quota, full grant

	ctx := context.Background()
	reg := newRegistry(t, "prod-1", 5)
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	if err := reg.SaveRequest(ctx, approvedRequest("req-1", "prod-1", "sementes", kg(450), date(2025, time.March, 1))); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}
	evaluator := engine.NewEvaluator(reg)

	result, err := evaluator.Evaluate(ctx, engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "sementes",
		EvaluationDate: date(2026, time.February, 1),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.Allowed || !result.Quantity.Value.Equal(dec("450")) {
		t.Errorf("expected fresh 450 kg in 2026, got allowed=%v qty=%s", result.Allowed, result.Quantity)
	}
}

func TestEvaluate_BiennialWindowAnchorsAtFirstGrant(t *testing.T) {
	// GIVEN: Fertilizer (biennial) granted in full on 2023-03-10
	// WHEN: Evaluating in February 2025 and again in April 2025
	// THEN: February is still inside the anchored window (blocked, next
	//       eligible 2025-03-10); April falls in the fresh window (allowed)

	ctx := context.Background()
	reg := newRegistry(t, "prod-1", 5)
	seedProgram(t, reg, programs.OrganicFertilizerProgram("adubo"))
	if err := reg.SaveRequest(ctx, approvedRequest("req-1", "prod-1", "adubo", kg(1000), date(2023, time.March, 10))); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}
	evaluator := engine.NewEvaluator(reg)

	blocked, err := evaluator.Evaluate(ctx, engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "adubo",
		EvaluationDate: date(2025, time.February, 1),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if blocked.Allowed {
		t.Fatalf("expected biennial quota still held in Feb 2025, got allowed")
	}
	if blocked.NextEligible == nil || blocked.NextEligible.String() != "2025-03-10" {
		t.Errorf("expected next eligible 2025-03-10, got %v", blocked.NextEligible)
	}

	allowed, err := evaluator.Evaluate(ctx, engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "adubo",
		EvaluationDate: date(2025, time.April, 1),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !allowed.Allowed {
		t.Errorf("expected fresh biennial window in April 2025, got %s", allowed.Message)
	}
	// 5 alq * 100 kg = 500 kg
	if !allowed.Quantity.Value.Equal(dec("500")) {
		t.Errorf("expected 500 kg, got %s", allowed.Quantity)
	}
}

// =============================================================================
// TENANT APPORTIONMENT TESTS
// =============================================================================

func TestEvaluate_TenantCeilingIsApportionedByLeasedShare(t *testing.T) {
	// GIVEN: João owns 10 alq; Maria leases 4 alq for 2025
	//        Fertilizer: 100 kg/alq, ceiling 1000 kg
	// WHEN: Maria applies
	// THEN: João's full limit is min(10*100, 1000) = 1000 kg;
	//       Maria's share is 4/10 * 1000 = 400 kg

	ctx := context.Background()
	reg := store.NewTxMemory()
	for _, p := range []engine.Person{
		{ID: "p-joao", Name: "João", Entity: engine.EntityIndividual, Active: true},
		{ID: "p-maria", Name: "Maria", Entity: engine.EntityIndividual, Active: true},
	} {
		if err := reg.SavePerson(ctx, p); err != nil {
			t.Fatalf("SavePerson: %v", err)
		}
	}
	if err := reg.SaveProperty(ctx, engine.Property{
		ID: "prop-1", OwnerID: "p-joao", Name: "Sítio", TotalArea: alq(10),
		Tenure: engine.TenureOwned, Rural: true,
	}); err != nil {
		t.Fatalf("SaveProperty: %v", err)
	}
	if err := reg.SaveLease(ctx, engine.Lease{
		ID: "lease-1", PropertyID: "prop-1", TenantID: "p-maria",
		AreaCeded: alq(4), AreaReceived: alq(4), Year: 2025,
	}); err != nil {
		t.Fatalf("SaveLease: %v", err)
	}
	seedProgram(t, reg, programs.OrganicFertilizerProgram("adubo"))
	evaluator := engine.NewEvaluator(reg)

	result, err := evaluator.Evaluate(ctx, engine.EvaluationInput{
		PersonID:       "p-maria",
		ProgramID:      "adubo",
		EvaluationDate: date(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected grant, got %s", result.Message)
	}
	if !result.Quantity.Value.Equal(dec("400")) {
		t.Errorf("expected apportioned 400 kg, got %s", result.Quantity)
	}
	if result.Details.Apportionment == nil {
		t.Fatal("expected apportionment breakdown in details")
	}
	if !result.Details.Apportionment.Total.Equal(dec("400")) {
		t.Errorf("expected apportionment total 400, got %s", result.Details.Apportionment.Total)
	}

	// The landowner keeps the entitlement on his remaining 6 alq.
	owner, err := evaluator.Evaluate(ctx, engine.EvaluationInput{
		PersonID:       "p-joao",
		ProgramID:      "adubo",
		EvaluationDate: date(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("Evaluate owner: %v", err)
	}
	// effective = 10 - 4 = 6 alq -> 600 kg
	if !owner.Quantity.Value.Equal(dec("600")) {
		t.Errorf("expected owner 600 kg, got %s", owner.Quantity)
	}
}

// =============================================================================
// EVALUATE AND RESERVE TESTS
// =============================================================================

func TestEvaluateAndReserve_RecordsPendingRequest(t *testing.T) {
	// GIVEN: A producer entitled to 450 kg
	// WHEN: Evaluating with reservation
	// THEN: A pending request holding the quota is recorded

	ctx := context.Background()
	reg := newRegistry(t, "prod-1", 5)
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	evaluator := engine.NewEvaluator(reg)

	result, request, err := evaluator.EvaluateAndReserve(ctx, engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "sementes",
		EvaluationDate: date(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("EvaluateAndReserve: %v", err)
	}
	if request == nil {
		t.Fatal("expected a recorded request")
	}
	if request.Status != engine.StatusPending {
		t.Errorf("expected pending status, got %s", request.Status)
	}
	if request.GrantedQuantity == nil || !request.GrantedQuantity.Value.Equal(result.Quantity.Value) {
		t.Errorf("request quantity %v does not match result %s", request.GrantedQuantity, result.Quantity)
	}
}

func TestEvaluateAndReserve_ReservationHoldsQuotaAgainstSecondReserve(t *testing.T) {
	// GIVEN: A first reservation holding the full annual quota
	// WHEN: A second evaluate-and-reserve runs in the same window
	// THEN: The second is refused even though nothing is approved yet

	ctx := context.Background()
	reg := newRegistry(t, "prod-1", 5)
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	evaluator := engine.NewEvaluator(reg)

	first, _, err := evaluator.EvaluateAndReserve(ctx, engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "sementes",
		EvaluationDate: date(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if !first.Allowed {
		t.Fatalf("first reserve should be granted, got %s", first.Message)
	}

	second, request, err := evaluator.EvaluateAndReserve(ctx, engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "sementes",
		EvaluationDate: date(2025, time.July, 1),
	})
	if err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	if second.Allowed {
		t.Error("second reserve should be refused while the first holds the quota")
	}
	if request != nil {
		t.Errorf("no request should be recorded for a refused reserve, got %v", request.ID)
	}
}

func TestEvaluateAndReserve_PlainReadIgnoresReservations(t *testing.T) {
	// GIVEN: A pending reservation holding the full quota
	// WHEN: A plain Evaluate runs
	// THEN: The read-only path reports the quota as still available, since
	//       nothing has been approved

	ctx := context.Background()
	reg := newRegistry(t, "prod-1", 5)
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	evaluator := engine.NewEvaluator(reg)

	if _, _, err := evaluator.EvaluateAndReserve(ctx, engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "sementes",
		EvaluationDate: date(2025, time.June, 1),
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	result, err := evaluator.Evaluate(ctx, engine.EvaluationInput{
		PersonID:       "prod-1",
		ProgramID:      "sementes",
		EvaluationDate: date(2025, time.July, 1),
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !result.Allowed {
		t.Errorf("plain read should not count reservations, got %s", result.Message)
	}
}

// =============================================================================
// PERIOD LIMIT CHECK TESTS
// =============================================================================

func TestCheckPeriodLimit_ReportsRemainingQuota(t *testing.T) {
	// GIVEN: 300 of 450 kg consumed this year
	// WHEN: Checking the period limit
	// THEN: Allowed with 150 kg remaining

	ctx := context.Background()
	reg := newRegistry(t, "prod-1", 5)
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	if err := reg.SaveRequest(ctx, approvedRequest("req-1", "prod-1", "sementes", kg(300), date(2025, time.March, 1))); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}
	evaluator := engine.NewEvaluator(reg)

	status, err := evaluator.CheckPeriodLimit(ctx, "prod-1", "sementes", date(2025, time.August, 1))
	if err != nil {
		t.Fatalf("CheckPeriodLimit: %v", err)
	}
	if !status.Allowed {
		t.Fatalf("expected allowed, got %s", status.Message)
	}
	if !status.Remaining.Value.Equal(dec("150")) {
		t.Errorf("expected 150 kg remaining, got %s", status.Remaining)
	}
	if !status.Consumed.Value.Equal(dec("300")) {
		t.Errorf("expected 300 kg consumed, got %s", status.Consumed)
	}
}

func TestCheckPeriodLimit_ExhaustedQuotaNamesNextWindow(t *testing.T) {
	// GIVEN: The full quota consumed
	// WHEN: Checking the period limit
	// THEN: Refused with the next window's start date

	ctx := context.Background()
	reg := newRegistry(t, "prod-1", 5)
	seedProgram(t, reg, programs.GrainSeedProgram("sementes"))
	if err := reg.SaveRequest(ctx, approvedRequest("req-1", "prod-1", "sementes", kg(450), date(2025, time.March, 1))); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}
	evaluator := engine.NewEvaluator(reg)

	status, err := evaluator.CheckPeriodLimit(ctx, "prod-1", "sementes", date(2025, time.August, 1))
	if err != nil {
		t.Fatalf("CheckPeriodLimit: %v", err)
	}
	if status.Allowed {
		t.Fatal("expected refused")
	}
	if status.NextEligible == nil || status.NextEligible.String() != "2026-01-01" {
		t.Errorf("expected next eligible 2026-01-01, got %v", status.NextEligible)
	}
}
