/*
evaluate.go - Request evaluation entry points

PURPOSE:
  Orchestrates one benefit evaluation end to end:

    1. Resolve program + rules; inactive programs short-circuit.
    2. Fill the attribute bag with the effective-area projection when the
       caller did not supply it.
    3. All eligibility gates (zero-value rules) must pass.
    4. The first matching monetary rule is selected; extra matches produce
       a warning, never a second benefit.
    5. For area-limited rules where the producer leases land in, the
       proportional apportioner supplies the ceiling in place of the
       landowner's full entitlement.
    6. The period consumption ledger reduces the grant by what the window
       already consumed; an exhausted cap flips the result to not-allowed
       with the next eligible date.

  Evaluate is a read: it computes and reports. EvaluateAndReserve runs the
  same computation inside one store transaction and records the pending
  request, counting existing reservations so two concurrent evaluations
  cannot jointly overrun a quota.

DETERMINISM:
  The evaluation date is an input. Identical registry state + input yields
  an identical result.
*/
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// EVALUATOR
// =============================================================================

type Evaluator struct {
	Registry Registry
}

func NewEvaluator(registry Registry) *Evaluator {
	return &Evaluator{Registry: registry}
}

// EvaluationInput carries everything one evaluation depends on. The date is
// explicit so period windows never depend on the wall clock.
type EvaluationInput struct {
	PersonID  PersonID
	ProgramID ProgramID

	// RequestedQuantity is optional; absent means "claim the maximum".
	RequestedQuantity *decimal.Decimal

	EvaluationDate Date

	// Attributes supplements or overrides the derived producer attributes.
	Attributes *Attributes
}

// Evaluate computes eligibility and value without reserving anything.
func (e *Evaluator) Evaluate(ctx context.Context, in EvaluationInput) (*CalculationResult, error) {
	return e.evaluate(ctx, e.Registry, in, false)
}

// EvaluateAndReserve evaluates inside one store transaction and, when the
// benefit is granted, records the pending request in the same transaction.
// Reservations already holding quota count against the cap here, which
// closes the check-then-act race between concurrent evaluations.
func (e *Evaluator) EvaluateAndReserve(ctx context.Context, in EvaluationInput) (*CalculationResult, *BenefitRequest, error) {
	txreg, ok := e.Registry.(TxRegistry)
	if !ok {
		return nil, nil, ErrTxStoreRequired
	}

	var (
		result  *CalculationResult
		request *BenefitRequest
	)
	err := txreg.WithTx(ctx, func(reg Registry) error {
		var err error
		result, err = e.evaluate(ctx, reg, in, true)
		if err != nil {
			return err
		}
		if !result.Matched || !result.Allowed {
			return nil
		}

		granted := result.Quantity
		request = &BenefitRequest{
			ID:              RequestID(uuid.NewString()),
			PersonID:        in.PersonID,
			ProgramID:       in.ProgramID,
			RuleID:          result.RuleID,
			GrantedQuantity: &granted,
			GrantedValue:    result.Value,
			Status:          StatusPending,
			EffectiveAt:     in.EvaluationDate,
		}
		if in.RequestedQuantity != nil {
			rq := Quantity{Value: *in.RequestedQuantity, Unit: granted.Unit}
			request.RequestedQuantity = &rq
		}
		return reg.SaveRequest(ctx, request)
	})
	if err != nil {
		return nil, nil, err
	}
	return result, request, nil
}

func (e *Evaluator) evaluate(ctx context.Context, reg Registry, in EvaluationInput, includeReserved bool) (*CalculationResult, error) {
	if in.EvaluationDate.IsZero() {
		return nil, &InvalidInputError{Field: "evaluation_date", Reason: "is required"}
	}

	person, err := reg.Person(ctx, in.PersonID)
	if err != nil {
		return nil, err
	}
	if person == nil {
		return nil, fmt.Errorf("person %s: %w", in.PersonID, ErrPersonNotFound)
	}
	if !person.Active {
		return notApplicable("producer registration is inactive"), nil
	}

	program, err := reg.Program(ctx, in.ProgramID)
	if err != nil {
		return nil, err
	}
	if program == nil {
		return nil, fmt.Errorf("program %s: %w", in.ProgramID, ErrProgramNotFound)
	}
	if !program.Active {
		return notApplicable("program is not active"), nil
	}

	rules, err := reg.RulesByProgram(ctx, in.ProgramID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return notApplicable("program has no rules configured"), nil
	}

	attrs, snapshot, err := e.resolveAttributes(ctx, reg, in)
	if err != nil {
		return nil, err
	}

	// Eligibility gates all have to pass before any monetary rule counts.
	for _, rule := range rules {
		if !rule.IsGate() {
			continue
		}
		ok, err := rule.Condition.MatchesFor(rule.ID, attrs)
		if err != nil {
			return nil, err
		}
		if !ok {
			return notApplicable("eligibility requirement not met: " + rule.Description), nil
		}
	}

	var matched []Rule
	for _, rule := range rules {
		if rule.IsGate() {
			continue
		}
		ok, err := rule.Condition.MatchesFor(rule.ID, attrs)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, rule)
		}
	}
	if len(matched) == 0 {
		return notApplicable("no rule of this program applies to the producer"), nil
	}
	rule := matched[0]

	var requested *Quantity
	if in.RequestedQuantity != nil {
		requested = &Quantity{Value: *in.RequestedQuantity, Unit: rule.Unit}
	}

	capOverride, apportionment, err := e.tenantCeiling(ctx, reg, in, rule, snapshot)
	if err != nil {
		return nil, err
	}

	result, err := computeRule(rule, attrs, requested, capOverride)
	if err != nil {
		return nil, err
	}
	result.Details.Apportionment = apportionment
	if len(matched) > 1 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d rules matched; rule %s was applied", len(matched), rule.ID))
	}

	if rule.Limit != nil && rule.Limit.PerPeriod != nil {
		if err := e.applyPeriodCap(ctx, reg, in, rule, result, includeReserved); err != nil {
			return nil, err
		}
	}

	if result.Allowed && result.Message == "" {
		result.Message = fmt.Sprintf("benefit granted: %s at %s R$/%s = R$ %s",
			result.Quantity, rule.UnitValue, rule.Unit, result.Value.StringFixed(2))
	}
	return result, nil
}

// resolveAttributes merges caller-supplied attributes with the effective-area
// projection. The snapshot store is consulted first; a missing snapshot is
// recomputed on the fly (without persisting).
func (e *Evaluator) resolveAttributes(ctx context.Context, reg Registry, in EvaluationInput) (*Attributes, *EffectiveAreaSnapshot, error) {
	attrs := in.Attributes
	if attrs == nil {
		attrs = NewAttributes()
	}

	year := in.EvaluationDate.Year()
	snapshot, err := reg.EffectiveArea(ctx, in.PersonID, year)
	if err != nil {
		return nil, nil, err
	}
	if snapshot == nil {
		calc := &AreaCalculator{Properties: reg, Leases: reg}
		snapshot, err = calc.Recalculate(ctx, in.PersonID, year)
		if err != nil {
			return nil, nil, err
		}
	}

	if !attrs.HasNumber(AttrEffectiveArea) {
		attrs.SetNumber(AttrEffectiveArea, snapshot.EffectiveArea.Value)
	}
	if !attrs.HasNumber(AttrOwnedArea) {
		attrs.SetNumber(AttrOwnedArea, snapshot.OwnedArea.Value)
	}
	return attrs, snapshot, nil
}

// tenantCeiling replaces the area multiplier with the apportioned limit when
// the rule is area-limited and the producer leases land in. The producer's
// own usable land (owned minus ceded) still earns the full per-area rate.
func (e *Evaluator) tenantCeiling(
	ctx context.Context,
	reg Registry,
	in EvaluationInput,
	rule Rule,
	snapshot *EffectiveAreaSnapshot,
) (*decimal.Decimal, *TenantApportionment, error) {
	if !rule.AreaLimited() || rule.Limit.Multiplier == nil || rule.Limit.Multiplier.Base != BaseArea {
		return nil, nil, nil
	}

	year := in.EvaluationDate.Year()
	leases, err := reg.LeasesByTenant(ctx, in.PersonID, year)
	if err != nil {
		return nil, nil, err
	}
	if len(leases) == 0 {
		return nil, nil, nil // landowner path: full entitlement applies
	}

	factor := rule.Limit.Multiplier.Factor
	ceiling := rule.Limit.Ceiling

	apportioner := &Apportioner{Properties: reg, Leases: reg}
	apportionment, err := apportioner.ForTenant(ctx, in.PersonID, year, func(p Property) decimal.Decimal {
		full := factor.Mul(p.TotalArea.Value)
		if ceiling.IsPositive() && full.GreaterThan(ceiling) {
			full = ceiling
		}
		return full
	})
	if err != nil {
		return nil, nil, err
	}

	cap := apportionment.Total
	if snapshot != nil {
		own := snapshot.OwnedArea.Sub(snapshot.LeasedOutArea)
		if own.IsPositive() {
			cap = cap.Add(factor.Mul(own.Value))
		}
	}
	return &cap, apportionment, nil
}

// applyPeriodCap reduces the grant by prior window consumption and flips the
// result to not-allowed when the quota is exhausted.
func (e *Evaluator) applyPeriodCap(
	ctx context.Context,
	reg Registry,
	in EvaluationInput,
	rule Rule,
	result *CalculationResult,
	includeReserved bool,
) error {
	cap := *rule.Limit.PerPeriod
	ledger := &ConsumptionLedger{Requests: reg}

	window, err := ledger.ResolveWindow(ctx, in.PersonID, in.ProgramID, cap, in.EvaluationDate)
	if err != nil {
		return err
	}
	consumption, err := ledger.Consumption(ctx, in.PersonID, in.ProgramID, window, rule.Unit)
	if err != nil {
		return err
	}

	used := consumption.Consumed
	if includeReserved {
		used = used.Add(consumption.Reserved)
	}
	remaining := Quantity{Value: cap.Quantity.Sub(used.Value), Unit: rule.Unit}

	result.Details.Window = &window
	result.Details.PriorConsumption = &used
	result.Details.RemainingQuota = &remaining

	if !remaining.IsPositive() {
		next := NextWindow(cap.Period, window).Start
		result.Allowed = false
		result.Quantity = result.Quantity.Zero()
		result.Value = decimal.Zero
		result.NextEligible = &next
		result.Message = fmt.Sprintf("period quota exhausted; next eligible on %s", next)
		return nil
	}

	if result.Quantity.GreaterThan(remaining) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("grant reduced to the remaining period quota of %s", remaining))
		result.Quantity = remaining
		result.Value = remaining.Value.Mul(rule.UnitValue)
	}
	return nil
}

// =============================================================================
// PERIOD LIMIT CHECK - Standalone quota lookup
// =============================================================================

// PeriodLimitStatus answers "can this producer draw from this program right
// now?" without computing a value.
type PeriodLimitStatus struct {
	Allowed      bool
	Message      string
	NextEligible *Date
	Window       *Window
	Consumed     Quantity
	Remaining    Quantity
}

// CheckPeriodLimit inspects the program's period cap for a producer at a
// reference date. Programs without a per-period cap always report allowed.
func (e *Evaluator) CheckPeriodLimit(ctx context.Context, personID PersonID, programID ProgramID, ref Date) (*PeriodLimitStatus, error) {
	rules, err := e.Registry.RulesByProgram(ctx, programID)
	if err != nil {
		return nil, err
	}

	var capped *Rule
	for i := range rules {
		r := rules[i]
		if !r.IsGate() && r.Limit != nil && r.Limit.PerPeriod != nil {
			capped = &r
			break
		}
	}
	if capped == nil {
		return &PeriodLimitStatus{Allowed: true, Message: "program has no period cap"}, nil
	}

	cap := *capped.Limit.PerPeriod
	ledger := &ConsumptionLedger{Requests: e.Registry}

	window, err := ledger.ResolveWindow(ctx, personID, programID, cap, ref)
	if err != nil {
		return nil, err
	}
	consumption, err := ledger.Consumption(ctx, personID, programID, window, capped.Unit)
	if err != nil {
		return nil, err
	}

	remaining := Quantity{Value: cap.Quantity.Sub(consumption.Consumed.Value), Unit: capped.Unit}
	status := &PeriodLimitStatus{
		Window:    &window,
		Consumed:  consumption.Consumed,
		Remaining: remaining,
	}
	if remaining.IsPositive() {
		status.Allowed = true
		status.Message = fmt.Sprintf("%s of period quota remaining", remaining)
	} else {
		next := NextWindow(cap.Period, window).Start
		status.NextEligible = &next
		status.Message = fmt.Sprintf("period quota exhausted; next eligible on %s", next)
	}
	return status, nil
}
