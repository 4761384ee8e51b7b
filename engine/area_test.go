package engine_test

import (
	"context"
	"testing"

	"github.com/ruralis/benefit-engine/engine"
	"github.com/ruralis/benefit-engine/engine/store"
)

// =============================================================================
// FORMULA TESTS
// =============================================================================

func TestComputeEffectiveArea_Formula(t *testing.T) {
	// GIVEN: 10 owned, 4 leased in, 6 leased out
	// WHEN: Computing the effective area
	// THEN: 10 + 4 - 6 = 8

	got, err := engine.ComputeEffectiveArea(alq(10), alq(4), alq(6))
	if err != nil {
		t.Fatalf("ComputeEffectiveArea: %v", err)
	}
	if !got.Value.Equal(dec("8")) {
		t.Errorf("expected 8, got %s", got)
	}
}

func TestComputeEffectiveArea_NegativeResultIsLegal(t *testing.T) {
	// GIVEN: An intermediary ceding more than they own
	// WHEN: Computing the effective area
	// THEN: The negative result is returned, not floored

	got, err := engine.ComputeEffectiveArea(alq(2), alq(0), alq(5))
	if err != nil {
		t.Fatalf("ComputeEffectiveArea: %v", err)
	}
	if !got.Value.Equal(dec("-3")) {
		t.Errorf("expected -3, got %s", got)
	}
}

func TestComputeEffectiveArea_NegativeInputsAreRejected(t *testing.T) {
	// GIVEN: A negative input term
	// WHEN: Computing the effective area
	// THEN: Invalid input, never a silent computation

	if _, err := engine.ComputeEffectiveArea(alq(-1), alq(0), alq(0)); err == nil {
		t.Error("negative owned area should be rejected")
	}
	if _, err := engine.ComputeEffectiveArea(alq(1), alq(-1), alq(0)); err == nil {
		t.Error("negative leased-in area should be rejected")
	}
	if _, err := engine.ComputeEffectiveArea(alq(1), alq(0), alq(-1)); err == nil {
		t.Error("negative leased-out area should be rejected")
	}
}

// =============================================================================
// RECALCULATION TESTS
// =============================================================================

func TestAreaCalculator_RecalculateProjectsRegistryState(t *testing.T) {
	// GIVEN: João owns 10 alq and leases out 4+2 to two tenants in 2025
	// WHEN: Recalculating João's and Maria's snapshots
	// THEN: João: 10 + 0 - 6 = 4; Maria: 0 + 4 - 0 = 4

	ctx := context.Background()
	reg := store.NewMemory()

	if err := reg.SaveProperty(ctx, engine.Property{
		ID: "prop-1", OwnerID: "p-joao", Name: "Sítio", TotalArea: alq(10),
		Tenure: engine.TenureOwned, Rural: true,
	}); err != nil {
		t.Fatalf("SaveProperty: %v", err)
	}
	leases := []engine.Lease{
		{ID: "l-1", PropertyID: "prop-1", TenantID: "p-maria", AreaCeded: alq(4), AreaReceived: alq(4), Year: 2025},
		{ID: "l-2", PropertyID: "prop-1", TenantID: "p-carlos", AreaCeded: alq(2), AreaReceived: alq(2), Year: 2025},
	}
	for _, l := range leases {
		if err := reg.SaveLease(ctx, l); err != nil {
			t.Fatalf("SaveLease: %v", err)
		}
	}

	calc := &engine.AreaCalculator{Properties: reg, Leases: reg, Snapshots: reg}

	joao, err := calc.Recalculate(ctx, "p-joao", 2025)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if !joao.EffectiveArea.Value.Equal(dec("4")) {
		t.Errorf("expected João's effective area 4, got %s", joao.EffectiveArea)
	}
	if !joao.Consistent() {
		t.Error("snapshot violates effective = owned + in - out")
	}

	maria, err := calc.Recalculate(ctx, "p-maria", 2025)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if !maria.EffectiveArea.Value.Equal(dec("4")) {
		t.Errorf("expected Maria's effective area 4, got %s", maria.EffectiveArea)
	}
	if !maria.OwnedArea.IsZero() {
		t.Errorf("Maria owns nothing, got %s", maria.OwnedArea)
	}

	// The snapshot must be persisted and readable back.
	stored, err := reg.EffectiveArea(ctx, "p-joao", 2025)
	if err != nil {
		t.Fatalf("EffectiveArea: %v", err)
	}
	if stored == nil || stored.ID != joao.ID {
		t.Errorf("expected persisted snapshot %s, got %v", joao.ID, stored)
	}
}

func TestAreaCalculator_RecalculateIsRepeatable(t *testing.T) {
	// GIVEN: Unchanged registry state
	// WHEN: Recalculating twice
	// THEN: Identical snapshots, same deterministic ID

	ctx := context.Background()
	reg := store.NewMemory()
	if err := reg.SaveProperty(ctx, engine.Property{
		ID: "prop-1", OwnerID: "p-1", Name: "Sítio", TotalArea: alq(7),
		Tenure: engine.TenureOwned, Rural: true,
	}); err != nil {
		t.Fatalf("SaveProperty: %v", err)
	}

	calc := &engine.AreaCalculator{Properties: reg, Leases: reg, Snapshots: reg}
	first, err := calc.Recalculate(ctx, "p-1", 2025)
	if err != nil {
		t.Fatalf("first Recalculate: %v", err)
	}
	second, err := calc.Recalculate(ctx, "p-1", 2025)
	if err != nil {
		t.Fatalf("second Recalculate: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("snapshot ID changed between runs: %s vs %s", first.ID, second.ID)
	}
	if first.ID != "p-1-2025" {
		t.Errorf("expected deterministic person-year ID, got %s", first.ID)
	}
	if !first.EffectiveArea.Value.Equal(second.EffectiveArea.Value) {
		t.Error("effective area changed with unchanged inputs")
	}
}

func TestAreaCalculator_LeasesFromOtherYearsDoNotCount(t *testing.T) {
	// GIVEN: A 2024 lease on João's property
	// WHEN: Recalculating for 2025
	// THEN: The lease is ignored

	ctx := context.Background()
	reg := store.NewMemory()
	if err := reg.SaveProperty(ctx, engine.Property{
		ID: "prop-1", OwnerID: "p-1", Name: "Sítio", TotalArea: alq(10),
		Tenure: engine.TenureOwned, Rural: true,
	}); err != nil {
		t.Fatalf("SaveProperty: %v", err)
	}
	if err := reg.SaveLease(ctx, engine.Lease{
		ID: "l-old", PropertyID: "prop-1", TenantID: "p-2",
		AreaCeded: alq(4), AreaReceived: alq(4), Year: 2024,
	}); err != nil {
		t.Fatalf("SaveLease: %v", err)
	}

	calc := &engine.AreaCalculator{Properties: reg, Leases: reg, Snapshots: reg}
	snap, err := calc.Recalculate(ctx, "p-1", 2025)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if !snap.EffectiveArea.Value.Equal(dec("10")) {
		t.Errorf("expected 10 (2024 lease ignored), got %s", snap.EffectiveArea)
	}
}
