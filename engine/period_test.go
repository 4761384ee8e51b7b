package engine_test

import (
	"testing"
	"time"

	"github.com/ruralis/benefit-engine/engine"
)

// =============================================================================
// WINDOW RESOLUTION TESTS
// =============================================================================

func TestWindowFor_AnnualIsTheCalendarYear(t *testing.T) {
	w, err := engine.WindowFor(engine.PeriodAnnual, date(2025, time.August, 15), nil)
	if err != nil {
		t.Fatalf("WindowFor: %v", err)
	}
	if w.Start.String() != "2025-01-01" || w.End.String() != "2025-12-31" {
		t.Errorf("expected [2025-01-01, 2025-12-31], got %s", w)
	}
}

func TestWindowFor_MonthlyIsTheCalendarMonth(t *testing.T) {
	// February of a leap year must end on the 29th.
	w, err := engine.WindowFor(engine.PeriodMonthly, date(2024, time.February, 10), nil)
	if err != nil {
		t.Fatalf("WindowFor: %v", err)
	}
	if w.Start.String() != "2024-02-01" || w.End.String() != "2024-02-29" {
		t.Errorf("expected [2024-02-01, 2024-02-29], got %s", w)
	}
}

func TestWindowFor_BiennialAnchorsAtTheFirstGrant(t *testing.T) {
	// GIVEN: First grant on 2023-03-10
	// WHEN: Resolving biennial windows at various reference dates
	// THEN: Windows roll forward in 2-year steps from the anchor, never
	//       calendar-aligned

	anchor := date(2023, time.March, 10)

	// Inside the first window.
	w, err := engine.WindowFor(engine.PeriodBiennial, date(2025, time.February, 1), &anchor)
	if err != nil {
		t.Fatalf("WindowFor: %v", err)
	}
	if w.Start.String() != "2023-03-10" || w.End.String() != "2025-03-09" {
		t.Errorf("expected [2023-03-10, 2025-03-09], got %s", w)
	}

	// Two years after the anchor a fresh window opens on the anchor's day.
	w, err = engine.WindowFor(engine.PeriodBiennial, date(2025, time.March, 10), &anchor)
	if err != nil {
		t.Fatalf("WindowFor: %v", err)
	}
	if w.Start.String() != "2025-03-10" || w.End.String() != "2027-03-09" {
		t.Errorf("expected [2025-03-10, 2027-03-09], got %s", w)
	}
}

func TestWindowFor_BiennialWithoutAnchorStartsAtTheReference(t *testing.T) {
	// A producer with no grant history starts their biennial clock now.
	ref := date(2025, time.June, 1)
	w, err := engine.WindowFor(engine.PeriodBiennial, ref, nil)
	if err != nil {
		t.Fatalf("WindowFor: %v", err)
	}
	if w.Start.String() != "2025-06-01" || w.End.String() != "2027-05-31" {
		t.Errorf("expected [2025-06-01, 2027-05-31], got %s", w)
	}
}

func TestWindowFor_UnknownKindIsRejected(t *testing.T) {
	if _, err := engine.WindowFor("semestral", date(2025, time.June, 1), nil); err == nil {
		t.Error("unknown period kind should be rejected")
	}
}

// =============================================================================
// NEXT WINDOW TESTS
// =============================================================================

func TestNextWindow_RollsForwardPerKind(t *testing.T) {
	annual := engine.Window{Start: date(2025, time.January, 1), End: date(2025, time.December, 31)}
	next := engine.NextWindow(engine.PeriodAnnual, annual)
	if next.Start.String() != "2026-01-01" {
		t.Errorf("annual: expected 2026-01-01, got %s", next.Start)
	}

	monthly := engine.Window{Start: date(2025, time.December, 1), End: date(2025, time.December, 31)}
	next = engine.NextWindow(engine.PeriodMonthly, monthly)
	if next.Start.String() != "2026-01-01" || next.End.String() != "2026-01-31" {
		t.Errorf("monthly: expected [2026-01-01, 2026-01-31], got %s", next)
	}

	biennial := engine.Window{Start: date(2023, time.March, 10), End: date(2025, time.March, 9)}
	next = engine.NextWindow(engine.PeriodBiennial, biennial)
	if next.Start.String() != "2025-03-10" {
		t.Errorf("biennial: expected 2025-03-10, got %s", next.Start)
	}
}

func TestWindow_ContainsIsInclusive(t *testing.T) {
	w := engine.Window{Start: date(2025, time.January, 1), End: date(2025, time.December, 31)}
	if !w.Contains(date(2025, time.January, 1)) || !w.Contains(date(2025, time.December, 31)) {
		t.Error("window boundaries must be inclusive")
	}
	if w.Contains(date(2026, time.January, 1)) {
		t.Error("day after the window must be outside")
	}
}
