/*
ledger.go - Period consumption ledger

PURPOSE:
  Answers "how much of this program's period quota has the producer already
  used?" by scanning their benefit requests inside the resolved window.
  Consumption is derived on every read; there is no stored counter that can
  drift from the request rows.

COUNTING:
  Only approved/paid requests consume quota. Pending and in-review requests
  are tracked separately as reservations; the evaluate-and-reserve path
  counts them too (inside one transaction) so two concurrent evaluations
  cannot both pass the quota check, while a plain read reports only what has
  actually been granted.

  Requests recorded without a granted quantity count as one unit.
*/
package engine

import (
	"context"
	"fmt"
)

// =============================================================================
// CONSUMPTION - Derived state for one window
// =============================================================================

type Consumption struct {
	Window   Window
	Consumed Quantity // approved + paid
	Reserved Quantity // pending + in_review
	Requests []BenefitRequest
}

// =============================================================================
// LEDGER
// =============================================================================

// ConsumptionLedger reads period consumption. It never transitions a
// request's status.
type ConsumptionLedger struct {
	Requests RequestStore
}

// ResolveWindow determines the cap window containing ref. Biennial windows
// are anchored at the first granted request for person+program.
func (l *ConsumptionLedger) ResolveWindow(
	ctx context.Context,
	personID PersonID,
	programID ProgramID,
	cap PeriodCap,
	ref Date,
) (Window, error) {
	var anchor *Date
	if cap.Period == PeriodBiennial {
		first, err := l.Requests.EarliestGranted(ctx, personID, programID)
		if err != nil {
			return Window{}, fmt.Errorf("resolving biennial anchor: %w", err)
		}
		if first != nil {
			anchor = &first.EffectiveAt
		}
	}
	return WindowFor(cap.Period, ref, anchor)
}

// Consumption scans the window and totals granted and reserved quantities in
// the given unit.
func (l *ConsumptionLedger) Consumption(
	ctx context.Context,
	personID PersonID,
	programID ProgramID,
	w Window,
	unit Unit,
) (*Consumption, error) {
	requests, err := l.Requests.RequestsInWindow(ctx, personID, programID, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("scanning requests in %s: %w", w, err)
	}

	c := &Consumption{
		Window:   w,
		Consumed: NewQuantity(0, unit),
		Reserved: NewQuantity(0, unit),
	}
	for _, r := range requests {
		switch {
		case r.Status.CountsTowardConsumption():
			c.Consumed = c.Consumed.Add(r.ConsumedQuantity(unit))
			c.Requests = append(c.Requests, r)
		case r.Status.Reserved():
			c.Reserved = c.Reserved.Add(r.ConsumedQuantity(unit))
			c.Requests = append(c.Requests, r)
		}
	}
	return c, nil
}
