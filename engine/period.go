package engine

// =============================================================================
// PERIOD WINDOW - The time boundary consumption caps are measured in
// =============================================================================

// Window is an inclusive [Start, End] span of days. Consumption is ALWAYS
// measured inside a window, never "since forever".
type Window struct {
	Start Date
	End   Date
}

func (w Window) Contains(d Date) bool {
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

func (w Window) String() string {
	return "[" + w.Start.String() + ", " + w.End.String() + "]"
}

// PeriodKind defines how windows are derived from a reference date.
type PeriodKind string

const (
	// PeriodAnnual: the calendar year of the reference date.
	PeriodAnnual PeriodKind = "anual"

	// PeriodBiennial: a 2-year window anchored at the first granted request,
	// NOT calendar-aligned. A producer granted a biennial benefit in March
	// 2023 is eligible again in March 2025, not "next odd year".
	PeriodBiennial PeriodKind = "bienal"

	// PeriodMonthly: the calendar month of the reference date.
	PeriodMonthly PeriodKind = "mensal"
)

func knownPeriodKind(k PeriodKind) bool {
	switch k {
	case PeriodAnnual, PeriodBiennial, PeriodMonthly:
		return true
	}
	return false
}

// =============================================================================
// WINDOW RESOLUTION
// =============================================================================

// WindowFor resolves the window containing ref for the given period kind.
// The anchor is the date of the first historical granted request and is only
// consulted for biennial periods; with no anchor (no prior grants) the window
// starts at ref itself.
func WindowFor(kind PeriodKind, ref Date, anchor *Date) (Window, error) {
	switch kind {
	case PeriodAnnual:
		return Window{Start: StartOfYear(ref.Year()), End: EndOfYear(ref.Year())}, nil

	case PeriodMonthly:
		return Window{
			Start: StartOfMonth(ref.Year(), ref.Month()),
			End:   EndOfMonth(ref.Year(), ref.Month()),
		}, nil

	case PeriodBiennial:
		start := ref
		if anchor != nil && !anchor.IsZero() && anchor.BeforeOrEqual(ref) {
			start = *anchor
			for {
				next := start.AddYears(2)
				if next.After(ref) {
					break
				}
				start = next
			}
		}
		return Window{Start: start, End: start.AddYears(2).AddDays(-1)}, nil

	default:
		return Window{}, &InvalidInputError{Field: "period", Reason: "unknown kind " + string(kind)}
	}
}

// NextWindow returns the window following w for the given kind. Its start is
// the earliest date a fresh quota opens, which is what proximaLiberacao
// reports when a cap is exhausted.
func NextWindow(kind PeriodKind, w Window) Window {
	switch kind {
	case PeriodMonthly:
		start := w.Start.AddMonths(1)
		return Window{Start: start, End: EndOfMonth(start.Year(), start.Month())}
	case PeriodBiennial:
		start := w.Start.AddYears(2)
		return Window{Start: start, End: start.AddYears(2).AddDays(-1)}
	default: // annual
		start := w.Start.AddYears(1)
		return Window{Start: StartOfYear(start.Year()), End: EndOfYear(start.Year())}
	}
}
