package engine

import "github.com/shopspring/decimal"

// =============================================================================
// PRODUCER ATTRIBUTES - The evaluation context rules are matched against
// =============================================================================

// AttributeKey names a producer attribute a rule condition can reference.
// Keys use the registry's vocabulary so rule configurations read like the
// municipal law text they come from.
type AttributeKey string

const (
	// AttrEffectiveArea is the producer's effective cultivated area for the
	// reference year (owned + leased-in - leased-out). Filled automatically
	// from the snapshot store when the caller does not supply it.
	AttrEffectiveArea AttributeKey = "area_efetiva"

	// AttrOwnedArea is the summed area of properties the producer owns.
	AttrOwnedArea AttributeKey = "area_propria"

	// AttrIncomeShare is the percentage of family income from agriculture.
	AttrIncomeShare AttributeKey = "renda_agricola"

	// AttrLocality is the rural district/community the producer farms in.
	AttrLocality AttributeKey = "localidade"

	// AttrDAP indicates whether the producer holds an active DAP accreditation
	// ("sim"/"nao" as a categorical attribute).
	AttrDAP AttributeKey = "dap"
)

// Attributes is the typed attribute bag for one evaluation. Numeric and
// categorical attributes live in separate maps; a condition asking for a kind
// the bag doesn't hold surfaces MissingAttributeError rather than a silent
// non-match.
type Attributes struct {
	numbers map[AttributeKey]decimal.Decimal
	strings map[AttributeKey]string
}

func NewAttributes() *Attributes {
	return &Attributes{
		numbers: make(map[AttributeKey]decimal.Decimal),
		strings: make(map[AttributeKey]string),
	}
}

func (a *Attributes) SetNumber(key AttributeKey, value decimal.Decimal) *Attributes {
	a.numbers[key] = value
	return a
}

func (a *Attributes) SetFloat(key AttributeKey, value float64) *Attributes {
	return a.SetNumber(key, decimal.NewFromFloat(value))
}

func (a *Attributes) SetString(key AttributeKey, value string) *Attributes {
	a.strings[key] = value
	return a
}

func (a *Attributes) Number(key AttributeKey) (decimal.Decimal, bool) {
	v, ok := a.numbers[key]
	return v, ok
}

func (a *Attributes) String(key AttributeKey) (string, bool) {
	v, ok := a.strings[key]
	return v, ok
}

func (a *Attributes) HasNumber(key AttributeKey) bool {
	_, ok := a.numbers[key]
	return ok
}
