/*
Package engine implements the benefit eligibility and proportional-limit
calculation core for the municipal benefit programs.

PURPOSE:
  This package contains the domain types and pure calculators that decide,
  for a given producer and program, whether a law-derived rule applies,
  what the benefit is worth, and whether the period-bound consumption cap
  still has room. Registration CRUD (forms, routing, PDF export) lives in
  the host application; the engine only consumes its persisted entities
  through the store interfaces in store.go.

KEY CONCEPTS IN THIS FILE (types.go):
  - Quantity: a decimal amount with a unit (alqueires, kg, hours, R$)
  - Person/Property/Lease: registration entities, read-only to the engine
  - EffectiveAreaSnapshot: the yearly owned + leased-in - leased-out projection
  - BenefitRequest: a request's identity and status as seen by the ledger

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, no float64 in domain logic
  2. Determinism: evaluation dates are injected, never read from the clock
  3. Type safety: distinct ID types so a person ID cannot slot into a program
  4. Errors vs outcomes: "rule does not match" is a result, not an error

SEE ALSO:
  - condition.go: rule condition variants and matching
  - rule.go: program/rule/limit definitions
  - evaluate.go: the request evaluation entry points
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// QUANTITY - Decimal amount with a unit
// =============================================================================

type Quantity struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitAlqueire    Unit = "alqueire" // traditional rural land unit
	UnitSquareMeter Unit = "m2"       // urban parcels
	UnitKilogram    Unit = "kg"
	UnitTon         Unit = "ton"
	UnitHour        Unit = "hora"
	UnitItem        Unit = "unidade"
	UnitBRL         Unit = "brl"
)

func NewQuantity(value float64, unit Unit) Quantity {
	return Quantity{Value: decimal.NewFromFloat(value), Unit: unit}
}

func QuantityFromDecimal(value decimal.Decimal, unit Unit) Quantity {
	return Quantity{Value: value, Unit: unit}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (q Quantity) Zero() Quantity                 { return Quantity{Value: decimal.Zero, Unit: q.Unit} }
func (q Quantity) Add(o Quantity) Quantity        { return Quantity{Value: q.Value.Add(o.Value), Unit: q.Unit} }
func (q Quantity) Sub(o Quantity) Quantity        { return Quantity{Value: q.Value.Sub(o.Value), Unit: q.Unit} }
func (q Quantity) Mul(s decimal.Decimal) Quantity { return Quantity{Value: q.Value.Mul(s), Unit: q.Unit} }
func (q Quantity) Neg() Quantity                  { return Quantity{Value: q.Value.Neg(), Unit: q.Unit} }
func (q Quantity) IsNegative() bool               { return q.Value.IsNegative() }
func (q Quantity) IsZero() bool                   { return q.Value.IsZero() }
func (q Quantity) IsPositive() bool               { return q.Value.IsPositive() }
func (q Quantity) GreaterThan(o Quantity) bool    { return q.Value.GreaterThan(o.Value) }
func (q Quantity) LessThan(o Quantity) bool       { return q.Value.LessThan(o.Value) }
func (q Quantity) Min(o Quantity) Quantity {
	if q.LessThan(o) {
		return q
	}
	return o
}
func (q Quantity) Max(o Quantity) Quantity {
	if q.GreaterThan(o) {
		return q
	}
	return o
}

func (q Quantity) String() string { return q.Value.String() + " " + string(q.Unit) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PersonID string
type PropertyID string
type LeaseID string
type ProgramID string
type RuleID string
type RequestID string

// =============================================================================
// REGISTRATION ENTITIES - Owned by the host application, read-only here
// =============================================================================

type LegalEntity string

const (
	EntityIndividual   LegalEntity = "fisica"
	EntityOrganization LegalEntity = "juridica"
)

type Person struct {
	ID     PersonID
	Name   string
	Entity LegalEntity
	Active bool
}

// Tenure describes how a property is held.
type Tenure string

const (
	TenureOwned    Tenure = "propria"
	TenureJoint    Tenure = "condominio"
	TenureUsufruct Tenure = "usufruto"
)

// Property is a registered parcel. Rural parcels are sized in alqueires,
// everything else in square meters; Validate enforces that pairing.
type Property struct {
	ID        PropertyID
	OwnerID   PersonID
	Name      string
	TotalArea Quantity
	Tenure    Tenure
	Rural     bool
}

func (p Property) Validate() error {
	if p.TotalArea.IsNegative() {
		return &InvalidInputError{Field: "total_area", Reason: "must be non-negative"}
	}
	if p.Rural && p.TotalArea.Unit != UnitAlqueire {
		return &InvalidInputError{Field: "total_area", Reason: "rural properties are sized in alqueires"}
	}
	if !p.Rural && p.TotalArea.Unit != UnitSquareMeter {
		return &InvalidInputError{Field: "total_area", Reason: "non-rural properties are sized in square meters"}
	}
	return nil
}

// Lease records that a tenant cultivates part of a landowner's property for a
// reference year. AreaCeded is what leaves the landowner's effective area,
// AreaReceived is what enters the tenant's; they are usually equal but the
// registry keeps both sides of the declaration.
type Lease struct {
	ID           LeaseID
	PropertyID   PropertyID
	TenantID     PersonID
	AreaCeded    Quantity
	AreaReceived Quantity
	Year         int
}

func (l Lease) Validate() error {
	if l.AreaCeded.IsNegative() || l.AreaReceived.IsNegative() {
		return &InvalidInputError{Field: "area", Reason: "leased areas must be non-negative"}
	}
	if l.Year == 0 {
		return &InvalidInputError{Field: "year", Reason: "reference year is required"}
	}
	return nil
}

// =============================================================================
// EFFECTIVE AREA SNAPSHOT - Yearly projection per person
// =============================================================================

// EffectiveAreaSnapshot is the per-(person, year) projection of cultivated
// area. It is overwritten on every recalculation; the ID is deterministic so
// recomputing with unchanged inputs yields an identical row.
type EffectiveAreaSnapshot struct {
	ID            string
	PersonID      PersonID
	Year          int
	OwnedArea     Quantity
	LeasedInArea  Quantity
	LeasedOutArea Quantity
	EffectiveArea Quantity
}

// Consistent reports whether the snapshot honors the algebraic invariant
// effective = owned + leasedIn - leasedOut.
func (s EffectiveAreaSnapshot) Consistent() bool {
	sum := s.OwnedArea.Add(s.LeasedInArea).Sub(s.LeasedOutArea)
	return sum.Value.Equal(s.EffectiveArea.Value)
}

// =============================================================================
// BENEFIT REQUEST - Status owned by the host workflow
// =============================================================================

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusInReview  RequestStatus = "in_review"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
	StatusPaid      RequestStatus = "paid"
)

// CountsTowardConsumption reports whether a request in this status consumes
// period quota. Only terminal granted statuses count.
func (s RequestStatus) CountsTowardConsumption() bool {
	return s == StatusApproved || s == StatusPaid
}

// Reserved reports whether the request is holding quota while a decision is
// outstanding. Used by the evaluate-and-reserve path only.
func (s RequestStatus) Reserved() bool {
	return s == StatusPending || s == StatusInReview
}

// BenefitRequest is the engine's view of a request. The engine computes
// eligibility and value; it never drives the status machine.
type BenefitRequest struct {
	ID                RequestID
	PersonID          PersonID
	ProgramID         ProgramID
	RuleID            RuleID
	RequestedQuantity *Quantity
	GrantedQuantity   *Quantity
	GrantedValue      decimal.Decimal
	Status            RequestStatus
	EffectiveAt       Date
}

// ConsumedQuantity is what the request counts for against a period cap.
// Requests recorded without an explicit quantity count as a single unit.
func (r BenefitRequest) ConsumedQuantity(unit Unit) Quantity {
	if r.GrantedQuantity != nil && !r.GrantedQuantity.IsZero() {
		return Quantity{Value: r.GrantedQuantity.Value, Unit: unit}
	}
	return NewQuantity(1, unit)
}
