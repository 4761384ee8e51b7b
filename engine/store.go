/*
store.go - Collaborator interfaces to the host application's persistence

PURPOSE:
  The engine owns no tables. Registration entities (persons, properties,
  leases), program configuration, benefit requests and effective-area
  snapshots are persisted by the host application; the engine reads them
  through these interfaces and writes exactly two things: effective-area
  snapshots (a pure projection) and the request reservation created by
  EvaluateAndReserve.

CONCURRENCY CONTRACT:
  - Effective-area recalculation for the same (person, year) must be
    serialized by the caller (row lock or upsert-with-version); the engine
    overwrites the snapshot and does not manage that lock.
  - The period-quota read and the reservation write MUST share one
    transaction or two concurrent approvals can both pass the quota check.
    TxRegistry.WithTx provides that boundary; EvaluateAndReserve refuses to
    run without it.

IMPLEMENTATIONS:
  - engine/store: in-memory (dev/test)
  - store/sqlite: production SQLite
*/
package engine

import "context"

// =============================================================================
// READ-SIDE COLLABORATORS
// =============================================================================

// PersonStore resolves registered persons.
type PersonStore interface {
	Person(ctx context.Context, id PersonID) (*Person, error)
}

// PropertyStore resolves registered parcels.
type PropertyStore interface {
	Property(ctx context.Context, id PropertyID) (*Property, error)
	PropertiesByOwner(ctx context.Context, ownerID PersonID) ([]Property, error)
}

// LeaseStore resolves lease declarations for a reference year.
type LeaseStore interface {
	LeasesByTenant(ctx context.Context, tenantID PersonID, year int) ([]Lease, error)
	LeasesByProperty(ctx context.Context, propertyID PropertyID, year int) ([]Lease, error)
}

// ProgramStore resolves benefit programs and their rule sets. Rules are
// scoped by an explicit program ID query, never by a pre-filtered service
// object.
type ProgramStore interface {
	Program(ctx context.Context, id ProgramID) (*Program, error)
	RulesByProgram(ctx context.Context, programID ProgramID) ([]Rule, error)
}

// RequestStore is the ledger's window onto benefit requests. The engine
// never transitions a request's status; it only reads them and, on the
// evaluate-and-reserve path, inserts the initial pending row.
type RequestStore interface {
	// RequestsInWindow returns requests for person+program whose effective
	// date falls in [from, to], any status, ordered by effective date.
	RequestsInWindow(ctx context.Context, personID PersonID, programID ProgramID, from, to Date) ([]BenefitRequest, error)

	// EarliestGranted returns the first approved/paid request for
	// person+program, or nil. Anchors biennial windows.
	EarliestGranted(ctx context.Context, personID PersonID, programID ProgramID) (*BenefitRequest, error)

	// SaveRequest inserts or updates a request row.
	SaveRequest(ctx context.Context, req *BenefitRequest) error
}

// AreaSnapshotStore persists the effective-area projection.
type AreaSnapshotStore interface {
	SaveEffectiveArea(ctx context.Context, snap EffectiveAreaSnapshot) error
	EffectiveArea(ctx context.Context, personID PersonID, year int) (*EffectiveAreaSnapshot, error)
}

// =============================================================================
// REGISTRY - The full collaborator surface
// =============================================================================

// Registry bundles every collaborator the evaluator needs.
type Registry interface {
	PersonStore
	PropertyStore
	LeaseStore
	ProgramStore
	RequestStore
	AreaSnapshotStore
}

// TxRegistry adds the transactional boundary required by the
// evaluate-and-reserve path.
type TxRegistry interface {
	Registry

	// WithTx executes fn against a registry view scoped to one transaction.
	// fn returning an error rolls back; nil commits.
	WithTx(ctx context.Context, fn func(Registry) error) error
}
