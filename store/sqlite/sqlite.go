/*
Package sqlite provides a SQLite-backed implementation of the engine registry.

PURPOSE:
  Implements engine.Registry and engine.TxRegistry using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  persons:         Producer registrations
  properties:      Registered parcels
  leases:          Lease declarations per reference year
  programs:        Benefit program definitions
  rules:           Rule configurations, stored as factory JSON
  requests:        Benefit requests (the consumption ledger's source rows)
  effective_areas: Per-(person, year) effective-area snapshots

INDEXES:
  - idx_requests_person_program_date: window consumption scans (hot path)
  - idx_leases_tenant_year / idx_leases_property_year: apportionment reads
  - idx_properties_owner: effective-area recalculation

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of a single SQLite handle.
  The quota-check + reservation pair runs inside WithTx so two concurrent
  evaluations cannot both pass an exhausted cap.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

USAGE:
  reg, err := sqlite.New("./data/benefits.db")
  if err != nil {
      log.Fatal(err)
  }
  defer reg.Close()

  evaluator := engine.NewEvaluator(reg)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/ruralis/benefit-engine/engine"
	"github.com/ruralis/benefit-engine/factory"
)

// Store implements engine.TxRegistry using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Producer registrations
	CREATE TABLE IF NOT EXISTS persons (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		entity TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Registered parcels
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		total_area TEXT NOT NULL,
		area_unit TEXT NOT NULL,
		tenure TEXT NOT NULL,
		rural BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_properties_owner
		ON properties(owner_id);

	-- Lease declarations per reference year
	CREATE TABLE IF NOT EXISTS leases (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		area_ceded TEXT NOT NULL,
		area_received TEXT NOT NULL,
		area_unit TEXT NOT NULL,
		year INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leases_tenant_year
		ON leases(tenant_id, year);
	CREATE INDEX IF NOT EXISTS idx_leases_property_year
		ON leases(property_id, year);

	-- Benefit programs
	CREATE TABLE IF NOT EXISTS programs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		law_reference TEXT,
		type TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Rule configurations (factory JSON schema)
	CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		program_id TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		rule_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_program
		ON rules(program_id, position);

	-- Benefit requests
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		person_id TEXT NOT NULL,
		program_id TEXT NOT NULL,
		rule_id TEXT,
		requested_qty TEXT,
		granted_qty TEXT,
		qty_unit TEXT,
		granted_value TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'pending',
		effective_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Composite index for window consumption scans (hot path)
	CREATE INDEX IF NOT EXISTS idx_requests_person_program_date
		ON requests(person_id, program_id, effective_at);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON requests(status);

	-- Effective-area snapshots, one row per (person, year)
	CREATE TABLE IF NOT EXISTS effective_areas (
		id TEXT PRIMARY KEY,
		person_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		owned_area TEXT NOT NULL,
		leased_in_area TEXT NOT NULL,
		leased_out_area TEXT NOT NULL,
		effective_area TEXT NOT NULL,
		area_unit TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(person_id, year)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx abstracts *sql.DB and *sql.Tx so every query helper serves both the
// direct path and the WithTx path.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// =============================================================================
// PERSON STORE
// =============================================================================

// SavePerson upserts a producer registration.
func (s *Store) SavePerson(ctx context.Context, p engine.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO persons (id, name, entity, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			entity = excluded.entity,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Entity, p.Active, now())
	return err
}

func (s *Store) Person(ctx context.Context, id engine.PersonID) (*engine.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPerson(ctx, s.db, id)
}

func getPerson(ctx context.Context, q dbtx, id engine.PersonID) (*engine.Person, error) {
	var p engine.Person
	err := q.QueryRowContext(ctx,
		"SELECT id, name, entity, active FROM persons WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.Entity, &p.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPersons returns all producer registrations ordered by name.
func (s *Store) ListPersons(ctx context.Context) ([]engine.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, entity, active FROM persons ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var persons []engine.Person
	for rows.Next() {
		var p engine.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Entity, &p.Active); err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// =============================================================================
// PROPERTY STORE
// =============================================================================

const propertySelect = "SELECT id, owner_id, name, total_area, area_unit, tenure, rural FROM properties"

// SaveProperty upserts a parcel after validating area/unit consistency.
func (s *Store) SaveProperty(ctx context.Context, p engine.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO properties (id, owner_id, name, total_area, area_unit, tenure, rural, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			name = excluded.name,
			total_area = excluded.total_area,
			area_unit = excluded.area_unit,
			tenure = excluded.tenure,
			rural = excluded.rural
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Name, p.TotalArea.Value.String(), p.TotalArea.Unit,
		p.Tenure, p.Rural, now())
	return err
}

func (s *Store) Property(ctx context.Context, id engine.PropertyID) (*engine.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProperty(ctx, s.db, id)
}

func getProperty(ctx context.Context, q dbtx, id engine.PropertyID) (*engine.Property, error) {
	rows, err := q.QueryContext(ctx, propertySelect+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	props, err := scanProperties(rows)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, nil
	}
	return &props[0], nil
}

func (s *Store) PropertiesByOwner(ctx context.Context, ownerID engine.PersonID) ([]engine.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return propertiesByOwner(ctx, s.db, ownerID)
}

func propertiesByOwner(ctx context.Context, q dbtx, ownerID engine.PersonID) ([]engine.Property, error) {
	rows, err := q.QueryContext(ctx,
		propertySelect+" WHERE owner_id = ? ORDER BY id", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProperties(rows)
}

func scanProperties(rows *sql.Rows) ([]engine.Property, error) {
	var props []engine.Property
	for rows.Next() {
		var (
			p        engine.Property
			area     string
			areaUnit string
		)
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &area, &areaUnit, &p.Tenure, &p.Rural); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		p.TotalArea = engine.QuantityFromDecimal(engine.MustParseDecimal(area), engine.Unit(areaUnit))
		props = append(props, p)
	}
	return props, rows.Err()
}

// =============================================================================
// LEASE STORE
// =============================================================================

const leaseSelect = "SELECT id, property_id, tenant_id, area_ceded, area_received, area_unit, year FROM leases"

// SaveLease upserts a lease declaration.
func (s *Store) SaveLease(ctx context.Context, l engine.Lease) error {
	if err := l.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leases (id, property_id, tenant_id, area_ceded, area_received, area_unit, year, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			property_id = excluded.property_id,
			tenant_id = excluded.tenant_id,
			area_ceded = excluded.area_ceded,
			area_received = excluded.area_received,
			area_unit = excluded.area_unit,
			year = excluded.year
	`
	_, err := s.db.ExecContext(ctx, query,
		l.ID, l.PropertyID, l.TenantID,
		l.AreaCeded.Value.String(), l.AreaReceived.Value.String(), l.AreaCeded.Unit,
		l.Year, now())
	return err
}

func (s *Store) LeasesByTenant(ctx context.Context, tenantID engine.PersonID, year int) ([]engine.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryLeases(ctx, s.db,
		leaseSelect+" WHERE tenant_id = ? AND year = ? ORDER BY id", tenantID, year)
}

func (s *Store) LeasesByProperty(ctx context.Context, propertyID engine.PropertyID, year int) ([]engine.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryLeases(ctx, s.db,
		leaseSelect+" WHERE property_id = ? AND year = ? ORDER BY id", propertyID, year)
}

func queryLeases(ctx context.Context, q dbtx, query string, args ...any) ([]engine.Lease, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leases []engine.Lease
	for rows.Next() {
		var (
			l        engine.Lease
			ceded    string
			received string
			areaUnit string
		)
		if err := rows.Scan(&l.ID, &l.PropertyID, &l.TenantID, &ceded, &received, &areaUnit, &l.Year); err != nil {
			return nil, fmt.Errorf("failed to scan lease: %w", err)
		}
		unit := engine.Unit(areaUnit)
		l.AreaCeded = engine.QuantityFromDecimal(engine.MustParseDecimal(ceded), unit)
		l.AreaReceived = engine.QuantityFromDecimal(engine.MustParseDecimal(received), unit)
		leases = append(leases, l)
	}
	return leases, rows.Err()
}

// =============================================================================
// PROGRAM STORE
// =============================================================================

// SaveProgram upserts a program and replaces its rule set atomically. Rules
// are validated through the factory schema before anything is written.
func (s *Store) SaveProgram(ctx context.Context, p engine.Program, rules []engine.Rule) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	query := `
		INSERT INTO programs (id, name, law_reference, type, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			law_reference = excluded.law_reference,
			type = excluded.type,
			active = excluded.active,
			updated_at = excluded.updated_at
	`
	ts := now()
	if _, err := sqlTx.ExecContext(ctx, query,
		p.ID, p.Name, p.LawReference, p.Type, p.Active, ts, ts); err != nil {
		return err
	}

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM rules WHERE program_id = ?", p.ID); err != nil {
		return err
	}
	for i, r := range rules {
		ruleJSON, err := json.Marshal(factory.RuleToJSON(r))
		if err != nil {
			return fmt.Errorf("failed to marshal rule %s: %w", r.ID, err)
		}
		if _, err := sqlTx.ExecContext(ctx,
			"INSERT INTO rules (id, program_id, position, rule_json) VALUES (?, ?, ?, ?)",
			r.ID, p.ID, i, string(ruleJSON)); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func (s *Store) Program(ctx context.Context, id engine.ProgramID) (*engine.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProgram(ctx, s.db, id)
}

func getProgram(ctx context.Context, q dbtx, id engine.ProgramID) (*engine.Program, error) {
	var (
		p      engine.Program
		lawRef sql.NullString
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, name, law_reference, type, active FROM programs WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &lawRef, &p.Type, &p.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.LawReference = lawRef.String
	return &p, nil
}

// ListPrograms returns all programs ordered by name.
func (s *Store) ListPrograms(ctx context.Context) ([]engine.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, law_reference, type, active FROM programs ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var programs []engine.Program
	for rows.Next() {
		var (
			p      engine.Program
			lawRef sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &lawRef, &p.Type, &p.Active); err != nil {
			return nil, err
		}
		p.LawReference = lawRef.String
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

func (s *Store) RulesByProgram(ctx context.Context, programID engine.ProgramID) ([]engine.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rulesByProgram(ctx, s.db, programID)
}

func rulesByProgram(ctx context.Context, q dbtx, programID engine.ProgramID) ([]engine.Rule, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT rule_json FROM rules WHERE program_id = ? ORDER BY position", programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []engine.Rule
	for rows.Next() {
		var ruleJSON string
		if err := rows.Scan(&ruleJSON); err != nil {
			return nil, err
		}
		var rj factory.RuleJSON
		if err := json.Unmarshal([]byte(ruleJSON), &rj); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule config: %w", err)
		}
		rule, err := factory.RuleFromJSON(programID, rj)
		if err != nil {
			return nil, fmt.Errorf("stored rule config invalid: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// =============================================================================
// REQUEST STORE
// =============================================================================

const requestSelect = `
	SELECT id, person_id, program_id, rule_id, requested_qty, granted_qty, qty_unit,
	       granted_value, status, effective_at
	FROM requests
`

func (s *Store) SaveRequest(ctx context.Context, req *engine.BenefitRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveRequest(ctx, s.db, req)
}

func saveRequest(ctx context.Context, q dbtx, req *engine.BenefitRequest) error {
	query := `
		INSERT INTO requests
		(id, person_id, program_id, rule_id, requested_qty, granted_qty, qty_unit,
		 granted_value, status, effective_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rule_id = excluded.rule_id,
			requested_qty = excluded.requested_qty,
			granted_qty = excluded.granted_qty,
			qty_unit = excluded.qty_unit,
			granted_value = excluded.granted_value,
			status = excluded.status,
			effective_at = excluded.effective_at,
			updated_at = excluded.updated_at
	`

	var requestedQty, grantedQty, qtyUnit sql.NullString
	if req.RequestedQuantity != nil {
		requestedQty = sql.NullString{String: req.RequestedQuantity.Value.String(), Valid: true}
		qtyUnit = sql.NullString{String: string(req.RequestedQuantity.Unit), Valid: true}
	}
	if req.GrantedQuantity != nil {
		grantedQty = sql.NullString{String: req.GrantedQuantity.Value.String(), Valid: true}
		qtyUnit = sql.NullString{String: string(req.GrantedQuantity.Unit), Valid: true}
	}

	ts := now()
	_, err := q.ExecContext(ctx, query,
		req.ID, req.PersonID, req.ProgramID, nullString(string(req.RuleID)),
		requestedQty, grantedQty, qtyUnit,
		req.GrantedValue.String(), req.Status, req.EffectiveAt.String(),
		ts, ts)
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

func (s *Store) RequestsInWindow(ctx context.Context, personID engine.PersonID, programID engine.ProgramID, from, to engine.Date) ([]engine.BenefitRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return requestsInWindow(ctx, s.db, personID, programID, from, to)
}

func requestsInWindow(ctx context.Context, q dbtx, personID engine.PersonID, programID engine.ProgramID, from, to engine.Date) ([]engine.BenefitRequest, error) {
	query := requestSelect + `
		WHERE person_id = ? AND program_id = ?
		  AND effective_at >= ? AND effective_at <= ?
		ORDER BY effective_at ASC, created_at ASC
	`
	return queryRequests(ctx, q, query, personID, programID, from.String(), to.String())
}

func (s *Store) EarliestGranted(ctx context.Context, personID engine.PersonID, programID engine.ProgramID) (*engine.BenefitRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return earliestGranted(ctx, s.db, personID, programID)
}

func earliestGranted(ctx context.Context, q dbtx, personID engine.PersonID, programID engine.ProgramID) (*engine.BenefitRequest, error) {
	query := requestSelect + `
		WHERE person_id = ? AND program_id = ? AND status IN ('approved', 'paid')
		ORDER BY effective_at ASC, created_at ASC
		LIMIT 1
	`
	reqs, err := queryRequests(ctx, q, query, personID, programID)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	return &reqs[0], nil
}

// RequestsByPerson returns every request of a producer, newest first.
func (s *Store) RequestsByPerson(ctx context.Context, personID engine.PersonID) ([]engine.BenefitRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := requestSelect + `
		WHERE person_id = ?
		ORDER BY effective_at DESC, created_at DESC
	`
	return queryRequests(ctx, s.db, query, personID)
}

func queryRequests(ctx context.Context, q dbtx, query string, args ...any) ([]engine.BenefitRequest, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []engine.BenefitRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(rows *sql.Rows) (engine.BenefitRequest, error) {
	var (
		req          engine.BenefitRequest
		ruleID       sql.NullString
		requestedQty sql.NullString
		grantedQty   sql.NullString
		qtyUnit      sql.NullString
		grantedValue string
		effectiveAt  string
	)

	err := rows.Scan(
		&req.ID, &req.PersonID, &req.ProgramID, &ruleID,
		&requestedQty, &grantedQty, &qtyUnit,
		&grantedValue, &req.Status, &effectiveAt,
	)
	if err != nil {
		return req, fmt.Errorf("failed to scan request: %w", err)
	}

	req.RuleID = engine.RuleID(ruleID.String)
	req.GrantedValue = engine.MustParseDecimal(grantedValue)

	unit := engine.Unit(qtyUnit.String)
	if requestedQty.Valid {
		qty := engine.QuantityFromDecimal(engine.MustParseDecimal(requestedQty.String), unit)
		req.RequestedQuantity = &qty
	}
	if grantedQty.Valid {
		qty := engine.QuantityFromDecimal(engine.MustParseDecimal(grantedQty.String), unit)
		req.GrantedQuantity = &qty
	}

	date, err := engine.ParseDate(effectiveAt)
	if err != nil {
		return req, fmt.Errorf("failed to parse effective_at: %w", err)
	}
	req.EffectiveAt = date
	return req, nil
}

// =============================================================================
// AREA SNAPSHOT STORE
// =============================================================================

func (s *Store) SaveEffectiveArea(ctx context.Context, snap engine.EffectiveAreaSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveEffectiveArea(ctx, s.db, snap)
}

func saveEffectiveArea(ctx context.Context, q dbtx, snap engine.EffectiveAreaSnapshot) error {
	query := `
		INSERT INTO effective_areas
		(id, person_id, year, owned_area, leased_in_area, leased_out_area, effective_area, area_unit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(person_id, year) DO UPDATE SET
			owned_area = excluded.owned_area,
			leased_in_area = excluded.leased_in_area,
			leased_out_area = excluded.leased_out_area,
			effective_area = excluded.effective_area,
			area_unit = excluded.area_unit,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		snap.ID, snap.PersonID, snap.Year,
		snap.OwnedArea.Value.String(),
		snap.LeasedInArea.Value.String(),
		snap.LeasedOutArea.Value.String(),
		snap.EffectiveArea.Value.String(),
		snap.EffectiveArea.Unit,
		now())
	return err
}

func (s *Store) EffectiveArea(ctx context.Context, personID engine.PersonID, year int) (*engine.EffectiveAreaSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return effectiveArea(ctx, s.db, personID, year)
}

func effectiveArea(ctx context.Context, q dbtx, personID engine.PersonID, year int) (*engine.EffectiveAreaSnapshot, error) {
	var (
		snap      engine.EffectiveAreaSnapshot
		owned     string
		leasedIn  string
		leasedOut string
		effective string
		areaUnit  string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, person_id, year, owned_area, leased_in_area, leased_out_area, effective_area, area_unit
		FROM effective_areas WHERE person_id = ? AND year = ?`,
		personID, year,
	).Scan(&snap.ID, &snap.PersonID, &snap.Year, &owned, &leasedIn, &leasedOut, &effective, &areaUnit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	unit := engine.Unit(areaUnit)
	snap.OwnedArea = engine.QuantityFromDecimal(engine.MustParseDecimal(owned), unit)
	snap.LeasedInArea = engine.QuantityFromDecimal(engine.MustParseDecimal(leasedIn), unit)
	snap.LeasedOutArea = engine.QuantityFromDecimal(engine.MustParseDecimal(leasedOut), unit)
	snap.EffectiveArea = engine.QuantityFromDecimal(engine.MustParseDecimal(effective), unit)
	return &snap, nil
}

// =============================================================================
// TRANSACTIONAL REGISTRY (engine.TxRegistry interface)
// =============================================================================

// WithTx executes fn against a registry view scoped to one database
// transaction. fn returning an error rolls back; nil commits.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Registry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txRegistry{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txRegistry struct {
	tx *sql.Tx
}

func (t *txRegistry) Person(ctx context.Context, id engine.PersonID) (*engine.Person, error) {
	return getPerson(ctx, t.tx, id)
}

func (t *txRegistry) Property(ctx context.Context, id engine.PropertyID) (*engine.Property, error) {
	return getProperty(ctx, t.tx, id)
}

func (t *txRegistry) PropertiesByOwner(ctx context.Context, ownerID engine.PersonID) ([]engine.Property, error) {
	return propertiesByOwner(ctx, t.tx, ownerID)
}

func (t *txRegistry) LeasesByTenant(ctx context.Context, tenantID engine.PersonID, year int) ([]engine.Lease, error) {
	return queryLeases(ctx, t.tx,
		leaseSelect+" WHERE tenant_id = ? AND year = ? ORDER BY id", tenantID, year)
}

func (t *txRegistry) LeasesByProperty(ctx context.Context, propertyID engine.PropertyID, year int) ([]engine.Lease, error) {
	return queryLeases(ctx, t.tx,
		leaseSelect+" WHERE property_id = ? AND year = ? ORDER BY id", propertyID, year)
}

func (t *txRegistry) Program(ctx context.Context, id engine.ProgramID) (*engine.Program, error) {
	return getProgram(ctx, t.tx, id)
}

func (t *txRegistry) RulesByProgram(ctx context.Context, programID engine.ProgramID) ([]engine.Rule, error) {
	return rulesByProgram(ctx, t.tx, programID)
}

func (t *txRegistry) RequestsInWindow(ctx context.Context, personID engine.PersonID, programID engine.ProgramID, from, to engine.Date) ([]engine.BenefitRequest, error) {
	return requestsInWindow(ctx, t.tx, personID, programID, from, to)
}

func (t *txRegistry) EarliestGranted(ctx context.Context, personID engine.PersonID, programID engine.ProgramID) (*engine.BenefitRequest, error) {
	return earliestGranted(ctx, t.tx, personID, programID)
}

func (t *txRegistry) SaveRequest(ctx context.Context, req *engine.BenefitRequest) error {
	return saveRequest(ctx, t.tx, req)
}

func (t *txRegistry) SaveEffectiveArea(ctx context.Context, snap engine.EffectiveAreaSnapshot) error {
	return saveEffectiveArea(ctx, t.tx, snap)
}

func (t *txRegistry) EffectiveArea(ctx context.Context, personID engine.PersonID, year int) (*engine.EffectiveAreaSnapshot, error) {
	return effectiveArea(ctx, t.tx, personID, year)
}

// =============================================================================
// UTILITIES
// =============================================================================

// UpdateRequestStatus transitions a request (host workflow: approve, reject,
// mark paid). The engine itself never calls this.
func (s *Store) UpdateRequestStatus(ctx context.Context, id engine.RequestID, status engine.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE requests SET status = ?, updated_at = ? WHERE id = ?",
		status, now(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("request %s not found", id)
	}
	return nil
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"requests", "effective_areas", "rules", "programs", "leases", "properties", "persons"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
