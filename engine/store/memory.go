// Package store provides Registry implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ruralis/benefit-engine/engine"
)

// =============================================================================
// MEMORY REGISTRY - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	persons    map[engine.PersonID]engine.Person
	properties map[engine.PropertyID]engine.Property
	leases     map[engine.LeaseID]engine.Lease
	programs   map[engine.ProgramID]engine.Program
	rules      map[engine.ProgramID][]engine.Rule
	requests   map[requestKey][]engine.BenefitRequest
	snapshots  map[snapshotKey]engine.EffectiveAreaSnapshot
}

type requestKey struct {
	PersonID  engine.PersonID
	ProgramID engine.ProgramID
}

type snapshotKey struct {
	PersonID engine.PersonID
	Year     int
}

func NewMemory() *Memory {
	return &Memory{
		persons:    make(map[engine.PersonID]engine.Person),
		properties: make(map[engine.PropertyID]engine.Property),
		leases:     make(map[engine.LeaseID]engine.Lease),
		programs:   make(map[engine.ProgramID]engine.Program),
		rules:      make(map[engine.ProgramID][]engine.Rule),
		requests:   make(map[requestKey][]engine.BenefitRequest),
		snapshots:  make(map[snapshotKey]engine.EffectiveAreaSnapshot),
	}
}

// ------ Registration seeding ------

func (m *Memory) SavePerson(_ context.Context, p engine.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persons[p.ID] = p
	return nil
}

func (m *Memory) SaveProperty(_ context.Context, p engine.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[p.ID] = p
	return nil
}

func (m *Memory) SaveLease(_ context.Context, l engine.Lease) error {
	if err := l.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leases[l.ID] = l
	return nil
}

func (m *Memory) SaveProgram(_ context.Context, p engine.Program, rules []engine.Rule) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.programs[p.ID] = p
	m.rules[p.ID] = append([]engine.Rule{}, rules...)
	return nil
}

// ------ engine.PersonStore ------

func (m *Memory) Person(_ context.Context, id engine.PersonID) (*engine.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.persons[id]; ok {
		return &p, nil
	}
	return nil, nil
}

// ------ engine.PropertyStore ------

func (m *Memory) Property(_ context.Context, id engine.PropertyID) (*engine.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.properties[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) PropertiesByOwner(_ context.Context, ownerID engine.PersonID) ([]engine.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Property
	for _, p := range m.properties {
		if p.OwnerID == ownerID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ------ engine.LeaseStore ------

func (m *Memory) LeasesByTenant(_ context.Context, tenantID engine.PersonID, year int) ([]engine.Lease, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Lease
	for _, l := range m.leases {
		if l.TenantID == tenantID && l.Year == year {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) LeasesByProperty(_ context.Context, propertyID engine.PropertyID, year int) ([]engine.Lease, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Lease
	for _, l := range m.leases {
		if l.PropertyID == propertyID && l.Year == year {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ------ engine.ProgramStore ------

func (m *Memory) Program(_ context.Context, id engine.ProgramID) (*engine.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.programs[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) RulesByProgram(_ context.Context, programID engine.ProgramID) ([]engine.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]engine.Rule{}, m.rules[programID]...), nil
}

// ------ engine.RequestStore ------

func (m *Memory) RequestsInWindow(_ context.Context, personID engine.PersonID, programID engine.ProgramID, from, to engine.Date) ([]engine.BenefitRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k := requestKey{PersonID: personID, ProgramID: programID}
	var result []engine.BenefitRequest
	for _, r := range m.requests[k] {
		if from.BeforeOrEqual(r.EffectiveAt) && r.EffectiveAt.BeforeOrEqual(to) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *Memory) EarliestGranted(_ context.Context, personID engine.PersonID, programID engine.ProgramID) (*engine.BenefitRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k := requestKey{PersonID: personID, ProgramID: programID}
	for _, r := range m.requests[k] {
		if r.Status.CountsTowardConsumption() {
			granted := r
			return &granted, nil
		}
	}
	return nil, nil
}

func (m *Memory) SaveRequest(_ context.Context, req *engine.BenefitRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveRequestLocked(req)
	return nil
}

func (m *Memory) saveRequestLocked(req *engine.BenefitRequest) {
	k := requestKey{PersonID: req.PersonID, ProgramID: req.ProgramID}
	reqs := m.requests[k]

	for i := range reqs {
		if reqs[i].ID == req.ID {
			reqs[i] = *req
			return
		}
	}

	// Insert keeping the slice ordered by effective date.
	i := sort.Search(len(reqs), func(i int) bool {
		return reqs[i].EffectiveAt.After(req.EffectiveAt)
	})
	reqs = append(reqs, engine.BenefitRequest{})
	copy(reqs[i+1:], reqs[i:])
	reqs[i] = *req
	m.requests[k] = reqs
}

// ------ engine.AreaSnapshotStore ------

func (m *Memory) SaveEffectiveArea(_ context.Context, snap engine.EffectiveAreaSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshotKey{PersonID: snap.PersonID, Year: snap.Year}] = snap
	return nil
}

func (m *Memory) EffectiveArea(_ context.Context, personID engine.PersonID, year int) (*engine.EffectiveAreaSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.snapshots[snapshotKey{PersonID: personID, Year: year}]; ok {
		return &s, nil
	}
	return nil, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY REGISTRY
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction. For the memory registry this is
// simulated with a snapshot of the mutable state plus rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(engine.Registry) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	saved := tm.snapshot()

	view := &txMemoryView{parent: tm}
	if err := fn(view); err != nil {
		tm.restore(saved)
		return err
	}
	return nil
}

// Only requests and area snapshots are written through the engine; the
// registration maps are read-only inside a transaction and need no copy.
func (tm *TxMemory) snapshot() memorySnapshot {
	reqCopy := make(map[requestKey][]engine.BenefitRequest)
	for k, v := range tm.requests {
		reqCopy[k] = append([]engine.BenefitRequest{}, v...)
	}
	snapCopy := make(map[snapshotKey]engine.EffectiveAreaSnapshot)
	for k, v := range tm.snapshots {
		snapCopy[k] = v
	}
	return memorySnapshot{requests: reqCopy, snapshots: snapCopy}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.requests = s.requests
	tm.snapshots = s.snapshots
}

type memorySnapshot struct {
	requests  map[requestKey][]engine.BenefitRequest
	snapshots map[snapshotKey]engine.EffectiveAreaSnapshot
}

// txMemoryView accesses the parent's maps directly; the parent holds the
// write lock for the whole transaction.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) Person(_ context.Context, id engine.PersonID) (*engine.Person, error) {
	if p, ok := tv.parent.persons[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (tv *txMemoryView) Property(_ context.Context, id engine.PropertyID) (*engine.Property, error) {
	if p, ok := tv.parent.properties[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (tv *txMemoryView) PropertiesByOwner(_ context.Context, ownerID engine.PersonID) ([]engine.Property, error) {
	var result []engine.Property
	for _, p := range tv.parent.properties {
		if p.OwnerID == ownerID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (tv *txMemoryView) LeasesByTenant(_ context.Context, tenantID engine.PersonID, year int) ([]engine.Lease, error) {
	var result []engine.Lease
	for _, l := range tv.parent.leases {
		if l.TenantID == tenantID && l.Year == year {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (tv *txMemoryView) LeasesByProperty(_ context.Context, propertyID engine.PropertyID, year int) ([]engine.Lease, error) {
	var result []engine.Lease
	for _, l := range tv.parent.leases {
		if l.PropertyID == propertyID && l.Year == year {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (tv *txMemoryView) Program(_ context.Context, id engine.ProgramID) (*engine.Program, error) {
	if p, ok := tv.parent.programs[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (tv *txMemoryView) RulesByProgram(_ context.Context, programID engine.ProgramID) ([]engine.Rule, error) {
	return append([]engine.Rule{}, tv.parent.rules[programID]...), nil
}

func (tv *txMemoryView) RequestsInWindow(_ context.Context, personID engine.PersonID, programID engine.ProgramID, from, to engine.Date) ([]engine.BenefitRequest, error) {
	k := requestKey{PersonID: personID, ProgramID: programID}
	var result []engine.BenefitRequest
	for _, r := range tv.parent.requests[k] {
		if from.BeforeOrEqual(r.EffectiveAt) && r.EffectiveAt.BeforeOrEqual(to) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (tv *txMemoryView) EarliestGranted(_ context.Context, personID engine.PersonID, programID engine.ProgramID) (*engine.BenefitRequest, error) {
	k := requestKey{PersonID: personID, ProgramID: programID}
	for _, r := range tv.parent.requests[k] {
		if r.Status.CountsTowardConsumption() {
			granted := r
			return &granted, nil
		}
	}
	return nil, nil
}

func (tv *txMemoryView) SaveRequest(_ context.Context, req *engine.BenefitRequest) error {
	tv.parent.saveRequestLocked(req)
	return nil
}

func (tv *txMemoryView) SaveEffectiveArea(_ context.Context, snap engine.EffectiveAreaSnapshot) error {
	tv.parent.snapshots[snapshotKey{PersonID: snap.PersonID, Year: snap.Year}] = snap
	return nil
}

func (tv *txMemoryView) EffectiveArea(_ context.Context, personID engine.PersonID, year int) (*engine.EffectiveAreaSnapshot, error) {
	if s, ok := tv.parent.snapshots[snapshotKey{PersonID: personID, Year: year}]; ok {
		return &s, nil
	}
	return nil, nil
}
