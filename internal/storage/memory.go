package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"deyn/internal/core"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	entities    map[int64]core.Entity
	obligations map[int64]core.Obligation
	payments    map[int64][]core.Payment
	settings    core.Settings
	nextID      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities:    make(map[int64]core.Entity),
		obligations: make(map[int64]core.Obligation),
		payments:    make(map[int64][]core.Payment),
		settings:    DefaultSettings(),
		nextID:      1,
	}
}

func (m *MemoryStore) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *MemoryStore) ListEntities(_ context.Context) ([]core.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Entity, 0, len(m.entities))
	for _, e := range m.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetEntity(_ context.Context, id int64) (core.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	if !ok {
		return core.Entity{}, core.ErrNotFound
	}
	return e, nil
}

func (m *MemoryStore) CreateEntity(_ context.Context, e core.Entity) (core.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.entities[e.ID] = e
	return e, nil
}

func (m *MemoryStore) UpdateEntity(_ context.Context, e core.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[e.ID]; !ok {
		return core.ErrNotFound
	}
	m.entities[e.ID] = e
	return nil
}

func (m *MemoryStore) DeleteEntity(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[id]; !ok {
		return core.ErrNotFound
	}
	for _, o := range m.obligations {
		if o.EntityID == id {
			return core.ErrEntityInUse
		}
	}
	delete(m.entities, id)
	return nil
}

func (m *MemoryStore) ListObligations(_ context.Context, status core.ObligationStatus) ([]core.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Obligation, 0, len(m.obligations))
	for _, o := range m.obligations {
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetObligation(_ context.Context, id int64) (core.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.obligations[id]
	if !ok {
		return core.Obligation{}, core.ErrNotFound
	}
	return o, nil
}

func (m *MemoryStore) CreateObligation(_ context.Context, o core.Obligation) (core.Obligation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[o.EntityID]; !ok {
		return core.Obligation{}, core.ErrNotFound
	}
	o.ID = m.id()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	m.obligations[o.ID] = o
	return o, nil
}

func (m *MemoryStore) UpdateObligation(_ context.Context, o core.Obligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.obligations[o.ID]; !ok {
		return core.ErrNotFound
	}
	m.obligations[o.ID] = o
	return nil
}

func (m *MemoryStore) DeleteObligation(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.obligations[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.obligations, id)
	delete(m.payments, id)
	return nil
}

func (m *MemoryStore) ListPayments(_ context.Context, obligationID int64) ([]core.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Payment, len(m.payments[obligationID]))
	copy(out, m.payments[obligationID])
	return out, nil
}

func (m *MemoryStore) RecordPayment(_ context.Context, p core.Payment) (core.Payment, core.Obligation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.obligations[p.ObligationID]
	if !ok {
		return core.Payment{}, core.Obligation{}, core.ErrNotFound
	}
	p.ID = m.id()
	p.Amount = p.Amount.Round()
	m.payments[p.ObligationID] = append(m.payments[p.ObligationID], p)
	o = applyPayment(o)
	m.obligations[o.ID] = o
	return p, o, nil
}

func (m *MemoryStore) GetSettings(_ context.Context) (core.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *MemoryStore) UpdateSettings(_ context.Context, s core.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

func (m *MemoryStore) Close() error { return nil }
