package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps the record set in process. Writes are staged per
// transaction and applied together on Commit.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[models.PolicyID]models.Policy
	events   []models.SettlementEvent
	eventIDs map[uuid.UUID]struct{}
	config   *models.GlobalConfig
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies: make(map[models.PolicyID]models.Policy),
		eventIDs: make(map[uuid.UUID]struct{}),
	}
}

func (s *MemoryStore) LoadPolicies(_ context.Context) ([]models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) LoadConfig(_ context.Context) (*models.GlobalConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, nil
	}
	cfg := *s.config
	return &cfg, nil
}

// ListEvents returns events in append order; policyID 0 lists everything.
func (s *MemoryStore) ListEvents(_ context.Context, policyID models.PolicyID) ([]models.SettlementEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.SettlementEvent{}
	for _, e := range s.events {
		if policyID == 0 || e.PolicyID == policyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) Begin(_ context.Context) (StoreTx, error) {
	return &memoryTx{store: s}, nil
}

type memoryTx struct {
	store    *MemoryStore
	policies []models.Policy
	events   []models.SettlementEvent
	config   *models.GlobalConfig
	done     bool
}

func (tx *memoryTx) UpsertPolicy(_ context.Context, p *models.Policy) error {
	if tx.done {
		return ErrTxDone
	}
	tx.policies = append(tx.policies, *p)
	return nil
}

func (tx *memoryTx) AppendEvent(_ context.Context, e *models.SettlementEvent) error {
	if tx.done {
		return ErrTxDone
	}
	tx.events = append(tx.events, *e)
	return nil
}

func (tx *memoryTx) SaveConfig(_ context.Context, cfg *models.GlobalConfig) error {
	if tx.done {
		return ErrTxDone
	}
	c := *cfg
	tx.config = &c
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range tx.events {
		if _, ok := s.eventIDs[e.ID]; ok {
			return ErrDuplicateEvent
		}
	}
	// Same rule as the postgres upsert: an existing row only advances by one.
	for _, p := range tx.policies {
		if cur, ok := s.policies[p.ID]; ok && p.Version != cur.Version+1 {
			return ErrVersionConflict
		}
	}
	for _, p := range tx.policies {
		s.policies[p.ID] = p
	}
	for _, e := range tx.events {
		s.eventIDs[e.ID] = struct{}{}
	}
	s.events = append(s.events, tx.events...)
	if tx.config != nil {
		s.config = tx.config
	}
	return nil
}

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	return nil
}
