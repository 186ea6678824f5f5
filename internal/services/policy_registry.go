package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"
)

// PolicyRegistry maps sequential policy ids to records. Readers only ever see
// committed records; mutations go through a PolicyLease.
type PolicyRegistry struct {
	mu       sync.RWMutex
	createMu sync.Mutex
	nextID   models.PolicyID
	entries  map[models.PolicyID]*policyEntry
	now      func() time.Time
}

type policyEntry struct {
	// sem serializes mutating operations on one policy.
	sem       chan struct{}
	mu        sync.RWMutex
	committed models.Policy
	live      models.Policy
}

func newPolicyEntry(p models.Policy) *policyEntry {
	return &policyEntry{
		sem:       make(chan struct{}, 1),
		committed: p,
		live:      p,
	}
}

func NewPolicyRegistry(now func() time.Time) *PolicyRegistry {
	if now == nil {
		now = time.Now
	}
	return &PolicyRegistry{
		nextID:  1,
		entries: make(map[models.PolicyID]*policyEntry),
		now:     now,
	}
}

// Restore replaces the registry content with records loaded from storage.
func (r *PolicyRegistry) Restore(policies []models.Policy) error {
	r.createMu.Lock()
	defer r.createMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make(map[models.PolicyID]*policyEntry, len(policies))
	next := models.PolicyID(1)
	for _, p := range policies {
		if p.ID == 0 {
			return fmt.Errorf("stored policy has zero id")
		}
		if _, dup := entries[p.ID]; dup {
			return fmt.Errorf("duplicate stored policy id %d", p.ID)
		}
		entries[p.ID] = newPolicyEntry(p)
		if p.ID >= next {
			next = p.ID + 1
		}
	}
	r.entries = entries
	r.nextID = next
	return nil
}

// ValidateTerms checks the creation preconditions without touching state.
func ValidateTerms(t models.PolicyTerms) error {
	if t.Provider.IsZero() || t.Beneficiary.IsZero() {
		return models.NewSettlementError(models.KindZeroAddress, "provider and beneficiary are required")
	}
	if t.Premium.IsZero() {
		return models.NewSettlementError(models.KindInvalidAmount, "premium must be positive")
	}
	if t.CoverageLimit.IsZero() {
		return models.NewSettlementError(models.KindInvalidAmount, "coverage limit must be positive")
	}
	if !t.FeeMode.Valid() {
		return models.NewSettlementError(models.KindInvalidAmount, "unknown fee mode %q", t.FeeMode)
	}
	if t.Start != 0 && t.End != 0 && t.Start >= t.End {
		return models.NewSettlementError(models.KindBadTimeWindow, "start %d must precede end %d", t.Start, t.End)
	}
	return nil
}

// Create validates terms and inserts a new active policy. persist runs before
// the record becomes visible; if it fails the id is not consumed.
func (r *PolicyRegistry) Create(ctx context.Context, terms models.PolicyTerms, persist func(context.Context, models.Policy) error) (models.Policy, error) {
	if err := ValidateTerms(terms); err != nil {
		return models.Policy{}, err
	}

	r.createMu.Lock()
	defer r.createMu.Unlock()

	r.mu.RLock()
	id := r.nextID
	r.mu.RUnlock()

	now := r.now().UTC()
	p := models.Policy{
		ID:            id,
		Provider:      models.NormalizeAddress(string(terms.Provider)),
		Beneficiary:   models.NormalizeAddress(string(terms.Beneficiary)),
		Premium:       terms.Premium,
		CoverageLimit: terms.CoverageLimit,
		Start:         terms.Start,
		End:           terms.End,
		FeeMode:       terms.FeeMode,
		Active:        true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if persist != nil {
		if err := persist(ctx, p); err != nil {
			return models.Policy{}, err
		}
	}

	r.mu.Lock()
	r.entries[id] = newPolicyEntry(p)
	r.nextID = id + 1
	r.mu.Unlock()
	return p, nil
}

func (r *PolicyRegistry) entry(id models.PolicyID) (*policyEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, models.NewSettlementError(models.KindInvalidPolicy, "policy %d does not exist", id)
	}
	return e, nil
}

// Read returns the committed record.
func (r *PolicyRegistry) Read(id models.PolicyID) (models.Policy, error) {
	e, err := r.entry(id)
	if err != nil {
		return models.Policy{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.committed, nil
}

// Count is the number of policies ever created.
func (r *PolicyRegistry) Count() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(r.nextID - 1)
}

// List returns committed records ordered by id.
func (r *PolicyRegistry) List() []models.Policy {
	r.mu.RLock()
	n := r.nextID
	r.mu.RUnlock()

	out := make([]models.Policy, 0, int(n-1))
	for id := models.PolicyID(1); id < n; id++ {
		if p, err := r.Read(id); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Acquire takes the policy's operation slot, waiting for an in-flight
// operation on the same policy or for ctx to end.
func (r *PolicyRegistry) Acquire(ctx context.Context, id models.PolicyID) (*PolicyLease, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	select {
	case e.sem <- struct{}{}:
		return &PolicyLease{entry: e, now: r.now}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire policy %d: %w", id, ctx.Err())
	}
}

// PolicyLease is exclusive mutating access to one policy. Staged changes are
// visible through the lease at once and to readers only after Commit.
type PolicyLease struct {
	entry    *policyEntry
	now      func() time.Time
	staged   bool
	released bool
}

func (l *PolicyLease) Policy() models.Policy {
	l.entry.mu.RLock()
	defer l.entry.mu.RUnlock()
	return l.entry.live
}

func (l *PolicyLease) stage(p models.Policy) models.Policy {
	p.Version++
	p.UpdatedAt = l.now().UTC()
	l.entry.mu.Lock()
	l.entry.live = p
	l.entry.mu.Unlock()
	l.staged = true
	return p
}

// Fund stages liquidity += amount.
func (l *PolicyLease) Fund(amount models.Amount) (models.Policy, error) {
	if amount.IsZero() {
		return models.Policy{}, models.NewSettlementError(models.KindInvalidAmount, "funding amount must be positive")
	}
	p := l.Policy()
	liquidity, err := p.Liquidity.Add(amount)
	if err != nil {
		return models.Policy{}, overflow(err)
	}
	p.Liquidity = liquidity
	return l.stage(p), nil
}

// Claim stages claimed += amount and liquidity -= amount, refusing anything
// that would exceed the coverage limit or the available liquidity.
func (l *PolicyLease) Claim(amount models.Amount) (models.Policy, error) {
	p := l.Policy()
	if p.Claimed.Cmp(p.CoverageLimit) >= 0 {
		return models.Policy{}, models.NewSettlementError(models.KindAlreadyClaimed, "policy %d already paid out its coverage limit", p.ID)
	}
	claimed, err := p.Claimed.Add(amount)
	if err != nil || claimed.Cmp(p.CoverageLimit) > 0 {
		return models.Policy{}, models.NewSettlementError(models.KindInsufficientLiquidity,
			"claim %s exceeds remaining coverage %s", amount, p.RemainingCoverage())
	}
	if amount.Cmp(p.Liquidity) > 0 {
		return models.Policy{}, models.NewSettlementError(models.KindInsufficientLiquidity,
			"claim %s exceeds liquidity %s", amount, p.Liquidity)
	}
	p.Liquidity, _ = p.Liquidity.Sub(amount)
	p.Claimed = claimed
	return l.stage(p), nil
}

// Withdraw stages liquidity -= amount, bounded by the unencumbered liquidity.
func (l *PolicyLease) Withdraw(amount models.Amount) (models.Policy, error) {
	p := l.Policy()
	free := p.Unencumbered()
	if amount.Cmp(free) > 0 {
		return models.Policy{}, models.NewSettlementError(models.KindInsufficientLiquidity,
			"withdrawal %s exceeds unencumbered liquidity %s", amount, free)
	}
	p.Liquidity, _ = p.Liquidity.Sub(amount)
	return l.stage(p), nil
}

// SetActive stages the active flag. A no-op transition is rejected.
func (l *PolicyLease) SetActive(active bool) (models.Policy, error) {
	p := l.Policy()
	if p.Active == active {
		if active {
			return models.Policy{}, models.NewSettlementError(models.KindPolicyActive, "policy %d is already active", p.ID)
		}
		return models.Policy{}, models.NewSettlementError(models.KindPolicyInactive, "policy %d is already inactive", p.ID)
	}
	p.Active = active
	return l.stage(p), nil
}

// Commit publishes the staged record to readers.
func (l *PolicyLease) Commit() {
	l.entry.mu.Lock()
	l.entry.committed = l.entry.live
	l.entry.mu.Unlock()
	l.staged = false
}

// Rollback discards staged changes.
func (l *PolicyLease) Rollback() {
	l.entry.mu.Lock()
	l.entry.live = l.entry.committed
	l.entry.mu.Unlock()
	l.staged = false
}

// Release rolls back anything uncommitted and frees the operation slot.
// Safe to call more than once.
func (l *PolicyLease) Release() {
	if l.released {
		return
	}
	if l.staged {
		l.Rollback()
	}
	l.released = true
	<-l.entry.sem
}
