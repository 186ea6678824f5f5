package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"

	"github.com/google/uuid"
)

// Transfer is one outward payment.
type Transfer struct {
	To     models.Address
	Amount models.Amount
	Memo   string
}

// Transferer moves value out of the engine. A batch either lands completely
// or not at all.
type Transferer interface {
	Transfer(ctx context.Context, ref uuid.UUID, transfers []Transfer) error
}

// ReceiveHook runs for every credited transfer before the batch is applied.
// Returning an error aborts the whole batch. It receives the caller's
// context, so it can call back into the engine.
type ReceiveHook func(ctx context.Context, t Transfer) error

// Ledger is an in-process balance book used as the payout rail.
type Ledger struct {
	mu       sync.Mutex
	balances map[models.Address]models.Amount
	hook     ReceiveHook
	applied  map[uuid.UUID]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[models.Address]models.Amount),
		applied:  make(map[uuid.UUID]struct{}),
	}
}

// SetReceiveHook installs hook; nil removes it.
func (l *Ledger) SetReceiveHook(hook ReceiveHook) {
	l.mu.Lock()
	l.hook = hook
	l.mu.Unlock()
}

func (l *Ledger) Transfer(ctx context.Context, ref uuid.UUID, transfers []Transfer) error {
	l.mu.Lock()
	hook := l.hook
	_, seen := l.applied[ref]
	l.mu.Unlock()
	if seen {
		return fmt.Errorf("transfer batch %s already applied", ref)
	}

	// The hook runs without the ledger lock so it may re-enter the engine.
	if hook != nil {
		for _, t := range transfers {
			if err := hook(ctx, t); err != nil {
				return fmt.Errorf("recipient %s rejected transfer: %w", t.To, err)
			}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	next := make(map[models.Address]models.Amount, len(transfers))
	for _, t := range transfers {
		if t.To.IsZero() {
			return fmt.Errorf("transfer to zero address")
		}
		cur, ok := next[t.To]
		if !ok {
			cur = l.balances[t.To]
		}
		sum, err := cur.Add(t.Amount)
		if err != nil {
			return fmt.Errorf("credit %s: %w", t.To, err)
		}
		next[t.To] = sum
	}
	for addr, bal := range next {
		l.balances[addr] = bal
	}
	l.applied[ref] = struct{}{}
	slog.Debug("transfer batch applied", "ref", ref, "count", len(transfers))
	return nil
}

func (l *Ledger) Balance(addr models.Address) models.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[models.NormalizeAddress(string(addr))]
}

// Balances returns a copy of every non-empty balance.
func (l *Ledger) Balances() map[models.Address]models.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[models.Address]models.Amount, len(l.balances))
	for k, v := range l.balances {
		out[k] = v
	}
	return out
}
