package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/repository"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/wallet"

	"github.com/google/uuid"
)

var ErrNotBootstrapped = errors.New("settlement service has no configuration; call Bootstrap first")

// ErrSettlementUnpersisted comes with a non-nil receipt: the transfers went
// out but the record is not stored yet. The policy accepts no further writes
// until a later operation on it manages to store the record.
var ErrSettlementUnpersisted = errors.New("settlement applied but not persisted")

// EventSink receives events after their operation committed. Implementations
// must not block.
type EventSink interface {
	Publish(ctx context.Context, e models.SettlementEvent)
}

// SettlementService is the policy settlement engine. Every mutating entry
// point either applies completely (registry, store, transfers, event) or
// leaves no trace.
type SettlementService struct {
	registry *PolicyRegistry
	fees     *FeeCalculator
	access   *AccessControl
	store    repository.SettlementStore
	rail     wallet.Transferer
	sink     EventSink
	now      func() time.Time

	config  atomic.Pointer[models.GlobalConfig]
	adminMu sync.Mutex

	// unsaved holds settlements whose value moved but whose store commit
	// failed. Guarded by unsavedMu; entries are only touched under the
	// policy's lease.
	unsavedMu sync.Mutex
	unsaved   map[models.PolicyID]unsavedSettlement
}

// unsavedSettlement is an applied record awaiting persistence. policy is nil
// when the operation left the policy row unchanged.
type unsavedSettlement struct {
	policy *models.Policy
	event  models.SettlementEvent
}

func NewSettlementService(
	registry *PolicyRegistry,
	store repository.SettlementStore,
	rail wallet.Transferer,
	sink EventSink,
	now func() time.Time,
) *SettlementService {
	if now == nil {
		now = time.Now
	}
	return &SettlementService{
		registry: registry,
		fees:     NewFeeCalculator(),
		access:   NewAccessControl(),
		store:    store,
		rail:     rail,
		sink:     sink,
		now:      now,
		unsaved:  make(map[models.PolicyID]unsavedSettlement),
	}
}

// Bootstrap loads the stored configuration and policies. When nothing is
// stored yet, initial becomes version 1 of the configuration.
func (s *SettlementService) Bootstrap(ctx context.Context, initial models.GlobalConfig) error {
	cfg, err := s.store.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if cfg == nil {
		initial.Owner = models.NormalizeAddress(string(initial.Owner))
		initial.FeeWallet = models.NormalizeAddress(string(initial.FeeWallet))
		if initial.Owner.IsZero() || initial.FeeWallet.IsZero() {
			return models.NewSettlementError(models.KindZeroAddress, "owner and fee wallet are required")
		}
		if !initial.Fees.Valid() {
			return models.NewSettlementError(models.KindInvalidAmount, "fee rates must be within [0, %d] bps", models.MaxBps)
		}
		initial.Version = 1
		initial.UpdatedAt = s.now().UTC()
		tx, err := s.store.Begin(ctx)
		if err != nil {
			return err
		}
		if err := tx.SaveConfig(ctx, &initial); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		cfg = &initial
		slog.Info("Settlement configuration initialised", "owner", cfg.Owner, "fee_wallet", cfg.FeeWallet)
	}

	policies, err := s.store.LoadPolicies(ctx)
	if err != nil {
		return err
	}
	if err := s.registry.Restore(policies); err != nil {
		return fmt.Errorf("failed to restore registry: %w", err)
	}
	s.config.Store(cfg)
	slog.Info("Settlement service ready", "policies", len(policies), "config_version", cfg.Version, "paused", cfg.Paused)
	return nil
}

func (s *SettlementService) snapshot() (*models.GlobalConfig, error) {
	cfg := s.config.Load()
	if cfg == nil {
		return nil, ErrNotBootstrapped
	}
	return cfg, nil
}

// ============================================================================
// REENTRANCY GUARD
// ============================================================================

type inFlightKey struct{ svc *SettlementService }

type inFlightMark struct {
	id     models.PolicyID
	parent *inFlightMark
}

func (s *SettlementService) markInFlight(ctx context.Context, id models.PolicyID) context.Context {
	parent, _ := ctx.Value(inFlightKey{s}).(*inFlightMark)
	return context.WithValue(ctx, inFlightKey{s}, &inFlightMark{id: id, parent: parent})
}

func (s *SettlementService) inFlight(ctx context.Context, id models.PolicyID) bool {
	m, _ := ctx.Value(inFlightKey{s}).(*inFlightMark)
	for ; m != nil; m = m.parent {
		if m.id == id {
			return true
		}
	}
	return false
}

// ============================================================================
// SETTLEMENT PIPELINE
// ============================================================================

// outcome is what a policy operation wants applied once its checks passed.
type outcome struct {
	policy    models.Policy
	mutated   bool
	event     models.SettlementEvent
	transfers []wallet.Transfer
}

type policyOp func(cfg *models.GlobalConfig, lease *PolicyLease) (*outcome, error)

// settle runs one policy operation: guard, snapshot, lease, stage, persist,
// transfer, commit. Staged effects precede the transfer; a failing transfer
// undoes both the staged record and the store transaction.
func (s *SettlementService) settle(ctx context.Context, id models.PolicyID, pausable bool, op policyOp) (*models.Receipt, error) {
	if s.inFlight(ctx, id) {
		return nil, models.NewSettlementError(models.KindReentrancy, "policy %d is already settling in this call chain", id)
	}
	cfg, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if pausable && cfg.Paused {
		return nil, models.NewSettlementError(models.KindPaused, "settlement is paused")
	}

	lease, err := s.registry.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	if err := s.flushUnsaved(ctx, id); err != nil {
		return nil, err
	}

	out, err := op(cfg, lease)
	if err != nil {
		return nil, err
	}

	out.event.ID = uuid.New()
	out.event.PolicyID = id
	out.event.ConfigVersion = cfg.Version
	out.event.CreatedAt = s.now().UTC()
	out.event.Active = out.policy.Active
	out.event.Liquidity = out.policy.Liquidity

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if out.mutated {
		if err := tx.UpsertPolicy(ctx, &out.policy); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}
	if err := tx.AppendEvent(ctx, &out.event); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if transfers := nonZero(out.transfers); len(transfers) > 0 {
		if err := s.rail.Transfer(s.markInFlight(ctx, id), out.event.ID, transfers); err != nil {
			_ = tx.Rollback()
			slog.Warn("Settlement rolled back after failed transfer",
				"policy_id", id, "kind", out.event.Kind, "tx_ref", out.event.ID, "error", err)
			return nil, fmt.Errorf("transfer for policy %d failed: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		// Value already left; memory follows the transfer and the record is
		// persisted again before anything else touches this policy.
		lease.Commit()
		pending := unsavedSettlement{event: out.event}
		if out.mutated {
			p := out.policy
			pending.policy = &p
		}
		s.setUnsaved(id, pending)
		slog.Error("Settlement applied but not persisted, retrying",
			"policy_id", id, "kind", out.event.Kind, "tx_ref", out.event.ID, "error", err)
		receipt := &models.Receipt{TxRef: out.event.ID, Event: out.event, Policy: out.policy}
		if err := s.flushUnsaved(ctx, id); err != nil {
			return receipt, fmt.Errorf("settlement %s: %w: %w", out.event.ID, ErrSettlementUnpersisted, err)
		}
		return receipt, nil
	}
	lease.Commit()

	s.publish(ctx, out.event)
	return &models.Receipt{TxRef: out.event.ID, Event: out.event, Policy: out.policy}, nil
}

func (s *SettlementService) setUnsaved(id models.PolicyID, u unsavedSettlement) {
	s.unsavedMu.Lock()
	s.unsaved[id] = u
	s.unsavedMu.Unlock()
}

// flushUnsaved persists a settlement left behind by a failed commit. Callers
// hold the policy's lease. While it fails, the policy accepts no new writes.
func (s *SettlementService) flushUnsaved(ctx context.Context, id models.PolicyID) error {
	s.unsavedMu.Lock()
	pending, ok := s.unsaved[id]
	s.unsavedMu.Unlock()
	if !ok {
		return nil
	}

	err := s.persistSettlement(ctx, pending)
	if errors.Is(err, repository.ErrDuplicateEvent) {
		// The failed commit landed after all.
		err = nil
	}
	if err != nil {
		return fmt.Errorf("policy %d has unpersisted settlement %s: %w", id, pending.event.ID, err)
	}

	s.unsavedMu.Lock()
	delete(s.unsaved, id)
	s.unsavedMu.Unlock()
	slog.Info("Unpersisted settlement recovered", "policy_id", id, "tx_ref", pending.event.ID)
	s.publish(ctx, pending.event)
	return nil
}

// persistSettlement writes the event first so a record that already landed
// shows up as ErrDuplicateEvent rather than a version conflict.
func (s *SettlementService) persistSettlement(ctx context.Context, u unsavedSettlement) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := tx.AppendEvent(ctx, &u.event); err != nil {
		_ = tx.Rollback()
		return err
	}
	if u.policy != nil {
		if err := tx.UpsertPolicy(ctx, u.policy); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func nonZero(transfers []wallet.Transfer) []wallet.Transfer {
	out := make([]wallet.Transfer, 0, len(transfers))
	for _, t := range transfers {
		if !t.Amount.IsZero() {
			out = append(out, t)
		}
	}
	return out
}

func (s *SettlementService) publish(ctx context.Context, e models.SettlementEvent) {
	if s.sink != nil {
		s.sink.Publish(ctx, e)
	}
}

// ============================================================================
// POLICY LIFECYCLE
// ============================================================================

// CreatePolicyParams are the provider-supplied terms; the caller becomes the
// provider.
type CreatePolicyParams struct {
	Beneficiary   models.Address
	Premium       models.Amount
	CoverageLimit models.Amount
	FeeMode       models.FeeMode
	Start         uint64
	End           uint64
}

func (s *SettlementService) CreatePolicy(ctx context.Context, provider models.Address, params CreatePolicyParams) (*models.Receipt, error) {
	cfg, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if cfg.Paused {
		return nil, models.NewSettlementError(models.KindPaused, "settlement is paused")
	}

	event := models.SettlementEvent{
		ID:            uuid.New(),
		Kind:          models.EventPolicyCreated,
		Actor:         models.NormalizeAddress(string(provider)),
		Counterparty:  models.NormalizeAddress(string(params.Beneficiary)),
		Gross:         params.Premium,
		Active:        true,
		ConfigVersion: cfg.Version,
		Detail:        fmt.Sprintf("coverage=%s fee_mode=%s start=%d end=%d", params.CoverageLimit, params.FeeMode, params.Start, params.End),
	}
	terms := models.PolicyTerms{
		Provider:      provider,
		Beneficiary:   params.Beneficiary,
		Premium:       params.Premium,
		CoverageLimit: params.CoverageLimit,
		FeeMode:       params.FeeMode,
		Start:         params.Start,
		End:           params.End,
	}

	policy, err := s.registry.Create(ctx, terms, func(ctx context.Context, p models.Policy) error {
		event.PolicyID = p.ID
		event.CreatedAt = p.CreatedAt
		tx, err := s.store.Begin(ctx)
		if err != nil {
			return err
		}
		if err := tx.UpsertPolicy(ctx, &p); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.AppendEvent(ctx, &event); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Policy created",
		"policy_id", policy.ID,
		"provider", policy.Provider,
		"beneficiary", policy.Beneficiary,
		"premium", policy.Premium,
		"coverage_limit", policy.CoverageLimit,
		"fee_mode", policy.FeeMode)
	s.publish(ctx, event)
	return &models.Receipt{TxRef: event.ID, Event: event, Policy: policy}, nil
}

// FundLiquidity adds collateral. Anyone may fund an active policy.
func (s *SettlementService) FundLiquidity(ctx context.Context, funder models.Address, id models.PolicyID, amount models.Amount) (*models.Receipt, error) {
	if funder.IsZero() {
		return nil, models.NewSettlementError(models.KindZeroAddress, "funder is required")
	}
	receipt, err := s.settle(ctx, id, true, func(_ *models.GlobalConfig, lease *PolicyLease) (*outcome, error) {
		if !lease.Policy().Active {
			return nil, models.NewSettlementError(models.KindPolicyInactive, "policy %d is inactive", id)
		}
		p, err := lease.Fund(amount)
		if err != nil {
			return nil, err
		}
		return &outcome{
			policy:  p,
			mutated: true,
			event: models.SettlementEvent{
				Kind:  models.EventPolicyFunded,
				Actor: models.NormalizeAddress(string(funder)),
				Gross: amount,
			},
		}, nil
	})
	if receipt == nil {
		return nil, err
	}
	slog.Info("Policy funded", "policy_id", id, "amount", amount, "liquidity", receipt.Policy.Liquidity)
	return receipt, err
}

// PayPremium settles one premium payment. paid must equal the quoted total
// for the policy's fee mode under the current fee schedule.
func (s *SettlementService) PayPremium(ctx context.Context, payer models.Address, id models.PolicyID, paid models.Amount) (*models.Receipt, error) {
	if payer.IsZero() {
		return nil, models.NewSettlementError(models.KindZeroAddress, "payer is required")
	}
	receipt, err := s.settle(ctx, id, true, func(cfg *models.GlobalConfig, lease *PolicyLease) (*outcome, error) {
		p := lease.Policy()
		if !p.Active {
			return nil, models.NewSettlementError(models.KindPolicyInactive, "policy %d is inactive", id)
		}
		if !p.InWindow(s.now()) {
			return nil, models.NewSettlementError(models.KindBadTimeWindow, "policy %d is outside its validity window", id)
		}
		quote, err := s.fees.Quote(p.Premium, p.FeeMode, cfg.Fees)
		if err != nil {
			return nil, err
		}
		if paid.Cmp(quote.TotalPayable) != 0 {
			return nil, models.NewSettlementError(models.KindInvalidAmount, "paid %s, expected %s", paid, quote.TotalPayable)
		}
		return &outcome{
			policy: p,
			event: models.SettlementEvent{
				Kind:         models.EventPremiumPaid,
				Actor:        models.NormalizeAddress(string(payer)),
				Counterparty: p.Provider,
				Gross:        paid,
				Net:          quote.ProviderReceives,
				Fee:          quote.PlatformFee,
			},
			transfers: []wallet.Transfer{
				{To: p.Provider, Amount: quote.ProviderReceives, Memo: "premium"},
				{To: cfg.FeeWallet, Amount: quote.PlatformFee, Memo: "premium fee"},
			},
		}, nil
	})
	if receipt == nil {
		return nil, err
	}
	slog.Info("Premium paid",
		"policy_id", id,
		"payer", payer,
		"gross", receipt.Event.Gross,
		"provider_net", receipt.Event.Net,
		"platform_fee", receipt.Event.Fee)
	return receipt, err
}

// PayClaim pays the beneficiary out of the policy's liquidity. Only the
// provider may trigger it.
func (s *SettlementService) PayClaim(ctx context.Context, caller models.Address, id models.PolicyID, amount models.Amount) (*models.Receipt, error) {
	receipt, err := s.settle(ctx, id, true, func(cfg *models.GlobalConfig, lease *PolicyLease) (*outcome, error) {
		current := lease.Policy()
		if err := s.access.RequireProvider(&current, caller); err != nil {
			return nil, err
		}
		if amount.IsZero() {
			return nil, models.NewSettlementError(models.KindInvalidAmount, "claim amount must be positive")
		}
		if !current.Active {
			return nil, models.NewSettlementError(models.KindPolicyInactive, "policy %d is inactive", id)
		}
		split, err := s.fees.SplitClaim(amount, current.FeeMode, cfg.Fees)
		if err != nil {
			return nil, err
		}
		p, err := lease.Claim(amount)
		if err != nil {
			return nil, err
		}
		return &outcome{
			policy:  p,
			mutated: true,
			event: models.SettlementEvent{
				Kind:         models.EventClaimPaid,
				Actor:        p.Provider,
				Counterparty: p.Beneficiary,
				Gross:        amount,
				Net:          split.BeneficiaryNet,
				Fee:          split.PlatformFee,
			},
			transfers: []wallet.Transfer{
				{To: p.Beneficiary, Amount: split.BeneficiaryNet, Memo: "claim"},
				{To: cfg.FeeWallet, Amount: split.PlatformFee, Memo: "claim fee"},
			},
		}, nil
	})
	if receipt == nil {
		return nil, err
	}
	slog.Info("Claim paid",
		"policy_id", id,
		"beneficiary", receipt.Event.Counterparty,
		"amount", amount,
		"beneficiary_net", receipt.Event.Net,
		"platform_fee", receipt.Event.Fee,
		"claimed", receipt.Policy.Claimed,
		"liquidity", receipt.Policy.Liquidity)
	return receipt, err
}

// WithdrawLiquidity returns unencumbered collateral to the provider.
func (s *SettlementService) WithdrawLiquidity(ctx context.Context, caller models.Address, id models.PolicyID, amount models.Amount) (*models.Receipt, error) {
	receipt, err := s.settle(ctx, id, true, func(_ *models.GlobalConfig, lease *PolicyLease) (*outcome, error) {
		current := lease.Policy()
		if err := s.access.RequireProvider(&current, caller); err != nil {
			return nil, err
		}
		if amount.IsZero() {
			return nil, models.NewSettlementError(models.KindInvalidAmount, "withdrawal amount must be positive")
		}
		p, err := lease.Withdraw(amount)
		if err != nil {
			return nil, err
		}
		return &outcome{
			policy:  p,
			mutated: true,
			event: models.SettlementEvent{
				Kind:         models.EventLiquidityWithdrawn,
				Actor:        p.Provider,
				Counterparty: p.Provider,
				Gross:        amount,
				Net:          amount,
			},
			transfers: []wallet.Transfer{
				{To: p.Provider, Amount: amount, Memo: "liquidity withdrawal"},
			},
		}, nil
	})
	if receipt == nil {
		return nil, err
	}
	slog.Info("Liquidity withdrawn", "policy_id", id, "amount", amount, "liquidity", receipt.Policy.Liquidity)
	return receipt, err
}

// ============================================================================
// ADMINISTRATION
// ============================================================================

// SetPolicyActive toggles a policy. It is not blocked by the pause flag.
func (s *SettlementService) SetPolicyActive(ctx context.Context, caller models.Address, id models.PolicyID, active bool) (*models.Receipt, error) {
	cfg, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if err := s.access.RequireOwner(cfg, caller); err != nil {
		return nil, err
	}
	receipt, err := s.settle(ctx, id, false, func(_ *models.GlobalConfig, lease *PolicyLease) (*outcome, error) {
		p, err := lease.SetActive(active)
		if err != nil {
			return nil, err
		}
		return &outcome{
			policy:  p,
			mutated: true,
			event: models.SettlementEvent{
				Kind:  models.EventPolicyStatus,
				Actor: cfg.Owner,
			},
		}, nil
	})
	if receipt == nil {
		return nil, err
	}
	slog.Info("Policy status changed", "policy_id", id, "active", active)
	return receipt, err
}

// updateConfig applies mutate to a copy of the current configuration and
// publishes it once stored. Admin updates are serialized; settlements keep
// reading whichever snapshot they started with.
func (s *SettlementService) updateConfig(ctx context.Context, caller models.Address, kind models.EventKind, mutate func(*models.GlobalConfig) (string, error)) (*models.GlobalConfig, error) {
	s.adminMu.Lock()
	defer s.adminMu.Unlock()

	current, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if err := s.access.RequireOwner(current, caller); err != nil {
		return nil, err
	}
	next := *current
	detail, err := mutate(&next)
	if err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	next.UpdatedAt = s.now().UTC()

	event := models.SettlementEvent{
		ID:            uuid.New(),
		Kind:          kind,
		Actor:         current.Owner,
		ConfigVersion: next.Version,
		Detail:        detail,
		CreatedAt:     next.UpdatedAt,
	}
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if err := tx.SaveConfig(ctx, &next); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.AppendEvent(ctx, &event); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.config.Store(&next)

	slog.Info("Settlement configuration updated", "kind", kind, "version", next.Version, "detail", detail)
	s.publish(ctx, event)
	out := next
	return &out, nil
}

func (s *SettlementService) SetFees(ctx context.Context, caller models.Address, fees models.FeeSchedule) (*models.GlobalConfig, error) {
	return s.updateConfig(ctx, caller, models.EventFeesUpdated, func(cfg *models.GlobalConfig) (string, error) {
		if !fees.Valid() {
			return "", models.NewSettlementError(models.KindInvalidAmount,
				"fee rates must be within [0, %d] bps, got provider=%d payer=%d execution=%d",
				models.MaxBps, fees.ProviderCommissionBps, fees.PayerFeeBps, fees.ExecutionCommissionBps)
		}
		cfg.Fees = fees
		return fmt.Sprintf("provider_commission_bps=%d payer_fee_bps=%d execution_commission_bps=%d",
			fees.ProviderCommissionBps, fees.PayerFeeBps, fees.ExecutionCommissionBps), nil
	})
}

func (s *SettlementService) SetFeeWallet(ctx context.Context, caller models.Address, feeWallet models.Address) (*models.GlobalConfig, error) {
	return s.updateConfig(ctx, caller, models.EventFeeWalletUpdated, func(cfg *models.GlobalConfig) (string, error) {
		if feeWallet.IsZero() {
			return "", models.NewSettlementError(models.KindZeroAddress, "fee wallet is required")
		}
		cfg.FeeWallet = models.NormalizeAddress(string(feeWallet))
		return "fee_wallet=" + string(cfg.FeeWallet), nil
	})
}

func (s *SettlementService) SetPaused(ctx context.Context, caller models.Address, paused bool) (*models.GlobalConfig, error) {
	return s.updateConfig(ctx, caller, models.EventPausedSet, func(cfg *models.GlobalConfig) (string, error) {
		cfg.Paused = paused
		return fmt.Sprintf("paused=%t", paused), nil
	})
}

// ============================================================================
// VIEWS
// ============================================================================

func (s *SettlementService) GetPolicy(id models.PolicyID) (models.Policy, error) {
	return s.registry.Read(id)
}

func (s *SettlementService) PolicyCount() uint64 {
	return s.registry.Count()
}

func (s *SettlementService) ListPolicies() []models.Policy {
	return s.registry.List()
}

// Config returns a copy of the current configuration snapshot.
func (s *SettlementService) Config() (models.GlobalConfig, error) {
	cfg, err := s.snapshot()
	if err != nil {
		return models.GlobalConfig{}, err
	}
	return *cfg, nil
}

func (s *SettlementService) QuoteStandard(premium models.Amount) (models.Quote, error) {
	cfg, err := s.snapshot()
	if err != nil {
		return models.Quote{}, err
	}
	return s.fees.QuoteStandard(premium, cfg.Fees)
}

func (s *SettlementService) QuoteExecution(premium models.Amount) (models.Quote, error) {
	cfg, err := s.snapshot()
	if err != nil {
		return models.Quote{}, err
	}
	return s.fees.QuoteExecution(premium, cfg.Fees)
}

// QuotePolicy quotes the premium payment PayPremium currently expects for id.
func (s *SettlementService) QuotePolicy(id models.PolicyID) (models.Quote, error) {
	cfg, err := s.snapshot()
	if err != nil {
		return models.Quote{}, err
	}
	p, err := s.registry.Read(id)
	if err != nil {
		return models.Quote{}, err
	}
	return s.fees.Quote(p.Premium, p.FeeMode, cfg.Fees)
}

func (s *SettlementService) PolicyEvents(ctx context.Context, id models.PolicyID) ([]models.SettlementEvent, error) {
	if _, err := s.registry.Read(id); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, id)
}

// BeneficiaryClaims is the payout history of a policy as seen by its
// beneficiary. Nobody else may read it.
func (s *SettlementService) BeneficiaryClaims(ctx context.Context, caller models.Address, id models.PolicyID) ([]models.SettlementEvent, error) {
	p, err := s.registry.Read(id)
	if err != nil {
		return nil, err
	}
	if err := s.access.RequireBeneficiary(&p, caller); err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	claims := []models.SettlementEvent{}
	for _, e := range events {
		if e.Kind == models.EventClaimPaid {
			claims = append(claims, e)
		}
	}
	return claims, nil
}
