package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/repository"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

const (
	testOwner       = models.Address("0x00000000000000000000000000000000000000a1")
	testFeeWallet   = models.Address("0x00000000000000000000000000000000000000f1")
	testProvider    = models.Address("0x00000000000000000000000000000000000000b1")
	testBeneficiary = models.Address("0x00000000000000000000000000000000000000c1")
	testPayer       = models.Address("0x00000000000000000000000000000000000000d1")
	testStranger    = models.Address("0x00000000000000000000000000000000000000e1")
)

var testNow = time.Unix(1_700_000_000, 0)

type recordingSink struct {
	mu     sync.Mutex
	events []models.SettlementEvent
}

func (s *recordingSink) Publish(_ context.Context, e models.SettlementEvent) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *recordingSink) kinds() []models.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.EventKind, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Kind)
	}
	return out
}

type testEngine struct {
	svc    *SettlementService
	store  *repository.MemoryStore
	ledger *wallet.Ledger
	sink   *recordingSink
}

func defaultFees() models.FeeSchedule {
	return models.FeeSchedule{ProviderCommissionBps: 0, PayerFeeBps: 100, ExecutionCommissionBps: 100}
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	return newTestEngineOnStore(t, repository.NewMemoryStore(), wallet.NewLedger())
}

func newTestEngineOnStore(t *testing.T, store *repository.MemoryStore, ledger *wallet.Ledger) *testEngine {
	t.Helper()
	clock := func() time.Time { return testNow }
	sink := &recordingSink{}
	svc := NewSettlementService(NewPolicyRegistry(clock), store, ledger, sink, clock)
	err := svc.Bootstrap(context.Background(), models.GlobalConfig{
		Owner:     testOwner,
		FeeWallet: testFeeWallet,
		Fees:      defaultFees(),
	})
	require.NoError(t, err)
	return &testEngine{svc: svc, store: store, ledger: ledger, sink: sink}
}

func amt(v uint64) models.Amount {
	return models.NewAmount(v)
}

func (e *testEngine) createPolicy(t *testing.T, premium, coverage uint64, mode models.FeeMode) models.PolicyID {
	t.Helper()
	receipt, err := e.svc.CreatePolicy(context.Background(), testProvider, CreatePolicyParams{
		Beneficiary:   testBeneficiary,
		Premium:       amt(premium),
		CoverageLimit: amt(coverage),
		FeeMode:       mode,
	})
	require.NoError(t, err)
	return receipt.Policy.ID
}

func (e *testEngine) fund(t *testing.T, id models.PolicyID, amount uint64) {
	t.Helper()
	_, err := e.svc.FundLiquidity(context.Background(), testProvider, id, amt(amount))
	require.NoError(t, err)
}

func assertKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	got, ok := models.KindOf(err)
	require.True(t, ok, "expected settlement error, got %v", err)
	assert.Equal(t, kind, got, "unexpected error: %v", err)
}

// ============================================================================
// TEST SUITE 1: END-TO-END SETTLEMENT
// ============================================================================

func TestSettlement_EndToEnd_StandardMode(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	id := e.createPolicy(t, 100, 500, models.FeeModeStandard)
	assert.Equal(t, models.PolicyID(1), id)
	e.fund(t, id, 500)

	quote, err := e.svc.QuotePolicy(id)
	require.NoError(t, err)
	assert.Equal(t, amt(101), quote.TotalPayable, "1% payer fee on top of the premium")

	_, err = e.svc.PayPremium(ctx, testPayer, id, amt(100))
	assertKind(t, err, models.KindInvalidAmount)

	receipt, err := e.svc.PayPremium(ctx, testPayer, id, amt(101))
	require.NoError(t, err)
	assert.Equal(t, amt(100), receipt.Event.Net)
	assert.Equal(t, amt(1), receipt.Event.Fee)
	assert.Equal(t, amt(100), e.ledger.Balance(testProvider))
	assert.Equal(t, amt(1), e.ledger.Balance(testFeeWallet))

	_, err = e.svc.PayClaim(ctx, testProvider, id, amt(200))
	require.NoError(t, err)

	_, err = e.svc.PayClaim(ctx, testProvider, id, amt(400))
	assertKind(t, err, models.KindInsufficientLiquidity)

	_, err = e.svc.PayClaim(ctx, testProvider, id, amt(301))
	assertKind(t, err, models.KindInsufficientLiquidity)

	_, err = e.svc.PayClaim(ctx, testProvider, id, amt(300))
	require.NoError(t, err)

	_, err = e.svc.PayClaim(ctx, testProvider, id, amt(1))
	assertKind(t, err, models.KindAlreadyClaimed)

	p, err := e.svc.GetPolicy(id)
	require.NoError(t, err)
	assert.Equal(t, amt(500), p.Claimed)
	assert.True(t, p.Liquidity.IsZero())
	// Standard mode with zero provider commission pays claims in full.
	assert.Equal(t, amt(500), e.ledger.Balance(testBeneficiary))

	assert.Equal(t, []models.EventKind{
		models.EventPolicyCreated,
		models.EventPolicyFunded,
		models.EventPremiumPaid,
		models.EventClaimPaid,
		models.EventClaimPaid,
	}, e.sink.kinds())

	stored, err := e.svc.PolicyEvents(ctx, id)
	require.NoError(t, err)
	assert.Len(t, stored, 5)
}

func TestSettlement_ExecutionMode(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	id := e.createPolicy(t, 1000, 1000, models.FeeModeExecution)
	e.fund(t, id, 1000)

	receipt, err := e.svc.PayPremium(ctx, testPayer, id, amt(1000))
	require.NoError(t, err)
	assert.Equal(t, amt(990), receipt.Event.Net)
	assert.Equal(t, amt(10), receipt.Event.Fee)

	claim, err := e.svc.PayClaim(ctx, testProvider, id, amt(500))
	require.NoError(t, err)
	assert.Equal(t, amt(495), claim.Event.Net)
	assert.Equal(t, amt(5), claim.Event.Fee)
	assert.Equal(t, amt(495), e.ledger.Balance(testBeneficiary))
	assert.Equal(t, amt(15), e.ledger.Balance(testFeeWallet))

	p, err := e.svc.GetPolicy(id)
	require.NoError(t, err)
	assert.Equal(t, amt(500), p.Liquidity, "liquidity drops by the gross claim")
}

func TestSettlement_PolicyIDsAreSequential(t *testing.T) {
	e := newTestEngine(t)
	for i := 1; i <= 5; i++ {
		id := e.createPolicy(t, 10, 10, models.FeeModeStandard)
		assert.Equal(t, models.PolicyID(i), id)
	}
	assert.Equal(t, uint64(5), e.svc.PolicyCount())

	_, err := e.svc.CreatePolicy(context.Background(), testProvider, CreatePolicyParams{
		Beneficiary:   testBeneficiary,
		Premium:       amt(0),
		CoverageLimit: amt(10),
		FeeMode:       models.FeeModeStandard,
	})
	assertKind(t, err, models.KindInvalidAmount)
	assert.Equal(t, uint64(5), e.svc.PolicyCount(), "rejected creation consumes no id")

	assert.Equal(t, models.PolicyID(6), e.createPolicy(t, 10, 10, models.FeeModeStandard))
}

// ============================================================================
// TEST SUITE 2: VALIDATION AND ACCESS CONTROL
// ============================================================================

func TestCreatePolicy_Rejects(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.svc.CreatePolicy(ctx, testProvider, CreatePolicyParams{
		Premium: amt(1), CoverageLimit: amt(1), FeeMode: models.FeeModeStandard,
	})
	assertKind(t, err, models.KindZeroAddress)

	_, err = e.svc.CreatePolicy(ctx, testProvider, CreatePolicyParams{
		Beneficiary: testBeneficiary, Premium: amt(1), CoverageLimit: amt(1),
		FeeMode: models.FeeModeStandard, Start: 200, End: 100,
	})
	assertKind(t, err, models.KindBadTimeWindow)

	_, err = e.svc.PayPremium(ctx, testPayer, 42, amt(1))
	assertKind(t, err, models.KindInvalidPolicy)
}

func TestPayPremium_OutsideWindow(t *testing.T) {
	e := newTestEngine(t)
	now := uint64(testNow.Unix())
	receipt, err := e.svc.CreatePolicy(context.Background(), testProvider, CreatePolicyParams{
		Beneficiary: testBeneficiary, Premium: amt(100), CoverageLimit: amt(100),
		FeeMode: models.FeeModeExecution, Start: now + 10, End: now + 100,
	})
	require.NoError(t, err)

	_, err = e.svc.PayPremium(context.Background(), testPayer, receipt.Policy.ID, amt(100))
	assertKind(t, err, models.KindBadTimeWindow)
}

func TestProviderOnlyOperations(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := e.createPolicy(t, 100, 100, models.FeeModeStandard)
	e.fund(t, id, 300)

	_, err := e.svc.PayClaim(ctx, testStranger, id, amt(10))
	assertKind(t, err, models.KindNotProvider)

	_, err = e.svc.PayClaim(ctx, testBeneficiary, id, amt(10))
	assertKind(t, err, models.KindNotProvider)

	_, err = e.svc.WithdrawLiquidity(ctx, testStranger, id, amt(10))
	assertKind(t, err, models.KindNotProvider)

	_, err = e.svc.PayClaim(ctx, testProvider, id, amt(0))
	assertKind(t, err, models.KindInvalidAmount)
}

func TestOwnerOnlyOperations(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := e.createPolicy(t, 100, 100, models.FeeModeStandard)

	_, err := e.svc.SetFees(ctx, testStranger, defaultFees())
	assertKind(t, err, models.KindNotOwner)
	_, err = e.svc.SetFeeWallet(ctx, testProvider, testStranger)
	assertKind(t, err, models.KindNotOwner)
	_, err = e.svc.SetPaused(ctx, testProvider, true)
	assertKind(t, err, models.KindNotOwner)
	_, err = e.svc.SetPolicyActive(ctx, testProvider, id, false)
	assertKind(t, err, models.KindNotOwner)

	cfg, err := e.svc.Config()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cfg.Version)
}

func TestSetFees(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.svc.SetFees(ctx, testOwner, models.FeeSchedule{PayerFeeBps: 10001})
	assertKind(t, err, models.KindInvalidAmount)

	cfg, err := e.svc.SetFees(ctx, testOwner, models.FeeSchedule{ProviderCommissionBps: 250, PayerFeeBps: 0, ExecutionCommissionBps: 10000})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), cfg.Version)

	quote, err := e.svc.QuoteStandard(amt(1000))
	require.NoError(t, err)
	assert.Equal(t, amt(1000), quote.TotalPayable)
	assert.Equal(t, amt(975), quote.ProviderReceives)
	assert.Equal(t, amt(25), quote.PlatformFee)

	quote, err = e.svc.QuoteExecution(amt(1000))
	require.NoError(t, err)
	assert.True(t, quote.ProviderReceives.IsZero(), "a 100% commission leaves the provider nothing")
}

func TestSetFeeWallet(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.svc.SetFeeWallet(ctx, testOwner, models.Address("0x0000000000000000000000000000000000000000"))
	assertKind(t, err, models.KindZeroAddress)

	newWallet := models.Address("0x00000000000000000000000000000000000000F2")
	cfg, err := e.svc.SetFeeWallet(ctx, testOwner, newWallet)
	require.NoError(t, err)
	assert.Equal(t, models.NormalizeAddress(string(newWallet)), cfg.FeeWallet)

	id := e.createPolicy(t, 100, 100, models.FeeModeStandard)
	_, err = e.svc.PayPremium(ctx, testPayer, id, amt(101))
	require.NoError(t, err)
	assert.Equal(t, amt(1), e.ledger.Balance(newWallet))
	assert.True(t, e.ledger.Balance(testFeeWallet).IsZero())
}

// ============================================================================
// TEST SUITE 3: PAUSE AND POLICY STATUS
// ============================================================================

func TestPause_BlocksValueMovementWithoutSideEffects(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := e.createPolicy(t, 100, 100, models.FeeModeStandard)
	e.fund(t, id, 200)

	_, err := e.svc.SetPaused(ctx, testOwner, true)
	require.NoError(t, err)

	before, err := e.svc.GetPolicy(id)
	require.NoError(t, err)
	balances := e.ledger.Balances()
	eventsBefore, err := e.svc.PolicyEvents(ctx, id)
	require.NoError(t, err)

	_, err = e.svc.PayPremium(ctx, testPayer, id, amt(101))
	assertKind(t, err, models.KindPaused)
	_, err = e.svc.PayClaim(ctx, testProvider, id, amt(10))
	assertKind(t, err, models.KindPaused)
	_, err = e.svc.FundLiquidity(ctx, testProvider, id, amt(10))
	assertKind(t, err, models.KindPaused)
	_, err = e.svc.WithdrawLiquidity(ctx, testProvider, id, amt(10))
	assertKind(t, err, models.KindPaused)
	_, err = e.svc.CreatePolicy(ctx, testProvider, CreatePolicyParams{
		Beneficiary: testBeneficiary, Premium: amt(1), CoverageLimit: amt(1), FeeMode: models.FeeModeStandard,
	})
	assertKind(t, err, models.KindPaused)

	after, err := e.svc.GetPolicy(id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, balances, e.ledger.Balances())
	eventsAfter, err := e.svc.PolicyEvents(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, eventsBefore, eventsAfter)
	assert.Equal(t, uint64(1), e.svc.PolicyCount())

	// Views and admin operations keep working while paused.
	_, err = e.svc.QuotePolicy(id)
	assert.NoError(t, err)
	_, err = e.svc.SetPolicyActive(ctx, testOwner, id, false)
	assert.NoError(t, err)

	_, err = e.svc.SetPaused(ctx, testOwner, false)
	require.NoError(t, err)
	_, err = e.svc.SetPolicyActive(ctx, testOwner, id, true)
	require.NoError(t, err)
	_, err = e.svc.PayPremium(ctx, testPayer, id, amt(101))
	assert.NoError(t, err)
}

func TestSetPolicyActive_NoOpTransitions(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := e.createPolicy(t, 100, 100, models.FeeModeStandard)

	_, err := e.svc.SetPolicyActive(ctx, testOwner, id, true)
	assertKind(t, err, models.KindPolicyActive)

	_, err = e.svc.SetPolicyActive(ctx, testOwner, id, false)
	require.NoError(t, err)

	_, err = e.svc.SetPolicyActive(ctx, testOwner, id, false)
	assertKind(t, err, models.KindPolicyInactive)

	_, err = e.svc.SetPolicyActive(ctx, testOwner, 99, false)
	assertKind(t, err, models.KindInvalidPolicy)
}

func TestInactivePolicy(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := e.createPolicy(t, 100, 100, models.FeeModeStandard)
	e.fund(t, id, 150)

	// Active: the remaining coverage stays reserved.
	_, err := e.svc.WithdrawLiquidity(ctx, testProvider, id, amt(51))
	assertKind(t, err, models.KindInsufficientLiquidity)
	_, err = e.svc.WithdrawLiquidity(ctx, testProvider, id, amt(50))
	require.NoError(t, err)

	_, err = e.svc.SetPolicyActive(ctx, testOwner, id, false)
	require.NoError(t, err)

	_, err = e.svc.PayPremium(ctx, testPayer, id, amt(101))
	assertKind(t, err, models.KindPolicyInactive)
	_, err = e.svc.PayClaim(ctx, testProvider, id, amt(10))
	assertKind(t, err, models.KindPolicyInactive)
	_, err = e.svc.FundLiquidity(ctx, testProvider, id, amt(10))
	assertKind(t, err, models.KindPolicyInactive)

	// Inactive: everything left can be withdrawn.
	receipt, err := e.svc.WithdrawLiquidity(ctx, testProvider, id, amt(100))
	require.NoError(t, err)
	assert.True(t, receipt.Policy.Liquidity.IsZero())
	assert.Equal(t, amt(150), e.ledger.Balance(testProvider))
}

// ============================================================================
// TEST SUITE 4: ATOMICITY AND REENTRANCY
// ============================================================================

func TestTransferFailure_RollsBackEverything(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := e.createPolicy(t, 100, 100, models.FeeModeStandard)
	e.fund(t, id, 100)

	before, err := e.svc.GetPolicy(id)
	require.NoError(t, err)
	eventsBefore, err := e.svc.PolicyEvents(ctx, id)
	require.NoError(t, err)

	rejected := errors.New("recipient refuses funds")
	e.ledger.SetReceiveHook(func(_ context.Context, tr wallet.Transfer) error {
		if tr.To == testBeneficiary {
			return rejected
		}
		return nil
	})

	_, err = e.svc.PayClaim(ctx, testProvider, id, amt(40))
	require.Error(t, err)
	assert.ErrorIs(t, err, rejected)

	after, err := e.svc.GetPolicy(id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	eventsAfter, err := e.svc.PolicyEvents(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, eventsBefore, eventsAfter)
	assert.True(t, e.ledger.Balance(testBeneficiary).IsZero())

	// The next operation sees the rolled-back record and succeeds.
	e.ledger.SetReceiveHook(nil)
	receipt, err := e.svc.PayClaim(ctx, testProvider, id, amt(40))
	require.NoError(t, err)
	assert.Equal(t, before.Version+1, receipt.Policy.Version)
}

func TestReentrantCallIsRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := e.createPolicy(t, 100, 100, models.FeeModeStandard)
	other := e.createPolicy(t, 100, 100, models.FeeModeStandard)
	e.fund(t, id, 100)
	e.fund(t, other, 100)

	var innerSame, innerWithdraw error
	e.ledger.SetReceiveHook(func(hctx context.Context, tr wallet.Transfer) error {
		if tr.To != testBeneficiary {
			return nil
		}
		_, innerSame = e.svc.PayClaim(hctx, testProvider, id, amt(10))
		_, innerWithdraw = e.svc.WithdrawLiquidity(hctx, testProvider, id, amt(1))
		return nil
	})

	receipt, err := e.svc.PayClaim(ctx, testProvider, id, amt(50))
	require.NoError(t, err)
	assertKind(t, innerSame, models.KindReentrancy)
	assertKind(t, innerWithdraw, models.KindReentrancy)
	assert.Equal(t, amt(50), receipt.Policy.Claimed)

	p, err := e.svc.GetPolicy(id)
	require.NoError(t, err)
	assert.Equal(t, amt(50), p.Claimed, "only the outer claim applied")

	// A different policy is not locked by the outer call chain.
	var nested error
	e.ledger.SetReceiveHook(func(hctx context.Context, tr wallet.Transfer) error {
		if tr.To == testBeneficiary && nested == nil {
			_, nested = e.svc.FundLiquidity(hctx, testPayer, other, amt(5))
			if nested == nil {
				nested = errors.New("done")
			}
		}
		return nil
	})
	_, err = e.svc.PayClaim(ctx, testProvider, id, amt(10))
	require.NoError(t, err)
	assert.EqualError(t, nested, "done")
	p, err = e.svc.GetPolicy(other)
	require.NoError(t, err)
	assert.Equal(t, amt(105), p.Liquidity)
}

// ============================================================================
// TEST SUITE 5: CONCURRENCY AND RECOVERY
// ============================================================================

func TestConcurrentClaims_NeverExceedCoverage(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := e.createPolicy(t, 100, 300, models.FeeModeStandard)
	e.fund(t, id, 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.PayClaim(ctx, testProvider, id, amt(10))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			kind, _ := models.KindOf(err)
			assert.Contains(t, []models.ErrorKind{models.KindAlreadyClaimed, models.KindInsufficientLiquidity}, kind)
		}()
	}
	wg.Wait()

	assert.Equal(t, 30, succeeded)
	p, err := e.svc.GetPolicy(id)
	require.NoError(t, err)
	assert.Equal(t, amt(300), p.Claimed)
	assert.Equal(t, amt(700), p.Liquidity)
	assert.Equal(t, amt(300), e.ledger.Balance(testBeneficiary))
}

func TestConcurrentCreate_UniqueSequentialIDs(t *testing.T) {
	e := newTestEngine(t)

	const n = 40
	ids := make(chan models.PolicyID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipt, err := e.svc.CreatePolicy(context.Background(), testProvider, CreatePolicyParams{
				Beneficiary: testBeneficiary, Premium: amt(1), CoverageLimit: amt(1), FeeMode: models.FeeModeStandard,
			})
			if assert.NoError(t, err) {
				ids <- receipt.Policy.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[models.PolicyID]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	for id := models.PolicyID(1); id <= n; id++ {
		assert.True(t, seen[id], "missing id %d", id)
	}
}

func TestBootstrap_RestoresFromStore(t *testing.T) {
	store := repository.NewMemoryStore()
	ledger := wallet.NewLedger()
	first := newTestEngineOnStore(t, store, ledger)
	ctx := context.Background()

	id := first.createPolicy(t, 100, 100, models.FeeModeStandard)
	first.fund(t, id, 80)
	_, err := first.svc.SetPaused(ctx, testOwner, true)
	require.NoError(t, err)

	second := newTestEngineOnStore(t, store, ledger)
	p, err := second.svc.GetPolicy(id)
	require.NoError(t, err)
	assert.Equal(t, amt(80), p.Liquidity)
	assert.Equal(t, uint64(1), second.svc.PolicyCount())

	cfg, err := second.svc.Config()
	require.NoError(t, err)
	assert.True(t, cfg.Paused)
	assert.Equal(t, uint64(2), cfg.Version)
}

func TestBootstrap_RequiresFeeWallet(t *testing.T) {
	svc := NewSettlementService(NewPolicyRegistry(nil), repository.NewMemoryStore(), wallet.NewLedger(), nil, nil)
	err := svc.Bootstrap(context.Background(), models.GlobalConfig{Owner: testOwner, Fees: defaultFees()})
	assertKind(t, err, models.KindZeroAddress)

	_, err = svc.QuoteStandard(amt(1))
	assert.ErrorIs(t, err, ErrNotBootstrapped)
}

func TestBeneficiaryClaims_OnlyForBeneficiary(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id := e.createPolicy(t, 100, 500, models.FeeModeStandard)
	e.fund(t, id, 500)

	claims, err := e.svc.BeneficiaryClaims(ctx, testBeneficiary, id)
	require.NoError(t, err)
	assert.Empty(t, claims)

	_, err = e.svc.PayClaim(ctx, testProvider, id, amt(120))
	require.NoError(t, err)
	_, err = e.svc.PayClaim(ctx, testProvider, id, amt(80))
	require.NoError(t, err)

	claims, err = e.svc.BeneficiaryClaims(ctx, testBeneficiary, id)
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, amt(120), claims[0].Gross)
	assert.Equal(t, amt(80), claims[1].Gross)

	_, err = e.svc.BeneficiaryClaims(ctx, testProvider, id)
	assertKind(t, err, models.KindNotBeneficiary)
	_, err = e.svc.BeneficiaryClaims(ctx, "", id)
	assertKind(t, err, models.KindNotBeneficiary)
	_, err = e.svc.BeneficiaryClaims(ctx, testBeneficiary, 99)
	assertKind(t, err, models.KindInvalidPolicy)
}
