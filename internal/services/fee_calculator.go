package services

import (
	"fmt"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"
)

// FeeCalculator splits premiums and claims. It holds no state; the fee
// schedule is always passed in from a config snapshot.
type FeeCalculator struct{}

func NewFeeCalculator() *FeeCalculator {
	return &FeeCalculator{}
}

// share returns floor(amount * bps / 10000).
func share(amount models.Amount, bps uint16) (models.Amount, error) {
	if bps > models.MaxBps {
		return models.Amount{}, models.NewSettlementError(models.KindInvalidAmount, "fee rate %d bps out of range", bps)
	}
	out, err := amount.MulDiv64(uint64(bps), uint64(models.MaxBps))
	if err != nil {
		return models.Amount{}, overflow(err)
	}
	return out, nil
}

func overflow(err error) error {
	return models.NewSettlementError(models.KindInvalidAmount, "%v", err)
}

// QuoteStandard: payer pays P + payerFee, provider keeps P - commission,
// platform takes both fees.
func (c *FeeCalculator) QuoteStandard(premium models.Amount, fees models.FeeSchedule) (models.Quote, error) {
	payerFee, err := share(premium, fees.PayerFeeBps)
	if err != nil {
		return models.Quote{}, err
	}
	commission, err := share(premium, fees.ProviderCommissionBps)
	if err != nil {
		return models.Quote{}, err
	}
	total, err := premium.Add(payerFee)
	if err != nil {
		return models.Quote{}, overflow(err)
	}
	provider, err := premium.Sub(commission)
	if err != nil {
		return models.Quote{}, overflow(err)
	}
	platform, err := payerFee.Add(commission)
	if err != nil {
		return models.Quote{}, overflow(err)
	}
	return models.Quote{TotalPayable: total, ProviderReceives: provider, PlatformFee: platform}, nil
}

// QuoteExecution: payer pays exactly P, the commission comes out of the
// provider's share.
func (c *FeeCalculator) QuoteExecution(premium models.Amount, fees models.FeeSchedule) (models.Quote, error) {
	commission, err := share(premium, fees.ExecutionCommissionBps)
	if err != nil {
		return models.Quote{}, err
	}
	provider, err := premium.Sub(commission)
	if err != nil {
		return models.Quote{}, overflow(err)
	}
	return models.Quote{TotalPayable: premium, ProviderReceives: provider, PlatformFee: commission}, nil
}

// Quote picks exactly one split function for the mode.
func (c *FeeCalculator) Quote(premium models.Amount, mode models.FeeMode, fees models.FeeSchedule) (models.Quote, error) {
	switch mode {
	case models.FeeModeStandard:
		return c.QuoteStandard(premium, fees)
	case models.FeeModeExecution:
		return c.QuoteExecution(premium, fees)
	}
	return models.Quote{}, fmt.Errorf("unknown fee mode %q", mode)
}

// SplitClaim deducts the provider-side commission of the policy's mode
// from a gross claim.
func (c *FeeCalculator) SplitClaim(amount models.Amount, mode models.FeeMode, fees models.FeeSchedule) (models.ClaimSplit, error) {
	var rate uint16
	switch mode {
	case models.FeeModeStandard:
		rate = fees.ProviderCommissionBps
	case models.FeeModeExecution:
		rate = fees.ExecutionCommissionBps
	default:
		return models.ClaimSplit{}, fmt.Errorf("unknown fee mode %q", mode)
	}
	fee, err := share(amount, rate)
	if err != nil {
		return models.ClaimSplit{}, err
	}
	net, err := amount.Sub(fee)
	if err != nil {
		return models.ClaimSplit{}, overflow(err)
	}
	return models.ClaimSplit{BeneficiaryNet: net, PlatformFee: fee}, nil
}
