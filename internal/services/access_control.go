package services

import "github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"

// AccessControl answers role questions against a config snapshot or a policy.
type AccessControl struct{}

func NewAccessControl() *AccessControl {
	return &AccessControl{}
}

func (a *AccessControl) RequireOwner(cfg *models.GlobalConfig, caller models.Address) error {
	if caller.IsZero() || models.NormalizeAddress(string(caller)) != cfg.Owner {
		return models.NewSettlementError(models.KindNotOwner, "caller %q is not the owner", caller)
	}
	return nil
}

func (a *AccessControl) RequireProvider(p *models.Policy, caller models.Address) error {
	if caller.IsZero() || models.NormalizeAddress(string(caller)) != p.Provider {
		return models.NewSettlementError(models.KindNotProvider, "caller %q is not the provider of policy %d", caller, p.ID)
	}
	return nil
}

func (a *AccessControl) RequireBeneficiary(p *models.Policy, caller models.Address) error {
	if caller.IsZero() || models.NormalizeAddress(string(caller)) != p.Beneficiary {
		return models.NewSettlementError(models.KindNotBeneficiary, "caller %q is not the beneficiary of policy %d", caller, p.ID)
	}
	return nil
}
