package models

import (
	"strings"
	"time"
)

type PolicyID uint64

// Address identifies a provider, beneficiary, payer, owner or wallet.
// Hex addresses are compared case-insensitively.
type Address string

func NormalizeAddress(s string) Address {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return Address("0x" + strings.ToLower(s[2:]))
	}
	return Address(s)
}

// IsZero reports the empty identity and the all-zero hex address.
func (a Address) IsZero() bool {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return true
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strings.Trim(s[2:], "0") == ""
	}
	return false
}

func (a Address) String() string {
	return string(a)
}

type Policy struct {
	ID            PolicyID  `db:"id" json:"policy_id"`
	Provider      Address   `db:"provider" json:"provider"`
	Beneficiary   Address   `db:"beneficiary" json:"beneficiary"`
	Premium       Amount    `db:"premium" json:"premium"`
	CoverageLimit Amount    `db:"coverage_limit" json:"coverage_limit"`
	Start         uint64    `db:"start_time" json:"start"`
	End           uint64    `db:"end_time" json:"end"`
	Liquidity     Amount    `db:"liquidity" json:"liquidity"`
	Claimed       Amount    `db:"claimed" json:"claimed"`
	FeeMode       FeeMode   `db:"fee_mode" json:"fee_mode"`
	Active        bool      `db:"active" json:"active"`
	Version       uint64    `db:"version" json:"version"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// PolicyTerms are the caller-supplied fields of a new policy.
type PolicyTerms struct {
	Provider      Address
	Beneficiary   Address
	Premium       Amount
	CoverageLimit Amount
	FeeMode       FeeMode
	Start         uint64
	End           uint64
}

// InWindow reports whether t lies inside [Start, End], treating a zero bound
// as unbounded.
func (p *Policy) InWindow(t time.Time) bool {
	now := uint64(max(t.Unix(), 0))
	if p.Start != 0 && now < p.Start {
		return false
	}
	if p.End != 0 && now > p.End {
		return false
	}
	return true
}

// RemainingCoverage is CoverageLimit - Claimed.
func (p *Policy) RemainingCoverage() Amount {
	rest, err := p.CoverageLimit.Sub(p.Claimed)
	if err != nil {
		return Amount{}
	}
	return rest
}

// Unencumbered is the liquidity not reserved for future claims. Active
// policies reserve their remaining coverage; deactivated ones reserve nothing.
func (p *Policy) Unencumbered() Amount {
	if !p.Active {
		return p.Liquidity
	}
	reserved := p.RemainingCoverage()
	if reserved.Cmp(p.Liquidity) >= 0 {
		return Amount{}
	}
	free, _ := p.Liquidity.Sub(reserved)
	return free
}
