package models

import (
	"time"

	"github.com/google/uuid"
)

type FeeSchedule struct {
	ProviderCommissionBps  uint16 `db:"provider_commission_bps" json:"provider_commission_bps"`
	PayerFeeBps            uint16 `db:"payer_fee_bps" json:"payer_fee_bps"`
	ExecutionCommissionBps uint16 `db:"execution_commission_bps" json:"execution_commission_bps"`
}

func (f FeeSchedule) Valid() bool {
	return f.ProviderCommissionBps <= MaxBps &&
		f.PayerFeeBps <= MaxBps &&
		f.ExecutionCommissionBps <= MaxBps
}

// GlobalConfig is the configuration singleton. Values are never mutated in
// place; setters publish a modified copy with a bumped Version.
type GlobalConfig struct {
	Owner     Address     `json:"owner"`
	FeeWallet Address     `json:"fee_wallet"`
	Fees      FeeSchedule `json:"fees"`
	Paused    bool        `json:"paused"`
	Version   uint64      `json:"version"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Quote is what a payer owes and how it is split.
type Quote struct {
	TotalPayable     Amount `json:"total_payable"`
	ProviderReceives Amount `json:"provider_receives"`
	PlatformFee      Amount `json:"platform_fee"`
}

// ClaimSplit is how a gross claim amount leaves the policy's liquidity.
type ClaimSplit struct {
	BeneficiaryNet Amount `json:"beneficiary_net"`
	PlatformFee    Amount `json:"platform_fee"`
}

// SettlementEvent records one applied operation. Fields unused by a kind
// stay zero. ID doubles as the transaction reference returned to callers.
type SettlementEvent struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Kind          EventKind `db:"kind" json:"kind"`
	PolicyID      PolicyID  `db:"policy_id" json:"policy_id,omitempty"`
	Actor         Address   `db:"actor" json:"actor"`
	Counterparty  Address   `db:"counterparty" json:"counterparty,omitempty"`
	Gross         Amount    `db:"gross" json:"gross"`
	Net           Amount    `db:"net" json:"net"`
	Fee           Amount    `db:"fee" json:"fee"`
	Liquidity     Amount    `db:"liquidity" json:"liquidity"`
	Active        bool      `db:"active" json:"active"`
	ConfigVersion uint64    `db:"config_version" json:"config_version"`
	Detail        string    `db:"detail" json:"detail,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Receipt is returned by value-moving operations.
type Receipt struct {
	TxRef  uuid.UUID       `json:"tx_ref"`
	Event  SettlementEvent `json:"event"`
	Policy Policy          `json:"policy"`
}
