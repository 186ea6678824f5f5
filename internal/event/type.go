package event

import (
	"time"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"
)

const SettlementEventsQueue string = "settlement_events"

// SettlementEventMessage is the wire form of a committed settlement event.
// Amounts travel as base-unit decimal strings.
type SettlementEventMessage struct {
	EventID       string           `json:"eventId"`
	Type          models.EventKind `json:"type"`
	PolicyID      uint64           `json:"policyId,omitempty"`
	Actor         string           `json:"actor,omitempty"`
	Counterparty  string           `json:"counterparty,omitempty"`
	Gross         string           `json:"gross"`
	Net           string           `json:"net"`
	Fee           string           `json:"fee"`
	Liquidity     string           `json:"liquidity"`
	Active        bool             `json:"active"`
	ConfigVersion uint64           `json:"configVersion"`
	Detail        string           `json:"detail,omitempty"`
	OccurredAt    time.Time        `json:"occurredAt"`
}

func NewSettlementEventMessage(e models.SettlementEvent) SettlementEventMessage {
	return SettlementEventMessage{
		EventID:       e.ID.String(),
		Type:          e.Kind,
		PolicyID:      uint64(e.PolicyID),
		Actor:         e.Actor.String(),
		Counterparty:  e.Counterparty.String(),
		Gross:         e.Gross.String(),
		Net:           e.Net.String(),
		Fee:           e.Fee.String(),
		Liquidity:     e.Liquidity.String(),
		Active:        e.Active,
		ConfigVersion: e.ConfigVersion,
		Detail:        e.Detail,
		OccurredAt:    e.CreatedAt,
	}
}
