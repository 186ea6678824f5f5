package repository

import (
	"context"
	"errors"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"
)

// ErrVersionConflict means a stored policy moved on since it was read.
var ErrVersionConflict = errors.New("policy version conflict")

// ErrDuplicateEvent means an event with the same id was already recorded.
var ErrDuplicateEvent = errors.New("settlement event already recorded")

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("store transaction already finished")

// SettlementStore persists the record set: policies, their events and the
// configuration singleton.
type SettlementStore interface {
	LoadPolicies(ctx context.Context) ([]models.Policy, error)
	LoadConfig(ctx context.Context) (*models.GlobalConfig, error)
	ListEvents(ctx context.Context, policyID models.PolicyID) ([]models.SettlementEvent, error)
	Begin(ctx context.Context) (StoreTx, error)
}

// StoreTx groups the writes of one settlement operation.
type StoreTx interface {
	UpsertPolicy(ctx context.Context, p *models.Policy) error
	AppendEvent(ctx context.Context, e *models.SettlementEvent) error
	SaveConfig(ctx context.Context, cfg *models.GlobalConfig) error
	Commit() error
	Rollback() error
}
