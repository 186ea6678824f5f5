package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/utils"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const policyColumns = `id, provider, beneficiary, premium, coverage_limit, start_time, end_time,
	liquidity, claimed, fee_mode, active, version, created_at, updated_at`

func (s *PostgresStore) LoadPolicies(ctx context.Context) ([]models.Policy, error) {
	var policies []models.Policy
	query := `SELECT ` + policyColumns + ` FROM policies ORDER BY id`
	if err := s.db.SelectContext(ctx, &policies, query); err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}
	return policies, nil
}

// configRow flattens GlobalConfig for the settlement_config table.
type configRow struct {
	Owner                  string    `db:"owner"`
	FeeWallet              string    `db:"fee_wallet"`
	ProviderCommissionBps  int       `db:"provider_commission_bps"`
	PayerFeeBps            int       `db:"payer_fee_bps"`
	ExecutionCommissionBps int       `db:"execution_commission_bps"`
	Paused                 bool      `db:"paused"`
	Version                int64     `db:"version"`
	UpdatedAt              time.Time `db:"updated_at"`
}

func (s *PostgresStore) LoadConfig(ctx context.Context) (*models.GlobalConfig, error) {
	var row configRow
	query := `
		SELECT owner, fee_wallet, provider_commission_bps, payer_fee_bps, execution_commission_bps,
		paused, version, updated_at
		FROM settlement_config
		WHERE id = 1`
	err := s.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settlement config: %w", err)
	}
	return &models.GlobalConfig{
		Owner:     models.Address(row.Owner),
		FeeWallet: models.Address(row.FeeWallet),
		Fees: models.FeeSchedule{
			ProviderCommissionBps:  uint16(row.ProviderCommissionBps),
			PayerFeeBps:            uint16(row.PayerFeeBps),
			ExecutionCommissionBps: uint16(row.ExecutionCommissionBps),
		},
		Paused:    row.Paused,
		Version:   uint64(row.Version),
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, policyID models.PolicyID) ([]models.SettlementEvent, error) {
	events := []models.SettlementEvent{}
	query := `
		SELECT id, kind, policy_id, actor, counterparty, gross, net, fee, liquidity, active,
		config_version, detail, created_at
		FROM settlement_events
		WHERE ($1 = 0 OR policy_id = $1)
		ORDER BY seq`
	if err := s.db.SelectContext(ctx, &events, query, policyID); err != nil {
		return nil, fmt.Errorf("failed to list settlement events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) Begin(ctx context.Context) (StoreTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresTx{tx: tx}, nil
}

type postgresTx struct {
	tx *sqlx.Tx
}

// UpsertPolicy inserts version 1 or advances an existing row by exactly one
// version; anything else is a conflict.
func (t *postgresTx) UpsertPolicy(ctx context.Context, p *models.Policy) error {
	query := `
		INSERT INTO policies (` + policyColumns + `)
		VALUES (
			:id, :provider, :beneficiary, :premium, :coverage_limit, :start_time, :end_time,
			:liquidity, :claimed, :fee_mode, :active, :version, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			liquidity = EXCLUDED.liquidity,
			claimed = EXCLUDED.claimed,
			active = EXCLUDED.active,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
		WHERE policies.version = EXCLUDED.version - 1`

	err := utils.NamedExecWithCheck(ctx, t.tx, query, utils.ExecUpdate, p)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		slog.Warn("policy version conflict", "policy_id", p.ID, "version", p.Version)
		return fmt.Errorf("policy %d at version %d: %w", p.ID, p.Version, ErrVersionConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert policy in transaction: %w", err)
	}
	return nil
}

func (t *postgresTx) AppendEvent(ctx context.Context, e *models.SettlementEvent) error {
	query := `
		INSERT INTO settlement_events (
			id, kind, policy_id, actor, counterparty, gross, net, fee, liquidity, active,
			config_version, detail, created_at
		) VALUES (
			:id, :kind, :policy_id, :actor, :counterparty, :gross, :net, :fee, :liquidity, :active,
			:config_version, :detail, :created_at
		)`
	err := utils.NamedExecWithCheck(ctx, t.tx, query, utils.ExecInsert, e)
	if isUniqueViolation(err) {
		return fmt.Errorf("event %s: %w", e.ID, ErrDuplicateEvent)
	}
	if err != nil {
		return fmt.Errorf("failed to append settlement event in transaction: %w", err)
	}
	return nil
}

func (t *postgresTx) SaveConfig(ctx context.Context, cfg *models.GlobalConfig) error {
	row := configRow{
		Owner:                  string(cfg.Owner),
		FeeWallet:              string(cfg.FeeWallet),
		ProviderCommissionBps:  int(cfg.Fees.ProviderCommissionBps),
		PayerFeeBps:            int(cfg.Fees.PayerFeeBps),
		ExecutionCommissionBps: int(cfg.Fees.ExecutionCommissionBps),
		Paused:                 cfg.Paused,
		Version:                int64(cfg.Version),
		UpdatedAt:              cfg.UpdatedAt,
	}
	query := `
		INSERT INTO settlement_config (
			id, owner, fee_wallet, provider_commission_bps, payer_fee_bps, execution_commission_bps,
			paused, version, updated_at
		) VALUES (
			1, :owner, :fee_wallet, :provider_commission_bps, :payer_fee_bps, :execution_commission_bps,
			:paused, :version, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner,
			fee_wallet = EXCLUDED.fee_wallet,
			provider_commission_bps = EXCLUDED.provider_commission_bps,
			payer_fee_bps = EXCLUDED.payer_fee_bps,
			execution_commission_bps = EXCLUDED.execution_commission_bps,
			paused = EXCLUDED.paused,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at`
	if err := utils.NamedExecWithCheck(ctx, t.tx, query, utils.ExecUpdate, row); err != nil {
		return fmt.Errorf("failed to save settlement config in transaction: %w", err)
	}
	return nil
}

func (t *postgresTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *postgresTx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}
