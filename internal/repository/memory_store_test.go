package repository

import (
	"context"
	"testing"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CommitAppliesTogether(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	cfg, err := store.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertPolicy(ctx, &models.Policy{ID: 1, Version: 1}))
	require.NoError(t, tx.AppendEvent(ctx, &models.SettlementEvent{ID: uuid.New(), PolicyID: 1, Kind: models.EventPolicyCreated}))
	require.NoError(t, tx.SaveConfig(ctx, &models.GlobalConfig{Owner: "0xa1", Version: 1}))

	policies, err := store.LoadPolicies(ctx)
	require.NoError(t, err)
	assert.Empty(t, policies, "nothing is visible before commit")

	require.NoError(t, tx.Commit())
	assert.ErrorIs(t, tx.Commit(), ErrTxDone)
	assert.NoError(t, tx.Rollback())

	policies, err = store.LoadPolicies(ctx)
	require.NoError(t, err)
	assert.Len(t, policies, 1)

	cfg, err = store.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Address("0xa1"), cfg.Owner)

	events, err := store.ListEvents(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	events, err = store.ListEvents(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMemoryStore_RollbackDiscards(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertPolicy(ctx, &models.Policy{ID: 1, Version: 1}))
	require.NoError(t, tx.Rollback())
	assert.ErrorIs(t, tx.UpsertPolicy(ctx, &models.Policy{ID: 2, Version: 1}), ErrTxDone)

	policies, err := store.LoadPolicies(ctx)
	require.NoError(t, err)
	assert.Empty(t, policies)
}

func TestMemoryStore_VersionConflict(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tx, _ := store.Begin(ctx)
	require.NoError(t, tx.UpsertPolicy(ctx, &models.Policy{ID: 1, Version: 2}))
	require.NoError(t, tx.Commit())

	stale, _ := store.Begin(ctx)
	require.NoError(t, stale.UpsertPolicy(ctx, &models.Policy{ID: 1, Version: 2}))
	require.NoError(t, stale.AppendEvent(ctx, &models.SettlementEvent{ID: uuid.New(), PolicyID: 1}))
	assert.ErrorIs(t, stale.Commit(), ErrVersionConflict)

	events, err := store.ListEvents(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, events, "a conflicting commit applies nothing")
}

func TestMemoryStore_DuplicateEvent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id := uuid.New()

	tx, _ := store.Begin(ctx)
	require.NoError(t, tx.AppendEvent(ctx, &models.SettlementEvent{ID: id, PolicyID: 1}))
	require.NoError(t, tx.Commit())

	again, _ := store.Begin(ctx)
	require.NoError(t, again.UpsertPolicy(ctx, &models.Policy{ID: 1, Version: 1}))
	require.NoError(t, again.AppendEvent(ctx, &models.SettlementEvent{ID: id, PolicyID: 1}))
	assert.ErrorIs(t, again.Commit(), ErrDuplicateEvent)

	policies, err := store.LoadPolicies(ctx)
	require.NoError(t, err)
	assert.Empty(t, policies)
}

func TestMemoryStore_RejectsVersionGap(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tx, _ := store.Begin(ctx)
	require.NoError(t, tx.UpsertPolicy(ctx, &models.Policy{ID: 1, Version: 1}))
	require.NoError(t, tx.Commit())

	skipped, _ := store.Begin(ctx)
	require.NoError(t, skipped.UpsertPolicy(ctx, &models.Policy{ID: 1, Version: 3}))
	assert.ErrorIs(t, skipped.Commit(), ErrVersionConflict)

	next, _ := store.Begin(ctx)
	require.NoError(t, next.UpsertPolicy(ctx, &models.Policy{ID: 1, Version: 2}))
	require.NoError(t, next.Commit())

	policies, err := store.LoadPolicies(ctx)
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, uint64(2), policies[0].Version)
}
