package gormstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maxnito501/geminibo/internal/plan"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustPlan(t *testing.T, symbol string) plan.Plan {
	t.Helper()
	p, err := plan.New(symbol, 1000, 1.50, 1.66, 1.44, time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	return p
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	p := mustPlan(t, "SIRI")
	require.NoError(t, store.SavePlan(p))

	got, err := store.GetPlan(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Symbol, got.Symbol)
	assert.Equal(t, p.EntryPrice, got.EntryPrice)
	assert.Equal(t, plan.StatusActive, got.Status)
	assert.True(t, p.CreatedAt.Equal(got.CreatedAt))
}

func TestListPlansByStatus(t *testing.T) {
	store := newTestStore(t)
	first := mustPlan(t, "SIRI")
	second := mustPlan(t, "MTC")
	require.NoError(t, store.SavePlan(first))
	require.NoError(t, store.SavePlan(second))
	require.NoError(t, store.UpdateStatus(second.ID, plan.StatusClosed))

	active, err := store.ListPlans(plan.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "SIRI", active[0].Symbol)

	all, err := store.ListPlans("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRecordCheck(t *testing.T) {
	store := newTestStore(t)
	p := mustPlan(t, "SIRI")
	require.NoError(t, store.SavePlan(p))

	res := plan.Check(p, 1.40, p.CreatedAt.Add(24*time.Hour))
	require.NoError(t, store.RecordCheck(p.ID, res))

	assert.Error(t, store.RecordCheck("missing", res))
}

func TestDeletePlan(t *testing.T) {
	store := newTestStore(t)
	p := mustPlan(t, "SIRI")
	require.NoError(t, store.SavePlan(p))
	require.NoError(t, store.DeletePlan(p.ID))
	assert.Error(t, store.DeletePlan(p.ID))
	_, err := store.GetPlan(p.ID)
	assert.Error(t, err)
}
