package keeper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vaultshield/pools/pkg/confidential"
	"github.com/vaultshield/pools/x/investpool/types"
)

func TestEndBlockerLifecycle(t *testing.T) {
	f := setupKeeper(t)
	pool := f.createPool(1000, 100, time.Hour)
	f.mustInvest("alice", pool.PoolID, 300, 100)

	require.NoError(t, f.keeper.EndBlocker(f.ctx))
	require.Equal(t, types.PhaseFunding, f.keeper.GetPool(f.ctx, pool.PoolID).Phase)

	f.advance(time.Hour)
	require.NoError(t, f.keeper.EndBlocker(f.ctx))

	active := f.keeper.GetPool(f.ctx, pool.PoolID)
	require.Equal(t, types.PhaseActive, active.Phase)
	requireInt(t, 300, active.RevealedTotal)
	require.Equal(t, f.ctx.BlockTime().Unix()+3600, active.MaturityAt)

	f.advance(30 * time.Minute)
	require.NoError(t, f.keeper.EndBlocker(f.ctx))
	require.Equal(t, types.PhaseActive, f.keeper.GetPool(f.ctx, pool.PoolID).Phase)

	f.advance(30 * time.Minute)
	require.NoError(t, f.keeper.EndBlocker(f.ctx))

	closed := f.keeper.GetPool(f.ctx, pool.PoolID)
	require.Equal(t, types.PhaseClosed, closed.Phase)
	requireInt(t, 300, f.keeper.GetEntitlement(f.ctx, pool.PoolID, "alice").Amount)
	require.Equal(t, 2, countEvents(f.ctx, types.EventTypeEndBlock))
}

func TestEndBlockerExpiredEmptyPool(t *testing.T) {
	f := setupKeeper(t)
	pool := f.createPool(1000, 100, time.Minute)

	f.advance(time.Minute)
	require.NoError(t, f.keeper.EndBlocker(f.ctx))

	active := f.keeper.GetPool(f.ctx, pool.PoolID)
	require.Equal(t, types.PhaseActive, active.Phase)
	requireInt(t, 0, active.RevealedTotal)

	f.advance(time.Minute)
	require.NoError(t, f.keeper.EndBlocker(f.ctx))

	closed := f.keeper.GetPool(f.ctx, pool.PoolID)
	require.Equal(t, types.PhaseClosed, closed.Phase)
	require.Empty(t, f.keeper.GetPoolEntitlements(f.ctx, pool.PoolID))
}

func TestEndBlockerIsolatesFailures(t *testing.T) {
	sealed, err := confidential.NewSealedEvaluator(testOracle, testSecret)
	require.NoError(t, err)
	flaky := &failingEvaluator{ConfidentialEvaluator: sealed}

	f := setupKeeperWith(t, flaky)
	f.oracle = sealed

	broken := f.createPool(1000, 100, time.Hour)
	f.mustInvest("alice", broken.PoolID, 200, 100)

	f.advance(time.Hour)
	flaky.failReveal = true
	require.NoError(t, f.keeper.EndBlocker(f.ctx))

	stored := f.keeper.GetPool(f.ctx, broken.PoolID)
	require.Equal(t, types.PhaseFunding, stored.Phase)
	require.False(t, stored.Revealed)
	require.Zero(t, countEvents(f.ctx, types.EventTypePoolActivated))

	flaky.failReveal = false
	f.advance(time.Second)
	require.NoError(t, f.keeper.EndBlocker(f.ctx))
	require.Equal(t, types.PhaseActive, f.keeper.GetPool(f.ctx, broken.PoolID).Phase)
}
