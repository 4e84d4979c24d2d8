package keeper

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/vaultshield/pools/x/investpool/types"
)

func TestQueryPools(t *testing.T) {
	f := setupKeeper(t)
	q := NewQueryServerImpl(f.keeper)

	for i := 0; i < 5; i++ {
		f.createPool(1000, 10, time.Hour)
	}
	f.mustInvest("alice", 2, 1000, 10)

	views, total, err := q.Pools(f.ctx, "", 1, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(5), total)
	require.Len(t, views, 2)
	require.Equal(t, uint64(2), views[0].PoolID)

	views, total, err = q.Pools(f.ctx, "active", 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), total)
	require.Equal(t, "1000", views[0].RaisedTotal)

	views, _, err = q.Pools(f.ctx, "", 10, 5)
	require.NoError(t, err)
	require.Empty(t, views)

	// the largest limit must not wrap around offset+limit
	views, total, err = q.Pools(f.ctx, "", 3, ^uint64(0))
	require.NoError(t, err)
	require.Equal(t, uint64(5), total)
	require.Len(t, views, 2)
	require.Equal(t, uint64(4), views[0].PoolID)

	_, _, err = q.Pools(f.ctx, "liquidating", 0, 0)
	require.ErrorIs(t, err, types.ErrInvalidParameters)

	view, err := q.Pool(f.ctx, 3)
	require.NoError(t, err)
	require.Equal(t, types.EncryptedSentinel, view.RaisedTotal)

	_, err = q.Pool(f.ctx, 30)
	require.ErrorIs(t, err, types.ErrNotFound)

	require.Equal(t, testOracle, q.Params(f.ctx).Oracle)
}

func TestQueryEntitlement(t *testing.T) {
	f := setupKeeper(t)
	q := NewQueryServerImpl(f.keeper)

	open := f.createPool(1000, 10, time.Hour)
	f.mustInvest("alice", open.PoolID, 100, 10)
	_, err := q.Entitlement(f.ctx, open.PoolID, "alice")
	require.ErrorIs(t, err, types.ErrPoolNotClosed)

	closed := f.closedPool(map[string]int64{"bob": 300}, []string{"bob"})
	ent, err := q.Entitlement(f.ctx, closed.PoolID, "bob")
	require.NoError(t, err)
	requireInt(t, 300, ent.Amount)

	_, err = q.Entitlement(f.ctx, closed.PoolID, "alice")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestQueryWithdrawalsAndReports(t *testing.T) {
	f := setupKeeper(t)
	q := NewQueryServerImpl(f.keeper)
	pool := f.closedPool(map[string]int64{"alice": 50, "bob": 50}, []string{"alice", "bob"})

	for _, who := range []string{"alice", "bob", "alice"} {
		_, _, err := f.keeper.RequestWithdrawal(f.ctx, who, pool.PoolID, math.NewInt(10))
		require.NoError(t, err)
	}

	all, total, err := q.Withdrawals(f.ctx, pool.PoolID, "", 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(3), total)
	require.Equal(t, []uint64{1, 2, 3}, []uint64{all[0].Sequence, all[1].Sequence, all[2].Sequence})

	mine, total, err := q.Withdrawals(f.ctx, pool.PoolID, "alice", 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(2), total)
	require.Equal(t, "alice", mine[1].Requester)

	require.Len(t, q.UserWithdrawals(f.ctx, "bob"), 1)

	_, _, err = q.Withdrawals(f.ctx, 44, "", 0, 0)
	require.ErrorIs(t, err, types.ErrNotFound)

	_, err = f.keeper.SubmitPerformanceReport(f.ctx, testOperator, pool.PoolID, reportInput(100))
	require.NoError(t, err)
	reports, total, err := q.PerformanceReports(f.ctx, pool.PoolID, 0, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), total)
	require.Equal(t, "2026-Q3", reports[0].Period)

	_, _, err = q.PerformanceReports(f.ctx, 44, 0, 10)
	require.ErrorIs(t, err, types.ErrNotFound)
}
