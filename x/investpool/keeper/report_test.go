package keeper

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/vaultshield/pools/x/investpool/types"
)

func TestSubmitPerformanceReport(t *testing.T) {
	f := setupKeeper(t)
	pool := f.createPool(1000, 1, time.Hour)

	first, err := f.keeper.SubmitPerformanceReport(f.ctx, testOperator, pool.PoolID, reportInput(1100))
	require.NoError(t, err)
	require.Equal(t, uint64(1), first.Sequence)
	require.Equal(t, types.ReceiptID("report", pool.PoolID, 1), first.ReceiptID)
	requireInt(t, 100, first.TotalReturns)

	correction := reportInput(1050)
	correction.Corrects = first.Sequence
	second, err := f.keeper.SubmitPerformanceReport(f.ctx, testOperator, pool.PoolID, correction)
	require.NoError(t, err)
	require.Equal(t, uint64(2), second.Sequence)
	require.Equal(t, uint64(1), second.Corrects)

	// the original report is kept unchanged
	stored := f.keeper.GetReport(f.ctx, pool.PoolID, 1)
	requireInt(t, 1100, stored.TotalValue)
	require.Zero(t, stored.Corrects)

	latest := f.keeper.GetLatestReport(f.ctx, pool.PoolID)
	require.Equal(t, uint64(2), latest.Sequence)
	require.Len(t, f.keeper.GetPoolReports(f.ctx, pool.PoolID), 2)
	require.Equal(t, 2, countEvents(f.ctx, types.EventTypePerformanceReport))
}

func TestSubmitPerformanceReportErrors(t *testing.T) {
	f := setupKeeper(t)
	pool := f.createPool(1000, 1, time.Hour)

	_, err := f.keeper.SubmitPerformanceReport(f.ctx, "creator", pool.PoolID, reportInput(1000))
	require.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = f.keeper.SubmitPerformanceReport(f.ctx, testOperator, 5, reportInput(1000))
	require.ErrorIs(t, err, types.ErrNotFound)

	tests := []struct {
		name   string
		mutate func(in *ReportInput)
	}{
		{"missing period", func(in *ReportInput) { in.Period = "" }},
		{"negative value", func(in *ReportInput) { in.TotalValue = math.NewInt(-5) }},
		{"short hash", func(in *ReportInput) { in.ReportHash = "abcd" }},
		{"non hex hash", func(in *ReportInput) { in.ReportHash = "zz" + in.ReportHash[2:] }},
		{"unknown correction", func(in *ReportInput) { in.Corrects = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := reportInput(1000)
			tt.mutate(&in)
			_, err := f.keeper.SubmitPerformanceReport(f.ctx, testOperator, pool.PoolID, in)
			require.ErrorIs(t, err, types.ErrInvalidParameters)
		})
	}

	require.Nil(t, f.keeper.GetLatestReport(f.ctx, pool.PoolID))
}

func TestReportsAfterClose(t *testing.T) {
	f := setupKeeper(t)
	pool := f.closedPool(map[string]int64{"alice": 100}, []string{"alice"})

	_, err := f.keeper.SubmitPerformanceReport(f.ctx, testOperator, pool.PoolID, reportInput(5000))
	require.NoError(t, err)

	// entitlements were fixed at close
	requireInt(t, 100, f.keeper.GetEntitlement(f.ctx, pool.PoolID, "alice").Amount)
}
