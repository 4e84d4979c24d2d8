package keeper

import (
	"encoding/hex"
	"strings"
	"testing"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/vaultshield/pools/metrics"
	"github.com/vaultshield/pools/x/investpool/types"
)

func testAddr(name string) string {
	bz := make([]byte, 20)
	copy(bz, name)
	return sdk.AccAddress(bz).String()
}

func TestMsgServerLifecycle(t *testing.T) {
	f := setupKeeper(t)
	collector := metrics.NewCollector(prometheus.NewRegistry())
	srv := NewMsgServerWithMetrics(f.keeper, collector)

	operator := testAddr("operator")
	alice := testAddr("alice")
	bob := testAddr("bob")

	created, err := srv.CreatePool(f.ctx, &types.MsgCreatePool{
		Creator:           operator,
		Name:              "Solar Farm Fund",
		AssetType:         "infrastructure",
		TotalValue:        "5000",
		MinimumInvestment: "100",
		FundingTarget:     "1000",
		Duration:          3600,
		Denom:             "uusdc",
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), created.PoolID)

	invest := func(investor string, amount int64) (*types.MsgInvestResponse, error) {
		ct, proof := f.encrypt(amount, 100)
		return srv.Invest(f.ctx, &types.MsgInvest{
			Investor:        investor,
			PoolID:          created.PoolID,
			EncryptedAmount: ct.Ciphertext,
			MinimumProof:    proof,
		})
	}

	resp, err := invest(alice, 600)
	require.NoError(t, err)
	require.Equal(t, "funding", resp.Phase)

	resp, err = invest(bob, 400)
	require.NoError(t, err)
	require.Equal(t, "active", resp.Phase)
	require.Equal(t, uint64(2), resp.InvestorCount)

	closed, err := srv.ClosePool(f.ctx, &types.MsgClosePool{Operator: operator, PoolID: created.PoolID})
	require.NoError(t, err)
	require.Equal(t, "closed", closed.Phase)
	require.Equal(t, "1000", closed.Distributable)

	wd, err := srv.RequestWithdrawal(f.ctx, &types.MsgRequestWithdrawal{Requester: bob, PoolID: created.PoolID, Amount: "150"})
	require.NoError(t, err)
	require.Equal(t, "250", wd.Available)

	decided, err := srv.ApproveWithdrawal(f.ctx, &types.MsgApproveWithdrawal{Operator: operator, PoolID: created.PoolID, Sequence: wd.Sequence})
	require.NoError(t, err)
	require.Equal(t, types.WithdrawalStatusApproved, decided.Status)
	require.Equal(t, wd.ReceiptID, decided.ReceiptID)

	paid, err := srv.PayWithdrawal(f.ctx, &types.MsgPayWithdrawal{Operator: operator, PoolID: created.PoolID, Sequence: wd.Sequence})
	require.NoError(t, err)
	require.Equal(t, types.WithdrawalStatusPaid, paid.Status)
	require.Len(t, f.payout.calls, 1)
	require.Equal(t, "uusdc", f.payout.calls[0].amount.Denom)

	_, err = srv.PayWithdrawal(f.ctx, &types.MsgPayWithdrawal{Operator: operator, PoolID: created.PoolID, Sequence: wd.Sequence})
	require.NoError(t, err)
	require.Len(t, f.payout.calls, 1)

	report, err := srv.SubmitPerformanceReport(f.ctx, &types.MsgSubmitPerformanceReport{
		Operator:     operator,
		PoolID:       created.PoolID,
		Period:       "2026-10",
		TotalReturns: "-20",
		TotalValue:   "980",
		ReportHash:   strings.Repeat("0f", 32),
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), report.Sequence)

	require.Equal(t, 1.0, testutil.ToFloat64(collector.PoolsCreated))
}

func TestMsgServerRejectsInvalidMessages(t *testing.T) {
	f := setupKeeper(t)
	srv := NewMsgServerImpl(f.keeper)

	_, err := srv.CreatePool(f.ctx, &types.MsgCreatePool{Creator: "not-bech32", Name: "x"})
	require.ErrorIs(t, err, types.ErrInvalidParameters)

	_, err = srv.Invest(f.ctx, &types.MsgInvest{Investor: testAddr("alice"), PoolID: 1, EncryptedAmount: []byte{1}})
	require.ErrorIs(t, err, types.ErrBelowMinimum)

	_, err = srv.RequestWithdrawal(f.ctx, &types.MsgRequestWithdrawal{Requester: testAddr("alice"), PoolID: 1, Amount: "abc"})
	require.ErrorIs(t, err, types.ErrInvalidParameters)

	_, err = srv.ApproveWithdrawal(f.ctx, &types.MsgApproveWithdrawal{Operator: testAddr("op"), PoolID: 1})
	require.ErrorIs(t, err, types.ErrNotFound)

	_, err = srv.SubmitPerformanceReport(f.ctx, &types.MsgSubmitPerformanceReport{
		Operator:     testAddr("op"),
		PoolID:       1,
		Period:       "2026-10",
		TotalReturns: "0",
		TotalValue:   "10",
		ReportHash:   hex.EncodeToString([]byte("short")),
	})
	require.ErrorIs(t, err, types.ErrInvalidParameters)
}
