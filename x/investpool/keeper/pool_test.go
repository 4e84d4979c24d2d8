package keeper

import (
	stdmath "math"
	"strings"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/vaultshield/pools/pkg/confidential"
	"github.com/vaultshield/pools/x/investpool/types"
)

func TestCreatePool(t *testing.T) {
	f := setupKeeper(t)

	pool := f.createPool(1000, 100, time.Hour)
	require.Equal(t, uint64(1), pool.PoolID)
	require.Equal(t, types.PhaseFunding, pool.Phase)
	require.Equal(t, types.DefaultDenom, pool.Denom)
	require.Equal(t, testGenesis+3600, pool.FundingDeadline)
	require.False(t, pool.Revealed)
	require.False(t, pool.RaisedTotal.IsEmpty())

	second := f.createPool(500, 50, time.Hour)
	require.Equal(t, uint64(2), second.PoolID)

	view, err := f.keeper.GetPoolInfo(f.ctx, pool.PoolID)
	require.NoError(t, err)
	require.Equal(t, types.EncryptedSentinel, view.RaisedTotal)
	require.Equal(t, "funding", view.Phase)
	require.Equal(t, "Rotterdam", view.Location)
	require.Equal(t, "7.5% p.a.", view.ExpectedReturn)
	require.Equal(t, 2, countEvents(f.ctx, types.EventTypePoolCreated))
}

func TestCreatePoolValidation(t *testing.T) {
	f := setupKeeper(t)

	base := types.PoolConfig{
		Name:              "Pool",
		TotalValue:        math.NewInt(100),
		MinimumInvestment: math.NewInt(1),
		FundingTarget:     math.NewInt(100),
		Duration:          60,
		Creator:           "creator",
	}

	tests := []struct {
		name   string
		mutate func(c *types.PoolConfig)
	}{
		{"empty name", func(c *types.PoolConfig) { c.Name = "  " }},
		{"zero target", func(c *types.PoolConfig) { c.FundingTarget = math.ZeroInt() }},
		{"negative minimum", func(c *types.PoolConfig) { c.MinimumInvestment = math.NewInt(-1) }},
		{"zero duration", func(c *types.PoolConfig) { c.Duration = 0 }},
		{"duration above max", func(c *types.PoolConfig) { c.Duration = types.DefaultMaxDuration + 1 }},
		{"missing creator", func(c *types.PoolConfig) { c.Creator = "" }},
		{"bad denom", func(c *types.PoolConfig) { c.Denom = "1x" }},
		{"expected return too long", func(c *types.PoolConfig) {
			c.ExpectedReturn = strings.Repeat("9", types.MaxExpectedReturnLength+1)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := f.keeper.CreatePool(f.ctx, &cfg)
			require.ErrorIs(t, err, types.ErrInvalidParameters)
		})
	}
	require.Equal(t, uint64(1), f.keeper.GetNextPoolID(f.ctx))
}

func TestCreatePoolUnboundedDuration(t *testing.T) {
	f := setupKeeper(t)
	require.NoError(t, f.keeper.SetParams(f.ctx, types.Params{Oracle: testOracle}))

	pool, err := f.keeper.CreatePool(f.ctx, &types.PoolConfig{
		Name:              "Evergreen",
		TotalValue:        math.NewInt(200),
		MinimumInvestment: math.NewInt(10),
		FundingTarget:     math.NewInt(100),
		Duration:          stdmath.MaxInt64,
		Creator:           "creator",
		Operator:          testOperator,
	})
	require.NoError(t, err)
	require.Equal(t, int64(stdmath.MaxInt64), pool.FundingDeadline)

	f.advance(24 * time.Hour)
	require.NoError(t, f.keeper.EndBlocker(f.ctx))
	require.Equal(t, types.PhaseFunding, f.keeper.GetPool(f.ctx, pool.PoolID).Phase)

	updated := f.mustInvest("alice", pool.PoolID, 100, 10)
	require.Equal(t, types.PhaseActive, updated.Phase)
	require.Equal(t, int64(stdmath.MaxInt64), updated.MaturityAt)

	f.advance(24 * time.Hour)
	require.NoError(t, f.keeper.EndBlocker(f.ctx))
	require.Equal(t, types.PhaseActive, f.keeper.GetPool(f.ctx, pool.PoolID).Phase)
}

func TestInvestReachesTarget(t *testing.T) {
	f := setupKeeper(t)
	pool := f.createPool(1000, 100, time.Hour)

	c, updated, err := f.invest("alice", pool.PoolID, 600, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(1), c.Sequence)
	require.Equal(t, types.PhaseFunding, updated.Phase)
	require.Equal(t, uint64(1), updated.InvestorCount)

	view, err := f.keeper.GetPoolInfo(f.ctx, pool.PoolID)
	require.NoError(t, err)
	require.Equal(t, types.EncryptedSentinel, view.RaisedTotal)

	c, updated, err = f.invest("bob", pool.PoolID, 400, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(2), c.Sequence)
	require.Equal(t, types.PhaseActive, updated.Phase)
	require.Equal(t, uint64(2), updated.InvestorCount)
	require.True(t, updated.Revealed)
	requireInt(t, 1000, updated.RevealedTotal)
	require.Equal(t, testGenesis+3600, updated.MaturityAt)

	stored := f.keeper.GetPool(f.ctx, pool.PoolID)
	require.Equal(t, types.PhaseActive, stored.Phase)
	require.Equal(t, 1, countEvents(f.ctx, types.EventTypePoolActivated))

	active := f.keeper.GetPoolsByPhase(f.ctx, types.PhaseActive)
	require.Len(t, active, 1)
	require.Empty(t, f.keeper.GetPoolsByPhase(f.ctx, types.PhaseFunding))

	_, _, err = f.invest("carol", pool.PoolID, 100, 100)
	require.ErrorIs(t, err, types.ErrPoolNotFunding)
}

func TestInvestBeyondRevealRange(t *testing.T) {
	oracle, err := confidential.NewElGamalEvaluator(testOracle, testSecret, 10)
	require.NoError(t, err)
	f := setupKeeperWith(t, oracle)
	requireInt(t, 1023, oracle.MaxRevealable())

	cfg := &types.PoolConfig{
		Name:              "Pool",
		TotalValue:        math.NewInt(4000),
		MinimumInvestment: math.NewInt(100),
		FundingTarget:     math.NewInt(2000),
		Duration:          3600,
		Creator:           "creator",
		Operator:          testOperator,
	}
	_, err = f.keeper.CreatePool(f.ctx, cfg)
	require.ErrorIs(t, err, types.ErrInvalidParameters)

	cfg.FundingTarget = math.NewInt(1000)
	pool, err := f.keeper.CreatePool(f.ctx, cfg)
	require.NoError(t, err)

	invest := func(investor string, amount int64) (*types.Pool, error) {
		ct, err := oracle.Encrypt(math.NewInt(amount))
		require.NoError(t, err)
		proof, err := oracle.AttestMinimum(f.ctx, ct, math.NewInt(100))
		require.NoError(t, err)
		_, updated, err := f.keeper.Invest(f.ctx, investor, pool.PoolID, ct, proof)
		return updated, err
	}

	_, err = invest("alice", 600)
	require.NoError(t, err)

	// 1200 cannot be revealed, so the contribution is refused as a
	// business error and leaves the pool untouched
	_, err = invest("bob", 600)
	require.ErrorIs(t, err, types.ErrAmountOutOfRange)
	require.NotErrorIs(t, err, types.ErrOracleUnavailable)
	stored := f.keeper.GetPool(f.ctx, pool.PoolID)
	require.Equal(t, types.PhaseFunding, stored.Phase)
	require.Equal(t, uint64(1), stored.InvestorCount)

	_, err = invest("bob", 300)
	require.NoError(t, err)
	updated, err := invest("carol", 100)
	require.NoError(t, err)
	require.Equal(t, types.PhaseActive, updated.Phase)
	requireInt(t, 1000, updated.RevealedTotal)
}

func TestInvestRepeatContributor(t *testing.T) {
	f := setupKeeper(t)
	pool := f.createPool(1000, 10, time.Hour)

	f.mustInvest("alice", pool.PoolID, 100, 10)
	f.mustInvest("bob", pool.PoolID, 50, 10)
	updated := f.mustInvest("alice", pool.PoolID, 200, 10)

	require.Equal(t, uint64(3), updated.InvestorCount)
	require.Equal(t, uint64(2), updated.UniqueInvestors)

	pos := f.keeper.GetPosition(f.ctx, pool.PoolID, "alice")
	require.NotNil(t, pos)
	require.Equal(t, uint64(2), pos.Contributions)
	require.Equal(t, uint64(1), pos.FirstSequence)

	subtotal, err := f.oracle.Reveal(f.ctx, pos.Subtotal)
	require.NoError(t, err)
	requireInt(t, 300, subtotal)

	require.Len(t, f.keeper.GetPoolContributions(f.ctx, pool.PoolID), 3)
}

func TestInvestBelowMinimum(t *testing.T) {
	f := setupKeeper(t)
	pool := f.createPool(1000, 100, time.Hour)

	// proof issued against a lower minimum does not satisfy the pool's
	_, _, err := f.invest("alice", pool.PoolID, 50, 10)
	require.ErrorIs(t, err, types.ErrBelowMinimum)

	stored := f.keeper.GetPool(f.ctx, pool.PoolID)
	require.Zero(t, stored.InvestorCount)
	require.Zero(t, stored.ContributionSeq)
	require.Nil(t, f.keeper.GetPosition(f.ctx, pool.PoolID, "alice"))
	require.Zero(t, countEvents(f.ctx, types.EventTypeContribution))
}

func TestInvestProofBoundToCiphertext(t *testing.T) {
	f := setupKeeper(t)
	pool := f.createPool(1000, 100, time.Hour)

	_, proof := f.encrypt(500, 100)
	other, _ := f.encrypt(20, 1)

	_, _, err := f.keeper.Invest(f.ctx, "alice", pool.PoolID, other, proof)
	require.ErrorIs(t, err, types.ErrBelowMinimum)
}

func TestInvestErrors(t *testing.T) {
	f := setupKeeper(t)
	pool := f.createPool(1000, 100, time.Hour)
	ct, proof := f.encrypt(200, 100)

	_, _, err := f.keeper.Invest(f.ctx, "alice", 99, ct, proof)
	require.ErrorIs(t, err, types.ErrNotFound)

	_, _, err = f.keeper.Invest(f.ctx, "", pool.PoolID, ct, proof)
	require.ErrorIs(t, err, types.ErrInvalidParameters)

	_, _, err = f.keeper.Invest(f.ctx, "alice", pool.PoolID, types.ConfidentialAmount{}, proof)
	require.ErrorIs(t, err, types.ErrInvalidParameters)

	garbage := types.NewConfidentialAmount([]byte("not a ciphertext"))
	_, _, err = f.keeper.Invest(f.ctx, "alice", pool.PoolID, garbage, proof)
	require.ErrorIs(t, err, types.ErrOracleUnavailable)
}

func TestInvestAfterDeadline(t *testing.T) {
	f := setupKeeper(t)
	pool := f.createPool(1000, 100, time.Hour)
	f.mustInvest("alice", pool.PoolID, 200, 100)

	f.advance(time.Hour)

	_, _, err := f.invest("bob", pool.PoolID, 200, 100)
	require.ErrorIs(t, err, types.ErrPoolNotFunding)
	require.Equal(t, types.PhaseFunding, f.keeper.GetPool(f.ctx, pool.PoolID).Phase)
}

func TestActivatePool(t *testing.T) {
	f := setupKeeper(t)
	pool := f.createPool(1000, 100, time.Hour)
	f.mustInvest("alice", pool.PoolID, 300, 100)

	changed, err := f.keeper.ActivatePool(f.ctx, pool.PoolID)
	require.NoError(t, err)
	require.False(t, changed)

	f.advance(time.Hour)
	changed, err = f.keeper.ActivatePool(f.ctx, pool.PoolID)
	require.NoError(t, err)
	require.True(t, changed)

	stored := f.keeper.GetPool(f.ctx, pool.PoolID)
	require.Equal(t, types.PhaseActive, stored.Phase)
	requireInt(t, 300, stored.RevealedTotal)

	changed, err = f.keeper.ActivatePool(f.ctx, pool.PoolID)
	require.NoError(t, err)
	require.False(t, changed)

	_, err = f.keeper.ActivatePool(f.ctx, 42)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestListPools(t *testing.T) {
	f := setupKeeper(t)
	first := f.createPool(100, 10, time.Hour)
	f.createPool(100, 10, time.Hour)
	f.mustInvest("alice", first.PoolID, 100, 10)

	require.Len(t, f.keeper.ListPools(f.ctx, nil), 2)

	active := types.PhaseActive
	views := f.keeper.ListPools(f.ctx, &active)
	require.Len(t, views, 1)
	require.Equal(t, first.PoolID, views[0].PoolID)
	require.Equal(t, "100", views[0].RaisedTotal)

	closed := types.PhaseClosed
	require.Empty(t, f.keeper.ListPools(f.ctx, &closed))
}
