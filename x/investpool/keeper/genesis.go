package keeper

import (
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vaultshield/pools/x/investpool/types"
)

// InitGenesis loads the module state from genesis
func (k *Keeper) InitGenesis(ctx sdk.Context, gs *types.GenesisState) error {
	if err := gs.Validate(); err != nil {
		return err
	}
	if err := k.SetParams(ctx, gs.Params); err != nil {
		return err
	}
	k.SetNextPoolID(ctx, gs.NextPoolID)

	for i := range gs.Pools {
		k.SetPool(ctx, &gs.Pools[i])
	}
	for i := range gs.Contributions {
		k.SetContribution(ctx, &gs.Contributions[i])
	}
	for i := range gs.Positions {
		k.SetPosition(ctx, &gs.Positions[i])
	}
	for i := range gs.Entitlements {
		k.SetEntitlement(ctx, &gs.Entitlements[i])
	}
	for i := range gs.Withdrawals {
		k.SetWithdrawal(ctx, &gs.Withdrawals[i])
	}
	for i := range gs.Reports {
		k.SetReport(ctx, &gs.Reports[i])
	}

	k.logger.Info("InvestPool genesis loaded",
		"pools", len(gs.Pools),
		"next_pool_id", gs.NextPoolID,
		"oracle", gs.Params.Oracle,
	)
	return nil
}

// ExportGenesis dumps the module state
func (k *Keeper) ExportGenesis(ctx sdk.Context) *types.GenesisState {
	gs := &types.GenesisState{
		Params:     k.GetParams(ctx),
		NextPoolID: k.GetNextPoolID(ctx),
	}
	for _, pool := range k.GetAllPools(ctx) {
		gs.Pools = append(gs.Pools, *pool)
		for _, c := range k.GetPoolContributions(ctx, pool.PoolID) {
			gs.Contributions = append(gs.Contributions, *c)
		}
		for _, p := range k.GetPoolPositions(ctx, pool.PoolID) {
			gs.Positions = append(gs.Positions, *p)
		}
		for _, e := range k.GetPoolEntitlements(ctx, pool.PoolID) {
			gs.Entitlements = append(gs.Entitlements, *e)
		}
		for _, w := range k.GetPoolWithdrawals(ctx, pool.PoolID) {
			gs.Withdrawals = append(gs.Withdrawals, *w)
		}
		for _, r := range k.GetPoolReports(ctx, pool.PoolID) {
			gs.Reports = append(gs.Reports, *r)
		}
	}
	return gs
}
