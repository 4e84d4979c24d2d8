package keeper

import (
	"context"
	"strconv"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vaultshield/pools/x/investpool/types"
)

// ============ Pool Operations ============

// SetPool saves a pool and moves it into the index of its current phase
func (k *Keeper) SetPool(ctx sdk.Context, pool *types.Pool) {
	k.setJSON(ctx, types.PoolKey(pool.PoolID), pool)

	store := k.GetStore(ctx)
	for _, phase := range types.AllPhases() {
		if phase == pool.Phase {
			store.Set(types.PhaseIndexKey(phase, pool.PoolID), []byte{0x01})
		} else {
			store.Delete(types.PhaseIndexKey(phase, pool.PoolID))
		}
	}
}

// GetPool retrieves a pool from the store
func (k *Keeper) GetPool(ctx sdk.Context, poolID uint64) *types.Pool {
	var pool types.Pool
	if !k.getJSON(ctx, types.PoolKey(poolID), &pool) {
		return nil
	}
	return &pool
}

// GetAllPools returns all pools ordered by id
func (k *Keeper) GetAllPools(ctx sdk.Context) []*types.Pool {
	var pools []*types.Pool
	iterateJSON(k, ctx, types.PoolKeyPrefix, func(p *types.Pool) bool {
		pools = append(pools, p)
		return false
	})
	return pools
}

// GetPoolsByPhase returns the pools in one phase ordered by id
func (k *Keeper) GetPoolsByPhase(ctx sdk.Context, phase types.Phase) []*types.Pool {
	prefix := types.PhaseIndexPrefix(phase)
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), prefix)
	defer iterator.Close()

	var pools []*types.Pool
	for ; iterator.Valid(); iterator.Next() {
		poolID := sdk.BigEndianToUint64(iterator.Key()[len(prefix):])
		if pool := k.GetPool(ctx, poolID); pool != nil {
			pools = append(pools, pool)
		}
	}
	return pools
}

// CreatePool registers a new pool in the Funding phase
func (k *Keeper) CreatePool(ctx context.Context, config *types.PoolConfig) (*types.Pool, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	params := k.GetParams(sdkCtx)
	if err := config.Validate(params.MaxDuration); err != nil {
		return nil, err
	}

	ev, err := k.oracle(sdkCtx)
	if err != nil {
		return nil, err
	}
	if ceiling, ok := types.MaxRevealable(ev); ok && config.FundingTarget.GT(ceiling) {
		return nil, types.ErrInvalidParameters.Wrapf("funding target %s exceeds the oracle's revealable maximum %s",
			config.FundingTarget, ceiling)
	}
	zero, err := ev.EncryptedZero(ctx)
	if err != nil {
		return nil, oracleErr("encrypted zero", err)
	}

	poolID := k.GetNextPoolID(sdkCtx)
	pool := types.NewPool(poolID, config, zero, sdkCtx.BlockTime().Unix())

	k.SetPool(sdkCtx, pool)
	k.SetNextPoolID(sdkCtx, poolID+1)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypePoolCreated,
			sdk.NewAttribute(types.AttributeKeyPoolID, strconv.FormatUint(poolID, 10)),
			sdk.NewAttribute(types.AttributeKeyCreator, pool.Creator),
			sdk.NewAttribute(types.AttributeKeyOperator, pool.Operator),
			sdk.NewAttribute(types.AttributeKeyPhase, pool.Phase.String()),
		),
	)

	k.logger.Info("Pool created",
		"pool_id", poolID,
		"name", pool.Name,
		"creator", pool.Creator,
		"funding_target", pool.FundingTarget.String(),
		"deadline", pool.FundingDeadline,
	)

	return pool, nil
}

// GetPoolInfo returns the public view of a pool
func (k *Keeper) GetPoolInfo(ctx context.Context, poolID uint64) (types.PoolView, error) {
	pool := k.GetPool(sdk.UnwrapSDKContext(ctx), poolID)
	if pool == nil {
		return types.PoolView{}, types.ErrNotFound.Wrapf("pool %d", poolID)
	}
	return pool.View(), nil
}

// ListPools returns the public views of all pools, or only those in phase
// when a filter is given
func (k *Keeper) ListPools(ctx context.Context, phase *types.Phase) []types.PoolView {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	var pools []*types.Pool
	if phase == nil {
		pools = k.GetAllPools(sdkCtx)
	} else {
		pools = k.GetPoolsByPhase(sdkCtx, *phase)
	}

	views := make([]types.PoolView, 0, len(pools))
	for _, pool := range pools {
		views = append(views, pool.View())
	}
	return views
}
