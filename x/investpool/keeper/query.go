package keeper

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vaultshield/pools/x/investpool/types"
)

// QueryServer defines the investpool QueryServer
type QueryServer struct {
	keeper *Keeper
}

// NewQueryServerImpl creates a new QueryServer instance
func NewQueryServerImpl(keeper *Keeper) *QueryServer {
	return &QueryServer{keeper: keeper}
}

// paginate applies offset/limit; limit 0 means everything after offset
func paginate[T any](items []T, offset, limit uint64) ([]T, uint64) {
	total := uint64(len(items))
	if offset >= total {
		return []T{}, total
	}
	end := total
	if limit != 0 && limit < total-offset {
		end = offset + limit
	}
	return items[offset:end], total
}

// Params returns the module parameters
func (q *QueryServer) Params(ctx context.Context) types.Params {
	return q.keeper.GetParams(sdk.UnwrapSDKContext(ctx))
}

// Pool returns the public view of a pool
func (q *QueryServer) Pool(ctx context.Context, poolID uint64) (types.PoolView, error) {
	return q.keeper.GetPoolInfo(ctx, poolID)
}

// Pools lists pools, optionally filtered by phase name
func (q *QueryServer) Pools(ctx context.Context, phase string, offset, limit uint64) ([]types.PoolView, uint64, error) {
	var filter *types.Phase
	if phase != "" {
		p, err := types.ParsePhase(phase)
		if err != nil {
			return nil, 0, types.ErrInvalidParameters.Wrap(err.Error())
		}
		filter = &p
	}
	views, total := paginate(q.keeper.ListPools(ctx, filter), offset, limit)
	return views, total, nil
}

// Entitlement returns a holder's entitlement in a closed pool
func (q *QueryServer) Entitlement(ctx context.Context, poolID uint64, holder string) (*types.Entitlement, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	pool := q.keeper.GetPool(sdkCtx, poolID)
	if pool == nil {
		return nil, types.ErrNotFound.Wrapf("pool %d", poolID)
	}
	if pool.Phase != types.PhaseClosed {
		return nil, types.ErrPoolNotClosed.Wrapf("pool %d is %s", poolID, pool.Phase)
	}
	ent := q.keeper.GetEntitlement(sdkCtx, poolID, holder)
	if ent == nil {
		return nil, types.ErrNotFound.Wrapf("no entitlement for %s in pool %d", holder, poolID)
	}
	return ent, nil
}

// PerformanceReports lists a pool's reports in sequence order
func (q *QueryServer) PerformanceReports(ctx context.Context, poolID uint64, offset, limit uint64) ([]*types.PerformanceReport, uint64, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	if q.keeper.GetPool(sdkCtx, poolID) == nil {
		return nil, 0, types.ErrNotFound.Wrapf("pool %d", poolID)
	}
	reports, total := paginate(q.keeper.GetPoolReports(sdkCtx, poolID), offset, limit)
	return reports, total, nil
}

// Withdrawals lists a pool's withdrawal requests, optionally only those of
// one requester
func (q *QueryServer) Withdrawals(ctx context.Context, poolID uint64, requester string, offset, limit uint64) ([]*types.WithdrawalRequest, uint64, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	if q.keeper.GetPool(sdkCtx, poolID) == nil {
		return nil, 0, types.ErrNotFound.Wrapf("pool %d", poolID)
	}

	var all []*types.WithdrawalRequest
	if requester == "" {
		all = q.keeper.GetPoolWithdrawals(sdkCtx, poolID)
	} else {
		for _, w := range q.keeper.GetUserWithdrawals(sdkCtx, requester) {
			if w.PoolID == poolID {
				all = append(all, w)
			}
		}
	}
	items, total := paginate(all, offset, limit)
	return items, total, nil
}

// UserWithdrawals returns a requester's requests across all pools
func (q *QueryServer) UserWithdrawals(ctx context.Context, requester string) []*types.WithdrawalRequest {
	return q.keeper.GetUserWithdrawals(sdk.UnwrapSDKContext(ctx), requester)
}
