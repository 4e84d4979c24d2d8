package keeper

import (
	"context"
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vaultshield/pools/x/investpool/types"
)

// applyActivation moves a Funding pool to Active with its revealed
// aggregate. Callers obtain revealed from the oracle before writing.
func (k *Keeper) applyActivation(ctx sdk.Context, pool *types.Pool, revealed math.Int, reason string) bool {
	next, changed, _ := pool.Phase.Activate()
	if !changed {
		return false
	}
	now := ctx.BlockTime().Unix()
	pool.Phase = next
	pool.Revealed = true
	pool.RevealedTotal = revealed
	pool.ActivatedAt = now
	pool.MaturityAt = types.AfterDuration(now, pool.Duration)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypePoolActivated,
			sdk.NewAttribute(types.AttributeKeyPoolID, strconv.FormatUint(pool.PoolID, 10)),
			sdk.NewAttribute(types.AttributeKeyRaisedTotal, revealed.String()),
			sdk.NewAttribute(types.AttributeKeyInvestorCount, strconv.FormatUint(pool.InvestorCount, 10)),
			sdk.NewAttribute(types.AttributeKeyReason, reason),
		),
	)

	k.logger.Info("Pool activated",
		"pool_id", pool.PoolID,
		"raised_total", revealed.String(),
		"reason", reason,
		"maturity", pool.MaturityAt,
	)
	return true
}

// ActivatePool evaluates the Funding to Active transition. It activates the
// pool when the encrypted total meets the target or the funding window has
// elapsed, and is a no-op for pools that already left Funding.
func (k *Keeper) ActivatePool(ctx context.Context, poolID uint64) (bool, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	pool := k.GetPool(sdkCtx, poolID)
	if pool == nil {
		return false, types.ErrNotFound.Wrapf("pool %d", poolID)
	}
	if pool.Phase != types.PhaseFunding {
		return false, nil
	}

	ev, err := k.oracle(sdkCtx)
	if err != nil {
		return false, err
	}

	reason := types.ReasonFundingExpired
	if !pool.FundingExpired(sdkCtx.BlockTime().Unix()) {
		reached, err := ev.MeetsThreshold(ctx, pool.RaisedTotal, pool.FundingTarget)
		if err != nil {
			return false, oracleErr("threshold", err)
		}
		if !reached {
			return false, nil
		}
		reason = types.ReasonTargetReached
	}

	revealed, err := ev.Reveal(ctx, pool.RaisedTotal)
	if err != nil {
		return false, oracleErr("reveal raised total", err)
	}

	k.applyActivation(sdkCtx, pool, revealed, reason)
	k.SetPool(sdkCtx, pool)
	return true, nil
}

// ClosePool closes an Active pool on the operator's request. Closing a
// Closed pool is a no-op.
func (k *Keeper) ClosePool(ctx context.Context, operator string, poolID uint64) (*types.Pool, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	pool := k.GetPool(sdkCtx, poolID)
	if pool == nil {
		return nil, types.ErrNotFound.Wrapf("pool %d", poolID)
	}
	if !pool.IsOperator(operator) {
		return nil, types.ErrUnauthorized.Wrapf("%s is not the operator of pool %d", operator, poolID)
	}
	if err := k.settle(ctx, pool, types.ReasonOperatorClose); err != nil {
		return nil, err
	}
	return pool, nil
}

// CloseMatured closes a pool whose term has ended. Pools that are not
// Active or not yet mature are left alone.
func (k *Keeper) CloseMatured(ctx context.Context, poolID uint64) (bool, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	pool := k.GetPool(sdkCtx, poolID)
	if pool == nil {
		return false, types.ErrNotFound.Wrapf("pool %d", poolID)
	}
	if !pool.Matured(sdkCtx.BlockTime().Unix()) {
		return false, nil
	}
	if err := k.settle(ctx, pool, types.ReasonMatured); err != nil {
		return false, err
	}
	return true, nil
}

// settle performs Active to Closed. Contributor subtotals are revealed and
// must add up to the aggregate revealed at activation, and that aggregate is
// split into entitlements. Performance reports are attestations only and do
// not change what is distributed.
func (k *Keeper) settle(ctx context.Context, pool *types.Pool, reason string) error {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	next, changed, err := pool.Phase.Close()
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	ev, err := k.oracle(sdkCtx)
	if err != nil {
		return err
	}

	positions := k.GetPoolPositions(sdkCtx, pool.PoolID)
	shares := make([]types.Share, 0, len(positions))
	sum := math.ZeroInt()
	for _, p := range positions {
		amount, err := ev.Reveal(ctx, p.Subtotal)
		if err != nil {
			return oracleErr("reveal subtotal", err)
		}
		sum = sum.Add(amount)
		shares = append(shares, types.Share{
			Holder:        p.Contributor,
			Contributed:   amount,
			FirstSequence: p.FirstSequence,
		})
	}
	if !sum.Equal(pool.RevealedTotal) {
		return types.ErrSettlementMismatch.Wrapf("pool %d: subtotals %s, aggregate %s",
			pool.PoolID, sum, pool.RevealedTotal)
	}

	distributable := pool.RevealedTotal
	amounts, err := types.AllocateProRata(distributable, shares)
	if err != nil {
		return err
	}

	for i, s := range shares {
		k.SetEntitlement(sdkCtx, types.NewEntitlement(pool.PoolID, s.Holder, s.Contributed, amounts[i]))
	}

	pool.Phase = next
	pool.ClosedAt = sdkCtx.BlockTime().Unix()
	pool.Distributable = distributable
	k.SetPool(sdkCtx, pool)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypePoolClosed,
			sdk.NewAttribute(types.AttributeKeyPoolID, strconv.FormatUint(pool.PoolID, 10)),
			sdk.NewAttribute(types.AttributeKeyDistributable, distributable.String()),
			sdk.NewAttribute(types.AttributeKeyReason, reason),
		),
	)

	k.logger.Info("Pool closed",
		"pool_id", pool.PoolID,
		"distributable", distributable.String(),
		"entitlements", len(shares),
		"reason", reason,
	)
	return nil
}
