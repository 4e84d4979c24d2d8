package keeper

import (
	"context"
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vaultshield/pools/x/investpool/types"
)

// ============ Contribution Operations ============

// SetContribution saves a contribution
func (k *Keeper) SetContribution(ctx sdk.Context, c *types.Contribution) {
	k.setJSON(ctx, types.ContributionKey(c.PoolID, c.Sequence), c)
}

// GetContribution retrieves one contribution by sequence
func (k *Keeper) GetContribution(ctx sdk.Context, poolID, seq uint64) *types.Contribution {
	var c types.Contribution
	if !k.getJSON(ctx, types.ContributionKey(poolID, seq), &c) {
		return nil
	}
	return &c
}

// GetPoolContributions returns a pool's contributions in sequence order
func (k *Keeper) GetPoolContributions(ctx sdk.Context, poolID uint64) []*types.Contribution {
	var out []*types.Contribution
	iterateJSON(k, ctx, types.PoolScopedPrefix(types.ContributionKeyPrefix, poolID), func(c *types.Contribution) bool {
		out = append(out, c)
		return false
	})
	return out
}

// SetPosition saves a contributor position
func (k *Keeper) SetPosition(ctx sdk.Context, p *types.ContributorPosition) {
	k.setJSON(ctx, types.PositionKey(p.PoolID, p.Contributor), p)
}

// GetPosition retrieves a contributor position
func (k *Keeper) GetPosition(ctx sdk.Context, poolID uint64, contributor string) *types.ContributorPosition {
	var p types.ContributorPosition
	if !k.getJSON(ctx, types.PositionKey(poolID, contributor), &p) {
		return nil
	}
	return &p
}

// GetPoolPositions returns every contributor position of a pool
func (k *Keeper) GetPoolPositions(ctx sdk.Context, poolID uint64) []*types.ContributorPosition {
	var out []*types.ContributorPosition
	iterateJSON(k, ctx, types.PoolScopedPrefix(types.PositionKeyPrefix, poolID), func(p *types.ContributorPosition) bool {
		out = append(out, p)
		return false
	})
	return out
}

// Invest records a confidential contribution. The minimum is checked
// through the oracle against the caller's proof; the amount itself is never
// revealed. If the encrypted total reaches the funding target the pool is
// activated in the same call.
func (k *Keeper) Invest(ctx context.Context, investor string, poolID uint64, amount types.ConfidentialAmount, proof []byte) (*types.Contribution, *types.Pool, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if investor == "" {
		return nil, nil, types.ErrInvalidParameters.Wrap("investor required")
	}
	if amount.IsEmpty() {
		return nil, nil, types.ErrInvalidParameters.Wrap("encrypted amount required")
	}

	pool := k.GetPool(sdkCtx, poolID)
	if pool == nil {
		return nil, nil, types.ErrNotFound.Wrapf("pool %d", poolID)
	}

	now := sdkCtx.BlockTime().Unix()
	if pool.Phase != types.PhaseFunding {
		return nil, nil, types.ErrPoolNotFunding.Wrapf("pool %d is %s", poolID, pool.Phase)
	}
	if pool.FundingExpired(now) {
		return nil, nil, types.ErrPoolNotFunding.Wrapf("pool %d funding window ended at %d", poolID, pool.FundingDeadline)
	}

	ev, err := k.oracle(sdkCtx)
	if err != nil {
		return nil, nil, err
	}

	// Every oracle call happens before the first write
	ok, err := ev.VerifyMinimum(ctx, amount, pool.MinimumInvestment, proof)
	if err != nil {
		return nil, nil, oracleErr("verify minimum", err)
	}
	if !ok {
		return nil, nil, types.ErrBelowMinimum.Wrapf("minimum %s not proven", pool.MinimumInvestment)
	}

	raised, err := ev.Add(ctx, pool.RaisedTotal, amount)
	if err != nil {
		return nil, nil, oracleErr("add to raised total", err)
	}

	position := k.GetPosition(sdkCtx, poolID, investor)
	firstContribution := position == nil
	subtotal := amount
	if !firstContribution {
		subtotal, err = ev.Add(ctx, position.Subtotal, amount)
		if err != nil {
			return nil, nil, oracleErr("add to subtotal", err)
		}
	}

	reached, err := ev.MeetsThreshold(ctx, raised, pool.FundingTarget)
	if err != nil {
		return nil, nil, oracleErr("threshold", err)
	}
	var revealed math.Int
	if reached {
		revealed, err = ev.Reveal(ctx, raised)
		if err != nil {
			return nil, nil, oracleErr("reveal raised total", err)
		}
	}

	pool.ContributionSeq++
	contribution := &types.Contribution{
		PoolID:      poolID,
		Contributor: investor,
		Sequence:    pool.ContributionSeq,
		Amount:      amount,
		Timestamp:   now,
	}
	k.SetContribution(sdkCtx, contribution)

	if firstContribution {
		position = &types.ContributorPosition{
			PoolID:        poolID,
			Contributor:   investor,
			FirstSequence: contribution.Sequence,
		}
		pool.UniqueInvestors++
	}
	position.Subtotal = subtotal
	position.Contributions++
	k.SetPosition(sdkCtx, position)

	pool.RaisedTotal = raised
	pool.InvestorCount++

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeContribution,
			sdk.NewAttribute(types.AttributeKeyPoolID, strconv.FormatUint(poolID, 10)),
			sdk.NewAttribute(types.AttributeKeyContributor, investor),
			sdk.NewAttribute(types.AttributeKeySequence, strconv.FormatUint(contribution.Sequence, 10)),
			sdk.NewAttribute(types.AttributeKeyInvestorCount, strconv.FormatUint(pool.InvestorCount, 10)),
		),
	)

	if reached {
		k.applyActivation(sdkCtx, pool, revealed, types.ReasonTargetReached)
	}
	k.SetPool(sdkCtx, pool)

	k.logger.Info("Contribution recorded",
		"pool_id", poolID,
		"contributor", investor,
		"sequence", contribution.Sequence,
		"investor_count", pool.InvestorCount,
		"phase", pool.Phase.String(),
	)

	return contribution, pool, nil
}
