package keeper

import (
	"strconv"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vaultshield/pools/x/investpool/types"
)

// EndBlocker sweeps time-based transitions: Funding pools whose window has
// elapsed are activated and Active pools past maturity are closed. Each
// pool runs in its own cache context so one failure leaves the others and
// the failed pool untouched.
func (k *Keeper) EndBlocker(ctx sdk.Context) error {
	blockHeight := ctx.BlockHeight()
	start := time.Now()
	now := ctx.BlockTime().Unix()

	activated := 0
	for _, pool := range k.GetPoolsByPhase(ctx, types.PhaseFunding) {
		if !pool.FundingExpired(now) {
			continue
		}
		if k.runIsolated(ctx, pool.PoolID, "activate", func(cacheCtx sdk.Context) (bool, error) {
			return k.ActivatePool(cacheCtx, pool.PoolID)
		}) {
			activated++
		}
	}

	closed := 0
	for _, pool := range k.GetPoolsByPhase(ctx, types.PhaseActive) {
		if !pool.Matured(now) {
			continue
		}
		if k.runIsolated(ctx, pool.PoolID, "close", func(cacheCtx sdk.Context) (bool, error) {
			return k.CloseMatured(cacheCtx, pool.PoolID)
		}) {
			closed++
		}
	}

	totalDuration := time.Since(start)

	k.logger.Debug("InvestPool EndBlocker completed",
		"block", blockHeight,
		"total_ms", totalDuration.Milliseconds(),
		"activated", activated,
		"closed", closed,
	)

	if activated > 0 || closed > 0 {
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeEndBlock,
				sdk.NewAttribute(types.AttributeKeyBlockHeight, strconv.FormatInt(blockHeight, 10)),
				sdk.NewAttribute("activated", strconv.Itoa(activated)),
				sdk.NewAttribute("closed", strconv.Itoa(closed)),
			),
		)
	}

	return nil
}

// runIsolated executes fn on a cache context and commits only on success
func (k *Keeper) runIsolated(ctx sdk.Context, poolID uint64, op string, fn func(sdk.Context) (bool, error)) bool {
	cacheCtx, write := ctx.CacheContext()
	changed, err := fn(cacheCtx)
	if err != nil {
		k.logger.Error("EndBlocker transition failed",
			"pool_id", poolID,
			"op", op,
			"error", err,
		)
		return false
	}
	if changed {
		write()
	}
	return changed
}
