package keeper

import (
	"context"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vaultshield/pools/x/investpool/types"
)

// ============ Entitlement Operations ============

// SetEntitlement saves an entitlement
func (k *Keeper) SetEntitlement(ctx sdk.Context, e *types.Entitlement) {
	k.setJSON(ctx, types.EntitlementKey(e.PoolID, e.Holder), e)
}

// GetEntitlement retrieves an entitlement
func (k *Keeper) GetEntitlement(ctx sdk.Context, poolID uint64, holder string) *types.Entitlement {
	var e types.Entitlement
	if !k.getJSON(ctx, types.EntitlementKey(poolID, holder), &e) {
		return nil
	}
	return &e
}

// GetPoolEntitlements returns all entitlements of a closed pool
func (k *Keeper) GetPoolEntitlements(ctx sdk.Context, poolID uint64) []*types.Entitlement {
	var out []*types.Entitlement
	iterateJSON(k, ctx, types.PoolScopedPrefix(types.EntitlementKeyPrefix, poolID), func(e *types.Entitlement) bool {
		out = append(out, e)
		return false
	})
	return out
}

// ============ Withdrawal Operations ============

// SetWithdrawal saves a withdrawal request and its requester index
func (k *Keeper) SetWithdrawal(ctx sdk.Context, w *types.WithdrawalRequest) {
	k.setJSON(ctx, types.WithdrawalKey(w.PoolID, w.Sequence), w)
	k.GetStore(ctx).Set(types.UserWithdrawalKey(w.Requester, w.PoolID, w.Sequence), []byte{0x01})
}

// GetWithdrawal retrieves a withdrawal request
func (k *Keeper) GetWithdrawal(ctx sdk.Context, poolID, seq uint64) *types.WithdrawalRequest {
	var w types.WithdrawalRequest
	if !k.getJSON(ctx, types.WithdrawalKey(poolID, seq), &w) {
		return nil
	}
	return &w
}

// GetPoolWithdrawals returns a pool's requests in sequence order
func (k *Keeper) GetPoolWithdrawals(ctx sdk.Context, poolID uint64) []*types.WithdrawalRequest {
	var out []*types.WithdrawalRequest
	iterateJSON(k, ctx, types.PoolScopedPrefix(types.WithdrawalKeyPrefix, poolID), func(w *types.WithdrawalRequest) bool {
		out = append(out, w)
		return false
	})
	return out
}

// GetUserWithdrawals returns a requester's requests across pools
func (k *Keeper) GetUserWithdrawals(ctx sdk.Context, user string) []*types.WithdrawalRequest {
	prefix := types.UserWithdrawalsPrefix(user)
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), prefix)
	defer iterator.Close()

	var out []*types.WithdrawalRequest
	for ; iterator.Valid(); iterator.Next() {
		rest := iterator.Key()[len(prefix):]
		if len(rest) != 16 {
			continue
		}
		poolID := sdk.BigEndianToUint64(rest[:8])
		seq := sdk.BigEndianToUint64(rest[8:])
		if w := k.GetWithdrawal(ctx, poolID, seq); w != nil {
			out = append(out, w)
		}
	}
	return out
}

// RequestWithdrawal creates a pending request against the requester's
// entitlement and reserves the amount
func (k *Keeper) RequestWithdrawal(ctx context.Context, requester string, poolID uint64, amount math.Int) (*types.WithdrawalRequest, *types.Entitlement, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if amount.IsNil() || !amount.IsPositive() {
		return nil, nil, types.ErrInvalidParameters.Wrap("amount must be positive")
	}

	pool := k.GetPool(sdkCtx, poolID)
	if pool == nil {
		return nil, nil, types.ErrNotFound.Wrapf("pool %d", poolID)
	}
	if pool.Phase != types.PhaseClosed {
		return nil, nil, types.ErrPoolNotClosed.Wrapf("pool %d is %s", poolID, pool.Phase)
	}

	ent := k.GetEntitlement(sdkCtx, poolID, requester)
	if ent == nil {
		return nil, nil, types.ErrInsufficientEntitlement.Wrapf("%s has no entitlement in pool %d", requester, poolID)
	}
	if available := ent.Available(); amount.GT(available) {
		return nil, nil, types.ErrInsufficientEntitlement.Wrapf("requested %s, available %s", amount, available)
	}

	pool.WithdrawalSeq++
	req := types.NewWithdrawalRequest(poolID, pool.WithdrawalSeq, requester, amount, sdkCtx.BlockTime().Unix())
	ent.Reserved = ent.Reserved.Add(amount)

	k.SetWithdrawal(sdkCtx, req)
	k.SetEntitlement(sdkCtx, ent)
	k.SetPool(sdkCtx, pool)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeWithdrawalRequested,
			sdk.NewAttribute(types.AttributeKeyPoolID, strconv.FormatUint(poolID, 10)),
			sdk.NewAttribute(types.AttributeKeyRequester, requester),
			sdk.NewAttribute(types.AttributeKeySequence, strconv.FormatUint(req.Sequence, 10)),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
			sdk.NewAttribute(types.AttributeKeyReceiptID, req.ReceiptID),
		),
	)

	k.logger.Info("Withdrawal requested",
		"pool_id", poolID,
		"requester", requester,
		"sequence", req.Sequence,
		"amount", amount.String(),
	)

	return req, ent, nil
}

// operatorWithdrawal loads a request after checking the operator
func (k *Keeper) operatorWithdrawal(ctx sdk.Context, operator string, poolID, seq uint64) (*types.WithdrawalRequest, *types.Pool, error) {
	pool := k.GetPool(ctx, poolID)
	if pool == nil {
		return nil, nil, types.ErrNotFound.Wrapf("pool %d", poolID)
	}
	if !pool.IsOperator(operator) {
		return nil, nil, types.ErrUnauthorized.Wrapf("%s is not the operator of pool %d", operator, poolID)
	}
	req := k.GetWithdrawal(ctx, poolID, seq)
	if req == nil {
		return nil, nil, types.ErrNotFound.Wrapf("withdrawal %d/%d", poolID, seq)
	}
	return req, pool, nil
}

// ApproveWithdrawal moves a pending request to approved
func (k *Keeper) ApproveWithdrawal(ctx context.Context, operator string, poolID, seq uint64) (*types.WithdrawalRequest, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	req, _, err := k.operatorWithdrawal(sdkCtx, operator, poolID, seq)
	if err != nil {
		return nil, err
	}
	if req.Status != types.WithdrawalStatusPending {
		return nil, types.ErrIllegalTransition.Wrapf("cannot approve %s withdrawal", req.Status)
	}

	req.Status = types.WithdrawalStatusApproved
	req.DecidedAt = sdkCtx.BlockTime().Unix()
	req.DecidedBy = operator
	k.SetWithdrawal(sdkCtx, req)

	k.emitDecision(sdkCtx, req)
	return req, nil
}

// RejectWithdrawal moves a pending request to rejected and releases its
// reservation
func (k *Keeper) RejectWithdrawal(ctx context.Context, operator string, poolID, seq uint64) (*types.WithdrawalRequest, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	req, _, err := k.operatorWithdrawal(sdkCtx, operator, poolID, seq)
	if err != nil {
		return nil, err
	}
	if req.Status != types.WithdrawalStatusPending {
		return nil, types.ErrIllegalTransition.Wrapf("cannot reject %s withdrawal", req.Status)
	}

	ent := k.GetEntitlement(sdkCtx, poolID, req.Requester)
	if ent == nil {
		return nil, types.ErrNotFound.Wrapf("entitlement of %s in pool %d", req.Requester, poolID)
	}
	ent.Reserved = ent.Reserved.Sub(req.Amount)

	req.Status = types.WithdrawalStatusRejected
	req.DecidedAt = sdkCtx.BlockTime().Unix()
	req.DecidedBy = operator
	k.SetWithdrawal(sdkCtx, req)
	k.SetEntitlement(sdkCtx, ent)

	k.emitDecision(sdkCtx, req)
	return req, nil
}

// PayWithdrawal pays an approved request through the payout keeper. Paying
// a request that is already paid returns it unchanged, so a request is paid
// at most once.
func (k *Keeper) PayWithdrawal(ctx context.Context, operator string, poolID, seq uint64) (*types.WithdrawalRequest, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	req, pool, err := k.operatorWithdrawal(sdkCtx, operator, poolID, seq)
	if err != nil {
		return nil, err
	}
	switch req.Status {
	case types.WithdrawalStatusPaid:
		return req, nil
	case types.WithdrawalStatusApproved:
	default:
		return nil, types.ErrIllegalTransition.Wrapf("cannot pay %s withdrawal", req.Status)
	}

	ent := k.GetEntitlement(sdkCtx, poolID, req.Requester)
	if ent == nil {
		return nil, types.ErrNotFound.Wrapf("entitlement of %s in pool %d", req.Requester, poolID)
	}

	if k.payout == nil {
		return nil, types.ErrPayoutFailed.Wrap("no payout keeper configured")
	}
	if err := k.payout.Payout(ctx, req.Requester, sdk.NewCoin(pool.Denom, req.Amount)); err != nil {
		return nil, errorsmod.Wrapf(types.ErrPayoutFailed, "withdrawal %d/%d: %v", poolID, seq, err)
	}

	ent.Reserved = ent.Reserved.Sub(req.Amount)
	ent.Paid = ent.Paid.Add(req.Amount)
	req.Status = types.WithdrawalStatusPaid
	req.PaidAt = sdkCtx.BlockTime().Unix()
	k.SetWithdrawal(sdkCtx, req)
	k.SetEntitlement(sdkCtx, ent)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeWithdrawalPaid,
			sdk.NewAttribute(types.AttributeKeyPoolID, strconv.FormatUint(poolID, 10)),
			sdk.NewAttribute(types.AttributeKeySequence, strconv.FormatUint(seq, 10)),
			sdk.NewAttribute(types.AttributeKeyRequester, req.Requester),
			sdk.NewAttribute(types.AttributeKeyAmount, req.Amount.String()),
			sdk.NewAttribute(types.AttributeKeyReceiptID, req.ReceiptID),
		),
	)

	k.logger.Info("Withdrawal paid",
		"pool_id", poolID,
		"sequence", seq,
		"requester", req.Requester,
		"amount", req.Amount.String(),
	)

	return req, nil
}

func (k *Keeper) emitDecision(ctx sdk.Context, req *types.WithdrawalRequest) {
	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeWithdrawalDecided,
			sdk.NewAttribute(types.AttributeKeyPoolID, strconv.FormatUint(req.PoolID, 10)),
			sdk.NewAttribute(types.AttributeKeySequence, strconv.FormatUint(req.Sequence, 10)),
			sdk.NewAttribute(types.AttributeKeyStatus, req.Status),
			sdk.NewAttribute(types.AttributeKeyOperator, req.DecidedBy),
		),
	)

	k.logger.Info("Withdrawal decided",
		"pool_id", req.PoolID,
		"sequence", req.Sequence,
		"status", req.Status,
	)
}
