package keeper

import (
	"encoding/json"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vaultshield/pools/x/investpool/types"
)

// Keeper manages the investpool module state
type Keeper struct {
	cdc       codec.BinaryCodec
	storeKey  storetypes.StoreKey
	evaluator types.ConfidentialEvaluator
	payout    types.PayoutKeeper
	authority string
	logger    log.Logger
}

// NewKeeper creates a new investpool keeper. evaluator may be nil on nodes
// without an oracle; every confidential operation then fails with
// ErrOracleUnavailable.
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	evaluator types.ConfidentialEvaluator,
	payout types.PayoutKeeper,
	authority string,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		cdc:       cdc,
		storeKey:  storeKey,
		evaluator: evaluator,
		payout:    payout,
		authority: authority,
		logger:    logger.With("module", "x/investpool"),
	}
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// GetAuthority returns the governance authority address
func (k *Keeper) GetAuthority() string {
	return k.authority
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

// oracle returns the evaluator if it matches the configured oracle identity
func (k *Keeper) oracle(ctx sdk.Context) (types.ConfidentialEvaluator, error) {
	if k.evaluator == nil {
		return nil, types.ErrOracleUnavailable.Wrap("no evaluator configured")
	}
	params := k.GetParams(ctx)
	if params.Oracle != "" && params.Oracle != k.evaluator.Identity() {
		return nil, types.ErrOracleUnavailable.Wrapf("evaluator %s is not the trusted oracle %s",
			k.evaluator.Identity(), params.Oracle)
	}
	return k.evaluator, nil
}

// oracleErr wraps an evaluator failure. An amount outside the reveal range
// is a business error and keeps its own code.
func oracleErr(op string, err error) error {
	if errorsmod.IsOf(err, types.ErrAmountOutOfRange) {
		return errorsmod.Wrap(err, op)
	}
	return errorsmod.Wrapf(types.ErrOracleUnavailable, "%s: %v", op, err)
}

// ============ Params ============

// GetParams returns the module parameters
func (k *Keeper) GetParams(ctx sdk.Context) types.Params {
	bz := k.GetStore(ctx).Get(types.ParamsKey)
	if bz == nil {
		return types.DefaultParams()
	}
	var params types.Params
	if err := json.Unmarshal(bz, &params); err != nil {
		return types.DefaultParams()
	}
	return params
}

// SetParams stores the module parameters
func (k *Keeper) SetParams(ctx sdk.Context, params types.Params) error {
	if err := params.Validate(); err != nil {
		return errorsmod.Wrap(types.ErrInvalidParameters, err.Error())
	}
	bz, err := json.Marshal(params)
	if err != nil {
		return err
	}
	k.GetStore(ctx).Set(types.ParamsKey, bz)
	return nil
}

// ============ Pool ID sequence ============

// GetNextPoolID returns the identifier the next pool will receive
func (k *Keeper) GetNextPoolID(ctx sdk.Context) uint64 {
	bz := k.GetStore(ctx).Get(types.NextPoolIDKey)
	if bz == nil {
		return 1
	}
	return sdk.BigEndianToUint64(bz)
}

// SetNextPoolID stores the next pool identifier
func (k *Keeper) SetNextPoolID(ctx sdk.Context, id uint64) {
	k.GetStore(ctx).Set(types.NextPoolIDKey, sdk.Uint64ToBigEndian(id))
}

// ============ Generic JSON helpers ============

func (k *Keeper) setJSON(ctx sdk.Context, key []byte, v interface{}) {
	bz, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("investpool: marshal %T: %v", v, err))
	}
	k.GetStore(ctx).Set(key, bz)
}

func (k *Keeper) getJSON(ctx sdk.Context, key []byte, v interface{}) bool {
	bz := k.GetStore(ctx).Get(key)
	if bz == nil {
		return false
	}
	if err := json.Unmarshal(bz, v); err != nil {
		k.logger.Error("failed to decode record", "key", fmt.Sprintf("%X", key), "error", err)
		return false
	}
	return true
}

// iterateJSON decodes every value under prefix into a fresh T
func iterateJSON[T any](k *Keeper, ctx sdk.Context, prefix []byte, fn func(*T) (stop bool)) {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), prefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var v T
		if err := json.Unmarshal(iterator.Value(), &v); err != nil {
			continue
		}
		if fn(&v) {
			return
		}
	}
}
