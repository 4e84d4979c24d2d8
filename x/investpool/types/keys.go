package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
)

// Module name and store key
const (
	ModuleName = "investpool"
	StoreKey   = ModuleName
	RouterKey  = ModuleName

	// PayoutModuleAccount holds the coins paid out to investors on withdrawal
	PayoutModuleAccount = ModuleName
)

// Store key prefixes
var (
	PoolKeyPrefix            = []byte{0x01}
	ContributionKeyPrefix    = []byte{0x02}
	PositionKeyPrefix        = []byte{0x03}
	EntitlementKeyPrefix     = []byte{0x04}
	WithdrawalKeyPrefix      = []byte{0x05}
	UserWithdrawalsKeyPrefix = []byte{0x06}
	ReportKeyPrefix          = []byte{0x07}
	PhaseIndexKeyPrefix      = []byte{0x08}

	ParamsKey     = []byte{0x10}
	NextPoolIDKey = []byte{0x11}
)

// PoolKey returns the store key of a pool record
func PoolKey(poolID uint64) []byte {
	return append(append([]byte{}, PoolKeyPrefix...), sdk.Uint64ToBigEndian(poolID)...)
}

// PhaseIndexPrefix returns the index prefix for pools in phase
func PhaseIndexPrefix(phase Phase) []byte {
	return append(append([]byte{}, PhaseIndexKeyPrefix...), phase.Byte())
}

// PhaseIndexKey returns the index key of a pool in phase
func PhaseIndexKey(phase Phase, poolID uint64) []byte {
	return append(PhaseIndexPrefix(phase), sdk.Uint64ToBigEndian(poolID)...)
}

// PoolScopedPrefix is prefix | poolID
func PoolScopedPrefix(prefix []byte, poolID uint64) []byte {
	return append(append([]byte{}, prefix...), sdk.Uint64ToBigEndian(poolID)...)
}

// ContributionKey returns the store key of a contribution
func ContributionKey(poolID, seq uint64) []byte {
	return append(PoolScopedPrefix(ContributionKeyPrefix, poolID), sdk.Uint64ToBigEndian(seq)...)
}

// PositionKey returns the store key of a contributor position
func PositionKey(poolID uint64, contributor string) []byte {
	return append(PoolScopedPrefix(PositionKeyPrefix, poolID), []byte(contributor)...)
}

// EntitlementKey returns the store key of a holder's entitlement
func EntitlementKey(poolID uint64, holder string) []byte {
	return append(PoolScopedPrefix(EntitlementKeyPrefix, poolID), []byte(holder)...)
}

// WithdrawalKey returns the store key of a withdrawal request
func WithdrawalKey(poolID, seq uint64) []byte {
	return append(PoolScopedPrefix(WithdrawalKeyPrefix, poolID), sdk.Uint64ToBigEndian(seq)...)
}

// UserWithdrawalsPrefix returns the index prefix of a requester's withdrawals
func UserWithdrawalsPrefix(user string) []byte {
	return append(append([]byte{}, UserWithdrawalsKeyPrefix...), address.MustLengthPrefix([]byte(user))...)
}

// UserWithdrawalKey returns the index key of one of a requester's withdrawals
func UserWithdrawalKey(user string, poolID, seq uint64) []byte {
	key := append(UserWithdrawalsPrefix(user), sdk.Uint64ToBigEndian(poolID)...)
	return append(key, sdk.Uint64ToBigEndian(seq)...)
}

// ReportKey returns the store key of a performance report
func ReportKey(poolID, seq uint64) []byte {
	return append(PoolScopedPrefix(ReportKeyPrefix, poolID), sdk.Uint64ToBigEndian(seq)...)
}
