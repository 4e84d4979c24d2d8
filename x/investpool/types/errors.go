package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrInvalidParameters       = errors.Register(ModuleName, 1, "invalid parameters")
	ErrNotFound                = errors.Register(ModuleName, 2, "not found")
	ErrIllegalTransition       = errors.Register(ModuleName, 3, "illegal transition")
	ErrPoolNotFunding          = errors.Register(ModuleName, 4, "pool is not in funding phase")
	ErrPoolNotClosed           = errors.Register(ModuleName, 5, "pool is not closed")
	ErrBelowMinimum            = errors.Register(ModuleName, 6, "contribution below minimum investment")
	ErrInsufficientEntitlement = errors.Register(ModuleName, 7, "insufficient entitlement")
	ErrUnauthorized            = errors.Register(ModuleName, 8, "unauthorized")
	ErrAmountOutOfRange        = errors.Register(ModuleName, 9, "amount outside the oracle's revealable range")

	// Oracle and settlement errors
	ErrOracleUnavailable  = errors.Register(ModuleName, 20, "confidential evaluation oracle unavailable")
	ErrSettlementMismatch = errors.Register(ModuleName, 21, "revealed contributions do not reconcile with raised total")
	ErrPayoutFailed       = errors.Register(ModuleName, 22, "payout transfer failed")
)
