package types

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// BankKeeper defines the expected interface for the bank module
type BankKeeper interface {
	SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error
}

// PayoutKeeper performs the actual value transfer for a paid withdrawal.
// The ledger only tracks accounting state.
type PayoutKeeper interface {
	Payout(ctx context.Context, recipient string, amt sdk.Coin) error
}
