package app

import (
	"context"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	investpooltypes "github.com/vaultshield/pools/x/investpool/types"
)

// bankPayoutAdapter pays withdrawals out of the investpool module account
type bankPayoutAdapter struct {
	bank investpooltypes.BankKeeper
}

func newBankPayoutAdapter(bank investpooltypes.BankKeeper) investpooltypes.PayoutKeeper {
	return bankPayoutAdapter{bank: bank}
}

func (a bankPayoutAdapter) Payout(ctx context.Context, recipient string, amt sdk.Coin) error {
	if a.bank == nil {
		return fmt.Errorf("bank keeper not set")
	}
	addr, err := sdk.AccAddressFromBech32(recipient)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}
	if !amt.IsValid() || amt.IsZero() {
		return fmt.Errorf("invalid payout amount %s", amt)
	}
	return a.bank.SendCoinsFromModuleToAccount(ctx, investpooltypes.PayoutModuleAccount, addr, sdk.NewCoins(amt))
}
