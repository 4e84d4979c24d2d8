package app

import (
	"context"
	"errors"
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	investpooltypes "github.com/vaultshield/pools/x/investpool/types"
)

type recordingBank struct {
	module string
	to     sdk.AccAddress
	amt    sdk.Coins
	err    error
}

func (b *recordingBank) SendCoinsFromModuleToAccount(_ context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error {
	if b.err != nil {
		return b.err
	}
	b.module, b.to, b.amt = senderModule, recipientAddr, amt
	return nil
}

func TestBankPayoutAdapter(t *testing.T) {
	bank := &recordingBank{}
	adapter := newBankPayoutAdapter(bank)

	recipient := sdk.AccAddress([]byte("recipient___________"))
	coin := sdk.NewCoin("uvault", math.NewInt(250))

	if err := adapter.Payout(context.Background(), recipient.String(), coin); err != nil {
		t.Fatalf("payout failed: %v", err)
	}
	if bank.module != investpooltypes.PayoutModuleAccount {
		t.Errorf("sender module = %s, want %s", bank.module, investpooltypes.PayoutModuleAccount)
	}
	if !bank.to.Equals(recipient) {
		t.Errorf("recipient = %s, want %s", bank.to, recipient)
	}
	if !bank.amt.Equal(sdk.NewCoins(coin)) {
		t.Errorf("amount = %s, want %s", bank.amt, coin)
	}
}

func TestBankPayoutAdapterErrors(t *testing.T) {
	tests := []struct {
		name      string
		bank      *recordingBank
		recipient string
		coin      sdk.Coin
	}{
		{"bad address", &recordingBank{}, "not-an-address", sdk.NewCoin("uvault", math.NewInt(1))},
		{"zero amount", &recordingBank{}, sdk.AccAddress([]byte("recipient___________")).String(), sdk.NewCoin("uvault", math.ZeroInt())},
		{"bank failure", &recordingBank{err: errors.New("insufficient funds")}, sdk.AccAddress([]byte("recipient___________")).String(), sdk.NewCoin("uvault", math.NewInt(5))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newBankPayoutAdapter(tt.bank)
			if err := adapter.Payout(context.Background(), tt.recipient, tt.coin); err == nil {
				t.Error("expected error")
			}
		})
	}
}
