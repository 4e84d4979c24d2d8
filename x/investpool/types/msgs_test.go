package types

import (
	"errors"
	"strings"
	"testing"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

func addr(name string) string {
	bz := make([]byte, 20)
	copy(bz, name)
	return sdk.AccAddress(bz).String()
}

func validCreatePool() MsgCreatePool {
	return MsgCreatePool{
		Creator:           addr("creator"),
		Name:              "Harbour Logistics Fund",
		AssetType:         "real_estate",
		TotalValue:        "2000000",
		MinimumInvestment: "1000",
		FundingTarget:     "1000000",
		Duration:          86400,
	}
}

// TestMsgCreatePoolValidateBasic tests the stateless pool checks
func TestMsgCreatePoolValidateBasic(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *MsgCreatePool)
		wantErr bool
	}{
		{"valid", func(m *MsgCreatePool) {}, false},
		{"valid with operator", func(m *MsgCreatePool) { m.Operator = addr("operator") }, false},
		{"bad creator", func(m *MsgCreatePool) { m.Creator = "creator" }, true},
		{"bad operator", func(m *MsgCreatePool) { m.Operator = "op" }, true},
		{"long name", func(m *MsgCreatePool) { m.Name = strings.Repeat("n", MaxPoolNameLength+1) }, true},
		{"non numeric target", func(m *MsgCreatePool) { m.FundingTarget = "1e6" }, true},
		{"zero minimum", func(m *MsgCreatePool) { m.MinimumInvestment = "0" }, true},
		{"negative duration", func(m *MsgCreatePool) { m.Duration = -1 }, true},
		{"expected return", func(m *MsgCreatePool) { m.ExpectedReturn = "6-9% p.a." }, false},
		{"long expected return", func(m *MsgCreatePool) {
			m.ExpectedReturn = strings.Repeat("r", MaxExpectedReturnLength+1)
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validCreatePool()
			tt.mutate(&msg)
			err := msg.ValidateBasic()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBasic() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMsgCreatePoolConfig(t *testing.T) {
	msg := validCreatePool()
	msg.ExpectedReturn = "6-9% p.a."
	cfg, err := msg.Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FundingTarget.Int64() != 1000000 || cfg.Duration != 86400 || cfg.Creator != msg.Creator {
		t.Errorf("unexpected config %+v", cfg)
	}

	pool := NewPool(3, cfg, NewConfidentialAmount([]byte{1}), 100)
	if pool.Operator != msg.Creator {
		t.Errorf("operator should default to creator, got %s", pool.Operator)
	}
	if pool.Denom != DefaultDenom || pool.FundingDeadline != 86500 {
		t.Errorf("unexpected pool %+v", pool)
	}
	if pool.View().ExpectedReturn != "6-9% p.a." {
		t.Errorf("expected return not carried to the view: %+v", pool.View())
	}
}

func TestAfterDurationSaturates(t *testing.T) {
	const maxTime = int64(^uint64(0) >> 1)
	tests := []struct {
		now, duration, want int64
	}{
		{100, 60, 160},
		{100, maxTime - 100, maxTime},
		{100, maxTime, maxTime},
		{maxTime, 1, maxTime},
	}
	for _, tt := range tests {
		if got := AfterDuration(tt.now, tt.duration); got != tt.want {
			t.Errorf("AfterDuration(%d, %d) = %d, want %d", tt.now, tt.duration, got, tt.want)
		}
	}
}

func TestMsgInvestValidateBasic(t *testing.T) {
	msg := MsgInvest{
		Investor:        addr("alice"),
		PoolID:          1,
		EncryptedAmount: []byte{1, 2, 3},
		MinimumProof:    []byte{4},
	}
	if err := msg.ValidateBasic(); err != nil {
		t.Fatalf("valid msg rejected: %v", err)
	}

	noProof := msg
	noProof.MinimumProof = nil
	if err := noProof.ValidateBasic(); !errors.Is(err, ErrBelowMinimum) {
		t.Errorf("missing proof error = %v", err)
	}

	noPool := msg
	noPool.PoolID = 0
	if err := noPool.ValidateBasic(); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing pool error = %v", err)
	}
}

func TestMsgRequestWithdrawalValidateBasic(t *testing.T) {
	for amount, ok := range map[string]bool{"5": true, "0": false, "-5": false, "five": false} {
		msg := MsgRequestWithdrawal{Requester: addr("alice"), PoolID: 1, Amount: amount}
		if err := msg.ValidateBasic(); (err == nil) != ok {
			t.Errorf("amount %q: error = %v", amount, err)
		}
	}
}

func TestMsgDecisionsValidateBasic(t *testing.T) {
	op := addr("operator")
	valid := []sdk.Msg{
		&MsgApproveWithdrawal{Operator: op, PoolID: 1, Sequence: 1},
		&MsgRejectWithdrawal{Operator: op, PoolID: 1, Sequence: 1},
		&MsgPayWithdrawal{Operator: op, PoolID: 1, Sequence: 1},
	}
	for _, msg := range valid {
		if err := msg.(interface{ ValidateBasic() error }).ValidateBasic(); err != nil {
			t.Errorf("%T rejected: %v", msg, err)
		}
	}

	if err := (MsgPayWithdrawal{Operator: op, PoolID: 1}).ValidateBasic(); err == nil {
		t.Error("expected missing sequence to fail")
	}
	if err := (MsgClosePool{Operator: "nobody", PoolID: 1}).ValidateBasic(); err == nil {
		t.Error("expected bad operator to fail")
	}
}

func TestMsgSubmitPerformanceReportValidateBasic(t *testing.T) {
	msg := MsgSubmitPerformanceReport{
		Operator:     addr("operator"),
		PoolID:       1,
		Period:       "2026-Q3",
		TotalReturns: "-250",
		TotalValue:   "9750",
		ReportHash:   strings.Repeat("a1", 32),
	}
	if err := msg.ValidateBasic(); err != nil {
		t.Fatalf("valid report rejected: %v", err)
	}

	bad := msg
	bad.TotalValue = "-1"
	if err := bad.ValidateBasic(); err == nil {
		t.Error("expected negative total value to fail")
	}

	bad = msg
	bad.ReportHash = strings.Repeat("a1", 31)
	if err := bad.ValidateBasic(); err == nil {
		t.Error("expected short report hash to fail")
	}
}

func TestMessageNamesAreDistinct(t *testing.T) {
	names := []string{
		(&MsgCreatePool{}).XXX_MessageName(),
		(&MsgInvest{}).XXX_MessageName(),
		(&MsgClosePool{}).XXX_MessageName(),
		(&MsgRequestWithdrawal{}).XXX_MessageName(),
		(&MsgApproveWithdrawal{}).XXX_MessageName(),
		(&MsgRejectWithdrawal{}).XXX_MessageName(),
		(&MsgPayWithdrawal{}).XXX_MessageName(),
		(&MsgSubmitPerformanceReport{}).XXX_MessageName(),
	}
	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			t.Errorf("duplicate message name %s", n)
		}
		seen[n] = true
	}
}
