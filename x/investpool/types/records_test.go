package types

import (
	"bytes"
	"testing"

	"cosmossdk.io/math"
)

func TestReceiptIDDeterministic(t *testing.T) {
	a := ReceiptID("withdrawal", 1, 2)
	if a != ReceiptID("withdrawal", 1, 2) {
		t.Error("receipt id must be stable")
	}
	for _, other := range []string{
		ReceiptID("withdrawal", 2, 1),
		ReceiptID("report", 1, 2),
		ReceiptID("withdrawal", 1, 3),
	} {
		if other == a {
			t.Errorf("receipt id collision: %s", other)
		}
	}
}

func TestEntitlementAvailable(t *testing.T) {
	e := NewEntitlement(1, "alice", math.NewInt(100), math.NewInt(150))
	e.Reserved = math.NewInt(40)
	e.Paid = math.NewInt(60)
	if !e.Available().Equal(math.NewInt(50)) {
		t.Errorf("available = %s, want 50", e.Available())
	}
}

func TestPoolViewHidesUnrevealedTotal(t *testing.T) {
	cfg := &PoolConfig{
		Name:              "Pool",
		TotalValue:        math.NewInt(10),
		MinimumInvestment: math.NewInt(1),
		FundingTarget:     math.NewInt(10),
		Duration:          60,
		Creator:           "creator",
	}
	pool := NewPool(1, cfg, NewConfidentialAmount([]byte{9, 9}), 0)
	if v := pool.View(); v.RaisedTotal != EncryptedSentinel {
		t.Errorf("raised total = %s, want sentinel", v.RaisedTotal)
	}

	pool.Revealed = true
	pool.RevealedTotal = math.NewInt(12)
	if v := pool.View(); v.RaisedTotal != "12" {
		t.Errorf("raised total = %s, want 12", v.RaisedTotal)
	}
}

func TestConfidentialAmountNeverPrints(t *testing.T) {
	c := NewConfidentialAmount([]byte("secret"))
	if c.String() != EncryptedSentinel {
		t.Errorf("String() = %s", c.String())
	}

	raw := []byte{1, 2, 3}
	c = NewConfidentialAmount(raw)
	raw[0] = 7
	if !bytes.Equal(c.Ciphertext, []byte{1, 2, 3}) {
		t.Error("ciphertext must be copied")
	}
	if !c.Equal(NewConfidentialAmount([]byte{1, 2, 3})) || c.IsEmpty() {
		t.Error("unexpected equality result")
	}
}

func TestKeysDoNotOverlap(t *testing.T) {
	// pool 1 seq 2 and pool 2 seq 1 must not share a key
	if bytes.Equal(ContributionKey(1, 2), ContributionKey(2, 1)) {
		t.Error("contribution keys collide")
	}
	if !bytes.HasPrefix(UserWithdrawalKey("alice", 1, 1), UserWithdrawalsPrefix("alice")) {
		t.Error("user withdrawal key outside its prefix")
	}
	if bytes.HasPrefix(UserWithdrawalKey("alicebob", 1, 1), UserWithdrawalsPrefix("alice")) {
		t.Error("requester prefixes must be length delimited")
	}
}
