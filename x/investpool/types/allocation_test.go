package types

import (
	"testing"

	"cosmossdk.io/math"
)

func shares(amounts ...int64) []Share {
	out := make([]Share, len(amounts))
	for i, a := range amounts {
		out[i] = Share{
			Holder:        string(rune('a' + i)),
			Contributed:   math.NewInt(a),
			FirstSequence: uint64(i + 1),
		}
	}
	return out
}

func sum(amounts []math.Int) math.Int {
	total := math.ZeroInt()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// TestAllocateProRata checks exact splits and remainder placement
func TestAllocateProRata(t *testing.T) {
	tests := []struct {
		name          string
		distributable int64
		shares        []Share
		want          []int64
	}{
		{"revealed total", 1000, shares(600, 400), []int64{600, 400}},
		{"scaled up", 1500, shares(600, 400), []int64{900, 600}},
		{"scaled down", 500, shares(600, 400), []int64{300, 200}},
		{"equal split remainder to earliest", 100, shares(1, 1, 1), []int64{34, 33, 33}},
		{"largest remainder first", 10, shares(5, 3, 2), []int64{5, 3, 2}},
		{"two leftovers", 11, shares(1, 1, 1), []int64{4, 4, 3}},
		{"nothing to distribute", 0, shares(10, 20), []int64{0, 0}},
		{"single holder", 77, shares(3), []int64{77}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AllocateProRata(math.NewInt(tt.distributable), tt.shares)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i, w := range tt.want {
				if !got[i].Equal(math.NewInt(w)) {
					t.Errorf("share %d = %s, want %d", i, got[i], w)
				}
			}
			if !sum(got).Equal(math.NewInt(tt.distributable)) {
				t.Errorf("allocations sum to %s, want %d", sum(got), tt.distributable)
			}
		})
	}
}

func TestAllocateTieBreakUsesFirstSequence(t *testing.T) {
	in := []Share{
		{Holder: "late", Contributed: math.NewInt(1), FirstSequence: 9},
		{Holder: "early", Contributed: math.NewInt(1), FirstSequence: 2},
	}
	got, err := AllocateProRata(math.NewInt(3), in)
	if err != nil {
		t.Fatal(err)
	}
	if !got[0].Equal(math.NewInt(1)) || !got[1].Equal(math.NewInt(2)) {
		t.Errorf("got late=%s early=%s, want 1 and 2", got[0], got[1])
	}
}

func TestAllocateRejectsInvalidInput(t *testing.T) {
	if _, err := AllocateProRata(math.NewInt(-1), shares(1)); err == nil {
		t.Error("expected negative distributable to fail")
	}
	if _, err := AllocateProRata(math.NewInt(10), shares(0, 0)); err == nil {
		t.Error("expected value without contributions to fail")
	}
	bad := []Share{{Holder: "x", Contributed: math.NewInt(-3)}}
	if _, err := AllocateProRata(math.NewInt(10), bad); err == nil {
		t.Error("expected negative contribution to fail")
	}

	got, err := AllocateProRata(math.ZeroInt(), nil)
	if err != nil || len(got) != 0 {
		t.Errorf("empty allocation = %v, %v", got, err)
	}
}
