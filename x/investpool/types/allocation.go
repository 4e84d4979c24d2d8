package types

import (
	"sort"

	"cosmossdk.io/math"
)

// Share is one contributor's revealed subtotal used for allocation
type Share struct {
	Holder        string
	Contributed   math.Int
	FirstSequence uint64
}

// AllocateProRata splits distributable across shares strictly pro rata by
// contributed amount. Each share receives floor(distributable*c/C); the
// leftover units go one each to the largest remainders, ties broken by the
// earliest first contribution. The result sums to distributable exactly and
// is returned in the order of shares.
func AllocateProRata(distributable math.Int, shares []Share) ([]math.Int, error) {
	if distributable.IsNil() || distributable.IsNegative() {
		return nil, ErrInvalidParameters.Wrap("distributable must be non-negative")
	}

	out := make([]math.Int, len(shares))
	total := math.ZeroInt()
	for i, s := range shares {
		if s.Contributed.IsNil() || s.Contributed.IsNegative() {
			return nil, ErrInvalidParameters.Wrapf("negative contribution for %s", s.Holder)
		}
		total = total.Add(s.Contributed)
		out[i] = math.ZeroInt()
	}
	if total.IsZero() {
		if !distributable.IsZero() && len(shares) > 0 {
			return nil, ErrInvalidParameters.Wrap("cannot distribute value without contributions")
		}
		return out, nil
	}

	remainders := make([]math.Int, len(shares))
	assigned := math.ZeroInt()
	for i, s := range shares {
		scaled := distributable.Mul(s.Contributed)
		out[i] = scaled.Quo(total)
		remainders[i] = scaled.Mod(total)
		assigned = assigned.Add(out[i])
	}

	leftover := distributable.Sub(assigned)
	if leftover.IsZero() {
		return out, nil
	}

	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := remainders[order[a]], remainders[order[b]]
		if !ra.Equal(rb) {
			return ra.GT(rb)
		}
		return shares[order[a]].FirstSequence < shares[order[b]].FirstSequence
	})

	// leftover < len(shares) since every remainder is below total
	n := leftover.Int64()
	for i := int64(0); i < n; i++ {
		idx := order[i]
		out[idx] = out[idx].Add(math.OneInt())
	}
	return out, nil
}
