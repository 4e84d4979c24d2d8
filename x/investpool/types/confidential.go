package types

import (
	"bytes"
	"context"

	"cosmossdk.io/math"
)

// EncryptedSentinel is shown in place of a total that has not been revealed
const EncryptedSentinel = "encrypted"

// ConfidentialAmount is an opaque ciphertext produced by the confidential
// evaluation oracle. The ledger never inspects its contents.
type ConfidentialAmount struct {
	Ciphertext []byte `json:"ciphertext"`
}

// NewConfidentialAmount wraps raw ciphertext bytes
func NewConfidentialAmount(ciphertext []byte) ConfidentialAmount {
	return ConfidentialAmount{Ciphertext: append([]byte(nil), ciphertext...)}
}

// IsEmpty reports whether no ciphertext is present
func (c ConfidentialAmount) IsEmpty() bool {
	return len(c.Ciphertext) == 0
}

// Equal compares ciphertext bytes
func (c ConfidentialAmount) Equal(o ConfidentialAmount) bool {
	return bytes.Equal(c.Ciphertext, o.Ciphertext)
}

// String never prints the ciphertext
func (c ConfidentialAmount) String() string {
	return EncryptedSentinel
}

// ConfidentialEvaluator is the trusted evaluation oracle. Every call is a
// single deterministic step inside the calling transaction; an error aborts
// the whole operation.
type ConfidentialEvaluator interface {
	// Identity is matched against Params.Oracle
	Identity() string

	EncryptedZero(ctx context.Context) (ConfidentialAmount, error)
	Add(ctx context.Context, a, b ConfidentialAmount) (ConfidentialAmount, error)
	MeetsThreshold(ctx context.Context, a ConfidentialAmount, threshold math.Int) (bool, error)
	Reveal(ctx context.Context, a ConfidentialAmount) (math.Int, error)

	// VerifyMinimum checks an externally produced assertion that the amount
	// behind a is at least minimum, without disclosing the amount.
	VerifyMinimum(ctx context.Context, a ConfidentialAmount, minimum math.Int, proof []byte) (bool, error)
}

// BoundedEvaluator is implemented by evaluators that can only reveal
// amounts up to a ceiling
type BoundedEvaluator interface {
	MaxRevealable() math.Int
}

// MaxRevealable returns the evaluator's reveal ceiling, if it has one
func MaxRevealable(ev ConfidentialEvaluator) (math.Int, bool) {
	b, ok := ev.(BoundedEvaluator)
	if !ok {
		return math.Int{}, false
	}
	return b.MaxRevealable(), true
}
