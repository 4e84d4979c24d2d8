package confidential

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"cosmossdk.io/math"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/vaultshield/pools/x/investpool/types"
)

// DefaultRangeBits bounds amounts the ElGamal backend can reveal
const DefaultRangeBits = 40

const pointSize = bn254.SizeOfG1AffineCompressed

// ElGamalEvaluator implements exponential ElGamal over the bn254 G1 group.
// A ciphertext (C1, C2) = (rG, mG + rH) is additively homomorphic, so Add
// never touches the secret key. Reveal recovers mG and solves the bounded
// discrete log with baby-step giant-step.
type ElGamalEvaluator struct {
	identity  string
	secret    fr.Element
	public    bn254.G1Affine
	base      bn254.G1Affine
	rangeBits uint
	attest    *attestor

	tableOnce sync.Once
	table     map[[pointSize]byte]uint64
	giant     bn254.G1Affine // -(m * G)
	steps     uint64
}

var (
	_ Oracle                 = (*ElGamalEvaluator)(nil)
	_ types.BoundedEvaluator = (*ElGamalEvaluator)(nil)
)

// NewElGamalEvaluator derives the key pair from the oracle secret
func NewElGamalEvaluator(identity string, secret []byte, rangeBits uint) (*ElGamalEvaluator, error) {
	if identity == "" {
		return nil, fmt.Errorf("oracle identity required")
	}
	if rangeBits == 0 {
		rangeBits = DefaultRangeBits
	}
	if rangeBits > 62 {
		return nil, fmt.Errorf("range bits must be at most 62, got %d", rangeBits)
	}
	skBytes, err := deriveKey(secret, "vaultshield/elgamal/v1")
	if err != nil {
		return nil, err
	}
	att, err := newAttestor(secret)
	if err != nil {
		return nil, err
	}

	_, _, g1, _ := bn254.Generators()
	e := &ElGamalEvaluator{
		identity:  identity,
		base:      g1,
		rangeBits: rangeBits,
		attest:    att,
	}
	e.secret.SetBytes(skBytes)
	e.public.ScalarMultiplication(&g1, e.secret.BigInt(new(big.Int)))
	return e, nil
}

// Identity implements types.ConfidentialEvaluator
func (e *ElGamalEvaluator) Identity() string { return e.identity }

// MaxRevealable implements types.BoundedEvaluator. Reveal only succeeds
// for amounts below 2^rangeBits.
func (e *ElGamalEvaluator) MaxRevealable() math.Int {
	return math.NewIntFromUint64(uint64(1)<<e.rangeBits - 1)
}

// PublicKey returns the compressed public key clients encrypt to
func (e *ElGamalEvaluator) PublicKey() []byte {
	bz := e.public.Bytes()
	return bz[:]
}

// Encrypt encrypts an amount under fresh randomness
func (e *ElGamalEvaluator) Encrypt(amount math.Int) (types.ConfidentialAmount, error) {
	if amount.IsNil() || amount.IsNegative() || amount.BigInt().BitLen() > int(e.rangeBits) {
		return types.ConfidentialAmount{}, ErrOutOfRange
	}
	var r fr.Element
	if _, err := r.SetRandom(); err != nil {
		return types.ConfidentialAmount{}, err
	}
	rBig := r.BigInt(new(big.Int))

	var c1, mG, rH, c2 bn254.G1Affine
	c1.ScalarMultiplication(&e.base, rBig)
	mG.ScalarMultiplication(&e.base, amount.BigInt())
	rH.ScalarMultiplication(&e.public, rBig)
	c2.Add(&mG, &rH)
	return encodePair(&c1, &c2), nil
}

// EncryptedZero implements types.ConfidentialEvaluator. The pair of points
// at infinity is a valid encryption of zero with r = 0.
func (e *ElGamalEvaluator) EncryptedZero(_ context.Context) (types.ConfidentialAmount, error) {
	var c1, c2 bn254.G1Affine
	return encodePair(&c1, &c2), nil
}

// Add implements types.ConfidentialEvaluator
func (e *ElGamalEvaluator) Add(_ context.Context, a, b types.ConfidentialAmount) (types.ConfidentialAmount, error) {
	a1, a2, err := decodePair(a)
	if err != nil {
		return types.ConfidentialAmount{}, err
	}
	b1, b2, err := decodePair(b)
	if err != nil {
		return types.ConfidentialAmount{}, err
	}
	var c1, c2 bn254.G1Affine
	c1.Add(&a1, &b1)
	c2.Add(&a2, &b2)
	return encodePair(&c1, &c2), nil
}

// MeetsThreshold implements types.ConfidentialEvaluator
func (e *ElGamalEvaluator) MeetsThreshold(ctx context.Context, a types.ConfidentialAmount, threshold math.Int) (bool, error) {
	x, err := e.Reveal(ctx, a)
	if err != nil {
		return false, err
	}
	return x.GTE(threshold), nil
}

// Reveal implements types.ConfidentialEvaluator
func (e *ElGamalEvaluator) Reveal(_ context.Context, a types.ConfidentialAmount) (math.Int, error) {
	c1, c2, err := decodePair(a)
	if err != nil {
		return math.Int{}, err
	}
	var shared, mG bn254.G1Affine
	shared.ScalarMultiplication(&c1, e.secret.BigInt(new(big.Int)))
	mG.Sub(&c2, &shared)

	m, ok := e.discreteLog(&mG)
	if !ok {
		return math.Int{}, ErrOutOfRange
	}
	return math.NewIntFromUint64(m), nil
}

// VerifyMinimum implements types.ConfidentialEvaluator
func (e *ElGamalEvaluator) VerifyMinimum(_ context.Context, a types.ConfidentialAmount, minimum math.Int, proof []byte) (bool, error) {
	if _, _, err := decodePair(a); err != nil {
		return false, err
	}
	return e.attest.verify(a, minimum, proof), nil
}

// AttestMinimum issues a minimum attestation for an encrypted amount
func (e *ElGamalEvaluator) AttestMinimum(ctx context.Context, a types.ConfidentialAmount, minimum math.Int) ([]byte, error) {
	x, err := e.Reveal(ctx, a)
	if err != nil {
		return nil, err
	}
	return e.attest.issue(a, x, minimum)
}

// discreteLog finds m < 2^rangeBits with mG == target
func (e *ElGamalEvaluator) discreteLog(target *bn254.G1Affine) (uint64, bool) {
	e.tableOnce.Do(e.buildTable)

	var gamma bn254.G1Affine
	gamma.Set(target)
	for i := uint64(0); i <= e.steps; i++ {
		if j, ok := e.table[gamma.Bytes()]; ok {
			m := i*e.steps + j
			if m>>e.rangeBits != 0 {
				return 0, false
			}
			return m, true
		}
		gamma.Add(&gamma, &e.giant)
	}
	return 0, false
}

// buildTable precomputes the baby steps jG for j < 2^(rangeBits/2)
func (e *ElGamalEvaluator) buildTable() {
	e.steps = uint64(1) << ((e.rangeBits + 1) / 2)
	e.table = make(map[[pointSize]byte]uint64, e.steps)

	var acc bn254.G1Affine
	for j := uint64(0); j < e.steps; j++ {
		e.table[acc.Bytes()] = j
		acc.Add(&acc, &e.base)
	}
	// acc now holds steps*G
	e.giant.Neg(&acc)
}

func encodePair(c1, c2 *bn254.G1Affine) types.ConfidentialAmount {
	b1, b2 := c1.Bytes(), c2.Bytes()
	out := make([]byte, 0, 2*pointSize)
	out = append(out, b1[:]...)
	out = append(out, b2[:]...)
	return types.ConfidentialAmount{Ciphertext: out}
}

func decodePair(a types.ConfidentialAmount) (bn254.G1Affine, bn254.G1Affine, error) {
	var c1, c2 bn254.G1Affine
	if len(a.Ciphertext) != 2*pointSize {
		return c1, c2, ErrMalformed
	}
	if _, err := c1.SetBytes(a.Ciphertext[:pointSize]); err != nil {
		return c1, c2, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := c2.SetBytes(a.Ciphertext[pointSize:]); err != nil {
		return c1, c2, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return c1, c2, nil
}
