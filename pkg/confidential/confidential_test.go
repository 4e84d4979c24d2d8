package confidential

import (
	"context"
	"encoding/hex"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testOracles(t *testing.T) map[string]Oracle {
	t.Helper()
	sealed, err := NewSealedEvaluator("oracle-1", testSecret)
	require.NoError(t, err)
	elgamal, err := NewElGamalEvaluator("oracle-1", testSecret, 20)
	require.NoError(t, err)
	return map[string]Oracle{
		BackendSealed:  sealed,
		BackendElGamal: elgamal,
	}
}

func TestEncryptAddReveal(t *testing.T) {
	ctx := context.Background()
	for name, o := range testOracles(t) {
		t.Run(name, func(t *testing.T) {
			zero, err := o.EncryptedZero(ctx)
			require.NoError(t, err)
			revealed, err := o.Reveal(ctx, zero)
			require.NoError(t, err)
			require.True(t, revealed.IsZero())

			a, err := o.Encrypt(math.NewInt(1500))
			require.NoError(t, err)
			b, err := o.Encrypt(math.NewInt(2500))
			require.NoError(t, err)

			sum, err := o.Add(ctx, zero, a)
			require.NoError(t, err)
			sum, err = o.Add(ctx, sum, b)
			require.NoError(t, err)

			total, err := o.Reveal(ctx, sum)
			require.NoError(t, err)
			require.Equal(t, "4000", total.String())

			ok, err := o.MeetsThreshold(ctx, sum, math.NewInt(4000))
			require.NoError(t, err)
			require.True(t, ok)
			ok, err = o.MeetsThreshold(ctx, sum, math.NewInt(4001))
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestEncryptHidesEqualAmounts(t *testing.T) {
	for name, o := range testOracles(t) {
		t.Run(name, func(t *testing.T) {
			a, err := o.Encrypt(math.NewInt(42))
			require.NoError(t, err)
			b, err := o.Encrypt(math.NewInt(42))
			require.NoError(t, err)
			require.False(t, a.Equal(b))
		})
	}
}

func TestAddIsDeterministic(t *testing.T) {
	ctx := context.Background()
	for name, o := range testOracles(t) {
		t.Run(name, func(t *testing.T) {
			a, err := o.Encrypt(math.NewInt(7))
			require.NoError(t, err)
			b, err := o.Encrypt(math.NewInt(9))
			require.NoError(t, err)

			s1, err := o.Add(ctx, a, b)
			require.NoError(t, err)
			s2, err := o.Add(ctx, a, b)
			require.NoError(t, err)
			require.True(t, s1.Equal(s2))
		})
	}
}

func TestMinimumAttestation(t *testing.T) {
	ctx := context.Background()
	for name, o := range testOracles(t) {
		t.Run(name, func(t *testing.T) {
			a, err := o.Encrypt(math.NewInt(1000))
			require.NoError(t, err)

			proof, err := o.AttestMinimum(ctx, a, math.NewInt(500))
			require.NoError(t, err)

			ok, err := o.VerifyMinimum(ctx, a, math.NewInt(500), proof)
			require.NoError(t, err)
			require.True(t, ok)

			// bound to the minimum it was issued for
			ok, err = o.VerifyMinimum(ctx, a, math.NewInt(400), proof)
			require.NoError(t, err)
			require.False(t, ok)

			// bound to the ciphertext it was issued for
			other, err := o.Encrypt(math.NewInt(1000))
			require.NoError(t, err)
			ok, err = o.VerifyMinimum(ctx, other, math.NewInt(500), proof)
			require.NoError(t, err)
			require.False(t, ok)

			_, err = o.AttestMinimum(ctx, a, math.NewInt(1001))
			require.ErrorIs(t, err, ErrBelowMinimum)
		})
	}
}

func TestMalformedCiphertext(t *testing.T) {
	ctx := context.Background()
	for name, o := range testOracles(t) {
		t.Run(name, func(t *testing.T) {
			a, err := o.Encrypt(math.NewInt(5))
			require.NoError(t, err)

			bad := a
			bad.Ciphertext = append([]byte(nil), a.Ciphertext...)
			bad.Ciphertext = bad.Ciphertext[:len(bad.Ciphertext)-1]

			_, err = o.Reveal(ctx, bad)
			require.ErrorIs(t, err, ErrMalformed)
			_, err = o.Add(ctx, a, bad)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestCiphertextBoundToIdentity(t *testing.T) {
	ctx := context.Background()
	a, err := NewSealedEvaluator("oracle-a", testSecret)
	require.NoError(t, err)
	b, err := NewSealedEvaluator("oracle-b", testSecret)
	require.NoError(t, err)

	ct, err := a.Encrypt(math.NewInt(10))
	require.NoError(t, err)
	_, err = b.Reveal(ctx, ct)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestElGamalRange(t *testing.T) {
	o, err := NewElGamalEvaluator("oracle-1", testSecret, 12)
	require.NoError(t, err)

	_, err = o.Encrypt(math.NewInt(1 << 12))
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = o.Encrypt(math.NewInt(-1))
	require.ErrorIs(t, err, ErrOutOfRange)

	ct, err := o.Encrypt(math.NewInt(1<<12 - 1))
	require.NoError(t, err)
	v, err := o.Reveal(context.Background(), ct)
	require.NoError(t, err)
	require.Equal(t, int64(1<<12-1), v.Int64())
	require.True(t, v.Equal(o.MaxRevealable()))

	one, err := o.Encrypt(math.NewInt(1))
	require.NoError(t, err)
	over, err := o.Add(context.Background(), ct, one)
	require.NoError(t, err)
	_, err = o.Reveal(context.Background(), over)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestNewFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Identity = "oracle-1"
	cfg.SecretHex = hex.EncodeToString(testSecret)
	cfg.RangeBits = 16

	o, err := New(cfg)
	require.NoError(t, err)
	require.IsType(t, &ElGamalEvaluator{}, o)
	require.Equal(t, "oracle-1", o.Identity())

	cfg.Backend = BackendSealed
	o, err = New(cfg)
	require.NoError(t, err)
	require.IsType(t, &SealedEvaluator{}, o)

	cfg.Backend = "paillier"
	_, err = New(cfg)
	require.Error(t, err)

	cfg.Backend = BackendSealed
	cfg.SecretHex = "abcd"
	_, err = New(cfg)
	require.Error(t, err)
}
