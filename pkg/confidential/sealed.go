package confidential

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"cosmossdk.io/math"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/vaultshield/pools/x/investpool/types"
)

// SealedEvaluator keeps amounts sealed under XChaCha20-Poly1305. Nonces are
// derived from the operation inputs with a keyed hash, so every node
// evaluating the same transaction produces the same ciphertext.
type SealedEvaluator struct {
	identity string
	aead     cipher.AEAD
	nonceKey []byte
	attest   *attestor
}

var _ Oracle = (*SealedEvaluator)(nil)

// NewSealedEvaluator builds a sealed backend from the oracle secret
func NewSealedEvaluator(identity string, secret []byte) (*SealedEvaluator, error) {
	if identity == "" {
		return nil, fmt.Errorf("oracle identity required")
	}
	encKey, err := deriveKey(secret, "vaultshield/seal/v1")
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(encKey)
	if err != nil {
		return nil, err
	}
	nonceKey, err := deriveKey(secret, domainNonce)
	if err != nil {
		return nil, err
	}
	att, err := newAttestor(secret)
	if err != nil {
		return nil, err
	}
	return &SealedEvaluator{
		identity: identity,
		aead:     aead,
		nonceKey: nonceKey,
		attest:   att,
	}, nil
}

// Identity implements types.ConfidentialEvaluator
func (e *SealedEvaluator) Identity() string { return e.identity }

// Encrypt seals a plaintext amount under a random nonce. It runs on the
// client side, never inside a transaction.
func (e *SealedEvaluator) Encrypt(amount math.Int) (types.ConfidentialAmount, error) {
	if amount.IsNil() || amount.IsNegative() {
		return types.ConfidentialAmount{}, ErrOutOfRange
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return types.ConfidentialAmount{}, err
	}
	return e.sealWithNonce(nonce, []byte(amount.String())), nil
}

// EncryptedZero implements types.ConfidentialEvaluator
func (e *SealedEvaluator) EncryptedZero(_ context.Context) (types.ConfidentialAmount, error) {
	return e.seal([]byte("0"), []byte("zero")), nil
}

// Add implements types.ConfidentialEvaluator
func (e *SealedEvaluator) Add(_ context.Context, a, b types.ConfidentialAmount) (types.ConfidentialAmount, error) {
	x, err := e.open(a)
	if err != nil {
		return types.ConfidentialAmount{}, err
	}
	y, err := e.open(b)
	if err != nil {
		return types.ConfidentialAmount{}, err
	}
	sum := x.Add(y)
	return e.seal([]byte(sum.String()), []byte("add"), a.Ciphertext, b.Ciphertext), nil
}

// MeetsThreshold implements types.ConfidentialEvaluator
func (e *SealedEvaluator) MeetsThreshold(_ context.Context, a types.ConfidentialAmount, threshold math.Int) (bool, error) {
	x, err := e.open(a)
	if err != nil {
		return false, err
	}
	return x.GTE(threshold), nil
}

// Reveal implements types.ConfidentialEvaluator
func (e *SealedEvaluator) Reveal(_ context.Context, a types.ConfidentialAmount) (math.Int, error) {
	return e.open(a)
}

// VerifyMinimum implements types.ConfidentialEvaluator
func (e *SealedEvaluator) VerifyMinimum(_ context.Context, a types.ConfidentialAmount, minimum math.Int, proof []byte) (bool, error) {
	if _, err := e.open(a); err != nil {
		return false, err
	}
	return e.attest.verify(a, minimum, proof), nil
}

// AttestMinimum issues a minimum attestation for a sealed amount
func (e *SealedEvaluator) AttestMinimum(_ context.Context, a types.ConfidentialAmount, minimum math.Int) ([]byte, error) {
	x, err := e.open(a)
	if err != nil {
		return nil, err
	}
	return e.attest.issue(a, x, minimum)
}

func (e *SealedEvaluator) seal(plaintext []byte, parts ...[]byte) types.ConfidentialAmount {
	h, _ := blake2b.New256(e.nonceKey)
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return e.sealWithNonce(h.Sum(nil)[:chacha20poly1305.NonceSizeX], plaintext)
}

func (e *SealedEvaluator) sealWithNonce(nonce, plaintext []byte) types.ConfidentialAmount {
	out := make([]byte, 0, len(nonce)+len(plaintext)+e.aead.Overhead())
	out = append(out, nonce...)
	out = e.aead.Seal(out, nonce, plaintext, []byte(e.identity))
	return types.ConfidentialAmount{Ciphertext: out}
}

func (e *SealedEvaluator) open(a types.ConfidentialAmount) (math.Int, error) {
	if len(a.Ciphertext) < chacha20poly1305.NonceSizeX+e.aead.Overhead() {
		return math.Int{}, ErrMalformed
	}
	nonce, body := a.Ciphertext[:chacha20poly1305.NonceSizeX], a.Ciphertext[chacha20poly1305.NonceSizeX:]
	plaintext, err := e.aead.Open(nil, nonce, body, []byte(e.identity))
	if err != nil {
		return math.Int{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	amount, ok := math.NewIntFromString(string(plaintext))
	if !ok || amount.IsNegative() {
		return math.Int{}, ErrMalformed
	}
	return amount, nil
}
