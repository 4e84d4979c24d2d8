package confidential

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"cosmossdk.io/math"
	"golang.org/x/crypto/blake2b"

	"github.com/vaultshield/pools/x/investpool/types"
)

// Domain separators for keyed digests
const (
	domainMinimum = "vaultshield/minimum/v1"
	domainNonce   = "vaultshield/nonce/v1"
)

var (
	// ErrBelowMinimum is returned when an attestation is requested for an
	// amount under the minimum
	ErrBelowMinimum = errors.New("amount below minimum")
	// ErrMalformed is returned for ciphertexts the backend cannot decode
	ErrMalformed = errors.New("malformed ciphertext")
	// ErrOutOfRange is returned for amounts the backend cannot represent
	// or reveal. It is the ledger's registered error so callers can tell
	// it apart from an oracle outage.
	ErrOutOfRange = types.ErrAmountOutOfRange
)

// attestor issues and checks minimum-investment attestations. An
// attestation is a keyed BLAKE2b tag over the ciphertext and the minimum,
// so it only verifies for the exact ciphertext it was issued for.
type attestor struct {
	key []byte
}

func newAttestor(secret []byte) (*attestor, error) {
	key, err := deriveKey(secret, domainMinimum)
	if err != nil {
		return nil, err
	}
	return &attestor{key: key}, nil
}

func (a *attestor) tag(ct types.ConfidentialAmount, minimum math.Int) []byte {
	h, _ := blake2b.New256(a.key)
	h.Write([]byte(domainMinimum))
	h.Write(ct.Ciphertext)
	h.Write([]byte{0})
	h.Write([]byte(minimum.String()))
	return h.Sum(nil)
}

func (a *attestor) issue(ct types.ConfidentialAmount, amount, minimum math.Int) ([]byte, error) {
	if amount.LT(minimum) {
		return nil, ErrBelowMinimum
	}
	return a.tag(ct, minimum), nil
}

func (a *attestor) verify(ct types.ConfidentialAmount, minimum math.Int, proof []byte) bool {
	if len(proof) != blake2b.Size256 || minimum.IsNil() {
		return false
	}
	return subtle.ConstantTimeCompare(a.tag(ct, minimum), proof) == 1
}

// deriveKey expands the oracle secret into a per-purpose 32 byte key
func deriveKey(secret []byte, domain string) ([]byte, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("oracle secret must be at least 16 bytes, got %d", len(secret))
	}
	if len(secret) > blake2b.Size {
		sum := blake2b.Sum512(secret)
		secret = sum[:]
	}
	h, err := blake2b.New256(secret)
	if err != nil {
		return nil, err
	}
	h.Write([]byte(domain))
	return h.Sum(nil), nil
}
