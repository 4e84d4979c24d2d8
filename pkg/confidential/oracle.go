// Package confidential provides the confidential evaluation backends used by
// the investpool ledger. Both backends are trusted oracles: they hold the
// secret needed to reveal amounts and only do so when the ledger asks.
package confidential

import (
	"context"
	"encoding/hex"
	"fmt"

	"cosmossdk.io/math"

	"github.com/vaultshield/pools/x/investpool/types"
)

// Backend names
const (
	BackendSealed  = "sealed"
	BackendElGamal = "elgamal"
)

// Oracle is an evaluator that can also act for clients, encrypting amounts
// and issuing minimum attestations
type Oracle interface {
	types.ConfidentialEvaluator

	Encrypt(amount math.Int) (types.ConfidentialAmount, error)
	AttestMinimum(ctx context.Context, a types.ConfidentialAmount, minimum math.Int) ([]byte, error)
}

// Config selects and keys a backend
type Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	Backend   string `mapstructure:"backend"`
	Identity  string `mapstructure:"identity"`
	SecretHex string `mapstructure:"secret"`
	RangeBits uint   `mapstructure:"range-bits"`
}

// DefaultConfig returns a disabled ElGamal configuration
func DefaultConfig() Config {
	return Config{
		Enabled:   false,
		Backend:   BackendElGamal,
		RangeBits: DefaultRangeBits,
	}
}

// New constructs the configured backend
func New(cfg Config) (Oracle, error) {
	secret, err := hex.DecodeString(cfg.SecretHex)
	if err != nil {
		return nil, fmt.Errorf("oracle secret must be hex: %w", err)
	}
	switch cfg.Backend {
	case BackendSealed:
		return NewSealedEvaluator(cfg.Identity, secret)
	case BackendElGamal, "":
		return NewElGamalEvaluator(cfg.Identity, secret, cfg.RangeBits)
	default:
		return nil, fmt.Errorf("unknown oracle backend %q", cfg.Backend)
	}
}
