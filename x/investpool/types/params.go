package types

import "fmt"

// DefaultMaxDuration caps pool terms at ten years
const DefaultMaxDuration = int64(10 * 365 * 24 * 60 * 60)

// Params defines the module parameters
type Params struct {
	// Oracle is the identity of the trusted confidential evaluation oracle
	Oracle string `json:"oracle"`
	// MaxDuration caps pool durations in seconds; 0 disables the cap
	MaxDuration int64 `json:"max_duration"`
}

// DefaultParams returns default module parameters
func DefaultParams() Params {
	return Params{
		MaxDuration: DefaultMaxDuration,
	}
}

// Validate validates the parameters
func (p Params) Validate() error {
	if p.MaxDuration < 0 {
		return fmt.Errorf("max duration cannot be negative: %d", p.MaxDuration)
	}
	return nil
}
