package types

import (
	"encoding/json"
	"fmt"
)

// Phase is the lifecycle phase of a pool. The zero value is PhaseFunding and
// values outside the three phases cannot be constructed from outside this
// package; decoding rejects unknown names.
type Phase struct {
	v uint8
}

var (
	PhaseFunding = Phase{v: 0}
	PhaseActive  = Phase{v: 1}
	PhaseClosed  = Phase{v: 2}
)

var phaseNames = [...]string{"funding", "active", "closed"}

// AllPhases lists the phases in lifecycle order
func AllPhases() []Phase {
	return []Phase{PhaseFunding, PhaseActive, PhaseClosed}
}

// ParsePhase converts a phase name into a Phase
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase{v: uint8(i)}, nil
		}
	}
	return Phase{}, fmt.Errorf("unknown phase %q", s)
}

// String returns the phase name
func (p Phase) String() string {
	return phaseNames[p.v]
}

// Byte returns the compact encoding used by store indexes
func (p Phase) Byte() byte {
	return p.v
}

// Activate moves Funding to Active. Calling it on a pool that is already
// Active or Closed reports changed=false and no error.
func (p Phase) Activate() (next Phase, changed bool, err error) {
	switch p {
	case PhaseFunding:
		return PhaseActive, true, nil
	default:
		return p, false, nil
	}
}

// Close moves Active to Closed. Closing a Closed pool is a no-op; closing a
// pool that never left Funding is rejected.
func (p Phase) Close() (next Phase, changed bool, err error) {
	switch p {
	case PhaseActive:
		return PhaseClosed, true, nil
	case PhaseClosed:
		return p, false, nil
	default:
		return p, false, ErrIllegalTransition.Wrapf("cannot close pool in %s phase", p)
	}
}

// MarshalJSON encodes the phase by name
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a phase name
func (p *Phase) UnmarshalJSON(bz []byte) error {
	var s string
	if err := json.Unmarshal(bz, &s); err != nil {
		return err
	}
	parsed, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
