package types

import "fmt"

// GenesisState defines the module's genesis state
type GenesisState struct {
	Params        Params                `json:"params"`
	NextPoolID    uint64                `json:"next_pool_id"`
	Pools         []Pool                `json:"pools"`
	Contributions []Contribution        `json:"contributions"`
	Positions     []ContributorPosition `json:"positions"`
	Entitlements  []Entitlement         `json:"entitlements"`
	Withdrawals   []WithdrawalRequest   `json:"withdrawals"`
	Reports       []PerformanceReport   `json:"reports"`
}

// DefaultGenesis returns the default genesis state
func DefaultGenesis() *GenesisState {
	return &GenesisState{
		Params:     DefaultParams(),
		NextPoolID: 1,
	}
}

// Validate performs basic genesis state validation
func (gs GenesisState) Validate() error {
	if gs.NextPoolID == 0 {
		return fmt.Errorf("next pool id must start at 1")
	}
	if err := gs.Params.Validate(); err != nil {
		return err
	}

	pools := make(map[uint64]*Pool, len(gs.Pools))
	for i := range gs.Pools {
		p := &gs.Pools[i]
		if p.PoolID == 0 || p.PoolID >= gs.NextPoolID {
			return fmt.Errorf("pool id %d outside [1, %d)", p.PoolID, gs.NextPoolID)
		}
		if _, dup := pools[p.PoolID]; dup {
			return fmt.Errorf("duplicate pool id %d", p.PoolID)
		}
		pools[p.PoolID] = p
	}

	for _, c := range gs.Contributions {
		p, ok := pools[c.PoolID]
		if !ok {
			return fmt.Errorf("contribution %d references unknown pool %d", c.Sequence, c.PoolID)
		}
		if c.Sequence == 0 || c.Sequence > p.ContributionSeq {
			return fmt.Errorf("contribution sequence %d outside pool %d range", c.Sequence, c.PoolID)
		}
	}
	for _, pos := range gs.Positions {
		if _, ok := pools[pos.PoolID]; !ok {
			return fmt.Errorf("position of %s references unknown pool %d", pos.Contributor, pos.PoolID)
		}
	}
	for _, e := range gs.Entitlements {
		p, ok := pools[e.PoolID]
		if !ok {
			return fmt.Errorf("entitlement of %s references unknown pool %d", e.Holder, e.PoolID)
		}
		if p.Phase != PhaseClosed {
			return fmt.Errorf("entitlement in pool %d which is %s", e.PoolID, p.Phase)
		}
		if e.Reserved.Add(e.Paid).GT(e.Amount) {
			return fmt.Errorf("entitlement of %s in pool %d is overdrawn", e.Holder, e.PoolID)
		}
	}
	for _, w := range gs.Withdrawals {
		p, ok := pools[w.PoolID]
		if !ok {
			return fmt.Errorf("withdrawal %d references unknown pool %d", w.Sequence, w.PoolID)
		}
		if w.Sequence == 0 || w.Sequence > p.WithdrawalSeq {
			return fmt.Errorf("withdrawal sequence %d outside pool %d range", w.Sequence, w.PoolID)
		}
	}
	for _, r := range gs.Reports {
		p, ok := pools[r.PoolID]
		if !ok {
			return fmt.Errorf("report %d references unknown pool %d", r.Sequence, r.PoolID)
		}
		if r.Sequence == 0 || r.Sequence > p.ReportSeq {
			return fmt.Errorf("report sequence %d outside pool %d range", r.Sequence, r.PoolID)
		}
	}
	return nil
}
