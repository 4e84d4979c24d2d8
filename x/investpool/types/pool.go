package types

import (
	stdmath "math"
	"strings"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Pool limits
const (
	MaxPoolNameLength        = 64
	MaxPoolDescriptionLength = 1024
	MaxAssetTypeLength       = 32
	MaxLocationLength        = 128
	MaxExpectedReturnLength  = 64
	DefaultDenom             = "uvault"
)

// Pool is a named, time-bounded vehicle collecting confidential
// contributions toward a public funding target
type Pool struct {
	PoolID      uint64 `json:"pool_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AssetType   string `json:"asset_type"`
	Location    string `json:"location,omitempty"`
	// ExpectedReturn is a display-only figure such as "8% p.a."; the
	// ledger never computes with it
	ExpectedReturn string `json:"expected_return,omitempty"`
	Denom          string `json:"denom"`

	// Public terms, immutable once the pool exists
	TotalValue        math.Int `json:"total_value"`
	MinimumInvestment math.Int `json:"minimum_investment"`
	FundingTarget     math.Int `json:"funding_target"`
	Duration          int64    `json:"duration"` // seconds

	Phase Phase `json:"phase"`

	// Investor count increments once per contribution record
	InvestorCount   uint64 `json:"investor_count"`
	UniqueInvestors uint64 `json:"unique_investors"`

	RaisedTotal   ConfidentialAmount `json:"raised_total"`
	Revealed      bool               `json:"revealed"`
	RevealedTotal math.Int           `json:"revealed_total"`

	// Value distributed across entitlements at close
	Distributable math.Int `json:"distributable"`

	Creator  string `json:"creator"`
	Operator string `json:"operator"`

	CreatedAt       int64 `json:"created_at"`
	FundingDeadline int64 `json:"funding_deadline"`
	ActivatedAt     int64 `json:"activated_at"`
	MaturityAt      int64 `json:"maturity_at"`
	ClosedAt        int64 `json:"closed_at"`

	// Per-pool sequences
	ContributionSeq uint64 `json:"contribution_seq"`
	WithdrawalSeq   uint64 `json:"withdrawal_seq"`
	ReportSeq       uint64 `json:"report_seq"`
}

// PoolConfig carries the caller-supplied fields for a new pool
type PoolConfig struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	AssetType         string   `json:"asset_type"`
	Location          string   `json:"location"`
	ExpectedReturn    string   `json:"expected_return"`
	TotalValue        math.Int `json:"total_value"`
	MinimumInvestment math.Int `json:"minimum_investment"`
	FundingTarget     math.Int `json:"funding_target"`
	Duration          int64    `json:"duration"`
	Creator           string   `json:"creator"`
	Operator          string   `json:"operator"`
	Denom             string   `json:"denom"`
}

// Validate validates the pool configuration
func (c *PoolConfig) Validate(maxDuration int64) error {
	name := strings.TrimSpace(c.Name)
	if len(name) == 0 || len(name) > MaxPoolNameLength {
		return ErrInvalidParameters.Wrap("pool name must be 1-64 characters")
	}
	if len(c.Description) > MaxPoolDescriptionLength {
		return ErrInvalidParameters.Wrap("description too long")
	}
	if len(c.AssetType) > MaxAssetTypeLength || len(c.Location) > MaxLocationLength {
		return ErrInvalidParameters.Wrap("asset type or location too long")
	}
	if len(c.ExpectedReturn) > MaxExpectedReturnLength {
		return ErrInvalidParameters.Wrap("expected return too long")
	}
	if len(c.Creator) == 0 {
		return ErrInvalidParameters.Wrap("creator required")
	}
	if !isPositive(c.TotalValue) {
		return ErrInvalidParameters.Wrap("total value must be positive")
	}
	if !isPositive(c.MinimumInvestment) {
		return ErrInvalidParameters.Wrap("minimum investment must be positive")
	}
	if !isPositive(c.FundingTarget) {
		return ErrInvalidParameters.Wrap("funding target must be positive")
	}
	if c.Denom != "" {
		if err := sdk.ValidateDenom(c.Denom); err != nil {
			return ErrInvalidParameters.Wrap(err.Error())
		}
	}
	if c.Duration <= 0 {
		return ErrInvalidParameters.Wrap("duration must be positive")
	}
	if maxDuration > 0 && c.Duration > maxDuration {
		return ErrInvalidParameters.Wrapf("duration %d exceeds maximum %d", c.Duration, maxDuration)
	}
	return nil
}

// NewPool creates a pool in the Funding phase from a validated config
func NewPool(id uint64, config *PoolConfig, raised ConfidentialAmount, now int64) *Pool {
	operator := config.Operator
	if operator == "" {
		operator = config.Creator
	}
	denom := config.Denom
	if denom == "" {
		denom = DefaultDenom
	}

	return &Pool{
		PoolID:            id,
		Name:              strings.TrimSpace(config.Name),
		Description:       config.Description,
		AssetType:         config.AssetType,
		Location:          config.Location,
		ExpectedReturn:    config.ExpectedReturn,
		Denom:             denom,
		TotalValue:        config.TotalValue,
		MinimumInvestment: config.MinimumInvestment,
		FundingTarget:     config.FundingTarget,
		Duration:          config.Duration,
		Phase:             PhaseFunding,
		RaisedTotal:       raised,
		RevealedTotal:     math.ZeroInt(),
		Distributable:     math.ZeroInt(),
		Creator:           config.Creator,
		Operator:          operator,
		CreatedAt:         now,
		FundingDeadline:   AfterDuration(now, config.Duration),
	}
}

// AfterDuration returns now+duration, saturating at the largest timestamp
// so an unbounded duration never wraps into the past
func AfterDuration(now, duration int64) int64 {
	if duration > stdmath.MaxInt64-now {
		return stdmath.MaxInt64
	}
	return now + duration
}

// FundingExpired reports whether the funding window has elapsed
func (p *Pool) FundingExpired(now int64) bool {
	return p.Phase == PhaseFunding && now >= p.FundingDeadline
}

// Matured reports whether an active pool reached the end of its term
func (p *Pool) Matured(now int64) bool {
	return p.Phase == PhaseActive && now >= p.MaturityAt
}

// IsOperator checks the caller against the designated operator
func (p *Pool) IsOperator(addr string) bool {
	return addr != "" && addr == p.Operator
}

// PoolView is the public projection of a pool. RaisedTotal holds the
// encrypted sentinel until the aggregate is revealed at activation.
type PoolView struct {
	PoolID            uint64 `json:"pool_id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	AssetType         string `json:"asset_type"`
	Location          string `json:"location,omitempty"`
	ExpectedReturn    string `json:"expected_return,omitempty"`
	Denom             string `json:"denom"`
	TotalValue        string `json:"total_value"`
	MinimumInvestment string `json:"minimum_investment"`
	FundingTarget     string `json:"funding_target"`
	Duration          int64  `json:"duration"`
	Phase             string `json:"phase"`
	InvestorCount     uint64 `json:"investor_count"`
	UniqueInvestors   uint64 `json:"unique_investors"`
	RaisedTotal       string `json:"raised_total"`
	Creator           string `json:"creator"`
	Operator          string `json:"operator"`
	CreatedAt         int64  `json:"created_at"`
	FundingDeadline   int64  `json:"funding_deadline"`
	ActivatedAt       int64  `json:"activated_at,omitempty"`
	MaturityAt        int64  `json:"maturity_at,omitempty"`
	ClosedAt          int64  `json:"closed_at,omitempty"`
}

// View returns the public projection of the pool
func (p *Pool) View() PoolView {
	raised := EncryptedSentinel
	if p.Revealed {
		raised = p.RevealedTotal.String()
	}
	return PoolView{
		PoolID:            p.PoolID,
		Name:              p.Name,
		Description:       p.Description,
		AssetType:         p.AssetType,
		Location:          p.Location,
		ExpectedReturn:    p.ExpectedReturn,
		Denom:             p.Denom,
		TotalValue:        p.TotalValue.String(),
		MinimumInvestment: p.MinimumInvestment.String(),
		FundingTarget:     p.FundingTarget.String(),
		Duration:          p.Duration,
		Phase:             p.Phase.String(),
		InvestorCount:     p.InvestorCount,
		UniqueInvestors:   p.UniqueInvestors,
		RaisedTotal:       raised,
		Creator:           p.Creator,
		Operator:          p.Operator,
		CreatedAt:         p.CreatedAt,
		FundingDeadline:   p.FundingDeadline,
		ActivatedAt:       p.ActivatedAt,
		MaturityAt:        p.MaturityAt,
		ClosedAt:          p.ClosedAt,
	}
}

func isPositive(i math.Int) bool {
	return !i.IsNil() && i.IsPositive()
}
