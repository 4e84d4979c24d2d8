package keeper

import (
	"context"
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vaultshield/pools/x/investpool/types"
)

// ReportInput carries the operator-supplied figures of one report
type ReportInput struct {
	Period          string
	TotalReturns    math.Int
	ActiveInvestors uint64
	TotalValue      math.Int
	ReportHash      string
	Corrects        uint64
}

// Validate checks the report figures
func (in ReportInput) Validate() error {
	if in.Period == "" {
		return types.ErrInvalidParameters.Wrap("reporting period required")
	}
	if in.TotalReturns.IsNil() {
		return types.ErrInvalidParameters.Wrap("total returns required")
	}
	if in.TotalValue.IsNil() || in.TotalValue.IsNegative() {
		return types.ErrInvalidParameters.Wrap("total value cannot be negative")
	}
	return types.ValidateReportHash(in.ReportHash)
}

// SetReport saves a report
func (k *Keeper) SetReport(ctx sdk.Context, r *types.PerformanceReport) {
	k.setJSON(ctx, types.ReportKey(r.PoolID, r.Sequence), r)
}

// GetReport retrieves a report by sequence
func (k *Keeper) GetReport(ctx sdk.Context, poolID, seq uint64) *types.PerformanceReport {
	var r types.PerformanceReport
	if !k.getJSON(ctx, types.ReportKey(poolID, seq), &r) {
		return nil
	}
	return &r
}

// GetPoolReports returns a pool's reports in sequence order
func (k *Keeper) GetPoolReports(ctx sdk.Context, poolID uint64) []*types.PerformanceReport {
	var out []*types.PerformanceReport
	iterateJSON(k, ctx, types.PoolScopedPrefix(types.ReportKeyPrefix, poolID), func(r *types.PerformanceReport) bool {
		out = append(out, r)
		return false
	})
	return out
}

// GetLatestReport returns the most recent report of a pool, if any
func (k *Keeper) GetLatestReport(ctx sdk.Context, poolID uint64) *types.PerformanceReport {
	pool := k.GetPool(ctx, poolID)
	if pool == nil || pool.ReportSeq == 0 {
		return nil
	}
	return k.GetReport(ctx, poolID, pool.ReportSeq)
}

// SubmitPerformanceReport appends an operator attestation. Reports are
// never edited; a correction is a new report naming the sequence it
// supersedes.
func (k *Keeper) SubmitPerformanceReport(ctx context.Context, submitter string, poolID uint64, in ReportInput) (*types.PerformanceReport, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	pool := k.GetPool(sdkCtx, poolID)
	if pool == nil {
		return nil, types.ErrNotFound.Wrapf("pool %d", poolID)
	}
	if !pool.IsOperator(submitter) {
		return nil, types.ErrUnauthorized.Wrapf("%s is not the operator of pool %d", submitter, poolID)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Corrects != 0 && in.Corrects > pool.ReportSeq {
		return nil, types.ErrInvalidParameters.Wrapf("report %d does not exist", in.Corrects)
	}

	pool.ReportSeq++
	report := &types.PerformanceReport{
		PoolID:          poolID,
		Sequence:        pool.ReportSeq,
		ReceiptID:       types.ReceiptID("report", poolID, pool.ReportSeq),
		Period:          in.Period,
		TotalReturns:    in.TotalReturns,
		ActiveInvestors: in.ActiveInvestors,
		TotalValue:      in.TotalValue,
		ReportHash:      in.ReportHash,
		Corrects:        in.Corrects,
		Submitter:       submitter,
		Timestamp:       sdkCtx.BlockTime().Unix(),
	}
	k.SetReport(sdkCtx, report)
	k.SetPool(sdkCtx, pool)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypePerformanceReport,
			sdk.NewAttribute(types.AttributeKeyPoolID, strconv.FormatUint(poolID, 10)),
			sdk.NewAttribute(types.AttributeKeySequence, strconv.FormatUint(report.Sequence, 10)),
			sdk.NewAttribute(types.AttributeKeyPeriod, report.Period),
			sdk.NewAttribute(types.AttributeKeyReportHash, report.ReportHash),
			sdk.NewAttribute(types.AttributeKeyReceiptID, report.ReceiptID),
		),
	)

	k.logger.Info("Performance report submitted",
		"pool_id", poolID,
		"sequence", report.Sequence,
		"period", report.Period,
		"total_value", report.TotalValue.String(),
		"corrects", report.Corrects,
	)

	return report, nil
}
