package keeper

import (
	"context"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vaultshield/pools/metrics"
	"github.com/vaultshield/pools/x/investpool/types"
)

// MsgServer defines the investpool MsgServer
type MsgServer struct {
	keeper  *Keeper
	metrics *metrics.Collector
}

// NewMsgServerImpl creates a new MsgServer instance
func NewMsgServerImpl(keeper *Keeper) *MsgServer {
	return &MsgServer{keeper: keeper}
}

// NewMsgServerWithMetrics creates a MsgServer that records to c
func NewMsgServerWithMetrics(keeper *Keeper, c *metrics.Collector) *MsgServer {
	return &MsgServer{keeper: keeper, metrics: c}
}

// observe records the outcome of one message
func (m *MsgServer) observe(msgType string, timer *metrics.Timer, err error) {
	if m.metrics == nil {
		return
	}
	code := ""
	if err != nil {
		_, c, _ := errorsmod.ABCIInfo(err, false)
		code = strconv.FormatUint(uint64(c), 10)
		if errorsmod.IsOf(err, types.ErrOracleUnavailable) {
			m.metrics.RecordOracleFailure(msgType)
		}
	}
	m.metrics.RecordMsg(msgType, timer.ElapsedMs(), code)
}

// CreatePool handles MsgCreatePool
func (m *MsgServer) CreatePool(ctx context.Context, msg *types.MsgCreatePool) (resp *types.MsgCreatePoolResponse, err error) {
	defer func(t *metrics.Timer) { m.observe(types.TypeMsgCreatePool, t, err) }(metrics.NewTimer())

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	config, err := msg.Config()
	if err != nil {
		return nil, err
	}

	pool, err := m.keeper.CreatePool(ctx, config)
	if err != nil {
		return nil, err
	}
	m.metrics.RecordPoolCreated()

	return &types.MsgCreatePoolResponse{PoolID: pool.PoolID}, nil
}

// Invest handles MsgInvest
func (m *MsgServer) Invest(ctx context.Context, msg *types.MsgInvest) (resp *types.MsgInvestResponse, err error) {
	defer func(t *metrics.Timer) { m.observe(types.TypeMsgInvest, t, err) }(metrics.NewTimer())

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}

	contribution, pool, err := m.keeper.Invest(ctx, msg.Investor, msg.PoolID,
		types.NewConfidentialAmount(msg.EncryptedAmount), msg.MinimumProof)
	if err != nil {
		return nil, err
	}

	m.metrics.RecordContribution(strconv.FormatUint(pool.PoolID, 10), pool.InvestorCount)
	if pool.Phase == types.PhaseActive {
		m.metrics.RecordTransition(pool.Phase.String(), types.ReasonTargetReached)
	}

	return &types.MsgInvestResponse{
		Sequence:      contribution.Sequence,
		InvestorCount: pool.InvestorCount,
		Phase:         pool.Phase.String(),
	}, nil
}

// ClosePool handles MsgClosePool
func (m *MsgServer) ClosePool(ctx context.Context, msg *types.MsgClosePool) (resp *types.MsgClosePoolResponse, err error) {
	defer func(t *metrics.Timer) { m.observe(types.TypeMsgClosePool, t, err) }(metrics.NewTimer())

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}

	sdkCtx := sdk.UnwrapSDKContext(ctx)
	before := m.keeper.GetPool(sdkCtx, msg.PoolID)

	pool, err := m.keeper.ClosePool(ctx, msg.Operator, msg.PoolID)
	if err != nil {
		return nil, err
	}
	if before != nil && before.Phase != pool.Phase {
		m.metrics.RecordTransition(pool.Phase.String(), types.ReasonOperatorClose)
	}

	return &types.MsgClosePoolResponse{
		Phase:         pool.Phase.String(),
		Distributable: pool.Distributable.String(),
	}, nil
}

// RequestWithdrawal handles MsgRequestWithdrawal
func (m *MsgServer) RequestWithdrawal(ctx context.Context, msg *types.MsgRequestWithdrawal) (resp *types.MsgRequestWithdrawalResponse, err error) {
	defer func(t *metrics.Timer) { m.observe(types.TypeMsgRequestWithdrawal, t, err) }(metrics.NewTimer())

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount("amount", msg.Amount)
	if err != nil {
		return nil, err
	}

	req, ent, err := m.keeper.RequestWithdrawal(ctx, msg.Requester, msg.PoolID, amount)
	if err != nil {
		return nil, err
	}
	m.metrics.RecordWithdrawal(req.Status)

	return &types.MsgRequestWithdrawalResponse{
		Sequence:  req.Sequence,
		ReceiptID: req.ReceiptID,
		Available: ent.Available().String(),
	}, nil
}

// ApproveWithdrawal handles MsgApproveWithdrawal
func (m *MsgServer) ApproveWithdrawal(ctx context.Context, msg *types.MsgApproveWithdrawal) (resp *types.MsgWithdrawalResponse, err error) {
	defer func(t *metrics.Timer) { m.observe(types.TypeMsgApproveWithdrawal, t, err) }(metrics.NewTimer())

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	req, err := m.keeper.ApproveWithdrawal(ctx, msg.Operator, msg.PoolID, msg.Sequence)
	if err != nil {
		return nil, err
	}
	m.metrics.RecordWithdrawal(req.Status)
	return &types.MsgWithdrawalResponse{ReceiptID: req.ReceiptID, Status: req.Status}, nil
}

// RejectWithdrawal handles MsgRejectWithdrawal
func (m *MsgServer) RejectWithdrawal(ctx context.Context, msg *types.MsgRejectWithdrawal) (resp *types.MsgWithdrawalResponse, err error) {
	defer func(t *metrics.Timer) { m.observe(types.TypeMsgRejectWithdrawal, t, err) }(metrics.NewTimer())

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	req, err := m.keeper.RejectWithdrawal(ctx, msg.Operator, msg.PoolID, msg.Sequence)
	if err != nil {
		return nil, err
	}
	m.metrics.RecordWithdrawal(req.Status)
	return &types.MsgWithdrawalResponse{ReceiptID: req.ReceiptID, Status: req.Status}, nil
}

// PayWithdrawal handles MsgPayWithdrawal
func (m *MsgServer) PayWithdrawal(ctx context.Context, msg *types.MsgPayWithdrawal) (resp *types.MsgWithdrawalResponse, err error) {
	defer func(t *metrics.Timer) { m.observe(types.TypeMsgPayWithdrawal, t, err) }(metrics.NewTimer())

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}

	sdkCtx := sdk.UnwrapSDKContext(ctx)
	before := m.keeper.GetWithdrawal(sdkCtx, msg.PoolID, msg.Sequence)

	req, err := m.keeper.PayWithdrawal(ctx, msg.Operator, msg.PoolID, msg.Sequence)
	if err != nil {
		return nil, err
	}
	if before != nil && before.Status != req.Status {
		m.metrics.RecordWithdrawal(req.Status)
		if pool := m.keeper.GetPool(sdkCtx, msg.PoolID); pool != nil {
			amount, _ := req.Amount.ToLegacyDec().Float64()
			m.metrics.RecordPayout(pool.Denom, amount)
		}
	}
	return &types.MsgWithdrawalResponse{ReceiptID: req.ReceiptID, Status: req.Status}, nil
}

// SubmitPerformanceReport handles MsgSubmitPerformanceReport
func (m *MsgServer) SubmitPerformanceReport(ctx context.Context, msg *types.MsgSubmitPerformanceReport) (resp *types.MsgSubmitPerformanceReportResponse, err error) {
	defer func(t *metrics.Timer) { m.observe(types.TypeMsgSubmitPerformanceReport, t, err) }(metrics.NewTimer())

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	totalReturns, err := types.ParseAmount("total returns", msg.TotalReturns)
	if err != nil {
		return nil, err
	}
	totalValue, err := types.ParseAmount("total value", msg.TotalValue)
	if err != nil {
		return nil, err
	}

	report, err := m.keeper.SubmitPerformanceReport(ctx, msg.Operator, msg.PoolID, ReportInput{
		Period:          msg.Period,
		TotalReturns:    totalReturns,
		ActiveInvestors: msg.ActiveInvestors,
		TotalValue:      totalValue,
		ReportHash:      msg.ReportHash,
		Corrects:        msg.Corrects,
	})
	if err != nil {
		return nil, err
	}
	m.metrics.RecordReport(strconv.FormatUint(msg.PoolID, 10), report.Corrects != 0)

	return &types.MsgSubmitPerformanceReportResponse{
		Sequence:  report.Sequence,
		ReceiptID: report.ReceiptID,
	}, nil
}
