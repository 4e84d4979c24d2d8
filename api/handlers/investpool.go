package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/gorilla/mux"
	"github.com/spf13/cast"

	apitypes "github.com/vaultshield/pools/api/types"
	"github.com/vaultshield/pools/pkg/confidential"
	"github.com/vaultshield/pools/x/investpool/keeper"
	"github.com/vaultshield/pools/x/investpool/types"
)

// DefaultPageLimit applies when a list request has no limit
const DefaultPageLimit = 100

// Ledger is the state the handlers read and write. Apply must commit the
// writes made inside fn only when fn returns nil.
type Ledger interface {
	View(fn func(ctx context.Context) error) error
	Apply(fn func(ctx context.Context) error) error
	QueryServer() *keeper.QueryServer
	MsgServer() *keeper.MsgServer
	Oracle() confidential.Oracle
}

// InvestpoolHandler handles investpool API requests
type InvestpoolHandler struct {
	ledger Ledger
	logger log.Logger
}

// NewInvestpoolHandler creates a new InvestpoolHandler
func NewInvestpoolHandler(ledger Ledger, logger log.Logger) *InvestpoolHandler {
	return &InvestpoolHandler{
		ledger: ledger,
		logger: logger.With("component", "api"),
	}
}

// RegisterRoutes registers investpool API routes
func (h *InvestpoolHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/v1/params", h.GetParams).Methods("GET")

	// Pool routes
	r.HandleFunc("/v1/pools", h.GetPools).Methods("GET")
	r.HandleFunc("/v1/pools", h.CreatePool).Methods("POST")
	r.HandleFunc("/v1/pools/{poolId}", h.GetPool).Methods("GET")
	r.HandleFunc("/v1/pools/{poolId}/invest", h.Invest).Methods("POST")
	r.HandleFunc("/v1/pools/{poolId}/close", h.ClosePool).Methods("POST")

	// Entitlements and withdrawals
	r.HandleFunc("/v1/pools/{poolId}/entitlements/{address}", h.GetEntitlement).Methods("GET")
	r.HandleFunc("/v1/pools/{poolId}/withdrawals", h.GetWithdrawals).Methods("GET")
	r.HandleFunc("/v1/pools/{poolId}/withdrawals", h.RequestWithdrawal).Methods("POST")
	r.HandleFunc("/v1/pools/{poolId}/withdrawals/{sequence}/approve", h.ApproveWithdrawal).Methods("POST")
	r.HandleFunc("/v1/pools/{poolId}/withdrawals/{sequence}/reject", h.RejectWithdrawal).Methods("POST")
	r.HandleFunc("/v1/pools/{poolId}/withdrawals/{sequence}/pay", h.PayWithdrawal).Methods("POST")
	r.HandleFunc("/v1/users/{address}/withdrawals", h.GetUserWithdrawals).Methods("GET")

	// Performance reports
	r.HandleFunc("/v1/pools/{poolId}/reports", h.GetReports).Methods("GET")
	r.HandleFunc("/v1/pools/{poolId}/reports", h.SubmitReport).Methods("POST")

	// Client-side encryption through the gateway oracle
	r.HandleFunc("/v1/oracle/encrypt", h.Encrypt).Methods("POST")
}

// ============ Queries ============

// GetParams handles GET /v1/params
func (h *InvestpoolHandler) GetParams(w http.ResponseWriter, r *http.Request) {
	var params types.Params
	_ = h.ledger.View(func(ctx context.Context) error {
		params = h.ledger.QueryServer().Params(ctx)
		return nil
	})
	writeJSON(w, http.StatusOK, params)
}

// GetPools handles GET /v1/pools?phase=&offset=&limit=
func (h *InvestpoolHandler) GetPools(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	phase := r.URL.Query().Get("phase")

	var resp apitypes.ListResponse[types.PoolView]
	err = h.ledger.View(func(ctx context.Context) error {
		items, total, err := h.ledger.QueryServer().Pools(ctx, phase, offset, limit)
		resp = apitypes.ListResponse[types.PoolView]{Items: items, Total: total, Offset: offset, Limit: limit}
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetPool handles GET /v1/pools/{poolId}
func (h *InvestpoolHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	poolID, err := pathUint(r, "poolId")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var view types.PoolView
	err = h.ledger.View(func(ctx context.Context) (err error) {
		view, err = h.ledger.QueryServer().Pool(ctx, poolID)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetEntitlement handles GET /v1/pools/{poolId}/entitlements/{address}
func (h *InvestpoolHandler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	poolID, err := pathUint(r, "poolId")
	if err != nil {
		h.writeError(w, err)
		return
	}
	holder := mux.Vars(r)["address"]

	var ent *types.Entitlement
	err = h.ledger.View(func(ctx context.Context) (err error) {
		ent, err = h.ledger.QueryServer().Entitlement(ctx, poolID, holder)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EntitlementResponse{
		Entitlement: ent,
		Available:   ent.Available().String(),
	})
}

// EntitlementResponse adds the withdrawable balance to an entitlement
type EntitlementResponse struct {
	*types.Entitlement
	Available string `json:"available"`
}

// GetWithdrawals handles GET /v1/pools/{poolId}/withdrawals?requester=
func (h *InvestpoolHandler) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	poolID, err := pathUint(r, "poolId")
	if err != nil {
		h.writeError(w, err)
		return
	}
	offset, limit, err := pageParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	requester := r.URL.Query().Get("requester")

	var resp apitypes.ListResponse[*types.WithdrawalRequest]
	err = h.ledger.View(func(ctx context.Context) error {
		items, total, err := h.ledger.QueryServer().Withdrawals(ctx, poolID, requester, offset, limit)
		resp = apitypes.ListResponse[*types.WithdrawalRequest]{Items: items, Total: total, Offset: offset, Limit: limit}
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetUserWithdrawals handles GET /v1/users/{address}/withdrawals
func (h *InvestpoolHandler) GetUserWithdrawals(w http.ResponseWriter, r *http.Request) {
	requester := mux.Vars(r)["address"]

	var items []*types.WithdrawalRequest
	_ = h.ledger.View(func(ctx context.Context) error {
		items = h.ledger.QueryServer().UserWithdrawals(ctx, requester)
		return nil
	})
	if items == nil {
		items = []*types.WithdrawalRequest{}
	}
	writeJSON(w, http.StatusOK, apitypes.ListResponse[*types.WithdrawalRequest]{
		Items: items,
		Total: uint64(len(items)),
	})
}

// GetReports handles GET /v1/pools/{poolId}/reports
func (h *InvestpoolHandler) GetReports(w http.ResponseWriter, r *http.Request) {
	poolID, err := pathUint(r, "poolId")
	if err != nil {
		h.writeError(w, err)
		return
	}
	offset, limit, err := pageParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var resp apitypes.ListResponse[*types.PerformanceReport]
	err = h.ledger.View(func(ctx context.Context) error {
		items, total, err := h.ledger.QueryServer().PerformanceReports(ctx, poolID, offset, limit)
		resp = apitypes.ListResponse[*types.PerformanceReport]{Items: items, Total: total, Offset: offset, Limit: limit}
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ============ Transactions ============

// CreatePool handles POST /v1/pools
func (h *InvestpoolHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgCreatePool
	if err := decodeBody(r, &msg); err != nil {
		h.writeError(w, err)
		return
	}

	var resp *types.MsgCreatePoolResponse
	err := h.ledger.Apply(func(ctx context.Context) (err error) {
		resp, err = h.ledger.MsgServer().CreatePool(ctx, &msg)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Invest handles POST /v1/pools/{poolId}/invest
func (h *InvestpoolHandler) Invest(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgInvest
	if err := decodePoolBody(r, &msg, &msg.PoolID); err != nil {
		h.writeError(w, err)
		return
	}

	var resp *types.MsgInvestResponse
	err := h.ledger.Apply(func(ctx context.Context) (err error) {
		resp, err = h.ledger.MsgServer().Invest(ctx, &msg)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ClosePool handles POST /v1/pools/{poolId}/close
func (h *InvestpoolHandler) ClosePool(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgClosePool
	if err := decodePoolBody(r, &msg, &msg.PoolID); err != nil {
		h.writeError(w, err)
		return
	}

	var resp *types.MsgClosePoolResponse
	err := h.ledger.Apply(func(ctx context.Context) (err error) {
		resp, err = h.ledger.MsgServer().ClosePool(ctx, &msg)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RequestWithdrawal handles POST /v1/pools/{poolId}/withdrawals
func (h *InvestpoolHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgRequestWithdrawal
	if err := decodePoolBody(r, &msg, &msg.PoolID); err != nil {
		h.writeError(w, err)
		return
	}

	var resp *types.MsgRequestWithdrawalResponse
	err := h.ledger.Apply(func(ctx context.Context) (err error) {
		resp, err = h.ledger.MsgServer().RequestWithdrawal(ctx, &msg)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// decisionRequest is the body of the approve, reject and pay endpoints
type decisionRequest struct {
	Operator string `json:"operator"`
}

// ApproveWithdrawal handles POST /v1/pools/{poolId}/withdrawals/{sequence}/approve
func (h *InvestpoolHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, op string, poolID, seq uint64) (*types.MsgWithdrawalResponse, error) {
		return h.ledger.MsgServer().ApproveWithdrawal(ctx, &types.MsgApproveWithdrawal{Operator: op, PoolID: poolID, Sequence: seq})
	})
}

// RejectWithdrawal handles POST /v1/pools/{poolId}/withdrawals/{sequence}/reject
func (h *InvestpoolHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, op string, poolID, seq uint64) (*types.MsgWithdrawalResponse, error) {
		return h.ledger.MsgServer().RejectWithdrawal(ctx, &types.MsgRejectWithdrawal{Operator: op, PoolID: poolID, Sequence: seq})
	})
}

// PayWithdrawal handles POST /v1/pools/{poolId}/withdrawals/{sequence}/pay
func (h *InvestpoolHandler) PayWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, op string, poolID, seq uint64) (*types.MsgWithdrawalResponse, error) {
		return h.ledger.MsgServer().PayWithdrawal(ctx, &types.MsgPayWithdrawal{Operator: op, PoolID: poolID, Sequence: seq})
	})
}

func (h *InvestpoolHandler) decide(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, operator string, poolID, seq uint64) (*types.MsgWithdrawalResponse, error),
) {
	poolID, err := pathUint(r, "poolId")
	if err != nil {
		h.writeError(w, err)
		return
	}
	seq, err := pathUint(r, "sequence")
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req decisionRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	var resp *types.MsgWithdrawalResponse
	err = h.ledger.Apply(func(ctx context.Context) (err error) {
		resp, err = fn(ctx, req.Operator, poolID, seq)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubmitReport handles POST /v1/pools/{poolId}/reports
func (h *InvestpoolHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgSubmitPerformanceReport
	if err := decodePoolBody(r, &msg, &msg.PoolID); err != nil {
		h.writeError(w, err)
		return
	}

	var resp *types.MsgSubmitPerformanceReportResponse
	err := h.ledger.Apply(func(ctx context.Context) (err error) {
		resp, err = h.ledger.MsgServer().SubmitPerformanceReport(ctx, &msg)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Encrypt handles POST /v1/oracle/encrypt. The amount is encrypted by the
// gateway oracle and attested against the pool minimum; it is never logged.
func (h *InvestpoolHandler) Encrypt(w http.ResponseWriter, r *http.Request) {
	oracle := h.ledger.Oracle()
	if oracle == nil {
		h.writeError(w, types.ErrOracleUnavailable.Wrap("gateway has no oracle configured"))
		return
	}

	var req apitypes.EncryptRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	amount, err := types.ParseAmount("amount", req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !amount.IsPositive() {
		h.writeError(w, types.ErrInvalidParameters.Wrap("amount must be positive"))
		return
	}

	var resp apitypes.EncryptResponse
	err = h.ledger.View(func(ctx context.Context) error {
		view, err := h.ledger.QueryServer().Pool(ctx, req.PoolID)
		if err != nil {
			return err
		}
		minimum, err := types.ParseAmount("minimum investment", view.MinimumInvestment)
		if err != nil {
			return err
		}

		ct, err := oracle.Encrypt(amount)
		if errorsmod.IsOf(err, types.ErrAmountOutOfRange) {
			return types.ErrInvalidParameters.Wrapf("amount %s cannot be encrypted by the oracle", amount)
		}
		if err != nil {
			return errorsmod.Wrap(types.ErrOracleUnavailable, err.Error())
		}
		proof, err := oracle.AttestMinimum(ctx, ct, minimum)
		if errors.Is(err, confidential.ErrBelowMinimum) {
			return types.ErrBelowMinimum.Wrapf("minimum investment is %s", minimum)
		}
		if err != nil {
			return errorsmod.Wrap(types.ErrOracleUnavailable, err.Error())
		}

		resp = apitypes.EncryptResponse{EncryptedAmount: ct.Ciphertext, MinimumProof: proof}
		return nil
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ============ Helpers ============

func pathUint(r *http.Request, name string) (uint64, error) {
	v, err := cast.ToUint64E(mux.Vars(r)[name])
	if err != nil || v == 0 {
		return 0, types.ErrInvalidParameters.Wrapf("invalid %s %q", name, mux.Vars(r)[name])
	}
	return v, nil
}

func queryUint(r *http.Request, name string, def uint64) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := cast.ToUint64E(raw)
	if err != nil {
		return 0, types.ErrInvalidParameters.Wrapf("invalid %s %q", name, raw)
	}
	return v, nil
}

func pageParams(r *http.Request) (offset, limit uint64, err error) {
	if offset, err = queryUint(r, "offset", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = queryUint(r, "limit", DefaultPageLimit); err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return types.ErrInvalidParameters.Wrapf("invalid request body: %v", err)
	}
	return nil
}

// decodePoolBody decodes a message whose pool id comes from the path. A
// body pool id, when present, must agree with it.
func decodePoolBody(r *http.Request, v interface{}, poolID *uint64) error {
	id, err := pathUint(r, "poolId")
	if err != nil {
		return err
	}
	if err := decodeBody(r, v); err != nil {
		return err
	}
	if *poolID != 0 && *poolID != id {
		return types.ErrInvalidParameters.Wrapf("body pool id %d does not match path pool id %d", *poolID, id)
	}
	*poolID = id
	return nil
}

// StatusFor maps a ledger error to an HTTP status
func StatusFor(err error) int {
	switch {
	case errorsmod.IsOf(err, types.ErrNotFound):
		return http.StatusNotFound
	case errorsmod.IsOf(err, types.ErrUnauthorized):
		return http.StatusForbidden
	case errorsmod.IsOf(err, types.ErrInvalidParameters, types.ErrBelowMinimum):
		return http.StatusBadRequest
	case errorsmod.IsOf(err,
		types.ErrIllegalTransition,
		types.ErrPoolNotFunding,
		types.ErrPoolNotClosed,
		types.ErrInsufficientEntitlement,
		types.ErrSettlementMismatch,
		types.ErrAmountOutOfRange,
	):
		return http.StatusConflict
	case errorsmod.IsOf(err, types.ErrOracleUnavailable):
		return http.StatusServiceUnavailable
	case errorsmod.IsOf(err, types.ErrPayoutFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *InvestpoolHandler) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	codespace, code, _ := errorsmod.ABCIInfo(err, false)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, apitypes.ErrorResponse{
		Error:     err.Error(),
		Codespace: codespace,
		Code:      code,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
