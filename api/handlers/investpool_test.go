package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/gorilla/mux"

	apitypes "github.com/vaultshield/pools/api/types"
	"github.com/vaultshield/pools/pkg/confidential"
	"github.com/vaultshield/pools/x/investpool/keeper"
	"github.com/vaultshield/pools/x/investpool/types"
)

// offlineLedger fails every read and write with err
type offlineLedger struct {
	err error
}

func (l offlineLedger) View(func(ctx context.Context) error) error  { return l.err }
func (l offlineLedger) Apply(func(ctx context.Context) error) error { return l.err }
func (offlineLedger) QueryServer() *keeper.QueryServer              { return nil }
func (offlineLedger) MsgServer() *keeper.MsgServer                  { return nil }
func (offlineLedger) Oracle() confidential.Oracle                   { return nil }

func newTestRouter(ledger Ledger) *mux.Router {
	r := mux.NewRouter()
	NewInvestpoolHandler(ledger, log.NewNopLogger()).RegisterRoutes(r)
	return r
}

func serve(r *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// TestStatusFor tests the ledger error to HTTP status mapping
func TestStatusFor(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", types.ErrNotFound.Wrap("pool 3"), http.StatusNotFound},
		{"unauthorized", types.ErrUnauthorized, http.StatusForbidden},
		{"invalid", types.ErrInvalidParameters.Wrap("bad"), http.StatusBadRequest},
		{"below minimum", types.ErrBelowMinimum, http.StatusBadRequest},
		{"illegal transition", types.ErrIllegalTransition, http.StatusConflict},
		{"not funding", types.ErrPoolNotFunding, http.StatusConflict},
		{"not closed", types.ErrPoolNotClosed, http.StatusConflict},
		{"insufficient", types.ErrInsufficientEntitlement, http.StatusConflict},
		{"settlement", types.ErrSettlementMismatch, http.StatusConflict},
		{"out of range", errorsmod.Wrap(types.ErrAmountOutOfRange, "threshold"), http.StatusConflict},
		{"oracle", errorsmod.Wrap(types.ErrOracleUnavailable, "timeout"), http.StatusServiceUnavailable},
		{"payout", types.ErrPayoutFailed, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusFor(tc.err); got != tc.want {
				t.Errorf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

// TestRejectsMalformedRequests checks that requests are refused before the
// ledger is consulted
func TestRejectsMalformedRequests(t *testing.T) {
	r := newTestRouter(offlineLedger{err: errors.New("ledger must not be reached")})

	testCases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"zero pool id", "GET", "/v1/pools/0", ""},
		{"non numeric pool id", "GET", "/v1/pools/first", ""},
		{"negative offset", "GET", "/v1/pools?offset=-3", ""},
		{"non numeric limit", "GET", "/v1/pools/1/reports?limit=ten", ""},
		{"bad sequence", "POST", "/v1/pools/1/withdrawals/x/approve", `{"operator":"op"}`},
		{"malformed body", "POST", "/v1/pools/1/close", `{"operator":`},
		{"unknown field", "POST", "/v1/pools/1/close", `{"operator":"op","force":true}`},
		{"mismatched pool id", "POST", "/v1/pools/1/invest", `{"investor":"inv","pool_id":2}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(r, tc.method, tc.path, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}

			var resp apitypes.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error: %v", err)
			}
			if resp.Codespace != types.ModuleName {
				t.Errorf("expected codespace %s, got %q", types.ModuleName, resp.Codespace)
			}
			if resp.Code != types.ErrInvalidParameters.ABCICode() {
				t.Errorf("expected code %d, got %d", types.ErrInvalidParameters.ABCICode(), resp.Code)
			}
		})
	}
}

// TestLedgerErrorsAreMapped checks that a failing ledger surfaces with the
// status of its error
func TestLedgerErrorsAreMapped(t *testing.T) {
	r := newTestRouter(offlineLedger{err: types.ErrNotFound.Wrap("pool 7")})

	rec := serve(r, "GET", "/v1/pools/7", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	r = newTestRouter(offlineLedger{err: errors.New("disk on fire")})
	rec = serve(r, "GET", "/v1/pools", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

// TestEncryptWithoutOracle tests that the encrypt endpoint is unavailable
// when the gateway runs without an oracle
func TestEncryptWithoutOracle(t *testing.T) {
	r := newTestRouter(offlineLedger{})

	rec := serve(r, "POST", "/v1/oracle/encrypt", `{"pool_id":1,"amount":"100"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

// TestMethodNotAllowed tests that unregistered methods are rejected
func TestMethodNotAllowed(t *testing.T) {
	r := newTestRouter(offlineLedger{})

	rec := serve(r, "DELETE", "/v1/pools/1", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
