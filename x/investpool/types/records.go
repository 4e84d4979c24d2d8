package types

import (
	"encoding/binary"
	"encoding/hex"

	"cosmossdk.io/math"
	"github.com/google/uuid"
)

// Withdrawal status
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
	WithdrawalStatusPaid     = "paid"
)

// receiptNamespace scopes the deterministic receipt identifiers
var receiptNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("vaultshield.investpool"))

// Contribution is one immutable confidential contribution
type Contribution struct {
	PoolID      uint64             `json:"pool_id"`
	Contributor string             `json:"contributor"`
	Sequence    uint64             `json:"sequence"`
	Amount      ConfidentialAmount `json:"amount"`
	Timestamp   int64              `json:"timestamp"`
}

// ContributorPosition keeps the encrypted running subtotal of one
// contributor in one pool
type ContributorPosition struct {
	PoolID        uint64             `json:"pool_id"`
	Contributor   string             `json:"contributor"`
	Subtotal      ConfidentialAmount `json:"subtotal"`
	Contributions uint64             `json:"contributions"`
	FirstSequence uint64             `json:"first_sequence"`
}

// Entitlement is a contributor's revealed, withdrawable share after close
type Entitlement struct {
	PoolID      uint64   `json:"pool_id"`
	Holder      string   `json:"holder"`
	Contributed math.Int `json:"contributed"`
	Amount      math.Int `json:"amount"`
	Reserved    math.Int `json:"reserved"` // pending + approved
	Paid        math.Int `json:"paid"`
}

// NewEntitlement creates an entitlement with nothing reserved or paid
func NewEntitlement(poolID uint64, holder string, contributed, amount math.Int) *Entitlement {
	return &Entitlement{
		PoolID:      poolID,
		Holder:      holder,
		Contributed: contributed,
		Amount:      amount,
		Reserved:    math.ZeroInt(),
		Paid:        math.ZeroInt(),
	}
}

// Available returns the amount that can still be requested
func (e *Entitlement) Available() math.Int {
	return e.Amount.Sub(e.Reserved).Sub(e.Paid)
}

// WithdrawalRequest is a request against a revealed entitlement
type WithdrawalRequest struct {
	PoolID      uint64   `json:"pool_id"`
	Sequence    uint64   `json:"sequence"`
	ReceiptID   string   `json:"receipt_id"`
	Requester   string   `json:"requester"`
	Amount      math.Int `json:"amount"`
	Status      string   `json:"status"`
	RequestedAt int64    `json:"requested_at"`
	DecidedAt   int64    `json:"decided_at,omitempty"`
	DecidedBy   string   `json:"decided_by,omitempty"`
	PaidAt      int64    `json:"paid_at,omitempty"`
}

// NewWithdrawalRequest creates a pending request
func NewWithdrawalRequest(poolID, seq uint64, requester string, amount math.Int, now int64) *WithdrawalRequest {
	return &WithdrawalRequest{
		PoolID:      poolID,
		Sequence:    seq,
		ReceiptID:   ReceiptID("withdrawal", poolID, seq),
		Requester:   requester,
		Amount:      amount,
		Status:      WithdrawalStatusPending,
		RequestedAt: now,
	}
}

// PerformanceReport is an operator attestation for one reporting period
type PerformanceReport struct {
	PoolID          uint64   `json:"pool_id"`
	Sequence        uint64   `json:"sequence"`
	ReceiptID       string   `json:"receipt_id"`
	Period          string   `json:"period"`
	TotalReturns    math.Int `json:"total_returns"` // may be negative
	ActiveInvestors uint64   `json:"active_investors"`
	TotalValue      math.Int `json:"total_value"`
	ReportHash      string   `json:"report_hash"`
	Corrects        uint64   `json:"corrects,omitempty"`
	Submitter       string   `json:"submitter"`
	Timestamp       int64    `json:"timestamp"`
}

// ValidateReportHash checks for a hex encoded SHA-256 digest
func ValidateReportHash(h string) error {
	bz, err := hex.DecodeString(h)
	if err != nil || len(bz) != 32 {
		return ErrInvalidParameters.Wrap("report hash must be a hex encoded 32 byte digest")
	}
	return nil
}

// ReceiptID derives a stable identifier for a ledger record. It is a name
// based UUID so every node computes the same value.
func ReceiptID(kind string, poolID, seq uint64) string {
	name := make([]byte, 0, len(kind)+16)
	name = append(name, kind...)
	name = binary.BigEndian.AppendUint64(name, poolID)
	name = binary.BigEndian.AppendUint64(name, seq)
	return uuid.NewSHA1(receiptNamespace, name).String()
}
