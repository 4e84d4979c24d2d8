package types

// Event types
const (
	EventTypePoolCreated         = "investpool_pool_created"
	EventTypeContribution        = "investpool_contribution"
	EventTypePoolActivated       = "investpool_pool_activated"
	EventTypePoolClosed          = "investpool_pool_closed"
	EventTypeWithdrawalRequested = "investpool_withdrawal_requested"
	EventTypeWithdrawalDecided   = "investpool_withdrawal_decided"
	EventTypeWithdrawalPaid      = "investpool_withdrawal_paid"
	EventTypePerformanceReport   = "investpool_performance_report"
	EventTypeEndBlock            = "investpool_endblock"
)

// Event attribute keys
const (
	AttributeKeyPoolID        = "pool_id"
	AttributeKeyPhase         = "phase"
	AttributeKeyCreator       = "creator"
	AttributeKeyOperator      = "operator"
	AttributeKeyContributor   = "contributor"
	AttributeKeySequence      = "sequence"
	AttributeKeyInvestorCount = "investor_count"
	AttributeKeyRaisedTotal   = "raised_total"
	AttributeKeyDistributable = "distributable"
	AttributeKeyReason        = "reason"
	AttributeKeyRequester     = "requester"
	AttributeKeyAmount        = "amount"
	AttributeKeyStatus        = "status"
	AttributeKeyReceiptID     = "receipt_id"
	AttributeKeyPeriod        = "period"
	AttributeKeyReportHash    = "report_hash"
	AttributeKeyBlockHeight   = "block_height"
)

// Transition reasons
const (
	ReasonTargetReached  = "target_reached"
	ReasonFundingExpired = "funding_expired"
	ReasonMatured        = "matured"
	ReasonOperatorClose  = "operator_close"
)
