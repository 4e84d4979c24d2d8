package types

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Message types
const (
	TypeMsgCreatePool              = "create_pool"
	TypeMsgInvest                  = "invest"
	TypeMsgClosePool               = "close_pool"
	TypeMsgRequestWithdrawal       = "request_withdrawal"
	TypeMsgApproveWithdrawal       = "approve_withdrawal"
	TypeMsgRejectWithdrawal        = "reject_withdrawal"
	TypeMsgPayWithdrawal           = "pay_withdrawal"
	TypeMsgSubmitPerformanceReport = "submit_performance_report"
)

func validateAddress(field, addr string) error {
	if _, err := sdk.AccAddressFromBech32(addr); err != nil {
		return errorsmod.Wrapf(ErrInvalidParameters, "invalid %s address: %v", field, err)
	}
	return nil
}

func signer(addr string) []sdk.AccAddress {
	acc, _ := sdk.AccAddressFromBech32(addr)
	return []sdk.AccAddress{acc}
}

// ParseAmount parses a base-unit integer amount
func ParseAmount(field, s string) (math.Int, error) {
	amt, ok := math.NewIntFromString(s)
	if !ok {
		return math.Int{}, ErrInvalidParameters.Wrapf("invalid %s %q", field, s)
	}
	return amt, nil
}

// MsgCreatePool defines the CreatePool message
type MsgCreatePool struct {
	Creator           string `json:"creator"`
	Operator          string `json:"operator,omitempty"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	AssetType         string `json:"asset_type"`
	Location          string `json:"location,omitempty"`
	ExpectedReturn    string `json:"expected_return,omitempty"`
	TotalValue        string `json:"total_value"`
	MinimumInvestment string `json:"minimum_investment"`
	FundingTarget     string `json:"funding_target"`
	Duration          int64  `json:"duration"`
	Denom             string `json:"denom,omitempty"`
}

// Route implements sdk.Msg
func (msg MsgCreatePool) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgCreatePool) Type() string { return TypeMsgCreatePool }

// ValidateBasic implements sdk.Msg
func (msg MsgCreatePool) ValidateBasic() error {
	if err := validateAddress("creator", msg.Creator); err != nil {
		return err
	}
	if msg.Operator != "" {
		if err := validateAddress("operator", msg.Operator); err != nil {
			return err
		}
	}
	config, err := msg.Config()
	if err != nil {
		return err
	}
	return config.Validate(0)
}

// Config converts the message into a pool configuration
func (msg MsgCreatePool) Config() (*PoolConfig, error) {
	totalValue, err := ParseAmount("total value", msg.TotalValue)
	if err != nil {
		return nil, err
	}
	minimum, err := ParseAmount("minimum investment", msg.MinimumInvestment)
	if err != nil {
		return nil, err
	}
	target, err := ParseAmount("funding target", msg.FundingTarget)
	if err != nil {
		return nil, err
	}
	return &PoolConfig{
		Name:              msg.Name,
		Description:       msg.Description,
		AssetType:         msg.AssetType,
		Location:          msg.Location,
		ExpectedReturn:    msg.ExpectedReturn,
		TotalValue:        totalValue,
		MinimumInvestment: minimum,
		FundingTarget:     target,
		Duration:          msg.Duration,
		Creator:           msg.Creator,
		Operator:          msg.Operator,
		Denom:             msg.Denom,
	}, nil
}

// GetSigners implements sdk.Msg
func (msg MsgCreatePool) GetSigners() []sdk.AccAddress { return signer(msg.Creator) }

// ProtoMessage implements proto.Message
func (*MsgCreatePool) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgCreatePool) Reset() { *msg = MsgCreatePool{} }

// String implements proto.Message
func (msg MsgCreatePool) String() string {
	return fmt.Sprintf("MsgCreatePool{Creator: %s, Name: %s, Target: %s}", msg.Creator, msg.Name, msg.FundingTarget)
}

// MsgCreatePoolResponse defines the CreatePool response
type MsgCreatePoolResponse struct {
	PoolID uint64 `json:"pool_id"`
}

// MsgInvest defines the Invest message. EncryptedAmount is produced by the
// confidential evaluation layer; MinimumProof attests amount >= minimum.
type MsgInvest struct {
	Investor        string `json:"investor"`
	PoolID          uint64 `json:"pool_id"`
	EncryptedAmount []byte `json:"encrypted_amount"`
	MinimumProof    []byte `json:"minimum_proof"`
}

// Route implements sdk.Msg
func (msg MsgInvest) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgInvest) Type() string { return TypeMsgInvest }

// ValidateBasic implements sdk.Msg
func (msg MsgInvest) ValidateBasic() error {
	if err := validateAddress("investor", msg.Investor); err != nil {
		return err
	}
	if msg.PoolID == 0 {
		return ErrNotFound.Wrap("pool id required")
	}
	if len(msg.EncryptedAmount) == 0 {
		return ErrInvalidParameters.Wrap("encrypted amount required")
	}
	if len(msg.MinimumProof) == 0 {
		return ErrBelowMinimum.Wrap("minimum proof required")
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgInvest) GetSigners() []sdk.AccAddress { return signer(msg.Investor) }

// ProtoMessage implements proto.Message
func (*MsgInvest) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgInvest) Reset() { *msg = MsgInvest{} }

// String implements proto.Message; the ciphertext is never printed
func (msg MsgInvest) String() string {
	return fmt.Sprintf("MsgInvest{Investor: %s, PoolID: %d}", msg.Investor, msg.PoolID)
}

// MsgInvestResponse defines the Invest response
type MsgInvestResponse struct {
	Sequence      uint64 `json:"sequence"`
	InvestorCount uint64 `json:"investor_count"`
	Phase         string `json:"phase"`
}

// MsgClosePool defines the ClosePool message (operator only)
type MsgClosePool struct {
	Operator string `json:"operator"`
	PoolID   uint64 `json:"pool_id"`
}

// Route implements sdk.Msg
func (msg MsgClosePool) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgClosePool) Type() string { return TypeMsgClosePool }

// ValidateBasic implements sdk.Msg
func (msg MsgClosePool) ValidateBasic() error {
	if err := validateAddress("operator", msg.Operator); err != nil {
		return err
	}
	if msg.PoolID == 0 {
		return ErrNotFound.Wrap("pool id required")
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgClosePool) GetSigners() []sdk.AccAddress { return signer(msg.Operator) }

// ProtoMessage implements proto.Message
func (*MsgClosePool) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgClosePool) Reset() { *msg = MsgClosePool{} }

// String implements proto.Message
func (msg MsgClosePool) String() string {
	return fmt.Sprintf("MsgClosePool{Operator: %s, PoolID: %d}", msg.Operator, msg.PoolID)
}

// MsgClosePoolResponse defines the ClosePool response
type MsgClosePoolResponse struct {
	Phase         string `json:"phase"`
	Distributable string `json:"distributable"`
}

// MsgRequestWithdrawal defines the RequestWithdrawal message
type MsgRequestWithdrawal struct {
	Requester string `json:"requester"`
	PoolID    uint64 `json:"pool_id"`
	Amount    string `json:"amount"`
}

// Route implements sdk.Msg
func (msg MsgRequestWithdrawal) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgRequestWithdrawal) Type() string { return TypeMsgRequestWithdrawal }

// ValidateBasic implements sdk.Msg
func (msg MsgRequestWithdrawal) ValidateBasic() error {
	if err := validateAddress("requester", msg.Requester); err != nil {
		return err
	}
	if msg.PoolID == 0 {
		return ErrNotFound.Wrap("pool id required")
	}
	amount, err := ParseAmount("amount", msg.Amount)
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ErrInvalidParameters.Wrap("amount must be positive")
	}
	return nil
}

// GetSigners implements sdk.Msg
func (msg MsgRequestWithdrawal) GetSigners() []sdk.AccAddress { return signer(msg.Requester) }

// ProtoMessage implements proto.Message
func (*MsgRequestWithdrawal) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgRequestWithdrawal) Reset() { *msg = MsgRequestWithdrawal{} }

// String implements proto.Message
func (msg MsgRequestWithdrawal) String() string {
	return fmt.Sprintf("MsgRequestWithdrawal{Requester: %s, PoolID: %d, Amount: %s}", msg.Requester, msg.PoolID, msg.Amount)
}

// MsgRequestWithdrawalResponse defines the RequestWithdrawal response
type MsgRequestWithdrawalResponse struct {
	Sequence  uint64 `json:"sequence"`
	ReceiptID string `json:"receipt_id"`
	Available string `json:"available"`
}

// MsgApproveWithdrawal defines the ApproveWithdrawal message (operator only)
type MsgApproveWithdrawal struct {
	Operator string `json:"operator"`
	PoolID   uint64 `json:"pool_id"`
	Sequence uint64 `json:"sequence"`
}

// Route implements sdk.Msg
func (msg MsgApproveWithdrawal) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgApproveWithdrawal) Type() string { return TypeMsgApproveWithdrawal }

// ValidateBasic implements sdk.Msg
func (msg MsgApproveWithdrawal) ValidateBasic() error {
	return validateDecision(msg.Operator, msg.PoolID, msg.Sequence)
}

// GetSigners implements sdk.Msg
func (msg MsgApproveWithdrawal) GetSigners() []sdk.AccAddress { return signer(msg.Operator) }

// ProtoMessage implements proto.Message
func (*MsgApproveWithdrawal) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgApproveWithdrawal) Reset() { *msg = MsgApproveWithdrawal{} }

// String implements proto.Message
func (msg MsgApproveWithdrawal) String() string {
	return fmt.Sprintf("MsgApproveWithdrawal{Operator: %s, PoolID: %d, Sequence: %d}", msg.Operator, msg.PoolID, msg.Sequence)
}

// MsgRejectWithdrawal defines the RejectWithdrawal message (operator only)
type MsgRejectWithdrawal struct {
	Operator string `json:"operator"`
	PoolID   uint64 `json:"pool_id"`
	Sequence uint64 `json:"sequence"`
}

// Route implements sdk.Msg
func (msg MsgRejectWithdrawal) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgRejectWithdrawal) Type() string { return TypeMsgRejectWithdrawal }

// ValidateBasic implements sdk.Msg
func (msg MsgRejectWithdrawal) ValidateBasic() error {
	return validateDecision(msg.Operator, msg.PoolID, msg.Sequence)
}

// GetSigners implements sdk.Msg
func (msg MsgRejectWithdrawal) GetSigners() []sdk.AccAddress { return signer(msg.Operator) }

// ProtoMessage implements proto.Message
func (*MsgRejectWithdrawal) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgRejectWithdrawal) Reset() { *msg = MsgRejectWithdrawal{} }

// String implements proto.Message
func (msg MsgRejectWithdrawal) String() string {
	return fmt.Sprintf("MsgRejectWithdrawal{Operator: %s, PoolID: %d, Sequence: %d}", msg.Operator, msg.PoolID, msg.Sequence)
}

// MsgPayWithdrawal defines the PayWithdrawal message (operator only)
type MsgPayWithdrawal struct {
	Operator string `json:"operator"`
	PoolID   uint64 `json:"pool_id"`
	Sequence uint64 `json:"sequence"`
}

// Route implements sdk.Msg
func (msg MsgPayWithdrawal) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgPayWithdrawal) Type() string { return TypeMsgPayWithdrawal }

// ValidateBasic implements sdk.Msg
func (msg MsgPayWithdrawal) ValidateBasic() error {
	return validateDecision(msg.Operator, msg.PoolID, msg.Sequence)
}

// GetSigners implements sdk.Msg
func (msg MsgPayWithdrawal) GetSigners() []sdk.AccAddress { return signer(msg.Operator) }

// ProtoMessage implements proto.Message
func (*MsgPayWithdrawal) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgPayWithdrawal) Reset() { *msg = MsgPayWithdrawal{} }

// String implements proto.Message
func (msg MsgPayWithdrawal) String() string {
	return fmt.Sprintf("MsgPayWithdrawal{Operator: %s, PoolID: %d, Sequence: %d}", msg.Operator, msg.PoolID, msg.Sequence)
}

// MsgWithdrawalResponse is returned by approve, reject and pay
type MsgWithdrawalResponse struct {
	ReceiptID string `json:"receipt_id"`
	Status    string `json:"status"`
}

func validateDecision(operator string, poolID, seq uint64) error {
	if err := validateAddress("operator", operator); err != nil {
		return err
	}
	if poolID == 0 || seq == 0 {
		return ErrNotFound.Wrap("pool id and sequence required")
	}
	return nil
}

// MsgSubmitPerformanceReport defines the SubmitPerformanceReport message
type MsgSubmitPerformanceReport struct {
	Operator        string `json:"operator"`
	PoolID          uint64 `json:"pool_id"`
	Period          string `json:"period"`
	TotalReturns    string `json:"total_returns"`
	ActiveInvestors uint64 `json:"active_investors"`
	TotalValue      string `json:"total_value"`
	ReportHash      string `json:"report_hash"`
	Corrects        uint64 `json:"corrects,omitempty"`
}

// Route implements sdk.Msg
func (msg MsgSubmitPerformanceReport) Route() string { return ModuleName }

// Type implements sdk.Msg
func (msg MsgSubmitPerformanceReport) Type() string { return TypeMsgSubmitPerformanceReport }

// ValidateBasic implements sdk.Msg
func (msg MsgSubmitPerformanceReport) ValidateBasic() error {
	if err := validateAddress("operator", msg.Operator); err != nil {
		return err
	}
	if msg.PoolID == 0 {
		return ErrNotFound.Wrap("pool id required")
	}
	if msg.Period == "" {
		return ErrInvalidParameters.Wrap("reporting period required")
	}
	if _, err := ParseAmount("total returns", msg.TotalReturns); err != nil {
		return err
	}
	totalValue, err := ParseAmount("total value", msg.TotalValue)
	if err != nil {
		return err
	}
	if totalValue.IsNegative() {
		return ErrInvalidParameters.Wrap("total value cannot be negative")
	}
	return ValidateReportHash(msg.ReportHash)
}

// GetSigners implements sdk.Msg
func (msg MsgSubmitPerformanceReport) GetSigners() []sdk.AccAddress { return signer(msg.Operator) }

// ProtoMessage implements proto.Message
func (*MsgSubmitPerformanceReport) ProtoMessage() {}

// Reset implements proto.Message
func (msg *MsgSubmitPerformanceReport) Reset() { *msg = MsgSubmitPerformanceReport{} }

// String implements proto.Message
func (msg MsgSubmitPerformanceReport) String() string {
	return fmt.Sprintf("MsgSubmitPerformanceReport{Operator: %s, PoolID: %d, Period: %s}", msg.Operator, msg.PoolID, msg.Period)
}

// MsgSubmitPerformanceReportResponse defines the SubmitPerformanceReport response
type MsgSubmitPerformanceReportResponse struct {
	Sequence  uint64 `json:"sequence"`
	ReceiptID string `json:"receipt_id"`
}

// Ensure all messages implement sdk.Msg interface
var (
	_ sdk.Msg = &MsgCreatePool{}
	_ sdk.Msg = &MsgInvest{}
	_ sdk.Msg = &MsgClosePool{}
	_ sdk.Msg = &MsgRequestWithdrawal{}
	_ sdk.Msg = &MsgApproveWithdrawal{}
	_ sdk.Msg = &MsgRejectWithdrawal{}
	_ sdk.Msg = &MsgPayWithdrawal{}
	_ sdk.Msg = &MsgSubmitPerformanceReport{}
)
