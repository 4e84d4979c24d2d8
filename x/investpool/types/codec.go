package types

import (
	"github.com/cosmos/cosmos-sdk/codec"
	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

const protoPackage = "vaultshield.investpool.v1."

// RegisterLegacyAminoCodec registers the module's messages on the amino codec
func RegisterLegacyAminoCodec(cdc *codec.LegacyAmino) {
	cdc.RegisterConcrete(&MsgCreatePool{}, "investpool/MsgCreatePool", nil)
	cdc.RegisterConcrete(&MsgInvest{}, "investpool/MsgInvest", nil)
	cdc.RegisterConcrete(&MsgClosePool{}, "investpool/MsgClosePool", nil)
	cdc.RegisterConcrete(&MsgRequestWithdrawal{}, "investpool/MsgRequestWithdrawal", nil)
	cdc.RegisterConcrete(&MsgApproveWithdrawal{}, "investpool/MsgApproveWithdrawal", nil)
	cdc.RegisterConcrete(&MsgRejectWithdrawal{}, "investpool/MsgRejectWithdrawal", nil)
	cdc.RegisterConcrete(&MsgPayWithdrawal{}, "investpool/MsgPayWithdrawal", nil)
	cdc.RegisterConcrete(&MsgSubmitPerformanceReport{}, "investpool/MsgSubmitPerformanceReport", nil)
}

// RegisterInterfaces registers the module's interface types
func RegisterInterfaces(registry cdctypes.InterfaceRegistry) {
	registry.RegisterImplementations((*sdk.Msg)(nil),
		&MsgCreatePool{},
		&MsgInvest{},
		&MsgClosePool{},
		&MsgRequestWithdrawal{},
		&MsgApproveWithdrawal{},
		&MsgRejectWithdrawal{},
		&MsgPayWithdrawal{},
		&MsgSubmitPerformanceReport{},
	)
}

// XXX_MessageName gives each message a distinct type URL in the registry
func (*MsgCreatePool) XXX_MessageName() string { return protoPackage + "MsgCreatePool" }

func (*MsgInvest) XXX_MessageName() string { return protoPackage + "MsgInvest" }

func (*MsgClosePool) XXX_MessageName() string { return protoPackage + "MsgClosePool" }

func (*MsgRequestWithdrawal) XXX_MessageName() string {
	return protoPackage + "MsgRequestWithdrawal"
}

func (*MsgApproveWithdrawal) XXX_MessageName() string {
	return protoPackage + "MsgApproveWithdrawal"
}

func (*MsgRejectWithdrawal) XXX_MessageName() string {
	return protoPackage + "MsgRejectWithdrawal"
}

func (*MsgPayWithdrawal) XXX_MessageName() string { return protoPackage + "MsgPayWithdrawal" }

func (*MsgSubmitPerformanceReport) XXX_MessageName() string {
	return protoPackage + "MsgSubmitPerformanceReport"
}
