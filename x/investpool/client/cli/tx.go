package cli

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/vaultshield/pools/x/investpool/types"
)

const (
	FlagName        = "name"
	FlagDescription = "description"
	FlagAssetType   = "asset-type"
	FlagLocation    = "location"
	FlagReturn      = "expected-return"
	FlagTotalValue  = "total-value"
	FlagMinimum     = "minimum"
	FlagTarget      = "target"
	FlagDuration    = "duration"
	FlagDenom       = "denom"
	FlagOperator    = "operator"
	FlagCorrects    = "corrects"
)

// GetTxCmd returns the transaction commands for the investpool module
func GetTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   types.ModuleName,
		Short: "Investment pool transaction commands",
		Long: `Investment pool transaction commands.

The investpool messages are plain JSON types without generated service
descriptors, so the chain's message router does not accept them. Writes are
served by the gateway (POST /v1/pools and related routes); use these commands
with --generate-only to build the message body for the gateway.`,
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdCreatePool(),
		CmdInvest(),
		CmdClosePool(),
		CmdRequestWithdrawal(),
		CmdApproveWithdrawal(),
		CmdRejectWithdrawal(),
		CmdPayWithdrawal(),
		CmdSubmitReport(),
	)

	return cmd
}

func parsePoolID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid pool id: %v", err)
	}
	return id, nil
}

// CmdCreatePool returns the command to register a pool
func CmdCreatePool() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-pool",
		Short: "Register a new investment pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			f := cmd.Flags()
			name, _ := f.GetString(FlagName)
			description, _ := f.GetString(FlagDescription)
			assetType, _ := f.GetString(FlagAssetType)
			location, _ := f.GetString(FlagLocation)
			expectedReturn, _ := f.GetString(FlagReturn)
			totalValue, _ := f.GetString(FlagTotalValue)
			minimum, _ := f.GetString(FlagMinimum)
			target, _ := f.GetString(FlagTarget)
			duration, _ := f.GetDuration(FlagDuration)
			denom, _ := f.GetString(FlagDenom)
			operator, _ := f.GetString(FlagOperator)

			msg := &types.MsgCreatePool{
				Creator:           clientCtx.GetFromAddress().String(),
				Operator:          operator,
				Name:              name,
				Description:       description,
				AssetType:         assetType,
				Location:          location,
				ExpectedReturn:    expectedReturn,
				TotalValue:        totalValue,
				MinimumInvestment: minimum,
				FundingTarget:     target,
				Duration:          int64(duration.Seconds()),
				Denom:             denom,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	cmd.Flags().String(FlagName, "", "Pool name")
	cmd.Flags().String(FlagDescription, "", "Pool description")
	cmd.Flags().String(FlagAssetType, "", "Underlying asset type")
	cmd.Flags().String(FlagLocation, "", "Asset location")
	cmd.Flags().String(FlagReturn, "", "Expected return shown to investors, e.g. \"8% p.a.\"")
	cmd.Flags().String(FlagTotalValue, "", "Total asset value in base units")
	cmd.Flags().String(FlagMinimum, "", "Minimum investment in base units")
	cmd.Flags().String(FlagTarget, "", "Funding target in base units")
	cmd.Flags().Duration(FlagDuration, 0, "Funding window and holding period, e.g. 720h")
	cmd.Flags().String(FlagDenom, "", "Payout denomination (defaults to the module param)")
	cmd.Flags().String(FlagOperator, "", "Operator address (defaults to the creator)")
	_ = cmd.MarkFlagRequired(FlagName)
	_ = cmd.MarkFlagRequired(FlagTarget)
	_ = cmd.MarkFlagRequired(FlagMinimum)
	_ = cmd.MarkFlagRequired(FlagDuration)

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdInvest returns the command to contribute an encrypted amount. Use
// `oracle encrypt` to obtain the ciphertext and minimum proof.
func CmdInvest() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invest [pool-id] [ciphertext-hex] [minimum-proof-hex]",
		Short: "Contribute an encrypted amount to a funding pool",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			poolID, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			ciphertext, err := hex.DecodeString(args[1])
			if err != nil {
				return fmt.Errorf("invalid ciphertext: %v", err)
			}
			proof, err := hex.DecodeString(args[2])
			if err != nil {
				return fmt.Errorf("invalid minimum proof: %v", err)
			}

			msg := &types.MsgInvest{
				Investor:        clientCtx.GetFromAddress().String(),
				PoolID:          poolID,
				EncryptedAmount: ciphertext,
				MinimumProof:    proof,
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdClosePool returns the command to settle an active pool
func CmdClosePool() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close-pool [pool-id]",
		Short: "Close an active pool and compute entitlements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			poolID, err := parsePoolID(args[0])
			if err != nil {
				return err
			}

			msg := &types.MsgClosePool{
				Operator: clientCtx.GetFromAddress().String(),
				PoolID:   poolID,
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdRequestWithdrawal returns the command to request a withdrawal
func CmdRequestWithdrawal() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request-withdrawal [pool-id] [amount]",
		Short: "Request a withdrawal against an entitlement",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			poolID, err := parsePoolID(args[0])
			if err != nil {
				return err
			}

			msg := &types.MsgRequestWithdrawal{
				Requester: clientCtx.GetFromAddress().String(),
				PoolID:    poolID,
				Amount:    args[1],
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// decisionCmd builds the operator commands acting on one withdrawal request
func decisionCmd(use, short string, build func(operator string, poolID, seq uint64) sdk.Msg) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " [pool-id] [sequence]",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			poolID, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			seq, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid sequence: %v", err)
			}

			msg := build(clientCtx.GetFromAddress().String(), poolID, seq)
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdApproveWithdrawal returns the command to approve a pending request
func CmdApproveWithdrawal() *cobra.Command {
	return decisionCmd("approve-withdrawal", "Approve a pending withdrawal request",
		func(operator string, poolID, seq uint64) sdk.Msg {
			return &types.MsgApproveWithdrawal{Operator: operator, PoolID: poolID, Sequence: seq}
		})
}

// CmdRejectWithdrawal returns the command to reject a pending request
func CmdRejectWithdrawal() *cobra.Command {
	return decisionCmd("reject-withdrawal", "Reject a pending withdrawal request",
		func(operator string, poolID, seq uint64) sdk.Msg {
			return &types.MsgRejectWithdrawal{Operator: operator, PoolID: poolID, Sequence: seq}
		})
}

// CmdPayWithdrawal returns the command to pay an approved request
func CmdPayWithdrawal() *cobra.Command {
	return decisionCmd("pay-withdrawal", "Pay out an approved withdrawal request",
		func(operator string, poolID, seq uint64) sdk.Msg {
			return &types.MsgPayWithdrawal{Operator: operator, PoolID: poolID, Sequence: seq}
		})
}

// CmdSubmitReport returns the command to publish a performance report
func CmdSubmitReport() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit-report [pool-id] [period] [total-returns] [active-investors] [total-value] [report-hash]",
		Short: "Publish a performance report for a pool",
		Args:  cobra.ExactArgs(6),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			poolID, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			investors, err := strconv.ParseUint(args[3], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid active investors: %v", err)
			}
			corrects, _ := cmd.Flags().GetUint64(FlagCorrects)

			msg := &types.MsgSubmitPerformanceReport{
				Operator:        clientCtx.GetFromAddress().String(),
				PoolID:          poolID,
				Period:          args[1],
				TotalReturns:    args[2],
				ActiveInvestors: investors,
				TotalValue:      args[4],
				ReportHash:      args[5],
				Corrects:        corrects,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}

			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	cmd.Flags().Uint64(FlagCorrects, 0, "Sequence of an earlier report this one corrects")
	flags.AddTxFlagsToCmd(cmd)
	return cmd
}
