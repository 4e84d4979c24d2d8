package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"

	"github.com/vaultshield/pools/pkg/confidential"
	"github.com/vaultshield/pools/x/investpool/types"
)

const (
	FlagBackend   = "backend"
	FlagIdentity  = "identity"
	FlagSecret    = "secret"
	FlagRangeBits = "range-bits"
)

// EncryptOutput is what `oracle encrypt` prints
type EncryptOutput struct {
	Ciphertext   string `json:"ciphertext"`
	MinimumProof string `json:"minimum_proof"`
	Oracle       string `json:"oracle"`
}

// GetOracleCmd returns client-side helpers for the confidential oracle
func GetOracleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "oracle",
		Short:                      "Confidential amount helpers",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(CmdOracleEncrypt())
	return cmd
}

// CmdOracleEncrypt encrypts an amount and attests it meets a pool minimum
func CmdOracleEncrypt() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt [amount] [minimum]",
		Short: "Encrypt an investment amount and issue its minimum proof",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := types.ParseAmount("amount", args[0])
			if err != nil {
				return err
			}
			minimum, err := types.ParseAmount("minimum", args[1])
			if err != nil {
				return err
			}

			f := cmd.Flags()
			cfg := confidential.DefaultConfig()
			cfg.Enabled = true
			cfg.Backend, _ = f.GetString(FlagBackend)
			cfg.Identity, _ = f.GetString(FlagIdentity)
			cfg.SecretHex, _ = f.GetString(FlagSecret)
			cfg.RangeBits, _ = f.GetUint(FlagRangeBits)

			oracle, err := confidential.New(cfg)
			if err != nil {
				return err
			}
			ct, err := oracle.Encrypt(amount)
			if err != nil {
				return err
			}
			proof, err := oracle.AttestMinimum(cmd.Context(), ct, minimum)
			if err != nil {
				return fmt.Errorf("cannot attest minimum: %w", err)
			}

			clientCtx := client.GetClientContextFromCmd(cmd)
			return printJSON(clientCtx, EncryptOutput{
				Ciphertext:   hex.EncodeToString(ct.Ciphertext),
				MinimumProof: hex.EncodeToString(proof),
				Oracle:       oracle.Identity(),
			})
		},
	}

	cmd.Flags().String(FlagBackend, confidential.BackendElGamal, "Oracle backend (sealed, elgamal)")
	cmd.Flags().String(FlagIdentity, "", "Oracle identity the chain is configured with")
	cmd.Flags().String(FlagSecret, "", "Hex-encoded oracle secret")
	cmd.Flags().Uint(FlagRangeBits, confidential.DefaultRangeBits, "ElGamal amount range in bits")
	_ = cmd.MarkFlagRequired(FlagSecret)

	return cmd
}
