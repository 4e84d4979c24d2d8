package cli

import (
	"encoding/json"
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/types/kv"

	"github.com/vaultshield/pools/x/investpool/types"
)

// GetQueryCmd returns the cli query commands for the investpool module.
// Records are stored as JSON, so queries read the module store directly.
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Querying commands for the investpool module",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdQueryParams(),
		CmdQueryPool(),
		CmdQueryPools(),
		CmdQueryEntitlement(),
		CmdQueryReports(),
		CmdQueryWithdrawals(),
	)

	return cmd
}

func queryKey(clientCtx client.Context, key []byte) ([]byte, error) {
	bz, _, err := clientCtx.QueryStore(key, types.StoreKey)
	return bz, err
}

// querySubspace returns every value stored under prefix, in key order
func querySubspace(clientCtx client.Context, prefix []byte) ([][]byte, error) {
	res, err := clientCtx.QueryABCI(abci.RequestQuery{
		Path: fmt.Sprintf("/store/%s/subspace", types.StoreKey),
		Data: prefix,
	})
	if err != nil {
		return nil, err
	}

	var pairs kv.Pairs
	if err := pairs.Unmarshal(res.Value); err != nil {
		return nil, fmt.Errorf("failed to decode store pairs: %w", err)
	}
	values := make([][]byte, 0, len(pairs.Pairs))
	for _, p := range pairs.Pairs {
		values = append(values, p.Value)
	}
	return values, nil
}

func printJSON(clientCtx client.Context, v interface{}) error {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return clientCtx.PrintRaw(bz)
}

func decodeAll[T any](values [][]byte) ([]*T, error) {
	out := make([]*T, 0, len(values))
	for _, bz := range values {
		var v T
		if err := json.Unmarshal(bz, &v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, nil
}

// CmdQueryParams returns the command to query module parameters
func CmdQueryParams() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Query the investpool parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			params := types.DefaultParams()
			bz, err := queryKey(clientCtx, types.ParamsKey)
			if err != nil {
				return err
			}
			if bz != nil {
				if err := json.Unmarshal(bz, &params); err != nil {
					return err
				}
			}
			return printJSON(clientCtx, params)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryPool returns the command to query one pool
func CmdQueryPool() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool [pool-id]",
		Short: "Query the public view of a pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			poolID, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			bz, err := queryKey(clientCtx, types.PoolKey(poolID))
			if err != nil {
				return err
			}
			if bz == nil {
				return types.ErrNotFound.Wrapf("pool %d", poolID)
			}

			var pool types.Pool
			if err := json.Unmarshal(bz, &pool); err != nil {
				return err
			}
			return printJSON(clientCtx, pool.View())
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryPools returns the command to list pools
func CmdQueryPools() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "List pools, optionally filtered by phase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			phaseFilter, _ := cmd.Flags().GetString("phase")
			var want *types.Phase
			if phaseFilter != "" {
				p, err := types.ParsePhase(phaseFilter)
				if err != nil {
					return err
				}
				want = &p
			}

			values, err := querySubspace(clientCtx, types.PoolKeyPrefix)
			if err != nil {
				return err
			}
			pools, err := decodeAll[types.Pool](values)
			if err != nil {
				return err
			}

			views := make([]types.PoolView, 0, len(pools))
			for _, p := range pools {
				if want != nil && p.Phase != *want {
					continue
				}
				views = append(views, p.View())
			}
			return printJSON(clientCtx, views)
		},
	}

	cmd.Flags().String("phase", "", "Only list pools in this phase (funding, active, closed)")
	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryEntitlement returns the command to query a holder's entitlement
func CmdQueryEntitlement() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entitlement [pool-id] [address]",
		Short: "Query an entitlement in a closed pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			poolID, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			bz, err := queryKey(clientCtx, types.EntitlementKey(poolID, args[1]))
			if err != nil {
				return err
			}
			if bz == nil {
				return types.ErrNotFound.Wrapf("no entitlement for %s in pool %d", args[1], poolID)
			}

			var ent types.Entitlement
			if err := json.Unmarshal(bz, &ent); err != nil {
				return err
			}
			return printJSON(clientCtx, ent)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryReports returns the command to list a pool's performance reports
func CmdQueryReports() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports [pool-id]",
		Short: "List a pool's performance reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			poolID, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			values, err := querySubspace(clientCtx, types.PoolScopedPrefix(types.ReportKeyPrefix, poolID))
			if err != nil {
				return err
			}
			reports, err := decodeAll[types.PerformanceReport](values)
			if err != nil {
				return err
			}
			return printJSON(clientCtx, reports)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryWithdrawals returns the command to list a pool's withdrawal requests
func CmdQueryWithdrawals() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdrawals [pool-id]",
		Short: "List a pool's withdrawal requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			poolID, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			requester, _ := cmd.Flags().GetString("requester")

			values, err := querySubspace(clientCtx, types.PoolScopedPrefix(types.WithdrawalKeyPrefix, poolID))
			if err != nil {
				return err
			}
			all, err := decodeAll[types.WithdrawalRequest](values)
			if err != nil {
				return err
			}

			requests := make([]*types.WithdrawalRequest, 0, len(all))
			for _, w := range all {
				if requester == "" || w.Requester == requester {
					requests = append(requests, w)
				}
			}
			return printJSON(clientCtx, requests)
		},
	}

	cmd.Flags().String("requester", "", "Only list requests from this address")
	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}
