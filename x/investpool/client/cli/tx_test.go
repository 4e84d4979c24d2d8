package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTxCmdPointsWritesAtGateway(t *testing.T) {
	cmd := GetTxCmd()
	require.Contains(t, cmd.Long, "gateway")
	require.Contains(t, cmd.Long, "--generate-only")

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	require.Contains(t, names, "create-pool")
}

func TestCreatePoolFlags(t *testing.T) {
	cmd := CmdCreatePool()
	for _, name := range []string{FlagName, FlagLocation, FlagReturn, FlagTarget, FlagDuration} {
		require.NotNil(t, cmd.Flags().Lookup(name), "missing --%s", name)
	}
	require.True(t, strings.HasPrefix(cmd.Use, "create-pool"))
}
