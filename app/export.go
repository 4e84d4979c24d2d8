package app

import (
	"encoding/json"
	"fmt"

	servertypes "github.com/cosmos/cosmos-sdk/server/types"

	investpooltypes "github.com/vaultshield/pools/x/investpool/types"
)

// ExportAppStateAndValidators exports the ledger state as genesis JSON
func (app *App) ExportAppStateAndValidators(forZeroHeight bool) (servertypes.ExportedApp, error) {
	ctx := app.NewContext(true)

	height := app.LastBlockHeight() + 1
	if forZeroHeight {
		height = 0
	}

	investpoolState, err := json.Marshal(app.InvestPoolKeeper.ExportGenesis(ctx))
	if err != nil {
		return servertypes.ExportedApp{}, fmt.Errorf("failed to export investpool state: %w", err)
	}

	appState, err := json.MarshalIndent(map[string]json.RawMessage{
		investpooltypes.ModuleName: investpoolState,
	}, "", "  ")
	if err != nil {
		return servertypes.ExportedApp{}, err
	}

	return servertypes.ExportedApp{
		AppState:        appState,
		Height:          height,
		ConsensusParams: app.BaseApp.GetConsensusParams(ctx),
	}, nil
}
