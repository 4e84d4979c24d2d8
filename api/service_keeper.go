package api

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/store"
	storemetrics "cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	apitypes "github.com/vaultshield/pools/api/types"
	"github.com/vaultshield/pools/metrics"
	"github.com/vaultshield/pools/pkg/confidential"
	"github.com/vaultshield/pools/x/investpool/keeper"
	"github.com/vaultshield/pools/x/investpool/types"
)

// EventSink receives ledger events after their write has been committed
type EventSink interface {
	Publish(events []apitypes.LedgerEvent)
}

// LedgerService runs the investpool keeper over an in-memory IAVL store so
// the gateway can serve the ledger without a full node. Writes are
// serialised and each one runs on a cache context that is committed only
// when the operation succeeds.
type LedgerService struct {
	keeper      *keeper.Keeper
	queryServer *keeper.QueryServer
	msgServer   *keeper.MsgServer
	oracle      confidential.Oracle
	payouts     *ledgerPayout

	ctx    sdk.Context
	mu     sync.RWMutex
	seq    uint64
	sink   EventSink
	logger log.Logger
}

// LedgerConfig configures the in-memory ledger
type LedgerConfig struct {
	GenesisFile  string        `mapstructure:"genesis-file"`
	BlockTime    time.Duration `mapstructure:"block-time"`
	InitialBlock int64         `mapstructure:"initial-height"`
}

// DefaultLedgerConfig returns a one-second block ledger starting at height 1
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		BlockTime:    time.Second,
		InitialBlock: 1,
	}
}

// NewLedgerService creates a LedgerService. oracle may be nil, in which case
// every confidential operation fails with ErrOracleUnavailable.
func NewLedgerService(cfg LedgerConfig, oracle confidential.Oracle, collector *metrics.Collector, logger log.Logger) (*LedgerService, error) {
	interfaceRegistry := codectypes.NewInterfaceRegistry()
	cdc := codec.NewProtoCodec(interfaceRegistry)

	storeKey := storetypes.NewKVStoreKey(types.StoreKey)
	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), storemetrics.NewNoOpMetrics())
	stateStore.MountStoreWithDB(storeKey, storetypes.StoreTypeIAVL, db)
	if err := stateStore.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	height := cfg.InitialBlock
	if height <= 0 {
		height = 1
	}
	ctx := sdk.NewContext(stateStore, cmtproto.Header{
		Time:   time.Now().UTC(),
		Height: height,
	}, false, logger)

	payouts := newLedgerPayout(logger)

	k := keeper.NewKeeper(cdc, storeKey, oracle, payouts, "", logger)

	genesis, err := loadGenesis(cfg.GenesisFile)
	if err != nil {
		return nil, err
	}
	if genesis.Params.Oracle == "" && oracle != nil {
		genesis.Params.Oracle = oracle.Identity()
	}
	if err := k.InitGenesis(ctx, genesis); err != nil {
		return nil, fmt.Errorf("failed to init ledger genesis: %w", err)
	}

	return &LedgerService{
		keeper:      k,
		queryServer: keeper.NewQueryServerImpl(k),
		msgServer:   keeper.NewMsgServerWithMetrics(k, collector),
		oracle:      oracle,
		payouts:     payouts,
		ctx:         ctx,
		logger:      logger.With("component", "ledger"),
	}, nil
}

func loadGenesis(path string) (*types.GenesisState, error) {
	if path == "" {
		return types.DefaultGenesis(), nil
	}
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis %s: %w", path, err)
	}
	var gs types.GenesisState
	if err := json.Unmarshal(bz, &gs); err != nil {
		return nil, fmt.Errorf("failed to decode genesis %s: %w", path, err)
	}
	return &gs, nil
}

// SetSink sets where committed events are published
func (s *LedgerService) SetSink(sink EventSink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

// QueryServer returns the keeper query server
func (s *LedgerService) QueryServer() *keeper.QueryServer { return s.queryServer }

// MsgServer returns the keeper msg server
func (s *LedgerService) MsgServer() *keeper.MsgServer { return s.msgServer }

// Oracle returns the gateway's oracle, or nil when none is configured
func (s *LedgerService) Oracle() confidential.Oracle { return s.oracle }

// Payouts returns the transfers performed so far
func (s *LedgerService) Payouts() []Payout { return s.payouts.list() }

// View runs fn against the current state under a read lock
func (s *LedgerService) View(fn func(ctx context.Context) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.ctx)
}

// Apply runs fn on a cache context and commits its writes and events only
// when fn succeeds
func (s *LedgerService) Apply(fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cacheCtx, write := s.ctx.WithEventManager(sdk.NewEventManager()).CacheContext()
	if err := fn(cacheCtx); err != nil {
		return err
	}
	events := cacheCtx.EventManager().Events()
	write()
	s.publish(events)
	return nil
}

// Height returns the current block height and time
func (s *LedgerService) Height() (int64, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx.BlockHeight(), s.ctx.BlockTime()
}

// Tick advances the ledger by one block at now and runs the EndBlocker
func (s *LedgerService) Tick(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = s.ctx.
		WithBlockHeight(s.ctx.BlockHeight() + 1).
		WithBlockTime(now.UTC())

	cacheCtx, write := s.ctx.WithEventManager(sdk.NewEventManager()).CacheContext()
	if err := s.keeper.EndBlocker(cacheCtx); err != nil {
		return err
	}
	events := cacheCtx.EventManager().Events()
	write()
	s.publish(events)
	return nil
}

// Run produces a block every interval until ctx is cancelled
func (s *LedgerService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := s.Tick(now); err != nil {
				s.logger.Error("EndBlocker failed", "error", err)
			}
		}
	}
}

// ExportGenesis returns the current ledger state
func (s *LedgerService) ExportGenesis() *types.GenesisState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keeper.ExportGenesis(s.ctx)
}

// publish must be called with s.mu held
func (s *LedgerService) publish(events sdk.Events) {
	if len(events) == 0 {
		return
	}
	out := make([]apitypes.LedgerEvent, 0, len(events))
	for _, ev := range events {
		s.seq++
		le := apitypes.LedgerEvent{
			Sequence:   s.seq,
			Type:       ev.Type,
			Height:     s.ctx.BlockHeight(),
			Timestamp:  s.ctx.BlockTime().Unix(),
			Attributes: make(map[string]string, len(ev.Attributes)),
		}
		for _, attr := range ev.Attributes {
			le.Attributes[attr.Key] = attr.Value
			if attr.Key == types.AttributeKeyPoolID {
				if id, err := strconv.ParseUint(attr.Value, 10, 64); err == nil {
					le.PoolID = id
				}
			}
		}
		out = append(out, le)
	}
	if s.sink != nil {
		s.sink.Publish(out)
	}
}

// Payout is a transfer performed by the gateway ledger
type Payout struct {
	Recipient string   `json:"recipient"`
	Amount    sdk.Coin `json:"amount"`
}

// ledgerPayout stands in for the bank module: the standalone ledger has no
// balances, so payouts are recorded and logged
type ledgerPayout struct {
	mu      sync.Mutex
	entries []Payout
	logger  log.Logger
}

func newLedgerPayout(logger log.Logger) *ledgerPayout {
	return &ledgerPayout{logger: logger.With("component", "payout")}
}

func (p *ledgerPayout) Payout(_ context.Context, recipient string, amt sdk.Coin) error {
	if !amt.IsValid() || amt.IsZero() {
		return fmt.Errorf("invalid payout amount %s", amt)
	}
	p.mu.Lock()
	p.entries = append(p.entries, Payout{Recipient: recipient, Amount: amt})
	p.mu.Unlock()
	p.logger.Info("Payout recorded", "recipient", recipient, "amount", amt.String())
	return nil
}

func (p *ledgerPayout) list() []Payout {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Payout, len(p.entries))
	copy(out, p.entries)
	return out
}
