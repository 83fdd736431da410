// Package app wires the chain client, external services, pipeline phases and
// record sinks into a Coordinator.
package app

import (
	"context"
	"fmt"
	"log"
	"os"

	"pokeball-ops/internal/config"
	"pokeball-ops/internal/coordinator"
	"pokeball-ops/internal/gacha"
	"pokeball-ops/internal/journal"
	"pokeball-ops/internal/replenish"
	"pokeball-ops/internal/revenue"
	"pokeball-ops/internal/solana"
	"pokeball-ops/internal/spawn"
	"pokeball-ops/internal/storage"
	chstore "pokeball-ops/internal/storage/clickhouse"
	"pokeball-ops/internal/storage/memory"
	pgstore "pokeball-ops/internal/storage/postgres"
	"pokeball-ops/internal/swapapi"
)

// NewLogger returns a component logger with a bracketed prefix.
func NewLogger(component string) *log.Logger {
	return log.New(os.Stdout, "["+component+"] ", log.LstdFlags|log.Lshortfile)
}

// App holds the wired service.
type App struct {
	Chain       *solana.Client
	Coordinator *coordinator.Coordinator

	closers []func()
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// New builds the service from a validated Config. On error, everything
// created so far is released.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	logger := NewLogger("app")

	operator, err := cfg.OperatorKeypair()
	if err != nil {
		return nil, fmt.Errorf("load operator keypair: %w", err)
	}
	programID, err := solana.ParsePublicKey(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("program id: %w", err)
	}
	solBalls, err := solana.ParsePublicKey(cfg.SolBallsMint)
	if err != nil {
		return nil, fmt.Errorf("solballs mint: %w", err)
	}

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint, solana.WithRateLimit(cfg.RPCRateLimit))
	poller := solana.NewPollingConfirmer(rpc, solana.DefaultPollInterval, solana.DefaultConfirmTimeout)
	var confirmer solana.Confirmer = poller
	if cfg.WSEndpoint != "" {
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Logger = NewLogger("ws")
		ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, &wsCfg)
		if err != nil {
			logger.Printf("WebSocket unavailable, confirming by polling: %v", err)
		} else {
			a.closers = append(a.closers, func() { ws.Close() })
			confirmer = solana.NewWSConfirmer(ws, poller)
		}
	}

	chain, err := solana.NewClient(solana.ClientOptions{
		RPC:          rpc,
		Confirmer:    confirmer,
		ProgramID:    programID,
		Operator:     operator,
		SolBallsMint: solBalls,
		Logger:       NewLogger("chain"),
	})
	if err != nil {
		return nil, err
	}
	a.Chain = chain
	logger.Printf("Operator %s, game config %s", chain.OperatorPublicKey(), chain.Accounts().GameConfig)

	quotes := swapapi.NewClient(cfg.SwapAPIURL)

	var packs gacha.Service
	if cfg.UseMockGacha {
		logger.Println("Using mock pack service (placeholder mints)")
		packs = gacha.NewMockService(chain, NewLogger("gacha"))
	} else {
		packs = gacha.NewClient(gacha.ClientOptions{
			BaseURL: cfg.GachaAPIURL,
			APIKey:  cfg.GachaAPIKey,
			Delays:  cfg.Tuning.Gacha,
			Logger:  NewLogger("gacha"),
		})
	}

	runs, spawnChecks, err := a.openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := coordinator.Options{
		Swap: revenue.NewSwapOrchestrator(revenue.SwapOptions{
			Chain:          chain,
			Quotes:         quotes,
			SourceMint:     cfg.SolBallsMint,
			DestMint:       cfg.USDCMint,
			Threshold:      cfg.MinSwapThreshold,
			WithdrawBuffer: cfg.WithdrawBuffer,
			SlippageBps:    cfg.SlippageBps,
			Logger:         NewLogger("swap"),
		}),
		Split: revenue.NewProceedsSplitter(revenue.SplitterOptions{
			Chain:           chain,
			Quotes:          quotes,
			StableMint:      cfg.USDCMint,
			ReserveMint:     cfg.ReserveMint,
			TreasuryWallet:  cfg.TreasuryWallet,
			TreasuryPercent: cfg.TreasuryPercent,
			ReservePercent:  cfg.ReservePercent,
			SlippageBps:     cfg.SlippageBps,
			Logger:          NewLogger("split"),
		}),
		Replenish: replenish.New(replenish.Options{
			Chain:          chain,
			Packs:          packs,
			StableMint:     cfg.USDCMint,
			ExcludeMints:   cfg.ExcludedMints(),
			PackCost:       cfg.PackCost,
			MinPacksPerRun: cfg.MinPacksPerRun,
			MaxVaultSize:   cfg.MaxVaultSize,
			Logger:         NewLogger("replenish"),
		}),
		Spawn: spawn.NewManager(spawn.Options{
			Chain:  chain,
			Tuning: cfg.Tuning.Spawn,
			Logger: NewLogger("spawn"),
		}),
		SkipSwap:    cfg.SkipSwap,
		Runs:        runs,
		SpawnChecks: spawnChecks,
		Logger:      NewLogger("coordinator"),
	}
	if cfg.JournalDir != "" {
		j := journal.NewWriter(cfg.JournalDir, "runs")
		a.closers = append(a.closers, func() {
			if err := j.Close(); err != nil {
				logger.Printf("Failed to close journal: %v", err)
			}
		})
		opts.Journal = j
	}

	a.Coordinator = coordinator.New(opts)
	return a, nil
}

// openStores selects in-memory stores or Postgres (phase records) and
// ClickHouse (spawn checks). A backend without a DSN falls back to memory.
func (a *App) openStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.PhaseRecordStore, storage.SpawnCheckStore, error) {
	var runs storage.PhaseRecordStore = memory.NewPhaseRecordStore()
	var spawnChecks storage.SpawnCheckStore = memory.NewSpawnCheckStore()
	if cfg.UseMemory {
		logger.Println("Using in-memory record storage")
		return runs, spawnChecks, nil
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		applied, err := pool.Migrate(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Printf("Postgres schema ready (applied %v)", applied)
		runs = pgstore.NewPhaseRecordStore(pool)
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := chstore.OpenDatabase(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		a.closers = append(a.closers, func() { conn.Close() })
		applied, err := conn.Migrate(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		logger.Printf("ClickHouse schema ready (applied %v)", applied)
		spawnChecks = chstore.NewSpawnCheckStore(conn)
	}

	return runs, spawnChecks, nil
}
