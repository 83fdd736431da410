// Package coordinator sequences the revenue pipeline and spawn maintenance
// and guarantees that at most one run is in flight at a time.
//
// A tick runs swap -> split -> replenish, then spawn maintenance. An error in
// a revenue phase abandons the remaining revenue phases for that tick; a swap
// skip only drops the split. Spawn maintenance always runs last and its
// failures never escape the tick.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pokeball-ops/internal/domain"
	"pokeball-ops/internal/observability"
	"pokeball-ops/internal/revenue"
	"pokeball-ops/internal/spawn"
	"pokeball-ops/internal/storage"
)

// ErrBusy is returned when a run is already in progress.
var ErrBusy = errors.New("pipeline run already in progress")

// SwapPhase withdraws and swaps game revenue.
type SwapPhase interface {
	Run(ctx context.Context) (*revenue.SwapOutcome, error)
}

// SplitPhase distributes swap proceeds.
type SplitPhase interface {
	Split(ctx context.Context, total uint64) (*domain.SplitResult, error)
}

// ReplenishPhase buys packs and fills the vault.
type ReplenishPhase interface {
	Run(ctx context.Context) (*domain.ReplenishmentResult, error)
}

// SpawnPhase maintains central spawns.
type SpawnPhase interface {
	Run(ctx context.Context, opts spawn.RunOptions) (*domain.SpawnManagerResult, error)
}

// Journal receives a copy of every record. *journal.Writer satisfies it.
type Journal interface {
	WritePhase(r *domain.PhaseRecord) error
	WriteSpawnCheck(tsMs int64, r *domain.SpawnManagerResult) error
}

// Options configures Coordinator.
type Options struct {
	Swap      SwapPhase
	Split     SplitPhase
	Replenish ReplenishPhase
	Spawn     SpawnPhase

	// SkipSwap bypasses swap and split; replenish and spawn still run.
	SkipSwap bool

	// Record sinks. All optional; failures are logged, never returned.
	Runs        storage.PhaseRecordStore
	SpawnChecks storage.SpawnCheckStore
	Journal     Journal

	Now    func() time.Time
	Logger *log.Logger
}

// Coordinator runs pipeline phases under a single-flight guard.
type Coordinator struct {
	swap      SwapPhase
	split     SplitPhase
	replenish ReplenishPhase
	spawn     SpawnPhase
	skipSwap  bool

	runs        storage.PhaseRecordStore
	spawnChecks storage.SpawnCheckStore
	journal     Journal

	now    func() time.Time
	logger *log.Logger

	busy atomic.Bool

	mu     sync.Mutex
	status Status
}

// Status is a snapshot of run state. Timestamps are nil until the first success.
type Status struct {
	Processing        bool       `json:"processing"`
	LastSwap          *time.Time `json:"last_swap,omitempty"`
	LastGachaPurchase *time.Time `json:"last_gacha_purchase,omitempty"`
	LastAssetDeposit  *time.Time `json:"last_asset_deposit,omitempty"`
	LastSpawnCheck    *time.Time `json:"last_spawn_check,omitempty"`
}

// SwapRunResult is the result of a manual swap run.
type SwapRunResult struct {
	Swap  *revenue.SwapOutcome `json:"swap"`
	Split *domain.SplitResult  `json:"split,omitempty"`
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		swap:        opts.Swap,
		split:       opts.Split,
		replenish:   opts.Replenish,
		spawn:       opts.Spawn,
		skipSwap:    opts.SkipSwap,
		runs:        opts.Runs,
		spawnChecks: opts.SpawnChecks,
		journal:     opts.Journal,
		now:         opts.Now,
		logger:      opts.Logger,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	return c
}

// Status returns a snapshot of the run state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.status
	s.Processing = c.busy.Load()
	return s
}

// RecentRecords returns the latest phase records, newest first.
func (c *Coordinator) RecentRecords(ctx context.Context, limit int) ([]*domain.PhaseRecord, error) {
	if c.runs == nil {
		return nil, nil
	}
	return c.runs.ListRecent(ctx, limit)
}

func (c *Coordinator) acquire() bool {
	if c.busy.CompareAndSwap(false, true) {
		return true
	}
	observability.RecordTickSkipped()
	return false
}

// Tick runs the full pipeline once. Returns ErrBusy without side effects if
// another run holds the guard. Phase failures are logged, not returned.
func (c *Coordinator) Tick(ctx context.Context) error {
	if !c.acquire() {
		c.logger.Println("Previous run still in progress, skipping tick")
		return ErrBusy
	}
	defer c.busy.Store(false)

	runID := uuid.NewString()
	c.logger.Printf("Tick %s started", runID)

	if err := c.runRevenue(ctx, runID); err != nil {
		c.logger.Printf("Revenue pipeline aborted: %v", err)
	}

	c.runSpawnIsolated(ctx, runID)

	c.logger.Printf("Tick %s finished", runID)
	return nil
}

// runRevenue runs swap -> split -> replenish. Panics are turned into errors.
func (c *Coordinator) runRevenue(ctx context.Context, runID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if c.skipSwap {
		c.logger.Println("Swap disabled, skipping swap and split")
	} else {
		outcome, err := c.doSwap(ctx, runID, domain.TriggerTick)
		if err != nil {
			return fmt.Errorf("swap phase: %w", err)
		}
		if !outcome.Skipped {
			if _, err := c.doSplit(ctx, runID, domain.TriggerTick, outcome.Result.AmountReceived); err != nil {
				return fmt.Errorf("split phase: %w", err)
			}
		}
	}

	if _, err := c.doReplenish(ctx, runID, domain.TriggerTick); err != nil {
		return fmt.Errorf("replenish phase: %w", err)
	}
	return nil
}

func (c *Coordinator) runSpawnIsolated(ctx context.Context, runID string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("Spawn maintenance panicked: %v", r)
		}
	}()

	if _, err := c.doSpawn(ctx, runID, domain.TriggerTick, spawn.RunOptions{}); err != nil {
		c.logger.Printf("Spawn maintenance failed: %v", err)
	}
}

// RunSwap runs the swap phase and, when a swap happened, the split.
func (c *Coordinator) RunSwap(ctx context.Context) (*SwapRunResult, error) {
	if !c.acquire() {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	runID := uuid.NewString()
	outcome, err := c.doSwap(ctx, runID, domain.TriggerManual)
	if err != nil {
		return nil, err
	}

	result := &SwapRunResult{Swap: outcome}
	if outcome.Skipped {
		return result, nil
	}

	split, err := c.doSplit(ctx, runID, domain.TriggerManual, outcome.Result.AmountReceived)
	if err != nil {
		return result, err
	}
	result.Split = split
	return result, nil
}

// RunReplenish runs the replenishment phase on its own.
func (c *Coordinator) RunReplenish(ctx context.Context) (*domain.ReplenishmentResult, error) {
	if !c.acquire() {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	return c.doReplenish(ctx, uuid.NewString(), domain.TriggerManual)
}

// RunSpawn runs spawn maintenance on its own. Unlike a tick, errors are returned.
func (c *Coordinator) RunSpawn(ctx context.Context, opts spawn.RunOptions) (*domain.SpawnManagerResult, error) {
	if !c.acquire() {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	return c.doSpawn(ctx, uuid.NewString(), domain.TriggerManual, opts)
}

func (c *Coordinator) doSwap(ctx context.Context, runID, trigger string) (*revenue.SwapOutcome, error) {
	started := c.now()
	outcome, err := c.swap.Run(ctx)
	if err != nil {
		c.record(ctx, runID, trigger, domain.PhaseSwap, started, domain.PhaseStatusError, err, nil)
		return nil, err
	}

	if outcome.Skipped {
		c.logger.Printf("Swap skipped: %s", outcome.SkipReason)
		c.record(ctx, runID, trigger, domain.PhaseSwap, started, domain.PhaseStatusSkipped, nil, map[string]any{
			"game_balance": outcome.GameBalance,
			"skip_reason":  outcome.SkipReason,
		})
		return outcome, nil
	}

	r := outcome.Result
	observability.RecordSwap(r.AmountSpent, r.AmountReceived)
	c.markSuccess(func(s *Status, t *time.Time) { s.LastSwap = t }, "swap")
	c.record(ctx, runID, trigger, domain.PhaseSwap, started, domain.PhaseStatusSuccess, nil, map[string]any{
		"amount_spent":    r.AmountSpent,
		"amount_received": r.AmountReceived,
		"transaction_ref": r.TransactionRef,
		"route":           r.RouteDescription,
	})
	return outcome, nil
}

func (c *Coordinator) doSplit(ctx context.Context, runID, trigger string, total uint64) (*domain.SplitResult, error) {
	started := c.now()
	result, err := c.split.Split(ctx, total)
	if err != nil {
		c.record(ctx, runID, trigger, domain.PhaseSplit, started, domain.PhaseStatusError, err, nil)
		return nil, err
	}

	observability.RecordSplit(result.TreasuryAmount, result.ReserveAmount, result.RetainedAmount)
	details := map[string]any{
		"treasury_amount": result.TreasuryAmount,
		"reserve_amount":  result.ReserveAmount,
		"retained_amount": result.RetainedAmount,
		"treasury_ref":    result.TreasuryTransactionRef,
	}
	if result.ReserveConversionRef != nil {
		details["reserve_ref"] = *result.ReserveConversionRef
	}
	c.record(ctx, runID, trigger, domain.PhaseSplit, started, domain.PhaseStatusSuccess, nil, details)
	return result, nil
}

func (c *Coordinator) doReplenish(ctx context.Context, runID, trigger string) (*domain.ReplenishmentResult, error) {
	started := c.now()
	result, err := c.replenish.Run(ctx)
	if err != nil {
		c.record(ctx, runID, trigger, domain.PhaseReplenish, started, domain.PhaseStatusError, err, nil)
		return nil, err
	}

	observability.RecordReplenishment(result.PacksPurchased, result.AssetsDeposited)
	if result.PacksPurchased > 0 {
		c.markSuccess(func(s *Status, t *time.Time) { s.LastGachaPurchase = t }, "gacha_purchase")
	}
	if result.AssetsDeposited > 0 {
		c.markSuccess(func(s *Status, t *time.Time) { s.LastAssetDeposit = t }, "asset_deposit")
	}

	status := domain.PhaseStatusSuccess
	if result.Skipped {
		status = domain.PhaseStatusSkipped
	}
	c.record(ctx, runID, trigger, domain.PhaseReplenish, started, status, nil, map[string]any{
		"packs_purchased":  result.PacksPurchased,
		"assets_deposited": result.AssetsDeposited,
		"skip_reason":      result.SkipReason,
	})
	return result, nil
}

func (c *Coordinator) doSpawn(ctx context.Context, runID, trigger string, opts spawn.RunOptions) (*domain.SpawnManagerResult, error) {
	started := c.now()
	result, err := c.spawn.Run(ctx, opts)
	if err != nil {
		c.record(ctx, runID, trigger, domain.PhaseSpawn, started, domain.PhaseStatusError, err, nil)
		return nil, err
	}

	observability.RecordSpawnCheck(result.SpawnedCount, result.RepositionedCount, result.CentralCountAfter, result.TotalActiveCount)
	c.markSuccess(func(s *Status, t *time.Time) { s.LastSpawnCheck = t }, "spawn_check")
	c.record(ctx, runID, trigger, domain.PhaseSpawn, started, domain.PhaseStatusSuccess, nil, map[string]any{
		"central_before": result.CentralCountBefore,
		"central_after":  result.CentralCountAfter,
		"spawned":        result.SpawnedCount,
		"repositioned":   result.RepositionedCount,
		"total_active":   result.TotalActiveCount,
	})
	c.recordSpawnCheck(ctx, started, result)
	return result, nil
}

func (c *Coordinator) markSuccess(set func(*Status, *time.Time), activity string) {
	t := c.now()
	c.mu.Lock()
	set(&c.status, &t)
	c.mu.Unlock()
	observability.RecordLastSuccess(activity, t.Unix())
}

// record writes a phase record to every configured sink.
func (c *Coordinator) record(ctx context.Context, runID, trigger, phase string, started time.Time, status string, err error, details map[string]any) {
	finished := c.now()
	observability.RecordPhaseRun(phase, status, finished.Sub(started).Seconds())

	r := &domain.PhaseRecord{
		RunID:      runID,
		Trigger:    trigger,
		Phase:      phase,
		Status:     status,
		StartedAt:  started.UnixMilli(),
		FinishedAt: finished.UnixMilli(),
		Details:    details,
	}
	if err != nil {
		r.Error = err.Error()
		c.logger.Printf("Phase %s failed: %v", phase, err)
	}

	if c.runs != nil {
		if err := c.runs.Insert(ctx, r); err != nil {
			c.logger.Printf("WARN: store phase record %s/%s: %v", runID, phase, err)
		}
	}
	if c.journal != nil {
		if err := c.journal.WritePhase(r); err != nil {
			c.logger.Printf("WARN: journal phase record %s/%s: %v", runID, phase, err)
		}
	}
}

func (c *Coordinator) recordSpawnCheck(ctx context.Context, at time.Time, result *domain.SpawnManagerResult) {
	ts := at.UnixMilli()
	if c.spawnChecks != nil {
		p := &domain.SpawnCheckPoint{
			TimestampMs:   ts,
			CentralBefore: result.CentralCountBefore,
			CentralAfter:  result.CentralCountAfter,
			Spawned:       result.SpawnedCount,
			Repositioned:  result.RepositionedCount,
			TotalActive:   result.TotalActiveCount,
		}
		if err := c.spawnChecks.Insert(ctx, p); err != nil {
			c.logger.Printf("WARN: store spawn check: %v", err)
		}
	}
	if c.journal != nil {
		if err := c.journal.WriteSpawnCheck(ts, result); err != nil {
			c.logger.Printf("WARN: journal spawn check: %v", err)
		}
	}
}
