package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokeball-ops/internal/domain"
	"pokeball-ops/internal/revenue"
	"pokeball-ops/internal/spawn"
	"pokeball-ops/internal/storage/memory"
)

// callLog records phase invocations in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeSwap struct {
	log     *callLog
	outcome *revenue.SwapOutcome
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeSwap) Run(ctx context.Context) (*revenue.SwapOutcome, error) {
	f.log.add("swap")
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	return f.outcome, f.err
}

type fakeSplit struct {
	log   *callLog
	total uint64
	err   error
}

func (f *fakeSplit) Split(ctx context.Context, total uint64) (*domain.SplitResult, error) {
	f.log.add("split")
	f.total = total
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SplitResult{TreasuryAmount: total * 3 / 100, RetainedAmount: total - total*3/100}, nil
}

type fakeReplenish struct {
	log    *callLog
	result *domain.ReplenishmentResult
	err    error
}

func (f *fakeReplenish) Run(ctx context.Context) (*domain.ReplenishmentResult, error) {
	f.log.add("replenish")
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &domain.ReplenishmentResult{}, nil
	}
	return f.result, nil
}

type fakeSpawn struct {
	log   *callLog
	opts  spawn.RunOptions
	err   error
	panic bool
}

func (f *fakeSpawn) Run(ctx context.Context, opts spawn.RunOptions) (*domain.SpawnManagerResult, error) {
	f.log.add("spawn")
	f.opts = opts
	if f.panic {
		panic("slot decode out of range")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SpawnManagerResult{CentralCountBefore: 8, CentralCountAfter: 8, TotalActiveCount: 12, ActionLog: []string{}}, nil
}

type fixture struct {
	log       *callLog
	swap      *fakeSwap
	split     *fakeSplit
	replenish *fakeReplenish
	spawn     *fakeSpawn
	runs      *memory.PhaseRecordStore
	checks    *memory.SpawnCheckStore
}

func newFixture() *fixture {
	l := &callLog{}
	return &fixture{
		log: l,
		swap: &fakeSwap{log: l, outcome: &revenue.SwapOutcome{
			GameBalance: 200_000_000,
			Result:      &domain.RevenueSwapResult{AmountSpent: 199_999_999, AmountReceived: 10_000_000, TransactionRef: "sig"},
		}},
		split:     &fakeSplit{log: l},
		replenish: &fakeReplenish{log: l},
		spawn:     &fakeSpawn{log: l},
		runs:      memory.NewPhaseRecordStore(),
		checks:    memory.NewSpawnCheckStore(),
	}
}

func (f *fixture) coordinator(skipSwap bool) *Coordinator {
	return New(Options{
		Swap:        f.swap,
		Split:       f.split,
		Replenish:   f.replenish,
		Spawn:       f.spawn,
		SkipSwap:    skipSwap,
		Runs:        f.runs,
		SpawnChecks: f.checks,
	})
}

func TestTick_RunsPhasesInOrder(t *testing.T) {
	f := newFixture()
	c := f.coordinator(false)

	require.NoError(t, c.Tick(context.Background()))

	assert.Equal(t, []string{"swap", "split", "replenish", "spawn"}, f.log.get())
	assert.Equal(t, uint64(10_000_000), f.split.total)
	assert.False(t, f.spawn.opts.FillEmpty, "ticks never fill")

	records, err := f.runs.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 4)
	for _, r := range records {
		assert.Equal(t, records[0].RunID, r.RunID)
		assert.Equal(t, domain.TriggerTick, r.Trigger)
	}

	points, err := f.checks.GetByTimeRange(context.Background(), 0, time.Now().Add(time.Hour).UnixMilli())
	require.NoError(t, err)
	assert.Len(t, points, 1)

	st := c.Status()
	assert.False(t, st.Processing)
	assert.NotNil(t, st.LastSwap)
	assert.NotNil(t, st.LastSpawnCheck)
	assert.Nil(t, st.LastGachaPurchase)
	assert.Nil(t, st.LastAssetDeposit)
}

func TestTick_SwapSkipStillReplenishes(t *testing.T) {
	f := newFixture()
	f.swap.outcome = &revenue.SwapOutcome{Skipped: true, SkipReason: revenue.SkipBelowThreshold}
	c := f.coordinator(false)

	require.NoError(t, c.Tick(context.Background()))

	assert.Equal(t, []string{"swap", "replenish", "spawn"}, f.log.get())
	assert.Nil(t, c.Status().LastSwap)
}

func TestTick_SwapErrorAbortsRevenueButSpawns(t *testing.T) {
	f := newFixture()
	f.swap.outcome = nil
	f.swap.err = errors.New("withdraw revenue: simulation failed")
	c := f.coordinator(false)

	require.NoError(t, c.Tick(context.Background()))

	assert.Equal(t, []string{"swap", "spawn"}, f.log.get())

	records, err := f.runs.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	var swapRecord *domain.PhaseRecord
	for _, r := range records {
		if r.Phase == domain.PhaseSwap {
			swapRecord = r
		}
	}
	require.NotNil(t, swapRecord)
	assert.Equal(t, domain.PhaseStatusError, swapRecord.Status)
	assert.Contains(t, swapRecord.Error, "simulation failed")
	assert.False(t, c.Status().Processing)
}

func TestTick_SplitErrorSkipsReplenish(t *testing.T) {
	f := newFixture()
	f.split.err = errors.New("treasury transfer: insufficient funds")
	c := f.coordinator(false)

	require.NoError(t, c.Tick(context.Background()))
	assert.Equal(t, []string{"swap", "split", "spawn"}, f.log.get())
}

func TestTick_SpawnPanicIsContained(t *testing.T) {
	f := newFixture()
	f.spawn.panic = true
	c := f.coordinator(false)

	require.NotPanics(t, func() {
		require.NoError(t, c.Tick(context.Background()))
	})
	assert.False(t, c.Status().Processing)
	assert.Nil(t, c.Status().LastSpawnCheck)

	// guard released: the next tick runs
	f.spawn.panic = false
	require.NoError(t, c.Tick(context.Background()))
	assert.NotNil(t, c.Status().LastSpawnCheck)
}

func TestTick_SpawnErrorIsolated(t *testing.T) {
	f := newFixture()
	f.spawn.err = errors.New("read entity slots: account not found")
	c := f.coordinator(false)

	require.NoError(t, c.Tick(context.Background()))
	assert.NotNil(t, c.Status().LastSwap)
	assert.Nil(t, c.Status().LastSpawnCheck)
}

func TestTick_SkipSwap(t *testing.T) {
	f := newFixture()
	c := f.coordinator(true)

	require.NoError(t, c.Tick(context.Background()))
	assert.Equal(t, []string{"replenish", "spawn"}, f.log.get())
}

func TestTick_ReplenishTimestamps(t *testing.T) {
	f := newFixture()
	f.replenish.result = &domain.ReplenishmentResult{PacksPurchased: 0, AssetsDeposited: 2}
	c := f.coordinator(true)

	require.NoError(t, c.Tick(context.Background()))

	st := c.Status()
	assert.Nil(t, st.LastGachaPurchase)
	assert.NotNil(t, st.LastAssetDeposit)
}

func TestTick_SingleFlight(t *testing.T) {
	f := newFixture()
	f.swap.block = make(chan struct{})
	f.swap.entered = make(chan struct{})
	c := f.coordinator(false)

	done := make(chan error, 1)
	go func() {
		done <- c.Tick(context.Background())
	}()
	<-f.swap.entered

	assert.True(t, c.Status().Processing)
	assert.ErrorIs(t, c.Tick(context.Background()), ErrBusy)

	_, err := c.RunSpawn(context.Background(), spawn.RunOptions{})
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.RunReplenish(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.RunSwap(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	// rejected calls touched nothing
	assert.Equal(t, []string{"swap"}, f.log.get())

	close(f.swap.block)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"swap", "split", "replenish", "spawn"}, f.log.get())
	assert.False(t, c.Status().Processing)
}

func TestRunSwap_Manual(t *testing.T) {
	f := newFixture()
	c := f.coordinator(false)

	result, err := c.RunSwap(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Split)
	assert.Equal(t, uint64(300_000), result.Split.TreasuryAmount)
	assert.Equal(t, []string{"swap", "split"}, f.log.get())

	records, err := f.runs.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	for _, r := range records {
		assert.Equal(t, domain.TriggerManual, r.Trigger)
	}
}

func TestRunSwap_ManualSkip(t *testing.T) {
	f := newFixture()
	f.swap.outcome = &revenue.SwapOutcome{Skipped: true, SkipReason: revenue.SkipBelowThreshold}
	c := f.coordinator(false)

	result, err := c.RunSwap(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Swap.Skipped)
	assert.Nil(t, result.Split)
}

func TestRunSpawn_ManualReturnsError(t *testing.T) {
	f := newFixture()
	f.spawn.err = errors.New("rpc down")
	c := f.coordinator(false)

	_, err := c.RunSpawn(context.Background(), spawn.RunOptions{FillEmpty: true})
	require.Error(t, err)
	assert.True(t, f.spawn.opts.FillEmpty)
	assert.False(t, c.Status().Processing)
}
