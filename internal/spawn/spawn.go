// Package spawn keeps a minimum number of entities inside the central map zone.
package spawn

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"sort"

	"pokeball-ops/internal/domain"
)

// Chain is the subset of the chain client used for spawn maintenance.
type Chain interface {
	EntitySlots(ctx context.Context) ([]domain.EntitySlot, error)
	MaxActiveEntities(ctx context.Context) (int, error)
	ForceSpawnEntity(ctx context.Context, slot, x, y int) (string, error)
	RepositionEntity(ctx context.Context, slot, x, y int) (string, error)
}

// RandSource picks positions. *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Tuning holds gameplay parameters loaded from the tuning file.
type Tuning struct {
	Zone                 Zone `yaml:"zone"`
	MinimumCentralSpawns int  `yaml:"minimum_central_spawns"`
	EdgeMargin           int  `yaml:"edge_margin"`
	FillCap              int  `yaml:"fill_cap"`
}

// DefaultTuning matches the live map layout.
var DefaultTuning = Tuning{
	Zone:                 Zone{CenterX: 500, CenterY: 500, Radius: 200},
	MinimumCentralSpawns: 8,
	EdgeMargin:           50,
	FillCap:              20,
}

// RunOptions selects optional steps of a run.
type RunOptions struct {
	// FillEmpty fills leftover empty slots with map-wide spawns, up to FillCap.
	FillEmpty bool
}

// Options configures Manager.
type Options struct {
	Chain  Chain
	Tuning Tuning
	Rand   RandSource // nil uses math/rand/v2
	Logger *log.Logger
}

// Manager runs spawn maintenance.
type Manager struct {
	chain  Chain
	tuning Tuning
	rng    RandSource
	logger *log.Logger
}

// NewManager creates a Manager.
func NewManager(opts Options) *Manager {
	m := &Manager{
		chain:  opts.Chain,
		tuning: opts.Tuning,
		rng:    opts.Rand,
		logger: opts.Logger,
	}
	if m.rng == nil {
		m.rng = globalRand{}
	}
	if m.logger == nil {
		m.logger = log.New(io.Discard, "", 0)
	}
	return m
}

type farSlot struct {
	index    int
	distance int
}

// Run reads the spawn table and tops up the central zone: first by spawning
// into empty slots, then by pulling the farthest outside entities in.
// Per-action failures are logged and skipped; only read failures are returned.
func (m *Manager) Run(ctx context.Context, opts RunOptions) (*domain.SpawnManagerResult, error) {
	slots, err := m.chain.EntitySlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("read entity slots: %w", err)
	}
	maxActive, err := m.chain.MaxActiveEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("read max active entities: %w", err)
	}

	zone := m.tuning.Zone
	var (
		empty   []int
		far     []farSlot
		central int
		active  int
	)
	for i, s := range slots {
		if !s.IsActive {
			empty = append(empty, i)
			continue
		}
		active++
		if zone.Contains(s.X, s.Y) {
			central++
		} else {
			far = append(far, farSlot{index: i, distance: zone.Distance(s.X, s.Y)})
		}
	}
	sort.SliceStable(far, func(a, b int) bool {
		return far[a].distance > far[b].distance
	})

	result := &domain.SpawnManagerResult{
		CentralCountBefore: central,
		ActionLog:          []string{},
	}
	m.logger.Printf("Spawn check: %d central (min %d), %d active, %d empty, %d outside",
		central, m.tuning.MinimumCentralSpawns, active, len(empty), len(far))

	nextEmpty := 0
	if deficit := m.tuning.MinimumCentralSpawns - central; deficit > 0 {
		spawnable := max(min(deficit, len(empty), maxActive-active), 0)

		for ; nextEmpty < spawnable; nextEmpty++ {
			if ctx.Err() != nil {
				break
			}
			slot := empty[nextEmpty]
			x, y := m.centralPosition()
			sig, err := m.chain.ForceSpawnEntity(ctx, slot, x, y)
			if err != nil {
				m.logger.Printf("Spawn into slot %d failed: %v", slot, err)
				continue
			}
			slots[slot] = domain.EntitySlot{Index: slot, X: x, Y: y, IsActive: true}
			active++
			deficit--
			result.SpawnedCount++
			result.ActionLog = append(result.ActionLog, fmt.Sprintf("spawned slot %d at (%d,%d) %s", slot, x, y, sig))
		}

		moves := min(deficit, len(far))
		for i := 0; i < moves; i++ {
			if ctx.Err() != nil {
				break
			}
			slot := far[i].index
			fromX, fromY := slots[slot].X, slots[slot].Y
			x, y := m.centralPosition()
			sig, err := m.chain.RepositionEntity(ctx, slot, x, y)
			if err != nil {
				m.logger.Printf("Reposition slot %d failed: %v", slot, err)
				continue
			}
			slots[slot].X, slots[slot].Y, slots[slot].AttemptCount = x, y, 0
			result.RepositionedCount++
			result.ActionLog = append(result.ActionLog, fmt.Sprintf("repositioned slot %d (%d,%d)->(%d,%d) %s", slot, fromX, fromY, x, y, sig))
		}
	}

	if opts.FillEmpty {
		fill := max(min(len(empty)-nextEmpty, m.tuning.FillCap, maxActive-active), 0)
		for _, slot := range empty[nextEmpty : nextEmpty+fill] {
			if ctx.Err() != nil {
				break
			}
			x, y := m.mapPosition()
			sig, err := m.chain.ForceSpawnEntity(ctx, slot, x, y)
			if err != nil {
				m.logger.Printf("Fill spawn into slot %d failed: %v", slot, err)
				continue
			}
			slots[slot] = domain.EntitySlot{Index: slot, X: x, Y: y, IsActive: true}
			active++
			result.SpawnedCount++
			result.ActionLog = append(result.ActionLog, fmt.Sprintf("filled slot %d at (%d,%d) %s", slot, x, y, sig))
		}
	}

	for _, s := range slots {
		if s.IsActive && zone.Contains(s.X, s.Y) {
			result.CentralCountAfter++
		}
	}
	result.TotalActiveCount = active

	for _, line := range result.ActionLog {
		m.logger.Print(line)
	}
	return result, nil
}

// centralPosition picks a uniform point in the zone, kept off the map edges.
func (m *Manager) centralPosition() (int, int) {
	z := m.tuning.Zone
	span := 2*z.Radius + 1
	x := z.CenterX - z.Radius + m.rng.IntN(span)
	y := z.CenterY - z.Radius + m.rng.IntN(span)
	return clampToMap(x, m.tuning.EdgeMargin), clampToMap(y, m.tuning.EdgeMargin)
}

// mapPosition picks a uniform point anywhere on the map, kept off the edges.
func (m *Manager) mapPosition() (int, int) {
	span := domain.MapMaxCoordinate - domain.MapMinCoordinate + 1
	x := domain.MapMinCoordinate + m.rng.IntN(span)
	y := domain.MapMinCoordinate + m.rng.IntN(span)
	return clampToMap(x, m.tuning.EdgeMargin), clampToMap(y, m.tuning.EdgeMargin)
}
