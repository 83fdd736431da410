package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pokeball-ops/internal/gacha"
	"pokeball-ops/internal/solana"
	"pokeball-ops/internal/spawn"
)

// Tuning holds gameplay and pacing parameters that change without a redeploy.
type Tuning struct {
	Spawn spawn.Tuning     `yaml:"spawn"`
	Gacha gacha.StepDelays `yaml:"gacha"`
}

// DefaultTuning returns the built-in values.
func DefaultTuning() Tuning {
	return Tuning{
		Spawn: spawn.DefaultTuning,
		Gacha: gacha.DefaultStepDelays,
	}
}

// LoadTuning reads path over DefaultTuning. Keys absent from the file keep
// their defaults. An empty path returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Validate checks that the spawn parameters fit the map and slot table.
func (t Tuning) Validate() error {
	var errs []error
	s := t.Spawn
	if s.Zone.Radius <= 0 {
		errs = append(errs, fmt.Errorf("spawn.zone.radius must be positive, got %d", s.Zone.Radius))
	}
	if s.Zone.CenterX < 0 || s.Zone.CenterX > solana.MaxCoordinate || s.Zone.CenterY < 0 || s.Zone.CenterY > solana.MaxCoordinate {
		errs = append(errs, fmt.Errorf("spawn.zone center (%d, %d) is off the map", s.Zone.CenterX, s.Zone.CenterY))
	}
	if s.MinimumCentralSpawns < 0 || s.MinimumCentralSpawns > solana.MaxEntitySlots {
		errs = append(errs, fmt.Errorf("spawn.minimum_central_spawns must be within [0, %d], got %d", solana.MaxEntitySlots, s.MinimumCentralSpawns))
	}
	if s.FillCap < 0 || s.FillCap > solana.MaxEntitySlots {
		errs = append(errs, fmt.Errorf("spawn.fill_cap must be within [0, %d], got %d", solana.MaxEntitySlots, s.FillCap))
	}
	if s.EdgeMargin < 0 || 2*s.EdgeMargin > solana.MaxCoordinate {
		errs = append(errs, fmt.Errorf("spawn.edge_margin %d leaves no room on the map", s.EdgeMargin))
	}
	if t.Gacha.AfterGenerate < 0 || t.Gacha.AfterSubmit < 0 {
		errs = append(errs, errors.New("gacha step delays must not be negative"))
	}
	return errors.Join(errs...)
}
