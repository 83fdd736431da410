package spawn

import "pokeball-ops/internal/domain"

// Zone is an axis-aligned square of half-width Radius centred on (CenterX, CenterY).
type Zone struct {
	CenterX int `yaml:"center_x"`
	CenterY int `yaml:"center_y"`
	Radius  int `yaml:"radius"`
}

// Contains reports whether (x, y) is inside the zone, edges included.
func (z Zone) Contains(x, y int) bool {
	return abs(x-z.CenterX) <= z.Radius && abs(y-z.CenterY) <= z.Radius
}

// Distance is the Chebyshev distance from the zone centre.
func (z Zone) Distance(x, y int) int {
	return max(abs(x-z.CenterX), abs(y-z.CenterY))
}

// clampToMap keeps v at least margin away from both map edges.
func clampToMap(v, margin int) int {
	lo := domain.MapMinCoordinate + margin
	hi := domain.MapMaxCoordinate - margin
	if lo > hi {
		lo, hi = hi, lo
	}
	return min(max(v, lo), hi)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
