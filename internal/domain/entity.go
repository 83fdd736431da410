package domain

// Map bounds shared by the spawn table (inclusive coordinates).
const (
	MapMinCoordinate = 0
	MapMaxCoordinate = 999
)

// EntitySlot is one entry of the on-chain spawn table.
type EntitySlot struct {
	Index        int
	ID           uint64
	X            int
	Y            int
	IsActive     bool
	AttemptCount int
}

// SpawnManagerResult summarizes a spawn-maintenance run.
type SpawnManagerResult struct {
	CentralCountBefore int      `json:"central_count_before"`
	CentralCountAfter  int      `json:"central_count_after"`
	SpawnedCount       int      `json:"spawned_count"`
	RepositionedCount  int      `json:"repositioned_count"`
	TotalActiveCount   int      `json:"total_active_count"`
	ActionLog          []string `json:"action_log"`
}

// SpawnCheckPoint is a time-series sample of spawn maintenance, stored for analytics.
type SpawnCheckPoint struct {
	TimestampMs   int64
	CentralBefore int
	CentralAfter  int
	Spawned       int
	Repositioned  int
	TotalActive   int
}
