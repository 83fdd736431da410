package domain

// Phase names used in run records and metrics.
const (
	PhaseSwap      = "swap"
	PhaseSplit     = "split"
	PhaseReplenish = "replenish"
	PhaseSpawn     = "spawn"
)

// Phase record statuses.
const (
	PhaseStatusSuccess = "success"
	PhaseStatusSkipped = "skipped"
	PhaseStatusError   = "error"
)

// Run triggers.
const (
	TriggerTick   = "tick"
	TriggerManual = "manual"
)

// PhaseRecord is an audit entry for one executed pipeline phase.
type PhaseRecord struct {
	RunID      string         `json:"run_id"`
	Trigger    string         `json:"trigger"`
	Phase      string         `json:"phase"`
	Status     string         `json:"status"`
	StartedAt  int64          `json:"started_at"`  // Unix ms
	FinishedAt int64          `json:"finished_at"` // Unix ms
	Error      string         `json:"error,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}
