// Package progress tracks pipeline jobs and fans stage transitions out to
// live subscribers.
package progress

import "time"

// Stage is a named step in a pipeline job's lifecycle. The order is not
// strictly linear: scraping may divert to scrape_fallback, and error is
// reachable from any non-terminal stage.
type Stage string

const (
	StageQueued         Stage = "queued"
	StageScraping       Stage = "scraping"
	StageScrapeFallback Stage = "scrape_fallback"
	StageAnalyzing      Stage = "analyzing"
	StageGenerating     Stage = "generating"
	StageBuilding       Stage = "building"
	StageDeploying      Stage = "deploying"
	StageComplete       Stage = "complete"
	StageError          Stage = "error"

	// StageWaiting is synthetic: returned to a subscriber that connects
	// before the job is known. It is never set by a tracker.
	StageWaiting Stage = "waiting"
)

// Terminal reports whether the stage ends the job. Terminal snapshots are
// immutable.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// Failure describes a failed run, captured with the failing step name.
// Stack traces are never part of this struct.
type Failure struct {
	Message string `json:"message"`
	Step    string `json:"step,omitempty"`
}

// Snapshot is the authoritative state of one job at a point in time.
type Snapshot struct {
	JobID        string
	Stage        Stage
	Progress     int
	Label        string
	Err          *Failure
	Result       map[string]any
	CreatedAt    time.Time
	LastUpdateAt time.Time
}
