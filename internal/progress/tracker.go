package progress

// Tracker is the write handle the pipeline holds for one job. All methods
// publish the updated snapshot to current subscribers in issuance order.
type Tracker struct {
	bus   *Bus
	jobID string
}

// JobID returns the id of the tracked job.
func (t *Tracker) JobID() string {
	return t.jobID
}

// Queued re-labels the initial queued stage, e.g. with a queue position.
func (t *Tracker) Queued(label string) {
	t.bus.update(t.jobID, func(s *Snapshot) {
		s.Stage = StageQueued
		s.Progress = 0
		s.Label = label
	})
}

// Stage records a transition into the named stage.
func (t *Tracker) Stage(stage Stage, label string, progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	t.bus.update(t.jobID, func(s *Snapshot) {
		s.Stage = stage
		s.Label = label
		s.Progress = progress
	})
}

// Complete marks the job finished. The job becomes immutable.
func (t *Tracker) Complete(result map[string]any) {
	t.bus.update(t.jobID, func(s *Snapshot) {
		s.Stage = StageComplete
		s.Progress = 100
		s.Label = "Done"
		s.Result = result
	})
}

// Error marks the job failed, recording the failing step. The job becomes
// immutable.
func (t *Tracker) Error(err error, step string) {
	msg := "pipeline failed"
	if err != nil {
		msg = err.Error()
	}
	t.bus.update(t.jobID, func(s *Snapshot) {
		s.Stage = StageError
		s.Err = &Failure{Message: msg, Step: step}
	})
}
