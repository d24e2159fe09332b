package pipeline

import (
	"time"

	"github.com/kiranshivaraju/studioshots/pkg/models"
)

// Tracker owns a JobState for the duration of a run and publishes a snapshot
// after every change. Progress never decreases and nothing changes once the
// job is terminal.
type Tracker struct {
	state   *models.JobState
	publish func(models.JobState)
	now     func() time.Time
}

// NewTracker wraps state. publish may be nil.
func NewTracker(state *models.JobState, publish func(models.JobState)) *Tracker {
	if publish == nil {
		publish = func(models.JobState) {}
	}
	return &Tracker{state: state, publish: publish, now: time.Now}
}

// State gives stages read access to the record.
func (t *Tracker) State() *models.JobState { return t.state }

// Step reports a progress checkpoint.
func (t *Tracker) Step(progress int, step string) {
	t.Update(func(s *models.JobState) {
		s.Progress = progress
		s.CurrentStep = step
	})
}

// Update applies fn and publishes the result.
func (t *Tracker) Update(fn func(s *models.JobState)) {
	if t.state.Status.Terminal() {
		return
	}
	prev := t.state.Progress
	fn(t.state)
	t.state.Status = models.JobStatusProcessing
	t.state.Error = nil
	t.state.Progress = clampProgress(max(prev, t.state.Progress))
	t.touch()
}

// Fail moves the job to error with msg. It reports false if the job was
// already terminal.
func (t *Tracker) Fail(msg string) bool {
	if t.state.Status.Terminal() {
		return false
	}
	t.state.Status = models.JobStatusError
	t.state.Error = &msg
	t.touch()
	return true
}

// Complete moves the job to completed at 100%.
func (t *Tracker) Complete(step string) bool {
	if t.state.Status.Terminal() {
		return false
	}
	t.state.Status = models.JobStatusCompleted
	t.state.Progress = 100
	t.state.CurrentStep = step
	t.touch()
	return true
}

func (t *Tracker) touch() {
	t.state.UpdatedAt = t.now().UTC()
	t.publish(t.state.Clone())
}

func clampProgress(p int) int {
	return min(max(p, 0), 100)
}
