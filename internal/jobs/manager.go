// Package jobs owns the lifecycle of pipeline runs: submission, polling,
// results and deletion.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/studioshots/internal/cache"
	"github.com/kiranshivaraju/studioshots/pkg/models"
)

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrJobNotCompleted = errors.New("job not completed")
	ErrJobExists       = errors.New("job already exists")
	ErrInvalidURL      = errors.New("invalid video url")
)

// Runner drives one job to a terminal state, publishing snapshots as it goes.
type Runner interface {
	Run(ctx context.Context, state *models.JobState, publish func(models.JobState)) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, state *models.JobState, publish func(models.JobState)) error

func (f RunnerFunc) Run(ctx context.Context, state *models.JobState, publish func(models.JobState)) error {
	return f(ctx, state, publish)
}

// Storage removes a job's files.
type Storage interface {
	Remove(jobID string) error
}

const (
	defaultStatusTTL = 24 * time.Hour
	mirrorTimeout    = 2 * time.Second
)

type entry struct {
	snapshot models.JobState
	cancel   context.CancelFunc
	done     chan struct{}
	// deleting hides the job from readers while Delete is in flight. The
	// entry stays in the map until its files are gone so a failed Delete
	// can be retried.
	deleting bool
}

// Manager runs each job in its own goroutine and keeps the latest snapshot
// in memory. Snapshots are mirrored to the cache when one is configured.
type Manager struct {
	runner    Runner
	storage   Storage
	cache     cache.Cache
	statusTTL time.Duration

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]*entry
	wg   sync.WaitGroup
}

// NewManager creates a Manager. A nil cache disables mirroring.
func NewManager(runner Runner, storage Storage, c cache.Cache) *Manager {
	if c == nil {
		c = cache.Nop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		runner:     runner,
		storage:    storage,
		cache:      c,
		statusTTL:  defaultStatusTTL,
		baseCtx:    ctx,
		cancelBase: cancel,
		jobs:       make(map[string]*entry),
	}
}

// Submit validates videoURL, assigns a job id and starts the run.
func (m *Manager) Submit(ctx context.Context, videoURL string) (models.JobState, error) {
	if err := validateURL(videoURL); err != nil {
		return models.JobState{}, err
	}
	return m.SubmitWithID(ctx, uuid.NewString(), videoURL)
}

// SubmitWithID starts a run under a caller-chosen id.
func (m *Manager) SubmitWithID(ctx context.Context, jobID, videoURL string) (models.JobState, error) {
	state := models.NewJobState(jobID, videoURL)
	runCtx, cancel := context.WithCancel(m.baseCtx)
	e := &entry{snapshot: state.Clone(), cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if err := m.baseCtx.Err(); err != nil {
		m.mu.Unlock()
		cancel()
		return models.JobState{}, fmt.Errorf("manager shut down: %w", err)
	}
	if _, exists := m.jobs[jobID]; exists {
		m.mu.Unlock()
		cancel()
		return models.JobState{}, fmt.Errorf("%w: %s", ErrJobExists, jobID)
	}
	m.jobs[jobID] = e
	m.wg.Add(1)
	m.mu.Unlock()

	initial := state.Clone()
	m.mirror(ctx, initial)
	slog.Info("job submitted", "job_id", jobID, "video_url", videoURL)

	go m.run(runCtx, e, state)

	return initial, nil
}

// run executes the job. It recovers from panics and always leaves the job
// terminal.
func (m *Manager) run(ctx context.Context, e *entry, state *models.JobState) {
	start := time.Now()
	defer m.wg.Done()
	defer close(e.done)
	defer e.cancel()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in job run", "error", r, "job_id", state.JobID, "stack", string(debug.Stack()))
			finish(state, fmt.Sprintf("Internal error: %v", r))
			m.publish(state.Clone())
		}
	}()

	err := m.runner.Run(ctx, state, m.publish)
	if !state.Status.Terminal() {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		finish(state, msg)
		m.publish(state.Clone())
	}

	slog.Info("job finished",
		"job_id", state.JobID,
		"status", state.Status,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// finish forces a terminal status on a state the runner left open. An empty
// errMsg completes the job.
func finish(state *models.JobState, errMsg string) {
	if state.Status.Terminal() {
		return
	}
	state.UpdatedAt = time.Now().UTC()
	if errMsg != "" {
		msg := errMsg
		state.Status = models.JobStatusError
		state.Error = &msg
		return
	}
	state.Status = models.JobStatusCompleted
	state.Progress = 100
}

// publish stores a snapshot unless the job has been deleted. Jobs being
// deleted are not mirrored.
func (m *Manager) publish(s models.JobState) {
	m.mu.Lock()
	e, ok := m.jobs[s.JobID]
	if ok {
		e.snapshot = s
		ok = !e.deleting
	}
	m.mu.Unlock()

	if ok {
		m.mirror(context.Background(), s)
	}
}

func (m *Manager) mirror(ctx context.Context, s models.JobState) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
	defer cancel()
	if err := m.cache.SetJobStatus(ctx, s.StatusView(), m.statusTTL); err != nil {
		slog.Warn("job status mirror failed", "job_id", s.JobID, "error", err)
	}
}

// Job returns the latest snapshot of a job.
func (m *Manager) Job(jobID string) (models.JobState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.jobs[jobID]
	if !ok || e.deleting {
		return models.JobState{}, ErrJobNotFound
	}
	return e.snapshot.Clone(), nil
}

func (m *Manager) isDeleting(jobID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.jobs[jobID]
	return ok && e.deleting
}

// Status returns the polling view of a job. A job unknown to this process
// is looked up in the cache mirror, where only terminal entries count.
func (m *Manager) Status(ctx context.Context, jobID string) (models.JobStatusView, error) {
	if s, err := m.Job(jobID); err == nil {
		return s.StatusView(), nil
	}
	if m.isDeleting(jobID) {
		return models.JobStatusView{}, ErrJobNotFound
	}

	view, found, err := m.cache.GetJobStatus(ctx, jobID)
	if err != nil {
		slog.Warn("job status mirror lookup failed", "job_id", jobID, "error", err)
		return models.JobStatusView{}, ErrJobNotFound
	}
	if !found || !view.Status.Terminal() {
		return models.JobStatusView{}, ErrJobNotFound
	}
	return view, nil
}

// Results returns the outputs of a completed job.
func (m *Manager) Results(jobID string) (models.JobResults, error) {
	s, err := m.Job(jobID)
	if err != nil {
		return models.JobResults{}, err
	}
	if s.Status != models.JobStatusCompleted {
		return models.JobResults{}, ErrJobNotCompleted
	}
	return s.Results(), nil
}

// Delete cancels a running job, waits for it to stop, then removes its
// files and record. An unknown id touches nothing. If waiting or removal
// fails the job stays hidden but registered, and calling Delete again
// resumes the cleanup.
func (m *Manager) Delete(ctx context.Context, jobID string) error {
	m.mu.Lock()
	e, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return ErrJobNotFound
	}
	e.deleting = true
	m.mu.Unlock()

	e.cancel()
	select {
	case <-e.done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for job %s to stop: %w", jobID, ctx.Err())
	}

	if err := m.storage.Remove(jobID); err != nil {
		return fmt.Errorf("removing job files: %w", err)
	}

	m.mu.Lock()
	if m.jobs[jobID] == e {
		delete(m.jobs, jobID)
	}
	m.mu.Unlock()

	if err := m.cache.DeleteJobStatus(ctx, jobID); err != nil {
		slog.Warn("job status mirror delete failed", "job_id", jobID, "error", err)
	}

	slog.Info("job deleted", "job_id", jobID)
	return nil
}

// Shutdown cancels every running job and waits for them to stop.
func (m *Manager) Shutdown(ctx context.Context) error {
	// under the lock so no Submit can start a run after Wait begins
	m.mu.Lock()
	m.cancelBase()
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
