package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Stage is one node of the pipeline graph.
type Stage struct {
	Name  string
	After []string // stages that must finish first
	Run   func(ctx context.Context) error
}

// Executor runs stages one at a time in dependency order, stopping at the
// first failure.
type Executor struct {
	order []Stage
}

// NewExecutor orders stages topologically. Ties keep declaration order.
// Duplicate names, unknown dependencies and cycles are errors.
func NewExecutor(stages ...Stage) (*Executor, error) {
	index := make(map[string]int, len(stages))
	for i, s := range stages {
		if s.Name == "" {
			return nil, errors.New("stage with empty name")
		}
		if _, dup := index[s.Name]; dup {
			return nil, fmt.Errorf("duplicate stage %q", s.Name)
		}
		index[s.Name] = i
	}

	indegree := make([]int, len(stages))
	dependents := make([][]int, len(stages))
	for i, s := range stages {
		for _, dep := range s.After {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("stage %q depends on unknown stage %q", s.Name, dep)
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	order := make([]Stage, 0, len(stages))
	done := make([]bool, len(stages))
	for len(order) < len(stages) {
		progressed := false
		for i := range stages {
			if done[i] || indegree[i] > 0 {
				continue
			}
			done[i] = true
			progressed = true
			order = append(order, stages[i])
			for _, d := range dependents[i] {
				indegree[d]--
			}
			break
		}
		if !progressed {
			return nil, errors.New("stage graph has a cycle")
		}
	}

	return &Executor{order: order}, nil
}

// Order returns the stage names in execution order.
func (e *Executor) Order() []string {
	names := make([]string, len(e.order))
	for i, s := range e.order {
		names[i] = s.Name
	}
	return names
}

// Execute runs every stage against t. A StageError becomes the job error; any
// other error is reported verbatim. If all stages pass and none finished the
// job, it is completed.
func (e *Executor) Execute(ctx context.Context, t *Tracker) error {
	jobID := t.State().JobID

	for _, s := range e.order {
		if t.State().Status.Terminal() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			t.Fail("Processing cancelled")
			return err
		}

		start := time.Now()
		slog.Info("stage started", "job_id", jobID, "stage", s.Name)

		if err := s.Run(ctx); err != nil {
			msg := err.Error()
			var se *StageError
			switch {
			case ctx.Err() != nil:
				msg = "Processing cancelled"
			case errors.As(err, &se):
				msg = se.Message
			}
			t.Fail(msg)
			slog.Error("stage failed",
				"job_id", jobID,
				"stage", s.Name,
				"elapsed_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
			return err
		}

		slog.Info("stage finished",
			"job_id", jobID,
			"stage", s.Name,
			"progress", t.State().Progress,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}

	t.Complete("Processing complete!")
	return nil
}
