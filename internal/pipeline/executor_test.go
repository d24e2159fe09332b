package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kiranshivaraju/studioshots/internal/pipeline"
	"github.com/kiranshivaraju/studioshots/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

func TestNewExecutor_TopologicalOrder(t *testing.T) {
	e, err := pipeline.NewExecutor(
		pipeline.Stage{Name: "enhance", After: []string{"segment"}, Run: noop},
		pipeline.Stage{Name: "segment", After: []string{"identify"}, Run: noop},
		pipeline.Stage{Name: "download", Run: noop},
		pipeline.Stage{Name: "identify", After: []string{"extract"}, Run: noop},
		pipeline.Stage{Name: "extract", After: []string{"download"}, Run: noop},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"download", "extract", "identify", "segment", "enhance"}, e.Order())
}

func TestNewExecutor_TiesKeepDeclarationOrder(t *testing.T) {
	e, err := pipeline.NewExecutor(
		pipeline.Stage{Name: "b", Run: noop},
		pipeline.Stage{Name: "a", Run: noop},
		pipeline.Stage{Name: "c", After: []string{"a", "b"}, Run: noop},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, e.Order())
}

func TestNewExecutor_InvalidGraphs(t *testing.T) {
	cases := map[string][]pipeline.Stage{
		"unknown dependency": {{Name: "a", After: []string{"ghost"}, Run: noop}},
		"duplicate":          {{Name: "a", Run: noop}, {Name: "a", Run: noop}},
		"cycle": {
			{Name: "a", After: []string{"b"}, Run: noop},
			{Name: "b", After: []string{"a"}, Run: noop},
		},
		"empty name": {{Name: "", Run: noop}},
	}
	for name, stages := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := pipeline.NewExecutor(stages...)
			assert.Error(t, err)
		})
	}
}

func TestExecute_StopsAtFatalStage(t *testing.T) {
	var ran []string
	stage := func(name string, err error) pipeline.Stage {
		return pipeline.Stage{Name: name, Run: func(context.Context) error {
			ran = append(ran, name)
			return err
		}}
	}
	boom := &pipeline.StageError{Stage: "two", Message: "No products found in video"}

	s2 := stage("two", boom)
	s2.After = []string{"one"}
	s3 := stage("three", nil)
	s3.After = []string{"two"}
	e, err := pipeline.NewExecutor(stage("one", nil), s2, s3)
	require.NoError(t, err)

	state := models.NewJobState("j", "u")
	err = e.Execute(context.Background(), pipeline.NewTracker(state, nil))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"one", "two"}, ran)
	assert.Equal(t, models.JobStatusError, state.Status)
	assert.Equal(t, "No products found in video", *state.Error)
}

func TestExecute_UnexpectedErrorUsesItsText(t *testing.T) {
	e, err := pipeline.NewExecutor(pipeline.Stage{Name: "x", Run: func(context.Context) error {
		return errors.New("disk full")
	}})
	require.NoError(t, err)

	state := models.NewJobState("j", "u")
	_ = e.Execute(context.Background(), pipeline.NewTracker(state, nil))
	assert.Equal(t, "disk full", *state.Error)
}

func TestExecute_CompletesWhenNoStageDoes(t *testing.T) {
	e, err := pipeline.NewExecutor(pipeline.Stage{Name: "x", Run: noop})
	require.NoError(t, err)

	state := models.NewJobState("j", "u")
	require.NoError(t, e.Execute(context.Background(), pipeline.NewTracker(state, nil)))
	assert.Equal(t, models.JobStatusCompleted, state.Status)
	assert.Equal(t, 100, state.Progress)
}

func TestExecute_SkipsStagesAfterEarlyCompletion(t *testing.T) {
	state := models.NewJobState("j", "u")
	tr := pipeline.NewTracker(state, nil)
	secondRan := false

	e, err := pipeline.NewExecutor(
		pipeline.Stage{Name: "first", Run: func(context.Context) error {
			tr.Complete("done early")
			return nil
		}},
		pipeline.Stage{Name: "second", After: []string{"first"}, Run: func(context.Context) error {
			secondRan = true
			return nil
		}},
	)
	require.NoError(t, err)

	require.NoError(t, e.Execute(context.Background(), tr))
	assert.False(t, secondRan)
	assert.Equal(t, "done early", state.CurrentStep)
}
