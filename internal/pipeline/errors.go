package pipeline

import "fmt"

// StageError is a stage-fatal failure. Message is what the job reports.
type StageError struct {
	Stage   string
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func fatal(stage, message string) *StageError {
	return &StageError{Stage: stage, Message: message}
}

// fatalCause builds "<prefix>: <cause>".
func fatalCause(stage, prefix string, err error) *StageError {
	return &StageError{Stage: stage, Message: fmt.Sprintf("%s: %v", prefix, err), Err: err}
}
