package pipeline

import "fmt"

// StageError wraps a stage failure with the owning stage's name. The
// orchestrator converts it into the job's terminal error state; it never
// crosses a stage boundary as anything retryable.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
