package pipeline

import "fmt"

// Severity classifies an operational error so the orchestrator can decide
// whether to abort the run or isolate the failure.
type Severity int

const (
	// SeverityPipeline aborts the whole job post's processing.
	SeverityPipeline Severity = iota
	// SeverityCandidate is caught and logged without touching sibling candidates.
	SeverityCandidate
)

// OpError is the typed operational error raised inside the pipeline, carrying
// the originating operation name and a machine-checkable severity.
type OpError struct {
	Op       string
	Severity Severity
	Err      error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func fatal(op string, err error) *OpError {
	return &OpError{Op: op, Severity: SeverityPipeline, Err: err}
}

func candidateFailure(op string, err error) *OpError {
	return &OpError{Op: op, Severity: SeverityCandidate, Err: err}
}
