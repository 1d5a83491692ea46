package executor

import (
	"context"
	"time"
)

// Executor is implemented by every unit of work the runner can dispatch.
type Executor interface {
	// Identity returns the namespace, name and version of the executor.
	Identity() Identity
	// Description returns a human-readable summary of what the executor does.
	Description() string
	// Execute runs the job. jobData is a caller-defined payload (JSON in
	// practice); the returned Result carries the outcome.
	Execute(ctx context.Context, ec *ExecutionContext, jobData string) Result
}

// Constructor creates a fresh executor instance.
type Constructor func() (Executor, error)

// Result is the outcome of a single execution.
// An empty JobData or Error means the value is absent.
type Result struct {
	Success bool   `json:"success"`
	JobData string `json:"returnedJobData,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Succeeded builds a successful Result carrying data.
func Succeeded(data string) Result {
	return Result{Success: true, JobData: data}
}

// Failed builds a failed Result carrying an error message.
func Failed(msg string) Result {
	return Result{Success: false, Error: msg}
}

// ExecutionContext carries job metadata into an execution.
type ExecutionContext struct {
	JobID    string
	FullName string
	Enqueued time.Time
	Attempt  int
}
