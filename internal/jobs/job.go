// Package jobs models queued units of work and runs them through executors
// looked up by full name.
package jobs

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a job.
type Status int

const (
	// StatusPending means the job has not run yet.
	StatusPending Status = iota
	// StatusRunning means the job is executing.
	StatusRunning
	// StatusSuccess means the executor reported success.
	StatusSuccess
	// StatusFailed means the job ran and failed, or could not run at all.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "pending":
		*s = StatusPending
	case "running":
		*s = StatusRunning
	case "success":
		*s = StatusSuccess
	case "failed":
		*s = StatusFailed
	default:
		return fmt.Errorf("unknown job status %q", text)
	}
	return nil
}

// Done reports whether the job reached a final state.
func (s Status) Done() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Job is a unit of work addressed to an executor.
type Job struct {
	ID       string        `json:"id" yaml:"id"`
	Enqueued time.Time     `json:"enqueued" yaml:"enqueued"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Status   Status        `json:"status" yaml:"status"`
	// Executor is the full name of the executor that runs the job.
	Executor string `json:"executor" yaml:"executor"`
	// Data is the job payload. A successful run replaces it with the
	// executor's returned data when there is any.
	Data    string `json:"data" yaml:"data"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Attempt int    `json:"attempt" yaml:"attempt"`
}

// Clone returns a copy of j.
func (j *Job) Clone() *Job {
	c := *j
	return &c
}
