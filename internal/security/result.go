package security

import (
	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
)

// Subject is the security view of a discovered executor.
type Subject struct {
	Identity executor.Identity
	// Source is the manifest the executor was declared in.
	Source  string
	Runtime string
	// Entry is a catalog symbol for builtins, otherwise an absolute path.
	Entry        string
	Dir          string
	Capabilities []string
	Checksum     string
}

// Issue is a finding that contributes to the risk level.
type Issue struct {
	Check       string
	Severity    RiskLevel
	Description string
}

// Warning is an advisory finding. It never affects validity.
type Warning struct {
	Check       string
	Description string
}

// Findings is what a single Check reports.
type Findings struct {
	Issues   []Issue
	Warnings []Warning
}

func (f *Findings) issue(check string, sev RiskLevel, format string, args ...any) {
	f.Issues = append(f.Issues, Issue{Check: check, Severity: sev, Description: sprintf(format, args...)})
}

func (f *Findings) warn(check string, format string, args ...any) {
	f.Warnings = append(f.Warnings, Warning{Check: check, Description: sprintf(format, args...)})
}

// ValidationResult is the gate's verdict on one subject.
type ValidationResult struct {
	Valid     bool
	RiskLevel RiskLevel
	Issues    []Issue
	Warnings  []Warning
}

// HasFindings reports whether there is anything worth telling a listener about.
func (r ValidationResult) HasFindings() bool {
	return len(r.Issues) > 0 || len(r.Warnings) > 0
}

func (r ValidationResult) IssueDescriptions() []string {
	out := make([]string, len(r.Issues))
	for i, is := range r.Issues {
		out[i] = is.Severity.String() + ": " + is.Description
	}
	return out
}

func (r ValidationResult) WarningDescriptions() []string {
	out := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		out[i] = w.Description
	}
	return out
}
