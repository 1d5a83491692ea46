package events

import (
	"fmt"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
	"github.com/DevelApp-ai/PluginJobRunner/internal/security"
)

// Event is one of LoadFailure, SecurityFailure, InstantiationFailure or
// DuplicateRegistration.
type Event interface {
	fmt.Stringer
	event()
}

// LoadFailure reports a module file or declared executor that could not be
// loaded. Identity is the zero value when the failure happened before an
// identity was known.
type LoadFailure struct {
	Source   string
	Identity executor.Identity
	Err      error
}

// SecurityFailure reports a gate verdict with issues or warnings. Rejected
// candidates were excluded from registration; the rest are advisory.
type SecurityFailure struct {
	Source   string
	Identity executor.Identity
	Result   security.ValidationResult
	Rejected bool
}

// InstantiationFailure reports a registered executor whose constructor
// failed, panicked or produced an unusable instance.
type InstantiationFailure struct {
	Identity executor.Identity
	Err      error
}

// DuplicateRegistration reports an identity registered a second time. The
// newer registration replaced the older one.
type DuplicateRegistration struct {
	Identity       executor.Identity
	Source         string
	ReplacedSource string
}

func (LoadFailure) event()           {}
func (SecurityFailure) event()       {}
func (InstantiationFailure) event()  {}
func (DuplicateRegistration) event() {}

func (e LoadFailure) String() string {
	if e.Identity.Version == nil {
		return fmt.Sprintf("failed to load %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("failed to load %s from %s: %v", e.Identity, e.Source, e.Err)
}

func (e SecurityFailure) String() string {
	verdict := "accepted with findings"
	if e.Rejected {
		verdict = "rejected"
	}
	return fmt.Sprintf("%s from %s %s (risk %s, %d issues, %d warnings)",
		e.Identity, e.Source, verdict, e.Result.RiskLevel, len(e.Result.Issues), len(e.Result.Warnings))
}

func (e InstantiationFailure) String() string {
	return fmt.Sprintf("failed to instantiate %s: %v", e.Identity, e.Err)
}

func (e DuplicateRegistration) String() string {
	return fmt.Sprintf("%s from %s replaced the registration from %s", e.Identity, e.Source, e.ReplacedSource)
}
