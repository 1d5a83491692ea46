package security

import "slices"

// Gate validates subjects against a list of checks.
type Gate struct {
	// Threshold is the lowest risk level that makes a subject invalid.
	Threshold RiskLevel
	Checks    []Check
}

// Option configures a Gate built by NewGate.
type Option func(*gateConfig)

type gateConfig struct {
	threshold       RiskLevel
	denied          []string
	requireChecksum bool
	extra           []Check
	checks          []Check
	replaceChecks   bool
}

// WithThreshold sets the rejection threshold. The default is RiskHigh.
func WithThreshold(level RiskLevel) Option {
	return func(c *gateConfig) { c.threshold = level }
}

// WithDeniedCapabilities makes the listed capabilities Critical.
func WithDeniedCapabilities(names ...string) Option {
	return func(c *gateConfig) { c.denied = append(c.denied, names...) }
}

// WithRequireChecksum makes a missing checksum on binary entries a High issue.
func WithRequireChecksum(required bool) Option {
	return func(c *gateConfig) { c.requireChecksum = required }
}

// WithCheck appends a check after the default ones.
func WithCheck(check Check) Option {
	return func(c *gateConfig) { c.extra = append(c.extra, check) }
}

// WithChecks replaces the default checks entirely.
func WithChecks(checks ...Check) Option {
	return func(c *gateConfig) {
		c.checks = checks
		c.replaceChecks = true
	}
}

// NewGate returns a gate with the capability, signature and resource checks.
func NewGate(opts ...Option) *Gate {
	cfg := gateConfig{threshold: RiskHigh}
	for _, opt := range opts {
		opt(&cfg)
	}

	checks := cfg.checks
	if !cfg.replaceChecks {
		checks = []Check{
			CapabilityCheck{Denied: cfg.denied},
			SignatureCheck{RequireChecksum: cfg.requireChecksum},
			ResourceCheck{},
		}
	}
	checks = append(slices.Clip(checks), cfg.extra...)

	return &Gate{Threshold: cfg.threshold, Checks: checks}
}

// Validate runs every check over s. The returned result is not shared with
// the gate and is never modified afterwards.
func (g *Gate) Validate(s Subject) ValidationResult {
	var result ValidationResult
	for _, check := range g.Checks {
		f := inspect(check, s)
		result.Issues = append(result.Issues, f.Issues...)
		result.Warnings = append(result.Warnings, f.Warnings...)
	}
	for _, is := range result.Issues {
		if is.Severity > result.RiskLevel {
			result.RiskLevel = is.Severity
		}
	}
	result.Valid = result.RiskLevel < g.Threshold
	return result
}

// inspect runs one check. A panicking check counts as a Critical issue.
func inspect(check Check, s Subject) (f Findings) {
	defer func() {
		if r := recover(); r != nil {
			f = Findings{}
			f.issue(check.Name(), RiskCritical, "check panicked: %v", r)
		}
	}()
	return check.Inspect(s)
}
