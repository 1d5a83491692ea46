// Package security decides whether a discovered executor may be registered.
//
// A Gate runs a list of Checks over a Subject and folds their findings into a
// ValidationResult. The result's RiskLevel is the highest issue severity;
// the candidate is valid when that level is below the gate's threshold.
package security
