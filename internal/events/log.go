package events

import (
	"go.uber.org/zap"
)

// LogListener returns a listener that writes every event to logger.
// Load problems and advisory security findings are warnings, rejections
// and instantiation failures are errors.
func LogListener(logger *zap.Logger) Listener {
	return func(e Event) {
		switch ev := e.(type) {
		case LoadFailure:
			fields := []zap.Field{zap.String("source", ev.Source), zap.Error(ev.Err)}
			if ev.Identity.Version != nil {
				fields = append(fields, zap.Stringer("executor", ev.Identity))
			}
			logger.Warn("executor module failed to load", fields...)
		case SecurityFailure:
			fields := []zap.Field{
				zap.Stringer("executor", ev.Identity),
				zap.String("source", ev.Source),
				zap.Stringer("risk", ev.Result.RiskLevel),
				zap.Strings("issues", ev.Result.IssueDescriptions()),
				zap.Strings("warnings", ev.Result.WarningDescriptions()),
			}
			if ev.Rejected {
				logger.Error("executor rejected by security validation", fields...)
			} else {
				logger.Info("executor registered with security findings", fields...)
			}
		case InstantiationFailure:
			logger.Error("executor could not be instantiated",
				zap.Stringer("executor", ev.Identity),
				zap.Error(ev.Err),
			)
		case DuplicateRegistration:
			logger.Warn("duplicate executor registration",
				zap.Stringer("executor", ev.Identity),
				zap.String("source", ev.Source),
				zap.String("replaced", ev.ReplacedSource),
			)
		default:
			logger.Warn("unrecognized executor event", zap.Stringer("event", e))
		}
	}
}
