// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different
// environments (development vs production).
//
// # Run Correlation
//
// Every purge run is tagged with a run_id. The WithRun helper generates a
// fresh UUID, attaches it to the logger, and returns it so the final report
// can reference the same ID, ensuring all logs of one run can be correlated.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Starting purge")
//
//	// At the start of a run:
//	l, runID := logger.WithRun(log)
//	l.Info("run complete", zap.String("run_id", runID))
package logger
