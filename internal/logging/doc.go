// Package logging provides structured logging for quorum runs.
//
// This package wraps Go's log/slog to emit JSON lines with persistent
// context attributes, so a run that fans out to a dozen backends can be
// filtered by run, backend and phase after the fact.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the parent's writer. The
// [RotatingWriter] serializes writes and rotation with a mutex.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(dir, "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithRun(runID).WithBackend("groq").WithPhase("dispatch").
//	    Info("backend responded", "duration_ms", 812)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"backend responded","run_id":"...","backend":"groq","phase":"dispatch","duration_ms":812}
//
// # Log Rotation
//
// [NewLoggerWithRotation] caps the log file at MaxSizeMB and keeps
// MaxBackups older files named quorum.log.1 (newest) through quorum.log.N.
// The writer runs on an afero file system so tests can use an in-memory one.
//
// # Configuration
//
//	logging:
//	  enabled: true
//	  level: info
//	  dir: ""          # empty means the config directory's logs/ folder
//	  max_size_mb: 10
//	  max_backups: 3
package logging
