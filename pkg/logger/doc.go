// Package logger provides the structured logging interface used across
// imgharvest. It wraps zerolog; loggers are constructed explicitly and passed
// to each component, there is no package-level instance.
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("url", pageURL).Info("extraction started")
//
// NewTestLogger captures messages for assertions and NewNopLogger discards
// everything.
package logger
