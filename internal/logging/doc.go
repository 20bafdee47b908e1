// Package logging builds the slog loggers used by ovsnap.
//
// The CLI logs to stderr in a coloured text format, or JSON with
// --log-format json, and can tee every record as JSON into --log-file:
//
//	logger := logging.New(logging.Config{
//		Level:  logging.LevelFromVerbosity(verbosity),
//		Format: logging.FormatText,
//		Tee:    logFile,
//	})
//
// Core packages never reach for a global logger. They take a *slog.Logger,
// usually optional, and call [OrDiscard] once. Commands pass the logger down
// through the context with [NewContext] and [FromContext].
//
// Tests use [ForTest] so log lines appear only for failing tests.
package logging
