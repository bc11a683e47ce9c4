// Package logger provides structured logging on top of zerolog.
//
// Components obtain a tagged logger with Get and log with field maps:
//
//	log := logger.Get("transcriber")
//	log.Info("dispatch complete", logger.Fields(logger.FieldBackend, "openai"))
package logger
