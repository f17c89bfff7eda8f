// Package hlog provides the structured logger used across the decoder.
// It wraps zerolog so call sites log with typed fields instead of
// formatted strings, matching the rest of the example corpus's logging
// idiom rather than fmt.Printf/log.Printf.
package hlog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel).With().Timestamp().Logger()
)

// SetOutput redirects logging to w. Tests pass io.Discard or a buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Output(w)
}

// SetVerbose toggles whether Debug-level events are emitted. Off by
// default so a library consumer gets silence unless it opts in.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	if v {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
}

// Debug logs a low-level decode step (address, message type, byte counts).
// Silently dropped unless SetVerbose(true) was called.
func Debug() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return logger.Debug()
}

// Warn logs a recoverable anomaly the decoder chose to continue past
// (e.g. skipping a single unreadable link rather than aborting the walk).
func Warn() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return logger.Warn()
}

// Error logs a failure about to be returned to the caller, so a CLI's
// logs and its exit-code error message agree on the failing address.
func Error() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return logger.Error()
}
