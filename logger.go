/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2026 The channeler Authors.
 */

package channeler

import (
	"log"
	"os"
)

// Logger is the leveled logging seam every channeler component writes
// through instead of calling the standard library's log package directly: a
// thin wrapper exposing Verbosef/Errorf, backed by log.Logger rather than a
// structured-logging dependency (see DESIGN.md).
type Logger struct {
	Verbose *log.Logger
	Error   *log.Logger
}

// NewLogger builds a Logger writing both levels to os.Stderr with name as
// the line prefix. Verbose output can be silenced independently with
// DiscardVerbose.
func NewLogger(name string) *Logger {
	return &Logger{
		Verbose: log.New(os.Stderr, "("+name+") ", log.Ldate|log.Ltime),
		Error:   log.New(os.Stderr, "("+name+") ", log.Ldate|log.Ltime),
	}
}

// DiscardVerbose redirects Verbosef output to io.Discard, for callers that
// want error-only logging without constructing a Logger from scratch.
func (l *Logger) DiscardVerbose() *Logger {
	l.Verbose = log.New(discardWriter{}, "", 0)
	return l
}

// Verbosef logs an informational line. The Connection façade uses it for
// peer and transport bans; cookie mismatches and ban-list drops are not
// logged, and FSM-registry misses arrive as ERROR actions logged through
// Errorf.
func (l *Logger) Verbosef(format string, args ...any) {
	if l == nil || l.Verbose == nil {
		return
	}
	l.Verbose.Printf(format, args...)
}

// Errorf logs a failure: an ERROR action a pipeline or FSM returned to the
// Connection façade, or a failed egress bundle.
func (l *Logger) Errorf(format string, args ...any) {
	if l == nil || l.Error == nil {
		return
	}
	l.Error.Printf(format, args...)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
