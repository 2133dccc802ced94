// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trace provides leveled verbosity logging for the scheduler
// simulation and the synchronization primitives built on it.  It follows
// the logger.VI(2).Infof usage style: VI returns an implementation that
// either logs or discards its arguments, depending on the configured
// level.
//
// Log output goes to a single writer, standard error by default.  There
// is no log file management here; simulations are short-lived.
package trace

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	uatomic "go.uber.org/atomic"
)

type severity byte

const (
	infoLog  severity = 'I'
	errorLog severity = 'E'
	fatalLog severity = 'F'
)

// InfoLog is the subset of logging operations gated by a verbosity level.
type InfoLog interface {
	// Info logs to the INFO log.
	// Arguments are handled in the manner of fmt.Print; a newline is
	// appended if missing.
	Info(args ...interface{})

	// Infof logs to the INFO log.
	// Arguments are handled in the manner of fmt.Printf; a newline is
	// appended if missing.
	Infof(format string, args ...interface{})

	// InfoStack logs the current goroutine's stack if the all parameter
	// is false, or the stacks of all goroutines if it's true.
	InfoStack(all bool)
}

// Logger is a leveled logger.  Use NewLogger for a named instance, or the
// package-level Log for the shared default.  A Logger may be used from
// multiple goroutines.
type Logger struct {
	name  string
	level uatomic.Int32

	mu  sync.Mutex // guards out
	out io.Writer
}

// NewLogger creates a new instance of the logging interface writing to
// standard error at level 0.
func NewLogger(name string) *Logger {
	return &Logger{name: name, out: os.Stderr}
}

// Name returns the name the logger was created with.
func (l *Logger) Name() string { return l.name }

// SetLevel sets the verbosity level: V(lv) returns true for lv <= level.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// SetOutput redirects the logger's output to w.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.out = w
	l.mu.Unlock()
}

func (l *Logger) print(sev severity, args ...interface{}) {
	l.write(sev, fmt.Sprint(args...))
}

func (l *Logger) printf(sev severity, format string, args ...interface{}) {
	l.write(sev, fmt.Sprintf(format, args...))
}

func (l *Logger) write(sev severity, msg string) {
	if len(msg) == 0 || msg[len(msg)-1] != '\n' {
		msg += "\n"
	}
	l.mu.Lock()
	fmt.Fprintf(l.out, "%c %s] %s", sev, l.name, msg)
	l.mu.Unlock()
}

// Info logs to the INFO log.
// Arguments are handled in the manner of fmt.Print; a newline is appended
// if missing.
func (l *Logger) Info(args ...interface{}) {
	l.print(infoLog, args...)
}

// Infof logs to the INFO log.
// Arguments are handled in the manner of fmt.Printf; a newline is appended
// if missing.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.printf(infoLog, format, args...)
}

// InfoStack logs the current goroutine's stack if the all parameter is
// false, or the stacks of all goroutines if it's true.
func (l *Logger) InfoStack(all bool) {
	n := 4096
	var buf []byte
	for {
		buf = make([]byte, n)
		nbytes := runtime.Stack(buf, all)
		if nbytes < len(buf) {
			buf = buf[:nbytes]
			break
		}
		n *= 2
	}
	l.write(infoLog, string(buf))
}

// V returns true if the configured logging level is greater than or equal
// to its parameter.
func (l *Logger) V(level Level) bool {
	return int32(level) <= l.level.Load()
}

type discardInfo struct{}

func (*discardInfo) Info(args ...interface{})                 {}
func (*discardInfo) Infof(format string, args ...interface{}) {}
func (*discardInfo) InfoStack(all bool)                       {}

// VI is like V, except that it returns an instance of the InfoLog
// interface that will either log (if level >= the configured level) or
// discard its parameters.  This allows for logger.VI(2).Info style usage.
func (l *Logger) VI(level Level) InfoLog {
	if l.V(level) {
		return l
	}
	return &discardInfo{}
}

// Error logs to the ERROR log.
// Arguments are handled in the manner of fmt.Print; a newline is appended
// if missing.
func (l *Logger) Error(args ...interface{}) {
	l.print(errorLog, args...)
}

// Errorf logs to the ERROR log.
// Arguments are handled in the manner of fmt.Printf; a newline is appended
// if missing.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.printf(errorLog, format, args...)
}

// Fatal logs to the FATAL log and then calls os.Exit(255).
// Arguments are handled in the manner of fmt.Print; a newline is appended
// if missing.
func (l *Logger) Fatal(args ...interface{}) {
	l.print(fatalLog, args...)
	os.Exit(255)
}

// Fatalf logs to the FATAL log and then calls os.Exit(255).
// Arguments are handled in the manner of fmt.Printf; a newline is appended
// if missing.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.printf(fatalLog, format, args...)
	os.Exit(255)
}

// Panic is equivalent to Error() followed by a call to panic().
func (l *Logger) Panic(args ...interface{}) {
	l.Error(args...)
	panic(fmt.Sprint(args...))
}

// Panicf is equivalent to Errorf() followed by a call to panic().
func (l *Logger) Panicf(format string, args ...interface{}) {
	l.Errorf(format, args...)
	panic(fmt.Sprintf(format, args...))
}
