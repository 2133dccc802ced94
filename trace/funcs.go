// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

// Log is the default logger, shared by the package-level functions.
var Log *Logger

func init() {
	Log = NewLogger("ksched")
}

// Info logs to the INFO log.
// Arguments are handled in the manner of fmt.Print; a newline is appended
// if missing.
func Info(args ...interface{}) {
	Log.Info(args...)
}

// Infof logs to the INFO log.
// Arguments are handled in the manner of fmt.Printf; a newline is appended
// if missing.
func Infof(format string, args ...interface{}) {
	Log.Infof(format, args...)
}

// InfoStack logs the current goroutine's stack if the all parameter is
// false, or the stacks of all goroutines if it's true.
func InfoStack(all bool) {
	Log.InfoStack(all)
}

// V returns true if the configured logging level is greater than or equal
// to its parameter.
func V(level Level) bool {
	return Log.V(level)
}

// VI is like V, except that it returns an instance of the InfoLog
// interface that will either log (if level >= the configured level) or
// discard its parameters.  This allows for trace.VI(2).Info style usage.
func VI(level Level) InfoLog {
	return Log.VI(level)
}

// Error logs to the ERROR log.
// Arguments are handled in the manner of fmt.Print; a newline is appended
// if missing.
func Error(args ...interface{}) {
	Log.Error(args...)
}

// Errorf logs to the ERROR log.
// Arguments are handled in the manner of fmt.Printf; a newline is appended
// if missing.
func Errorf(format string, args ...interface{}) {
	Log.Errorf(format, args...)
}

// Fatal logs to the FATAL log and then calls os.Exit(255).
func Fatal(args ...interface{}) {
	Log.Fatal(args...)
}

// Fatalf logs to the FATAL log and then calls os.Exit(255).
func Fatalf(format string, args ...interface{}) {
	Log.Fatalf(format, args...)
}

// Panic is equivalent to Error() followed by a call to panic().
func Panic(args ...interface{}) {
	Log.Panic(args...)
}

// Panicf is equivalent to Errorf() followed by a call to panic().
func Panicf(format string, args ...interface{}) {
	Log.Panicf(format, args...)
}
