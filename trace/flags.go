// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"github.com/spf13/pflag"
)

// Flags represents all of the flags that can be used to configure a
// Logger.
type Flags struct {
	Verbosity Level
}

// RegisterFlags registers the logging flags with the specified flag set
// and with prefix prepended to their flag names.
//   --<prefix>v
func RegisterFlags(fs *pflag.FlagSet, lf *Flags, prefix string) {
	fs.Var(&lf.Verbosity, prefix+"v", "log level for V logs")
}

// ConfigureFromFlags configures the logger from the specified flags.  It
// assumes the flag set has already been parsed.
func (l *Logger) ConfigureFromFlags(lf *Flags) {
	l.SetLevel(lf.Verbosity)
}
