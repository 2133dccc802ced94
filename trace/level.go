// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"strconv"
)

// Level specifies a level of verbosity for V logs.  Higher levels log
// more.  It implements the flag.Value and pflag.Value interfaces to
// support command line option parsing.
type Level int32

// Set is part of the flag.Value interface.
func (l *Level) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*l = Level(n)
	return nil
}

// Get is part of the flag.Getter interface.
func (l *Level) Get() interface{} {
	return *l
}

// String is part of the flag.Value interface.
func (l *Level) String() string {
	return strconv.Itoa(int(*l))
}

// Type is part of the pflag.Value interface.
func (l *Level) Type() string {
	return "int"
}
