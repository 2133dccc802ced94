// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command schedsim boots a named scheduling scenario on a simulated
// uniprocessor and prints what the threads do, followed by the
// scheduler's counters.
//
// Example usage:
//   $ schedsim pingpong
//   $ schedsim --v=2 donate-chain
//
// The scenarios cover semaphore handoff, priority donation through one
// lock, several locks and a chain of locks, condition variable wakeup
// order, tick-driven sleep, and round-robin slicing between busy
// threads.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"v.io/x/ksched/sched"
	"v.io/x/ksched/trace"
)

var (
	flagTimeSlice  int
	flagTraceFlags trace.Flags
)

func init() {
	pflag.IntVar(&flagTimeSlice, "time-slice", sched.DefaultTimeSlice,
		"Timer ticks a thread may run before the scheduler rotates it.")
	trace.RegisterFlags(pflag.CommandLine, &flagTraceFlags, "")
}

func scenarioNames() string {
	var names []string
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}

func main() {
	pflag.Parse()
	trace.Log.ConfigureFromFlags(&flagTraceFlags)
	if pflag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: schedsim [flags] <scenario>\nscenarios: %s\n", scenarioNames())
		os.Exit(2)
	}
	name := pflag.Arg(0)
	seed := scenarios[name]
	if seed == nil {
		fmt.Fprintf(os.Stderr, "schedsim: unknown scenario %q\nscenarios: %s\n", name, scenarioNames())
		os.Exit(2)
	}
	s := sched.New(sched.TimeSlice(flagTimeSlice))
	seed(s)
	if err := s.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "schedsim: %v\n", err)
		os.Exit(1)
	}
	st := s.Stats()
	fmt.Printf("%s: %d threads, %d switches, %d ticks (%d idle)\n",
		name, st.Spawned, st.Switches, st.Ticks, st.IdleTicks)
}
