// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package alarm_test

import "fmt"
import "testing"

import "v.io/x/ksched/alarm"
import "v.io/x/ksched/sched"

// mustRun() runs the simulation and fails the test if it ends in an error.
func mustRun(t *testing.T, s *sched.Sched) {
	t.Helper()
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

// ---------------------------------------

// TestSleepWakeOrder puts three threads to sleep for different spans and
// checks the idle clock advance wakes each at its own tick.
func TestSleepWakeOrder(t *testing.T) {
	s := sched.New()
	a := alarm.New(s)
	var order []string
	sleepFor := func(name string, n int64) func() {
		return func() {
			a.Sleep(n)
			order = append(order, fmt.Sprintf("%s@%d", name, s.Ticks()))
		}
	}
	s.Spawn("s1", sched.PriDefault, sleepFor("s1", 3))
	s.Spawn("s2", sched.PriDefault, sleepFor("s2", 1))
	s.Spawn("s3", sched.PriDefault, sleepFor("s3", 2))
	mustRun(t, s)
	want := []string{"s2@1", "s3@2", "s1@3"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Fatalf("wake order: want %v, got %v", want, order)
	}
	if got := s.Stats().Ticks; got != 3 {
		t.Fatalf("clock overshot the last sleeper: want 3 ticks, got %d", got)
	}
	if got := a.Sleeping(); got != 0 {
		t.Fatalf("sleepers left behind: want 0, got %d", got)
	}
}

// TestSleepNonPositive checks Sleep(0) and negative spans return without
// blocking or advancing the clock.
func TestSleepNonPositive(t *testing.T) {
	s := sched.New()
	a := alarm.New(s)
	var after int64
	s.Spawn("main", sched.PriDefault, func() {
		a.Sleep(0)
		a.Sleep(-5)
		after = s.Ticks()
	})
	mustRun(t, s)
	if after != 0 {
		t.Fatalf("non-positive Sleep advanced the clock to %d", after)
	}
}

// TestSleepSameTick wakes two sleepers on one tick and checks the higher
// priority one runs first.
func TestSleepSameTick(t *testing.T) {
	s := sched.New()
	a := alarm.New(s)
	var order []string
	sleepFor := func(name string, n int64) func() {
		return func() {
			a.Sleep(n)
			order = append(order, fmt.Sprintf("%s@%d", name, s.Ticks()))
		}
	}
	s.Spawn("main", sched.PriDefault-5, func() {
		s.Spawn("low", sched.PriDefault, sleepFor("low", 2))
		s.Spawn("high", sched.PriDefault+1, sleepFor("high", 2))
	})
	mustRun(t, s)
	want := []string{"high@2", "low@2"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Fatalf("wake order: want %v, got %v", want, order)
	}
}

// TestSleepWhileBusy drives the clock from a running thread and checks
// the sleeper preempts it at its wake tick.
func TestSleepWhileBusy(t *testing.T) {
	s := sched.New()
	a := alarm.New(s)
	var wokeAt int64
	var workerDone bool
	var workerT, sleeperT *sched.Thread
	s.Spawn("worker", sched.PriDefault, func() {
		workerT = s.Current()
		sleeperT = s.Spawn("sleeper", sched.PriDefault+1, func() {
			a.Sleep(3)
			wokeAt = s.Ticks()
			if workerDone {
				t.Errorf("sleeper woke only after the worker finished")
			}
		})
		for i := 0; i != 5; i++ {
			s.Tick()
			s.Yield() // delivery point for the tick
		}
		workerDone = true
	})
	mustRun(t, s)
	if wokeAt != 3 {
		t.Fatalf("sleeper woke at tick %d, want 3", wokeAt)
	}
	if got := workerT.TicksRun(); got != 5 {
		t.Fatalf("worker ticks: want 5, got %d", got)
	}
	if got := sleeperT.TicksRun(); got != 0 {
		t.Fatalf("sleeper ticks: want 0, got %d", got)
	}
}
