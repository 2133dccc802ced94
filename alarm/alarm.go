// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alarm provides tick-driven sleep for simulation threads.
//
// An Alarm hooks a scheduler's timer tick.  Each sleeping thread parks on
// a private semaphore that the tick handler releases, in interrupt
// context, once the thread's wake tick is reached.  The alarm also
// reports its earliest wake tick to the scheduler, so an otherwise idle
// simulation jumps its clock straight to the next sleeper instead of
// grinding through empty ticks.
package alarm

import (
	"v.io/x/ksched/ksync"
	"v.io/x/ksched/sched"
	"v.io/x/ksched/waitq"
)

// A sleeper is one blocked Sleep: the tick it comes due, and the private
// semaphore its thread waits on.
type sleeper struct {
	wake int64
	sem  ksync.Semaphore
}

func sleeperLess(a, b *sleeper) bool {
	return a.wake < b.wake
}

// An Alarm wakes sleeping threads as the simulation clock reaches their
// wake ticks.
type Alarm struct {
	s        *sched.Sched
	sleepers waitq.Q[*sleeper] // ordered by wake tick
}

var _ sched.TickSource = (*Alarm)(nil)

// New returns an alarm driven by s's timer ticks.
func New(s *sched.Sched) *Alarm {
	a := &Alarm{s: s}
	s.OnTick(a.tick)
	s.AddTickSource(a)
	return a
}

// Sleep blocks the calling thread until at least n ticks have elapsed.
// It returns immediately if n is not positive.  Sleep must not be called
// from interrupt context.
func (a *Alarm) Sleep(n int64) {
	if n <= 0 {
		return
	}
	s := a.s
	if s.InInterrupt() {
		panic("attempt to Sleep in interrupt context")
	}
	sl := new(sleeper)
	sl.sem.Init(s, 0)
	prev := s.DisableInterrupts()
	sl.wake = s.Ticks() + n
	a.sleepers.InsertSorted(sl, sleeperLess)
	s.RestoreInterrupts(prev)
	// A tick between the insert and the Down just leaves the semaphore
	// at one, and the Down returns at once.
	sl.sem.Down()
}

// Sleeping returns the number of threads currently waiting on the alarm.
func (a *Alarm) Sleeping() int {
	prev := a.s.DisableInterrupts()
	n := a.sleepers.Len()
	a.s.RestoreInterrupts(prev)
	return n
}

// NextWake implements sched.TickSource, reporting the earliest pending
// wake tick.
func (a *Alarm) NextWake() (int64, bool) {
	if a.sleepers.Empty() {
		return 0, false
	}
	return a.sleepers.Front().wake, true
}

// tick runs in interrupt context on every timer tick and releases every
// sleeper that has come due.  The woken threads then run in priority
// order once the handler returns.
func (a *Alarm) tick() {
	now := a.s.Ticks()
	for !a.sleepers.Empty() && a.sleepers.Front().wake <= now {
		a.sleepers.PopFront().sem.Up()
	}
}
