// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

// DefaultTimeSlice is the number of timer ticks a thread runs before the
// timer interrupt requests a round-robin yield.
const DefaultTimeSlice = 4

// A TickSource reports the next tick at which it has pending timer work,
// so an idle scheduler can advance virtual time to it instead of treating
// the simulation as stuck.
type TickSource interface {
	// NextWake returns the earliest tick at which the source needs the
	// timer to fire; ok is false if it has no pending work.
	NextWake() (tick int64, ok bool)
}

// Ticks returns the current timer tick count.  Must be called from
// simulation context, or after Run has returned.
func (s *Sched) Ticks() int64 {
	return s.ticks
}

// Tick posts one timer interrupt.  Safe from any goroutine.
func (s *Sched) Tick() {
	s.Interrupt(s.timerTick)
}

// TickN posts n timer interrupts.
func (s *Sched) TickN(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

// OnTick registers fn to run from the timer interrupt handler on every
// tick.  Register before Run; registration is not synchronized.
func (s *Sched) OnTick(fn func()) {
	s.onTick = append(s.onTick, fn)
}

// AddTickSource registers a source of future timer work for the idle
// loop to advance to.  Register before Run.
func (s *Sched) AddTickSource(ts TickSource) {
	s.sources = append(s.sources, ts)
}

// timerTick is the timer interrupt handler.  It charges the running
// thread for the tick and requests a yield when its slice is used up.
func (s *Sched) timerTick() {
	s.ticks++
	if t := s.current; t != nil {
		t.ticksRun++
		s.sliceTicks++
		if s.sliceTicks >= s.timeSlice {
			s.yieldPending = true
		}
	} else {
		s.idleTicks++
	}
	for _, fn := range s.onTick {
		fn()
	}
	s.tr.VI(3).Infof("tick %d", s.ticks)
}

// fireTick runs one timer tick synchronously in interrupt context; the
// idle loop uses it to advance virtual time.
func (s *Sched) fireTick() {
	wasISR := s.inISR
	s.inISR = true
	s.timerTick()
	s.inISR = wasISR
}

// earliestWake returns the soonest pending tick over all tick sources.
func (s *Sched) earliestWake() (int64, bool) {
	var wake int64
	found := false
	for _, src := range s.sources {
		if w, ok := src.NextWake(); ok && (!found || w < wake) {
			wake, found = w, true
		}
	}
	return wake, found
}

// advanceTo fires timer ticks until the tick count reaches wake.
func (s *Sched) advanceTo(wake int64) {
	if wake <= s.ticks {
		wake = s.ticks + 1
	}
	s.tr.VI(2).Infof("idle: advancing to tick %d", wake)
	// Stop early if a tick handler makes a thread runnable.
	for s.ticks < wake && s.ready.Empty() {
		s.fireTick()
	}
}
