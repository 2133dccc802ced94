// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

// IntrLevel is the opaque interrupt state returned by DisableInterrupts
// and given back to RestoreInterrupts, so masked sections nest the way
// they do in a kernel.
type IntrLevel uint8

const (
	// IntrOff means interrupts were disabled.
	IntrOff IntrLevel = iota
	// IntrOn means interrupts were enabled.
	IntrOn
)

func (l IntrLevel) String() string {
	if l == IntrOn {
		return "on"
	}
	return "off"
}

// DisableInterrupts masks interrupts and returns the previous level.
// Anything already posted is delivered at the boundary, before the
// caller proceeds masked.  Must be called from simulation context.
func (s *Sched) DisableInterrupts() IntrLevel {
	if s.masked {
		return IntrOff
	}
	s.masked = true
	s.deliverPendingLocked()
	return IntrOn
}

// RestoreInterrupts restores the interrupt level returned by the matching
// DisableInterrupts.  When the mask actually comes off, pending
// interrupts are delivered and any yield requested by an interrupt
// handler is honored.
func (s *Sched) RestoreInterrupts(prev IntrLevel) {
	if prev == IntrOff {
		return
	}
	s.mustMasked("RestoreInterrupts")
	s.deliverPendingLocked()
	if s.yieldPending && s.current != nil && !s.inISR {
		s.yieldPending = false
		s.yieldLocked()
	}
	s.masked = false
}

// InInterrupt reports whether the caller is running inside an interrupt
// handler.  Valid from simulation threads and handlers; the answer is
// meaningless on goroutines outside the simulation.
func (s *Sched) InInterrupt() bool {
	return s.inISR
}

// YieldOnReturn requests that the interrupted thread yield as soon as it
// re-enables interrupts.  This is how interrupt context asks for a
// preemption it cannot perform itself.  Must be called with interrupts
// disabled.
func (s *Sched) YieldOnReturn() {
	s.mustMasked("YieldOnReturn")
	s.yieldPending = true
}

// Interrupt posts fn for execution in interrupt context; it is safe to
// call from any goroutine.  Handlers run with interrupts disabled.  While
// the simulation has interrupts masked the post stays pending, the same
// way hardware holds an interrupt line until the CPU unmasks; delivery
// happens at the edges of masked sections and in the idle loop.
func (s *Sched) Interrupt(fn func()) {
	if fn == nil {
		panic("sched: Interrupt with nil handler")
	}
	spinTestAndSet(&s.postLock, 1, 1)
	s.posted = append(s.posted, fn)
	s.postLock.Store(0)
	s.idleSem.V()
}

// takePosted atomically claims everything posted so far.
func (s *Sched) takePosted() []func() {
	spinTestAndSet(&s.postLock, 1, 1)
	fns := s.posted
	s.posted = nil
	s.postLock.Store(0)
	return fns
}

// deliverPendingLocked runs every posted handler in interrupt context,
// in posting order.  Called with interrupts disabled.  It reports whether
// any handler ran.
func (s *Sched) deliverPendingLocked() bool {
	ran := false
	for {
		fns := s.takePosted()
		if len(fns) == 0 {
			return ran
		}
		ran = true
		wasISR := s.inISR
		s.inISR = true
		for _, fn := range fns {
			fn()
		}
		s.inISR = wasISR
	}
}
