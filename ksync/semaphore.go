// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ksync provides kernel-style synchronization primitives built on
// a sched.Sched: a counting Semaphore, a priority-donating Lock, and a
// Mesa-style condition variable Cond.
//
// The primitives follow classic teaching-kernel semantics.  Wakeup is by
// priority with ties going to the longest waiter; a lock holder inherits
// the priority of whoever waits on it, transitively along chains of
// locks; misuse panics rather than returning errors.  Blocking
// operations must not be used in interrupt context, while the
// non-blocking ones (TryDown, Up, TryAcquire) are interrupt-safe.
package ksync

import (
	"v.io/x/ksched/sched"
	"v.io/x/ksched/waitq"
)

// threadLess orders threads by effective priority; waiter and donor
// selection scans with it.
func threadLess(a, b *sched.Thread) bool {
	return a.Priority() < b.Priority()
}

// A Semaphore is a counting semaphore.  A zero Semaphore is not ready for
// use: Init binds it to the scheduler whose threads it will block.
type Semaphore struct {
	s       *sched.Sched
	value   int
	waiters waitq.Q[*sched.Thread]
}

// NewSemaphore returns a semaphore bound to s with the given initial
// value.
func NewSemaphore(s *sched.Sched, value int) *Semaphore {
	sem := new(Semaphore)
	sem.Init(s, value)
	return sem
}

// Init() initializes the semaphore with the given initial value, which
// must be non-negative, binding it to scheduler s.
func (sem *Semaphore) Init(s *sched.Sched, value int) {
	if s == nil {
		panic("ksync.Semaphore.Init with nil scheduler")
	}
	if value < 0 {
		panic("ksync.Semaphore.Init with negative value")
	}
	sem.s = s
	sem.value = value
	sem.waiters.Clear()
}

func (sem *Semaphore) mustInit() *sched.Sched {
	if sem.s == nil {
		panic("use of uninitialized ksync.Semaphore")
	}
	return sem.s
}

// Down() waits for the semaphore's value to become positive and then
// atomically decrements it.  While the caller waits, the donation walk
// runs on its behalf, so a raised priority keeps flowing to whatever the
// caller already waits on.  Down must not be called from interrupt
// context.  It may be called with interrupts disabled; if it sleeps, the
// next scheduled thread will typically re-enable them.
func (sem *Semaphore) Down() {
	s := sem.mustInit()
	if s.InInterrupt() {
		panic("attempt to Down a ksync.Semaphore in interrupt context")
	}
	prev := s.DisableInterrupts()
	cur := s.Current()
	for sem.value == 0 {
		s.PropagateDonation()
		sem.waiters.PushBack(cur)
		s.Block()
	}
	sem.value--
	s.RestoreInterrupts(prev)
}

// TryDown() decrements the semaphore if its value is positive, without
// waiting.  It returns whether the decrement happened.  On failure the
// donation walk still runs, so a spinning caller's priority is honored.
// Safe from interrupt context.
func (sem *Semaphore) TryDown() bool {
	s := sem.mustInit()
	prev := s.DisableInterrupts()
	ok := sem.value > 0
	if ok {
		sem.value--
	} else {
		s.PropagateDonation()
	}
	s.RestoreInterrupts(prev)
	return ok
}

// Up() increments the semaphore and wakes the highest-priority waiter, if
// any.  A caller outranked by the thread it woke yields to it; from
// interrupt context the yield is deferred until the interrupted thread
// re-enables interrupts.  Safe from interrupt context.
func (sem *Semaphore) Up() {
	s := sem.mustInit()
	prev := s.DisableInterrupts()
	var woken *sched.Thread
	if i := sem.waiters.MaxIndex(threadLess); i >= 0 {
		woken = sem.waiters.RemoveAt(i)
		s.Unblock(woken)
	}
	sem.value++
	s.RestoreInterrupts(prev)
	if woken != nil {
		if cur := s.Current(); cur != nil && cur.Priority() < woken.Priority() {
			if s.InInterrupt() {
				s.YieldOnReturn()
			} else {
				s.Yield()
			}
		}
	}
}

// Value() returns the semaphore's current value.  It is a snapshot for
// tests and diagnostics; it can be stale as soon as it is returned.
func (sem *Semaphore) Value() int {
	s := sem.mustInit()
	prev := s.DisableInterrupts()
	v := sem.value
	s.RestoreInterrupts(prev)
	return v
}
