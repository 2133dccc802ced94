// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ksync

import (
	"v.io/x/ksched/sched"
	"v.io/x/ksched/waitq"
)

// A Cond is a Mesa-style condition variable: Signal is a hint, not a
// handoff, so a waiter always re-checks its predicate in a loop after
// waking.  The Lock protecting the predicate is an explicit argument of
// every operation, as a reminder that Wait releases and reacquires it.  A
// zero-valued Cond is a valid Cond with no enqueued waiters.
//
// Usage:
//
// After making the desired predicate true, call:
//      c.Signal(l)     // If at most one thread can make use of the predicate becoming true.
// or
//      c.Broadcast(l)  // If multiple threads can make use of the predicate becoming true.
//
// To wait for a predicate:
//      l.Acquire()
//      for !somePredicateProtectedByL { // the for-loop is required
//              c.Wait(l)
//      }
//      // predicate is now true
//      l.Release()
type Cond struct {
	waiters waitq.Q[*condWaiter]
}

// A condWaiter is one blocked Wait: a private handoff semaphore, plus the
// waiting thread so Signal can rank waiters by their priority at signal
// time rather than at enqueue time.
type condWaiter struct {
	sem    Semaphore
	thread *sched.Thread
}

func waiterLess(a, b *condWaiter) bool {
	return a.thread.Priority() < b.thread.Priority()
}

// NewCond returns a condition variable with no waiters.
func NewCond() *Cond {
	return new(Cond)
}

// Wait() atomically releases l and blocks until another thread signals or
// broadcasts on c, then reacquires l before returning.  The wakeup is a
// hint; the caller must re-check its predicate.  The calling thread must
// hold l, and must not be in interrupt context.
//
// The waiters queue itself is protected by l, not by masking interrupts,
// so every thread touching one Cond must do so under the same Lock.
func (c *Cond) Wait(l *Lock) {
	s := l.sem.mustInit()
	if s.InInterrupt() {
		panic("attempt to Wait on a ksync.Cond in interrupt context")
	}
	if !l.HeldByCurrent() {
		panic("attempt to Wait on a ksync.Cond without holding the Lock")
	}
	w := &condWaiter{thread: s.Current()}
	w.sem.Init(s, 0)
	c.waiters.PushBack(w)
	l.Release()
	w.sem.Down()
	l.Acquire()
}

// Signal() wakes the highest-priority thread waiting on c, if any.  The
// calling thread must hold l, and must not be in interrupt context.
func (c *Cond) Signal(l *Lock) {
	s := l.sem.mustInit()
	if s.InInterrupt() {
		panic("attempt to Signal a ksync.Cond in interrupt context")
	}
	if !l.HeldByCurrent() {
		panic("attempt to Signal a ksync.Cond without holding the Lock")
	}
	if i := c.waiters.MaxIndex(waiterLess); i >= 0 {
		c.waiters.RemoveAt(i).sem.Up()
	}
}

// Broadcast() wakes all threads waiting on c, best first.  The calling
// thread must hold l, and must not be in interrupt context.
func (c *Cond) Broadcast(l *Lock) {
	for !c.waiters.Empty() {
		c.Signal(l)
	}
}
