// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ksync

import (
	"v.io/x/ksched/sched"
)

// A Lock is a mutual-exclusion lock.  It is held by at most one thread at
// a time, it is not recursive, and a blocked acquirer donates its
// priority to the holder until the lock changes hands.
//
// A Lock wraps a one-permit Semaphore; what the Lock adds over the bare
// semaphore is an owner, and the donation bookkeeping that needs one.  A
// zero Lock is not ready for use: Init binds it to a scheduler.
type Lock struct {
	holder *sched.Thread
	sem    Semaphore
}

var _ sched.Blocker = (*Lock)(nil)

// NewLock returns an unheld lock bound to s.
func NewLock(s *sched.Sched) *Lock {
	l := new(Lock)
	l.Init(s)
	return l
}

// Init() initializes the lock, unheld, binding it to scheduler s.
func (l *Lock) Init(s *sched.Sched) {
	l.holder = nil
	l.sem.Init(s, 1)
}

// Holder() returns the thread currently holding the lock, or nil if it is
// free.  This is what lets a scheduler follow a chain of waiting threads.
func (l *Lock) Holder() *sched.Thread {
	return l.holder
}

// HeldByCurrent() reports whether the calling thread holds the lock.
func (l *Lock) HeldByCurrent() bool {
	s := l.sem.mustInit()
	return l.holder != nil && l.holder == s.Current()
}

// AssertHeld() panics if the calling thread does not hold the lock.
func (l *Lock) AssertHeld() {
	if !l.HeldByCurrent() {
		panic("ksync.Lock not held")
	}
}

// Acquire() waits until the lock is free and takes it.  If the lock is
// held, the caller records the lock it waits on and enters the holder's
// donor list before sleeping, so the holder runs at the caller's priority
// until it releases.  Acquire must not be called from interrupt context,
// and the caller must not already hold the lock.
func (l *Lock) Acquire() {
	s := l.sem.mustInit()
	if s.InInterrupt() {
		panic("attempt to Acquire a ksync.Lock in interrupt context")
	}
	if l.HeldByCurrent() {
		panic("attempt to Acquire a ksync.Lock the caller already holds")
	}
	prev := s.DisableInterrupts()
	cur := s.Current()
	if h := l.holder; h != nil {
		cur.SetWaitingOn(l)
		h.AddDonor(cur)
	}
	l.sem.Down()
	cur.SetWaitingOn(nil)
	l.holder = cur
	s.RestoreInterrupts(prev)
}

// TryAcquire() takes the lock if it is free, without waiting, and reports
// whether it succeeded.  The caller must not already hold the lock.  From
// interrupt context a successful TryAcquire records the interrupted
// thread as holder.
func (l *Lock) TryAcquire() bool {
	s := l.sem.mustInit()
	if l.HeldByCurrent() {
		panic("attempt to TryAcquire a ksync.Lock the caller already holds")
	}
	prev := s.DisableInterrupts()
	ok := l.sem.TryDown()
	if ok {
		cur := s.Current()
		if cur == nil {
			panic("attempt to TryAcquire a ksync.Lock with no running thread")
		}
		cur.SetWaitingOn(nil)
		l.holder = cur
	}
	s.RestoreInterrupts(prev)
	return ok
}

// Release() releases the lock, which the calling thread must hold.  The
// holder sheds the donations it collected for this lock, drops back to
// the best of its base priority and its remaining donations, and wakes
// the highest-priority waiter; if the woken thread outranks the caller,
// the caller yields to it.
func (l *Lock) Release() {
	s := l.sem.mustInit()
	if l.holder == nil {
		panic("attempt to Release a free ksync.Lock")
	}
	if !l.HeldByCurrent() {
		panic("attempt to Release a ksync.Lock held by another thread")
	}
	prev := s.DisableInterrupts()
	cur := s.Current()
	l.holder = nil
	cur.DropDonorsWaitingOn(l)
	cur.RecomputePriority()
	l.sem.Up()
	s.RestoreInterrupts(prev)
}
