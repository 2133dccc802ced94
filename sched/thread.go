// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import (
	"fmt"

	"v.io/x/ksched/waitq"
)

// Thread priorities.  Higher values run first.
const (
	PriMin     = 0
	PriDefault = 31
	PriMax     = 63
)

// donationDepth bounds the number of resources a single donation walk
// follows.  Deeper chains still converge, because a blocked thread
// repeats the walk every time it retries its down.
const donationDepth = 8

// A ThreadID names a thread within its scheduler.  IDs are indices into
// the scheduler's thread arena; they are never reused, so an ID taken
// from a thread stays valid for the life of the simulation.
type ThreadID int32

// NoThread is a ThreadID held by no thread.
const NoThread ThreadID = -1

// State is the lifecycle state of a thread.
type State int32

const (
	StateReady   State = iota // runnable, waiting for the CPU
	StateRunning              // owns the CPU
	StateBlocked              // waiting on a resource or sleep
	StateDying                // body returned; never scheduled again
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateDying:
		return "dying"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// A Blocker is a resource a thread can be blocked acquiring while another
// thread holds it.  The donation chain walk follows Holder edges from a
// blocked thread to whoever is in its way, and deadlock diagnosis uses
// the same edges.  Holder returns nil for a resource nobody holds.
type Blocker interface {
	Holder() *Thread
}

// A Thread is one simulated kernel thread.  Threads are created with
// Sched.Spawn and run as goroutines, but only the one holding the virtual
// CPU executes at any moment; all Thread state below is therefore only
// touched from simulation context, almost always with interrupts
// disabled.
type Thread struct {
	id   ThreadID
	name string
	s    *Sched
	body func()
	park parkSem

	state State

	// base is the priority the thread was given (or set for itself);
	// priority is the effective priority including donations.
	base     int
	priority int

	// donors lists threads currently donating their priority to this
	// one, highest priority first at insertion time.  Selection scans,
	// so later priority changes are still honored.
	donors waitq.Q[ThreadID]

	// waitingOn is the resource this thread is blocked trying to
	// acquire, if any.  It is set before blocking and cleared once the
	// resource is secured.
	waitingOn Blocker

	ticksRun int64
}

// ID returns the thread's arena handle.
func (t *Thread) ID() ThreadID { return t.id }

// Name returns the name given at Spawn.
func (t *Thread) Name() string { return t.name }

func (t *Thread) String() string {
	return fmt.Sprintf("%s/%d", t.name, t.id)
}

// Priority returns the thread's effective priority, including any
// donations.
func (t *Thread) Priority() int { return t.priority }

// BasePriority returns the priority the thread last set for itself,
// ignoring donations.
func (t *Thread) BasePriority() int { return t.base }

// TicksRun returns how many timer ticks the thread has been charged for.
func (t *Thread) TicksRun() int64 { return t.ticksRun }

// WaitingOn returns the resource the thread is blocked acquiring, or nil.
func (t *Thread) WaitingOn() Blocker { return t.waitingOn }

// SetWaitingOn records the resource the thread is about to block on, or
// clears it with nil.  Must be called with interrupts disabled.
func (t *Thread) SetWaitingOn(b Blocker) {
	t.s.mustMasked("Thread.SetWaitingOn")
	t.waitingOn = b
}

// AddDonor records d as donating its priority to t, keeping the donor
// list ordered highest priority first.  Must be called with interrupts
// disabled.
func (t *Thread) AddDonor(d *Thread) {
	t.s.mustMasked("Thread.AddDonor")
	t.donors.InsertSorted(d.id, t.s.threadMore)
}

// DropDonorsWaitingOn removes every donor that is waiting on b.  A thread
// releasing a resource calls this to shed the donations it received for
// it.  Must be called with interrupts disabled.
func (t *Thread) DropDonorsWaitingOn(b Blocker) {
	t.s.mustMasked("Thread.DropDonorsWaitingOn")
	t.donors.RemoveFunc(func(id ThreadID) bool {
		return t.s.threads[id].waitingOn == b
	})
}

// RecomputePriority resets the thread's effective priority to its base,
// then raises it to the highest-priority remaining donor, if that is
// higher.  Must be called with interrupts disabled.
func (t *Thread) RecomputePriority() {
	t.s.mustMasked("Thread.RecomputePriority")
	p := t.base
	if i := t.donors.MaxIndex(t.s.threadLess); i >= 0 {
		if dp := t.s.threads[t.donors.At(i)].priority; dp > p {
			p = dp
		}
	}
	t.priority = p
}

// main is the goroutine body of every thread.  It waits to be scheduled
// for the first time, enables interrupts the way a freshly launched
// kernel thread does, runs the user body, and hands back the CPU.
func (t *Thread) main() {
	t.park.P()
	t.s.RestoreInterrupts(IntrOn)
	t.runBody()
	t.s.exitCurrent()
}

// exitSignal is panicked by Sched.Exit and swallowed here, so that an
// explicit exit still runs the body's deferred functions while the thread
// owns the CPU.
type exitSignal struct{}

func (t *Thread) runBody() {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(exitSignal); ok {
			return
		}
		panic(r)
	}()
	t.body()
}
