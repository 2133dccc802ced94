// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sched simulates a uniprocessor kernel scheduler: threads with
// priorities, blocking and wakeup, interrupt masking with pending
// delivery, timer ticks and time slices, and the donation walk used by
// priority inheritance.  It is the scheduling substrate the ksync
// primitives are built on.
//
// Threads are goroutines, but a single virtual CPU is handed explicitly
// from one to the next, so thread code runs strictly one at a time and a
// disabled interrupt mask gives the same atomicity it gives a kernel.
// Selection is by priority; ties go to the thread that has waited
// longest.  A woken thread never preempts its waker: wakers that find
// themselves outranked yield explicitly, and interrupt handlers request
// a yield for when the interrupted thread unmasks.
package sched

import (
	"fmt"

	uatomic "go.uber.org/atomic"

	"v.io/x/ksched/deadlock"
	"v.io/x/ksched/trace"
	"v.io/x/ksched/waitq"
)

// Opt is the interface for optional Sched configuration.
type Opt interface {
	SchedOpt()
}

// TimeSlice sets how many timer ticks a thread runs before the timer
// interrupt requests a yield.  The default is DefaultTimeSlice.
type TimeSlice int

// ExternalInterrupts declares that interrupts will be posted by
// goroutines outside the simulation; an idle scheduler then waits for
// them instead of declaring the simulation stuck.
type ExternalInterrupts bool

// TraceLogger sets the logger for the scheduler's event trace.
type TraceLogger struct{ Logger *trace.Logger }

func (TimeSlice) SchedOpt()          {}
func (ExternalInterrupts) SchedOpt() {}
func (TraceLogger) SchedOpt()        {}

// A Sched is one simulated machine: a thread arena, a ready queue, an
// interrupt mask, and a timer.  Create one with New, add threads with
// Spawn, then call Run.
type Sched struct {
	tr        *trace.Logger
	timeSlice int
	extIntr   bool

	// Simulation state, touched only from simulation context.  The park
	// handoff orders these accesses across goroutines.
	threads      []*Thread // arena; ThreadID indexes it
	current      *Thread   // nil while idle
	ready        waitq.Q[ThreadID]
	live         int
	masked       bool
	inISR        bool
	yieldPending bool
	sliceTicks   int

	ticks     int64
	idleTicks int64
	switches  int64
	spawned   int

	onTick  []func()
	sources []TickSource

	// Pending interrupt posts, shared with outside goroutines.
	postLock uatomic.Uint32
	posted   []func()
	idleSem  parkSem

	started  bool
	finished bool
	err      error
	done     chan struct{}
}

// New creates a scheduler with no threads.  Spawn at least one thread,
// then call Run.
func New(opts ...Opt) *Sched {
	s := &Sched{
		tr:        trace.Log,
		timeSlice: DefaultTimeSlice,
		done:      make(chan struct{}),
	}
	s.idleSem.Init()
	for _, o := range opts {
		switch v := o.(type) {
		case TimeSlice:
			if v < 1 {
				panic("sched: TimeSlice must be at least 1")
			}
			s.timeSlice = int(v)
		case ExternalInterrupts:
			s.extIntr = bool(v)
		case TraceLogger:
			s.tr = v.Logger
		}
	}
	return s
}

// Spawn creates a thread that will run body at the given priority.  It
// may be called before Run to seed the simulation (not concurrently), or
// later from simulation context.  A running thread that spawns a
// higher-priority thread yields to it; from interrupt context the yield
// is deferred until the interrupted thread unmasks.
func (s *Sched) Spawn(name string, priority int, body func()) *Thread {
	if priority < PriMin || priority > PriMax {
		panic(fmt.Sprintf("sched: Spawn %q with priority %d outside [%d, %d]", name, priority, PriMin, PriMax))
	}
	if body == nil {
		panic("sched: Spawn with nil body")
	}
	if !s.started {
		t := s.newThread(name, priority, body)
		go t.main()
		return t
	}
	prev := s.DisableInterrupts()
	t := s.newThread(name, priority, body)
	go t.main()
	if cur := s.current; cur != nil && t.priority > cur.priority {
		if s.inISR {
			s.yieldPending = true
		} else {
			s.yieldLocked()
		}
	}
	s.RestoreInterrupts(prev)
	return t
}

func (s *Sched) newThread(name string, priority int, body func()) *Thread {
	t := &Thread{
		id:       ThreadID(len(s.threads)),
		name:     name,
		s:        s,
		body:     body,
		state:    StateReady,
		base:     priority,
		priority: priority,
	}
	t.park.Init()
	s.threads = append(s.threads, t)
	s.live++
	s.spawned++
	s.ready.PushBack(t.id)
	s.tr.VI(1).Infof("spawn %v pri=%d", t, priority)
	return t
}

// Run hands the CPU to the highest-priority thread and blocks until every
// thread has exited.  It returns an error if the simulation got stuck,
// with a waits-for cycle report when a deadlock cycle exists.
func (s *Sched) Run() error {
	if s.started {
		panic("sched: Run called twice")
	}
	if len(s.threads) == 0 {
		panic("sched: Run with no threads")
	}
	s.started = true
	s.tr.VI(1).Infof("run: %d threads", len(s.threads))
	s.masked = true
	s.switchNext(nil)
	<-s.done
	return s.err
}

// Current returns the running thread.  In an interrupt handler it is the
// interrupted thread, or nil when the interrupt arrived while the
// scheduler was idle.
func (s *Sched) Current() *Thread {
	return s.current
}

// Thread returns the thread with the given arena handle.
func (s *Sched) Thread(id ThreadID) *Thread {
	if id < 0 || int(id) >= len(s.threads) {
		panic(fmt.Sprintf("sched: no thread with id %d", id))
	}
	return s.threads[id]
}

// Block suspends the current thread until Unblock makes it runnable
// again.  Must be called with interrupts disabled: the mask is what makes
// deciding to sleep and sleeping atomic.  The mask is handed over to the
// next thread, and is still in place when the blocked thread resumes.
func (s *Sched) Block() {
	s.mustMasked("Block")
	s.mustThread("Block")
	t := s.current
	t.state = StateBlocked
	s.tr.VI(2).Infof("block %v", t)
	s.switchNext(t)
}

// Unblock makes t runnable.  It never preempts: a waker that should
// stand aside yields explicitly afterwards.  Must be called with
// interrupts disabled; safe from interrupt context.
func (s *Sched) Unblock(t *Thread) {
	s.mustMasked("Unblock")
	if t == nil {
		panic("sched: Unblock of nil thread")
	}
	if t.state != StateBlocked {
		panic(fmt.Sprintf("sched: Unblock of %s thread %v", t.state, t))
	}
	t.state = StateReady
	s.ready.PushBack(t.id)
	s.tr.VI(2).Infof("unblock %v pri=%d", t, t.priority)
}

// Yield surrenders the CPU while staying runnable.  The caller competes
// for the CPU again immediately, behind equal-priority threads already
// waiting.
func (s *Sched) Yield() {
	prev := s.DisableInterrupts()
	s.mustThread("Yield")
	s.yieldLocked()
	s.RestoreInterrupts(prev)
}

// yieldLocked is Yield with interrupts already disabled.
func (s *Sched) yieldLocked() {
	t := s.current
	t.state = StateReady
	s.ready.PushBack(t.id)
	s.switchNext(t)
}

// Exit ends the calling thread without running the rest of its body.
// Deferred functions in the body still run, while the thread still owns
// the CPU.
func (s *Sched) Exit() {
	s.mustThread("Exit")
	panic(exitSignal{})
}

// exitCurrent retires the current thread and hands the CPU on.  It
// returns to the thread's goroutine shell, which touches no simulation
// state afterwards.
func (s *Sched) exitCurrent() {
	s.DisableInterrupts()
	t := s.current
	t.state = StateDying
	s.live--
	s.tr.VI(1).Infof("exit %v after %d ticks", t, t.ticksRun)
	s.switchNext(nil)
}

// SetPriority changes the calling thread's base priority.  The effective
// priority is recomputed against any donations still held, and the
// thread yields if some ready thread now outranks it.
func (s *Sched) SetPriority(priority int) {
	if priority < PriMin || priority > PriMax {
		panic(fmt.Sprintf("sched: SetPriority %d outside [%d, %d]", priority, PriMin, PriMax))
	}
	prev := s.DisableInterrupts()
	s.mustThread("SetPriority")
	t := s.current
	t.base = priority
	t.RecomputePriority()
	if i := s.ready.MaxIndex(s.threadLess); i >= 0 && s.threads[s.ready.At(i)].priority > t.priority {
		s.yieldLocked()
	}
	s.RestoreInterrupts(prev)
}

// PropagateDonation walks from the current thread along waiting-on and
// holder edges, raising each holder to at least the current thread's
// effective priority.  A holder is raised before its own edge is
// followed, so one walk resolves a whole chain; the walk stops after
// donationDepth edges.  Must be called with interrupts disabled; from
// interrupt context it walks the interrupted thread's chain.
func (s *Sched) PropagateDonation() {
	s.mustMasked("PropagateDonation")
	t := s.current
	if t == nil {
		return
	}
	for depth := 0; depth < donationDepth; depth++ {
		b := t.waitingOn
		if b == nil {
			return
		}
		h := b.Holder()
		if h == nil {
			return
		}
		if h.priority < t.priority {
			s.tr.VI(2).Infof("donate pri=%d %v -> %v", t.priority, t, h)
			h.priority = t.priority
		}
		t = h
	}
}

// switchNext hands the CPU to the next runnable thread.  Called with
// interrupts disabled.  A non-nil prev is the thread giving up the CPU;
// the call returns when prev is scheduled again.  With a nil prev (the
// Run bootstrap, or a dying thread) the call returns right after the
// handoff.
func (s *Sched) switchNext(prev *Thread) {
	s.current = nil
	next := s.pickNext()
	if next == nil {
		// The run is over.  A caller that still has a thread parks for
		// good; its goroutine is abandoned with the simulation.
		if prev != nil {
			s.haltForever()
		}
		return
	}
	next.state = StateRunning
	s.current = next
	s.sliceTicks = 0
	s.yieldPending = false
	if next == prev {
		return
	}
	s.switches++
	s.tr.VI(2).Infof("switch to %v pri=%d", next, next.priority)
	next.park.V()
	if prev == nil {
		return
	}
	prev.park.P()
}

// pickNext selects the highest-priority ready thread, FIFO among equals.
// When nothing is ready it delivers pending interrupts, advances virtual
// time, or waits for external interrupts, in that order; if none of those
// can make progress it finishes the run (cleanly when no threads remain,
// with an error otherwise) and returns nil.
func (s *Sched) pickNext() *Thread {
	for {
		if i := s.ready.MaxIndex(s.threadLess); i >= 0 {
			return s.threads[s.ready.RemoveAt(i)]
		}
		if s.live == 0 {
			s.finishRun(nil)
			return nil
		}
		if s.deliverPendingLocked() {
			continue
		}
		if wake, ok := s.earliestWake(); ok {
			s.advanceTo(wake)
			continue
		}
		if s.extIntr {
			s.tr.VI(2).Infof("idle: waiting for external interrupts")
			s.idleSem.P()
			continue
		}
		s.failDeadlock()
		return nil
	}
}

func (s *Sched) finishRun(err error) {
	if s.finished {
		return
	}
	s.finished = true
	s.err = err
	s.tr.VI(1).Infof("run done: switches=%d ticks=%d idle=%d", s.switches, s.ticks, s.idleTicks)
	close(s.done)
}

// failDeadlock finishes the run with an error describing why nothing can
// run, including the waits-for cycle when there is one.
func (s *Sched) failDeadlock() {
	var g deadlock.Graph[*Thread]
	blocked := 0
	for _, t := range s.threads {
		if t.state != StateBlocked {
			continue
		}
		blocked++
		if b := t.waitingOn; b != nil {
			if h := b.Holder(); h != nil {
				g.AddEdge(t, h)
				continue
			}
		}
		g.AddNode(t)
	}
	var err error
	if cycles := g.Cycles(); len(cycles) > 0 {
		err = fmt.Errorf("sched: deadlock, %d threads blocked, cycle %s",
			blocked, deadlock.FormatCycles(cycles, (*Thread).String))
	} else {
		err = fmt.Errorf("sched: stuck, %d threads blocked and none runnable", blocked)
	}
	s.tr.Errorf("%v", err)
	s.finishRun(err)
}

// haltForever parks the calling goroutine for good; used for a thread
// whose simulation has ended underneath it.
func (s *Sched) haltForever() {
	var dead parkSem
	dead.Init()
	dead.P()
}

// Stats is a snapshot of scheduler counters, in the spirit of a kernel's
// shutdown statistics line.
type Stats struct {
	Ticks     int64 // timer ticks fired
	IdleTicks int64 // ticks with no thread running
	Switches  int64 // context switches
	Spawned   int   // threads created
}

// Stats returns the scheduler counters.  Call from simulation context,
// or after Run has returned.
func (s *Sched) Stats() Stats {
	return Stats{Ticks: s.ticks, IdleTicks: s.idleTicks, Switches: s.switches, Spawned: s.spawned}
}

func (s *Sched) threadLess(a, b ThreadID) bool {
	return s.threads[a].priority < s.threads[b].priority
}

// threadMore orders higher priorities first; donor lists are kept in
// this order.
func (s *Sched) threadMore(a, b ThreadID) bool {
	return s.threads[a].priority > s.threads[b].priority
}

func (s *Sched) mustMasked(op string) {
	if !s.masked {
		panic("sched: " + op + " with interrupts enabled")
	}
}

func (s *Sched) mustThread(op string) {
	if s.inISR || s.current == nil {
		panic("sched: " + op + " requires thread context")
	}
}
