// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ksync_test

import "fmt"
import "testing"

import "v.io/x/ksched/ksync"
import "v.io/x/ksched/sched"

// ---------------------------

// A fifo represents a FIFO queue with up to limit elements, shared
// between simulation threads.
type fifo struct {
	limit    int         // max number of queued elements
	nonEmpty ksync.Cond  // signalled when len(data) becomes non-zero
	nonFull  ksync.Cond  // signalled when len(data) drops below limit
	lock     *ksync.Lock // protects data
	data     []int
}

// put() adds v to the end of the FIFO *q, waiting while the FIFO is full.
func (q *fifo) put(v int) {
	q.lock.Acquire()
	for len(q.data) == q.limit {
		q.nonFull.Wait(q.lock)
	}
	if len(q.data) == 0 {
		q.nonEmpty.Broadcast(q.lock)
	}
	q.data = append(q.data, v)
	q.lock.Release()
}

// get() removes the first value from the front of the FIFO *q, waiting
// while the FIFO is empty.
func (q *fifo) get() int {
	q.lock.Acquire()
	for len(q.data) == 0 {
		q.nonEmpty.Wait(q.lock)
	}
	if len(q.data) == q.limit {
		q.nonFull.Broadcast(q.lock)
	}
	v := q.data[0]
	q.data = q.data[1:]
	q.lock.Release()
	return v
}

// producerConsumerN is the number of elements passed from producer to
// consumer in the TestCondProducerConsumerX tests below.
const producerConsumerN = 10000

// producerConsumer() sends a stream of integers through a fifo with the
// given limit and checks they arrive in order.
func producerConsumer(t *testing.T, limit int) {
	s := sched.New()
	q := fifo{limit: limit, lock: ksync.NewLock(s)}
	s.Spawn("producer", sched.PriDefault, func() {
		for i := 0; i != producerConsumerN; i++ {
			q.put(i * 3)
		}
	})
	var bad bool
	s.Spawn("consumer", sched.PriDefault, func() {
		for i := 0; i != producerConsumerN; i++ {
			if got := q.get(); got != i*3 {
				bad = true
			}
		}
	})
	mustRun(t, s)
	if bad {
		t.Fatalf("consumer read values out of sequence")
	}
}

// TestCondProducerConsumer0() sends a stream of integers from a producer
// thread to a consumer thread via a fifo with limit 10**0.
func TestCondProducerConsumer0(t *testing.T) {
	producerConsumer(t, 1)
}

// TestCondProducerConsumer2() sends a stream of integers from a producer
// thread to a consumer thread via a fifo with limit 10**2.
func TestCondProducerConsumer2(t *testing.T) {
	producerConsumer(t, 100)
}

// ---------------------------

// TestCondSignalPriority parks three waiters and checks each Signal
// wakes the best one still queued.
func TestCondSignalPriority(t *testing.T) {
	s := sched.New()
	l := ksync.NewLock(s)
	var c ksync.Cond // a zero Cond must be usable
	var order []string
	released := 0
	waiter := func(name string) func() {
		return func() {
			l.Acquire()
			for released == 0 {
				c.Wait(l)
			}
			released--
			order = append(order, name)
			l.Release()
		}
	}
	s.Spawn("main", sched.PriDefault-5, func() {
		s.Spawn("high", sched.PriDefault+2, waiter("high"))
		s.Spawn("mid", sched.PriDefault+1, waiter("mid"))
		s.Spawn("low", sched.PriDefault, waiter("low"))
		for i := 0; i != 3; i++ {
			l.Acquire()
			released++
			c.Signal(l)
			l.Release()
		}
	})
	mustRun(t, s)
	for i, want := range []string{"high", "mid", "low"} {
		if order[i] != want {
			t.Fatalf("wake order %d: want %q, got %q (full order %v)", i, want, order[i], order)
		}
	}
}

// TestCondSignalFIFOOnTie checks equal-priority waiters are signalled in
// the order they queued.
func TestCondSignalFIFOOnTie(t *testing.T) {
	s := sched.New()
	l := ksync.NewLock(s)
	var c ksync.Cond
	var order []string
	released := 0
	waiter := func(name string) func() {
		return func() {
			l.Acquire()
			for released == 0 {
				c.Wait(l)
			}
			released--
			order = append(order, name)
			l.Release()
		}
	}
	s.Spawn("main", sched.PriDefault-5, func() {
		s.Spawn("a", sched.PriDefault, waiter("a"))
		s.Spawn("b", sched.PriDefault, waiter("b"))
		s.Spawn("c", sched.PriDefault, waiter("c"))
		for i := 0; i != 3; i++ {
			l.Acquire()
			released++
			c.Signal(l)
			l.Release()
		}
	})
	mustRun(t, s)
	if fmt.Sprint(order) != fmt.Sprint([]string{"a", "b", "c"}) {
		t.Fatalf("wake order: want [a b c], got %v", order)
	}
}

// TestCondSignalRanksAtSignalTime raises a queued waiter's priority by
// donation after it queued, and checks Signal judges standing at signal
// time rather than at enqueue time.
func TestCondSignalRanksAtSignalTime(t *testing.T) {
	s := sched.New()
	l := ksync.NewLock(s)
	l2 := ksync.NewLock(s)
	var c ksync.Cond
	var order []string
	released := 0
	s.Spawn("main", sched.PriDefault-5, func() {
		s.Spawn("w2", sched.PriDefault+1, func() {
			l.Acquire()
			for released == 0 {
				c.Wait(l)
			}
			released--
			order = append(order, "w2")
			l.Release()
		})
		s.Spawn("w1", sched.PriDefault, func() {
			l2.Acquire()
			l.Acquire()
			for released == 0 {
				c.Wait(l)
			}
			released--
			order = append(order, "w1")
			l.Release()
			l2.Release()
		})
		s.Spawn("donor", sched.PriDefault+5, func() {
			l2.Acquire()
			order = append(order, "donor")
			l2.Release()
		})
		// w2 queued first with the higher base priority, but the
		// donation w1 received through l2 must win the first Signal.
		for i := 0; i != 2; i++ {
			l.Acquire()
			released++
			c.Signal(l)
			l.Release()
		}
	})
	mustRun(t, s)
	want := []string{"w1", "donor", "w2"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Fatalf("wake order: want %v, got %v", want, order)
	}
}

// TestCondBroadcast wakes every waiter at once and checks they drain
// best first.
func TestCondBroadcast(t *testing.T) {
	s := sched.New()
	l := ksync.NewLock(s)
	var c ksync.Cond
	var order []string
	released := 0
	waiter := func(name string) func() {
		return func() {
			l.Acquire()
			for released == 0 {
				c.Wait(l)
			}
			released--
			order = append(order, name)
			l.Release()
		}
	}
	s.Spawn("main", sched.PriDefault-5, func() {
		s.Spawn("c1", sched.PriDefault, waiter("c1"))
		s.Spawn("c2", sched.PriDefault+1, waiter("c2"))
		s.Spawn("c3", sched.PriDefault+2, waiter("c3"))
		l.Acquire()
		released = 3
		c.Broadcast(l)
		l.Release()
	})
	mustRun(t, s)
	want := []string{"c3", "c2", "c1"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Fatalf("wake order: want %v, got %v", want, order)
	}
}

// ---------------------------

// TestCondMisusePanics checks the fail-fasts on unheld locks and
// interrupt context.
func TestCondMisusePanics(t *testing.T) {
	s := sched.New()
	l := ksync.NewLock(s)
	var c ksync.Cond
	var msgs []interface{}
	s.Spawn("main", sched.PriDefault, func() {
		msgs = append(msgs, recovered(func() { c.Wait(l) }))
		msgs = append(msgs, recovered(func() { c.Signal(l) }))
		l.Acquire()
		s.Interrupt(func() {
			msgs = append(msgs, recovered(func() { c.Wait(l) }))
		})
		s.Yield() // delivery point for the posted interrupt
		l.Release()
	})
	mustRun(t, s)
	want := []string{
		"attempt to Wait on a ksync.Cond without holding the Lock",
		"attempt to Signal a ksync.Cond without holding the Lock",
		"attempt to Wait on a ksync.Cond in interrupt context",
	}
	if len(msgs) != len(want) {
		t.Fatalf("panic count: want %d, got %d (%v)", len(want), len(msgs), msgs)
	}
	for i := range want {
		if got, _ := msgs[i].(string); got != want[i] {
			t.Fatalf("panic %d: want %q, got %v", i, want[i], msgs[i])
		}
	}
}
