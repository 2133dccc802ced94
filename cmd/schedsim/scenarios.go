// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"v.io/x/ksched/alarm"
	"v.io/x/ksched/ksync"
	"v.io/x/ksched/sched"
)

// Each scenario seeds a scheduler with threads and returns; the caller
// runs the simulation.  Scenarios print what happens, so their output
// doubles as a readable trace of the scheduling rules.
var scenarios = map[string]func(*sched.Sched){
	"pingpong":        scenarioPingPong,
	"donate":          scenarioDonate,
	"donate-multiple": scenarioDonateMultiple,
	"donate-chain":    scenarioDonateChain,
	"condvar":         scenarioCondvar,
	"alarm":           scenarioAlarm,
	"slice":           scenarioSlice,
}

// scenarioPingPong bounces control between two equal-priority threads
// through a pair of zero-valued semaphores.
func scenarioPingPong(s *sched.Sched) {
	var sema [2]ksync.Semaphore
	sema[0].Init(s, 0)
	sema[1].Init(s, 0)
	const rounds = 10
	s.Spawn("main", sched.PriDefault, func() {
		s.Spawn("helper", sched.PriDefault, func() {
			for i := 0; i != rounds; i++ {
				sema[0].Down()
				fmt.Printf("helper: pong %d\n", i)
				sema[1].Up()
			}
		})
		for i := 0; i != rounds; i++ {
			fmt.Printf("main: ping %d\n", i)
			sema[0].Up()
			sema[1].Down()
		}
		fmt.Println("pingpong: ok")
	})
}

// scenarioDonate shows a single donation: a high acquirer lends its
// priority to the low thread holding the lock.
func scenarioDonate(s *sched.Sched) {
	l := ksync.NewLock(s)
	s.Spawn("low", sched.PriDefault, func() {
		l.Acquire()
		fmt.Printf("low: holding the lock at priority %d\n", s.Current().Priority())
		s.Spawn("high", sched.PriDefault+10, func() {
			l.Acquire()
			fmt.Println("high: got the lock")
			l.Release()
		})
		fmt.Printf("low: donated up to priority %d\n", s.Current().Priority())
		l.Release()
		fmt.Printf("low: back to priority %d\n", s.Current().Priority())
	})
}

// scenarioDonateMultiple donates to one holder through two locks, and
// releases shed one donation at a time.
func scenarioDonateMultiple(s *sched.Sched) {
	a := ksync.NewLock(s)
	b := ksync.NewLock(s)
	s.Spawn("low", sched.PriDefault, func() {
		a.Acquire()
		b.Acquire()
		s.Spawn("mid", sched.PriDefault+5, func() {
			a.Acquire()
			fmt.Println("mid: got lock a")
			a.Release()
		})
		s.Spawn("high", sched.PriDefault+10, func() {
			b.Acquire()
			fmt.Println("high: got lock b")
			b.Release()
		})
		fmt.Printf("low: holding both locks at priority %d\n", s.Current().Priority())
		b.Release()
		fmt.Printf("low: released b, priority %d\n", s.Current().Priority())
		a.Release()
		fmt.Printf("low: released a, priority %d\n", s.Current().Priority())
	})
}

// scenarioDonateChain builds a chain of eight lock holders; the donation
// walk carries the last link's priority all the way to the first.
func scenarioDonateChain(s *sched.Sched) {
	const n = 8
	var locks [n]*ksync.Lock
	for i := range locks {
		locks[i] = ksync.NewLock(s)
	}
	gate := ksync.NewSemaphore(s, 0)
	var links [n]*sched.Thread
	s.Spawn("boot", sched.PriDefault-20, func() {
		for i := 0; i != n; i++ {
			i := i
			links[i] = s.Spawn(fmt.Sprintf("link%d", i), sched.PriDefault-10+i, func() {
				locks[i].Acquire()
				if i == 0 {
					gate.Down()
				} else {
					locks[i-1].Acquire()
					locks[i-1].Release()
				}
				locks[i].Release()
				fmt.Printf("link%d: done\n", i)
			})
		}
		for i := 0; i != n; i++ {
			fmt.Printf("link%d: priority %d (base %d)\n", i, links[i].Priority(), links[i].BasePriority())
		}
		gate.Up()
	})
}

// scenarioCondvar signals a condition variable with four waiters; they
// wake best first.
func scenarioCondvar(s *sched.Sched) {
	l := ksync.NewLock(s)
	var c ksync.Cond
	ready := 0
	const n = 4
	s.Spawn("boot", sched.PriDefault-10, func() {
		for i := 0; i != n; i++ {
			i := i
			s.Spawn(fmt.Sprintf("waiter%d", i), sched.PriDefault+i, func() {
				l.Acquire()
				for ready == 0 {
					c.Wait(l)
				}
				ready--
				fmt.Printf("waiter%d: woke\n", i)
				l.Release()
			})
		}
		for i := 0; i != n; i++ {
			l.Acquire()
			ready++
			c.Signal(l)
			l.Release()
		}
	})
}

// scenarioAlarm sleeps three threads; the idle scheduler jumps the clock
// from one wake tick to the next.
func scenarioAlarm(s *sched.Sched) {
	a := alarm.New(s)
	for _, d := range []int64{30, 10, 20} {
		d := d
		s.Spawn(fmt.Sprintf("sleep%d", d), sched.PriDefault, func() {
			a.Sleep(d)
			fmt.Printf("sleep%d: woke at tick %d\n", d, s.Ticks())
		})
	}
}

// scenarioSlice runs two busy threads that never yield; the timer slices
// the CPU between them.
func scenarioSlice(s *sched.Sched) {
	stop := false
	worker := func(name string) func() {
		return func() {
			n := 0
			for !stop {
				s.Tick()
				s.RestoreInterrupts(s.DisableInterrupts())
				n++
				if n == 12 {
					stop = true
				}
			}
			fmt.Printf("%s: stopped after %d steps at tick %d\n", name, n, s.Ticks())
		}
	}
	s.Spawn("spin-a", sched.PriDefault, worker("spin-a"))
	s.Spawn("spin-b", sched.PriDefault, worker("spin-b"))
}
