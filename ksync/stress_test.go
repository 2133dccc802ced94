// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ksync_test

import "fmt"
import "math/rand"
import "testing"

import "golang.org/x/sync/errgroup"

import "v.io/x/ksched/ksync"
import "v.io/x/ksched/sched"

// stressSim() runs one randomized simulation: a handful of threads
// hammer a shared counter through a permit pool and a lock, re-rolling
// their own priority each round and yielding at random points.  The
// re-rolls make acquirers outrank holders often enough to push donations
// through.  The final tally must balance regardless of the schedule.
func stressSim(seed int64) error {
	const nThreads = 8
	const rounds = 200
	rng := rand.New(rand.NewSource(seed))
	s := sched.New()
	l := ksync.NewLock(s)
	pool := ksync.NewSemaphore(s, 3)
	roll := func() int {
		return sched.PriMin + rng.Intn(sched.PriMax-sched.PriMin+1)
	}
	var count int
	for i := 0; i != nThreads; i++ {
		s.Spawn(fmt.Sprintf("worker%d", i), roll(), func() {
			// rng is shared without a lock: only one thread of the
			// simulation ever runs at a time.
			for r := 0; r != rounds; r++ {
				s.SetPriority(roll())
				pool.Down()
				l.Acquire()
				count++
				if rng.Intn(4) == 0 {
					s.Yield()
				}
				l.Release()
				pool.Up()
			}
		})
	}
	if err := s.Run(); err != nil {
		return err
	}
	if count != nThreads*rounds {
		return fmt.Errorf("seed %d count: want %d, got %d", seed, nThreads*rounds, count)
	}
	return nil
}

// TestStressSeeds runs independent randomized simulations, each on its
// own scheduler, in parallel with each other.
func TestStressSeeds(t *testing.T) {
	var g errgroup.Group
	for seed := int64(0); seed != 16; seed++ {
		seed := seed
		g.Go(func() error {
			return stressSim(seed)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("stress: %v", err)
	}
}
