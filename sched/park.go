// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

// A parkSem is a binary semaphore; it can have values 0 and 1.  Every
// thread goroutine parks on its own parkSem whenever it does not own the
// virtual CPU, and the CPU is handed from thread to thread by a V on the
// successor's semaphore.  The channel operations also order all of the
// plain scheduler state written by the old owner before it is read by the
// new one.
type parkSem struct {
	ch chan struct{}
}

// Init initializes parkSem *s; the initial value is 0.
func (s *parkSem) Init() {
	s.ch = make(chan struct{}, 1)
}

// P waits until the count of semaphore *s is 1 and decrements the count
// to 0.
func (s *parkSem) P() {
	<-s.ch
}

// V ensures that the semaphore count of *s is 1.
func (s *parkSem) V() {
	select {
	case s.ch <- struct{}{}:
	default: // Don't block if the semaphore count is already 1.
	}
}
