// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import (
	"runtime"

	uatomic "go.uber.org/atomic"
)

// spinDelay is used in spinloops to delay resumption of the loop.
// Usage:
//     var attempts uint
//     for try_something {
//        attempts = spinDelay(attempts)
//     }
func spinDelay(attempts uint) uint {
	if attempts < 7 {
		for i := 0; i != 1<<attempts; i++ {
		}
		attempts++
	} else {
		runtime.Gosched()
	}
	return attempts
}

// spinTestAndSet spins until (w & test) == 0.  It then atomically performs
// w |= set and returns the previous value of w.
func spinTestAndSet(w *uatomic.Uint32, test uint32, set uint32) uint32 {
	var attempts uint
	old := w.Load()
	for (old&test) != 0 || !w.CompareAndSwap(old, old|set) {
		attempts = spinDelay(attempts)
		old = w.Load()
	}
	return old
}
