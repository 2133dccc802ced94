// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package waitq implements the insertion-ordered queues used by the
// scheduler and the synchronization primitives: ready queues, semaphore
// waiter lists, donation lists and sleeper lists.
//
// A Q preserves insertion order.  Selection is done by scanning, not by
// keeping the queue sorted, so entries whose ranking criteria change while
// queued (a donated priority, for example) are still selected correctly.
// MaxIndex resolves ties in favor of the earliest insertion, which gives
// FIFO behavior among equals.
package waitq

import (
	"github.com/gammazero/deque"
)

// Q is an insertion-ordered queue.  The zero value is an empty queue ready
// for use.  A Q is not safe for concurrent use; callers serialize access,
// typically by holding the scheduler's interrupt mask.
type Q[T any] struct {
	d deque.Deque[T]
}

// Len returns the number of queued elements.
func (q *Q[T]) Len() int { return q.d.Len() }

// Empty reports whether the queue has no elements.
func (q *Q[T]) Empty() bool { return q.d.Len() == 0 }

// PushBack appends v to the back of the queue.
func (q *Q[T]) PushBack(v T) { q.d.PushBack(v) }

// Front returns the element at the front of the queue.  It panics if the
// queue is empty.
func (q *Q[T]) Front() T { return q.d.Front() }

// PopFront removes and returns the element at the front of the queue.  It
// panics if the queue is empty.
func (q *Q[T]) PopFront() T { return q.d.PopFront() }

// At returns the i'th element without removing it.
func (q *Q[T]) At(i int) T { return q.d.At(i) }

// RemoveAt removes and returns the i'th element.
func (q *Q[T]) RemoveAt(i int) T { return q.d.Remove(i) }

// Clear removes all elements.
func (q *Q[T]) Clear() { q.d.Clear() }

// InsertSorted inserts v into a queue ordered by less, where less(a, b)
// means a sorts before b.  v is placed before the first element it sorts
// before, so among equals it lands after the existing ones; insertion is
// stable.  The queue must already be ordered by less.
func (q *Q[T]) InsertSorted(v T, less func(a, b T) bool) {
	n := q.d.Len()
	i := 0
	for ; i < n; i++ {
		if less(v, q.d.At(i)) {
			break
		}
	}
	q.d.Insert(i, v)
}

// MaxIndex returns the index of the maximum element under less, scanning
// front to back.  An element replaces the running maximum only when it is
// strictly greater, so the earliest of several maxima wins.  It returns -1
// if the queue is empty.
func (q *Q[T]) MaxIndex(less func(a, b T) bool) int {
	n := q.d.Len()
	if n == 0 {
		return -1
	}
	max := 0
	for i := 1; i < n; i++ {
		if less(q.d.At(max), q.d.At(i)) {
			max = i
		}
	}
	return max
}

// RemoveFunc removes every element for which pred returns true, preserving
// the order of the rest.  It returns the number of elements removed.
func (q *Q[T]) RemoveFunc(pred func(T) bool) int {
	removed := 0
	i := 0
	for i < q.d.Len() {
		if pred(q.d.At(i)) {
			q.d.Remove(i)
			removed++
		} else {
			i++
		}
	}
	return removed
}
