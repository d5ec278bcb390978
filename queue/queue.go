// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package queue provides an unbounded, intrusive, multi-producer
// single-consumer queue of [closure.Closure] values.
//
// Unlike the bounded queues in package bq, this queue never blocks a
// producer: Push takes no lock and always succeeds, at the cost of a
// transient "inconsistent" state observable by the single consumer
// immediately after a push races with a pop. This is the classic
// Vyukov intrusive MPSC design, and is the structure the combiner uses
// to enroll closures without ever taking a lock.
package queue

import (
	"unsafe"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/combiner/backoff"
	"code.hybscloud.com/combiner/closure"
)

// Queue is an unbounded MPSC (multi-producer, single-consumer) queue of
// closures. The zero value is not usable; construct with New.
type Queue struct {
	head atomix.Uintptr   // producer-side: uintptr of last node pushed
	stub closure.Closure  // permanent dummy node, never exposed to callers
	tail *closure.Closure // consumer-side only: next node to pop
}

// New returns an empty Queue ready for use.
func New() *Queue {
	q := &Queue{}
	q.head.StoreRelaxed(ptrToUintptr(&q.stub))
	q.tail = &q.stub
	return q
}

// Push enqueues cl. It always succeeds and is safe to call from any
// number of concurrent goroutines without coordination. Push is
// lock-free, not wait-free: it installs cl with a CAS retry loop on
// q.head, so a producer retries for as long as other producers keep
// winning the CAS.
//
// Returns true if the queue was observed empty before this push (the
// caller is the first to enqueue work and takes responsibility for
// scheduling a drain), matching the gRPC combiner's use of this signal
// to decide whether to schedule itself onto the executor.
func (q *Queue) Push(cl *closure.Closure) bool {
	cl.SetNodeNext(nil)
	newPtr := ptrToUintptr(cl)

	var prevPtr uintptr
	var sw backoff.Spin
	for {
		prevPtr = q.head.LoadAcquire()
		if q.head.CompareAndSwapAcqRel(prevPtr, newPtr) {
			break
		}
		sw.Retry()
	}

	prev := uintptrToPtr(prevPtr)
	wasEmpty := prev == &q.stub
	prev.SetNodeNext(cl)
	return wasEmpty
}

// Status is the outcome of a single Pop attempt.
type Status int

const (
	// Empty means there is no further work: the queue is caught up.
	Empty Status = iota
	// Inconsistent means a push is in progress and has not yet linked
	// its node to its predecessor; the caller should retry shortly.
	Inconsistent
	// Ready means a closure was successfully dequeued.
	Ready
)

// Pop attempts to dequeue the next closure. Must only be called from a
// single consumer goroutine at a time (the combiner's current drainer).
//
// On Inconsistent, the caller should briefly retry (e.g. via
// [code.hybscloud.com/combiner/backoff.Spin]): a racing producer has
// reserved its slot via the CAS in Push but has not yet written the
// predecessor's next pointer.
func (q *Queue) Pop() (*closure.Closure, Status) {
	tail := q.tail
	next := tail.NodeNext()

	if tail == &q.stub {
		if next == nil {
			return nil, Empty
		}
		q.tail = next
		tail = next
		next = tail.NodeNext()
	}

	if next != nil {
		q.tail = next
		return tail, Ready
	}

	if ptrToUintptr(tail) != q.head.LoadAcquire() {
		return nil, Inconsistent
	}

	q.Push(&q.stub)

	next = tail.NodeNext()
	if next != nil {
		q.tail = next
		return tail, Ready
	}
	return nil, Inconsistent
}

func ptrToUintptr(c *closure.Closure) uintptr {
	return uintptr(unsafe.Pointer(c))
}

func uintptrToPtr(p uintptr) *closure.Closure {
	return (*closure.Closure)(unsafe.Pointer(p))
}
