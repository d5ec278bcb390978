// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import (
	"testing"

	"code.hybscloud.com/combiner/closure"
)

func TestPopEmptyQueue(t *testing.T) {
	q := New()
	if _, status := q.Pop(); status != Empty {
		t.Fatalf("Pop on new queue = %v, want Empty", status)
	}
}

func TestPushPopFIFO(t *testing.T) {
	q := New()
	a := closure.New(func(any, error) {}, "a")
	b := closure.New(func(any, error) {}, "b")

	if wasEmpty := q.Push(a); !wasEmpty {
		t.Fatal("first push on empty queue should report wasEmpty=true")
	}
	if wasEmpty := q.Push(b); wasEmpty {
		t.Fatal("second push should report wasEmpty=false")
	}

	cl, status := q.Pop()
	if status != Ready || cl != a {
		t.Fatalf("Pop = (%v, %v), want (a, Ready)", cl, status)
	}
	cl, status = q.Pop()
	if status != Ready || cl != b {
		t.Fatalf("Pop = (%v, %v), want (b, Ready)", cl, status)
	}
	if _, status = q.Pop(); status != Empty {
		t.Fatalf("Pop on drained queue = %v, want Empty", status)
	}
}

// TestPopInconsistentDuringRacingPush reproduces, without relying on
// goroutine scheduling, the transient window Push leaves open: a second
// pusher has already reserved its slot via the CAS on q.head but has
// not yet run prev.SetNodeNext to link it to its predecessor. A Pop
// landing in that window must report Inconsistent rather than Empty or
// a torn read, and must resolve cleanly once the link completes.
func TestPopInconsistentDuringRacingPush(t *testing.T) {
	q := New()
	a := closure.New(func(any, error) {}, "a")
	b := closure.New(func(any, error) {}, "b")

	if wasEmpty := q.Push(a); !wasEmpty {
		t.Fatal("first push on empty queue should report wasEmpty=true")
	}

	// Perform only the CAS half of Push(b): reserve b's slot as the new
	// head, but withhold a.SetNodeNext(b), the link a racing pusher
	// would normally perform right after its own CAS.
	b.SetNodeNext(nil)
	prevPtr := q.head.LoadAcquire()
	if !q.head.CompareAndSwapAcqRel(prevPtr, ptrToUintptr(b)) {
		t.Fatal("CAS reserving b's slot should not fail: no concurrent pusher")
	}

	if _, status := q.Pop(); status != Inconsistent {
		t.Fatalf("Pop during unlinked push = %v, want Inconsistent", status)
	}

	// Complete the link a racing pusher withheld; the queue is
	// consistent again and draining resumes from where Pop left off.
	a.SetNodeNext(b)

	cl, status := q.Pop()
	if status != Ready || cl != a {
		t.Fatalf("Pop after link completes = (%v, %v), want (a, Ready)", cl, status)
	}
	cl, status = q.Pop()
	if status != Ready || cl != b {
		t.Fatalf("Pop = (%v, %v), want (b, Ready)", cl, status)
	}
	if _, status = q.Pop(); status != Empty {
		t.Fatalf("Pop on drained queue = %v, want Empty", status)
	}
}

func TestPopSingleItemUsesStubRepush(t *testing.T) {
	// With exactly one item ever pushed, Pop's stub re-push trick
	// (q.Push(&q.stub)) is what lets the single item be observed as
	// Ready instead of spuriously Inconsistent.
	q := New()
	a := closure.New(func(any, error) {}, "a")
	q.Push(a)

	cl, status := q.Pop()
	if status != Ready || cl != a {
		t.Fatalf("Pop = (%v, %v), want (a, Ready)", cl, status)
	}
	if _, status = q.Pop(); status != Empty {
		t.Fatalf("Pop after draining single item = %v, want Empty", status)
	}
}
