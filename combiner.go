// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package combiner provides a serializing execution primitive: many
// goroutines can schedule closures onto a Combiner concurrently, and the
// combiner guarantees they run one at a time, in roughly submission
// order, without any goroutine blocking on a lock to do so. Whichever
// goroutine's submission transitions the combiner from idle to busy
// takes over running the queued closures inline, for as long as it is
// willing to (see ExecCtx.SetReadyToFinish); if contention and urgency
// both apply, the remainder is handed off to a worker pool instead.
//
// This is a port of gRPC-core's combiner lock
// (src/core/lib/iomgr/combiner.cc), adapted to explicit *ExecCtx
// threading in place of thread-local storage.
package combiner

import (
	"code.hybscloud.com/atomix"

	"code.hybscloud.com/combiner/closure"
	"code.hybscloud.com/combiner/queue"
	"code.hybscloud.com/combiner/trace"
)

// state bits: bit 0 marks the combiner unorphaned (has a live owner);
// bits 1..63 count queued elements (regular closures plus, when
// non-empty, one unit for the final list) in units of elemCountLowBit.
// Mirrors STATE_UNORPHANED / STATE_ELEM_COUNT_LOW_BIT in the original.
const (
	stateUnorphaned = uint64(1)
	elemCountLowBit = uint64(2)

	// offloadSentinel is stored into initiatingExecCtx after an offload so
	// the combiner looks uncontended and doesn't immediately re-offload.
	offloadSentinel = uintptr(1)
)

// WorkerPool is the minimal submission surface a Combiner needs in order
// to offload contended, urgent drains onto other goroutines.
// workerpool.FixedPool satisfies this interface structurally; combiner
// does not import workerpool, to keep the dependency one-directional.
type WorkerPool interface {
	Submit(task func())
}

// Combiner serializes closures submitted by any number of concurrent
// goroutines. The zero value is not usable; construct with New.
type Combiner struct {
	state             atomix.Uint64
	initiatingExecCtx atomix.Uintptr // 0 = none; offloadSentinel = "looks uncontended"; else *ExecCtx
	refs              atomix.Int64

	q *queue.Queue

	// finalHead/finalTail/timeToExecuteFinalList/nextOnExecCtx are touched
	// only by whichever single goroutine currently owns this combiner's
	// drain (guaranteed by the state-word protocol below), so they need
	// no atomics of their own.
	finalHead, finalTail   *closure.Closure
	timeToExecuteFinalList bool
	nextOnExecCtx          *Combiner

	pool   WorkerPool
	tracer trace.Tracer
}

// New constructs a Combiner with one reference already held. pool is
// used to offload drains when the combiner is contended and the current
// ExecCtx wants to finish quickly; tracer receives lifecycle events, or
// pass trace.Nop{} to disable tracing entirely.
func New(pool WorkerPool, tracer trace.Tracer) *Combiner {
	if pool == nil {
		panic("combiner: pool must not be nil")
	}
	if tracer == nil {
		tracer = trace.Nop{}
	}
	c := &Combiner{
		q:      queue.New(),
		pool:   pool,
		tracer: tracer,
	}
	c.refs.StoreRelaxed(1)
	c.state.StoreRelaxed(stateUnorphaned)
	c.trace("create", nil)
	return c
}

func (c *Combiner) trace(name string, fields []trace.Field) {
	c.tracer.Trace(func() trace.Event {
		return trace.Event{Name: name, Combiner: ptrToUintptr(c), Fields: fields}
	})
}

// Ref takes an additional reference on c. The combiner is destroyed once
// the last reference is released via Unref.
func (c *Combiner) Ref() {
	c.refs.AddAcqRel(1)
}

// Unref releases a reference on c. Once the reference count reaches
// zero, the combiner is orphaned: it finishes any closures still queued,
// then frees its internal state.
func (c *Combiner) Unref() {
	if c.refs.AddAcqRel(-1) == 0 {
		c.startDestroy()
	}
}

func (c *Combiner) startDestroy() {
	newState := c.state.AddAcqRel(negU64(stateUnorphaned))
	oldState := newState + stateUnorphaned
	c.trace("start_destroy", []trace.Field{{Key: "old_state", Value: oldState}})
	if oldState == stateUnorphaned {
		c.reallyDestroy()
	}
}

func (c *Combiner) reallyDestroy() {
	if c.state.LoadRelaxed() != 0 {
		panic("combiner: reallyDestroy called with non-zero state")
	}
	c.trace("really_destroy", nil)
}

// Run schedules cl to execute on this combiner, with err delivered as
// its argument. ec is the caller's execution context: if c was idle
// (no queued elements), Run enrolls c at the tail of ec's active list
// and the caller becomes responsible for draining it via ec.Flush.
func (c *Combiner) Run(ec *ExecCtx, cl *closure.Closure, err error) {
	newState := c.state.AddAcqRel(elemCountLowBit)
	oldState := newState - elemCountLowBit
	c.trace("execute", []trace.Field{{Key: "old_state", Value: oldState}})

	if oldState == stateUnorphaned {
		// first element on this combiner: it goes onto ec's active list.
		c.initiatingExecCtx.StoreRelaxed(ptrToUintptr(ec))
		pushLastOnExecCtx(ec, c)
	} else {
		// there may be a race with setting this: if that happens, offload
		// is delayed by an action or two, which is fine.
		initiator := c.initiatingExecCtx.LoadRelaxed()
		if initiator != 0 && initiator != ptrToUintptr(ec) {
			c.initiatingExecCtx.StoreRelaxed(0)
		}
	}

	if oldState&stateUnorphaned == 0 {
		panic("combiner: Run called on an orphaned combiner")
	}

	cl.SetError(err)
	c.q.Push(cl)
}

// finallyTrampoline carries the owning combiner across the redirect a
// FinallyRun call takes when called from outside that combiner's own
// active drain (see Closure.SetScratch/Scratch).
type finallyTrampoline struct {
	owner *Combiner
}

// FinallyRun schedules cl to run once this combiner has no more regular
// work queued ahead of it (its "final list"), with err delivered as its
// argument. If ec is not currently draining this exact combiner,
// FinallyRun redirects through Run so the enrollment happens from
// inside the combiner's own execution, where the final list can be
// mutated without synchronization.
func (c *Combiner) FinallyRun(ec *ExecCtx, cl *closure.Closure, err error) {
	c.trace("execute_finally", []trace.Field{{Key: "active", Value: ec.activeCombiner == c}})

	if ec.activeCombiner != c {
		cl.SetScratch(&finallyTrampoline{owner: c})
		redirect := closure.New(func(_ any, redirErr error) {
			// The redirect runs inside the owner's own drain, whichever
			// ExecCtx is driving it, so append to the final list directly.
			owner := cl.Scratch().(*finallyTrampoline).owner
			if owner.finalHead == nil {
				owner.state.AddAcqRel(elemCountLowBit)
			}
			owner.appendFinal(cl, redirErr)
		}, nil)
		c.Run(ec, redirect, err)
		return
	}

	if c.finalHead == nil {
		c.state.AddAcqRel(elemCountLowBit)
	}
	c.appendFinal(cl, err)
}

func (c *Combiner) appendFinal(cl *closure.Closure, err error) {
	cl.SetError(err)
	cl.SetListNext(nil)
	if c.finalTail == nil {
		c.finalHead = cl
		c.finalTail = cl
	} else {
		c.finalTail.SetListNext(cl)
		c.finalTail = cl
	}
}

// ForceOffload makes c look contended (it clears the initiating ExecCtx)
// and marks ec as wanting to finish as soon as possible, so the next
// drain step on ec offloads whatever remains to the worker pool.
func (c *Combiner) ForceOffload(ec *ExecCtx) {
	c.initiatingExecCtx.StoreRelaxed(0)
	ec.SetReadyToFinish()
}

// continueExecCtx drains exactly one action (a regular closure, or the
// whole final list) from c, then advances ec past it or reschedules it
// at the front. Always returns true: ec always has at least c left to
// account for, even when c becomes idle or is destroyed.
func (c *Combiner) continueExecCtx(ec *ExecCtx) bool {
	contended := c.initiatingExecCtx.LoadRelaxed() == 0

	if contended && ec.IsReadyToFinish() {
		c.offload(ec)
		return true
	}

	if !c.timeToExecuteFinalList || (c.state.LoadAcquire()>>1) > 1 {
		// peek to see if something new has shown up; execute that with
		// priority over the final list.
		cl, res := c.q.Pop()
		switch res {
		case queue.Inconsistent:
			// the queue is in a transient state: treat this as a cue to
			// go do something else for a while and come back later.
			c.offload(ec)
			return true
		case queue.Empty:
			panic("combiner: queue empty with outstanding elem count")
		}
		err := cl.TakeError()
		cl.Invoke(err)
	} else {
		cl := c.finalHead
		if cl == nil {
			panic("combiner: time_to_execute_final_list set with empty final list")
		}
		c.finalHead = nil
		c.finalTail = nil
		for cl != nil {
			next := cl.ListNext()
			err := cl.TakeError()
			cl.Invoke(err)
			cl = next
		}
	}

	moveNext(ec)
	c.timeToExecuteFinalList = false
	newState := c.state.AddAcqRel(negU64(elemCountLowBit))
	oldState := newState + elemCountLowBit
	c.trace("finish", []trace.Field{{Key: "old_state", Value: oldState}})

	switch oldState {
	case stateUnorphaned + 2*elemCountLowBit, 2 * elemCountLowBit:
		// down to one queued item: if it's the final list, do that next.
		if c.finalHead != nil {
			c.timeToExecuteFinalList = true
		}
	case stateUnorphaned + elemCountLowBit:
		// had one count, one unorphaned: unlocked and unorphaned.
		return true
	case elemCountLowBit:
		// had one count, one orphaned: unlocked and orphaned.
		c.reallyDestroy()
		return true
	case stateUnorphaned, 0:
		panic("combiner: illegal state, combiner already unlocked or destroyed")
	}

	pushFirstOnExecCtx(ec, c)
	return true
}

// offload removes c from ec's active list and hands its remaining drain
// off to the worker pool, so ec's owning goroutine can return promptly.
func (c *Combiner) offload(ec *ExecCtx) {
	moveNext(ec)
	c.initiatingExecCtx.StoreRelaxed(offloadSentinel)
	c.trace("queue_offload", nil)
	c.pool.Submit(func() {
		_ = Enter(func(inner *ExecCtx) error {
			pushLastOnExecCtx(inner, c)
			return nil
		})
	})
}
