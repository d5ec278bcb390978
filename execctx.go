// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package combiner

// ExecCtx is the per-call execution context a goroutine carries while it
// is driving combiner work. It owns the singly-linked list of combiners
// that became active during this call, in the order they should be
// drained, and a flag letting a combiner decide to hand remaining work
// off to a worker pool rather than keep this goroutine busy.
//
// An ExecCtx must not be shared across goroutines: it plays the role
// the gRPC runtime fills with thread-local storage, made explicit here
// because Go has no equivalent of a stable carrier thread. Construct
// one with Enter.
type ExecCtx struct {
	activeCombiner *Combiner
	lastCombiner   *Combiner
	readyToFinish  bool
}

// Enter creates a fresh ExecCtx, runs fn with it, then drains every
// combiner that became active during fn before returning. This mirrors
// the gRPC pattern of constructing an ExecCtx on the stack, doing some
// work, and letting its destructor flush outstanding combiner actions.
//
// Most callers scheduling work onto a [Combiner] from outside any other
// ExecCtx should wrap the call in Enter. Code that already holds an
// *ExecCtx (for instance inside a closure a combiner is running) should
// reuse it instead of nesting a new one.
func Enter(fn func(ec *ExecCtx) error) error {
	ec := &ExecCtx{}
	err := fn(ec)
	ec.Flush()
	if ec.activeCombiner != nil {
		panic("combiner: ExecCtx.Flush left an active combiner enrolled")
	}
	return err
}

// SetReadyToFinish marks this ExecCtx as wanting to stop doing combiner
// work as soon as possible, causing contended combiners to offload their
// remaining closures to the worker pool instead of continuing inline.
func (ec *ExecCtx) SetReadyToFinish() {
	ec.readyToFinish = true
}

// IsReadyToFinish reports whether SetReadyToFinish has been called.
func (ec *ExecCtx) IsReadyToFinish() bool {
	return ec.readyToFinish
}

// Flush drains every combiner currently active on this ExecCtx,
// including any that become active as a side effect of draining
// another (e.g. a closure that calls Run on a different combiner).
// Safe to call multiple times; a no-op once nothing is active.
func (ec *ExecCtx) Flush() {
	for ec.continueExecCtx() {
	}
}

// continueExecCtx drains exactly one action from the head combiner on
// this ExecCtx's active list, then advances or removes it. Returns false
// once there is no active combiner left to drain.
func (ec *ExecCtx) continueExecCtx() bool {
	lock := ec.activeCombiner
	if lock == nil {
		return false
	}
	return lock.continueExecCtx(ec)
}

// pushLastOnExecCtx enrolls lock at the tail of ec's active list: used
// when lock is freshly transitioning from idle to busy, and when a
// combiner is being resumed after an offload.
func pushLastOnExecCtx(ec *ExecCtx, lock *Combiner) {
	lock.nextOnExecCtx = nil
	if ec.activeCombiner == nil {
		ec.activeCombiner = lock
		ec.lastCombiner = lock
	} else {
		ec.lastCombiner.nextOnExecCtx = lock
		ec.lastCombiner = lock
	}
}

// pushFirstOnExecCtx enrolls lock at the head of ec's active list: used
// when a combiner still has work left after draining one action, so it
// gets priority over combiners enrolled later in this same ExecCtx.
func pushFirstOnExecCtx(ec *ExecCtx, lock *Combiner) {
	lock.nextOnExecCtx = ec.activeCombiner
	ec.activeCombiner = lock
	if lock.nextOnExecCtx == nil {
		ec.lastCombiner = lock
	}
}

// moveNext advances ec past its current head combiner.
func moveNext(ec *ExecCtx) {
	ec.activeCombiner = ec.activeCombiner.nextOnExecCtx
	if ec.activeCombiner == nil {
		ec.lastCombiner = nil
	}
}
