// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package closure provides the deferred unit of work scheduled by a
// combiner: a callback, its argument, and a move-once error cell.
package closure

// Closure is an opaque unit of deferred work.
//
// A Closure is linked into at most one container at a time: the path it
// is scheduled through (Run vs FinallyRun) dictates whether its queue
// node or its list-next pointer is live. The zero value is not usable;
// construct with New.
type Closure struct {
	fn  func(arg any, err error)
	arg any

	err error

	// scratch stashes the owning combiner across the FinallyRun
	// trampoline redirection (see combiner.FinallyRun). Nil otherwise.
	scratch any

	// nodeNext is this closure's successor when linked into the
	// intrusive MPSC queue (package queue) via Run.
	nodeNext *Closure

	// listNext is this closure's successor when linked into the
	// combiner's singly-linked final list via FinallyRun.
	listNext *Closure
}

// New constructs a Closure with the given callback and argument.
func New(fn func(arg any, err error), arg any) *Closure {
	if fn == nil {
		panic("closure: fn must not be nil")
	}
	return &Closure{fn: fn, arg: arg}
}

// SetError installs the error this closure's callback will observe.
// Must not be called once the closure has been scheduled.
func (c *Closure) SetError(err error) {
	c.err = err
}

// TakeError extracts the installed error exactly once, clearing the cell.
// Called by the executor immediately before invoking the callback,
// transferring ownership of the error value to the callback.
func (c *Closure) TakeError() error {
	err := c.err
	c.err = nil
	return err
}

// Invoke calls the callback with the given argument and error. The
// caller (the combiner's drain loop) is responsible for having already
// extracted the error via TakeError.
func (c *Closure) Invoke(err error) {
	c.fn(c.arg, err)
}

// SetScratch stashes opaque trampoline state. Used only by FinallyRun's
// cross-combiner redirection.
func (c *Closure) SetScratch(v any) { c.scratch = v }

// Scratch returns and clears the previously stashed trampoline state.
func (c *Closure) Scratch() any {
	v := c.scratch
	c.scratch = nil
	return v
}

// NodeNext returns the queue-node successor, used by the intrusive MPSC
// queue in package queue.
func (c *Closure) NodeNext() *Closure { return c.nodeNext }

// SetNodeNext sets the queue-node successor. Exported for package queue;
// not part of the API a combiner user calls directly.
func (c *Closure) SetNodeNext(n *Closure) { c.nodeNext = n }

// ListNext returns the next closure linked after c in a combiner's final
// list.
func (c *Closure) ListNext() *Closure { return c.listNext }

// SetListNext sets the final-list successor. Exported for package
// combiner; not part of the API a combiner user calls directly.
func (c *Closure) SetListNext(n *Closure) { c.listNext = n }
