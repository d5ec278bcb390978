// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package trace provides the combiner's diagnostic hook: an opaque,
// build-lazy event sink. Events are assembled only when a tracer asks
// for them, so a Nop tracer costs nothing beyond an interface check.
package trace

// Field is a single named value attached to an Event.
type Field struct {
	Key   string
	Value any
}

// Event describes one combiner lifecycle transition.
type Event struct {
	// Name identifies the transition: the combiner emits "create",
	// "execute", "execute_finally", "finish", "queue_offload",
	// "start_destroy" and "really_destroy".
	Name string
	// Combiner identifies which combiner emitted the event. Opaque:
	// callers should not assume any relationship to memory addresses
	// beyond stability for the combiner's lifetime.
	Combiner uintptr
	Fields   []Field
}

// Tracer receives combiner lifecycle events. Trace is called with a
// builder function rather than a pre-built Event so that a Nop tracer
// never pays the allocation cost of constructing Fields.
type Tracer interface {
	Trace(build func() Event)
}

// Nop is a Tracer that discards every event without calling build.
type Nop struct{}

// Trace implements Tracer by doing nothing: build is never invoked.
func (Nop) Trace(func() Event) {}

// Func adapts a plain function into a Tracer, always invoking build.
type Func func(Event)

// Trace implements Tracer.
func (f Func) Trace(build func() Event) {
	if f == nil {
		return
	}
	f(build())
}
