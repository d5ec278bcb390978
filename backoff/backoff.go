// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package backoff collects this module's retry helpers for lock-free hot
// loops: CAS/FAA races that resolve within a handful of attempts, and
// waits on progress from another goroutine (a full or empty bounded
// queue, a combiner's offloaded drain finishing elsewhere). It wraps
// code.hybscloud.com/spin and code.hybscloud.com/iox rather than
// replacing them, so every call site shares one retry policy instead of
// constructing spin.Wait/iox.Backoff values ad hoc.
package backoff

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// Spin is a tight, allocation-free retry helper for a CAS or FAA loop
// expected to resolve within a handful of attempts: a queue's head
// pointer race, a slot race in bq's SCQ algorithm. The zero value is
// ready to use.
type Spin struct {
	w spin.Wait
}

// Retry should be called once per failed attempt, before retrying.
func (s *Spin) Retry() {
	s.w.Once()
}

// Adaptive escalates from spinning to yielding to sleeping, for a loop
// that waits on progress from another goroutine rather than its own
// retry. The zero value is ready to use.
type Adaptive struct {
	b iox.Backoff
}

// Wait should be called once per failed attempt, before retrying.
func (a *Adaptive) Wait() {
	a.b.Wait()
}

// Reset should be called once an attempt succeeds, so a later failure
// starts escalating from the beginning again.
func (a *Adaptive) Reset() {
	a.b.Reset()
}

// Budget bounds an Adaptive retry loop to a fixed number of attempts,
// for a caller that must fall back to something else (FixedPool.Submit's
// unbounded spill) rather than waiting indefinitely.
type Budget struct {
	adaptive Adaptive
	attempts int
	max      int
}

// NewBudget returns a Budget allowing up to max retries.
func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

// Retry waits adaptively and reports whether the caller should retry its
// operation. Once the budget is exhausted, Retry stops waiting and
// returns false without blocking further.
func (b *Budget) Retry() bool {
	if b.attempts >= b.max {
		return false
	}
	b.attempts++
	b.adaptive.Wait()
	return true
}
