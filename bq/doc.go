// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package bq provides bounded FIFO queue implementations used as the
// internal ready queues of other components in this module — it is not
// the combiner's own closure queue, which is the unbounded intrusive
// queue in package queue.
//
// Two variants are kept, the ones actually wired into a consumer:
//
//   - SPSC: Single-Producer Single-Consumer, used by cmd/combinerbench
//     (one per submitter goroutine) to collect completion records.
//   - MPMC: Multi-Producer Multi-Consumer (FAA-based SCQ), used by
//     workerpool.FixedPool as its ready queue.
//
// # Basic Usage
//
//	q := bq.NewMPMC[workerpool.Task](4096)
//
//	// Enqueue (non-blocking)
//	task := workerpool.Task(func() { ... })
//	if err := q.Enqueue(&task); err != nil {
//	    // queue full - handle backpressure
//	}
//
//	// Dequeue (non-blocking)
//	task, err := q.Dequeue()
//	if err == nil {
//	    task()
//	}
//
// # Error Handling
//
// Queues return [ErrWouldBlock] when an operation cannot proceed. This
// error is sourced from [code.hybscloud.com/iox] for ecosystem consistency
// with the rest of this module.
//
//	var wait backoff.Adaptive
//	for {
//	    err := q.Enqueue(&item)
//	    if err == nil {
//	        wait.Reset()
//	        break
//	    }
//	    if !bq.IsWouldBlock(err) {
//	        return err // unexpected error
//	    }
//	    wait.Wait()
//	}
//
// # Capacity
//
// Capacity rounds up to the next power of 2. Minimum capacity is 2. Panics
// if capacity < 2.
//
// # Graceful Shutdown
//
// MPMC includes a threshold mechanism to prevent livelock, which may cause
// Dequeue to return [ErrWouldBlock] even when items remain, waiting for
// producer activity to reset the threshold. Call [Drainer.Drain] once all
// producers have stopped submitting so consumers can fully drain without
// the threshold check; workerpool.FixedPool.Close does this.
//
// # Race Detection
//
// Go's race detector cannot observe happens-before relationships
// established purely through atomic memory orderings, and MPMC's slot
// validation depends on exactly that. Concurrent MPMC tests that rely on
// cross-variable acquire/release ordering call t.Skip when
// [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/combiner/backoff] for the
// CPU pause / yield escalation during the bounded CAS/FAA retry loops.
package bq
