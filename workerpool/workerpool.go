// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package workerpool provides the default offload target a
// [code.hybscloud.com/combiner.Combiner] hands contended, urgent drains
// to: a fixed set of goroutines pulling work off a bounded MPMC ready
// queue, the Go-native stand-in for the EventEngine::Run the original
// gRPC combiner offloads onto.
package workerpool

import (
	"sync"

	"code.hybscloud.com/combiner/backoff"
	"code.hybscloud.com/combiner/bq"
)

// submitRetryBudget bounds how many times Submit retries a full ready
// queue with adaptive backoff before spilling to a dedicated goroutine.
const submitRetryBudget = 8

// Task is a unit of work submitted to a Pool. It is an alias of func()
// so that Submit(Task) has the same signature as combiner.WorkerPool's
// Submit(func()).
type Task = func()

// Pool accepts Tasks for asynchronous execution. combiner.WorkerPool is
// satisfied by any Pool structurally; this package does not import
// combiner, to keep the dependency one-directional.
type Pool interface {
	Submit(task Task)
}

// FixedPool is a Pool backed by a fixed number of goroutines draining a
// bounded MPMC ready queue. Submit never blocks the caller indefinitely
// on a full queue: it retries with bounded backoff, then spills to a
// one-off goroutine rather than growing an unbounded internal buffer.
type FixedPool struct {
	ready   *bq.MPMC[Task]
	wg      sync.WaitGroup
	closeCh chan struct{}
	closed  bool
	mu      sync.Mutex
}

// NewFixedPool starts workers goroutines pulling Tasks off a ready queue
// of the given capacity (rounded up to a power of 2 by bq.NewMPMC).
func NewFixedPool(workers, capacity int) *FixedPool {
	if workers < 1 {
		panic("workerpool: workers must be >= 1")
	}
	p := &FixedPool{
		ready:   bq.NewMPMC[Task](capacity),
		closeCh: make(chan struct{}),
	}
	p.wg.Add(workers)
	for range workers {
		go p.drain()
	}
	return p
}

// Submit enqueues task for execution by a worker goroutine, retrying a
// full ready queue with bounded adaptive backoff. If the queue is still
// full once that retry budget is exhausted, Submit spills to an
// unbounded fallback: a dedicated goroutine runs task immediately,
// rather than blocking the caller indefinitely or dropping the task.
// This matches the spirit of an offload path that must never deadlock
// the combiner it is relieving.
func (p *FixedPool) Submit(task Task) {
	budget := backoff.NewBudget(submitRetryBudget)
	for {
		if err := p.ready.Enqueue(&task); err == nil {
			return
		}
		if !budget.Retry() {
			go task()
			return
		}
	}
}

func (p *FixedPool) drain() {
	defer p.wg.Done()
	var wait backoff.Adaptive
	for {
		task, err := p.ready.Dequeue()
		if err == nil {
			wait.Reset()
			task()
			continue
		}
		select {
		case <-p.closeCh:
			return
		default:
			wait.Wait()
		}
	}
}

// Close signals every worker to stop once the ready queue has been fully
// drained, then waits for them to exit. Close does not accept new
// submissions after being called; Submit may still be called concurrently
// but newly submitted tasks are not guaranteed to run.
func (p *FixedPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.ready.Drain()
	close(p.closeCh)
	p.wg.Wait()
}
