// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workerpool_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/combiner/backoff"
	"code.hybscloud.com/combiner/workerpool"
)

// waitForCount waits until counter reaches target or timeout expires.
func waitForCount(t *testing.T, timeout time.Duration, counter *atomix.Int64, target int64, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var wait backoff.Adaptive
	for counter.Load() < target {
		if time.Now().After(deadline) {
			t.Fatalf("timeout after %v: %s (got %d, want %d)", timeout, msg, counter.Load(), target)
		}
		wait.Wait()
	}
}

func TestFixedPoolRunsAllSubmittedTasks(t *testing.T) {
	p := workerpool.NewFixedPool(4, 64)

	const n = 5000
	var ran atomix.Int64
	for range n {
		p.Submit(func() { ran.Add(1) })
	}

	waitForCount(t, 5*time.Second, &ran, n, "tasks ran")
	p.Close()
}

func TestFixedPoolConcurrentSubmitters(t *testing.T) {
	p := workerpool.NewFixedPool(4, 16)

	const submitters = 16
	const perSubmitter = 500
	var ran atomix.Int64

	var wg sync.WaitGroup
	wg.Add(submitters)
	for range submitters {
		go func() {
			defer wg.Done()
			for range perSubmitter {
				p.Submit(func() { ran.Add(1) })
			}
		}()
	}
	wg.Wait()

	waitForCount(t, 5*time.Second, &ran, submitters*perSubmitter, "tasks ran")
	p.Close()
}

func TestFixedPoolCloseDrainsRemaining(t *testing.T) {
	p := workerpool.NewFixedPool(2, 8)

	var ran atomix.Int64
	const n = 200
	for range n {
		p.Submit(func() { ran.Add(1) })
	}
	p.Close()

	if got := ran.Load(); got != n {
		t.Fatalf("ran=%d, want %d", got, n)
	}
}
