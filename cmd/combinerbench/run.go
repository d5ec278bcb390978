// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	islog "github.com/joeycumines/logiface-slog"
	"github.com/spf13/cobra"

	"code.hybscloud.com/atomix"

	combiner "code.hybscloud.com/combiner"
	"code.hybscloud.com/combiner/backoff"
	"code.hybscloud.com/combiner/bq"
	"code.hybscloud.com/combiner/closure"
	"code.hybscloud.com/combiner/trace"
	"code.hybscloud.com/combiner/workerpool"
)

var (
	flagSubmitters     int
	flagPerSubmitter   int
	flagWorkers        int
	flagQueueCapacity  int
	flagRecordCapacity int
	flagDumpTrace      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fan out submitters against one combiner and report completion stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

func init() {
	runCmd.Flags().IntVar(&flagSubmitters, "submitters", 8, "number of concurrent submitting goroutines")
	runCmd.Flags().IntVar(&flagPerSubmitter, "per-submitter", 10000, "closures submitted by each goroutine")
	runCmd.Flags().IntVar(&flagWorkers, "workers", 4, "worker pool goroutine count")
	runCmd.Flags().IntVar(&flagQueueCapacity, "queue-capacity", 4096, "worker pool ready queue capacity")
	runCmd.Flags().IntVar(&flagRecordCapacity, "record-capacity", 1024, "per-submitter completion record queue capacity")
	runCmd.Flags().BoolVar(&flagDumpTrace, "dump-trace", false, "print every combiner lifecycle event after the run")
}

// result is one completion record: which submitter produced the
// closure, its sequence number within that submitter, and how long it
// waited between submission and execution.
type result struct {
	submitter int
	seq       int
	latency   time.Duration
}

func run(cmd *cobra.Command) error {
	var tracer trace.Tracer
	rec := &trace.Recorder{}
	if flagDumpTrace {
		tracer = rec
	} else {
		handler := slog.NewTextHandler(os.Stderr, nil)
		logger := islog.L.New(islog.L.WithSlogHandler(handler)).Logger()
		tracer = trace.LogifaceTracer(logger)
	}

	pool := workerpool.NewFixedPool(flagWorkers, flagQueueCapacity)
	defer pool.Close()

	c := combiner.New(pool, tracer)

	records := make([]*bq.SPSC[result], flagSubmitters)
	for i := range records {
		records[i] = bq.NewSPSC[result](flagRecordCapacity)
	}

	var submitted atomix.Int64
	var wg sync.WaitGroup
	wg.Add(flagSubmitters)

	start := time.Now()
	for s := range flagSubmitters {
		go func(s int) {
			defer wg.Done()
			var wait backoff.Adaptive
			for seq := range flagPerSubmitter {
				submittedAt := time.Now()
				_ = combiner.Enter(func(ec *combiner.ExecCtx) error {
					cl := closure.New(func(_ any, _ error) {
						r := result{submitter: s, seq: seq, latency: time.Since(submittedAt)}
						for records[s].Enqueue(&r) != nil {
							wait.Wait()
						}
						wait.Reset()
						submitted.Add(1)
					}, nil)
					c.Run(ec, cl, nil)
					return nil
				})
			}
		}(s)
	}

	total := int64(flagSubmitters * flagPerSubmitter)
	done := make(chan struct{})
	var collected int64
	var maxLatency time.Duration
	go func() {
		var wait backoff.Adaptive
		for collected < total {
			progressed := false
			for _, q := range records {
				if r, err := q.Dequeue(); err == nil {
					collected++
					if r.latency > maxLatency {
						maxLatency = r.latency
					}
					progressed = true
				}
			}
			if !progressed {
				wait.Wait()
			} else {
				wait.Reset()
			}
		}
		close(done)
	}()

	wg.Wait()
	<-done
	elapsed := time.Since(start)

	fmt.Fprintf(cmd.OutOrStdout(), "submitted=%d collected=%d elapsed=%s throughput=%.0f/s max_latency=%s\n",
		submitted.Load(), collected, elapsed, float64(total)/elapsed.Seconds(), maxLatency)

	if flagDumpTrace {
		for _, ev := range rec.Events() {
			fmt.Fprintf(cmd.OutOrStdout(), "trace: combiner=%x name=%s fields=%v\n", ev.Combiner, ev.Name, ev.Fields)
		}
	}

	c.Unref()
	return nil
}
