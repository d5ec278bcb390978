// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command combinerbench drives a Combiner and a FixedPool end to end:
// many goroutines submit closures concurrently, a single collector
// gathers completion records off per-submitter SPSC queues, and the
// command reports throughput and (optionally) a trace dump.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "combinerbench",
	Short: "Exercise a combiner, a worker pool, and their queues end to end",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
