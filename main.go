// ksched boots a small preemptive uniprocessor kernel thread scheduler and
// drives it through a set of scenarios, demonstrating strict-priority
// scheduling with donation and the 64-level MLFQ scheduler with the BSD
// decay formula.
package main

import (
	"fmt"
	"os"

	"ksched/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
