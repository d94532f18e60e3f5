package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ksched/console"
	"ksched/fixedpoint"
	"ksched/kernel"
	"ksched/ksync"
	"ksched/logging"
	"ksched/palloc"
	"ksched/timerdev"
)

var (
	monitorDuration  time.Duration
	monitorWorkers   int
	monitorRepaintMs int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "boot the scheduler and live-repaint a thread status table",
	Long: `monitor boots a kernel under the policy selected by -o/--o mlfqs (or
--mlfqs), starts a real timer device driving kernel.Tick at --freq ticks
per second, spawns a handful of worker threads that alternately sleep and
contend for a shared lock, and repaints a live tid/status/priority/nice/
recent_cpu table until interrupted (Ctrl-C) or --duration elapses.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorDuration, "duration", 10*time.Second, "how long to run before exiting")
	monitorCmd.Flags().IntVar(&monitorWorkers, "workers", 4, "number of demo worker threads")
	monitorCmd.Flags().IntVar(&monitorRepaintMs, "repaint-ms", 200, "milliseconds between repaints")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	policy := kernel.PolicyPriority
	if resolvePolicy() {
		policy = kernel.PolicyMLFQ
	}

	freq := globalFreq
	if freq <= 0 {
		freq = kernel.TimerFreq
	}

	pool, err := palloc.NewPool(monitorWorkers + 2)
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	dev, err := timerdev.NewDevice(freq)
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}

	k := kernel.Init(kernel.Config{Policy: policy, Pages: pool, Logger: logging.Default(), Freq: globalFreq, Slice: globalSlice})
	k.Start()
	spawnMonitorWorkers(k, monitorWorkers)

	board := console.NewBoard(os.Stdout)
	if err := board.EnableRawMode(); err == nil {
		defer board.Restore()
	}

	ctx := GetContext()
	dev.Start()
	defer dev.Stop()

	deadline := time.After(monitorDuration)
	repaint := time.NewTicker(time.Duration(monitorRepaintMs) * time.Millisecond)
	defer repaint.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		case <-repaint.C:
			board.Paint(monitorRows(k))
		case <-dev.C():
			k.Tick()
			k.MaybeYield()
		}
	}
}

// spawnMonitorWorkers creates n threads at staggered priorities: each
// repeatedly contends for a shared lock, holds it briefly, then sleeps a
// staggered number of ticks before contending again, continuously
// exercising both donation (priority policy) and the ready-structure
// accounting the live table renders.
func spawnMonitorWorkers(k *kernel.Kernel, n int) {
	lock := ksync.NewLock(k)
	for i := 0; i < n; i++ {
		priority := kernel.PriDefault - i*4
		if priority < kernel.PriMin {
			priority = kernel.PriMin
		}
		sleepFor := int64(5 + i*3)
		name := fmt.Sprintf("worker-%d", i)
		k.Create(name, priority, func(k *kernel.Kernel, _ any) {
			for {
				lock.Acquire()
				lock.Release()
				k.SleepUntil(k.Ticks() + sleepFor)
			}
		}, nil)
	}
}

// monitorRows snapshots every live thread into a console.Row, the data
// format the console collaborator renders without needing to import the
// kernel package.
func monitorRows(k *kernel.Kernel) []console.Row {
	var rows []console.Row
	k.Foreach(func(t *kernel.Thread) {
		rows = append(rows, console.Row{
			TID:       int64(t.TID()),
			Name:      t.Name(),
			Status:    t.Status().String(),
			Priority:  t.Priority(),
			Donated:   t.DonatedPriority(),
			Nice:      t.Nice(),
			RecentCPU: fixedpoint.Round(fixedpoint.Mul(t.RecentCPU(), fixedpoint.FromInt(100))),
		})
	})
	return rows
}
