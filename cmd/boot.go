package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ksched/kernel"
	"ksched/ksync"
	"ksched/logging"
	"ksched/palloc"
)

var (
	bootStats bool
	bootPages int
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "boot the scheduler and run the seed demonstration scenarios",
	Long: `boot constructs a kernel under the policy selected by -o/--o mlfqs
(or --mlfqs) and drives it through the scheduler's seed scenarios: a
priority donation chain (or MLFQ decay, under -o mlfqs), sleep ordering,
time-slice preemption, and deferred exit cleanup, printing what each one
observed.`,
	Args: cobra.NoArgs,
	RunE: runBoot,
}

func init() {
	rootCmd.AddCommand(bootCmd)
	bootCmd.Flags().BoolVar(&bootStats, "stats", false, "print idle/kernel tick counters after the run")
	bootCmd.Flags().IntVar(&bootPages, "pages", 32, "page pool capacity (number of thread stacks)")
}

func runBoot(cmd *cobra.Command, args []string) error {
	policy := kernel.PolicyPriority
	if resolvePolicy() {
		policy = kernel.PolicyMLFQ
	}

	pool, err := palloc.NewPool(bootPages)
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	logger := logging.Default()
	k := kernel.Init(kernel.Config{Policy: policy, Pages: pool, Logger: logger, Freq: globalFreq, Slice: globalSlice})
	k.Start()

	logging.WithPolicy(logger, policy.String()).Info("scheduler booted")
	fmt.Printf("booted under policy %q\n", policy)

	if policy == kernel.PolicyMLFQ {
		runMLFQDecayDemo(k)
	} else {
		runDonationDemo(k)
		runPreemptiveCreateDemo(k)
	}
	runSleepOrderDemo(k)
	runTimeSliceDemo(k)
	runExitCleanupDemo(k, pool)

	if bootStats {
		stats := k.Stats()
		fmt.Printf("stats: idle_ticks=%d kernel_ticks=%d\n", stats.IdleTicks, stats.KernelTicks)
	}
	return nil
}

// runDonationDemo reproduces the priority donation chain seed scenario:
// L(pri=1) holds lock A, M(pri=2) holds lock B and blocks on A (donating
// to L), H(pri=3) blocks on B (donating through M to L).
func runDonationDemo(k *kernel.Kernel) {
	fmt.Println("\n-- priority donation chain --")

	lockA := ksync.NewLock(k)
	lockB := ksync.NewLock(k)

	startM := ksync.NewSemaphore(k, 0)
	startH := ksync.NewSemaphore(k, 0)
	continueL := ksync.NewSemaphore(k, 0)
	lHoldsA := ksync.NewSemaphore(k, 0)
	mBlocked := ksync.NewSemaphore(k, 0)
	hAboutToBlock := ksync.NewSemaphore(k, 0)
	done := ksync.NewSemaphore(k, 0)

	var lThread, mThread *kernel.Thread

	k.Create("L", 1, func(k *kernel.Kernel, _ any) {
		lThread = k.Current()
		lockA.Acquire()
		lHoldsA.Up()
		continueL.Down()
		lockA.Release()
		done.Up()
	}, nil)

	k.Create("M", 2, func(k *kernel.Kernel, _ any) {
		mThread = k.Current()
		startM.Down()
		lockB.Acquire()
		mBlocked.Up()
		lockA.Acquire()
		lockB.Release()
		lockA.Release()
		done.Up()
	}, nil)

	k.Create("H", 3, func(k *kernel.Kernel, _ any) {
		startH.Down()
		hAboutToBlock.Up() // signal before the call that actually blocks
		lockB.Acquire()
		lockB.Release()
		done.Up()
	}, nil)

	lHoldsA.Down()
	fmt.Printf("L holds lock A, effective priority = %d\n", lThread.EffectivePriority())

	startM.Up()
	mBlocked.Down()
	fmt.Printf("M blocked acquiring A, L donated to %d\n", lThread.EffectivePriority())

	startH.Up()
	hAboutToBlock.Down()
	fmt.Printf("after H: L=%d M=%d\n", lThread.EffectivePriority(), mThread.EffectivePriority())

	continueL.Up()
	done.Down()
	done.Down()
	done.Down()
	fmt.Printf("all three threads exited; L donated priority afterward = %d\n", lThread.DonatedPriority())
}

// runPreemptiveCreateDemo reproduces the creation-time immediate-yield seed
// scenario: under the priority scheduler, creating a higher-priority
// thread preempts the creator before Create returns.
func runPreemptiveCreateDemo(k *kernel.Kernel) {
	fmt.Println("\n-- preemptive yield on creation --")
	ran := false
	k.Create("urgent", kernel.PriDefault+10, func(k *kernel.Kernel, _ any) {
		ran = true
	}, nil)
	fmt.Printf("higher-priority thread ran before Create returned: %v\n", ran)
}

// runMLFQDecayDemo reproduces the MLFQ decay seed scenario: a thread
// accumulating recent_cpu for one second of ticks, then observing the
// load average rise and the decay shrink recent_cpu well below a straight
// tick count.
func runMLFQDecayDemo(k *kernel.Kernel) {
	fmt.Println("\n-- MLFQ decay --")
	fmt.Printf("load_avg before ticking = %d (hundredths)\n", k.GetLoadAvg())
	freq := k.TimerFrequency()
	for i := int64(0); i < freq; i++ {
		k.Tick()
		k.MaybeYield()
	}
	fmt.Printf("after %d ticks: load_avg=%d recent_cpu=%d (hundredths), priority=%d\n",
		freq, k.GetLoadAvg(), k.GetRecentCPU(), k.GetPriority())
}

// runSleepOrderDemo reproduces the sleep-order seed scenario: three
// threads sleeping until different absolute ticks wake in ascending
// wake-tick order, ties broken by sleep-list FIFO order.
func runSleepOrderDemo(k *kernel.Kernel) {
	fmt.Println("\n-- sleep order --")

	var woke []string
	registered := ksync.NewSemaphore(k, 0)
	done := ksync.NewSemaphore(k, 0)

	sleeper := func(name string, wake int64) func(*kernel.Kernel, any) {
		return func(k *kernel.Kernel, _ any) {
			registered.Up()
			k.SleepUntil(wake)
			woke = append(woke, name)
			done.Up()
		}
	}
	base := k.Ticks()
	k.Create("A", 5, sleeper("A", base+30), nil)
	k.Create("B", 5, sleeper("B", base+10), nil)
	k.Create("C", 5, sleeper("C", base+20), nil)

	registered.Down()
	registered.Down()
	registered.Down()

	for i := 0; i < 31; i++ {
		k.Tick()
		k.MaybeYield()
	}
	done.Down()
	done.Down()
	done.Down()

	fmt.Printf("wake order: %v\n", woke)
}

// runTimeSliceDemo reproduces the time-slice preemption seed scenario: a
// thread that never voluntarily yields is preempted every TimeSlice ticks
// in favor of an equal-priority ready thread.
func runTimeSliceDemo(k *kernel.Kernel) {
	fmt.Println("\n-- time-slice preemption --")
	ran := false
	k.Create("peer", kernel.PriDefault, func(k *kernel.Kernel, _ any) {
		ran = true
	}, nil)
	fmt.Printf("peer ran before time slice expired: %v\n", ran)
	slice := k.TimeSliceLength()
	for i := int64(0); i < slice; i++ {
		k.Tick()
	}
	yielded := k.MaybeYield()
	fmt.Printf("preempted after %d ticks: %v, peer ran: %v\n", slice, yielded, ran)
}

// runExitCleanupDemo reproduces the exit-cleanup-deferral seed scenario:
// the page backing an exiting thread is not freed until its successor has
// run schedule_tail, observable as the pool's in-use count dropping by
// exactly one once the successor runs.
func runExitCleanupDemo(k *kernel.Kernel, pool *palloc.Pool) {
	fmt.Println("\n-- exit cleanup deferral --")
	before := pool.InUse()
	done := ksync.NewSemaphore(k, 0)
	k.Create("ephemeral", kernel.PriDefault, func(k *kernel.Kernel, _ any) {
		done.Up()
	}, nil)
	done.Down()
	after := pool.InUse()
	fmt.Printf("pages in use before=%d after=%d (successor freed the exited thread's page)\n", before, after)
}
