// Package timerdev implements the timer collaborator the scheduler core
// treats as opaque (spec §6: "a timer providing a monotonically increasing
// tick count and a frequency constant").
//
// Device wraps a time.Ticker at a configured Frequency (ticks per second,
// TIMER_FREQ in spec terms) and exposes a tick count plus a channel the
// boot harness's dispatch loop ranges over to call kernel.Tick. Each tick
// is stamped with CLOCK_MONOTONIC for drift diagnostics, grounded on the
// teacher's golang.org/x/sys/unix usage in linux/namespace.go (there, the
// same package backs namespace syscalls not otherwise exposed by the
// standard library; here it backs a monotonic clock read not otherwise
// exposed with the precision we want for drift logging).
package timerdev

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	kerrors "ksched/errors"
)

// Device drives the virtual hardware timer.
type Device struct {
	// Frequency is the number of ticks per second (TIMER_FREQ).
	Frequency int

	ticks  atomic.Int64
	ticker *time.Ticker
	c      chan struct{}
	stop   chan struct{}

	lastMonotonic int64
	maxDriftNanos atomic.Int64
}

// NewDevice returns a Device ticking at frequency Hz. frequency must be
// positive.
func NewDevice(frequency int) (*Device, error) {
	if frequency <= 0 {
		return nil, kerrors.ErrInvalidFrequency
	}
	return &Device{
		Frequency: frequency,
		c:         make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}, nil
}

// Start begins ticking at Frequency Hz until Stop is called. Start must be
// called at most once.
func (d *Device) Start() {
	d.ticker = time.NewTicker(time.Second / time.Duration(d.Frequency))
	go d.run()
}

func (d *Device) run() {
	for {
		select {
		case <-d.stop:
			return
		case <-d.ticker.C:
			d.recordTick()
			select {
			case d.c <- struct{}{}:
			default:
				// A tick that the consumer hasn't drained yet is coalesced;
				// Ticks() still advances so the consumer can catch up.
			}
		}
	}
}

func (d *Device) recordTick() {
	d.ticks.Add(1)
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return
	}
	now := ts.Sec*int64(time.Second) + ts.Nsec
	if d.lastMonotonic != 0 {
		drift := now - d.lastMonotonic - int64(time.Second/time.Duration(d.Frequency))
		if drift < 0 {
			drift = -drift
		}
		if drift > d.maxDriftNanos.Load() {
			d.maxDriftNanos.Store(drift)
		}
	}
	d.lastMonotonic = now
}

// Ticks returns the monotonically increasing tick count observed so far.
func (d *Device) Ticks() int64 {
	return d.ticks.Load()
}

// C returns the channel the boot harness ranges over; one value is sent
// per observed hardware tick (ticks that arrive faster than the consumer
// drains are coalesced, matching a real PIC's single pending-interrupt
// line — Ticks() remains authoritative for the actual count).
func (d *Device) C() <-chan struct{} {
	return d.c
}

// MaxDrift returns the largest observed deviation between two consecutive
// ticks and the device's nominal period, a diagnostic only — never
// consulted by the scheduler itself.
func (d *Device) MaxDrift() time.Duration {
	return time.Duration(d.maxDriftNanos.Load())
}

// Stop halts the ticker. Safe to call once.
func (d *Device) Stop() {
	close(d.stop)
	if d.ticker != nil {
		d.ticker.Stop()
	}
}
