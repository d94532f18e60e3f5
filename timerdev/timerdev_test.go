package timerdev

import (
	"errors"
	"testing"
	"time"

	kerrors "ksched/errors"
)

func TestNewDeviceRejectsNonPositiveFrequency(t *testing.T) {
	for _, f := range []int{0, -1, -100} {
		if _, err := NewDevice(f); !errors.Is(err, kerrors.ErrInvalidFrequency) {
			t.Errorf("NewDevice(%d) err = %v, want ErrInvalidFrequency", f, err)
		}
	}
}

func TestDeviceTicksAdvance(t *testing.T) {
	d, err := NewDevice(1000)
	if err != nil {
		t.Fatal(err)
	}
	d.Start()
	defer d.Stop()

	deadline := time.After(2 * time.Second)
	seen := 0
	for seen < 5 {
		select {
		case <-d.C():
			seen++
		case <-deadline:
			t.Fatalf("only saw %d ticks before timeout", seen)
		}
	}
	if d.Ticks() < int64(seen) {
		t.Errorf("Ticks() = %d, want >= %d", d.Ticks(), seen)
	}
}
