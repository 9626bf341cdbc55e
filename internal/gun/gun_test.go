package gun

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cjeanneret/SquirtGo/internal/hw/gpio"
	"github.com/cjeanneret/SquirtGo/internal/msg"
)

// recordingDriver records GPIO calls for verification.
type recordingDriver struct {
	mu    sync.Mutex
	calls []gpioCall
	// failAfter makes Write fail once this many writes have happened.
	// Negative means never fail.
	failAfter int
}

type gpioCall struct {
	op    string
	pin   int
	level gpio.Level
}

func newRecordingDriver() *recordingDriver {
	return &recordingDriver{failAfter: -1}
}

func (d *recordingDriver) SetupOutput(pin int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, gpioCall{op: "setup", pin: pin})
	return nil
}

func (d *recordingDriver) Write(pin int, level gpio.Level) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAfter == 0 {
		return errors.New("pin write failed")
	}
	if d.failAfter > 0 {
		d.failAfter--
	}
	d.calls = append(d.calls, gpioCall{op: "write", pin: pin, level: level})
	return nil
}

func (d *recordingDriver) Close() error { return nil }

func (d *recordingDriver) writeCalls() []gpioCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []gpioCall
	for _, c := range d.calls {
		if c.op == "write" {
			result = append(result, c)
		}
	}
	return result
}

func (d *recordingDriver) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

func fastTimings() Timings {
	return Timings{
		SingleHold: time.Millisecond,
		BurstHold:  time.Millisecond,
		BurstPause: time.Millisecond,
	}
}

func TestPinGun_PinInitializedLow(t *testing.T) {
	drv := newRecordingDriver()
	NewPinGun(drv, 18, DefaultTimings())

	writes := drv.writeCalls()
	if len(writes) != 1 || writes[0].pin != 18 || writes[0].level != gpio.Low {
		t.Errorf("expected initial LOW write on pin 18, got %v", writes)
	}
}

func TestPinGun_SingleShotSequence(t *testing.T) {
	drv := newRecordingDriver()
	g := NewPinGun(drv, 18, fastTimings())
	drv.reset() // drop init writes

	if err := g.ProcessShot(context.Background(), msg.ShotSingle); err != nil {
		t.Fatalf("ProcessShot: %v", err)
	}

	writes := drv.writeCalls()
	expected := []gpio.Level{gpio.High, gpio.Low}
	if len(writes) != len(expected) {
		t.Fatalf("expected %d writes, got %d: %v", len(expected), len(writes), writes)
	}
	for i, level := range expected {
		if writes[i].pin != 18 || writes[i].level != level {
			t.Errorf("write %d: pin=%d level=%v, want pin=18 level=%v",
				i, writes[i].pin, writes[i].level, level)
		}
	}
}

func TestPinGun_SingleShotDuration(t *testing.T) {
	drv := newRecordingDriver()
	timings := fastTimings()
	timings.SingleHold = 50 * time.Millisecond
	g := NewPinGun(drv, 18, timings)

	start := time.Now()
	if err := g.ProcessShot(context.Background(), msg.ShotSingle); err != nil {
		t.Fatalf("ProcessShot: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 50*time.Millisecond {
		t.Errorf("single shot took %v, want >= 50ms hold", elapsed)
	}
}

func TestPinGun_BurstShotSequence(t *testing.T) {
	drv := newRecordingDriver()
	g := NewPinGun(drv, 18, fastTimings())
	drv.reset()

	if err := g.ProcessShot(context.Background(), msg.ShotBurst); err != nil {
		t.Fatalf("ProcessShot: %v", err)
	}

	writes := drv.writeCalls()
	// 3 rounds of ON then OFF, in order.
	if len(writes) != 6 {
		t.Fatalf("expected 6 writes, got %d: %v", len(writes), writes)
	}
	for i, c := range writes {
		want := gpio.High
		if i%2 == 1 {
			want = gpio.Low
		}
		if c.level != want {
			t.Errorf("write %d: level=%v, want %v", i, c.level, want)
		}
	}
}

func TestPinGun_BusyIgnoresSecondCommand(t *testing.T) {
	drv := newRecordingDriver()
	timings := fastTimings()
	timings.SingleHold = 80 * time.Millisecond
	g := NewPinGun(drv, 18, timings)
	drv.reset()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.ProcessShot(context.Background(), msg.ShotSingle)
	}()

	// Wait for the pattern to start.
	deadline := time.Now().Add(time.Second)
	for !g.Active() {
		if time.Now().After(deadline) {
			t.Fatal("gun never became active")
		}
		time.Sleep(time.Millisecond)
	}

	// Second command mid-pattern must be ignored entirely, without error.
	if err := g.ProcessShot(context.Background(), msg.ShotBurst); err != nil {
		t.Fatalf("overlapping ProcessShot: %v", err)
	}
	<-done

	writes := drv.writeCalls()
	if len(writes) != 2 {
		t.Errorf("expected only the first pattern's 2 writes, got %d: %v", len(writes), writes)
	}
	if g.Active() {
		t.Error("gun still active after pattern completed")
	}
}

func TestPinGun_WriteErrorRestoresIdle(t *testing.T) {
	drv := newRecordingDriver()
	g := NewPinGun(drv, 18, fastTimings())
	drv.reset()
	drv.failAfter = 1 // initial HIGH succeeds, the OFF write fails

	err := g.ProcessShot(context.Background(), msg.ShotSingle)
	if err == nil {
		t.Fatal("expected error from failing driver")
	}
	if g.Active() {
		t.Error("busy flag stuck after hardware error")
	}

	// The gun must still accept the next command.
	drv.failAfter = -1
	drv.reset()
	if err := g.ProcessShot(context.Background(), msg.ShotSingle); err != nil {
		t.Fatalf("gun wedged after error: %v", err)
	}
	if len(drv.writeCalls()) != 2 {
		t.Errorf("expected a full pattern after recovery, got %v", drv.writeCalls())
	}
}

func TestPinGun_CancelledContextEndsLowAndIdle(t *testing.T) {
	drv := newRecordingDriver()
	timings := fastTimings()
	timings.SingleHold = time.Second
	g := NewPinGun(drv, 18, timings)
	drv.reset()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- g.ProcessShot(ctx, msg.ShotSingle) }()

	deadline := time.Now().Add(time.Second)
	for !g.Active() {
		if time.Now().After(deadline) {
			t.Fatal("gun never became active")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-errCh; err == nil {
		t.Fatal("expected context error")
	}
	if g.Active() {
		t.Error("busy flag stuck after cancellation")
	}
	writes := drv.writeCalls()
	if len(writes) == 0 || writes[len(writes)-1].level != gpio.Low {
		t.Errorf("pin must end low after cancellation, writes: %v", writes)
	}
}

func TestPinGun_UnknownShotTypeIgnored(t *testing.T) {
	drv := newRecordingDriver()
	g := NewPinGun(drv, 18, fastTimings())
	drv.reset()

	if err := g.ProcessShot(context.Background(), msg.ShotType(99)); err != nil {
		t.Fatalf("unknown shot type should be ignored, got: %v", err)
	}
	if len(drv.writeCalls()) != 0 {
		t.Errorf("unknown shot type must not touch the pin, got %v", drv.writeCalls())
	}
	if g.Active() {
		t.Error("gun left active after unknown shot type")
	}
}

func TestVirtualGun(t *testing.T) {
	g := VirtualGun{}
	if g.Active() {
		t.Error("virtual gun should never be active")
	}
	if err := g.ProcessShot(context.Background(), msg.ShotSingle); err != nil {
		t.Errorf("ProcessShot: %v", err)
	}
	var _ Gun = g // compile-time check
}
