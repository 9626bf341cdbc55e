// Package gun drives the physical squirt mechanism. A Gun converts a shoot
// command into a timed pulse sequence on a single output, with a busy guard
// so overlapping commands never reach the hardware.
package gun

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/SquirtGo/internal/debug"
	"github.com/cjeanneret/SquirtGo/internal/hw/gpio"
	"github.com/cjeanneret/SquirtGo/internal/msg"
)

// Gun is the capability expected from every gun backend.
type Gun interface {
	// Active reports whether the gun is currently executing a pattern.
	Active() bool
	// ProcessShot executes the pattern for the given shot type. Requests
	// arriving while a pattern runs are ignored, not queued.
	ProcessShot(ctx context.Context, shot msg.ShotType) error
}

// Timings holds the pulse durations for the shot patterns.
type Timings struct {
	SingleHold time.Duration // pulse hold for a single shot
	BurstHold  time.Duration // pulse hold for one burst round
	BurstPause time.Duration // pause between burst rounds
}

// DefaultTimings returns the stock pattern timings.
func DefaultTimings() Timings {
	return Timings{
		SingleHold: 100 * time.Millisecond,
		BurstHold:  80 * time.Millisecond,
		BurstPause: 30 * time.Millisecond,
	}
}

const burstRounds = 3

// VirtualGun is a gun made for testing the code without relying on the
// hardware. It only ever announces that it is shooting.
type VirtualGun struct{}

var virtualShots = []string{
	"Poof poof!",
	"Splash!",
	"Right on target!",
}

// Active always reports false; the virtual gun finishes instantly.
func (VirtualGun) Active() bool { return false }

func (VirtualGun) ProcessShot(_ context.Context, shot msg.ShotType) error {
	debug.Shot(shot.String())
	debug.Info("%s", virtualShots[rand.Intn(len(virtualShots))])
	return nil
}

// PinGun drives the real mechanism through one GPIO pin.
type PinGun struct {
	drv      gpio.Driver
	pin      int
	timings  Timings
	shooting atomic.Bool
}

// NewPinGun creates a pin-driven gun. The pin is configured as an output
// and driven low (inactive) up front.
func NewPinGun(drv gpio.Driver, pin int, timings Timings) *PinGun {
	_ = drv.SetupOutput(pin)
	_ = drv.Write(pin, gpio.Low)
	return &PinGun{drv: drv, pin: pin, timings: timings}
}

// Active reports whether a pattern is currently executing.
func (g *PinGun) Active() bool {
	return g.shooting.Load()
}

// ProcessShot executes the pattern for the shot type. A request arriving
// while a pattern runs is ignored entirely. Whatever happens mid-pattern
// (driver error, cancellation), the busy flag clears and the pin ends low,
// so a failure cannot wedge the gun.
func (g *PinGun) ProcessShot(ctx context.Context, shot msg.ShotType) (err error) {
	if !g.shooting.CompareAndSwap(false, true) {
		debug.Live("gun busy, ignoring %s request", shot)
		return nil
	}
	defer func() {
		if err != nil {
			_ = g.drv.Write(g.pin, gpio.Low)
		}
		g.shooting.Store(false)
	}()

	switch shot {
	case msg.ShotSingle:
		debug.Shot("single")
		return g.singleShot(ctx)
	case msg.ShotBurst:
		debug.Shot("burst")
		return g.burstShot(ctx)
	default:
		debug.Live("don't know how to do: %s", shot)
		return nil
	}
}

// singleShot pulses the pin once: ON, hold, OFF.
func (g *PinGun) singleShot(ctx context.Context) error {
	if err := g.drv.Write(g.pin, gpio.High); err != nil {
		return err
	}
	if err := hold(ctx, g.timings.SingleHold); err != nil {
		return err
	}
	return g.drv.Write(g.pin, gpio.Low)
}

// burstShot pulses the pin in a burst of "bullets".
func (g *PinGun) burstShot(ctx context.Context) error {
	for i := 0; i < burstRounds; i++ {
		if err := g.drv.Write(g.pin, gpio.High); err != nil {
			return err
		}
		if err := hold(ctx, g.timings.BurstHold); err != nil {
			return err
		}
		if err := g.drv.Write(g.pin, gpio.Low); err != nil {
			return err
		}
		if err := hold(ctx, g.timings.BurstPause); err != nil {
			return err
		}
	}
	return nil
}

// hold waits out a pattern delay, bailing early if ctx is cancelled.
func hold(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
