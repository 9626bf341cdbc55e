package gun

import (
	"context"
	"fmt"

	"github.com/cjeanneret/SquirtGo/internal/bus"
	"github.com/cjeanneret/SquirtGo/internal/debug"
	"github.com/cjeanneret/SquirtGo/internal/msg"
)

// Controller connects a gun to the networked shoot topic. It decodes
// incoming commands and delegates them to the gun; everything else about
// the bus stays out of the gun's sight.
type Controller struct {
	gun Gun
	sub *bus.Subscription
}

// NewController subscribes to shoot commands broadcast by the analyzer at
// brainHost:port. Each command runs on its own goroutine so the delivery
// loop stays responsive; the gun's busy guard discards overlaps.
func NewController(ctx context.Context, g Gun, brainHost string, port int) (*Controller, error) {
	c := &Controller{gun: g}
	sub, err := bus.Subscribe(bus.TopicShoot, bus.Networked(brainHost, port), func(payload []byte) {
		c.handleCommand(ctx, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe shoot commands: %w", err)
	}
	c.sub = sub
	return c, nil
}

func (c *Controller) handleCommand(ctx context.Context, payload []byte) {
	shoot, err := msg.DecodeShoot(payload)
	if err != nil {
		// Malformed command: drop at the boundary.
		debug.Trace("gun: dropping command: %v", err)
		return
	}
	debug.Live("gun: received %s command", shoot.Type)
	go func() {
		if err := c.gun.ProcessShot(ctx, shoot.Type); err != nil {
			debug.Error(err)
		}
	}()
}

// Shutdown releases the bus subscription.
func (c *Controller) Shutdown() {
	_ = c.sub.Close()
}
