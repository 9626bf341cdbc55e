package ai

import (
	"context"
	"fmt"

	"github.com/cjeanneret/SquirtGo/internal/bus"
	"github.com/cjeanneret/SquirtGo/internal/config"
	"github.com/cjeanneret/SquirtGo/internal/frame"
)

// Controller abstracts all bus communications away from the analyzer: it
// subscribes to frame announcements on the local transport and opens the
// two shoot publishers (local monitoring + networked actuators).
type Controller struct {
	analyzer *Analyzer
	sub      *bus.Subscription
	shootIPC *bus.Publisher
	shootNet *bus.Publisher
}

// ComparatorFromConfig builds the configured intelligence.
func ComparatorFromConfig(cfg *config.Config) (Comparator, error) {
	switch cfg.AI.Intelligence {
	case "motion_fast":
		return FastComparator{Magnitude: *cfg.AI.Magnitude, Count: *cfg.AI.Count}, nil
	case "motion_slow":
		return DiffComparator{Sigma: *cfg.AI.Sigma, Magnitude: *cfg.AI.Magnitude, Count: *cfg.AI.Count}, nil
	default:
		return nil, fmt.Errorf("unsupported intelligence: %s", cfg.AI.Intelligence)
	}
}

// NewController wires the analyzer to the bus and starts its loop.
// Publishers open before the frame subscription so no confirmed motion can
// ever find a missing outbound socket.
func NewController(ctx context.Context, cfg *config.Config, loader frame.Loader, cmp Comparator) (*Controller, error) {
	local := bus.Local(cfg.Bus.RuntimeDir)

	shootIPC, err := bus.NewPublisher(bus.TopicShoot, local)
	if err != nil {
		return nil, fmt.Errorf("open local shoot publisher: %w", err)
	}
	shootNet, err := bus.NewPublisher(bus.TopicShoot, bus.Networked(cfg.AI.Host, cfg.AI.Port))
	if err != nil {
		_ = shootIPC.Close()
		return nil, fmt.Errorf("open networked shoot publisher: %w", err)
	}

	analyzer := New(loader, cmp, shootIPC, shootNet)
	go analyzer.Run(ctx)

	sub, err := bus.Subscribe(bus.TopicFrame, local, analyzer.Notify)
	if err != nil {
		_ = shootIPC.Close()
		_ = shootNet.Close()
		return nil, fmt.Errorf("subscribe frame announcements: %w", err)
	}

	return &Controller{
		analyzer: analyzer,
		sub:      sub,
		shootIPC: shootIPC,
		shootNet: shootNet,
	}, nil
}

// Dropped returns the analyzer's dropped-frame counter.
func (c *Controller) Dropped() uint64 {
	return c.analyzer.Dropped()
}

// Shutdown releases the subscription and both publishers. Any in-flight
// comparison is abandoned with the controller's context.
func (c *Controller) Shutdown() {
	_ = c.sub.Close()
	_ = c.shootIPC.Close()
	_ = c.shootNet.Close()
}
