package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cjeanneret/SquirtGo/internal/debug"
	"github.com/cjeanneret/SquirtGo/internal/msg"
)

// FSCamera announces images already sitting in a directory, in sorted order
// at a fixed rate. With Cycle set it loops over the directory forever.
type FSCamera struct {
	paths    []string
	cycle    bool
	interval time.Duration
}

// NewFSCamera creates a filesystem camera over serveDir. The directory must
// exist and contain at least one file matching pattern (e.g. "*.jpg").
func NewFSCamera(serveDir, pattern string, cycle bool, interval time.Duration) (*FSCamera, error) {
	info, err := os.Stat(serveDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("must provide an existing directory: %s", serveDir)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("frame interval must be positive, got %v", interval)
	}

	paths, err := filepath.Glob(filepath.Join(serveDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad image pattern %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images matching %q in %s", pattern, serveDir)
	}
	sort.Strings(paths)

	return &FSCamera{paths: paths, cycle: cycle, interval: interval}, nil
}

// Run announces every matching image on the bus at the configured rate.
// This never returns while cycling, except on cancellation.
func (c *FSCamera) Run(ctx context.Context, pub Publisher) error {
	for {
		for _, path := range c.paths {
			payload, err := msg.ImagePath{Path: path}.Encode()
			if err != nil {
				return fmt.Errorf("encode image path: %w", err)
			}
			pub.Publish(payload)
			debug.Live("Serving: %s", path)

			timer := time.NewTimer(c.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if !c.cycle {
			return nil
		}
	}
}
