package ai

import (
	"context"
	"sync/atomic"

	"github.com/cjeanneret/SquirtGo/internal/debug"
	"github.com/cjeanneret/SquirtGo/internal/frame"
	"github.com/cjeanneret/SquirtGo/internal/msg"
)

// Publisher is the outbound half of the bus the analyzer needs.
// *bus.Publisher satisfies it; tests substitute recorders.
type Publisher interface {
	Publish(payload []byte)
}

// Analyzer state machine. A cycle consumes exactly two frames: the first is
// stored, the second starts a comparison, and everything arriving while the
// comparison runs is dropped.
type analyzerState int

const (
	stateIdle analyzerState = iota
	stateAwaitingSecondFrame
	stateComparing
)

// outcome is what a comparison job reports back to the analyzer loop.
type outcome struct {
	motion bool
	err    error
}

// Analyzer consumes frame notifications, runs a comparator over consecutive
// frames, and publishes a shoot command when motion is confirmed. All state
// is mutated only from the Run loop; the comparator runs on a worker
// goroutine and reports back through a channel.
type Analyzer struct {
	loader frame.Loader
	cmp    Comparator
	local  Publisher // same-host monitoring topic
	remote Publisher // networked actuator topic

	notif   chan []byte
	results chan outcome

	// state is written only from the Run loop; stored atomically so
	// observers (tests, status reporting) can peek without locking.
	state   atomic.Int32
	prev    *frame.Frame
	dropped atomic.Uint64
}

// New creates an analyzer publishing confirmed-motion commands through the
// two given publishers. Both receive the identical encoded payload.
func New(loader frame.Loader, cmp Comparator, local, remote Publisher) *Analyzer {
	return &Analyzer{
		loader:  loader,
		cmp:     cmp,
		local:   local,
		remote:  remote,
		notif:   make(chan []byte, 1),
		results: make(chan outcome, 1),
	}
}

// Notify hands a frame-available payload to the analyzer. It never blocks:
// if the loop is mid-step, the notification is dropped, matching the
// drop-newest overload policy.
func (a *Analyzer) Notify(payload []byte) {
	select {
	case a.notif <- payload:
	default:
		a.dropped.Add(1)
	}
}

// Dropped returns the number of frame notifications discarded under load.
func (a *Analyzer) Dropped() uint64 {
	return a.dropped.Load()
}

// Run is the analyzer's event loop. It exits when ctx is cancelled; any
// in-flight comparison is abandoned and its late result ignored.
func (a *Analyzer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-a.notif:
			a.onNotification(ctx, payload)
		case out := <-a.results:
			if ctx.Err() != nil {
				// Cancelled while the result was in flight; never act on it.
				return
			}
			a.onResult(out)
		}
	}
}

func (a *Analyzer) onNotification(ctx context.Context, payload []byte) {
	imagePath, err := msg.DecodeImagePath(payload)
	if err != nil {
		// Malformed announcement: drop at the boundary.
		debug.Trace("ai: dropping notification: %v", err)
		return
	}

	if a.currentState() == stateComparing {
		// Backpressure: never queue behind a running comparison.
		a.dropped.Add(1)
		debug.Dropped(imagePath.Path, a.dropped.Load())
		return
	}

	debug.Frame(imagePath.Path)
	current, err := a.loader.Load(imagePath.Path)
	if err != nil {
		debug.Error(err)
		return
	}

	switch a.currentState() {
	case stateIdle:
		// First frame of a cycle is never compared.
		a.prev = &current
		a.state.Store(int32(stateAwaitingSecondFrame))
	case stateAwaitingSecondFrame:
		a.startComparison(ctx, *a.prev, current)
	}
}

func (a *Analyzer) currentState() analyzerState {
	return analyzerState(a.state.Load())
}

// startComparison offloads the comparator to a worker goroutine so the loop
// keeps receiving (and dropping) notifications while it runs. The worker
// never touches analyzer state; it only reports an outcome.
func (a *Analyzer) startComparison(ctx context.Context, prev, cur frame.Frame) {
	a.state.Store(int32(stateComparing))
	go func() {
		motion, err := a.cmp.Compare(prev, cur)
		select {
		case a.results <- outcome{motion: motion, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (a *Analyzer) onResult(out outcome) {
	// Whatever the outcome, the cycle is over: the previous frame is too
	// old to seed the next one.
	a.prev = nil
	a.state.Store(int32(stateIdle))

	if out.err != nil {
		debug.Error(out.err)
		return
	}
	debug.Live("Motion detected: %v", out.motion)
	if out.motion {
		a.shoot()
	}
}

// shoot publishes one shoot command on both the local monitoring topic and
// the networked actuator topic. The two publishes carry the identical
// payload and are both attempted regardless of subscriber presence.
func (a *Analyzer) shoot() {
	payload, err := msg.Shoot{Type: msg.ShotSingle}.Encode()
	if err != nil {
		debug.Error(err)
		return
	}
	a.remote.Publish(payload)
	a.local.Publish(payload)
	debug.Shot("single")
}
