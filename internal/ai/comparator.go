// Package ai decides, from a stream of frame notifications, when motion
// occurred in front of the camera, and broadcasts shoot commands when it
// did. It owns the backpressure policy: comparison is expensive relative
// to the frame rate, so at most one comparison runs at a time and frames
// arriving meanwhile are dropped, never queued.
package ai

import (
	"github.com/cjeanneret/SquirtGo/internal/frame"
)

// Comparator decides whether motion occurred given the previous and
// current frames of a cycle.
type Comparator interface {
	Compare(prev, cur frame.Frame) (bool, error)
}

// Default threshold rule: more than 10 cells with a magnitude greater
// than 60 counts as motion.
const (
	DefaultMagnitude = 60
	DefaultCount     = 10
	DefaultSigma     = 3
)

// FastComparator works on frames that already encode a motion-magnitude
// field (e.g. camera motion vectors): only the current frame matters.
// Feeding it ordinary images won't work.
type FastComparator struct {
	Magnitude float64
	Count     int
}

func (c FastComparator) Compare(_, cur frame.Frame) (bool, error) {
	return cur.CountAbove(c.Magnitude) > c.Count, nil
}

// DiffComparator detects motion from the difference between two consecutive
// ordinary images: both frames are smoothed, differenced per cell, and the
// threshold rule is applied to the result.
type DiffComparator struct {
	Sigma     float64
	Magnitude float64
	Count     int
}

func (c DiffComparator) Compare(prev, cur frame.Frame) (bool, error) {
	smoothPrev := frame.Smooth(prev, c.Sigma)
	smoothCur := frame.Smooth(cur, c.Sigma)
	diff, err := frame.AbsDiff(smoothCur, smoothPrev)
	if err != nil {
		return false, err
	}
	return diff.CountAbove(c.Magnitude) > c.Count, nil
}
