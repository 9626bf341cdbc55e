// Package frame holds the two-dimensional sample grids the analyzer
// compares, plus the numeric kernels applied to them.
package frame

import (
	"fmt"
	"math"
)

// Frame is a two-dimensional grid of pixel intensities, row-major.
type Frame struct {
	Width  int
	Height int
	Pix    []float64
}

// New allocates a zeroed frame of the given dimensions.
func New(width, height int) Frame {
	return Frame{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the sample at (x, y). No bounds check; callers iterate within
// Width and Height.
func (f Frame) At(x, y int) float64 {
	return f.Pix[y*f.Width+x]
}

// Set stores a sample at (x, y).
func (f Frame) Set(x, y int, v float64) {
	f.Pix[y*f.Width+x] = v
}

// SameShape reports whether two frames have identical dimensions.
func (f Frame) SameShape(other Frame) bool {
	return f.Width == other.Width && f.Height == other.Height
}

// CountAbove returns the number of cells whose magnitude exceeds threshold.
func (f Frame) CountAbove(threshold float64) int {
	count := 0
	for _, v := range f.Pix {
		if v > threshold {
			count++
		}
	}
	return count
}

// AbsDiff returns the absolute per-cell difference of two same-shaped frames.
func AbsDiff(a, b Frame) (Frame, error) {
	if !a.SameShape(b) {
		return Frame{}, fmt.Errorf("frame shapes differ: %dx%d vs %dx%d",
			a.Width, a.Height, b.Width, b.Height)
	}
	out := New(a.Width, a.Height)
	for i := range a.Pix {
		out.Pix[i] = math.Abs(a.Pix[i] - b.Pix[i])
	}
	return out, nil
}

// Smooth applies a separable gaussian blur with the given sigma. The kernel
// radius is 3*sigma, clamped at the frame edges. Sigma <= 0 returns the
// frame unchanged.
func Smooth(f Frame, sigma float64) Frame {
	if sigma <= 0 {
		return f
	}
	kernel := gaussianKernel(sigma)
	half := len(kernel) / 2

	// Horizontal pass.
	tmp := New(f.Width, f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			var sum, weight float64
			for k, w := range kernel {
				sx := x + k - half
				if sx < 0 || sx >= f.Width {
					continue
				}
				sum += w * f.At(sx, y)
				weight += w
			}
			tmp.Set(x, y, sum/weight)
		}
	}

	// Vertical pass.
	out := New(f.Width, f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			var sum, weight float64
			for k, w := range kernel {
				sy := y + k - half
				if sy < 0 || sy >= f.Height {
					continue
				}
				sum += w * tmp.At(x, sy)
				weight += w
			}
			out.Set(x, y, sum/weight)
		}
	}
	return out
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
	}
	return kernel
}
