package camera

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/cjeanneret/SquirtGo/internal/debug"
	"github.com/cjeanneret/SquirtGo/internal/frame"
)

// VirtualServer generates images from thin air: each frame contains random
// noise. Useful for exercising the full pipeline with no camera attached.
type VirtualServer struct {
	width    int
	height   int
	interval time.Duration
}

// NewVirtualServer creates a noise camera serving at the given rate.
func NewVirtualServer(width, height int, interval time.Duration) (*VirtualServer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("resolution must contain only positive integers, got %dx%d", width, height)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("frame interval must be positive, got %v", interval)
	}
	return &VirtualServer{width: width, height: height, interval: interval}, nil
}

func (s *VirtualServer) ServeImage(ctx context.Context) (frame.Frame, error) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return frame.Frame{}, ctx.Err()
	case <-timer.C:
	}

	f := frame.New(s.width, s.height)
	for i := range f.Pix {
		f.Pix[i] = rand.Float64() * 255
	}
	return f, nil
}

// DiskWriter writes frames as jpeg files into a destination directory.
type DiskWriter struct {
	destDir string
}

// NewDiskWriter creates a writer for destDir. The directory must exist.
func NewDiskWriter(destDir string) (*DiskWriter, error) {
	info, err := os.Stat(destDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("destination path must exist and be a directory: %s", destDir)
	}
	return &DiskWriter{destDir: destDir}, nil
}

func (w *DiskWriter) WriteImage(f frame.Frame, name string) (string, error) {
	path := filepath.Join(w.destDir, name+".jpg")

	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			img.SetGray(x, y, color.Gray{Y: clampByte(f.At(x, y))})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	defer file.Close()
	if err := jpeg.Encode(file, img, nil); err != nil {
		return "", fmt.Errorf("encode image %s: %w", path, err)
	}
	return path, nil
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// WindowCleaner keeps only the most recent images on disk, removing the one
// that fell out of the window each cycle.
type WindowCleaner struct {
	dir  string
	keep int
}

func NewWindowCleaner(dir string, keep int) *WindowCleaner {
	return &WindowCleaner{dir: dir, keep: keep}
}

func (c *WindowCleaner) CleanImage(_ string, count int) error {
	if count < c.keep {
		return nil
	}
	stale := filepath.Join(c.dir, fmt.Sprintf("%06d.jpg", count-c.keep))
	if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale image: %w", err)
	}
	debug.Trace("camera: removed stale image %s", stale)
	return nil
}

// NopCleaner performs no cleanup. Used by producers serving pre-existing
// image sets that must not be touched.
type NopCleaner struct{}

func (NopCleaner) CleanImage(string, int) error { return nil }
