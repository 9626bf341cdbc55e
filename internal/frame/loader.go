package frame

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Loader retrieves a frame's samples from its announced path. The analyzer
// depends on this interface so tests can feed frames directly.
type Loader interface {
	Load(path string) (Frame, error)
}

// FileLoader decodes jpeg/png images from disk into grayscale frames.
type FileLoader struct{}

// Load reads and decodes the image at path, flattened to luminance.
func (FileLoader) Load(path string) (Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return Frame{}, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return Frame{}, fmt.Errorf("decode image %s: %w", path, err)
	}
	return fromImage(img), nil
}

// fromImage converts a decoded image into a luminance grid (0-255).
func fromImage(img image.Image) Frame {
	bounds := img.Bounds()
	f := New(bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma, scaled from 16-bit channels to 0-255.
			luma := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
			f.Set(x-bounds.Min.X, y-bounds.Min.Y, luma)
		}
	}
	return f
}
