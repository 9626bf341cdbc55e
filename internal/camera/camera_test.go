package camera

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cjeanneret/SquirtGo/internal/frame"
	"github.com/cjeanneret/SquirtGo/internal/msg"
)

// capturePublisher records every announced payload.
type capturePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *capturePublisher) Publish(payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, append([]byte(nil), payload...))
}

func (p *capturePublisher) paths(t *testing.T) []string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, payload := range p.payloads {
		ip, err := msg.DecodeImagePath(payload)
		if err != nil {
			t.Fatalf("decode announcement: %v", err)
		}
		out = append(out, ip.Path)
	}
	return out
}

// stubServer serves a fixed number of flat frames, then reports end of stream.
type stubServer struct {
	frames int
	served int
}

var errStreamEnded = errors.New("stream ended")

func (s *stubServer) ServeImage(ctx context.Context) (frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return frame.Frame{}, err
	}
	if s.served >= s.frames {
		return frame.Frame{}, errStreamEnded
	}
	s.served++
	return frame.New(2, 2), nil
}

// stubWriter maps names to fake paths. Names listed in failOn reject their
// next write, then succeed, so retry behavior is observable.
type stubWriter struct {
	failOn  map[string]bool
	written []string
}

func (w *stubWriter) WriteImage(_ frame.Frame, name string) (string, error) {
	if w.failOn[name] {
		delete(w.failOn, name)
		return "", errors.New("disk full")
	}
	w.written = append(w.written, name)
	return "/img/" + name + ".jpg", nil
}

// stubCleaner records cleanup invocations.
type stubCleaner struct {
	counts []int
}

func (c *stubCleaner) CleanImage(_ string, count int) error {
	c.counts = append(c.counts, count)
	return nil
}

// ---------- Producer ----------

func TestProducerCycle(t *testing.T) {
	pub := &capturePublisher{}
	cleaner := &stubCleaner{}
	p := NewProducer(&stubServer{frames: 3}, &stubWriter{}, cleaner, pub)

	err := p.Run(context.Background())
	if !errors.Is(err, errStreamEnded) {
		t.Fatalf("Run returned %v, want wrapped stream end", err)
	}

	want := []string{"/img/000000.jpg", "/img/000001.jpg", "/img/000002.jpg"}
	got := pub.paths(t)
	if len(got) != len(want) {
		t.Fatalf("announced %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("announcement %d = %q, want %q", i, got[i], want[i])
		}
	}
	if p.Count() != 3 {
		t.Errorf("Count() = %d, want 3", p.Count())
	}
	if len(cleaner.counts) != 3 {
		t.Errorf("cleaner invoked %d times, want 3", len(cleaner.counts))
	}
}

func TestProducerSkipsFailedWrites(t *testing.T) {
	pub := &capturePublisher{}
	writer := &stubWriter{failOn: map[string]bool{"000000": true}}
	p := NewProducer(&stubServer{frames: 2}, writer, &stubCleaner{}, pub)

	_ = p.Run(context.Background())

	// The failed frame is not announced and does not consume a sequence
	// number, so the next write reuses it.
	got := pub.paths(t)
	if len(got) != 1 || got[0] != "/img/000000.jpg" {
		t.Errorf("announced %v, want [/img/000000.jpg]", got)
	}
}

func TestProducerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewProducer(&stubServer{frames: 100}, &stubWriter{}, &stubCleaner{}, &capturePublisher{})

	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

// ---------- FSCamera ----------

func writeImages(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestFSCameraServesSorted(t *testing.T) {
	dir := writeImages(t, "b.jpg", "a.jpg", "c.jpg", "notes.txt")

	cam, err := NewFSCamera(dir, "*.jpg", false, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	pub := &capturePublisher{}
	if err := cam.Run(context.Background(), pub); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "b.jpg"),
		filepath.Join(dir, "c.jpg"),
	}
	got := pub.paths(t)
	if len(got) != len(want) {
		t.Fatalf("announced %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("announcement %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFSCameraCycleStopsOnCancel(t *testing.T) {
	dir := writeImages(t, "a.jpg")
	cam, err := NewFSCamera(dir, "*.jpg", true, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	pub := &capturePublisher{}
	if err := cam.Run(ctx, pub); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned %v, want deadline exceeded", err)
	}
	// Cycling re-announced the single image more than once.
	if got := pub.paths(t); len(got) < 2 {
		t.Errorf("cycling announced %d times, want at least 2", len(got))
	}
}

func TestFSCameraRejectsBadSetups(t *testing.T) {
	dir := writeImages(t, "a.jpg")
	cases := []struct {
		name     string
		dir      string
		pattern  string
		interval time.Duration
	}{
		{"missing directory", filepath.Join(dir, "nope"), "*.jpg", time.Millisecond},
		{"no matches", dir, "*.png", time.Millisecond},
		{"zero interval", dir, "*.jpg", 0},
	}
	for _, tc := range cases {
		if _, err := NewFSCamera(tc.dir, tc.pattern, false, tc.interval); err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
	}
}

// ---------- VirtualServer ----------

func TestVirtualServerShapeAndRange(t *testing.T) {
	s, err := NewVirtualServer(8, 4, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	f, err := s.ServeImage(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if f.Width != 8 || f.Height != 4 {
		t.Fatalf("frame shape = %dx%d, want 8x4", f.Width, f.Height)
	}
	for i, v := range f.Pix {
		if v < 0 || v >= 255 {
			t.Fatalf("pixel %d = %g, out of range", i, v)
		}
	}
}

func TestVirtualServerHonorsCancel(t *testing.T) {
	s, err := NewVirtualServer(8, 4, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.ServeImage(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ServeImage returned %v, want context.Canceled", err)
	}
}

func TestVirtualServerRejectsBadSetups(t *testing.T) {
	if _, err := NewVirtualServer(0, 4, time.Millisecond); err == nil {
		t.Error("expected error for zero width, got nil")
	}
	if _, err := NewVirtualServer(8, 4, 0); err == nil {
		t.Error("expected error for zero interval, got nil")
	}
}

// ---------- DiskWriter and cleaners ----------

func TestDiskWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDiskWriter(dir)
	if err != nil {
		t.Fatal(err)
	}

	f := frame.New(4, 4)
	for i := range f.Pix {
		f.Pix[i] = 200
	}
	path, err := w.WriteImage(f, "000042")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "000042.jpg") {
		t.Errorf("path = %q, want %q", path, filepath.Join(dir, "000042.jpg"))
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("written image missing: %v", err)
	}
}

func TestDiskWriterRequiresDirectory(t *testing.T) {
	if _, err := NewDiskWriter(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory, got nil")
	}
}

func TestWindowCleaner(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000000", "000001", "000002", "000003"} {
		if err := os.WriteFile(filepath.Join(dir, name+".jpg"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	c := NewWindowCleaner(dir, 2)

	// Below the window size nothing is removed.
	if err := c.CleanImage("", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "000000.jpg")); err != nil {
		t.Error("image removed before the window filled")
	}

	// At count 2 the window is full and image 0 falls out.
	if err := c.CleanImage("", 2); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "000000.jpg")); !os.IsNotExist(err) {
		t.Error("stale image 000000.jpg not removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "000001.jpg")); err != nil {
		t.Error("in-window image 000001.jpg removed")
	}

	// Removing an already-gone image is not an error.
	if err := c.CleanImage("", 2); err != nil {
		t.Errorf("second cleanup errored: %v", err)
	}
}

func TestClampByte(t *testing.T) {
	cases := []struct {
		in   float64
		want uint8
	}{
		{-5, 0},
		{0, 0},
		{127.9, 127},
		{255, 255},
		{300, 255},
	}
	for _, tc := range cases {
		if got := clampByte(tc.in); got != tc.want {
			t.Errorf("clampByte(%g) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
