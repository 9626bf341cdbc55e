// Package camera produces frame-available announcements for the analyzer.
// Two producers exist: a filesystem camera replaying a directory of images,
// and a virtual camera generating noise frames, writing them to disk and
// rotating old ones out.
package camera

import (
	"context"
	"fmt"

	"github.com/cjeanneret/SquirtGo/internal/debug"
	"github.com/cjeanneret/SquirtGo/internal/frame"
	"github.com/cjeanneret/SquirtGo/internal/msg"
)

// Publisher is the outbound bus surface the producers need.
type Publisher interface {
	Publish(payload []byte)
}

// ImageServer produces frames, from hardware, disk, or thin air.
type ImageServer interface {
	ServeImage(ctx context.Context) (frame.Frame, error)
}

// ImageWriter persists a frame under a name and returns its full path.
type ImageWriter interface {
	WriteImage(f frame.Frame, name string) (string, error)
}

// ImageCleaner reclaims resources taken up by old images, if any.
type ImageCleaner interface {
	CleanImage(path string, count int) error
}

// Producer composes server, writer and cleaner into the capture loop:
// serve an image, write it out, announce its path, clean up, repeat.
type Producer struct {
	server  ImageServer
	writer  ImageWriter
	cleaner ImageCleaner
	pub     Publisher
	count   int
}

func NewProducer(server ImageServer, writer ImageWriter, cleaner ImageCleaner, pub Publisher) *Producer {
	return &Producer{
		server:  server,
		writer:  writer,
		cleaner: cleaner,
		pub:     pub,
	}
}

// Run serves images until ctx is cancelled. Write and clean errors are
// logged and the loop continues; only the server ending stops it.
func (p *Producer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		image, err := p.server.ServeImage(ctx)
		if err != nil {
			return fmt.Errorf("serve image: %w", err)
		}

		name := fmt.Sprintf("%06d", p.count)
		path, err := p.writer.WriteImage(image, name)
		if err != nil {
			debug.Error(err)
			continue
		}

		if err := p.announce(path); err != nil {
			debug.Error(err)
		}
		if err := p.cleaner.CleanImage(path, p.count); err != nil {
			debug.Error(err)
		}
		p.count++
		debug.Live("Serving: %s", path)
	}
}

func (p *Producer) announce(path string) error {
	payload, err := msg.ImagePath{Path: path}.Encode()
	if err != nil {
		return fmt.Errorf("encode image path: %w", err)
	}
	p.pub.Publish(payload)
	return nil
}

// Count returns the number of frames served so far.
func (p *Producer) Count() int { return p.count }
