package bus

import (
	"fmt"
	"sync"

	"github.com/pebbe/zmq4"

	"github.com/cjeanneret/SquirtGo/internal/debug"
)

// Publisher fans out byte payloads on one topic over one transport.
// Messages go out as a two-part envelope [topic, payload] so subscribers
// can filter on the topic prefix.
type Publisher struct {
	topic string

	mu     sync.Mutex
	socket *zmq4.Socket
	closed bool
}

// NewPublisher binds a PUB socket for the topic on the given transport.
func NewPublisher(topic string, tr Transport) (*Publisher, error) {
	socket, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("create pub socket: %w", err)
	}
	endpoint := tr.Endpoint(topic, true)
	if err := socket.Bind(endpoint); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("bind %s: %w", endpoint, err)
	}
	debug.Verbose("bus: publishing %s on %s", topic, endpoint)
	return &Publisher{topic: topic, socket: socket}, nil
}

// Publish sends one payload to every live subscriber of the topic.
// Fire-and-forget: with no subscribers the payload is discarded, and send
// failures are logged but never surfaced to the caller.
func (p *Publisher) Publish(payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if _, err := p.socket.SendMessageDontwait(p.topic, payload); err != nil {
		debug.Trace("bus: publish on %s failed: %v", p.topic, err)
		return
	}
	debug.Bus("publish", p.topic, len(payload))
}

// Topic returns the topic this publisher is bound to.
func (p *Publisher) Topic() string { return p.topic }

// Close releases the underlying socket. Safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.socket.Close()
}
