package bus

import (
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/cjeanneret/SquirtGo/internal/debug"
)

// Callback is invoked for every payload delivered on a subscription.
// It runs on the subscription's own goroutine, never inline with the
// publisher, so a slow callback delays only its own topic stream.
type Callback func(payload []byte)

// receiver is the socket surface the delivery loop needs. *zmq4.Socket
// satisfies it; tests substitute a fake.
type receiver interface {
	RecvMessageBytes(flags zmq4.Flag) ([][]byte, error)
	Close() error
}

// recvTimeout bounds each blocking receive so Close can take effect.
const recvTimeout = 200 * time.Millisecond

// Subscription is a live registration of a callback on one topic over one
// transport. Close it to stop deliveries.
type Subscription struct {
	topic string

	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// Subscribe connects a SUB socket for the topic on the given transport and
// invokes fn for every future payload. The returned handle must be closed
// when the subscriber shuts down.
func Subscribe(topic string, tr Transport, fn Callback) (*Subscription, error) {
	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, fmt.Errorf("create sub socket: %w", err)
	}
	endpoint := tr.Endpoint(topic, false)
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("connect %s: %w", endpoint, err)
	}
	if err := socket.SetSubscribe(topic); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	if err := socket.SetRcvtimeo(recvTimeout); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("set recv timeout: %w", err)
	}
	debug.Verbose("bus: subscribed to %s on %s", topic, endpoint)

	s := newSubscription(topic)
	go s.loop(socket, fn)
	return s, nil
}

func newSubscription(topic string) *Subscription {
	return &Subscription{
		topic: topic,
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// loop receives until the subscription is closed. The loop owns the socket:
// it is the only goroutine touching it, and closes it on exit.
func (s *Subscription) loop(socket receiver, fn Callback) {
	defer close(s.done)
	defer socket.Close()

	for {
		select {
		case <-s.quit:
			return
		default:
		}

		parts, err := socket.RecvMessageBytes(0)
		if err != nil {
			if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
				continue // receive timeout, re-check quit
			}
			debug.Trace("bus: recv on %s failed: %v", s.topic, err)
			continue
		}

		payload, ok := payloadOf(parts, s.topic)
		if !ok {
			// Malformed envelope: drop at the transport boundary.
			debug.Trace("bus: dropping malformed message on %s (%d parts)", s.topic, len(parts))
			continue
		}

		select {
		case <-s.quit:
			// Closed while the message was in flight; do not deliver.
			return
		default:
		}

		debug.Bus("deliver", s.topic, len(payload))
		fn(payload)
	}
}

// payloadOf extracts the payload from a two-part [topic, payload] envelope.
func payloadOf(parts [][]byte, topic string) ([]byte, bool) {
	if len(parts) != 2 {
		return nil, false
	}
	if string(parts[0]) != topic {
		return nil, false
	}
	return parts[1], true
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string { return s.topic }

// Close stops deliveries and releases the socket. Idempotent; an invocation
// already dispatched may still complete, but no further ones occur.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
	return nil
}
