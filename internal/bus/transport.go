// Package bus provides topic-based publish/subscribe over two ZeroMQ
// transports: a local same-host transport (ipc) and a networked transport
// (tcp, host:port addressed). Publishers bind, subscribers connect, and
// payloads fan out to every live subscriber of a topic. Delivery is
// fire-and-forget: there is no acknowledgement and no queueing guarantee
// beyond per-publisher, per-topic ordering.
package bus

import (
	"fmt"
	"path/filepath"
)

// Canonical topic names agreed on by all nodes.
const (
	TopicFrame = "img_path" // frame-available announcements
	TopicShoot = "shoot"    // shoot commands
)

// TransportKind selects the delivery path for a topic.
type TransportKind int

const (
	// TransportLocal delivers on the same host through an ipc endpoint
	// derived from the topic name.
	TransportLocal TransportKind = iota
	// TransportNetworked delivers over tcp to a host:port.
	TransportNetworked
)

// Transport describes how a topic is carried.
type Transport struct {
	Kind TransportKind
	// RuntimeDir is the directory holding ipc endpoints (local transport).
	RuntimeDir string
	// Host and Port address the networked transport. An empty Host means
	// "all interfaces" when binding.
	Host string
	Port int
}

// Local returns a same-host transport rooted at runtimeDir.
func Local(runtimeDir string) Transport {
	if runtimeDir == "" {
		runtimeDir = "/tmp"
	}
	return Transport{Kind: TransportLocal, RuntimeDir: runtimeDir}
}

// Networked returns a tcp transport addressed by host and port.
func Networked(host string, port int) Transport {
	return Transport{Kind: TransportNetworked, Host: host, Port: port}
}

// Endpoint derives the ZeroMQ endpoint for a topic on this transport.
// bind selects the publisher-side form for networked endpoints.
func (t Transport) Endpoint(topic string, bind bool) string {
	switch t.Kind {
	case TransportLocal:
		return "ipc://" + filepath.Join(t.RuntimeDir, topic)
	default:
		host := t.Host
		if bind && host == "" {
			host = "*"
		}
		return fmt.Sprintf("tcp://%s:%d", host, t.Port)
	}
}

func (t Transport) String() string {
	if t.Kind == TransportLocal {
		return "local(" + t.RuntimeDir + ")"
	}
	return fmt.Sprintf("networked(%s:%d)", t.Host, t.Port)
}
