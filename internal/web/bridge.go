// Package web serves the monitoring UI: a websocket bridge relaying frame
// announcements and shoot events from the local bus to browser clients.
package web

import (
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/cjeanneret/SquirtGo/internal/bus"
	"github.com/cjeanneret/SquirtGo/internal/debug"
	"github.com/cjeanneret/SquirtGo/internal/msg"
)

// Event is a single message pushed to UI clients.
type Event struct {
	Type string `json:"type"`           // "image" or "shoot"
	URL  string `json:"url,omitempty"`  // image URL relative to this server
	Shot string `json:"shot,omitempty"` // shot type for shoot events
}

// Bridge holds the process-wide bus subscriptions shared by every websocket
// connection. One bridge exists per process; it is initialized explicitly at
// startup and torn down at shutdown, never lazily per connection.
type Bridge struct {
	hub *Hub

	frameSub *bus.Subscription
	shootSub *bus.Subscription
}

var (
	bridgeMu sync.Mutex
	bridge   *Bridge
)

// StartBridge subscribes the process to the frame and shoot topics on the
// local transport and starts relaying them to hub clients. Calling it a
// second time without StopBridge is an error.
func StartBridge(runtimeDir string, hub *Hub) (*Bridge, error) {
	bridgeMu.Lock()
	defer bridgeMu.Unlock()
	if bridge != nil {
		return nil, fmt.Errorf("web bridge already started")
	}

	b := &Bridge{hub: hub}
	local := bus.Local(runtimeDir)

	frameSub, err := bus.Subscribe(bus.TopicFrame, local, b.onFrame)
	if err != nil {
		return nil, fmt.Errorf("subscribe frame announcements: %w", err)
	}
	shootSub, err := bus.Subscribe(bus.TopicShoot, local, b.onShoot)
	if err != nil {
		_ = frameSub.Close()
		return nil, fmt.Errorf("subscribe shoot events: %w", err)
	}

	b.frameSub = frameSub
	b.shootSub = shootSub
	bridge = b
	return b, nil
}

// StopBridge tears down the process-wide bridge. Safe to call when none is
// running.
func StopBridge() {
	bridgeMu.Lock()
	defer bridgeMu.Unlock()
	if bridge == nil {
		return
	}
	_ = bridge.frameSub.Close()
	_ = bridge.shootSub.Close()
	bridge = nil
}

func (b *Bridge) onFrame(payload []byte) {
	imagePath, err := msg.DecodeImagePath(payload)
	if err != nil {
		debug.Trace("web: dropping frame announcement: %v", err)
		return
	}
	b.hub.Broadcast(Event{Type: "image", URL: "/images/" + path.Base(imagePath.Path)})
}

func (b *Bridge) onShoot(payload []byte) {
	shoot, err := msg.DecodeShoot(payload)
	if err != nil {
		debug.Trace("web: dropping shoot event: %v", err)
		return
	}
	b.hub.Broadcast(Event{Type: "shoot", Shot: shoot.Type.String()})
}

// EncodeEvent renders an event for the wire.
func EncodeEvent(evt Event) ([]byte, error) {
	return json.Marshal(evt)
}
