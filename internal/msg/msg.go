// Package msg defines the wire messages exchanged over the bus.
// Messages are CBOR-encoded and schema-tagged with a "kind" field so a
// receiver can decode them without external context.
package msg

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Message kinds as they appear on the wire.
const (
	kindImagePath = "image_path"
	kindShoot     = "shoot"
)

// ShotType selects the gun behavior requested by a Shoot command.
type ShotType uint8

const (
	ShotSingle ShotType = iota
	ShotBurst
)

func (t ShotType) String() string {
	switch t {
	case ShotSingle:
		return "single"
	case ShotBurst:
		return "burst"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseShotType converts a wire string to a ShotType.
func ParseShotType(s string) (ShotType, error) {
	switch s {
	case "single":
		return ShotSingle, nil
	case "burst":
		return ShotBurst, nil
	default:
		return 0, fmt.Errorf("unknown shot type %q", s)
	}
}

// ImagePath announces a newly captured frame by its on-disk path.
type ImagePath struct {
	Path string
}

// Shoot commands the gun to execute a shot pattern.
type Shoot struct {
	Type ShotType
}

// envelope is the on-wire shape shared by all messages.
type envelope struct {
	Kind string `cbor:"kind"`
	Path string `cbor:"path,omitempty"`
	Shot string `cbor:"shot,omitempty"`
}

// Encode serializes the image path announcement.
func (m ImagePath) Encode() ([]byte, error) {
	return cbor.Marshal(envelope{Kind: kindImagePath, Path: m.Path})
}

// Encode serializes the shoot command.
func (m Shoot) Encode() ([]byte, error) {
	return cbor.Marshal(envelope{Kind: kindShoot, Shot: m.Type.String()})
}

// DecodeImagePath decodes an image path announcement. Payloads of any other
// kind, or malformed payloads, return an error; bus endpoints drop those.
func DecodeImagePath(data []byte) (ImagePath, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return ImagePath{}, fmt.Errorf("decode image path: %w", err)
	}
	if env.Kind != kindImagePath {
		return ImagePath{}, fmt.Errorf("decode image path: unexpected kind %q", env.Kind)
	}
	if env.Path == "" {
		return ImagePath{}, fmt.Errorf("decode image path: empty path")
	}
	return ImagePath{Path: env.Path}, nil
}

// DecodeShoot decodes a shoot command.
func DecodeShoot(data []byte) (Shoot, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return Shoot{}, fmt.Errorf("decode shoot: %w", err)
	}
	if env.Kind != kindShoot {
		return Shoot{}, fmt.Errorf("decode shoot: unexpected kind %q", env.Kind)
	}
	shotType, err := ParseShotType(env.Shot)
	if err != nil {
		return Shoot{}, fmt.Errorf("decode shoot: %w", err)
	}
	return Shoot{Type: shotType}, nil
}
