package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BusConfig holds shared bus transport settings.
type BusConfig struct {
	RuntimeDir string `yaml:"runtime_dir"` // directory for local (ipc) endpoints
}

// AIConfig configures the motion analyzer node. The threshold fields are
// pointers so an explicit 0 (a valid, maximally sensitive setting) is
// distinguishable from an absent key taking the default.
type AIConfig struct {
	Intelligence string   `yaml:"intelligence"` // "motion_fast" or "motion_slow"
	Host         string   `yaml:"host"`         // interface address for the networked shoot publisher
	Port         int      `yaml:"port"`         // port for the networked shoot publisher
	Magnitude    *float64 `yaml:"magnitude"`    // per-cell motion magnitude threshold
	Count        *int     `yaml:"count"`        // number of cells above magnitude that means motion
	Sigma        *float64 `yaml:"sigma"`        // smoothing sigma for the differencing comparator (0 disables smoothing)
}

// GunConfig configures the actuator node.
type GunConfig struct {
	Type         string `yaml:"type"`       // "virtual" or "real"
	Pin          int    `yaml:"pin"`        // GPIO pin driving the gun (BCM)
	BrainHost    string `yaml:"brain_host"` // address of the analyzer broadcasting commands
	Port         int    `yaml:"port"`       // port the analyzer broadcasts on
	SingleHoldMs int    `yaml:"single_hold_ms"`
	BurstHoldMs  int    `yaml:"burst_hold_ms"`
	BurstPauseMs int    `yaml:"burst_pause_ms"`
}

// CameraConfig configures the frame producer node.
type CameraConfig struct {
	Mode       string  `yaml:"mode"`      // "fs" (serve existing images) or "virtual" (generate noise)
	Directory  string  `yaml:"directory"` // image directory (served from, or written to)
	Rate       float64 `yaml:"rate"`      // frames per second
	Cycle      bool    `yaml:"cycle"`     // fs mode: loop over the directory forever
	Format     string  `yaml:"format"`    // fs mode: glob pattern for served images
	WidthPx    int     `yaml:"width_px"`  // virtual mode: generated image width
	HeightPx   int     `yaml:"height_px"` // virtual mode: generated image height
	KeepImages int     `yaml:"keep_images"`
}

// WebConfig configures the monitoring bridge.
type WebConfig struct {
	Port     int    `yaml:"port"`
	ImageDir string `yaml:"image_dir"` // directory the camera writes frames to
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all node configuration. Each node reads the same file
// and uses its own section.
type Config struct {
	Bus      BusConfig      `yaml:"bus"`
	AI       AIConfig       `yaml:"ai"`
	Gun      GunConfig      `yaml:"gun"`
	Camera   CameraConfig   `yaml:"camera"`
	Web      WebConfig      `yaml:"web"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

const (
	// MinPort and MaxPort bound valid bus ports (unprivileged range).
	MinPort = 1024
	MaxPort = 65535
)

// ValidatePort checks that a bus port falls in the unprivileged range.
func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", MinPort, MaxPort, port)
	}
	return nil
}

// ValidatePin checks that a GPIO pin identifier is positive.
func ValidatePin(pin int) error {
	if pin <= 0 {
		return fmt.Errorf("pin must be a positive integer, got %d", pin)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

// Load reads a YAML file and returns the configuration.
// Invalid values fail here, before any bus socket is opened.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Defaults
	if cfg.Bus.RuntimeDir == "" {
		cfg.Bus.RuntimeDir = "/tmp"
	}
	if cfg.AI.Intelligence == "" {
		cfg.AI.Intelligence = "motion_slow"
	}
	if cfg.AI.Port == 0 {
		cfg.AI.Port = 9000
	}
	if cfg.AI.Magnitude == nil {
		cfg.AI.Magnitude = ptr(60.0)
	}
	if cfg.AI.Count == nil {
		cfg.AI.Count = ptr(10)
	}
	if cfg.AI.Sigma == nil {
		cfg.AI.Sigma = ptr(3.0)
	}
	if cfg.Gun.Type == "" {
		cfg.Gun.Type = "virtual"
	}
	if cfg.Gun.Pin == 0 {
		cfg.Gun.Pin = 18
	}
	if cfg.Gun.Port == 0 {
		cfg.Gun.Port = 9000
	}
	if cfg.Gun.SingleHoldMs == 0 {
		cfg.Gun.SingleHoldMs = 100
	}
	if cfg.Gun.BurstHoldMs == 0 {
		cfg.Gun.BurstHoldMs = 80
	}
	if cfg.Gun.BurstPauseMs == 0 {
		cfg.Gun.BurstPauseMs = 30
	}
	if cfg.Camera.Mode == "" {
		cfg.Camera.Mode = "fs"
	}
	if cfg.Camera.Rate == 0 {
		cfg.Camera.Rate = 2
	}
	if cfg.Camera.Format == "" {
		cfg.Camera.Format = "*.jpg"
	}
	if cfg.Camera.WidthPx == 0 {
		cfg.Camera.WidthPx = 320
	}
	if cfg.Camera.HeightPx == 0 {
		cfg.Camera.HeightPx = 240
	}
	if cfg.Camera.KeepImages == 0 {
		cfg.Camera.KeepImages = 100
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}

	// Validation
	switch cfg.AI.Intelligence {
	case "motion_fast", "motion_slow":
	default:
		return nil, fmt.Errorf("ai.intelligence must be motion_fast or motion_slow, got %q", cfg.AI.Intelligence)
	}
	if err := ValidatePort(cfg.AI.Port); err != nil {
		return nil, fmt.Errorf("ai.port: %w", err)
	}
	if *cfg.AI.Magnitude < 0 {
		return nil, fmt.Errorf("ai.magnitude must be >= 0, got %g", *cfg.AI.Magnitude)
	}
	if *cfg.AI.Count < 0 {
		return nil, fmt.Errorf("ai.count must be >= 0, got %d", *cfg.AI.Count)
	}
	if *cfg.AI.Sigma < 0 {
		return nil, fmt.Errorf("ai.sigma must be >= 0, got %g", *cfg.AI.Sigma)
	}
	switch cfg.Gun.Type {
	case "virtual", "real":
	default:
		return nil, fmt.Errorf("gun.type must be virtual or real, got %q", cfg.Gun.Type)
	}
	if err := ValidatePin(cfg.Gun.Pin); err != nil {
		return nil, fmt.Errorf("gun.pin: %w", err)
	}
	if err := ValidatePort(cfg.Gun.Port); err != nil {
		return nil, fmt.Errorf("gun.port: %w", err)
	}
	switch cfg.Camera.Mode {
	case "fs", "virtual":
	default:
		return nil, fmt.Errorf("camera.mode must be fs or virtual, got %q", cfg.Camera.Mode)
	}
	if cfg.Camera.Rate <= 0 {
		return nil, fmt.Errorf("camera.rate must be > 0, got %g", cfg.Camera.Rate)
	}
	if cfg.Camera.WidthPx <= 0 || cfg.Camera.HeightPx <= 0 {
		return nil, fmt.Errorf("camera resolution must contain only positive integers, got %dx%d",
			cfg.Camera.WidthPx, cfg.Camera.HeightPx)
	}
	if cfg.Camera.KeepImages < 0 {
		return nil, fmt.Errorf("camera.keep_images must be >= 0, got %d", cfg.Camera.KeepImages)
	}
	if err := ValidatePort(cfg.Web.Port); err != nil {
		return nil, fmt.Errorf("web.port: %w", err)
	}

	return &cfg, nil
}

// SingleHold returns the pulse hold duration for a single shot.
func (c *Config) SingleHold() time.Duration {
	return time.Duration(c.Gun.SingleHoldMs) * time.Millisecond
}

// BurstHold returns the pulse hold duration for one burst round.
func (c *Config) BurstHold() time.Duration {
	return time.Duration(c.Gun.BurstHoldMs) * time.Millisecond
}

// BurstPause returns the pause between burst rounds.
func (c *Config) BurstPause() time.Duration {
	return time.Duration(c.Gun.BurstPauseMs) * time.Millisecond
}

// FrameInterval returns the delay between served frames.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Camera.Rate)
}
