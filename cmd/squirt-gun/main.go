package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cjeanneret/SquirtGo/internal/config"
	"github.com/cjeanneret/SquirtGo/internal/debug"
	"github.com/cjeanneret/SquirtGo/internal/gun"
	"github.com/cjeanneret/SquirtGo/internal/hw/gpio"
)

func main() {
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	gunType := flag.String("type", "", "override gun type: virtual (no hardware) or real (RPi)")
	brain := flag.String("brain", "", "override address of the host serving as the guns brain")
	port := flag.Int("port", 0, "override port to listen on for brain commands")
	pin := flag.Int("pin", 0, "override GPIO pin controlling the gun")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// CLI overrides (flag left empty/zero means "use config")
	if *gunType != "" {
		cfg.Gun.Type = *gunType
	}
	if *brain != "" {
		cfg.Gun.BrainHost = *brain
	}
	if *port != 0 {
		if err := config.ValidatePort(*port); err != nil {
			log.Fatalf("invalid port override: %v", err)
		}
		cfg.Gun.Port = *port
	}
	if *pin != 0 {
		if err := config.ValidatePin(*pin); err != nil {
			log.Fatalf("invalid pin override: %v", err)
		}
		cfg.Gun.Pin = *pin
	}
	if cfg.Gun.BrainHost == "" {
		log.Fatalf("brain host is required (set gun.brain_host or -brain)")
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Starting the Gun")
	debug.Value("Gun type", cfg.Gun.Type)
	debug.Value("Brain", cfg.Gun.BrainHost)
	debug.Value("Port", cfg.Gun.Port)
	debug.Value("Pin", cfg.Gun.Pin)

	g, cleanup, err := newGunFromConfig(cfg)
	if err != nil {
		log.Fatalf("init gun failed: %v", err)
	}
	defer cleanup()

	controller, err := gun.NewController(ctx, g, cfg.Gun.BrainHost, cfg.Gun.Port)
	if err != nil {
		log.Fatalf("start gun controller failed: %v", err)
	}

	<-ctx.Done()
	debug.Info("Received interrupt signal.")
	controller.Shutdown()
	debug.Info("Gun shut down.")
}

// newGunFromConfig selects a gun implementation based on configuration.
// The cleanup releases the GPIO driver (pins reset to a safe state).
func newGunFromConfig(cfg *config.Config) (gun.Gun, func(), error) {
	if cfg.Gun.Type == "virtual" {
		return gun.VirtualGun{}, func() {}, nil
	}

	driver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return nil, nil, err
	}
	timings := gun.Timings{
		SingleHold: cfg.SingleHold(),
		BurstHold:  cfg.BurstHold(),
		BurstPause: cfg.BurstPause(),
	}
	cleanup := func() {
		if err := driver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}
	return gun.NewPinGun(driver, cfg.Gun.Pin, timings), cleanup, nil
}
