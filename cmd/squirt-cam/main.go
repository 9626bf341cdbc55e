package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cjeanneret/SquirtGo/internal/bus"
	"github.com/cjeanneret/SquirtGo/internal/camera"
	"github.com/cjeanneret/SquirtGo/internal/config"
	"github.com/cjeanneret/SquirtGo/internal/debug"
)

func main() {
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	mode := flag.String("mode", "", "override camera mode: fs or virtual")
	dir := flag.String("dir", "", "override image directory")
	rate := flag.Float64("rate", 0, "override frames per second")
	cycle := flag.Bool("cycle", false, "fs mode: serve images infinitely")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// CLI overrides (flag left empty/zero means "use config")
	if *mode != "" {
		cfg.Camera.Mode = *mode
	}
	if *dir != "" {
		cfg.Camera.Directory = *dir
	}
	if *rate != 0 {
		cfg.Camera.Rate = *rate
	}
	if *cycle {
		cfg.Camera.Cycle = true
	}
	if cfg.Camera.Directory == "" {
		log.Fatalf("camera directory is required (set camera.directory or -dir)")
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Starting the Camera")
	debug.Value("Mode", cfg.Camera.Mode)
	debug.Value("Directory", cfg.Camera.Directory)
	debug.Value("Rate", cfg.Camera.Rate)

	pub, err := bus.NewPublisher(bus.TopicFrame, bus.Local(cfg.Bus.RuntimeDir))
	if err != nil {
		log.Fatalf("open frame publisher failed: %v", err)
	}
	defer pub.Close()

	if err := run(ctx, cfg, pub); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("camera failed: %v", err)
	}
	debug.Info("Camera shut down.")
}

func run(ctx context.Context, cfg *config.Config, pub *bus.Publisher) error {
	switch cfg.Camera.Mode {
	case "fs":
		cam, err := camera.NewFSCamera(cfg.Camera.Directory, cfg.Camera.Format,
			cfg.Camera.Cycle, cfg.FrameInterval())
		if err != nil {
			return err
		}
		return cam.Run(ctx, pub)
	default:
		server, err := camera.NewVirtualServer(cfg.Camera.WidthPx, cfg.Camera.HeightPx, cfg.FrameInterval())
		if err != nil {
			return err
		}
		writer, err := camera.NewDiskWriter(cfg.Camera.Directory)
		if err != nil {
			return err
		}
		cleaner := camera.NewWindowCleaner(cfg.Camera.Directory, cfg.Camera.KeepImages)
		return camera.NewProducer(server, writer, cleaner, pub).Run(ctx)
	}
}
