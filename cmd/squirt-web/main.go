package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cjeanneret/SquirtGo/internal/config"
	"github.com/cjeanneret/SquirtGo/internal/debug"
	"github.com/cjeanneret/SquirtGo/internal/web"
)

func main() {
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	port := flag.Int("port", 0, "override web server port")
	imageDir := flag.String("images", "", "override directory the camera writes frames to")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// CLI overrides (flag left empty/zero means "use config")
	if *port != 0 {
		if err := config.ValidatePort(*port); err != nil {
			log.Fatalf("invalid port override: %v", err)
		}
		cfg.Web.Port = *port
	}
	if *imageDir != "" {
		cfg.Web.ImageDir = *imageDir
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Starting the Camera View")
	debug.Value("Port", cfg.Web.Port)
	debug.Value("Image dir", cfg.Web.ImageDir)

	hub := web.NewHub()
	if _, err := web.StartBridge(cfg.Bus.RuntimeDir, hub); err != nil {
		log.Fatalf("start web bridge failed: %v", err)
	}
	defer web.StopBridge()

	srv := web.NewServer(fmt.Sprintf(":%d", cfg.Web.Port), hub, cfg.Web.ImageDir)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("web server: %v", err)
	}
	debug.Info("Camera view shut down.")
}
