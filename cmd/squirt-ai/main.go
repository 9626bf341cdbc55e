package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cjeanneret/SquirtGo/internal/ai"
	"github.com/cjeanneret/SquirtGo/internal/config"
	"github.com/cjeanneret/SquirtGo/internal/debug"
	"github.com/cjeanneret/SquirtGo/internal/frame"
)

func main() {
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	intelligence := flag.String("intelligence", "", "override intelligence: motion_fast or motion_slow")
	host := flag.String("niface", "", "override network interface address for broadcast commands")
	port := flag.Int("port", 0, "override port to broadcast commands on")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// CLI overrides (flag left empty/zero means "use config")
	if *intelligence != "" {
		cfg.AI.Intelligence = *intelligence
	}
	if *host != "" {
		cfg.AI.Host = *host
	}
	if *port != 0 {
		if err := config.ValidatePort(*port); err != nil {
			log.Fatalf("invalid port override: %v", err)
		}
		cfg.AI.Port = *port
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Starting the AI")
	debug.Value("Intelligence", cfg.AI.Intelligence)
	debug.Value("Broadcast port", cfg.AI.Port)

	cmp, err := ai.ComparatorFromConfig(cfg)
	if err != nil {
		log.Fatalf("init comparator failed: %v", err)
	}

	controller, err := ai.NewController(ctx, cfg, frame.FileLoader{}, cmp)
	if err != nil {
		log.Fatalf("start ai controller failed: %v", err)
	}

	<-ctx.Done()
	debug.Info("Received interrupt signal.")
	controller.Shutdown()
	debug.Info("AI shut down. Dropped %d frames under load.", controller.Dropped())
}
