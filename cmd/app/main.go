package main

import (
	"flag"
	"log"
	"os"

	"ShareWise/internal/di"
	"ShareWise/pkg/config"
)

func main() {
	cfgPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("starting env=%s engine=%s symbols=%v", cfg.Environment, cfg.Signals.Engine, cfg.Signals.Symbols)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
