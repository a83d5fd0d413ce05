package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/uniedit/mediagen/internal/app"
	"github.com/uniedit/mediagen/internal/infra/config"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	// Load configuration
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application, cleanup, err := app.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Printf("Server stopped with error: %v", err)
		return
	}
	log.Println("Server exited")
}
