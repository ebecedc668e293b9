package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpillora/opts"

	"github.com/Xenebia/Radar-Scan/pkg/config"
	"github.com/Xenebia/Radar-Scan/pkg/server"
)

func main() {
	flags := config.Flags{}
	opts.New(&flags).
		Name("radarscand").
		Summary("Sweeps the local /24 and serves the radar over HTTP.").
		Parse()

	cfg, err := flags.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, closeLog, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}

	if err := srv.Start(); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")
	<-stop
	logger.Info("Shutting down server...")
	srv.Stop()
	logger.Info("Server stopped.")
}
