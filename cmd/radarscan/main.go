package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/jpillora/opts"

	"github.com/Xenebia/Radar-Scan/pkg/config"
	"github.com/Xenebia/Radar-Scan/pkg/render"
	"github.com/Xenebia/Radar-Scan/pkg/server"
)

// defaultLogFile keeps log output off the terminal while the radar is drawn.
const defaultLogFile = "radarscan.log"

func main() {
	flags := config.Flags{}
	opts.New(&flags).
		Name("radarscan").
		Summary("Draws a live radar of the hosts answering on the local /24.").
		Parse()

	cfg, err := flags.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = defaultLogFile
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

	// Start before taking over the terminal; logs go to a file, so startup
	// errors are also printed to stderr.
	if err := srv.Start(); err != nil {
		logger.Errorf("Failed to start server: %v", err)
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Infof("Radar running on %s0/24", srv.Prefix())

	screen, err := tcell.NewScreen()
	if err == nil {
		err = screen.Init()
	}
	if err != nil {
		srv.Stop()
		logger.Errorf("Failed to open terminal: %v", err)
		log.Fatalf("Failed to open terminal: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := render.New(screen, srv).Run(ctx, srv.Redraw()); err != nil {
		logger.Errorf("Renderer stopped: %v", err)
	}

	screen.Fini()
	srv.Stop()
}
