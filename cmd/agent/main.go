package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/HostLink/internal/agent"
	"github.com/GriffinCanCode/HostLink/internal/config"
	"github.com/GriffinCanCode/HostLink/internal/logging"
	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

const version = "0.1.0"

func main() {
	// Parse flags
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("hostlink %s (protocol %d)\n", version, protocol.Version)
		return
	}

	cfg := config.LoadOrDefault()
	logger, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development, cfg.Logging.File)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Create agent over stdin/stdout; all diagnostics stay on stderr
	a, err := agent.New(os.Stdin, os.Stdout, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create agent: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Serve the peer in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- a.Run()
	}()

	// Wait for stream end or shutdown signal
	select {
	case <-sigChan:
		logger.Info("signal received, shutting down")
		a.Close()
	case err := <-errChan:
		if err != nil {
			logger.Sync()
			log.Fatalf("Agent error: %v", err)
		}
	}

	// Sync logger before exit
	logger.Sync()
}
