package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/repairsearch-mcp/internal/config"
	"github.com/dshills/repairsearch-mcp/internal/logging"
	"github.com/dshills/repairsearch-mcp/internal/mcp"
	"github.com/dshills/repairsearch-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("Repair Search MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	configPath := os.Getenv(config.EnvConfigPath)
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		configPath = os.Args[2]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Log to stderr (stdout reserved for MCP protocol)
	logger := logging.New(&logging.Config{Output: os.Stderr, Debug: cfg.Debug})
	mainLog := logging.Component(logger, "main")

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := mcp.NewServer(ctx, cfg, logger)
	if err != nil {
		mainLog.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}

	info := server.Describe(ctx)
	info.Version = version
	info.ConfigPath = configPath
	logging.LogStartup(mainLog, info)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		mainLog.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logging.LogShutdown(mainLog, sig.String())
		cancel()
		_ = server.Close()
	case err := <-errChan:
		if err != nil {
			mainLog.Error("server error", "error", err)
			os.Exit(1)
		}
		logging.LogShutdown(mainLog, "stdin closed")
	}
}
