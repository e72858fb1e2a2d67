package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/voltra-ui/voltra/bus"
	"github.com/voltra-ui/voltra/host"
	"github.com/voltra-ui/voltra/mcp"
	"github.com/voltra-ui/voltra/pipeline"
	"github.com/voltra-ui/voltra/store"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(handler))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err.Error())
		os.Exit(1)
	}

	var kv store.KV
	if cfg.Database != "" {
		sqlite, err := store.OpenSQLite(cfg.Database)
		if err != nil {
			slog.Error("Failed to open action database", "path", cfg.Database, "error", err.Error())
			os.Exit(1)
		}
		defer sqlite.Close()
		kv = sqlite
	} else {
		slog.Warn("No database configured, action records will not survive restarts")
		kv = store.NewMemoryKV()
	}

	bridge := host.NewWSBridge(cfg.Listen)
	actions := store.NewActionStore(kv, cfg.Namespace)
	dispatcher := pipeline.NewDispatcher(bridge, actions)
	eventBus := bus.NewBus(dispatcher)

	// The daemon binds no per-widget handlers; applications embed the bus
	// and pipeline packages for that. It does install the one native
	// listener itself, so every host interaction is recorded durably and
	// visible to the debug surface even with no application attached.
	teardown, err := dispatcher.Install(eventBus.Dispatch)
	if err != nil {
		slog.Error("Failed to install action listener", "error", err.Error())
		os.Exit(1)
	}
	defer teardown()

	if cfg.MCP {
		mcpServer := mcp.NewServer(bridge, eventBus, dispatcher)
		go func() {
			if err := mcpServer.Start(); err != nil {
				slog.Error("MCP server stopped", "error", err.Error())
			}
		}()
	}

	go func() {
		if err := bridge.Start(); err != nil {
			slog.Error("Bridge stopped", "error", err.Error())
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("Shutting down widget bridge")
	if err := bridge.Shutdown(); err != nil {
		slog.Error("There was an error when shutting down the bridge", "error", err.Error())
	}
}
