// CLAUDE:SUMMARY Entry point: MCP stdio server over one browser session, optional HTTP status surface.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pagelens"
	"github.com/hazyhaar/pagelens/statusweb"
)

func main() {
	configPath := flag.String("config", env("PAGELENS_CONFIG", ""), "YAML config file")
	startURL := flag.String("url", env("PAGELENS_URL", ""), "start URL (empty = discover)")
	artifactDir := flag.String("artifacts", env("PAGELENS_ARTIFACTS", ""), "artifact directory")
	statusAddr := flag.String("status-addr", env("PAGELENS_STATUS_ADDR", ""), "status HTTP address (empty = disabled)")
	headful := flag.Bool("headful", false, "launch a visible browser")
	attach := flag.Bool("attach", true, "prefer attaching to a running debug-enabled Chrome")
	logLevel := flag.String("log-level", env("PAGELENS_LOG_LEVEL", "info"), "debug, info, warn, or error")
	flag.Parse()

	// Stdout carries the MCP protocol; all logging goes to stderr.
	var lvl slog.Level
	switch *logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Teardown must run on interrupt: a leaked local Chrome outlives the
	// process, and a remote link must be disconnected cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := pagelens.LoadConfig(*configPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}
	if *startURL != "" {
		cfg.StartURL = *startURL
	}
	if *artifactDir != "" {
		cfg.ArtifactDir = *artifactDir
	}
	if *statusAddr != "" {
		cfg.Status.Addr = *statusAddr
	}
	if *headful {
		cfg.Browser.Headful = true
	}
	cfg.Browser.PreferAttach = *attach

	svc, err := pagelens.NewService(ctx, cfg, logger)
	if err != nil {
		logger.Error("service", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("teardown", "error", err)
		}
	}()

	if cfg.Status.Addr != "" {
		web := statusweb.New(svc.Status, svc.AuditLog(), cfg.ArtifactDir, logger)
		go func() {
			if err := web.Serve(ctx, cfg.Status.Addr); err != nil {
				logger.Error("statusweb", "error", err)
			}
		}()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "pagelens",
		Version: "1.0.0",
	}, nil)
	svc.RegisterMCP(mcpServer)

	logger.Info("pagelens: serving MCP on stdio")
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server", "error", err)
		os.Exit(1)
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
