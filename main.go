// Command chess-uci-mcp bridges MCP clients to a UCI chess engine.
//
// It starts the engine (Stockfish or any UCI-speaking binary) as a
// subprocess, owns the UCI conversation with it, and exposes analysis tools
// over the Model Context Protocol in two modes:
//  1. stdio (default) - JSON-RPC over the bridge's own stdin/stdout
//  2. HTTP (--http)   - streamable HTTP endpoint for remote MCP clients
//
// Flags select the engine binary, startup UCI options, default think time,
// config file, transport, and debug logging.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AnglerfishChess/chess-uci-mcp/config"
	"github.com/AnglerfishChess/chess-uci-mcp/engine"
	"github.com/AnglerfishChess/chess-uci-mcp/transport/mcp"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

// Version information
const (
	Version = "0.3.0"
	AppName = "chess-uci-mcp"
)

func main() {
	// Load .env if present; MCP hosts often hand settings over via the
	// environment rather than flags.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	cmd := newRootCommand()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:      AppName,
		Usage:     "MCP bridge to a UCI chess engine",
		Version:   Version,
		ArgsUsage: "[ENGINE_PATH]",
		Description: `Starts a UCI engine (Stockfish or compatible) as a subprocess and exposes
it to MCP clients. By default the bridge speaks MCP over stdio, which is
what desktop MCP hosts expect; all logging goes to stderr.

Examples:
  chess-uci-mcp /usr/bin/stockfish
  chess-uci-mcp -o "Threads=4" -o "Hash=256" stockfish
  chess-uci-mcp --think-time 3000 --debug stockfish
  chess-uci-mcp --http 127.0.0.1:8976 stockfish
  chess-uci-mcp --init-config ~/.config/chess_uci_mcp/config.yaml`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "uci-option",
				Aliases: []string{"o"},
				Usage:   "UCI option to set at startup, as NAME=VALUE (repeatable)",
			},
			&cli.IntFlag{
				Name:  "think-time",
				Usage: "default search time per request, in milliseconds",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging of the UCI conversation",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				Sources: cli.EnvVars("CHESS_UCI_MCP_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "http",
				Usage: "serve MCP over streamable HTTP on this host:port instead of stdio",
			},
			&cli.StringFlag{
				Name:  "init-config",
				Usage: "write a commented starter config file to this path and exit",
			},
		},
		Action: run,
	}
}

// run wires configuration, engine, and transport together. Explicit flags
// override config file values, which override built-in defaults.
func run(ctx context.Context, cmd *cli.Command) error {
	if path := cmd.String("init-config"); path != "" {
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote starter config to %s\n", path)
		return nil
	}

	cfg, cfgPath, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	if cmd.IsSet("think-time") {
		thinkTime := int(cmd.Int("think-time"))
		if thinkTime < 0 {
			return errors.New("think-time must be non-negative")
		}
		cfg.DefaultThinkTime = thinkTime
	}
	if cmd.Bool("debug") {
		cfg.LogLevel = "debug"
	}

	enginePath := cfg.Engine.Path
	if cmd.Args().Len() > 0 {
		enginePath = cmd.Args().First()
	}
	if enginePath == "" {
		return errors.New("no engine given: pass ENGINE_PATH or set engine.path in a config file")
	}
	if cmd.Args().Len() > 1 {
		return fmt.Errorf("unexpected arguments after engine path: %v", cmd.Args().Tail())
	}

	flagOptions, err := parseOptionPairs(cmd.StringSlice("uci-option"))
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	if cfgPath != "" {
		logger.Info().Str("path", cfgPath).Msg("Loaded config file")
	}

	session, err := engine.Launch(ctx, engine.Config{
		ExePath:          enginePath,
		Options:          mergeOptions(cfg.Engine.Options, flagOptions),
		DefaultThinkTime: cfg.ThinkTime(),
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer session.Close()

	info := session.Info()
	name := info.Name
	if cfg.Engine.Name != "" {
		name = cfg.Engine.Name
	}
	logger.Info().
		Str("engine", name).
		Str("path", info.Path).
		Int("declared_options", len(info.Options)).
		Msg("Engine ready")

	bridge := mcp.NewServer(session, AppName, Version, logger)

	if addr := cmd.String("http"); addr != "" {
		return runHTTPServer(bridge.GetMCPServer(), addr, logger)
	}
	return runStdioServer(bridge.GetMCPServer(), logger)
}

// loadConfig reads the explicit file when one is given, otherwise searches
// the default locations. A missing explicit file is an error; missing
// default locations just fall back to built-in defaults.
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	return config.LoadDefault()
}

// parseOptionPairs turns repeated NAME=VALUE flags into an option map.
// Button options take an empty value ("Clear Hash=").
func parseOptionPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	options := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid UCI option %q: expected NAME=VALUE", pair)
		}
		options[name] = strings.TrimSpace(value)
	}
	return options, nil
}

// mergeOptions overlays command-line options on top of config file options.
func mergeOptions(base, override map[string]string) map[string]string {
	if len(base) == 0 {
		return override
	}
	merged := make(map[string]string, len(base)+len(override))
	for name, value := range base {
		merged[name] = value
	}
	for name, value := range override {
		merged[name] = value
	}
	return merged
}

// newLogger builds the root logger. Output always goes to stderr: in stdio
// mode stdout belongs to the MCP protocol and must stay clean.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

func runStdioServer(s *server.MCPServer, log zerolog.Logger) error {
	log.Info().Msg("MCP server listening on stdio")

	err := server.ServeStdio(s)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, os.ErrClosed) {
			log.Info().Msg("Stdio connection closed")
			return nil
		}
		return fmt.Errorf("stdio server error: %w", err)
	}
	log.Info().Msg("Stdio server finished")
	return nil
}

func runHTTPServer(s *server.MCPServer, addr string, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := server.NewStreamableHTTPServer(s)
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(addr)
	}()
	log.Info().Str("addr", addr).Msg("MCP server listening on HTTP")

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	}
}
