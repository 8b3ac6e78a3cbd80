// Command uciprobe runs a quick health check of a UCI engine from the shell.
// It performs the same handshake the bridge does, prints the engine's
// identity and declared options, analyzes one position, and quits.
//
// Usage:
//
//	uciprobe ENGINE_PATH [FEN]
//
// With no FEN the starting position is probed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AnglerfishChess/chess-uci-mcp/engine"
	"github.com/AnglerfishChess/chess-uci-mcp/rules"
	"github.com/AnglerfishChess/chess-uci-mcp/uci"
	"github.com/rs/zerolog"
)

const probeThinkTime = 1500 * time.Millisecond

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s ENGINE_PATH [FEN]\n", os.Args[0])
		os.Exit(2)
	}
	enginePath := os.Args[1]
	fen := rules.StartingFEN
	if len(os.Args) == 3 {
		fen = os.Args[2]
	}

	if err := probe(enginePath, fen); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func probe(enginePath, fen string) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	ctx := context.Background()
	started := time.Now()
	session, err := engine.Launch(ctx, engine.Config{
		ExePath: enginePath,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	info := session.Info()
	fmt.Printf("=== %s ===\n", info.Name)
	fmt.Printf("Author:    %s\n", info.Author)
	fmt.Printf("Path:      %s\n", info.Path)
	fmt.Printf("Handshake: %v\n", time.Since(started).Round(time.Millisecond))

	fmt.Printf("\nDeclared options (%d):\n", len(info.Options))
	for _, opt := range info.Options {
		fmt.Printf("  %-24s %s\n", opt.Name, describeOption(opt))
	}

	fmt.Printf("\nProbing %s\n", fen)
	analysis, err := session.Analyze(ctx, fen, probeThinkTime)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// describeOption renders one declared option in a compact single line, e.g.
// "spin 1..1024 (default 16)" or "combo [Off On] (default Off)".
func describeOption(opt uci.OptionDecl) string {
	desc := opt.Type
	if opt.Type == "spin" && opt.Min != nil && opt.Max != nil {
		desc += fmt.Sprintf(" %d..%d", *opt.Min, *opt.Max)
	}
	if len(opt.Vars) > 0 {
		desc += fmt.Sprintf(" [%s]", strings.Join(opt.Vars, " "))
	}
	if opt.Default != "" {
		desc += fmt.Sprintf(" (default %s)", opt.Default)
	}
	return desc
}
