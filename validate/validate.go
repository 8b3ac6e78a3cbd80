// Command validate checks chess-uci-mcp configuration files before they are
// deployed next to an MCP host. It verifies:
//   - YAML structure, log level, and think time (via the config loader)
//   - That the configured engine executable can be resolved
//   - That startup UCI options are single-line and carry non-empty names
//
// With no arguments it inspects whichever default config locations exist;
// explicit paths are validated unconditionally.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/AnglerfishChess/chess-uci-mcp/config"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateConfigFile loads one configuration file and checks everything the
// bridge would trip over at startup.
func validateConfigFile(path string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(path),
		Valid:  true,
		Errors: []string{},
	}

	cfg, err := config.Load(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to load: %v", err))
		return result
	}

	// Resolve the engine executable the way the bridge will.
	resolved := ""
	if cfg.Engine.Path != "" {
		resolved, err = exec.LookPath(cfg.Engine.Path)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Engine executable not found: %v", err))
		}
	}

	// UCI options travel as single setoption lines; embedded newlines would
	// smuggle extra commands into the engine.
	for name, value := range cfg.Engine.Options {
		if strings.TrimSpace(name) == "" {
			result.Valid = false
			result.Errors = append(result.Errors, "UCI option with an empty name")
			continue
		}
		if strings.ContainsAny(name, "\r\n") || strings.ContainsAny(value, "\r\n") {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("UCI option %q: names and values must be single-line", name))
		}
	}

	// Add informational data
	if result.Valid {
		if cfg.Engine.Path == "" {
			result.Errors = append(result.Errors, "✓ Engine: supplied on the command line (engine.path not set)")
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Engine: %s resolves to %s", cfg.Engine.Path, resolved))
		}
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Startup options: %d", len(cfg.Engine.Options)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Think time: %d ms", cfg.DefaultThinkTime))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Log level: %s", cfg.LogLevel))
	}

	return result
}

// main validates the given files, or whichever default locations exist when
// called without arguments, printing a concise report and exiting with
// non-zero status if any are invalid.
func main() {
	paths := os.Args[1:]
	if len(paths) == 0 {
		for _, loc := range config.DefaultLocations() {
			if _, err := os.Stat(loc); err == nil {
				paths = append(paths, loc)
			}
		}
		if len(paths) == 0 {
			fmt.Println("No config files found in the default locations.")
			fmt.Println("Usage: validate [CONFIG_PATH ...]")
			return
		}
	}

	allValid := true
	for _, path := range paths {
		result := validateConfigFile(path)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
