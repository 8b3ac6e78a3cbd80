// Package config provides configuration management for the chess UCI MCP bridge.
//
// The config package handles:
//   - Loading bridge configuration from YAML files
//   - Default-location search when no file is given explicitly
//   - Configuration validation
//   - Generating a commented starter configuration
//
// Configuration Format:
//
// The configuration is a YAML file:
//
//	engine:
//	  path: /usr/bin/stockfish
//	  name: stockfish            # display name override, optional
//	  options:
//	    Threads: 4
//	    Hash: 256
//	default_think_time: 1000     # milliseconds
//	log_level: info              # debug|info|warn|error
//
// Option values may be written as plain YAML scalars; they are carried as
// strings on the wire regardless.
//
// Search Order:
//
// Without an explicit path, the following locations are tried in order and
// the first existing file wins:
//   - ./chess_uci_mcp.yaml
//   - ./config.yaml
//   - ~/.config/chess_uci_mcp/config.yaml
//   - /etc/chess_uci_mcp/config.yaml
//
// A file that exists but fails to parse or validate aborts startup; it is
// never skipped silently.
//
// Usage:
//
//	cfg, path, err := config.LoadDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	if path == "" {
//		// built-in defaults
//	}
//
//	// Or load an explicit file
//	cfg, err = config.Load("bridge.yaml")
package config
