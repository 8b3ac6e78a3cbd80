// Package mcp exposes a UCI engine session as Model Context Protocol tools.
//
// The mcp package implements:
//   - MCP server construction and tool registration
//   - Translation of tool arguments into engine session calls
//   - JSON result shaping and tool-level error reporting
//   - Stdio and streamable HTTP transport modes (selected by the caller)
//
// MCP Tools:
//
// The package exposes the following tools:
//   - analyze: Search a position, returning best move, score, depth and PV
//   - get_best_move: Search a position, returning only the move
//   - set_position: Set the session's current position (FEN plus optional moves)
//   - engine_info: Engine identity, path and declared UCI options
//   - get_engine_options: Declared options merged with configured values
//   - set_engine_options: Validated UCI option updates
//
// Error Handling:
//
// Domain failures (invalid FEN, illegal moves, an unresponsive or dead
// engine, shutdown in progress) are returned as MCP tool errors in-band;
// they never become transport-level failures. The underlying session stays
// usable after a tool error unless the engine process itself died.
//
// Usage:
//
//	session, _ := engine.Launch(ctx, engine.Config{ExePath: "stockfish"})
//	srv := mcp.NewServer(session, "Chess UCI MCP", "1.1.0", logger)
//
//	// Stdio mode
//	server.ServeStdio(srv.GetMCPServer())
//
//	// HTTP mode
//	server.NewStreamableHTTPServer(srv.GetMCPServer()).Start(":8080")
package mcp
