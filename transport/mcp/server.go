package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/AnglerfishChess/chess-uci-mcp/engine"
	"github.com/AnglerfishChess/chess-uci-mcp/uci"
)

// Engine is the session surface the tools drive. *engine.Session implements
// it; tests substitute mocks.
type Engine interface {
	Analyze(ctx context.Context, fen string, think time.Duration) (*engine.Analysis, error)
	BestMove(ctx context.Context, fen string, think time.Duration) (string, error)
	SetPosition(ctx context.Context, fen string, moves []string) (string, error)
	SetOptions(ctx context.Context, options map[string]string) (*engine.OptionsResult, error)
	Info() engine.Info
	ConfiguredOptions() map[string]string
}

// Server exposes one engine session as MCP tools.
type Server struct {
	engine    Engine
	log       zerolog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server and registers all tools against eng.
func NewServer(eng Engine, name, version string, logger zerolog.Logger) *Server {
	s := &Server{
		engine: eng,
		log:    logger,
	}
	s.initMCPServer(name, version)
	return s
}

// initMCPServer initializes the MCP server with all tools
func (s *Server) initMCPServer(name, version string) {
	s.mcpServer = server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Chess UCI MCP Bridge

Bridges MCP tool calls to a UCI chess engine (e.g. Stockfish) running as a local
subprocess. One engine, one session: concurrent tool calls are queued and answered
strictly in arrival order.

POSITIONS AND MOVES:
Positions are FEN strings; moves use UCI notation (e2e4, g8f6, e7e8q).
set_position updates the session's current position. analyze searches the position
you pass it; get_best_move searches its fen argument or, when omitted, the current
session position.

AVAILABLE TOOLS:
- analyze: Search a position and return best move, score, depth and principal variation
- get_best_move: Search and return only the best move
- set_position: Set the current position from a FEN and an optional move list
- engine_info: Engine name, author, executable path and declared UCI options
- get_engine_options: Declared UCI options with their currently configured values
- set_engine_options: Change UCI options by name (validated against engine declarations)

NOTE: think_time_ms bounds each search in milliseconds; longer thinks give stronger results.`),
	)

	// Register all tools
	s.registerTools()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	// Search operations
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "analyze",
		Description: "Analyze a chess position: returns the best move plus score, depth and principal variation",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"fen": map[string]interface{}{
					"type":        "string",
					"description": "Position to analyze, in FEN notation",
				},
				"think_time_ms": map[string]interface{}{
					"type":        "integer",
					"description": "Engine think time in milliseconds (configured default when omitted)",
				},
			},
			Required: []string{"fen"},
		},
	}, s.handleAnalyze)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_best_move",
		Description: "Get the engine's best move for a position",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"fen": map[string]interface{}{
					"type":        "string",
					"description": "Position to search, in FEN notation (current session position when omitted)",
				},
				"think_time_ms": map[string]interface{}{
					"type":        "integer",
					"description": "Engine think time in milliseconds (configured default when omitted)",
				},
			},
		},
	}, s.handleGetBestMove)

	// Position management
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "set_position",
		Description: "Set the session's current position from a FEN and an optional list of UCI moves applied on top",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"fen": map[string]interface{}{
					"type":        "string",
					"description": "Base position in FEN notation (standard starting position when omitted)",
				},
				"moves": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
					},
					"description": "Moves in UCI notation (e2e4, g8f6, e7e8q) applied after the base position",
				},
			},
		},
	}, s.handleSetPosition)

	// Engine introspection and configuration
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "engine_info",
		Description: "Get the engine's identity, executable path, declared UCI options and currently configured values",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleEngineInfo)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_engine_options",
		Description: "List the engine's declared UCI options together with their currently configured values",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleGetEngineOptions)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "set_engine_options",
		Description: "Set UCI options by name. Values are validated against the engine's declared option metadata; invalid entries are reported per name and never sent to the engine.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"options": map[string]interface{}{
					"type":        "object",
					"description": "Option names mapped to their new values, e.g. {\"Hash\": 128, \"Threads\": 4}",
					"additionalProperties": map[string]interface{}{
						"type": []string{"string", "number", "boolean"},
					},
				},
			},
			Required: []string{"options"},
		},
	}, s.handleSetEngineOptions)
}

// GetMCPServer returns the underlying MCP server for serving
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// Tool handlers

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	fen, _ := args["fen"].(string)
	if fen == "" {
		return mcp.NewToolResultError("fen is required"), nil
	}

	s.log.Debug().Str("tool", "analyze").Str("fen", fen).Msg("tool call")

	analysis, err := s.engine.Analyze(ctx, fen, thinkTimeArg(args))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(analysis)
}

func (s *Server) handleGetBestMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	fen, _ := args["fen"].(string)

	s.log.Debug().Str("tool", "get_best_move").Str("fen", fen).Msg("tool call")

	move, err := s.engine.BestMove(ctx, fen, thinkTimeArg(args))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := struct {
		Move string `json:"move"`
	}{move}
	return jsonResult(result)
}

func (s *Server) handleSetPosition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	fen, _ := args["fen"].(string)
	movesRaw, _ := args["moves"].([]interface{})

	// Convert moves to string array
	moves := make([]string, 0, len(movesRaw))
	for _, m := range movesRaw {
		if move, ok := m.(string); ok {
			moves = append(moves, move)
		}
	}

	s.log.Debug().Str("tool", "set_position").Str("fen", fen).Strs("moves", moves).Msg("tool call")

	resolved, err := s.engine.SetPosition(ctx, fen, moves)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := struct {
		OK  bool   `json:"ok"`
		FEN string `json:"fen"`
	}{true, resolved}
	return jsonResult(result)
}

func (s *Server) handleEngineInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.log.Debug().Str("tool", "engine_info").Msg("tool call")

	info := s.engine.Info()
	result := struct {
		Name              string            `json:"name"`
		Author            string            `json:"author"`
		Path              string            `json:"path"`
		Options           []uci.OptionDecl  `json:"options"`
		ConfiguredOptions map[string]string `json:"configured_options"`
	}{info.Name, info.Author, info.Path, info.Options, s.engine.ConfiguredOptions()}
	return jsonResult(result)
}

func (s *Server) handleGetEngineOptions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.log.Debug().Str("tool", "get_engine_options").Msg("tool call")

	declared := s.engine.Info().Options
	configured := s.engine.ConfiguredOptions()

	options := make([]optionStatus, 0, len(declared))
	for _, decl := range declared {
		options = append(options, optionStatus{OptionDecl: decl, Value: configured[decl.Name]})
	}

	result := struct {
		Options []optionStatus `json:"options"`
	}{options}
	return jsonResult(result)
}

func (s *Server) handleSetEngineOptions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	raw, ok := args["options"].(map[string]interface{})
	if !ok || len(raw) == 0 {
		return mcp.NewToolResultError("options must be a non-empty object mapping option names to values"), nil
	}

	options := make(map[string]string, len(raw))
	for name, value := range raw {
		text, ok := optionValueString(value)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("option %q: unsupported value type %T", name, value)), nil
		}
		options[name] = text
	}

	s.log.Debug().Str("tool", "set_engine_options").Int("count", len(options)).Msg("tool call")

	result, err := s.engine.SetOptions(ctx, options)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := struct {
		Success bool              `json:"success"`
		Applied map[string]string `json:"applied_options"`
		Errors  map[string]string `json:"errors,omitempty"`
	}{result.Success(), result.Applied, result.Errors}
	return jsonResult(response)
}

// optionStatus is a declared option annotated with its configured value.
type optionStatus struct {
	uci.OptionDecl
	Value string `json:"value,omitempty"`
}

// Argument and result helpers

func thinkTimeArg(args map[string]interface{}) time.Duration {
	ms, ok := args["think_time_ms"].(float64)
	if !ok {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// optionValueString renders a JSON scalar the way a UCI engine expects it on
// a setoption line.
func optionValueString(v interface{}) (string, bool) {
	switch value := v.(type) {
	case string:
		return value, true
	case bool:
		return strconv.FormatBool(value), true
	case float64:
		if value == math.Trunc(value) {
			return strconv.FormatInt(int64(value), 10), true
		}
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case nil:
		return "", true
	default:
		return "", false
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
