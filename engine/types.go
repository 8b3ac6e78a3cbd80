package engine

import "github.com/AnglerfishChess/chess-uci-mcp/uci"

// State is the session lifecycle state.
type State int32

const (
	StateHandshaking State = iota
	StateReady
	StateSearching
	StateDead
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateSearching:
		return "searching"
	case StateDead:
		return "dead"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Info is the engine metadata captured once during the handshake.
type Info struct {
	Name    string           `json:"name"`
	Author  string           `json:"author"`
	Path    string           `json:"path"`
	Options []uci.OptionDecl `json:"options"`
}

// Analysis is the result of one completed search: the terminal bestmove plus
// the last search-progress snapshot that preceded it.
type Analysis struct {
	BestMove  string   `json:"best_move"`
	Ponder    string   `json:"ponder,omitempty"`
	Depth     int      `json:"depth"`
	ScoreCP   *int     `json:"score_cp,omitempty"`
	ScoreMate *int     `json:"mate_in,omitempty"`
	PV        []string `json:"pv,omitempty"`
	Nodes     int64    `json:"nodes,omitempty"`
	TimeMS    int64    `json:"time_ms,omitempty"`
}

// OptionsResult reports a SetOptions call per option name: what was applied
// and what was rejected, with the rejection reason.
type OptionsResult struct {
	Applied map[string]string `json:"applied"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Success reports whether every requested option was applied.
func (r *OptionsResult) Success() bool {
	return len(r.Errors) == 0
}
