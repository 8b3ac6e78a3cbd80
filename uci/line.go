package uci

import (
	"strconv"
	"strings"
)

// LineKind identifies the shape of one engine output line.
type LineKind int

const (
	LineUnknown LineKind = iota
	LineID
	LineOption
	LineUCIOk
	LineReadyOk
	LineInfo
	LineBestMove
)

// String returns a short name for the line kind, used in logs.
func (k LineKind) String() string {
	switch k {
	case LineID:
		return "id"
	case LineOption:
		return "option"
	case LineUCIOk:
		return "uciok"
	case LineReadyOk:
		return "readyok"
	case LineInfo:
		return "info"
	case LineBestMove:
		return "bestmove"
	default:
		return "unknown"
	}
}

// Line is one classified engine output line. Exactly one payload pointer is
// set, matching Kind; LineUnknown carries only Raw.
type Line struct {
	Kind   LineKind
	Raw    string
	ID     *IDLine
	Option *OptionDecl
	Info   *SearchInfo
	Best   *BestMove
}

// IDLine is an "id name ..." or "id author ..." handshake line.
type IDLine struct {
	Field string // "name" or "author"
	Value string
}

// BestMove is the terminal line of a search.
type BestMove struct {
	Move   string
	Ponder string
}

// SearchInfo holds the recognized fields of one "info" line. Pointer fields
// distinguish absent from zero; slice and numeric fields use zero values for
// absence. "score cp" and "score mate" are mutually exclusive per line.
type SearchInfo struct {
	Depth     int
	SelDepth  int
	MultiPV   int
	ScoreCP   *int
	ScoreMate *int
	Nodes     int64
	NPS       int64
	TimeMS    int64
	PV        []string
}

// OptionDecl is one "option name ... type ..." declaration from the
// handshake. Min and Max apply to spin options, Vars to combo options.
type OptionDecl struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"` // check, spin, combo, button, string
	Default string   `json:"default,omitempty"`
	Min     *int     `json:"min,omitempty"`
	Max     *int     `json:"max,omitempty"`
	Vars    []string `json:"var,omitempty"`
}

// Parse classifies a raw engine output line. Lines that match no known UCI
// shape come back as LineUnknown; callers log and discard those.
func Parse(raw string) Line {
	line := Line{Kind: LineUnknown, Raw: raw}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return line
	}

	switch fields[0] {
	case "uciok":
		line.Kind = LineUCIOk
	case "readyok":
		line.Kind = LineReadyOk
	case "id":
		if len(fields) >= 3 && (fields[1] == "name" || fields[1] == "author") {
			line.Kind = LineID
			line.ID = &IDLine{Field: fields[1], Value: strings.Join(fields[2:], " ")}
		}
	case "bestmove":
		if len(fields) >= 2 {
			line.Kind = LineBestMove
			best := &BestMove{Move: fields[1]}
			if len(fields) >= 4 && fields[2] == "ponder" {
				best.Ponder = fields[3]
			}
			line.Best = best
		}
	case "info":
		line.Kind = LineInfo
		line.Info = parseInfo(fields)
	case "option":
		if decl := parseOption(fields); decl != nil {
			line.Kind = LineOption
			line.Option = decl
		}
	}

	return line
}

// parseInfo extracts the recognized keys of an info line. Unrecognized keys
// are skipped so that engine-specific extensions never break parsing.
func parseInfo(fields []string) *SearchInfo {
	info := &SearchInfo{}
	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				info.Depth, _ = strconv.Atoi(fields[i+1])
				i++
			}
		case "seldepth":
			if i+1 < len(fields) {
				info.SelDepth, _ = strconv.Atoi(fields[i+1])
				i++
			}
		case "multipv":
			if i+1 < len(fields) {
				info.MultiPV, _ = strconv.Atoi(fields[i+1])
				i++
			}
		case "score":
			if i+2 < len(fields) {
				if n, err := strconv.Atoi(fields[i+2]); err == nil {
					switch fields[i+1] {
					case "cp":
						v := n
						info.ScoreCP = &v
					case "mate":
						v := n
						info.ScoreMate = &v
					}
				}
				i += 2
			}
		case "nodes":
			if i+1 < len(fields) {
				info.Nodes, _ = strconv.ParseInt(fields[i+1], 10, 64)
				i++
			}
		case "nps":
			if i+1 < len(fields) {
				info.NPS, _ = strconv.ParseInt(fields[i+1], 10, 64)
				i++
			}
		case "time":
			if i+1 < len(fields) {
				info.TimeMS, _ = strconv.ParseInt(fields[i+1], 10, 64)
				i++
			}
		case "pv":
			// pv is always the trailing key; it consumes the rest of the line
			info.PV = append([]string(nil), fields[i+1:]...)
			return info
		case "string":
			// free-text remainder, nothing structured to keep
			return info
		}
	}
	return info
}

// parseOption parses the full option grammar:
//
//	option name <name...> type <type> [default <value...>] [min N] [max N] [var <value...>]*
//
// Names, defaults and combo values may span multiple tokens. The literal
// "<empty>" default used by some engines maps to the empty string. Returns
// nil when the line lacks a name or type.
func parseOption(fields []string) *OptionDecl {
	decl := &OptionDecl{}
	i := 1

	if i < len(fields) && fields[i] == "name" {
		i++
		var name []string
		for i < len(fields) && fields[i] != "type" {
			name = append(name, fields[i])
			i++
		}
		decl.Name = strings.Join(name, " ")
	}
	if i < len(fields) && fields[i] == "type" && i+1 < len(fields) {
		decl.Type = fields[i+1]
		i += 2
	}
	if decl.Name == "" || decl.Type == "" {
		return nil
	}

	for i < len(fields) {
		switch fields[i] {
		case "default":
			i++
			var value []string
			for i < len(fields) && !isOptionKeyword(fields[i]) {
				value = append(value, fields[i])
				i++
			}
			joined := strings.Join(value, " ")
			if joined == "<empty>" {
				joined = ""
			}
			decl.Default = joined
		case "min":
			if i+1 < len(fields) {
				if n, err := strconv.Atoi(fields[i+1]); err == nil {
					v := n
					decl.Min = &v
				}
				i += 2
			} else {
				i++
			}
		case "max":
			if i+1 < len(fields) {
				if n, err := strconv.Atoi(fields[i+1]); err == nil {
					v := n
					decl.Max = &v
				}
				i += 2
			} else {
				i++
			}
		case "var":
			i++
			var value []string
			for i < len(fields) && !isOptionKeyword(fields[i]) {
				value = append(value, fields[i])
				i++
			}
			if len(value) > 0 {
				decl.Vars = append(decl.Vars, strings.Join(value, " "))
			}
		default:
			i++
		}
	}

	return decl
}

func isOptionKeyword(token string) bool {
	switch token {
	case "default", "min", "max", "var":
		return true
	}
	return false
}

// MergeInfo folds an info-line update into the previous snapshot and returns
// the merged result. Fields present in the update win; absent fields keep
// their prior values, so a later line without a score retains the last seen
// score. A new score of either kind replaces both score fields.
func MergeInfo(prev, update *SearchInfo) *SearchInfo {
	if update == nil {
		return prev
	}
	if prev == nil {
		merged := *update
		return &merged
	}
	merged := *prev
	if update.Depth > 0 {
		merged.Depth = update.Depth
	}
	if update.SelDepth > 0 {
		merged.SelDepth = update.SelDepth
	}
	if update.MultiPV > 0 {
		merged.MultiPV = update.MultiPV
	}
	if update.ScoreCP != nil || update.ScoreMate != nil {
		merged.ScoreCP = update.ScoreCP
		merged.ScoreMate = update.ScoreMate
	}
	if update.Nodes > 0 {
		merged.Nodes = update.Nodes
	}
	if update.NPS > 0 {
		merged.NPS = update.NPS
	}
	if update.TimeMS > 0 {
		merged.TimeMS = update.TimeMS
	}
	if len(update.PV) > 0 {
		merged.PV = update.PV
	}
	return &merged
}
