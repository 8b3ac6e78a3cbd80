// Package uci provides the line-level plumbing for talking to a UCI chess
// engine subprocess.
//
// The uci package implements:
//   - Subprocess ownership with ordered line-based stdin/stdout I/O
//   - Classification of raw engine output into tagged line variants
//   - Parsing of info, option, id and bestmove payloads
//   - Graceful engine termination (quit, bounded wait, kill)
//
// Core Types:
//
// Transport owns the engine process and exposes SendLine plus a Lines
// channel that is closed when the process's stdout reaches EOF. Line is a
// classified output line; exactly one payload pointer is set according to
// its Kind. SearchInfo, OptionDecl, IDLine and BestMove are the payloads.
//
// Usage:
//
//	tr, err := uci.Start("/usr/bin/stockfish", logger)
//	if err != nil {
//		return err
//	}
//	defer tr.Close()
//
//	tr.SendLine("uci")
//	for raw := range tr.Lines() {
//		line := uci.Parse(raw)
//		if line.Kind == uci.LineUCIOk {
//			break
//		}
//	}
//
// Classification happens once at this boundary; downstream code switches on
// Line.Kind and never re-interprets raw text.
package uci
