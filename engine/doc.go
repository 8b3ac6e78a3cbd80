// Package engine manages the live conversation with a UCI chess engine.
//
// The engine package implements:
//   - Process launch, executable validation, and the UCI handshake
//   - A single conversation goroutine that owns the engine pipes
//   - FIFO serialization of concurrent analysis requests
//   - Think-time enforcement with a hard unresponsiveness ceiling
//   - Runtime option changes validated against declared option metadata
//
// Core Types:
//
// Session is the single live engine conversation, created by Launch and
// destroyed by Close or by unexpected process death. Analysis is the result
// of one completed search. Info carries the immutable handshake metadata.
//
// Concurrency:
//
// All engine I/O happens on one goroutine. Callers of Analyze, BestMove,
// SetPosition and SetOptions submit requests into a FIFO queue and block on
// a private result channel; requests resolve strictly in arrival order and
// at most one search is outstanding at any instant. Info and
// ConfiguredOptions read snapshots and never queue.
//
// Usage:
//
//	session, err := engine.Launch(ctx, engine.Config{
//		ExePath: "/usr/bin/stockfish",
//		Options: map[string]string{"Threads": "4"},
//	})
//	if err != nil {
//		return err
//	}
//	defer session.Close()
//
//	analysis, err := session.Analyze(ctx, fen, time.Second)
//
// Failure:
//
// When the engine process dies, every pending request fails with
// ErrEngineDied and the session becomes unusable; it is never restarted
// automatically. A search that produces no bestmove within its think time
// plus a grace window fails with ErrEngineUnresponsive while the session
// itself stays usable.
package engine
