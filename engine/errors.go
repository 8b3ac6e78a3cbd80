package engine

import "errors"

var (
	// ErrLaunch marks an engine executable that is missing or unusable.
	ErrLaunch = errors.New("engine launch failed")

	// ErrHandshake marks an engine that never completed the UCI handshake.
	// The session is never usable after this.
	ErrHandshake = errors.New("engine handshake failed")

	// ErrEngineUnresponsive marks a search that produced no bestmove within
	// its think time plus the grace window. The session stays usable.
	ErrEngineUnresponsive = errors.New("engine unresponsive")

	// ErrEngineDied marks unexpected engine process death. The session is
	// dead and must be relaunched.
	ErrEngineDied = errors.New("engine process died")

	// ErrShuttingDown rejects requests during deliberate session teardown.
	ErrShuttingDown = errors.New("engine session shutting down")
)
