package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AnglerfishChess/chess-uci-mcp/rules"
	"github.com/AnglerfishChess/chess-uci-mcp/uci"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultThinkTime        = 1000 * time.Millisecond
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultSearchGrace      = 2 * time.Second
	defaultQueueSize        = 32
)

// Config configures Launch.
type Config struct {
	// ExePath is the engine executable. Bare names are resolved via PATH.
	ExePath string

	// Options are UCI options applied once during the handshake, unvalidated
	// (the operator knows their engine).
	Options map[string]string

	// DefaultThinkTime bounds searches whose request carries no think time.
	DefaultThinkTime time.Duration

	// HandshakeTimeout bounds the whole uci/isready exchange.
	HandshakeTimeout time.Duration

	// SearchGrace is how long past its think time a search may run before
	// the session declares the engine unresponsive and sends stop.
	SearchGrace time.Duration

	// QueueSize is the request queue capacity.
	QueueSize int

	Logger zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.DefaultThinkTime <= 0 {
		c.DefaultThinkTime = DefaultThinkTime
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.SearchGrace <= 0 {
		c.SearchGrace = DefaultSearchGrace
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	return c
}

// conn is the engine I/O surface the session drives. *uci.Transport
// satisfies it; tests substitute in-process fakes.
type conn interface {
	SendLine(line string) error
	Lines() <-chan string
	Close() error
	Err() error
}

// Session is the single live conversation with one engine process. All
// engine I/O happens on the run goroutine; callers communicate with it only
// through the request queue.
type Session struct {
	log  zerolog.Logger
	conn conn

	info         Info
	defaultThink time.Duration
	grace        time.Duration

	mu         sync.RWMutex
	configured map[string]string

	requests  chan *request
	quit      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once

	state atomic.Int32

	// Owned by the run goroutine.
	position    string
	staleSearch bool
}

type reqKind int

const (
	reqSearch reqKind = iota
	reqSetPosition
	reqSetOptions
)

// request is one queued unit of work. Exactly one response is delivered on
// the buffered result channel.
type request struct {
	id          string
	kind        reqKind
	ctx         context.Context
	fen         string            // reqSearch: explicit position; reqSetPosition: resolved position
	think       time.Duration     // reqSearch
	options     map[string]string // reqSetOptions: validated options to apply
	optionErrs  map[string]string // reqSetOptions: rejections found before queueing
	submittedAt time.Time
	result      chan response
}

type response struct {
	analysis *Analysis
	options  *OptionsResult
	err      error
}

// loopStatus tells the run loop what a request handler observed.
type loopStatus int

const (
	loopContinue loopStatus = iota
	loopDied
	loopQuit
)

// Launch starts the engine process, performs the UCI handshake, applies the
// configured options, and returns a ready session. Handshake failure is a
// hard construction error; no partially initialized session escapes.
func Launch(ctx context.Context, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()

	path, err := resolveExecutable(cfg.ExePath)
	if err != nil {
		return nil, err
	}

	transport, err := uci.Start(path, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	session, err := launchWithConn(ctx, transport, path, cfg)
	if err != nil {
		transport.Close()
		return nil, err
	}
	return session, nil
}

// launchWithConn builds a session over an already-started connection and
// runs the handshake. Split from Launch so tests can drive a fake engine.
func launchWithConn(ctx context.Context, c conn, path string, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()

	configured := make(map[string]string, len(cfg.Options))
	for k, v := range cfg.Options {
		configured[k] = v
	}

	s := &Session{
		log:          cfg.Logger,
		conn:         c,
		info:         Info{Path: path},
		defaultThink: cfg.DefaultThinkTime,
		grace:        cfg.SearchGrace,
		configured:   configured,
		requests:     make(chan *request, cfg.QueueSize),
		quit:         make(chan struct{}),
		loopDone:     make(chan struct{}),
	}
	s.setState(StateHandshaking)

	if err := s.handshake(ctx, cfg.HandshakeTimeout, cfg.Options); err != nil {
		return nil, err
	}

	go s.run()
	return s, nil
}

// resolveExecutable validates the engine path before any process is
// spawned, so a missing binary fails fast with ErrLaunch rather than a
// confusing pipe error. Bare names are looked up on PATH.
func resolveExecutable(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: no engine executable given", ErrLaunch)
	}
	if !strings.ContainsRune(path, os.PathSeparator) {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrLaunch, err)
		}
		return resolved, nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrLaunch, path)
	}
	if runtime.GOOS != "windows" && fi.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%w: %s is not executable", ErrLaunch, path)
	}
	return path, nil
}

// handshake drives uci/uciok, option setup, ucinewgame, and isready/readyok
// under one shared deadline.
func (s *Session) handshake(ctx context.Context, timeout time.Duration, options map[string]string) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	if err := s.conn.SendLine("uci"); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	var declared []uci.OptionDecl
collect:
	for {
		select {
		case raw, ok := <-s.conn.Lines():
			if !ok {
				return fmt.Errorf("%w: engine exited before uciok", ErrHandshake)
			}
			line := uci.Parse(raw)
			switch line.Kind {
			case uci.LineID:
				if line.ID.Field == "name" {
					s.info.Name = line.ID.Value
				} else {
					s.info.Author = line.ID.Value
				}
			case uci.LineOption:
				declared = append(declared, *line.Option)
			case uci.LineUCIOk:
				break collect
			default:
				// banners and noise before uciok are common; ignore
			}
		case <-deadline.C:
			return fmt.Errorf("%w: no uciok within %s", ErrHandshake, timeout)
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrHandshake, ctx.Err())
		}
	}
	s.info.Options = declared

	for _, name := range sortedKeys(options) {
		if err := s.conn.SendLine(setOptionCommand(name, options[name])); err != nil {
			return fmt.Errorf("%w: %v", ErrHandshake, err)
		}
	}
	if err := s.conn.SendLine("ucinewgame"); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if err := s.conn.SendLine("isready"); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	for {
		select {
		case raw, ok := <-s.conn.Lines():
			if !ok {
				return fmt.Errorf("%w: engine exited before readyok", ErrHandshake)
			}
			if uci.Parse(raw).Kind == uci.LineReadyOk {
				s.position = rules.StartingFEN
				s.setState(StateReady)
				s.log.Info().
					Str("name", s.info.Name).
					Str("author", s.info.Author).
					Int("declared_options", len(s.info.Options)).
					Msg("engine ready")
				return nil
			}
		case <-deadline.C:
			return fmt.Errorf("%w: no readyok within %s", ErrHandshake, timeout)
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrHandshake, ctx.Err())
		}
	}
}

// Analyze searches a position and returns the bestmove with the final
// search snapshot. An empty fen searches the session's current position; an
// explicit fen becomes the current position once the search succeeds. A
// non-positive think duration uses the session default.
func (s *Session) Analyze(ctx context.Context, fen string, think time.Duration) (*Analysis, error) {
	if fen != "" {
		if err := rules.ValidateFEN(fen); err != nil {
			return nil, err
		}
	}
	if think <= 0 {
		think = s.defaultThink
	}
	resp, err := s.submit(ctx, &request{kind: reqSearch, fen: fen, think: think})
	if err != nil {
		return nil, err
	}
	return resp.analysis, nil
}

// BestMove is Analyze reduced to the move token.
func (s *Session) BestMove(ctx context.Context, fen string, think time.Duration) (string, error) {
	analysis, err := s.Analyze(ctx, fen, think)
	if err != nil {
		return "", err
	}
	return analysis.BestMove, nil
}

// SetPosition validates and stages a new current position. An empty fen
// means the standard starting position; moves are UCI tokens applied on
// top. The update is queued like any other request, so a search already in
// flight finishes against the old position and every later search sees the
// new one.
func (s *Session) SetPosition(ctx context.Context, fen string, moves []string) (string, error) {
	base := fen
	if strings.TrimSpace(base) == "" {
		base = rules.StartingFEN
	}
	resolved, err := rules.ApplyMoves(base, moves)
	if err != nil {
		return "", err
	}
	if _, err := s.submit(ctx, &request{kind: reqSetPosition, fen: resolved}); err != nil {
		return "", err
	}
	return resolved, nil
}

// SetOptions validates options against the declared metadata and applies
// the valid ones. Rejected options are reported per name in the result;
// they never reach the engine.
func (s *Session) SetOptions(ctx context.Context, options map[string]string) (*OptionsResult, error) {
	valid, errs := validateOptions(s.info.Options, options)
	if len(valid) == 0 {
		return &OptionsResult{Applied: map[string]string{}, Errors: errs}, nil
	}
	resp, err := s.submit(ctx, &request{kind: reqSetOptions, options: valid, optionErrs: errs})
	if err != nil {
		return nil, err
	}
	return resp.options, nil
}

// Info returns a snapshot of the handshake metadata. It never queues.
func (s *Session) Info() Info {
	info := s.info
	info.Options = append([]uci.OptionDecl(nil), s.info.Options...)
	return info
}

// ConfiguredOptions returns a snapshot of the options currently set on the
// engine (startup options plus successful SetOptions calls).
func (s *Session) ConfiguredOptions() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[string]string, len(s.configured))
	for k, v := range s.configured {
		snapshot[k] = v
	}
	return snapshot
}

// State reports the session lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Close tears the session down: queued requests fail with ErrShuttingDown,
// an in-flight search is stopped, and the engine process is terminated.
// Close is idempotent and returns once the conversation goroutine is gone.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.loopDone
	return nil
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// submit enqueues a request and waits for its response. The loopDone guard
// on both phases keeps callers from hanging when the engine dies between
// enqueue and resolution.
func (s *Session) submit(ctx context.Context, req *request) (response, error) {
	req.ctx = ctx
	req.result = make(chan response, 1)
	req.submittedAt = time.Now()
	req.id = uuid.NewString()[:8]

	select {
	case s.requests <- req:
	case <-s.loopDone:
		return response{}, s.deadErr()
	case <-ctx.Done():
		return response{}, ctx.Err()
	}

	select {
	case resp := <-req.result:
		return resp, resp.err
	case <-s.loopDone:
		// The loop may have resolved us in the instant before it exited.
		select {
		case resp := <-req.result:
			return resp, resp.err
		default:
			return response{}, s.deadErr()
		}
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

func (s *Session) deadErr() error {
	if s.State() == StateClosed {
		return ErrShuttingDown
	}
	return ErrEngineDied
}

// run is the conversation goroutine. It alone touches the engine pipes.
func (s *Session) run() {
	defer close(s.loopDone)
	defer s.conn.Close()

	for {
		select {
		case <-s.quit:
			s.shutdown()
			return
		case raw, ok := <-s.conn.Lines():
			if !ok {
				s.die()
				return
			}
			s.handleIdleLine(raw)
		case req := <-s.requests:
			if err := req.ctx.Err(); err != nil {
				// Cancelled while queued: drop without touching the engine.
				s.resolve(req, response{err: err})
				continue
			}
			var status loopStatus
			switch req.kind {
			case reqSetPosition:
				s.position = req.fen
				s.log.Debug().Str("request", req.id).Str("fen", req.fen).Msg("position staged")
				s.resolve(req, response{})
				status = loopContinue
			case reqSetOptions:
				status = s.applyOptions(req)
			case reqSearch:
				status = s.search(req)
			}
			switch status {
			case loopDied:
				s.die()
				return
			case loopQuit:
				s.shutdown()
				return
			}
		}
	}
}

// handleIdleLine consumes engine output between requests. The only line of
// interest is a late bestmove from a search that was declared unresponsive;
// everything else is logged and discarded.
func (s *Session) handleIdleLine(raw string) {
	line := uci.Parse(raw)
	if s.staleSearch && line.Kind == uci.LineBestMove {
		s.staleSearch = false
		s.log.Debug().Str("move", line.Best.Move).Msg("late bestmove drained")
		return
	}
	s.log.Debug().Str("line", raw).Msg("unsolicited engine line discarded")
}

// search runs one position/go exchange to completion. It returns loopDied
// on EOF, loopQuit when shutdown interrupted it, and loopContinue otherwise
// (including unresponsive and cancelled outcomes).
func (s *Session) search(req *request) loopStatus {
	if s.staleSearch {
		if status := s.drainStale(req); status != loopContinue {
			return status
		}
		if s.staleSearch {
			// Still no terminal bestmove; a second go would interleave two
			// searches, so this request fails instead.
			s.resolve(req, response{err: fmt.Errorf("%w: previous search never terminated", ErrEngineUnresponsive)})
			return loopContinue
		}
	}

	pos := s.position
	if req.fen != "" {
		pos = req.fen
	}

	if err := s.conn.SendLine("position fen " + pos); err != nil {
		s.resolve(req, response{err: fmt.Errorf("%w: %v", ErrEngineDied, err)})
		return loopDied
	}
	ms := req.think.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	if err := s.conn.SendLine(fmt.Sprintf("go movetime %d", ms)); err != nil {
		s.resolve(req, response{err: fmt.Errorf("%w: %v", ErrEngineDied, err)})
		return loopDied
	}

	s.setState(StateSearching)
	defer func() {
		if s.State() == StateSearching {
			s.setState(StateReady)
		}
	}()

	s.log.Debug().
		Str("request", req.id).
		Str("fen", pos).
		Int64("movetime_ms", ms).
		Msg("search started")

	ceiling := time.NewTimer(req.think + s.grace)
	defer ceiling.Stop()

	ctxDone := req.ctx.Done()
	cancelled := false
	var last *uci.SearchInfo

	for {
		select {
		case raw, ok := <-s.conn.Lines():
			if !ok {
				s.resolve(req, response{err: fmt.Errorf("%w during search", ErrEngineDied)})
				return loopDied
			}
			line := uci.Parse(raw)
			switch line.Kind {
			case uci.LineInfo:
				last = uci.MergeInfo(last, line.Info)
			case uci.LineBestMove:
				if cancelled {
					s.resolve(req, response{err: req.ctx.Err()})
				} else {
					s.position = pos
					s.resolve(req, response{analysis: buildAnalysis(line.Best, last)})
				}
				return loopContinue
			case uci.LineUnknown:
				s.log.Debug().Str("line", raw).Msg("malformed engine line discarded")
			default:
				// id/option/readyok mid-search carry nothing for the result
			}
		case <-ceiling.C:
			_ = s.conn.SendLine("stop")
			s.staleSearch = true
			s.resolve(req, response{err: fmt.Errorf("%w: no bestmove within %s", ErrEngineUnresponsive, req.think+s.grace)})
			return loopContinue
		case <-ctxDone:
			// One stop per search; keep draining until bestmove arrives.
			ctxDone = nil
			cancelled = true
			_ = s.conn.SendLine("stop")
			s.log.Debug().Str("request", req.id).Msg("caller cancelled, stop sent")
		case <-s.quit:
			_ = s.conn.SendLine("stop")
			s.resolve(req, response{err: ErrShuttingDown})
			s.awaitTerminalBestMove()
			return loopQuit
		}
	}
}

// drainStale waits out the terminal bestmove of a search that was declared
// unresponsive. Clearing it before the next go preserves the one-search-at-
// a-time contract.
func (s *Session) drainStale(req *request) loopStatus {
	timer := time.NewTimer(s.grace)
	defer timer.Stop()

	for {
		select {
		case raw, ok := <-s.conn.Lines():
			if !ok {
				s.resolve(req, response{err: fmt.Errorf("%w during search", ErrEngineDied)})
				return loopDied
			}
			if uci.Parse(raw).Kind == uci.LineBestMove {
				s.staleSearch = false
				s.log.Debug().Msg("late bestmove drained")
				return loopContinue
			}
		case <-timer.C:
			return loopContinue
		case <-s.quit:
			s.resolve(req, response{err: ErrShuttingDown})
			return loopQuit
		}
	}
}

// awaitTerminalBestMove gives a stopped search a short window to emit its
// bestmove before the transport is closed.
func (s *Session) awaitTerminalBestMove() {
	timer := time.NewTimer(s.grace)
	defer timer.Stop()

	for {
		select {
		case raw, ok := <-s.conn.Lines():
			if !ok {
				return
			}
			if uci.Parse(raw).Kind == uci.LineBestMove {
				return
			}
		case <-timer.C:
			return
		}
	}
}

// applyOptions sends the pre-validated options followed by an isready sync,
// then records them as configured.
func (s *Session) applyOptions(req *request) loopStatus {
	for _, name := range sortedKeys(req.options) {
		if err := s.conn.SendLine(setOptionCommand(name, req.options[name])); err != nil {
			s.resolve(req, response{err: fmt.Errorf("%w: %v", ErrEngineDied, err)})
			return loopDied
		}
	}
	if err := s.conn.SendLine("isready"); err != nil {
		s.resolve(req, response{err: fmt.Errorf("%w: %v", ErrEngineDied, err)})
		return loopDied
	}

	timer := time.NewTimer(s.grace)
	defer timer.Stop()

	for {
		select {
		case raw, ok := <-s.conn.Lines():
			if !ok {
				s.resolve(req, response{err: fmt.Errorf("%w after setoption", ErrEngineDied)})
				return loopDied
			}
			line := uci.Parse(raw)
			if s.staleSearch && line.Kind == uci.LineBestMove {
				s.staleSearch = false
				continue
			}
			if line.Kind != uci.LineReadyOk {
				continue
			}
			s.mu.Lock()
			for name, value := range req.options {
				s.configured[name] = value
			}
			s.mu.Unlock()
			s.resolve(req, response{options: &OptionsResult{Applied: req.options, Errors: req.optionErrs}})
			return loopContinue
		case <-timer.C:
			s.resolve(req, response{err: fmt.Errorf("%w: no readyok after setoption", ErrEngineUnresponsive)})
			return loopContinue
		case <-s.quit:
			s.resolve(req, response{err: ErrShuttingDown})
			return loopQuit
		}
	}
}

// die marks the session dead and fails everything still queued. Runs on the
// conversation goroutine right before it exits.
func (s *Session) die() {
	s.setState(StateDead)
	s.log.Error().AnErr("exit", s.conn.Err()).Msg("engine process died")
	s.failPending(ErrEngineDied)
}

func (s *Session) shutdown() {
	s.setState(StateClosed)
	s.failPending(ErrShuttingDown)
	s.log.Info().Msg("engine session closed")
}

func (s *Session) failPending(cause error) {
	for {
		select {
		case req := <-s.requests:
			s.resolve(req, response{err: cause})
		default:
			return
		}
	}
}

func (s *Session) resolve(req *request, resp response) {
	req.result <- resp
	s.log.Debug().
		Str("request", req.id).
		Dur("elapsed", time.Since(req.submittedAt)).
		Err(resp.err).
		Msg("request resolved")
}

func buildAnalysis(best *uci.BestMove, last *uci.SearchInfo) *Analysis {
	analysis := &Analysis{BestMove: best.Move, Ponder: best.Ponder}
	if last != nil {
		analysis.Depth = last.Depth
		analysis.ScoreCP = last.ScoreCP
		analysis.ScoreMate = last.ScoreMate
		analysis.PV = last.PV
		analysis.Nodes = last.Nodes
		analysis.TimeMS = last.TimeMS
	}
	return analysis
}

func setOptionCommand(name, value string) string {
	if value == "" {
		return "setoption name " + name
	}
	return fmt.Sprintf("setoption name %s value %s", name, value)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
