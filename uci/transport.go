package uci

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrProcessExited is returned by SendLine once the engine process is gone.
var ErrProcessExited = errors.New("engine process exited")

// quitTimeout bounds how long Close waits for the engine to honor "quit"
// before killing the process.
const quitTimeout = 2 * time.Second

// maxLineSize caps a single engine output line. Deep multipv searches can
// produce very long pv lines.
const maxLineSize = 1024 * 1024

// Transport owns a UCI engine subprocess and its pipes. Writes go through
// SendLine in call order; output lines arrive on the Lines channel in
// production order and the channel is closed when stdout reaches EOF.
type Transport struct {
	path    string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	lines   chan string
	done    chan struct{}
	exitErr error
	log     zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Start launches the engine executable and begins reading its output.
// Engine stderr is drained and logged at debug level so it can never block
// the process.
func Start(path string, logger zerolog.Logger) (*Transport, error) {
	cmd := exec.Command(path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}

	t := &Transport{
		path:  path,
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string, 128),
		done:  make(chan struct{}),
		log:   logger,
	}

	t.log.Debug().Str("path", path).Int("pid", cmd.Process.Pid).Msg("engine process started")
	go t.readLoop(stdout, stderr)
	return t, nil
}

// SendLine writes one command line to the engine's stdin, appending the
// newline terminator.
func (t *Transport) SendLine(line string) error {
	select {
	case <-t.done:
		return fmt.Errorf("%w: cannot send %q", ErrProcessExited, line)
	default:
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := io.WriteString(t.stdin, line+"\n"); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	t.log.Debug().Str("line", line).Msg("uci send")
	return nil
}

// Lines returns the channel of raw engine output lines. The channel is
// closed once the process's stdout reaches EOF and the process is reaped.
func (t *Transport) Lines() <-chan string {
	return t.lines
}

// Done is closed after the engine process has exited and been reaped.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Err reports the process exit error. It returns nil while the process is
// still running.
func (t *Transport) Err() error {
	select {
	case <-t.done:
		return t.exitErr
	default:
		return nil
	}
}

// Path returns the executable path the transport was started with.
func (t *Transport) Path() string {
	return t.path
}

// Close shuts the engine down: best-effort "quit", a bounded wait for exit,
// then a kill. It is idempotent and always reaps the process. Callers must
// have stopped consuming Lines before calling Close; remaining output is
// drained and discarded.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		// Release the reader in case output is still buffered.
		go func() {
			for range t.lines {
			}
		}()

		if err := t.SendLine("quit"); err == nil {
			select {
			case <-t.done:
				t.log.Debug().Msg("engine exited after quit")
			case <-time.After(quitTimeout):
				t.log.Warn().Msg("engine ignored quit, killing process")
				t.kill()
			}
		} else {
			t.kill()
		}

		<-t.done
		_ = t.stdin.Close()
	})
	return nil
}

func (t *Transport) kill() {
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
}

// readLoop scans stdout into the lines channel and drains stderr. When both
// pipes reach EOF it reaps the process, records the exit error, and closes
// done and lines in that order.
func (t *Transport) readLoop(stdout, stderr io.Reader) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			t.log.Debug().Str("line", scanner.Text()).Msg("engine stderr")
		}
	}()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		raw := scanner.Text()
		t.log.Debug().Str("line", raw).Msg("uci recv")
		t.lines <- raw
	}
	if err := scanner.Err(); err != nil {
		t.log.Debug().Err(err).Msg("engine stdout closed with error")
	}

	wg.Wait()
	t.exitErr = t.cmd.Wait()
	if t.exitErr != nil {
		t.log.Debug().Err(t.exitErr).Msg("engine process exited")
	} else {
		t.log.Debug().Msg("engine process exited")
	}
	close(t.done)
	close(t.lines)
}
