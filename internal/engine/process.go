package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/notnil/chess/uci"
)

// errExited is returned by reads once the engine's output has closed.
var errExited = errors.New("engine exited")

const quitGrace = time.Second

// process is one UCI engine child. Commands use the uci package's wire
// format; replies are read on a separate goroutine so a hung or crashed
// engine can always be killed.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

func startProcess(path string) (*process, error) {
	cmd := exec.Command(path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &process{
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan string, 256),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go p.read(stdout)
	return p, nil
}

func (p *process) read(stdout io.Reader) {
	defer close(p.exited)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		select {
		case p.lines <- scanner.Text():
		case <-p.done:
			io.Copy(io.Discard, stdout)
			p.cmd.Wait()
			return
		}
	}
	close(p.lines)
	p.cmd.Wait()
}

func (p *process) send(cmds ...uci.Cmd) error {
	for _, c := range cmds {
		if _, err := fmt.Fprintln(p.stdin, c.String()); err != nil {
			return fmt.Errorf("write %q: %w", c.String(), err)
		}
	}
	return nil
}

// readUntil returns the first output line starting with prefix.
func (p *process) readUntil(ctx context.Context, prefix string) (string, error) {
	for {
		select {
		case line, ok := <-p.lines:
			if !ok {
				return "", errExited
			}
			if strings.HasPrefix(line, prefix) {
				return line, nil
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// kill stops the process without talking to it.
func (p *process) kill() {
	p.once.Do(func() { close(p.done) })
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
}

// close asks the engine to quit and kills it if it does not.
func (p *process) close() {
	p.send(uci.CmdQuit)
	p.stdin.Close()

	select {
	case <-p.exited:
	case <-time.After(quitGrace):
		p.kill()
	}
	p.once.Do(func() { close(p.done) })
}
