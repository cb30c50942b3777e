package coach

import (
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
)

// process is one launched helper command.
type process struct {
	cmd    *exec.Cmd
	killed atomic.Bool
}

// launcher starts helper commands without waiting for them. An exclusive launcher
// kills the previous command before starting the next, so at most one is running.
// Commands that exit with an error they were not killed for are reported to onFail.
// onKill runs after a live command has been killed.
type launcher struct {
	exclusive bool
	onFail    func(error)
	onKill    func()

	mu      sync.Mutex
	current *process
	wg      sync.WaitGroup
	closed  bool
}

func (l *launcher) start(name string, args ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("%s: launcher closed", name)
	}
	if l.exclusive {
		l.killLocked()
	}

	p := &process{cmd: exec.Command(name, args...)}
	setupProcessGroup(p.cmd)
	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	l.current = p
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		err := p.cmd.Wait()
		l.mu.Lock()
		if l.current == p {
			l.current = nil
		}
		l.mu.Unlock()
		if err != nil && !p.killed.Load() && l.onFail != nil {
			l.onFail(fmt.Errorf("%s: %w", name, err))
		}
	}()
	return nil
}

// kill stops the running command, if any.
func (l *launcher) kill() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.killLocked()
}

func (l *launcher) killLocked() {
	if l.current == nil {
		return
	}
	l.current.killed.Store(true)
	killProcessGroup(l.current.cmd)
	l.current = nil
	if l.onKill != nil {
		l.onKill()
	}
}

// close kills the running command and waits for every waiter to return.
func (l *launcher) close() {
	l.mu.Lock()
	l.closed = true
	l.killLocked()
	l.mu.Unlock()
	l.wg.Wait()
}
