// Package commandtest provides a scripted command.Executor for tests.
package commandtest

import (
	"context"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/nginxlb/internal/command"
)

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

func (c Call) String() string {
	return command.Line(c.Name, c.Args...)
}

type script struct {
	prefix string
	result command.Result
	err    error
}

// Executor answers commands from a script keyed by command-line prefix and
// records every call. Later registrations take precedence over earlier ones.
// Unscripted commands succeed with empty output.
type Executor struct {
	mu      sync.Mutex
	scripts []script
	calls   []Call
	started []*Process

	// OnRun, when set, is called after each Run with the recorded call.
	OnRun func(Call)
	// StartErr, when set, is returned by Start.
	StartErr error
}

// New returns an empty scripted executor.
func New() *Executor {
	return &Executor{}
}

// On scripts the result returned for commands whose line starts with prefix.
func (e *Executor) On(prefix string, result command.Result) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts = append(e.scripts, script{prefix: prefix, result: result})
	return e
}

// OnError scripts a launch failure for commands whose line starts with prefix.
func (e *Executor) OnError(prefix string, err error) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts = append(e.scripts, script{prefix: prefix, err: err})
	return e
}

// Run implements command.Executor.
func (e *Executor) Run(_ context.Context, name string, args ...string) (command.Result, error) {
	call := Call{Name: name, Args: append([]string(nil), args...)}

	e.mu.Lock()
	e.calls = append(e.calls, call)
	res, err := e.lookup(call.String())
	hook := e.OnRun
	e.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return res, err
}

func (e *Executor) lookup(line string) (command.Result, error) {
	for i := len(e.scripts) - 1; i >= 0; i-- {
		s := e.scripts[i]
		if strings.HasPrefix(line, s.prefix) {
			return s.result, s.err
		}
	}
	return command.Result{}, nil
}

// Start implements command.Executor. The returned process runs until Exit is called.
func (e *Executor) Start(name string, args ...string) (command.Process, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, Call{Name: name, Args: append([]string(nil), args...)})
	if e.StartErr != nil {
		return nil, e.StartErr
	}
	p := &Process{pid: 1000 + len(e.started), done: make(chan struct{})}
	e.started = append(e.started, p)
	return p, nil
}

// Calls returns every recorded call in order.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Matching returns the recorded calls whose line starts with prefix.
func (e *Executor) Matching(prefix string) []Call {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Call
	for _, c := range e.calls {
		if strings.HasPrefix(c.String(), prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Count is len(Matching(prefix)).
func (e *Executor) Count(prefix string) int {
	return len(e.Matching(prefix))
}

// Started returns the processes launched through Start.
func (e *Executor) Started() []*Process {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Process(nil), e.started...)
}

// Process is a fake background child.
type Process struct {
	pid  int
	once sync.Once
	done chan struct{}
	err  error
}

func (p *Process) Pid() int { return p.pid }

func (p *Process) Wait() error {
	<-p.done
	return p.err
}

// Exit makes Wait return err. Only the first call has an effect.
func (p *Process) Exit(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}
