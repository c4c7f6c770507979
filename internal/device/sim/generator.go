// Package sim provides in-process instrument simulators. They enforce the
// same command contracts as the real drivers and record every call, which
// makes them suitable for dry runs and tests. They do not model the
// physics of the measurement.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nvlab/pulsesweep/internal/device"
	"github.com/nvlab/pulsesweep/internal/pulse"
)

// Generator simulates a pattern generator.
type Generator struct {
	mu          sync.Mutex
	running     bool
	programming bool
	closed      bool
	staged      []pulse.Instruction
	program     []pulse.Instruction
	loads       int
	calls       []string
	failures    map[string]error
}

// NewGenerator returns a stopped generator with no program loaded.
func NewGenerator() *Generator {
	return &Generator{failures: make(map[string]error)}
}

var _ device.Generator = (*Generator)(nil)

// FailOn makes the next call to op ("start", "stop", "reset", "begin",
// "emit", "end", "close") fail with err.
func (g *Generator) FailOn(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[op] = err
}

// call records op and returns an injected failure, if any. Callers hold mu.
func (g *Generator) call(op string) error {
	g.calls = append(g.calls, op)
	if err, ok := g.failures[op]; ok {
		delete(g.failures, op)
		return device.Wrap(device.NameGenerator, op, err)
	}
	if g.closed && op != "close" {
		return device.Wrap(device.NameGenerator, op, errors.New("handle closed"))
	}
	return nil
}

func (g *Generator) BeginProgram(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.call("begin"); err != nil {
		return err
	}
	if g.running {
		return device.Wrap(device.NameGenerator, "begin", errors.New("cannot program while running"))
	}
	g.programming = true
	g.staged = g.staged[:0]
	return nil
}

func (g *Generator) Emit(ctx context.Context, addr int, in pulse.Instruction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.call("emit"); err != nil {
		return err
	}
	switch {
	case !g.programming:
		return device.Wrap(device.NameGenerator, "emit", errors.New("not in programming mode"))
	case addr != len(g.staged):
		return device.Wrap(device.NameGenerator, "emit", fmt.Errorf("address %d out of sequence, expected %d", addr, len(g.staged)))
	case in.Duration <= 0:
		return device.Wrap(device.NameGenerator, "emit", fmt.Errorf("address %d: non-positive duration", addr))
	case !in.Channels.Valid():
		return device.Wrap(device.NameGenerator, "emit", fmt.Errorf("address %d: invalid channel mask %s", addr, in.Channels))
	case in.Op == pulse.Branch && (in.Target < 0 || in.Target >= addr):
		return device.Wrap(device.NameGenerator, "emit", fmt.Errorf("address %d: branch target %d not yet emitted", addr, in.Target))
	}
	g.staged = append(g.staged, in)
	return nil
}

func (g *Generator) EndProgram(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.call("end"); err != nil {
		return err
	}
	if !g.programming {
		return device.Wrap(device.NameGenerator, "end", errors.New("not in programming mode"))
	}
	g.programming = false
	if n := len(g.staged); n == 0 || g.staged[n-1].Op != pulse.Branch {
		return device.Wrap(device.NameGenerator, "end", errors.New("program does not end in a branch"))
	}
	g.program = append([]pulse.Instruction(nil), g.staged...)
	g.loads++
	return nil
}

func (g *Generator) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.call("start"); err != nil {
		return err
	}
	if g.programming {
		return device.Wrap(device.NameGenerator, "start", errors.New("programming not finished"))
	}
	if len(g.program) == 0 {
		return device.Wrap(device.NameGenerator, "start", errors.New("no program loaded"))
	}
	g.running = true
	return nil
}

func (g *Generator) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.call("stop"); err != nil {
		return err
	}
	g.running = false
	return nil
}

func (g *Generator) Reset(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.call("reset")
}

func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.call("close"); err != nil {
		return err
	}
	g.running = false
	g.closed = true
	return nil
}

// Running reports whether the generator is executing a program.
func (g *Generator) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Closed reports whether Close has succeeded.
func (g *Generator) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Loads returns the number of programs successfully loaded.
func (g *Generator) Loads() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loads
}

// Program returns the most recently loaded program.
func (g *Generator) Program() []pulse.Instruction {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]pulse.Instruction(nil), g.program...)
}

// Calls returns the operations invoked so far, in order. Emit calls are
// recorded individually.
func (g *Generator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}
