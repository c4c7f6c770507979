//go:build spinapi

/*
Package spinapi drives a SpinCore PulseBlaster through the vendor spinapi
C library. Build with -tags spinapi on a machine with the library
installed; without the tag Open reports that support is not compiled in.

The library keeps board state in globals, so at most one Generator can be
open per process.
*/
package spinapi

/*
#cgo LDFLAGS: -lspinapi
#include <stdlib.h>
#include "spinapi.h"
*/
import "C"
import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nvlab/pulsesweep/internal/device"
	"github.com/nvlab/pulsesweep/internal/pulse"
)

// Available reports whether PulseBlaster support is compiled in.
const Available = true

var (
	boardMu sync.Mutex
	inUse   bool
)

// Generator is an open PulseBlaster board.
type Generator struct {
	mu     sync.Mutex
	closed bool
}

var _ device.Generator = (*Generator)(nil)

func lastError() error {
	return errors.New(C.GoString(C.pb_get_error()))
}

func check(op string, rc C.int) error {
	if rc < 0 {
		return device.Wrap(device.NameGenerator, op, lastError())
	}
	return nil
}

// Open selects board, initializes it and sets its core clock.
func Open(opts Options) (*Generator, error) {
	boardMu.Lock()
	defer boardMu.Unlock()
	if inUse {
		return nil, device.Wrap(device.NameGenerator, "open", errors.New("board already open in this process"))
	}
	if n := C.pb_count_boards(); n <= 0 {
		return nil, device.Wrap(device.NameGenerator, "open", errors.New("no PulseBlaster boards found"))
	} else if opts.Board >= int(n) {
		return nil, device.Wrap(device.NameGenerator, "open", fmt.Errorf("board %d requested, %d present", opts.Board, int(n)))
	}
	if err := check("select board", C.pb_select_board(C.int(opts.Board))); err != nil {
		return nil, err
	}
	if err := check("init", C.pb_init()); err != nil {
		return nil, err
	}
	C.pb_core_clock(C.double(opts.clockMHz()))
	inUse = true
	return &Generator{}, nil
}

func (g *Generator) do(op string, fn func() C.int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return device.Wrap(device.NameGenerator, op, errors.New("handle closed"))
	}
	return check(op, fn())
}

func (g *Generator) BeginProgram(ctx context.Context) error {
	return g.do("begin", func() C.int { return C.pb_start_programming(C.PULSE_PROGRAM) })
}

func (g *Generator) Emit(ctx context.Context, addr int, in pulse.Instruction) error {
	op := C.int(C.CONTINUE)
	data := C.int(0)
	if in.Op == pulse.Branch {
		op = C.int(C.BRANCH)
		data = C.int(in.Target)
	}
	var got C.int
	err := g.do("emit", func() C.int {
		got = C.pb_inst_pbonly(C.uint(in.Channels), op, data, C.double(in.Duration.Nanoseconds()))
		return got
	})
	if err != nil {
		return err
	}
	if int(got) != addr {
		return device.Wrap(device.NameGenerator, "emit", fmt.Errorf("board placed instruction at %d, expected %d", int(got), addr))
	}
	return nil
}

func (g *Generator) EndProgram(ctx context.Context) error {
	return g.do("end", func() C.int { return C.pb_stop_programming() })
}

func (g *Generator) Start(ctx context.Context) error {
	return g.do("start", func() C.int { return C.pb_start() })
}

func (g *Generator) Stop(ctx context.Context) error {
	return g.do("stop", func() C.int { return C.pb_stop() })
}

func (g *Generator) Reset(ctx context.Context) error {
	return g.do("reset", func() C.int { return C.pb_reset() })
}

// Close stops the board and releases the library.
func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true

	boardMu.Lock()
	inUse = false
	boardMu.Unlock()

	if err := check("stop", C.pb_stop()); err != nil {
		C.pb_close()
		return err
	}
	return check("close", C.pb_close())
}
