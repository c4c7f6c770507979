//go:build !spinapi

package spinapi

import (
	"context"
	"errors"

	"github.com/nvlab/pulsesweep/internal/device"
	"github.com/nvlab/pulsesweep/internal/pulse"
)

// Available reports whether PulseBlaster support is compiled in.
const Available = false

// ErrNotCompiled is returned by Open in builds without the spinapi tag.
var ErrNotCompiled = errors.New("PulseBlaster support not compiled in (build with -tags spinapi)")

// Generator is never constructed in builds without the spinapi tag.
type Generator struct{}

var _ device.Generator = (*Generator)(nil)

// Open always fails in builds without the spinapi tag.
func Open(opts Options) (*Generator, error) {
	return nil, device.Wrap(device.NameGenerator, "open", ErrNotCompiled)
}

func (*Generator) BeginProgram(context.Context) error { return ErrNotCompiled }
func (*Generator) Emit(context.Context, int, pulse.Instruction) error { return ErrNotCompiled }
func (*Generator) EndProgram(context.Context) error { return ErrNotCompiled }
func (*Generator) Start(context.Context) error { return ErrNotCompiled }
func (*Generator) Stop(context.Context) error { return ErrNotCompiled }
func (*Generator) Reset(context.Context) error { return ErrNotCompiled }
func (*Generator) Close() error { return nil }
