package pulse

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultMinDuration is the shortest instruction the generator accepts when
// no other floor is configured.
const DefaultMinDuration = 10 * time.Nanosecond

// DefaultMaxInstructions is the instruction memory of a PulseBlaster
// ESR-PRO board.
const DefaultMaxInstructions = 4096

// Spec is a family-specific set of timing parameters. DutyCycleSpec and
// BlockSpec are the two implementations.
type Spec interface {
	// Family names the compiler strategy.
	Family() string
	compile(b *builder) (referenceLen int, err error)
}

type options struct {
	minDuration     time.Duration
	maxInstructions int
}

// Option configures Compile.
type Option func(*options)

// WithMinDuration sets the hardware floor for every emitted instruction.
func WithMinDuration(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.minDuration = d
		}
	}
}

// WithMaxInstructions caps the program length at the generator's
// instruction memory.
func WithMaxInstructions(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxInstructions = n
		}
	}
}

// Compile turns spec into an instruction stream. It does not touch hardware
// or read the clock; the same spec always yields the same program.
func Compile(spec Spec, opts ...Option) (Program, error) {
	if spec == nil {
		return Program{}, errors.New("pulse: nil timing spec")
	}
	o := options{minDuration: DefaultMinDuration, maxInstructions: DefaultMaxInstructions}
	for _, opt := range opts {
		opt(&o)
	}
	b := &builder{family: spec.Family(), min: o.minDuration, max: o.maxInstructions}
	refLen, err := spec.compile(b)
	if err != nil {
		return Program{}, err
	}
	return b.program(refLen)
}

// micros converts a microsecond value to the generator's nanosecond unit.
// Values that are not a whole number of nanoseconds are rejected.
func micros(family, field string, us float64) (time.Duration, error) {
	if math.IsNaN(us) || math.IsInf(us, 0) {
		return 0, constraintf(family, field, "%v µs is not a finite duration", us)
	}
	if us < 0 {
		return 0, constraintf(family, field, "%v µs is negative", us)
	}
	ns := us * 1e3
	whole := math.Round(ns)
	if math.Abs(ns-whole) > 1e-3 {
		return 0, constraintf(family, field, "%v µs is not a whole number of nanoseconds", us)
	}
	if whole > math.MaxInt64 {
		return 0, constraintf(family, field, "%v µs overflows", us)
	}
	return time.Duration(whole), nil
}

// Programmer is the part of a pattern generator that accepts a program.
// Programming is only valid while the generator is stopped.
type Programmer interface {
	BeginProgram(ctx context.Context) error
	Emit(ctx context.Context, addr int, in Instruction) error
	EndProgram(ctx context.Context) error
}

// Load writes p to the generator starting at address 0.
func Load(ctx context.Context, gen Programmer, p Program) error {
	if p.Len() == 0 {
		return errors.New("pulse: cannot load an empty program")
	}
	if err := gen.BeginProgram(ctx); err != nil {
		return fmt.Errorf("begin program: %w", err)
	}
	for addr, in := range p.instructions {
		if err := gen.Emit(ctx, addr, in); err != nil {
			return fmt.Errorf("emit instruction %d: %w", addr, err)
		}
	}
	if err := gen.EndProgram(ctx); err != nil {
		return fmt.Errorf("end program: %w", err)
	}
	return nil
}
