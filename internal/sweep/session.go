package sweep

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/nvlab/pulsesweep/internal/device"
)

// Session owns the three instrument handles for the duration of one run.
type Session struct {
	Generator   device.Generator
	Synthesizer device.Synthesizer
	LockIn      device.LockIn
}

// Close stops the generator and releases every handle. Each release is
// attempted regardless of earlier failures; the failures are combined.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	ctx := context.Background()
	var err error
	if s.Generator != nil {
		err = multierr.Append(err, s.Generator.Stop(ctx))
		err = multierr.Append(err, s.Generator.Reset(ctx))
		err = multierr.Append(err, s.Generator.Close())
	}
	if s.LockIn != nil {
		err = multierr.Append(err, s.LockIn.Close())
	}
	if s.Synthesizer != nil {
		err = multierr.Append(err, s.Synthesizer.Close())
	}
	return err
}

// Opener acquires a Session.
type Opener interface {
	Open(ctx context.Context) (*Session, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context) (*Session, error)

func (f OpenerFunc) Open(ctx context.Context) (*Session, error) { return f(ctx) }

// Openers opens each instrument in turn. If one fails, those already open
// are released before the error is returned.
type Openers struct {
	Generator   func(ctx context.Context) (device.Generator, error)
	Synthesizer func(ctx context.Context) (device.Synthesizer, error)
	LockIn      func(ctx context.Context) (device.LockIn, error)
}

func (o Openers) Open(ctx context.Context) (*Session, error) {
	if o.Generator == nil || o.Synthesizer == nil || o.LockIn == nil {
		return nil, errors.New("sweep: every instrument needs an opener")
	}
	s := &Session{}
	gen, err := o.Generator(ctx)
	if err != nil {
		return nil, fmt.Errorf("open generator: %w", err)
	}
	s.Generator = gen

	li, err := o.LockIn(ctx)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("open lock-in: %w", err), s.Close())
	}
	s.LockIn = li

	synth, err := o.Synthesizer(ctx)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("open synthesizer: %w", err), s.Close())
	}
	s.Synthesizer = synth
	return s, nil
}
