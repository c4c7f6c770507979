package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nvlab/pulsesweep/internal/device"
)

// ChannelState is the simulated state of one synthesizer output.
type ChannelState struct {
	Frequency float64
	Power     float64
	Enabled   bool
}

// Synthesizer simulates a two-channel microwave source with outputs
// numbered 1 and 2. Both outputs start disabled, as the real instrument is
// left after connect.
type Synthesizer struct {
	mu       sync.Mutex
	channels [2]ChannelState
	closed   bool
	calls    []string
	failures map[string]error
}

// NewSynthesizer returns a synthesizer with both outputs off.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{failures: make(map[string]error)}
}

var _ device.Synthesizer = (*Synthesizer)(nil)

// FailOn makes the next call to op ("frequency", "power", "enable",
// "disable", "close") fail with err.
func (s *Synthesizer) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Synthesizer) call(op string, ch int) error {
	s.calls = append(s.calls, fmt.Sprintf("%s(%d)", op, ch))
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return device.Wrap(device.NameSynthesizer, op, err)
	}
	if s.closed && op != "close" {
		return device.Wrap(device.NameSynthesizer, op, errors.New("handle closed"))
	}
	if op != "close" && (ch < 1 || ch > len(s.channels)) {
		return device.Wrap(device.NameSynthesizer, op, fmt.Errorf("no channel %d", ch))
	}
	return nil
}

func (s *Synthesizer) SetFrequency(ctx context.Context, ch int, hz float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("frequency", ch); err != nil {
		return err
	}
	if hz <= 0 {
		return device.Wrap(device.NameSynthesizer, "frequency", fmt.Errorf("invalid frequency %g Hz", hz))
	}
	s.channels[ch-1].Frequency = hz
	return nil
}

func (s *Synthesizer) SetPower(ctx context.Context, ch int, dbm float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("power", ch); err != nil {
		return err
	}
	s.channels[ch-1].Power = dbm
	return nil
}

func (s *Synthesizer) Enable(ctx context.Context, ch int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("enable", ch); err != nil {
		return err
	}
	s.channels[ch-1].Enabled = true
	return nil
}

func (s *Synthesizer) Disable(ctx context.Context, ch int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("disable", ch); err != nil {
		return err
	}
	s.channels[ch-1].Enabled = false
	return nil
}

// Close disables both outputs.
func (s *Synthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("close", 0); err != nil {
		return err
	}
	for i := range s.channels {
		s.channels[i].Enabled = false
	}
	s.closed = true
	return nil
}

// Channel returns the state of output ch.
func (s *Synthesizer) Channel(ch int) ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels[ch-1]
}

// Closed reports whether Close has succeeded.
func (s *Synthesizer) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Calls returns the operations invoked so far as "op(channel)".
func (s *Synthesizer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
