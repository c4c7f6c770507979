// Package windfreak drives a Windfreak SynthHD dual-channel microwave
// synthesizer over its USB serial interface.
package windfreak

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"go.uber.org/multierr"

	"github.com/nvlab/pulsesweep/internal/device"
	"github.com/nvlab/pulsesweep/internal/serialport"
)

// Channels on the SynthHD, numbered as on the front panel (RF A, RF B).
const (
	ChannelA = 1
	ChannelB = 2
)

// Frequency and power limits of the SynthHD.
const (
	MinFrequencyHz = 10e6
	MaxFrequencyHz = 15e9
	MinPowerDBm    = -70.0
	MaxPowerDBm    = 20.0
)

// Options configures Connect.
type Options struct {
	Port serialport.PortOptions
	// Open defaults to serialport.Open.
	Open   serialport.Opener
	Logger *log.Logger
}

// SynthHD is a connected synthesizer. The zero value is not usable.
type SynthHD struct {
	conn   *serialport.LineConn
	logger *log.Logger

	mu       sync.Mutex
	selected int
}

var _ device.Synthesizer = (*SynthHD)(nil)

// Connect opens the synthesizer at path and turns both outputs off.
func Connect(ctx context.Context, path string, opts Options) (*SynthHD, error) {
	open := opts.Open
	if open == nil {
		open = serialport.Open
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	port, err := open(path, opts.Port)
	if err != nil {
		return nil, device.Wrap(device.NameSynthesizer, "connect", err)
	}
	s := &SynthHD{
		conn:   serialport.NewLineConn(port, "\n"),
		logger: logger,
	}
	for _, ch := range []int{ChannelA, ChannelB} {
		if err := s.Disable(ctx, ch); err != nil {
			return nil, multierr.Append(err, port.Close())
		}
	}
	logger.Printf("[synth] connected to SynthHD on %s, outputs off", path)
	return s, nil
}

// selectChannel issues a channel-select command if ch is not already the
// active channel. Callers hold mu.
func (s *SynthHD) selectChannel(ctx context.Context, op string, ch int) error {
	if ch != ChannelA && ch != ChannelB {
		return device.Wrap(device.NameSynthesizer, op, fmt.Errorf("no channel %d", ch))
	}
	if s.selected == ch {
		return nil
	}
	if err := s.conn.Command(ctx, fmt.Sprintf("C%d", ch-1)); err != nil {
		s.selected = 0
		return device.Wrap(device.NameSynthesizer, op, err)
	}
	s.selected = ch
	return nil
}

func (s *SynthHD) send(ctx context.Context, op string, ch int, cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectChannel(ctx, op, ch); err != nil {
		return err
	}
	if err := s.conn.Command(ctx, cmd); err != nil {
		return device.Wrap(device.NameSynthesizer, op, err)
	}
	return nil
}

// SetFrequency sets the output frequency of ch in Hz.
func (s *SynthHD) SetFrequency(ctx context.Context, ch int, hz float64) error {
	if hz < MinFrequencyHz || hz > MaxFrequencyHz {
		return device.Wrap(device.NameSynthesizer, "set frequency",
			fmt.Errorf("%g Hz outside %g..%g Hz", hz, MinFrequencyHz, MaxFrequencyHz))
	}
	return s.send(ctx, "set frequency", ch, fmt.Sprintf("f%.7f", hz/1e6))
}

// SetPower sets the output power of ch in dBm.
func (s *SynthHD) SetPower(ctx context.Context, ch int, dbm float64) error {
	if dbm < MinPowerDBm || dbm > MaxPowerDBm {
		return device.Wrap(device.NameSynthesizer, "set power",
			fmt.Errorf("%g dBm outside %g..%g dBm", dbm, MinPowerDBm, MaxPowerDBm))
	}
	return s.send(ctx, "set power", ch, fmt.Sprintf("W%.3f", dbm))
}

// Enable powers the PLL and output amplifier of ch.
func (s *SynthHD) Enable(ctx context.Context, ch int) error {
	return s.send(ctx, "enable", ch, "E1r1")
}

// Disable mutes ch and powers down its PLL.
func (s *SynthHD) Disable(ctx context.Context, ch int) error {
	return s.send(ctx, "disable", ch, "r0E0")
}

// Close turns both outputs off and releases the port. The port is closed
// even if disabling an output fails.
func (s *SynthHD) Close() error {
	ctx := context.Background()
	var err error
	for _, ch := range []int{ChannelA, ChannelB} {
		err = multierr.Append(err, s.Disable(ctx, ch))
	}
	if cerr := s.conn.Close(); cerr != nil {
		err = multierr.Append(err, device.Wrap(device.NameSynthesizer, "close", cerr))
	}
	return err
}
