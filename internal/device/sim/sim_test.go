package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvlab/pulsesweep/internal/device"
	"github.com/nvlab/pulsesweep/internal/pulse"
)

func TestGenerator_LoadAndRun(t *testing.T) {
	ctx := context.Background()
	g := NewGenerator()

	p, err := pulse.Compile(pulse.DutyCycleSpec{Period: 20, Width: 5})
	require.NoError(t, err)

	require.NoError(t, pulse.Load(ctx, g, p))
	require.NoError(t, g.Start(ctx))
	assert.True(t, g.Running())
	assert.Equal(t, 1, g.Loads())
	assert.Equal(t, p.Instructions(), g.Program())

	require.NoError(t, g.Stop(ctx))
	require.NoError(t, g.Reset(ctx))
	require.NoError(t, g.Close())
	assert.False(t, g.Running())
	assert.True(t, g.Closed())
}

func TestGenerator_RejectsProgrammingWhileRunning(t *testing.T) {
	ctx := context.Background()
	g := NewGenerator()

	p, err := pulse.Compile(pulse.DutyCycleSpec{Period: 20, Width: 5})
	require.NoError(t, err)
	require.NoError(t, pulse.Load(ctx, g, p))
	require.NoError(t, g.Start(ctx))

	err = pulse.Load(ctx, g, p)
	require.Error(t, err)
	assert.True(t, device.IsHardwareError(err))
	assert.Contains(t, err.Error(), "while running")
	assert.Equal(t, 1, g.Loads())
}

func TestGenerator_EmitContract(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		addr int
		in   pulse.Instruction
	}{
		{"out of sequence", 3, pulse.Instruction{Channels: pulse.Laser, Duration: time.Microsecond}},
		{"zero duration", 0, pulse.Instruction{Channels: pulse.Laser}},
		{"forward branch", 0, pulse.Instruction{Op: pulse.Branch, Target: 0, Duration: time.Microsecond}},
		{"unnamed channel", 0, pulse.Instruction{Channels: pulse.Channel(1 << 7), Duration: time.Microsecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator()
			require.NoError(t, g.BeginProgram(ctx))
			err := g.Emit(ctx, tt.addr, tt.in)
			assert.True(t, device.IsHardwareError(err), "got %v", err)
		})
	}
}

func TestGenerator_StartWithoutProgram(t *testing.T) {
	g := NewGenerator()
	assert.Error(t, g.Start(context.Background()))
}

func TestGenerator_FailOn(t *testing.T) {
	ctx := context.Background()
	g := NewGenerator()
	boom := errors.New("usb stall")
	g.FailOn("stop", boom)

	err := g.Stop(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, g.Stop(ctx), "failure is one-shot")
	assert.Equal(t, []string{"stop", "stop"}, g.Calls())
}

func TestSynthesizer(t *testing.T) {
	ctx := context.Background()
	s := NewSynthesizer()

	assert.False(t, s.Channel(1).Enabled)
	require.NoError(t, s.SetFrequency(ctx, 1, 2.87e9))
	require.NoError(t, s.SetPower(ctx, 1, -20))
	require.NoError(t, s.Enable(ctx, 1))
	assert.Equal(t, ChannelState{Frequency: 2.87e9, Power: -20, Enabled: true}, s.Channel(1))

	assert.Error(t, s.Enable(ctx, 0))
	assert.Error(t, s.Enable(ctx, 3))
	assert.Error(t, s.SetFrequency(ctx, 2, 0))

	require.NoError(t, s.Close())
	assert.False(t, s.Channel(1).Enabled)
	assert.Error(t, s.Enable(ctx, 1))
}

func TestLockIn(t *testing.T) {
	ctx := context.Background()
	l := NewLockIn(100 * time.Millisecond)
	l.SetSource(func(n int) float64 { return float64(n) * 0.5 })

	tc, err := l.TimeConstant(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, tc)

	l.FailReads(errors.New("timeout"))
	_, err = l.ReadMagnitude(ctx)
	assert.True(t, device.IsHardwareError(err))

	for want := 0.0; want < 2; want += 0.5 {
		v, err := l.ReadMagnitude(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
	assert.Equal(t, 4, l.Reads())

	require.NoError(t, l.Close())
	_, err = l.ReadMagnitude(ctx)
	assert.Error(t, err)
}
